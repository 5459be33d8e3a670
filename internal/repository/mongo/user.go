package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dtroode/beatstream-server/internal/model"
)

var _ model.UserStore = (*UserRepository)(nil)

type subscriptionDocument struct {
	Type      string     `bson:"type"`
	ExpiresAt *time.Time `bson:"expiresAt,omitempty"`
}

type userDocument struct {
	ID              string               `bson:"_id"`
	Email           string               `bson:"email"`
	DisplayName     string               `bson:"displayName,omitempty"`
	PasswordHash    string               `bson:"passwordHash"`
	Role            string               `bson:"role"`
	Subscription    subscriptionDocument `bson:"subscription"`
	IsEmailVerified bool                 `bson:"isEmailVerified"`
	LoginAttempts   int                  `bson:"loginAttempts"`
	LockUntil       *time.Time           `bson:"lockUntil,omitempty"`
	CreatedAt       time.Time            `bson:"createdAt"`
	UpdatedAt       time.Time            `bson:"updatedAt"`
}

func newUserDocument(u model.User) userDocument {
	return userDocument{
		ID:              u.ID,
		Email:           u.Email,
		DisplayName:     u.DisplayName,
		PasswordHash:    u.PasswordHash,
		Role:            string(u.Role),
		Subscription:    subscriptionDocument{Type: string(u.Subscription.Type), ExpiresAt: u.Subscription.ExpiresAt},
		IsEmailVerified: u.IsEmailVerified,
		LoginAttempts:   u.LoginAttempts,
		LockUntil:       u.LockUntil,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

func (d userDocument) toModel() model.User {
	return model.User{
		ID:              d.ID,
		Email:           d.Email,
		DisplayName:     d.DisplayName,
		PasswordHash:    d.PasswordHash,
		Role:            model.Role(d.Role),
		Subscription:    model.Subscription{Type: model.SubscriptionType(d.Subscription.Type), ExpiresAt: d.Subscription.ExpiresAt},
		IsEmailVerified: d.IsEmailVerified,
		LoginAttempts:   d.LoginAttempts,
		LockUntil:       d.LockUntil,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

type UserRepository struct {
	db  *Connection
	col *mongo.Collection
	now func() time.Time
}

func NewUserRepository(db *Connection) *UserRepository {
	return &UserRepository{
		db:  db,
		col: db.db.Collection(usersCollection),
		now: time.Now,
	}
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.D) (model.User, error) {
	var doc userDocument
	err := r.col.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.User{}, model.ErrNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	return doc.toModel(), nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (model.User, error) {
	user, err := r.findOne(ctx, bson.D{{Key: "email", Value: email}})
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return model.User{}, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, err
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (model.User, error) {
	user, err := r.findOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return model.User{}, fmt.Errorf("failed to get user by id: %w", err)
	}
	return user, err
}

func (r *UserRepository) Create(ctx context.Context, user model.User) (model.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := r.now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := r.col.InsertOne(ctx, newUserDocument(user))
	if mongo.IsDuplicateKeyError(err) {
		return model.User{}, model.ErrAlreadyExists
	}
	if err != nil {
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// RecordFailedLogin runs as one pipeline update so concurrent failures cannot
// lose increments. An expired lock restarts the count.
func (r *UserRepository) RecordFailedLogin(ctx context.Context, id string, maxAttempts int, lockFor time.Duration) (model.User, error) {
	now := r.now()
	lockExpired := bson.D{{Key: "$and", Value: bson.A{
		bson.D{{Key: "$ne", Value: bson.A{bson.D{{Key: "$ifNull", Value: bson.A{"$lockUntil", nil}}}, nil}}},
		bson.D{{Key: "$lte", Value: bson.A{"$lockUntil", now}}},
	}}}

	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "loginAttempts", Value: bson.D{{Key: "$cond", Value: bson.A{lockExpired, 0, bson.D{{Key: "$ifNull", Value: bson.A{"$loginAttempts", 0}}}}}}},
			{Key: "lockUntil", Value: bson.D{{Key: "$cond", Value: bson.A{lockExpired, nil, bson.D{{Key: "$ifNull", Value: bson.A{"$lockUntil", nil}}}}}}},
		}}},
		{{Key: "$set", Value: bson.D{
			{Key: "loginAttempts", Value: bson.D{{Key: "$add", Value: bson.A{"$loginAttempts", 1}}}},
			{Key: "updatedAt", Value: now},
		}}},
		{{Key: "$set", Value: bson.D{
			{Key: "lockUntil", Value: bson.D{{Key: "$cond", Value: bson.A{
				bson.D{{Key: "$and", Value: bson.A{
					bson.D{{Key: "$gte", Value: bson.A{"$loginAttempts", maxAttempts}}},
					bson.D{{Key: "$eq", Value: bson.A{"$lockUntil", nil}}},
				}}},
				now.Add(lockFor),
				"$lockUntil",
			}}}},
		}}},
	}

	var doc userDocument
	err := r.col.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: id}},
		pipeline,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.User{}, model.ErrNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("failed to record failed login: %w", err)
	}

	return doc.toModel(), nil
}

func (r *UserRepository) ResetLoginAttempts(ctx context.Context, id string) error {
	return r.updateOne(ctx, id, bson.D{
		{Key: "$set", Value: bson.D{{Key: "loginAttempts", Value: 0}, {Key: "updatedAt", Value: r.now()}}},
		{Key: "$unset", Value: bson.D{{Key: "lockUntil", Value: ""}}},
	})
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	return r.updateOne(ctx, id, bson.D{
		{Key: "$set", Value: bson.D{{Key: "passwordHash", Value: passwordHash}, {Key: "updatedAt", Value: r.now()}}},
	})
}

func (r *UserRepository) updateOne(ctx context.Context, id string, update bson.D) error {
	res, err := r.col.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, update)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *UserRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
