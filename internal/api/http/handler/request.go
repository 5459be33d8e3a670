package handler

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"

	"github.com/dtroode/beatstream-server/internal/model"
	"github.com/dtroode/beatstream-server/internal/service"
	"github.com/dtroode/beatstream-server/internal/validation"
)

const maxBodyBytes = 1 << 20

// decode reads a JSON body into dst and validates it.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil && err != io.EOF {
		return validation.NewRequestError("body", "request body must be valid JSON")
	}
	return validation.Struct(dst)
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, validation.NewRequestError(name, name+" must be a non-negative integer")
	}
	return n, nil
}

func clientMeta(r *http.Request) service.ClientMeta {
	ip, err := httprate.KeyByIP(r)
	if err != nil {
		ip = r.RemoteAddr
	}
	return service.ClientMeta{IP: ip, UserAgent: r.UserAgent()}
}

type subscriptionView struct {
	Type      model.SubscriptionType `json:"type"`
	ExpiresAt *time.Time             `json:"expiresAt,omitempty"`
}

type userView struct {
	ID              string           `json:"id"`
	Email           string           `json:"email"`
	DisplayName     string           `json:"displayName,omitempty"`
	Role            model.Role       `json:"role"`
	Subscription    subscriptionView `json:"subscription"`
	IsEmailVerified bool             `json:"isEmailVerified"`
	CreatedAt       *time.Time       `json:"createdAt,omitempty"`
}

func newUserView(u model.User) userView {
	v := userView{
		ID:              u.ID,
		Email:           u.Email,
		DisplayName:     u.DisplayName,
		Role:            u.Role,
		Subscription:    subscriptionView{Type: u.Subscription.Type, ExpiresAt: u.Subscription.ExpiresAt},
		IsEmailVerified: u.IsEmailVerified,
	}
	if !u.CreatedAt.IsZero() {
		v.CreatedAt = &u.CreatedAt
	}
	return v
}

type messageResponse struct {
	Message string `json:"message"`
}
