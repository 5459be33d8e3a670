package handler

import (
	"context"
	"net/http"

	"github.com/dtroode/beatstream-server/internal/api/http/response"
	"github.com/dtroode/beatstream-server/internal/logger"
	"github.com/dtroode/beatstream-server/internal/model"
	"github.com/dtroode/beatstream-server/internal/ratelimit"
	"github.com/dtroode/beatstream-server/internal/service"
)

// AuthService defines account and session operations.
type AuthService interface {
	Register(ctx context.Context, params service.RegisterParams, meta service.ClientMeta) (service.AuthResult, error)
	Login(ctx context.Context, params service.LoginParams, meta service.ClientMeta) (service.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error)
	Logout(ctx context.Context, userID, accessToken, refreshToken string)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, resetToken, newPassword string) error
}

// Auth handles authentication endpoints.
type Auth struct {
	authService    AuthService
	contextManager model.ContextManager
	writer         *response.Writer
	logger         *logger.Logger
}

// NewAuth creates a new Auth handler.
func NewAuth(authService AuthService, contextManager model.ContextManager, writer *response.Writer, logger *logger.Logger) *Auth {
	return &Auth{
		authService:    authService,
		contextManager: contextManager,
		writer:         writer,
		logger:         logger,
	}
}

type registerRequest struct {
	Email       string `json:"email" validate:"required,email,max=254"`
	Password    string `json:"password" validate:"required,min=8,max=128"`
	DisplayName string `json:"displayName" validate:"max=64"`
	RememberMe  bool   `json:"rememberMe"`
}

type loginRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"rememberMe"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type authResponse struct {
	User userView `json:"user"`
	model.TokenPair
}

// Register creates an account and opens a session.
func (h *Auth) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(w, r, &req); err != nil {
		h.writer.Error(w, r, err)
		return
	}

	h.logger.DebugContext(r.Context(), "Auth handler: processing registration request", "email", req.Email)

	result, err := h.authService.Register(r.Context(), service.RegisterParams{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		RememberMe:  req.RememberMe,
	}, clientMeta(r))
	if err != nil {
		h.writer.Error(w, r, err)
		return
	}

	ratelimit.SkipRateLimit(r.Context())
	h.writer.JSON(w, http.StatusCreated, authResponse{User: newUserView(result.User), TokenPair: result.Tokens})
}

// Login checks credentials and opens a session.
func (h *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(w, r, &req); err != nil {
		h.writer.Error(w, r, err)
		return
	}

	result, err := h.authService.Login(r.Context(), service.LoginParams{
		Email:      req.Email,
		Password:   req.Password,
		RememberMe: req.RememberMe,
	}, clientMeta(r))
	if err != nil {
		h.logger.InfoContext(r.Context(), "Auth handler: login failed",
			"email", req.Email,
			"error", err.Error())
		h.writer.Error(w, r, err)
		return
	}

	ratelimit.SkipRateLimit(r.Context())
	h.writer.JSON(w, http.StatusOK, authResponse{User: newUserView(result.User), TokenPair: result.Tokens})
}

// Refresh rotates a refresh token into a new pair.
func (h *Auth) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decode(w, r, &req); err != nil {
		h.writer.Error(w, r, err)
		return
	}

	tokens, err := h.authService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.writer.Error(w, r, err)
		return
	}

	h.writer.JSON(w, http.StatusOK, tokens)
}

// Logout revokes the presented tokens.
func (h *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decode(w, r, &req); err != nil {
		h.writer.Error(w, r, err)
		return
	}

	user, _ := h.contextManager.GetUserFromContext(r.Context())
	accessToken, _ := h.contextManager.GetAccessTokenFromContext(r.Context())
	h.authService.Logout(r.Context(), user.ID, accessToken, req.RefreshToken)

	h.writer.JSON(w, http.StatusOK, messageResponse{Message: "Logged out successfully"})
}

// ForgotPassword sends a reset token. It answers the same way for unknown emails.
func (h *Auth) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decode(w, r, &req); err != nil {
		h.writer.Error(w, r, err)
		return
	}

	if err := h.authService.ForgotPassword(r.Context(), req.Email); err != nil {
		h.writer.Error(w, r, err)
		return
	}

	h.writer.JSON(w, http.StatusAccepted, messageResponse{Message: "If the account exists, a password reset link has been sent"})
}

// ResetPassword redeems a reset token.
func (h *Auth) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decode(w, r, &req); err != nil {
		h.writer.Error(w, r, err)
		return
	}

	if err := h.authService.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		h.writer.Error(w, r, err)
		return
	}

	h.writer.JSON(w, http.StatusOK, messageResponse{Message: "Password has been reset"})
}
