package handlers

import (
	"net/http"
	"time"

	"dome-backend/application/services"
	"dome-backend/domain/core/entities"
	"dome-backend/pkg/auth"
	"dome-backend/pkg/common"
	pkgerrors "dome-backend/pkg/errors"
	"dome-backend/pkg/utils"

	"go.uber.org/zap"
)

// AuthHandler handles registration, login, and logout
type AuthHandler struct {
	users      *services.UserService
	generator  *auth.JWTGenerator
	cookieName string
	secure     bool
	logger     *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users *services.UserService, generator *auth.JWTGenerator, cookieName string, secure bool, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		users:      users,
		generator:  generator,
		cookieName: cookieName,
		secure:     secure,
		logger:     logger,
	}
}

// RegisterRequest represents the request body for user registration
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	PhotoURL string `json:"photoUrl,omitempty" validate:"omitempty,url"`
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserResponse is the API view of a user
type UserResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	PhotoURL string `json:"photoUrl,omitempty"`
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := common.ParseJSONBody(w, r, &req, 1<<20); err != nil {
		common.RespondError(w, http.StatusBadRequest, string(pkgerrors.ErrorTypeValidation), "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, string(pkgerrors.ErrorTypeValidation), "Validation error: "+err.Error())
		return
	}

	user, err := h.users.Register(r.Context(), req.Name, req.Email, req.Password, req.PhotoURL)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	h.issueSession(w, user)
	h.logger.Info("user registered", zap.String("userId", user.ID()))
	common.RespondJSON(w, http.StatusCreated, userResponseOf(user))
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := common.ParseJSONBody(w, r, &req, 1<<20); err != nil {
		common.RespondError(w, http.StatusBadRequest, string(pkgerrors.ErrorTypeValidation), "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, string(pkgerrors.ErrorTypeValidation), "Validation error: "+err.Error())
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	h.issueSession(w, user)
	common.RespondJSON(w, http.StatusOK, userResponseOf(user))
}

// Logout handles POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) issueSession(w http.ResponseWriter, user *entities.User) {
	token, err := h.generator.GenerateToken(user.ID(), user.Email())
	if err != nil {
		h.logger.Error("failed to generate session token", zap.Error(err))
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.generator.Expiry()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func userResponseOf(user *entities.User) UserResponse {
	return UserResponse{
		ID:       user.ID(),
		Name:     user.Name(),
		Email:    user.Email(),
		PhotoURL: user.PhotoURL(),
	}
}
