package handlers

import (
	"net/http"

	"dome-backend/application/services"
	"dome-backend/pkg/auth"
	"dome-backend/pkg/common"
	pkgerrors "dome-backend/pkg/errors"
	"dome-backend/pkg/utils"

	"go.uber.org/zap"
)

// UserHandler handles user profile HTTP requests
type UserHandler struct {
	users  *services.UserService
	logger *zap.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(users *services.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// UpdateProfileRequest represents the request body for a profile update
type UpdateProfileRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=100"`
	PhotoURL string `json:"photoUrl,omitempty" validate:"omitempty,url"`
}

// Me handles GET /users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, string(pkgerrors.ErrorTypeUnauthorized), "Unauthorized")
		return
	}

	user, err := h.users.GetByID(r.Context(), userCtx.UserID)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, userResponseOf(user))
}

// UpdateProfile handles PUT /users/me
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, string(pkgerrors.ErrorTypeUnauthorized), "Unauthorized")
		return
	}

	var req UpdateProfileRequest
	if err := common.ParseJSONBody(w, r, &req, 1<<20); err != nil {
		common.RespondError(w, http.StatusBadRequest, string(pkgerrors.ErrorTypeValidation), "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, string(pkgerrors.ErrorTypeValidation), "Validation error: "+err.Error())
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), userCtx.UserID, req.Name, req.PhotoURL)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, userResponseOf(user))
}
