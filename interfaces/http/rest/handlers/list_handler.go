package handlers

import (
	"net/http"
	"time"

	"dome-backend/application/services"
	"dome-backend/domain/core/aggregates"
	"dome-backend/domain/core/entities"
	"dome-backend/pkg/auth"
	"dome-backend/pkg/common"
	pkgerrors "dome-backend/pkg/errors"
	"dome-backend/pkg/observability"
	"dome-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ListHandler handles todo list and item HTTP requests
type ListHandler struct {
	lists   *services.ListService
	metrics *observability.Collector
	logger  *zap.Logger
}

// NewListHandler creates a new list handler
func NewListHandler(lists *services.ListService, metrics *observability.Collector, logger *zap.Logger) *ListHandler {
	return &ListHandler{
		lists:   lists,
		metrics: metrics,
		logger:  logger,
	}
}

// CreateListRequest represents the request body for creating a list
type CreateListRequest struct {
	Title string `json:"title" validate:"required,min=1,max=200"`
}

// RenameListRequest represents the request body for renaming a list
type RenameListRequest struct {
	Title string `json:"title" validate:"required,min=1,max=200"`
}

// CreateItemRequest represents the request body for adding an item
type CreateItemRequest struct {
	Title string `json:"title" validate:"required,min=1,max=500"`
}

// UpdateItemRequest represents the request body for updating an item
type UpdateItemRequest struct {
	Title *string `json:"title,omitempty" validate:"omitempty,min=1,max=500"`
	Notes *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
	Done  *bool   `json:"done,omitempty"`
}

// ListResponse is the API view of a todo list
type ListResponse struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Version   int            `json:"version"`
	Items     []ItemResponse `json:"items"`
	CreatedAt string         `json:"createdAt"`
	UpdatedAt string         `json:"updatedAt"`
}

// ItemResponse is the API view of a todo item
type ItemResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Notes     string `json:"notes,omitempty"`
	Done      bool   `json:"done"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// CreateList handles POST /lists
func (h *ListHandler) CreateList(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, string(pkgerrors.ErrorTypeUnauthorized), "Unauthorized")
		return
	}

	var req CreateListRequest
	if err := common.ParseJSONBody(w, r, &req, 1<<20); err != nil {
		common.RespondError(w, http.StatusBadRequest, string(pkgerrors.ErrorTypeValidation), "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, string(pkgerrors.ErrorTypeValidation), "Validation error: "+err.Error())
		return
	}

	list, err := h.lists.CreateList(r.Context(), userCtx.UserID, req.Title)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.ListsCreated.Inc()
	}
	common.RespondJSON(w, http.StatusCreated, listResponseOf(list))
}

// GetList handles GET /lists/{listID}
func (h *ListHandler) GetList(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, string(pkgerrors.ErrorTypeUnauthorized), "Unauthorized")
		return
	}

	list, err := h.lists.GetList(r.Context(), userCtx.UserID, chi.URLParam(r, "listID"))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, listResponseOf(list))
}

// ListLists handles GET /lists
func (h *ListHandler) ListLists(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, string(pkgerrors.ErrorTypeUnauthorized), "Unauthorized")
		return
	}

	lists, err := h.lists.ListLists(r.Context(), userCtx.UserID)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	responses := make([]ListResponse, 0, len(lists))
	for _, list := range lists {
		responses = append(responses, listResponseOf(list))
	}
	common.RespondJSON(w, http.StatusOK, responses)
}

// RenameList handles PUT /lists/{listID}
func (h *ListHandler) RenameList(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, string(pkgerrors.ErrorTypeUnauthorized), "Unauthorized")
		return
	}

	var req RenameListRequest
	if err := common.ParseJSONBody(w, r, &req, 1<<20); err != nil {
		common.RespondError(w, http.StatusBadRequest, string(pkgerrors.ErrorTypeValidation), "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, string(pkgerrors.ErrorTypeValidation), "Validation error: "+err.Error())
		return
	}

	list, err := h.lists.RenameList(r.Context(), userCtx.UserID, chi.URLParam(r, "listID"), req.Title)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, listResponseOf(list))
}

// DeleteList handles DELETE /lists/{listID}
func (h *ListHandler) DeleteList(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, string(pkgerrors.ErrorTypeUnauthorized), "Unauthorized")
		return
	}

	if err := h.lists.DeleteList(r.Context(), userCtx.UserID, chi.URLParam(r, "listID")); err != nil {
		common.RespondAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateItem handles POST /lists/{listID}/items
func (h *ListHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, string(pkgerrors.ErrorTypeUnauthorized), "Unauthorized")
		return
	}

	var req CreateItemRequest
	if err := common.ParseJSONBody(w, r, &req, 1<<20); err != nil {
		common.RespondError(w, http.StatusBadRequest, string(pkgerrors.ErrorTypeValidation), "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, string(pkgerrors.ErrorTypeValidation), "Validation error: "+err.Error())
		return
	}

	item, err := h.lists.AddItem(r.Context(), userCtx.UserID, chi.URLParam(r, "listID"), req.Title)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.ItemsCreated.Inc()
	}
	common.RespondJSON(w, http.StatusCreated, itemResponseOf(item))
}

// UpdateItem handles PATCH /lists/{listID}/items/{itemID}
func (h *ListHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, string(pkgerrors.ErrorTypeUnauthorized), "Unauthorized")
		return
	}

	var req UpdateItemRequest
	if err := common.ParseJSONBody(w, r, &req, 1<<20); err != nil {
		common.RespondError(w, http.StatusBadRequest, string(pkgerrors.ErrorTypeValidation), "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, string(pkgerrors.ErrorTypeValidation), "Validation error: "+err.Error())
		return
	}

	item, err := h.lists.UpdateItem(
		r.Context(),
		userCtx.UserID,
		chi.URLParam(r, "listID"),
		chi.URLParam(r, "itemID"),
		req.Title, req.Notes, req.Done,
	)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, itemResponseOf(item))
}

// DeleteItem handles DELETE /lists/{listID}/items/{itemID}
func (h *ListHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, string(pkgerrors.ErrorTypeUnauthorized), "Unauthorized")
		return
	}

	if err := h.lists.DeleteItem(r.Context(), userCtx.UserID, chi.URLParam(r, "listID"), chi.URLParam(r, "itemID")); err != nil {
		common.RespondAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func listResponseOf(list *aggregates.TodoList) ListResponse {
	items := make([]ItemResponse, 0, list.Len())
	for _, item := range list.Items() {
		items = append(items, itemResponseOf(item))
	}
	return ListResponse{
		ID:        list.ID().String(),
		Title:     list.Title(),
		Version:   list.Version(),
		Items:     items,
		CreatedAt: list.CreatedAt().Format(time.RFC3339),
		UpdatedAt: list.UpdatedAt().Format(time.RFC3339),
	}
}

func itemResponseOf(item *entities.Item) ItemResponse {
	return ItemResponse{
		ID:        item.ID().String(),
		Title:     item.Title(),
		Notes:     item.Notes(),
		Done:      item.Done(),
		CreatedAt: item.CreatedAt().Format(time.RFC3339),
		UpdatedAt: item.UpdatedAt().Format(time.RFC3339),
	}
}
