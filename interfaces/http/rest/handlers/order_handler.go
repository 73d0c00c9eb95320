package handlers

import (
	"net/http"

	"dome-backend/application/services"
	"dome-backend/pkg/auth"
	"dome-backend/pkg/common"
	pkgerrors "dome-backend/pkg/errors"
	"dome-backend/pkg/observability"
	"dome-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// OrderHandler handles the reorder protocol endpoints
type OrderHandler struct {
	reorder *services.ReorderService
	metrics *observability.Collector
	logger  *zap.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(reorder *services.ReorderService, metrics *observability.Collector, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		reorder: reorder,
		metrics: metrics,
		logger:  logger,
	}
}

// ReorderRequest represents the request body for replacing a list's order.
// Items must be a permutation of the list's current membership and
// BaseVersion the version stamp the client last observed.
type ReorderRequest struct {
	BaseVersion int      `json:"baseVersion" validate:"required,gte=1"`
	Items       []string `json:"items" validate:"required,min=1,dive,uuid"`
}

// GetOrder handles GET /lists/{listID}/order
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, string(pkgerrors.ErrorTypeUnauthorized), "Unauthorized")
		return
	}

	listID := chi.URLParam(r, "listID")
	snapshot, err := h.reorder.GetOrder(r.Context(), userCtx.UserID, listID)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	// The order contract uses bare bodies, not the API envelope
	common.RespondRaw(w, http.StatusOK, snapshot)
}

// SetOrder handles POST /lists/{listID}/order. Responses follow the sync
// contract: 200 with the confirmed {version, items}, 409 with the current
// authoritative {version, items} on a stale base version, 400 for
// non-permutations or malformed requests.
func (h *OrderHandler) SetOrder(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, string(pkgerrors.ErrorTypeUnauthorized), "Unauthorized")
		return
	}

	var req ReorderRequest
	if err := common.ParseJSONBody(w, r, &req, 1<<20); err != nil {
		h.countRejected()
		common.RespondError(w, http.StatusBadRequest, string(pkgerrors.ErrorTypeValidation), "Invalid request body: "+err.Error())
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		h.countRejected()
		common.RespondError(w, http.StatusBadRequest, string(pkgerrors.ErrorTypeInvalidOrder), "Validation error: "+err.Error())
		return
	}

	listID := chi.URLParam(r, "listID")
	snapshot, err := h.reorder.Reorder(r.Context(), userCtx.UserID, listID, req.BaseVersion, req.Items)
	if err != nil {
		if appErr := pkgerrors.GetAppError(err); appErr != nil && appErr.Type == pkgerrors.ErrorTypeConflict {
			h.countConflicted()
			// 409 carries the authoritative state so the client can rebase
			common.RespondRaw(w, http.StatusConflict, appErr.Details)
			return
		}
		if pkgerrors.IsInvalidOrder(err) || pkgerrors.IsValidation(err) {
			h.countRejected()
		}
		common.RespondAppError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.ReordersApplied.Inc()
	}
	common.RespondRaw(w, http.StatusOK, snapshot)
}

func (h *OrderHandler) countConflicted() {
	if h.metrics != nil {
		h.metrics.ReordersConflicted.Inc()
	}
}

func (h *OrderHandler) countRejected() {
	if h.metrics != nil {
		h.metrics.ReordersRejected.Inc()
	}
}
