package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"dome-backend/application/services"
	"dome-backend/domain/core/aggregates"
	"dome-backend/infrastructure/persistence/memory"
	"dome-backend/pkg/auth"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type orderTestEnv struct {
	router  chi.Router
	listID  string
	items   []string
	version int
}

func newOrderTestEnv(t *testing.T, titles ...string) *orderTestEnv {
	t.Helper()
	store := memory.NewListStore()
	reorder := services.NewReorderService(store, nil, zap.NewNop())
	handler := NewOrderHandler(reorder, nil, zap.NewNop())

	list, err := aggregates.NewTodoList("user-1", "Groceries")
	require.NoError(t, err)
	items := make([]string, 0, len(titles))
	for _, title := range titles {
		item, err := list.AddItem(title)
		require.NoError(t, err)
		items = append(items, item.ID().String())
	}
	require.NoError(t, store.Save(context.Background(), list))

	router := chi.NewRouter()
	router.Use(fakeAuth("user-1"))
	router.Get("/api/lists/{listID}/order", handler.GetOrder)
	router.Post("/api/lists/{listID}/order", handler.SetOrder)

	return &orderTestEnv{
		router:  router,
		listID:  list.ID().String(),
		items:   items,
		version: list.Version(),
	}
}

func fakeAuth(userID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := auth.SetUserInContext(r.Context(), &auth.UserContext{UserID: userID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (e *orderTestEnv) getOrder(t *testing.T) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/lists/%s/order", e.listID), nil)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *orderTestEnv) postOrder(t *testing.T, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/lists/%s/order", e.listID), bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeSnapshot(t *testing.T, rec *httptest.ResponseRecorder) services.OrderSnapshot {
	t.Helper()
	var snapshot services.OrderSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
	return snapshot
}

func TestGetOrder_ReturnsBareSnapshot(t *testing.T) {
	env := newOrderTestEnv(t, "a", "b", "c")

	rec := env.getOrder(t)

	require.Equal(t, http.StatusOK, rec.Code)
	snapshot := decodeSnapshot(t, rec)
	assert.Equal(t, env.version, snapshot.Version)
	assert.Equal(t, env.items, snapshot.Items)
}

func TestSetOrder_AppliesProposal(t *testing.T) {
	env := newOrderTestEnv(t, "a", "b", "c")
	proposed := []string{env.items[2], env.items[0], env.items[1]}

	rec := env.postOrder(t, map[string]interface{}{
		"baseVersion": env.version,
		"items":       proposed,
	})

	require.Equal(t, http.StatusOK, rec.Code)
	snapshot := decodeSnapshot(t, rec)
	assert.Equal(t, env.version+1, snapshot.Version)
	assert.Equal(t, proposed, snapshot.Items)
}

func TestSetOrder_StaleBaseReturns409WithSnapshot(t *testing.T) {
	env := newOrderTestEnv(t, "a", "b", "c")
	winning := []string{env.items[1], env.items[2], env.items[0]}

	first := env.postOrder(t, map[string]interface{}{
		"baseVersion": env.version,
		"items":       winning,
	})
	require.Equal(t, http.StatusOK, first.Code)

	second := env.postOrder(t, map[string]interface{}{
		"baseVersion": env.version,
		"items":       []string{env.items[0], env.items[2], env.items[1]},
	})

	require.Equal(t, http.StatusConflict, second.Code)
	snapshot := decodeSnapshot(t, second)
	assert.Equal(t, env.version+1, snapshot.Version)
	assert.Equal(t, winning, snapshot.Items)
}

func TestSetOrder_NonPermutationReturns400(t *testing.T) {
	env := newOrderTestEnv(t, "a", "b", "c")

	rec := env.postOrder(t, map[string]interface{}{
		"baseVersion": env.version,
		"items":       []string{env.items[0], env.items[1]}, // missing one
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetOrder_MalformedBodyReturns400(t *testing.T) {
	env := newOrderTestEnv(t, "a")

	tests := []struct {
		name string
		body interface{}
	}{
		{"missing baseVersion", map[string]interface{}{"items": env.items}},
		{"zero baseVersion", map[string]interface{}{"baseVersion": 0, "items": env.items}},
		{"empty items", map[string]interface{}{"baseVersion": 1, "items": []string{}}},
		{"non-uuid item", map[string]interface{}{"baseVersion": 1, "items": []string{"nope"}}},
		{"unknown field", map[string]interface{}{"baseVersion": 1, "items": env.items, "extra": true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.postOrder(t, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestSetOrder_UnknownListReturns404(t *testing.T) {
	env := newOrderTestEnv(t, "a")
	env.listID = "3b9f3a3e-3f3a-4c43-89a1-65a1f2da41a7"

	rec := env.postOrder(t, map[string]interface{}{
		"baseVersion": 1,
		"items":       env.items,
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrderEndpoints_RequireUser(t *testing.T) {
	env := newOrderTestEnv(t, "a")

	// A router without the auth middleware leaves no user in context
	store := memory.NewListStore()
	reorder := services.NewReorderService(store, nil, zap.NewNop())
	handler := NewOrderHandler(reorder, nil, zap.NewNop())
	bare := chi.NewRouter()
	bare.Get("/api/lists/{listID}/order", handler.GetOrder)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/lists/%s/order", env.listID), nil)
	rec := httptest.NewRecorder()
	bare.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
