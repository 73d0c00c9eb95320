package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOrderServer implements the versioned order contract in memory
type fakeOrderServer struct {
	mu          sync.Mutex
	version     int
	items       []string
	submissions int
	// gate, when set, blocks POST handling until released
	gate chan struct{}
	// failures makes the next N requests return 500
	failures int
}

func (f *fakeOrderServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/lists/list-1/order", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		if f.failures > 0 {
			f.failures--
			f.mu.Unlock()
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		gate := f.gate
		f.mu.Unlock()

		if r.Method == http.MethodGet {
			f.respondSnapshot(w, http.StatusOK)
			return
		}

		if gate != nil {
			<-gate
		}

		var req struct {
			BaseVersion int      `json:"baseVersion"`
			Items       []string `json:"items"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		f.mu.Lock()
		f.submissions++
		if req.BaseVersion != f.version {
			f.mu.Unlock()
			f.respondSnapshot(w, http.StatusConflict)
			return
		}
		if !equalStrings(req.Items, f.items) {
			f.version++
			f.items = req.Items
		}
		f.mu.Unlock()
		f.respondSnapshot(w, http.StatusOK)
	})
	return mux
}

func (f *fakeOrderServer) respondSnapshot(w http.ResponseWriter, status int) {
	f.mu.Lock()
	snapshot := OrderSnapshot{Version: f.version, Items: f.items}
	f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(snapshot)
}

func (f *fakeOrderServer) state() (int, []string, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.version, f.items, f.submissions
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func newTestClient(t *testing.T, f *fakeOrderServer) *Client {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	return New(Config{
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
		MaxRetries: 3,
	})
}

func TestClient_GetOrder(t *testing.T) {
	f := &fakeOrderServer{version: 2, items: []string{"a", "b"}}
	c := newTestClient(t, f)

	snapshot, err := c.GetOrder(context.Background(), "list-1")

	require.NoError(t, err)
	assert.Equal(t, 2, snapshot.Version)
	assert.Equal(t, []string{"a", "b"}, snapshot.Items)
}

func TestClient_SubmitOrder(t *testing.T) {
	f := &fakeOrderServer{version: 1, items: []string{"a", "b"}}
	c := newTestClient(t, f)

	snapshot, err := c.SubmitOrder(context.Background(), "list-1", 1, []string{"b", "a"})

	require.NoError(t, err)
	assert.Equal(t, 2, snapshot.Version)
	assert.Equal(t, []string{"b", "a"}, snapshot.Items)
}

func TestClient_SubmitOrder_ConflictCarriesServerSnapshot(t *testing.T) {
	f := &fakeOrderServer{version: 5, items: []string{"a", "b"}}
	c := newTestClient(t, f)

	_, err := c.SubmitOrder(context.Background(), "list-1", 3, []string{"b", "a"})

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, 5, conflict.Server.Version)
	assert.Equal(t, []string{"a", "b"}, conflict.Server.Items)
}

func TestClient_RetriesTransientFailures(t *testing.T) {
	f := &fakeOrderServer{version: 1, items: []string{"a"}, failures: 2}
	c := newTestClient(t, f)

	snapshot, err := c.GetOrder(context.Background(), "list-1")

	require.NoError(t, err)
	assert.Equal(t, 1, snapshot.Version)
}

func TestClient_ExhaustsRetries(t *testing.T) {
	f := &fakeOrderServer{version: 1, items: []string{"a"}, failures: 100}
	c := newTestClient(t, f)

	_, err := c.GetOrder(context.Background(), "list-1")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
}
