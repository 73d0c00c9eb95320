// Package client is a Go client for the Dome HTTP API. It wraps the
// transport with bounded retries and a circuit breaker, and provides a
// per-list syncer that serializes reorder submissions.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// OrderSnapshot is the versioned ordering of a list as the server reports it.
type OrderSnapshot struct {
	Version int      `json:"version"`
	Items   []string `json:"items"`
}

// List is the API view of a todo list.
type List struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Version int    `json:"version"`
	Items   []Item `json:"items"`
}

// Item is the API view of a todo item.
type Item struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Notes string `json:"notes,omitempty"`
	Done  bool   `json:"done"`
}

// ConflictError reports a rejected order submission. Server carries the
// authoritative snapshot the caller should rebase onto.
type ConflictError struct {
	Server OrderSnapshot
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("order conflict: server at version %d", e.Server.Version)
}

// APIError reports a non-2xx response that is not a reorder conflict.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// Config configures a Client.
type Config struct {
	BaseURL string
	// Token is sent as a Bearer header on every request.
	Token      string
	HTTPClient *http.Client
	// MaxRetries bounds retries of transport failures and 5xx responses.
	MaxRetries uint64
	Logger     *zap.Logger
}

// Client is an HTTP client for the Dome API.
type Client struct {
	baseURL    string
	token      string
	http       *http.Client
	breaker    *gobreaker.CircuitBreaker
	maxRetries uint64
	logger     *zap.Logger
}

// New creates a Client from the given configuration.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "dome-api",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Client{
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
		http:       httpClient,
		breaker:    breaker,
		maxRetries: cfg.MaxRetries,
		logger:     logger,
	}
}

// GetOrder fetches the current versioned ordering of a list.
func (c *Client) GetOrder(ctx context.Context, listID string) (OrderSnapshot, error) {
	var snapshot OrderSnapshot
	err := c.doBare(ctx, http.MethodGet, "/api/lists/"+listID+"/order", nil, &snapshot)
	return snapshot, err
}

// SubmitOrder proposes a new ordering against a base version. A *ConflictError
// carries the server's authoritative snapshot when the base version is stale.
func (c *Client) SubmitOrder(ctx context.Context, listID string, baseVersion int, items []string) (OrderSnapshot, error) {
	body := map[string]interface{}{
		"baseVersion": baseVersion,
		"items":       items,
	}
	var snapshot OrderSnapshot
	err := c.doBare(ctx, http.MethodPost, "/api/lists/"+listID+"/order", body, &snapshot)
	return snapshot, err
}

// CreateList creates a todo list.
func (c *Client) CreateList(ctx context.Context, title string) (List, error) {
	var list List
	err := c.doEnveloped(ctx, http.MethodPost, "/api/lists", map[string]string{"title": title}, &list)
	return list, err
}

// GetList fetches a list with its items in order.
func (c *Client) GetList(ctx context.Context, listID string) (List, error) {
	var list List
	err := c.doEnveloped(ctx, http.MethodGet, "/api/lists/"+listID, nil, &list)
	return list, err
}

// Lists fetches all of the caller's lists.
func (c *Client) Lists(ctx context.Context) ([]List, error) {
	var lists []List
	err := c.doEnveloped(ctx, http.MethodGet, "/api/lists", nil, &lists)
	return lists, err
}

// DeleteList removes a list.
func (c *Client) DeleteList(ctx context.Context, listID string) error {
	return c.doEnveloped(ctx, http.MethodDelete, "/api/lists/"+listID, nil, nil)
}

// AddItem appends a new item to a list.
func (c *Client) AddItem(ctx context.Context, listID, title string) (Item, error) {
	var item Item
	err := c.doEnveloped(ctx, http.MethodPost, "/api/lists/"+listID+"/items", map[string]string{"title": title}, &item)
	return item, err
}

// SetItemDone toggles an item's completion state.
func (c *Client) SetItemDone(ctx context.Context, listID, itemID string, done bool) (Item, error) {
	var item Item
	err := c.doEnveloped(ctx, http.MethodPatch, "/api/lists/"+listID+"/items/"+itemID, map[string]bool{"done": done}, &item)
	return item, err
}

// DeleteItem removes an item from a list.
func (c *Client) DeleteItem(ctx context.Context, listID, itemID string) error {
	return c.doEnveloped(ctx, http.MethodDelete, "/api/lists/"+listID+"/items/"+itemID, nil, nil)
}

// doBare issues a request whose success and conflict bodies are bare JSON.
// 409 responses decode into a *ConflictError.
func (c *Client) doBare(ctx context.Context, method, path string, body, out interface{}) error {
	return c.do(ctx, method, path, body, func(status int, data []byte) error {
		if status == http.StatusConflict {
			var server OrderSnapshot
			if err := json.Unmarshal(data, &server); err != nil {
				return fmt.Errorf("decoding conflict body: %w", err)
			}
			return &ConflictError{Server: server}
		}
		if status < 200 || status >= 300 {
			return apiErrorOf(status, data)
		}
		if out == nil {
			return nil
		}
		return json.Unmarshal(data, out)
	})
}

// doEnveloped issues a request whose body uses the {success, data, error}
// envelope.
func (c *Client) doEnveloped(ctx context.Context, method, path string, body, out interface{}) error {
	return c.do(ctx, method, path, body, func(status int, data []byte) error {
		if status < 200 || status >= 300 {
			return apiErrorOf(status, data)
		}
		if out == nil {
			return nil
		}
		var envelope struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(data, &envelope); err != nil {
			return err
		}
		return json.Unmarshal(envelope.Data, out)
	})
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, handle func(status int, data []byte) error) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}

	attempt := func() error {
		result, err := c.breaker.Execute(func() (interface{}, error) {
			var reader io.Reader
			if payload != nil {
				reader = bytes.NewReader(payload)
			}
			req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
			if err != nil {
				return nil, backoff.Permanent(err)
			}
			if payload != nil {
				req.Header.Set("Content-Type", "application/json")
			}
			if c.token != "" {
				req.Header.Set("Authorization", "Bearer "+c.token)
			}

			resp, err := c.http.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()

			data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
			if err != nil {
				return nil, err
			}
			if resp.StatusCode >= 500 {
				return nil, apiErrorOf(resp.StatusCode, data)
			}
			return &httpResult{status: resp.StatusCode, data: data}, nil
		})
		if err != nil {
			if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
				return backoff.Permanent(err)
			}
			return err
		}

		res := result.(*httpResult)
		if err := handle(res.status, res.data); err != nil {
			// Client-side outcomes are not retryable.
			return backoff.Permanent(err)
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries),
		ctx,
	)
	return backoff.Retry(attempt, policy)
}

type httpResult struct {
	status int
	data   []byte
}

func apiErrorOf(status int, data []byte) error {
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	apiErr := &APIError{StatusCode: status}
	if json.Unmarshal(data, &envelope) == nil {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	}
	return apiErr
}
