package client

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ResolveFunc rebases a local proposal onto the server's authoritative
// snapshot. It returns the ordering to resubmit, or nil to give up and
// accept the server's order.
type ResolveFunc func(local []string, server OrderSnapshot) []string

// SyncerConfig configures a ListSyncer.
type SyncerConfig struct {
	Client *Client
	ListID string
	// ResolveRebase, when set, is consulted on conflict instead of the
	// default server-wins policy.
	ResolveRebase ResolveFunc
	// MaxRebases bounds consecutive conflict rebases for one gesture.
	MaxRebases int
	// OnOrderChanged fires whenever the confirmed order changes, whether
	// from an applied proposal, a lost conflict, or a revert.
	OnOrderChanged func(OrderSnapshot)
	// OnError fires when a submission is abandoned.
	OnError func(error)
	Logger  *zap.Logger
}

// ListSyncer serializes order submissions for a single list. At most one
// request is in flight; newer local gestures replace the pending slot so
// intermediate drag states never reach the server.
type ListSyncer struct {
	client  *Client
	listID  string
	resolve ResolveFunc
	rebases int
	changed func(OrderSnapshot)
	onError func(error)
	logger  *zap.Logger

	mu        sync.Mutex
	cond      *sync.Cond
	confirmed OrderSnapshot
	pending   []string
	pendCtx   context.Context
	inFlight  bool
	seq       uint64 // last issued submission sequence
	applied   uint64 // highest sequence whose response was accepted
}

// NewListSyncer creates a syncer seeded with the last known confirmed order.
func NewListSyncer(cfg SyncerConfig, confirmed OrderSnapshot) *ListSyncer {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	rebases := cfg.MaxRebases
	if rebases <= 0 {
		rebases = 3
	}
	s := &ListSyncer{
		client:    cfg.Client,
		listID:    cfg.ListID,
		resolve:   cfg.ResolveRebase,
		rebases:   rebases,
		changed:   cfg.OnOrderChanged,
		onError:   cfg.OnError,
		logger:    logger,
		confirmed: confirmed,
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Confirmed returns the last server-confirmed snapshot.
func (s *ListSyncer) Confirmed() OrderSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.confirmed
}

// Propose records a local reorder gesture. If a submission is already in
// flight the proposal parks in the pending slot, replacing any older one.
func (s *ListSyncer) Propose(ctx context.Context, items []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	proposal := make([]string, len(items))
	copy(proposal, items)

	if s.inFlight {
		s.pending = proposal
		s.pendCtx = ctx
		return
	}
	s.inFlight = true
	go s.submit(ctx, proposal)
}

// Wait blocks until no submission is in flight and nothing is pending.
func (s *ListSyncer) Wait() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.inFlight || s.pending != nil {
		s.cond.Wait()
	}
}

func (s *ListSyncer) submit(ctx context.Context, proposal []string) {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	base := s.confirmed.Version
	s.mu.Unlock()

	snapshot, err := s.client.SubmitOrder(ctx, s.listID, base, proposal)

	rebased := 0
	var conflict *ConflictError
	for errors.As(err, &conflict) && s.resolve != nil && rebased < s.rebases {
		next := s.resolve(proposal, conflict.Server)
		if next == nil {
			break
		}
		rebased++
		proposal = next
		snapshot, err = s.client.SubmitOrder(ctx, s.listID, conflict.Server.Version, proposal)
		conflict = nil
	}

	s.mu.Lock()
	stale := seq < s.applied
	if !stale {
		s.applied = seq
	}
	switch {
	case stale:
		// A newer submission already resolved; drop this response.
	case err == nil:
		s.confirmed = snapshot
		s.notifyLocked()
	case errors.As(err, &conflict):
		// Server wins: adopt the authoritative order, discard the gesture.
		s.logger.Debug("reorder conflict, adopting server order",
			zap.String("listId", s.listID),
			zap.Int("serverVersion", conflict.Server.Version),
		)
		s.confirmed = conflict.Server
		s.notifyLocked()
	default:
		// Retries exhausted. Revert to the last confirmed order.
		s.logger.Warn("reorder submission abandoned",
			zap.String("listId", s.listID),
			zap.Error(err),
		)
		s.notifyLocked()
		if s.onError != nil {
			reportErr := err
			s.mu.Unlock()
			s.onError(reportErr)
			s.mu.Lock()
		}
	}

	if s.pending != nil {
		next := s.pending
		nextCtx := s.pendCtx
		s.pending = nil
		s.pendCtx = nil
		go s.submit(nextCtx, next)
		s.mu.Unlock()
		return
	}
	s.inFlight = false
	s.cond.Broadcast()
	s.mu.Unlock()
}

func (s *ListSyncer) notifyLocked() {
	if s.changed == nil {
		return
	}
	snapshot := s.confirmed
	s.mu.Unlock()
	s.changed(snapshot)
	s.mu.Lock()
}
