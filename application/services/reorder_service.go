package services

import (
	"context"

	"dome-backend/application/ports"
	"dome-backend/domain/core/valueobjects"
	pkgerrors "dome-backend/pkg/errors"

	"go.uber.org/zap"
)

// ReorderStatus tracks a reorder request through its state machine:
// Received -> Validated -> Applied | Rejected | Conflicted.
type ReorderStatus string

const (
	ReorderReceived   ReorderStatus = "received"
	ReorderValidated  ReorderStatus = "validated"
	ReorderApplied    ReorderStatus = "applied"
	ReorderRejected   ReorderStatus = "rejected"
	ReorderConflicted ReorderStatus = "conflicted"
)

// OrderSnapshot is a confirmed view of a list's ordering at a version
type OrderSnapshot struct {
	Version int      `json:"version"`
	Items   []string `json:"items"`
}

// ReorderService mediates between untrusted client orderings and the
// authoritative list store. Clients submit a full proposed ordering tagged
// with the version they last observed; the service applies it atomically
// or hands back the current authoritative state so the client can rebase.
type ReorderService struct {
	lists     ports.ListRepository
	publisher ports.EventPublisher
	logger    *zap.Logger
}

// NewReorderService creates a new reorder service
func NewReorderService(
	lists ports.ListRepository,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *ReorderService {
	return &ReorderService{
		lists:     lists,
		publisher: publisher,
		logger:    logger,
	}
}

// GetOrder returns the current authoritative ordering and version stamp
func (s *ReorderService) GetOrder(ctx context.Context, userID string, listID string) (*OrderSnapshot, error) {
	id, err := valueobjects.NewListIDFromString(listID)
	if err != nil {
		return nil, pkgerrors.NewValidationError("invalid list ID").WithCause(err)
	}

	list, err := s.lists.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	return snapshotOf(list.Version(), list.Order()), nil
}

// Reorder applies a client-proposed full ordering. baseVersion is the
// version stamp the client last observed; a mismatch means someone else
// mutated the list in between and the caller receives a CONFLICT error
// carrying the authoritative snapshot. A proposal identical to the current
// order confirms at the current version without a bump, so resubmitting a
// confirmed request is harmless.
func (s *ReorderService) Reorder(ctx context.Context, userID string, listID string, baseVersion int, itemIDs []string) (*OrderSnapshot, error) {
	status := ReorderReceived

	id, proposed, err := s.validate(listID, baseVersion, itemIDs)
	if err != nil {
		s.logger.Debug("Reorder rejected during validation",
			zap.String("listID", listID),
			zap.String("status", string(ReorderRejected)),
			zap.Error(err),
		)
		return nil, err
	}
	status = ReorderValidated

	list, err := s.lists.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if list.Version() != baseVersion {
		s.logger.Info("Reorder conflicted on stale base version",
			zap.String("listID", listID),
			zap.Int("baseVersion", baseVersion),
			zap.Int("currentVersion", list.Version()),
		)
		return nil, conflictWithSnapshot(list.Version(), list.Order())
	}

	if err := list.Reorder(proposed); err != nil {
		// Non-permutation proposals leave the list untouched
		return nil, err
	}

	// No version bump means the proposal matched the current order
	if list.Version() == baseVersion {
		return snapshotOf(list.Version(), list.Order()), nil
	}

	if err := s.lists.Update(ctx, list, baseVersion); err != nil {
		if pkgerrors.IsConflict(err) {
			// Lost the CAS race: re-read and hand the winner's state back
			current, readErr := s.lists.GetByID(ctx, userID, id)
			if readErr != nil {
				return nil, readErr
			}
			return nil, conflictWithSnapshot(current.Version(), current.Order())
		}
		return nil, err
	}
	status = ReorderApplied

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, list.GetUncommittedEvents()...); err != nil {
			// Ordering is already durable; event delivery is best effort
			s.logger.Warn("Failed to publish reorder events", zap.Error(err))
		}
		list.MarkEventsAsCommitted()
	}

	s.logger.Debug("Reorder applied",
		zap.String("listID", listID),
		zap.Int("version", list.Version()),
		zap.String("status", string(status)),
	)

	return snapshotOf(list.Version(), list.Order()), nil
}

// validate checks request shape: well-formed list ID, non-empty proposal,
// well-formed item IDs.
func (s *ReorderService) validate(listID string, baseVersion int, itemIDs []string) (valueobjects.ListID, []valueobjects.ItemID, error) {
	id, err := valueobjects.NewListIDFromString(listID)
	if err != nil {
		return valueobjects.ListID{}, nil, pkgerrors.NewValidationError("invalid list ID").WithCause(err)
	}
	if baseVersion < 1 {
		return valueobjects.ListID{}, nil, pkgerrors.NewValidationError("baseVersion must be positive")
	}
	if len(itemIDs) == 0 {
		return valueobjects.ListID{}, nil, pkgerrors.NewInvalidOrderError("proposed order is empty")
	}

	proposed := make([]valueobjects.ItemID, 0, len(itemIDs))
	for _, raw := range itemIDs {
		itemID, err := valueobjects.NewItemIDFromString(raw)
		if err != nil {
			return valueobjects.ListID{}, nil, pkgerrors.NewInvalidOrderError("malformed item ID: " + raw)
		}
		proposed = append(proposed, itemID)
	}
	return id, proposed, nil
}

func snapshotOf(version int, order []valueobjects.ItemID) *OrderSnapshot {
	items := make([]string, len(order))
	for i, id := range order {
		items[i] = id.String()
	}
	return &OrderSnapshot{Version: version, Items: items}
}

func conflictWithSnapshot(version int, order []valueobjects.ItemID) *pkgerrors.AppError {
	snap := snapshotOf(version, order)
	return pkgerrors.NewConflictError("list was modified concurrently").WithDetails(map[string]interface{}{
		"version": snap.Version,
		"items":   snap.Items,
	})
}
