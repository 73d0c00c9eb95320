package services

import (
	"context"

	"dome-backend/application/ports"
	"dome-backend/domain/core/aggregates"
	"dome-backend/domain/core/entities"
	"dome-backend/domain/core/valueobjects"
	pkgerrors "dome-backend/pkg/errors"

	"go.uber.org/zap"
)

// casRetries bounds optimistic retries for server-initiated mutations.
// Unlike reorders, item CRUD is not tagged with a client base version, so
// losing a CAS race just means re-reading and reapplying.
const casRetries = 3

// ListService provides todo list and item management
type ListService struct {
	lists     ports.ListRepository
	publisher ports.EventPublisher
	logger    *zap.Logger
}

// NewListService creates a new list service
func NewListService(
	lists ports.ListRepository,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *ListService {
	return &ListService{
		lists:     lists,
		publisher: publisher,
		logger:    logger,
	}
}

// CreateList creates a new empty todo list for the user
func (s *ListService) CreateList(ctx context.Context, userID, title string) (*aggregates.TodoList, error) {
	list, err := aggregates.NewTodoList(userID, title)
	if err != nil {
		return nil, err
	}

	if err := s.lists.Save(ctx, list); err != nil {
		return nil, err
	}

	s.publish(ctx, list)
	s.logger.Info("List created",
		zap.String("listID", list.ID().String()),
		zap.String("userID", userID),
	)
	return list, nil
}

// GetList returns a user's list
func (s *ListService) GetList(ctx context.Context, userID, listID string) (*aggregates.TodoList, error) {
	id, err := valueobjects.NewListIDFromString(listID)
	if err != nil {
		return nil, pkgerrors.NewValidationError("invalid list ID").WithCause(err)
	}
	return s.lists.GetByID(ctx, userID, id)
}

// ListLists returns all lists owned by the user
func (s *ListService) ListLists(ctx context.Context, userID string) ([]*aggregates.TodoList, error) {
	return s.lists.GetByUserID(ctx, userID)
}

// RenameList changes a list's title
func (s *ListService) RenameList(ctx context.Context, userID, listID, title string) (*aggregates.TodoList, error) {
	return s.mutate(ctx, userID, listID, func(list *aggregates.TodoList) error {
		return list.Rename(title)
	})
}

// DeleteList removes a list and all of its items
func (s *ListService) DeleteList(ctx context.Context, userID, listID string) error {
	id, err := valueobjects.NewListIDFromString(listID)
	if err != nil {
		return pkgerrors.NewValidationError("invalid list ID").WithCause(err)
	}

	list, err := s.lists.GetByID(ctx, userID, id)
	if err != nil {
		return err
	}

	if err := s.lists.Delete(ctx, userID, id); err != nil {
		return err
	}

	list.MarkDeleted()
	s.publish(ctx, list)
	s.logger.Info("List deleted",
		zap.String("listID", listID),
		zap.String("userID", userID),
	)
	return nil
}

// AddItem appends a new item to the end of a list's ordering
func (s *ListService) AddItem(ctx context.Context, userID, listID, title string) (*entities.Item, error) {
	var item *entities.Item
	_, err := s.mutate(ctx, userID, listID, func(list *aggregates.TodoList) error {
		var addErr error
		item, addErr = list.AddItem(title)
		return addErr
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateItem applies partial changes to an item. Nil fields are untouched.
func (s *ListService) UpdateItem(ctx context.Context, userID, listID, itemID string, title *string, notes *string, done *bool) (*entities.Item, error) {
	id, err := valueobjects.NewItemIDFromString(itemID)
	if err != nil {
		return nil, pkgerrors.NewValidationError("invalid item ID").WithCause(err)
	}

	var item *entities.Item
	_, err = s.mutate(ctx, userID, listID, func(list *aggregates.TodoList) error {
		if title != nil {
			if renameErr := list.RenameItem(id, *title); renameErr != nil {
				return renameErr
			}
		}
		if notes != nil {
			if notesErr := list.SetItemNotes(id, *notes); notesErr != nil {
				return notesErr
			}
		}
		if done != nil {
			if doneErr := list.SetItemDone(id, *done); doneErr != nil {
				return doneErr
			}
		}
		var getErr error
		item, getErr = list.GetItem(id)
		return getErr
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteItem removes an item from a list, closing the ordering gap
func (s *ListService) DeleteItem(ctx context.Context, userID, listID, itemID string) error {
	id, err := valueobjects.NewItemIDFromString(itemID)
	if err != nil {
		return pkgerrors.NewValidationError("invalid item ID").WithCause(err)
	}

	_, err = s.mutate(ctx, userID, listID, func(list *aggregates.TodoList) error {
		return list.RemoveItem(id)
	})
	return err
}

// mutate runs fn against a fresh read of the list and writes it back with
// CAS, retrying on lost races.
func (s *ListService) mutate(ctx context.Context, userID, listID string, fn func(*aggregates.TodoList) error) (*aggregates.TodoList, error) {
	id, err := valueobjects.NewListIDFromString(listID)
	if err != nil {
		return nil, pkgerrors.NewValidationError("invalid list ID").WithCause(err)
	}

	var lastErr error
	for attempt := 0; attempt <= casRetries; attempt++ {
		list, err := s.lists.GetByID(ctx, userID, id)
		if err != nil {
			return nil, err
		}

		baseVersion := list.Version()
		if err := fn(list); err != nil {
			return nil, err
		}

		if list.Version() == baseVersion {
			// No-op mutation, nothing to persist
			return list, nil
		}

		if err := s.lists.Update(ctx, list, baseVersion); err != nil {
			if pkgerrors.IsConflict(err) {
				lastErr = err
				continue
			}
			return nil, err
		}

		s.publish(ctx, list)
		return list, nil
	}

	s.logger.Warn("List mutation exhausted CAS retries",
		zap.String("listID", listID),
		zap.Int("retries", casRetries),
	)
	return nil, lastErr
}

func (s *ListService) publish(ctx context.Context, list *aggregates.TodoList) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, list.GetUncommittedEvents()...); err != nil {
		s.logger.Warn("Failed to publish list events",
			zap.String("listID", list.ID().String()),
			zap.Error(err),
		)
	}
	list.MarkEventsAsCommitted()
}
