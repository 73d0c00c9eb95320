package ports

import (
	"context"

	"dome-backend/domain/core/aggregates"
	"dome-backend/domain/core/entities"
	"dome-backend/domain/core/valueobjects"
	"dome-backend/domain/events"
)

// ListRepository is the Order State Store port: the durable, authoritative
// home for each list's membership and ordering. Implementations must make
// Save atomic per list and reject writes whose expected version no longer
// matches the stored one (optimistic concurrency).
type ListRepository interface {
	// Save persists a new list
	Save(ctx context.Context, list *aggregates.TodoList) error

	// Update persists list mutations via compare-and-swap: the write only
	// succeeds if the stored version still equals expectedVersion. Returns
	// a CONFLICT AppError when the stamp has moved.
	Update(ctx context.Context, list *aggregates.TodoList, expectedVersion int) error

	// GetByID retrieves a user's list by its ID
	GetByID(ctx context.Context, userID string, id valueobjects.ListID) (*aggregates.TodoList, error)

	// GetByUserID retrieves all lists owned by a user
	GetByUserID(ctx context.Context, userID string) ([]*aggregates.TodoList, error)

	// Delete removes a list and its items
	Delete(ctx context.Context, userID string, id valueobjects.ListID) error
}

// UserRepository defines the interface for user persistence
type UserRepository interface {
	// Save persists a user (create or update)
	Save(ctx context.Context, user *entities.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id string) (*entities.User, error)

	// GetByEmail retrieves a user by email address
	GetByEmail(ctx context.Context, email string) (*entities.User, error)

	// Delete removes a user
	Delete(ctx context.Context, id string) error
}

// EventPublisher publishes domain events to downstream consumers
type EventPublisher interface {
	Publish(ctx context.Context, evts ...events.DomainEvent) error
}
