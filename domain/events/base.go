package events

import (
	"time"

	"dome-backend/domain/core/valueobjects"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// List events

// ListCreated is raised when a new todo list is created
type ListCreated struct {
	BaseEvent
	ListID valueobjects.ListID `json:"list_id"`
	UserID string              `json:"user_id"`
	Title  string              `json:"title"`
}

// NewListCreated creates a ListCreated event
func NewListCreated(listID valueobjects.ListID, userID, title string, timestamp time.Time) ListCreated {
	return ListCreated{
		BaseEvent: BaseEvent{
			AggregateID: listID.String(),
			EventType:   "list.created",
			Timestamp:   timestamp,
			Version:     1,
		},
		ListID: listID,
		UserID: userID,
		Title:  title,
	}
}

// ListReordered is raised when a list's item ordering is replaced.
// Version carries the list version stamp confirmed by the reorder.
type ListReordered struct {
	BaseEvent
	ListID valueobjects.ListID   `json:"list_id"`
	UserID string                `json:"user_id"`
	Order  []valueobjects.ItemID `json:"order"`
}

// NewListReordered creates a ListReordered event
func NewListReordered(listID valueobjects.ListID, userID string, order []valueobjects.ItemID, version int, timestamp time.Time) ListReordered {
	return ListReordered{
		BaseEvent: BaseEvent{
			AggregateID: listID.String(),
			EventType:   "list.reordered",
			Timestamp:   timestamp,
			Version:     version,
		},
		ListID: listID,
		UserID: userID,
		Order:  order,
	}
}

// ListDeleted is raised when a todo list is removed
type ListDeleted struct {
	BaseEvent
	ListID valueobjects.ListID `json:"list_id"`
	UserID string              `json:"user_id"`
}

// NewListDeleted creates a ListDeleted event
func NewListDeleted(listID valueobjects.ListID, userID string, timestamp time.Time) ListDeleted {
	return ListDeleted{
		BaseEvent: BaseEvent{
			AggregateID: listID.String(),
			EventType:   "list.deleted",
			Timestamp:   timestamp,
			Version:     1,
		},
		ListID: listID,
		UserID: userID,
	}
}

// Item events

// ItemAdded is raised when an item is appended to a list
type ItemAdded struct {
	BaseEvent
	ListID valueobjects.ListID `json:"list_id"`
	ItemID valueobjects.ItemID `json:"item_id"`
	UserID string              `json:"user_id"`
	Title  string              `json:"title"`
}

// NewItemAdded creates an ItemAdded event
func NewItemAdded(listID valueobjects.ListID, itemID valueobjects.ItemID, userID, title string, version int, timestamp time.Time) ItemAdded {
	return ItemAdded{
		BaseEvent: BaseEvent{
			AggregateID: listID.String(),
			EventType:   "item.added",
			Timestamp:   timestamp,
			Version:     version,
		},
		ListID: listID,
		ItemID: itemID,
		UserID: userID,
		Title:  title,
	}
}

// ItemRemoved is raised when an item is deleted from a list
type ItemRemoved struct {
	BaseEvent
	ListID valueobjects.ListID `json:"list_id"`
	ItemID valueobjects.ItemID `json:"item_id"`
	UserID string              `json:"user_id"`
}

// NewItemRemoved creates an ItemRemoved event
func NewItemRemoved(listID valueobjects.ListID, itemID valueobjects.ItemID, userID string, version int, timestamp time.Time) ItemRemoved {
	return ItemRemoved{
		BaseEvent: BaseEvent{
			AggregateID: listID.String(),
			EventType:   "item.removed",
			Timestamp:   timestamp,
			Version:     version,
		},
		ListID: listID,
		ItemID: itemID,
		UserID: userID,
	}
}

// ItemCompleted is raised when an item's done flag changes
type ItemCompleted struct {
	BaseEvent
	ListID valueobjects.ListID `json:"list_id"`
	ItemID valueobjects.ItemID `json:"item_id"`
	UserID string              `json:"user_id"`
	Done   bool                `json:"done"`
}

// NewItemCompleted creates an ItemCompleted event
func NewItemCompleted(listID valueobjects.ListID, itemID valueobjects.ItemID, userID string, done bool, timestamp time.Time) ItemCompleted {
	return ItemCompleted{
		BaseEvent: BaseEvent{
			AggregateID: listID.String(),
			EventType:   "item.completed",
			Timestamp:   timestamp,
			Version:     1,
		},
		ListID: listID,
		ItemID: itemID,
		UserID: userID,
		Done:   done,
	}
}
