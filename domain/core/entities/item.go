package entities

import (
	"strings"
	"time"

	"dome-backend/domain/core/valueobjects"
	pkgerrors "dome-backend/pkg/errors"
)

// MaxItemTitleLength bounds the title of a single todo entry.
const MaxItemTitleLength = 500

// Item is a single todo entry within a list
// This is a rich domain model with encapsulated business logic
type Item struct {
	// Private fields ensure encapsulation
	id        valueobjects.ItemID
	listID    valueobjects.ListID
	userID    string
	title     string
	notes     string
	done      bool
	createdAt time.Time
	updatedAt time.Time
}

// NewItem creates a new item with business rule validation
func NewItem(userID string, listID valueobjects.ListID, title string) (*Item, error) {
	title = strings.TrimSpace(title)
	if userID == "" {
		return nil, pkgerrors.NewValidationError("userID cannot be empty")
	}
	if listID.IsZero() {
		return nil, pkgerrors.NewValidationError("listID cannot be empty")
	}
	if title == "" {
		return nil, pkgerrors.NewValidationError("item title cannot be empty")
	}
	if len(title) > MaxItemTitleLength {
		return nil, pkgerrors.NewValidationError("item title too long")
	}

	now := time.Now()
	return &Item{
		id:        valueobjects.NewItemID(),
		listID:    listID,
		userID:    userID,
		title:     title,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstructItem rebuilds an item from persisted state, bypassing creation rules
func ReconstructItem(
	id valueobjects.ItemID,
	listID valueobjects.ListID,
	userID string,
	title string,
	notes string,
	done bool,
	createdAt time.Time,
	updatedAt time.Time,
) *Item {
	return &Item{
		id:        id,
		listID:    listID,
		userID:    userID,
		title:     title,
		notes:     notes,
		done:      done,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

// ID returns the item identifier
func (i *Item) ID() valueobjects.ItemID {
	return i.id
}

// ListID returns the identifier of the owning list
func (i *Item) ListID() valueobjects.ListID {
	return i.listID
}

// UserID returns the owning user
func (i *Item) UserID() string {
	return i.userID
}

// Title returns the item title
func (i *Item) Title() string {
	return i.title
}

// Notes returns the free-form notes attached to the item
func (i *Item) Notes() string {
	return i.notes
}

// Done reports whether the item is completed
func (i *Item) Done() bool {
	return i.done
}

// CreatedAt returns the creation timestamp
func (i *Item) CreatedAt() time.Time {
	return i.createdAt
}

// UpdatedAt returns the last modification timestamp
func (i *Item) UpdatedAt() time.Time {
	return i.updatedAt
}

// Rename changes the item title
func (i *Item) Rename(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return pkgerrors.NewValidationError("item title cannot be empty")
	}
	if len(title) > MaxItemTitleLength {
		return pkgerrors.NewValidationError("item title too long")
	}
	i.title = title
	i.updatedAt = time.Now()
	return nil
}

// SetNotes replaces the item notes
func (i *Item) SetNotes(notes string) {
	i.notes = notes
	i.updatedAt = time.Now()
}

// SetDone marks the item completed or not
func (i *Item) SetDone(done bool) {
	if i.done == done {
		return
	}
	i.done = done
	i.updatedAt = time.Now()
}
