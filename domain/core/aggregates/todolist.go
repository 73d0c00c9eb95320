package aggregates

import (
	"strings"
	"time"

	"dome-backend/domain/core/entities"
	"dome-backend/domain/core/valueobjects"
	"dome-backend/domain/events"
	pkgerrors "dome-backend/pkg/errors"
)

// MaxListTitleLength bounds the title of a todo list.
const MaxListTitleLength = 200

// TodoList is the aggregate root for an ordered collection of todo items.
// It is the consistency boundary for item membership and ordering: the
// ordering slice is the authoritative total order, the version stamp is
// bumped on every mutation and used for optimistic concurrency.
type TodoList struct {
	// Private fields ensure encapsulation
	id        valueobjects.ListID
	userID    string
	title     string
	items     map[valueobjects.ItemID]*entities.Item
	ordering  []valueobjects.ItemID
	createdAt time.Time
	updatedAt time.Time
	version   int

	// Domain events that occurred during this aggregate's lifetime
	events []events.DomainEvent
}

// NewTodoList creates a new empty todo list
func NewTodoList(userID, title string) (*TodoList, error) {
	if userID == "" {
		return nil, pkgerrors.NewValidationError("userID required")
	}
	if title == "" {
		return nil, pkgerrors.NewValidationError("list title required")
	}
	if len(title) > MaxListTitleLength {
		return nil, pkgerrors.NewValidationError("list title too long")
	}

	now := time.Now()
	list := &TodoList{
		id:        valueobjects.NewListID(),
		userID:    userID,
		title:     title,
		items:     make(map[valueobjects.ItemID]*entities.Item),
		ordering:  []valueobjects.ItemID{},
		createdAt: now,
		updatedAt: now,
		version:   1,
		events:    []events.DomainEvent{},
	}

	list.addEvent(events.NewListCreated(list.id, userID, title, now))
	return list, nil
}

// ReconstructTodoList rebuilds a list from persisted state. The ordering
// must reference every item exactly once; persistence bugs surface here
// rather than later in the reorder path.
func ReconstructTodoList(
	id valueobjects.ListID,
	userID string,
	title string,
	items []*entities.Item,
	ordering []valueobjects.ItemID,
	version int,
	createdAt time.Time,
	updatedAt time.Time,
) (*TodoList, error) {
	byID := make(map[valueobjects.ItemID]*entities.Item, len(items))
	for _, item := range items {
		byID[item.ID()] = item
	}
	if err := validatePermutation(ordering, byID); err != nil {
		return nil, pkgerrors.NewInternalError("persisted ordering inconsistent with membership").WithCause(err)
	}

	return &TodoList{
		id:        id,
		userID:    userID,
		title:     title,
		items:     byID,
		ordering:  append([]valueobjects.ItemID(nil), ordering...),
		createdAt: createdAt,
		updatedAt: updatedAt,
		version:   version,
		events:    []events.DomainEvent{},
	}, nil
}

// ID returns the list identifier
func (l *TodoList) ID() valueobjects.ListID {
	return l.id
}

// UserID returns the owning user
func (l *TodoList) UserID() string {
	return l.userID
}

// Title returns the list title
func (l *TodoList) Title() string {
	return l.title
}

// Version returns the current optimistic-concurrency stamp
func (l *TodoList) Version() int {
	return l.version
}

// CreatedAt returns the creation timestamp
func (l *TodoList) CreatedAt() time.Time {
	return l.createdAt
}

// UpdatedAt returns the last modification timestamp
func (l *TodoList) UpdatedAt() time.Time {
	return l.updatedAt
}

// Len returns the number of items in the list
func (l *TodoList) Len() int {
	return len(l.ordering)
}

// Order returns a copy of the current authoritative ordering
func (l *TodoList) Order() []valueobjects.ItemID {
	return append([]valueobjects.ItemID(nil), l.ordering...)
}

// Items returns the items in their current order
func (l *TodoList) Items() []*entities.Item {
	out := make([]*entities.Item, 0, len(l.ordering))
	for _, id := range l.ordering {
		out = append(out, l.items[id])
	}
	return out
}

// GetItem returns the item with the given ID
func (l *TodoList) GetItem(itemID valueobjects.ItemID) (*entities.Item, error) {
	item, ok := l.items[itemID]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("item")
	}
	return item, nil
}

// HasItem reports whether the item belongs to this list
func (l *TodoList) HasItem(itemID valueobjects.ItemID) bool {
	_, ok := l.items[itemID]
	return ok
}

// Rename changes the list title
func (l *TodoList) Rename(title string) error {
	if title == "" {
		return pkgerrors.NewValidationError("list title required")
	}
	if len(title) > MaxListTitleLength {
		return pkgerrors.NewValidationError("list title too long")
	}
	l.title = title
	l.touch()
	return nil
}

// AddItem appends a new item to the end of the ordering
func (l *TodoList) AddItem(title string) (*entities.Item, error) {
	item, err := entities.NewItem(l.userID, l.id, title)
	if err != nil {
		return nil, err
	}

	l.items[item.ID()] = item
	l.ordering = append(l.ordering, item.ID())
	l.touch()

	l.addEvent(events.NewItemAdded(l.id, item.ID(), l.userID, item.Title(), l.version, l.updatedAt))
	return item, nil
}

// RemoveItem deletes an item and closes the gap in the ordering.
// Membership change and ordering change are a single atomic mutation.
func (l *TodoList) RemoveItem(itemID valueobjects.ItemID) error {
	if _, ok := l.items[itemID]; !ok {
		return pkgerrors.NewNotFoundError("item")
	}

	delete(l.items, itemID)
	for i, id := range l.ordering {
		if id.Equals(itemID) {
			l.ordering = append(l.ordering[:i], l.ordering[i+1:]...)
			break
		}
	}
	l.touch()

	l.addEvent(events.NewItemRemoved(l.id, itemID, l.userID, l.version, l.updatedAt))
	return nil
}

// SetItemDone toggles an item's completion state. Content mutations bump
// the version stamp: persistence keys the write on it, so a stale stamp
// would make the change invisible to the store.
func (l *TodoList) SetItemDone(itemID valueobjects.ItemID, done bool) error {
	item, ok := l.items[itemID]
	if !ok {
		return pkgerrors.NewNotFoundError("item")
	}
	if item.Done() == done {
		return nil
	}
	item.SetDone(done)
	l.touch()

	l.addEvent(events.NewItemCompleted(l.id, itemID, l.userID, done, l.updatedAt))
	return nil
}

// RenameItem changes an item's title
func (l *TodoList) RenameItem(itemID valueobjects.ItemID, title string) error {
	item, ok := l.items[itemID]
	if !ok {
		return pkgerrors.NewNotFoundError("item")
	}
	if item.Title() == strings.TrimSpace(title) {
		return nil
	}
	if err := item.Rename(title); err != nil {
		return err
	}
	l.touch()
	return nil
}

// SetItemNotes replaces an item's notes
func (l *TodoList) SetItemNotes(itemID valueobjects.ItemID, notes string) error {
	item, ok := l.items[itemID]
	if !ok {
		return pkgerrors.NewNotFoundError("item")
	}
	if item.Notes() == notes {
		return nil
	}
	item.SetNotes(notes)
	l.touch()
	return nil
}

// Reorder replaces the full ordering with the proposed one. The proposal
// must be a permutation of the current membership: same set of item IDs,
// no additions, removals, or duplicates. A proposal identical to the
// current order is a no-op and does not bump the version.
func (l *TodoList) Reorder(proposed []valueobjects.ItemID) error {
	if err := validatePermutation(proposed, l.items); err != nil {
		return err
	}

	if orderEqual(l.ordering, proposed) {
		return nil
	}

	l.ordering = append([]valueobjects.ItemID(nil), proposed...)
	l.touch()

	l.addEvent(events.NewListReordered(l.id, l.userID, l.Order(), l.version, l.updatedAt))
	return nil
}

// MarkDeleted records the deletion event before the aggregate is discarded
func (l *TodoList) MarkDeleted() {
	l.addEvent(events.NewListDeleted(l.id, l.userID, time.Now()))
}

// GetUncommittedEvents returns events raised since the last commit
func (l *TodoList) GetUncommittedEvents() []events.DomainEvent {
	return append([]events.DomainEvent(nil), l.events...)
}

// MarkEventsAsCommitted clears the uncommitted event buffer
func (l *TodoList) MarkEventsAsCommitted() {
	l.events = []events.DomainEvent{}
}

func (l *TodoList) addEvent(event events.DomainEvent) {
	l.events = append(l.events, event)
}

func (l *TodoList) touch() {
	l.updatedAt = time.Now()
	l.version++
}

// validatePermutation checks that proposed contains exactly the keys of
// membership, each once.
func validatePermutation(proposed []valueobjects.ItemID, membership map[valueobjects.ItemID]*entities.Item) error {
	if len(proposed) != len(membership) {
		return pkgerrors.NewInvalidOrderError("proposed order has wrong length")
	}

	seen := make(map[valueobjects.ItemID]struct{}, len(proposed))
	for _, id := range proposed {
		if _, dup := seen[id]; dup {
			return pkgerrors.NewInvalidOrderError("proposed order contains duplicate item " + id.String())
		}
		if _, ok := membership[id]; !ok {
			return pkgerrors.NewInvalidOrderError("proposed order contains unknown item " + id.String())
		}
		seen[id] = struct{}{}
	}
	return nil
}

func orderEqual(a, b []valueobjects.ItemID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equals(b[i]) {
			return false
		}
	}
	return true
}
