package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"dome-backend/application/ports"
	"dome-backend/domain/core/aggregates"
	"dome-backend/domain/core/entities"
	"dome-backend/domain/core/valueobjects"
	pkgerrors "dome-backend/pkg/errors"
)

// ListStore is an in-memory implementation of the Order State Store, used
// for local development and tests. A single mutex serializes writes, which
// gives per-list atomicity trivially; records are copied in and out so
// returned aggregates never alias stored state.
type ListStore struct {
	mu    sync.RWMutex
	lists map[string]map[string]*listRecord // userID -> listID -> record
}

type listRecord struct {
	id        string
	userID    string
	title     string
	version   int
	ordering  []string
	items     map[string]itemRecord
	createdAt time.Time
	updatedAt time.Time
}

type itemRecord struct {
	title     string
	notes     string
	done      bool
	createdAt time.Time
	updatedAt time.Time
}

// NewListStore creates an empty in-memory list store
func NewListStore() *ListStore {
	return &ListStore{
		lists: make(map[string]map[string]*listRecord),
	}
}

var _ ports.ListRepository = (*ListStore)(nil)

// Save persists a new list
func (s *ListStore) Save(ctx context.Context, list *aggregates.TodoList) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	userLists, ok := s.lists[list.UserID()]
	if !ok {
		userLists = make(map[string]*listRecord)
		s.lists[list.UserID()] = userLists
	}
	if _, exists := userLists[list.ID().String()]; exists {
		return pkgerrors.NewConflictError("list already exists")
	}

	userLists[list.ID().String()] = recordOf(list)
	return nil
}

// Update writes list state back, compare-and-swapping on the version stamp
func (s *ListStore) Update(ctx context.Context, list *aggregates.TodoList, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	userLists := s.lists[list.UserID()]
	current, ok := userLists[list.ID().String()]
	if !ok {
		return pkgerrors.NewNotFoundError("list")
	}
	if current.version != expectedVersion {
		return pkgerrors.NewConflictError("list version mismatch")
	}

	userLists[list.ID().String()] = recordOf(list)
	return nil
}

// GetByID retrieves a user's list
func (s *ListStore) GetByID(ctx context.Context, userID string, id valueobjects.ListID) (*aggregates.TodoList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.lists[userID][id.String()]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("list")
	}
	return record.toAggregate()
}

// GetByUserID retrieves all lists owned by a user, newest first
func (s *ListStore) GetByUserID(ctx context.Context, userID string) ([]*aggregates.TodoList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.lists[userID]
	out := make([]*aggregates.TodoList, 0, len(records))
	for _, record := range records {
		list, err := record.toAggregate()
		if err != nil {
			return nil, err
		}
		out = append(out, list)
	}
	sortListsByCreation(out)
	return out, nil
}

// Delete removes a list
func (s *ListStore) Delete(ctx context.Context, userID string, id valueobjects.ListID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	userLists := s.lists[userID]
	if _, ok := userLists[id.String()]; !ok {
		return pkgerrors.NewNotFoundError("list")
	}
	delete(userLists, id.String())
	return nil
}

func recordOf(list *aggregates.TodoList) *listRecord {
	items := make(map[string]itemRecord, list.Len())
	for _, item := range list.Items() {
		items[item.ID().String()] = itemRecord{
			title:     item.Title(),
			notes:     item.Notes(),
			done:      item.Done(),
			createdAt: item.CreatedAt(),
			updatedAt: item.UpdatedAt(),
		}
	}

	ordering := make([]string, 0, list.Len())
	for _, id := range list.Order() {
		ordering = append(ordering, id.String())
	}

	return &listRecord{
		id:        list.ID().String(),
		userID:    list.UserID(),
		title:     list.Title(),
		version:   list.Version(),
		ordering:  ordering,
		items:     items,
		createdAt: list.CreatedAt(),
		updatedAt: list.UpdatedAt(),
	}
}

func (r *listRecord) toAggregate() (*aggregates.TodoList, error) {
	listID, err := valueobjects.NewListIDFromString(r.id)
	if err != nil {
		return nil, pkgerrors.NewInternalError("corrupt list record").WithCause(err)
	}

	items := make([]*entities.Item, 0, len(r.items))
	ordering := make([]valueobjects.ItemID, 0, len(r.ordering))
	for _, raw := range r.ordering {
		itemID, err := valueobjects.NewItemIDFromString(raw)
		if err != nil {
			return nil, pkgerrors.NewInternalError("corrupt item record").WithCause(err)
		}
		rec := r.items[raw]
		items = append(items, entities.ReconstructItem(
			itemID, listID, r.userID,
			rec.title, rec.notes, rec.done,
			rec.createdAt, rec.updatedAt,
		))
		ordering = append(ordering, itemID)
	}

	return aggregates.ReconstructTodoList(
		listID, r.userID, r.title,
		items, ordering, r.version,
		r.createdAt, r.updatedAt,
	)
}

func sortListsByCreation(lists []*aggregates.TodoList) {
	for i := 1; i < len(lists); i++ {
		for j := i; j > 0 && lists[j].CreatedAt().After(lists[j-1].CreatedAt()); j-- {
			lists[j], lists[j-1] = lists[j-1], lists[j]
		}
	}
}

// UserStore is an in-memory implementation of the user repository
type UserStore struct {
	mu      sync.RWMutex
	byID    map[string]userRecord
	byEmail map[string]string // email -> userID
}

type userRecord struct {
	id           string
	email        string
	passwordHash string
	name         string
	photoURL     string
	createdAt    time.Time
	updatedAt    time.Time
}

// NewUserStore creates an empty in-memory user store
func NewUserStore() *UserStore {
	return &UserStore{
		byID:    make(map[string]userRecord),
		byEmail: make(map[string]string),
	}
}

var _ ports.UserRepository = (*UserStore)(nil)

// Save persists a user (create or update)
func (s *UserStore) Save(ctx context.Context, user *entities.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(user.Email())
	if existingID, ok := s.byEmail[email]; ok && existingID != user.ID() {
		return pkgerrors.NewConflictError("email already registered")
	}

	s.byID[user.ID()] = userRecord{
		id:           user.ID(),
		email:        email,
		passwordHash: user.PasswordHash(),
		name:         user.Name(),
		photoURL:     user.PhotoURL(),
		createdAt:    user.CreatedAt(),
		updatedAt:    user.UpdatedAt(),
	}
	s.byEmail[email] = user.ID()
	return nil
}

// GetByID retrieves a user by ID
func (s *UserStore) GetByID(ctx context.Context, id string) (*entities.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.byID[id]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("user")
	}
	return record.toEntity(), nil
}

// GetByEmail retrieves a user by email address
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("user")
	}
	record := s.byID[id]
	return record.toEntity(), nil
}

// Delete removes a user
func (s *UserStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.byID[id]
	if !ok {
		return pkgerrors.NewNotFoundError("user")
	}
	delete(s.byEmail, record.email)
	delete(s.byID, id)
	return nil
}

func (r userRecord) toEntity() *entities.User {
	return entities.ReconstructUser(
		r.id, r.email, r.passwordHash, r.name, r.photoURL,
		r.createdAt, r.updatedAt,
	)
}
