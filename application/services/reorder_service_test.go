package services

import (
	"context"
	"testing"

	"dome-backend/application/ports"
	"dome-backend/domain/core/aggregates"
	"dome-backend/domain/events"
	"dome-backend/infrastructure/persistence/memory"
	pkgerrors "dome-backend/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// capturingPublisher records published events for assertions
type capturingPublisher struct {
	published []events.DomainEvent
}

var _ ports.EventPublisher = (*capturingPublisher)(nil)

func (p *capturingPublisher) Publish(ctx context.Context, evts ...events.DomainEvent) error {
	p.published = append(p.published, evts...)
	return nil
}

type reorderFixture struct {
	service   *ReorderService
	store     *memory.ListStore
	publisher *capturingPublisher
	userID    string
	listID    string
	items     []string
	version   int
}

func newReorderFixture(t *testing.T, titles ...string) *reorderFixture {
	t.Helper()
	store := memory.NewListStore()
	publisher := &capturingPublisher{}
	service := NewReorderService(store, publisher, zap.NewNop())

	list, err := aggregates.NewTodoList("user-1", "Groceries")
	require.NoError(t, err)
	items := make([]string, 0, len(titles))
	for _, title := range titles {
		item, err := list.AddItem(title)
		require.NoError(t, err)
		items = append(items, item.ID().String())
	}
	require.NoError(t, store.Save(context.Background(), list))

	return &reorderFixture{
		service:   service,
		store:     store,
		publisher: publisher,
		userID:    "user-1",
		listID:    list.ID().String(),
		items:     items,
		version:   list.Version(),
	}
}

func TestGetOrder(t *testing.T) {
	f := newReorderFixture(t, "a", "b", "c")

	snapshot, err := f.service.GetOrder(context.Background(), f.userID, f.listID)

	require.NoError(t, err)
	assert.Equal(t, f.version, snapshot.Version)
	assert.Equal(t, f.items, snapshot.Items)
}

func TestGetOrder_NotFound(t *testing.T) {
	f := newReorderFixture(t)

	_, err := f.service.GetOrder(context.Background(), f.userID, uuid.New().String())

	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestReorder_AppliesAndBumpsVersion(t *testing.T) {
	f := newReorderFixture(t, "a", "b", "c")
	proposed := []string{f.items[2], f.items[0], f.items[1]}

	snapshot, err := f.service.Reorder(context.Background(), f.userID, f.listID, f.version, proposed)

	require.NoError(t, err)
	assert.Equal(t, f.version+1, snapshot.Version)
	assert.Equal(t, proposed, snapshot.Items)

	// The new order is durable and readable
	got, err := f.service.GetOrder(context.Background(), f.userID, f.listID)
	require.NoError(t, err)
	assert.Equal(t, proposed, got.Items)

	// A reordered event went out
	require.NotEmpty(t, f.publisher.published)
	assert.Equal(t, "list.reordered", f.publisher.published[len(f.publisher.published)-1].GetEventType())
}

func TestReorder_StaleBaseVersionConflicts(t *testing.T) {
	f := newReorderFixture(t, "a", "b", "c")
	ctx := context.Background()

	// A first writer wins
	winning := []string{f.items[2], f.items[0], f.items[1]}
	_, err := f.service.Reorder(ctx, f.userID, f.listID, f.version, winning)
	require.NoError(t, err)

	// A second writer holding the old base version loses
	_, err = f.service.Reorder(ctx, f.userID, f.listID, f.version, []string{f.items[1], f.items[0], f.items[2]})

	require.True(t, pkgerrors.IsConflict(err))
	appErr := pkgerrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, f.version+1, appErr.Details["version"])
	assert.Equal(t, winning, appErr.Details["items"])
}

func TestReorder_IdenticalOrderConfirmsWithoutBump(t *testing.T) {
	f := newReorderFixture(t, "a", "b")

	snapshot, err := f.service.Reorder(context.Background(), f.userID, f.listID, f.version, f.items)

	require.NoError(t, err)
	assert.Equal(t, f.version, snapshot.Version)
	assert.Equal(t, f.items, snapshot.Items)
	assert.Empty(t, f.publisher.published)
}

func TestReorder_RejectsNonPermutations(t *testing.T) {
	f := newReorderFixture(t, "a", "b", "c")
	ctx := context.Background()

	tests := []struct {
		name     string
		proposed []string
	}{
		{"missing item", []string{f.items[0], f.items[1]}},
		{"duplicate item", []string{f.items[0], f.items[1], f.items[1]}},
		{"unknown item", []string{f.items[0], f.items[1], uuid.New().String()}},
		{"empty", nil},
		{"malformed id", []string{f.items[0], f.items[1], "not-a-uuid"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Reorder(ctx, f.userID, f.listID, f.version, tt.proposed)

			assert.True(t, pkgerrors.IsInvalidOrder(err), "expected InvalidOrder, got %v", err)

			// The list is untouched
			got, getErr := f.service.GetOrder(ctx, f.userID, f.listID)
			require.NoError(t, getErr)
			assert.Equal(t, f.items, got.Items)
			assert.Equal(t, f.version, got.Version)
		})
	}
}

func TestReorder_ValidationErrors(t *testing.T) {
	f := newReorderFixture(t, "a")
	ctx := context.Background()

	_, err := f.service.Reorder(ctx, f.userID, "not-a-uuid", f.version, f.items)
	assert.True(t, pkgerrors.IsValidation(err))

	_, err = f.service.Reorder(ctx, f.userID, f.listID, 0, f.items)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestReorder_UnknownListNotFound(t *testing.T) {
	f := newReorderFixture(t, "a")

	_, err := f.service.Reorder(context.Background(), f.userID, uuid.New().String(), 1, f.items)

	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestReorder_OtherUsersCannotTouchTheList(t *testing.T) {
	f := newReorderFixture(t, "a", "b")

	_, err := f.service.Reorder(context.Background(), "user-2", f.listID, f.version, f.items)

	assert.True(t, pkgerrors.IsNotFound(err))
}
