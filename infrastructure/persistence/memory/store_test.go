package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"dome-backend/domain/core/aggregates"
	"dome-backend/domain/core/valueobjects"
	pkgerrors "dome-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedList(t *testing.T, store *ListStore, userID string, titles ...string) *aggregates.TodoList {
	t.Helper()
	list, err := aggregates.NewTodoList(userID, "Groceries")
	require.NoError(t, err)
	for _, title := range titles {
		_, err := list.AddItem(title)
		require.NoError(t, err)
	}
	require.NoError(t, store.Save(context.Background(), list))
	return list
}

func TestListStore_SaveAndGet(t *testing.T) {
	store := NewListStore()
	ctx := context.Background()
	list := seedList(t, store, "user-1", "milk", "eggs")

	got, err := store.GetByID(ctx, "user-1", list.ID())

	require.NoError(t, err)
	assert.Equal(t, list.ID(), got.ID())
	assert.Equal(t, list.Order(), got.Order())
	assert.Equal(t, list.Version(), got.Version())
}

func TestListStore_SaveDuplicate(t *testing.T) {
	store := NewListStore()
	list := seedList(t, store, "user-1")

	err := store.Save(context.Background(), list)

	assert.True(t, pkgerrors.IsConflict(err))
}

func TestListStore_GetByID_NotFound(t *testing.T) {
	store := NewListStore()

	_, err := store.GetByID(context.Background(), "user-1", valueobjects.NewListID())

	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestListStore_GetByID_IsolatedByUser(t *testing.T) {
	store := NewListStore()
	list := seedList(t, store, "user-1")

	_, err := store.GetByID(context.Background(), "user-2", list.ID())

	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestListStore_ReturnedAggregateDoesNotAliasStore(t *testing.T) {
	store := NewListStore()
	ctx := context.Background()
	list := seedList(t, store, "user-1", "a", "b")

	got, err := store.GetByID(ctx, "user-1", list.ID())
	require.NoError(t, err)
	require.NoError(t, got.Rename("Mutated locally"))

	again, err := store.GetByID(ctx, "user-1", list.ID())
	require.NoError(t, err)
	assert.Equal(t, "Groceries", again.Title())
}

func TestListStore_Update_CAS(t *testing.T) {
	store := NewListStore()
	ctx := context.Background()
	list := seedList(t, store, "user-1", "a", "b", "c")

	loaded, err := store.GetByID(ctx, "user-1", list.ID())
	require.NoError(t, err)
	base := loaded.Version()

	order := loaded.Order()
	require.NoError(t, loaded.Reorder([]valueobjects.ItemID{order[2], order[0], order[1]}))
	require.NoError(t, store.Update(ctx, loaded, base))

	// A second writer holding the old version must lose.
	staleErr := store.Update(ctx, loaded, base)
	assert.True(t, pkgerrors.IsConflict(staleErr))

	got, err := store.GetByID(ctx, "user-1", list.ID())
	require.NoError(t, err)
	assert.Equal(t, base+1, got.Version())
	assert.Equal(t, []valueobjects.ItemID{order[2], order[0], order[1]}, got.Order())
}

func TestListStore_Update_ConcurrentWritersExactlyOneWins(t *testing.T) {
	store := NewListStore()
	ctx := context.Background()
	list := seedList(t, store, "user-1", "a", "b")
	base := list.Version()

	const writers = 16
	var wg sync.WaitGroup
	results := make(chan error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			loaded, err := store.GetByID(ctx, "user-1", list.ID())
			if err != nil {
				results <- err
				return
			}
			order := loaded.Order()
			if err := loaded.Reorder([]valueobjects.ItemID{order[1], order[0]}); err != nil {
				results <- err
				return
			}
			results <- store.Update(ctx, loaded, base)
		}()
	}
	wg.Wait()
	close(results)

	wins, conflicts := 0, 0
	for err := range results {
		if err == nil {
			wins++
		} else if pkgerrors.IsConflict(err) {
			conflicts++
		} else {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, writers-1, conflicts)

	got, err := store.GetByID(ctx, "user-1", list.ID())
	require.NoError(t, err)
	assert.Equal(t, base+1, got.Version())
}

func TestListStore_GetByUserID_NewestFirst(t *testing.T) {
	store := NewListStore()
	ctx := context.Background()
	first := seedList(t, store, "user-1")
	time.Sleep(time.Millisecond)
	second := seedList(t, store, "user-1")

	lists, err := store.GetByUserID(ctx, "user-1")

	require.NoError(t, err)
	require.Len(t, lists, 2)
	assert.Equal(t, second.ID(), lists[0].ID())
	assert.Equal(t, first.ID(), lists[1].ID())
}

func TestListStore_Delete(t *testing.T) {
	store := NewListStore()
	ctx := context.Background()
	list := seedList(t, store, "user-1")

	require.NoError(t, store.Delete(ctx, "user-1", list.ID()))

	_, err := store.GetByID(ctx, "user-1", list.ID())
	assert.True(t, pkgerrors.IsNotFound(err))
	assert.True(t, pkgerrors.IsNotFound(store.Delete(ctx, "user-1", list.ID())))
}
