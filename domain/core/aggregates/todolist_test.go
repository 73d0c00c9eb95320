package aggregates

import (
	"testing"

	"dome-backend/domain/core/valueobjects"
	pkgerrors "dome-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newListWithItems(t *testing.T, titles ...string) (*TodoList, []valueobjects.ItemID) {
	t.Helper()
	list, err := NewTodoList("user-1", "Groceries")
	require.NoError(t, err)

	ids := make([]valueobjects.ItemID, 0, len(titles))
	for _, title := range titles {
		item, err := list.AddItem(title)
		require.NoError(t, err)
		ids = append(ids, item.ID())
	}
	list.MarkEventsAsCommitted()
	return list, ids
}

func TestNewTodoList(t *testing.T) {
	list, err := NewTodoList("user-1", "Groceries")

	require.NoError(t, err)
	assert.Equal(t, "Groceries", list.Title())
	assert.Equal(t, 1, list.Version())
	assert.Equal(t, 0, list.Len())
	assert.Len(t, list.GetUncommittedEvents(), 1)
}

func TestNewTodoList_EmptyTitle(t *testing.T) {
	_, err := NewTodoList("user-1", "")
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestAddItem_AppendsToOrdering(t *testing.T) {
	list, ids := newListWithItems(t, "milk", "eggs", "bread")

	assert.Equal(t, ids, list.Order())
	assert.Equal(t, 4, list.Version()) // creation + three adds
}

func TestRemoveItem_ClosesGap(t *testing.T) {
	list, ids := newListWithItems(t, "milk", "eggs", "bread")

	err := list.RemoveItem(ids[1])

	require.NoError(t, err)
	assert.Equal(t, []valueobjects.ItemID{ids[0], ids[2]}, list.Order())
	assert.False(t, list.HasItem(ids[1]))
}

func TestReorder_AppliesPermutation(t *testing.T) {
	list, ids := newListWithItems(t, "a", "b", "c")
	before := list.Version()

	err := list.Reorder([]valueobjects.ItemID{ids[2], ids[0], ids[1]})

	require.NoError(t, err)
	assert.Equal(t, []valueobjects.ItemID{ids[2], ids[0], ids[1]}, list.Order())
	assert.Equal(t, before+1, list.Version())
	assert.Len(t, list.GetUncommittedEvents(), 1)
}

func TestReorder_IdenticalOrderIsNoOp(t *testing.T) {
	list, ids := newListWithItems(t, "a", "b", "c")
	before := list.Version()

	err := list.Reorder([]valueobjects.ItemID{ids[0], ids[1], ids[2]})

	require.NoError(t, err)
	assert.Equal(t, before, list.Version())
	assert.Empty(t, list.GetUncommittedEvents())
}

func TestReorder_RejectsNonPermutations(t *testing.T) {
	list, ids := newListWithItems(t, "a", "b", "c")
	stranger := valueobjects.NewItemID()

	tests := []struct {
		name     string
		proposed []valueobjects.ItemID
	}{
		{"missing item", []valueobjects.ItemID{ids[0], ids[1]}},
		{"extra item", []valueobjects.ItemID{ids[0], ids[1], ids[2], stranger}},
		{"duplicate item", []valueobjects.ItemID{ids[0], ids[1], ids[1]}},
		{"unknown item", []valueobjects.ItemID{ids[0], ids[1], stranger}},
		{"empty", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := list.Order()
			err := list.Reorder(tt.proposed)

			assert.True(t, pkgerrors.IsInvalidOrder(err), "expected InvalidOrder, got %v", err)
			assert.Equal(t, before, list.Order())
		})
	}
}

func TestSetItemDone(t *testing.T) {
	list, ids := newListWithItems(t, "a")
	before := list.Version()

	require.NoError(t, list.SetItemDone(ids[0], true))

	item, err := list.GetItem(ids[0])
	require.NoError(t, err)
	assert.True(t, item.Done())
	assert.Equal(t, before+1, list.Version(), "done toggle must bump the version")

	// Toggling to the current state is a no-op
	require.NoError(t, list.SetItemDone(ids[0], true))
	assert.Equal(t, before+1, list.Version())
}

func TestItemContentMutations_BumpVersion(t *testing.T) {
	list, ids := newListWithItems(t, "a")
	before := list.Version()

	require.NoError(t, list.RenameItem(ids[0], "renamed"))
	assert.Equal(t, before+1, list.Version(), "rename must bump the version")

	require.NoError(t, list.SetItemNotes(ids[0], "some notes"))
	assert.Equal(t, before+2, list.Version(), "notes change must bump the version")

	// Identical content is a no-op
	require.NoError(t, list.RenameItem(ids[0], "renamed"))
	require.NoError(t, list.SetItemNotes(ids[0], "some notes"))
	assert.Equal(t, before+2, list.Version())

	item, err := list.GetItem(ids[0])
	require.NoError(t, err)
	assert.Equal(t, "renamed", item.Title())
	assert.Equal(t, "some notes", item.Notes())

	unknown := valueobjects.NewItemID()
	assert.True(t, pkgerrors.IsNotFound(list.RenameItem(unknown, "x")))
	assert.True(t, pkgerrors.IsNotFound(list.SetItemNotes(unknown, "x")))
}

func TestReconstructTodoList_RejectsCorruptOrdering(t *testing.T) {
	list, ids := newListWithItems(t, "a", "b")

	items := list.Items()
	_, err := ReconstructTodoList(
		list.ID(), list.UserID(), list.Title(),
		items,
		[]valueobjects.ItemID{ids[0]}, // ordering missing an item
		list.Version(), list.CreatedAt(), list.UpdatedAt(),
	)

	assert.Error(t, err)
}
