package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bistro/server/internal/models"
)

func TestTables(t *testing.T) {
	f := newFixture(t, OrderConfig{})

	_, err := f.tables.CreateTable(f.ctx, TableInput{Number: 0})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.tables.CreateTable(f.ctx, TableInput{Number: 1, WaiterID: strPtr("missing")})
	assert.ErrorIs(t, err, ErrNotFound)

	t2, err := f.tables.CreateTable(f.ctx, TableInput{Number: 2, Floor: "terrace"})
	require.NoError(t, err)
	assert.Equal(t, 4, t2.Capacity)
	assert.Equal(t, models.TableAvailable, t2.Status)

	_, err = f.tables.CreateTable(f.ctx, TableInput{Number: 1, Capacity: 2})
	require.NoError(t, err)

	list, err := f.tables.ListTables(f.ctx, "")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 1, list[0].Number)

	occupied, err := f.tables.ListTables(f.ctx, models.TableOccupied)
	require.NoError(t, err)
	assert.Empty(t, occupied)

	_, err = f.tables.GetTable(f.ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWaitersAndAssignment(t *testing.T) {
	f := newFixture(t, OrderConfig{})
	table, err := f.tables.CreateTable(f.ctx, TableInput{Number: 5})
	require.NoError(t, err)

	_, err = f.tables.CreateWaiter(f.ctx, WaiterInput{Name: ""})
	assert.ErrorIs(t, err, ErrInvalidInput)

	w, err := f.tables.CreateWaiter(f.ctx, WaiterInput{Name: "Kiran", Phone: "555-0101"})
	require.NoError(t, err)
	assert.True(t, w.IsActive)

	assigned, err := f.tables.AssignWaiter(f.ctx, table.ID, &w.ID)
	require.NoError(t, err)
	require.NotNil(t, assigned.Waiter)
	assert.Equal(t, "Kiran", assigned.Waiter.Name)

	_, err = f.tables.AssignWaiter(f.ctx, table.ID, strPtr("missing"))
	assert.ErrorIs(t, err, ErrNotFound)

	cleared, err := f.tables.AssignWaiter(f.ctx, table.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, cleared.WaiterID)

	_, err = f.tables.SetWaiterActive(f.ctx, w.ID, false)
	require.NoError(t, err)
	active, err := f.tables.ListWaiters(f.ctx, true)
	require.NoError(t, err)
	assert.Empty(t, active)
	all, err := f.tables.ListWaiters(f.ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = f.tables.SetWaiterActive(f.ctx, "missing", true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOccupyAndFree(t *testing.T) {
	f := newFixture(t, OrderConfig{})
	table, err := f.tables.CreateTable(f.ctx, TableInput{Number: 9})
	require.NoError(t, err)

	_, err = f.tables.occupy(f.db, table.ID, "order-a")
	require.NoError(t, err)
	_, err = f.tables.occupy(f.db, table.ID, "order-a")
	assert.NoError(t, err, "re-occupying by the same order is a no-op")
	_, err = f.tables.occupy(f.db, table.ID, "order-b")
	assert.ErrorIs(t, err, ErrTableOccupied)

	require.NoError(t, f.tables.free(f.db, table.ID, "order-b"))
	got, err := f.tables.GetTable(f.ctx, table.ID)
	require.NoError(t, err)
	assert.True(t, got.IsOccupied(), "only the holding order frees the table")

	require.NoError(t, f.tables.free(f.db, table.ID, "order-a"))
	got, err = f.tables.GetTable(f.ctx, table.ID)
	require.NoError(t, err)
	assert.False(t, got.IsOccupied())
}
