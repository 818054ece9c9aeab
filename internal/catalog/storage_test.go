package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCar(id int64, price string) *Car {
	return &Car{
		ID:        id,
		Brand:     "Fiat",
		Model:     "Uno",
		Year:      2019,
		Color:     "red",
		Price:     decimal.RequireFromString(price),
		UpdatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestLocalStorage_UpsertAndGet(t *testing.T) {
	s := NewLocalStorage()
	require.NoError(t, s.Upsert(context.Background(), testCar(1, "30000.00")))

	car, err := s.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Fiat", car.Brand)
	assert.True(t, car.Price.Equal(decimal.RequireFromString("30000.00")))

	_, err = s.Get(context.Background(), 2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStorage_UpsertOverwrites(t *testing.T) {
	s := NewLocalStorage()
	require.NoError(t, s.Upsert(context.Background(), testCar(1, "30000.00")))
	require.NoError(t, s.SetSold(context.Background(), 1, true))

	replacement := testCar(1, "28000.00")
	replacement.Color = "blue"
	require.NoError(t, s.Upsert(context.Background(), replacement))

	car, err := s.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "blue", car.Color)
	assert.False(t, car.Sold, "upsert overwrites the whole record")
	assert.True(t, car.Price.Equal(decimal.RequireFromString("28000.00")))
}

func TestLocalStorage_ListBySoldOrdering(t *testing.T) {
	s := NewLocalStorage()
	require.NoError(t, s.Upsert(context.Background(), testCar(1, "90000.00")))
	require.NoError(t, s.Upsert(context.Background(), testCar(2, "40000.00")))
	require.NoError(t, s.Upsert(context.Background(), testCar(3, "65000.50")))
	require.NoError(t, s.SetSold(context.Background(), 3, true))

	available, err := s.ListBySold(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, available, 2)
	assert.Equal(t, int64(2), available[0].ID, "cheapest first")
	assert.Equal(t, int64(1), available[1].ID)

	sold, err := s.ListBySold(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, sold, 1)
	assert.Equal(t, int64(3), sold[0].ID)
}

func TestLocalStorage_SetSoldNotFound(t *testing.T) {
	s := NewLocalStorage()
	err := s.SetSold(context.Background(), 7, true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStorage_ReturnsCopies(t *testing.T) {
	s := NewLocalStorage()
	require.NoError(t, s.Upsert(context.Background(), testCar(1, "30000.00")))

	car, err := s.Get(context.Background(), 1)
	require.NoError(t, err)
	car.Brand = "mutated"

	stored, err := s.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Fiat", stored.Brand)
}
