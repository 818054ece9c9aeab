package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestSyncService_UpsertStampsLocally(t *testing.T) {
	s := NewLocalStorage()
	svc := NewSyncService(s, zaptest.NewLogger(t))

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	// Incoming payload claims sold=true and its own timestamp; both are ignored.
	car, err := svc.Upsert(context.Background(), Car{
		ID:        1,
		Brand:     "VW",
		Model:     "Golf",
		Year:      2022,
		Color:     "white",
		Price:     decimal.RequireFromString("120000.00"),
		Sold:      true,
		UpdatedAt: now.Add(-48 * time.Hour),
	})
	require.NoError(t, err)
	assert.False(t, car.Sold)
	assert.Equal(t, now, car.UpdatedAt)

	stored, err := s.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, stored.Sold)
	assert.Equal(t, now, stored.UpdatedAt)
}

func TestSyncService_UpsertIsReplaySafe(t *testing.T) {
	s := NewLocalStorage()
	svc := NewSyncService(s, zaptest.NewLogger(t))

	payload := Car{ID: 1, Brand: "VW", Model: "Golf", Year: 2022, Color: "white",
		Price: decimal.RequireFromString("120000.00")}

	_, err := svc.Upsert(context.Background(), payload)
	require.NoError(t, err)
	first, err := s.Get(context.Background(), 1)
	require.NoError(t, err)

	_, err = svc.Upsert(context.Background(), payload)
	require.NoError(t, err)
	second, err := s.Get(context.Background(), 1)
	require.NoError(t, err)

	first.UpdatedAt = second.UpdatedAt
	assert.Equal(t, first, second)
}
