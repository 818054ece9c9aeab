package sales

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	if err := pool.Ping(context.Background()); err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	return pool
}

func TestPostgresLedger_SaveAndFind(t *testing.T) {
	pool := getPool(t)
	defer pool.Close()

	ctx := context.Background()
	ledger := NewPostgresLedger(pool)

	carID := time.Now().UnixNano()
	code := "test-pc-" + time.Now().Format("20060102150405.000000000")
	defer pool.Exec(ctx, `DELETE FROM sales WHERE car_id = $1`, carID)

	until := time.Now().Add(15 * time.Minute).UTC().Truncate(time.Microsecond)
	sale := &Sale{
		CarID:         carID,
		Status:        StatusReserved,
		LockedPrice:   decimal.RequireFromString("80000.00"),
		ReservedUntil: &until,
		PaymentCode:   code,
	}
	require.NoError(t, ledger.Save(ctx, sale))
	assert.NotZero(t, sale.ID)
	assert.Equal(t, int64(1), sale.Version)

	found, err := ledger.FindByCar(ctx, carID)
	require.NoError(t, err)
	assert.Equal(t, sale.ID, found.ID)
	assert.Equal(t, StatusReserved, found.Status)
	assert.True(t, found.LockedPrice.Equal(sale.LockedPrice))

	byCode, err := ledger.FindByPaymentCode(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, sale.ID, byCode.ID)
}

func TestPostgresLedger_VersionConflict(t *testing.T) {
	pool := getPool(t)
	defer pool.Close()

	ctx := context.Background()
	ledger := NewPostgresLedger(pool)

	carID := time.Now().UnixNano()
	code := "test-vc-" + time.Now().Format("20060102150405.000000000")
	defer pool.Exec(ctx, `DELETE FROM sales WHERE car_id = $1`, carID)

	sale := &Sale{
		CarID:       carID,
		Status:      StatusReserved,
		LockedPrice: decimal.RequireFromString("80000.00"),
		PaymentCode: code,
	}
	require.NoError(t, ledger.Save(ctx, sale))

	stale, err := ledger.FindByCar(ctx, carID)
	require.NoError(t, err)

	sale.Status = StatusPaid
	require.NoError(t, ledger.Save(ctx, sale))
	assert.Equal(t, int64(2), sale.Version)

	stale.Status = StatusCanceled
	err = ledger.Save(ctx, stale)
	assert.ErrorIs(t, err, ErrVersionConflict)

	stored, err := ledger.FindByCar(ctx, carID)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, stored.Status)
}

func TestPostgresLedger_FindMissing(t *testing.T) {
	pool := getPool(t)
	defer pool.Close()

	ledger := NewPostgresLedger(pool)
	_, err := ledger.FindByCar(context.Background(), -1)
	assert.ErrorIs(t, err, ErrSaleNotFound)

	_, err = ledger.FindByPaymentCode(context.Background(), "definitely-missing")
	assert.ErrorIs(t, err, ErrSaleNotFound)
}
