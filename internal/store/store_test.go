package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
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

func insertCar(ctx context.Context, db DB, id int64) error {
	_, err := db.Exec(ctx, `
		INSERT INTO car_view (id, brand, model, car_year, color, price, sold, updated_at)
		VALUES ($1, 'Tx', 'Test', 2024, 'white', 1.00, false, $2)`,
		id, time.Now().UTC())
	return err
}

func TestPgxRunner_CommitsOnSuccess(t *testing.T) {
	pool := getPool(t)
	defer pool.Close()

	ctx := context.Background()
	id := time.Now().UnixNano()
	defer pool.Exec(ctx, `DELETE FROM car_view WHERE id = $1`, id)

	runner := NewPgxRunner(pool)
	err := runner.RunAtomic(ctx, func(ctx context.Context) error {
		return insertCar(ctx, From(ctx, pool), id)
	})
	require.NoError(t, err)

	var got int64
	require.NoError(t, pool.QueryRow(ctx, `SELECT id FROM car_view WHERE id = $1`, id).Scan(&got))
	assert.Equal(t, id, got)
}

func TestPgxRunner_RollsBackOnError(t *testing.T) {
	pool := getPool(t)
	defer pool.Close()

	ctx := context.Background()
	id := time.Now().UnixNano()
	defer pool.Exec(ctx, `DELETE FROM car_view WHERE id = $1`, id)

	boom := errors.New("boom")
	runner := NewPgxRunner(pool)
	err := runner.RunAtomic(ctx, func(ctx context.Context) error {
		if err := insertCar(ctx, From(ctx, pool), id); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var got int64
	err = pool.QueryRow(ctx, `SELECT id FROM car_view WHERE id = $1`, id).Scan(&got)
	assert.ErrorIs(t, err, pgx.ErrNoRows, "the insert must have been rolled back")
}
