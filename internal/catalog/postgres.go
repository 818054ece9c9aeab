package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"carsales/internal/store"
)

// PostgresStorage implements Storage backed by the car_view table.
type PostgresStorage struct {
	db *pgxpool.Pool
}

// NewPostgresStorage creates a new PostgresStorage on top of a pgx pool.
func NewPostgresStorage(db *pgxpool.Pool) *PostgresStorage {
	return &PostgresStorage{db: db}
}

func (p *PostgresStorage) Upsert(ctx context.Context, car *Car) error {
	_, err := store.From(ctx, p.db).Exec(ctx, `
		INSERT INTO car_view (id, brand, model, car_year, color, price, sold, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			brand = EXCLUDED.brand,
			model = EXCLUDED.model,
			car_year = EXCLUDED.car_year,
			color = EXCLUDED.color,
			price = EXCLUDED.price,
			sold = EXCLUDED.sold,
			updated_at = EXCLUDED.updated_at`,
		car.ID, car.Brand, car.Model, car.Year, car.Color,
		car.Price.String(), car.Sold, car.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert car: %w", err)
	}
	return nil
}

func (p *PostgresStorage) Get(ctx context.Context, id int64) (*Car, error) {
	row := store.From(ctx, p.db).QueryRow(ctx, `
		SELECT id, brand, model, car_year, color, price::text, sold, updated_at
		FROM car_view WHERE id = $1`, id)

	car, err := scanCar(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query car: %w", err)
	}
	return car, nil
}

func (p *PostgresStorage) ListBySold(ctx context.Context, sold bool) ([]*Car, error) {
	rows, err := store.From(ctx, p.db).Query(ctx, `
		SELECT id, brand, model, car_year, color, price::text, sold, updated_at
		FROM car_view WHERE sold = $1
		ORDER BY price ASC`, sold)
	if err != nil {
		return nil, fmt.Errorf("query cars: %w", err)
	}
	defer rows.Close()

	cars := make([]*Car, 0)
	for rows.Next() {
		car, err := scanCar(rows)
		if err != nil {
			return nil, fmt.Errorf("scan car: %w", err)
		}
		cars = append(cars, car)
	}
	return cars, rows.Err()
}

func (p *PostgresStorage) SetSold(ctx context.Context, id int64, sold bool) error {
	tag, err := store.From(ctx, p.db).Exec(ctx, `UPDATE car_view SET sold = $1 WHERE id = $2`, sold, id)
	if err != nil {
		return fmt.Errorf("update sold flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanCar(row pgx.Row) (*Car, error) {
	var (
		car       Car
		price     string
		updatedAt time.Time
	)
	if err := row.Scan(&car.ID, &car.Brand, &car.Model, &car.Year, &car.Color, &price, &car.Sold, &updatedAt); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", price, err)
	}
	car.Price = d
	car.UpdatedAt = updatedAt
	return &car, nil
}
