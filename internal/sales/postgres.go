package sales

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"carsales/internal/store"
)

// PostgresLedger implements Ledger backed by the sales table.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgresLedger creates a new PostgresLedger on top of a pgx pool.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

const saleColumns = `id, car_id, status, locked_price::text, reserved_until, payment_code, buyer_cpf, sold_at, version`

func (p *PostgresLedger) FindByCar(ctx context.Context, carID int64) (*Sale, error) {
	row := store.From(ctx, p.db).QueryRow(ctx,
		`SELECT `+saleColumns+` FROM sales WHERE car_id = $1`, carID)
	return scanSale(row)
}

func (p *PostgresLedger) FindByPaymentCode(ctx context.Context, code string) (*Sale, error) {
	row := store.From(ctx, p.db).QueryRow(ctx,
		`SELECT `+saleColumns+` FROM sales WHERE payment_code = $1`, code)
	return scanSale(row)
}

// Save inserts new sales and updates existing ones with a version guard:
// the UPDATE only matches when the stored version equals the in-memory one,
// so a lost update surfaces as ErrVersionConflict instead of a silent overwrite.
func (p *PostgresLedger) Save(ctx context.Context, sale *Sale) error {
	if sale.ID == 0 {
		err := store.From(ctx, p.db).QueryRow(ctx, `
			INSERT INTO sales (car_id, status, locked_price, reserved_until, payment_code, buyer_cpf, sold_at, version)
			VALUES ($1, $2, $3::numeric, $4, $5, $6, $7, 1)
			RETURNING id`,
			sale.CarID, sale.Status, sale.LockedPrice.String(),
			sale.ReservedUntil, sale.PaymentCode, sale.BuyerCPF, sale.SoldAt,
		).Scan(&sale.ID)
		if err != nil {
			return fmt.Errorf("insert sale: %w", err)
		}
		sale.Version = 1
		return nil
	}

	tag, err := store.From(ctx, p.db).Exec(ctx, `
		UPDATE sales
		SET status = $1, locked_price = $2::numeric, reserved_until = $3,
			payment_code = $4, buyer_cpf = $5, sold_at = $6, version = version + 1
		WHERE id = $7 AND version = $8`,
		sale.Status, sale.LockedPrice.String(), sale.ReservedUntil,
		sale.PaymentCode, sale.BuyerCPF, sale.SoldAt,
		sale.ID, sale.Version,
	)
	if err != nil {
		return fmt.Errorf("update sale: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	sale.Version++
	return nil
}

func (p *PostgresLedger) ListByStatus(ctx context.Context, status Status) ([]*Sale, error) {
	rows, err := store.From(ctx, p.db).Query(ctx,
		`SELECT `+saleColumns+` FROM sales WHERE status = $1 ORDER BY locked_price ASC`, status)
	if err != nil {
		return nil, fmt.Errorf("query sales: %w", err)
	}
	defer rows.Close()

	out := make([]*Sale, 0)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sale)
	}
	return out, rows.Err()
}

func scanSale(row pgx.Row) (*Sale, error) {
	var (
		sale  Sale
		price string
	)
	err := row.Scan(&sale.ID, &sale.CarID, &sale.Status, &price,
		&sale.ReservedUntil, &sale.PaymentCode, &sale.BuyerCPF, &sale.SoldAt, &sale.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSaleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan sale: %w", err)
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse locked price %q: %w", price, err)
	}
	sale.LockedPrice = d
	return &sale, nil
}
