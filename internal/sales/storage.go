package sales

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrSaleNotFound is returned when no sale matches the given car or payment code.
var ErrSaleNotFound = errors.New("sale not found")

// ErrVersionConflict is returned by Save when the sale's version no longer
// matches the stored row, meaning a concurrent write won the race.
var ErrVersionConflict = errors.New("sale version conflict")

// Ledger is the main interface for the sale ledger storage layer.
type Ledger interface {
	FindByCar(ctx context.Context, carID int64) (*Sale, error)
	FindByPaymentCode(ctx context.Context, code string) (*Sale, error)
	// Save persists the full row. New sales (ID zero) get a ledger-assigned ID
	// and version 1; existing sales are compared-and-incremented on Version.
	Save(ctx context.Context, sale *Sale) error
	// ListByStatus returns sales in the given status, ordered by ascending locked price.
	ListByStatus(ctx context.Context, status Status) ([]*Sale, error)
}

// LocalLedger provides an in-memory implementation of the sale ledger.
type LocalLedger struct {
	mu     sync.RWMutex
	byCar  map[int64]*Sale
	byCode map[string]int64
	nextID int64
}

// NewLocalLedger instantiates a new LocalLedger with empty indexes.
func NewLocalLedger() *LocalLedger {
	return &LocalLedger{
		byCar:  map[int64]*Sale{},
		byCode: map[string]int64{},
	}
}

// FindByCar retrieves the sale row for a car. Returns ErrSaleNotFound if absent.
func (l *LocalLedger) FindByCar(_ context.Context, carID int64) (*Sale, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.byCar[carID]
	if !ok {
		return nil, ErrSaleNotFound
	}
	out := *s
	return &out, nil
}

// FindByPaymentCode retrieves the sale holding the given payment code.
func (l *LocalLedger) FindByPaymentCode(_ context.Context, code string) (*Sale, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	carID, ok := l.byCode[code]
	if !ok {
		return nil, ErrSaleNotFound
	}
	out := *l.byCar[carID]
	return &out, nil
}

// Save persists a full sale row, bumping the version counter. Returns
// ErrVersionConflict if the in-memory version does not match the stored one.
func (l *LocalLedger) Save(_ context.Context, sale *Sale) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if sale.ID == 0 {
		l.nextID++
		sale.ID = l.nextID
		sale.Version = 1
	} else {
		cur, ok := l.byCar[sale.CarID]
		if !ok || cur.ID != sale.ID {
			return ErrSaleNotFound
		}
		if cur.Version != sale.Version {
			return ErrVersionConflict
		}
		// A new reservation cycle replaces the payment code; drop the old
		// index entry so expired codes are never resolvable again.
		if cur.PaymentCode != sale.PaymentCode {
			delete(l.byCode, cur.PaymentCode)
		}
		sale.Version++
	}

	stored := *sale
	l.byCar[sale.CarID] = &stored
	if sale.PaymentCode != "" {
		l.byCode[sale.PaymentCode] = sale.CarID
	}
	return nil
}

// ListByStatus returns sales in the given status ordered by ascending locked price.
func (l *LocalLedger) ListByStatus(_ context.Context, status Status) ([]*Sale, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Sale, 0)
	for _, s := range l.byCar {
		if s.Status != status {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LockedPrice.LessThan(out[j].LockedPrice)
	})
	return out, nil
}
