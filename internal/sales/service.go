package sales

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carsales/internal/catalog"
)

// ReservationWindow is the fixed hold during which a car is provisionally
// committed to one buyer.
const ReservationWindow = 15 * time.Minute

// ErrCarNotFound is returned when the referenced car is not in the replica.
var ErrCarNotFound = errors.New("car not found in sales service")

// ErrAlreadySold is returned when reserving a car whose sale is already paid.
var ErrAlreadySold = errors.New("car already sold")

// ErrAlreadyReserved is returned when reserving a car with a live reservation.
var ErrAlreadyReserved = errors.New("car already reserved")

// ErrInvalidOutcome is returned for webhook outcomes other than PAID or CANCELED.
var ErrInvalidOutcome = errors.New("invalid payment outcome (use PAID or CANCELED)")

// Notifier is the outbound port informing Core that a car has been sold.
// Implementations must not block the caller; delivery is best-effort.
type Notifier interface {
	NotifySold(carID int64, buyerCPF string, soldAt time.Time, paymentCode string)
}

type noopNotifier struct{}

func (noopNotifier) NotifySold(int64, string, time.Time, string) {}

// Atomic commits a function's ledger and catalog writes as one unit of work.
// The Postgres runner wraps them in a transaction; the in-memory stores have
// no transactions, so the service compensates by hand when a write fails.
type Atomic interface {
	RunAtomic(ctx context.Context, fn func(ctx context.Context) error) error
}

type nopAtomic struct{}

func (nopAtomic) RunAtomic(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// PurchaseResponse is returned to the storefront after a successful reservation.
type PurchaseResponse struct {
	SaleID        int64     `json:"saleId"`
	CarID         int64     `json:"carId"`
	PaymentCode   string    `json:"paymentCode"`
	ReservedUntil time.Time `json:"reservedUntil"`
}

// Service runs the reservation/payment state machine on a Ledger and the
// catalog replica.
type Service struct {
	ledger   Ledger
	catalog  catalog.Storage
	notifier Notifier
	atomic   Atomic
	locks    *carLocks
	logger   *zap.Logger
	window   time.Duration
	now      func() time.Time
}

// NewService creates a new Service. A nil atomic runs writes directly, which
// fits the in-memory stores.
func NewService(ledger Ledger, cat catalog.Storage, notifier Notifier, atomic Atomic, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if atomic == nil {
		atomic = nopAtomic{}
	}
	return &Service{
		ledger:   ledger,
		catalog:  cat,
		notifier: notifier,
		atomic:   atomic,
		locks:    newCarLocks(),
		logger:   logger,
		window:   ReservationWindow,
		now:      time.Now,
	}
}

// Reserve starts a purchase attempt for a car. It locks the car's sale row,
// rejects live reservations and finished sales, and otherwise starts a fresh
// reservation cycle with a new payment code. The car is soft-held (sold=true
// in the replica) for the duration of the window.
func (s *Service) Reserve(ctx context.Context, carID int64) (*PurchaseResponse, error) {
	// Exclusive per-car critical section: held from the car read through the
	// persisted write, so concurrent attempts are strictly serialized and the
	// snapshotted price cannot be staled by a sync landing mid-flight.
	unlock := s.locks.Lock(carID)
	defer unlock()

	car, err := s.catalog.Get(ctx, carID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, ErrCarNotFound
		}
		return nil, fmt.Errorf("failed to load car: %w", err)
	}

	sale, err := s.ledger.FindByCar(ctx, carID)
	if errors.Is(err, ErrSaleNotFound) {
		sale = &Sale{
			CarID:       carID,
			Status:      StatusAvailable,
			LockedPrice: car.Price,
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to load sale: %w", err)
	}

	now := s.now()
	if sale.Status == StatusPaid {
		return nil, ErrAlreadySold
	}
	if sale.Status == StatusReserved && sale.ReservedUntil != nil && sale.ReservedUntil.After(now) {
		return nil, ErrAlreadyReserved
	}

	// AVAILABLE, CANCELED or lapsed RESERVED: start a new cycle. The price is
	// re-snapshotted and the previous payment code is discarded for good.
	until := now.Add(s.window)
	sale.Status = StatusReserved
	sale.LockedPrice = car.Price
	sale.ReservedUntil = &until
	sale.PaymentCode = uuid.NewString()

	// Soft hold and ledger row land together or not at all.
	wasHeld := car.Sold
	err = s.atomic.RunAtomic(ctx, func(ctx context.Context) error {
		if err := s.catalog.SetSold(ctx, carID, true); err != nil {
			return fmt.Errorf("failed to soft-hold car: %w", err)
		}
		if err := s.ledger.Save(ctx, sale); err != nil {
			return fmt.Errorf("failed to save reservation: %w", err)
		}
		return nil
	})
	if err != nil {
		// A transactional runner has already rolled the hold back; the
		// in-memory stores need it restored by hand.
		if undoErr := s.catalog.SetSold(ctx, carID, wasHeld); undoErr != nil && !errors.Is(undoErr, catalog.ErrNotFound) {
			s.logger.Error("failed to restore sold flag after aborted reservation",
				zap.Int64("car_id", carID), zap.Error(undoErr))
		}
		s.logger.Error("failed to reserve car", zap.Int64("car_id", carID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("car reserved",
		zap.Int64("car_id", carID),
		zap.Int64("sale_id", sale.ID),
		zap.Time("reserved_until", until),
	)

	return &PurchaseResponse{
		SaleID:        sale.ID,
		CarID:         sale.CarID,
		PaymentCode:   sale.PaymentCode,
		ReservedUntil: until,
	}, nil
}

// HandlePaymentOutcome applies the gateway's authoritative outcome for the
// sale holding the given payment code. Replays of an already-applied outcome
// are successes with no further mutation and no notification. The local
// reservation window is deliberately not re-checked here: the gateway's
// report is the truth source, not the local clock.
func (s *Service) HandlePaymentOutcome(ctx context.Context, paymentCode, outcome, buyerCPF string, eventAt *time.Time) error {
	st := Status(strings.ToUpper(strings.TrimSpace(outcome)))

	sale, err := s.ledger.FindByPaymentCode(ctx, paymentCode)
	if err != nil {
		if errors.Is(err, ErrSaleNotFound) {
			return fmt.Errorf("%w: unknown payment code", ErrSaleNotFound)
		}
		return fmt.Errorf("failed to load sale: %w", err)
	}

	car, err := s.catalog.Get(ctx, sale.CarID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return ErrCarNotFound
		}
		return fmt.Errorf("failed to load car: %w", err)
	}

	// Idempotence guard: replay-safe, no mutation, no notification.
	if (sale.Status == StatusPaid && st == StatusPaid) ||
		(sale.Status == StatusCanceled && st == StatusCanceled) {
		s.logger.Info("webhook replay ignored",
			zap.Int64("sale_id", sale.ID),
			zap.String("status", string(st)),
		)
		return nil
	}

	switch st {
	case StatusPaid:
		soldAt := s.now()
		if eventAt != nil {
			soldAt = *eventAt
		}
		sale.Status = StatusPaid
		sale.BuyerCPF = buyerCPF
		sale.SoldAt = &soldAt
		sale.ReservedUntil = nil

		if err := s.ledger.Save(ctx, sale); err != nil {
			return fmt.Errorf("failed to save paid sale: %w", err)
		}

		// Fire-and-forget; a notification failure never rolls back the sale.
		s.notifier.NotifySold(sale.CarID, sale.BuyerCPF, soldAt, sale.PaymentCode)

		s.logger.Info("sale paid",
			zap.Int64("sale_id", sale.ID),
			zap.Int64("car_id", sale.CarID),
			zap.Time("sold_at", soldAt),
		)
		return nil

	case StatusCanceled:
		sale.Status = StatusCanceled
		sale.ReservedUntil = nil

		// The hold release and the cancellation row commit together.
		wasHeld := car.Sold
		err := s.atomic.RunAtomic(ctx, func(ctx context.Context) error {
			if err := s.catalog.SetSold(ctx, car.ID, false); err != nil {
				return fmt.Errorf("failed to release car: %w", err)
			}
			if err := s.ledger.Save(ctx, sale); err != nil {
				return fmt.Errorf("failed to save canceled sale: %w", err)
			}
			return nil
		})
		if err != nil {
			if undoErr := s.catalog.SetSold(ctx, car.ID, wasHeld); undoErr != nil && !errors.Is(undoErr, catalog.ErrNotFound) {
				s.logger.Error("failed to restore sold flag after aborted cancellation",
					zap.Int64("car_id", car.ID), zap.Error(undoErr))
			}
			return err
		}

		s.logger.Info("sale canceled",
			zap.Int64("sale_id", sale.ID),
			zap.Int64("car_id", sale.CarID),
		)
		return nil

	default:
		return fmt.Errorf("%w: %q", ErrInvalidOutcome, outcome)
	}
}

// ListAvailable returns unsold cars ordered by ascending price.
func (s *Service) ListAvailable(ctx context.Context) ([]*catalog.Car, error) {
	return s.catalog.ListBySold(ctx, false)
}

// ListSold returns sold (or soft-held) cars ordered by ascending price.
func (s *Service) ListSold(ctx context.Context) ([]*catalog.Car, error) {
	return s.catalog.ListBySold(ctx, true)
}

// ListReserved returns the cars with a RESERVED sale, ordered by ascending
// locked price.
func (s *Service) ListReserved(ctx context.Context) ([]*catalog.Car, error) {
	reserved, err := s.ledger.ListByStatus(ctx, StatusReserved)
	if err != nil {
		return nil, fmt.Errorf("failed to list reserved sales: %w", err)
	}

	cars := make([]*catalog.Car, 0, len(reserved))
	for _, sale := range reserved {
		car, err := s.catalog.Get(ctx, sale.CarID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				s.logger.Warn("reserved sale references missing car", zap.Int64("car_id", sale.CarID))
				continue
			}
			return nil, fmt.Errorf("failed to load car: %w", err)
		}
		cars = append(cars, car)
	}
	return cars, nil
}
