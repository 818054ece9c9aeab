package sales

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a sale process.
type Status string

// A sale moves AVAILABLE -> RESERVED -> PAID, or RESERVED -> CANCELED.
// CANCELED (and an expired RESERVED) can re-enter a fresh reservation cycle;
// PAID is terminal.
const (
	StatusAvailable Status = "AVAILABLE"
	StatusReserved  Status = "RESERVED"
	StatusPaid      Status = "PAID"
	StatusCanceled  Status = "CANCELED"
)

// Sale is the authoritative record of purchase attempts for one car.
// At most one row exists per car; it is never deleted, only transitioned.
type Sale struct {
	ID          int64           `json:"id"`
	CarID       int64           `json:"carId"`
	Status      Status          `json:"status"`
	LockedPrice decimal.Decimal `json:"lockedPrice"`
	// ReservedUntil is set only while RESERVED. Expiry is checked lazily at
	// the next reservation attempt; nothing sweeps expired reservations.
	ReservedUntil *time.Time `json:"reservedUntil,omitempty"`
	// PaymentCode correlates the payment gateway's webhook with this sale.
	// A fresh code is minted on every transition into RESERVED.
	PaymentCode string     `json:"paymentCode,omitempty"`
	BuyerCPF    string     `json:"buyerCpf,omitempty"`
	SoldAt      *time.Time `json:"soldAt,omitempty"`
	// Version detects lost updates: Save fails unless it matches the stored row.
	Version int64 `json:"version"`
}
