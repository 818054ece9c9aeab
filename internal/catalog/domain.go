package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Car is a local projection of a vehicle owned by the external Core system.
// It is created and overwritten wholesale by sync events; the sale flow only
// ever toggles the Sold flag.
type Car struct {
	ID        int64           `json:"id"`
	Brand     string          `json:"brand"`
	Model     string          `json:"model"`
	Year      int             `json:"year"`
	Color     string          `json:"color"`
	Price     decimal.Decimal `json:"price"`
	Sold      bool            `json:"sold"`
	UpdatedAt time.Time       `json:"updatedAt"`
}
