package models

import "time"

const (
	TransactionTypePurchase   = "purchase"
	TransactionTypeUsage      = "usage"
	TransactionTypeRefund     = "refund"
	TransactionTypeBonus      = "bonus"
	TransactionTypeExpiration = "expiration"
)

const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
	TransactionStatusCancelled = "cancelled"
)

// CreditTransaction is an append-only ledger entry. Credits is signed:
// positive entries credit the balance, negative entries debit it. Entries are
// never edited after reaching a terminal status; corrections are new entries.
type CreditTransaction struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"user_id"`
	Type   string `json:"type"`
	Status string `json:"status"`

	Credits int     `json:"credits"`
	Amount  float64 `json:"amount"`

	PackageID *int64  `json:"package_id,omitempty"`
	BookingID *int64  `json:"booking_id,omitempty"`
	PaymentID *string `json:"payment_id,omitempty"`

	Description string  `json:"description"`
	Notes       *string `json:"notes,omitempty"`

	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type CreditPackage struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Credits      int       `json:"credits"`
	Price        float64   `json:"price"`
	Discount     float64   `json:"discount"`
	IsActive     bool      `json:"is_active"`
	IsPopular    bool      `json:"is_popular"`
	ValidityDays *int      `json:"validity_days,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
