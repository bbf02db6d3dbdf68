package models

import "time"

const (
	SubscriptionStatusActive    = "active"
	SubscriptionStatusCancelled = "cancelled"
	SubscriptionStatusExpired   = "expired"
)

const (
	SubscriptionPaymentPaid   = "paid"
	SubscriptionPaymentFailed = "failed"
)

// SubscriptionPlan is a role-scoped monthly plan. Client plans grant
// MonthlyCredits through the ledger on each billing; helper plans carry a
// CommissionPercent used by payout settlement.
type SubscriptionPlan struct {
	ID                int64     `json:"id"`
	Code              string    `json:"code"`
	Role              string    `json:"role"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	Price             float64   `json:"price"`
	MonthlyCredits    *int      `json:"monthly_credits,omitempty"`
	CommissionPercent *int      `json:"commission_percent,omitempty"`
	Features          []string  `json:"features"`
	IsActive          bool      `json:"is_active"`
	IsPopular         bool      `json:"is_popular"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Subscription is a user's membership on a plan. A user holds at most one
// non-expired subscription; a cancelled one stays usable until the end of
// the paid period and can be reactivated before then.
type Subscription struct {
	ID               int64      `json:"id"`
	UserID           int64      `json:"user_id"`
	PlanID           int64      `json:"plan_id"`
	Status           string     `json:"status"`
	AutoRenew        bool       `json:"auto_renew"`
	StartedAt        time.Time  `json:"started_at"`
	CurrentPeriodEnd time.Time  `json:"current_period_end"`
	CancelReason     *string    `json:"cancel_reason,omitempty"`
	CancelledAt      *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type SubscriptionPayment struct {
	ID             int64     `json:"id"`
	SubscriptionID *int64    `json:"subscription_id,omitempty"`
	UserID         int64     `json:"user_id"`
	Amount         float64   `json:"amount"`
	Status         string    `json:"status"`
	PaymentID      *string   `json:"payment_id,omitempty"`
	Description    string    `json:"description"`
	CreatedAt      time.Time `json:"created_at"`
}
