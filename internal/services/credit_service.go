package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/billing"
	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/metrics"
	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/models"
	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/repository"
)

type PaymentGateway interface {
	Charge(ctx context.Context, input billing.ChargeInput) (*billing.ChargeResult, error)
}

// CreditService owns the credit ledger. Every balance change is an
// append-only transaction; the cached users.credits column is updated in the
// same database transaction as the ledger insert and is never written any
// other way.
type CreditService struct {
	db          *pgxpool.Pool
	creditRepo  *repository.CreditRepository
	userRepo    *repository.UserRepository
	packageRepo *repository.PackageRepository
	gateway     PaymentGateway
	currency    string
}

func NewCreditService(
	db *pgxpool.Pool,
	creditRepo *repository.CreditRepository,
	userRepo *repository.UserRepository,
	packageRepo *repository.PackageRepository,
	gateway PaymentGateway,
	currency string,
) *CreditService {
	return &CreditService{
		db:          db,
		creditRepo:  creditRepo,
		userRepo:    userRepo,
		packageRepo: packageRepo,
		gateway:     gateway,
		currency:    currency,
	}
}

type LedgerInput struct {
	UserID      int64
	Type        string
	Credits     int // signed: positive credits, negative debits
	Amount      float64
	BookingID   *int64
	PackageID   *int64
	PaymentID   *string
	Description string
	ExpiresAt   *time.Time
}

// applyLedger appends a completed transaction and moves the cached balance
// inside the caller's database transaction, so a booking transition and its
// ledger entry commit or roll back as one unit. Debits that would overdraw
// fail with ErrInsufficientCredits before anything is written.
func applyLedger(
	ctx context.Context,
	q repository.DBTX,
	input LedgerInput,
) (*models.CreditTransaction, error) {
	if input.Credits == 0 {
		return nil, fmt.Errorf("%w: ledger entry must move a non-zero credit amount", ErrInvalidInput)
	}

	userRepo := repository.NewUserRepository(q)
	if _, err := userRepo.AdjustCredits(ctx, input.UserID, input.Credits); err != nil {
		if errors.Is(err, pgx.ErrNoRows) && input.Credits < 0 {
			metrics.InsufficientCredits.Inc()
			return nil, ErrInsufficientCredits
		}
		return nil, err
	}

	now := time.Now().UTC()
	transaction, err := repository.NewCreditRepository(q).Insert(ctx, repository.InsertTransactionInput{
		UserID:      input.UserID,
		Type:        input.Type,
		Status:      models.TransactionStatusCompleted,
		Credits:     input.Credits,
		Amount:      input.Amount,
		PackageID:   input.PackageID,
		BookingID:   input.BookingID,
		PaymentID:   input.PaymentID,
		Description: input.Description,
		ProcessedAt: &now,
		ExpiresAt:   input.ExpiresAt,
	})
	if err != nil {
		return nil, err
	}

	metrics.LedgerTransactions.WithLabelValues(input.Type).Inc()
	return transaction, nil
}

// Apply records a standalone ledger entry (bonus grants, manual
// adjustments). Booking debits and refunds go through the booking service,
// which shares the booking's transaction.
func (s *CreditService) Apply(ctx context.Context, input LedgerInput) (*models.CreditTransaction, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	transaction, err := applyLedger(ctx, tx, input)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return transaction, nil
}

// Balance returns the cached balance, which applyLedger keeps equal to the
// sum of completed transactions.
func (s *CreditService) Balance(ctx context.Context, userID int64) (int, error) {
	return s.userRepo.GetCredits(ctx, userID)
}

// LedgerBalance derives the balance from the transaction log. A mismatch
// with Balance indicates a bug in the apply path, not a recoverable state.
func (s *CreditService) LedgerBalance(ctx context.Context, userID int64) (int, error) {
	return s.creditRepo.SumCompleted(ctx, userID)
}

func (s *CreditService) ExpiringCredits(ctx context.Context, userID int64, within time.Duration) (int, error) {
	return s.creditRepo.SumExpiringWithin(ctx, userID, time.Now().UTC().Add(within))
}

func (s *CreditService) Transactions(
	ctx context.Context,
	filter repository.TransactionListFilter,
) ([]models.CreditTransaction, int, error) {
	return s.creditRepo.ListByUser(ctx, filter)
}

func (s *CreditService) Packages(ctx context.Context) ([]models.CreditPackage, error) {
	return s.packageRepo.ListActive(ctx)
}

type PurchaseInput struct {
	PackageID int64
	CardToken string
}

type PurchaseResult struct {
	Transaction *models.CreditTransaction `json:"transaction"`
	NewBalance  int                       `json:"new_balance"`
}

// Purchase charges the package price through the payment gateway and, on
// success, credits the balance through the ledger. A failed charge leaves a
// failed transaction behind and the balance untouched.
func (s *CreditService) Purchase(
	ctx context.Context,
	userID int64,
	input PurchaseInput,
) (*PurchaseResult, error) {
	if input.CardToken == "" {
		return nil, fmt.Errorf("%w: card token is required", ErrInvalidInput)
	}
	if s.gateway == nil {
		return nil, fmt.Errorf("%w: payment gateway is not configured", ErrPaymentFailed)
	}

	pkg, err := s.packageRepo.GetActiveByID(ctx, input.PackageID)
	if err != nil {
		return nil, err
	}

	pending, err := s.creditRepo.Insert(ctx, repository.InsertTransactionInput{
		UserID:      userID,
		Type:        models.TransactionTypePurchase,
		Status:      models.TransactionStatusPending,
		Credits:     pkg.Credits,
		Amount:      pkg.Price,
		PackageID:   &pkg.ID,
		Description: fmt.Sprintf("Purchase of %d credits - %s", pkg.Credits, pkg.Name),
	})
	if err != nil {
		return nil, err
	}

	result, err := s.gateway.Charge(ctx, billing.ChargeInput{
		AmountCents: int64(math.Round(pkg.Price * 100)),
		Currency:    s.currency,
		CardToken:   input.CardToken,
		Reference:   uuid.NewString(),
		Metadata: map[string]any{
			"user_id":    userID,
			"package_id": pkg.ID,
		},
	})
	if err != nil {
		notes := err.Error()
		_, _ = s.creditRepo.MarkProcessed(ctx, pending.ID, models.TransactionStatusFailed, nil, &notes, nil)
		return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}
	if !result.Succeeded {
		_, _ = s.creditRepo.MarkProcessed(
			ctx,
			pending.ID,
			models.TransactionStatusFailed,
			&result.PaymentID,
			&result.FailureMessage,
			nil,
		)
		return nil, fmt.Errorf("%w: %s", ErrPaymentFailed, result.FailureMessage)
	}

	var expiresAt *time.Time
	if pkg.ValidityDays != nil {
		expiry := time.Now().UTC().AddDate(0, 0, *pkg.ValidityDays)
		expiresAt = &expiry
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txUserRepo := repository.NewUserRepository(tx)
	txCreditRepo := repository.NewCreditRepository(tx)

	newBalance, err := txUserRepo.AdjustCredits(ctx, userID, pkg.Credits)
	if err != nil {
		return nil, err
	}
	completed, err := txCreditRepo.MarkProcessed(
		ctx,
		pending.ID,
		models.TransactionStatusCompleted,
		&result.PaymentID,
		nil,
		expiresAt,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	metrics.LedgerTransactions.WithLabelValues(models.TransactionTypePurchase).Inc()
	return &PurchaseResult{Transaction: completed, NewBalance: newBalance}, nil
}
