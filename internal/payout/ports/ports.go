// Package ports defines the orchestrator's repository and service interfaces.
// The ledger is reachable only through the LedgerClient capability; direct
// storage access never crosses that boundary.
package ports

import (
	"context"
	"errors"

	"github.com/TrulyGourav/OrchexPay/internal/payout/domain"
	"github.com/TrulyGourav/OrchexPay/pkg/money"

	"github.com/google/uuid"
)

// ErrDuplicateKey is returned by repositories when an insert loses a race on
// a unique constraint. Callers re-fetch and return the existing record.
var ErrDuplicateKey = errors.New("duplicate key")

// PayoutRepository persists payout saga state.
type PayoutRepository interface {
	Create(ctx context.Context, p *domain.Payout) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payout, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Payout, error)
	// Update persists status, ledger entry id and updated_at. All other
	// columns are immutable.
	Update(ctx context.Context, p *domain.Payout) error
	ListByMerchant(ctx context.Context, merchantID uuid.UUID) ([]domain.Payout, error)
	ListByVendor(ctx context.Context, vendorID uuid.UUID) ([]domain.Payout, error)
}

// PendingOrderRepository tracks escrow-held payments awaiting their split.
type PendingOrderRepository interface {
	Create(ctx context.Context, o *domain.PendingOrder) error
	GetByOrderID(ctx context.Context, merchantID uuid.UUID, orderID string) (*domain.PendingOrder, error)
	MarkSplitDone(ctx context.Context, id uuid.UUID) error
}

// LedgerEntry is the orchestrator's view of a ledger entry returned by the
// ledger service.
type LedgerEntry struct {
	ID          uuid.UUID
	WalletID    uuid.UUID
	Type        string
	Amount      money.Money
	ReferenceID string
	Status      string
}

// LedgerWallet is the orchestrator's view of a resolved wallet.
type LedgerWallet struct {
	ID           uuid.UUID
	MerchantID   uuid.UUID
	WalletType   string
	VendorUserID *uuid.UUID
	Currency     string
	Status       string
}

// LedgerMovementRequest is a credit, debit or reserve call against one wallet.
// Bearer, when set, is forwarded so the ledger authorizes as the original
// caller; empty means the orchestrator's service identity.
type LedgerMovementRequest struct {
	WalletID       uuid.UUID
	Amount         money.Money
	ReferenceType  string
	ReferenceID    string
	Description    string
	IdempotencyKey string
	Bearer         string
}

// EntryActionRequest addresses a confirm or reverse of one ledger entry.
type EntryActionRequest struct {
	EntryID        uuid.UUID
	IdempotencyKey string
	Bearer         string
}

// LedgerTransferLeg is one credit destination of a transfer.
type LedgerTransferLeg struct {
	ToWalletID uuid.UUID
	Amount     money.Money
}

// LedgerTransferRequest is an atomic multi-leg transfer call.
type LedgerTransferRequest struct {
	FromWalletID   uuid.UUID
	ReferenceID    string
	TotalAmount    money.Money
	Description    string
	Legs           []LedgerTransferLeg
	IdempotencyKey string
	Bearer         string
}

// LedgerTransferResult is the outcome of a transfer call.
type LedgerTransferResult struct {
	DebitEntry    LedgerEntry
	CreditEntries []LedgerEntry
	Reused        bool
}

// ResolveWalletRequest identifies a wallet by its identity key.
type ResolveWalletRequest struct {
	MerchantID   uuid.UUID
	Currency     string
	WalletType   string
	VendorUserID *uuid.UUID
	Bearer       string
}

// LedgerClient is the abstract ledger capability the saga depends on. Every
// mutating call carries an idempotency key; the ledger treats retries as
// replays.
type LedgerClient interface {
	Credit(ctx context.Context, req LedgerMovementRequest) (*LedgerEntry, error)
	Reserve(ctx context.Context, req LedgerMovementRequest) (*LedgerEntry, error)
	Confirm(ctx context.Context, req EntryActionRequest) (*LedgerEntry, error)
	Reverse(ctx context.Context, req EntryActionRequest) (*LedgerEntry, error)
	Transfer(ctx context.Context, req LedgerTransferRequest) (*LedgerTransferResult, error)
	ResolveWallet(ctx context.Context, req ResolveWalletRequest) (*LedgerWallet, error)
}

// RequestPayoutRequest holds validated input for payout creation.
type RequestPayoutRequest struct {
	MerchantID     uuid.UUID
	VendorID       uuid.UUID
	VendorWalletID uuid.UUID
	Amount         money.Money
	IdempotencyKey string
	Bearer         string
}

// PayoutActionRequest addresses a confirm or reverse of one payout.
type PayoutActionRequest struct {
	PayoutID       uuid.UUID
	IdempotencyKey string
	Bearer         string
}

// PayoutService drives the payout saga.
type PayoutService interface {
	RequestPayout(ctx context.Context, req RequestPayoutRequest) (*domain.Payout, error)
	ConfirmPayout(ctx context.Context, req PayoutActionRequest) (*domain.Payout, error)
	ReversePayout(ctx context.Context, req PayoutActionRequest) (*domain.Payout, error)
	GetPayout(ctx context.Context, id uuid.UUID) (*domain.Payout, error)
	ListByMerchant(ctx context.Context, merchantID uuid.UUID) ([]domain.Payout, error)
	ListByVendor(ctx context.Context, vendorID uuid.UUID) ([]domain.Payout, error)
}

// PaymentSucceededRequest reports a customer payment captured for an order.
type PaymentSucceededRequest struct {
	MerchantID uuid.UUID
	VendorID   uuid.UUID
	OrderID    string
	Amount     money.Money
}

// OrderCompletedRequest triggers the escrow split for a completed order.
type OrderCompletedRequest struct {
	MerchantID uuid.UUID
	OrderID    string
}

// OrderSplitResult is the outcome of an escrow split.
type OrderSplitResult struct {
	Order          *domain.PendingOrder
	VendorAmount   money.Money
	PlatformAmount money.Money
	Reused         bool
}

// BankOutcomeRequest reports the bank's verdict on a payout.
type BankOutcomeRequest struct {
	PayoutID       uuid.UUID
	Success        bool
	IdempotencyKey string
}

// WebhookService handles the external actor boundary: payment capture, order
// completion and bank payout outcomes.
type WebhookService interface {
	PaymentSucceeded(ctx context.Context, req PaymentSucceededRequest) (*domain.PendingOrder, error)
	OrderCompleted(ctx context.Context, req OrderCompletedRequest) (*OrderSplitResult, error)
	BankOutcome(ctx context.Context, req BankOutcomeRequest) (*domain.Payout, error)
}
