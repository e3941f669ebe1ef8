package ports

import (
	"context"
	"errors"
	"time"

	"github.com/TrulyGourav/OrchexPay/internal/ledger/domain"
	"github.com/TrulyGourav/OrchexPay/pkg/money"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ErrDuplicateKey is returned by repositories when an insert violates a
// unique constraint. Services translate it into an idempotent re-fetch.
var ErrDuplicateKey = errors.New("duplicate key")

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic locking.
type WalletRepository interface {
	Create(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error)
	// GetByTypeKey resolves a wallet by its identity key. vendorUserID is nil
	// for MAIN and ESCROW wallets.
	GetByTypeKey(ctx context.Context, merchantID uuid.UUID, currency money.Currency, walletType domain.WalletType, vendorUserID *uuid.UUID) (*domain.Wallet, error)
	ListByMerchant(ctx context.Context, merchantID uuid.UUID) ([]domain.Wallet, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.WalletStatus) error
	Count(ctx context.Context) (int64, error)
}

// EntryRepository defines persistence operations for ledger entries.
// Entries are immutable except for their status column.
type EntryRepository interface {
	Create(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.LedgerEntry, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.LedgerEntry, error)
	// GetByReference looks up the entry holding the (wallet, reference, type)
	// idempotency key. Returns nil, nil when absent.
	GetByReference(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, referenceID string, refType domain.ReferenceType) (*domain.LedgerEntry, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.EntryStatus) error
	// ConfirmedBalance computes sum(CONFIRMED credits) - sum(CONFIRMED debits)
	// for the wallet. Pass a nil tx for a plain read outside any transaction.
	ConfirmedBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) (decimal.Decimal, error)
	// ConfirmedSum totals CONFIRMED entries of one direction on a wallet,
	// optionally restricted to a reference type.
	ConfirmedSum(ctx context.Context, walletID uuid.UUID, entryType domain.EntryType, refType *domain.ReferenceType) (decimal.Decimal, error)
	List(ctx context.Context, params EntryListParams) ([]domain.LedgerEntry, int64, error)
	GetStats(ctx context.Context) (*EntryStats, error)
}

// EntryListParams holds filter + pagination for listing ledger entries.
type EntryListParams struct {
	WalletID      *uuid.UUID
	MerchantID    *uuid.UUID
	Status        *domain.EntryStatus
	Type          *domain.EntryType
	ReferenceType *domain.ReferenceType
	From          *time.Time
	To            *time.Time
	Page          int
	PageSize      int
}

// EntryStats holds aggregated entry counts for the admin dashboard.
type EntryStats struct {
	TotalEntries    int64
	Pending         int64
	Confirmed       int64
	Reversed        int64
	ConfirmedVolume decimal.Decimal
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, tx pgx.Tx, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	ListVendorsByMerchant(ctx context.Context, merchantID uuid.UUID) ([]domain.User, error)
}

// BankDetailsRepository persists the bank account a vendor's payouts settle
// to. One row per vendor user.
type BankDetailsRepository interface {
	// Upsert inserts the details or overwrites the existing row, preserving
	// its created_at.
	Upsert(ctx context.Context, details *domain.VendorBankDetails) error
	// GetByUserID returns nil, nil when the vendor has no details on file.
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.VendorBankDetails, error)
}

// OutboxRepository defines persistence for the transactional outbox.
type OutboxRepository interface {
	Create(ctx context.Context, tx pgx.Tx, event *domain.OutboxEvent) error
	// ListUnpublished returns unpublished events oldest first.
	ListUnpublished(ctx context.Context, limit int) ([]domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id uuid.UUID) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// IdempotencyCache is the Redis-layer replay cache for mutating HTTP requests.
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RateLimitStore implements fixed-window request counting.
type RateLimitStore interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error)
}

// RateLimitResult holds the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   int64 // Unix timestamp
}
