package ports

import (
	"context"
	"time"

	"github.com/TrulyGourav/OrchexPay/internal/ledger/domain"
	"github.com/TrulyGourav/OrchexPay/pkg/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerService defines the core ledger business logic.
type LedgerService interface {
	Credit(ctx context.Context, req MovementRequest) (*domain.LedgerEntry, error)
	Debit(ctx context.Context, req MovementRequest) (*domain.LedgerEntry, error)
	Reserve(ctx context.Context, req MovementRequest) (*domain.LedgerEntry, error)
	Confirm(ctx context.Context, principal *domain.Principal, entryID uuid.UUID) (*domain.LedgerEntry, error)
	Reverse(ctx context.Context, principal *domain.Principal, entryID uuid.UUID) (*domain.LedgerEntry, error)
	Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error)
	Balance(ctx context.Context, principal *domain.Principal, walletID uuid.UUID) (*BalanceResult, error)
	ResolveWallet(ctx context.Context, principal *domain.Principal, req ResolveWalletRequest) (*domain.Wallet, error)
	ListEntries(ctx context.Context, principal *domain.Principal, params EntryListParams) ([]domain.LedgerEntry, int64, error)
	GetStats(ctx context.Context) (*LedgerStats, error)
	// Settlement reconciles a merchant's ESCROW wallet: expected balance
	// (confirmed credits minus payout and refund debits) against the ledger
	// net balance.
	Settlement(ctx context.Context, principal *domain.Principal, merchantID uuid.UUID, currency money.Currency) (*SettlementResult, error)
}

// SettlementResult is the escrow reconciliation snapshot for one merchant and
// currency. EscrowWalletID is nil when the merchant holds no ESCROW wallet in
// that currency; the zero amounts then reconcile trivially.
type SettlementResult struct {
	MerchantID       uuid.UUID
	Currency         money.Currency
	EscrowWalletID   *uuid.UUID
	ConfirmedCredits decimal.Decimal
	PayoutDebits     decimal.Decimal
	RefundDebits     decimal.Decimal
	ExpectedBalance  decimal.Decimal
	LedgerNetBalance decimal.Decimal
	Reconciled       bool
}

// MovementRequest holds validated input for a single-wallet movement.
type MovementRequest struct {
	Principal     *domain.Principal
	WalletID      uuid.UUID
	Amount        money.Money
	ReferenceType domain.ReferenceType
	ReferenceID   string
	Description   string
}

// TransferRequest holds validated input for an atomic multi-leg transfer.
type TransferRequest struct {
	Principal    *domain.Principal
	FromWalletID uuid.UUID
	ReferenceID  string
	TotalAmount  money.Money
	Description  string
	Legs         []TransferLeg
}

// TransferLeg is one credit destination of a transfer.
type TransferLeg struct {
	ToWalletID uuid.UUID
	Amount     money.Money
}

// TransferResult holds the entries written by a transfer.
// Reused is true when the reference had already been transferred and the
// previously written entries are returned instead.
type TransferResult struct {
	DebitEntry    *domain.LedgerEntry
	CreditEntries []domain.LedgerEntry
	Reused        bool
}

// BalanceResult is a wallet balance snapshot.
type BalanceResult struct {
	WalletID  uuid.UUID
	Balance   money.Money
	Status    domain.WalletStatus
	AsOf      time.Time
}

// ResolveWalletRequest identifies a wallet by its identity key.
type ResolveWalletRequest struct {
	MerchantID   uuid.UUID
	Currency     money.Currency
	WalletType   domain.WalletType
	VendorUserID *uuid.UUID
}

// LedgerStats holds aggregated platform statistics for the admin dashboard.
type LedgerStats struct {
	TotalWallets int64
	Entries      EntryStats
}

// AccountService defines user and wallet provisioning logic.
type AccountService interface {
	CreateMerchant(ctx context.Context, req CreateMerchantRequest) (*CreateMerchantResult, error)
	AddVendor(ctx context.Context, principal *domain.Principal, req AddVendorRequest) (*AddVendorResult, error)
	ListVendors(ctx context.Context, principal *domain.Principal, merchantID uuid.UUID) ([]domain.User, error)
	SetWalletStatus(ctx context.Context, walletID uuid.UUID, status domain.WalletStatus) (*domain.Wallet, error)
	// EnsureAdmin creates the bootstrap admin user if it does not exist yet.
	EnsureAdmin(ctx context.Context, username, password string) error
	// SaveBankDetails records or overwrites the calling vendor's bank account.
	SaveBankDetails(ctx context.Context, principal *domain.Principal, req SaveBankDetailsRequest) (*domain.VendorBankDetails, error)
	// GetBankDetails returns the calling vendor's bank account, or nil when
	// none is on file.
	GetBankDetails(ctx context.Context, principal *domain.Principal) (*domain.VendorBankDetails, error)
}

// SaveBankDetailsRequest holds validated input for recording a vendor's bank
// account.
type SaveBankDetailsRequest struct {
	AccountNumber   string
	IFSCCode        string
	BeneficiaryName string
}

// CreateMerchantRequest holds input for merchant registration.
type CreateMerchantRequest struct {
	Username string
	Password string
	Currency money.Currency
}

// CreateMerchantResult holds the provisioned merchant account.
type CreateMerchantResult struct {
	User         *domain.User
	MainWallet   *domain.Wallet
	EscrowWallet *domain.Wallet
}

// AddVendorRequest holds input for vendor onboarding under a merchant.
type AddVendorRequest struct {
	MerchantID uuid.UUID
	Username   string
	Password   string
	Currency   money.Currency
}

// AddVendorResult holds the provisioned vendor account.
type AddVendorResult struct {
	User         *domain.User
	VendorWallet *domain.Wallet
}

// AuthService defines authentication business logic.
type AuthService interface {
	Login(ctx context.Context, username, password string) (*LoginResult, error)
}

// LoginResult holds the issued token and its subject.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(user *domain.User) (string, time.Time, error)
	Validate(tokenString string) (*domain.Principal, error)
}

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// EventPublisher delivers outbox events to the message broker.
type EventPublisher interface {
	Publish(ctx context.Context, event *domain.OutboxEvent) error
}
