package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/TrulyGourav/OrchexPay/internal/ledger/domain"
	"github.com/TrulyGourav/OrchexPay/internal/ledger/ports"
	"github.com/TrulyGourav/OrchexPay/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// AccountServiceImpl implements ports.AccountService. Provisioning a merchant
// creates the user row and its MAIN and ESCROW wallets in one transaction.
type AccountServiceImpl struct {
	userRepo   ports.UserRepository
	walletRepo ports.WalletRepository
	bankRepo   ports.BankDetailsRepository
	outboxRepo ports.OutboxRepository
	hashSvc    ports.HashService
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewAccountService creates a new AccountServiceImpl.
func NewAccountService(
	userRepo ports.UserRepository,
	walletRepo ports.WalletRepository,
	bankRepo ports.BankDetailsRepository,
	outboxRepo ports.OutboxRepository,
	hashSvc ports.HashService,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *AccountServiceImpl {
	return &AccountServiceImpl{
		userRepo:   userRepo,
		walletRepo: walletRepo,
		bankRepo:   bankRepo,
		outboxRepo: outboxRepo,
		hashSvc:    hashSvc,
		transactor: transactor,
		log:        log,
	}
}

// CreateMerchant registers a merchant account with its MAIN and ESCROW wallets.
func (s *AccountServiceImpl) CreateMerchant(ctx context.Context, req ports.CreateMerchantRequest) (*ports.CreateMerchantResult, error) {
	if req.Username == "" || req.Password == "" {
		return nil, apperror.Validation("username and password are required")
	}

	existing, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check username: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrUsernameExists()
	}

	passwordHash, err := s.hashSvc.Hash(req.Password)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash password: %w", err))
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()
	userID := uuid.New()
	user := &domain.User{
		ID:           userID,
		Username:     req.Username,
		PasswordHash: passwordHash,
		Role:         domain.RoleMerchant,
		MerchantID:   &userID, // a merchant user is its own merchant scope
		CreatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, dbTx, user); err != nil {
		if errors.Is(err, ports.ErrDuplicateKey) {
			return nil, apperror.ErrUsernameExists()
		}
		return nil, apperror.InternalError(fmt.Errorf("create user: %w", err))
	}

	main := domain.NewMerchantWallet(userID, domain.WalletTypeMain, req.Currency, now)
	escrow := domain.NewMerchantWallet(userID, domain.WalletTypeEscrow, req.Currency, now)
	for _, w := range []*domain.Wallet{main, escrow} {
		if err := s.createWallet(ctx, dbTx, w, now); err != nil {
			return nil, err
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("merchant_id", userID.String()).
		Str("username", req.Username).
		Msg("merchant provisioned")

	return &ports.CreateMerchantResult{User: user, MainWallet: main, EscrowWallet: escrow}, nil
}

// AddVendor onboards a vendor user under a merchant, with its VENDOR wallet.
func (s *AccountServiceImpl) AddVendor(ctx context.Context, principal *domain.Principal, req ports.AddVendorRequest) (*ports.AddVendorResult, error) {
	if req.Username == "" || req.Password == "" {
		return nil, apperror.Validation("username and password are required")
	}
	if principal != nil && !principal.IsAdmin() && !principal.OwnsMerchant(req.MerchantID) {
		return nil, apperror.ErrForbidden("cannot add vendors to another merchant")
	}

	merchant, err := s.userRepo.GetByID(ctx, req.MerchantID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get merchant: %w", err))
	}
	if merchant == nil || merchant.Role != domain.RoleMerchant {
		return nil, apperror.Validation("merchant does not exist")
	}

	existing, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check username: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrUsernameExists()
	}

	passwordHash, err := s.hashSvc.Hash(req.Password)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash password: %w", err))
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()
	vendor := &domain.User{
		ID:           uuid.New(),
		Username:     req.Username,
		PasswordHash: passwordHash,
		Role:         domain.RoleVendor,
		MerchantID:   &req.MerchantID,
		CreatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, dbTx, vendor); err != nil {
		if errors.Is(err, ports.ErrDuplicateKey) {
			return nil, apperror.ErrUsernameExists()
		}
		return nil, apperror.InternalError(fmt.Errorf("create vendor user: %w", err))
	}

	wallet := domain.NewVendorWallet(req.MerchantID, vendor.ID, req.Currency, now)
	if err := s.createWallet(ctx, dbTx, wallet, now); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("vendor_id", vendor.ID.String()).
		Str("merchant_id", req.MerchantID.String()).
		Msg("vendor onboarded")

	return &ports.AddVendorResult{User: vendor, VendorWallet: wallet}, nil
}

// ListVendors returns the vendor users of a merchant.
func (s *AccountServiceImpl) ListVendors(ctx context.Context, principal *domain.Principal, merchantID uuid.UUID) ([]domain.User, error) {
	if principal != nil && !principal.IsAdmin() && !principal.OwnsMerchant(merchantID) {
		return nil, apperror.ErrForbidden("cannot list vendors of another merchant")
	}
	vendors, err := s.userRepo.ListVendorsByMerchant(ctx, merchantID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list vendors: %w", err))
	}
	return vendors, nil
}

// SetWalletStatus freezes, unfreezes, suspends or closes a wallet.
func (s *AccountServiceImpl) SetWalletStatus(ctx context.Context, walletID uuid.UUID, status domain.WalletStatus) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound(walletID.String())
	}

	if err := s.walletRepo.UpdateStatus(ctx, walletID, status); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update wallet status: %w", err))
	}
	wallet.Status = status
	wallet.UpdatedAt = time.Now().UTC()

	s.log.Info().
		Str("wallet_id", walletID.String()).
		Str("status", string(status)).
		Msg("wallet status changed")

	return wallet, nil
}

// EnsureAdmin creates the bootstrap admin user on first startup.
func (s *AccountServiceImpl) EnsureAdmin(ctx context.Context, username, password string) error {
	existing, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("check admin user: %w", err)
	}
	if existing != nil {
		return nil
	}

	passwordHash, err := s.hashSvc.Hash(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	admin := &domain.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: passwordHash,
		Role:         domain.RoleAdmin,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.userRepo.Create(ctx, dbTx, admin); err != nil {
		// Lost the race against another instance booting in parallel.
		if errors.Is(err, ports.ErrDuplicateKey) {
			return nil
		}
		return fmt.Errorf("create admin user: %w", err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	s.log.Info().Str("username", username).Msg("bootstrap admin created")
	return nil
}

// SaveBankDetails records or overwrites the calling vendor's settlement bank
// account. Only vendors hold bank details; payouts to them settle there.
func (s *AccountServiceImpl) SaveBankDetails(ctx context.Context, principal *domain.Principal, req ports.SaveBankDetailsRequest) (*domain.VendorBankDetails, error) {
	if principal == nil {
		return nil, apperror.ErrUnauthorized()
	}
	if principal.Role != domain.RoleVendor {
		return nil, apperror.ErrForbidden("only vendors hold bank details")
	}
	if req.AccountNumber == "" || req.BeneficiaryName == "" {
		return nil, apperror.Validation("account number and beneficiary name are required")
	}

	details := domain.NewVendorBankDetails(principal.UserID, req.AccountNumber, req.IFSCCode, req.BeneficiaryName, time.Now().UTC())
	if err := s.bankRepo.Upsert(ctx, details); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("save bank details: %w", err))
	}

	s.log.Info().
		Str("user_id", principal.UserID.String()).
		Msg("vendor bank details saved")

	return details, nil
}

// GetBankDetails returns the calling vendor's bank account on file, or nil
// when none has been saved yet.
func (s *AccountServiceImpl) GetBankDetails(ctx context.Context, principal *domain.Principal) (*domain.VendorBankDetails, error) {
	if principal == nil {
		return nil, apperror.ErrUnauthorized()
	}
	if principal.Role != domain.RoleVendor {
		return nil, apperror.ErrForbidden("only vendors hold bank details")
	}

	details, err := s.bankRepo.GetByUserID(ctx, principal.UserID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get bank details: %w", err))
	}
	return details, nil
}

func (s *AccountServiceImpl) createWallet(ctx context.Context, dbTx pgx.Tx, w *domain.Wallet, now time.Time) error {
	if err := s.walletRepo.Create(ctx, dbTx, w); err != nil {
		return apperror.InternalError(fmt.Errorf("create wallet: %w", err))
	}
	event, err := domain.NewWalletCreatedEvent(w, correlationID(ctx), now)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("build wallet created event: %w", err))
	}
	if err := s.outboxRepo.Create(ctx, dbTx, event); err != nil {
		return apperror.InternalError(fmt.Errorf("enqueue wallet created event: %w", err))
	}
	return nil
}
