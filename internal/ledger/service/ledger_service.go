package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/TrulyGourav/OrchexPay/internal/ledger/domain"
	"github.com/TrulyGourav/OrchexPay/internal/ledger/ports"
	"github.com/TrulyGourav/OrchexPay/pkg/apperror"
	"github.com/TrulyGourav/OrchexPay/pkg/money"
	"github.com/TrulyGourav/OrchexPay/pkg/response"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// LedgerServiceImpl implements ports.LedgerService. All money movements run
// inside a single database transaction with the wallet row locked FOR UPDATE,
// so the balance check and the entry insert are atomic.
type LedgerServiceImpl struct {
	walletRepo ports.WalletRepository
	entryRepo  ports.EntryRepository
	outboxRepo ports.OutboxRepository
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(
	walletRepo ports.WalletRepository,
	entryRepo ports.EntryRepository,
	outboxRepo ports.OutboxRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		walletRepo: walletRepo,
		entryRepo:  entryRepo,
		outboxRepo: outboxRepo,
		transactor: transactor,
		log:        log,
	}
}

// Credit applies a confirmed credit to a wallet. Replays with the same
// (wallet, reference, type) key return the original entry unchanged.
func (s *LedgerServiceImpl) Credit(ctx context.Context, req ports.MovementRequest) (*domain.LedgerEntry, error) {
	if err := validateMovement(req); err != nil {
		return nil, err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.lockWallet(ctx, dbTx, req.WalletID, req.Principal)
	if err != nil {
		return nil, err
	}

	existing, err := s.entryRepo.GetByReference(ctx, dbTx, req.WalletID, req.ReferenceID, req.ReferenceType)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("idempotency check: %w", err))
	}
	if existing != nil {
		return existing, nil
	}

	if err := checkActiveAndCurrency(wallet, req.Amount); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	entry := domain.NewCredit(wallet, req.Amount, req.ReferenceType, req.ReferenceID, domain.EntryStatusConfirmed, req.Description, now)

	if err := s.entryRepo.Create(ctx, dbTx, entry); err != nil {
		return s.resolveDuplicate(ctx, req.WalletID, req.ReferenceID, req.ReferenceType, err)
	}
	if err := s.enqueueCreditedEvent(ctx, dbTx, entry, now); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("entry_id", entry.ID.String()).
		Str("wallet_id", wallet.ID.String()).
		Str("amount", entry.Amount.String()).
		Str("reference_id", entry.ReferenceID).
		Msg("wallet credited")

	return entry, nil
}

// Debit applies a confirmed debit to a wallet after a balance check.
func (s *LedgerServiceImpl) Debit(ctx context.Context, req ports.MovementRequest) (*domain.LedgerEntry, error) {
	if err := validateMovement(req); err != nil {
		return nil, err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.lockWallet(ctx, dbTx, req.WalletID, req.Principal)
	if err != nil {
		return nil, err
	}

	existing, err := s.entryRepo.GetByReference(ctx, dbTx, req.WalletID, req.ReferenceID, req.ReferenceType)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("idempotency check: %w", err))
	}
	if existing != nil {
		return existing, nil
	}

	if err := checkActiveAndCurrency(wallet, req.Amount); err != nil {
		return nil, err
	}
	if err := s.checkBalance(ctx, dbTx, wallet, req.Amount); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	entry := domain.NewDebit(wallet, req.Amount, req.ReferenceType, req.ReferenceID, domain.EntryStatusConfirmed, req.Description, now)

	if err := s.entryRepo.Create(ctx, dbTx, entry); err != nil {
		return s.resolveDuplicate(ctx, req.WalletID, req.ReferenceID, req.ReferenceType, err)
	}
	if err := s.enqueueDebitedEvent(ctx, dbTx, entry, now); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("entry_id", entry.ID.String()).
		Str("wallet_id", wallet.ID.String()).
		Str("amount", entry.Amount.String()).
		Str("reference_id", entry.ReferenceID).
		Msg("wallet debited")

	return entry, nil
}

// Reserve writes a PENDING debit with referenceType=PAYOUT. The pending entry
// does not change the computed balance; it earmarks funds for a later Confirm.
func (s *LedgerServiceImpl) Reserve(ctx context.Context, req ports.MovementRequest) (*domain.LedgerEntry, error) {
	req.ReferenceType = domain.ReferenceTypePayout
	if err := validateMovement(req); err != nil {
		return nil, err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.lockWallet(ctx, dbTx, req.WalletID, req.Principal)
	if err != nil {
		return nil, err
	}

	existing, err := s.entryRepo.GetByReference(ctx, dbTx, req.WalletID, req.ReferenceID, domain.ReferenceTypePayout)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("idempotency check: %w", err))
	}
	if existing != nil {
		if existing.Status != domain.EntryStatusPending {
			return nil, apperror.ErrInvalidEntryTransition(
				fmt.Sprintf("reference %s already resolved with status %s", req.ReferenceID, existing.Status))
		}
		return existing, nil
	}

	if err := checkActiveAndCurrency(wallet, req.Amount); err != nil {
		return nil, err
	}
	if err := s.checkBalance(ctx, dbTx, wallet, req.Amount); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	entry := domain.NewDebit(wallet, req.Amount, domain.ReferenceTypePayout, req.ReferenceID, domain.EntryStatusPending, req.Description, now)

	if err := s.entryRepo.Create(ctx, dbTx, entry); err != nil {
		return s.resolveDuplicate(ctx, req.WalletID, req.ReferenceID, domain.ReferenceTypePayout, err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("entry_id", entry.ID.String()).
		Str("wallet_id", wallet.ID.String()).
		Str("amount", entry.Amount.String()).
		Str("reference_id", entry.ReferenceID).
		Msg("funds reserved")

	return entry, nil
}

// Confirm flips a PENDING entry to CONFIRMED. Already-confirmed entries are
// returned unchanged; REVERSED entries cannot be confirmed.
func (s *LedgerServiceImpl) Confirm(ctx context.Context, principal *domain.Principal, entryID uuid.UUID) (*domain.LedgerEntry, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	entry, err := s.lockEntry(ctx, dbTx, entryID, principal)
	if err != nil {
		return nil, err
	}

	if entry.Status == domain.EntryStatusConfirmed {
		return entry, nil
	}
	if !entry.Status.CanTransitionTo(domain.EntryStatusConfirmed) {
		return nil, apperror.ErrInvalidEntryTransition(
			fmt.Sprintf("cannot confirm entry %s in status %s", entry.ID, entry.Status))
	}

	if err := s.entryRepo.UpdateStatus(ctx, dbTx, entry.ID, domain.EntryStatusConfirmed); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update entry status: %w", err))
	}
	entry.Status = domain.EntryStatusConfirmed

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("entry_id", entry.ID.String()).
		Str("wallet_id", entry.WalletID.String()).
		Msg("entry confirmed")

	return entry, nil
}

// Reverse flips a PENDING entry to REVERSED and writes the compensating
// confirmed credit in the same transaction. Replays return the compensating
// credit already on record.
func (s *LedgerServiceImpl) Reverse(ctx context.Context, principal *domain.Principal, entryID uuid.UUID) (*domain.LedgerEntry, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	entry, err := s.lockEntry(ctx, dbTx, entryID, principal)
	if err != nil {
		return nil, err
	}

	reversalRef := domain.ReversalReferenceID(entry.ReferenceID)

	if entry.Status == domain.EntryStatusReversed {
		compensating, err := s.entryRepo.GetByReference(ctx, dbTx, entry.WalletID, reversalRef, domain.ReferenceTypeReversal)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("find compensating credit: %w", err))
		}
		if compensating == nil {
			return nil, apperror.InternalError(fmt.Errorf("entry %s reversed without compensating credit", entry.ID))
		}
		return compensating, nil
	}
	if !entry.Status.CanTransitionTo(domain.EntryStatusReversed) {
		return nil, apperror.ErrInvalidEntryTransition(
			fmt.Sprintf("cannot reverse entry %s in status %s", entry.ID, entry.Status))
	}

	if err := s.entryRepo.UpdateStatus(ctx, dbTx, entry.ID, domain.EntryStatusReversed); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update entry status: %w", err))
	}
	entry.Status = domain.EntryStatusReversed

	now := time.Now().UTC()
	compensating := &domain.LedgerEntry{
		ID:            uuid.New(),
		WalletID:      entry.WalletID,
		MerchantID:    entry.MerchantID,
		VendorID:      entry.VendorID,
		Type:          domain.EntryTypeCredit,
		Amount:        entry.Amount,
		ReferenceType: domain.ReferenceTypeReversal,
		ReferenceID:   reversalRef,
		Status:        domain.EntryStatusConfirmed,
		Description:   fmt.Sprintf("reversal of %s", entry.ReferenceID),
		CreatedAt:     now,
	}
	if err := s.entryRepo.Create(ctx, dbTx, compensating); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create compensating credit: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("entry_id", entry.ID.String()).
		Str("compensating_id", compensating.ID.String()).
		Str("wallet_id", entry.WalletID.String()).
		Msg("entry reversed")

	return compensating, nil
}

// Transfer moves funds from one wallet into one or more destinations as a
// single atomic write: one confirmed debit plus one confirmed credit per leg,
// all sharing the same reference id.
func (s *LedgerServiceImpl) Transfer(ctx context.Context, req ports.TransferRequest) (*ports.TransferResult, error) {
	if req.ReferenceID == "" {
		return nil, apperror.Validation("reference_id is required")
	}
	if len(req.Legs) == 0 {
		return nil, apperror.Validation("at least one transfer leg is required")
	}
	total, err := sumLegs(req.Legs)
	if err != nil {
		return nil, err
	}
	if !req.TotalAmount.Equal(total) {
		return nil, apperror.Validation("total_amount does not equal the sum of legs")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	source, err := s.lockWallet(ctx, dbTx, req.FromWalletID, req.Principal)
	if err != nil {
		return nil, err
	}

	existing, err := s.entryRepo.GetByReference(ctx, dbTx, req.FromWalletID, req.ReferenceID, domain.ReferenceTypeOrder)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("idempotency check: %w", err))
	}
	if existing != nil {
		return &ports.TransferResult{DebitEntry: existing, Reused: true}, nil
	}

	if err := checkActiveAndCurrency(source, total); err != nil {
		return nil, err
	}
	if err := s.checkBalance(ctx, dbTx, source, total); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	debit := domain.NewDebit(source, total, domain.ReferenceTypeOrder, req.ReferenceID, domain.EntryStatusConfirmed, req.Description, now)
	if err := s.entryRepo.Create(ctx, dbTx, debit); err != nil {
		if errors.Is(err, ports.ErrDuplicateKey) {
			return nil, apperror.ErrDuplicateReference(req.ReferenceID)
		}
		return nil, apperror.InternalError(fmt.Errorf("create transfer debit: %w", err))
	}
	if err := s.enqueueDebitedEvent(ctx, dbTx, debit, now); err != nil {
		return nil, err
	}

	credits := make([]domain.LedgerEntry, 0, len(req.Legs))
	for _, leg := range req.Legs {
		dest, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, leg.ToWalletID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("lock destination wallet: %w", err))
		}
		if dest == nil {
			return nil, apperror.ErrWalletNotFound(leg.ToWalletID.String())
		}
		if err := checkActiveAndCurrency(dest, leg.Amount); err != nil {
			return nil, err
		}

		credit := domain.NewCredit(dest, leg.Amount, domain.ReferenceTypeOrder, req.ReferenceID, domain.EntryStatusConfirmed, req.Description, now)
		if err := s.entryRepo.Create(ctx, dbTx, credit); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("create transfer credit: %w", err))
		}
		if err := s.enqueueCreditedEvent(ctx, dbTx, credit, now); err != nil {
			return nil, err
		}
		credits = append(credits, *credit)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("from_wallet_id", source.ID.String()).
		Str("reference_id", req.ReferenceID).
		Str("total", total.String()).
		Int("legs", len(req.Legs)).
		Msg("transfer applied")

	return &ports.TransferResult{DebitEntry: debit, CreditEntries: credits}, nil
}

// Balance computes the confirmed balance of a wallet.
func (s *LedgerServiceImpl) Balance(ctx context.Context, principal *domain.Principal, walletID uuid.UUID) (*ports.BalanceResult, error) {
	wallet, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound(walletID.String())
	}
	if principal != nil && !principal.MayOperateWallet(wallet) {
		return nil, apperror.ErrForbidden("wallet does not belong to caller")
	}

	raw, err := s.entryRepo.ConfirmedBalance(ctx, nil, walletID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("compute balance: %w", err))
	}
	balance, err := money.New(raw, wallet.Currency)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("balance for wallet %s: %w", walletID, err))
	}

	return &ports.BalanceResult{
		WalletID: wallet.ID,
		Balance:  balance,
		Status:   wallet.Status,
		AsOf:     time.Now().UTC(),
	}, nil
}

// ResolveWallet looks a wallet up by its identity key.
func (s *LedgerServiceImpl) ResolveWallet(ctx context.Context, principal *domain.Principal, req ports.ResolveWalletRequest) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByTypeKey(ctx, req.MerchantID, req.Currency, req.WalletType, req.VendorUserID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("resolve wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound(fmt.Sprintf("%s/%s/%s", req.MerchantID, req.WalletType, req.Currency))
	}
	if principal != nil && !principal.MayOperateWallet(wallet) {
		return nil, apperror.ErrForbidden("wallet does not belong to caller")
	}
	return wallet, nil
}

// ListEntries returns a filtered page of ledger entries. Non-admin callers
// are always scoped to their own merchant.
func (s *LedgerServiceImpl) ListEntries(ctx context.Context, principal *domain.Principal, params ports.EntryListParams) ([]domain.LedgerEntry, int64, error) {
	if principal != nil && !principal.IsAdmin() {
		if principal.MerchantID == nil {
			return nil, 0, apperror.ErrForbidden("caller has no merchant scope")
		}
		params.MerchantID = principal.MerchantID
	}
	entries, total, err := s.entryRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list entries: %w", err))
	}
	return entries, total, nil
}

// GetStats returns aggregate platform counters.
func (s *LedgerServiceImpl) GetStats(ctx context.Context) (*ports.LedgerStats, error) {
	wallets, err := s.walletRepo.Count(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("count wallets: %w", err))
	}
	entryStats, err := s.entryRepo.GetStats(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("entry stats: %w", err))
	}
	return &ports.LedgerStats{TotalWallets: wallets, Entries: *entryStats}, nil
}

// Settlement reconciles a merchant's ESCROW wallet. The expected balance is
// confirmed credits minus confirmed PAYOUT and REFUND debits; it must equal
// the ledger net balance, or the escrow carries debits outside those two
// rails and needs investigation.
func (s *LedgerServiceImpl) Settlement(ctx context.Context, principal *domain.Principal, merchantID uuid.UUID, currency money.Currency) (*ports.SettlementResult, error) {
	if principal != nil && !principal.IsAdmin() && !principal.OwnsMerchant(merchantID) {
		return nil, apperror.ErrForbidden("settlement belongs to another merchant")
	}

	wallet, err := s.walletRepo.GetByTypeKey(ctx, merchantID, currency, domain.WalletTypeEscrow, nil)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("resolve escrow wallet: %w", err))
	}
	if wallet == nil {
		// No escrow wallet in this currency: nothing held, trivially reconciled.
		return &ports.SettlementResult{MerchantID: merchantID, Currency: currency, Reconciled: true}, nil
	}

	credits, err := s.entryRepo.ConfirmedSum(ctx, wallet.ID, domain.EntryTypeCredit, nil)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("sum escrow credits: %w", err))
	}
	payoutRef := domain.ReferenceTypePayout
	payoutDebits, err := s.entryRepo.ConfirmedSum(ctx, wallet.ID, domain.EntryTypeDebit, &payoutRef)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("sum payout debits: %w", err))
	}
	refundRef := domain.ReferenceTypeRefund
	refundDebits, err := s.entryRepo.ConfirmedSum(ctx, wallet.ID, domain.EntryTypeDebit, &refundRef)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("sum refund debits: %w", err))
	}
	ledgerNet, err := s.entryRepo.ConfirmedBalance(ctx, nil, wallet.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("compute escrow balance: %w", err))
	}

	expected := credits.Sub(payoutDebits).Sub(refundDebits)
	reconciled := ledgerNet.Equal(expected)
	if !reconciled {
		s.log.Warn().
			Str("merchant_id", merchantID.String()).
			Str("currency", currency.String()).
			Str("ledger_net", ledgerNet.String()).
			Str("expected", expected.String()).
			Msg("escrow settlement mismatch")
	}

	return &ports.SettlementResult{
		MerchantID:       merchantID,
		Currency:         currency,
		EscrowWalletID:   &wallet.ID,
		ConfirmedCredits: credits,
		PayoutDebits:     payoutDebits,
		RefundDebits:     refundDebits,
		ExpectedBalance:  expected,
		LedgerNetBalance: ledgerNet,
		Reconciled:       reconciled,
	}, nil
}

// lockWallet loads the wallet FOR UPDATE and applies the caller scope check.
func (s *LedgerServiceImpl) lockWallet(ctx context.Context, dbTx pgx.Tx, walletID uuid.UUID, principal *domain.Principal) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, walletID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound(walletID.String())
	}
	if principal != nil && !principal.MayOperateWallet(wallet) {
		return nil, apperror.ErrForbidden("wallet does not belong to caller")
	}
	return wallet, nil
}

// lockEntry loads the entry FOR UPDATE and applies the caller scope check.
func (s *LedgerServiceImpl) lockEntry(ctx context.Context, dbTx pgx.Tx, entryID uuid.UUID, principal *domain.Principal) (*domain.LedgerEntry, error) {
	entry, err := s.entryRepo.GetByIDForUpdate(ctx, dbTx, entryID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock entry: %w", err))
	}
	if entry == nil {
		return nil, apperror.ErrLedgerEntryNotFound(entryID.String())
	}
	if principal != nil && !principal.IsAdmin() && !principal.OwnsMerchant(entry.MerchantID) {
		return nil, apperror.ErrForbidden("entry does not belong to caller")
	}
	return entry, nil
}

// checkBalance verifies confirmed balance >= amount inside the transaction.
func (s *LedgerServiceImpl) checkBalance(ctx context.Context, dbTx pgx.Tx, wallet *domain.Wallet, amount money.Money) error {
	balance, err := s.entryRepo.ConfirmedBalance(ctx, dbTx, wallet.ID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("compute balance: %w", err))
	}
	if balance.LessThan(amount.Amount()) {
		return apperror.ErrInsufficientBalance(wallet.ID.String())
	}
	return nil
}

// resolveDuplicate handles the unique-constraint race: a concurrent writer
// inserted the same (wallet, reference, type) key first, so return that row.
// The aborted transaction has already been rolled back by the caller's defer.
func (s *LedgerServiceImpl) resolveDuplicate(ctx context.Context, walletID uuid.UUID, referenceID string, refType domain.ReferenceType, err error) (*domain.LedgerEntry, error) {
	if !errors.Is(err, ports.ErrDuplicateKey) {
		return nil, apperror.InternalError(fmt.Errorf("create entry: %w", err))
	}
	existing, lookupErr := s.entryRepo.GetByReference(ctx, nil, walletID, referenceID, refType)
	if lookupErr != nil {
		return nil, apperror.InternalError(fmt.Errorf("re-fetch after duplicate: %w", lookupErr))
	}
	if existing == nil {
		return nil, apperror.ErrDuplicateReference(referenceID)
	}
	return existing, nil
}

func (s *LedgerServiceImpl) enqueueCreditedEvent(ctx context.Context, dbTx pgx.Tx, entry *domain.LedgerEntry, now time.Time) error {
	event, err := domain.NewWalletCreditedEvent(entry, correlationID(ctx), now)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("build credited event: %w", err))
	}
	if err := s.outboxRepo.Create(ctx, dbTx, event); err != nil {
		return apperror.InternalError(fmt.Errorf("enqueue credited event: %w", err))
	}
	return nil
}

func (s *LedgerServiceImpl) enqueueDebitedEvent(ctx context.Context, dbTx pgx.Tx, entry *domain.LedgerEntry, now time.Time) error {
	event, err := domain.NewWalletDebitedEvent(entry, correlationID(ctx), now)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("build debited event: %w", err))
	}
	if err := s.outboxRepo.Create(ctx, dbTx, event); err != nil {
		return apperror.InternalError(fmt.Errorf("enqueue debited event: %w", err))
	}
	return nil
}

func correlationID(ctx context.Context) *string {
	if id, ok := response.FromContext(ctx); ok {
		return &id
	}
	return nil
}

func validateMovement(req ports.MovementRequest) error {
	if req.ReferenceID == "" {
		return apperror.Validation("reference_id is required")
	}
	if _, ok := domain.ParseReferenceType(string(req.ReferenceType)); !ok {
		return apperror.Validation("invalid reference_type")
	}
	if req.Amount.IsZero() {
		return apperror.Validation("amount must be positive")
	}
	return nil
}

func checkActiveAndCurrency(wallet *domain.Wallet, amount money.Money) error {
	if !wallet.IsActive() {
		return apperror.ErrWalletNotActive(wallet.ID.String())
	}
	if wallet.Currency != amount.Currency() {
		return apperror.ErrCurrencyMismatch(wallet.Currency.String(), amount.Currency().String())
	}
	return nil
}

func sumLegs(legs []ports.TransferLeg) (money.Money, error) {
	total := legs[0].Amount
	for _, leg := range legs[1:] {
		sum, err := total.Add(leg.Amount)
		if err != nil {
			return money.Money{}, apperror.Validation("transfer legs must share one currency")
		}
		total = sum
	}
	return total, nil
}
