package service

import (
	"context"
	"testing"
	"time"

	"github.com/TrulyGourav/OrchexPay/internal/ledger/domain"
	"github.com/TrulyGourav/OrchexPay/internal/ledger/ports"
	"github.com/TrulyGourav/OrchexPay/internal/ledger/ports/mocks"
	"github.com/TrulyGourav/OrchexPay/pkg/apperror"
	"github.com/TrulyGourav/OrchexPay/pkg/money"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type ledgerTestDeps struct {
	svc        *LedgerServiceImpl
	walletRepo *mocks.MockWalletRepository
	entryRepo  *mocks.MockEntryRepository
	outboxRepo *mocks.MockOutboxRepository
	transactor *mocks.MockDBTransactor
	ctrl       *gomock.Controller
}

func setupLedgerService(t *testing.T) *ledgerTestDeps {
	ctrl := gomock.NewController(t)
	d := &ledgerTestDeps{
		walletRepo: mocks.NewMockWalletRepository(ctrl),
		entryRepo:  mocks.NewMockEntryRepository(ctrl),
		outboxRepo: mocks.NewMockOutboxRepository(ctrl),
		transactor: mocks.NewMockDBTransactor(ctrl),
		ctrl:       ctrl,
	}
	d.svc = NewLedgerService(d.walletRepo, d.entryRepo, d.outboxRepo, d.transactor, zerolog.Nop())
	return d
}

// mockTx implements pgx.Tx for testing
type mockTx struct{ pgx.Tx }

func (m *mockTx) Rollback(_ context.Context) error { return nil }
func (m *mockTx) Commit(_ context.Context) error   { return nil }

func (d *ledgerTestDeps) expectTx() {
	d.transactor.EXPECT().Begin(gomock.Any()).Return(&mockTx{}, nil)
}

func activeWallet(walletType domain.WalletType) *domain.Wallet {
	now := time.Now().UTC()
	w := domain.NewMerchantWallet(uuid.New(), walletType, money.Currency("INR"), now)
	if walletType == domain.WalletTypeVendor {
		vendorID := uuid.New()
		w = domain.NewVendorWallet(uuid.New(), vendorID, money.Currency("INR"), now)
	}
	return w
}

func merchantPrincipal(w *domain.Wallet) *domain.Principal {
	return &domain.Principal{UserID: w.MerchantID, Role: domain.RoleMerchant, MerchantID: &w.MerchantID}
}

// ==================== Credit Tests ====================

func TestLedgerService_Credit_Success(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	wallet := activeWallet(domain.WalletTypeEscrow)
	amount := money.MustParse("300", "INR")

	d.expectTx()
	d.walletRepo.EXPECT().GetByIDForUpdate(gomock.Any(), gomock.Any(), wallet.ID).Return(wallet, nil)
	d.entryRepo.EXPECT().GetByReference(gomock.Any(), gomock.Any(), wallet.ID, "order-1", domain.ReferenceTypeOrder).Return(nil, nil)

	var created *domain.LedgerEntry
	d.entryRepo.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ pgx.Tx, e *domain.LedgerEntry) error {
			created = e
			return nil
		})
	d.outboxRepo.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ pgx.Tx, ev *domain.OutboxEvent) error {
			assert.Equal(t, domain.EventTypeWalletCredited, ev.EventType)
			return nil
		})

	entry, err := d.svc.Credit(context.Background(), ports.MovementRequest{
		Principal:     merchantPrincipal(wallet),
		WalletID:      wallet.ID,
		Amount:        amount,
		ReferenceType: domain.ReferenceTypeOrder,
		ReferenceID:   "order-1",
		Description:   "customer payment",
	})

	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Same(t, created, entry)
	assert.Equal(t, domain.EntryTypeCredit, entry.Type)
	assert.Equal(t, domain.EntryStatusConfirmed, entry.Status)
	assert.Equal(t, wallet.ID, entry.WalletID)
	assert.True(t, entry.Amount.Equal(amount))
}

func TestLedgerService_Credit_IdempotentReplay(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	wallet := activeWallet(domain.WalletTypeEscrow)
	existing := domain.NewCredit(wallet, money.MustParse("300", "INR"), domain.ReferenceTypeOrder, "order-1", domain.EntryStatusConfirmed, "", time.Now().UTC())

	d.expectTx()
	d.walletRepo.EXPECT().GetByIDForUpdate(gomock.Any(), gomock.Any(), wallet.ID).Return(wallet, nil)
	d.entryRepo.EXPECT().GetByReference(gomock.Any(), gomock.Any(), wallet.ID, "order-1", domain.ReferenceTypeOrder).Return(existing, nil)
	// No Create, no outbox write, no commit: nothing changed.

	entry, err := d.svc.Credit(context.Background(), ports.MovementRequest{
		WalletID:      wallet.ID,
		Amount:        money.MustParse("300", "INR"),
		ReferenceType: domain.ReferenceTypeOrder,
		ReferenceID:   "order-1",
	})

	require.NoError(t, err)
	assert.Same(t, existing, entry)
}

func TestLedgerService_Credit_WalletNotFound(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	walletID := uuid.New()
	d.expectTx()
	d.walletRepo.EXPECT().GetByIDForUpdate(gomock.Any(), gomock.Any(), walletID).Return(nil, nil)

	_, err := d.svc.Credit(context.Background(), ports.MovementRequest{
		WalletID:      walletID,
		Amount:        money.MustParse("10", "INR"),
		ReferenceType: domain.ReferenceTypeOrder,
		ReferenceID:   "order-1",
	})

	assert.True(t, apperror.Is(err, apperror.CodeWalletNotFound))
}

func TestLedgerService_Credit_FrozenWallet(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	wallet := activeWallet(domain.WalletTypeMain)
	wallet.Status = domain.WalletStatusFrozen

	d.expectTx()
	d.walletRepo.EXPECT().GetByIDForUpdate(gomock.Any(), gomock.Any(), wallet.ID).Return(wallet, nil)
	d.entryRepo.EXPECT().GetByReference(gomock.Any(), gomock.Any(), wallet.ID, "order-1", domain.ReferenceTypeOrder).Return(nil, nil)

	_, err := d.svc.Credit(context.Background(), ports.MovementRequest{
		WalletID:      wallet.ID,
		Amount:        money.MustParse("10", "INR"),
		ReferenceType: domain.ReferenceTypeOrder,
		ReferenceID:   "order-1",
	})

	assert.True(t, apperror.Is(err, apperror.CodeWalletNotActive))
}

func TestLedgerService_Credit_CurrencyMismatch(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	wallet := activeWallet(domain.WalletTypeMain)

	d.expectTx()
	d.walletRepo.EXPECT().GetByIDForUpdate(gomock.Any(), gomock.Any(), wallet.ID).Return(wallet, nil)
	d.entryRepo.EXPECT().GetByReference(gomock.Any(), gomock.Any(), wallet.ID, "order-1", domain.ReferenceTypeOrder).Return(nil, nil)

	_, err := d.svc.Credit(context.Background(), ports.MovementRequest{
		WalletID:      wallet.ID,
		Amount:        money.MustParse("10", "USD"),
		ReferenceType: domain.ReferenceTypeOrder,
		ReferenceID:   "order-1",
	})

	assert.True(t, apperror.Is(err, apperror.CodeCurrencyMismatch))
}

func TestLedgerService_Credit_DuplicateRace_ReturnsExisting(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	wallet := activeWallet(domain.WalletTypeEscrow)
	winner := domain.NewCredit(wallet, money.MustParse("300", "INR"), domain.ReferenceTypeOrder, "order-1", domain.EntryStatusConfirmed, "", time.Now().UTC())

	d.expectTx()
	d.walletRepo.EXPECT().GetByIDForUpdate(gomock.Any(), gomock.Any(), wallet.ID).Return(wallet, nil)
	d.entryRepo.EXPECT().GetByReference(gomock.Any(), gomock.Any(), wallet.ID, "order-1", domain.ReferenceTypeOrder).Return(nil, nil)
	d.entryRepo.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).Return(ports.ErrDuplicateKey)
	// Re-fetch runs outside the aborted transaction.
	d.entryRepo.EXPECT().GetByReference(gomock.Any(), nil, wallet.ID, "order-1", domain.ReferenceTypeOrder).Return(winner, nil)

	entry, err := d.svc.Credit(context.Background(), ports.MovementRequest{
		WalletID:      wallet.ID,
		Amount:        money.MustParse("300", "INR"),
		ReferenceType: domain.ReferenceTypeOrder,
		ReferenceID:   "order-1",
	})

	require.NoError(t, err)
	assert.Same(t, winner, entry)
}

func TestLedgerService_Credit_ForbiddenForForeignMerchant(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	wallet := activeWallet(domain.WalletTypeMain)
	otherMerchant := uuid.New()
	principal := &domain.Principal{UserID: otherMerchant, Role: domain.RoleMerchant, MerchantID: &otherMerchant}

	d.expectTx()
	d.walletRepo.EXPECT().GetByIDForUpdate(gomock.Any(), gomock.Any(), wallet.ID).Return(wallet, nil)

	_, err := d.svc.Credit(context.Background(), ports.MovementRequest{
		Principal:     principal,
		WalletID:      wallet.ID,
		Amount:        money.MustParse("10", "INR"),
		ReferenceType: domain.ReferenceTypeOrder,
		ReferenceID:   "order-1",
	})

	assert.True(t, apperror.Is(err, apperror.CodeForbidden))
}

// ==================== Debit Tests ====================

func TestLedgerService_Debit_Success(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	wallet := activeWallet(domain.WalletTypeMain)

	d.expectTx()
	d.walletRepo.EXPECT().GetByIDForUpdate(gomock.Any(), gomock.Any(), wallet.ID).Return(wallet, nil)
	d.entryRepo.EXPECT().GetByReference(gomock.Any(), gomock.Any(), wallet.ID, "refund-1", domain.ReferenceTypeRefund).Return(nil, nil)
	d.entryRepo.EXPECT().ConfirmedBalance(gomock.Any(), gomock.Any(), wallet.ID).Return(decimal.RequireFromString("1000"), nil)
	d.entryRepo.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	d.outboxRepo.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ pgx.Tx, ev *domain.OutboxEvent) error {
			assert.Equal(t, domain.EventTypeWalletDebited, ev.EventType)
			return nil
		})

	entry, err := d.svc.Debit(context.Background(), ports.MovementRequest{
		WalletID:      wallet.ID,
		Amount:        money.MustParse("250", "INR"),
		ReferenceType: domain.ReferenceTypeRefund,
		ReferenceID:   "refund-1",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.EntryTypeDebit, entry.Type)
	assert.Equal(t, domain.EntryStatusConfirmed, entry.Status)
}

func TestLedgerService_Debit_InsufficientBalance(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	wallet := activeWallet(domain.WalletTypeMain)

	d.expectTx()
	d.walletRepo.EXPECT().GetByIDForUpdate(gomock.Any(), gomock.Any(), wallet.ID).Return(wallet, nil)
	d.entryRepo.EXPECT().GetByReference(gomock.Any(), gomock.Any(), wallet.ID, "refund-1", domain.ReferenceTypeRefund).Return(nil, nil)
	d.entryRepo.EXPECT().ConfirmedBalance(gomock.Any(), gomock.Any(), wallet.ID).Return(decimal.RequireFromString("100"), nil)

	_, err := d.svc.Debit(context.Background(), ports.MovementRequest{
		WalletID:      wallet.ID,
		Amount:        money.MustParse("250", "INR"),
		ReferenceType: domain.ReferenceTypeRefund,
		ReferenceID:   "refund-1",
	})

	assert.True(t, apperror.Is(err, apperror.CodeInsufficientBalance))
}

// ==================== Reserve Tests ====================

func TestLedgerService_Reserve_CreatesPendingDebit(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	wallet := activeWallet(domain.WalletTypeVendor)

	d.expectTx()
	d.walletRepo.EXPECT().GetByIDForUpdate(gomock.Any(), gomock.Any(), wallet.ID).Return(wallet, nil)
	d.entryRepo.EXPECT().GetByReference(gomock.Any(), gomock.Any(), wallet.ID, "payout-1", domain.ReferenceTypePayout).Return(nil, nil)
	d.entryRepo.EXPECT().ConfirmedBalance(gomock.Any(), gomock.Any(), wallet.ID).Return(decimal.RequireFromString("1000"), nil)

	var created *domain.LedgerEntry
	d.entryRepo.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ pgx.Tx, e *domain.LedgerEntry) error {
			created = e
			return nil
		})

	entry, err := d.svc.Reserve(context.Background(), ports.MovementRequest{
		WalletID:    wallet.ID,
		Amount:      money.MustParse("300", "INR"),
		ReferenceID: "payout-1",
	})

	require.NoError(t, err)
	assert.Same(t, created, entry)
	assert.Equal(t, domain.EntryTypeDebit, entry.Type)
	assert.Equal(t, domain.EntryStatusPending, entry.Status)
	assert.Equal(t, domain.ReferenceTypePayout, entry.ReferenceType)
}

func TestLedgerService_Reserve_PendingReplayReturnsExisting(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	wallet := activeWallet(domain.WalletTypeVendor)
	pending := domain.NewDebit(wallet, money.MustParse("300", "INR"), domain.ReferenceTypePayout, "payout-1", domain.EntryStatusPending, "", time.Now().UTC())

	d.expectTx()
	d.walletRepo.EXPECT().GetByIDForUpdate(gomock.Any(), gomock.Any(), wallet.ID).Return(wallet, nil)
	d.entryRepo.EXPECT().GetByReference(gomock.Any(), gomock.Any(), wallet.ID, "payout-1", domain.ReferenceTypePayout).Return(pending, nil)

	entry, err := d.svc.Reserve(context.Background(), ports.MovementRequest{
		WalletID:    wallet.ID,
		Amount:      money.MustParse("300", "INR"),
		ReferenceID: "payout-1",
	})

	require.NoError(t, err)
	assert.Same(t, pending, entry)
}

func TestLedgerService_Reserve_ResolvedReferenceFails(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	wallet := activeWallet(domain.WalletTypeVendor)
	settled := domain.NewDebit(wallet, money.MustParse("300", "INR"), domain.ReferenceTypePayout, "payout-1", domain.EntryStatusConfirmed, "", time.Now().UTC())

	d.expectTx()
	d.walletRepo.EXPECT().GetByIDForUpdate(gomock.Any(), gomock.Any(), wallet.ID).Return(wallet, nil)
	d.entryRepo.EXPECT().GetByReference(gomock.Any(), gomock.Any(), wallet.ID, "payout-1", domain.ReferenceTypePayout).Return(settled, nil)

	_, err := d.svc.Reserve(context.Background(), ports.MovementRequest{
		WalletID:    wallet.ID,
		Amount:      money.MustParse("300", "INR"),
		ReferenceID: "payout-1",
	})

	assert.True(t, apperror.Is(err, apperror.CodeInvalidEntryTransition))
}

func TestLedgerService_Reserve_InsufficientBalance(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	wallet := activeWallet(domain.WalletTypeVendor)

	d.expectTx()
	d.walletRepo.EXPECT().GetByIDForUpdate(gomock.Any(), gomock.Any(), wallet.ID).Return(wallet, nil)
	d.entryRepo.EXPECT().GetByReference(gomock.Any(), gomock.Any(), wallet.ID, "payout-1", domain.ReferenceTypePayout).Return(nil, nil)
	d.entryRepo.EXPECT().ConfirmedBalance(gomock.Any(), gomock.Any(), wallet.ID).Return(decimal.RequireFromString("299.9999"), nil)

	_, err := d.svc.Reserve(context.Background(), ports.MovementRequest{
		WalletID:    wallet.ID,
		Amount:      money.MustParse("300", "INR"),
		ReferenceID: "payout-1",
	})

	assert.True(t, apperror.Is(err, apperror.CodeInsufficientBalance))
}

// ==================== Confirm Tests ====================

func TestLedgerService_Confirm_PendingToConfirmed(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	wallet := activeWallet(domain.WalletTypeVendor)
	pending := domain.NewDebit(wallet, money.MustParse("300", "INR"), domain.ReferenceTypePayout, "payout-1", domain.EntryStatusPending, "", time.Now().UTC())

	d.expectTx()
	d.entryRepo.EXPECT().GetByIDForUpdate(gomock.Any(), gomock.Any(), pending.ID).Return(pending, nil)
	d.entryRepo.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), pending.ID, domain.EntryStatusConfirmed).Return(nil)

	entry, err := d.svc.Confirm(context.Background(), nil, pending.ID)

	require.NoError(t, err)
	assert.Equal(t, domain.EntryStatusConfirmed, entry.Status)
}

func TestLedgerService_Confirm_AlreadyConfirmedIsNoOp(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	wallet := activeWallet(domain.WalletTypeVendor)
	confirmed := domain.NewDebit(wallet, money.MustParse("300", "INR"), domain.ReferenceTypePayout, "payout-1", domain.EntryStatusConfirmed, "", time.Now().UTC())

	d.expectTx()
	d.entryRepo.EXPECT().GetByIDForUpdate(gomock.Any(), gomock.Any(), confirmed.ID).Return(confirmed, nil)
	// No UpdateStatus call expected.

	entry, err := d.svc.Confirm(context.Background(), nil, confirmed.ID)

	require.NoError(t, err)
	assert.Same(t, confirmed, entry)
}

func TestLedgerService_Confirm_ReversedFails(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	wallet := activeWallet(domain.WalletTypeVendor)
	reversed := domain.NewDebit(wallet, money.MustParse("300", "INR"), domain.ReferenceTypePayout, "payout-1", domain.EntryStatusReversed, "", time.Now().UTC())

	d.expectTx()
	d.entryRepo.EXPECT().GetByIDForUpdate(gomock.Any(), gomock.Any(), reversed.ID).Return(reversed, nil)

	_, err := d.svc.Confirm(context.Background(), nil, reversed.ID)

	assert.True(t, apperror.Is(err, apperror.CodeInvalidEntryTransition))
}

func TestLedgerService_Confirm_AbsentEntry(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	entryID := uuid.New()
	d.expectTx()
	d.entryRepo.EXPECT().GetByIDForUpdate(gomock.Any(), gomock.Any(), entryID).Return(nil, nil)

	_, err := d.svc.Confirm(context.Background(), nil, entryID)

	assert.True(t, apperror.Is(err, apperror.CodeEntryNotFound))
}

// ==================== Reverse Tests ====================

func TestLedgerService_Reverse_WritesCompensatingCredit(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	wallet := activeWallet(domain.WalletTypeVendor)
	pending := domain.NewDebit(wallet, money.MustParse("300", "INR"), domain.ReferenceTypePayout, "p1", domain.EntryStatusPending, "", time.Now().UTC())

	d.expectTx()
	d.entryRepo.EXPECT().GetByIDForUpdate(gomock.Any(), gomock.Any(), pending.ID).Return(pending, nil)
	d.entryRepo.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), pending.ID, domain.EntryStatusReversed).Return(nil)

	var created *domain.LedgerEntry
	d.entryRepo.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ pgx.Tx, e *domain.LedgerEntry) error {
			created = e
			return nil
		})

	compensating, err := d.svc.Reverse(context.Background(), nil, pending.ID)

	require.NoError(t, err)
	assert.Same(t, created, compensating)
	assert.Equal(t, domain.EntryTypeCredit, compensating.Type)
	assert.Equal(t, domain.EntryStatusConfirmed, compensating.Status)
	assert.Equal(t, domain.ReferenceTypeReversal, compensating.ReferenceType)
	assert.Equal(t, "p1-reversal", compensating.ReferenceID)
	assert.True(t, compensating.Amount.Equal(pending.Amount))
	assert.Equal(t, domain.EntryStatusReversed, pending.Status)
}

func TestLedgerService_Reverse_AlreadyReversedReturnsCompensating(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	wallet := activeWallet(domain.WalletTypeVendor)
	reversed := domain.NewDebit(wallet, money.MustParse("300", "INR"), domain.ReferenceTypePayout, "p1", domain.EntryStatusReversed, "", time.Now().UTC())
	compensating := domain.NewCredit(wallet, money.MustParse("300", "INR"), domain.ReferenceTypeReversal, "p1-reversal", domain.EntryStatusConfirmed, "", time.Now().UTC())

	d.expectTx()
	d.entryRepo.EXPECT().GetByIDForUpdate(gomock.Any(), gomock.Any(), reversed.ID).Return(reversed, nil)
	d.entryRepo.EXPECT().GetByReference(gomock.Any(), gomock.Any(), wallet.ID, "p1-reversal", domain.ReferenceTypeReversal).Return(compensating, nil)

	entry, err := d.svc.Reverse(context.Background(), nil, reversed.ID)

	require.NoError(t, err)
	assert.Same(t, compensating, entry)
}

func TestLedgerService_Reverse_ConfirmedFails(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	wallet := activeWallet(domain.WalletTypeVendor)
	confirmed := domain.NewDebit(wallet, money.MustParse("300", "INR"), domain.ReferenceTypePayout, "p1", domain.EntryStatusConfirmed, "", time.Now().UTC())

	d.expectTx()
	d.entryRepo.EXPECT().GetByIDForUpdate(gomock.Any(), gomock.Any(), confirmed.ID).Return(confirmed, nil)

	_, err := d.svc.Reverse(context.Background(), nil, confirmed.ID)

	assert.True(t, apperror.Is(err, apperror.CodeInvalidEntryTransition))
}

// ==================== Transfer Tests ====================

func TestLedgerService_Transfer_SplitsAcrossLegs(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	escrow := activeWallet(domain.WalletTypeEscrow)
	vendor := domain.NewVendorWallet(escrow.MerchantID, uuid.New(), money.Currency("INR"), time.Now().UTC())
	main := domain.NewMerchantWallet(escrow.MerchantID, domain.WalletTypeMain, money.Currency("INR"), time.Now().UTC())

	d.expectTx()
	d.walletRepo.EXPECT().GetByIDForUpdate(gomock.Any(), gomock.Any(), escrow.ID).Return(escrow, nil)
	d.entryRepo.EXPECT().GetByReference(gomock.Any(), gomock.Any(), escrow.ID, "order-9", domain.ReferenceTypeOrder).Return(nil, nil)
	d.entryRepo.EXPECT().ConfirmedBalance(gomock.Any(), gomock.Any(), escrow.ID).Return(decimal.RequireFromString("500"), nil)

	var entries []*domain.LedgerEntry
	d.entryRepo.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ pgx.Tx, e *domain.LedgerEntry) error {
			entries = append(entries, e)
			return nil
		}).Times(3)
	d.outboxRepo.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(3)
	d.walletRepo.EXPECT().GetByIDForUpdate(gomock.Any(), gomock.Any(), vendor.ID).Return(vendor, nil)
	d.walletRepo.EXPECT().GetByIDForUpdate(gomock.Any(), gomock.Any(), main.ID).Return(main, nil)

	result, err := d.svc.Transfer(context.Background(), ports.TransferRequest{
		FromWalletID: escrow.ID,
		ReferenceID:  "order-9",
		TotalAmount:  money.MustParse("500", "INR"),
		Legs: []ports.TransferLeg{
			{ToWalletID: vendor.ID, Amount: money.MustParse("400", "INR")},
			{ToWalletID: main.ID, Amount: money.MustParse("100", "INR")},
		},
	})

	require.NoError(t, err)
	assert.False(t, result.Reused)
	require.Len(t, entries, 3)

	debit := entries[0]
	assert.Equal(t, domain.EntryTypeDebit, debit.Type)
	assert.Equal(t, escrow.ID, debit.WalletID)
	assert.True(t, debit.Amount.Equal(money.MustParse("500", "INR")))

	require.Len(t, result.CreditEntries, 2)
	for _, credit := range result.CreditEntries {
		assert.Equal(t, domain.EntryTypeCredit, credit.Type)
		assert.Equal(t, "order-9", credit.ReferenceID)
		assert.Equal(t, domain.ReferenceTypeOrder, credit.ReferenceType)
		assert.Equal(t, domain.EntryStatusConfirmed, credit.Status)
	}
	assert.Equal(t, vendor.ID, result.CreditEntries[0].WalletID)
	assert.Equal(t, main.ID, result.CreditEntries[1].WalletID)
}

func TestLedgerService_Transfer_TotalMismatchFailsBeforeWrite(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	_, err := d.svc.Transfer(context.Background(), ports.TransferRequest{
		FromWalletID: uuid.New(),
		ReferenceID:  "order-9",
		TotalAmount:  money.MustParse("500", "INR"),
		Legs: []ports.TransferLeg{
			{ToWalletID: uuid.New(), Amount: money.MustParse("400", "INR")},
			{ToWalletID: uuid.New(), Amount: money.MustParse("99", "INR")},
		},
	})

	assert.True(t, apperror.Is(err, apperror.CodeValidation))
}

func TestLedgerService_Transfer_IdempotentReplayReportsReused(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	escrow := activeWallet(domain.WalletTypeEscrow)
	existing := domain.NewDebit(escrow, money.MustParse("500", "INR"), domain.ReferenceTypeOrder, "order-9", domain.EntryStatusConfirmed, "", time.Now().UTC())

	d.expectTx()
	d.walletRepo.EXPECT().GetByIDForUpdate(gomock.Any(), gomock.Any(), escrow.ID).Return(escrow, nil)
	d.entryRepo.EXPECT().GetByReference(gomock.Any(), gomock.Any(), escrow.ID, "order-9", domain.ReferenceTypeOrder).Return(existing, nil)

	result, err := d.svc.Transfer(context.Background(), ports.TransferRequest{
		FromWalletID: escrow.ID,
		ReferenceID:  "order-9",
		TotalAmount:  money.MustParse("500", "INR"),
		Legs: []ports.TransferLeg{
			{ToWalletID: uuid.New(), Amount: money.MustParse("500", "INR")},
		},
	})

	require.NoError(t, err)
	assert.True(t, result.Reused)
	assert.Same(t, existing, result.DebitEntry)
	assert.Empty(t, result.CreditEntries)
}

func TestLedgerService_Transfer_InsufficientSourceBalance(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	escrow := activeWallet(domain.WalletTypeEscrow)

	d.expectTx()
	d.walletRepo.EXPECT().GetByIDForUpdate(gomock.Any(), gomock.Any(), escrow.ID).Return(escrow, nil)
	d.entryRepo.EXPECT().GetByReference(gomock.Any(), gomock.Any(), escrow.ID, "order-9", domain.ReferenceTypeOrder).Return(nil, nil)
	d.entryRepo.EXPECT().ConfirmedBalance(gomock.Any(), gomock.Any(), escrow.ID).Return(decimal.RequireFromString("499"), nil)

	_, err := d.svc.Transfer(context.Background(), ports.TransferRequest{
		FromWalletID: escrow.ID,
		ReferenceID:  "order-9",
		TotalAmount:  money.MustParse("500", "INR"),
		Legs: []ports.TransferLeg{
			{ToWalletID: uuid.New(), Amount: money.MustParse("500", "INR")},
		},
	})

	assert.True(t, apperror.Is(err, apperror.CodeInsufficientBalance))
}

// ==================== Balance Tests ====================

func TestLedgerService_Balance(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	wallet := activeWallet(domain.WalletTypeEscrow)
	d.walletRepo.EXPECT().GetByID(gomock.Any(), wallet.ID).Return(wallet, nil)
	d.entryRepo.EXPECT().ConfirmedBalance(gomock.Any(), nil, wallet.ID).Return(decimal.RequireFromString("700"), nil)

	result, err := d.svc.Balance(context.Background(), merchantPrincipal(wallet), wallet.ID)

	require.NoError(t, err)
	assert.True(t, result.Balance.Equal(money.MustParse("700", "INR")))
	assert.Equal(t, wallet.Status, result.Status)
}

func TestLedgerService_Balance_VendorCannotReadForeignWallet(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	wallet := activeWallet(domain.WalletTypeMain)
	vendorID := uuid.New()
	principal := &domain.Principal{UserID: vendorID, Role: domain.RoleVendor, MerchantID: &wallet.MerchantID}

	d.walletRepo.EXPECT().GetByID(gomock.Any(), wallet.ID).Return(wallet, nil)

	_, err := d.svc.Balance(context.Background(), principal, wallet.ID)

	assert.True(t, apperror.Is(err, apperror.CodeForbidden))
}

// ==================== ListEntries Tests ====================

func TestLedgerService_ListEntries_ScopesNonAdminToOwnMerchant(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	merchantID := uuid.New()
	principal := &domain.Principal{UserID: merchantID, Role: domain.RoleMerchant, MerchantID: &merchantID}
	foreign := uuid.New()

	d.entryRepo.EXPECT().List(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, params ports.EntryListParams) ([]domain.LedgerEntry, int64, error) {
			require.NotNil(t, params.MerchantID)
			assert.Equal(t, merchantID, *params.MerchantID)
			return nil, 0, nil
		})

	_, _, err := d.svc.ListEntries(context.Background(), principal, ports.EntryListParams{MerchantID: &foreign})
	require.NoError(t, err)
}

func TestLedgerService_Settlement_Reconciled(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	merchantID := uuid.New()
	principal := &domain.Principal{UserID: merchantID, Role: domain.RoleMerchant, MerchantID: &merchantID}
	escrow := activeWallet(domain.WalletTypeEscrow)
	escrow.MerchantID = merchantID

	d.walletRepo.EXPECT().
		GetByTypeKey(gomock.Any(), merchantID, money.Currency("INR"), domain.WalletTypeEscrow, nil).
		Return(escrow, nil)
	d.entryRepo.EXPECT().ConfirmedSum(gomock.Any(), escrow.ID, domain.EntryTypeCredit, nil).
		Return(decimal.RequireFromString("1000"), nil)
	d.entryRepo.EXPECT().ConfirmedSum(gomock.Any(), escrow.ID, domain.EntryTypeDebit, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, _ domain.EntryType, refType *domain.ReferenceType) (decimal.Decimal, error) {
			if *refType == domain.ReferenceTypePayout {
				return decimal.RequireFromString("300"), nil
			}
			return decimal.RequireFromString("50"), nil
		}).Times(2)
	d.entryRepo.EXPECT().ConfirmedBalance(gomock.Any(), nil, escrow.ID).
		Return(decimal.RequireFromString("650"), nil)

	result, err := d.svc.Settlement(context.Background(), principal, merchantID, money.Currency("INR"))

	require.NoError(t, err)
	assert.True(t, result.Reconciled)
	assert.Equal(t, "650", result.ExpectedBalance.String())
	assert.Equal(t, "650", result.LedgerNetBalance.String())
	require.NotNil(t, result.EscrowWalletID)
	assert.Equal(t, escrow.ID, *result.EscrowWalletID)
}

func TestLedgerService_Settlement_Mismatch(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	merchantID := uuid.New()
	escrow := activeWallet(domain.WalletTypeEscrow)
	escrow.MerchantID = merchantID

	d.walletRepo.EXPECT().
		GetByTypeKey(gomock.Any(), merchantID, money.Currency("INR"), domain.WalletTypeEscrow, nil).
		Return(escrow, nil)
	d.entryRepo.EXPECT().ConfirmedSum(gomock.Any(), escrow.ID, domain.EntryTypeCredit, nil).
		Return(decimal.RequireFromString("1000"), nil)
	d.entryRepo.EXPECT().ConfirmedSum(gomock.Any(), escrow.ID, domain.EntryTypeDebit, gomock.Any()).
		Return(decimal.RequireFromString("100"), nil).Times(2)
	d.entryRepo.EXPECT().ConfirmedBalance(gomock.Any(), nil, escrow.ID).
		Return(decimal.RequireFromString("750"), nil)

	adminPrincipal := &domain.Principal{UserID: uuid.New(), Role: domain.RoleAdmin}
	result, err := d.svc.Settlement(context.Background(), adminPrincipal, merchantID, money.Currency("INR"))

	require.NoError(t, err)
	assert.False(t, result.Reconciled)
	assert.Equal(t, "800", result.ExpectedBalance.String())
	assert.Equal(t, "750", result.LedgerNetBalance.String())
}

func TestLedgerService_Settlement_NoEscrowWallet(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	merchantID := uuid.New()
	d.walletRepo.EXPECT().
		GetByTypeKey(gomock.Any(), merchantID, money.Currency("USD"), domain.WalletTypeEscrow, nil).
		Return(nil, nil)

	adminPrincipal := &domain.Principal{UserID: uuid.New(), Role: domain.RoleAdmin}
	result, err := d.svc.Settlement(context.Background(), adminPrincipal, merchantID, money.Currency("USD"))

	require.NoError(t, err)
	assert.True(t, result.Reconciled)
	assert.Nil(t, result.EscrowWalletID)
	assert.True(t, result.ConfirmedCredits.IsZero())
}

func TestLedgerService_Settlement_OtherMerchantForbidden(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	callerID := uuid.New()
	principal := &domain.Principal{UserID: callerID, Role: domain.RoleMerchant, MerchantID: &callerID}

	_, err := d.svc.Settlement(context.Background(), principal, uuid.New(), money.Currency("INR"))

	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeForbidden))
}
