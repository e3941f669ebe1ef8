package service

import (
	"context"
	"testing"
	"time"

	"github.com/TrulyGourav/OrchexPay/internal/payout/domain"
	"github.com/TrulyGourav/OrchexPay/internal/payout/ports"
	"github.com/TrulyGourav/OrchexPay/internal/payout/ports/mocks"
	"github.com/TrulyGourav/OrchexPay/pkg/apperror"
	"github.com/TrulyGourav/OrchexPay/pkg/money"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type webhookTestDeps struct {
	svc       *WebhookServiceImpl
	orderRepo *mocks.MockPendingOrderRepository
	ledger    *mocks.MockLedgerClient
	payoutSvc *mocks.MockPayoutService
}

func setupWebhookService(t *testing.T, commissionPercent string) *webhookTestDeps {
	ctrl := gomock.NewController(t)
	d := &webhookTestDeps{
		orderRepo: mocks.NewMockPendingOrderRepository(ctrl),
		ledger:    mocks.NewMockLedgerClient(ctrl),
		payoutSvc: mocks.NewMockPayoutService(ctrl),
	}
	svc, err := NewWebhookService(d.orderRepo, d.ledger, d.payoutSvc, commissionPercent, zerolog.Nop())
	require.NoError(t, err)
	d.svc = svc
	return d
}

func TestNewWebhookService_RejectsBadCommission(t *testing.T) {
	orderRepo := mocks.NewMockPendingOrderRepository(gomock.NewController(t))

	_, err := NewWebhookService(orderRepo, nil, nil, "percentish", zerolog.Nop())
	assert.Error(t, err)

	_, err = NewWebhookService(orderRepo, nil, nil, "150", zerolog.Nop())
	assert.Error(t, err)

	_, err = NewWebhookService(orderRepo, nil, nil, "-1", zerolog.Nop())
	assert.Error(t, err)
}

func TestPaymentSucceeded_CreditsEscrow(t *testing.T) {
	d := setupWebhookService(t, "10")
	ctx := context.Background()

	merchantID := uuid.New()
	vendorID := uuid.New()
	escrowID := uuid.New()
	amount := money.MustParse("500.00", "USD")

	d.orderRepo.EXPECT().GetByOrderID(ctx, merchantID, "order-42").Return(nil, nil)
	d.ledger.EXPECT().ResolveWallet(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, req ports.ResolveWalletRequest) (*ports.LedgerWallet, error) {
			assert.Equal(t, merchantID, req.MerchantID)
			assert.Equal(t, "ESCROW", req.WalletType)
			assert.Equal(t, "USD", req.Currency)
			return &ports.LedgerWallet{ID: escrowID, MerchantID: merchantID, WalletType: "ESCROW", Currency: "USD"}, nil
		})
	d.ledger.EXPECT().Credit(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, req ports.LedgerMovementRequest) (*ports.LedgerEntry, error) {
			assert.Equal(t, escrowID, req.WalletID)
			assert.Equal(t, "ORDER", req.ReferenceType)
			assert.Equal(t, "order-42", req.ReferenceID)
			assert.Equal(t, "order-42-payment", req.IdempotencyKey)
			return &ports.LedgerEntry{ID: uuid.New(), WalletID: escrowID, Type: "CREDIT", Amount: amount, Status: "CONFIRMED"}, nil
		})
	d.orderRepo.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, o *domain.PendingOrder) error {
			assert.Equal(t, "order-42", o.OrderID)
			assert.False(t, o.SplitDone)
			return nil
		})

	order, err := d.svc.PaymentSucceeded(ctx, ports.PaymentSucceededRequest{
		MerchantID: merchantID,
		VendorID:   vendorID,
		OrderID:    "order-42",
		Amount:     amount,
	})
	require.NoError(t, err)
	assert.Equal(t, vendorID, order.VendorID)
}

func TestPaymentSucceeded_RedeliveryReturnsStoredOrder(t *testing.T) {
	d := setupWebhookService(t, "10")
	ctx := context.Background()

	merchantID := uuid.New()
	existing := domain.NewPendingOrder(merchantID, uuid.New(), "order-42", money.MustParse("500.00", "USD"), time.Now())

	// No ledger credit reaches the ledger on redelivery.
	d.orderRepo.EXPECT().GetByOrderID(ctx, merchantID, "order-42").Return(existing, nil)

	order, err := d.svc.PaymentSucceeded(ctx, ports.PaymentSucceededRequest{
		MerchantID: merchantID,
		VendorID:   existing.VendorID,
		OrderID:    "order-42",
		Amount:     existing.Amount,
	})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, order.ID)
}

func TestOrderCompleted_SplitsEscrow(t *testing.T) {
	d := setupWebhookService(t, "10")
	ctx := context.Background()

	merchantID := uuid.New()
	vendorID := uuid.New()
	escrowID := uuid.New()
	vendorWalletID := uuid.New()
	mainWalletID := uuid.New()
	order := domain.NewPendingOrder(merchantID, vendorID, "order-42", money.MustParse("500.00", "USD"), time.Now())

	d.orderRepo.EXPECT().GetByOrderID(ctx, merchantID, "order-42").Return(order, nil)
	d.ledger.EXPECT().ResolveWallet(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, req ports.ResolveWalletRequest) (*ports.LedgerWallet, error) {
			switch req.WalletType {
			case "VENDOR":
				require.NotNil(t, req.VendorUserID)
				assert.Equal(t, vendorID, *req.VendorUserID)
				return &ports.LedgerWallet{ID: vendorWalletID, WalletType: "VENDOR"}, nil
			case "MAIN":
				return &ports.LedgerWallet{ID: mainWalletID, WalletType: "MAIN"}, nil
			case "ESCROW":
				return &ports.LedgerWallet{ID: escrowID, WalletType: "ESCROW"}, nil
			}
			t.Fatalf("unexpected wallet type %s", req.WalletType)
			return nil, nil
		}).Times(3)
	d.ledger.EXPECT().Transfer(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, req ports.LedgerTransferRequest) (*ports.LedgerTransferResult, error) {
			assert.Equal(t, escrowID, req.FromWalletID)
			assert.Equal(t, "order-42-split", req.ReferenceID)
			assert.Equal(t, "order-42-split", req.IdempotencyKey)
			assert.Equal(t, "500.0000", req.TotalAmount.StringAmount())
			require.Len(t, req.Legs, 2)
			assert.Equal(t, vendorWalletID, req.Legs[0].ToWalletID)
			assert.Equal(t, "450.0000", req.Legs[0].Amount.StringAmount())
			assert.Equal(t, mainWalletID, req.Legs[1].ToWalletID)
			assert.Equal(t, "50.0000", req.Legs[1].Amount.StringAmount())
			return &ports.LedgerTransferResult{}, nil
		})
	d.orderRepo.EXPECT().MarkSplitDone(ctx, order.ID).Return(nil)

	result, err := d.svc.OrderCompleted(ctx, ports.OrderCompletedRequest{MerchantID: merchantID, OrderID: "order-42"})
	require.NoError(t, err)
	assert.False(t, result.Reused)
	assert.True(t, result.Order.SplitDone)
	assert.Equal(t, "450.0000", result.VendorAmount.StringAmount())
	assert.Equal(t, "50.0000", result.PlatformAmount.StringAmount())
}

func TestOrderCompleted_ZeroCommissionSingleLeg(t *testing.T) {
	d := setupWebhookService(t, "0")
	ctx := context.Background()

	merchantID := uuid.New()
	order := domain.NewPendingOrder(merchantID, uuid.New(), "order-7", money.MustParse("100.00", "USD"), time.Now())

	d.orderRepo.EXPECT().GetByOrderID(ctx, merchantID, "order-7").Return(order, nil)
	d.ledger.EXPECT().ResolveWallet(ctx, gomock.Any()).Return(&ports.LedgerWallet{ID: uuid.New()}, nil).Times(3)
	d.ledger.EXPECT().Transfer(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, req ports.LedgerTransferRequest) (*ports.LedgerTransferResult, error) {
			require.Len(t, req.Legs, 1)
			assert.Equal(t, "100.0000", req.Legs[0].Amount.StringAmount())
			return &ports.LedgerTransferResult{}, nil
		})
	d.orderRepo.EXPECT().MarkSplitDone(ctx, order.ID).Return(nil)

	result, err := d.svc.OrderCompleted(ctx, ports.OrderCompletedRequest{MerchantID: merchantID, OrderID: "order-7"})
	require.NoError(t, err)
	assert.True(t, result.PlatformAmount.IsZero())
}

func TestOrderCompleted_ReplayAfterSplit(t *testing.T) {
	d := setupWebhookService(t, "10")
	ctx := context.Background()

	merchantID := uuid.New()
	order := domain.NewPendingOrder(merchantID, uuid.New(), "order-42", money.MustParse("500.00", "USD"), time.Now())
	order.SplitDone = true

	// No transfer reaches the ledger on replay.
	d.orderRepo.EXPECT().GetByOrderID(ctx, merchantID, "order-42").Return(order, nil)

	result, err := d.svc.OrderCompleted(ctx, ports.OrderCompletedRequest{MerchantID: merchantID, OrderID: "order-42"})
	require.NoError(t, err)
	assert.True(t, result.Reused)
	assert.Equal(t, "450.0000", result.VendorAmount.StringAmount())
	assert.Equal(t, "50.0000", result.PlatformAmount.StringAmount())
}

func TestOrderCompleted_UnknownOrder(t *testing.T) {
	d := setupWebhookService(t, "10")
	ctx := context.Background()

	merchantID := uuid.New()
	d.orderRepo.EXPECT().GetByOrderID(ctx, merchantID, "ghost").Return(nil, nil)

	_, err := d.svc.OrderCompleted(ctx, ports.OrderCompletedRequest{MerchantID: merchantID, OrderID: "ghost"})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeOrderNotFound))
}

func TestBankOutcome_Dispatch(t *testing.T) {
	d := setupWebhookService(t, "10")
	ctx := context.Background()

	payoutID := uuid.New()
	settled := testPayout(domain.PayoutStatusSettled)

	d.payoutSvc.EXPECT().ConfirmPayout(ctx, ports.PayoutActionRequest{PayoutID: payoutID, IdempotencyKey: "bank-1"}).Return(settled, nil)
	got, err := d.svc.BankOutcome(ctx, ports.BankOutcomeRequest{PayoutID: payoutID, Success: true, IdempotencyKey: "bank-1"})
	require.NoError(t, err)
	assert.Equal(t, domain.PayoutStatusSettled, got.Status)

	failed := testPayout(domain.PayoutStatusFailed)
	d.payoutSvc.EXPECT().ReversePayout(ctx, ports.PayoutActionRequest{PayoutID: payoutID, IdempotencyKey: "bank-2"}).Return(failed, nil)
	got, err = d.svc.BankOutcome(ctx, ports.BankOutcomeRequest{PayoutID: payoutID, Success: false, IdempotencyKey: "bank-2"})
	require.NoError(t, err)
	assert.Equal(t, domain.PayoutStatusFailed, got.Status)
}
