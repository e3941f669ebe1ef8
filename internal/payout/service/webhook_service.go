package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/TrulyGourav/OrchexPay/internal/payout/domain"
	"github.com/TrulyGourav/OrchexPay/internal/payout/ports"
	"github.com/TrulyGourav/OrchexPay/pkg/apperror"
	"github.com/TrulyGourav/OrchexPay/pkg/money"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	walletTypeEscrow = "ESCROW"
	walletTypeVendor = "VENDOR"
	walletTypeMain   = "MAIN"
)

// WebhookServiceImpl handles the three inbound webhooks: payment captured,
// order completed, and the bank's payout verdict. Each handler is safe to
// replay; the ledger-side idempotency keys are derived from the order id so a
// redelivered webhook converges on the first delivery's effect.
type WebhookServiceImpl struct {
	orderRepo  ports.PendingOrderRepository
	ledger     ports.LedgerClient
	payoutSvc  ports.PayoutService
	commission decimal.Decimal
	log        zerolog.Logger
}

// NewWebhookService creates the webhook service. commissionPercent is the
// platform's cut of each order, e.g. "10" for ten percent.
func NewWebhookService(orderRepo ports.PendingOrderRepository, ledger ports.LedgerClient, payoutSvc ports.PayoutService, commissionPercent string, log zerolog.Logger) (*WebhookServiceImpl, error) {
	commission, err := decimal.NewFromString(commissionPercent)
	if err != nil {
		return nil, fmt.Errorf("invalid commission percent %q: %w", commissionPercent, err)
	}
	if commission.IsNegative() || commission.GreaterThan(decimal.NewFromInt(100)) {
		return nil, fmt.Errorf("commission percent must be between 0 and 100, got %s", commissionPercent)
	}
	return &WebhookServiceImpl{
		orderRepo:  orderRepo,
		ledger:     ledger,
		payoutSvc:  payoutSvc,
		commission: commission,
		log:        log,
	}, nil
}

// PaymentSucceeded credits the merchant's escrow wallet with the captured
// amount and records a pending order. Redelivery returns the stored order
// without touching the ledger again.
func (s *WebhookServiceImpl) PaymentSucceeded(ctx context.Context, req ports.PaymentSucceededRequest) (*domain.PendingOrder, error) {
	if req.OrderID == "" {
		return nil, apperror.Validation("order_id is required")
	}
	if req.Amount.IsZero() {
		return nil, apperror.Validation("payment amount must be positive")
	}

	existing, err := s.orderRepo.GetByOrderID(ctx, req.MerchantID, req.OrderID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if existing != nil {
		s.log.Info().
			Str("order_id", req.OrderID).
			Str("merchant_id", req.MerchantID.String()).
			Msg("payment webhook replayed")
		return existing, nil
	}

	escrow, err := s.ledger.ResolveWallet(ctx, ports.ResolveWalletRequest{
		MerchantID: req.MerchantID,
		Currency:   req.Amount.Currency().String(),
		WalletType: walletTypeEscrow,
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.ledger.Credit(ctx, ports.LedgerMovementRequest{
		WalletID:       escrow.ID,
		Amount:         req.Amount,
		ReferenceType:  "ORDER",
		ReferenceID:    req.OrderID,
		Description:    fmt.Sprintf("payment captured for order %s", req.OrderID),
		IdempotencyKey: req.OrderID + "-payment",
	}); err != nil {
		return nil, err
	}

	order := domain.NewPendingOrder(req.MerchantID, req.VendorID, req.OrderID, req.Amount, time.Now())
	if err := s.orderRepo.Create(ctx, order); err != nil {
		if errors.Is(err, ports.ErrDuplicateKey) {
			winner, ferr := s.orderRepo.GetByOrderID(ctx, req.MerchantID, req.OrderID)
			if ferr != nil {
				return nil, apperror.InternalError(ferr)
			}
			if winner != nil {
				return winner, nil
			}
		}
		return nil, apperror.InternalError(err)
	}

	s.log.Info().
		Str("order_id", req.OrderID).
		Str("amount", req.Amount.StringAmount()).
		Msg("payment captured into escrow")
	return order, nil
}

// OrderCompleted splits the escrowed order amount between the vendor's wallet
// and the platform's main wallet according to the commission rate, as a single
// atomic transfer out of escrow. A replay after the split returns the stored
// amounts with Reused set.
func (s *WebhookServiceImpl) OrderCompleted(ctx context.Context, req ports.OrderCompletedRequest) (*ports.OrderSplitResult, error) {
	order, err := s.orderRepo.GetByOrderID(ctx, req.MerchantID, req.OrderID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if order == nil {
		return nil, apperror.ErrOrderNotFound(req.OrderID)
	}

	vendorAmount, platformAmount, err := s.split(order.Amount)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	if order.SplitDone {
		return &ports.OrderSplitResult{
			Order:          order,
			VendorAmount:   vendorAmount,
			PlatformAmount: platformAmount,
			Reused:         true,
		}, nil
	}

	currency := order.Amount.Currency().String()
	vendorWallet, err := s.ledger.ResolveWallet(ctx, ports.ResolveWalletRequest{
		MerchantID:   order.MerchantID,
		Currency:     currency,
		WalletType:   walletTypeVendor,
		VendorUserID: &order.VendorID,
	})
	if err != nil {
		return nil, err
	}
	mainWallet, err := s.ledger.ResolveWallet(ctx, ports.ResolveWalletRequest{
		MerchantID: order.MerchantID,
		Currency:   currency,
		WalletType: walletTypeMain,
	})
	if err != nil {
		return nil, err
	}
	escrow, err := s.ledger.ResolveWallet(ctx, ports.ResolveWalletRequest{
		MerchantID: order.MerchantID,
		Currency:   currency,
		WalletType: walletTypeEscrow,
	})
	if err != nil {
		return nil, err
	}

	legs := []ports.LedgerTransferLeg{
		{ToWalletID: vendorWallet.ID, Amount: vendorAmount},
	}
	if !platformAmount.IsZero() {
		legs = append(legs, ports.LedgerTransferLeg{ToWalletID: mainWallet.ID, Amount: platformAmount})
	}

	if _, err := s.ledger.Transfer(ctx, ports.LedgerTransferRequest{
		FromWalletID:   escrow.ID,
		ReferenceID:    req.OrderID + "-split",
		TotalAmount:    order.Amount,
		Description:    fmt.Sprintf("settlement split for order %s", req.OrderID),
		Legs:           legs,
		IdempotencyKey: req.OrderID + "-split",
	}); err != nil {
		return nil, err
	}

	if err := s.orderRepo.MarkSplitDone(ctx, order.ID); err != nil {
		return nil, apperror.InternalError(err)
	}
	order.SplitDone = true

	s.log.Info().
		Str("order_id", req.OrderID).
		Str("vendor_amount", vendorAmount.StringAmount()).
		Str("platform_amount", platformAmount.StringAmount()).
		Msg("order settled and split")
	return &ports.OrderSplitResult{
		Order:          order,
		VendorAmount:   vendorAmount,
		PlatformAmount: platformAmount,
	}, nil
}

// BankOutcome converts the bank's verdict into the corresponding saga step.
func (s *WebhookServiceImpl) BankOutcome(ctx context.Context, req ports.BankOutcomeRequest) (*domain.Payout, error) {
	action := ports.PayoutActionRequest{
		PayoutID:       req.PayoutID,
		IdempotencyKey: req.IdempotencyKey,
	}
	if req.Success {
		return s.payoutSvc.ConfirmPayout(ctx, action)
	}
	return s.payoutSvc.ReversePayout(ctx, action)
}

// split computes the platform's commission on the order total, rounded to the
// money scale, and gives the remainder to the vendor so the legs always sum
// to the original amount.
func (s *WebhookServiceImpl) split(total money.Money) (vendor, platform money.Money, err error) {
	cut := total.Amount().Mul(s.commission).Div(decimal.NewFromInt(100)).Round(money.Scale)
	platform, err = money.New(cut, total.Currency())
	if err != nil {
		return money.Money{}, money.Money{}, err
	}
	vendor, err = total.Sub(platform)
	if err != nil {
		return money.Money{}, money.Money{}, err
	}
	return vendor, platform, nil
}
