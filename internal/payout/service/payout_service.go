package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/TrulyGourav/OrchexPay/internal/payout/domain"
	"github.com/TrulyGourav/OrchexPay/internal/payout/ports"
	"github.com/TrulyGourav/OrchexPay/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PayoutServiceImpl drives the payout saga. The ledger is reached only
// through the LedgerClient port; the unique idempotency_key constraint on the
// payouts table arbitrates concurrent creation races.
type PayoutServiceImpl struct {
	payoutRepo ports.PayoutRepository
	ledger     ports.LedgerClient
	log        zerolog.Logger
}

// NewPayoutService creates the payout saga service.
func NewPayoutService(payoutRepo ports.PayoutRepository, ledger ports.LedgerClient, log zerolog.Logger) *PayoutServiceImpl {
	return &PayoutServiceImpl{
		payoutRepo: payoutRepo,
		ledger:     ledger,
		log:        log,
	}
}

// RequestPayout creates a payout and reserves funds on the vendor wallet.
// A replay with a known idempotency key returns the stored payout unchanged;
// no new reserve reaches the ledger.
func (s *PayoutServiceImpl) RequestPayout(ctx context.Context, req ports.RequestPayoutRequest) (*domain.Payout, error) {
	if req.IdempotencyKey == "" {
		return nil, apperror.ErrIdempotencyKeyRequired()
	}
	if req.Amount.IsZero() {
		return nil, apperror.Validation("payout amount must be positive")
	}

	existing, err := s.payoutRepo.GetByIdempotencyKey(ctx, req.IdempotencyKey)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if existing != nil {
		s.log.Info().
			Str("payout_id", existing.ID.String()).
			Str("idempotency_key", req.IdempotencyKey).
			Msg("payout request replayed")
		return existing, nil
	}

	payout := domain.NewPayout(req.MerchantID, req.VendorID, req.VendorWalletID, req.Amount, req.IdempotencyKey, time.Now())
	if err := s.payoutRepo.Create(ctx, payout); err != nil {
		if errors.Is(err, ports.ErrDuplicateKey) {
			// Lost the creation race; the winner's payout is the answer.
			winner, ferr := s.payoutRepo.GetByIdempotencyKey(ctx, req.IdempotencyKey)
			if ferr != nil {
				return nil, apperror.InternalError(ferr)
			}
			if winner != nil {
				return winner, nil
			}
		}
		return nil, apperror.InternalError(err)
	}

	// Reserve funds under a derived ledger-side key: the reserve call may be
	// retried independently of payout creation.
	entry, err := s.ledger.Reserve(ctx, ports.LedgerMovementRequest{
		WalletID:       req.VendorWalletID,
		Amount:         req.Amount,
		ReferenceType:  "PAYOUT",
		ReferenceID:    payout.ID.String(),
		Description:    fmt.Sprintf("payout %s", payout.ID),
		IdempotencyKey: domain.ReserveLedgerKey(req.IdempotencyKey),
		Bearer:         req.Bearer,
	})
	if err != nil {
		s.log.Warn().Err(err).
			Str("payout_id", payout.ID.String()).
			Msg("payout reserve failed")
		return nil, err
	}

	payout.LedgerEntryID = &entry.ID
	payout.Status = domain.PayoutStatusProcessing
	payout.UpdatedAt = time.Now()
	if err := s.payoutRepo.Update(ctx, payout); err != nil {
		return nil, apperror.InternalError(err)
	}

	s.log.Info().
		Str("payout_id", payout.ID.String()).
		Str("vendor_wallet_id", req.VendorWalletID.String()).
		Str("amount", req.Amount.StringAmount()).
		Str("ledger_entry_id", entry.ID.String()).
		Msg("payout requested and funds reserved")
	return payout, nil
}

// ConfirmPayout settles a payout after the bank accepted it. Already-SETTLED
// is an idempotent no-op; the ledger is not called again.
func (s *PayoutServiceImpl) ConfirmPayout(ctx context.Context, req ports.PayoutActionRequest) (*domain.Payout, error) {
	payout, err := s.getPayout(ctx, req.PayoutID)
	if err != nil {
		return nil, err
	}

	if payout.Status == domain.PayoutStatusSettled {
		return payout, nil
	}
	if payout.LedgerEntryID == nil {
		return nil, apperror.ErrPayoutNotReserved(payout.ID.String())
	}
	if !payout.Status.CanTransitionTo(domain.PayoutStatusSettled) {
		return nil, apperror.ErrInvalidPayoutTransition(
			fmt.Sprintf("payout %s cannot settle from %s", payout.ID, payout.Status))
	}

	if _, err := s.ledger.Confirm(ctx, ports.EntryActionRequest{
		EntryID:        *payout.LedgerEntryID,
		IdempotencyKey: req.IdempotencyKey,
		Bearer:         req.Bearer,
	}); err != nil {
		return nil, err
	}

	payout.Status = domain.PayoutStatusSettled
	payout.UpdatedAt = time.Now()
	if err := s.payoutRepo.Update(ctx, payout); err != nil {
		return nil, apperror.InternalError(err)
	}

	s.log.Info().Str("payout_id", payout.ID.String()).Msg("payout settled")
	return payout, nil
}

// ReversePayout releases reserved funds after the bank rejected the payout.
// Already-FAILED is an idempotent no-op.
func (s *PayoutServiceImpl) ReversePayout(ctx context.Context, req ports.PayoutActionRequest) (*domain.Payout, error) {
	payout, err := s.getPayout(ctx, req.PayoutID)
	if err != nil {
		return nil, err
	}

	if payout.Status == domain.PayoutStatusFailed {
		return payout, nil
	}
	if payout.LedgerEntryID == nil {
		return nil, apperror.ErrPayoutNotReserved(payout.ID.String())
	}
	if !payout.Status.CanTransitionTo(domain.PayoutStatusFailed) {
		return nil, apperror.ErrInvalidPayoutTransition(
			fmt.Sprintf("payout %s cannot fail from %s", payout.ID, payout.Status))
	}

	if _, err := s.ledger.Reverse(ctx, ports.EntryActionRequest{
		EntryID:        *payout.LedgerEntryID,
		IdempotencyKey: req.IdempotencyKey,
		Bearer:         req.Bearer,
	}); err != nil {
		return nil, err
	}

	payout.Status = domain.PayoutStatusFailed
	payout.UpdatedAt = time.Now()
	if err := s.payoutRepo.Update(ctx, payout); err != nil {
		return nil, apperror.InternalError(err)
	}

	s.log.Info().Str("payout_id", payout.ID.String()).Msg("payout reversed")
	return payout, nil
}

// GetPayout returns one payout by id.
func (s *PayoutServiceImpl) GetPayout(ctx context.Context, id uuid.UUID) (*domain.Payout, error) {
	return s.getPayout(ctx, id)
}

// ListByMerchant returns the merchant's payouts, newest first.
func (s *PayoutServiceImpl) ListByMerchant(ctx context.Context, merchantID uuid.UUID) ([]domain.Payout, error) {
	payouts, err := s.payoutRepo.ListByMerchant(ctx, merchantID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	return payouts, nil
}

// ListByVendor returns the vendor's payouts, newest first.
func (s *PayoutServiceImpl) ListByVendor(ctx context.Context, vendorID uuid.UUID) ([]domain.Payout, error) {
	payouts, err := s.payoutRepo.ListByVendor(ctx, vendorID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	return payouts, nil
}

func (s *PayoutServiceImpl) getPayout(ctx context.Context, id uuid.UUID) (*domain.Payout, error) {
	payout, err := s.payoutRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if payout == nil {
		return nil, apperror.ErrPayoutNotFound(id.String())
	}
	return payout, nil
}
