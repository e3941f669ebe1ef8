// Package domain holds the payout saga aggregates. The payout state machine
// is deliberately separate from the ledger entry status machine; the two are
// connected only through the stored ledger entry id.
package domain

import (
	"time"

	"github.com/TrulyGourav/OrchexPay/pkg/money"

	"github.com/google/uuid"
)

// PayoutStatus is the saga state of a payout.
type PayoutStatus string

const (
	PayoutStatusCreated    PayoutStatus = "CREATED"
	PayoutStatusProcessing PayoutStatus = "PROCESSING"
	PayoutStatusSettled    PayoutStatus = "SETTLED"
	PayoutStatusFailed     PayoutStatus = "FAILED"
)

// CanTransitionTo reports whether s → target is a legal saga transition.
// SETTLED and FAILED are terminal.
func (s PayoutStatus) CanTransitionTo(target PayoutStatus) bool {
	switch s {
	case PayoutStatusCreated:
		return target == PayoutStatusProcessing
	case PayoutStatusProcessing:
		return target == PayoutStatusSettled || target == PayoutStatusFailed
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s PayoutStatus) IsTerminal() bool {
	return s == PayoutStatusSettled || s == PayoutStatusFailed
}

// Payout is the orchestrator-owned record of one vendor payout. The ledger
// side has no payout aggregate, only PAYOUT-typed entries referenced by
// LedgerEntryID once funds are reserved.
type Payout struct {
	ID             uuid.UUID    `json:"id"`
	MerchantID     uuid.UUID    `json:"merchant_id"`
	VendorID       uuid.UUID    `json:"vendor_id"`
	VendorWalletID uuid.UUID    `json:"vendor_wallet_id"`
	Amount         money.Money  `json:"amount"`
	Status         PayoutStatus `json:"status"`
	LedgerEntryID  *uuid.UUID   `json:"ledger_entry_id,omitempty"`
	IdempotencyKey string       `json:"idempotency_key"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// NewPayout builds a payout in CREATED.
func NewPayout(merchantID, vendorID, vendorWalletID uuid.UUID, amount money.Money, idempotencyKey string, now time.Time) *Payout {
	return &Payout{
		ID:             uuid.New(),
		MerchantID:     merchantID,
		VendorID:       vendorID,
		VendorWalletID: vendorWalletID,
		Amount:         amount,
		Status:         PayoutStatusCreated,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// ReserveLedgerKey derives the ledger-side idempotency key for the reserve
// call. It is distinct from the payout's own key because the reserve call may
// be retried independently of payout creation.
func ReserveLedgerKey(idempotencyKey string) string {
	return idempotencyKey + "-reserve"
}

// PendingOrder tracks a customer payment held in escrow until the order
// completes and the split transfer runs.
type PendingOrder struct {
	ID         uuid.UUID   `json:"id"`
	MerchantID uuid.UUID   `json:"merchant_id"`
	VendorID   uuid.UUID   `json:"vendor_id"`
	OrderID    string      `json:"order_id"`
	Amount     money.Money `json:"amount"`
	SplitDone  bool        `json:"split_done"`
	CreatedAt  time.Time   `json:"created_at"`
}

// NewPendingOrder records an escrow-held payment for a later split.
func NewPendingOrder(merchantID, vendorID uuid.UUID, orderID string, amount money.Money, now time.Time) *PendingOrder {
	return &PendingOrder{
		ID:         uuid.New(),
		MerchantID: merchantID,
		VendorID:   vendorID,
		OrderID:    orderID,
		Amount:     amount,
		SplitDone:  false,
		CreatedAt:  now,
	}
}
