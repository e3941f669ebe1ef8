package domain

import (
	"time"

	"github.com/TrulyGourav/OrchexPay/pkg/money"

	"github.com/google/uuid"
)

// EntryType is the direction of a ledger entry.
type EntryType string

const (
	EntryTypeCredit EntryType = "CREDIT"
	EntryTypeDebit  EntryType = "DEBIT"
)

// ParseEntryType validates an entry type string.
func ParseEntryType(s string) (EntryType, bool) {
	switch EntryType(s) {
	case EntryTypeCredit, EntryTypeDebit:
		return EntryType(s), true
	}
	return "", false
}

// EntryStatus is the lifecycle state of a ledger entry. The only legal
// mutations are PENDING→CONFIRMED and PENDING→REVERSED.
type EntryStatus string

const (
	EntryStatusPending   EntryStatus = "PENDING"
	EntryStatusConfirmed EntryStatus = "CONFIRMED"
	EntryStatusReversed  EntryStatus = "REVERSED"
)

// ParseEntryStatus validates an entry status string.
func ParseEntryStatus(s string) (EntryStatus, bool) {
	switch EntryStatus(s) {
	case EntryStatusPending, EntryStatusConfirmed, EntryStatusReversed:
		return EntryStatus(s), true
	}
	return "", false
}

// CanTransitionTo reports whether s → target is a legal status transition.
func (s EntryStatus) CanTransitionTo(target EntryStatus) bool {
	return s == EntryStatusPending &&
		(target == EntryStatusConfirmed || target == EntryStatusReversed)
}

// ReferenceType names the business operation a ledger entry belongs to.
type ReferenceType string

const (
	ReferenceTypeOrder    ReferenceType = "ORDER"
	ReferenceTypePayout   ReferenceType = "PAYOUT"
	ReferenceTypeRefund   ReferenceType = "REFUND"
	ReferenceTypeReversal ReferenceType = "REVERSAL"
)

// ParseReferenceType validates a reference type string.
func ParseReferenceType(s string) (ReferenceType, bool) {
	switch ReferenceType(s) {
	case ReferenceTypeOrder, ReferenceTypePayout, ReferenceTypeRefund, ReferenceTypeReversal:
		return ReferenceType(s), true
	}
	return "", false
}

// ReversalReferenceID derives the deterministic reference id of the
// compensating credit created when a reservation is reversed.
func ReversalReferenceID(originalReferenceID string) string {
	return originalReferenceID + "-reversal"
}

// LedgerEntry is one credit or debit against a wallet. Every field except
// Status is immutable after creation. (WalletID, ReferenceID, ReferenceType)
// is unique and acts as the idempotency key for ledger operations.
type LedgerEntry struct {
	ID            uuid.UUID     `json:"id"`
	WalletID      uuid.UUID     `json:"wallet_id"`
	MerchantID    uuid.UUID     `json:"merchant_id"`
	VendorID      *uuid.UUID    `json:"vendor_id,omitempty"`
	Type          EntryType     `json:"type"`
	Amount        money.Money   `json:"amount"`
	ReferenceType ReferenceType `json:"reference_type"`
	ReferenceID   string        `json:"reference_id"`
	Status        EntryStatus   `json:"status"`
	Description   string        `json:"description"`
	CreatedAt     time.Time     `json:"created_at"`
}

// NewCredit builds a credit entry against the given wallet.
func NewCredit(w *Wallet, amount money.Money, refType ReferenceType, referenceID string, status EntryStatus, description string, now time.Time) *LedgerEntry {
	return newEntry(w, EntryTypeCredit, amount, refType, referenceID, status, description, now)
}

// NewDebit builds a debit entry against the given wallet.
func NewDebit(w *Wallet, amount money.Money, refType ReferenceType, referenceID string, status EntryStatus, description string, now time.Time) *LedgerEntry {
	return newEntry(w, EntryTypeDebit, amount, refType, referenceID, status, description, now)
}

func newEntry(w *Wallet, entryType EntryType, amount money.Money, refType ReferenceType, referenceID string, status EntryStatus, description string, now time.Time) *LedgerEntry {
	return &LedgerEntry{
		ID:            uuid.New(),
		WalletID:      w.ID,
		MerchantID:    w.MerchantID,
		VendorID:      w.VendorUserID,
		Type:          entryType,
		Amount:        amount,
		ReferenceType: refType,
		ReferenceID:   referenceID,
		Status:        status,
		Description:   description,
		CreatedAt:     now,
	}
}
