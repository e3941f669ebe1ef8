package domain

import (
	"time"

	"github.com/TrulyGourav/OrchexPay/pkg/money"

	"github.com/google/uuid"
)

// WalletType distinguishes the three wallet roles of the marketplace.
type WalletType string

const (
	WalletTypeMain   WalletType = "MAIN"   // platform revenue wallet
	WalletTypeEscrow WalletType = "ESCROW" // customer payments held before split
	WalletTypeVendor WalletType = "VENDOR" // per-vendor payout wallet
)

// ParseWalletType validates a wallet type string.
func ParseWalletType(s string) (WalletType, bool) {
	switch WalletType(s) {
	case WalletTypeMain, WalletTypeEscrow, WalletTypeVendor:
		return WalletType(s), true
	}
	return "", false
}

// WalletStatus is the admin-controlled lifecycle state of a wallet.
type WalletStatus string

const (
	WalletStatusActive    WalletStatus = "ACTIVE"
	WalletStatusFrozen    WalletStatus = "FROZEN"
	WalletStatusSuspended WalletStatus = "SUSPENDED"
	WalletStatusClosed    WalletStatus = "CLOSED"
)

// ParseWalletStatus validates a wallet status string.
func ParseWalletStatus(s string) (WalletStatus, bool) {
	switch WalletStatus(s) {
	case WalletStatusActive, WalletStatusFrozen, WalletStatusSuspended, WalletStatusClosed:
		return WalletStatus(s), true
	}
	return "", false
}

// Wallet is a merchant or vendor currency wallet. Balance is never stored on
// it; it is always derived from CONFIRMED ledger entries.
type Wallet struct {
	ID         uuid.UUID      `json:"id"`
	MerchantID uuid.UUID      `json:"merchant_id"`
	WalletType WalletType     `json:"wallet_type"`
	// VendorUserID is set iff WalletType == VENDOR. It is part of the wallet
	// uniqueness key so each vendor gets exactly one wallet per merchant and
	// currency.
	VendorUserID *uuid.UUID     `json:"vendor_user_id,omitempty"`
	Currency     money.Currency `json:"currency"`
	Status       WalletStatus   `json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// NewMerchantWallet builds a MAIN or ESCROW wallet for a merchant.
func NewMerchantWallet(merchantID uuid.UUID, walletType WalletType, currency money.Currency, now time.Time) *Wallet {
	return &Wallet{
		ID:         uuid.New(),
		MerchantID: merchantID,
		WalletType: walletType,
		Currency:   currency,
		Status:     WalletStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// NewVendorWallet builds the single VENDOR wallet for a vendor user under a
// merchant and currency.
func NewVendorWallet(merchantID, vendorUserID uuid.UUID, currency money.Currency, now time.Time) *Wallet {
	return &Wallet{
		ID:           uuid.New(),
		MerchantID:   merchantID,
		WalletType:   WalletTypeVendor,
		VendorUserID: &vendorUserID,
		Currency:     currency,
		Status:       WalletStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsActive reports whether ledger operations may touch this wallet.
func (w *Wallet) IsActive() bool {
	return w.Status == WalletStatusActive
}
