package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role controls what a principal may do against the ledger.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleMerchant Role = "MERCHANT"
	RoleVendor   Role = "VENDOR"
)

// ParseRole validates a role string.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleMerchant, RoleVendor:
		return Role(s), true
	}
	return "", false
}

// User is an account able to authenticate against the ledger service.
// Merchants own wallets; vendors belong to a merchant and own exactly one
// VENDOR wallet per currency. Wallets are created only alongside users.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	// MerchantID is the owning merchant for MERCHANT (self) and VENDOR users;
	// nil for admins.
	MerchantID *uuid.UUID `json:"merchant_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Principal is the authenticated caller attached to a request.
type Principal struct {
	UserID     uuid.UUID
	Role       Role
	MerchantID *uuid.UUID
}

// IsAdmin reports whether the principal has unrestricted access.
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// OwnsMerchant reports whether the principal belongs to the given merchant.
func (p Principal) OwnsMerchant(merchantID uuid.UUID) bool {
	return p.MerchantID != nil && *p.MerchantID == merchantID
}

// MayOperateWallet reports whether the principal may move money on the wallet:
// admins always, merchants on their merchant's wallets, vendors only on their
// own VENDOR wallet.
func (p Principal) MayOperateWallet(w *Wallet) bool {
	switch p.Role {
	case RoleAdmin:
		return true
	case RoleMerchant:
		return p.OwnsMerchant(w.MerchantID)
	case RoleVendor:
		return w.VendorUserID != nil && *w.VendorUserID == p.UserID
	}
	return false
}
