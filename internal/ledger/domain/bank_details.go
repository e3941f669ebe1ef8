package domain

import (
	"time"

	"github.com/google/uuid"
)

// VendorBankDetails is the bank account a vendor's payouts settle to. One row
// per vendor user; saving again overwrites the account in place.
type VendorBankDetails struct {
	UserID          uuid.UUID `json:"user_id"`
	AccountNumber   string    `json:"account_number"`
	IFSCCode        string    `json:"ifsc_code"`
	BeneficiaryName string    `json:"beneficiary_name"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewVendorBankDetails creates bank details for a vendor user.
func NewVendorBankDetails(userID uuid.UUID, accountNumber, ifscCode, beneficiaryName string, now time.Time) *VendorBankDetails {
	return &VendorBankDetails{
		UserID:          userID,
		AccountNumber:   accountNumber,
		IFSCCode:        ifscCode,
		BeneficiaryName: beneficiaryName,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
