package handler

import (
	"time"

	"github.com/TrulyGourav/OrchexPay/internal/ledger/domain"
	"github.com/TrulyGourav/OrchexPay/internal/ledger/ports"
)

// LoginRequest is the request body for login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string       `json:"token"`
	Expiry int64        `json:"expiry"` // Unix timestamp
	User   UserResponse `json:"user"`
}

// CreateMerchantRequest is the request body for merchant provisioning.
type CreateMerchantRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=8,max=128"`
	Currency string `json:"currency" binding:"required,len=3"`
}

// CreateMerchantResponse is the response body for merchant provisioning.
type CreateMerchantResponse struct {
	User         UserResponse   `json:"user"`
	MainWallet   WalletResponse `json:"main_wallet"`
	EscrowWallet WalletResponse `json:"escrow_wallet"`
}

// AddVendorRequest is the request body for vendor onboarding.
type AddVendorRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=8,max=128"`
	Currency string `json:"currency" binding:"required,len=3"`
}

// AddVendorResponse is the response body for vendor onboarding.
type AddVendorResponse struct {
	User   UserResponse   `json:"user"`
	Wallet WalletResponse `json:"wallet"`
}

// MovementRequest is the request body for credit, debit and reserve.
type MovementRequest struct {
	WalletID      string `json:"wallet_id" binding:"required,uuid"`
	Amount        string `json:"amount" binding:"required"`
	Currency      string `json:"currency" binding:"required,len=3"`
	ReferenceType string `json:"reference_type" binding:"required"`
	ReferenceID   string `json:"reference_id" binding:"required,max=100"`
	Description   string `json:"description" binding:"max=255"`
}

// TransferLegRequest is one credit destination of a transfer.
type TransferLegRequest struct {
	ToWalletID string `json:"to_wallet_id" binding:"required,uuid"`
	Amount     string `json:"amount" binding:"required"`
}

// TransferRequest is the request body for an atomic multi-leg transfer.
type TransferRequest struct {
	FromWalletID string               `json:"from_wallet_id" binding:"required,uuid"`
	ReferenceID  string               `json:"reference_id" binding:"required,max=100"`
	TotalAmount  string               `json:"total_amount" binding:"required"`
	Currency     string               `json:"currency" binding:"required,len=3"`
	Description  string               `json:"description" binding:"max=255"`
	Legs         []TransferLegRequest `json:"legs" binding:"required,min=1,dive"`
}

// SetWalletStatusRequest is the request body for admin wallet status changes.
type SetWalletStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UserResponse is the wire form of a user.
type UserResponse struct {
	ID         string  `json:"id"`
	Username   string  `json:"username"`
	Role       string  `json:"role"`
	MerchantID *string `json:"merchant_id,omitempty"`
	CreatedAt  string  `json:"created_at"`
}

// WalletResponse is the wire form of a wallet.
type WalletResponse struct {
	ID           string  `json:"id"`
	MerchantID   string  `json:"merchant_id"`
	WalletType   string  `json:"wallet_type"`
	VendorUserID *string `json:"vendor_user_id,omitempty"`
	Currency     string  `json:"currency"`
	Status       string  `json:"status"`
	CreatedAt    string  `json:"created_at"`
}

// BalanceResponse is the wire form of a wallet balance snapshot.
type BalanceResponse struct {
	WalletID string `json:"wallet_id"`
	Balance  string `json:"balance"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	AsOf     string `json:"as_of"`
}

// EntryResponse is the wire form of a ledger entry.
type EntryResponse struct {
	ID            string  `json:"id"`
	WalletID      string  `json:"wallet_id"`
	MerchantID    string  `json:"merchant_id"`
	VendorID      *string `json:"vendor_id,omitempty"`
	Type          string  `json:"type"`
	Amount        string  `json:"amount"`
	Currency      string  `json:"currency"`
	ReferenceType string  `json:"reference_type"`
	ReferenceID   string  `json:"reference_id"`
	Status        string  `json:"status"`
	Description   string  `json:"description,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

// TransferResponse is the wire form of a transfer result.
type TransferResponse struct {
	Debit   EntryResponse   `json:"debit"`
	Credits []EntryResponse `json:"credits"`
	Reused  bool            `json:"reused"`
}

// EntryListResponse is the paginated wire form of an entry listing.
type EntryListResponse struct {
	Entries  []EntryResponse `json:"entries"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

// StatsResponse is the wire form of platform statistics.
type StatsResponse struct {
	TotalWallets    int64  `json:"total_wallets"`
	TotalEntries    int64  `json:"total_entries"`
	Pending         int64  `json:"pending"`
	Confirmed       int64  `json:"confirmed"`
	Reversed        int64  `json:"reversed"`
	ConfirmedVolume string `json:"confirmed_volume"`
}

// BankDetailsRequest is the request body for saving a vendor's bank account.
type BankDetailsRequest struct {
	AccountNumber   string `json:"account_number" binding:"required,max=50"`
	IFSCCode        string `json:"ifsc_code" binding:"max=20"`
	BeneficiaryName string `json:"beneficiary_name" binding:"required,max=255"`
}

// BankDetailsResponse is the wire form of a vendor's bank account on file.
type BankDetailsResponse struct {
	UserID          string `json:"user_id"`
	AccountNumber   string `json:"account_number"`
	IFSCCode        string `json:"ifsc_code"`
	BeneficiaryName string `json:"beneficiary_name"`
	UpdatedAt       string `json:"updated_at"`
}

// SettlementResponse is the wire form of an escrow reconciliation snapshot.
type SettlementResponse struct {
	MerchantID       string  `json:"merchant_id"`
	Currency         string  `json:"currency"`
	EscrowWalletID   *string `json:"escrow_wallet_id,omitempty"`
	ConfirmedCredits string  `json:"confirmed_credits"`
	PayoutDebits     string  `json:"payout_debits"`
	RefundDebits     string  `json:"refund_debits"`
	ExpectedBalance  string  `json:"expected_balance"`
	LedgerNetBalance string  `json:"ledger_net_balance"`
	Reconciled       bool    `json:"reconciled"`
}

func toBankDetailsResponse(d *domain.VendorBankDetails) BankDetailsResponse {
	return BankDetailsResponse{
		UserID:          d.UserID.String(),
		AccountNumber:   d.AccountNumber,
		IFSCCode:        d.IFSCCode,
		BeneficiaryName: d.BeneficiaryName,
		UpdatedAt:       d.UpdatedAt.Format(time.RFC3339),
	}
}

func toSettlementResponse(r *ports.SettlementResult) SettlementResponse {
	resp := SettlementResponse{
		MerchantID:       r.MerchantID.String(),
		Currency:         r.Currency.String(),
		ConfirmedCredits: r.ConfirmedCredits.String(),
		PayoutDebits:     r.PayoutDebits.String(),
		RefundDebits:     r.RefundDebits.String(),
		ExpectedBalance:  r.ExpectedBalance.String(),
		LedgerNetBalance: r.LedgerNetBalance.String(),
		Reconciled:       r.Reconciled,
	}
	if r.EscrowWalletID != nil {
		s := r.EscrowWalletID.String()
		resp.EscrowWalletID = &s
	}
	return resp
}

func toUserResponse(u *domain.User) UserResponse {
	resp := UserResponse{
		ID:        u.ID.String(),
		Username:  u.Username,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
	if u.MerchantID != nil {
		s := u.MerchantID.String()
		resp.MerchantID = &s
	}
	return resp
}

func toWalletResponse(w *domain.Wallet) WalletResponse {
	resp := WalletResponse{
		ID:         w.ID.String(),
		MerchantID: w.MerchantID.String(),
		WalletType: string(w.WalletType),
		Currency:   w.Currency.String(),
		Status:     string(w.Status),
		CreatedAt:  w.CreatedAt.Format(time.RFC3339),
	}
	if w.VendorUserID != nil {
		s := w.VendorUserID.String()
		resp.VendorUserID = &s
	}
	return resp
}

func toEntryResponse(e *domain.LedgerEntry) EntryResponse {
	resp := EntryResponse{
		ID:            e.ID.String(),
		WalletID:      e.WalletID.String(),
		MerchantID:    e.MerchantID.String(),
		Type:          string(e.Type),
		Amount:        e.Amount.StringAmount(),
		Currency:      e.Amount.Currency().String(),
		ReferenceType: string(e.ReferenceType),
		ReferenceID:   e.ReferenceID,
		Status:        string(e.Status),
		Description:   e.Description,
		CreatedAt:     e.CreatedAt.Format(time.RFC3339),
	}
	if e.VendorID != nil {
		s := e.VendorID.String()
		resp.VendorID = &s
	}
	return resp
}

func toTransferResponse(r *ports.TransferResult) TransferResponse {
	credits := make([]EntryResponse, 0, len(r.CreditEntries))
	for i := range r.CreditEntries {
		credits = append(credits, toEntryResponse(&r.CreditEntries[i]))
	}
	return TransferResponse{
		Debit:   toEntryResponse(r.DebitEntry),
		Credits: credits,
		Reused:  r.Reused,
	}
}
