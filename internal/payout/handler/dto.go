package handler

import (
	"time"

	"github.com/TrulyGourav/OrchexPay/internal/payout/domain"
)

// RequestPayoutRequest asks for funds to move from a vendor wallet to the
// outside world.
type RequestPayoutRequest struct {
	VendorID       string `json:"vendor_id" binding:"required,uuid"`
	VendorWalletID string `json:"vendor_wallet_id" binding:"required,uuid"`
	Amount         string `json:"amount" binding:"required"`
	Currency       string `json:"currency" binding:"required,len=3"`
}

// PaymentSucceededRequest is the inbound payment-captured webhook body.
type PaymentSucceededRequest struct {
	MerchantID string `json:"merchant_id" binding:"required,uuid"`
	VendorID   string `json:"vendor_id" binding:"required,uuid"`
	OrderID    string `json:"order_id" binding:"required,max=100"`
	Amount     string `json:"amount" binding:"required"`
	Currency   string `json:"currency" binding:"required,len=3"`
}

// OrderCompletedRequest is the inbound order-completion webhook body.
type OrderCompletedRequest struct {
	MerchantID string `json:"merchant_id" binding:"required,uuid"`
	OrderID    string `json:"order_id" binding:"required,max=100"`
}

// BankOutcomeRequest is the inbound bank verdict webhook body.
type BankOutcomeRequest struct {
	PayoutID string `json:"payout_id" binding:"required,uuid"`
	Success  *bool  `json:"success" binding:"required"`
}

// PayoutResponse is the public payout representation.
type PayoutResponse struct {
	ID             string  `json:"id"`
	MerchantID     string  `json:"merchant_id"`
	VendorID       string  `json:"vendor_id"`
	VendorWalletID string  `json:"vendor_wallet_id"`
	Amount         string  `json:"amount"`
	Currency       string  `json:"currency"`
	Status         string  `json:"status"`
	LedgerEntryID  *string `json:"ledger_entry_id,omitempty"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
}

// PendingOrderResponse is the public pending order representation.
type PendingOrderResponse struct {
	ID         string `json:"id"`
	MerchantID string `json:"merchant_id"`
	VendorID   string `json:"vendor_id"`
	OrderID    string `json:"order_id"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	SplitDone  bool   `json:"split_done"`
	CreatedAt  string `json:"created_at"`
}

// OrderSplitResponse reports the escrow split amounts for an order.
type OrderSplitResponse struct {
	Order          PendingOrderResponse `json:"order"`
	VendorAmount   string               `json:"vendor_amount"`
	PlatformAmount string               `json:"platform_amount"`
	Reused         bool                 `json:"reused"`
}

// PayoutListResponse wraps a payout listing.
type PayoutListResponse struct {
	Payouts []PayoutResponse `json:"payouts"`
}

func toPayoutResponse(p *domain.Payout) PayoutResponse {
	resp := PayoutResponse{
		ID:             p.ID.String(),
		MerchantID:     p.MerchantID.String(),
		VendorID:       p.VendorID.String(),
		VendorWalletID: p.VendorWalletID.String(),
		Amount:         p.Amount.StringAmount(),
		Currency:       p.Amount.Currency().String(),
		Status:         string(p.Status),
		CreatedAt:      p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      p.UpdatedAt.Format(time.RFC3339),
	}
	if p.LedgerEntryID != nil {
		s := p.LedgerEntryID.String()
		resp.LedgerEntryID = &s
	}
	return resp
}

func toPendingOrderResponse(o *domain.PendingOrder) PendingOrderResponse {
	return PendingOrderResponse{
		ID:         o.ID.String(),
		MerchantID: o.MerchantID.String(),
		VendorID:   o.VendorID.String(),
		OrderID:    o.OrderID,
		Amount:     o.Amount.StringAmount(),
		Currency:   o.Amount.Currency().String(),
		SplitDone:  o.SplitDone,
		CreatedAt:  o.CreatedAt.Format(time.RFC3339),
	}
}
