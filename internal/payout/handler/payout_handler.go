// Package handler exposes the payout orchestrator's HTTP surface.
package handler

import (
	"context"
	"strings"

	ledgerdomain "github.com/TrulyGourav/OrchexPay/internal/ledger/domain"
	"github.com/TrulyGourav/OrchexPay/internal/ledger/middleware"
	"github.com/TrulyGourav/OrchexPay/internal/payout/domain"
	"github.com/TrulyGourav/OrchexPay/internal/payout/ports"
	"github.com/TrulyGourav/OrchexPay/pkg/apperror"
	"github.com/TrulyGourav/OrchexPay/pkg/money"
	"github.com/TrulyGourav/OrchexPay/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PayoutHandler serves the payout saga endpoints.
type PayoutHandler struct {
	payoutSvc ports.PayoutService
	log       zerolog.Logger
}

// NewPayoutHandler creates a new PayoutHandler.
func NewPayoutHandler(payoutSvc ports.PayoutService, log zerolog.Logger) *PayoutHandler {
	return &PayoutHandler{payoutSvc: payoutSvc, log: log}
}

// Request handles POST /api/v1/payouts.
func (h *PayoutHandler) Request(c *gin.Context) {
	var req RequestPayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	idempotencyKey := c.GetHeader(middleware.HeaderIdempotencyKey)
	if idempotencyKey == "" {
		response.Error(c, apperror.ErrIdempotencyKeyRequired())
		return
	}

	amount, err := money.Parse(req.Amount, req.Currency)
	if err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	principal := middleware.PrincipalFrom(c)
	merchantID, err := merchantScope(principal)
	if err != nil {
		response.Error(c, err)
		return
	}

	payout, err := h.payoutSvc.RequestPayout(c.Request.Context(), ports.RequestPayoutRequest{
		MerchantID:     merchantID,
		VendorID:       uuid.MustParse(req.VendorID),
		VendorWalletID: uuid.MustParse(req.VendorWalletID),
		Amount:         amount,
		IdempotencyKey: idempotencyKey,
		Bearer:         bearerFrom(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, toPayoutResponse(payout))
}

// Confirm handles POST /api/v1/payouts/:id/confirm.
func (h *PayoutHandler) Confirm(c *gin.Context) {
	h.action(c, h.payoutSvc.ConfirmPayout)
}

// Reverse handles POST /api/v1/payouts/:id/reverse.
func (h *PayoutHandler) Reverse(c *gin.Context) {
	h.action(c, h.payoutSvc.ReversePayout)
}

// Get handles GET /api/v1/payouts/:id.
func (h *PayoutHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid payout id"))
		return
	}

	payout, err := h.payoutSvc.GetPayout(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := authorizePayoutRead(middleware.PrincipalFrom(c), payout.MerchantID, payout.VendorID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toPayoutResponse(payout))
}

// List handles GET /api/v1/payouts. Merchants see their own payouts, vendors
// theirs; admins pick a scope via merchant_id or vendor_id query params.
func (h *PayoutHandler) List(c *gin.Context) {
	principal := middleware.PrincipalFrom(c)
	if principal == nil {
		response.Error(c, apperror.ErrUnauthorized())
		return
	}

	ctx := c.Request.Context()
	switch principal.Role {
	case ledgerdomain.RoleVendor:
		payouts, err := h.payoutSvc.ListByVendor(ctx, principal.UserID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, toPayoutList(payouts))
	case ledgerdomain.RoleMerchant:
		if principal.MerchantID == nil {
			response.Error(c, apperror.ErrForbidden("merchant token carries no merchant id"))
			return
		}
		payouts, err := h.payoutSvc.ListByMerchant(ctx, *principal.MerchantID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, toPayoutList(payouts))
	case ledgerdomain.RoleAdmin:
		if v := c.Query("vendor_id"); v != "" {
			vendorID, err := uuid.Parse(v)
			if err != nil {
				response.Error(c, apperror.Validation("invalid vendor_id"))
				return
			}
			payouts, err := h.payoutSvc.ListByVendor(ctx, vendorID)
			if err != nil {
				response.Error(c, err)
				return
			}
			response.OK(c, toPayoutList(payouts))
			return
		}
		merchantID, err := uuid.Parse(c.Query("merchant_id"))
		if err != nil {
			response.Error(c, apperror.Validation("merchant_id or vendor_id is required"))
			return
		}
		payouts, err := h.payoutSvc.ListByMerchant(ctx, merchantID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, toPayoutList(payouts))
	default:
		response.Error(c, apperror.ErrForbidden("insufficient role"))
	}
}

type payoutActionFunc func(ctx context.Context, req ports.PayoutActionRequest) (*domain.Payout, error)

func (h *PayoutHandler) action(c *gin.Context, call payoutActionFunc) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid payout id"))
		return
	}

	payout, err := call(c.Request.Context(), ports.PayoutActionRequest{
		PayoutID:       id,
		IdempotencyKey: c.GetHeader(middleware.HeaderIdempotencyKey),
		Bearer:         bearerFrom(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toPayoutResponse(payout))
}

func toPayoutList(payouts []domain.Payout) PayoutListResponse {
	resp := PayoutListResponse{Payouts: make([]PayoutResponse, 0, len(payouts))}
	for i := range payouts {
		resp.Payouts = append(resp.Payouts, toPayoutResponse(&payouts[i]))
	}
	return resp
}

// merchantScope resolves the merchant a payout request acts for. Merchants
// act for their own merchant; admins are rejected here because a payout needs
// a merchant identity, which an admin token does not carry.
func merchantScope(principal *ledgerdomain.Principal) (uuid.UUID, error) {
	if principal == nil {
		return uuid.Nil, apperror.ErrUnauthorized()
	}
	if principal.Role != ledgerdomain.RoleMerchant || principal.MerchantID == nil {
		return uuid.Nil, apperror.ErrForbidden("payout requests require a merchant identity")
	}
	return *principal.MerchantID, nil
}

func authorizePayoutRead(principal *ledgerdomain.Principal, merchantID, vendorID uuid.UUID) error {
	if principal == nil {
		return apperror.ErrUnauthorized()
	}
	switch principal.Role {
	case ledgerdomain.RoleAdmin:
		return nil
	case ledgerdomain.RoleMerchant:
		if principal.OwnsMerchant(merchantID) {
			return nil
		}
	case ledgerdomain.RoleVendor:
		if principal.UserID == vendorID {
			return nil
		}
	}
	return apperror.ErrForbidden("payout belongs to another principal")
}

// bearerFrom extracts the raw bearer token so ledger calls execute with the
// caller's identity rather than the orchestrator's service identity.
func bearerFrom(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
