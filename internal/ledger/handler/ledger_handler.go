package handler

import (
	"strconv"
	"time"

	"github.com/TrulyGourav/OrchexPay/internal/ledger/domain"
	"github.com/TrulyGourav/OrchexPay/internal/ledger/middleware"
	"github.com/TrulyGourav/OrchexPay/internal/ledger/ports"
	"github.com/TrulyGourav/OrchexPay/pkg/apperror"
	"github.com/TrulyGourav/OrchexPay/pkg/money"
	"github.com/TrulyGourav/OrchexPay/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LedgerHandler handles wallet movement and query endpoints.
type LedgerHandler struct {
	ledgerSvc ports.LedgerService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerSvc ports.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerSvc: ledgerSvc}
}

type movementFunc func(ctx *gin.Context, req ports.MovementRequest) (*domain.LedgerEntry, error)

func (h *LedgerHandler) movement(c *gin.Context, call movementFunc) {
	var req MovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	amount, err := money.Parse(req.Amount, req.Currency)
	if err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	refType, ok := domain.ParseReferenceType(req.ReferenceType)
	if !ok {
		response.Error(c, apperror.Validation("invalid reference_type"))
		return
	}

	entry, err := call(c, ports.MovementRequest{
		Principal:     middleware.PrincipalFrom(c),
		WalletID:      uuid.MustParse(req.WalletID),
		Amount:        amount,
		ReferenceType: refType,
		ReferenceID:   req.ReferenceID,
		Description:   req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toEntryResponse(entry))
}

// Credit handles POST /api/v1/ledger/credit.
func (h *LedgerHandler) Credit(c *gin.Context) {
	h.movement(c, func(c *gin.Context, req ports.MovementRequest) (*domain.LedgerEntry, error) {
		return h.ledgerSvc.Credit(c.Request.Context(), req)
	})
}

// Debit handles POST /api/v1/ledger/debit.
func (h *LedgerHandler) Debit(c *gin.Context) {
	h.movement(c, func(c *gin.Context, req ports.MovementRequest) (*domain.LedgerEntry, error) {
		return h.ledgerSvc.Debit(c.Request.Context(), req)
	})
}

// Reserve handles POST /api/v1/ledger/reserve.
func (h *LedgerHandler) Reserve(c *gin.Context) {
	h.movement(c, func(c *gin.Context, req ports.MovementRequest) (*domain.LedgerEntry, error) {
		return h.ledgerSvc.Reserve(c.Request.Context(), req)
	})
}

// Confirm handles POST /api/v1/ledger/entries/:id/confirm.
func (h *LedgerHandler) Confirm(c *gin.Context) {
	entryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid entry id"))
		return
	}

	entry, err := h.ledgerSvc.Confirm(c.Request.Context(), middleware.PrincipalFrom(c), entryID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toEntryResponse(entry))
}

// Reverse handles POST /api/v1/ledger/entries/:id/reverse.
func (h *LedgerHandler) Reverse(c *gin.Context) {
	entryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid entry id"))
		return
	}

	entry, err := h.ledgerSvc.Reverse(c.Request.Context(), middleware.PrincipalFrom(c), entryID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toEntryResponse(entry))
}

// Transfer handles POST /api/v1/ledger/transfer.
func (h *LedgerHandler) Transfer(c *gin.Context) {
	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	total, err := money.Parse(req.TotalAmount, req.Currency)
	if err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	legs := make([]ports.TransferLeg, 0, len(req.Legs))
	for _, leg := range req.Legs {
		amount, err := money.Parse(leg.Amount, req.Currency)
		if err != nil {
			response.Error(c, apperror.Validation(err.Error()))
			return
		}
		legs = append(legs, ports.TransferLeg{
			ToWalletID: uuid.MustParse(leg.ToWalletID),
			Amount:     amount,
		})
	}

	result, err := h.ledgerSvc.Transfer(c.Request.Context(), ports.TransferRequest{
		Principal:    middleware.PrincipalFrom(c),
		FromWalletID: uuid.MustParse(req.FromWalletID),
		ReferenceID:  req.ReferenceID,
		TotalAmount:  total,
		Description:  req.Description,
		Legs:         legs,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toTransferResponse(result))
}

// Balance handles GET /api/v1/wallets/:id/balance.
func (h *LedgerHandler) Balance(c *gin.Context) {
	walletID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid wallet id"))
		return
	}

	result, err := h.ledgerSvc.Balance(c.Request.Context(), middleware.PrincipalFrom(c), walletID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, BalanceResponse{
		WalletID: result.WalletID.String(),
		Balance:  result.Balance.StringAmount(),
		Currency: result.Balance.Currency().String(),
		Status:   string(result.Status),
		AsOf:     result.AsOf.Format(time.RFC3339),
	})
}

// ResolveWallet handles GET /api/v1/wallets/resolve.
func (h *LedgerHandler) ResolveWallet(c *gin.Context) {
	merchantID, err := uuid.Parse(c.Query("merchant_id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid merchant_id"))
		return
	}

	currency, err := money.ParseCurrency(c.Query("currency"))
	if err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	walletType, ok := domain.ParseWalletType(c.Query("wallet_type"))
	if !ok {
		response.Error(c, apperror.Validation("invalid wallet_type"))
		return
	}

	req := ports.ResolveWalletRequest{
		MerchantID: merchantID,
		Currency:   currency,
		WalletType: walletType,
	}
	if v := c.Query("vendor_user_id"); v != "" {
		vendorID, err := uuid.Parse(v)
		if err != nil {
			response.Error(c, apperror.Validation("invalid vendor_user_id"))
			return
		}
		req.VendorUserID = &vendorID
	}

	wallet, err := h.ledgerSvc.ResolveWallet(c.Request.Context(), middleware.PrincipalFrom(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toWalletResponse(wallet))
}

// ListEntries handles GET /api/v1/ledger/entries.
func (h *LedgerHandler) ListEntries(c *gin.Context) {
	params, err := parseEntryListParams(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	entries, total, err := h.ledgerSvc.ListEntries(c.Request.Context(), middleware.PrincipalFrom(c), *params)
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := make([]EntryResponse, 0, len(entries))
	for i := range entries {
		resp = append(resp, toEntryResponse(&entries[i]))
	}

	page := params.Page
	if page < 1 {
		page = 1
	}
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	response.OK(c, EntryListResponse{
		Entries:  resp,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// GetStats handles GET /api/v1/admin/stats (admin only).
func (h *LedgerHandler) GetStats(c *gin.Context) {
	stats, err := h.ledgerSvc.GetStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, StatsResponse{
		TotalWallets:    stats.TotalWallets,
		TotalEntries:    stats.Entries.TotalEntries,
		Pending:         stats.Entries.Pending,
		Confirmed:       stats.Entries.Confirmed,
		Reversed:        stats.Entries.Reversed,
		ConfirmedVolume: stats.Entries.ConfirmedVolume.StringFixed(money.Scale),
	})
}

func parseEntryListParams(c *gin.Context) (*ports.EntryListParams, error) {
	var params ports.EntryListParams

	if v := c.Query("wallet_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, apperror.Validation("invalid wallet_id")
		}
		params.WalletID = &id
	}
	if v := c.Query("merchant_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, apperror.Validation("invalid merchant_id")
		}
		params.MerchantID = &id
	}
	if v := c.Query("status"); v != "" {
		status, ok := domain.ParseEntryStatus(v)
		if !ok {
			return nil, apperror.Validation("invalid status")
		}
		params.Status = &status
	}
	if v := c.Query("type"); v != "" {
		entryType, ok := domain.ParseEntryType(v)
		if !ok {
			return nil, apperror.Validation("invalid type")
		}
		params.Type = &entryType
	}
	if v := c.Query("reference_type"); v != "" {
		refType, ok := domain.ParseReferenceType(v)
		if !ok {
			return nil, apperror.Validation("invalid reference_type")
		}
		params.ReferenceType = &refType
	}
	if v := c.Query("from"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, apperror.Validation("invalid from timestamp")
		}
		params.From = &ts
	}
	if v := c.Query("to"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, apperror.Validation("invalid to timestamp")
		}
		params.To = &ts
	}
	if v := c.Query("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return nil, apperror.Validation("invalid page")
		}
		params.Page = page
	}
	if v := c.Query("page_size"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size < 1 || size > 100 {
			return nil, apperror.Validation("invalid page_size")
		}
		params.PageSize = size
	}

	return &params, nil
}

// Settlement handles GET /api/v1/accounts/merchants/:id/settlement.
func (h *LedgerHandler) Settlement(c *gin.Context) {
	merchantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid merchant id"))
		return
	}

	currency, err := money.ParseCurrency(c.Query("currency"))
	if err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.ledgerSvc.Settlement(c.Request.Context(), middleware.PrincipalFrom(c), merchantID, currency)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toSettlementResponse(result))
}
