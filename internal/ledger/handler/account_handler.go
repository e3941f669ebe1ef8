package handler

import (
	"net/http"

	"github.com/TrulyGourav/OrchexPay/internal/ledger/domain"
	"github.com/TrulyGourav/OrchexPay/internal/ledger/middleware"
	"github.com/TrulyGourav/OrchexPay/internal/ledger/ports"
	"github.com/TrulyGourav/OrchexPay/pkg/apperror"
	"github.com/TrulyGourav/OrchexPay/pkg/money"
	"github.com/TrulyGourav/OrchexPay/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AccountHandler handles merchant and vendor provisioning endpoints.
type AccountHandler struct {
	accountSvc ports.AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountSvc ports.AccountService) *AccountHandler {
	return &AccountHandler{accountSvc: accountSvc}
}

// CreateMerchant handles POST /api/v1/accounts/merchants.
func (h *AccountHandler) CreateMerchant(c *gin.Context) {
	var req CreateMerchantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	currency, err := money.ParseCurrency(req.Currency)
	if err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.accountSvc.CreateMerchant(c.Request.Context(), ports.CreateMerchantRequest{
		Username: req.Username,
		Password: req.Password,
		Currency: currency,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, CreateMerchantResponse{
		User:         toUserResponse(result.User),
		MainWallet:   toWalletResponse(result.MainWallet),
		EscrowWallet: toWalletResponse(result.EscrowWallet),
	})
}

// AddVendor handles POST /api/v1/accounts/merchants/:id/vendors.
func (h *AccountHandler) AddVendor(c *gin.Context) {
	merchantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid merchant id"))
		return
	}

	var req AddVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	currency, err := money.ParseCurrency(req.Currency)
	if err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.accountSvc.AddVendor(c.Request.Context(), middleware.PrincipalFrom(c), ports.AddVendorRequest{
		MerchantID: merchantID,
		Username:   req.Username,
		Password:   req.Password,
		Currency:   currency,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, AddVendorResponse{
		User:   toUserResponse(result.User),
		Wallet: toWalletResponse(result.VendorWallet),
	})
}

// ListVendors handles GET /api/v1/accounts/merchants/:id/vendors.
func (h *AccountHandler) ListVendors(c *gin.Context) {
	merchantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid merchant id"))
		return
	}

	vendors, err := h.accountSvc.ListVendors(c.Request.Context(), middleware.PrincipalFrom(c), merchantID)
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := make([]UserResponse, 0, len(vendors))
	for i := range vendors {
		resp = append(resp, toUserResponse(&vendors[i]))
	}
	response.OK(c, resp)
}

// SetWalletStatus handles PUT /api/v1/wallets/:id/status (admin only).
func (h *AccountHandler) SetWalletStatus(c *gin.Context) {
	walletID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid wallet id"))
		return
	}

	var req SetWalletStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	status, ok := domain.ParseWalletStatus(req.Status)
	if !ok {
		response.Error(c, apperror.Validation("invalid wallet status"))
		return
	}

	wallet, err := h.accountSvc.SetWalletStatus(c.Request.Context(), walletID, status)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toWalletResponse(wallet))
}

// GetBankDetails handles GET /api/v1/accounts/me/bank-details (vendor only).
// Responds 204 when no bank account is on file yet.
func (h *AccountHandler) GetBankDetails(c *gin.Context) {
	details, err := h.accountSvc.GetBankDetails(c.Request.Context(), middleware.PrincipalFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if details == nil {
		c.Status(http.StatusNoContent)
		return
	}
	response.OK(c, toBankDetailsResponse(details))
}

// SaveBankDetails handles PUT /api/v1/accounts/me/bank-details (vendor only).
func (h *AccountHandler) SaveBankDetails(c *gin.Context) {
	var req BankDetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	details, err := h.accountSvc.SaveBankDetails(c.Request.Context(), middleware.PrincipalFrom(c), ports.SaveBankDetailsRequest{
		AccountNumber:   req.AccountNumber,
		IFSCCode:        req.IFSCCode,
		BeneficiaryName: req.BeneficiaryName,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toBankDetailsResponse(details))
}
