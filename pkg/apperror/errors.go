// Package apperror defines the structured error taxonomy shared by the
// wallet-ledger service and the payout orchestrator. Every business failure is
// one of these kinds; handlers map them to HTTP responses via pkg/response.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// Is reports whether err is an AppError carrying the given code.
func Is(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// Stable error codes. Handlers and the orchestrator's ledger client both key
// off these, so they are part of the wire contract.
const (
	CodeWalletNotFound          = "LED_001"
	CodeEntryNotFound           = "LED_002"
	CodeCurrencyMismatch        = "LED_003"
	CodeInsufficientBalance     = "LED_004"
	CodeWalletNotActive         = "LED_005"
	CodeInvalidEntryTransition  = "LED_006"
	CodeDuplicateReference      = "LED_007"
	CodePayoutNotFound          = "PAYOUT_001"
	CodeInvalidPayoutTransition = "PAYOUT_002"
	CodePayoutNotReserved       = "PAYOUT_003"
	CodeOrderNotFound           = "PAYOUT_004"
	CodeValidation              = "REQ_001"
	CodeIdempotencyKeyRequired  = "REQ_002"
	CodeUnauthorized            = "AUTH_001"
	CodeForbidden               = "AUTH_002"
	CodeUsernameExists          = "AUTH_003"
	CodeRateLimited             = "RATE_001"
	CodeInternal                = "SYS_001"
)

// ---- Ledger (LED) ----

func ErrWalletNotFound(walletID string) *AppError {
	return New(CodeWalletNotFound, fmt.Sprintf("Wallet not found: %s", walletID), http.StatusNotFound)
}

func ErrLedgerEntryNotFound(entryID string) *AppError {
	return New(CodeEntryNotFound, fmt.Sprintf("Ledger entry not found: %s", entryID), http.StatusNotFound)
}

func ErrCurrencyMismatch(walletCurrency, amountCurrency string) *AppError {
	return New(CodeCurrencyMismatch,
		fmt.Sprintf("Currency mismatch: wallet is %s, amount is %s", walletCurrency, amountCurrency),
		http.StatusUnprocessableEntity)
}

// ErrInsufficientBalance is a client-correctable condition, never a 5xx.
func ErrInsufficientBalance(walletID string) *AppError {
	return New(CodeInsufficientBalance,
		fmt.Sprintf("Insufficient confirmed balance in wallet %s", walletID),
		http.StatusUnprocessableEntity)
}

func ErrWalletNotActive(walletID string) *AppError {
	return New(CodeWalletNotActive, fmt.Sprintf("Wallet is not active: %s", walletID), http.StatusConflict)
}

func ErrInvalidEntryTransition(message string) *AppError {
	return New(CodeInvalidEntryTransition, message, http.StatusConflict)
}

// ErrDuplicateReference reports a (wallet, reference id, reference type)
// collision that could not be resolved into an idempotent replay.
func ErrDuplicateReference(referenceID string) *AppError {
	return New(CodeDuplicateReference,
		fmt.Sprintf("Reference already recorded: %s", referenceID), http.StatusConflict)
}

// ---- Payout (PAYOUT) ----

func ErrPayoutNotFound(payoutID string) *AppError {
	return New(CodePayoutNotFound, fmt.Sprintf("Payout not found: %s", payoutID), http.StatusNotFound)
}

func ErrInvalidPayoutTransition(message string) *AppError {
	return New(CodeInvalidPayoutTransition, message, http.StatusConflict)
}

func ErrPayoutNotReserved(payoutID string) *AppError {
	return New(CodePayoutNotReserved,
		fmt.Sprintf("Payout %s has no reserved ledger entry", payoutID), http.StatusConflict)
}

func ErrOrderNotFound(orderID string) *AppError {
	return New(CodeOrderNotFound, fmt.Sprintf("Pending order not found: %s", orderID), http.StatusNotFound)
}

// ---- Requests (REQ) ----

func Validation(message string) *AppError {
	return New(CodeValidation, message, http.StatusBadRequest)
}

func ErrIdempotencyKeyRequired() *AppError {
	return New(CodeIdempotencyKeyRequired, "Idempotency-Key header is required", http.StatusBadRequest)
}

// ---- Auth (AUTH) ----

func ErrUnauthorized() *AppError {
	return New(CodeUnauthorized, "Invalid or missing credentials", http.StatusUnauthorized)
}

func ErrForbidden(message string) *AppError {
	return New(CodeForbidden, message, http.StatusForbidden)
}

func ErrUsernameExists() *AppError {
	return New(CodeUsernameExists, "Username already exists", http.StatusConflict)
}

// ---- Rate limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New(CodeRateLimited, "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap(CodeInternal, "Internal server error", http.StatusInternalServerError, err)
}
