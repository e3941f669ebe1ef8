// Package client implements the outbound HTTP adapter through which the
// payout orchestrator talks to the wallet-ledger service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/TrulyGourav/OrchexPay/internal/payout/ports"
	"github.com/TrulyGourav/OrchexPay/pkg/apperror"
	"github.com/TrulyGourav/OrchexPay/pkg/money"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	defaultTimeout       = 10 * time.Second
)

// LedgerClient calls the wallet-ledger HTTP API. Mutating calls always carry
// an Idempotency-Key header so network retries replay on the ledger side.
type LedgerClient struct {
	baseURL      string
	serviceToken string
	httpClient   *http.Client
	log          zerolog.Logger
}

// NewLedgerClient creates a ledger client. serviceToken is the orchestrator's
// own JWT, used when a call does not forward a caller bearer.
func NewLedgerClient(baseURL, serviceToken string, log zerolog.Logger) *LedgerClient {
	return &LedgerClient{
		baseURL:      baseURL,
		serviceToken: serviceToken,
		httpClient:   &http.Client{Timeout: defaultTimeout},
		log:          log,
	}
}

// Wire shapes mirrored from the ledger's HTTP API.

type movementBody struct {
	WalletID      string `json:"wallet_id"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	ReferenceType string `json:"reference_type"`
	ReferenceID   string `json:"reference_id"`
	Description   string `json:"description,omitempty"`
}

type transferLegBody struct {
	ToWalletID string `json:"to_wallet_id"`
	Amount     string `json:"amount"`
}

type transferBody struct {
	FromWalletID string            `json:"from_wallet_id"`
	ReferenceID  string            `json:"reference_id"`
	TotalAmount  string            `json:"total_amount"`
	Currency     string            `json:"currency"`
	Description  string            `json:"description,omitempty"`
	Legs         []transferLegBody `json:"legs"`
}

type entryBody struct {
	ID          string `json:"id"`
	WalletID    string `json:"wallet_id"`
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	ReferenceID string `json:"reference_id"`
	Status      string `json:"status"`
}

type transferResultBody struct {
	Debit   entryBody   `json:"debit"`
	Credits []entryBody `json:"credits"`
	Reused  bool        `json:"reused"`
}

type walletBody struct {
	ID           string  `json:"id"`
	MerchantID   string  `json:"merchant_id"`
	WalletType   string  `json:"wallet_type"`
	VendorUserID *string `json:"vendor_user_id,omitempty"`
	Currency     string  `json:"currency"`
	Status       string  `json:"status"`
}

type successEnvelope struct {
	Data json.RawMessage `json:"data"`
}

type errorEnvelope struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

// Credit posts an immediate confirmed credit.
func (c *LedgerClient) Credit(ctx context.Context, req ports.LedgerMovementRequest) (*ports.LedgerEntry, error) {
	return c.movement(ctx, "/api/v1/ledger/credit", req)
}

// Reserve posts a pending debit hold.
func (c *LedgerClient) Reserve(ctx context.Context, req ports.LedgerMovementRequest) (*ports.LedgerEntry, error) {
	return c.movement(ctx, "/api/v1/ledger/reserve", req)
}

// Confirm settles a pending entry.
func (c *LedgerClient) Confirm(ctx context.Context, req ports.EntryActionRequest) (*ports.LedgerEntry, error) {
	return c.entryAction(ctx, req, "confirm")
}

// Reverse cancels a pending entry by compensation.
func (c *LedgerClient) Reverse(ctx context.Context, req ports.EntryActionRequest) (*ports.LedgerEntry, error) {
	return c.entryAction(ctx, req, "reverse")
}

// Transfer posts an atomic multi-leg transfer.
func (c *LedgerClient) Transfer(ctx context.Context, req ports.LedgerTransferRequest) (*ports.LedgerTransferResult, error) {
	legs := make([]transferLegBody, 0, len(req.Legs))
	for _, leg := range req.Legs {
		legs = append(legs, transferLegBody{
			ToWalletID: leg.ToWalletID.String(),
			Amount:     leg.Amount.StringAmount(),
		})
	}
	body := transferBody{
		FromWalletID: req.FromWalletID.String(),
		ReferenceID:  req.ReferenceID,
		TotalAmount:  req.TotalAmount.StringAmount(),
		Currency:     req.TotalAmount.Currency().String(),
		Description:  req.Description,
		Legs:         legs,
	}

	raw, err := c.do(ctx, http.MethodPost, "/api/v1/ledger/transfer", body, req.IdempotencyKey, req.Bearer)
	if err != nil {
		return nil, err
	}

	var wire transferResultBody
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("decode transfer response: %w", err))
	}

	debit, err := toLedgerEntry(wire.Debit)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	credits := make([]ports.LedgerEntry, 0, len(wire.Credits))
	for _, e := range wire.Credits {
		entry, err := toLedgerEntry(e)
		if err != nil {
			return nil, apperror.InternalError(err)
		}
		credits = append(credits, *entry)
	}
	return &ports.LedgerTransferResult{
		DebitEntry:    *debit,
		CreditEntries: credits,
		Reused:        wire.Reused,
	}, nil
}

// ResolveWallet looks a wallet up by its identity key.
func (c *LedgerClient) ResolveWallet(ctx context.Context, req ports.ResolveWalletRequest) (*ports.LedgerWallet, error) {
	q := url.Values{}
	q.Set("merchant_id", req.MerchantID.String())
	q.Set("currency", req.Currency)
	q.Set("wallet_type", req.WalletType)
	if req.VendorUserID != nil {
		q.Set("vendor_user_id", req.VendorUserID.String())
	}

	raw, err := c.do(ctx, http.MethodGet, "/api/v1/wallets/resolve?"+q.Encode(), nil, "", req.Bearer)
	if err != nil {
		return nil, err
	}

	var wire walletBody
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("decode wallet response: %w", err))
	}
	return toLedgerWallet(wire)
}

func (c *LedgerClient) movement(ctx context.Context, path string, req ports.LedgerMovementRequest) (*ports.LedgerEntry, error) {
	body := movementBody{
		WalletID:      req.WalletID.String(),
		Amount:        req.Amount.StringAmount(),
		Currency:      req.Amount.Currency().String(),
		ReferenceType: req.ReferenceType,
		ReferenceID:   req.ReferenceID,
		Description:   req.Description,
	}

	raw, err := c.do(ctx, http.MethodPost, path, body, req.IdempotencyKey, req.Bearer)
	if err != nil {
		return nil, err
	}
	return decodeEntry(raw)
}

func (c *LedgerClient) entryAction(ctx context.Context, req ports.EntryActionRequest, action string) (*ports.LedgerEntry, error) {
	path := fmt.Sprintf("/api/v1/ledger/entries/%s/%s", req.EntryID, action)
	raw, err := c.do(ctx, http.MethodPost, path, nil, req.IdempotencyKey, req.Bearer)
	if err != nil {
		return nil, err
	}
	return decodeEntry(raw)
}

// do executes one request and unwraps the ledger's response envelope. Error
// envelopes keep their ledger error code and status, so callers can branch on
// the same taxonomy on both sides of the wire.
func (c *LedgerClient) do(ctx context.Context, method, path string, body interface{}, idempotencyKey, bearer string) (json.RawMessage, error) {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, apperror.InternalError(err)
		}
		reqBody = bytes.NewReader(buf)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token(bearer))
	if idempotencyKey != "" {
		httpReq.Header.Set(headerIdempotencyKey, idempotencyKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.log.Warn().Err(err).Str("method", method).Str("path", path).Msg("ledger call failed")
		return nil, apperror.Wrap(apperror.CodeInternal, "ledger unreachable", http.StatusBadGateway, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var wire errorEnvelope
		if err := json.Unmarshal(respBody, &wire); err != nil || wire.ErrorCode == "" {
			return nil, apperror.New(apperror.CodeInternal,
				fmt.Sprintf("ledger returned status %d", resp.StatusCode), resp.StatusCode)
		}
		return nil, apperror.New(wire.ErrorCode, wire.Message, resp.StatusCode)
	}

	var envelope successEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("decode ledger envelope: %w", err))
	}
	return envelope.Data, nil
}

func (c *LedgerClient) token(bearer string) string {
	if bearer != "" {
		return bearer
	}
	return c.serviceToken
}

func decodeEntry(raw json.RawMessage) (*ports.LedgerEntry, error) {
	var wire entryBody
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("decode entry response: %w", err))
	}
	return toLedgerEntry(wire)
}

func toLedgerEntry(wire entryBody) (*ports.LedgerEntry, error) {
	id, err := uuid.Parse(wire.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid entry id %q: %w", wire.ID, err)
	}
	walletID, err := uuid.Parse(wire.WalletID)
	if err != nil {
		return nil, fmt.Errorf("invalid wallet id %q: %w", wire.WalletID, err)
	}
	amount, err := money.Parse(wire.Amount, wire.Currency)
	if err != nil {
		return nil, fmt.Errorf("invalid entry amount: %w", err)
	}
	return &ports.LedgerEntry{
		ID:          id,
		WalletID:    walletID,
		Type:        wire.Type,
		Amount:      amount,
		ReferenceID: wire.ReferenceID,
		Status:      wire.Status,
	}, nil
}

func toLedgerWallet(wire walletBody) (*ports.LedgerWallet, error) {
	id, err := uuid.Parse(wire.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("invalid wallet id %q: %w", wire.ID, err))
	}
	merchantID, err := uuid.Parse(wire.MerchantID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("invalid merchant id %q: %w", wire.MerchantID, err))
	}
	wallet := &ports.LedgerWallet{
		ID:         id,
		MerchantID: merchantID,
		WalletType: wire.WalletType,
		Currency:   wire.Currency,
		Status:     wire.Status,
	}
	if wire.VendorUserID != nil {
		vendorID, err := uuid.Parse(*wire.VendorUserID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("invalid vendor user id %q: %w", *wire.VendorUserID, err))
		}
		wallet.VendorUserID = &vendorID
	}
	return wallet, nil
}
