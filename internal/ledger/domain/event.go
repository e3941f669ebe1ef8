package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types written to the outbox and relayed to the message bus.
const (
	EventTypeWalletCreated  = "wallet.created"
	EventTypeWalletCredited = "wallet.credited"
	EventTypeWalletDebited  = "wallet.debited"

	aggregateTypeWallet = "WALLET"
)

// OutboxEvent is a durable event record written in the same transaction as
// the domain change it describes. A relay publishes it at least once.
type OutboxEvent struct {
	ID            uuid.UUID `json:"id"`
	AggregateType string    `json:"aggregate_type"`
	AggregateID   string    `json:"aggregate_id"`
	EventType     string    `json:"event_type"`
	Payload       []byte    `json:"payload"`
	CorrelationID *string   `json:"correlation_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	Published     bool      `json:"published"`
}

type walletEventPayload struct {
	EventID     string `json:"event_id"`
	EventType   string `json:"event_type"`
	WalletID    string `json:"wallet_id"`
	MerchantID  string `json:"merchant_id"`
	Amount      string `json:"amount,omitempty"`
	Currency    string `json:"currency"`
	ReferenceID string `json:"reference_id,omitempty"`
	OccurredAt  string `json:"occurred_at"`
}

// NewWalletCreatedEvent records wallet creation.
func NewWalletCreatedEvent(w *Wallet, correlationID *string, now time.Time) (*OutboxEvent, error) {
	return newWalletEvent(EventTypeWalletCreated, w.ID, walletEventPayload{
		WalletID:   w.ID.String(),
		MerchantID: w.MerchantID.String(),
		Currency:   string(w.Currency),
	}, correlationID, now)
}

// NewWalletCreditedEvent records a confirmed credit.
func NewWalletCreditedEvent(e *LedgerEntry, correlationID *string, now time.Time) (*OutboxEvent, error) {
	return newWalletEvent(EventTypeWalletCredited, e.WalletID, walletEventPayload{
		WalletID:    e.WalletID.String(),
		MerchantID:  e.MerchantID.String(),
		Amount:      e.Amount.StringAmount(),
		Currency:    string(e.Amount.Currency()),
		ReferenceID: e.ReferenceID,
	}, correlationID, now)
}

// NewWalletDebitedEvent records a confirmed debit.
func NewWalletDebitedEvent(e *LedgerEntry, correlationID *string, now time.Time) (*OutboxEvent, error) {
	return newWalletEvent(EventTypeWalletDebited, e.WalletID, walletEventPayload{
		WalletID:    e.WalletID.String(),
		MerchantID:  e.MerchantID.String(),
		Amount:      e.Amount.StringAmount(),
		Currency:    string(e.Amount.Currency()),
		ReferenceID: e.ReferenceID,
	}, correlationID, now)
}

func newWalletEvent(eventType string, walletID uuid.UUID, payload walletEventPayload, correlationID *string, now time.Time) (*OutboxEvent, error) {
	id := uuid.New()
	payload.EventID = id.String()
	payload.EventType = eventType
	payload.OccurredAt = now.UTC().Format(time.RFC3339Nano)

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &OutboxEvent{
		ID:            id,
		AggregateType: aggregateTypeWallet,
		AggregateID:   walletID.String(),
		EventType:     eventType,
		Payload:       data,
		CorrelationID: correlationID,
		CreatedAt:     now,
		Published:     false,
	}, nil
}
