package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/TrulyGourav/OrchexPay/pkg/money"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryStatus_CanTransitionTo(t *testing.T) {
	cases := []struct {
		from, to EntryStatus
		allowed  bool
	}{
		{EntryStatusPending, EntryStatusConfirmed, true},
		{EntryStatusPending, EntryStatusReversed, true},
		{EntryStatusConfirmed, EntryStatusReversed, false},
		{EntryStatusConfirmed, EntryStatusPending, false},
		{EntryStatusReversed, EntryStatusConfirmed, false},
		{EntryStatusReversed, EntryStatusPending, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestParseReferenceType(t *testing.T) {
	for _, valid := range []string{"ORDER", "PAYOUT", "REFUND", "REVERSAL"} {
		_, ok := ParseReferenceType(valid)
		assert.True(t, ok, valid)
	}
	_, ok := ParseReferenceType("SETTLEMENT")
	assert.False(t, ok)
}

func TestReversalReferenceID(t *testing.T) {
	assert.Equal(t, "p1-reversal", ReversalReferenceID("p1"))
}

func TestNewVendorWallet(t *testing.T) {
	merchantID, vendorID := uuid.New(), uuid.New()
	w := NewVendorWallet(merchantID, vendorID, "INR", time.Now())

	assert.Equal(t, WalletTypeVendor, w.WalletType)
	require.NotNil(t, w.VendorUserID)
	assert.Equal(t, vendorID, *w.VendorUserID)
	assert.True(t, w.IsActive())
}

func TestNewMerchantWallet_NoVendor(t *testing.T) {
	w := NewMerchantWallet(uuid.New(), WalletTypeEscrow, "INR", time.Now())
	assert.Nil(t, w.VendorUserID)
	assert.Equal(t, WalletStatusActive, w.Status)
}

func TestNewDebit_CopiesWalletIdentity(t *testing.T) {
	merchantID, vendorID := uuid.New(), uuid.New()
	w := NewVendorWallet(merchantID, vendorID, "INR", time.Now())

	e := NewDebit(w, money.MustParse("300", "INR"), ReferenceTypePayout, "p1",
		EntryStatusPending, "payout reserve", time.Now())

	assert.Equal(t, w.ID, e.WalletID)
	assert.Equal(t, merchantID, e.MerchantID)
	require.NotNil(t, e.VendorID)
	assert.Equal(t, vendorID, *e.VendorID)
	assert.Equal(t, EntryTypeDebit, e.Type)
	assert.Equal(t, EntryStatusPending, e.Status)
}

func TestPrincipal_MayOperateWallet(t *testing.T) {
	merchantID, vendorID := uuid.New(), uuid.New()
	vendorWallet := NewVendorWallet(merchantID, vendorID, "INR", time.Now())
	escrow := NewMerchantWallet(merchantID, WalletTypeEscrow, "INR", time.Now())

	admin := Principal{UserID: uuid.New(), Role: RoleAdmin}
	merchant := Principal{UserID: uuid.New(), Role: RoleMerchant, MerchantID: &merchantID}
	vendor := Principal{UserID: vendorID, Role: RoleVendor, MerchantID: &merchantID}
	otherVendor := Principal{UserID: uuid.New(), Role: RoleVendor, MerchantID: &merchantID}

	assert.True(t, admin.MayOperateWallet(escrow))
	assert.True(t, merchant.MayOperateWallet(escrow))
	assert.True(t, merchant.MayOperateWallet(vendorWallet))
	assert.True(t, vendor.MayOperateWallet(vendorWallet))
	assert.False(t, vendor.MayOperateWallet(escrow))
	assert.False(t, otherVendor.MayOperateWallet(vendorWallet))
}

func TestNewWalletCreditedEvent_Payload(t *testing.T) {
	w := NewMerchantWallet(uuid.New(), WalletTypeEscrow, "INR", time.Now())
	e := NewCredit(w, money.MustParse("150.25", "INR"), ReferenceTypeOrder, "order-1",
		EntryStatusConfirmed, "payment", time.Now())

	evt, err := NewWalletCreditedEvent(e, nil, time.Now())
	require.NoError(t, err)

	assert.Equal(t, EventTypeWalletCredited, evt.EventType)
	assert.Equal(t, w.ID.String(), evt.AggregateID)
	assert.False(t, evt.Published)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(evt.Payload, &payload))
	assert.Equal(t, "150.2500", payload["amount"])
	assert.Equal(t, "order-1", payload["reference_id"])
}
