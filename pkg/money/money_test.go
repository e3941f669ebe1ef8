package money

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCurrency(t *testing.T) {
	c, err := ParseCurrency("inr")
	require.NoError(t, err)
	assert.Equal(t, Currency("INR"), c)

	_, err = ParseCurrency("RUPEES")
	assert.Error(t, err)

	_, err = ParseCurrency("12$")
	assert.Error(t, err)
}

func TestNew_RescalesHalfUp(t *testing.T) {
	m, err := New(decimal.RequireFromString("10.00005"), "INR")
	require.NoError(t, err)
	assert.Equal(t, "10.0001", m.StringAmount())

	m, err = New(decimal.RequireFromString("10.00004"), "INR")
	require.NoError(t, err)
	assert.Equal(t, "10.0000", m.StringAmount())
}

func TestNew_RejectsNegative(t *testing.T) {
	_, err := New(decimal.RequireFromString("-0.0001"), "INR")
	assert.Error(t, err)
}

func TestAdd(t *testing.T) {
	a := MustParse("100.50", "INR")
	b := MustParse("0.25", "INR")

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, "100.7500", sum.StringAmount())
}

func TestAdd_CurrencyMismatch(t *testing.T) {
	a := MustParse("1", "INR")
	b := MustParse("1", "USD")

	_, err := a.Add(b)
	assert.ErrorContains(t, err, "currency mismatch")
}

func TestSub_RejectsNegativeResult(t *testing.T) {
	a := MustParse("1", "INR")
	b := MustParse("2", "INR")

	_, err := a.Sub(b)
	assert.ErrorContains(t, err, "negative")

	diff, err := b.Sub(a)
	require.NoError(t, err)
	assert.Equal(t, "1.0000", diff.StringAmount())
}

func TestGreaterThan(t *testing.T) {
	a := MustParse("2", "INR")
	b := MustParse("1", "INR")

	gt, err := a.GreaterThan(b)
	require.NoError(t, err)
	assert.True(t, gt)

	_, err = a.GreaterThan(MustParse("1", "USD"))
	assert.Error(t, err)
}

func TestJSONRoundTrip(t *testing.T) {
	m := MustParse("300", "INR")

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"300.0000","currency":"INR"}`, string(data))

	var decoded Money
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, m.Equal(decoded))
}

func TestUnmarshal_RejectsNegative(t *testing.T) {
	var m Money
	err := json.Unmarshal([]byte(`{"amount":"-5","currency":"INR"}`), &m)
	assert.Error(t, err)
}
