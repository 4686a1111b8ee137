package service

import (
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediarise/neuromarket/internal/config"
)

func boundedTopUp() *TopUpService {
	cfg := config.Config{
		TopUpMin:     decimal.NewFromInt(50),
		TopUpMax:     decimal.NewFromInt(50000),
		PaymentPhone: "+79123456789",
		PaymentBank:  "Сбербанк",
	}
	return NewTopUpService(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), nil, nil)
}

func TestParseAmount(t *testing.T) {
	s := boundedTopUp()

	amount, err := s.ParseAmount("500")
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.NewFromInt(500)))

	// Comma decimals and surrounding spaces are tolerated.
	amount, err = s.ParseAmount("  1499,50 ")
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.RequireFromString("1499.50")))
}

func TestParseAmountBounds(t *testing.T) {
	s := boundedTopUp()

	_, err := s.ParseAmount("49")
	assert.ErrorIs(t, err, ErrAmountOutOfRange)

	_, err = s.ParseAmount("50001")
	assert.ErrorIs(t, err, ErrAmountOutOfRange)

	for _, edge := range []string{"50", "50000"} {
		_, err = s.ParseAmount(edge)
		assert.NoError(t, err, edge)
	}
}

func TestParseAmountGarbage(t *testing.T) {
	s := boundedTopUp()
	for _, raw := range []string{"", "пятьсот", "12x3"} {
		_, err := s.ParseAmount(raw)
		assert.Error(t, err, raw)
		assert.NotErrorIs(t, err, ErrAmountOutOfRange, raw)
	}
}

func TestPaymentDetailsMentionPhoneAndBank(t *testing.T) {
	details := boundedTopUp().PaymentDetails()
	assert.Contains(t, details, "+79123456789")
	assert.Contains(t, details, "Сбербанк")
	assert.Contains(t, details, "скриншот")
}
