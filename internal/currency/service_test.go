package currency

import (
	"context"
	"testing"

	"github.com/ledgerly/ledgerly/internal/currency/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) domain.Service {
	t.Helper()

	holder := &RatesHolder{}
	holder.current.Store(DefaultRates())
	return NewService(zap.NewNop(), holder)
}

func TestRatePairwise(t *testing.T) {
	svc := newTestService(t)

	rate, err := svc.Rate(context.Background(), "USD", "EUR")
	require.NoError(t, err)
	assert.InDelta(t, 0.85, rate, 1e-9)

	rate, err = svc.Rate(context.Background(), "EUR", "USD")
	require.NoError(t, err)
	assert.InDelta(t, 1/0.85, rate, 1e-9)

	rate, err = svc.Rate(context.Background(), "GBP", "JPY")
	require.NoError(t, err)
	assert.InDelta(t, 110.0/0.73, rate, 1e-9)
}

func TestRateUnknownCurrency(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Rate(context.Background(), "USD", "XXX")
	assert.ErrorIs(t, err, domain.ErrUnknownCurrency)

	_, err = svc.Rate(context.Background(), "", "USD")
	assert.ErrorIs(t, err, domain.ErrUnknownCurrency)
}

func TestConvertRoundsToMinorUnits(t *testing.T) {
	svc := newTestService(t)

	resp, err := svc.Convert(context.Background(), domain.ConvertRequest{
		Amount: 10000,
		From:   "usd",
		To:     "eur",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(8500), resp.Converted)
	assert.Equal(t, "USD", resp.From)
	assert.Equal(t, "EUR", resp.To)
}

func TestConvertRejectsNegativeAmount(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Convert(context.Background(), domain.ConvertRequest{
		Amount: -1,
		From:   "USD",
		To:     "EUR",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestSameCurrencyRateIsOne(t *testing.T) {
	svc := newTestService(t)

	rate, err := svc.Rate(context.Background(), "CHF", "CHF")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, rate, 1e-9)
}
