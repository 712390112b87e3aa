package currency

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	currencydomain "github.com/ledgerly/ledgerly/internal/currency/domain"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// DefaultRates mirrors the built-in USD-relative rate table.
func DefaultRates() []currencydomain.Currency {
	return []currencydomain.Currency{
		{Code: "USD", Name: "US Dollar", Symbol: "$", Rate: 1.0},
		{Code: "EUR", Name: "Euro", Symbol: "€", Rate: 0.85},
		{Code: "GBP", Name: "British Pound", Symbol: "£", Rate: 0.73},
		{Code: "JPY", Name: "Japanese Yen", Symbol: "¥", Rate: 110.0},
		{Code: "CAD", Name: "Canadian Dollar", Symbol: "CA$", Rate: 1.25},
		{Code: "AUD", Name: "Australian Dollar", Symbol: "A$", Rate: 1.35},
		{Code: "CHF", Name: "Swiss Franc", Symbol: "CHF", Rate: 0.92},
		{Code: "CNY", Name: "Chinese Yuan", Symbol: "¥", Rate: 6.45},
	}
}

// RatesHolder serves the current rate table and hot-reloads it when the
// config file changes on disk.
type RatesHolder struct {
	current atomic.Value // holds []currencydomain.Currency
}

func NewRatesHolder(log *zap.Logger) (*RatesHolder, error) {
	log = log.Named("currency.rates")

	v := viper.New()
	v.SetConfigName("currencies")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/ledgerly/config")
	v.AddConfigPath("/etc/ledgerly")
	v.AddConfigPath(".")

	v.SetEnvPrefix("LEDGERLY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	holder := &RatesHolder{}
	holder.current.Store(DefaultRates())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		// No config file; the built-in table stays active.
		return holder, nil
	}

	rates, err := unmarshalRates(v)
	if err != nil {
		return nil, err
	}
	holder.current.Store(rates)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := unmarshalRates(v)
		if err != nil {
			log.Warn("rate table reload ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("rate table reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *RatesHolder) Get() []currencydomain.Currency {
	return h.current.Load().([]currencydomain.Currency)
}

func unmarshalRates(v *viper.Viper) ([]currencydomain.Currency, error) {
	var rates []currencydomain.Currency
	if err := v.UnmarshalKey("currencies", &rates); err != nil {
		return nil, err
	}
	if err := validateRates(rates); err != nil {
		return nil, err
	}
	for i := range rates {
		rates[i].Code = strings.ToUpper(strings.TrimSpace(rates[i].Code))
	}
	return rates, nil
}

func validateRates(rates []currencydomain.Currency) error {
	if len(rates) == 0 {
		return errors.New("currencies cannot be empty")
	}
	hasUSD := false
	for _, rate := range rates {
		if rate.Rate <= 0 {
			return errors.New("currency rates must be positive")
		}
		if strings.EqualFold(rate.Code, "USD") {
			hasUSD = true
		}
	}
	if !hasUSD {
		return errors.New("currencies must include USD")
	}
	return nil
}
