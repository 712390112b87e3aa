package currency

import (
	"context"
	"math"
	"strings"

	"github.com/ledgerly/ledgerly/internal/currency/domain"
	"go.uber.org/zap"
)

type Service struct {
	log   *zap.Logger
	rates *RatesHolder
}

func NewService(log *zap.Logger, rates *RatesHolder) domain.Service {
	return &Service{
		log:   log.Named("currency.service"),
		rates: rates,
	}
}

func (s *Service) List(ctx context.Context) ([]domain.Currency, error) {
	_ = ctx
	return s.rates.Get(), nil
}

func (s *Service) Rate(ctx context.Context, from, to string) (float64, error) {
	_ = ctx

	fromRate, ok := s.lookup(from)
	if !ok {
		return 0, domain.ErrUnknownCurrency
	}
	toRate, ok := s.lookup(to)
	if !ok {
		return 0, domain.ErrUnknownCurrency
	}
	return toRate / fromRate, nil
}

func (s *Service) Convert(ctx context.Context, req domain.ConvertRequest) (domain.ConvertResponse, error) {
	if req.Amount < 0 {
		return domain.ConvertResponse{}, domain.ErrInvalidAmount
	}

	rate, err := s.Rate(ctx, req.From, req.To)
	if err != nil {
		return domain.ConvertResponse{}, err
	}

	converted := int64(math.Round(float64(req.Amount) * rate))
	return domain.ConvertResponse{
		Amount:    req.Amount,
		From:      strings.ToUpper(strings.TrimSpace(req.From)),
		To:        strings.ToUpper(strings.TrimSpace(req.To)),
		Rate:      rate,
		Converted: converted,
	}, nil
}

func (s *Service) lookup(code string) (float64, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return 0, false
	}
	for _, item := range s.rates.Get() {
		if item.Code == code {
			return item.Rate, true
		}
	}
	return 0, false
}
