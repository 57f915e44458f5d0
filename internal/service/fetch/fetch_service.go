package fetch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/domain"
	errs "github.com/NastyaGoryachaya/btc-price-aggregator/internal/errors"
	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/ports/errcode"
	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/source"
)

const DefaultAttemptTimeout = 10 * time.Second

// Service - одна попытка получить цену из одного источника
type Service interface {
	Fetch(ctx context.Context, id domain.SourceID) (domain.Price, error)
}

// HTTPGetter - транспорт, отдающий тело ответа целиком
type HTTPGetter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

type Config struct {
	AttemptTimeout time.Duration
	// RatePerSecond - ограничение частоты запросов к каждому источнику, 0 - без ограничения
	RatePerSecond float64
	RateBurst     int
}

type fetchService struct {
	registry *source.Registry
	client   HTTPGetter
	timeout  time.Duration
	limiters map[domain.SourceID]*rate.Limiter
	logger   *slog.Logger
}

// NewService — конструктор сервиса получения цены из одного источника.
func NewService(registry *source.Registry, client HTTPGetter, cfg Config, logger *slog.Logger) Service {
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = DefaultAttemptTimeout
	}
	s := &fetchService{
		registry: registry,
		client:   client,
		timeout:  cfg.AttemptTimeout,
		logger:   logger,
	}
	if cfg.RatePerSecond > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		// карта заполняется один раз и дальше только читается
		s.limiters = make(map[domain.SourceID]*rate.Limiter, registry.Len())
		for _, id := range registry.ListSorted() {
			s.limiters[id] = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
		}
	}
	return s
}

// Fetch — ищет источник, делает GET с дедлайном попытки и извлекает цену.
// Все ошибки возвращаются как *domain.FetchError.
func (s *fetchService) Fetch(ctx context.Context, id domain.SourceID) (domain.Price, error) {
	d, err := s.registry.Lookup(id)
	if err != nil {
		return domain.Price{}, domain.NewFetchError(errcode.BadInput, source.Normalize(id), err)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if lim := s.limiters[d.ID]; lim != nil {
		if err := lim.Wait(attemptCtx); err != nil {
			return domain.Price{}, waitError(ctx, d.ID, err)
		}
	}

	s.logger.Info("calling api url", slog.String("source_id", d.ID), slog.String("url", d.Endpoint))

	body, err := s.client.Get(attemptCtx, d.Endpoint)
	if err != nil {
		fe := domain.AsFetchError(d.ID, err)
		s.logger.Debug("fetch failed",
			slog.String("source_id", d.ID),
			slog.String("kind", string(fe.Kind)),
			slog.String("err", fe.Message),
		)
		return domain.Price{}, fe
	}

	price, err := d.Extract(body)
	if err != nil {
		return domain.Price{}, domain.NewFetchError(errcode.DecodeError, d.ID, err)
	}
	return price, nil
}

// waitError - ограничитель отказывает, если ожидание не укладывается в дедлайн попытки
func waitError(parent context.Context, id domain.SourceID, err error) *domain.FetchError {
	if errors.Is(parent.Err(), context.Canceled) {
		return domain.NewFetchError(errcode.Cancelled, id, err)
	}
	return domain.NewFetchError(errcode.Timeout, id, errors.Join(errs.ErrRateLimited, err))
}
