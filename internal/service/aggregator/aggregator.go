package aggregator

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/domain"
	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/pkg/pricefmt"
	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/ports/errcode"
	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/source"
)

// Последовательный обход источников с переходом на следующий при ошибке

// Ordering - порядок запасных источников
type Ordering string

const (
	OrderingRegistry Ordering = "registry"
	OrderingShuffled Ordering = "shuffled"
)

// ParseOrdering - пустая строка означает порядок реестра
func ParseOrdering(s string) (Ordering, error) {
	switch Ordering(s) {
	case "", OrderingRegistry:
		return OrderingRegistry, nil
	case OrderingShuffled:
		return OrderingShuffled, nil
	}
	return "", errors.New("unknown ordering: " + s)
}

type Options struct {
	Fallback bool
	Ordering Ordering
	// Deadline - общий дедлайн вызова, 0 - только дедлайн контекста
	Deadline time.Duration
	// DefaultSource - источник для пустого preferred, по умолчанию source.DefaultSource
	DefaultSource domain.SourceID
}

func DefaultOptions() Options {
	return Options{Fallback: true, Ordering: OrderingRegistry}
}

// PriceFetcher - одна попытка по одному источнику (fetch.Service)
type PriceFetcher interface {
	Fetch(ctx context.Context, id domain.SourceID) (domain.Price, error)
}

type Service interface {
	// GetPrice — никогда не возвращает ошибку, все отказы лежат в Result.Attempts
	GetPrice(ctx context.Context, preferred domain.SourceID, opts Options) domain.Result
	// ListSources — идентификаторы источников по алфавиту
	ListSources() []domain.SourceID
}

type service struct {
	registry *source.Registry
	fetcher  PriceFetcher
	clock    Clock
	shuffle  func(ids []domain.SourceID)
	logger   *slog.Logger
}

func NewService(registry *source.Registry, fetcher PriceFetcher, logger *slog.Logger) Service {
	return NewServiceWithClock(registry, fetcher, NewRealClock(), logger)
}

// NewServiceWithClock - Конструктор для тестов: позволяет подставить фиксированные "часы".
func NewServiceWithClock(registry *source.Registry, fetcher PriceFetcher, clk Clock, logger *slog.Logger) Service {
	return &service{
		registry: registry,
		fetcher:  fetcher,
		clock:    clk,
		shuffle: func(ids []domain.SourceID) {
			rand.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
		},
		logger: logger,
	}
}

func (s *service) ListSources() []domain.SourceID {
	return s.registry.ListSorted()
}

func (s *service) GetPrice(ctx context.Context, preferred domain.SourceID, opts Options) domain.Result {
	if opts.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Deadline)
		defer cancel()
	}

	res := domain.Result{Attempts: []domain.Attempt{}}
	preferred = source.Normalize(preferred)
	if preferred == "" {
		preferred = source.Normalize(opts.DefaultSource)
		if preferred == "" {
			preferred = source.DefaultSource
		}
	}

	var seq []domain.SourceID
	if _, err := s.registry.Lookup(preferred); err != nil {
		// неизвестный источник не запрашивается, но остаётся в истории попыток
		s.logger.Warn("preferred source rejected", slog.String("source_id", preferred), slog.String("err", err.Error()))
		res.Attempts = append(res.Attempts, domain.Attempt{
			Source:    preferred,
			StartedAt: s.clock.Now(),
			Err:       domain.NewFetchError(errcode.BadInput, preferred, err),
		})
		if !opts.Fallback {
			return res
		}
		seq = s.fallbacks("", opts.Ordering)
	} else {
		seq = []domain.SourceID{preferred}
		if opts.Fallback {
			seq = append(seq, s.fallbacks(preferred, opts.Ordering)...)
		}
	}

	for _, id := range seq {
		if kind := interruption(ctx); kind != "" {
			res.Attempts = append(res.Attempts, domain.Attempt{
				Source:    id,
				StartedAt: s.clock.Now(),
				Err:       domain.NewFetchError(kind, id, ctx.Err()),
			})
			res.Interrupted = kind
			s.logger.Warn("aggregation interrupted", slog.String("source_id", id), slog.String("kind", string(kind)))
			return res
		}

		started := s.clock.Now()
		price, err := s.fetcher.Fetch(ctx, id)
		attempt := domain.Attempt{
			Source:    id,
			StartedAt: started,
			Duration:  s.clock.Now().Sub(started),
		}

		if err == nil {
			attempt.Price = price
			res.Attempts = append(res.Attempts, attempt)
			res.OK = true
			res.Price = pricefmt.Format(price)
			res.WinningSource = id
			s.logger.Info("price fetched",
				slog.String("source_id", id),
				slog.String("price", res.Price),
				slog.Int("attempts", len(res.Attempts)),
			)
			return res
		}

		fe := domain.AsFetchError(id, err)
		// отмена или общий дедлайн вызывающего важнее категории ошибки транспорта
		if kind := interruption(ctx); kind != "" {
			fe = domain.NewFetchError(kind, id, err)
			attempt.Err = fe
			res.Attempts = append(res.Attempts, attempt)
			res.Interrupted = kind
			s.logger.Warn("aggregation interrupted", slog.String("source_id", id), slog.String("kind", string(kind)))
			return res
		}

		attempt.Err = fe
		res.Attempts = append(res.Attempts, attempt)
		s.logger.Warn("source failed",
			slog.String("source_id", id),
			slog.String("kind", string(fe.Kind)),
			slog.Int("status", fe.Status),
			slog.String("err", fe.Message),
		)
	}

	s.logger.Error("all sources failed", slog.Int("attempts", len(res.Attempts)))
	return res
}

// fallbacks - отсортированные источники без skip
func (s *service) fallbacks(skip domain.SourceID, ordering Ordering) []domain.SourceID {
	ids := s.registry.ListSorted()
	out := ids[:0]
	for _, id := range ids {
		if id != skip {
			out = append(out, id)
		}
	}
	if ordering == OrderingShuffled {
		s.shuffle(out)
	}
	return out
}

func interruption(ctx context.Context) errcode.Code {
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return errcode.Cancelled
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return errcode.Timeout
	}
	return ""
}
