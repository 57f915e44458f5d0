package ticker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/domain"
	errs "github.com/NastyaGoryachaya/btc-price-aggregator/internal/errors"
	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/pkg/pricefmt"
	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/repository"
	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/service/aggregator"
)

// Периодическое обновление отображаемой цены и история успешных цен

const (
	NoDataSource  = "No data"
	FailureNotice = pricefmt.FailureNotice
)

// Display — то, что видит пользователь после очередного обновления
type Display struct {
	Price     string           `json:"price"`
	Source    domain.SourceID  `json:"source"`
	OK        bool             `json:"ok"`
	Notice    string           `json:"notice,omitempty"`
	Status    domain.Status    `json:"status"`
	Attempts  []domain.Attempt `json:"attempts"`
	UpdatedAt time.Time        `json:"updated_at"`
}

type Service interface {
	// Refresh — один вызов агрегатора с сохранённым источником
	Refresh(ctx context.Context) Display
	// Current — последний результат, при пустом кеше выполняет Refresh
	Current(ctx context.Context) Display
	// LastSaved — последняя сохранённая успешная цена
	LastSaved(ctx context.Context) (domain.Snapshot, error)
}

type PreferenceReader interface {
	Preferred(ctx context.Context) domain.SourceID
}

type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, s domain.Snapshot) error
	LatestSnapshot(ctx context.Context) (*domain.Snapshot, error)
}

type service struct {
	agg       aggregator.Service
	prefs     PreferenceReader
	snapshots SnapshotStore
	opts      aggregator.Options
	clock     aggregator.Clock
	logger    *slog.Logger

	mu    sync.RWMutex
	last  *Display
	first singleflight.Group
}

// NewService - snapshots может быть nil, тогда история не ведётся
func NewService(agg aggregator.Service, prefs PreferenceReader, snapshots SnapshotStore, opts aggregator.Options, logger *slog.Logger) Service {
	return NewServiceWithClock(agg, prefs, snapshots, opts, aggregator.NewRealClock(), logger)
}

// NewServiceWithClock - Конструктор для тестов: позволяет подставить фиксированные "часы".
func NewServiceWithClock(agg aggregator.Service, prefs PreferenceReader, snapshots SnapshotStore, opts aggregator.Options, clk aggregator.Clock, logger *slog.Logger) Service {
	return &service{
		agg:       agg,
		prefs:     prefs,
		snapshots: snapshots,
		opts:      opts,
		clock:     clk,
		logger:    logger,
	}
}

func (s *service) Refresh(ctx context.Context) Display {
	// настройка читается ровно один раз за вызов
	preferred := s.prefs.Preferred(ctx)
	res := s.agg.GetPrice(ctx, preferred, s.opts)
	now := s.clock.Now()

	d := Display{
		Status:    res.Status(),
		Attempts:  res.Attempts,
		UpdatedAt: now,
	}
	if res.OK {
		d.OK = true
		d.Price = res.Price
		d.Source = res.WinningSource
		s.save(ctx, res, now)
	} else {
		d.Price = pricefmt.Placeholder
		d.Source = NoDataSource
		d.Notice = FailureNotice
		s.logger.Warn("ticker refresh failed", "preferred", preferred, "status", d.Status, "attempts", len(res.Attempts))
	}

	s.mu.Lock()
	s.last = &d
	s.mu.Unlock()
	return d
}

func (s *service) Current(ctx context.Context) Display {
	if last := s.cached(); last != nil {
		return *last
	}
	// одновременные вызовы при пустом кеше ждут одно обновление
	v, _, _ := s.first.Do("refresh", func() (any, error) {
		if last := s.cached(); last != nil {
			return *last, nil
		}
		return s.Refresh(ctx), nil
	})
	return v.(Display)
}

func (s *service) cached() *Display {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

func (s *service) LastSaved(ctx context.Context) (domain.Snapshot, error) {
	if s.snapshots == nil {
		return domain.Snapshot{}, errs.ErrPriceNotFound
	}
	snap, err := s.snapshots.LatestSnapshot(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Snapshot{}, errs.ErrPriceNotFound
		}
		s.logger.Error("failed to load latest snapshot", "err", err)
		return domain.Snapshot{}, err
	}
	if snap == nil {
		return domain.Snapshot{}, errs.ErrPriceNotFound
	}
	return *snap, nil
}

// save - ошибка записи только логируется, на отображение не влияет
func (s *service) save(ctx context.Context, res domain.Result, at time.Time) {
	if s.snapshots == nil {
		return
	}
	last, ok := res.Last()
	if !ok {
		return
	}
	snap := domain.Snapshot{Source: last.Source, Value: last.Price, FetchedAt: at}
	if err := s.snapshots.SaveSnapshot(ctx, snap); err != nil {
		s.logger.Error("failed to save snapshot", "source_id", snap.Source, "err", err)
	}
}
