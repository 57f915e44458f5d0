package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/service/ticker"
)

const DefaultInterval = time.Minute

// Refresher — одно обновление отображаемой цены
type Refresher interface {
	Refresh(ctx context.Context) ticker.Display
}

type Scheduler struct {
	refresher Refresher
	interval  time.Duration
	logger    *slog.Logger
}

// NewScheduler — конструктор планировщика фонового обновления цены
func NewScheduler(refresher Refresher, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		refresher: refresher,
		interval:  interval,
		logger:    logger,
	}
}

// Start — запускает периодическое выполнение задачи до остановки контекста
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("scheduler started")
	s.logger.Debug("scheduler interval configured", slog.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// первый запуск сразу
	s.runOnce(ctx)

	for {
		select {
		case <-ticker.C:
			s.runOnce(ctx)
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		}
	}
}

// runOnce — одна итерация: опросить источники и обновить отображение
func (s *Scheduler) runOnce(ctx context.Context) {
	s.logger.Debug("tick: running refresh")
	started := time.Now()
	d := s.refresher.Refresh(ctx)
	if !d.OK {
		s.logger.Error("tick: refresh failed", slog.String("status", string(d.Status)), slog.Int("attempts", len(d.Attempts)))
	} else {
		s.logger.Debug("tick: refresh completed",
			slog.String("price", d.Price),
			slog.String("source_id", d.Source),
			slog.Duration("duration", time.Since(started)),
		)
	}
}
