package settings

import (
	"context"
	"errors"
	"log/slog"

	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/domain"
	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/repository"
	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/source"
)

// KeyMarketDataSource - ключ предпочитаемого источника в хранилище настроек
const KeyMarketDataSource = "MARKET_DATA_SOURCE"

// Store — строковое хранилище ключ-значение (memory, postgres, redis)
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

type Service interface {
	// Preferred — сохранённый источник или источник по умолчанию
	Preferred(ctx context.Context) domain.SourceID
	// SetPreferred — проверяет id по реестру и сохраняет каноничное имя
	SetPreferred(ctx context.Context, id string) (domain.SourceID, error)
}

type service struct {
	store    Store
	registry *source.Registry
	fallback domain.SourceID
	logger   *slog.Logger
}

// NewService - defaultSource используется, когда настройка пуста или не из реестра
func NewService(store Store, registry *source.Registry, defaultSource domain.SourceID, logger *slog.Logger) Service {
	if !registry.Has(defaultSource) {
		defaultSource = source.DefaultSource
	}
	return &service{
		store:    store,
		registry: registry,
		fallback: source.Normalize(defaultSource),
		logger:   logger,
	}
}

func (s *service) Preferred(ctx context.Context) domain.SourceID {
	value, err := s.store.Get(ctx, KeyMarketDataSource)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("failed to read preferred source", "err", err)
		}
		return s.fallback
	}
	if value == "" {
		return s.fallback
	}
	id := source.Normalize(value)
	if !s.registry.Has(id) {
		s.logger.Warn("stored source is not supported", "value", value)
		return s.fallback
	}
	return id
}

func (s *service) SetPreferred(ctx context.Context, id string) (domain.SourceID, error) {
	d, err := s.registry.Lookup(id)
	if err != nil {
		return "", err
	}
	if err := s.store.Set(ctx, KeyMarketDataSource, d.ID); err != nil {
		s.logger.Error("failed to save preferred source", "source_id", d.ID, "err", err)
		return "", err
	}
	s.logger.Info("preferred source changed", "source_id", d.ID)
	return d.ID, nil
}
