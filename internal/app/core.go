package app

import (
	"fmt"
	"log/slog"

	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/config"
	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/infra/api_client"
	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/service/aggregator"
	fetchsvc "github.com/NastyaGoryachaya/btc-price-aggregator/internal/service/fetch"
	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/source"
)

// Core — реестр, HTTP-клиент, получение цены и агрегатор. Общая часть сервиса и CLI.
type Core struct {
	Registry   *source.Registry
	Fetcher    fetchsvc.Service
	Aggregator aggregator.Service
	Options    aggregator.Options
}

func NewCore(cfg config.AggregatorConfig, sources config.SourcesConfig, log *slog.Logger) (*Core, error) {
	ordering, err := aggregator.ParseOrdering(cfg.Ordering)
	if err != nil {
		return nil, fmt.Errorf("aggregator config: %w", err)
	}

	registry := source.Default().WithEndpoints(sources.Endpoints)
	client := api_client.NewClient(api_client.Config{
		MaxBodyBytes: cfg.MaxBodyBytes,
		MaxRedirects: cfg.MaxRedirects,
	})
	fetcher := fetchsvc.NewService(registry, client, fetchsvc.Config{
		AttemptTimeout: cfg.AttemptTimeout,
		RatePerSecond:  cfg.RatePerSecond,
		RateBurst:      cfg.RateBurst,
	}, log)

	return &Core{
		Registry:   registry,
		Fetcher:    fetcher,
		Aggregator: aggregator.NewService(registry, fetcher, log),
		Options: aggregator.Options{
			Fallback:      !cfg.NoFallback,
			Ordering:      ordering,
			Deadline:      cfg.TotalTimeout,
			DefaultSource: cfg.DefaultSource,
		},
	}, nil
}
