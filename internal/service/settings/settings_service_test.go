package settings_test

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"

	errs "github.com/NastyaGoryachaya/btc-price-aggregator/internal/errors"
	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/repository"
	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/repository/memory"
	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/service/settings"
	settingsmocks "github.com/NastyaGoryachaya/btc-price-aggregator/internal/service/settings/mocks"
	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/source"
	"github.com/NastyaGoryachaya/btc-price-aggregator/pkg/logger"
)

func TestPreferred_DefaultWhenUnset(t *testing.T) {
	svc := settings.NewService(memory.NewSettingsStore(), source.Default(), "coinbase", logger.Discard())
	if got := svc.Preferred(context.Background()); got != "coinbase" {
		t.Fatalf("expected coinbase, got %q", got)
	}
}

func TestPreferred_StoreErrors(t *testing.T) {
	cases := []struct {
		name  string
		value string
		err   error
	}{
		{"not found", "", repository.ErrNotFound},
		{"db down", "", errors.New("db down")},
		{"empty value", "", nil},
		{"unsupported value", "mybank", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			store := settingsmocks.NewMockStore(ctrl)
			store.EXPECT().Get(gomock.Any(), settings.KeyMarketDataSource).Return(tc.value, tc.err).Times(1)

			svc := settings.NewService(store, source.Default(), "gemini", logger.Discard())
			if got := svc.Preferred(context.Background()); got != "gemini" {
				t.Fatalf("expected default gemini, got %q", got)
			}
		})
	}
}

func TestPreferred_UnknownDefaultFallsBackToCoinbase(t *testing.T) {
	svc := settings.NewService(memory.NewSettingsStore(), source.Default(), "mybank", logger.Discard())
	if got := svc.Preferred(context.Background()); got != source.DefaultSource {
		t.Fatalf("expected %s, got %q", source.DefaultSource, got)
	}
}

func TestSetPreferred_StoresCanonicalID(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSettingsStore()
	svc := settings.NewService(store, source.Default(), "coinbase", logger.Discard())

	id, err := svc.SetPreferred(ctx, "  Kraken ")
	if err != nil || id != "kraken" {
		t.Fatalf("SetPreferred = %q, %v", id, err)
	}
	raw, _ := store.Get(ctx, settings.KeyMarketDataSource)
	if raw != "kraken" {
		t.Fatalf("unexpected stored value %q", raw)
	}
	if got := svc.Preferred(ctx); got != "kraken" {
		t.Fatalf("expected kraken, got %q", got)
	}
}

func TestSetPreferred_RejectsUnknown(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := settingsmocks.NewMockStore(ctrl)
	store.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	svc := settings.NewService(store, source.Default(), "coinbase", logger.Discard())

	if _, err := svc.SetPreferred(context.Background(), "mybank"); !errors.Is(err, errs.ErrUnsupportedSource) {
		t.Fatalf("expected ErrUnsupportedSource, got %v", err)
	}
	if _, err := svc.SetPreferred(context.Background(), ""); !errors.Is(err, errs.ErrEmptySource) {
		t.Fatalf("expected ErrEmptySource, got %v", err)
	}
}

func TestSetPreferred_StoreError(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := settingsmocks.NewMockStore(ctrl)
	store.EXPECT().Set(gomock.Any(), settings.KeyMarketDataSource, "bitstamp").Return(errors.New("db down"))

	svc := settings.NewService(store, source.Default(), "coinbase", logger.Discard())
	if _, err := svc.SetPreferred(context.Background(), "bitstamp"); err == nil {
		t.Fatalf("expected error")
	}
}
