package aggregator_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"

	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/domain"
	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/infra/api_client"
	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/ports/errcode"
	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/service/aggregator"
	aggmocks "github.com/NastyaGoryachaya/btc-price-aggregator/internal/service/aggregator/mocks"
	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/service/fetch"
	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/source"
	"github.com/NastyaGoryachaya/btc-price-aggregator/pkg/logger"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// stack - агрегатор поверх настоящего HTTP-клиента, каждый источник отвечает по пути /<id>
func stack(t *testing.T, handlers map[string]http.HandlerFunc) aggregator.Service {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/")
		if h, ok := handlers[id]; ok {
			h(w, r)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	endpoints := make(map[string]string)
	for _, id := range source.Default().ListSorted() {
		endpoints[id] = srv.URL + "/" + id
	}
	reg := source.Default().WithEndpoints(endpoints)
	fetcher := fetch.NewService(reg, api_client.NewClient(api_client.Config{}), fetch.Config{AttemptTimeout: 2 * time.Second}, logger.Discard())
	return aggregator.NewService(reg, fetcher, logger.Discard())
}

func body(s string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(s)) }
}

func status(code int) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(code) }
}

func sources(res domain.Result) []string {
	out := make([]string, 0, len(res.Attempts))
	for _, a := range res.Attempts {
		out = append(out, a.Source)
	}
	return out
}

func checkWinner(t *testing.T, res domain.Result, price, winner string) {
	t.Helper()
	if !res.OK {
		t.Fatalf("expected success, got attempts %+v", res.Attempts)
	}
	if res.Price != price || res.WinningSource != winner {
		t.Fatalf("expected %s from %s, got %s from %s", price, winner, res.Price, res.WinningSource)
	}
	last, _ := res.Last()
	if last.Source != res.WinningSource || !last.OK() {
		t.Fatalf("winning source must be the last successful attempt: %+v", last)
	}
	if res.Status() != domain.StatusSuccess {
		t.Fatalf("unexpected status %s", res.Status())
	}
}

func TestGetPrice_PreferredSucceeds(t *testing.T) {
	t.Parallel()
	svc := stack(t, map[string]http.HandlerFunc{
		"coinbase": body(`{"data":{"amount":"67890.12"}}`),
	})

	res := svc.GetPrice(context.Background(), "coinbase", aggregator.DefaultOptions())
	checkWinner(t, res, "$67,890", "coinbase")
	if len(res.Attempts) != 1 {
		t.Fatalf("expected 1 attempt, got %d", len(res.Attempts))
	}
}

func TestGetPrice_FailoverToNextSource(t *testing.T) {
	t.Parallel()
	svc := stack(t, map[string]http.HandlerFunc{
		"binance":  status(http.StatusServiceUnavailable),
		"bitfinex": body(`[[0,0,0,0,0,0,0,61234.5,0,0,0]]`),
		"bitstamp": func(_ http.ResponseWriter, _ *http.Request) { t.Errorf("bitstamp must not be called") },
	})

	res := svc.GetPrice(context.Background(), "binance", aggregator.DefaultOptions())
	checkWinner(t, res, "$61,234", "bitfinex")
	if len(res.Attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %v", sources(res))
	}
	first := res.Attempts[0]
	if first.Source != "binance" || first.Err == nil || first.Err.Kind != errcode.HTTPError || first.Err.Status != 503 {
		t.Fatalf("unexpected first attempt: %+v", first)
	}
}

func TestGetPrice_KrakenPairKeyIsNotHardcoded(t *testing.T) {
	t.Parallel()
	for _, key := range []string{"XXBTZUSD", "XBTUSD"} {
		svc := stack(t, map[string]http.HandlerFunc{
			"kraken": body(`{"result":{"` + key + `":{"c":["72000.00","0.1"]}}}`),
		})
		res := svc.GetPrice(context.Background(), "kraken", aggregator.DefaultOptions())
		checkWinner(t, res, "$72,000", "kraken")
	}
}

func TestGetPrice_TruncatesFraction(t *testing.T) {
	t.Parallel()
	svc := stack(t, map[string]http.HandlerFunc{
		"bitstamp": body(`{"last":"99999.99"}`),
	})

	res := svc.GetPrice(context.Background(), "bitstamp", aggregator.DefaultOptions())
	checkWinner(t, res, "$99,999", "bitstamp")
}

func TestGetPrice_AllSourcesFail(t *testing.T) {
	t.Parallel()
	svc := stack(t, nil)

	res := svc.GetPrice(context.Background(), "gemini", aggregator.DefaultOptions())
	if res.OK || res.Interrupted != "" {
		t.Fatalf("expected exhausted failure, got %+v", res)
	}
	if res.Status() != domain.StatusExhausted {
		t.Fatalf("unexpected status %s", res.Status())
	}

	want := []string{"gemini", "binance", "bitfinex", "bitstamp", "coinbase", "coincap", "coingecko", "cryptocompare", "kraken"}
	if got := sources(res); !slices.Equal(got, want) {
		t.Fatalf("unexpected order:\n got %v\nwant %v", got, want)
	}
	for _, a := range res.Attempts {
		if a.Err == nil || a.Err.Kind != errcode.HTTPError || a.Err.Status != 500 {
			t.Fatalf("unexpected attempt: %+v", a)
		}
	}
}

func TestGetPrice_CancelledMidFlight(t *testing.T) {
	t.Parallel()
	svc := stack(t, map[string]http.HandlerFunc{
		"binance": func(_ http.ResponseWriter, r *http.Request) { <-r.Context().Done() },
		"bitfinex": func(_ http.ResponseWriter, _ *http.Request) {
			t.Errorf("no source may be tried after cancellation")
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	res := svc.GetPrice(ctx, "binance", aggregator.DefaultOptions())
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("cancellation took too long: %s", elapsed)
	}

	if res.OK || len(res.Attempts) != 1 {
		t.Fatalf("expected a single cancelled attempt, got %v", sources(res))
	}
	if a := res.Attempts[0]; a.Source != "binance" || a.Err.Kind != errcode.Cancelled {
		t.Fatalf("unexpected attempt: %+v", a)
	}
	if res.Status() != domain.StatusInterrupted || res.Interrupted != errcode.Cancelled {
		t.Fatalf("unexpected status %s / %s", res.Status(), res.Interrupted)
	}
}

func TestGetPrice_UnknownPreferredWithFallback(t *testing.T) {
	t.Parallel()
	svc := stack(t, map[string]http.HandlerFunc{
		"binance": body(`{"price":"65000.10"}`),
	})

	res := svc.GetPrice(context.Background(), "mybank", aggregator.DefaultOptions())
	checkWinner(t, res, "$65,000", "binance")
	if got := sources(res); !slices.Equal(got, []string{"mybank", "binance"}) {
		t.Fatalf("unexpected attempts %v", got)
	}
	if res.Attempts[0].Err == nil || res.Attempts[0].Err.Kind != errcode.BadInput {
		t.Fatalf("expected synthetic BAD_INPUT attempt, got %+v", res.Attempts[0])
	}
}

// Дальше - порядок и ветвления без сети

func newSvc(t *testing.T) (*aggmocks.MockPriceFetcher, aggregator.Service) {
	t.Helper()
	ctrl := gomock.NewController(t)
	fetcher := aggmocks.NewMockPriceFetcher(ctrl)
	clk := fixedClock{t: time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)}
	return fetcher, aggregator.NewServiceWithClock(source.Default(), fetcher, clk, logger.Discard())
}

func failure(kind errcode.Code) error {
	return &domain.FetchError{Kind: kind, Message: "boom"}
}

func TestGetPrice_UnknownPreferredWithoutFallback(t *testing.T) {
	t.Parallel()
	fetcher, svc := newSvc(t)
	fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any()).Times(0)

	res := svc.GetPrice(context.Background(), "MyBank", aggregator.Options{Fallback: false})
	if res.OK || len(res.Attempts) != 1 {
		t.Fatalf("expected single attempt, got %+v", res)
	}
	a := res.Attempts[0]
	if a.Source != "mybank" || a.Err.Kind != errcode.BadInput {
		t.Fatalf("unexpected attempt: %+v", a)
	}
	if res.Status() != domain.StatusBadInput {
		t.Fatalf("unexpected status %s", res.Status())
	}
}

// Пустой источник означает источник по умолчанию, а не ошибку ввода
func TestGetPrice_EmptyPreferred(t *testing.T) {
	t.Parallel()
	fetcher, svc := newSvc(t)
	fetcher.EXPECT().Fetch(gomock.Any(), "coinbase").Return(decimal.RequireFromString("65000.42"), nil).Times(1)

	res := svc.GetPrice(context.Background(), "   ", aggregator.DefaultOptions())
	checkWinner(t, res, "$65,000", "coinbase")
	if len(res.Attempts) != 1 {
		t.Fatalf("expected a single attempt, got %+v", res.Attempts)
	}
}

func TestGetPrice_EmptyPreferredNoFallback(t *testing.T) {
	t.Parallel()
	fetcher, svc := newSvc(t)
	fetcher.EXPECT().Fetch(gomock.Any(), "coinbase").Return(decimal.RequireFromString("65000"), nil).Times(1)

	res := svc.GetPrice(context.Background(), "", aggregator.Options{})
	if res.Status() != domain.StatusSuccess || res.WinningSource != "coinbase" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestGetPrice_EmptyPreferredConfiguredDefault(t *testing.T) {
	t.Parallel()
	fetcher, svc := newSvc(t)
	fetcher.EXPECT().Fetch(gomock.Any(), "gemini").Return(decimal.RequireFromString("64000"), nil).Times(1)

	res := svc.GetPrice(context.Background(), "", aggregator.Options{DefaultSource: "Gemini"})
	checkWinner(t, res, "$64,000", "gemini")
}

func TestGetPrice_NoFallbackStopsAfterPreferred(t *testing.T) {
	t.Parallel()
	fetcher, svc := newSvc(t)
	fetcher.EXPECT().Fetch(gomock.Any(), "kraken").Return(decimal.Zero, failure(errcode.DecodeError)).Times(1)

	res := svc.GetPrice(context.Background(), "KRAKEN", aggregator.Options{Fallback: false})
	if res.OK || len(res.Attempts) != 1 || res.Attempts[0].Err.Kind != errcode.DecodeError {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Status() != domain.StatusExhausted {
		t.Fatalf("unexpected status %s", res.Status())
	}
}

// Таймаут отдельной попытки не прерывает обход
func TestGetPrice_AttemptTimeoutContinues(t *testing.T) {
	t.Parallel()
	fetcher, svc := newSvc(t)
	gomock.InOrder(
		fetcher.EXPECT().Fetch(gomock.Any(), "coinbase").Return(decimal.Zero, failure(errcode.Timeout)),
		fetcher.EXPECT().Fetch(gomock.Any(), "binance").Return(decimal.RequireFromString("1000.5"), nil),
	)

	res := svc.GetPrice(context.Background(), "coinbase", aggregator.DefaultOptions())
	checkWinner(t, res, "$1,000", "binance")
	if res.Attempts[0].Err.Kind != errcode.Timeout {
		t.Fatalf("unexpected first attempt: %+v", res.Attempts[0])
	}
	if !res.Attempts[1].Price.Equal(decimal.RequireFromString("1000.5")) {
		t.Fatalf("raw price must be kept on the attempt: %s", res.Attempts[1].Price)
	}
}

// Общий дедлайн вызова останавливает обход с TIMEOUT
func TestGetPrice_TotalDeadline(t *testing.T) {
	t.Parallel()
	fetcher, svc := newSvc(t)
	fetcher.EXPECT().Fetch(gomock.Any(), "coinbase").DoAndReturn(
		func(ctx context.Context, _ string) (decimal.Decimal, error) {
			<-ctx.Done()
			return decimal.Zero, failure(errcode.NetworkError)
		},
	).Times(1)

	opts := aggregator.DefaultOptions()
	opts.Deadline = 30 * time.Millisecond
	res := svc.GetPrice(context.Background(), "coinbase", opts)

	if len(res.Attempts) != 1 || res.Attempts[0].Err.Kind != errcode.Timeout {
		t.Fatalf("unexpected attempts: %+v", res.Attempts)
	}
	if res.Interrupted != errcode.Timeout || res.Status() != domain.StatusInterrupted {
		t.Fatalf("unexpected interruption: %q", res.Interrupted)
	}
}

func TestGetPrice_AlreadyCancelled(t *testing.T) {
	t.Parallel()
	fetcher, svc := newSvc(t)
	fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any()).Times(0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := svc.GetPrice(ctx, "coinbase", aggregator.DefaultOptions())
	if len(res.Attempts) != 1 || res.Attempts[0].Err.Kind != errcode.Cancelled {
		t.Fatalf("unexpected attempts: %+v", res.Attempts)
	}
	if !errors.Is(res.Attempts[0].Err, context.Canceled) {
		t.Fatalf("cause must be kept: %v", res.Attempts[0].Err)
	}
}

// Попытки всегда префикс [preferred] ++ (sorted \ preferred)
func TestGetPrice_AttemptsArePrefixOfRegistryOrder(t *testing.T) {
	t.Parallel()
	sorted := source.Default().ListSorted()
	for winnerIdx := range sorted {
		fetcher, svc := newSvc(t)
		preferred := "kraken"
		order := append([]string{preferred}, slices.DeleteFunc(slices.Clone(sorted), func(id string) bool { return id == preferred })...)
		winner := order[winnerIdx]

		fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, id string) (decimal.Decimal, error) {
				if id == winner {
					return decimal.NewFromInt(42), nil
				}
				return decimal.Zero, failure(errcode.HTTPError)
			},
		).AnyTimes()

		res := svc.GetPrice(context.Background(), preferred, aggregator.DefaultOptions())
		if got := sources(res); !slices.Equal(got, order[:winnerIdx+1]) {
			t.Fatalf("winner %s: unexpected attempts %v", winner, got)
		}
	}
}

func TestGetPrice_ShuffledKeepsPreferredFirst(t *testing.T) {
	t.Parallel()
	fetcher, svc := newSvc(t)
	fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(decimal.Zero, failure(errcode.NetworkError)).Times(source.Default().Len())

	res := svc.GetPrice(context.Background(), "bitstamp", aggregator.Options{Fallback: true, Ordering: aggregator.OrderingShuffled})
	got := sources(res)
	if got[0] != "bitstamp" {
		t.Fatalf("preferred must stay first: %v", got)
	}
	rest := slices.Clone(got[1:])
	slices.Sort(rest)
	want := slices.DeleteFunc(source.Default().ListSorted(), func(id string) bool { return id == "bitstamp" })
	if !slices.Equal(rest, want) {
		t.Fatalf("every fallback must be tried once: %v", got)
	}
}

func TestParseOrdering(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]aggregator.Ordering{
		"":         aggregator.OrderingRegistry,
		"registry": aggregator.OrderingRegistry,
		"shuffled": aggregator.OrderingShuffled,
	} {
		got, err := aggregator.ParseOrdering(in)
		if err != nil || got != want {
			t.Fatalf("ParseOrdering(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := aggregator.ParseOrdering("random"); err == nil {
		t.Fatalf("expected error for unknown ordering")
	}
}

func TestListSources(t *testing.T) {
	t.Parallel()
	_, svc := newSvc(t)
	if !slices.Equal(svc.ListSources(), source.Default().ListSorted()) {
		t.Fatalf("unexpected sources: %v", svc.ListSources())
	}
}
