package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/pkg/botfmt"
	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/service/aggregator"
)

const helpText = "Привет! Доступные команды:\n" +
	"/price - цена BTC из выбранного источника\n" +
	"/price {source} - цена из конкретного источника (binance, kraken, ...)\n" +
	"/sources - список источников\n" +
	"/source {source} - выбрать источник по умолчанию"

// replies — тексты ответов без привязки к telebot
type replies struct {
	prices  PriceReader
	prefs   Preferences
	opts    aggregator.Options
	timeout time.Duration
	logger  *slog.Logger
}

func newReplies(prices PriceReader, prefs Preferences, opts aggregator.Options, timeout time.Duration, logger *slog.Logger) *replies {
	return &replies{prices: prices, prefs: prefs, opts: opts, timeout: timeout, logger: logger}
}

// price - общий дедлайн задаётся opts.Deadline, ctx отменяется при остановке бота
func (r *replies) price(ctx context.Context, args []string) string {
	preferred := ""
	if len(args) > 0 {
		preferred = args[0]
	} else {
		pctx, cancel := context.WithTimeout(ctx, r.timeout)
		preferred = r.prefs.Preferred(pctx)
		cancel()
	}

	res := r.prices.GetPrice(ctx, preferred, r.opts)
	if !res.OK {
		r.logger.Warn("bot: price unavailable", slog.String("preferred", preferred), slog.Int("attempts", len(res.Attempts)))
		return botfmt.FormatPrice(res) + "\n" + botfmt.FormatAttempts(res)
	}
	return botfmt.FormatPrice(res)
}

func (r *replies) sources(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return botfmt.FormatSources(r.prices.ListSources(), r.prefs.Preferred(ctx))
}

func (r *replies) setSource(ctx context.Context, args []string) string {
	if len(args) != 1 {
		return "Укажи источник: /source kraken"
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	id, err := r.prefs.SetPreferred(ctx, args[0])
	if err != nil {
		return translateBotError(err)
	}
	return fmt.Sprintf("Источник по умолчанию: %s", id)
}
