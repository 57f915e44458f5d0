package bot

import (
	"context"
	"log/slog"
	"time"

	"gopkg.in/telebot.v4"

	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/domain"
	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/service/aggregator"
)

// Config — конфигурация бота
type Config struct {
	Token           string
	LongPollTimeout time.Duration
	// RequestTimeout — таймаут чтения и записи настроек
	RequestTimeout time.Duration
}

// PriceReader — интерфейс агрегатора цен
type PriceReader interface {
	GetPrice(ctx context.Context, preferred domain.SourceID, opts aggregator.Options) domain.Result
	ListSources() []domain.SourceID
}

// Preferences — интерфейс для чтения и смены источника
type Preferences interface {
	Preferred(ctx context.Context) domain.SourceID
	SetPreferred(ctx context.Context, id string) (domain.SourceID, error)
}

// Bot — основной тип приложения
type Bot struct {
	bot     *telebot.Bot
	replies *replies
	logger  *slog.Logger

	// ctx живёт до Stop или до отмены контекста Start, запросы команд от него наследуются
	ctx    context.Context
	cancel context.CancelFunc
}

// New создаёт новый экземпляр приложения
func New(cfg Config, prices PriceReader, prefs Preferences, opts aggregator.Options, logger *slog.Logger) (*Bot, error) {
	if cfg.LongPollTimeout <= 0 {
		cfg.LongPollTimeout = 10 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 2 * time.Second
	}

	b, err := telebot.NewBot(telebot.Settings{
		Token:  cfg.Token,
		Poller: &telebot.LongPoller{Timeout: cfg.LongPollTimeout},
	})
	if err != nil {
		return nil, err
	}

	bot := &Bot{
		bot:     b,
		replies: newReplies(prices, prefs, opts, cfg.RequestTimeout, logger),
		logger:  logger,
	}
	bot.ctx, bot.cancel = context.WithCancel(context.Background())

	// маршруты команд
	b.Handle("/start", bot.handleStart)
	b.Handle("/price", bot.handlePrice)
	b.Handle("/sources", bot.handleSources)
	b.Handle("/source", bot.handleSource)
	return bot, nil
}

// Start запускает бота, отмена ctx прерывает команды в работе
func (b *Bot) Start(ctx context.Context) {
	b.bind(ctx)
	go b.bot.Start()
}

// Stop останавливает бота и отменяет незавершённые запросы цены
func (b *Bot) Stop() {
	b.cancel()
	b.bot.Stop()
}

func (b *Bot) bind(parent context.Context) {
	context.AfterFunc(parent, b.cancel)
}
