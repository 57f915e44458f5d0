package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	botpkg "github.com/NastyaGoryachaya/btc-price-aggregator/internal/bot"
	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/config"
	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/infra/db"
	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/repository/memory"
	repopg "github.com/NastyaGoryachaya/btc-price-aggregator/internal/repository/postgres"
	reporedis "github.com/NastyaGoryachaya/btc-price-aggregator/internal/repository/redis"
	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/scheduler"
	settingssvc "github.com/NastyaGoryachaya/btc-price-aggregator/internal/service/settings"
	tickersvc "github.com/NastyaGoryachaya/btc-price-aggregator/internal/service/ticker"
	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/transport/httptransport"
)

type App struct {
	cfg config.Config
	log *slog.Logger

	db   *pgxpool.Pool
	rdb  *redis.Client
	e    *echo.Echo
	serv *http.Server

	core     *Core
	settings settingssvc.Service
	ticker   tickersvc.Service

	updater *scheduler.Scheduler

	bot *botpkg.Bot
}

func NewApp(cfg config.Config, log *slog.Logger) (*App, error) {
	app := &App{cfg: cfg, log: log}

	core, err := NewCore(cfg.Aggregator, cfg.Sources, log)
	if err != nil {
		return nil, err
	}
	app.core = core

	if cfg.Postgres.Enabled {
		pool, err := db.NewPool(&cfg.Postgres)
		if err != nil {
			return nil, err
		}
		app.db = pool

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Postgres.Timeout)
		defer cancel()
		if err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
	}

	store, err := app.settingsStore()
	if err != nil {
		app.closeStores()
		return nil, err
	}
	app.settings = settingssvc.NewService(store, core.Registry, cfg.Aggregator.DefaultSource, log)

	// история цен ведётся только при подключённом postgres
	var snapshots tickersvc.SnapshotStore
	if app.db != nil {
		snapshots = repopg.NewPriceRepository(app.db)
	}
	app.ticker = tickersvc.NewService(core.Aggregator, app.settings, snapshots, core.Options, log)

	e := echo.New()
	e.HideBanner = true
	app.e = e

	ph := httptransport.NewPriceHandler(log, core.Aggregator, app.settings, app.ticker, core.Options, cfg.Server.ReadTimeout)
	ph.RegisterRoutes(e)

	app.serv = &http.Server{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		Handler:      e,
	}

	if cfg.Scheduler.Enabled {
		app.updater = scheduler.NewScheduler(app.ticker, cfg.Scheduler.Interval, log)
	}

	if cfg.Telegram.Enabled {
		// Если бот включён, отсутствие токена — ошибка конфигурации
		token := strings.TrimSpace(cfg.Telegram.Token)
		if token == "" {
			log.Error("telegram enabled but TELEGRAM_BOT_TOKEN is empty")
			app.closeStores()
			return nil, errors.New("telegram token is empty")
		}

		botApp, err := botpkg.New(
			botpkg.Config{Token: token, LongPollTimeout: 10 * time.Second},
			core.Aggregator,
			app.settings,
			core.Options,
			log,
		)
		if err != nil {
			log.Error("telegram init failed", slog.String("error", err.Error()))
			app.closeStores()
			return nil, err
		}
		app.bot = botApp
	}
	log.Info("app initialized",
		slog.Int("sources", core.Registry.Len()),
		slog.String("settings_backend", cfg.Settings.Backend),
		slog.Bool("postgres_enabled", app.db != nil),
		slog.Bool("bot_attached", app.bot != nil),
		slog.String("http_addr", cfg.Server.Addr),
	)
	return app, nil
}

// settingsStore - хранилище MARKET_DATA_SOURCE по settings.backend
func (a *App) settingsStore() (settingssvc.Store, error) {
	switch strings.ToLower(a.cfg.Settings.Backend) {
	case "", "memory":
		return memory.NewSettingsStore(), nil
	case "postgres":
		if a.db == nil {
			return nil, errors.New("settings backend postgres requires postgres.enabled")
		}
		return repopg.NewSettingsRepository(a.db), nil
	case "redis":
		rdb, err := db.NewRedis(&a.cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.rdb = rdb
		return reporedis.NewSettingsCache(rdb, a.log), nil
	}
	return nil, fmt.Errorf("unknown settings backend: %s", a.cfg.Settings.Backend)
}

func (a *App) Run(ctx context.Context) error {
	if a.updater != nil {
		a.log.Info("starting updater")
		go a.updater.Start(ctx)
	}

	if a.bot != nil {
		a.log.Info("starting bot")
		go a.bot.Start(ctx)
	}

	a.log.Info("starting server", slog.String("addr", a.cfg.Server.Addr))
	go func() {
		if err := a.e.StartServer(a.serv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", slog.String("error", err.Error()))
		}
	}()
	<-ctx.Done()
	return a.Shutdown(context.Background())
}

func (a *App) Shutdown(ctx context.Context) error {
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if a.e != nil {
		if err := a.e.Shutdown(shCtx); err != nil {
			a.log.Error("http shutdown error", slog.String("error", err.Error()))
		}
	}

	if a.bot != nil {
		a.bot.Stop()
	}

	a.closeStores()

	a.log.Info("application stopped")
	return nil
}

func (a *App) closeStores() {
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.log.Error("redis close error", slog.String("error", err.Error()))
		}
	}
	if a.db != nil {
		a.db.Close()
	}
}
