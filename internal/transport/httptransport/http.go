package httptransport

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/domain"
	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/ports/errcode"
	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/service/aggregator"
	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/service/settings"
	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/service/ticker"
)

// AttemptError — DTO ошибки попытки.
type AttemptError struct {
	Kind    errcode.Code `json:"kind"`
	Status  int          `json:"status,omitempty"`
	Message string       `json:"message,omitempty"`
}

// Attempt — DTO одной попытки.
type Attempt struct {
	Source     string        `json:"source"`
	OK         bool          `json:"ok"`
	Price      string        `json:"price,omitempty"`
	DurationMs int64         `json:"duration_ms"`
	Error      *AttemptError `json:"error,omitempty"`
}

// PriceResponse — DTO для ответа /price.
type PriceResponse struct {
	OK            bool          `json:"ok"`
	Status        domain.Status `json:"status"`
	Price         string        `json:"price,omitempty"`
	WinningSource string        `json:"winning_source,omitempty"`
	Attempts      []Attempt     `json:"attempts"`
}

// TickerResponse — DTO для ответа /ticker.
type TickerResponse struct {
	Price     string        `json:"price"`
	Source    string        `json:"source"`
	OK        bool          `json:"ok"`
	Notice    string        `json:"notice,omitempty"`
	Status    domain.Status `json:"status"`
	Attempts  []Attempt     `json:"attempts"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Snapshot — DTO сохранённой цены, значение строкой без потери точности.
type Snapshot struct {
	Source    string    `json:"source"`
	Value     string    `json:"value"`
	FetchedAt time.Time `json:"fetched_at"`
}

type sourceRequest struct {
	Source string `json:"source"`
}

func makeAttempts(in []domain.Attempt) []Attempt {
	out := make([]Attempt, 0, len(in))
	for _, a := range in {
		item := Attempt{
			Source:     a.Source,
			OK:         a.OK(),
			DurationMs: a.Duration.Milliseconds(),
		}
		if a.OK() {
			item.Price = a.Price.String()
		} else {
			item.Error = &AttemptError{Kind: a.Err.Kind, Status: a.Err.Status, Message: a.Err.Message}
		}
		out = append(out, item)
	}
	return out
}

func makePrice(res domain.Result) PriceResponse {
	return PriceResponse{
		OK:            res.OK,
		Status:        res.Status(),
		Price:         res.Price,
		WinningSource: res.WinningSource,
		Attempts:      makeAttempts(res.Attempts),
	}
}

func makeTicker(d ticker.Display) TickerResponse {
	return TickerResponse{
		Price:     d.Price,
		Source:    d.Source,
		OK:        d.OK,
		Notice:    d.Notice,
		Status:    d.Status,
		Attempts:  makeAttempts(d.Attempts),
		UpdatedAt: d.UpdatedAt,
	}
}

// PriceHandler — HTTP‑handler для цены и настроек источника.
type PriceHandler struct {
	logger   *slog.Logger
	agg      aggregator.Service
	settings settings.Service
	ticker   ticker.Service
	defaults aggregator.Options
	timeout  time.Duration
}

// NewPriceHandler - defaults задают fallback, порядок и общий дедлайн для /price.
// timeout ограничивает запросы к хранилищам.
func NewPriceHandler(logger *slog.Logger, agg aggregator.Service, prefs settings.Service, tick ticker.Service, defaults aggregator.Options, timeout time.Duration) *PriceHandler {
	if logger == nil {
		log.Fatal("nil logger")
	}
	if agg == nil || prefs == nil || tick == nil {
		log.Fatal("nil service")
	}
	// Задаём таймаут по умолчанию, если он не задан
	if timeout <= 0 {
		timeout = time.Second * 3
	}
	return &PriceHandler{
		logger:   logger,
		agg:      agg,
		settings: prefs,
		ticker:   tick,
		defaults: defaults,
		timeout:  timeout,
	}
}

func (h *PriceHandler) RegisterRoutes(r interface {
	GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	PUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
}) {
	r.GET("/sources", h.GetSources)
	r.GET("/price", h.GetPrice)
	r.GET("/ticker", h.GetTicker)
	r.GET("/snapshots/latest", h.GetLatestSnapshot)
	r.GET("/settings/source", h.GetPreferredSource)
	r.PUT("/settings/source", h.PutPreferredSource)
}

func (h *PriceHandler) GetSources(c echo.Context) error {
	return c.JSON(http.StatusOK, h.agg.ListSources())
}

func (h *PriceHandler) GetPrice(c echo.Context) error {
	opts := h.defaults

	if raw := strings.TrimSpace(c.QueryParam("fallback")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "invalid_fallback",
			})
		}
		opts.Fallback = v
	}
	if raw := strings.TrimSpace(c.QueryParam("ordering")); raw != "" {
		o, err := aggregator.ParseOrdering(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "invalid_ordering",
			})
		}
		opts.Ordering = o
	}

	ctx := c.Request().Context()
	preferred := c.QueryParam("source")
	if _, ok := c.QueryParams()["source"]; !ok {
		preferred = h.settings.Preferred(ctx)
	}

	res := h.agg.GetPrice(ctx, preferred, opts)
	out := makePrice(res)
	if !res.OK {
		h.logger.Warn("GetPrice failed",
			slog.String("op", "GetPrice"),
			slog.String("preferred", preferred),
			slog.String("status", string(out.Status)),
		)
	}
	return c.JSON(StatusFor(out.Status), out)
}

func (h *PriceHandler) GetTicker(c echo.Context) error {
	d := h.ticker.Current(c.Request().Context())
	return c.JSON(http.StatusOK, makeTicker(d))
}

func (h *PriceHandler) GetLatestSnapshot(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	snap, err := h.ticker.LastSaved(ctx)
	if err != nil {
		switch FromServiceError(err) {
		case errcode.NotFoundPrices:
			// Нет сохранённых цен — 404
			return c.JSON(http.StatusNotFound, echo.Map{
				"error": "prices_not_found",
			})
		default:
			h.logger.Error("LastSaved failed",
				slog.String("op", "GetLatestSnapshot"),
				slog.String("error", err.Error()),
			)
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"error": "internal_server_error",
			})
		}
	}
	return c.JSON(http.StatusOK, Snapshot{
		Source:    snap.Source,
		Value:     snap.Value.String(),
		FetchedAt: snap.FetchedAt,
	})
}

func (h *PriceHandler) GetPreferredSource(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	return c.JSON(http.StatusOK, sourceRequest{Source: h.settings.Preferred(ctx)})
}

func (h *PriceHandler) PutPreferredSource(c echo.Context) error {
	var req sourceRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "bad_request",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	id, err := h.settings.SetPreferred(ctx, req.Source)
	if err != nil {
		switch FromServiceError(err) {
		case errcode.BadRequest:
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error":  "unsupported_source",
				"source": req.Source,
			})
		default:
			h.logger.Error("SetPreferred failed",
				slog.String("op", "PutPreferredSource"),
				slog.String("error", err.Error()),
			)
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"error": "internal_server_error",
			})
		}
	}
	return c.JSON(http.StatusOK, sourceRequest{Source: id})
}
