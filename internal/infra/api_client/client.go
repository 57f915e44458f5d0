package api_client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/domain"
	errs "github.com/NastyaGoryachaya/btc-price-aggregator/internal/errors"
	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/ports/errcode"
)

const (
	DefaultMaxBodyBytes = 1 << 20
	DefaultMaxRedirects = 5
	bodyPreviewLen      = 256
)

type Config struct {
	MaxBodyBytes int64
	MaxRedirects int
	Transport    http.RoundTripper
}

// Client - простой GET без дополнительных заголовков, тело читается целиком.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient - создаёт HTTP-клиента. Таймауты задаются контекстом запроса.
func NewClient(cfg Config) *Client {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = DefaultMaxRedirects
	}
	maxRedirects := cfg.MaxRedirects
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Transport: cfg.Transport,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) > maxRedirects {
					return fmt.Errorf("%w: stopped after %d", errs.ErrTooManyRedirects, maxRedirects)
				}
				return nil
			},
		},
	}
}

// Get — выполняет запрос и возвращает тело ответа.
// Ошибки возвращаются как *domain.FetchError с категорией.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, domain.NewFetchError(errcode.BadInput, "", fmt.Errorf("creating request: %w", err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classify(ctx, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// для превью достаточно начала тела, ошибка чтения здесь не важна
		head, _ := io.ReadAll(io.LimitReader(resp.Body, bodyPreviewLen+1))
		return nil, &domain.FetchError{
			Kind:    errcode.HTTPError,
			Status:  resp.StatusCode,
			Message: preview(head),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBodyBytes+1))
	if err != nil {
		return nil, classify(ctx, fmt.Errorf("reading body: %w", err))
	}
	if int64(len(body)) > c.cfg.MaxBodyBytes {
		return nil, domain.NewFetchError(errcode.NetworkError, "", errs.ErrOversizedBody)
	}
	return body, nil
}

// classify - отмена и дедлайн контекста важнее текста ошибки транспорта
func classify(ctx context.Context, err error) *domain.FetchError {
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return domain.NewFetchError(errcode.Cancelled, "", err)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return domain.NewFetchError(errcode.Timeout, "", err)
	}
	return domain.NewFetchError(domain.KindOf(err), "", err)
}

func preview(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > bodyPreviewLen {
		s = s[:bodyPreviewLen] + "..."
	}
	return s
}
