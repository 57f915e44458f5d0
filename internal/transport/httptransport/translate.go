package httptransport

import (
	"errors"
	"net/http"

	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/domain"
	errs "github.com/NastyaGoryachaya/btc-price-aggregator/internal/errors"
	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/ports/errcode"
)

func FromServiceError(err error) errcode.Code {
	switch {
	case errors.Is(err, errs.ErrEmptySource),
		errors.Is(err, errs.ErrUnsupportedSource):
		return errcode.BadRequest
	case errors.Is(err, errs.ErrPriceNotFound):
		return errcode.NotFoundPrices
	default:
		return errcode.Internal
	}
}

// StatusFor - HTTP-код для итога агрегации
func StatusFor(s domain.Status) int {
	switch s {
	case domain.StatusSuccess:
		return http.StatusOK
	case domain.StatusBadInput:
		return http.StatusBadRequest
	case domain.StatusInterrupted:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
