package bot

import (
	"errors"

	errs "github.com/NastyaGoryachaya/btc-price-aggregator/internal/errors"
)

func translateBotError(err error) string {
	switch {
	case errors.Is(err, errs.ErrUnsupportedSource):
		return "Источник не поддерживается, список: /sources"
	case errors.Is(err, errs.ErrEmptySource):
		return "Укажи источник: /source kraken"
	default:
		return "Внутренняя ошибка сервиса, попробуйте позже"
	}
}
