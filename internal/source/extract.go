package source

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/domain"
	errs "github.com/NastyaGoryachaya/btc-price-aggregator/internal/errors"
)

// Scalar - ожидаемый тип значения в JSON
type Scalar int

const (
	StringScalar Scalar = iota
	NumberScalar
)

func (k Scalar) String() string {
	if k == NumberScalar {
		return "number"
	}
	return "string"
}

// parseBody - проверка UTF-8 и JSON перед навигацией по пути
func parseBody(body []byte) (gjson.Result, error) {
	if !utf8.Valid(body) {
		return gjson.Result{}, errs.ErrInvalidUTF8
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, errs.ErrInvalidJSON
	}
	return gjson.ParseBytes(body), nil
}

// scalar - достаёт значение ожидаемого типа; для чисел берётся исходный текст,
// чтобы не терять точность на float64.
func scalar(v gjson.Result, kind Scalar, path string) (string, error) {
	if !v.Exists() {
		return "", fmt.Errorf("%s: %w", path, errs.ErrPathMissing)
	}
	switch {
	case kind == StringScalar && v.Type == gjson.String:
		return v.Str, nil
	case kind == NumberScalar && v.Type == gjson.Number:
		return v.Raw, nil
	}
	return "", fmt.Errorf("%s: %w: want %s, got %s", path, errs.ErrWrongType, kind, v.Type)
}

// ParsePrice - разбирает десятичное значение; допускается экспонента и знак,
// итоговая цена должна быть > 0.
func ParsePrice(s string) (domain.Price, error) {
	s = strings.TrimSpace(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse decimal %q: %w", s, err)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%s: %w", s, errs.ErrNonPositive)
	}
	return d, nil
}

// Field - экстрактор для значения по пути gjson (например "data.amount")
func Field(path string, kind Scalar) Extractor {
	display := "$." + path
	return func(body []byte) (domain.Price, error) {
		root, err := parseBody(body)
		if err != nil {
			return decimal.Zero, err
		}
		if !root.IsObject() {
			return decimal.Zero, fmt.Errorf("$: %w: want object", errs.ErrWrongType)
		}
		raw, err := scalar(root.Get(path), kind, display)
		if err != nil {
			return decimal.Zero, err
		}
		p, err := ParsePrice(raw)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%s: %w", display, err)
		}
		return p, nil
	}
}

// NestedIndex - экстрактор для $[outer][inner], ответ - массив массивов
func NestedIndex(outer, inner int, kind Scalar) Extractor {
	display := fmt.Sprintf("$[%d][%d]", outer, inner)
	return func(body []byte) (domain.Price, error) {
		root, err := parseBody(body)
		if err != nil {
			return decimal.Zero, err
		}
		if !root.IsArray() {
			return decimal.Zero, fmt.Errorf("$: %w: want array", errs.ErrWrongType)
		}
		rows := root.Array()
		if outer >= len(rows) {
			return decimal.Zero, fmt.Errorf("$[%d]: %w", outer, errs.ErrPathMissing)
		}
		row := rows[outer]
		if !row.IsArray() {
			return decimal.Zero, fmt.Errorf("$[%d]: %w: want array", outer, errs.ErrWrongType)
		}
		cells := row.Array()
		if inner >= len(cells) {
			return decimal.Zero, fmt.Errorf("%s: %w", display, errs.ErrPathMissing)
		}
		raw, err := scalar(cells[inner], kind, display)
		if err != nil {
			return decimal.Zero, err
		}
		p, err := ParsePrice(raw)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%s: %w", display, err)
		}
		return p, nil
	}
}

// FirstKey - экстрактор для $.<object>.<первый ключ>.<path>.
// Имя пары у kraken не фиксировано, поэтому ключ не хардкодится.
func FirstKey(object, path string, kind Scalar) Extractor {
	return func(body []byte) (domain.Price, error) {
		root, err := parseBody(body)
		if err != nil {
			return decimal.Zero, err
		}
		if !root.IsObject() {
			return decimal.Zero, fmt.Errorf("$: %w: want object", errs.ErrWrongType)
		}
		container := root.Get(object)
		display := "$." + object
		if !container.Exists() {
			return decimal.Zero, fmt.Errorf("%s: %w", display, errs.ErrPathMissing)
		}
		if !container.IsObject() {
			return decimal.Zero, fmt.Errorf("%s: %w: want object", display, errs.ErrWrongType)
		}

		var (
			key   string
			value gjson.Result
			found bool
		)
		container.ForEach(func(k, v gjson.Result) bool {
			key, value, found = k.String(), v, true
			return false
		})
		if !found {
			return decimal.Zero, fmt.Errorf("%s.<first-key>: %w", display, errs.ErrPathMissing)
		}

		display = fmt.Sprintf("%s.%s.%s", display, key, path)
		raw, err := scalar(value.Get(path), kind, display)
		if err != nil {
			return decimal.Zero, err
		}
		p, err := ParsePrice(raw)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%s: %w", display, err)
		}
		return p, nil
	}
}
