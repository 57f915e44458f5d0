package domain

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/ports/errcode"
)

// FetchError - категоризированная ошибка попытки
type FetchError struct {
	Kind    errcode.Code `json:"kind"`
	Source  SourceID     `json:"-"`
	Status  int          `json:"status,omitempty"`
	Message string       `json:"message"`
	Err     error        `json:"-"`
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s %d: %s", e.Source, e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Source, e.Kind, e.Message)
}

func (e *FetchError) Unwrap() error { return e.Err }

// NewFetchError - конструктор ошибки попытки, сообщение берётся из err
func NewFetchError(kind errcode.Code, source SourceID, err error) *FetchError {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &FetchError{Kind: kind, Source: source, Message: msg, Err: err}
}

// KindOf - определяет категорию произвольной ошибки
func KindOf(err error) errcode.Code {
	var fe *FetchError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &fe):
		return fe.Kind
	case errors.Is(err, context.Canceled):
		return errcode.Cancelled
	case errors.Is(err, context.DeadlineExceeded):
		return errcode.Timeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return errcode.Timeout
	}
	return errcode.NetworkError
}

// AsFetchError - приводит ошибку к FetchError, классифицируя её при необходимости
func AsFetchError(source SourceID, err error) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		if fe.Source == "" {
			fe.Source = source
		}
		return fe
	}
	return NewFetchError(KindOf(err), source, err)
}
