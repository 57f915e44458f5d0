package errors

import "errors"

var (
	ErrEmptySource       = errors.New("empty source id")
	ErrUnsupportedSource = errors.New("unsupported source")
	ErrOversizedBody     = errors.New("oversized body")
	ErrTooManyRedirects  = errors.New("too many redirects")
	ErrInvalidJSON       = errors.New("invalid json")
	ErrInvalidUTF8       = errors.New("invalid utf-8")
	ErrPathMissing       = errors.New("path missing")
	ErrWrongType         = errors.New("wrong type")
	ErrNonPositive       = errors.New("non-positive price")
	ErrPriceNotFound     = errors.New("price not found")
	ErrRateLimited       = errors.New("rate limited")
)
