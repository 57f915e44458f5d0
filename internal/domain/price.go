package domain

import (
	"time"

	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/ports/errcode"
	"github.com/shopspring/decimal"
)

// SourceID - каноничный идентификатор источника цены в нижнем регистре (coinbase, kraken, ...)
type SourceID = string

// Price - спотовая цена BTC в USD с произвольной точностью.
// Округление выполняется только при форматировании.
type Price = decimal.Decimal

// Attempt - результат одной попытки получить цену из источника
type Attempt struct {
	Source    SourceID      `json:"source"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Price     Price         `json:"price"`
	Err       *FetchError   `json:"error,omitempty"`
}

// OK - попытка завершилась ценой
func (a Attempt) OK() bool { return a.Err == nil }

// Result - итог одного вызова агрегатора.
// При успехе WinningSource совпадает с источником последней попытки.
type Result struct {
	OK            bool      `json:"ok"`
	Price         string    `json:"price,omitempty"`
	WinningSource SourceID  `json:"winning_source,omitempty"`
	Attempts      []Attempt `json:"attempts"`
	// Interrupted - вызов прерван отменой или общим дедлайном (CANCELLED/TIMEOUT)
	Interrupted errcode.Code `json:"interrupted,omitempty"`
}

// Status - итоговое состояние вызова агрегатора
type Status string

const (
	StatusSuccess     Status = "success"
	StatusBadInput    Status = "bad_input"
	StatusExhausted   Status = "exhausted"
	StatusInterrupted Status = "interrupted"
)

// Status - успех, прерывание, только неверный ввод или все источники отказали
func (r Result) Status() Status {
	switch {
	case r.OK:
		return StatusSuccess
	case r.Interrupted != "":
		return StatusInterrupted
	}
	for _, a := range r.Attempts {
		if a.Err == nil || a.Err.Kind != errcode.BadInput {
			return StatusExhausted
		}
	}
	return StatusBadInput
}

// Last - последняя попытка, false если попыток не было
func (r Result) Last() (Attempt, bool) {
	if len(r.Attempts) == 0 {
		return Attempt{}, false
	}
	return r.Attempts[len(r.Attempts)-1], true
}

// Snapshot - сохранённая успешная цена
type Snapshot struct {
	Source    SourceID  `json:"source"`
	Value     Price     `json:"value"`
	FetchedAt time.Time `json:"fetched_at"`
}
