package errcode

type Code string

const (
	// Ошибки одной попытки получения цены
	BadInput     Code = "BAD_INPUT"
	NetworkError Code = "NETWORK_ERROR"
	HTTPError    Code = "HTTP_ERROR"
	Timeout      Code = "TIMEOUT"
	Cancelled    Code = "CANCELLED"
	DecodeError  Code = "DECODE_ERROR"

	// Коды транспорта
	NotFoundPrices Code = "NOT_FOUND_PRICES"
	BadRequest     Code = "BAD_REQUEST"
	Internal       Code = "INTERNAL_ERROR"
)

