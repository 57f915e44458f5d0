package source

// Идентификаторы встроенных источников
const (
	Binance       = "binance"
	Bitfinex      = "bitfinex"
	Bitstamp      = "bitstamp"
	Coinbase      = "coinbase"
	Coincap       = "coincap"
	Coingecko     = "coingecko"
	Cryptocompare = "cryptocompare"
	Gemini        = "gemini"
	Kraken        = "kraken"
)

// DefaultSource - источник по умолчанию, если пользователь ничего не выбрал
const DefaultSource = Coinbase

// Catalogue - все встроенные источники. Новый источник добавляется только здесь.
func Catalogue() []Descriptor {
	return []Descriptor{
		{
			ID:       Binance,
			Endpoint: "https://api.binance.com/api/v3/ticker/price?symbol=BTCUSDT",
			Extract:  Field("price", StringScalar),
		},
		{
			ID:       Bitfinex,
			Endpoint: "https://api-pub.bitfinex.com/v2/tickers?symbols=tBTCUSD",
			Extract:  NestedIndex(0, 7, NumberScalar),
		},
		{
			ID:       Bitstamp,
			Endpoint: "https://www.bitstamp.net/api/v2/ticker/btcusd",
			Extract:  Field("last", StringScalar),
		},
		{
			ID:       Coinbase,
			Endpoint: "https://api.coinbase.com/v2/prices/spot?currency=USD",
			Extract:  Field("data.amount", StringScalar),
		},
		{
			ID:       Coincap,
			Endpoint: "https://api.coincap.io/v2/assets/bitcoin",
			Extract:  Field("data.priceUsd", StringScalar),
		},
		{
			ID:       Coingecko,
			Endpoint: "https://api.coingecko.com/api/v3/simple/price?ids=bitcoin&vs_currencies=usd",
			Extract:  Field("bitcoin.usd", NumberScalar),
		},
		{
			ID:       Cryptocompare,
			Endpoint: "https://min-api.cryptocompare.com/data/price?fsym=BTC&tsyms=USD",
			Extract:  Field("USD", NumberScalar),
		},
		{
			ID:       Gemini,
			Endpoint: "https://api.gemini.com/v1/pubticker/btcusd",
			Extract:  Field("last", StringScalar),
		},
		{
			ID:       Kraken,
			Endpoint: "https://api.kraken.com/0/public/Ticker?pair=XXBTZUSD",
			Extract:  FirstKey("result", "c.0", StringScalar),
		},
	}
}
