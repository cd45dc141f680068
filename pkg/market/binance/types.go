package market

// Kline represents a single candlestick as returned by the public API.
type Kline struct {
	Symbol    string  // trading pair symbol
	OpenTime  int64   // open time (ms)
	Open      float64 // open price
	High      float64 // high price
	Low       float64 // low price
	Close     float64 // close price
	Volume    float64 // base asset volume
	CloseTime int64   // close time (ms)
}

// Ticker holds the latest traded price for a symbol.
type Ticker struct {
	Symbol string
	Price  float64
}
