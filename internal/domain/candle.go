package domain

import "github.com/shopspring/decimal"

// Candle is a single OHLC bar. Time is the bucket start in Unix seconds,
// aligned to the timeframe boundary by the server's aggregator.
type Candle struct {
	Time  int64           `json:"time"`
	Open  decimal.Decimal `json:"open"`
	High  decimal.Decimal `json:"high"`
	Low   decimal.Decimal `json:"low"`
	Close decimal.Decimal `json:"close"`
}

// BucketStart aligns ts down to the start of its tf-second bucket.
func BucketStart(ts, tf int64) int64 {
	if tf < 1 {
		tf = 1
	}
	return (ts / tf) * tf
}
