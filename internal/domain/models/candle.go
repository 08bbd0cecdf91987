package models

import "time"

// Candle represents one closed OHLC bar for a single timeframe.
// Label is nil until the forecast service names the bar; its value is opaque
// to the engine.
type Candle struct {
	OpenTime time.Time   `json:"open_time"`
	Open     float64     `json:"open"`
	High     float64     `json:"high"`
	Low      float64     `json:"low"`
	Close    float64     `json:"close"`
	Label    interface{} `json:"label,omitempty"`
}

// SyntheticCandle builds the zero-valued forward-looking row appended to a
// dispatch payload. It is never stored.
func SyntheticCandle(openTime time.Time) Candle {
	return Candle{OpenTime: openTime}
}

// CandleUpdate is a raw stream event: one candle state plus the exchange's
// closed-interval flag. Only Closed updates enter the pipeline.
type CandleUpdate struct {
	Candle Candle
	Closed bool
}

// LabelMap maps candle open times to the opaque label values produced by one
// forecast call.
type LabelMap map[time.Time]interface{}
