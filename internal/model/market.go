package model

import "time"

// OHLCV represents a single daily bar. A ticker's series is a []OHLCV in
// ascending time order.
type OHLCV struct {
	Time   time.Time `json:"t"`
	Open   float64   `json:"o"`
	High   float64   `json:"h"`
	Low    float64   `json:"l"`
	Close  float64   `json:"c"`
	Volume float64   `json:"v"`
}
