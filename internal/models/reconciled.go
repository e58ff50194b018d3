package models

import "fmt"

// InstrumentSummary is one aggregated open-interest snapshot per
// (ticker, expiry) key. When the pipeline is configured without expiry
// granularity the Expiry field is empty and the key is the ticker alone.
//
// Invariant: PCR = TotalPutOI / TotalCallOI when TotalCallOI > 0, otherwise
// exactly 0. It is never NaN or Inf, so downstream range filters can compare
// against it numerically.
type InstrumentSummary struct {
	Ticker         string  `json:"ticker"`
	Expiry         string  `json:"expiry,omitempty"`
	TradeDate      string  `json:"trade_date,omitempty"`
	FutureOI       float64 `json:"future_oi"`
	FutureOIChange float64 `json:"future_oi_change"`
	TotalCallOI    float64 `json:"total_call_oi"`
	TotalPutOI     float64 `json:"total_put_oi"`
	PCR            float64 `json:"pcr"`
}

// Key returns the grouping key the summary was built under.
func (s InstrumentSummary) Key() string {
	if s.Expiry == "" {
		return s.Ticker
	}
	return s.Ticker + "|" + s.Expiry
}

// ReconciledRow is an InstrumentSummary enriched with the cash-market side
// after the derivative-anchored join. CashMatched reports whether a cash row
// was found; when it is false ClosePrice and DeliveryPct hold the configured
// fill default.
type ReconciledRow struct {
	Ticker         string  `json:"ticker"`
	Expiry         string  `json:"expiry,omitempty"`
	TradeDate      string  `json:"trade_date,omitempty"`
	FutureOI       float64 `json:"future_oi"`
	FutureOIChange float64 `json:"future_oi_change"`
	TotalCallOI    float64 `json:"total_call_oi"`
	TotalPutOI     float64 `json:"total_put_oi"`
	PCR            float64 `json:"pcr"`
	ClosePrice     float64 `json:"close_price"`
	DeliveryPct    float64 `json:"delivery_pct"`
	CashMatched    bool    `json:"cash_matched"`
}

// Field returns the named numeric field for range filtering. The boolean is
// false for unknown field names.
func (r ReconciledRow) Field(name string) (float64, bool) {
	switch name {
	case FieldOpenInterest, "future_oi":
		return r.FutureOI, true
	case FieldOIChange, "future_oi_change":
		return r.FutureOIChange, true
	case "total_call_oi":
		return r.TotalCallOI, true
	case "total_put_oi":
		return r.TotalPutOI, true
	case "pcr":
		return r.PCR, true
	case FieldClosePrice:
		return r.ClosePrice, true
	case FieldDeliveryPct:
		return r.DeliveryPct, true
	default:
		return 0, false
	}
}

// Warning is a non-fatal diagnostic surfaced alongside pipeline output.
// Warnings never abort a run; they exist so the presentation layer can show
// what was skipped or defaulted.
type Warning struct {
	Stage   string `json:"stage"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Row     int    `json:"row,omitempty"`
}

func (w Warning) String() string {
	if w.Row > 0 {
		return fmt.Sprintf("%s/%s (row %d): %s", w.Stage, w.Code, w.Row, w.Message)
	}
	return fmt.Sprintf("%s/%s: %s", w.Stage, w.Code, w.Message)
}
