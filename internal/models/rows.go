package models

import "strings"

// InstrumentType classifies a derivative row. Index and stock variants of
// the exchange codes collapse onto the same bucket; the cash/derivative
// distinction that matters downstream is future-vs-option.
type InstrumentType string

const (
	InstrumentFuture  InstrumentType = "FUTURE"
	InstrumentOption  InstrumentType = "OPTION"
	InstrumentUnknown InstrumentType = "UNKNOWN"
)

// OptionType is the option side of a derivative row. Futures carry
// OptionNone.
type OptionType string

const (
	OptionCall OptionType = "CALL"
	OptionPut  OptionType = "PUT"
	OptionNone OptionType = "NONE"
)

// instrument codes seen across the NSE F&O bhavcopy dialects. The UDiFF
// format uses STF/IDF/STO/IDO, the legacy format FUTSTK/FUTIDX/OPTSTK/OPTIDX.
var instrumentCodes = map[string]InstrumentType{
	"STF":    InstrumentFuture,
	"IDF":    InstrumentFuture,
	"FUTSTK": InstrumentFuture,
	"FUTIDX": InstrumentFuture,
	"FUTURE": InstrumentFuture,
	"STO":    InstrumentOption,
	"IDO":    InstrumentOption,
	"OPTSTK": InstrumentOption,
	"OPTIDX": InstrumentOption,
	"OPTION": InstrumentOption,
}

// ParseInstrumentType maps a raw instrument code onto its bucket. Unknown
// codes return InstrumentUnknown rather than an error; the aggregator decides
// whether that is fatal.
func ParseInstrumentType(raw string) InstrumentType {
	if t, ok := instrumentCodes[strings.ToUpper(strings.TrimSpace(raw))]; ok {
		return t
	}
	return InstrumentUnknown
}

var optionCodes = map[string]OptionType{
	"CE":   OptionCall,
	"CALL": OptionCall,
	"PE":   OptionPut,
	"PUT":  OptionPut,
	"":     OptionNone,
	"XX":   OptionNone,
	"FF":   OptionNone,
	"-":    OptionNone,
}

// ParseOptionType maps a raw option-type cell onto CALL/PUT/NONE. The second
// return reports whether the code was recognized at all; unrecognized codes
// on option rows become DataShapeError warnings in the aggregator.
func ParseOptionType(raw string) (OptionType, bool) {
	t, ok := optionCodes[strings.ToUpper(strings.TrimSpace(raw))]
	if !ok {
		return OptionNone, false
	}
	return t, true
}

// NormalizedCashRow is the canonical cash-market record. Nil pointers mean
// the source had no resolvable value, which is distinct from a true zero.
type NormalizedCashRow struct {
	Ticker      string   `json:"ticker"`
	TradeDate   string   `json:"trade_date,omitempty"`
	ClosePrice  *float64 `json:"close_price"`
	DeliveryPct *float64 `json:"delivery_pct"`
}

// NormalizedDerivativeRow is the canonical derivatives record.
type NormalizedDerivativeRow struct {
	Ticker         string         `json:"ticker"`
	TradeDate      string         `json:"trade_date,omitempty"`
	Expiry         string         `json:"expiry,omitempty"`
	InstrumentType InstrumentType `json:"instrument_type"`
	OptionType     OptionType     `json:"option_type"`
	OptionTypeRaw  string         `json:"-"`
	OpenInterest   float64        `json:"open_interest"`
	OIChange       float64        `json:"oi_change"`
	Strike         *float64       `json:"strike,omitempty"`
}
