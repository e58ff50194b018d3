package models

// RawRecord is a single row of an uploaded bhavcopy file, keyed by the
// source column header exactly as it appeared in the file. Values are kept
// as raw strings; typing happens in the normalizer.
type RawRecord map[string]string

// RawTable is an ordered tabular input: one header row plus the data rows in
// file order. The pipeline never performs I/O itself; internal/source parses
// files, HTTP responses and feed batches into fully formed RawTables.
type RawTable struct {
	Headers []string
	Records []RawRecord
}

// SourceKind identifies which bhavcopy family a RawTable came from.
type SourceKind string

const (
	SourceCash        SourceKind = "cash"
	SourceDerivatives SourceKind = "derivatives"
)

// Canonical field names shared between the column mappings, the normalizer
// and the reconciler's filter surface.
const (
	FieldTicker         = "ticker"
	FieldTradeDate      = "trade_date"
	FieldClosePrice     = "close_price"
	FieldDeliveryPct    = "delivery_pct"
	FieldDeliverableQty = "deliverable_qty"
	FieldTradedQty      = "traded_qty"
	FieldExpiry         = "expiry"
	FieldInstrumentType = "instrument_type"
	FieldOptionType     = "option_type"
	FieldOpenInterest   = "open_interest"
	FieldOIChange       = "oi_change"
	FieldStrike         = "strike"
)
