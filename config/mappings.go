package config

// Built-in column-mapping dialects for the two NSE bhavcopy families. The
// exchange has shipped (at least) two header generations: the legacy
// all-caps headers and the UDiFF camel-case headers. Both map onto the same
// canonical fields; config can extend or override per deployment without
// touching pipeline code.

// DefaultCashMapping covers the cash-market bhavcopy dialects
// (sec_bhavdata_full and the UDiFF BhavCopy).
func DefaultCashMapping() map[string]string {
	return map[string]string{
		// legacy
		"SYMBOL":       "ticker",
		"SERIES":       "series",
		"DATE1":        "trade_date",
		"CLOSE_PRICE":  "close_price",
		"CLOSE":        "close_price",
		"TTL_TRD_QNTY": "traded_qty",
		"DELIV_QTY":    "deliverable_qty",
		"DELIV_PER":    "delivery_pct",
		// UDiFF
		"TckrSymb":    "ticker",
		"SctySrs":     "series",
		"TradDt":      "trade_date",
		"ClsPric":     "close_price",
		"TtlTradgVol": "traded_qty",
		"DlvryQty":    "deliverable_qty",
		"DlvryPct":    "delivery_pct",
	}
}

// DefaultCashRequired lists the canonical fields a cash input must resolve.
// Delivery percentage is deliberately absent: it has a quantity-based
// fallback and is null when neither path exists.
func DefaultCashRequired() []string {
	return []string{"ticker", "close_price"}
}

// DefaultDerivativesMapping covers the F&O bhavcopy dialects.
func DefaultDerivativesMapping() map[string]string {
	return map[string]string{
		// legacy
		"SYMBOL":     "ticker",
		"INSTRUMENT": "instrument_type",
		"EXPIRY_DT":  "expiry",
		"OPTION_TYP": "option_type",
		"STRIKE_PR":  "strike",
		"OPEN_INT":   "open_interest",
		"CHG_IN_OI":  "oi_change",
		"TIMESTAMP":  "trade_date",
		// UDiFF
		"TckrSymb":        "ticker",
		"FinInstrmTp":     "instrument_type",
		"XpryDt":          "expiry",
		"OptnTp":          "option_type",
		"StrkPric":        "strike",
		"OpnIntrst":       "open_interest",
		"ChngInOpnIntrst": "oi_change",
		"TradDt":          "trade_date",
	}
}

// DefaultDerivativesRequired lists the canonical fields an F&O input must
// resolve. Option type and strike are absent for futures rows, so only the
// structurally universal columns are required.
func DefaultDerivativesRequired() []string {
	return []string{"ticker", "instrument_type", "open_interest"}
}
