package normalizer

import (
	"fmt"

	"rdxflow/internal/models"
)

// NormalizeCash maps a raw cash-market bhavcopy table onto canonical rows.
// The transform is pure: the returned warnings carry every row-level gap,
// and the error is non-nil only for structural schema failures under the
// abort policy.
func NormalizeCash(table models.RawTable, cfg Config) ([]models.NormalizedCashRow, []models.Warning, error) {
	if cfg.Source == "" {
		cfg.Source = models.SourceCash
	}

	res := resolveColumns(table.Headers, cfg.Mapping)
	warnings := make([]models.Warning, 0)

	if schemaErr := checkRequired(cfg.Source, res, cfg.Required); schemaErr != nil {
		if cfg.onMissing() == OnMissingAbort {
			return nil, warnings, schemaErr
		}
		warnings = append(warnings, schemaWarning(schemaErr))
	}

	allowSeries := make(map[string]struct{}, len(cfg.SeriesAllow))
	for _, s := range cfg.SeriesAllow {
		allowSeries[foldHeader(s)] = struct{}{}
	}
	_, hasSeries := res["series"]

	rows := make([]models.NormalizedCashRow, 0, len(table.Records))
	for i, rec := range table.Records {
		ticker, _ := res.cell(rec, models.FieldTicker)
		if ticker == "" {
			warnings = append(warnings, models.Warning{
				Stage:   "normalizer",
				Code:    "missing_ticker",
				Message: fmt.Sprintf("%s row has no ticker; skipped", cfg.Source),
				Row:     i + 1,
			})
			continue
		}

		if hasSeries && len(allowSeries) > 0 {
			series, _ := res.cell(rec, "series")
			if _, ok := allowSeries[foldHeader(series)]; !ok {
				continue
			}
		}

		row := models.NormalizedCashRow{Ticker: ticker}
		if date, ok := res.cell(rec, models.FieldTradeDate); ok {
			row.TradeDate = date
		}
		row.ClosePrice = numericPtr(res, rec, models.FieldClosePrice, true)
		row.DeliveryPct = deliveryPct(res, rec)
		rows = append(rows, row)
	}

	return rows, warnings, nil
}

// deliveryPct prefers the direct delivery-percentage column and falls back
// to deriving it from deliverable and traded quantities. When neither path
// is available the field is null, never an error.
func deliveryPct(res resolution, rec models.RawRecord) *float64 {
	if direct := numericPtr(res, rec, models.FieldDeliveryPct, true); direct != nil {
		return direct
	}

	deliv, okDeliv := parseCanonical(res, rec, models.FieldDeliverableQty)
	traded, okTraded := parseCanonical(res, rec, models.FieldTradedQty)
	if !okDeliv || !okTraded || traded == 0 {
		return nil
	}
	pct := Round2(deliv / traded * 100)
	return &pct
}

func parseCanonical(res resolution, rec models.RawRecord, canonical string) (float64, bool) {
	raw, ok := res.cell(rec, canonical)
	if !ok {
		return 0, false
	}
	return ParseNumeric(raw)
}
