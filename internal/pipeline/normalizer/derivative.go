package normalizer

import (
	"fmt"

	"rdxflow/internal/models"
)

// NormalizeDerivatives maps a raw F&O bhavcopy table onto canonical rows.
// Rows whose instrument code is not a recognized future/option variant are
// skipped with a warning; the F&O dump routinely carries currency and bond
// instruments the dashboard does not reconcile.
func NormalizeDerivatives(table models.RawTable, cfg Config) ([]models.NormalizedDerivativeRow, []models.Warning, error) {
	if cfg.Source == "" {
		cfg.Source = models.SourceDerivatives
	}

	res := resolveColumns(table.Headers, cfg.Mapping)
	warnings := make([]models.Warning, 0)

	if schemaErr := checkRequired(cfg.Source, res, cfg.Required); schemaErr != nil {
		if cfg.onMissing() == OnMissingAbort {
			return nil, warnings, schemaErr
		}
		warnings = append(warnings, schemaWarning(schemaErr))
	}

	rows := make([]models.NormalizedDerivativeRow, 0, len(table.Records))
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

		rawInstrument, _ := res.cell(rec, models.FieldInstrumentType)
		instrument := models.ParseInstrumentType(rawInstrument)
		if instrument == models.InstrumentUnknown {
			warnings = append(warnings, models.Warning{
				Stage:   "normalizer",
				Code:    "unknown_instrument",
				Message: fmt.Sprintf("unrecognized instrument type %q for %s; skipped", rawInstrument, ticker),
				Row:     i + 1,
			})
			continue
		}

		row := models.NormalizedDerivativeRow{
			Ticker:         ticker,
			InstrumentType: instrument,
		}
		if date, ok := res.cell(rec, models.FieldTradeDate); ok {
			row.TradeDate = date
		}
		if expiry, ok := res.cell(rec, models.FieldExpiry); ok {
			row.Expiry = expiry
		}

		rawOption, _ := res.cell(rec, models.FieldOptionType)
		row.OptionTypeRaw = rawOption
		if instrument == models.InstrumentOption {
			// Unrecognized codes stay OptionNone here; the aggregator
			// records them as DataShapeError warnings and skips the row.
			row.OptionType, _ = models.ParseOptionType(rawOption)
		} else {
			row.OptionType = models.OptionNone
		}

		// Open interest is a count: never rounded, and an unparseable
		// cell contributes nothing to the sums but keeps the row.
		if oi, ok := parseCanonical(res, rec, models.FieldOpenInterest); ok {
			row.OpenInterest = oi
		} else {
			warnings = append(warnings, models.Warning{
				Stage:   "normalizer",
				Code:    "missing_numeric",
				Message: fmt.Sprintf("open interest unreadable for %s; treated as 0", ticker),
				Row:     i + 1,
			})
		}
		if chg, ok := parseCanonical(res, rec, models.FieldOIChange); ok {
			row.OIChange = chg
		}
		row.Strike = numericPtr(res, rec, models.FieldStrike, true)

		rows = append(rows, row)
	}

	return rows, warnings, nil
}
