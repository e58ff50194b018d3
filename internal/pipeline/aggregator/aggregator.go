package aggregator

import (
	"fmt"

	"rdxflow/internal/models"
	"rdxflow/internal/pipeline/normalizer"
)

// Config drives one aggregation pass.
type Config struct {
	// KeyByExpiry includes the expiry date in the grouping key. Sources
	// without expiry granularity set this false and group by ticker alone.
	KeyByExpiry bool
}

// DataShapeError reports a row whose categorical field carried an
// unrecognized value. It is recovered locally: the row is excluded and the
// error recorded as a warning, never aborting the aggregation.
type DataShapeError struct {
	Ticker string
	Field  string
	Value  string
}

func (e *DataShapeError) Error() string {
	return fmt.Sprintf("%s: unrecognized %s value %q", e.Ticker, e.Field, e.Value)
}

// partial accumulates one (ticker, expiry) group. A group seen only on the
// futures side or only on the options side still yields a summary, with the
// missing side's sums at zero.
type partial struct {
	ticker    string
	expiry    string
	tradeDate string
	futureOI  float64
	oiChange  float64
	callOI    float64
	putOI     float64
}

// Aggregate folds normalized derivative rows into one InstrumentSummary per
// group, preserving first-seen group order. Rows with an unusable option
// type are skipped and surfaced as DataShapeError warnings.
func Aggregate(rows []models.NormalizedDerivativeRow, cfg Config) ([]models.InstrumentSummary, []models.Warning) {
	order := make([]string, 0, len(rows))
	groups := make(map[string]*partial, len(rows))
	warnings := make([]models.Warning, 0)

	for i, row := range rows {
		expiry := ""
		if cfg.KeyByExpiry {
			expiry = row.Expiry
		}
		key := row.Ticker
		if expiry != "" {
			key = row.Ticker + "|" + expiry
		}

		group, ok := groups[key]
		if !ok {
			group = &partial{ticker: row.Ticker, expiry: expiry, tradeDate: row.TradeDate}
			groups[key] = group
			order = append(order, key)
		}

		switch row.InstrumentType {
		case models.InstrumentFuture:
			group.futureOI += row.OpenInterest
			group.oiChange += row.OIChange
		case models.InstrumentOption:
			side, recognized := models.ParseOptionType(row.OptionTypeRaw)
			if !recognized || side == models.OptionNone {
				shapeErr := &DataShapeError{Ticker: row.Ticker, Field: models.FieldOptionType, Value: row.OptionTypeRaw}
				warnings = append(warnings, models.Warning{
					Stage:   "aggregator",
					Code:    "data_shape",
					Message: shapeErr.Error(),
					Row:     i + 1,
				})
				continue
			}
			if side == models.OptionCall {
				group.callOI += row.OpenInterest
			} else {
				group.putOI += row.OpenInterest
			}
		}
	}

	summaries := make([]models.InstrumentSummary, 0, len(order))
	for _, key := range order {
		g := groups[key]
		summaries = append(summaries, models.InstrumentSummary{
			Ticker:         g.ticker,
			Expiry:         g.expiry,
			TradeDate:      g.tradeDate,
			FutureOI:       g.futureOI,
			FutureOIChange: g.oiChange,
			TotalCallOI:    g.callOI,
			TotalPutOI:     g.putOI,
			PCR:            PutCallRatio(g.putOI, g.callOI),
		})
	}
	return summaries, warnings
}

// PutCallRatio computes put OI over call OI with the asymmetric
// zero-division rule: a zero call side yields exactly 0, never NaN or Inf,
// so downstream range-filter comparisons stay well defined.
func PutCallRatio(putOI, callOI float64) float64 {
	if callOI <= 0 {
		return 0
	}
	return normalizer.Round2(putOI / callOI)
}
