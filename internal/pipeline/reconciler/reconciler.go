package reconciler

import (
	"fmt"

	"rdxflow/internal/models"
)

// JoinAnchor selects which side of the join every output row is anchored on.
// Derivative-anchored is the default: one output row per aggregated summary,
// with cash-only tickers dropped.
type JoinAnchor string

const (
	AnchorDerivative JoinAnchor = "derivative"
	AnchorCash       JoinAnchor = "cash"
)

// FillPolicy selects the default for cash-side fields when the join finds no
// partner. FillZero keeps downstream numeric filters total; FillNull marks
// the row unmatched so cash-side filters exclude it instead of comparing
// against a fabricated zero.
type FillPolicy string

const (
	FillZero FillPolicy = "zero"
	FillNull FillPolicy = "null"
)

// Config drives one reconciliation pass.
type Config struct {
	Anchor JoinAnchor
	Fill   FillPolicy
	// JoinOnDate additionally matches trade dates, for date-aware inputs.
	JoinOnDate bool
}

func (c Config) anchor() JoinAnchor {
	if c.Anchor == "" {
		return AnchorDerivative
	}
	return c.Anchor
}

func (c Config) fill() FillPolicy {
	if c.Fill == "" {
		return FillZero
	}
	return c.Fill
}

// Reconcile left-joins aggregated derivative summaries with cash-market rows
// on ticker (plus trade date when configured). Under the derivative anchor
// every summary yields exactly one output row, in input order, whether or
// not cash data matched; cash-only tickers are dropped. The cash anchor
// inverts that.
func Reconcile(summaries []models.InstrumentSummary, cash []models.NormalizedCashRow, cfg Config) ([]models.ReconciledRow, []models.Warning) {
	warnings := make([]models.Warning, 0)

	cashIndex := make(map[string]models.NormalizedCashRow, len(cash))
	for _, row := range cash {
		key := joinKey(row.Ticker, row.TradeDate, cfg.JoinOnDate)
		if _, dup := cashIndex[key]; dup {
			// Duplicate keys resolve last-write-wins, matching the
			// ledger semantics for re-uploaded files.
			warnings = append(warnings, models.Warning{
				Stage:   "reconciler",
				Code:    "duplicate_cash_key",
				Message: fmt.Sprintf("duplicate cash row for %s; keeping the later one", key),
			})
		}
		cashIndex[key] = row
	}

	if cfg.anchor() == AnchorCash {
		return reconcileCashAnchored(summaries, cash, cfg, warnings)
	}

	rows := make([]models.ReconciledRow, 0, len(summaries))
	for _, s := range summaries {
		cashRow, ok := cashIndex[joinKey(s.Ticker, s.TradeDate, cfg.JoinOnDate)]
		rows = append(rows, merge(s, cashRow, ok))
	}
	return rows, warnings
}

// reconcileCashAnchored emits one row per cash record; derivative-side sums
// default to zero and derivative-only instruments are dropped.
func reconcileCashAnchored(summaries []models.InstrumentSummary, cash []models.NormalizedCashRow, cfg Config, warnings []models.Warning) ([]models.ReconciledRow, []models.Warning) {
	summaryIndex := make(map[string][]models.InstrumentSummary, len(summaries))
	for _, s := range summaries {
		key := joinKey(s.Ticker, s.TradeDate, cfg.JoinOnDate)
		summaryIndex[key] = append(summaryIndex[key], s)
	}

	rows := make([]models.ReconciledRow, 0, len(cash))
	for _, c := range cash {
		key := joinKey(c.Ticker, c.TradeDate, cfg.JoinOnDate)
		matched, ok := summaryIndex[key]
		if !ok {
			rows = append(rows, merge(models.InstrumentSummary{Ticker: c.Ticker, TradeDate: c.TradeDate}, c, true))
			continue
		}
		for _, s := range matched {
			rows = append(rows, merge(s, c, true))
		}
	}
	return rows, warnings
}

func joinKey(ticker, date string, onDate bool) string {
	if onDate && date != "" {
		return ticker + "|" + date
	}
	return ticker
}

func merge(s models.InstrumentSummary, c models.NormalizedCashRow, matched bool) models.ReconciledRow {
	row := models.ReconciledRow{
		Ticker:         s.Ticker,
		Expiry:         s.Expiry,
		TradeDate:      s.TradeDate,
		FutureOI:       s.FutureOI,
		FutureOIChange: s.FutureOIChange,
		TotalCallOI:    s.TotalCallOI,
		TotalPutOI:     s.TotalPutOI,
		PCR:            s.PCR,
		CashMatched:    matched,
	}
	if row.TradeDate == "" {
		row.TradeDate = c.TradeDate
	}
	if matched {
		if c.ClosePrice != nil {
			row.ClosePrice = *c.ClosePrice
		}
		if c.DeliveryPct != nil {
			row.DeliveryPct = *c.DeliveryPct
		}
		// A matched cash row with null fields still counts as matched;
		// the zero default applies field-wise.
	}
	return row
}
