package pipeline

import (
	"github.com/google/uuid"

	"rdxflow/internal/metrics"
	"rdxflow/internal/models"
	"rdxflow/internal/pipeline/aggregator"
	"rdxflow/internal/pipeline/normalizer"
	"rdxflow/internal/pipeline/reconciler"
	"rdxflow/logger"
)

// Sources carries the already-parsed tabular inputs for one run. The
// pipeline performs no I/O; internal/source produces these.
type Sources struct {
	Cash        models.RawTable
	Derivatives models.RawTable
}

// Config composes the per-stage configuration for one run.
type Config struct {
	Cash        normalizer.Config
	Derivatives normalizer.Config
	Aggregation aggregator.Config
	Join        reconciler.Config
	Filters     []reconciler.RangeFilter
}

// Result is one pipeline invocation's output: the filtered reconciled rows,
// the pre-join summaries (for the historical ledger) and every non-fatal
// warning collected along the way.
type Result struct {
	RunID     string                     `json:"run_id"`
	Rows      []models.ReconciledRow     `json:"rows"`
	Summaries []models.InstrumentSummary `json:"summaries"`
	Warnings  []models.Warning           `json:"warnings"`
}

// Run executes normalize → aggregate → reconcile → filter synchronously over
// the given sources. The run is idempotent: identical inputs and config
// produce identical rows. The only hard failure is a SchemaError under the
// abort policy; every row-level issue is a warning instead.
func Run(sources Sources, cfg Config) (*Result, error) {
	log := logger.GetLogger().WithComponent("pipeline")
	runID := uuid.NewString()
	warnings := make([]models.Warning, 0)

	cashRows, w, err := normalizer.NormalizeCash(sources.Cash, cfg.Cash)
	warnings = append(warnings, w...)
	if err != nil {
		log.WithError(err).WithFields(logger.Fields{"run_id": runID, "source": "cash"}).Error("normalization failed")
		return nil, err
	}

	derivRows, w, err := normalizer.NormalizeDerivatives(sources.Derivatives, cfg.Derivatives)
	warnings = append(warnings, w...)
	if err != nil {
		log.WithError(err).WithFields(logger.Fields{"run_id": runID, "source": "derivatives"}).Error("normalization failed")
		return nil, err
	}

	summaries, w := aggregator.Aggregate(derivRows, cfg.Aggregation)
	warnings = append(warnings, w...)

	joined, w := reconciler.Reconcile(summaries, cashRows, cfg.Join)
	warnings = append(warnings, w...)

	rows, w := reconciler.ApplyFilters(joined, cfg.Filters, cfg.Join.Fill)
	warnings = append(warnings, w...)

	log.WithFields(logger.Fields{
		"run_id":       runID,
		"cash_rows":    len(cashRows),
		"deriv_rows":   len(derivRows),
		"summaries":    len(summaries),
		"rows_out":     len(rows),
		"warnings":     len(warnings),
		"filter_count": len(cfg.Filters),
	}).Info("pipeline run complete")

	metrics.Emit("pipeline", "rows_in", float64(len(sources.Cash.Records)+len(sources.Derivatives.Records)))
	metrics.Emit("pipeline", "rows_out", float64(len(rows)))
	metrics.Emit("pipeline", "warnings", float64(len(warnings)))

	return &Result{
		RunID:     runID,
		Rows:      rows,
		Summaries: summaries,
		Warnings:  warnings,
	}, nil
}
