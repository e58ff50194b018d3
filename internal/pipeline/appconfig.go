package pipeline

import (
	appconfig "rdxflow/config"
	"rdxflow/internal/models"
	"rdxflow/internal/pipeline/aggregator"
	"rdxflow/internal/pipeline/normalizer"
	"rdxflow/internal/pipeline/reconciler"
)

// ConfigFrom maps the application YAML configuration onto the per-stage
// pipeline configuration. Join anchor, fill default, expiry keying and the
// missing-field policy all arrive here as data, never as a hardcoded branch
// in a stage.
func ConfigFrom(cfg *appconfig.Config) Config {
	onMissing := normalizer.OnMissing(cfg.Pipeline.OnMissing)

	filters := make([]reconciler.RangeFilter, 0, len(cfg.Pipeline.Filters))
	for _, f := range cfg.Pipeline.Filters {
		filters = append(filters, reconciler.RangeFilter{Field: f.Field, Min: f.Min, Max: f.Max})
	}

	return Config{
		Cash: normalizer.Config{
			Source:      models.SourceCash,
			Mapping:     cfg.Sources.Cash.Mapping,
			Required:    cfg.Sources.Cash.Required,
			OnMissing:   onMissing,
			SeriesAllow: cfg.Sources.Cash.SeriesAllow,
		},
		Derivatives: normalizer.Config{
			Source:    models.SourceDerivatives,
			Mapping:   cfg.Sources.Derivatives.Mapping,
			Required:  cfg.Sources.Derivatives.Required,
			OnMissing: onMissing,
		},
		Aggregation: aggregator.Config{
			KeyByExpiry: cfg.Pipeline.KeyByExpiryOrDefault(),
		},
		Join: reconciler.Config{
			Anchor:     reconciler.JoinAnchor(cfg.Pipeline.JoinAnchor),
			Fill:       reconciler.FillPolicy(cfg.Pipeline.FillPolicy),
			JoinOnDate: cfg.Pipeline.JoinOnDate,
		},
		Filters: filters,
	}
}
