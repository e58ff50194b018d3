package reconciler

import (
	"fmt"

	"rdxflow/internal/models"
)

// RangeFilter retains rows whose named field lies inside the inclusive
// [Min, Max] interval. A degenerate bound with Min == Max is valid and
// accepts exactly that value: dashboard sliders collapse to a single point
// whenever a dataset's minimum and maximum coincide, and the filter must not
// reject the whole dataset when they do.
type RangeFilter struct {
	Field string  `yaml:"field" json:"field"`
	Min   float64 `yaml:"min" json:"min"`
	Max   float64 `yaml:"max" json:"max"`
}

func (f RangeFilter) String() string {
	return fmt.Sprintf("%s in [%g, %g]", f.Field, f.Min, f.Max)
}

// cashFields are the join-filled fields that a FillNull policy treats as
// absent on unmatched rows.
var cashFields = map[string]struct{}{
	models.FieldClosePrice:  {},
	models.FieldDeliveryPct: {},
}

// ApplyFilters composes the filters as a logical AND over the rows,
// preserving order. Filters on unknown field names match nothing on any row
// and are reported as a warning rather than an error, mirroring how the
// dashboard treats a stale slider binding.
func ApplyFilters(rows []models.ReconciledRow, filters []RangeFilter, fill FillPolicy) ([]models.ReconciledRow, []models.Warning) {
	warnings := make([]models.Warning, 0)
	if len(filters) == 0 {
		return rows, warnings
	}

	checked := make([]RangeFilter, 0, len(filters))
	for _, f := range filters {
		if f.Min > f.Max {
			f.Min, f.Max = f.Max, f.Min
		}
		if _, ok := (models.ReconciledRow{}).Field(f.Field); !ok {
			warnings = append(warnings, models.Warning{
				Stage:   "reconciler",
				Code:    "unknown_filter_field",
				Message: fmt.Sprintf("range filter references unknown field %q", f.Field),
			})
		}
		checked = append(checked, f)
	}

	out := make([]models.ReconciledRow, 0, len(rows))
	for _, row := range rows {
		if matchesAll(row, checked, fill) {
			out = append(out, row)
		}
	}
	return out, warnings
}

func matchesAll(row models.ReconciledRow, filters []RangeFilter, fill FillPolicy) bool {
	for _, f := range filters {
		value, ok := row.Field(f.Field)
		if !ok {
			return false
		}
		if fill == FillNull && !row.CashMatched {
			if _, isCash := cashFields[f.Field]; isCash {
				return false
			}
		}
		if value < f.Min || value > f.Max {
			return false
		}
	}
	return true
}
