package normalizer

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"rdxflow/internal/models"
)

// OnMissing selects the caller policy when a required canonical field cannot
// be resolved from the input's columns.
type OnMissing string

const (
	// OnMissingAbort fails the whole normalization with a SchemaError.
	OnMissingAbort OnMissing = "abort"
	// OnMissingDefaultNull records the SchemaError as a warning and
	// continues with the unresolved fields left null.
	OnMissingDefaultNull OnMissing = "default_null"
)

// Config drives one normalization pass for a single source.
type Config struct {
	// Source labels warnings and errors (e.g. "cash", "derivatives").
	Source models.SourceKind
	// Mapping is the recognized source-header → canonical-field table.
	// Header matching is case- and surrounding-whitespace-insensitive.
	Mapping map[string]string
	// Required lists the canonical fields that must resolve to a column.
	Required []string
	// OnMissing is the required-field failure policy. Defaults to abort.
	OnMissing OnMissing
	// SeriesAllow optionally restricts cash rows to the listed series
	// codes (e.g. "EQ") when a "series" column resolves. Empty = keep all.
	SeriesAllow []string
}

// SchemaError reports canonical fields that could not be resolved from any
// recognized source column. It is a structural problem with the whole input,
// not a row-level data-quality gap.
type SchemaError struct {
	Source  models.SourceKind
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s input: unresolvable canonical fields: %s", e.Source, strings.Join(e.Missing, ", "))
}

// resolution maps canonical field names onto the actual header present in
// the table, post whitespace/case folding.
type resolution map[string]string

// resolveColumns walks the table headers once and matches each against the
// mapping. Later duplicate headers do not displace an earlier match.
func resolveColumns(headers []string, mapping map[string]string) resolution {
	folded := make(map[string]string, len(mapping))
	for src, canonical := range mapping {
		folded[foldHeader(src)] = canonical
	}

	res := make(resolution, len(mapping))
	for _, h := range headers {
		canonical, ok := folded[foldHeader(h)]
		if !ok {
			continue
		}
		if _, dup := res[canonical]; dup {
			continue
		}
		res[canonical] = h
	}
	return res
}

func foldHeader(h string) string {
	return strings.ToUpper(strings.TrimSpace(h))
}

// checkRequired returns a SchemaError listing required canonical fields the
// resolution could not satisfy, or nil when everything resolved.
func checkRequired(source models.SourceKind, res resolution, required []string) *SchemaError {
	var missing []string
	for _, field := range required {
		if _, ok := res[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return &SchemaError{Source: source, Missing: missing}
}

// cell fetches the raw value for a canonical field, trimmed. The boolean is
// false when the column never resolved.
func (r resolution) cell(rec models.RawRecord, canonical string) (string, bool) {
	header, ok := r[canonical]
	if !ok {
		return "", false
	}
	return strings.TrimSpace(rec[header]), true
}

// ParseNumeric is the tolerant numeric parse used for every numeric cell.
// The "-" sentinel, blank cells and other non-numeric garbage parse to
// missing (ok=false) rather than erroring or conflating with zero. Grouping
// commas are stripped before parsing.
func ParseNumeric(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || s == "-" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Round2 rounds presentation-grade fields (prices, percentages, ratios) to
// two decimals. Open-interest counts are never rounded.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// numericPtr parses a canonical cell into an optional rounded value.
func numericPtr(res resolution, rec models.RawRecord, canonical string, round bool) *float64 {
	raw, ok := res.cell(rec, canonical)
	if !ok {
		return nil
	}
	v, ok := ParseNumeric(raw)
	if !ok {
		return nil
	}
	if round {
		v = Round2(v)
	}
	return &v
}

func (c Config) onMissing() OnMissing {
	if c.OnMissing == "" {
		return OnMissingAbort
	}
	return c.OnMissing
}

func schemaWarning(err *SchemaError) models.Warning {
	return models.Warning{
		Stage:   "normalizer",
		Code:    "schema_mismatch",
		Message: err.Error(),
	}
}
