package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"rdxflow/internal/models"
)

// ReadTable parses CSV content into a RawTable. Headers are trimmed of
// surrounding whitespace; row order is preserved. Ragged rows are tolerated:
// short rows leave the trailing columns absent, long rows drop the overflow,
// and either case is recorded as a warning instead of failing the file.
func ReadTable(r io.Reader) (models.RawTable, []models.Warning, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	warnings := make([]models.Warning, 0)

	header, err := reader.Read()
	if err == io.EOF {
		return models.RawTable{}, warnings, fmt.Errorf("empty input: no header row")
	}
	if err != nil {
		return models.RawTable{}, warnings, fmt.Errorf("read header: %w", err)
	}

	headers := make([]string, len(header))
	for i, h := range header {
		headers[i] = strings.TrimSpace(h)
	}

	table := models.RawTable{Headers: headers}
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			warnings = append(warnings, models.Warning{
				Stage:   "source",
				Code:    "bad_row",
				Message: fmt.Sprintf("line %d unreadable: %v; skipped", line, err),
				Row:     line,
			})
			continue
		}
		if len(record) != len(headers) {
			warnings = append(warnings, models.Warning{
				Stage:   "source",
				Code:    "ragged_row",
				Message: fmt.Sprintf("line %d has %d fields, header has %d", line, len(record), len(headers)),
				Row:     line,
			})
		}

		row := make(models.RawRecord, len(headers))
		for i, h := range headers {
			if i < len(record) {
				row[h] = record[i]
			}
		}
		table.Records = append(table.Records, row)
	}

	return table, warnings, nil
}

// LoadFile reads a bhavcopy CSV from disk.
func LoadFile(path string) (models.RawTable, []models.Warning, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.RawTable{}, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadTable(f)
}
