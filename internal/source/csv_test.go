package source

import (
	"strings"
	"testing"
)

func TestReadTableTrimsHeaders(t *testing.T) {
	input := "SYMBOL , SERIES ,CLOSE_PRICE\nABC,EQ,150.25\n"
	table, warnings, err := ReadTable(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	want := []string{"SYMBOL", "SERIES", "CLOSE_PRICE"}
	for i, h := range want {
		if table.Headers[i] != h {
			t.Errorf("header %d = %q, want %q", i, table.Headers[i], h)
		}
	}
	if len(table.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(table.Records))
	}
	if table.Records[0]["SYMBOL"] != "ABC" || table.Records[0]["CLOSE_PRICE"] != "150.25" {
		t.Fatalf("record mismatch: %v", table.Records[0])
	}
}

func TestReadTablePreservesRowOrder(t *testing.T) {
	input := "SYMBOL\nZZZ\nAAA\nMMM\n"
	table, _, err := ReadTable(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	want := []string{"ZZZ", "AAA", "MMM"}
	for i, sym := range want {
		if table.Records[i]["SYMBOL"] != sym {
			t.Errorf("row %d = %q, want %q", i, table.Records[i]["SYMBOL"], sym)
		}
	}
}

func TestReadTableToleratesRaggedRows(t *testing.T) {
	input := "SYMBOL,CLOSE_PRICE\nABC,150.25\nSHORT\nLONG,1,extra\n"
	table, warnings, err := ReadTable(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if len(table.Records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(table.Records))
	}
	if len(warnings) != 2 {
		t.Fatalf("expected 2 ragged_row warnings, got %v", warnings)
	}

	if _, ok := table.Records[1]["CLOSE_PRICE"]; ok {
		t.Errorf("short row should leave trailing columns absent")
	}
	if table.Records[2]["CLOSE_PRICE"] != "1" {
		t.Errorf("long row should keep mapped columns, got %v", table.Records[2])
	}
}

func TestReadTableEmptyInput(t *testing.T) {
	if _, _, err := ReadTable(strings.NewReader("")); err == nil {
		t.Fatalf("expected error for empty input")
	}
}
