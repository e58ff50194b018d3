package config

import (
	"os"
	"testing"
)

// writeTempConfig creates a minimal configuration file for LoadConfig and
// returns its path.
func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp("", "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close temp file: %v", err)
	}
	t.Cleanup(func() { os.Remove(f.Name()) })
	return f.Name()
}

func TestLoadConfig(t *testing.T) {
	path := writeTempConfig(t, `rdxflow:
  name: "TestApp"
  version: "1.0"
pipeline:
  on_missing: default_null
  join_anchor: cash
  fill_policy: "null"
  filters:
  - field: pcr
    min: 0.5
    max: 2.0
sources:
  cash:
    path: testdata/cash.csv
  derivatives:
    path: testdata/fo.csv
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Rdxflow.Name != "TestApp" {
		t.Errorf("unexpected name: %s", cfg.Rdxflow.Name)
	}
	if cfg.Pipeline.OnMissing != "default_null" || cfg.Pipeline.JoinAnchor != "cash" || cfg.Pipeline.FillPolicy != "null" {
		t.Errorf("pipeline knobs not parsed: %+v", cfg.Pipeline)
	}
	if len(cfg.Pipeline.Filters) != 1 || cfg.Pipeline.Filters[0].Field != "pcr" {
		t.Errorf("filters not parsed: %+v", cfg.Pipeline.Filters)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeTempConfig(t, "rdxflow:\n  name: app\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Pipeline.OnMissing != "abort" {
		t.Errorf("on_missing default = %q", cfg.Pipeline.OnMissing)
	}
	if cfg.Pipeline.JoinAnchor != "derivative" {
		t.Errorf("join_anchor default = %q", cfg.Pipeline.JoinAnchor)
	}
	if cfg.Pipeline.FillPolicy != "zero" {
		t.Errorf("fill_policy default = %q", cfg.Pipeline.FillPolicy)
	}
	if !cfg.Pipeline.KeyByExpiryOrDefault() {
		t.Errorf("key_by_expiry should default to true")
	}
	if cfg.Dashboard.Address != ":8090" {
		t.Errorf("dashboard address default = %q", cfg.Dashboard.Address)
	}

	// built-in dialects are merged in when no mapping is supplied
	if cfg.Sources.Cash.Mapping["SYMBOL"] != "ticker" || cfg.Sources.Cash.Mapping["TckrSymb"] != "ticker" {
		t.Errorf("cash mapping defaults missing: %v", cfg.Sources.Cash.Mapping)
	}
	if cfg.Sources.Derivatives.Mapping["OPTION_TYP"] != "option_type" {
		t.Errorf("derivatives mapping defaults missing")
	}
	if len(cfg.Sources.Cash.Required) == 0 || len(cfg.Sources.Derivatives.Required) == 0 {
		t.Errorf("required field defaults missing")
	}
}

func TestLoadConfigMappingOverride(t *testing.T) {
	path := writeTempConfig(t, `sources:
  cash:
    mapping:
      MY_SYMBOL: ticker
      SYMBOL: series
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Sources.Cash.Mapping["MY_SYMBOL"] != "ticker" {
		t.Errorf("user mapping entry missing")
	}
	// user entries win on collision with the built-in dialect
	if cfg.Sources.Cash.Mapping["SYMBOL"] != "series" {
		t.Errorf("user override lost: %q", cfg.Sources.Cash.Mapping["SYMBOL"])
	}
	// untouched built-ins survive the merge
	if cfg.Sources.Cash.Mapping["CLOSE_PRICE"] != "close_price" {
		t.Errorf("built-in mapping entry lost")
	}
}

func TestLoadConfigRejectsBadKnobs(t *testing.T) {
	cases := []string{
		"pipeline:\n  on_missing: sometimes\n",
		"pipeline:\n  join_anchor: sideways\n",
		"pipeline:\n  fill_policy: whatever\n",
		"ledger:\n  postgres:\n    enabled: true\n",
	}
	for _, content := range cases {
		path := writeTempConfig(t, content)
		if _, err := LoadConfig(path); err == nil {
			t.Errorf("expected validation error for %q", content)
		}
	}
}

func TestAppEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "")
	if env := AppEnvironment(); env != EnvironmentDevelopment {
		t.Errorf("default environment = %q", env)
	}
	t.Setenv("APP_ENV", "PROD")
	if env := AppEnvironment(); env != EnvironmentProduction {
		t.Errorf("prod alias = %q", env)
	}
	t.Setenv("APP_ENV", "staging")
	if env := AppEnvironment(); env != EnvironmentStaging {
		t.Errorf("staging = %q", env)
	}
}
