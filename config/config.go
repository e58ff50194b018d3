package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration, loaded from YAML.
type Config struct {
	Rdxflow   AppConfig       `yaml:"rdxflow"`
	Logging   LoggingConfig   `yaml:"logging"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Sources   SourcesConfig   `yaml:"sources"`
	Feed      FeedConfig      `yaml:"feed"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age_days"`
}

// PipelineConfig carries the reconciliation knobs; none of them are
// hardcoded in the pipeline itself.
type PipelineConfig struct {
	// OnMissing: "abort" or "default_null" for unresolvable required fields.
	OnMissing string `yaml:"on_missing"`
	// KeyByExpiry includes the expiry in the aggregation key. Defaults to
	// true; nil means unset.
	KeyByExpiry *bool `yaml:"key_by_expiry"`
	// JoinAnchor: "derivative" (default) or "cash".
	JoinAnchor string `yaml:"join_anchor"`
	// FillPolicy: "zero" (default) or "null" for unmatched cash fields.
	FillPolicy string `yaml:"fill_policy"`
	// JoinOnDate additionally matches trade dates during the join.
	JoinOnDate bool `yaml:"join_on_date"`
	// Filters are the default range filters applied after the join.
	Filters []FilterConfig `yaml:"filters"`
}

// KeyByExpiryOrDefault resolves the expiry-key knob with its default.
func (p PipelineConfig) KeyByExpiryOrDefault() bool {
	if p.KeyByExpiry == nil {
		return true
	}
	return *p.KeyByExpiry
}

type FilterConfig struct {
	Field string  `yaml:"field"`
	Min   float64 `yaml:"min"`
	Max   float64 `yaml:"max"`
}

type SourcesConfig struct {
	Cash        SourceConfig `yaml:"cash"`
	Derivatives SourceConfig `yaml:"derivatives"`
}

// SourceConfig describes one tabular input. Exactly one of Path or URL is
// used; Mapping extends (and overrides) the built-in header dialects.
type SourceConfig struct {
	Path        string            `yaml:"path"`
	URL         string            `yaml:"url"`
	Mapping     map[string]string `yaml:"mapping"`
	Required    []string          `yaml:"required"`
	SeriesAllow []string          `yaml:"series_allow"`
}

type FeedConfig struct {
	Enabled       bool          `yaml:"enabled"`
	URL           string        `yaml:"url"`
	Symbols       []string      `yaml:"symbols"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

type LedgerConfig struct {
	Postgres PostgresConfig `yaml:"postgres"`
	S3       S3Config       `yaml:"s3"`
}

type PostgresConfig struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
	Table   string `yaml:"table"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type DashboardConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Address         string        `yaml:"address"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	LogHistory      int           `yaml:"log_history"`
}

type MetricsConfig struct {
	CloudWatch CloudWatchConfig `yaml:"cloudwatch"`
}

type CloudWatchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	Namespace string `yaml:"namespace"`
}

// LoadConfig reads and validates the YAML configuration at path, merging the
// built-in column-mapping dialects into any source that does not override
// them completely.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("cannot parse YAML: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Rdxflow.Name == "" {
		c.Rdxflow.Name = "rdxflow"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Pipeline.OnMissing == "" {
		c.Pipeline.OnMissing = "abort"
	}
	if c.Pipeline.JoinAnchor == "" {
		c.Pipeline.JoinAnchor = "derivative"
	}
	if c.Pipeline.FillPolicy == "" {
		c.Pipeline.FillPolicy = "zero"
	}

	c.Sources.Cash.Mapping = mergeMapping(DefaultCashMapping(), c.Sources.Cash.Mapping)
	c.Sources.Derivatives.Mapping = mergeMapping(DefaultDerivativesMapping(), c.Sources.Derivatives.Mapping)
	if len(c.Sources.Cash.Required) == 0 {
		c.Sources.Cash.Required = DefaultCashRequired()
	}
	if len(c.Sources.Derivatives.Required) == 0 {
		c.Sources.Derivatives.Required = DefaultDerivativesRequired()
	}

	if c.Dashboard.Address == "" {
		c.Dashboard.Address = ":8090"
	}
	if c.Dashboard.RefreshInterval <= 0 {
		c.Dashboard.RefreshInterval = 5 * time.Second
	}
	if c.Dashboard.LogHistory <= 0 {
		c.Dashboard.LogHistory = 200
	}
	if c.Feed.BatchSize <= 0 {
		c.Feed.BatchSize = 100
	}
	if c.Feed.FlushInterval <= 0 {
		c.Feed.FlushInterval = 5 * time.Second
	}
	if c.Ledger.Postgres.Table == "" {
		c.Ledger.Postgres.Table = "instrument_summaries"
	}
}

func (c *Config) validate() error {
	switch c.Pipeline.OnMissing {
	case "abort", "default_null":
	default:
		return fmt.Errorf("pipeline.on_missing must be 'abort' or 'default_null', got %q", c.Pipeline.OnMissing)
	}
	switch c.Pipeline.JoinAnchor {
	case "derivative", "cash":
	default:
		return fmt.Errorf("pipeline.join_anchor must be 'derivative' or 'cash', got %q", c.Pipeline.JoinAnchor)
	}
	switch c.Pipeline.FillPolicy {
	case "zero", "null":
	default:
		return fmt.Errorf("pipeline.fill_policy must be 'zero' or 'null', got %q", c.Pipeline.FillPolicy)
	}
	if c.Ledger.Postgres.Enabled && c.Ledger.Postgres.DSN == "" {
		return fmt.Errorf("ledger.postgres.dsn is required when postgres ledger is enabled")
	}
	if c.Ledger.S3.Enabled && c.Ledger.S3.Bucket == "" {
		return fmt.Errorf("ledger.s3.bucket is required when s3 ledger is enabled")
	}
	return nil
}

// mergeMapping overlays user entries on the built-in dialect table. User
// entries win on header collisions.
func mergeMapping(base, user map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(user))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range user {
		merged[k] = v
	}
	return merged
}
