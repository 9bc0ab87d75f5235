// Package config handles pipeline configuration and environment loading.
package config

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"duck-elt/internal/ddl"
	"duck-elt/internal/domain"
	"duck-elt/internal/source"
)

// Defaults for a pipeline run from the repository root.
const (
	DefaultDataDir        = "dbt/data"
	DefaultDBTProjectDir  = "./dbt"
	DefaultDBTProfilesDir = "."
	DefaultDBTExecutable  = "dbt"
	DefaultPostgresPort   = 5432
	DefaultManifestPath   = "pipeline.yaml"
)

// DefaultTables and DefaultModels are the extraction and export lists used
// when the manifest does not name any.
var (
	DefaultTables = []string{"customers", "orders", "order_items"}
	DefaultModels = []string{"customer_orders", "order_details"}
)

// Paths locates every artifact the pipeline reads or writes.
type Paths struct {
	DataDir        string `yaml:"data_dir"`
	ParquetDir     string `yaml:"parquet_dir"`      // default {data_dir}/parquet
	DuckDBPath     string `yaml:"duckdb_path"`      // default {data_dir}/analytics.duckdb
	DBTProjectDir  string `yaml:"dbt_project_dir"`  // working directory of the dbt run
	DBTProfilesDir string `yaml:"dbt_profiles_dir"` // relative to dbt_project_dir
	DBTExecutable  string `yaml:"dbt_executable"`
}

// Manifest is the optional pipeline.yaml file. Every field may be omitted.
type Manifest struct {
	Paths        Paths    `yaml:"paths"`
	Tables       []string `yaml:"tables"`
	Models       []string `yaml:"models"`
	SourceSchema string   `yaml:"source_schema"`
	SSLMode      string   `yaml:"source_sslmode"`
	ModelSchema  string   `yaml:"model_schema"`
	VerifyPolicy string   `yaml:"verify_policy"`
	Preflight    *bool    `yaml:"preflight"`
	LogLevel     string   `yaml:"log_level"`
}

// Config holds everything needed to wire and run the pipeline.
type Config struct {
	Source source.Descriptor
	Paths  Paths

	Tables       []string // extraction order
	Models       []string // export order
	SourceSchema string   // Postgres schema holding Tables
	ModelSchema  string   // primary export namespace; empty means read it from the dbt profile
	VerifyPolicy string   // domain.VerifyPolicyWarn or domain.VerifyPolicyStrict
	Preflight    bool     // count source rows through pgx before extracting
	LogLevel     string   // debug, info, warn, error (default "info")

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LoadFromEnv loads the source credentials from the POSTGRES_* environment
// variables and fills every other field with its default. No other
// environment variables are read.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Source: source.Descriptor{
			Host:     os.Getenv("POSTGRES_HOST"),
			User:     os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			Database: os.Getenv("POSTGRES_DB"),
		},
		Preflight: true,
	}

	if v := os.Getenv("POSTGRES_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("POSTGRES_PORT must be a number: %q", v)
		}
		cfg.Source.Port = port
	} else {
		cfg.Source.Port = DefaultPostgresPort
		cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("POSTGRES_PORT not set, using %d", DefaultPostgresPort))
	}
	if cfg.Source.Password == "" {
		cfg.Warnings = append(cfg.Warnings, "POSTGRES_PASSWORD is empty")
	}

	cfg.applyDefaults()
	return cfg, nil
}

// Load reads the environment, then overlays the manifest at manifestPath
// when it exists, then validates the result.
func Load(manifestPath string) (*Config, error) {
	cfg, err := LoadFromEnv()
	if err != nil {
		return nil, err
	}
	m, err := LoadManifest(manifestPath)
	if err != nil {
		return nil, err
	}
	if m != nil {
		cfg.Apply(m)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadManifest parses a pipeline.yaml file. A missing file yields (nil, nil).
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}

	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return &m, nil // empty file
		}
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return &m, nil
}

// Apply overlays the non-empty manifest fields onto the config.
func (c *Config) Apply(m *Manifest) {
	p := m.Paths
	if p.DataDir != "" {
		// Derived paths follow the data dir unless set explicitly below.
		c.Paths.DataDir = p.DataDir
		c.Paths.ParquetDir = ""
		c.Paths.DuckDBPath = ""
	}
	setIf(&c.Paths.ParquetDir, p.ParquetDir)
	setIf(&c.Paths.DuckDBPath, p.DuckDBPath)
	setIf(&c.Paths.DBTProjectDir, p.DBTProjectDir)
	setIf(&c.Paths.DBTProfilesDir, p.DBTProfilesDir)
	setIf(&c.Paths.DBTExecutable, p.DBTExecutable)

	if len(m.Tables) > 0 {
		c.Tables = append([]string(nil), m.Tables...)
	}
	if len(m.Models) > 0 {
		c.Models = append([]string(nil), m.Models...)
	}
	setIf(&c.SourceSchema, m.SourceSchema)
	setIf(&c.Source.SSLMode, m.SSLMode)
	setIf(&c.ModelSchema, m.ModelSchema)
	setIf(&c.VerifyPolicy, strings.ToLower(m.VerifyPolicy))
	setIf(&c.LogLevel, m.LogLevel)
	if m.Preflight != nil {
		c.Preflight = *m.Preflight
	}
	c.applyDefaults()
}

func (c *Config) applyDefaults() {
	if c.Paths.DataDir == "" {
		c.Paths.DataDir = DefaultDataDir
	}
	if c.Paths.ParquetDir == "" {
		c.Paths.ParquetDir = filepath.Join(c.Paths.DataDir, "parquet")
	}
	if c.Paths.DuckDBPath == "" {
		c.Paths.DuckDBPath = filepath.Join(c.Paths.DataDir, "analytics.duckdb")
	}
	if c.Paths.DBTProjectDir == "" {
		c.Paths.DBTProjectDir = DefaultDBTProjectDir
	}
	if c.Paths.DBTProfilesDir == "" {
		c.Paths.DBTProfilesDir = DefaultDBTProfilesDir
	}
	if c.Paths.DBTExecutable == "" {
		c.Paths.DBTExecutable = DefaultDBTExecutable
	}
	if len(c.Tables) == 0 {
		c.Tables = append([]string(nil), DefaultTables...)
	}
	if len(c.Models) == 0 {
		c.Models = append([]string(nil), DefaultModels...)
	}
	if c.SourceSchema == "" {
		c.SourceSchema = source.DefaultSchema
	}
	if c.VerifyPolicy == "" {
		c.VerifyPolicy = domain.VerifyPolicyWarn
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks the credentials, every identifier and the policy.
func (c *Config) Validate() error {
	if err := c.Source.Validate(); err != nil {
		return err
	}
	if err := ddl.ValidateNameList("table", c.Tables); err != nil {
		return err
	}
	if err := ddl.ValidateNameList("model", c.Models); err != nil {
		return err
	}
	if err := ddl.ValidateIdentifier(c.SourceSchema); err != nil {
		return fmt.Errorf("invalid source schema %q: %w", c.SourceSchema, err)
	}
	if c.ModelSchema != "" {
		if err := ddl.ValidateIdentifier(c.ModelSchema); err != nil {
			return fmt.Errorf("invalid model schema %q: %w", c.ModelSchema, err)
		}
	}
	switch c.VerifyPolicy {
	case domain.VerifyPolicyWarn, domain.VerifyPolicyStrict:
	default:
		return fmt.Errorf("verify_policy must be %q or %q, got %q",
			domain.VerifyPolicyWarn, domain.VerifyPolicyStrict, c.VerifyPolicy)
	}
	return nil
}

// ProfilesDir resolves DBTProfilesDir against the project directory, which
// is where dbt itself resolves a relative DBT_PROFILES_DIR.
func (p Paths) ProfilesDir() string {
	if filepath.IsAbs(p.DBTProfilesDir) {
		return p.DBTProfilesDir
	}
	return filepath.Join(p.DBTProjectDir, p.DBTProfilesDir)
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		// Only set if not already in the environment (env vars take precedence)
		if _, set := os.LookupEnv(key); !set {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
// Only strips if both the first and last characters are matching quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
