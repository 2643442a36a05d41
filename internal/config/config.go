package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	diagnostics "fleetcare-cloud/internal/diagnostics/domain"
	monitor "fleetcare-cloud/internal/monitor/domain"
	workflow "fleetcare-cloud/internal/workflow/domain"
)

// DataFiles locates the seed data the in-memory stores load at startup.
type DataFiles struct {
	TelemetryFile string `yaml:"telemetry_file"`
	VehiclesFile  string `yaml:"vehicles_file"`
	HistoryFile   string `yaml:"history_file"`
	DefectsFile   string `yaml:"defects_file"`
	NetworkFile   string `yaml:"network_file"`
}

// WorkflowConfig tunes the case workflow.
type WorkflowConfig struct {
	MaxRetries      int    `yaml:"max_retries"`
	ConsentFallback string `yaml:"consent_fallback"`
}

// Config is the service configuration. A yaml file named by FLEETCARE_CONFIG
// overrides the env-derived defaults; threshold, safety, and baseline
// sections replace the built-in tables wholesale when present.
type Config struct {
	DatabaseURL      string `yaml:"database_url"`
	HTTPAddr         string `yaml:"http_addr"`
	TenantID         string `yaml:"tenant_id"`
	JWTSecret        string `yaml:"jwt_secret"`
	IngestSecret     string `yaml:"ingest_secret"`
	IngestSkewSecs   int    `yaml:"ingest_max_skew_seconds"`
	NotifyWebhookURL string `yaml:"notify_webhook_url"`

	Data     DataFiles      `yaml:"data"`
	Workflow WorkflowConfig `yaml:"workflow"`

	Thresholds *diagnostics.ThresholdTable `yaml:"thresholds,omitempty"`
	Safety     *diagnostics.SafetyPolicy   `yaml:"safety,omitempty"`
	Baselines  []monitor.Baseline          `yaml:"baselines,omitempty"`
}

// Load builds the configuration from env defaults and the optional yaml
// file named by FLEETCARE_CONFIG.
func Load() (Config, error) {
	dataRoot := getenvDefault("FLEETCARE_DATA_DIR", filepath.FromSlash("data"))
	cfg := Config{
		DatabaseURL:      getenvDefault("DATABASE_URL", os.Getenv("PG_DSN")),
		HTTPAddr:         getenvDefault("HTTP_ADDR", ":8080"),
		TenantID:         getenvDefault("TENANT_ID", "fleet-demo"),
		JWTSecret:        getenvDefault("AUTH_JWT_SECRET", os.Getenv("JWT_SECRET")),
		IngestSecret:     os.Getenv("INGEST_HMAC_SECRET"),
		IngestSkewSecs:   getenvIntDefault("INGEST_MAX_SKEW_SECONDS", 300),
		NotifyWebhookURL: os.Getenv("NOTIFY_WEBHOOK_URL"),
		Data: DataFiles{
			TelemetryFile: filepath.Join(dataRoot, "telemetry_stream.json"),
			VehiclesFile:  filepath.Join(dataRoot, "vehicles.json"),
			HistoryFile:   filepath.Join(dataRoot, "maintenance_history.json"),
			DefectsFile:   filepath.Join(dataRoot, "defect_records.json"),
			NetworkFile:   filepath.Join(dataRoot, "service_network.json"),
		},
		Workflow: WorkflowConfig{
			MaxRetries:      getenvIntDefault("WORKFLOW_MAX_RETRIES", 3),
			ConsentFallback: getenvDefault("WORKFLOW_CONSENT_FALLBACK", string(workflow.ConsentGranted)),
		},
	}

	if path := os.Getenv("FLEETCARE_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if cfg.DatabaseURL == "" {
		return cfg, errors.New("config: DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		return cfg, errors.New("config: AUTH_JWT_SECRET is required")
	}
	if cfg.Thresholds != nil {
		if err := cfg.Thresholds.Validate(); err != nil {
			return cfg, fmt.Errorf("config: thresholds: %w", err)
		}
	}
	for _, baseline := range cfg.Baselines {
		if err := baseline.Validate(); err != nil {
			return cfg, fmt.Errorf("config: baselines: %w", err)
		}
	}
	if !workflow.Consent(cfg.Workflow.ConsentFallback).Valid() {
		return cfg, fmt.Errorf("config: invalid consent fallback %q", cfg.Workflow.ConsentFallback)
	}
	return cfg, nil
}

// ThresholdTable returns the configured table, or the factory defaults.
func (c Config) ThresholdTable() diagnostics.ThresholdTable {
	if c.Thresholds != nil {
		return *c.Thresholds
	}
	return diagnostics.DefaultThresholdTable()
}

// SafetyPolicy returns the configured policy, or the factory default.
func (c Config) SafetyPolicy() diagnostics.SafetyPolicy {
	if c.Safety != nil {
		return *c.Safety
	}
	return diagnostics.DefaultSafetyPolicy()
}

// WorkerBaselines returns the configured baselines, or the factory defaults.
func (c Config) WorkerBaselines() []monitor.Baseline {
	if len(c.Baselines) > 0 {
		return c.Baselines
	}
	return monitor.DefaultBaselines()
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
