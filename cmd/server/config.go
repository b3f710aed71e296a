package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/qoparu/qoparu/pkg/sources"
)

type sourcesConfig struct {
	Survey  string `yaml:"survey"`
	Points  string `yaml:"points"`
	GeoJSON string `yaml:"geojson"`
}

type tlsConfig struct {
	CertFile string   `yaml:"cert_file"`
	KeyFile  string   `yaml:"key_file"`
	Hosts    []string `yaml:"hosts"`
}

type config struct {
	Addr           string        `yaml:"addr"`
	Mode           string        `yaml:"mode"` // "plain" or "chassis"
	LogLevel       string        `yaml:"log_level"`
	Database       string        `yaml:"database"`
	SchemeFile     string        `yaml:"scheme_file"`
	Encoding       string        `yaml:"encoding"`
	FetchTimeout   time.Duration `yaml:"fetch_timeout"`
	CheckInterval  time.Duration `yaml:"check_interval"`
	ReloadInterval time.Duration `yaml:"reload_interval"` // 0 disables periodic reloads
	MCP            bool          `yaml:"mcp"`
	Sources        sourcesConfig `yaml:"sources"`
	TLS            tlsConfig     `yaml:"tls"`
}

func defaultConfig() config {
	return config{
		Addr:          ":8420",
		Mode:          "plain",
		LogLevel:      "info",
		Database:      "qoparu.db",
		FetchTimeout:  30 * time.Second,
		CheckInterval: time.Hour,
		MCP:           true,
	}
}

// loadConfig reads the YAML file at path (missing file means defaults),
// then .env, then QOPARU_* environment variables. Later layers win.
func loadConfig(path string, logger *slog.Logger) (config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Info("no config file, using defaults", "path", path)
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.validate()
}

// applyEnv overrides cfg from QOPARU_* variables.
func applyEnv(cfg *config, lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"QOPARU_ADDR":        &cfg.Addr,
		"QOPARU_MODE":        &cfg.Mode,
		"QOPARU_LOG_LEVEL":   &cfg.LogLevel,
		"QOPARU_DATABASE":    &cfg.Database,
		"QOPARU_SCHEME_FILE": &cfg.SchemeFile,
		"QOPARU_ENCODING":    &cfg.Encoding,
		"QOPARU_SURVEY_URL":  &cfg.Sources.Survey,
		"QOPARU_POINTS_URL":  &cfg.Sources.Points,
		"QOPARU_GEOJSON_URL": &cfg.Sources.GeoJSON,
		"QOPARU_CERT_FILE":   &cfg.TLS.CertFile,
		"QOPARU_KEY_FILE":    &cfg.TLS.KeyFile,
	}
	for key, dst := range str {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	dur := map[string]*time.Duration{
		"QOPARU_FETCH_TIMEOUT":   &cfg.FetchTimeout,
		"QOPARU_CHECK_INTERVAL":  &cfg.CheckInterval,
		"QOPARU_RELOAD_INTERVAL": &cfg.ReloadInterval,
	}
	for key, dst := range dur {
		v, ok := lookup(key)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
	}

	if v, ok := lookup("QOPARU_MCP"); ok {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on":
			cfg.MCP = true
		case "0", "false", "no", "off":
			cfg.MCP = false
		default:
			return fmt.Errorf("QOPARU_MCP: invalid boolean %q", v)
		}
	}
	if v, ok := lookup("QOPARU_TLS_HOSTS"); ok {
		cfg.TLS.Hosts = strings.Split(v, ",")
	}
	return nil
}

func (c config) validate() error {
	switch c.Mode {
	case "plain", "chassis":
	default:
		return fmt.Errorf("mode must be plain or chassis, got %q", c.Mode)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch_timeout must be positive")
	}
	if c.CheckInterval < 0 || c.ReloadInterval < 0 {
		return fmt.Errorf("intervals must not be negative")
	}
	return nil
}

// definitions are the seed rows of the sources DB.
func (c config) definitions() []sources.Definition {
	return []sources.Definition{
		{ID: sources.KindSurvey, Kind: sources.KindSurvey, Description: "Survey responses CSV", URL: c.Sources.Survey},
		{ID: sources.KindPoints, Kind: sources.KindPoints, Description: "Recommended sports objects CSV", URL: c.Sources.Points},
		{ID: sources.KindGeoJSON, Kind: sources.KindGeoJSON, Description: "Almaty district boundaries GeoJSON", URL: c.Sources.GeoJSON},
	}
}

func parseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return lvl, fmt.Errorf("log_level: %w", err)
	}
	return lvl, nil
}

func newLogger(level string) *slog.Logger {
	lvl, err := parseLevel(level)
	if err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
