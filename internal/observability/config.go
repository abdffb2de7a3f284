package observability

import (
	"strings"

	"github.com/smallbiznis/jewelbill/internal/config"
)

// Config is the resolved telemetry setup shared by the logger, tracer and
// meter providers.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	ExportEnabled bool
	Endpoint      string
	Protocol      string
	SamplingRatio float64
}

// NewConfig derives the telemetry setup from the application config.
func NewConfig(cfg config.Config) Config {
	name := strings.TrimSpace(cfg.AppName)
	if name == "" {
		name = "jewelbill"
	}
	level := cfg.Telemetry.LogLevel
	if level == "" {
		level = "info"
	}
	format := cfg.Telemetry.LogFormat
	if format == "" {
		format = "json"
	}
	return Config{
		ServiceName:   name,
		Environment:   strings.TrimSpace(cfg.Environment),
		Version:       strings.TrimSpace(cfg.AppVersion),
		LogLevel:      level,
		LogFormat:     format,
		ExportEnabled: cfg.Telemetry.OTelEnabled,
		Endpoint:      cfg.Telemetry.OTLPEndpoint,
		Protocol:      cfg.Telemetry.OTLPProtocol,
		SamplingRatio: cfg.Telemetry.SamplingRatio,
	}
}

// Debug is true for debug log level and for local environments.
func (c Config) Debug() bool {
	if c.LogLevel == "debug" {
		return true
	}
	switch strings.ToLower(c.Environment) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}
