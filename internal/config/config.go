// Package config loads orchestrator settings from the environment and client
// settings from the DUCC properties file.
package config

import (
	"log/slog"
	"strings"
	"time"
)

// ServiceConfig holds configuration for the orchestrator service.
type ServiceConfig struct {
	Port              string
	MetricsPort       string
	APIKey            string
	LogLevel          slog.Level
	ShutdownDrainWait time.Duration // Time to wait for load balancer to drain (0 to skip)

	JobRetention        time.Duration // How long to keep completed jobs (default 15m)
	MaintenanceInterval time.Duration // How often to remove expired jobs (default 1m)

	// SignatureRequired makes POST /or reject cancel requests without a
	// valid caller signature.
	SignatureRequired bool
	SignatureKey      string
	// Administrators may cancel any service when acting as administrator.
	Administrators []string

	// MonitorCallbackURL receives a monitor record after every job mutation.
	// Empty disables publishing.
	MonitorCallbackURL string
	MonitorSecret      string
}

// LoadServiceConfig loads service configuration from environment variables.
func LoadServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		Port:                GetEnv("PORT", "8080"),
		MetricsPort:         GetEnv("METRICS_PORT", "9090"),
		APIKey:              GetSecretFile(GetEnv("API_KEY_FILE", "")),
		LogLevel:            ParseLogLevel(GetEnv("LOG_LEVEL", "info")),
		ShutdownDrainWait:   GetDurationEnv("SHUTDOWN_DRAIN_WAIT", 5*time.Second),
		JobRetention:        GetDurationEnv("JOB_RETENTION", 15*time.Minute),
		MaintenanceInterval: GetDurationEnv("MAINTENANCE_INTERVAL", time.Minute),
		SignatureRequired:   GetBoolEnv("DUCC_SIGNATURE_REQUIRED", false),
		SignatureKey:        GetSecretFile(GetEnv("DUCC_SIGNATURE_KEY_FILE", "")),
		Administrators:      GetListEnv("DUCC_ADMINISTRATORS"),
		MonitorCallbackURL:  GetEnv("MONITOR_CALLBACK_URL", ""),
		MonitorSecret:       GetSecretFile(GetEnv("MONITOR_SECRET_FILE", "")),
	}
}

// ParseLogLevel maps debug, info, warn and error to a slog level. Anything
// else is info.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
