package config

import "fmt"

// Package config provides configuration management for costlens-engine.
//
// Responsibilities:
//   - Load configuration from YAML files and environment variables
//   - Validate configuration on startup
//   - Provide runtime access to all configuration
//   - Support hot reloading of the config file
//   - Establish reasonable defaults
//
// Configuration Sources (priority order, high to low):
//   1. Environment variables (COSTLENS_* prefix)
//   2. YAML config file (default: config/config.yaml)
//   3. Built-in defaults
//
// The engine thresholds (minimum training observations, headroom,
// contamination) are configurable defaults rather than protocol constants;
// operators may tune them per deployment.

// Config contains all configuration fields.
type Config struct {
	// Server configuration
	Server struct {
		Port int
		// RequestsPerMinute throttles each client; 0 disables the limiter.
		RequestsPerMinute int
	}

	// Logging configuration
	Logging struct {
		Level        string // debug | info | warn | error
		Format       string // json | text
		AppLogPath   string // empty = stderr only
		AuditLogPath string // empty disables the audit trail
		MaxSizeMB    int
		MaxBackups   int
		MaxAgeDays   int
		Compress     bool
	}

	// Database configuration (model snapshot store)
	Database struct {
		SQLitePath string
	}

	// Catalog configuration (static resource reference data)
	Catalog struct {
		Path string
	}

	// Engine configuration
	Engine struct {
		MinTrainingObservations int
		Trees                   int
		SubSample               int
		MaxDepth                int
		Contamination           float64
		TopServices             int
		Seed                    int64
		Headroom                float64
		MinVCPUFloor            float64
		HoursPerMonth           float64
	}
}

// Validate checks the configuration and returns all problems found.
func (c *Config) Validate() []error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.RequestsPerMinute < 0 {
		errs = append(errs, fmt.Errorf("server.requests_per_minute must be non-negative, got %d", c.Server.RequestsPerMinute))
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level must be debug|info|warn|error, got %q", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be json|text, got %q", c.Logging.Format))
	}

	if c.Engine.MinTrainingObservations < 2 {
		errs = append(errs, fmt.Errorf("engine.min_training_observations must be >= 2, got %d", c.Engine.MinTrainingObservations))
	}
	if c.Engine.Trees <= 0 {
		errs = append(errs, fmt.Errorf("engine.trees must be positive, got %d", c.Engine.Trees))
	}
	if c.Engine.SubSample <= 1 {
		errs = append(errs, fmt.Errorf("engine.sub_sample must be > 1, got %d", c.Engine.SubSample))
	}
	if c.Engine.Contamination <= 0 || c.Engine.Contamination >= 1 {
		errs = append(errs, fmt.Errorf("engine.contamination must be in (0,1), got %f", c.Engine.Contamination))
	}
	if c.Engine.TopServices <= 0 {
		errs = append(errs, fmt.Errorf("engine.top_services must be positive, got %d", c.Engine.TopServices))
	}
	if c.Engine.Headroom < 0 {
		errs = append(errs, fmt.Errorf("engine.headroom must be non-negative, got %f", c.Engine.Headroom))
	}
	if c.Engine.MinVCPUFloor <= 0 {
		errs = append(errs, fmt.Errorf("engine.min_vcpu_floor must be positive, got %f", c.Engine.MinVCPUFloor))
	}
	if c.Engine.HoursPerMonth <= 0 {
		errs = append(errs, fmt.Errorf("engine.hours_per_month must be positive, got %f", c.Engine.HoursPerMonth))
	}

	return errs
}
