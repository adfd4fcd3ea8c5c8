package config

// DefaultConfig returns the built-in defaults, the lowest-priority
// configuration source.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Port = 8090
	cfg.Server.RequestsPerMinute = 240

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"
	cfg.Logging.AppLogPath = ""
	cfg.Logging.AuditLogPath = ""
	cfg.Logging.MaxSizeMB = 100
	cfg.Logging.MaxBackups = 10
	cfg.Logging.MaxAgeDays = 30
	cfg.Logging.Compress = true

	cfg.Database.SQLitePath = "data/costlens.db"
	cfg.Catalog.Path = "config/catalog.yaml"

	cfg.Engine.MinTrainingObservations = 90
	cfg.Engine.Trees = 100
	cfg.Engine.SubSample = 256
	cfg.Engine.MaxDepth = 0
	cfg.Engine.Contamination = 0.10
	cfg.Engine.TopServices = 5
	cfg.Engine.Seed = 1
	cfg.Engine.Headroom = 0.20
	cfg.Engine.MinVCPUFloor = 1
	cfg.Engine.HoursPerMonth = 24 * 30

	return cfg
}
