package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Manager loads, validates, and watches configuration.
type Manager struct {
	configPath string
	config     *Config
	viper      *viper.Viper
	watchChan  chan Config
}

// NewManager creates a manager for the given config file path. The file is
// optional; defaults plus environment variables suffice.
func NewManager(configPath string) *Manager {
	return &Manager{
		configPath: configPath,
		watchChan:  make(chan Config, 1),
	}
}

// Load reads configuration from all sources in priority order.
func (m *Manager) Load() error {
	m.viper = viper.New()
	m.viper.SetConfigFile(m.configPath)
	m.viper.SetConfigType("yaml")

	m.viper.SetEnvPrefix("COSTLENS")
	m.viper.AutomaticEnv()
	m.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	m.setDefaults()

	if err := m.viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// No config file: defaults + env vars.
		} else if os.IsNotExist(err) {
			// Same, reported through the OS path.
		} else {
			return fmt.Errorf("read config file: %w", err)
		}
	}

	return m.unmarshal()
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	return m.config
}

// Validate reports configuration problems as one combined error.
func (m *Manager) Validate() error {
	errs := m.config.Validate()
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Watch emits a fresh Config whenever the file changes on disk.
func (m *Manager) Watch() <-chan Config {
	m.viper.WatchConfig()
	m.viper.OnConfigChange(func(e fsnotify.Event) {
		if err := m.unmarshal(); err != nil {
			return
		}
		select {
		case m.watchChan <- *m.config:
		default:
			// Channel full, skip this update.
		}
	})
	return m.watchChan
}

func (m *Manager) unmarshal() error {
	cfg := &Config{}

	cfg.Server.Port = m.viper.GetInt("server.port")
	cfg.Server.RequestsPerMinute = m.viper.GetInt("server.requests_per_minute")

	cfg.Logging.Level = m.viper.GetString("logging.level")
	cfg.Logging.Format = m.viper.GetString("logging.format")
	cfg.Logging.AppLogPath = m.viper.GetString("logging.app_log_path")
	cfg.Logging.AuditLogPath = m.viper.GetString("logging.audit_log_path")
	cfg.Logging.MaxSizeMB = m.viper.GetInt("logging.max_size_mb")
	cfg.Logging.MaxBackups = m.viper.GetInt("logging.max_backups")
	cfg.Logging.MaxAgeDays = m.viper.GetInt("logging.max_age_days")
	cfg.Logging.Compress = m.viper.GetBool("logging.compress")

	cfg.Database.SQLitePath = m.viper.GetString("database.sqlite_path")
	cfg.Catalog.Path = m.viper.GetString("catalog.path")

	cfg.Engine.MinTrainingObservations = m.viper.GetInt("engine.min_training_observations")
	cfg.Engine.Trees = m.viper.GetInt("engine.trees")
	cfg.Engine.SubSample = m.viper.GetInt("engine.sub_sample")
	cfg.Engine.MaxDepth = m.viper.GetInt("engine.max_depth")
	cfg.Engine.Contamination = m.viper.GetFloat64("engine.contamination")
	cfg.Engine.TopServices = m.viper.GetInt("engine.top_services")
	cfg.Engine.Seed = m.viper.GetInt64("engine.seed")
	cfg.Engine.Headroom = m.viper.GetFloat64("engine.headroom")
	cfg.Engine.MinVCPUFloor = m.viper.GetFloat64("engine.min_vcpu_floor")
	cfg.Engine.HoursPerMonth = m.viper.GetFloat64("engine.hours_per_month")

	m.config = cfg
	return nil
}

func (m *Manager) setDefaults() {
	defaults := DefaultConfig()

	m.viper.SetDefault("server.port", defaults.Server.Port)
	m.viper.SetDefault("server.requests_per_minute", defaults.Server.RequestsPerMinute)

	m.viper.SetDefault("logging.level", defaults.Logging.Level)
	m.viper.SetDefault("logging.format", defaults.Logging.Format)
	m.viper.SetDefault("logging.app_log_path", defaults.Logging.AppLogPath)
	m.viper.SetDefault("logging.audit_log_path", defaults.Logging.AuditLogPath)
	m.viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	m.viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	m.viper.SetDefault("logging.max_age_days", defaults.Logging.MaxAgeDays)
	m.viper.SetDefault("logging.compress", defaults.Logging.Compress)

	m.viper.SetDefault("database.sqlite_path", defaults.Database.SQLitePath)
	m.viper.SetDefault("catalog.path", defaults.Catalog.Path)

	m.viper.SetDefault("engine.min_training_observations", defaults.Engine.MinTrainingObservations)
	m.viper.SetDefault("engine.trees", defaults.Engine.Trees)
	m.viper.SetDefault("engine.sub_sample", defaults.Engine.SubSample)
	m.viper.SetDefault("engine.max_depth", defaults.Engine.MaxDepth)
	m.viper.SetDefault("engine.contamination", defaults.Engine.Contamination)
	m.viper.SetDefault("engine.top_services", defaults.Engine.TopServices)
	m.viper.SetDefault("engine.seed", defaults.Engine.Seed)
	m.viper.SetDefault("engine.headroom", defaults.Engine.Headroom)
	m.viper.SetDefault("engine.min_vcpu_floor", defaults.Engine.MinVCPUFloor)
	m.viper.SetDefault("engine.hours_per_month", defaults.Engine.HoursPerMonth)
}
