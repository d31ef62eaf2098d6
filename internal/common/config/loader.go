package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "JOURNEY"

// Load reads configs/config.yaml, merges configs/config.<APP_ENVIRONMENT>.yaml when present and
// applies environment overrides.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return build(v)
}

// LoadFromFile reads a single config file, skipping the environment merge.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return build(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)
	return v
}

// bindEnvKeys registers every key so AutomaticEnv overrides work even when the yaml omits it.
func bindEnvKeys(v *viper.Viper) {
	keys := []string{
		"app.name", "app.version", "app.environment",
		"server.address", "server.read_timeout", "server.write_timeout", "server.shutdown_timeout",
		"camunda.enabled", "camunda.broker_address", "camunda.max_jobs_active", "camunda.timeout", "camunda.request_timeout", "camunda.registry_path",
		"database.redis.address", "database.redis.password", "database.redis.db",
		"hubspot.base_url", "hubspot.access_token", "hubspot.timeout", "hubspot.max_retries", "hubspot.retry_delay", "hubspot.page_limit",
		"cache.enabled", "cache.ttl", "cache.key_prefix",
		"journey.high_value_amount", "journey.email_open_rate", "journey.meeting_window_days", "journey.contacted_notes_threshold",
		"logging.level", "logging.format",
	}
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
}

func build(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	paths := []string{".env", "../.env", "../../.env"}
	if root := findProjectRoot(); root != "" {
		paths = append(paths, filepath.Join(root, ".env"))
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// expandEnvVars resolves ${VAR} placeholders left in yaml values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		s, ok := v.Get(key).(string)
		if !ok || !strings.Contains(s, "$") {
			continue
		}
		if expanded := os.ExpandEnv(s); expanded != s {
			v.Set(key, expanded)
		}
	}
}

// overrideEmptyConfig falls back to the conventional unprefixed variable names.
func overrideEmptyConfig(cfg *Config) {
	if cfg.HubSpot.AccessToken == "" {
		if val := os.Getenv("HUBSPOT_ACCESS_TOKEN"); val != "" {
			cfg.HubSpot.AccessToken = val
		} else if val := os.Getenv("HUBSPOT_PRIVATE_APP_TOKEN"); val != "" {
			cfg.HubSpot.AccessToken = val
		}
	}
	if cfg.Database.Redis.Address == "" {
		if val := os.Getenv("REDIS_ADDRESS"); val != "" {
			cfg.Database.Redis.Address = val
		}
	}
	if cfg.Database.Redis.Password == "" {
		if val := os.Getenv("REDIS_PASSWORD"); val != "" {
			cfg.Database.Redis.Password = val
		}
	}
	if cfg.Camunda.BrokerAddress == "" {
		if val := os.Getenv("ZEEBE_ADDRESS"); val != "" {
			cfg.Camunda.BrokerAddress = val
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "journey-board"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15000
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.HubSpot.BaseURL == "" {
		cfg.HubSpot.BaseURL = "https://api.hubapi.com"
	}
	if cfg.HubSpot.Timeout == 0 {
		cfg.HubSpot.Timeout = 10000
	}
	if cfg.HubSpot.MaxRetries == 0 {
		cfg.HubSpot.MaxRetries = 3
	}
	if cfg.HubSpot.RetryDelay == 0 {
		cfg.HubSpot.RetryDelay = 500
	}
	if cfg.HubSpot.PageLimit == 0 {
		cfg.HubSpot.PageLimit = 100
	}

	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 300
	}
	if cfg.Cache.KeyPrefix == "" {
		cfg.Cache.KeyPrefix = "journey:crm"
	}

	if cfg.Journey.HighValueAmount == 0 {
		cfg.Journey.HighValueAmount = 10000
	}
	if cfg.Journey.EmailOpenRate == 0 {
		cfg.Journey.EmailOpenRate = 0.3
	}
	if cfg.Journey.MeetingWindowDays == 0 {
		cfg.Journey.MeetingWindowDays = 90
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	for name, w := range cfg.Workers {
		if w.MaxJobsActive == 0 {
			w.MaxJobsActive = 5
		}
		if w.Timeout == 0 {
			w.Timeout = 30000
		}
		if w.MaxRetries == 0 {
			w.MaxRetries = 3
		}
		cfg.Workers[name] = w
	}
}

func validateConfig(cfg *Config) error {
	if cfg.HubSpot.AccessToken == "" {
		return fmt.Errorf("hubspot.access_token is required")
	}
	if !strings.HasPrefix(cfg.HubSpot.BaseURL, "http://") && !strings.HasPrefix(cfg.HubSpot.BaseURL, "https://") {
		return fmt.Errorf("hubspot.base_url must be an http(s) URL, got %q", cfg.HubSpot.BaseURL)
	}
	if cfg.HubSpot.PageLimit < 1 || cfg.HubSpot.PageLimit > 100 {
		return fmt.Errorf("hubspot.page_limit must be between 1 and 100")
	}
	if cfg.Camunda.Enabled && cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required when camunda is enabled")
	}
	if cfg.Cache.Enabled && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required when cache is enabled")
	}
	if cfg.Journey.HighValueAmount < 0 || cfg.Journey.EmailOpenRate < 0 || cfg.Journey.EmailOpenRate > 1 {
		return fmt.Errorf("journey thresholds out of range")
	}
	if cfg.Journey.MeetingWindowDays < 0 || cfg.Journey.ContactedNotesThreshold < 0 {
		return fmt.Errorf("journey day and note thresholds must be non-negative")
	}
	return nil
}

func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if w, ok := cfg.Workers[workerName]; ok {
		return w
	}
	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if w, ok := cfg.Workers[workerName]; ok {
		return w.Enabled
	}
	return true
}
