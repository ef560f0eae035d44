package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields processes environment variable references in
// credential fields so API keys and tokens can be stored as ${ENV_VAR}.
func expandSensitiveFields(cfg *Config) {
	cfg.AI.APIKey = expandEnvVars(cfg.AI.APIKey)
	cfg.TTS.APIKey = expandEnvVars(cfg.TTS.APIKey)
	cfg.SMS.AccountSID = expandEnvVars(cfg.SMS.AccountSID)
	cfg.SMS.AuthToken = expandEnvVars(cfg.SMS.AuthToken)
	cfg.Redis.Addr = expandEnvVars(cfg.Redis.Addr)
}

// Load reads the config file, applies environment overrides, and returns
// a merged Config. A missing file produces defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	expandSensitiveFields(&cfg)
	return cfg, nil
}

// applyDefaults fills zero-value fields after unmarshalling, since a
// partially specified YAML file overwrites the Defaults() struct.
func applyDefaults(cfg *Config) {
	d := Defaults()
	if cfg.Business.Type == "" {
		cfg.Business.Type = d.Business.Type
	}
	if cfg.Business.Timezone == "" {
		cfg.Business.Timezone = d.Business.Timezone
	}
	if len(cfg.Booking.Slots) == 0 {
		cfg.Booking.Slots = d.Booking.Slots
	}
	if cfg.Booking.BufferMinutes == 0 {
		cfg.Booking.BufferMinutes = d.Booking.BufferMinutes
	}
	if cfg.Booking.DurationMinutes == 0 {
		cfg.Booking.DurationMinutes = d.Booking.DurationMinutes
	}
	if cfg.Booking.CacheTTLSeconds == 0 {
		cfg.Booking.CacheTTLSeconds = d.Booking.CacheTTLSeconds
	}
	if cfg.Booking.WarmDays == 0 {
		cfg.Booking.WarmDays = d.Booking.WarmDays
	}
	if cfg.Booking.WarmCron == "" {
		cfg.Booking.WarmCron = d.Booking.WarmCron
	}
	if cfg.Booking.MaxAdvanceDays == 0 {
		cfg.Booking.MaxAdvanceDays = d.Booking.MaxAdvanceDays
	}
	if cfg.Booking.AlternativeCount == 0 {
		cfg.Booking.AlternativeCount = d.Booking.AlternativeCount
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = d.Server.Port
	}
	if cfg.Server.Workers == 0 {
		cfg.Server.Workers = d.Server.Workers
	}
	if cfg.Session.IdleMinutes == 0 {
		cfg.Session.IdleMinutes = d.Session.IdleMinutes
	}
	if cfg.Session.ReapIntervalSecs == 0 {
		cfg.Session.ReapIntervalSecs = d.Session.ReapIntervalSecs
	}
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = d.AI.Provider
	}
	if cfg.AI.TimeoutMS == 0 {
		cfg.AI.TimeoutMS = d.AI.TimeoutMS
	}
	if cfg.AI.MaxOutputChars == 0 {
		cfg.AI.MaxOutputChars = d.AI.MaxOutputChars
	}
	if cfg.TTS.Provider == "" {
		cfg.TTS.Provider = d.TTS.Provider
	}
	if cfg.Breakers.FailureThreshold == 0 {
		cfg.Breakers.FailureThreshold = d.Breakers.FailureThreshold
	}
	if cfg.Breakers.RecoveryTimeoutSecs == 0 {
		cfg.Breakers.RecoveryTimeoutSecs = d.Breakers.RecoveryTimeoutSecs
	}
	if cfg.Breakers.SuccessThreshold == 0 {
		cfg.Breakers.SuccessThreshold = d.Breakers.SuccessThreshold
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = d.Logging.Level
	}
}

// applyEnvOverrides reads FRONTDESK_* environment variables and overrides
// config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FRONTDESK_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("FRONTDESK_BASE_URL"); v != "" {
		cfg.Server.BaseURL = v
	}
	if v := os.Getenv("FRONTDESK_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("FRONTDESK_TIMEZONE"); v != "" {
		cfg.Business.Timezone = v
	}
	if v := os.Getenv("FRONTDESK_AI_API_KEY"); v != "" {
		cfg.AI.APIKey = v
	}
	if v := os.Getenv("FRONTDESK_REDIS_ADDR"); v != "" {
		cfg.Redis.Enabled = true
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("FRONTDESK_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
}
