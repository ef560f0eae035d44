// Package config loads and validates the frontdesk configuration.
package config

// Config is the root configuration. It is immutable for the process
// lifetime once loaded.
type Config struct {
	Business  BusinessConfig  `yaml:"business,omitempty"`
	Booking   BookingConfig   `yaml:"booking,omitempty"`
	Server    ServerConfig    `yaml:"server,omitempty"`
	Session   SessionConfig   `yaml:"session,omitempty"`
	AI        AIConfig        `yaml:"ai,omitempty"`
	TTS       TTSConfig       `yaml:"tts,omitempty"`
	Calendar  CalendarConfig  `yaml:"calendar,omitempty"`
	SMS       SMSConfig       `yaml:"sms,omitempty"`
	Redis     RedisConfig     `yaml:"redis,omitempty"`
	Store     StoreConfig     `yaml:"store,omitempty"`
	Breakers  BreakerConfig   `yaml:"breakers,omitempty"`
	Logging   LoggingConfig   `yaml:"logging,omitempty"`
}

// BusinessConfig describes the business the receptionist answers for.
type BusinessConfig struct {
	Name        string            `yaml:"name"`
	Type        string            `yaml:"type,omitempty"` // "dental" | "medical" | "salon" | "restaurant" | "general"
	Phone       string            `yaml:"phone,omitempty"`
	Timezone    string            `yaml:"timezone,omitempty"` // IANA name, e.g. "America/New_York"
	Hours       map[string]string `yaml:"hours,omitempty"`    // weekday (lowercase) → "9:00 AM - 5:00 PM" or "closed"
	Services    []ServiceEntry    `yaml:"services,omitempty"`
	Corrections map[string]string `yaml:"corrections,omitempty"` // extra transcription fixes on top of the type defaults
}

// ServiceEntry is one bookable service in the catalog.
type ServiceEntry struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords,omitempty"`
	Price    float64  `yaml:"price,omitempty"`
	Duration int      `yaml:"duration,omitempty"` // minutes
	Priority int      `yaml:"priority,omitempty"` // lower matches first
}

// BookingConfig tunes the availability engine.
type BookingConfig struct {
	Slots              []string `yaml:"slots,omitempty"`         // fixed bookable grid, e.g. "9:00 AM"
	BufferMinutes      int      `yaml:"bufferMinutes,omitempty"` // expansion on each side of the overlap test
	DurationMinutes    int      `yaml:"durationMinutes,omitempty"`
	CacheTTLSeconds    int      `yaml:"cacheTtlSeconds,omitempty"`
	WarmDays           int      `yaml:"warmDays,omitempty"`        // how many days ahead the warmer scans
	WarmCron           string   `yaml:"warmCron,omitempty"`        // cron spec for the warmer
	MaxAdvanceDays     int      `yaml:"maxAdvanceDays,omitempty"`  // first-available search horizon
	AlternativeCount   int      `yaml:"alternativeCount,omitempty"`
}

// ServerConfig controls the webhook HTTP server.
type ServerConfig struct {
	Port    int    `yaml:"port,omitempty"`
	BaseURL string `yaml:"baseUrl,omitempty"` // public URL Twilio posts to
	Workers int    `yaml:"workers,omitempty"` // bounded turn-handling pool
}

// SessionConfig defines session lifetime behavior.
type SessionConfig struct {
	IdleMinutes      int `yaml:"idleMinutes,omitempty"`
	ReapIntervalSecs int `yaml:"reapIntervalSecs,omitempty"`
}

// AIConfig selects and tunes the AI text provider.
type AIConfig struct {
	Provider       string `yaml:"provider,omitempty"` // "gemini" | "openai" | "none"
	APIKey         string `yaml:"apiKey,omitempty"`
	Model          string `yaml:"model,omitempty"`
	TimeoutMS      int    `yaml:"timeoutMs,omitempty"` // per-turn response budget
	MaxOutputChars int    `yaml:"maxOutputChars,omitempty"`
}

// TTSConfig configures speech synthesis.
type TTSConfig struct {
	Provider string `yaml:"provider,omitempty"` // "elevenlabs" | "none"
	APIKey   string `yaml:"apiKey,omitempty"`
	VoiceID  string `yaml:"voiceId,omitempty"`
}

// CalendarConfig configures the Google Calendar adapter.
type CalendarConfig struct {
	Enabled         bool   `yaml:"enabled,omitempty"`
	CalendarID      string `yaml:"calendarId,omitempty"`
	CredentialsFile string `yaml:"credentialsFile,omitempty"`
	TokenFile       string `yaml:"tokenFile,omitempty"`
	OwnerEmail      string `yaml:"ownerEmail,omitempty"`
}

// SMSConfig configures booking confirmations via Twilio's REST API.
type SMSConfig struct {
	Enabled    bool   `yaml:"enabled,omitempty"`
	AccountSID string `yaml:"accountSid,omitempty"`
	AuthToken  string `yaml:"authToken,omitempty"`
	FromNumber string `yaml:"fromNumber,omitempty"`
}

// RedisConfig enables the optional distributed availability cache tier.
type RedisConfig struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	Addr    string `yaml:"addr,omitempty"`
}

// StoreConfig locates the local appointment database.
type StoreConfig struct {
	Path string `yaml:"path,omitempty"` // sqlite file, ":memory:" for tests
}

// BreakerConfig holds circuit breaker thresholds shared by all call sites.
type BreakerConfig struct {
	FailureThreshold    int `yaml:"failureThreshold,omitempty"`
	RecoveryTimeoutSecs int `yaml:"recoveryTimeoutSecs,omitempty"`
	SuccessThreshold    int `yaml:"successThreshold,omitempty"`
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
}
