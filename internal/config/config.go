package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// DefaultSlots is the standard bookable grid: 30-minute slots from
// 8:00 AM through 5:00 PM.
var DefaultSlots = []string{
	"8:00 AM", "8:30 AM", "9:00 AM", "9:30 AM", "10:00 AM", "10:30 AM",
	"11:00 AM", "11:30 AM", "12:00 PM", "12:30 PM", "1:00 PM", "1:30 PM",
	"2:00 PM", "2:30 PM", "3:00 PM", "3:30 PM", "4:00 PM", "4:30 PM", "5:00 PM",
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Business: BusinessConfig{
			Type:     "general",
			Timezone: "America/New_York",
		},
		Booking: BookingConfig{
			Slots:            append([]string(nil), DefaultSlots...),
			BufferMinutes:    15,
			DurationMinutes:  60,
			CacheTTLSeconds:  300,
			WarmDays:         7,
			WarmCron:         "@every 5m",
			MaxAdvanceDays:   14,
			AlternativeCount: 3,
		},
		Server: ServerConfig{
			Port:    5000,
			Workers: 10,
		},
		Session: SessionConfig{
			IdleMinutes:      30,
			ReapIntervalSecs: 60,
		},
		AI: AIConfig{
			Provider:       "none",
			TimeoutMS:      500,
			MaxOutputChars: 400,
		},
		TTS: TTSConfig{
			Provider: "none",
		},
		Breakers: BreakerConfig{
			FailureThreshold:    5,
			RecoveryTimeoutSecs: 60,
			SuccessThreshold:    2,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
