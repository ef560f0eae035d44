package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/oakhurst-labs/frontdesk/internal/domain"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	if cfg.Business.Name == "" {
		issues = append(issues, ValidationIssue{
			Path:    "business.name",
			Message: "business name is required",
		})
	}

	validTypes := []string{"dental", "medical", "salon", "restaurant", "general"}
	if cfg.Business.Type != "" && !slices.Contains(validTypes, cfg.Business.Type) {
		issues = append(issues, ValidationIssue{
			Path:    "business.type",
			Message: fmt.Sprintf("must be one of %v, got %q", validTypes, cfg.Business.Type),
		})
	}

	if _, err := time.LoadLocation(cfg.Business.Timezone); err != nil {
		issues = append(issues, ValidationIssue{
			Path:    "business.timezone",
			Message: fmt.Sprintf("unknown timezone %q", cfg.Business.Timezone),
		})
	}

	if len(cfg.Business.Services) == 0 {
		issues = append(issues, ValidationIssue{
			Path:    "business.services",
			Message: "at least one service is required",
		})
	}
	for i, svc := range cfg.Business.Services {
		if svc.Name == "" {
			issues = append(issues, ValidationIssue{
				Path:    fmt.Sprintf("business.services[%d].name", i),
				Message: "service name is required",
			})
		}
		if svc.Duration < 0 {
			issues = append(issues, ValidationIssue{
				Path:    fmt.Sprintf("business.services[%d].duration", i),
				Message: "duration must not be negative",
			})
		}
	}

	for i, slot := range cfg.Booking.Slots {
		if _, err := time.Parse(domain.TimeFormat, slot); err != nil {
			issues = append(issues, ValidationIssue{
				Path:    fmt.Sprintf("booking.slots[%d]", i),
				Message: fmt.Sprintf("slot %q is not a valid time like \"9:00 AM\"", slot),
			})
		}
	}

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		issues = append(issues, ValidationIssue{
			Path:    "server.port",
			Message: fmt.Sprintf("port must be 0-65535, got %d", cfg.Server.Port),
		})
	}

	validAI := []string{"gemini", "openai", "none"}
	if cfg.AI.Provider != "" && !slices.Contains(validAI, cfg.AI.Provider) {
		issues = append(issues, ValidationIssue{
			Path:    "ai.provider",
			Message: fmt.Sprintf("must be one of %v, got %q", validAI, cfg.AI.Provider),
		})
	}
	if cfg.AI.Provider != "none" && cfg.AI.Provider != "" && cfg.AI.APIKey == "" {
		issues = append(issues, ValidationIssue{
			Path:    "ai.apiKey",
			Message: fmt.Sprintf("api key is required for provider %q", cfg.AI.Provider),
		})
	}

	if cfg.Calendar.Enabled && cfg.Calendar.CredentialsFile == "" {
		issues = append(issues, ValidationIssue{
			Path:    "calendar.credentialsFile",
			Message: "credentials file is required when calendar is enabled",
		})
	}

	if cfg.SMS.Enabled {
		if cfg.SMS.AccountSID == "" || cfg.SMS.AuthToken == "" || cfg.SMS.FromNumber == "" {
			issues = append(issues, ValidationIssue{
				Path:    "sms",
				Message: "accountSid, authToken and fromNumber are required when sms is enabled",
			})
		}
	}

	if cfg.Redis.Enabled && cfg.Redis.Addr == "" {
		issues = append(issues, ValidationIssue{
			Path:    "redis.addr",
			Message: "addr is required when redis is enabled",
		})
	}

	return issues
}

// ServiceByName returns the catalog entry for name, or false.
func (b BusinessConfig) ServiceByName(name string) (ServiceEntry, bool) {
	for _, svc := range b.Services {
		if svc.Name == name {
			return svc, true
		}
	}
	return ServiceEntry{}, false
}

// Location resolves the configured timezone, falling back to UTC.
func (b BusinessConfig) Location() *time.Location {
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
