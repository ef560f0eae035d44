package cli

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/oakhurst-labs/frontdesk/internal/ai"
	"github.com/oakhurst-labs/frontdesk/internal/availability"
	"github.com/oakhurst-labs/frontdesk/internal/breaker"
	"github.com/oakhurst-labs/frontdesk/internal/calendar"
	"github.com/oakhurst-labs/frontdesk/internal/config"
	"github.com/oakhurst-labs/frontdesk/internal/extract"
	"github.com/oakhurst-labs/frontdesk/internal/httpapi"
	"github.com/oakhurst-labs/frontdesk/internal/logging"
	"github.com/oakhurst-labs/frontdesk/internal/metrics"
	"github.com/oakhurst-labs/frontdesk/internal/notify"
	"github.com/oakhurst-labs/frontdesk/internal/orchestrator"
	"github.com/oakhurst-labs/frontdesk/internal/session"
	"github.com/oakhurst-labs/frontdesk/internal/store"
	"github.com/oakhurst-labs/frontdesk/internal/tts"
)

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the receptionist webhook server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Server.Port = port
			}
			if cfg.Logging.Level != "" && logLevel == "" {
				log = logging.New(nil, cfg.Logging.Level)
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			reg := prometheus.NewRegistry()
			met := metrics.New(reg)

			breakerCfg := breaker.Config{
				FailureThreshold: cfg.Breakers.FailureThreshold,
				RecoveryTimeout:  time.Duration(cfg.Breakers.RecoveryTimeoutSecs) * time.Second,
				SuccessThreshold: cfg.Breakers.SuccessThreshold,
			}
			// Every breaker reports state transitions to the gauge.
			newBreaker := func(name string) *breaker.Breaker {
				b := breaker.New(name, breakerCfg, log)
				b.OnStateChange(met.ObserveBreaker)
				met.ObserveBreaker(b.Stats())
				return b
			}

			// Calendar backend
			var provider calendar.Provider = calendar.Noop{}
			if cfg.Calendar.Enabled {
				gp, err := calendar.NewGoogle(ctx, cfg.Calendar, cfg.Business.Timezone, log)
				if err != nil {
					return fmt.Errorf("initializing calendar: %w", err)
				}
				provider = gp
				log.Info().Str("calendarId", cfg.Calendar.CalendarID).Msg("google calendar enabled")
			} else {
				log.Warn().Msg("no calendar configured, all slots report available")
			}

			// Availability cache, optionally redis-backed
			var rdb *redis.Client
			if cfg.Redis.Enabled {
				rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
				log.Info().Str("addr", cfg.Redis.Addr).Msg("redis cache tier enabled")
			}
			cache := availability.NewCache(
				time.Duration(cfg.Booking.CacheTTLSeconds)*time.Second, rdb, log)

			engine := availability.NewEngine(provider,
				newBreaker("calendar"),
				cache, met,
				availability.Options{
					Slots:          cfg.Booking.Slots,
					Hours:          cfg.Business.Hours,
					Buffer:         time.Duration(cfg.Booking.BufferMinutes) * time.Minute,
					Duration:       time.Duration(cfg.Booking.DurationMinutes) * time.Minute,
					Location:       cfg.Business.Location(),
					MaxAdvanceDays: cfg.Booking.MaxAdvanceDays,
				}, log)

			warmer := availability.NewWarmer(engine, cfg.Booking.WarmDays, cfg.Booking.WarmCron, log)
			if err := warmer.Start(ctx); err != nil {
				return fmt.Errorf("starting cache warmer: %w", err)
			}
			defer warmer.Stop()

			// Local book of record
			db, err := store.Open(cfg.Store.Path, log)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close()

			// Sessions with idle reaping
			sessions := session.NewStore(
				time.Duration(cfg.Session.IdleMinutes)*time.Minute, met, log)
			sessions.StartReaper(time.Duration(cfg.Session.ReapIntervalSecs) * time.Second)
			defer sessions.Close()

			// AI provider (optional)
			aiClient, err := ai.NewFromConfig(cfg.AI)
			if err != nil {
				return err
			}
			if aiClient != nil {
				log.Info().Str("provider", aiClient.Name()).Msg("ai provider enabled")
			} else {
				log.Info().Msg("no ai provider, template responses only")
			}

			// Speech synthesis (optional)
			var synth tts.Synthesizer = tts.Noop{}
			audioDir := ""
			if cfg.TTS.Provider == "elevenlabs" {
				audioDir = filepath.Join(filepath.Dir(cfg.Store.Path), "audio")
				el, err := tts.NewElevenLabs(cfg.TTS.APIKey, cfg.TTS.VoiceID, audioDir, log)
				if err != nil {
					return fmt.Errorf("initializing tts: %w", err)
				}
				synth = el
			}

			// SMS confirmations (optional)
			var sender notify.Sender = notify.Noop{}
			if cfg.SMS.Enabled {
				sender = notify.NewTwilioSMS(cfg.SMS, log)
			}

			orch := orchestrator.New(orchestrator.Deps{
				Business:   cfg.Business,
				Booking:    cfg.Booking,
				Extractor:  extract.New(cfg.Business, cfg.Booking.Slots),
				Engine:     engine,
				Sessions:   sessions,
				Appts:      store.NewAppointmentStore(db),
				Profiles:   store.NewProfileStore(db),
				AIClient:   aiClient,
				AIBreaker:  newBreaker("ai"),
				AITimeout:  time.Duration(cfg.AI.TimeoutMS) * time.Millisecond,
				Synth:      synth,
				TTSBreaker: newBreaker("tts"),
				Sender:     sender,
				Metrics:    met,
				Log:        log,
			})

			srv := httpapi.New(cfg.Server, orch, log, httpapi.Options{
				MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
				AudioDir:       audioDir,
			})

			log.Info().Str("business", cfg.Business.Name).Int("port", cfg.Server.Port).
				Msg("frontdesk starting")
			return srv.Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override the configured listen port")
	return cmd
}
