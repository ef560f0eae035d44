package availability

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/oakhurst-labs/frontdesk/internal/domain"
	"github.com/oakhurst-labs/frontdesk/internal/logging"
)

// Warmer periodically walks the slot grid for the next few days and
// refreshes the availability cache, so live calls mostly hit warm
// entries instead of paying a calendar round trip.
type Warmer struct {
	engine *Engine
	days   int
	spec   string
	log    *logging.Logger
	cron   *cron.Cron
}

// NewWarmer builds a warmer covering the next days of the schedule,
// refreshed per the cron spec (e.g. "@every 5m").
func NewWarmer(engine *Engine, days int, spec string, log *logging.Logger) *Warmer {
	if days <= 0 {
		days = 7
	}
	return &Warmer{
		engine: engine,
		days:   days,
		spec:   spec,
		log:    log.Sub("warmer"),
	}
}

// Start runs one immediate warm pass and schedules recurring ones. It
// returns after the first pass completes.
func (w *Warmer) Start(ctx context.Context) error {
	w.warm(ctx)

	c := cron.New()
	_, err := c.AddFunc(w.spec, func() { w.warm(context.Background()) })
	if err != nil {
		return err
	}
	c.Start()
	w.cron = c
	return nil
}

// Stop halts the recurring passes and waits for any in-flight one.
func (w *Warmer) Stop() {
	if w.cron != nil {
		<-w.cron.Stop().Done()
	}
}

func (w *Warmer) warm(ctx context.Context) {
	started := w.engine.now().In(w.engine.opts.Location)
	var checked, open int

	for ahead := 0; ahead < w.days; ahead++ {
		day := started.AddDate(0, 0, ahead)
		if w.engine.closedOn(day) {
			continue
		}
		dateStr := day.Format(domain.DateFormat)

		// One buffered list per day would be cheaper, but Check keeps the
		// cache write path in one place. Misses populate it.
		for _, slot := range w.engine.opts.Slots {
			if ctx.Err() != nil {
				return
			}
			avail, _ := w.engine.Check(ctx, dateStr, slot)
			checked++
			if avail {
				open++
			}
		}
	}

	w.log.Debug().Int("checked", checked).Int("open", open).Int("days", w.days).
		Msg("cache warm pass complete")
}
