// Package availability implements conflict detection, slot caching, and
// the atomic check-and-book path that prevents double-booking.
package availability

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oakhurst-labs/frontdesk/internal/breaker"
	"github.com/oakhurst-labs/frontdesk/internal/calendar"
	"github.com/oakhurst-labs/frontdesk/internal/domain"
	"github.com/oakhurst-labs/frontdesk/internal/logging"
	"github.com/oakhurst-labs/frontdesk/internal/metrics"
)

// calendarCallTimeout bounds each network call made while the booking
// lock is held, so the critical section itself stays bounded.
const calendarCallTimeout = 10 * time.Second

// Options configures an Engine.
type Options struct {
	Slots          []string          // fixed bookable grid
	Hours          map[string]string // lowercase weekday → hours or "closed"
	Buffer         time.Duration     // expansion on each side of the overlap test
	Duration       time.Duration     // appointment length
	Location       *time.Location
	MaxAdvanceDays int
}

// Engine answers availability questions and owns the only path allowed
// to write bookings to the calendar.
type Engine struct {
	provider calendar.Provider
	cb       *breaker.Breaker
	cache    *Cache
	met      *metrics.Metrics
	log      *logging.Logger
	opts     Options

	// bookMu serializes the read-check-then-write critical section. No
	// insert may bypass it.
	bookMu sync.Mutex

	now func() time.Time
}

// NewEngine wires an engine around a calendar provider. The breaker
// guards every provider call.
func NewEngine(provider calendar.Provider, cb *breaker.Breaker, cache *Cache, met *metrics.Metrics, opts Options, log *logging.Logger) *Engine {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.MaxAdvanceDays <= 0 {
		opts.MaxAdvanceDays = 14
	}
	return &Engine{
		provider: provider,
		cb:       cb,
		cache:    cache,
		met:      met,
		log:      log.Sub("availability"),
		opts:     opts,
		now:      time.Now,
	}
}

// Check reports whether a slot looks free. It reads through the cache and
// is for informational use only: a positive answer here never authorizes
// a booking. When the calendar backend errors, the informational path
// fails open so the conversation can continue.
func (e *Engine) Check(ctx context.Context, date, timeStr string) (bool, string) {
	key := Key(date, timeStr)
	if avail, ok := e.cache.Get(ctx, key); ok {
		e.met.CacheHits.Inc()
		return avail, ""
	}
	e.met.CacheMisses.Inc()

	avail, desc, err := e.checkAuthoritative(ctx, date, timeStr, "")
	if err != nil {
		e.log.Warn().Err(err).Str("date", date).Str("time", timeStr).
			Msg("availability check failed, assuming open")
		return true, ""
	}
	e.cache.Put(ctx, key, avail)
	return avail, desc
}

// Create books an appointment. It re-runs the availability check against
// the authoritative calendar inside the booking lock, bypassing the
// cache, and inserts only if the slot is still free. This is the sole
// correctness guarantee against double-booking.
//
// A genuine conflict returns *ConflictError. A backend failure returns an
// error wrapping ErrCalendarUnavailable and nothing is inserted: the
// write path fails closed.
func (e *Engine) Create(ctx context.Context, appt *domain.Appointment) (string, error) {
	e.bookMu.Lock()
	defer e.bookMu.Unlock()

	avail, desc, err := e.checkAuthoritative(ctx, appt.Date, appt.Time, "")
	if err != nil {
		return "", fmt.Errorf("pre-insert check: %w", err)
	}
	if !avail {
		e.met.Conflicts.Inc()
		return "", &ConflictError{Date: appt.Date, Time: appt.Time, Description: desc}
	}

	start, end, err := e.slotWindow(appt.Date, appt.Time)
	if err != nil {
		return "", err
	}

	var eventID string
	cerr := e.cb.Do(func() error {
		callCtx, cancel := context.WithTimeout(ctx, calendarCallTimeout)
		defer cancel()
		id, ierr := e.provider.InsertEvent(callCtx, e.buildEvent(appt, start, end))
		if ierr != nil {
			return ierr
		}
		eventID = id
		return nil
	})
	if cerr != nil {
		return "", fmt.Errorf("%w: insert: %v", ErrCalendarUnavailable, cerr)
	}

	e.cache.Put(ctx, Key(appt.Date, appt.Time), false)
	e.met.Bookings.Inc()
	e.log.Info().Str("eventId", eventID).Str("date", appt.Date).Str("time", appt.Time).
		Str("service", appt.Service).Msg("appointment booked")
	return eventID, nil
}

// Update moves an existing booking, re-verifying the target slot inside
// the booking lock. The event itself is excluded from the conflict scan.
func (e *Engine) Update(ctx context.Context, eventID string, appt *domain.Appointment) error {
	e.bookMu.Lock()
	defer e.bookMu.Unlock()

	avail, desc, err := e.checkAuthoritative(ctx, appt.Date, appt.Time, eventID)
	if err != nil {
		return fmt.Errorf("pre-update check: %w", err)
	}
	if !avail {
		e.met.Conflicts.Inc()
		return &ConflictError{Date: appt.Date, Time: appt.Time, Description: desc}
	}

	start, end, err := e.slotWindow(appt.Date, appt.Time)
	if err != nil {
		return err
	}

	cerr := e.cb.Do(func() error {
		callCtx, cancel := context.WithTimeout(ctx, calendarCallTimeout)
		defer cancel()
		return e.provider.UpdateEvent(callCtx, eventID, e.buildEvent(appt, start, end))
	})
	if cerr != nil {
		return fmt.Errorf("%w: update: %v", ErrCalendarUnavailable, cerr)
	}

	e.cache.Put(ctx, Key(appt.Date, appt.Time), false)
	return nil
}

// Delete cancels a booking and releases its cached slot.
func (e *Engine) Delete(ctx context.Context, eventID, date, timeStr string) error {
	cerr := e.cb.Do(func() error {
		callCtx, cancel := context.WithTimeout(ctx, calendarCallTimeout)
		defer cancel()
		return e.provider.DeleteEvent(callCtx, eventID)
	})
	if cerr != nil {
		return fmt.Errorf("%w: delete: %v", ErrCalendarUnavailable, cerr)
	}
	e.cache.Invalidate(ctx, Key(date, timeStr))
	return nil
}

// FindAlternatives returns up to count available slots near preferred,
// expanding outward through the grid, later-before-earlier on equal
// distance.
func (e *Engine) FindAlternatives(ctx context.Context, date, preferred string, count int) []string {
	idx := -1
	for i, slot := range e.opts.Slots {
		if slot == preferred {
			idx = i
			break
		}
	}
	if idx == -1 {
		idx = e.nearestSlotIndex(preferred)
	}
	if idx == -1 || count <= 0 {
		return nil
	}

	var out []string
	for step := 1; step < len(e.opts.Slots) && len(out) < count; step++ {
		if later := idx + step; later < len(e.opts.Slots) {
			if avail, _ := e.Check(ctx, date, e.opts.Slots[later]); avail {
				out = append(out, e.opts.Slots[later])
			}
		}
		if len(out) >= count {
			break
		}
		if earlier := idx - step; earlier >= 0 {
			if avail, _ := e.Check(ctx, date, e.opts.Slots[earlier]); avail {
				out = append(out, e.opts.Slots[earlier])
			}
		}
	}
	return out
}

// FirstAvailable scans forward through open business days for the first
// free slot, skipping slots already past on the current day.
func (e *Engine) FirstAvailable(ctx context.Context) (date, timeStr string, ok bool) {
	now := e.now().In(e.opts.Location)

	for ahead := 0; ahead < e.opts.MaxAdvanceDays; ahead++ {
		day := now.AddDate(0, 0, ahead)
		if e.closedOn(day) {
			continue
		}
		dateStr := day.Format(domain.DateFormat)

		for _, slot := range e.opts.Slots {
			if ahead == 0 {
				mins, valid := minutesOf(slot)
				if !valid || mins <= now.Hour()*60+now.Minute() {
					continue
				}
			}
			if avail, _ := e.Check(ctx, dateStr, slot); avail {
				return dateStr, slot, true
			}
		}
	}
	return "", "", false
}

// checkAuthoritative queries the calendar directly (never the cache) and
// runs the symmetric 4-way interval overlap test with both the requested
// slot and existing events expanded by the buffer.
func (e *Engine) checkAuthoritative(ctx context.Context, date, timeStr, excludeEventID string) (bool, string, error) {
	start, end, err := e.slotWindow(date, timeStr)
	if err != nil {
		return false, "", err
	}

	reqStart := start.Add(-e.opts.Buffer)
	reqEnd := end.Add(e.opts.Buffer)

	var events []calendar.Event
	cerr := e.cb.Do(func() error {
		callCtx, cancel := context.WithTimeout(ctx, calendarCallTimeout)
		defer cancel()
		// Widen the query so events whose buffered window reaches into
		// ours are not missed.
		evs, lerr := e.provider.ListEvents(callCtx, reqStart.Add(-e.opts.Buffer), reqEnd.Add(e.opts.Buffer))
		if lerr != nil {
			return lerr
		}
		events = evs
		return nil
	})
	if cerr != nil {
		return false, "", fmt.Errorf("%w: list: %v", ErrCalendarUnavailable, cerr)
	}

	for _, ev := range events {
		if excludeEventID != "" && ev.ID == excludeEventID {
			continue
		}
		evStart := ev.Start.Add(-e.opts.Buffer)
		evEnd := ev.End.Add(e.opts.Buffer)

		overlap := (reqStart.Compare(evStart) >= 0 && reqStart.Before(evEnd)) || // new start inside existing
			(reqEnd.After(evStart) && reqEnd.Compare(evEnd) <= 0) || // new end inside existing
			(reqStart.Compare(evStart) <= 0 && reqEnd.Compare(evEnd) >= 0) || // new contains existing
			(evStart.Compare(reqStart) <= 0 && evEnd.Compare(reqEnd) >= 0) // existing contains new

		if overlap {
			desc := fmt.Sprintf("already booked from %s to %s",
				ev.Start.In(e.opts.Location).Format(domain.TimeFormat),
				ev.End.In(e.opts.Location).Format(domain.TimeFormat))
			return false, desc, nil
		}
	}
	return true, "", nil
}

// slotWindow resolves a spoken (date, time) pair into the concrete
// appointment interval, rolling to next year when the date has already
// passed this year.
func (e *Engine) slotWindow(date, timeStr string) (time.Time, time.Time, error) {
	d, err := time.Parse(domain.DateFormat, date)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("bad date %q: %w", date, err)
	}
	t, err := time.Parse(domain.TimeFormat, strings.ToUpper(timeStr))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("bad time %q: %w", timeStr, err)
	}

	now := e.now().In(e.opts.Location)
	start := time.Date(now.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), 0, 0, e.opts.Location)

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, e.opts.Location)
	if start.Before(today) {
		start = start.AddDate(1, 0, 0)
	}
	return start, start.Add(e.opts.Duration), nil
}

func (e *Engine) buildEvent(appt *domain.Appointment, start, end time.Time) calendar.Event {
	return calendar.Event{
		Summary: fmt.Sprintf("%s - %s", appt.Service, appt.CustomerName),
		Description: fmt.Sprintf("Customer: %s\nPhone: %s\nService: %s\nBooked via frontdesk",
			appt.CustomerName, appt.Phone, appt.Service),
		Start: start,
		End:   end,
	}
}

func (e *Engine) closedOn(day time.Time) bool {
	if len(e.opts.Hours) == 0 {
		return false
	}
	hours, ok := e.opts.Hours[strings.ToLower(day.Weekday().String())]
	if !ok {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(hours), "closed")
}

func (e *Engine) nearestSlotIndex(timeStr string) int {
	want, ok := minutesOf(timeStr)
	if !ok {
		return -1
	}
	best, bestDiff := -1, 1<<30
	for i, slot := range e.opts.Slots {
		have, ok := minutesOf(slot)
		if !ok {
			continue
		}
		diff := want - have
		if diff < 0 {
			diff = -diff
		}
		if diff < bestDiff {
			bestDiff = diff
			best = i
		}
	}
	return best
}

// minutesOf parses "H:MM AM/PM" into minutes since midnight.
func minutesOf(timeStr string) (int, bool) {
	t, err := time.Parse(domain.TimeFormat, strings.ToUpper(timeStr))
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}
