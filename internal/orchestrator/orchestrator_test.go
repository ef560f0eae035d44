package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakhurst-labs/frontdesk/internal/ai"
	"github.com/oakhurst-labs/frontdesk/internal/availability"
	"github.com/oakhurst-labs/frontdesk/internal/breaker"
	"github.com/oakhurst-labs/frontdesk/internal/calendar"
	"github.com/oakhurst-labs/frontdesk/internal/config"
	"github.com/oakhurst-labs/frontdesk/internal/domain"
	"github.com/oakhurst-labs/frontdesk/internal/extract"
	"github.com/oakhurst-labs/frontdesk/internal/logging"
	"github.com/oakhurst-labs/frontdesk/internal/metrics"
	"github.com/oakhurst-labs/frontdesk/internal/session"
	"github.com/oakhurst-labs/frontdesk/internal/store"
)

// fakeProvider is an in-memory calendar with injectable failures.
type fakeProvider struct {
	mu     sync.Mutex
	events map[string]calendar.Event
	nextID int
	fail   error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{events: make(map[string]calendar.Event)}
}

func (f *fakeProvider) ListEvents(_ context.Context, from, to time.Time) ([]calendar.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	var out []calendar.Event
	for _, ev := range f.events {
		if ev.Start.Before(to) && ev.End.After(from) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeProvider) InsertEvent(_ context.Context, ev calendar.Event) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return "", f.fail
	}
	f.nextID++
	id := fmt.Sprintf("ev-%d", f.nextID)
	ev.ID = id
	f.events[id] = ev
	return id, nil
}

func (f *fakeProvider) UpdateEvent(_ context.Context, id string, ev calendar.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev.ID = id
	f.events[id] = ev
	return nil
}

func (f *fakeProvider) DeleteEvent(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.events, id)
	return nil
}

var testSlots = []string{
	"8:00 AM", "8:30 AM", "9:00 AM", "9:30 AM", "10:00 AM", "10:30 AM",
	"11:00 AM", "11:30 AM", "12:00 PM", "12:30 PM", "1:00 PM", "1:30 PM",
	"2:00 PM", "2:30 PM", "3:00 PM", "3:30 PM", "4:00 PM", "4:30 PM", "5:00 PM",
}

func testBusiness() config.BusinessConfig {
	return config.BusinessConfig{
		Name: "Bright Smile Dental",
		Type: "dental",
		Services: []config.ServiceEntry{
			{Name: "Cleaning", Keywords: []string{"cleaning", "clean"}, Price: 120, Priority: 1},
			{Name: "Filling", Keywords: []string{"filling", "cavity"}, Priority: 2},
		},
	}
}

// countingSynth is a Synthesizer double that tracks backend calls.
type countingSynth struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingSynth) Synthesize(context.Context, string) (string, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	if c.err != nil {
		return "", c.err
	}
	return "/audio/clip.mp3", nil
}

func (c *countingSynth) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type fixture struct {
	orch  *Orchestrator
	prov  *fakeProvider
	appts *store.AppointmentStore
	profs *store.ProfileStore
}

func newFixture(t *testing.T, aiClient ai.Client, mods ...func(*Deps)) *fixture {
	t.Helper()
	log := logging.New(io.Discard, "silent")
	met := metrics.New(prometheus.NewRegistry())
	biz := testBusiness()

	prov := newFakeProvider()
	engine := availability.NewEngine(prov,
		breaker.New("calendar", breaker.Config{}, log),
		availability.NewCache(5*time.Minute, nil, log),
		met,
		availability.Options{
			Slots:    testSlots,
			Buffer:   15 * time.Minute,
			Duration: 30 * time.Minute,
			Location: time.UTC,
		}, log)

	db, err := store.Open(":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	appts := store.NewAppointmentStore(db)
	profs := store.NewProfileStore(db)

	sessions := session.NewStore(30*time.Minute, met, log)

	deps := Deps{
		Business:  biz,
		Extractor: extract.New(biz, testSlots),
		Engine:    engine,
		Sessions:  sessions,
		Appts:     appts,
		Profiles:  profs,
		AIClient:  aiClient,
		AIBreaker: breaker.New("ai", breaker.Config{FailureThreshold: 3}, log),
		AITimeout: 50 * time.Millisecond,
		Metrics:   met,
		Log:       log,
	}
	for _, mod := range mods {
		mod(&deps)
	}
	return &fixture{orch: New(deps), prov: prov, appts: appts, profs: profs}
}

func tomorrow() string {
	return time.Now().UTC().AddDate(0, 0, 1).Format(domain.DateFormat)
}

func TestOneTurnBooking(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	res := fx.orch.HandleCallStarted(ctx, domain.CallStarted{CallID: "CA1", CallerNumber: "+15551234567"})
	assert.Contains(t, res.Text, "Bright Smile Dental")
	assert.Equal(t, domain.DirectiveContinue, res.Directive)

	res = fx.orch.HandleTurn(ctx, domain.SpeechTurn{
		CallID: "CA1",
		Text:   "My name is Jane, I need a cleaning tomorrow at 2pm",
	})
	assert.Equal(t, domain.DirectiveEnd, res.Directive)
	assert.Contains(t, res.Text, "Jane")
	assert.Contains(t, res.Text, "cleaning")
	assert.Contains(t, res.Text, tomorrow())
	assert.Contains(t, res.Text, "2:00 PM")

	booked, err := fx.appts.FindByPhone("+15551234567")
	require.NoError(t, err)
	require.Len(t, booked, 1)
	assert.Equal(t, domain.StatusConfirmed, booked[0].Status)
	assert.NotEmpty(t, booked[0].EventID)
}

func TestFieldGatheringAcrossTurns(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	fx.orch.HandleCallStarted(ctx, domain.CallStarted{CallID: "CA1"})

	res := fx.orch.HandleTurn(ctx, domain.SpeechTurn{CallID: "CA1", Text: "I'd like to book a cleaning"})
	assert.Equal(t, domain.DirectiveContinue, res.Directive)
	assert.Contains(t, res.Text, "name")

	res = fx.orch.HandleTurn(ctx, domain.SpeechTurn{CallID: "CA1", Text: "my name is Jane"})
	assert.Contains(t, res.Text, "day")

	res = fx.orch.HandleTurn(ctx, domain.SpeechTurn{CallID: "CA1", Text: "tomorrow"})
	assert.Contains(t, res.Text, "time")

	res = fx.orch.HandleTurn(ctx, domain.SpeechTurn{CallID: "CA1", Text: "10am"})
	assert.Equal(t, domain.DirectiveEnd, res.Directive)
	assert.Contains(t, res.Text, "booked")
}

func TestConcurrentBookingOneWinner(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	fx.orch.HandleCallStarted(ctx, domain.CallStarted{CallID: "CA1", CallerNumber: "+15551111111"})
	fx.orch.HandleCallStarted(ctx, domain.CallStarted{CallID: "CA2", CallerNumber: "+15552222222"})

	utterance := "My name is %s, I need a cleaning on friday at 10am"
	results := make([]domain.TurnResult, 2)
	var wg sync.WaitGroup
	for i, call := range []struct{ id, name string }{{"CA1", "Alice"}, {"CA2", "Bob"}} {
		wg.Add(1)
		go func(i int, id, name string) {
			defer wg.Done()
			results[i] = fx.orch.HandleTurn(ctx, domain.SpeechTurn{
				CallID: id,
				Text:   fmt.Sprintf(utterance, name),
			})
		}(i, call.id, call.name)
	}
	wg.Wait()

	var wins, conflicts int
	for _, res := range results {
		if res.Directive == domain.DirectiveEnd {
			wins++
			assert.Contains(t, res.Text, "booked")
		} else {
			conflicts++
			assert.Contains(t, res.Text, "already taken")
			// At least one alternative slot is offered.
			assert.Contains(t, res.Text, "AM")
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, conflicts)
}

func TestConflictClearsTimeAndOffersAlternatives(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	fx.orch.HandleCallStarted(ctx, domain.CallStarted{CallID: "CA1", CallerNumber: "+15551111111"})
	first := fx.orch.HandleTurn(ctx, domain.SpeechTurn{
		CallID: "CA1", Text: "My name is Alice, I need a cleaning tomorrow at 2pm",
	})
	require.Equal(t, domain.DirectiveEnd, first.Directive)

	fx.orch.HandleCallStarted(ctx, domain.CallStarted{CallID: "CA2", CallerNumber: "+15552222222"})
	res := fx.orch.HandleTurn(ctx, domain.SpeechTurn{
		CallID: "CA2", Text: "My name is Bob, I need a cleaning tomorrow at 2pm",
	})
	assert.Equal(t, domain.DirectiveContinue, res.Directive)
	assert.Contains(t, res.Text, "already taken")

	// The caller picks an offered time and the booking completes.
	res = fx.orch.HandleTurn(ctx, domain.SpeechTurn{CallID: "CA2", Text: "3pm works"})
	assert.Equal(t, domain.DirectiveEnd, res.Directive)
	assert.Contains(t, res.Text, "booked")
}

func TestAITimeoutsStillAnswerWithinBudget(t *testing.T) {
	slow := &ai.MockClient{
		CompleteFunc: func(ctx context.Context, req ai.Request) (*ai.Response, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	fx := newFixture(t, slow)
	ctx := context.Background()

	fx.orch.HandleCallStarted(ctx, domain.CallStarted{CallID: "CA1"})

	// Five consecutive turns with a hung AI provider: the breaker opens
	// along the way, and every turn still gets a template answer fast.
	utterances := []string{"hello there", "I need a cleaning", "um", "hmm let me think", "a cleaning please"}
	for i, text := range utterances {
		start := time.Now()
		res := fx.orch.HandleTurn(ctx, domain.SpeechTurn{CallID: "CA1", Text: text})
		elapsed := time.Since(start)

		assert.NotEmpty(t, res.Text, "turn %d", i)
		assert.Less(t, elapsed, 500*time.Millisecond, "turn %d must answer within budget", i)
	}
}

func TestAIResponseUsedWhenFast(t *testing.T) {
	fast := &ai.MockClient{
		CompleteFunc: func(ctx context.Context, req ai.Request) (*ai.Response, error) {
			return &ai.Response{Content: "Certainly! What's your name?"}, nil
		},
	}
	fx := newFixture(t, fast)
	ctx := context.Background()

	fx.orch.HandleCallStarted(ctx, domain.CallStarted{CallID: "CA1"})
	res := fx.orch.HandleTurn(ctx, domain.SpeechTurn{CallID: "CA1", Text: "I need a cleaning"})
	assert.Equal(t, "Certainly! What's your name?", res.Text)
}

func TestCalendarDownRecordsPendingManual(t *testing.T) {
	fx := newFixture(t, nil)
	fx.prov.fail = errors.New("connection refused")
	ctx := context.Background()

	fx.orch.HandleCallStarted(ctx, domain.CallStarted{CallID: "CA1", CallerNumber: "+15551234567"})
	res := fx.orch.HandleTurn(ctx, domain.SpeechTurn{
		CallID: "CA1", Text: "My name is Jane, I need a cleaning tomorrow at 2pm",
	})
	assert.Equal(t, domain.DirectiveEnd, res.Directive)
	assert.Contains(t, res.Text, "confirm")

	booked, err := fx.appts.FindByPhone("+15551234567")
	require.NoError(t, err)
	require.Len(t, booked, 1)
	assert.Equal(t, domain.StatusPendingManual, booked[0].Status)
	assert.Empty(t, booked[0].EventID, "nothing was inserted blind")
}

func TestCancelFlow(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	appt := &domain.Appointment{
		CustomerName: "Jane Smith",
		Phone:        "+15551234567",
		Service:      "Cleaning",
		Date:         tomorrow(),
		Time:         "2:00 PM",
		Status:       domain.StatusConfirmed,
		EventID:      "ev-1",
	}
	require.NoError(t, fx.appts.Append(appt))

	fx.orch.HandleCallStarted(ctx, domain.CallStarted{CallID: "CA1", CallerNumber: "+15551234567"})

	res := fx.orch.HandleTurn(ctx, domain.SpeechTurn{CallID: "CA1", Text: "I need to cancel my appointment"})
	assert.Equal(t, domain.DirectiveContinue, res.Directive)
	assert.Contains(t, res.Text, "cancel")

	res = fx.orch.HandleTurn(ctx, domain.SpeechTurn{CallID: "CA1", Text: "yes please"})
	assert.Equal(t, domain.DirectiveEnd, res.Directive)
	assert.Contains(t, res.Text, "cancelled")

	got := fx.appts.Get(appt.ID)
	assert.Equal(t, domain.StatusCancelled, got.Status)
}

func TestRescheduleFlow(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	appt := &domain.Appointment{
		CustomerName: "Jane Smith",
		Phone:        "+15551234567",
		Service:      "Cleaning",
		Date:         tomorrow(),
		Time:         "2:00 PM",
		Status:       domain.StatusConfirmed,
	}
	require.NoError(t, fx.appts.Append(appt))

	fx.orch.HandleCallStarted(ctx, domain.CallStarted{CallID: "CA1", CallerNumber: "+15551234567"})

	res := fx.orch.HandleTurn(ctx, domain.SpeechTurn{CallID: "CA1", Text: "I'd like to reschedule"})
	assert.Contains(t, res.Text, "What day")

	res = fx.orch.HandleTurn(ctx, domain.SpeechTurn{CallID: "CA1", Text: "day after tomorrow at 10am"})
	assert.Equal(t, domain.DirectiveEnd, res.Directive)
	assert.Contains(t, res.Text, "10:00 AM")

	got := fx.appts.Get(appt.ID)
	assert.Equal(t, "10:00 AM", got.Time)
}

func TestChaosStrikesEndCall(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	fx.orch.HandleCallStarted(ctx, domain.CallStarted{CallID: "CA1"})

	var res domain.TurnResult
	for _, text := range []string{"blargh flibber", "wuzzle", "brrrt"} {
		res = fx.orch.HandleTurn(ctx, domain.SpeechTurn{CallID: "CA1", Text: text})
	}
	assert.Equal(t, domain.DirectiveEnd, res.Directive)
	assert.Contains(t, res.Text, "call")
}

func TestUnknownCallIsImplicitNewCall(t *testing.T) {
	fx := newFixture(t, nil)

	res := fx.orch.HandleTurn(context.Background(), domain.SpeechTurn{
		CallID: "CA-never-started", Text: "I need a cleaning",
	})
	assert.Equal(t, domain.DirectiveContinue, res.Directive)
	assert.NotEmpty(t, res.Text)
}

func TestFirstAvailableRequest(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	fx.orch.HandleCallStarted(ctx, domain.CallStarted{CallID: "CA1", CallerNumber: "+15551234567"})
	res := fx.orch.HandleTurn(ctx, domain.SpeechTurn{
		CallID: "CA1", Text: "My name is Jane, I need a cleaning as soon as possible",
	})
	assert.Equal(t, domain.DirectiveEnd, res.Directive)
	assert.Contains(t, res.Text, "booked")
}

func TestReturningCallerGreetedByName(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	// First call books, writing the name onto the profile.
	fx.orch.HandleCallStarted(ctx, domain.CallStarted{CallID: "CA1", CallerNumber: "+15551234567"})
	fx.orch.HandleTurn(ctx, domain.SpeechTurn{
		CallID: "CA1", Text: "My name is Jane, I need a cleaning tomorrow at 2pm",
	})

	res := fx.orch.HandleCallStarted(ctx, domain.CallStarted{CallID: "CA2", CallerNumber: "+15551234567"})
	assert.Contains(t, res.Text, "Jane")
}

func TestSynthesizedAudioAttached(t *testing.T) {
	synth := &countingSynth{}
	fx := newFixture(t, nil, func(d *Deps) { d.Synth = synth })

	res := fx.orch.HandleCallStarted(context.Background(), domain.CallStarted{CallID: "CA1"})
	assert.Equal(t, "/audio/clip.mp3", res.AudioURL)
	assert.Equal(t, 1, synth.callCount())
}

func TestSynthesisSkippedAfterBreakerOpens(t *testing.T) {
	synth := &countingSynth{err: errors.New("voice backend down")}
	fx := newFixture(t, nil, func(d *Deps) {
		d.Synth = synth
		d.TTSBreaker = breaker.New("tts",
			breaker.Config{FailureThreshold: 2, RecoveryTimeout: time.Minute},
			logging.New(io.Discard, "silent"))
	})
	ctx := context.Background()

	res := fx.orch.HandleCallStarted(ctx, domain.CallStarted{CallID: "CA1", CallerNumber: "+15551234567"})
	assert.Empty(t, res.AudioURL)

	for i := 0; i < 5; i++ {
		res = fx.orch.HandleTurn(ctx, domain.SpeechTurn{CallID: "CA1", Text: "hmm"})
		assert.Empty(t, res.AudioURL)
		assert.NotEmpty(t, res.Text)
	}

	// Two failures opened the breaker; every later turn skipped the backend.
	assert.Equal(t, 2, synth.callCount())
}

func TestBookingRecordsQuotedPrice(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	fx.orch.HandleCallStarted(ctx, domain.CallStarted{CallID: "CA1", CallerNumber: "+15551234567"})
	fx.orch.HandleTurn(ctx, domain.SpeechTurn{
		CallID: "CA1", Text: "My name is Jane, I need a cleaning tomorrow at 2pm",
	})

	booked, err := fx.appts.FindByPhone("+15551234567")
	require.NoError(t, err)
	require.Len(t, booked, 1)
	assert.Equal(t, "quoted $120", booked[0].Notes)
}
