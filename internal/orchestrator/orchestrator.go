// Package orchestrator coordinates one conversation turn: extraction,
// the booking path, and bounded-time response generation.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oakhurst-labs/frontdesk/internal/ai"
	"github.com/oakhurst-labs/frontdesk/internal/availability"
	"github.com/oakhurst-labs/frontdesk/internal/breaker"
	"github.com/oakhurst-labs/frontdesk/internal/config"
	"github.com/oakhurst-labs/frontdesk/internal/domain"
	"github.com/oakhurst-labs/frontdesk/internal/extract"
	"github.com/oakhurst-labs/frontdesk/internal/logging"
	"github.com/oakhurst-labs/frontdesk/internal/metrics"
	"github.com/oakhurst-labs/frontdesk/internal/notify"
	"github.com/oakhurst-labs/frontdesk/internal/session"
	"github.com/oakhurst-labs/frontdesk/internal/store"
	"github.com/oakhurst-labs/frontdesk/internal/tts"
)

// Session scratch keys used by the modification flow.
const (
	fieldTargetAppt    = "_target_appt"
	fieldPendingAction = "_pending_action"

	actionCancel = "cancel"
)

// maxChaosStrikes ends a call after this many consecutive turns with no
// conversational progress.
const maxChaosStrikes = 3

// Orchestrator is the top-level per-turn coordinator.
type Orchestrator struct {
	business  config.BusinessConfig
	extractor *extract.Extractor
	engine    *availability.Engine
	sessions  *session.Store
	appts     *store.AppointmentStore
	profiles  *store.ProfileStore
	templates *Templates

	aiClient  ai.Client // nil disables the AI path
	aiBreaker *breaker.Breaker
	aiTimeout time.Duration

	synth      tts.Synthesizer
	ttsBreaker *breaker.Breaker
	sender     notify.Sender

	alternativeCount int

	met *metrics.Metrics
	log *logging.Logger
}

// Deps carries the orchestrator's collaborators.
type Deps struct {
	Business   config.BusinessConfig
	Booking    config.BookingConfig
	Extractor  *extract.Extractor
	Engine     *availability.Engine
	Sessions   *session.Store
	Appts      *store.AppointmentStore
	Profiles   *store.ProfileStore
	AIClient   ai.Client
	AIBreaker  *breaker.Breaker
	AITimeout  time.Duration
	Synth      tts.Synthesizer
	TTSBreaker *breaker.Breaker
	Sender     notify.Sender
	Metrics    *metrics.Metrics
	Log        *logging.Logger
}

// New wires an orchestrator.
func New(d Deps) *Orchestrator {
	if d.Synth == nil {
		d.Synth = tts.Noop{}
	}
	if d.Sender == nil {
		d.Sender = notify.Noop{}
	}
	if d.TTSBreaker == nil {
		d.TTSBreaker = breaker.New("tts", breaker.Config{}, d.Log)
	}
	alt := d.Booking.AlternativeCount
	if alt <= 0 {
		alt = 3
	}
	return &Orchestrator{
		business:         d.Business,
		extractor:        d.Extractor,
		engine:           d.Engine,
		sessions:         d.Sessions,
		appts:            d.Appts,
		profiles:         d.Profiles,
		templates:        NewTemplates(d.Business),
		aiClient:         d.AIClient,
		aiBreaker:        d.AIBreaker,
		aiTimeout:        d.AITimeout,
		synth:            d.Synth,
		ttsBreaker:       d.TTSBreaker,
		sender:           d.Sender,
		alternativeCount: alt,
		met:              d.Metrics,
		log:              d.Log.Sub("orchestrator"),
	}
}

// HandleCallStarted creates the session and produces the greeting. A
// redelivered start event for a live call repeats the greeting without
// resetting the conversation.
func (o *Orchestrator) HandleCallStarted(ctx context.Context, ev domain.CallStarted) domain.TurnResult {
	sess, err := o.sessions.Create(ev.CallID, ev.CallerNumber)
	if errors.Is(err, session.ErrExists) {
		sess, _ = o.sessions.Get(ev.CallID)
		sess.Touch()
		return o.speak(ctx, sess, o.templates.Greeting(nil), domain.DirectiveContinue)
	}

	var profile *domain.CallerProfile
	if ev.CallerNumber != "" && o.profiles != nil {
		if p, perr := o.profiles.GetOrCreate(ev.CallerNumber); perr == nil {
			profile = p
			if p.Name != "" {
				sess.SetField(domain.FieldName, p.Name)
			}
		}
	}

	greeting := o.templates.Greeting(profile)
	sess.AddTurn("assistant", greeting)
	return o.speak(ctx, sess, greeting, domain.DirectiveContinue)
}

// HandleCallEnded evicts the session.
func (o *Orchestrator) HandleCallEnded(ev domain.CallEnded) {
	o.sessions.Remove(ev.CallID)
}

// ActiveCalls reports the number of live call sessions.
func (o *Orchestrator) ActiveCalls() int {
	return o.sessions.Len()
}

// HandleTurn processes one transcribed utterance and always returns a
// spoken response, regardless of collaborator health.
func (o *Orchestrator) HandleTurn(ctx context.Context, ev domain.SpeechTurn) domain.TurnResult {
	start := time.Now()
	defer func() { o.met.TurnDuration.Observe(time.Since(start).Seconds()) }()

	sess, ok := o.sessions.Get(ev.CallID)
	if !ok {
		// A turn for an unknown call is an implicit new call.
		sess, _ = o.sessions.Create(ev.CallID, "")
		if sess == nil {
			sess, _ = o.sessions.Get(ev.CallID)
		}
	}
	sess.Touch()
	sess.Attempts++
	sess.AddTurn("caller", ev.Text)

	result := o.processTurn(ctx, sess, ev.Text)
	sess.AddTurn("assistant", result.Text)
	if result.Directive == domain.DirectiveEnd {
		o.sessions.Remove(sess.CallID)
	}
	return result
}

func (o *Orchestrator) processTurn(ctx context.Context, sess *domain.CallSession, utterance string) domain.TurnResult {
	lower := strings.ToLower(utterance)

	// A pending cancel question is answered before anything else.
	if sess.Field(fieldPendingAction) == actionCancel {
		return o.resolveCancel(ctx, sess, lower)
	}

	if wantsCancel(lower) || wantsReschedule(lower) {
		return o.startModification(ctx, sess, lower)
	}

	before := filledCount(sess)
	o.extractor.Extract(sess, utterance)

	if wantsFirstAvailable(lower) {
		o.fillFirstAvailable(ctx, sess)
	}

	progressed := filledCount(sess) > before
	if progressed {
		sess.ChaosStrikes = 0
	} else if !sess.Complete() {
		sess.ChaosStrikes++
		if sess.ChaosStrikes >= maxChaosStrikes {
			o.log.WithCall(sess.CallID).Info().Msg("ending unproductive call")
			return o.speak(ctx, sess, o.templates.Refusal(), domain.DirectiveEnd)
		}
	}

	if sess.Complete() {
		if sess.Field(fieldTargetAppt) != "" {
			return o.finishReschedule(ctx, sess)
		}
		return o.book(ctx, sess)
	}

	sess.State = sess.NextState()
	return o.respond(ctx, sess)
}

// book runs the atomic create path and converts its three outcomes into
// caller-facing responses.
func (o *Orchestrator) book(ctx context.Context, sess *domain.CallSession) domain.TurnResult {
	appt := o.appointmentFrom(sess)

	eventID, err := o.engine.Create(ctx, appt)
	switch {
	case err == nil:
		appt.EventID = eventID
		appt.Status = domain.StatusConfirmed
		o.persistBooking(ctx, sess, appt)
		sess.State = domain.StateBooked
		return o.speak(ctx, sess, o.templates.Confirmation(appt), domain.DirectiveEnd)

	case availability.IsConflict(err):
		alts := o.engine.FindAlternatives(ctx, appt.Date, appt.Time, o.alternativeCount)
		text := o.templates.ConflictRecovery(appt.Date, appt.Time, alts)
		sess.ClearField(domain.FieldTime)
		sess.State = domain.StateGatheringTime
		return o.speak(ctx, sess, text, domain.DirectiveContinue)

	case errors.Is(err, availability.ErrCalendarUnavailable):
		// Never insert blind: record locally for a human to confirm.
		appt.Status = domain.StatusPendingManual
		o.persistBooking(ctx, sess, appt)
		sess.State = domain.StateBooked
		o.log.WithCall(sess.CallID).Warn().Err(err).Msg("calendar down, booking held for manual confirm")
		return o.speak(ctx, sess, o.templates.PendingManual(appt), domain.DirectiveEnd)

	default:
		o.log.WithCall(sess.CallID).Error().Err(err).Msg("booking failed")
		return o.speak(ctx, sess, o.templates.Apology(), domain.DirectiveEnd)
	}
}

// respond produces the next prompt, racing the AI path against the
// template floor. A breaker-open AI path is treated exactly like a
// timeout: the template answer goes out on schedule.
func (o *Orchestrator) respond(ctx context.Context, sess *domain.CallSession) domain.TurnResult {
	fallback := o.templates.Prompt(sess)
	if o.aiClient == nil {
		return o.speak(ctx, sess, fallback, domain.DirectiveContinue)
	}

	type aiReply struct {
		text string
		err  error
	}
	ch := make(chan aiReply, 1)

	aiCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.aiTimeout)
	go func() {
		defer cancel()
		var text string
		err := o.aiBreaker.Do(func() error {
			resp, cerr := o.aiClient.Complete(aiCtx, ai.Request{
				System:    o.systemPrompt(),
				Messages:  historyMessages(sess),
				MaxTokens: 120,
			})
			if cerr != nil {
				return cerr
			}
			text = resp.Content
			return nil
		})
		ch <- aiReply{text: text, err: err}
	}()

	timer := time.NewTimer(o.aiTimeout)
	defer timer.Stop()

	select {
	case reply := <-ch:
		if reply.err == nil && strings.TrimSpace(reply.text) != "" {
			return o.speak(ctx, sess, reply.text, domain.DirectiveContinue)
		}
		o.met.AIFallbacks.Inc()
		return o.speak(ctx, sess, fallback, domain.DirectiveContinue)
	case <-timer.C:
		// The in-flight call is abandoned for this response; its eventual
		// result is discarded.
		o.met.AITimeouts.Inc()
		o.met.AIFallbacks.Inc()
		return o.speak(ctx, sess, fallback, domain.DirectiveContinue)
	}
}

// speak attaches synthesized audio when the synthesizer delivers in
// time; the text response never waits on it. Synthesis is circuit-broken
// so a down backend stops costing the timeout on every turn.
func (o *Orchestrator) speak(ctx context.Context, sess *domain.CallSession, text string, d domain.Directive) domain.TurnResult {
	result := domain.TurnResult{Text: text, Directive: d}

	synthCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	var url string
	err := o.ttsBreaker.Do(func() error {
		u, serr := o.synth.Synthesize(synthCtx, text)
		if serr != nil {
			return serr
		}
		url = u
		return nil
	})
	if err == nil && url != "" {
		result.AudioURL = url
	}
	return result
}

func (o *Orchestrator) persistBooking(ctx context.Context, sess *domain.CallSession, appt *domain.Appointment) {
	if err := o.appts.Append(appt); err != nil {
		o.log.Error().Err(err).Msg("persisting appointment")
	}
	if o.profiles != nil && appt.Phone != "" {
		if err := o.profiles.RecordBooking(appt.Phone, appt.CustomerName, appt.Service); err != nil {
			o.log.Warn().Err(err).Msg("updating caller profile")
		}
	}
	if appt.Status == domain.StatusConfirmed {
		go func() {
			smsCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
			defer cancel()
			if err := o.sender.ConfirmBooking(smsCtx, appt, o.business.Name); err != nil {
				o.log.Warn().Err(err).Msg("sms confirmation failed")
			}
		}()
	}
}

func (o *Orchestrator) appointmentFrom(sess *domain.CallSession) *domain.Appointment {
	phone := sess.Field(domain.FieldPhone)
	if phone == "" {
		phone = sess.CallerNumber
	}
	appt := &domain.Appointment{
		CustomerName: sess.Field(domain.FieldName),
		Phone:        phone,
		Service:      sess.Field(domain.FieldService),
		Date:         sess.Field(domain.FieldDate),
		Time:         sess.Field(domain.FieldTime),
		Status:       domain.StatusPending,
		CreatedAt:    time.Now(),
	}
	if svc, ok := o.business.ServiceByName(appt.Service); ok && svc.Price > 0 {
		appt.Notes = fmt.Sprintf("quoted $%.0f", svc.Price)
	}
	return appt
}

func (o *Orchestrator) systemPrompt() string {
	return "You are the phone receptionist for " + o.business.Name +
		". Reply with one short, warm sentence that moves the booking forward. Never invent availability."
}

func historyMessages(sess *domain.CallSession) []ai.Message {
	msgs := make([]ai.Message, 0, len(sess.History))
	for _, turn := range sess.History {
		role := ai.RoleUser
		if turn.Role == "assistant" {
			role = ai.RoleAssistant
		}
		msgs = append(msgs, ai.Message{Role: role, Content: turn.Text})
	}
	return msgs
}

func filledCount(sess *domain.CallSession) int {
	n := 0
	for _, f := range domain.RequiredFields {
		if sess.Field(f) != "" {
			n++
		}
	}
	return n
}

func wantsCancel(lower string) bool {
	return strings.Contains(lower, "cancel")
}

func wantsReschedule(lower string) bool {
	return strings.Contains(lower, "reschedule") ||
		strings.Contains(lower, "change my appointment") ||
		strings.Contains(lower, "move my appointment")
}

func wantsFirstAvailable(lower string) bool {
	return strings.Contains(lower, "first available") ||
		strings.Contains(lower, "earliest") ||
		strings.Contains(lower, "soonest") ||
		strings.Contains(lower, "as soon as possible") ||
		strings.Contains(lower, "asap")
}

func (o *Orchestrator) fillFirstAvailable(ctx context.Context, sess *domain.CallSession) {
	if sess.Field(domain.FieldDate) != "" && sess.Field(domain.FieldTime) != "" {
		return
	}
	date, slot, ok := o.engine.FirstAvailable(ctx)
	if !ok {
		return
	}
	sess.SetField(domain.FieldDate, date)
	sess.SetField(domain.FieldTime, slot)
}
