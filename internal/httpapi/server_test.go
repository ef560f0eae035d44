package httpapi

import (
	"io"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakhurst-labs/frontdesk/internal/availability"
	"github.com/oakhurst-labs/frontdesk/internal/breaker"
	"github.com/oakhurst-labs/frontdesk/internal/calendar"
	"github.com/oakhurst-labs/frontdesk/internal/config"
	"github.com/oakhurst-labs/frontdesk/internal/domain"
	"github.com/oakhurst-labs/frontdesk/internal/extract"
	"github.com/oakhurst-labs/frontdesk/internal/logging"
	"github.com/oakhurst-labs/frontdesk/internal/metrics"
	"github.com/oakhurst-labs/frontdesk/internal/orchestrator"
	"github.com/oakhurst-labs/frontdesk/internal/session"
	"github.com/oakhurst-labs/frontdesk/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	log := logging.New(io.Discard, "silent")
	met := metrics.New(prometheus.NewRegistry())
	biz := config.BusinessConfig{
		Name: "Bright Smile Dental",
		Type: "dental",
		Services: []config.ServiceEntry{
			{Name: "Cleaning", Keywords: []string{"cleaning"}, Priority: 1},
		},
	}
	slots := config.DefaultSlots

	engine := availability.NewEngine(calendar.Noop{},
		breaker.New("calendar", breaker.Config{}, log),
		availability.NewCache(5*time.Minute, nil, log),
		met,
		availability.Options{Slots: slots, Buffer: 15 * time.Minute, Duration: 30 * time.Minute},
		log)

	db, err := store.Open(":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	orch := orchestrator.New(orchestrator.Deps{
		Business:  biz,
		Extractor: extract.New(biz, slots),
		Engine:    engine,
		Sessions:  session.NewStore(30*time.Minute, met, log),
		Appts:     store.NewAppointmentStore(db),
		Profiles:  store.NewProfileStore(db),
		AIBreaker: breaker.New("ai", breaker.Config{}, log),
		AITimeout: 50 * time.Millisecond,
		Metrics:   met,
		Log:       log,
	})
	return New(config.ServerConfig{Port: 0, Workers: 4}, orch, log, Options{})
}

func doPost(s *Server, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	switch path {
	case "/webhook/voice":
		s.handleVoice(w, req)
	case "/webhook/gather":
		s.handleGather(w, req)
	case "/webhook/status":
		s.handleStatus(w, req)
	}
	return w
}

func TestVoiceWebhookGreets(t *testing.T) {
	s := newTestServer(t)

	w := doPost(s, "/webhook/voice", url.Values{
		"CallSid": {"CA1"},
		"From":    {"+15551234567"},
	})

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "application/xml", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, "<Gather")
	assert.Contains(t, body, "/webhook/gather")
	assert.Contains(t, body, "Bright Smile Dental")
}

func TestVoiceWebhookRequiresCallSid(t *testing.T) {
	s := newTestServer(t)
	w := doPost(s, "/webhook/voice", url.Values{"From": {"+15551234567"}})
	assert.Equal(t, 400, w.Code)
}

func TestGatherWebhookBooksInOneTurn(t *testing.T) {
	s := newTestServer(t)

	doPost(s, "/webhook/voice", url.Values{"CallSid": {"CA1"}, "From": {"+15551234567"}})

	w := doPost(s, "/webhook/gather", url.Values{
		"CallSid":      {"CA1"},
		"SpeechResult": {"My name is Jane, I need a cleaning tomorrow at 2pm"},
	})

	assert.Equal(t, 200, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "<Hangup")
	assert.Contains(t, body, "Jane")
	assert.NotContains(t, body, "<Gather")
}

func TestGatherWebhookRepromptsOnSilence(t *testing.T) {
	s := newTestServer(t)

	doPost(s, "/webhook/voice", url.Values{"CallSid": {"CA1"}})
	w := doPost(s, "/webhook/gather", url.Values{"CallSid": {"CA1"}})

	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), "didn't catch that")
	assert.Contains(t, w.Body.String(), "<Gather")
}

func TestStatusWebhookEndsCall(t *testing.T) {
	s := newTestServer(t)

	doPost(s, "/webhook/voice", url.Values{"CallSid": {"CA1"}})
	w := doPost(s, "/webhook/status", url.Values{
		"CallSid":    {"CA1"},
		"CallStatus": {"completed"},
	})
	assert.Equal(t, 204, w.Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := httptest.NewRecorder()
	s.handleHealth(w, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, 200, w.Code)
	assert.JSONEq(t, `{"status":"ok","activeCalls":0}`, w.Body.String())

	// A live call shows up in the health payload.
	doPost(s, "/webhook/voice", url.Values{"CallSid": {"CA9"}})
	w = httptest.NewRecorder()
	s.handleHealth(w, httptest.NewRequest("GET", "/health", nil))
	assert.JSONEq(t, `{"status":"ok","activeCalls":1}`, w.Body.String())
}

func TestRenderTurnVariants(t *testing.T) {
	// Continue wraps the prompt in a Gather.
	out, err := renderTurn(domain.TurnResult{
		Text: "What day works?", Directive: domain.DirectiveContinue,
	}, "/webhook/gather")
	require.NoError(t, err)
	assert.Contains(t, string(out), `input="speech"`)
	assert.Contains(t, string(out), "What day works?")

	// End says goodbye and hangs up.
	out, err = renderTurn(domain.TurnResult{
		Text: "Goodbye!", Directive: domain.DirectiveEnd,
	}, "/webhook/gather")
	require.NoError(t, err)
	assert.Contains(t, string(out), "<Hangup")
	assert.NotContains(t, string(out), "<Gather")

	// Synthesized audio plays instead of robotic speech.
	out, err = renderTurn(domain.TurnResult{
		Text: "hi", AudioURL: "/audio/abc.mp3", Directive: domain.DirectiveContinue,
	}, "/webhook/gather")
	require.NoError(t, err)
	assert.Contains(t, string(out), "<Play>/audio/abc.mp3</Play>")
	assert.NotContains(t, string(out), "<Say")
}
