// Package httpapi exposes the telephony webhook surface: Twilio posts
// call lifecycle and speech events here, and gets TwiML back.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/oakhurst-labs/frontdesk/internal/config"
	"github.com/oakhurst-labs/frontdesk/internal/domain"
	"github.com/oakhurst-labs/frontdesk/internal/logging"
	"github.com/oakhurst-labs/frontdesk/internal/orchestrator"
)

// Server is the frontdesk webhook HTTP server.
type Server struct {
	cfg  config.ServerConfig
	orch *orchestrator.Orchestrator
	log  *logging.Logger
	hub  *eventHub

	// pool bounds concurrent turn handling.
	pool chan struct{}

	metricsHandler http.Handler
	audioDir       string

	httpServer *http.Server
}

// Options configures optional server surfaces.
type Options struct {
	MetricsHandler http.Handler // GET /metrics, nil disables
	AudioDir       string       // served under /audio/, "" disables
}

// New creates the webhook server.
func New(cfg config.ServerConfig, orch *orchestrator.Orchestrator, log *logging.Logger, opts Options) *Server {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 10
	}
	return &Server{
		cfg:            cfg,
		orch:           orch,
		log:            log.Sub("httpapi"),
		hub:            newEventHub(log),
		pool:           make(chan struct{}, workers),
		metricsHandler: opts.MetricsHandler,
		audioDir:       opts.AudioDir,
	}
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhook/voice", s.handleVoice)
	mux.HandleFunc("POST /webhook/gather", s.handleGather)
	mux.HandleFunc("POST /webhook/status", s.handleStatus)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws/events", s.hub.handleEvents)
	if s.metricsHandler != nil {
		mux.Handle("GET /metrics", s.metricsHandler)
	}
	if s.audioDir != "" {
		mux.Handle("GET /audio/", http.StripPrefix("/audio/", http.FileServer(http.Dir(s.audioDir))))
	}

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.log.Info().Str("addr", ln.Addr().String()).Msg("webhook server starting")

	go func() {
		<-ctx.Done()
		s.log.Info().Msg("shutting down webhook server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.hub.closeAll()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// handleVoice answers a newly connected call.
func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	callID := r.PostFormValue("CallSid")
	caller := r.PostFormValue("From")
	if callID == "" {
		http.Error(w, "missing CallSid", http.StatusBadRequest)
		return
	}

	result := s.orch.HandleCallStarted(r.Context(), domain.CallStarted{
		CallID:       callID,
		CallerNumber: caller,
	})
	s.hub.Publish(Event{Type: "call_started", CallID: callID})
	s.writeTurn(w, callID, result)
}

// handleGather processes one transcribed utterance through the bounded
// worker pool. If the pool is saturated the caller hears a brief hold
// line instead of silence.
func (s *Server) handleGather(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	callID := r.PostFormValue("CallSid")
	speech := r.PostFormValue("SpeechResult")
	if callID == "" {
		http.Error(w, "missing CallSid", http.StatusBadRequest)
		return
	}

	if speech == "" {
		s.writeTurn(w, callID, domain.TurnResult{
			Text:      "I'm sorry, I didn't catch that. Could you say it again?",
			Directive: domain.DirectiveContinue,
		})
		return
	}

	select {
	case s.pool <- struct{}{}:
		defer func() { <-s.pool }()
	case <-time.After(2 * time.Second):
		s.log.WithCall(callID).Warn().Msg("worker pool saturated")
		s.writeTurn(w, callID, domain.TurnResult{
			Text:      "One moment please, I'll be right with you.",
			Directive: domain.DirectiveContinue,
		})
		return
	}

	result := s.orch.HandleTurn(r.Context(), domain.SpeechTurn{CallID: callID, Text: speech})
	s.hub.Publish(Event{
		Type:      "turn",
		CallID:    callID,
		Text:      result.Text,
		Directive: string(result.Directive),
	})
	s.writeTurn(w, callID, result)
}

// handleStatus consumes call lifecycle callbacks; terminal states evict
// the session.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	callID := r.PostFormValue("CallSid")
	status := r.PostFormValue("CallStatus")

	switch status {
	case "completed", "failed", "busy", "no-answer", "canceled":
		s.orch.HandleCallEnded(domain.CallEnded{CallID: callID})
		s.hub.Publish(Event{Type: "call_ended", CallID: callID})
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"ok","activeCalls":%d}`, s.orch.ActiveCalls())
}

func (s *Server) writeTurn(w http.ResponseWriter, callID string, result domain.TurnResult) {
	body, err := renderTurn(result, "/webhook/gather")
	if err != nil {
		s.log.WithCall(callID).Error().Err(err).Msg("rendering twiml")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.Write(body)
}
