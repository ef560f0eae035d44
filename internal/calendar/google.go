package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/oakhurst-labs/frontdesk/internal/config"
	"github.com/oakhurst-labs/frontdesk/internal/logging"
)

// GoogleProvider talks to a single Google Calendar.
type GoogleProvider struct {
	svc        *gcal.Service
	calendarID string
	timezone   string
	ownerEmail string
	log        *logging.Logger
}

// NewGoogle authenticates with the stored OAuth token and returns a
// provider for the configured calendar. Run the auth flow out of band to
// produce the token file.
func NewGoogle(ctx context.Context, cfg config.CalendarConfig, timezone string, log *logging.Logger) (*GoogleProvider, error) {
	b, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("reading calendar credentials: %w", err)
	}

	oauthCfg, err := google.ConfigFromJSON(b, gcal.CalendarEventsScope)
	if err != nil {
		return nil, fmt.Errorf("parsing calendar credentials: %w", err)
	}

	token, err := tokenFromFile(cfg.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("no calendar auth token at %s: %w", cfg.TokenFile, err)
	}

	client := oauthCfg.Client(ctx, token)
	svc, err := gcal.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("creating calendar service: %w", err)
	}

	calID := cfg.CalendarID
	if calID == "" {
		calID = "primary"
	}

	return &GoogleProvider{
		svc:        svc,
		calendarID: calID,
		timezone:   timezone,
		ownerEmail: cfg.OwnerEmail,
		log:        log.Sub("calendar"),
	}, nil
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	return tok, json.NewDecoder(f).Decode(tok)
}

// ListEvents returns events overlapping [from, to).
func (g *GoogleProvider) ListEvents(ctx context.Context, from, to time.Time) ([]Event, error) {
	res, err := g.svc.Events.List(g.calendarID).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(50).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}

	events := make([]Event, 0, len(res.Items))
	for _, it := range res.Items {
		// All-day events have no DateTime; they never block a slot here.
		if it.Start == nil || it.Start.DateTime == "" || it.End == nil || it.End.DateTime == "" {
			continue
		}
		start, err1 := time.Parse(time.RFC3339, it.Start.DateTime)
		end, err2 := time.Parse(time.RFC3339, it.End.DateTime)
		if err1 != nil || err2 != nil {
			continue
		}
		events = append(events, Event{
			ID:          it.Id,
			Summary:     it.Summary,
			Description: it.Description,
			Start:       start,
			End:         end,
		})
	}
	return events, nil
}

// InsertEvent creates an event and returns its id.
func (g *GoogleProvider) InsertEvent(ctx context.Context, ev Event) (string, error) {
	res, err := g.svc.Events.Insert(g.calendarID, g.toGoogle(ev)).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("inserting event: %w", err)
	}
	g.log.Info().Str("eventId", res.Id).Str("summary", ev.Summary).Msg("calendar event created")
	return res.Id, nil
}

// UpdateEvent replaces the event with the given id.
func (g *GoogleProvider) UpdateEvent(ctx context.Context, id string, ev Event) error {
	if _, err := g.svc.Events.Update(g.calendarID, id, g.toGoogle(ev)).Context(ctx).Do(); err != nil {
		return fmt.Errorf("updating event %s: %w", id, err)
	}
	return nil
}

// DeleteEvent removes the event with the given id.
func (g *GoogleProvider) DeleteEvent(ctx context.Context, id string) error {
	if err := g.svc.Events.Delete(g.calendarID, id).Context(ctx).Do(); err != nil {
		return fmt.Errorf("deleting event %s: %w", id, err)
	}
	return nil
}

func (g *GoogleProvider) toGoogle(ev Event) *gcal.Event {
	out := &gcal.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Start:       &gcal.EventDateTime{DateTime: ev.Start.Format(time.RFC3339), TimeZone: g.timezone},
		End:         &gcal.EventDateTime{DateTime: ev.End.Format(time.RFC3339), TimeZone: g.timezone},
		Reminders: &gcal.EventReminders{
			UseDefault:      false,
			ForceSendFields: []string{"UseDefault"},
			Overrides: []*gcal.EventReminder{
				{Method: "popup", Minutes: 60},
				{Method: "email", Minutes: 24 * 60},
			},
		},
		ColorId: "2",
	}
	if g.ownerEmail != "" {
		out.Attendees = []*gcal.EventAttendee{{Email: g.ownerEmail}}
	}
	return out
}
