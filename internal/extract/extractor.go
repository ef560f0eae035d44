// Package extract pulls structured booking fields out of free-form caller
// speech. Each strategy is a pure function over (existing fields, text);
// strategies run in a fixed order and only ever fill fields that are unset,
// so running the same utterance twice is a no-op.
package extract

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/oakhurst-labs/frontdesk/internal/config"
	"github.com/oakhurst-labs/frontdesk/internal/domain"
)

// Extractor applies the extraction strategy chain to an utterance.
type Extractor struct {
	services    []config.ServiceEntry // sorted by priority
	slots       []string
	corrections []correction
	loc         *time.Location

	now func() time.Time // injectable clock for date resolution
}

// New builds an extractor for the given business configuration.
func New(biz config.BusinessConfig, slots []string) *Extractor {
	services := append([]config.ServiceEntry(nil), biz.Services...)
	sort.SliceStable(services, func(i, j int) bool {
		return services[i].Priority < services[j].Priority
	})
	return &Extractor{
		services:    services,
		slots:       slots,
		corrections: correctionsFor(biz.Type, biz.Corrections),
		loc:         biz.Location(),
		now:         time.Now,
	}
}

// Extract runs the strategy chain against one utterance, mutating only
// currently-unset session fields.
func (x *Extractor) Extract(sess *domain.CallSession, utterance string) {
	text := x.AutoCorrect(utterance)
	lower := strings.ToLower(text)

	if sess.Field(domain.FieldName) == "" {
		if name := x.extractName(lower, sess.State == domain.StateGatheringName); name != "" {
			sess.SetField(domain.FieldName, name)
		}
	}
	if sess.Field(domain.FieldService) == "" {
		if svc := x.extractService(lower); svc != "" {
			sess.SetField(domain.FieldService, svc)
		}
	}
	if sess.Field(domain.FieldDate) == "" {
		if date := x.ExtractDate(lower); date != "" {
			sess.SetField(domain.FieldDate, date)
		}
	}
	if sess.Field(domain.FieldTime) == "" {
		if t := x.ExtractTime(lower); t != "" {
			sess.SetField(domain.FieldTime, t)
		}
	}
	if sess.Field(domain.FieldPhone) == "" {
		if phone := extractPhone(text); phone != "" {
			sess.SetField(domain.FieldPhone, phone)
		} else if sess.CallerNumber != "" {
			sess.SetField(domain.FieldPhone, sess.CallerNumber)
		}
	}

	if emotion, urgency := AnalyzeEmotion(lower); emotion != "" {
		sess.SetField(domain.FieldEmotion, emotion)
		sess.SetField(domain.FieldUrgency, urgency)
	}
}

var (
	namePattern = regexp.MustCompile(`(?:my name is|i'?m|i am|this is|it'?s)\s+([a-z]+(?:\s+[a-z]+){0,2})`)

	// acknowledgements and fillers that are never names
	nonNames = map[string]bool{
		"yes": true, "no": true, "yeah": true, "nope": true, "sure": true,
		"okay": true, "ok": true, "um": true, "uh": true, "hello": true,
		"hi": true, "thanks": true, "please": true, "calling": true,
	}
)

// extractName looks for explicit self-identification first. When the
// session is specifically awaiting a name, it falls back to stripping
// filler words and accepting 1-3 remaining word tokens.
func (x *Extractor) extractName(lower string, awaitingName bool) string {
	if m := namePattern.FindStringSubmatch(lower); m != nil {
		candidate := strings.TrimSpace(m[1])
		if isPlausibleName(candidate) {
			return title(candidate)
		}
	}

	if !awaitingName {
		return ""
	}

	var words []string
	for _, w := range strings.Fields(lower) {
		w = strings.Trim(w, ".,!?")
		if w == "" || nonNames[w] || w == "here" {
			continue
		}
		words = append(words, w)
	}
	if len(words) == 0 || len(words) > 3 {
		return ""
	}
	for _, w := range words {
		if !wordLike(w) {
			return ""
		}
	}
	return title(strings.Join(words, " "))
}

func isPlausibleName(s string) bool {
	words := strings.Fields(s)
	if len(words) == 0 || len(words) > 3 {
		return false
	}
	for _, w := range words {
		if len(w) < 2 || nonNames[w] {
			return false
		}
	}
	return true
}

func wordLike(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && r != '\'' && r != '-' {
			return false
		}
	}
	return len(s) > 1
}

func title(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// extractService matches the utterance against each configured service's
// keyword set, in priority order. First match wins.
func (x *Extractor) extractService(lower string) string {
	for _, svc := range x.services {
		keywords := append([]string{strings.ToLower(svc.Name)}, svc.Keywords...)
		for _, kw := range keywords {
			if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
				return svc.Name
			}
		}
	}
	return ""
}

var phonePattern = regexp.MustCompile(`\d{3}[-.\s]?\d{3}[-.\s]?\d{4}`)

// extractPhone matches digit-grouped phone numbers, returning digits only.
func extractPhone(text string) string {
	m := phonePattern.FindString(text)
	if m == "" {
		return ""
	}
	var digits strings.Builder
	for _, r := range m {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	return digits.String()
}
