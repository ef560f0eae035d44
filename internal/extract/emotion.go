package extract

import "strings"

// emotionPattern scores one emotion by keyword hits weighted by intensity.
type emotionPattern struct {
	name      string
	keywords  []string
	intensity float64
}

// Ordered so scoring ties resolve deterministically.
var emotionPatterns = []emotionPattern{
	{"pain", []string{"hurt", "pain", "ache", "sore", "throbbing", "burning", "sharp"}, 0.9},
	{"anxiety", []string{"worried", "anxious", "nervous", "scared", "concerned", "afraid"}, 0.8},
	{"frustration", []string{"frustrated", "annoying", "irritated", "upset", "angry"}, 0.7},
	{"happiness", []string{"great", "wonderful", "perfect", "excellent", "amazing", "fantastic"}, 0.3},
}

var urgencyWords = []string{"emergency", "urgent", "right now", "as soon as possible", "asap", "immediately"}

// AnalyzeEmotion detects the dominant emotion in an utterance and whether
// the caller sounds urgent. Returns ("", "") for neutral speech.
func AnalyzeEmotion(lower string) (emotion, urgency string) {
	best := ""
	bestScore := 0.0
	for _, p := range emotionPatterns {
		hits := 0
		for _, kw := range p.keywords {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
		if score := float64(hits) * p.intensity; score > bestScore {
			bestScore = score
			best = p.name
		}
	}

	urgent := false
	for _, w := range urgencyWords {
		if strings.Contains(lower, w) {
			urgent = true
			break
		}
	}
	// Pain implies urgency for a service call.
	if best == "pain" {
		urgent = true
	}

	if best == "" && !urgent {
		return "", ""
	}
	urgency = "normal"
	if urgent {
		urgency = "high"
	}
	if best == "" {
		best = "neutral"
	}
	return best, urgency
}

// EmpathyPrefix returns a short empathetic opener for an emotion, or "".
func EmpathyPrefix(emotion string) string {
	switch emotion {
	case "pain":
		return "I'm so sorry you're in pain. "
	case "anxiety":
		return "No worries at all, we'll take care of you. "
	case "frustration":
		return "I completely understand. "
	default:
		return ""
	}
}
