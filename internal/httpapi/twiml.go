package httpapi

import (
	"encoding/xml"

	"github.com/oakhurst-labs/frontdesk/internal/domain"
)

// TwiML verb structures. Only the verbs this server speaks are modeled.

type sayVerb struct {
	XMLName xml.Name `xml:"Say"`
	Voice   string   `xml:"voice,attr,omitempty"`
	Text    string   `xml:",chardata"`
}

type playVerb struct {
	XMLName xml.Name `xml:"Play"`
	URL     string   `xml:",chardata"`
}

type hangupVerb struct {
	XMLName xml.Name `xml:"Hangup"`
}

// gatherVerb collects the caller's next utterance. The prompt nests
// inside so the caller can barge in over it.
type gatherVerb struct {
	XMLName       xml.Name  `xml:"Gather"`
	Input         string    `xml:"input,attr"`
	Action        string    `xml:"action,attr"`
	Method        string    `xml:"method,attr"`
	SpeechTimeout string    `xml:"speechTimeout,attr"`
	Say           *sayVerb  `xml:",omitempty"`
	Play          *playVerb `xml:",omitempty"`
}

type twimlResponse struct {
	XMLName xml.Name    `xml:"Response"`
	Gather  *gatherVerb `xml:",omitempty"`
	Say     *sayVerb    `xml:",omitempty"`
	Play    *playVerb   `xml:",omitempty"`
	Hangup  *hangupVerb `xml:",omitempty"`
}

const ttsVoice = "Polly.Joanna"

// renderTurn converts a turn result into the TwiML the telephony layer
// executes. Continue directives wrap the prompt in a Gather pointed at
// the speech webhook; end directives speak and hang up.
func renderTurn(result domain.TurnResult, gatherAction string) ([]byte, error) {
	var resp twimlResponse

	say, play := prompt(result)
	if result.Directive == domain.DirectiveEnd {
		resp.Say = say
		resp.Play = play
		resp.Hangup = &hangupVerb{}
	} else {
		resp.Gather = &gatherVerb{
			Input:         "speech",
			Action:        gatherAction,
			Method:        "POST",
			SpeechTimeout: "auto",
			Say:           say,
			Play:          play,
		}
	}

	out, err := xml.MarshalIndent(resp, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

// prompt prefers synthesized audio when the turn carries it.
func prompt(result domain.TurnResult) (*sayVerb, *playVerb) {
	if result.AudioURL != "" {
		return nil, &playVerb{URL: result.AudioURL}
	}
	return &sayVerb{Voice: ttsVoice, Text: result.Text}, nil
}
