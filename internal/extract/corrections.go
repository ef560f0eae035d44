package extract

import (
	"sort"
	"strings"
)

// correction replaces a frequent speech-to-text mistake with the term the
// caller almost certainly meant for this kind of business.
type correction struct {
	wrong, right string
}

// typeCorrections maps business type to its homophone/mis-transcription
// table. A dental caller saying "feeling" nearly always means "filling".
var typeCorrections = map[string][]correction{
	"dental": {
		{"feelings", "fillings"},
		{"feeling", "filling"},
		{"day feel", "they fill"},
		{"keys", "teeth"},
		{"tea", "teeth"},
		{"paid", "pain"},
	},
	"medical": {
		{"checkout", "checkup"},
		{"ammual", "annual"},
		{"docter", "doctor"},
	},
	"salon": {
		{"died", "dyed"},
		{"high lights", "highlights"},
		{"low lights", "lowlights"},
	},
	"restaurant": {
		{"diner", "dinner"},
		{"launch", "lunch"},
	},
}

// correctionsFor merges the built-in table for a business type with
// config-supplied overrides, longest patterns first so substrings don't
// clobber their containing phrases.
func correctionsFor(bizType string, extra map[string]string) []correction {
	out := append([]correction(nil), typeCorrections[bizType]...)

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, correction{strings.ToLower(k), strings.ToLower(extra[k])})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].wrong) > len(out[j].wrong)
	})
	return out
}

// AutoCorrect applies the correction table to an utterance before any
// extraction strategy runs.
func (x *Extractor) AutoCorrect(text string) string {
	lower := strings.ToLower(text)
	for _, c := range x.corrections {
		if strings.Contains(lower, c.wrong) {
			lower = strings.ReplaceAll(lower, c.wrong, c.right)
		}
	}
	return lower
}
