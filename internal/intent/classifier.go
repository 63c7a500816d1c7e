// Package intent classifies utterances with priority-ordered keyword rules.
package intent

import "strings"

// Intent is the classified purpose of an utterance.
type Intent string

const (
	// None means no rule matched; the caller decides from dialogue state.
	None              Intent = ""
	Booking           Intent = "booking-intent"
	AvailabilityCheck Intent = "availability-check"
)

// Classifier maps raw text to exactly one Intent.
type Classifier interface {
	Classify(text string) Intent
}

// Rule matches when any of its keywords occurs in the lowercased text.
type Rule struct {
	Intent   Intent
	Keywords []string
}

func (r Rule) matches(lower string) bool {
	for _, kw := range r.Keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// DefaultRules tests booking before availability, so an utterance carrying
// words from both sets is always a booking.
var DefaultRules = []Rule{
	{
		Intent:   Booking,
		Keywords: []string{"book", "schedule", "appointment", "meeting", "call", "reserve", "set up", "arrange", "plan"},
	},
	{
		Intent:   AvailabilityCheck,
		Keywords: []string{"available", "free", "open", "any time", "when can"},
	},
}

// KeywordClassifier evaluates its rules in order and returns the first hit.
type KeywordClassifier struct {
	rules []Rule
}

// NewKeywordClassifier creates a classifier over rules. Nil rules means DefaultRules.
func NewKeywordClassifier(rules []Rule) *KeywordClassifier {
	if rules == nil {
		rules = DefaultRules
	}
	return &KeywordClassifier{rules: rules}
}

func (c *KeywordClassifier) Classify(text string) Intent {
	lower := strings.ToLower(text)
	for _, rule := range c.rules {
		if rule.matches(lower) {
			return rule.Intent
		}
	}
	return None
}

// Reply is a yes/no answer to a pending confirmation.
type Reply int

const (
	ReplyNone Reply = iota
	ReplyAffirmative
	ReplyNegative
)

var (
	affirmativeTokens = []string{"yes", "confirm", "book"}
	negativeTokens    = []string{"no", "cancel"}
)

// ClassifyReply inspects text for affirmative tokens first, then negative
// ones. Matching is case-insensitive substring search.
func ClassifyReply(text string) Reply {
	lower := strings.ToLower(text)
	for _, tok := range affirmativeTokens {
		if strings.Contains(lower, tok) {
			return ReplyAffirmative
		}
	}
	for _, tok := range negativeTokens {
		if strings.Contains(lower, tok) {
			return ReplyNegative
		}
	}
	return ReplyNone
}
