// Package intent maps a raw chat message to a coarse intent label with a
// confidence score. Classification is pure keyword matching over a fixed,
// ordered table; no model calls, no state.
package intent

import (
	"strings"
	"unicode"
)

// Intent is a coarse classification of a single message's purpose.
type Intent string

const (
	Greeting          Intent = "greeting"
	DemoRequest       Intent = "demo_request"
	PricingInquiry    Intent = "pricing_inquiry"
	ProductInquiry    Intent = "product_inquiry"
	TechnicalQuestion Intent = "technical_question"
	ProvideInfo       Intent = "provide_info"
	Confirmation      Intent = "confirmation"
	Goodbye           Intent = "goodbye"
	General           Intent = "general"
)

// DefaultConfidence is returned with the General intent when nothing matches.
const DefaultConfidence = 0.5

// scoreNormalizer calibrates the raw match count into [0,1]. Three distinct
// trigger hits saturate the confidence.
const scoreNormalizer = 3.0

// rule pairs an intent with its trigger words and phrases. The table is a
// slice, not a map: ties between intents are broken by declaration order,
// and that order is part of the contract.
type rule struct {
	intent   Intent
	triggers []string
}

var rules = []rule{
	{Greeting, []string{"hello", "hi", "hey", "good morning", "good afternoon", "good evening", "greetings"}},
	{DemoRequest, []string{"demo", "demonstration", "show me", "trial", "see it in action", "book a call", "schedule a meeting"}},
	{PricingInquiry, []string{"price", "pricing", "cost", "how much", "expensive", "budget", "subscription", "per seat"}},
	{ProductInquiry, []string{"argo", "mark", "consuelo", "product", "feature", "features", "what does", "what can", "capabilities", "tell me about"}},
	{TechnicalQuestion, []string{"api", "integration", "integrate", "security", "sso", "oauth", "on-premise", "data privacy", "gdpr", "technical"}},
	{ProvideInfo, []string{"my name is", "i'm", "i am", "my email", "my company", "we are", "we're", "you can reach me"}},
	{Confirmation, []string{"yes", "yeah", "sure", "ok", "okay", "sounds good", "go ahead", "correct", "that works"}},
	{Goodbye, []string{"bye", "goodbye", "see you", "talk later", "that's all"}},
}

// Detect classifies text and returns the winning intent with its
// confidence. The same input always produces the same result: every rule
// is scored by how many of its distinct triggers occur in the lowercased
// text, the highest score wins, and the first rule in table order wins
// ties. An empty or unmatched message yields (General, 0.5).
func Detect(text string) (Intent, float64) {
	lowered := strings.ToLower(strings.TrimSpace(text))
	if lowered == "" {
		return General, DefaultConfidence
	}

	words := tokenSet(lowered)

	best := General
	bestScore := 0
	for _, r := range rules {
		score := 0
		for _, trigger := range r.triggers {
			if matches(lowered, words, trigger) {
				score++
			}
		}
		if score > bestScore {
			best = r.intent
			bestScore = score
		}
	}

	if bestScore == 0 {
		return General, DefaultConfidence
	}

	confidence := float64(bestScore) / scoreNormalizer
	if confidence > 1.0 {
		confidence = 1.0
	}
	return best, confidence
}

// matches reports whether a trigger occurs in the message. Multi-word
// triggers match as substrings; single words must match a whole token, so
// "hi" does not fire on "this".
func matches(lowered string, words map[string]struct{}, trigger string) bool {
	if strings.ContainsRune(trigger, ' ') {
		return strings.Contains(lowered, trigger)
	}
	_, ok := words[trigger]
	return ok
}

// tokenSet splits lowered text into word tokens, keeping apostrophes and
// hyphens inside words ("i'm", "on-premise").
func tokenSet(lowered string) map[string]struct{} {
	fields := strings.FieldsFunc(lowered, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\'' && r != '-'
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
