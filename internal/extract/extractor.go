// Package extract pulls structured contact facts (name, email, company)
// out of free text. Extraction is pure and table-driven: each field has an
// ordered list of patterns, the first match wins, and a blocklist can veto
// a candidate. Absence of a match yields the empty string, never a partial
// value.
package extract

import (
	"regexp"
	"strings"
)

// Info holds the facts recovered from one message. Empty string means the
// field was not found.
type Info struct {
	Name    string
	Email   string
	Company string
}

// emailPattern is an RFC-5322-lite matcher: local@domain.tld. The first
// occurrence in the text is used verbatim, without case folding.
var emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

// namePattern couples a regex (capture group 1 = candidate) with the rule
// it encodes. explicitOnly fallback entries are gated separately.
type namePattern struct {
	re       *regexp.Regexp
	fallback bool
}

// Name patterns in priority order: explicit self-introductions first, then
// the capitalized-word-at-start heuristic for short replies.
var namePatterns = []namePattern{
	{re: regexp.MustCompile(`(?i)\bmy name is ([A-Za-z][A-Za-z'\-]*)`)},
	{re: regexp.MustCompile(`(?i)\bi'm ([A-Za-z][A-Za-z'\-]*)`)},
	{re: regexp.MustCompile(`(?i)\bi am ([A-Za-z][A-Za-z'\-]*)`)},
	{re: regexp.MustCompile(`(?i)\bcall me ([A-Za-z][A-Za-z'\-]*)`)},
	{re: regexp.MustCompile(`(?i)\bthis is ([A-Za-z][A-Za-z'\-]*)`)},
	{re: regexp.MustCompile(`^([A-Z][a-z'\-]+)\b`), fallback: true},
}

// nameBlocklist vetoes common short replies and command verbs that the
// patterns would otherwise mistake for a name.
var nameBlocklist = map[string]struct{}{
	"yes": {}, "no": {}, "ok": {}, "okay": {}, "sure": {}, "hello": {},
	"hi": {}, "hey": {}, "thanks": {}, "thank": {}, "book": {}, "demo": {},
	"show": {}, "tell": {}, "what": {}, "how": {}, "when": {}, "where": {},
	"why": {}, "who": {}, "can": {}, "please": {}, "great": {}, "good": {},
	"sounds": {}, "not": {}, "maybe": {}, "the": {}, "this": {}, "that": {},
	"interested": {}, "we": {}, "we're": {}, "i": {}, "i'm": {}, "it": {},
	"it's": {}, "let's": {},
}

// fallbackWordLimit keeps the capitalized-start heuristic to short replies;
// a full sentence starting with a capital letter is not a name.
const fallbackWordLimit = 4

// Company patterns in priority order. Group 1 captures the first word in
// any case; subsequent words must be capitalized so the match stops before
// the rest of the sentence.
// Case-insensitivity is scoped to the trigger phrase only: the captured
// tail keeps its case requirement so the match stops before the rest of
// the sentence.
var companyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?i:my company is) ([A-Za-z0-9][\w&.'\-]*(?:\s+[A-Z][\w&.'\-]*)*)`),
	regexp.MustCompile(`\b(?i:work(?:ing)? (?:at|for)) ([A-Za-z0-9][\w&.'\-]*(?:\s+[A-Z][\w&.'\-]*)*)`),
	regexp.MustCompile(`\b(?i:we(?:'re| are) (?:with|from|at)) ([A-Za-z0-9][\w&.'\-]*(?:\s+[A-Z][\w&.'\-]*)*)`),
	regexp.MustCompile(`\b(?i:on behalf of) ([A-Za-z0-9][\w&.'\-]*(?:\s+[A-Z][\w&.'\-]*)*)`),
	regexp.MustCompile(`\b(?i:from) ([A-Z][\w&.'\-]*(?:\s+[A-Z][\w&.'\-]*)*)`),
}

// companyBlocklist rejects email-provider words and stopwords that the
// looser patterns drag in.
var companyBlocklist = map[string]struct{}{
	"gmail": {}, "yahoo": {}, "hotmail": {}, "outlook": {}, "icloud": {},
	"the": {}, "a": {}, "an": {}, "my": {}, "our": {}, "home": {},
	"work": {}, "here": {}, "there": {}, "scratch": {},
}

// Extract runs all three field extractors over text. Each field is
// independent; a miss on one never affects the others.
func Extract(text string) Info {
	return Info{
		Name:    extractName(text),
		Email:   extractEmail(text),
		Company: extractCompany(text),
	}
}

// ValidEmail reports whether s as a whole is an address the email pattern
// would accept. Request validation uses it so stored addresses and
// extracted ones obey the same shape.
func ValidEmail(s string) bool {
	return emailPattern.FindString(s) == s
}

func extractEmail(text string) string {
	return emailPattern.FindString(text)
}

func extractName(text string) string {
	trimmed := strings.TrimSpace(text)
	wordCount := len(strings.Fields(trimmed))

	for _, p := range namePatterns {
		if p.fallback && wordCount > fallbackWordLimit {
			continue
		}
		m := p.re.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		candidate := m[1]
		if _, blocked := nameBlocklist[strings.ToLower(candidate)]; blocked {
			continue
		}
		return titleCase(candidate)
	}
	return ""
}

func extractCompany(text string) string {
	for _, re := range companyPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		candidate := strings.TrimRight(strings.TrimSpace(m[1]), ".,!?;:")
		if candidate == "" {
			continue
		}
		firstWord := strings.ToLower(strings.Fields(candidate)[0])
		// An email-provider word means the "from" pattern caught the tail
		// of an email address, not an employer.
		if _, blocked := companyBlocklist[firstWord]; blocked {
			continue
		}
		return titleCase(candidate)
	}
	return ""
}

// titleCase uppercases the first letter of each word, preserving the rest
// ("acme corp" -> "Acme Corp", "O'Brien" stays intact).
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
