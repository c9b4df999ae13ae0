// Package convo holds the conversation state machine: step transitions,
// missing-information computation, context updates from detected intents,
// and the lead-qualification predicate. Everything here is pure over the
// in-memory context; persistence is the orchestrator's job.
package convo

import (
	"sort"
	"strings"
	"unicode"

	"siachat-backend/internal/intent"
	"siachat-backend/internal/models"
)

// ProductTags is the closed vocabulary of interest tags.
var ProductTags = []string{"ARGO", "CONSUELO", "MARK"}

// painTriggers are obstacle phrases recorded as pain points when they show
// up in a user message.
var painTriggers = []string{
	"manual", "time-consuming", "too slow", "bottleneck", "struggling",
	"struggle", "overwhelmed", "tedious", "error-prone", "losing leads",
}

// MissingInfo returns the required fields not yet collected, in a fixed
// order. Name and email are always required; company only becomes required
// once a demo has been requested.
func MissingInfo(ctx *models.ConversationContext) []string {
	missing := []string{}
	if !ctx.HasName {
		missing = append(missing, "name")
	}
	if !ctx.HasEmail {
		missing = append(missing, "email")
	}
	if ctx.AskedForDemo && !ctx.HasCompany {
		missing = append(missing, "company")
	}
	return missing
}

// UpdateContext folds a newly classified message into the context: intent
// flags, product interests, pain points and discussed topics. It does not
// touch the collected-info flags or the step; those are owned by the
// extraction merge and NextStep respectively.
func UpdateContext(ctx *models.ConversationContext, in intent.Intent, message string) {
	switch in {
	case intent.DemoRequest:
		ctx.AskedForDemo = true
	case intent.PricingInquiry:
		ctx.AskedForPricing = true
	case intent.TechnicalQuestion:
		// A second technical question flags the session for a human.
		if containsString(ctx.TopicsDiscussed, string(intent.TechnicalQuestion)) {
			ctx.NeedsHumanHandoff = true
		}
	}

	switch in {
	case intent.DemoRequest, intent.PricingInquiry, intent.ProductInquiry, intent.TechnicalQuestion:
		ctx.TopicsDiscussed = appendUnique(ctx.TopicsDiscussed, string(in))
	}

	lowered := strings.ToLower(message)
	words := wordSet(lowered)
	for _, tag := range ProductTags {
		if _, ok := words[strings.ToLower(tag)]; ok {
			ctx.PreferredProducts = appendUnique(ctx.PreferredProducts, tag)
		}
	}
	sort.Strings(ctx.PreferredProducts)

	for _, trigger := range painTriggers {
		if strings.Contains(lowered, trigger) {
			ctx.PainPoints = appendUnique(ctx.PainPoints, trigger)
		}
	}
}

// NextStep recomputes the conversation step from the current facts and the
// newly detected intent. It is idempotent and never returns a step ranked
// below the current one: transitions are recomputed every turn, not
// followed blindly.
func NextStep(ctx *models.ConversationContext, in intent.Intent) models.Step {
	candidate := models.StepProductDiscussion
	switch {
	case !ctx.HasName || !ctx.HasEmail:
		candidate = models.StepInfoCollection
	case ctx.AskedForDemo && ctx.HasCompany:
		candidate = models.StepDemoBooking
	case ctx.AskedForPricing && ctx.HasCompany && !ctx.AskedForDemo:
		candidate = models.StepQualification
	}

	if in == intent.Goodbye && ctx.CurrentStep.Rank() >= models.StepDemoBooking.Rank() {
		candidate = models.StepCompleted
	}

	if ctx.CurrentStep.Rank() > candidate.Rank() {
		return ctx.CurrentStep
	}
	return candidate
}

func appendUnique(list []string, v string) []string {
	if containsString(list, v) {
		return list
	}
	return append(list, v)
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// wordSet tokenizes for whole-word product matching so "marketing" does
// not count as interest in MARK.
func wordSet(lowered string) map[string]struct{} {
	fields := strings.FieldsFunc(lowered, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
