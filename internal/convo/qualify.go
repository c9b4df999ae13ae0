package convo

import (
	"siachat-backend/internal/models"
)

// IsQualified is the strict lead-qualification policy: the visitor has
// shared name, email and company, and has shown buying interest (asked for
// a demo, asked about pricing, or named at least one product).
//
// This is a fixed contract; qualification outcomes feed sales routing, so
// the policy must not drift between deployments. Once the orchestrator
// marks a session qualified it never reverts, regardless of what this
// predicate returns on later turns.
func IsQualified(session *models.ChatSession, ctx *models.ConversationContext) bool {
	if !ctx.HasName || !ctx.HasEmail || !ctx.HasCompany {
		return false
	}
	return ctx.AskedForDemo || ctx.AskedForPricing || len(session.InterestedIn) > 0
}
