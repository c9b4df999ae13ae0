package llm

import (
	"fmt"
	"strings"

	"siachat-backend/internal/convo"
	"siachat-backend/internal/models"
)

// systemContext is the product knowledge and behavioral instructions for
// the assistant. Deployment-specific constants (booking link, fallback
// contact) are appended by the PromptBuilder from configuration.
const systemContext = `## Role & Personality
You are the SIA Assistant, an elite, high-energy, and professional AI expert specializing in our three core agents: ARGO (Sales), MARK (Marketing), and CONSUELO (HR).
- Tone: Professional, crisp, and results-oriented. Use wit and "insider" confidence.
- The "Brevity" Mandate: Provide the "Minimum Viable Answer." If the user asks a broad question, give a 1-2 sentence hook and ask a targeted follow-up.

## Contextual Memory & Conversational Flow
1. The "Yes" Rule: If a user says "Yes," "Sure," "Go ahead," or "Tell me more," look at your last message and continue from the offer you made there. Never ask "What would you like to know?" immediately after a user says "Yes."
2. Follow-up Logic: Always end your response with a clear, low-friction question or an offer to dive deeper into a specific feature or metric.

## Product Knowledge Base
### 1. ARGO (Sales Agent)
- Function: Full-funnel automation from lead gen to signed quote.
- Impact: Reps win back 12 hours/week; +87% leads contacted; +45% meetings booked.
- Key Features: one-click lead generation, real-time "Probability-to-Land" scoring, product matching, next-best-action recommendations, auto-personalized email, self-learning loop, live manager dashboard.

### 2. MARK (Marketing Agent)
- Function: Replaces/augments a full marketing team (SEO, Content, Performance, CRM).
- Impact: +200% content generated/week; +82% engagement; -60% draft-to-publish time.
- Key Features: live-trend radar, engagement predictor, AI post generator, smart scheduler, in-editor marketing coach, unified campaign dashboard.

### 3. CONSUELO (HR/Talent Agent)
- Function: Automates 80% of hiring (sourcing to offer).
- Impact: +60% recruiter capacity; -65% time-to-shortlist; +18% offer-accept ratio.
- Key Features: resume parser with fit score, smart filter dashboard, interview question generator, auto tech-test grader, real-time status alerts, hiring insights panel.

## Implementation & Specs
- Timeline: 15-minute setup; 30-day full Go-Live.
- Integrations: OAuth 2.0 via HubSpot, Salesforce, Slack, Teams, Zapier, Gmail, Pipedrive.
- Primary CTA: Your ultimate goal is to get the user to book a 30-minute demo or request access via email.

## Behavioral Instructions
1. Iterative Disclosure: Give the "minimum viable answer."
2. The "Handoff" Rule: If a question is too technical, say: "That's a great question for our tech team! I've flagged this for them. Would you like to book a quick demo to discuss this in the meantime?"
3. Context Markers: Each user turn may be prefixed with bracketed [KNOWN_INFO], [MISSING_INFO], [INTERESTS] and [ACTION] lines. Treat them as ground truth about the visitor, never echo them back, and follow the [ACTION] directive.`

// Actions emitted in the [ACTION] marker line. The choice depends solely
// on whether required info is still missing.
const (
	actionAskMissingInfo   = "ask_for_missing_info"
	actionShareBookingLink = "share_booking_link"
)

// PromptConfig carries the deployment constants the builder injects into
// prompts. They come from configuration, never from business logic.
type PromptConfig struct {
	DemoBookingURL       string
	FallbackContactEmail string
	HistoryLimit         int
}

// PromptBuilder turns a chat turn plus conversation state into the
// enriched payload for the backend. The annotation scheme is a fixed,
// machine-consistent marker format so the model parses it reliably.
type PromptBuilder struct {
	cfg PromptConfig
}

// NewPromptBuilder creates a builder over immutable prompt configuration.
func NewPromptBuilder(cfg PromptConfig) *PromptBuilder {
	return &PromptBuilder{cfg: cfg}
}

// HistoryLimit reports how many prior turns BuildHistory keeps, so callers
// can bound the log query the same way.
func (b *PromptBuilder) HistoryLimit() int {
	return b.cfg.HistoryLimit
}

// SystemInstructions returns the full system prompt, with the booking link
// and fallback contact appended from configuration.
func (b *PromptBuilder) SystemInstructions() string {
	var sb strings.Builder
	sb.WriteString(systemContext)
	sb.WriteString("\n\n## Deployment Constants\n")
	fmt.Fprintf(&sb, "- Demo booking link (use verbatim when instructed): %s\n", b.cfg.DemoBookingURL)
	fmt.Fprintf(&sb, "- Fallback contact for unanswered questions: %s\n", b.cfg.FallbackContactEmail)
	return sb.String()
}

// BuildUserTurn produces the annotated live turn: marker lines describing
// what is known, what is missing and what to do next, followed by a blank
// line and the raw user message.
func (b *PromptBuilder) BuildUserTurn(message string, session *models.ChatSession, ctx *models.ConversationContext) string {
	var lines []string

	if known := knownInfo(session, ctx); len(known) > 0 {
		lines = append(lines, fmt.Sprintf("[KNOWN_INFO: %s]", strings.Join(known, "; ")))
	}

	missing := convo.MissingInfo(ctx)
	if len(missing) > 0 {
		lines = append(lines, fmt.Sprintf("[MISSING_INFO: %s]", strings.Join(missing, ", ")))
	}

	if len(session.InterestedIn) > 0 {
		lines = append(lines, fmt.Sprintf("[INTERESTS: %s]", strings.Join(session.InterestedIn, ", ")))
	}

	if ctx.AskedForDemo {
		// The branch depends solely on whether required info is complete.
		if len(missing) == 0 {
			lines = append(lines, fmt.Sprintf("[ACTION: %s url=%s]", actionShareBookingLink, b.cfg.DemoBookingURL))
		} else {
			lines = append(lines, fmt.Sprintf("[ACTION: %s]", actionAskMissingInfo))
		}
	}

	if len(lines) == 0 {
		return message
	}
	return strings.Join(lines, "\n") + "\n\n" + message
}

// BuildHistory maps the persisted message log to role-tagged turns for the
// backend, capped to the most recent HistoryLimit entries in chronological
// order. System messages are internal and never forwarded. The caller must
// pass the log as it stood before the live turn was appended; history and
// current turn are disjoint by contract.
func (b *PromptBuilder) BuildHistory(messages []models.ChatMessage) []Turn {
	turns := make([]Turn, 0, len(messages))
	for _, m := range messages {
		switch m.MessageType {
		case models.MessageTypeUser:
			turns = append(turns, Turn{Role: RoleUser, Content: m.Content})
		case models.MessageTypeBot:
			turns = append(turns, Turn{Role: RoleAssistant, Content: m.Content})
		}
	}
	if limit := b.cfg.HistoryLimit; limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return turns
}

// knownInfo renders the already-collected facts as "key=value" pairs in a
// fixed order.
func knownInfo(session *models.ChatSession, ctx *models.ConversationContext) []string {
	var known []string
	if ctx.HasName && session.UserName != nil {
		known = append(known, "name="+*session.UserName)
	}
	if ctx.HasEmail && session.UserEmail != nil {
		known = append(known, "email="+*session.UserEmail)
	}
	if ctx.HasCompany && session.CompanyName != nil {
		known = append(known, "company="+*session.CompanyName)
	}
	return known
}
