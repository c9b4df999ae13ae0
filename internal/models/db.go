package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the lifecycle state of a chat session.
// Transitions only move active -> {qualified, escalated, archived};
// archived is terminal. Sessions are never hard-deleted.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusQualified SessionStatus = "qualified"
	SessionStatusEscalated SessionStatus = "escalated"
	SessionStatusArchived  SessionStatus = "archived"
)

// Step is the current phase of the conversation flow. Ordering matters:
// the flow never moves a session to a lower-ranked step.
type Step string

const (
	StepGreeting          Step = "greeting"
	StepInfoCollection    Step = "info_collection"
	StepProductDiscussion Step = "product_discussion"
	StepQualification     Step = "qualification"
	StepDemoBooking       Step = "demo_booking"
	StepCompleted         Step = "completed"
)

// stepRank fixes the linear ordering of steps.
var stepRank = map[Step]int{
	StepGreeting:          0,
	StepInfoCollection:    1,
	StepProductDiscussion: 2,
	StepQualification:     3,
	StepDemoBooking:       4,
	StepCompleted:         5,
}

// Rank returns the position of s in the flow ordering. Unknown steps rank
// lowest so a corrupted value can only be moved forward.
func (s Step) Rank() int {
	return stepRank[s]
}

// MessageType distinguishes who produced a message.
type MessageType string

const (
	MessageTypeUser   MessageType = "user"
	MessageTypeBot    MessageType = "bot"
	MessageTypeSystem MessageType = "system"
)

// ChatSession represents one continuous visitor conversation.
// UserName, UserEmail, UserPhone and CompanyName are nullable and set at
// most once by the chat path; only the explicit update endpoint overwrites.
type ChatSession struct {
	SessionID       uuid.UUID     `db:"session_id"`
	UserName        *string       `db:"user_name"`
	UserEmail       *string       `db:"user_email"`
	UserPhone       *string       `db:"user_phone"`
	CompanyName     *string       `db:"company_name"`
	Status          SessionStatus `db:"status"`
	TotalMessages   int           `db:"total_messages"`
	IsQualifiedLead bool          `db:"is_qualified_lead"`
	InterestedIn    []string      `db:"interested_in"` // closed product-tag vocabulary, kept sorted
	IPAddress       *string       `db:"ip_address"`
	UserAgent       *string       `db:"user_agent"`
	CreatedAt       time.Time     `db:"created_at"`
	LastActivity    time.Time     `db:"last_activity"`
}

// ConversationContext is the derived per-session state, one-to-one with
// ChatSession. The has_* flags must always agree with the corresponding
// session fields; both are updated inside the same transaction.
type ConversationContext struct {
	SessionID         uuid.UUID `db:"session_id"`
	CurrentStep       Step      `db:"current_step"`
	HasName           bool      `db:"has_name"`
	HasEmail          bool      `db:"has_email"`
	HasCompany        bool      `db:"has_company"`
	PreferredProducts []string  `db:"preferred_products"`
	PainPoints        []string  `db:"pain_points"`
	TopicsDiscussed   []string  `db:"topics_discussed"`
	AskedForDemo      bool      `db:"asked_for_demo"`
	AskedForPricing   bool      `db:"asked_for_pricing"`
	NeedsHumanHandoff bool      `db:"needs_human_handoff"`
	Extra             map[string]string
	UpdatedAt         time.Time `db:"updated_at"`
}

// ChatMessage is one entry in a session's append-only message log,
// ordered by timestamp with id as tiebreaker.
type ChatMessage struct {
	ID              int64       `db:"id"`
	SessionID       uuid.UUID   `db:"session_id"`
	MessageType     MessageType `db:"message_type"`
	Content         string      `db:"content"`
	DetectedIntent  *string     `db:"detected_intent"`  // user messages only
	ConfidenceScore *float64    `db:"confidence_score"` // user messages only
	ResponseTimeMs  *int64      `db:"response_time_ms"` // bot messages only
	ModelUsed       *string     `db:"model_used"`       // bot messages only
	ParentMessageID *int64      `db:"parent_message_id"`
	Timestamp       time.Time   `db:"timestamp"`
}

// BotPerformanceMetrics is the per-session analytics rollup written once
// when a session is closed. Not consulted by the chat path.
type BotPerformanceMetrics struct {
	SessionID         uuid.UUID `db:"session_id"`
	AvgResponseTimeMs float64   `db:"avg_response_time_ms"`
	TotalMessages     int       `db:"total_messages"`
	WasEscalated      bool      `db:"was_escalated"`
	ConvertedToLead   bool      `db:"converted_to_lead"`
	DemoRequested     bool      `db:"demo_requested"`
	CreatedAt         time.Time `db:"created_at"`
}

// SessionStats is the aggregate view served to the admin surface.
type SessionStats struct {
	TotalSessions         int64   `json:"total_sessions"`
	ActiveSessions        int64   `json:"active_sessions"`
	QualifiedLeads        int64   `json:"qualified_leads"`
	AvgMessagesPerSession float64 `json:"avg_messages_per_session"`
	AvgResponseTimeMs     float64 `json:"avg_response_time_ms"`
	ConversionRate        float64 `json:"conversion_rate"`
}
