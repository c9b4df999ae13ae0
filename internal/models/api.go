package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"siachat-backend/internal/extract"
)

// MaxMessageLength caps inbound chat messages.
const MaxMessageLength = 5000

// --- Request Structs ---

// ChatRequest defines the body for the main chat endpoint.
// SessionID continues an existing conversation; the optional user fields
// seed a brand-new session (they never overwrite an existing one).
type ChatRequest struct {
	Message     string  `json:"message"`
	SessionID   *string `json:"session_id,omitempty"`
	UserName    *string `json:"user_name,omitempty"`
	UserEmail   *string `json:"user_email,omitempty"`
	CompanyName *string `json:"company_name,omitempty"`
	UserAgent   *string `json:"user_agent,omitempty"`
	IPAddress   *string `json:"ip_address,omitempty"`
}

// Validate checks the request before any state is touched. Returns a map
// of field name -> problem; empty map means valid.
func (r ChatRequest) Validate() map[string]string {
	details := map[string]string{}

	msg := strings.TrimSpace(r.Message)
	switch {
	case msg == "":
		details["message"] = "Message cannot be empty"
	case len(r.Message) > MaxMessageLength:
		details["message"] = "Message is too long (max 5000 characters)"
	}

	if r.SessionID != nil && *r.SessionID != "" {
		if _, err := uuid.Parse(*r.SessionID); err != nil {
			details["session_id"] = "session_id must be a valid UUID"
		}
	}

	if r.UserEmail != nil && *r.UserEmail != "" && !extract.ValidEmail(*r.UserEmail) {
		details["user_email"] = "user_email must be a valid email address"
	}

	return details
}

// ParsedSessionID returns the session UUID, or uuid.Nil when absent.
// Call Validate first; a malformed id is rejected there.
func (r ChatRequest) ParsedSessionID() uuid.UUID {
	if r.SessionID == nil || *r.SessionID == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(*r.SessionID)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// UpdateInfoRequest defines the body for the explicit out-of-band info
// update endpoint. Unlike the chat path, provided fields always overwrite.
type UpdateInfoRequest struct {
	SessionID   string  `json:"session_id"`
	UserName    *string `json:"user_name,omitempty"`
	UserEmail   *string `json:"user_email,omitempty"`
	UserPhone   *string `json:"user_phone,omitempty"`
	CompanyName *string `json:"company_name,omitempty"`
}

// Validate checks the update request.
func (r UpdateInfoRequest) Validate() map[string]string {
	details := map[string]string{}

	if r.SessionID == "" {
		details["session_id"] = "session_id is required"
	} else if _, err := uuid.Parse(r.SessionID); err != nil {
		details["session_id"] = "session_id must be a valid UUID"
	}

	if r.UserName == nil && r.UserEmail == nil && r.UserPhone == nil && r.CompanyName == nil {
		details["fields"] = "at least one field to update is required"
	}

	// A provided field must carry a value; a blank overwrite would mark
	// the fact as collected without collecting anything.
	for field, v := range map[string]*string{
		"user_name":    r.UserName,
		"user_email":   r.UserEmail,
		"user_phone":   r.UserPhone,
		"company_name": r.CompanyName,
	} {
		if v != nil && strings.TrimSpace(*v) == "" {
			details[field] = field + " cannot be blank"
		}
	}

	if r.UserEmail != nil && *r.UserEmail != "" && !extract.ValidEmail(*r.UserEmail) {
		details["user_email"] = "user_email must be a valid email address"
	}

	return details
}

// SessionActionRequest identifies the session for reset/close actions.
type SessionActionRequest struct {
	SessionID string `json:"session_id"`
}

// --- Response Structs ---

// ChatResponse is the composed reply for one chat turn.
type ChatResponse struct {
	Success          bool      `json:"success"`
	SessionID        uuid.UUID `json:"session_id"`
	Message          string    `json:"message"`
	Response         string    `json:"response"`
	Timestamp        time.Time `json:"timestamp"`
	ConversationStep Step      `json:"conversation_step"`
	NeedsInformation []string  `json:"needs_information"`
	SuggestedActions []string  `json:"suggested_actions"`
	ResponseTimeMs   int64     `json:"response_time_ms"`
}

// MessageResponse is the message shape embedded in session snapshots.
type MessageResponse struct {
	ID              int64       `json:"id"`
	MessageType     MessageType `json:"message_type"`
	Content         string      `json:"content"`
	Timestamp       time.Time   `json:"timestamp"`
	DetectedIntent  *string     `json:"detected_intent,omitempty"`
	ConfidenceScore *float64    `json:"confidence_score,omitempty"`
	ResponseTimeMs  *int64      `json:"response_time_ms,omitempty"`
}

// ContextResponse is the context snapshot embedded in session snapshots.
type ContextResponse struct {
	CurrentStep       Step     `json:"current_step"`
	HasName           bool     `json:"has_name"`
	HasEmail          bool     `json:"has_email"`
	HasCompany        bool     `json:"has_company"`
	PreferredProducts []string `json:"preferred_products"`
	PainPoints        []string `json:"pain_points"`
	AskedForDemo      bool     `json:"asked_for_demo"`
	AskedForPricing   bool     `json:"asked_for_pricing"`
	NeedsHumanHandoff bool     `json:"needs_human_handoff"`
}

// SessionResponse is the full session snapshot returned by GET session/{id}.
type SessionResponse struct {
	SessionID       uuid.UUID         `json:"session_id"`
	UserName        *string           `json:"user_name"`
	UserEmail       *string           `json:"user_email"`
	CompanyName     *string           `json:"company_name"`
	Status          SessionStatus     `json:"status"`
	CreatedAt       time.Time         `json:"created_at"`
	LastActivity    time.Time         `json:"last_activity"`
	TotalMessages   int               `json:"total_messages"`
	IsQualifiedLead bool              `json:"is_qualified_lead"`
	InterestedIn    []string          `json:"interested_in"`
	RecentMessages  []MessageResponse `json:"recent_messages"`
	Context         *ContextResponse  `json:"context,omitempty"`
}

// SessionInfoEnvelope wraps a snapshot in the standard success envelope.
type SessionInfoEnvelope struct {
	Success bool            `json:"success"`
	Session SessionResponse `json:"session"`
}

// ActionResponse acknowledges a state-changing action with no payload.
type ActionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
