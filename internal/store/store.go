package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"siachat-backend/internal/models"
)

// ErrNotFound is returned when a specific record is not found.
var ErrNotFound = errors.New("record not found")

// CreateSessionParams contains parameters for creating a chat session.
// The optional visitor fields seed the session when the widget already
// knows them.
type CreateSessionParams struct {
	SessionID   uuid.UUID
	UserName    *string
	UserEmail   *string
	CompanyName *string
	IPAddress   *string
	UserAgent   *string
}

// UpdateSessionParams contains parameters for a partial session update.
// Nil pointers leave the column untouched; InterestedIn is replaced as a
// whole when non-nil. MessageDelta is added to total_messages.
type UpdateSessionParams struct {
	SessionID       uuid.UUID
	UserName        *string
	UserEmail       *string
	UserPhone       *string
	CompanyName     *string
	Status          *models.SessionStatus
	IsQualifiedLead *bool
	InterestedIn    []string
	MessageDelta    int
	TouchActivity   bool
}

// AppendMessageParams contains parameters for appending one message to a
// session's log.
type AppendMessageParams struct {
	SessionID       uuid.UUID
	MessageType     models.MessageType
	Content         string
	DetectedIntent  *string
	ConfidenceScore *float64
	ResponseTimeMs  *int64
	ModelUsed       *string
	ParentMessageID *int64
}

// Store defines the interface for database operations. It allows an
// in-memory double in tests and keeps services free of pgx details.
type Store interface {
	// Session operations
	CreateSession(ctx context.Context, arg CreateSessionParams) (*models.ChatSession, error)
	GetSession(ctx context.Context, sessionID uuid.UUID) (*models.ChatSession, error)
	UpdateSession(ctx context.Context, arg UpdateSessionParams) (*models.ChatSession, error)

	// Conversation context operations
	GetContext(ctx context.Context, sessionID uuid.UUID) (*models.ConversationContext, error)
	SaveContext(ctx context.Context, cc *models.ConversationContext) error

	// Message log operations
	AppendMessage(ctx context.Context, arg AppendMessageParams) (*models.ChatMessage, error)
	ListRecentMessages(ctx context.Context, sessionID uuid.UUID, limit int) ([]models.ChatMessage, error)

	// Analytics operations
	SavePerformanceRollup(ctx context.Context, m *models.BotPerformanceMetrics) error
	GetSessionStats(ctx context.Context) (*models.SessionStats, error)

	// WithSessionLock runs fn inside a unit that serializes concurrent
	// callers on the same session and commits or rolls back as a whole.
	// fn receives a Store bound to that unit.
	WithSessionLock(ctx context.Context, sessionID uuid.UUID, fn func(ctx context.Context, s Store) error) error
}
