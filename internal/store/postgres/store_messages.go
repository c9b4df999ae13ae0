package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"siachat-backend/internal/models"
	"siachat-backend/internal/store"
)

// --- Message Log Methods ---

const messageColumns = `id, session_id, message_type, content, detected_intent, confidence_score, response_time_ms, model_used, parent_message_id, timestamp`

const appendMessage = `-- name: AppendMessage :one
INSERT INTO chat_messages (
    session_id, message_type, content, detected_intent, confidence_score,
    response_time_ms, model_used, parent_message_id
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8
)
RETURNING ` + messageColumns + `;
`

func (s *PostgresStore) AppendMessage(ctx context.Context, arg store.AppendMessageParams) (*models.ChatMessage, error) {
	row := s.db.QueryRow(ctx, appendMessage,
		arg.SessionID,
		string(arg.MessageType),
		arg.Content,
		arg.DetectedIntent,
		arg.ConfidenceScore,
		arg.ResponseTimeMs,
		arg.ModelUsed,
		arg.ParentMessageID,
	)

	msg := &models.ChatMessage{}
	err := row.Scan(
		&msg.ID,
		&msg.SessionID,
		&msg.MessageType,
		&msg.Content,
		&msg.DetectedIntent,
		&msg.ConfidenceScore,
		&msg.ResponseTimeMs,
		&msg.ModelUsed,
		&msg.ParentMessageID,
		&msg.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("error appending message: %w", err)
	}
	return msg, nil
}

const listRecentMessages = `-- name: ListRecentMessages :many
SELECT ` + messageColumns + `
FROM (
    SELECT ` + messageColumns + `
    FROM chat_messages
    WHERE session_id = $1
    ORDER BY id DESC
    LIMIT NULLIF($2::int, 0)
) recent
ORDER BY id ASC;
`

// ListRecentMessages returns the last limit messages for a session in
// chronological order. A limit of zero returns the whole log.
func (s *PostgresStore) ListRecentMessages(ctx context.Context, sessionID uuid.UUID, limit int) ([]models.ChatMessage, error) {
	rows, err := s.db.Query(ctx, listRecentMessages, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying messages: %w", err)
	}
	defer rows.Close()

	var items []models.ChatMessage
	for rows.Next() {
		var msg models.ChatMessage
		if err := rows.Scan(
			&msg.ID,
			&msg.SessionID,
			&msg.MessageType,
			&msg.Content,
			&msg.DetectedIntent,
			&msg.ConfidenceScore,
			&msg.ResponseTimeMs,
			&msg.ModelUsed,
			&msg.ParentMessageID,
			&msg.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("error scanning message row: %w", err)
		}
		items = append(items, msg)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message rows: %w", err)
	}

	return items, nil
}
