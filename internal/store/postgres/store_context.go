package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"siachat-backend/internal/models"
	"siachat-backend/internal/store"
)

// --- Conversation Context Methods ---

const contextColumns = `session_id, current_step, has_name, has_email, has_company, preferred_products, pain_points, topics_discussed, asked_for_demo, asked_for_pricing, needs_human_handoff, extra, updated_at`

const getContext = `-- name: GetContext :one
SELECT ` + contextColumns + `
FROM conversation_contexts
WHERE session_id = $1;
`

func (s *PostgresStore) GetContext(ctx context.Context, sessionID uuid.UUID) (*models.ConversationContext, error) {
	row := s.db.QueryRow(ctx, getContext, sessionID)
	cc := &models.ConversationContext{}
	err := row.Scan(
		&cc.SessionID,
		&cc.CurrentStep,
		&cc.HasName,
		&cc.HasEmail,
		&cc.HasCompany,
		&cc.PreferredProducts,
		&cc.PainPoints,
		&cc.TopicsDiscussed,
		&cc.AskedForDemo,
		&cc.AskedForPricing,
		&cc.NeedsHumanHandoff,
		&cc.Extra,
		&cc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("error scanning conversation context: %w", err)
	}
	return cc, nil
}

const saveContext = `-- name: SaveContext :exec
INSERT INTO conversation_contexts (
    session_id, current_step, has_name, has_email, has_company,
    preferred_products, pain_points, topics_discussed,
    asked_for_demo, asked_for_pricing, needs_human_handoff, extra, updated_at
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW()
)
ON CONFLICT (session_id) DO UPDATE SET
    current_step = EXCLUDED.current_step,
    has_name = EXCLUDED.has_name,
    has_email = EXCLUDED.has_email,
    has_company = EXCLUDED.has_company,
    preferred_products = EXCLUDED.preferred_products,
    pain_points = EXCLUDED.pain_points,
    topics_discussed = EXCLUDED.topics_discussed,
    asked_for_demo = EXCLUDED.asked_for_demo,
    asked_for_pricing = EXCLUDED.asked_for_pricing,
    needs_human_handoff = EXCLUDED.needs_human_handoff,
    extra = EXCLUDED.extra,
    updated_at = NOW();
`

// SaveContext writes the context row as a whole. The context is small and
// rewritten once per turn, so a full upsert is simpler than field diffs.
func (s *PostgresStore) SaveContext(ctx context.Context, cc *models.ConversationContext) error {
	extra := cc.Extra
	if extra == nil {
		extra = map[string]string{}
	}

	_, err := s.db.Exec(ctx, saveContext,
		cc.SessionID,
		string(cc.CurrentStep),
		cc.HasName,
		cc.HasEmail,
		cc.HasCompany,
		cc.PreferredProducts,
		cc.PainPoints,
		cc.TopicsDiscussed,
		cc.AskedForDemo,
		cc.AskedForPricing,
		cc.NeedsHumanHandoff,
		extra,
	)
	if err != nil {
		return fmt.Errorf("error saving conversation context: %w", err)
	}
	return nil
}
