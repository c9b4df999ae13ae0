package postgres

import (
	"context"
	"fmt"

	"siachat-backend/internal/models"
)

// --- Analytics Methods ---

const savePerformanceRollup = `-- name: SavePerformanceRollup :exec
INSERT INTO bot_performance_metrics (
    session_id, avg_response_time_ms, total_messages, was_escalated,
    converted_to_lead, demo_requested
) VALUES (
    $1, $2, $3, $4, $5, $6
)
ON CONFLICT (session_id) DO UPDATE SET
    avg_response_time_ms = EXCLUDED.avg_response_time_ms,
    total_messages = EXCLUDED.total_messages,
    was_escalated = EXCLUDED.was_escalated,
    converted_to_lead = EXCLUDED.converted_to_lead,
    demo_requested = EXCLUDED.demo_requested;
`

func (s *PostgresStore) SavePerformanceRollup(ctx context.Context, m *models.BotPerformanceMetrics) error {
	_, err := s.db.Exec(ctx, savePerformanceRollup,
		m.SessionID,
		m.AvgResponseTimeMs,
		m.TotalMessages,
		m.WasEscalated,
		m.ConvertedToLead,
		m.DemoRequested,
	)
	if err != nil {
		return fmt.Errorf("error saving performance rollup: %w", err)
	}
	return nil
}

const getSessionStats = `-- name: GetSessionStats :one
SELECT
    COUNT(*) AS total_sessions,
    COUNT(*) FILTER (WHERE status = 'active') AS active_sessions,
    COUNT(*) FILTER (WHERE is_qualified_lead) AS qualified_leads,
    COALESCE(AVG(total_messages), 0)::float8 AS avg_messages_per_session,
    COALESCE((
        SELECT AVG(response_time_ms)
        FROM chat_messages
        WHERE message_type = 'bot' AND response_time_ms IS NOT NULL
    ), 0)::float8 AS avg_response_time_ms,
    CASE
        WHEN COUNT(*) > 0 THEN COUNT(*) FILTER (WHERE is_qualified_lead)::float8 / COUNT(*)
        ELSE 0
    END AS conversion_rate
FROM chat_sessions;
`

func (s *PostgresStore) GetSessionStats(ctx context.Context) (*models.SessionStats, error) {
	row := s.db.QueryRow(ctx, getSessionStats)
	stats := &models.SessionStats{}
	err := row.Scan(
		&stats.TotalSessions,
		&stats.ActiveSessions,
		&stats.QualifiedLeads,
		&stats.AvgMessagesPerSession,
		&stats.AvgResponseTimeMs,
		&stats.ConversionRate,
	)
	if err != nil {
		return nil, fmt.Errorf("error scanning session stats: %w", err)
	}
	return stats, nil
}
