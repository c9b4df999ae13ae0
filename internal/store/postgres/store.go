package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"siachat-backend/internal/models"
	"siachat-backend/internal/store"
	"siachat-backend/pkg/zlog"
)

// Compile-time check to ensure PostgresStore implements store.Store
var _ store.Store = (*PostgresStore)(nil)

// dbConn is the subset of pgx shared by *pgxpool.Pool and pgx.Tx, so the
// same query methods serve both the pooled store and a transaction-bound
// one.
type dbConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresStore struct {
	db   dbConn
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: pool, pool: pool}
}

// WithSessionLock begins a transaction, takes a per-session advisory lock
// and runs fn over a transaction-bound store. Concurrent units for the
// same session serialize on the lock; the lock releases with the
// transaction. Any error from fn rolls the whole unit back.
func (s *PostgresStore) WithSessionLock(ctx context.Context, sessionID uuid.UUID, fn func(ctx context.Context, st store.Store) error) error {
	if s.pool == nil {
		return errors.New("nested session lock")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			zlog.Warn("transaction rollback failed", zap.Error(rbErr), zap.String("session_id", sessionID.String()))
		}
	}()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, sessionID); err != nil {
		return fmt.Errorf("acquire session lock: %w", err)
	}

	if err := fn(ctx, &PostgresStore{db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// --- Session Methods ---

const sessionColumns = `session_id, user_name, user_email, user_phone, company_name, status, total_messages, is_qualified_lead, interested_in, ip_address, user_agent, created_at, last_activity`

const createSession = `-- name: CreateSession :one
INSERT INTO chat_sessions (
    session_id, user_name, user_email, company_name, ip_address, user_agent
) VALUES (
    $1, $2, $3, $4, $5, $6
)
RETURNING ` + sessionColumns + `;
`

func (s *PostgresStore) CreateSession(ctx context.Context, arg store.CreateSessionParams) (*models.ChatSession, error) {
	row := s.db.QueryRow(ctx, createSession,
		arg.SessionID,
		arg.UserName, // pgx handles *string to NULL automatically
		arg.UserEmail,
		arg.CompanyName,
		arg.IPAddress,
		arg.UserAgent,
	)
	sess, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("error creating session: %w", err)
	}
	return sess, nil
}

const getSession = `-- name: GetSession :one
SELECT ` + sessionColumns + `
FROM chat_sessions
WHERE session_id = $1;
`

func (s *PostgresStore) GetSession(ctx context.Context, sessionID uuid.UUID) (*models.ChatSession, error) {
	sess, err := scanSession(s.db.QueryRow(ctx, getSession, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("error scanning session: %w", err)
	}
	return sess, nil
}

// UpdateSession builds the query dynamically based on which fields are
// provided.
func (s *PostgresStore) UpdateSession(ctx context.Context, arg store.UpdateSessionParams) (*models.ChatSession, error) {
	setClauses := []string{}
	args := []any{}
	argID := 1

	addClause := func(column string, value any) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argID))
		args = append(args, value)
		argID++
	}

	if arg.UserName != nil {
		addClause("user_name", *arg.UserName)
	}
	if arg.UserEmail != nil {
		addClause("user_email", *arg.UserEmail)
	}
	if arg.UserPhone != nil {
		addClause("user_phone", *arg.UserPhone)
	}
	if arg.CompanyName != nil {
		addClause("company_name", *arg.CompanyName)
	}
	if arg.Status != nil {
		addClause("status", string(*arg.Status))
	}
	if arg.IsQualifiedLead != nil {
		addClause("is_qualified_lead", *arg.IsQualifiedLead)
	}
	if arg.InterestedIn != nil {
		addClause("interested_in", arg.InterestedIn)
	}
	if arg.MessageDelta != 0 {
		setClauses = append(setClauses, fmt.Sprintf("total_messages = total_messages + $%d", argID))
		args = append(args, arg.MessageDelta)
		argID++
	}
	if arg.TouchActivity {
		setClauses = append(setClauses, "last_activity = NOW()")
	}

	if len(setClauses) == 0 {
		return s.GetSession(ctx, arg.SessionID)
	}

	args = append(args, arg.SessionID)
	query := fmt.Sprintf(`-- name: UpdateSession :one
		UPDATE chat_sessions
		SET %s
		WHERE session_id = $%d
		RETURNING `+sessionColumns+`;`,
		strings.Join(setClauses, ", "),
		argID,
	)

	sess, err := scanSession(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("error scanning updated session: %w", err)
	}
	return sess, nil
}

func scanSession(row pgx.Row) (*models.ChatSession, error) {
	sess := &models.ChatSession{}
	err := row.Scan(
		&sess.SessionID,
		&sess.UserName,
		&sess.UserEmail,
		&sess.UserPhone,
		&sess.CompanyName,
		&sess.Status,
		&sess.TotalMessages,
		&sess.IsQualifiedLead,
		&sess.InterestedIn,
		&sess.IPAddress,
		&sess.UserAgent,
		&sess.CreatedAt,
		&sess.LastActivity,
	)
	if err != nil {
		return nil, err
	}
	return sess, nil
}
