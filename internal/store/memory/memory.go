// Package memory provides an in-memory store.Store used by tests and
// local development. The store mutex is held for the whole of each unit,
// so units are serialized exactly like the advisory-lock transactions of
// the durable store, with snapshot-restore standing in for rollback.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"siachat-backend/internal/models"
	"siachat-backend/internal/store"
)

var _ store.Store = (*MemoryStore)(nil)
var _ store.Store = (*unitStore)(nil)

type MemoryStore struct {
	mu        sync.Mutex
	sessions  map[uuid.UUID]*models.ChatSession
	contexts  map[uuid.UUID]*models.ConversationContext
	messages  map[uuid.UUID][]models.ChatMessage
	rollups   map[uuid.UUID]*models.BotPerformanceMetrics
	nextMsgID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[uuid.UUID]*models.ChatSession),
		contexts: make(map[uuid.UUID]*models.ConversationContext),
		messages: make(map[uuid.UUID][]models.ChatMessage),
		rollups:  make(map[uuid.UUID]*models.BotPerformanceMetrics),
	}
}

type snapshot struct {
	sessions  map[uuid.UUID]*models.ChatSession
	contexts  map[uuid.UUID]*models.ConversationContext
	messages  map[uuid.UUID][]models.ChatMessage
	rollups   map[uuid.UUID]*models.BotPerformanceMetrics
	nextMsgID int64
}

// WithSessionLock holds the store mutex for the entire unit and restores
// the pre-unit snapshot when fn fails. fn receives an unlocked view, so
// it must only use the store it is given, never the outer one.
func (m *MemoryStore) WithSessionLock(ctx context.Context, sessionID uuid.UUID, fn func(ctx context.Context, s store.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshotLocked()
	if err := fn(ctx, &unitStore{m: m}); err != nil {
		m.restoreLocked(snap)
		return err
	}
	return nil
}

func (m *MemoryStore) snapshotLocked() snapshot {
	snap := snapshot{
		sessions:  make(map[uuid.UUID]*models.ChatSession, len(m.sessions)),
		contexts:  make(map[uuid.UUID]*models.ConversationContext, len(m.contexts)),
		messages:  make(map[uuid.UUID][]models.ChatMessage, len(m.messages)),
		rollups:   make(map[uuid.UUID]*models.BotPerformanceMetrics, len(m.rollups)),
		nextMsgID: m.nextMsgID,
	}
	for id, s := range m.sessions {
		snap.sessions[id] = cloneSession(s)
	}
	for id, c := range m.contexts {
		snap.contexts[id] = cloneContext(c)
	}
	for id, msgs := range m.messages {
		snap.messages[id] = append([]models.ChatMessage(nil), msgs...)
	}
	for id, r := range m.rollups {
		cp := *r
		snap.rollups[id] = &cp
	}
	return snap
}

func (m *MemoryStore) restoreLocked(snap snapshot) {
	m.sessions = snap.sessions
	m.contexts = snap.contexts
	m.messages = snap.messages
	m.rollups = snap.rollups
	m.nextMsgID = snap.nextMsgID
}

func (m *MemoryStore) CreateSession(ctx context.Context, arg store.CreateSessionParams) (*models.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createSession(arg)
}

func (m *MemoryStore) GetSession(ctx context.Context, sessionID uuid.UUID) (*models.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getSession(sessionID)
}

func (m *MemoryStore) UpdateSession(ctx context.Context, arg store.UpdateSessionParams) (*models.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateSession(arg)
}

func (m *MemoryStore) GetContext(ctx context.Context, sessionID uuid.UUID) (*models.ConversationContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getContext(sessionID)
}

func (m *MemoryStore) SaveContext(ctx context.Context, cc *models.ConversationContext) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveContext(cc)
}

func (m *MemoryStore) AppendMessage(ctx context.Context, arg store.AppendMessageParams) (*models.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendMessage(arg)
}

func (m *MemoryStore) ListRecentMessages(ctx context.Context, sessionID uuid.UUID, limit int) ([]models.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listRecentMessages(sessionID, limit)
}

func (m *MemoryStore) SavePerformanceRollup(ctx context.Context, r *models.BotPerformanceMetrics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.savePerformanceRollup(r)
}

func (m *MemoryStore) GetSessionStats(ctx context.Context) (*models.SessionStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getSessionStats()
}

// Rollup returns the stored rollup for a session, for test assertions.
func (m *MemoryStore) Rollup(sessionID uuid.UUID) (*models.BotPerformanceMetrics, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rollups[sessionID]
	if !ok {
		return nil, false
	}
	cp := *r
	return &cp, true
}

// unitStore is the view handed to a unit's fn. The outer WithSessionLock
// already holds the store mutex, so these methods must not lock again.
type unitStore struct {
	m *MemoryStore
}

func (u *unitStore) WithSessionLock(ctx context.Context, sessionID uuid.UUID, fn func(ctx context.Context, s store.Store) error) error {
	return errors.New("nested session lock")
}

func (u *unitStore) CreateSession(ctx context.Context, arg store.CreateSessionParams) (*models.ChatSession, error) {
	return u.m.createSession(arg)
}

func (u *unitStore) GetSession(ctx context.Context, sessionID uuid.UUID) (*models.ChatSession, error) {
	return u.m.getSession(sessionID)
}

func (u *unitStore) UpdateSession(ctx context.Context, arg store.UpdateSessionParams) (*models.ChatSession, error) {
	return u.m.updateSession(arg)
}

func (u *unitStore) GetContext(ctx context.Context, sessionID uuid.UUID) (*models.ConversationContext, error) {
	return u.m.getContext(sessionID)
}

func (u *unitStore) SaveContext(ctx context.Context, cc *models.ConversationContext) error {
	return u.m.saveContext(cc)
}

func (u *unitStore) AppendMessage(ctx context.Context, arg store.AppendMessageParams) (*models.ChatMessage, error) {
	return u.m.appendMessage(arg)
}

func (u *unitStore) ListRecentMessages(ctx context.Context, sessionID uuid.UUID, limit int) ([]models.ChatMessage, error) {
	return u.m.listRecentMessages(sessionID, limit)
}

func (u *unitStore) SavePerformanceRollup(ctx context.Context, r *models.BotPerformanceMetrics) error {
	return u.m.savePerformanceRollup(r)
}

func (u *unitStore) GetSessionStats(ctx context.Context) (*models.SessionStats, error) {
	return u.m.getSessionStats()
}

func (m *MemoryStore) createSession(arg store.CreateSessionParams) (*models.ChatSession, error) {
	now := time.Now()
	sess := &models.ChatSession{
		SessionID:    arg.SessionID,
		UserName:     arg.UserName,
		UserEmail:    arg.UserEmail,
		CompanyName:  arg.CompanyName,
		Status:       models.SessionStatusActive,
		InterestedIn: []string{},
		IPAddress:    arg.IPAddress,
		UserAgent:    arg.UserAgent,
		CreatedAt:    now,
		LastActivity: now,
	}
	m.sessions[arg.SessionID] = sess
	return cloneSession(sess), nil
}

func (m *MemoryStore) getSession(sessionID uuid.UUID) (*models.ChatSession, error) {
	sess, ok := m.sessions[sessionID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneSession(sess), nil
}

func (m *MemoryStore) updateSession(arg store.UpdateSessionParams) (*models.ChatSession, error) {
	sess, ok := m.sessions[arg.SessionID]
	if !ok {
		return nil, store.ErrNotFound
	}

	if arg.UserName != nil {
		sess.UserName = arg.UserName
	}
	if arg.UserEmail != nil {
		sess.UserEmail = arg.UserEmail
	}
	if arg.UserPhone != nil {
		sess.UserPhone = arg.UserPhone
	}
	if arg.CompanyName != nil {
		sess.CompanyName = arg.CompanyName
	}
	if arg.Status != nil {
		sess.Status = *arg.Status
	}
	if arg.IsQualifiedLead != nil {
		sess.IsQualifiedLead = *arg.IsQualifiedLead
	}
	if arg.InterestedIn != nil {
		sess.InterestedIn = append([]string(nil), arg.InterestedIn...)
	}
	sess.TotalMessages += arg.MessageDelta
	if arg.TouchActivity {
		sess.LastActivity = time.Now()
	}
	return cloneSession(sess), nil
}

func (m *MemoryStore) getContext(sessionID uuid.UUID) (*models.ConversationContext, error) {
	cc, ok := m.contexts[sessionID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneContext(cc), nil
}

func (m *MemoryStore) saveContext(cc *models.ConversationContext) error {
	cp := cloneContext(cc)
	cp.UpdatedAt = time.Now()
	m.contexts[cc.SessionID] = cp
	return nil
}

func (m *MemoryStore) appendMessage(arg store.AppendMessageParams) (*models.ChatMessage, error) {
	m.nextMsgID++
	msg := models.ChatMessage{
		ID:              m.nextMsgID,
		SessionID:       arg.SessionID,
		MessageType:     arg.MessageType,
		Content:         arg.Content,
		DetectedIntent:  arg.DetectedIntent,
		ConfidenceScore: arg.ConfidenceScore,
		ResponseTimeMs:  arg.ResponseTimeMs,
		ModelUsed:       arg.ModelUsed,
		ParentMessageID: arg.ParentMessageID,
		Timestamp:       time.Now(),
	}
	m.messages[arg.SessionID] = append(m.messages[arg.SessionID], msg)
	cp := msg
	return &cp, nil
}

func (m *MemoryStore) listRecentMessages(sessionID uuid.UUID, limit int) ([]models.ChatMessage, error) {
	msgs := m.messages[sessionID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return append([]models.ChatMessage(nil), msgs...), nil
}

func (m *MemoryStore) savePerformanceRollup(r *models.BotPerformanceMetrics) error {
	cp := *r
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	m.rollups[r.SessionID] = &cp
	return nil
}

func (m *MemoryStore) getSessionStats() (*models.SessionStats, error) {
	stats := &models.SessionStats{}
	var totalMsgs int64
	for _, sess := range m.sessions {
		stats.TotalSessions++
		if sess.Status == models.SessionStatusActive {
			stats.ActiveSessions++
		}
		if sess.IsQualifiedLead {
			stats.QualifiedLeads++
		}
		totalMsgs += int64(sess.TotalMessages)
	}

	var botMsgs, botTime int64
	for _, msgs := range m.messages {
		for _, msg := range msgs {
			if msg.MessageType == models.MessageTypeBot && msg.ResponseTimeMs != nil {
				botMsgs++
				botTime += *msg.ResponseTimeMs
			}
		}
	}

	if stats.TotalSessions > 0 {
		stats.AvgMessagesPerSession = float64(totalMsgs) / float64(stats.TotalSessions)
		stats.ConversionRate = float64(stats.QualifiedLeads) / float64(stats.TotalSessions)
	}
	if botMsgs > 0 {
		stats.AvgResponseTimeMs = float64(botTime) / float64(botMsgs)
	}
	return stats, nil
}

func cloneSession(s *models.ChatSession) *models.ChatSession {
	cp := *s
	cp.InterestedIn = append([]string(nil), s.InterestedIn...)
	return &cp
}

func cloneContext(c *models.ConversationContext) *models.ConversationContext {
	cp := *c
	cp.PreferredProducts = append([]string(nil), c.PreferredProducts...)
	cp.PainPoints = append([]string(nil), c.PainPoints...)
	cp.TopicsDiscussed = append([]string(nil), c.TopicsDiscussed...)
	if c.Extra != nil {
		cp.Extra = make(map[string]string, len(c.Extra))
		for k, v := range c.Extra {
			cp.Extra[k] = v
		}
	}
	return &cp
}
