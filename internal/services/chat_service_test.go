package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siachat-backend/internal/llm"
	"siachat-backend/internal/models"
	"siachat-backend/internal/store"
	"siachat-backend/internal/store/memory"
)

// stubBackend returns a canned reply and records the last request.
type stubBackend struct {
	reply   string
	err     error
	lastReq llm.Request
	calls   int
}

func (b *stubBackend) Generate(ctx context.Context, req llm.Request) (string, error) {
	b.calls++
	b.lastReq = req
	if b.err != nil {
		return "", b.err
	}
	return b.reply, nil
}

func (b *stubBackend) Model() string { return "stub-model" }

func newTestService(backend *stubBackend) (*ChatService, *memory.MemoryStore) {
	st := memory.NewMemoryStore()
	prompts := llm.NewPromptBuilder(llm.PromptConfig{
		DemoBookingURL:       "https://cal.example.com/sia-demo",
		FallbackContactEmail: "hello@example.com",
		HistoryLimit:         10,
	})
	return NewChatService(st, backend, prompts), st
}

func send(t *testing.T, svc *ChatService, sessionID *string, message string) *models.ChatResponse {
	t.Helper()
	resp, err := svc.HandleMessage(context.Background(), models.ChatRequest{
		Message:   message,
		SessionID: sessionID,
	})
	require.NoError(t, err)
	require.True(t, resp.Success)
	return resp
}

func TestHandleMessageNewSessionExtractsInfo(t *testing.T) {
	backend := &stubBackend{reply: "Nice to meet you, Jane!"}
	svc, st := newTestService(backend)

	resp := send(t, svc, nil, "Hi, I'm Jane. My email is jane@acme.com")

	assert.Equal(t, "Nice to meet you, Jane!", resp.Response)
	assert.NotEqual(t, uuid.Nil, resp.SessionID)
	assert.Equal(t, models.StepProductDiscussion, resp.ConversationStep)
	assert.Empty(t, resp.NeedsInformation)

	sess, err := st.GetSession(context.Background(), resp.SessionID)
	require.NoError(t, err)
	require.NotNil(t, sess.UserName)
	assert.Equal(t, "Jane", *sess.UserName)
	require.NotNil(t, sess.UserEmail)
	assert.Equal(t, "jane@acme.com", *sess.UserEmail)
	assert.Equal(t, 2, sess.TotalMessages)

	cc, err := st.GetContext(context.Background(), resp.SessionID)
	require.NoError(t, err)
	assert.True(t, cc.HasName)
	assert.True(t, cc.HasEmail)
	assert.False(t, cc.HasCompany)
}

func TestHandleMessageDemoFlowToQualification(t *testing.T) {
	backend := &stubBackend{reply: "Sure!"}
	svc, st := newTestService(backend)

	resp := send(t, svc, nil, "Hello, I'm Jane. My email is jane@acme.com")
	sid := resp.SessionID.String()

	// Demo requested before the company is known: company becomes
	// required and booking does not start yet.
	resp = send(t, svc, &sid, "Can I book a demo?")
	assert.Equal(t, []string{"company"}, resp.NeedsInformation)
	assert.NotEqual(t, models.StepDemoBooking, resp.ConversationStep)

	sess, err := st.GetSession(context.Background(), resp.SessionID)
	require.NoError(t, err)
	assert.False(t, sess.IsQualifiedLead)

	// Supplying the company completes the facts: booking starts and the
	// lead qualifies.
	resp = send(t, svc, &sid, "I work at Acme Corp")
	assert.Equal(t, models.StepDemoBooking, resp.ConversationStep)
	assert.Empty(t, resp.NeedsInformation)

	sess, err = st.GetSession(context.Background(), resp.SessionID)
	require.NoError(t, err)
	require.NotNil(t, sess.CompanyName)
	assert.Equal(t, "Acme Corp", *sess.CompanyName)
	assert.True(t, sess.IsQualifiedLead)
	assert.Equal(t, models.SessionStatusQualified, sess.Status)
}

func TestHandleMessageFirstWriteWins(t *testing.T) {
	backend := &stubBackend{reply: "ok"}
	svc, st := newTestService(backend)

	resp := send(t, svc, nil, "My name is Jane")
	sid := resp.SessionID.String()

	send(t, svc, &sid, "Actually my name is Bob")

	sess, err := st.GetSession(context.Background(), resp.SessionID)
	require.NoError(t, err)
	require.NotNil(t, sess.UserName)
	assert.Equal(t, "Jane", *sess.UserName)
}

func TestHandleMessageInterestUnion(t *testing.T) {
	backend := &stubBackend{reply: "ok"}
	svc, st := newTestService(backend)

	resp := send(t, svc, nil, "Tell me about MARK")
	sid := resp.SessionID.String()
	send(t, svc, &sid, "And what does ARGO do?")
	send(t, svc, &sid, "More about MARK please")

	sess, err := st.GetSession(context.Background(), resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, []string{"ARGO", "MARK"}, sess.InterestedIn)
}

func TestHandleMessageBackendFailureRollsBack(t *testing.T) {
	backend := &stubBackend{err: llm.ErrBackendUnavailable}
	svc, st := newTestService(backend)

	sid := uuid.New()
	sidStr := sid.String()
	_, err := svc.HandleMessage(context.Background(), models.ChatRequest{
		Message:   "hello there",
		SessionID: &sidStr,
	})

	require.Error(t, err)

	// Nothing from the failed turn survives, not even the session.
	_, err = st.GetSession(context.Background(), sid)
	assert.ErrorIs(t, err, store.ErrNotFound)
	msgs, err := st.ListRecentMessages(context.Background(), sid, 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestHandleMessageHistoryExcludesLiveTurn(t *testing.T) {
	backend := &stubBackend{reply: "ok"}
	svc, _ := newTestService(backend)

	resp := send(t, svc, nil, "first message")
	sid := resp.SessionID.String()
	send(t, svc, &sid, "second message")

	// The second call sees exactly the first exchange as history.
	require.Len(t, backend.lastReq.History, 2)
	assert.Equal(t, "first message", backend.lastReq.History[0].Content)
	assert.Equal(t, "ok", backend.lastReq.History[1].Content)
	assert.Contains(t, backend.lastReq.UserTurn, "second message")
	for _, turn := range backend.lastReq.History {
		assert.NotContains(t, turn.Content, "second message")
	}
}

func TestHandleMessageSeededSessionFieldsSetFlags(t *testing.T) {
	backend := &stubBackend{reply: "ok"}
	svc, st := newTestService(backend)

	name := "Jane"
	email := "jane@acme.com"
	resp, err := svc.HandleMessage(context.Background(), models.ChatRequest{
		Message:   "hello",
		UserName:  &name,
		UserEmail: &email,
	})
	require.NoError(t, err)

	cc, err := st.GetContext(context.Background(), resp.SessionID)
	require.NoError(t, err)
	assert.True(t, cc.HasName)
	assert.True(t, cc.HasEmail)
	assert.False(t, cc.HasCompany)
}

func TestUpdateInfoOverwritesAndMirrorsFlags(t *testing.T) {
	backend := &stubBackend{reply: "ok"}
	svc, st := newTestService(backend)

	resp := send(t, svc, nil, "My name is Jane")
	sid := resp.SessionID

	newName := "Janet"
	email := "janet@acme.com"
	sess, err := svc.UpdateInfo(context.Background(), models.UpdateInfoRequest{
		SessionID: sid.String(),
		UserName:  &newName,
		UserEmail: &email,
	})
	require.NoError(t, err)
	assert.Equal(t, "Janet", *sess.UserName)
	assert.Equal(t, "janet@acme.com", *sess.UserEmail)

	cc, err := st.GetContext(context.Background(), sid)
	require.NoError(t, err)
	assert.True(t, cc.HasName)
	assert.True(t, cc.HasEmail)
}

func TestUpdateInfoUnknownSession(t *testing.T) {
	svc, _ := newTestService(&stubBackend{reply: "ok"})

	name := "Jane"
	_, err := svc.UpdateInfo(context.Background(), models.UpdateInfoRequest{
		SessionID: uuid.New().String(),
		UserName:  &name,
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetSessionInfoSnapshot(t *testing.T) {
	backend := &stubBackend{reply: "ok"}
	svc, _ := newTestService(backend)

	resp := send(t, svc, nil, "Hi, I'm Jane. My email is jane@acme.com")
	sid := resp.SessionID.String()
	for i := 0; i < 4; i++ {
		send(t, svc, &sid, "tell me more")
	}

	snap, err := svc.GetSessionInfo(context.Background(), resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 10, snap.TotalMessages)
	assert.Len(t, snap.RecentMessages, 5)
	require.NotNil(t, snap.Context)
	assert.True(t, snap.Context.HasName)
}

func TestGetSessionInfoUnknownSession(t *testing.T) {
	svc, _ := newTestService(&stubBackend{reply: "ok"})

	_, err := svc.GetSessionInfo(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestResetSessionArchives(t *testing.T) {
	backend := &stubBackend{reply: "ok"}
	svc, st := newTestService(backend)

	resp := send(t, svc, nil, "hello")

	require.NoError(t, svc.ResetSession(context.Background(), resp.SessionID))

	sess, err := st.GetSession(context.Background(), resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusArchived, sess.Status)
}

func TestResetSessionUnknown(t *testing.T) {
	svc, _ := newTestService(&stubBackend{reply: "ok"})
	err := svc.ResetSession(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCloseSessionWritesRollup(t *testing.T) {
	backend := &stubBackend{reply: "ok"}
	svc, st := newTestService(backend)

	resp := send(t, svc, nil, "Hi, I'm Jane. My email is jane@acme.com")
	sid := resp.SessionID.String()
	send(t, svc, &sid, "Can I book a demo?")
	send(t, svc, &sid, "I work at Acme Corp")

	require.NoError(t, svc.CloseSession(context.Background(), resp.SessionID))

	sess, err := st.GetSession(context.Background(), resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusArchived, sess.Status)

	rollup, ok := st.Rollup(resp.SessionID)
	require.True(t, ok)
	assert.Equal(t, 6, rollup.TotalMessages)
	assert.True(t, rollup.ConvertedToLead)
	assert.True(t, rollup.DemoRequested)
	assert.False(t, rollup.WasEscalated)
	assert.GreaterOrEqual(t, rollup.AvgResponseTimeMs, float64(0))
}

func TestCloseSessionUnknown(t *testing.T) {
	svc, _ := newTestService(&stubBackend{reply: "ok"})
	err := svc.CloseSession(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestQualifiedNeverReverts(t *testing.T) {
	backend := &stubBackend{reply: "ok"}
	svc, st := newTestService(backend)

	resp := send(t, svc, nil, "Hi, I'm Jane. My email is jane@acme.com")
	sid := resp.SessionID.String()
	send(t, svc, &sid, "Can I book a demo?")
	send(t, svc, &sid, "I work at Acme Corp")

	sess, err := st.GetSession(context.Background(), resp.SessionID)
	require.NoError(t, err)
	require.True(t, sess.IsQualifiedLead)

	send(t, svc, &sid, "thanks, bye")

	sess, err = st.GetSession(context.Background(), resp.SessionID)
	require.NoError(t, err)
	assert.True(t, sess.IsQualifiedLead)
}

func TestArchivedSessionNeverQualifies(t *testing.T) {
	backend := &stubBackend{reply: "ok"}
	svc, st := newTestService(backend)

	resp := send(t, svc, nil, "Hi, I'm Jane. My email is jane@acme.com")
	sid := resp.SessionID.String()
	send(t, svc, &sid, "Can I book a demo?")

	require.NoError(t, svc.ResetSession(context.Background(), resp.SessionID))

	// A late turn on the archived session must not pull it back into the
	// funnel, even though it completes the qualification facts.
	send(t, svc, &sid, "I work at Acme Corp")

	sess, err := st.GetSession(context.Background(), resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusArchived, sess.Status)
	assert.False(t, sess.IsQualifiedLead)
}

func TestSecondTechnicalQuestionEscalates(t *testing.T) {
	backend := &stubBackend{reply: "ok"}
	svc, st := newTestService(backend)

	resp := send(t, svc, nil, "Does the API support webhooks?")
	sid := resp.SessionID.String()

	sess, err := st.GetSession(context.Background(), resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusActive, sess.Status)

	send(t, svc, &sid, "And how does the SSO integration work?")

	sess, err = st.GetSession(context.Background(), resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusEscalated, sess.Status)

	cc, err := st.GetContext(context.Background(), resp.SessionID)
	require.NoError(t, err)
	assert.True(t, cc.NeedsHumanHandoff)
}

func TestStatsServiceAggregates(t *testing.T) {
	backend := &stubBackend{reply: "ok"}
	svc, st := newTestService(backend)

	resp := send(t, svc, nil, "Hi, I'm Jane. My email is jane@acme.com")
	sid := resp.SessionID.String()
	send(t, svc, &sid, "Can I book a demo?")
	send(t, svc, &sid, "I work at Acme Corp")
	send(t, svc, nil, "just looking around")

	stats, err := NewStatsService(st).GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalSessions)
	assert.Equal(t, int64(1), stats.QualifiedLeads)
	assert.InDelta(t, 0.5, stats.ConversionRate, 1e-9)
	assert.InDelta(t, 4.0, stats.AvgMessagesPerSession, 1e-9)
}

func TestBackendErrorIsWrapped(t *testing.T) {
	backend := &stubBackend{err: errors.New("boom")}
	svc, _ := newTestService(backend)

	_, err := svc.HandleMessage(context.Background(), models.ChatRequest{Message: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generating reply")
}
