package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"siachat-backend/internal/convo"
	"siachat-backend/internal/extract"
	"siachat-backend/internal/intent"
	"siachat-backend/internal/llm"
	"siachat-backend/internal/metrics"
	"siachat-backend/internal/models"
	"siachat-backend/internal/store"
	"siachat-backend/pkg/zlog"
)

// snapshotMessageLimit caps the recent messages embedded in a session
// snapshot.
const snapshotMessageLimit = 5

// ChatService orchestrates one chat turn: session resolution, intent
// classification, info extraction, context update, prompt assembly, model
// call and persistence. Each turn runs as a single unit under a
// per-session lock; a failure anywhere rolls the whole turn back.
type ChatService struct {
	store   store.Store
	backend llm.Backend
	prompts *llm.PromptBuilder
}

// NewChatService creates a new ChatService.
func NewChatService(st store.Store, backend llm.Backend, prompts *llm.PromptBuilder) *ChatService {
	return &ChatService{
		store:   st,
		backend: backend,
		prompts: prompts,
	}
}

// HandleMessage processes one inbound chat message and returns the
// composed reply. The request must already be validated.
func (s *ChatService) HandleMessage(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	start := time.Now()

	sessionID := req.ParsedSessionID()
	if sessionID == uuid.Nil {
		sessionID = uuid.New()
	}

	var (
		resp           *models.ChatResponse
		sessionCreated bool
		qualifiedNow   bool
		detected       intent.Intent
	)

	err := s.store.WithSessionLock(ctx, sessionID, func(ctx context.Context, st store.Store) error {
		sess, cc, created, err := s.resolveSession(ctx, st, sessionID, req)
		if err != nil {
			return err
		}
		sessionCreated = created

		in, confidence := intent.Detect(req.Message)
		detected = in

		// History is loaded before the live turn is appended, so the two
		// never overlap.
		history, err := st.ListRecentMessages(ctx, sessionID, s.prompts.HistoryLimit())
		if err != nil {
			return err
		}

		intentStr := string(in)
		userMsg, err := st.AppendMessage(ctx, store.AppendMessageParams{
			SessionID:       sessionID,
			MessageType:     models.MessageTypeUser,
			Content:         req.Message,
			DetectedIntent:  &intentStr,
			ConfidenceScore: &confidence,
		})
		if err != nil {
			return err
		}

		update := mergeExtractedInfo(sess, cc, extract.Extract(req.Message))

		convo.UpdateContext(cc, in, req.Message)

		if interests := mergeInterests(sess.InterestedIn, cc.PreferredProducts); interests != nil {
			update.InterestedIn = interests
			sess.InterestedIn = interests
		}

		cc.CurrentStep = convo.NextStep(cc, in)

		// Qualification is one-way and only moves an active session: once
		// qualified it stays qualified, and an archived or escalated
		// session never re-enters the funnel.
		if !sess.IsQualifiedLead && sess.Status == models.SessionStatusActive && convo.IsQualified(sess, cc) {
			qualified := true
			qualifiedStatus := models.SessionStatusQualified
			update.IsQualifiedLead = &qualified
			update.Status = &qualifiedStatus
			sess.IsQualifiedLead = true
			qualifiedNow = true
		}

		if cc.NeedsHumanHandoff && update.Status == nil && sess.Status == models.SessionStatusActive {
			escalated := models.SessionStatusEscalated
			update.Status = &escalated
		}

		update.MessageDelta = 2 // user turn plus the bot reply below
		update.TouchActivity = true
		if sess, err = st.UpdateSession(ctx, update); err != nil {
			return err
		}

		if err = st.SaveContext(ctx, cc); err != nil {
			return err
		}

		backendStart := time.Now()
		reply, err := s.backend.Generate(ctx, llm.Request{
			System:   s.prompts.SystemInstructions(),
			History:  s.prompts.BuildHistory(history),
			UserTurn: s.prompts.BuildUserTurn(req.Message, sess, cc),
		})
		metrics.BackendDuration.Observe(time.Since(backendStart).Seconds())
		if err != nil {
			metrics.BackendErrors.WithLabelValues(backendErrorKind(err)).Inc()
			return fmt.Errorf("generating reply: %w", err)
		}

		responseTime := time.Since(start).Milliseconds()
		model := s.backend.Model()
		if _, err = st.AppendMessage(ctx, store.AppendMessageParams{
			SessionID:       sessionID,
			MessageType:     models.MessageTypeBot,
			Content:         reply,
			ResponseTimeMs:  &responseTime,
			ModelUsed:       &model,
			ParentMessageID: &userMsg.ID,
		}); err != nil {
			return err
		}

		resp = &models.ChatResponse{
			Success:          true,
			SessionID:        sessionID,
			Message:          req.Message,
			Response:         reply,
			Timestamp:        time.Now().UTC(),
			ConversationStep: cc.CurrentStep,
			NeedsInformation: convo.MissingInfo(cc),
			SuggestedActions: convo.SuggestedActions(cc, in),
			ResponseTimeMs:   responseTime,
		}
		return nil
	})
	if err != nil {
		zlog.Error("chat turn failed", zap.Error(err), zap.String("session_id", sessionID.String()))
		return nil, err
	}

	metrics.MessagesTotal.WithLabelValues(string(detected)).Inc()
	metrics.TurnDuration.Observe(time.Since(start).Seconds())
	if sessionCreated {
		metrics.SessionsCreated.Inc()
	}
	if qualifiedNow {
		metrics.QualifiedLeads.Inc()
	}
	return resp, nil
}

// resolveSession loads the session and context, creating both when the id
// is new. Seed fields from the request only apply at creation; an unknown
// id silently starts a fresh session.
func (s *ChatService) resolveSession(ctx context.Context, st store.Store, sessionID uuid.UUID, req models.ChatRequest) (*models.ChatSession, *models.ConversationContext, bool, error) {
	sess, err := st.GetSession(ctx, sessionID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, nil, false, err
	}

	created := false
	if sess == nil {
		sess, err = st.CreateSession(ctx, store.CreateSessionParams{
			SessionID:   sessionID,
			UserName:    nonBlank(req.UserName),
			UserEmail:   nonBlank(req.UserEmail),
			CompanyName: nonBlank(req.CompanyName),
			IPAddress:   nonBlank(req.IPAddress),
			UserAgent:   nonBlank(req.UserAgent),
		})
		if err != nil {
			return nil, nil, false, err
		}
		created = true
	}

	cc, err := st.GetContext(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, nil, false, err
		}
		cc = &models.ConversationContext{
			SessionID:   sessionID,
			CurrentStep: models.StepGreeting,
		}
	}

	// The collected-info flags always mirror the session fields.
	cc.HasName = sess.UserName != nil
	cc.HasEmail = sess.UserEmail != nil
	cc.HasCompany = sess.CompanyName != nil

	return sess, cc, created, nil
}

// mergeExtractedInfo applies first-write-wins: an extracted fact only
// lands when the session does not hold that field yet. It returns the
// partial session update and flips the corresponding has_* flags.
func mergeExtractedInfo(sess *models.ChatSession, cc *models.ConversationContext, info extract.Info) store.UpdateSessionParams {
	update := store.UpdateSessionParams{SessionID: sess.SessionID}

	if info.Name != "" && sess.UserName == nil {
		update.UserName = &info.Name
		sess.UserName = &info.Name
		cc.HasName = true
	}
	if info.Email != "" && sess.UserEmail == nil {
		update.UserEmail = &info.Email
		sess.UserEmail = &info.Email
		cc.HasEmail = true
	}
	if info.Company != "" && sess.CompanyName == nil {
		update.CompanyName = &info.Company
		sess.CompanyName = &info.Company
		cc.HasCompany = true
	}
	return update
}

// mergeInterests unions the context's product tags into the session's
// interest list. Returns nil when nothing new appeared. Both inputs are
// sorted, so a plain length check detects growth.
func mergeInterests(current, preferred []string) []string {
	merged := append([]string(nil), current...)
	for _, tag := range preferred {
		found := false
		for _, have := range merged {
			if have == tag {
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, tag)
		}
	}
	if len(merged) == len(current) {
		return nil
	}
	sort.Strings(merged)
	return merged
}

func backendErrorKind(err error) string {
	switch {
	case errors.Is(err, llm.ErrMalformedResponse):
		return "malformed_response"
	default:
		return "unavailable"
	}
}

func nonBlank(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
