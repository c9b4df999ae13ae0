package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"siachat-backend/internal/metrics"
	"siachat-backend/internal/models"
	"siachat-backend/internal/store"
)

// UpdateInfo applies the out-of-band info update. Unlike the in-chat
// extraction merge, provided fields always overwrite. Returns
// store.ErrNotFound for an unknown session.
func (s *ChatService) UpdateInfo(ctx context.Context, req models.UpdateInfoRequest) (*models.ChatSession, error) {
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		return nil, store.ErrNotFound
	}

	var updated *models.ChatSession
	err = s.store.WithSessionLock(ctx, sessionID, func(ctx context.Context, st store.Store) error {
		if _, err := st.GetSession(ctx, sessionID); err != nil {
			return err
		}

		sess, err := st.UpdateSession(ctx, store.UpdateSessionParams{
			SessionID:     sessionID,
			UserName:      req.UserName,
			UserEmail:     req.UserEmail,
			UserPhone:     req.UserPhone,
			CompanyName:   req.CompanyName,
			TouchActivity: true,
		})
		if err != nil {
			return err
		}
		updated = sess

		cc, err := st.GetContext(ctx, sessionID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			return err
		}
		cc.HasName = sess.UserName != nil
		cc.HasEmail = sess.UserEmail != nil
		cc.HasCompany = sess.CompanyName != nil
		return st.SaveContext(ctx, cc)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// GetSessionInfo assembles the session snapshot: session row, context and
// the most recent messages.
func (s *ChatService) GetSessionInfo(ctx context.Context, sessionID uuid.UUID) (*models.SessionResponse, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	resp := &models.SessionResponse{
		SessionID:       sess.SessionID,
		UserName:        sess.UserName,
		UserEmail:       sess.UserEmail,
		CompanyName:     sess.CompanyName,
		Status:          sess.Status,
		CreatedAt:       sess.CreatedAt,
		LastActivity:    sess.LastActivity,
		TotalMessages:   sess.TotalMessages,
		IsQualifiedLead: sess.IsQualifiedLead,
		InterestedIn:    sess.InterestedIn,
		RecentMessages:  []models.MessageResponse{},
	}

	if cc, err := s.store.GetContext(ctx, sessionID); err == nil {
		resp.Context = &models.ContextResponse{
			CurrentStep:       cc.CurrentStep,
			HasName:           cc.HasName,
			HasEmail:          cc.HasEmail,
			HasCompany:        cc.HasCompany,
			PreferredProducts: cc.PreferredProducts,
			PainPoints:        cc.PainPoints,
			AskedForDemo:      cc.AskedForDemo,
			AskedForPricing:   cc.AskedForPricing,
			NeedsHumanHandoff: cc.NeedsHumanHandoff,
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	msgs, err := s.store.ListRecentMessages(ctx, sessionID, snapshotMessageLimit)
	if err != nil {
		return nil, err
	}
	for _, m := range msgs {
		resp.RecentMessages = append(resp.RecentMessages, models.MessageResponse{
			ID:              m.ID,
			MessageType:     m.MessageType,
			Content:         m.Content,
			Timestamp:       m.Timestamp,
			DetectedIntent:  m.DetectedIntent,
			ConfidenceScore: m.ConfidenceScore,
			ResponseTimeMs:  m.ResponseTimeMs,
		})
	}

	return resp, nil
}

// ResetSession archives the session so the next message starts a fresh
// one. The log and context are kept for analysis.
func (s *ChatService) ResetSession(ctx context.Context, sessionID uuid.UUID) error {
	return s.store.WithSessionLock(ctx, sessionID, func(ctx context.Context, st store.Store) error {
		archived := models.SessionStatusArchived
		_, err := st.UpdateSession(ctx, store.UpdateSessionParams{
			SessionID: sessionID,
			Status:    &archived,
		})
		return err
	})
}

// CloseSession archives the session and writes its performance rollup:
// average bot response time, escalation and conversion flags.
func (s *ChatService) CloseSession(ctx context.Context, sessionID uuid.UUID) error {
	err := s.store.WithSessionLock(ctx, sessionID, func(ctx context.Context, st store.Store) error {
		sess, err := st.GetSession(ctx, sessionID)
		if err != nil {
			return err
		}

		rollup := models.BotPerformanceMetrics{
			SessionID:       sessionID,
			TotalMessages:   sess.TotalMessages,
			ConvertedToLead: sess.IsQualifiedLead,
		}

		if cc, err := st.GetContext(ctx, sessionID); err == nil {
			rollup.WasEscalated = cc.NeedsHumanHandoff
			rollup.DemoRequested = cc.AskedForDemo
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		msgs, err := st.ListRecentMessages(ctx, sessionID, 0)
		if err != nil {
			return err
		}
		var botMsgs, botTime int64
		for _, m := range msgs {
			if m.MessageType == models.MessageTypeBot && m.ResponseTimeMs != nil {
				botMsgs++
				botTime += *m.ResponseTimeMs
			}
		}
		if botMsgs > 0 {
			rollup.AvgResponseTimeMs = float64(botTime) / float64(botMsgs)
		}

		if err := st.SavePerformanceRollup(ctx, &rollup); err != nil {
			return err
		}

		archived := models.SessionStatusArchived
		_, err = st.UpdateSession(ctx, store.UpdateSessionParams{
			SessionID: sessionID,
			Status:    &archived,
		})
		return err
	})
	if err != nil {
		return err
	}

	metrics.SessionsClosed.Inc()
	return nil
}
