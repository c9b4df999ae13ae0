package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"siachat-backend/internal/models"
	"siachat-backend/internal/services"
	"siachat-backend/internal/store"
	"siachat-backend/pkg/httputil"
	"siachat-backend/pkg/zlog"
)

// ChatHandlers handles the visitor-facing chat endpoints.
type ChatHandlers struct {
	chatService *services.ChatService
}

// NewChatHandlers creates a new ChatHandlers instance.
func NewChatHandlers(chatService *services.ChatService) *ChatHandlers {
	return &ChatHandlers{
		chatService: chatService,
	}
}

// HandleChat processes one chat turn.
func (h *ChatHandlers) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if details := req.Validate(); len(details) > 0 {
		httputil.RespondValidationError(w, details)
		return
	}

	resp, err := h.chatService.HandleMessage(r.Context(), req)
	if err != nil {
		zlog.Error("chat turn failed", zap.Error(err))
		httputil.RespondError(w, http.StatusInternalServerError, "Something went wrong processing your message. Please try again.")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleUpdateInfo applies the out-of-band info overwrite.
func (h *ChatHandlers) HandleUpdateInfo(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateInfoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if details := req.Validate(); len(details) > 0 {
		httputil.RespondValidationError(w, details)
		return
	}

	sess, err := h.chatService.UpdateInfo(r.Context(), req)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.RespondError(w, http.StatusNotFound, "Session not found")
			return
		}
		zlog.Error("update info failed", zap.Error(err))
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to update session info")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"session_id": sess.SessionID,
		"message":    "Session info updated",
	})
}

// HandleGetSession returns the session snapshot.
func (h *ChatHandlers) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid session ID")
		return
	}

	snap, err := h.chatService.GetSessionInfo(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.RespondError(w, http.StatusNotFound, "Session not found")
			return
		}
		zlog.Error("get session failed", zap.Error(err), zap.String("session_id", sessionID.String()))
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to load session")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, models.SessionInfoEnvelope{
		Success: true,
		Session: *snap,
	})
}

// HandleResetSession archives the session so a new one can start.
func (h *ChatHandlers) HandleResetSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionIDFromBody(w, r)
	if !ok {
		return
	}

	if err := h.chatService.ResetSession(r.Context(), sessionID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.RespondError(w, http.StatusNotFound, "Session not found")
			return
		}
		zlog.Error("reset session failed", zap.Error(err), zap.String("session_id", sessionID.String()))
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to reset session")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, models.ActionResponse{
		Success: true,
		Message: "Session archived. Start a new conversation with a new session.",
	})
}

// HandleCloseSession archives the session and writes its performance
// rollup.
func (h *ChatHandlers) HandleCloseSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionIDFromBody(w, r)
	if !ok {
		return
	}

	if err := h.chatService.CloseSession(r.Context(), sessionID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.RespondError(w, http.StatusNotFound, "Session not found")
			return
		}
		zlog.Error("close session failed", zap.Error(err), zap.String("session_id", sessionID.String()))
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to close session")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, models.ActionResponse{
		Success: true,
		Message: "Session closed",
	})
}

// sessionIDFromBody parses and validates the session action body, writing
// the error response itself when invalid.
func (h *ChatHandlers) sessionIDFromBody(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	var req models.SessionActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return uuid.Nil, false
	}
	if req.SessionID == "" {
		httputil.RespondValidationError(w, map[string]string{"session_id": "session_id is required"})
		return uuid.Nil, false
	}
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		httputil.RespondValidationError(w, map[string]string{"session_id": "session_id must be a valid UUID"})
		return uuid.Nil, false
	}
	return sessionID, true
}
