package api

import (
	"errors"
	"net/http"

	"github.com/bytedance/sonic"

	"github.com/apresai/duet/internal/article"
	"github.com/apresai/duet/internal/discuss"
	"github.com/apresai/duet/internal/observability"
	"github.com/apresai/duet/internal/session"
)

// DiscussRequest is the body of POST /agents/discuss.
type DiscussRequest struct {
	UserName       string           `json:"user_name" example:"Ada"`
	UserInput      string           `json:"user_input" example:"What is a goroutine?"`
	Topic          string           `json:"topic" example:"go routines"`
	Step           *int             `json:"step,omitempty" example:"0"`
	MikeVoiceID    string           `json:"mike_voice_id"`
	MileyVoiceID   string           `json:"miley_voice_id"`
	SessionID      string           `json:"session_id"`
	ArticleContent *article.Content `json:"article_content,omitempty"`
}

// DiscussResponse is the body of a successful turn. Voices are base64 MP3.
type DiscussResponse struct {
	AgentAMessage string `json:"agentA_message"`
	AgentBMessage string `json:"agentB_message"`
	AgentAVoice   string `json:"agentA_voice"`
	AgentBVoice   string `json:"agentB_voice"`
	SessionID     string `json:"session_id"`
}

// Discuss runs one dialogue turn.
//
// @Summary     Run one dialogue turn
// @Description Appends the user's input to the session, asks Mike and Miley for the next two
// @Description lines and returns both with their synthesized audio. An empty or unknown
// @Description session_id starts a new session.
// @Tags        agents
// @Accept      json
// @Produce     json
// @Param       request  body      DiscussRequest  true  "Turn request"
// @Success     200      {object}  DiscussResponse
// @Failure     400      {object}  ErrorResponse  "Invalid request body"
// @Failure     409      {object}  ErrorResponse  "Concurrent update of the same session"
// @Failure     500      {object}  ErrorResponse  "Storage, generation or TTS failure"
// @Router      /agents/discuss [post]
func (h *Handler) Discuss(w http.ResponseWriter, r *http.Request) {
	var req DiscussRequest
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	ctx := observability.DetachTraceContextFrom(r.Context(), h.baseCtx)
	resp, err := h.svc.Discuss(ctx, discuss.Request{
		UserName:       req.UserName,
		UserInput:      req.UserInput,
		Topic:          req.Topic,
		Step:           req.Step,
		MikeVoiceID:    req.MikeVoiceID,
		MileyVoiceID:   req.MileyVoiceID,
		SessionID:      req.SessionID,
		ArticleContent: req.ArticleContent,
	})
	if err != nil {
		h.log.ErrorContext(r.Context(), "turn failed", "session_id", req.SessionID, "error", err)
		status, detail := errorStatus(err)
		Error(w, status, detail)
		return
	}

	JSON(w, http.StatusOK, DiscussResponse{
		AgentAMessage: resp.MikeMessage,
		AgentBMessage: resp.MileyMessage,
		AgentAVoice:   resp.MikeVoice,
		AgentBVoice:   resp.MileyVoice,
		SessionID:     resp.SessionID,
	})
}

// errorStatus maps a service error to an HTTP status and detail message.
func errorStatus(err error) (int, string) {
	cause := err
	var turnErr *discuss.TurnError
	if errors.As(err, &turnErr) && turnErr.Err != nil {
		cause = turnErr.Err
	}

	var storageErr *session.StorageError
	switch {
	case errors.Is(err, discuss.ErrInvalidStep):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, session.ErrConflict):
		return http.StatusConflict, cause.Error()
	case errors.Is(err, discuss.ErrSynthesis):
		return http.StatusInternalServerError, "TTS error: " + cause.Error()
	case errors.As(err, &storageErr):
		return http.StatusInternalServerError, "storage error: " + storageErr.Error()
	default:
		return http.StatusInternalServerError, cause.Error()
	}
}
