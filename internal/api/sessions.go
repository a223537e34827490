package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ListSessions returns a summary of every stored session.
//
// @Summary     List sessions
// @Tags        sessions
// @Produce     json
// @Success     200  {array}   session.Summary
// @Failure     500  {object}  ErrorResponse
// @Router      /agents/sessions [get]
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sums, err := h.svc.Sessions(r.Context())
	if err != nil {
		h.log.ErrorContext(r.Context(), "list sessions failed", "error", err)
		status, detail := errorStatus(err)
		Error(w, status, detail)
		return
	}
	JSON(w, http.StatusOK, sums)
}

// GetSession returns the full stored state of one session.
//
// @Summary     Get a session
// @Tags        sessions
// @Produce     json
// @Param       id   path      string  true  "Session ID"
// @Success     200  {object}  session.Session
// @Failure     404  {object}  ErrorResponse
// @Failure     500  {object}  ErrorResponse
// @Router      /agents/sessions/{id} [get]
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.Session(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		status, detail := errorStatus(err)
		Error(w, status, detail)
		return
	}
	JSON(w, http.StatusOK, sess)
}

// DeleteSession removes a session so its id starts over.
//
// @Summary     Delete a session
// @Tags        sessions
// @Param       id   path  string  true  "Session ID"
// @Success     204
// @Failure     404  {object}  ErrorResponse
// @Failure     500  {object}  ErrorResponse
// @Router      /agents/sessions/{id} [delete]
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Reset(r.Context(), id); err != nil {
		status, detail := errorStatus(err)
		Error(w, status, detail)
		return
	}
	h.log.InfoContext(r.Context(), "session deleted", "session_id", id)
	w.WriteHeader(http.StatusNoContent)
}
