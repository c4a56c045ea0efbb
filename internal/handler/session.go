package handler

import (
	"net/http"
)

// StartSession handles POST /api/sessions.
func (h *WorkflowHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	s := h.workflow.Start(r.Context())
	d, err := h.workflow.Snapshot(s.ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondDraft(w, http.StatusCreated, s.ID, d)
}

// GetSession handles GET /api/sessions/{id}.
func (h *WorkflowHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	d, err := h.workflow.Snapshot(id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondDraft(w, http.StatusOK, id, d)
}

// DiscardSession handles DELETE /api/sessions/{id}.
func (h *WorkflowHandler) DiscardSession(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	if err := h.workflow.Discard(id); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Advance handles POST /api/sessions/{id}/advance.
func (h *WorkflowHandler) Advance(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	d, err := h.workflow.Advance(id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondDraft(w, http.StatusOK, id, d)
}

// Back handles POST /api/sessions/{id}/back.
func (h *WorkflowHandler) Back(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	d, err := h.workflow.Back(id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondDraft(w, http.StatusOK, id, d)
}

type interpretRequest struct {
	Text string `json:"text" validate:"required"`
}

// Interpret handles POST /api/sessions/{id}/interpret.
func (h *WorkflowHandler) Interpret(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	var req interpretRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.workflow.Interpret(r.Context(), id, req.Text); err != nil {
		h.respondError(w, r, err)
		return
	}
	d, err := h.workflow.Snapshot(id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondDraft(w, http.StatusOK, id, d)
}
