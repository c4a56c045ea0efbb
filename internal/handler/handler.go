// Package handler exposes the intake workflow over JSON HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/hhios1618-pixel/registroventas/internal/domain"
	"github.com/hhios1618-pixel/registroventas/internal/service"
)

// WorkflowHandler serves the session API backed by the workflow
// controller.
type WorkflowHandler struct {
	workflow *service.Workflow
	logger   *slog.Logger
	validate *validator.Validate
}

func NewWorkflowHandler(workflow *service.Workflow, logger *slog.Logger) *WorkflowHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkflowHandler{
		workflow: workflow,
		logger:   logger,
		validate: validator.New(),
	}
}

func (h *WorkflowHandler) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			h.logger.Error("response encoding failed", "error", err)
		}
	}
}

// draftResponse is the wire shape for every endpoint that returns the
// draft: the draft itself plus the derived values the client renders.
type draftResponse struct {
	SessionID string             `json:"sessionId"`
	Draft     *domain.DraftOrder `json:"draft"`
	Total     float64            `json:"total"`
	Paid      float64            `json:"paid"`
}

func (h *WorkflowHandler) respondDraft(w http.ResponseWriter, status int, id uuid.UUID, d *domain.DraftOrder) {
	h.respond(w, status, draftResponse{
		SessionID: id.String(),
		Draft:     d,
		Total:     d.ItemsTotal(),
		Paid:      d.PaymentsTotal(),
	})
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (h *WorkflowHandler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	if domain.IsValidationError(err) {
		h.respond(w, http.StatusUnprocessableEntity, errorResponse{
			Error:  "Validation failed",
			Fields: domain.GetValidationFields(err),
		})
		return
	}

	status := http.StatusInternalServerError
	switch domain.ErrorCode(err) {
	case domain.EINVALID:
		status = http.StatusBadRequest
	case domain.ENOTFOUND:
		status = http.StatusNotFound
	case domain.ECONFLICT:
		status = http.StatusConflict
	case domain.EREJECTED:
		status = http.StatusUnprocessableEntity
	case domain.EUNAVAILABLE:
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err)
	}
	h.respond(w, status, errorResponse{Error: domain.ErrorMessage(err)})
}

// decode unmarshals and validates a JSON request body. On failure it
// writes the error response and returns false.
func (h *WorkflowHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.respond(w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON body"})
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		fields := map[string]string{}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				fields[fe.Field()] = "failed " + fe.Tag() + " validation"
			}
		}
		h.respond(w, http.StatusBadRequest, errorResponse{Error: "Invalid request", Fields: fields})
		return false
	}
	return true
}

// sessionID parses the {id} path segment. A malformed ID is reported
// as not found, same as an expired one.
func (h *WorkflowHandler) sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.respond(w, http.StatusNotFound, errorResponse{Error: "Session not found"})
		return uuid.Nil, false
	}
	return id, true
}
