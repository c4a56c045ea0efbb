package handler

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/hhios1618-pixel/registroventas/internal/domain"
	"github.com/hhios1618-pixel/registroventas/internal/service"
)

// lineID parses the {lineId} path segment.
func (h *WorkflowHandler) lineID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(r.PathValue("lineId"), 10, 64)
	if err != nil {
		h.respond(w, http.StatusNotFound, errorResponse{Error: "Line item not found"})
		return 0, false
	}
	return id, true
}

// AddItem handles POST /api/sessions/{id}/items.
func (h *WorkflowHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	lineID, err := h.workflow.AddItem(id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, http.StatusCreated, map[string]uint64{"lineId": lineID})
}

type updateItemRequest struct {
	// All fields optional; absent fields are left as they are. A name
	// change schedules a debounced catalog search.
	ProductName *string  `json:"productName"`
	Quantity    *int     `json:"quantity"`
	UnitPrice   *float64 `json:"unitPrice"`
	SaleType    *string  `json:"saleType" validate:"omitempty,oneof=RETAIL WHOLESALE"`
}

// UpdateItem handles PATCH /api/sessions/{id}/items/{lineId}.
func (h *WorkflowHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	lineID, ok := h.lineID(w, r)
	if !ok {
		return
	}
	var req updateItemRequest
	if !h.decode(w, r, &req) {
		return
	}

	upd := service.ItemUpdate{
		Quantity:  req.Quantity,
		UnitPrice: req.UnitPrice,
	}
	if req.SaleType != nil {
		st := domain.SaleType(*req.SaleType)
		upd.SaleType = &st
	}
	if err := h.workflow.UpdateItem(id, lineID, upd); err != nil {
		h.respondError(w, r, err)
		return
	}
	if req.ProductName != nil {
		if err := h.workflow.SetItemName(id, lineID, *req.ProductName); err != nil {
			h.respondError(w, r, err)
			return
		}
	}
	h.snapshotResponse(w, r, id)
}

// RemoveItem handles DELETE /api/sessions/{id}/items/{lineId}.
func (h *WorkflowHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	lineID, ok := h.lineID(w, r)
	if !ok {
		return
	}
	if err := h.workflow.RemoveItem(id, lineID); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.snapshotResponse(w, r, id)
}

type itemNameRequest struct {
	ProductName string `json:"productName"`
}

// SetItemName handles POST /api/sessions/{id}/items/{lineId}/name, the
// keystroke path: every call reschedules the debounced catalog search.
func (h *WorkflowHandler) SetItemName(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	lineID, ok := h.lineID(w, r)
	if !ok {
		return
	}
	var req itemNameRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.workflow.SetItemName(id, lineID, req.ProductName); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.snapshotResponse(w, r, id)
}

type acceptCandidateRequest struct {
	ProductCode string `json:"productCode" validate:"required"`
}

// AcceptCandidate handles POST /api/sessions/{id}/items/{lineId}/accept.
func (h *WorkflowHandler) AcceptCandidate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	lineID, ok := h.lineID(w, r)
	if !ok {
		return
	}
	var req acceptCandidateRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.workflow.AcceptCandidate(id, lineID, req.ProductCode); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.snapshotResponse(w, r, id)
}

const maxImageSize = 10 << 20 // 10 MiB

// AttachImage handles POST /api/sessions/{id}/items/{lineId}/image,
// a multipart upload with the photo in the "image" field.
func (h *WorkflowHandler) AttachImage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	lineID, ok := h.lineID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageSize)
	file, header, err := r.FormFile("image")
	if err != nil {
		h.respond(w, http.StatusBadRequest, errorResponse{Error: "Missing or oversized image upload"})
		return
	}
	defer file.Close()

	url, err := h.workflow.AttachImage(r.Context(), id, lineID, header.Filename, file)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]string{"imageUrl": url})
}

func (h *WorkflowHandler) snapshotResponse(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	d, err := h.workflow.Snapshot(id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondDraft(w, http.StatusOK, id, d)
}
