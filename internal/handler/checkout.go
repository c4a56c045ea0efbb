package handler

import (
	"net/http"
	"strconv"

	"github.com/hhios1618-pixel/registroventas/internal/domain"
	"github.com/hhios1618-pixel/registroventas/internal/service"
)

type deliveryRequest struct {
	RawAddressText   *string `json:"rawAddressText"`
	DestinationLabel *string `json:"destinationLabel"`
	IsParcelShipment *bool   `json:"isParcelShipment"`
	DeliveryDate     *string `json:"deliveryDate"`
	WindowStart      *string `json:"deliveryWindowStart"`
	WindowEnd        *string `json:"deliveryWindowEnd"`
	Notes            *string `json:"notes"`
}

// SetDelivery handles PUT /api/sessions/{id}/delivery.
func (h *WorkflowHandler) SetDelivery(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	var req deliveryRequest
	if !h.decode(w, r, &req) {
		return
	}
	err := h.workflow.SetDelivery(id, service.DeliveryUpdate{
		RawAddressText:   req.RawAddressText,
		DestinationLabel: req.DestinationLabel,
		IsParcelShipment: req.IsParcelShipment,
		DeliveryDate:     req.DeliveryDate,
		WindowStart:      req.WindowStart,
		WindowEnd:        req.WindowEnd,
		Notes:            req.Notes,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.snapshotResponse(w, r, id)
}

// ResolveAddress handles POST /api/sessions/{id}/delivery/geocode.
func (h *WorkflowHandler) ResolveAddress(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	if err := h.workflow.ResolveAddress(r.Context(), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.snapshotResponse(w, r, id)
}

type customerRequest struct {
	Name       string `json:"name" validate:"required"`
	NationalID string `json:"nationalId" validate:"required"`
	Phone      string `json:"phone" validate:"required"`
}

// SetCustomer handles PUT /api/sessions/{id}/customer.
func (h *WorkflowHandler) SetCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	var req customerRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.workflow.SetCustomer(id, req.Name, req.NationalID, req.Phone); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.snapshotResponse(w, r, id)
}

type paymentRequest struct {
	Method string  `json:"method" validate:"required,oneof=CASH QR TRANSFER"`
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

// AddPayment handles POST /api/sessions/{id}/payments.
func (h *WorkflowHandler) AddPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	var req paymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.workflow.AddPayment(id, domain.PaymentMethod(req.Method), req.Amount); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.snapshotResponse(w, r, id)
}

// RemovePayment handles DELETE /api/sessions/{id}/payments/{index}.
func (h *WorkflowHandler) RemovePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		h.respond(w, http.StatusNotFound, errorResponse{Error: "Payment entry not found"})
		return
	}
	if err := h.workflow.RemovePayment(id, index); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.snapshotResponse(w, r, id)
}

// Submit handles POST /api/sessions/{id}/submit. On success the
// response carries the backend's order number and the reset draft.
func (h *WorkflowHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	orderNumber, err := h.workflow.Submit(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	d, err := h.workflow.Snapshot(id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]any{
		"orderNumber": orderNumber,
		"draft":       d,
	})
}
