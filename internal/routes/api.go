// Package routes maps the session API onto the router.
package routes

import (
	"github.com/hhios1618-pixel/registroventas/internal/handler"
	"github.com/hhios1618-pixel/registroventas/internal/router"
)

// RegisterAPIRoutes registers every session endpoint consumed by the
// mobile client.
func RegisterAPIRoutes(r *router.Router, h *handler.WorkflowHandler) {
	// Session lifecycle and navigation
	r.Post("/api/sessions", h.StartSession)
	r.Get("/api/sessions/{id}", h.GetSession)
	r.Delete("/api/sessions/{id}", h.DiscardSession)
	r.Post("/api/sessions/{id}/advance", h.Advance)
	r.Post("/api/sessions/{id}/back", h.Back)

	// Intake
	r.Post("/api/sessions/{id}/interpret", h.Interpret)

	// Line items
	r.Post("/api/sessions/{id}/items", h.AddItem)
	r.Patch("/api/sessions/{id}/items/{lineId}", h.UpdateItem)
	r.Delete("/api/sessions/{id}/items/{lineId}", h.RemoveItem)
	r.Post("/api/sessions/{id}/items/{lineId}/name", h.SetItemName)
	r.Post("/api/sessions/{id}/items/{lineId}/accept", h.AcceptCandidate)
	r.Post("/api/sessions/{id}/items/{lineId}/image", h.AttachImage)

	// Delivery
	r.Put("/api/sessions/{id}/delivery", h.SetDelivery)
	r.Post("/api/sessions/{id}/delivery/geocode", h.ResolveAddress)

	// Customer
	r.Put("/api/sessions/{id}/customer", h.SetCustomer)

	// Payments and submission
	r.Post("/api/sessions/{id}/payments", h.AddPayment)
	r.Delete("/api/sessions/{id}/payments/{index}", h.RemovePayment)
	r.Post("/api/sessions/{id}/submit", h.Submit)
}
