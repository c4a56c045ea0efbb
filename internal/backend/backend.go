// Package backend wraps the order persistence endpoint, the only
// network write in the whole intake flow.
package backend

import (
	"context"

	"github.com/hhios1618-pixel/registroventas/internal/domain"
)

// Submitter persists a finalized order. The submitted payload is a
// snapshot of the draft; on any error the caller keeps the live draft
// untouched and may retry.
type Submitter interface {
	Submit(ctx context.Context, order *SubmitRequest) (orderNumber string, err error)
}

// SubmitItem is one line of the serialized order.
type SubmitItem struct {
	ProductName string  `json:"productName"`
	ProductCode string  `json:"productCode"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	SaleType    string  `json:"saleType,omitempty"`
	ImageURL    string  `json:"imageUrl"`
}

// SubmitRequest is the wire shape the persistence endpoint expects:
// items, delivery, customer, the single payment, and the seller.
type SubmitRequest struct {
	Items         []SubmitItem    `json:"items"`
	Delivery      domain.Delivery `json:"delivery"`
	Customer      domain.Customer `json:"customer"`
	PaymentMethod string          `json:"paymentMethod"`
	PaymentAmount float64         `json:"paymentAmount"`
	SellerName    string          `json:"sellerName"`
}

// FromDraft serializes a draft snapshot into the backend wire shape.
// The draft is assumed to have already passed the submit gate, in
// particular the single-payment policy.
func FromDraft(d *domain.DraftOrder) *SubmitRequest {
	req := &SubmitRequest{
		Items:      make([]SubmitItem, 0, len(d.Items)),
		Delivery:   d.Delivery,
		Customer:   d.Customer,
		SellerName: d.SellerName,
	}
	for _, it := range d.Items {
		req.Items = append(req.Items, SubmitItem{
			ProductName: it.ProductName,
			ProductCode: it.ProductCode,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			SaleType:    string(it.SaleType),
			ImageURL:    it.ImageReference,
		})
	}
	if len(d.Payments) > 0 {
		req.PaymentMethod = string(d.Payments[0].Method)
		req.PaymentAmount = d.Payments[0].Amount
	}
	return req
}
