package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hhios1618-pixel/registroventas/internal/domain"
)

func testOrder() *SubmitRequest {
	return &SubmitRequest{
		Items: []SubmitItem{
			{ProductName: "Soporte Celular Auto", ProductCode: "SOP-001", Quantity: 2, UnitPrice: 75, ImageURL: "/uploads/a.jpg"},
		},
		Delivery:      domain.Delivery{RawAddressText: "Av. Banzer 3er anillo", DestinationLabel: "Casa cliente"},
		Customer:      domain.Customer{Name: "Maria Flores", NationalID: "5544332", Phone: "59177712345"},
		PaymentMethod: "QR",
		PaymentAmount: 150,
		SellerName:    "Carla Mendez",
	}
}

func TestHTTPSubmitter_Submit_Success(t *testing.T) {
	var received SubmitRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/orders", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"orderNumber": "PED-20260831-017"}`))
	}))
	defer srv.Close()

	c := NewHTTPSubmitter(srv.URL)
	got, err := c.Submit(context.Background(), testOrder())
	require.NoError(t, err)
	assert.Equal(t, "PED-20260831-017", got)

	assert.Equal(t, "QR", received.PaymentMethod)
	assert.Equal(t, "Carla Mendez", received.SellerName)
	require.Len(t, received.Items, 1)
	assert.Equal(t, "SOP-001", received.Items[0].ProductCode)
}

func TestHTTPSubmitter_Submit_RejectionSurfacedVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error": "customer.nationalId: documento ya registrado con otro nombre"}`))
	}))
	defer srv.Close()

	c := NewHTTPSubmitter(srv.URL)
	_, err := c.Submit(context.Background(), testOrder())
	require.Error(t, err)
	assert.Equal(t, domain.EREJECTED, domain.ErrorCode(err))
	assert.Equal(t, "customer.nationalId: documento ya registrado con otro nombre", domain.ErrorMessage(err))
}

func TestHTTPSubmitter_Submit_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "db down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewHTTPSubmitter(srv.URL)
	_, err := c.Submit(context.Background(), testOrder())
	require.Error(t, err)
	assert.Equal(t, domain.EUNAVAILABLE, domain.ErrorCode(err))
}

func TestHTTPSubmitter_Submit_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewHTTPSubmitter(srv.URL)
	_, err := c.Submit(context.Background(), testOrder())
	require.Error(t, err)
	assert.Equal(t, domain.EUNAVAILABLE, domain.ErrorCode(err))
}

func TestFromDraft(t *testing.T) {
	d := domain.NewDraftOrder("Carla Mendez")
	d.Items = []domain.LineItem{
		{ID: 1, ProductName: "Soporte Celular Auto", ProductCode: "SOP-001", Quantity: 2, UnitPrice: 75, SaleType: domain.SaleRetail, ImageReference: "/uploads/a.jpg", RecognitionStatus: domain.RecognitionConfirmed},
	}
	d.Payments = []domain.PaymentEntry{{Method: domain.PaymentCash, Amount: 150}}

	req := FromDraft(d)

	require.Len(t, req.Items, 1)
	assert.Equal(t, "RETAIL", req.Items[0].SaleType)
	assert.Equal(t, "/uploads/a.jpg", req.Items[0].ImageURL)
	assert.Equal(t, "CASH", req.PaymentMethod)
	assert.Equal(t, 150.0, req.PaymentAmount)
	assert.Equal(t, "Carla Mendez", req.SellerName)
}
