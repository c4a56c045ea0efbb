package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hhios1618-pixel/registroventas/internal/domain"
)

// validDraft builds a draft that passes every stage gate and the
// submit check: one confirmed line of 3 x 50.00 paid in full by QR.
func validDraft() *domain.DraftOrder {
	d := domain.NewDraftOrder("Maria Quispe")
	d.Items = []domain.LineItem{
		{
			ID:                1,
			ProductName:       "Soporte de pared",
			ProductCode:       "SOP-001",
			Quantity:          3,
			UnitPrice:         50.00,
			ImageReference:    "/uploads/sop-001.jpg",
			RecognitionStatus: domain.RecognitionConfirmed,
		},
	}
	d.Delivery = domain.Delivery{
		RawAddressText:   "Av. Ballivian 1234, Calacoto",
		DestinationLabel: "La Paz",
	}
	d.Customer = domain.Customer{
		Name:       "Juan Mamani",
		NationalID: "4567890",
		Phone:      "59177712345",
	}
	d.Payments = []domain.PaymentEntry{{Method: domain.PaymentQR, Amount: 150.00}}
	d.Stage = domain.StagePayment
	return d
}

func TestCanAdvance(t *testing.T) {
	tests := []struct {
		name   string
		stage  domain.Stage
		mutate func(*domain.DraftOrder)
		want   bool
	}{
		{"intake with items", domain.StageIntake, nil, true},
		{"intake without items", domain.StageIntake, func(d *domain.DraftOrder) {
			d.Items = nil
		}, false},
		{"products all confirmed", domain.StageProducts, nil, true},
		{"products unconfirmed line", domain.StageProducts, func(d *domain.DraftOrder) {
			d.Items[0].RecognitionStatus = domain.RecognitionAmbiguous
		}, false},
		{"products missing photo", domain.StageProducts, func(d *domain.DraftOrder) {
			d.Items[0].ImageReference = ""
		}, false},
		{"products zero quantity", domain.StageProducts, func(d *domain.DraftOrder) {
			d.Items[0].Quantity = 0
		}, false},
		{"delivery raw text only", domain.StageDelivery, nil, true},
		{"delivery normalized only", domain.StageDelivery, func(d *domain.DraftOrder) {
			d.Delivery.RawAddressText = ""
			d.Delivery.NormalizedAddress = "Avenida Ballivian 1234, La Paz"
		}, true},
		{"delivery no destination", domain.StageDelivery, func(d *domain.DraftOrder) {
			d.Delivery.DestinationLabel = ""
		}, false},
		{"delivery no address at all", domain.StageDelivery, func(d *domain.DraftOrder) {
			d.Delivery.RawAddressText = ""
		}, false},
		{"customer complete", domain.StageCustomer, nil, true},
		{"customer bad phone", domain.StageCustomer, func(d *domain.DraftOrder) {
			d.Customer.Phone = "123"
		}, false},
		{"customer missing document", domain.StageCustomer, func(d *domain.DraftOrder) {
			d.Customer.NationalID = ""
		}, false},
		{"payment stage never advances", domain.StagePayment, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDraft()
			if tt.mutate != nil {
				tt.mutate(d)
			}
			assert.Equal(t, tt.want, CanAdvance(tt.stage, d))
		})
	}
}

func TestItemIssuesReportsEveryLine(t *testing.T) {
	d := validDraft()
	d.Items = append(d.Items, domain.LineItem{
		ID:                2,
		ProductName:       "cable hdmi",
		Quantity:          1,
		UnitPrice:         20,
		RecognitionStatus: domain.RecognitionUnknown,
	})

	issues := ItemIssues(d)
	require.Len(t, issues, 2)
	for _, issue := range issues {
		assert.Equal(t, 1, issue.Index)
	}
}

func TestReconciled(t *testing.T) {
	tests := []struct {
		name     string
		payments []domain.PaymentEntry
		want     bool
	}{
		{"exact", []domain.PaymentEntry{{Method: domain.PaymentCash, Amount: 150.00}}, true},
		{"within epsilon", []domain.PaymentEntry{{Method: domain.PaymentCash, Amount: 149.995}}, true},
		{"one short", []domain.PaymentEntry{{Method: domain.PaymentCash, Amount: 149.00}}, false},
		{"overpaid", []domain.PaymentEntry{{Method: domain.PaymentCash, Amount: 151.00}}, false},
		{"no payments", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDraft()
			d.Payments = tt.payments
			assert.Equal(t, tt.want, Reconciled(d))
		})
	}
}

func TestSubmitCheck(t *testing.T) {
	t.Run("valid draft passes", func(t *testing.T) {
		require.NoError(t, SubmitCheck(validDraft()))
	})

	t.Run("mismatched payment is named", func(t *testing.T) {
		d := validDraft()
		d.Payments[0].Amount = 149.00

		err := SubmitCheck(d)
		require.Error(t, err)
		require.True(t, domain.IsValidationError(err))
		assert.Contains(t, domain.GetValidationFields(err), "payments")
	})

	t.Run("two payments are rejected even when they reconcile", func(t *testing.T) {
		d := validDraft()
		d.Payments = []domain.PaymentEntry{
			{Method: domain.PaymentCash, Amount: 100.00},
			{Method: domain.PaymentQR, Amount: 50.00},
		}

		err := SubmitCheck(d)
		require.Error(t, err)
		assert.Contains(t, domain.GetValidationFields(err), "payments")
	})

	t.Run("earlier stage regressions are caught", func(t *testing.T) {
		d := validDraft()
		d.Customer.Phone = "59112345"
		d.Items[0].ImageReference = ""

		err := SubmitCheck(d)
		require.Error(t, err)
		fields := domain.GetValidationFields(err)
		assert.Contains(t, fields, "customer.phone")
		assert.Contains(t, fields, "items[0].image")
	})

	t.Run("empty draft names everything", func(t *testing.T) {
		err := SubmitCheck(domain.NewDraftOrder("Maria Quispe"))
		require.Error(t, err)
		fields := domain.GetValidationFields(err)
		assert.Contains(t, fields, "items")
		assert.Contains(t, fields, "delivery.destinationLabel")
		assert.Contains(t, fields, "customer.name")
		assert.Contains(t, fields, "payments")
	})
}
