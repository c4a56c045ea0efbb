package service

import (
	"fmt"
	"math"

	"github.com/hhios1618-pixel/registroventas/internal/domain"
	"github.com/hhios1618-pixel/registroventas/internal/phone"
)

// ReconcileEpsilon is the currency tolerance when comparing the item
// total against the summed payments.
const ReconcileEpsilon = 0.01

// Stage gates are pure predicates over the draft. They are evaluated on
// demand and never cached; backward navigation never consults them.

// CanAdvance reports whether the draft may move forward past stage.
func CanAdvance(stage domain.Stage, d *domain.DraftOrder) bool {
	switch stage {
	case domain.StageIntake:
		return len(d.Items) > 0
	case domain.StageProducts:
		return len(ItemIssues(d)) == 0
	case domain.StageDelivery:
		return len(DeliveryIssues(d)) == 0
	case domain.StageCustomer:
		return len(CustomerIssues(d)) == 0
	default:
		return false
	}
}

// ItemIssue names one reason a line item blocks the product stage.
type ItemIssue struct {
	Index   int    `json:"index"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ItemIssues lists every violation of the product-stage invariants:
// each line needs a name, positive quantity and price, a photo, and a
// confirmed catalog match. The caller surfaces these per line so the
// agent can see which item fails and why.
func ItemIssues(d *domain.DraftOrder) []ItemIssue {
	var issues []ItemIssue
	for i := range d.Items {
		it := &d.Items[i]
		if it.ProductName == "" {
			issues = append(issues, ItemIssue{i, "productName", "Product name is empty"})
		}
		if it.Quantity <= 0 {
			issues = append(issues, ItemIssue{i, "quantity", "Quantity must be greater than 0"})
		}
		if it.UnitPrice <= 0 {
			issues = append(issues, ItemIssue{i, "unitPrice", "Unit price must be greater than 0"})
		}
		if it.ImageReference == "" {
			issues = append(issues, ItemIssue{i, "image", "Photo is missing"})
		}
		if it.RecognitionStatus != domain.RecognitionConfirmed {
			issues = append(issues, ItemIssue{i, "recognition", "Product has not been confirmed against the catalog"})
		}
	}
	return issues
}

// DeliveryIssues lists what blocks the delivery stage: a destination
// label plus either a normalized address or raw address text. Geocoding
// itself is advisory.
func DeliveryIssues(d *domain.DraftOrder) map[string]string {
	issues := map[string]string{}
	if d.Delivery.DestinationLabel == "" {
		issues["destinationLabel"] = "Destination is required"
	}
	if d.Delivery.NormalizedAddress == "" && d.Delivery.RawAddressText == "" {
		issues["address"] = "Enter the delivery address"
	}
	return issues
}

// CustomerIssues lists what blocks the customer stage: all three
// fields present and the phone in strict submission format.
func CustomerIssues(d *domain.DraftOrder) map[string]string {
	issues := map[string]string{}
	if d.Customer.Name == "" {
		issues["name"] = "Customer name is required"
	}
	if d.Customer.NationalID == "" {
		issues["nationalId"] = "Customer document is required"
	}
	if d.Customer.Phone == "" {
		issues["phone"] = "Customer phone is required"
	} else if err := phone.Validate(d.Customer.Phone); err != nil {
		issues["phone"] = err.Error()
	}
	return issues
}

// Reconciled reports whether payments cover the item total within the
// currency epsilon.
func Reconciled(d *domain.DraftOrder) bool {
	return math.Abs(d.ItemsTotal()-d.PaymentsTotal()) <= ReconcileEpsilon
}

// itemField names a line-item field the way the API reports it.
func itemField(index int, field string) string {
	return fmt.Sprintf("items[%d].%s", index, field)
}

// SubmitCheck re-validates the whole draft, not just the current stage:
// the agent can navigate backward and corrupt earlier-stage validity at
// any time, so the submit gate trusts nothing. Returns nil when the
// draft may be submitted, otherwise a ValidationError naming every
// blocking field.
func SubmitCheck(d *domain.DraftOrder) error {
	var err error

	if len(d.Items) == 0 {
		err = domain.AddFieldError(err, "items", "Order has no items")
	}
	for _, issue := range ItemIssues(d) {
		err = domain.AddFieldError(err, itemField(issue.Index, issue.Field), issue.Message)
	}
	for field, msg := range DeliveryIssues(d) {
		err = domain.AddFieldError(err, "delivery."+field, msg)
	}
	for field, msg := range CustomerIssues(d) {
		err = domain.AddFieldError(err, "customer."+field, msg)
	}

	// One payment method per order.
	if len(d.Payments) > 1 {
		err = domain.AddFieldError(err, "payments", "Only one payment method is allowed per order")
	}

	if !Reconciled(d) {
		err = domain.AddFieldError(err, "payments",
			fmt.Sprintf("Payments (%.2f) do not match the order total (%.2f)", d.PaymentsTotal(), d.ItemsTotal()))
	}

	if ve, ok := err.(*domain.ValidationError); ok {
		ve.Op = "workflow.submit"
	}
	return err
}
