package domain

// Stage identifies one step of the intake workflow. Stages are linear:
// forward movement is gated, backward movement is always allowed.
type Stage int

const (
	StageIntake   Stage = 1 // paste free text / build the initial item list
	StageProducts Stage = 2 // confirm every line against the catalog
	StageDelivery Stage = 3 // destination and address
	StageCustomer Stage = 4 // customer identity
	StagePayment  Stage = 5 // payment reconciliation and submission
)

// StageMin and StageMax bound backward/forward navigation.
const (
	StageMin = StageIntake
	StageMax = StagePayment
)

func (s Stage) String() string {
	switch s {
	case StageIntake:
		return "intake"
	case StageProducts:
		return "products"
	case StageDelivery:
		return "delivery"
	case StageCustomer:
		return "customer"
	case StagePayment:
		return "payment"
	default:
		return "unknown"
	}
}

// RecognitionStatus says whether a line item's product name has been
// matched against the catalog. Three states are deliberate: "unknown"
// (not yet checked, or checked and the agent kept typing) is different
// from "ambiguous" (candidates on screen, none accepted).
type RecognitionStatus string

const (
	RecognitionConfirmed RecognitionStatus = "confirmed"
	RecognitionAmbiguous RecognitionStatus = "ambiguous"
	RecognitionUnknown   RecognitionStatus = "unknown"
)

// SaleType distinguishes retail from wholesale pricing on a line.
type SaleType string

const (
	SaleRetail    SaleType = "RETAIL"
	SaleWholesale SaleType = "WHOLESALE"
	SaleUnset     SaleType = ""
)

// Valid reports whether s is one of the accepted sale types.
func (s SaleType) Valid() bool {
	return s == SaleRetail || s == SaleWholesale || s == SaleUnset
}

// PaymentMethod enumerates how the customer pays.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "CASH"
	PaymentQR       PaymentMethod = "QR"
	PaymentTransfer PaymentMethod = "TRANSFER"
)

// Valid reports whether m is one of the accepted payment methods.
func (m PaymentMethod) Valid() bool {
	return m == PaymentCash || m == PaymentQR || m == PaymentTransfer
}

// ProductCandidate is one ranked catalog match for a line item.
// Read-only: sourced from the catalog search service, never mutated.
type ProductCandidate struct {
	Name     string `json:"name"`
	Code     string `json:"code"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// LineItem is one product entry within a DraftOrder.
//
// Invariant: RecognitionStatus is RecognitionConfirmed if and only if
// ProductCode was set by an explicit candidate acceptance. Editing the
// name afterwards clears the code and drops back to unknown, forcing
// re-confirmation.
type LineItem struct {
	// ID is a session-stable key for the line, assigned at creation.
	// It survives reordering and removal of other lines, which index
	// positions do not; asynchronous search results are routed by it.
	ID uint64 `json:"id"`

	ProductName       string             `json:"productName"`
	Quantity          int                `json:"quantity"`
	UnitPrice         float64            `json:"unitPrice"`
	ProductCode       string             `json:"productCode,omitempty"`
	SaleType          SaleType           `json:"saleType,omitempty"`
	ImageReference    string             `json:"imageReference,omitempty"`
	RecognitionStatus RecognitionStatus  `json:"recognitionStatus"`
	Candidates        []ProductCandidate `json:"candidates,omitempty"`
}

// Rename changes the free-text product name. Any change to a line that
// was confirmed invalidates the confirmation: the code is cleared and
// recognition drops to unknown. Candidates are left in place so they
// stay selectable until a new search replaces them.
func (li *LineItem) Rename(name string) {
	if name == li.ProductName {
		return
	}
	li.ProductName = name
	li.ProductCode = ""
	li.RecognitionStatus = RecognitionUnknown
}

// Accept applies a catalog candidate: canonical name, product code,
// confirmed status. Candidates are cleared; they served their purpose.
func (li *LineItem) Accept(c ProductCandidate) {
	li.ProductName = c.Name
	li.ProductCode = c.Code
	li.RecognitionStatus = RecognitionConfirmed
	li.Candidates = nil
}

// Subtotal is the line's contribution to the order total.
func (li *LineItem) Subtotal() float64 {
	return float64(li.Quantity) * li.UnitPrice
}

// Coordinates is a geographic point from the geocoding service.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Delivery holds destination and scheduling details for the order.
// NormalizedAddress and Coordinates are set only by an accepted
// geocoding result; the raw text alone is enough to advance.
type Delivery struct {
	RawAddressText    string       `json:"rawAddressText"`
	NormalizedAddress string       `json:"normalizedAddress,omitempty"`
	Coordinates       *Coordinates `json:"coordinates,omitempty"`
	DestinationLabel  string       `json:"destinationLabel"`
	IsParcelShipment  bool         `json:"isParcelShipment"`
	DeliveryDate      string       `json:"deliveryDate,omitempty"`
	WindowStart       string       `json:"deliveryWindowStart,omitempty"`
	WindowEnd         string       `json:"deliveryWindowEnd,omitempty"`
	Notes             string       `json:"notes,omitempty"`
}

// Customer identifies who the order is for.
type Customer struct {
	Name       string `json:"name"`
	NationalID string `json:"nationalId"`
	Phone      string `json:"phone"`
}

// PaymentEntry records one payment amount by method.
type PaymentEntry struct {
	Method PaymentMethod `json:"method"`
	Amount float64       `json:"amount"`
}

// DraftOrder is the in-memory aggregate for one order-entry session.
// It is owned exclusively by the workflow controller: collaborators
// only return data that the controller merges in under the session
// lock. Nothing is persisted until a successful submission.
type DraftOrder struct {
	Items    []LineItem     `json:"items"`
	Delivery Delivery       `json:"delivery"`
	Customer Customer       `json:"customer"`
	Payments []PaymentEntry `json:"payments"`

	// SellerName is injected once at session start from the identity
	// collaborator and never changes for the life of the session.
	SellerName string `json:"sellerName"`

	// PaymentHint is the interpreter's best-effort payment amount,
	// shown as a prefill at the payment stage. Zero means no hint.
	PaymentHint float64 `json:"paymentHint,omitempty"`

	Stage Stage `json:"stage"`
}

// NewDraftOrder creates an empty draft at stage 1 for the given seller.
func NewDraftOrder(sellerName string) *DraftOrder {
	return &DraftOrder{
		Items:      []LineItem{},
		Payments:   []PaymentEntry{},
		SellerName: sellerName,
		Stage:      StageIntake,
	}
}

// ItemsTotal sums quantity x unit price over all lines.
func (d *DraftOrder) ItemsTotal() float64 {
	var total float64
	for i := range d.Items {
		total += d.Items[i].Subtotal()
	}
	return total
}

// PaymentsTotal sums all recorded payment amounts.
func (d *DraftOrder) PaymentsTotal() float64 {
	var total float64
	for _, p := range d.Payments {
		total += p.Amount
	}
	return total
}

// Item returns a pointer to the line at index, or nil when out of range.
func (d *DraftOrder) Item(index int) *LineItem {
	if index < 0 || index >= len(d.Items) {
		return nil
	}
	return &d.Items[index]
}

// ItemByID returns the line with the given session-stable ID and its
// current index, or (nil, -1) when the line no longer exists.
func (d *DraftOrder) ItemByID(id uint64) (*LineItem, int) {
	for i := range d.Items {
		if d.Items[i].ID == id {
			return &d.Items[i], i
		}
	}
	return nil, -1
}

// Clone deep-copies the draft. Submission works on a snapshot so a
// failed network call provably leaves the live draft untouched.
func (d *DraftOrder) Clone() *DraftOrder {
	out := *d

	out.Items = make([]LineItem, len(d.Items))
	copy(out.Items, d.Items)
	for i := range out.Items {
		if d.Items[i].Candidates != nil {
			out.Items[i].Candidates = make([]ProductCandidate, len(d.Items[i].Candidates))
			copy(out.Items[i].Candidates, d.Items[i].Candidates)
		}
	}

	out.Payments = make([]PaymentEntry, len(d.Payments))
	copy(out.Payments, d.Payments)

	if d.Delivery.Coordinates != nil {
		c := *d.Delivery.Coordinates
		out.Delivery.Coordinates = &c
	}

	return &out
}
