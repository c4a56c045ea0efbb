package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hhios1618-pixel/registroventas/internal/backend"
	"github.com/hhios1618-pixel/registroventas/internal/catalog"
	"github.com/hhios1618-pixel/registroventas/internal/domain"
	"github.com/hhios1618-pixel/registroventas/internal/geocode"
	"github.com/hhios1618-pixel/registroventas/internal/identity"
	"github.com/hhios1618-pixel/registroventas/internal/interpret"
	"github.com/hhios1618-pixel/registroventas/internal/storage"
)

type testMocks struct {
	identity  *identity.MockResolver
	interp    *interpret.MockInterpreter
	searcher  *catalog.MockSearcher
	geocoder  *geocode.MockGeocoder
	store     *storage.MockStore
	submitter *backend.MockSubmitter
}

func newTestWorkflow(t *testing.T) (*Workflow, *testMocks) {
	t.Helper()
	m := &testMocks{
		identity:  &identity.MockResolver{Name: "Maria Quispe"},
		interp:    &interpret.MockInterpreter{},
		searcher:  &catalog.MockSearcher{},
		geocoder:  &geocode.MockGeocoder{},
		store:     &storage.MockStore{},
		submitter: &backend.MockSubmitter{},
	}
	w := NewWorkflow(WorkflowConfig{
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		Identity:       m.identity,
		Interpreter:    m.interp,
		Searcher:       m.searcher,
		Geocoder:       m.geocoder,
		Store:          m.store,
		Submitter:      m.submitter,
		SearchDebounce: 5 * time.Millisecond,
	})
	return w, m
}

// loadDraft waits for the background seller fetch to land, then swaps
// a prepared draft into the session under that seller's name. Waiting
// first keeps later draft snapshots stable.
func loadDraft(t *testing.T, s *Session, d *domain.DraftOrder) {
	t.Helper()
	require.Eventually(t, func() bool {
		return draftOf(s).SellerName != identity.PlaceholderSeller
	}, time.Second, time.Millisecond)

	s.mu.Lock()
	defer s.mu.Unlock()
	d.SellerName = s.draft.SellerName
	s.draft = d
	s.nextLineID = 100
}

func draftOf(s *Session) *domain.DraftOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Clone()
}

func TestStartResolvesSellerInBackground(t *testing.T) {
	w, _ := newTestWorkflow(t)
	s := w.Start(context.Background())

	require.Eventually(t, func() bool {
		return draftOf(s).SellerName == "Maria Quispe"
	}, time.Second, 5*time.Millisecond)

	d := draftOf(s)
	assert.Equal(t, domain.StageIntake, d.Stage)
	assert.Empty(t, d.Items)
}

func TestStartKeepsPlaceholderOnIdentityFailure(t *testing.T) {
	w, m := newTestWorkflow(t)
	m.identity.Err = domain.Unavailable(nil, "identity.current", "identity service down")

	s := w.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, identity.PlaceholderSeller, draftOf(s).SellerName)
}

func TestGetUnknownSession(t *testing.T) {
	w, _ := newTestWorkflow(t)
	_, err := w.Get(uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestDiscard(t *testing.T) {
	w, _ := newTestWorkflow(t)
	s := w.Start(context.Background())

	require.NoError(t, w.Discard(s.ID))
	_, err := w.Get(s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, w.Discard(s.ID), ErrSessionNotFound)
}

func TestAdvanceBlockedWithoutItems(t *testing.T) {
	w, _ := newTestWorkflow(t)
	s := w.Start(context.Background())

	_, err := w.Advance(s.ID)
	require.Error(t, err)
	require.True(t, domain.IsValidationError(err))
	assert.Contains(t, domain.GetValidationFields(err), "items")
	assert.Equal(t, domain.StageIntake, draftOf(s).Stage)
}

func TestAdvanceThroughAllStages(t *testing.T) {
	w, _ := newTestWorkflow(t)
	s := w.Start(context.Background())
	loadDraft(t, s, func() *domain.DraftOrder {
		d := validDraft()
		d.Stage = domain.StageIntake
		return d
	}())

	for want := domain.StageProducts; want <= domain.StagePayment; want++ {
		d, err := w.Advance(s.ID)
		require.NoError(t, err)
		assert.Equal(t, want, d.Stage)
	}

	_, err := w.Advance(s.ID)
	assert.ErrorIs(t, err, ErrAlreadyAtLast)
}

func TestBackIsNeverGated(t *testing.T) {
	w, _ := newTestWorkflow(t)
	s := w.Start(context.Background())
	loadDraft(t, s, func() *domain.DraftOrder {
		// Invalid everywhere, yet backward movement must still work.
		d := domain.NewDraftOrder("")
		d.Stage = domain.StageDelivery
		return d
	}())

	d, err := w.Back(s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StageProducts, d.Stage)

	d, err = w.Back(s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StageIntake, d.Stage)

	_, err = w.Back(s.ID)
	assert.ErrorIs(t, err, ErrAlreadyAtFirst)
}

func TestAddUpdateRemoveItem(t *testing.T) {
	w, _ := newTestWorkflow(t)
	s := w.Start(context.Background())

	lineID, err := w.AddItem(s.ID)
	require.NoError(t, err)

	qty, price := 3, 50.0
	require.NoError(t, w.UpdateItem(s.ID, lineID, ItemUpdate{Quantity: &qty, UnitPrice: &price}))

	d := draftOf(s)
	require.Len(t, d.Items, 1)
	assert.Equal(t, 3, d.Items[0].Quantity)
	assert.Equal(t, 50.0, d.Items[0].UnitPrice)
	assert.Equal(t, 150.0, d.ItemsTotal())

	bad := 0
	assert.ErrorIs(t, w.UpdateItem(s.ID, lineID, ItemUpdate{Quantity: &bad}), ErrInvalidQuantity)

	require.NoError(t, w.RemoveItem(s.ID, lineID))
	assert.Empty(t, draftOf(s).Items)
	assert.ErrorIs(t, w.RemoveItem(s.ID, lineID), ErrItemNotFound)
}

func TestRemoveItemKeepsStableIDs(t *testing.T) {
	w, _ := newTestWorkflow(t)
	s := w.Start(context.Background())

	first, _ := w.AddItem(s.ID)
	second, _ := w.AddItem(s.ID)
	require.NoError(t, w.RemoveItem(s.ID, first))

	d := draftOf(s)
	require.Len(t, d.Items, 1)
	assert.Equal(t, second, d.Items[0].ID)
}

func TestAcceptCandidate(t *testing.T) {
	w, _ := newTestWorkflow(t)
	s := w.Start(context.Background())
	lineID, _ := w.AddItem(s.ID)

	s.mu.Lock()
	item, _ := s.draft.ItemByID(lineID)
	item.ProductName = "soporte"
	item.RecognitionStatus = domain.RecognitionAmbiguous
	item.Candidates = []domain.ProductCandidate{
		{Name: "Soporte de pared", Code: "SOP-001"},
		{Name: "Soporte de techo", Code: "SOP-002"},
	}
	s.mu.Unlock()

	assert.ErrorIs(t, w.AcceptCandidate(s.ID, lineID, "NOPE"), ErrCandidateNotFound)

	require.NoError(t, w.AcceptCandidate(s.ID, lineID, "SOP-002"))
	d := draftOf(s)
	assert.Equal(t, "Soporte de techo", d.Items[0].ProductName)
	assert.Equal(t, "SOP-002", d.Items[0].ProductCode)
	assert.Equal(t, domain.RecognitionConfirmed, d.Items[0].RecognitionStatus)
	assert.Empty(t, d.Items[0].Candidates)
}

func TestRenameAfterConfirmationDropsIt(t *testing.T) {
	w, _ := newTestWorkflow(t)
	s := w.Start(context.Background())
	lineID, _ := w.AddItem(s.ID)

	s.mu.Lock()
	item, _ := s.draft.ItemByID(lineID)
	item.Accept(domain.ProductCandidate{Name: "Soporte de pared", Code: "SOP-001"})
	s.mu.Unlock()

	require.NoError(t, w.SetItemName(s.ID, lineID, "Soporte de pared grande"))

	d := draftOf(s)
	assert.Empty(t, d.Items[0].ProductCode)
	assert.Equal(t, domain.RecognitionUnknown, d.Items[0].RecognitionStatus)
}

func TestAttachImage(t *testing.T) {
	w, _ := newTestWorkflow(t)
	s := w.Start(context.Background())
	lineID, _ := w.AddItem(s.ID)

	url, err := w.AttachImage(context.Background(), s.ID, lineID, "photo.jpg", strings.NewReader("jpeg-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/photo.jpg", url)
	assert.Equal(t, url, draftOf(s).Items[0].ImageReference)

	_, err = w.AttachImage(context.Background(), s.ID, 999, "photo.jpg", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestInterpretReplacesItemsAndFillsHints(t *testing.T) {
	w, m := newTestWorkflow(t)
	m.interp.InterpretFunc = func(ctx context.Context, text string) (*interpret.Result, error) {
		return &interpret.Result{
			Items: []interpret.Item{
				{Name: "soporte de pared", Quantity: 2, UnitPrice: 50,
					Candidates: []domain.ProductCandidate{{Name: "Soporte de pared", Code: "SOP-001"}}},
				{Name: "cable hdmi 2m", Quantity: 0, UnitPrice: 20},
			},
			CustomerName:  "Juan Mamani",
			CustomerPhone: "777 12345",
			PaymentAmount: 120,
		}, nil
	}

	s := w.Start(context.Background())
	stale, _ := w.AddItem(s.ID)

	require.NoError(t, w.Interpret(context.Background(), s.ID, "2 soportes y un cable hdmi para Juan"))

	d := draftOf(s)
	require.Len(t, d.Items, 2)
	_, idx := d.ItemByID(stale)
	assert.Equal(t, -1, idx, "interpretation replaces the previous item list")

	assert.Equal(t, domain.RecognitionAmbiguous, d.Items[0].RecognitionStatus)
	assert.Equal(t, domain.RecognitionUnknown, d.Items[1].RecognitionStatus)
	assert.Equal(t, 1, d.Items[1].Quantity, "zero quantity is floored to 1")

	assert.Equal(t, "Juan Mamani", d.Customer.Name)
	assert.Equal(t, "59177712345", d.Customer.Phone)
	assert.Equal(t, 120.0, d.PaymentHint)
}

func TestInterpretKeepsTypedCustomerFields(t *testing.T) {
	w, m := newTestWorkflow(t)
	m.interp.InterpretFunc = func(ctx context.Context, text string) (*interpret.Result, error) {
		return &interpret.Result{
			Items:        []interpret.Item{{Name: "cable hdmi", Quantity: 1, UnitPrice: 20}},
			CustomerName: "Alguien Distinto",
		}, nil
	}

	s := w.Start(context.Background())
	require.NoError(t, w.SetCustomer(s.ID, "Juan Mamani", "4567890", "77712345"))
	require.NoError(t, w.Interpret(context.Background(), s.ID, "un cable hdmi"))

	assert.Equal(t, "Juan Mamani", draftOf(s).Customer.Name)
}

func TestInterpretValidation(t *testing.T) {
	w, m := newTestWorkflow(t)
	s := w.Start(context.Background())

	assert.ErrorIs(t, w.Interpret(context.Background(), s.ID, "   "), ErrEmptyInterpretInput)

	m.interp.InterpretFunc = func(ctx context.Context, text string) (*interpret.Result, error) {
		return &interpret.Result{}, nil
	}
	assert.ErrorIs(t, w.Interpret(context.Background(), s.ID, "texto sin productos"), ErrInterpreterNoItems)
}

func TestSetDeliveryEditInvalidatesGeocoding(t *testing.T) {
	w, _ := newTestWorkflow(t)
	s := w.Start(context.Background())

	s.mu.Lock()
	s.draft.Delivery.RawAddressText = "Av. Ballivian 1234"
	s.draft.Delivery.NormalizedAddress = "Avenida Ballivian 1234, La Paz"
	s.draft.Delivery.Coordinates = &domain.Coordinates{Lat: -16.5, Lng: -68.1}
	s.mu.Unlock()

	addr := "Calle Comercio 99"
	require.NoError(t, w.SetDelivery(s.ID, DeliveryUpdate{RawAddressText: &addr}))

	d := draftOf(s)
	assert.Empty(t, d.Delivery.NormalizedAddress)
	assert.Nil(t, d.Delivery.Coordinates)

	// Re-sending the same text keeps the result.
	s.mu.Lock()
	s.draft.Delivery.NormalizedAddress = "Calle Comercio 99, La Paz"
	s.mu.Unlock()
	require.NoError(t, w.SetDelivery(s.ID, DeliveryUpdate{RawAddressText: &addr}))
	assert.NotEmpty(t, draftOf(s).Delivery.NormalizedAddress)
}

func TestResolveAddress(t *testing.T) {
	w, m := newTestWorkflow(t)
	m.geocoder.ResolveFunc = func(ctx context.Context, query string) (*geocode.Result, error) {
		return &geocode.Result{FormattedAddress: "Avenida Ballivian 1234, La Paz", Lat: -16.53, Lng: -68.08}, nil
	}

	s := w.Start(context.Background())
	addr := "Av. Ballivian 1234"
	require.NoError(t, w.SetDelivery(s.ID, DeliveryUpdate{RawAddressText: &addr}))
	require.NoError(t, w.ResolveAddress(context.Background(), s.ID))

	d := draftOf(s)
	assert.Equal(t, "Avenida Ballivian 1234, La Paz", d.Delivery.NormalizedAddress)
	require.NotNil(t, d.Delivery.Coordinates)
	assert.Equal(t, -16.53, d.Delivery.Coordinates.Lat)
}

func TestResolveAddressTooShort(t *testing.T) {
	w, _ := newTestWorkflow(t)
	s := w.Start(context.Background())

	addr := "Av. 12"
	require.NoError(t, w.SetDelivery(s.ID, DeliveryUpdate{RawAddressText: &addr}))
	assert.ErrorIs(t, w.ResolveAddress(context.Background(), s.ID), ErrAddressTooShort)
}

func TestResolveAddressNoMatchKeepsRawText(t *testing.T) {
	w, _ := newTestWorkflow(t)
	s := w.Start(context.Background())

	addr := "zona desconocida xyz"
	require.NoError(t, w.SetDelivery(s.ID, DeliveryUpdate{RawAddressText: &addr}))
	assert.ErrorIs(t, w.ResolveAddress(context.Background(), s.ID), ErrAddressNotFound)

	d := draftOf(s)
	assert.Equal(t, addr, d.Delivery.RawAddressText)
	assert.Empty(t, d.Delivery.NormalizedAddress)
}

func TestSetCustomerNormalizesPhone(t *testing.T) {
	w, _ := newTestWorkflow(t)
	s := w.Start(context.Background())

	require.NoError(t, w.SetCustomer(s.ID, " Juan Mamani ", " 4567890 ", "777-123-45"))
	d := draftOf(s)
	assert.Equal(t, "Juan Mamani", d.Customer.Name)
	assert.Equal(t, "4567890", d.Customer.NationalID)
	assert.Equal(t, "59177712345", d.Customer.Phone)
}

func TestPayments(t *testing.T) {
	w, _ := newTestWorkflow(t)
	s := w.Start(context.Background())

	assert.ErrorIs(t, w.AddPayment(s.ID, "CARD", 100), ErrInvalidPayment)
	assert.ErrorIs(t, w.AddPayment(s.ID, domain.PaymentCash, 0), ErrInvalidPayment)

	require.NoError(t, w.AddPayment(s.ID, domain.PaymentCash, 150))
	assert.Equal(t, 150.0, draftOf(s).PaymentsTotal())

	assert.ErrorIs(t, w.RemovePayment(s.ID, 5), ErrPaymentNotFound)
	require.NoError(t, w.RemovePayment(s.ID, 0))
	assert.Empty(t, draftOf(s).Payments)
}

func TestSubmitHappyPath(t *testing.T) {
	w, m := newTestWorkflow(t)
	m.submitter.OrderNumber = "PED-0042"

	s := w.Start(context.Background())
	require.Eventually(t, func() bool {
		return draftOf(s).SellerName == "Maria Quispe"
	}, time.Second, 5*time.Millisecond)
	loadDraft(t, s, validDraft())

	orderNumber, err := w.Submit(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, "PED-0042", orderNumber)

	require.Len(t, m.submitter.Calls, 1)
	sent := m.submitter.Calls[0]
	assert.Equal(t, "QR", sent.PaymentMethod)
	assert.Equal(t, 150.0, sent.PaymentAmount)
	assert.Equal(t, "Maria Quispe", sent.SellerName)

	// Success resets to a fresh intake draft for the same seller.
	d := draftOf(s)
	assert.Equal(t, domain.StageIntake, d.Stage)
	assert.Empty(t, d.Items)
	assert.Empty(t, d.Payments)
	assert.Equal(t, "Maria Quispe", d.SellerName)
}

func TestSubmitBlockedOffPaymentStage(t *testing.T) {
	w, m := newTestWorkflow(t)
	s := w.Start(context.Background())
	loadDraft(t, s, func() *domain.DraftOrder {
		d := validDraft()
		d.Stage = domain.StageCustomer
		return d
	}())

	_, err := w.Submit(context.Background(), s.ID)
	assert.ErrorIs(t, err, ErrSubmitNotAtLastStep)
	assert.Empty(t, m.submitter.Calls)
}

func TestSubmitReconciliationMismatchNeverReachesBackend(t *testing.T) {
	w, m := newTestWorkflow(t)
	s := w.Start(context.Background())
	loadDraft(t, s, func() *domain.DraftOrder {
		d := validDraft()
		d.Payments[0].Amount = 149.00
		return d
	}())

	_, err := w.Submit(context.Background(), s.ID)
	require.Error(t, err)
	assert.Contains(t, domain.GetValidationFields(err), "payments")
	assert.Empty(t, m.submitter.Calls, "a mismatched draft must not go over the wire")
}

func TestSubmitTwoPaymentsNeverReachBackend(t *testing.T) {
	w, m := newTestWorkflow(t)
	s := w.Start(context.Background())
	loadDraft(t, s, func() *domain.DraftOrder {
		d := validDraft()
		d.Payments = []domain.PaymentEntry{
			{Method: domain.PaymentCash, Amount: 100.00},
			{Method: domain.PaymentQR, Amount: 50.00},
		}
		return d
	}())

	_, err := w.Submit(context.Background(), s.ID)
	require.Error(t, err)
	assert.Empty(t, m.submitter.Calls)
}

func TestSubmitFailureLeavesDraftIntact(t *testing.T) {
	w, m := newTestWorkflow(t)
	m.submitter.Err = domain.Unavailable(nil, "backend.submit", "backend unreachable")

	s := w.Start(context.Background())
	loadDraft(t, s, validDraft())
	before := draftOf(s)

	_, err := w.Submit(context.Background(), s.ID)
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.EUNAVAILABLE))

	after := draftOf(s)
	assert.Equal(t, before, after, "a failed submit must not change the draft")
	assert.Equal(t, domain.StagePayment, after.Stage)

	// The agent can retry the identical draft once the backend is up.
	m.submitter.Err = nil
	orderNumber, err := w.Submit(context.Background(), s.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, orderNumber)
}

func TestSubmitRejectionPreservesDraft(t *testing.T) {
	w, m := newTestWorkflow(t)
	m.submitter.Err = domain.Errorf(domain.EREJECTED, "backend.submit", "Stock insuficiente para SOP-001")

	s := w.Start(context.Background())
	loadDraft(t, s, validDraft())
	before := draftOf(s)

	_, err := w.Submit(context.Background(), s.ID)
	require.Error(t, err)
	assert.Equal(t, "Stock insuficiente para SOP-001", domain.ErrorMessage(err))
	assert.Equal(t, before, draftOf(s))
}

func TestSubmitSingleFlight(t *testing.T) {
	w, m := newTestWorkflow(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	slow := &blockingSubmitter{entered: entered, release: release, inner: m.submitter}
	w.backend = slow

	s := w.Start(context.Background())
	loadDraft(t, s, validDraft())

	done := make(chan error, 1)
	go func() {
		_, err := w.Submit(context.Background(), s.ID)
		done <- err
	}()
	<-entered

	_, err := w.Submit(context.Background(), s.ID)
	assert.ErrorIs(t, err, ErrSubmitInFlight)

	close(release)
	require.NoError(t, <-done)
}

type blockingSubmitter struct {
	entered chan struct{}
	release chan struct{}
	inner   backend.Submitter
}

func (b *blockingSubmitter) Submit(ctx context.Context, order *backend.SubmitRequest) (string, error) {
	close(b.entered)
	<-b.release
	return b.inner.Submit(ctx, order)
}
