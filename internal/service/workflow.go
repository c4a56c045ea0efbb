// Package service implements the order intake workflow: a linear
// five-stage draft builder with gated forward navigation, per-line
// catalog matching, and a single-flight all-or-nothing submission.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hhios1618-pixel/registroventas/internal/backend"
	"github.com/hhios1618-pixel/registroventas/internal/catalog"
	"github.com/hhios1618-pixel/registroventas/internal/domain"
	"github.com/hhios1618-pixel/registroventas/internal/geocode"
	"github.com/hhios1618-pixel/registroventas/internal/identity"
	"github.com/hhios1618-pixel/registroventas/internal/interpret"
	"github.com/hhios1618-pixel/registroventas/internal/phone"
	"github.com/hhios1618-pixel/registroventas/internal/storage"
	"github.com/hhios1618-pixel/registroventas/internal/telemetry"
)

const (
	// MinAddressQueryLength is the shortest address text worth sending
	// to the geocoder.
	MinAddressQueryLength = 8

	identityTimeout  = 5 * time.Second
	interpretTimeout = 30 * time.Second
	geocodeTimeout   = 10 * time.Second
	uploadTimeout    = 30 * time.Second
)

// Session is one agent's in-progress order entry. All draft state is
// guarded by mu; collaborator calls run outside the lock and their
// results are merged back in under it.
type Session struct {
	ID        uuid.UUID
	CreatedAt time.Time

	mu    sync.Mutex
	draft *domain.DraftOrder

	matcher *CatalogMatcher

	// Single-flight guards. Each long-running collaborator call gets
	// at most one in-flight instance per session (per line, for
	// uploads); a second request while one runs is rejected, not
	// queued.
	interpreting bool
	geocoding    bool
	submitting   bool
	uploading    map[uint64]bool

	nextLineID uint64
}

// newLineID hands out session-stable line keys. Caller holds mu.
func (s *Session) newLineID() uint64 {
	s.nextLineID++
	return s.nextLineID
}

// Workflow owns every live session and every collaborator client.
type Workflow struct {
	logger *slog.Logger

	identity identity.Resolver
	interp   interpret.Interpreter
	searcher catalog.Searcher
	geocoder geocode.Geocoder
	store    storage.Store
	backend  backend.Submitter

	debounce time.Duration

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// WorkflowConfig wires the collaborators into a Workflow.
type WorkflowConfig struct {
	Logger      *slog.Logger
	Identity    identity.Resolver
	Interpreter interpret.Interpreter
	Searcher    catalog.Searcher
	Geocoder    geocode.Geocoder
	Store       storage.Store
	Submitter   backend.Submitter

	// SearchDebounce overrides the default keystroke debounce.
	SearchDebounce time.Duration
}

func NewWorkflow(cfg WorkflowConfig) *Workflow {
	return &Workflow{
		logger:   cfg.Logger,
		identity: cfg.Identity,
		interp:   cfg.Interpreter,
		searcher: cfg.Searcher,
		geocoder: cfg.Geocoder,
		store:    cfg.Store,
		backend:  cfg.Submitter,
		debounce: cfg.SearchDebounce,
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Start opens a fresh session at the intake stage. The seller name is
// fetched in the background: the draft starts with a placeholder and
// the real name is merged in when the identity service answers. An
// identity failure is logged and the placeholder stays.
func (w *Workflow) Start(ctx context.Context) *Session {
	s := &Session{
		ID:        uuid.New(),
		CreatedAt: time.Now(),
		draft:     domain.NewDraftOrder(identity.PlaceholderSeller),
		uploading: make(map[uint64]bool),
	}
	s.matcher = newCatalogMatcher(s, w.searcher, w.debounce, w.logger)

	w.mu.Lock()
	w.sessions[s.ID] = s
	w.mu.Unlock()

	if telemetry.Business != nil {
		telemetry.Business.SessionsStarted.Inc()
	}
	w.logger.Info("session started", slog.String("session_id", s.ID.String()))

	go w.fetchSeller(s)
	return s
}

func (w *Workflow) fetchSeller(s *Session) {
	ctx, cancel := context.WithTimeout(context.Background(), identityTimeout)
	defer cancel()

	name, err := w.identity.CurrentSeller(ctx)
	if err != nil || strings.TrimSpace(name) == "" {
		w.logger.Warn("identity lookup failed, keeping placeholder",
			slog.String("session_id", s.ID.String()),
			slog.Any("error", err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// A successful submit may already have reset the draft; the reset
	// preserves the seller, so overwriting the placeholder is safe
	// either way.
	if s.draft.SellerName == identity.PlaceholderSeller {
		s.draft.SellerName = name
	}
}

// Get returns the live session for id.
func (w *Workflow) Get(id uuid.UUID) (*Session, error) {
	w.mu.RLock()
	s, ok := w.sessions[id]
	w.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Discard drops a session and everything in its draft.
func (w *Workflow) Discard(id uuid.UUID) error {
	w.mu.Lock()
	s, ok := w.sessions[id]
	delete(w.sessions, id)
	w.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	s.mu.Lock()
	s.matcher.CancelAll()
	s.mu.Unlock()

	if telemetry.Business != nil {
		telemetry.Business.SessionsDiscarded.Inc()
	}
	w.logger.Info("session discarded", slog.String("session_id", id.String()))
	return nil
}

// Snapshot returns a deep copy of the session's draft, safe to
// serialize without holding the lock.
func (w *Workflow) Snapshot(id uuid.UUID) (*domain.DraftOrder, error) {
	s, err := w.Get(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Clone(), nil
}

// Advance moves the draft one stage forward if the current stage's
// gate passes. A blocked advance returns a ValidationError naming
// every failing field; the stage does not move.
func (w *Workflow) Advance(id uuid.UUID) (*domain.DraftOrder, error) {
	s, err := w.Get(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stage := s.draft.Stage
	if stage >= domain.StageMax {
		return nil, ErrAlreadyAtLast
	}
	if !CanAdvance(stage, s.draft) {
		if telemetry.Business != nil {
			telemetry.Business.StageBlocked.WithLabelValues(stage.String()).Inc()
		}
		return nil, gateError(stage, s.draft)
	}

	s.draft.Stage = stage + 1
	if telemetry.Business != nil {
		telemetry.Business.StageAdvances.WithLabelValues(stage.String()).Inc()
	}
	return s.draft.Clone(), nil
}

// Back moves the draft one stage backward. No gate applies: the agent
// may always return to fix earlier input, and nothing entered so far
// is lost.
func (w *Workflow) Back(id uuid.UUID) (*domain.DraftOrder, error) {
	s, err := w.Get(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.draft.Stage <= domain.StageMin {
		return nil, ErrAlreadyAtFirst
	}
	s.draft.Stage--
	return s.draft.Clone(), nil
}

// gateError translates a failed stage gate into per-field messages.
func gateError(stage domain.Stage, d *domain.DraftOrder) error {
	var err error
	switch stage {
	case domain.StageIntake:
		err = domain.AddFieldError(err, "items", "Add at least one item before continuing")
	case domain.StageProducts:
		for _, issue := range ItemIssues(d) {
			err = domain.AddFieldError(err, itemField(issue.Index, issue.Field), issue.Message)
		}
	case domain.StageDelivery:
		for field, msg := range DeliveryIssues(d) {
			err = domain.AddFieldError(err, "delivery."+field, msg)
		}
	case domain.StageCustomer:
		for field, msg := range CustomerIssues(d) {
			err = domain.AddFieldError(err, "customer."+field, msg)
		}
	}
	if ve, ok := err.(*domain.ValidationError); ok {
		ve.Op = "workflow.advance"
	}
	return err
}

// AddItem appends an empty line to the draft and returns its
// session-stable ID.
func (w *Workflow) AddItem(id uuid.UUID) (uint64, error) {
	s, err := w.Get(id)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	lineID := s.newLineID()
	s.draft.Items = append(s.draft.Items, domain.LineItem{
		ID:                lineID,
		Quantity:          1,
		RecognitionStatus: domain.RecognitionUnknown,
	})
	return lineID, nil
}

// RemoveItem deletes a line and cancels any pending search for it.
func (w *Workflow) RemoveItem(id uuid.UUID, lineID uint64) error {
	s, err := w.Get(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, idx := s.draft.ItemByID(lineID)
	if idx < 0 {
		return ErrItemNotFound
	}
	s.draft.Items = append(s.draft.Items[:idx], s.draft.Items[idx+1:]...)
	s.matcher.Cancel(lineID)
	return nil
}

// ItemUpdate carries the editable numeric fields of a line. Nil
// pointers leave the field unchanged.
type ItemUpdate struct {
	Quantity  *int
	UnitPrice *float64
	SaleType  *domain.SaleType
}

// UpdateItem patches a line's quantity, price, or sale type. None of
// these touch the catalog confirmation; only the name does that.
func (w *Workflow) UpdateItem(id uuid.UUID, lineID uint64, upd ItemUpdate) error {
	s, err := w.Get(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	item, _ := s.draft.ItemByID(lineID)
	if item == nil {
		return ErrItemNotFound
	}
	if upd.Quantity != nil {
		if *upd.Quantity <= 0 {
			return ErrInvalidQuantity
		}
		item.Quantity = *upd.Quantity
	}
	if upd.UnitPrice != nil {
		if *upd.UnitPrice <= 0 {
			return ErrInvalidUnitPrice
		}
		item.UnitPrice = *upd.UnitPrice
	}
	if upd.SaleType != nil {
		if !upd.SaleType.Valid() {
			return ErrInvalidSaleType
		}
		item.SaleType = *upd.SaleType
	}
	return nil
}

// SetItemName records a product-name keystroke: the rename invalidates
// any prior confirmation and the matcher schedules a debounced catalog
// search for the new text.
func (w *Workflow) SetItemName(id uuid.UUID, lineID uint64, name string) error {
	s, err := w.Get(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	item, _ := s.draft.ItemByID(lineID)
	if item == nil {
		return ErrItemNotFound
	}
	item.Rename(name)
	s.matcher.Keystroke(item)
	return nil
}

// AcceptCandidate confirms a line against one of its on-screen
// candidates, identified by product code.
func (w *Workflow) AcceptCandidate(id uuid.UUID, lineID uint64, productCode string) error {
	s, err := w.Get(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	item, _ := s.draft.ItemByID(lineID)
	if item == nil {
		return ErrItemNotFound
	}
	for _, c := range item.Candidates {
		if c.Code == productCode {
			item.Accept(c)
			// Kill any search still in flight for the old text so it
			// cannot land over the confirmation.
			s.matcher.Cancel(lineID)
			if telemetry.Business != nil {
				telemetry.Business.CandidatesChosen.Inc()
			}
			return nil
		}
	}
	return ErrCandidateNotFound
}

// AttachImage stores a photo for a line and records its URL on the
// item. One upload per line at a time; a second concurrent attempt is
// rejected. The line may be removed while the store call runs, in
// which case the stored file is simply orphaned.
func (w *Workflow) AttachImage(ctx context.Context, id uuid.UUID, lineID uint64, filename string, r io.Reader) (string, error) {
	s, err := w.Get(id)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	if item, _ := s.draft.ItemByID(lineID); item == nil {
		s.mu.Unlock()
		return "", ErrItemNotFound
	}
	if s.uploading[lineID] {
		s.mu.Unlock()
		return "", ErrImageUploadInFlight
	}
	s.uploading[lineID] = true
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()
	url, saveErr := w.store.Save(ctx, filename, r)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.uploading, lineID)
	if saveErr != nil {
		return "", saveErr
	}
	if item, _ := s.draft.ItemByID(lineID); item != nil {
		item.ImageReference = url
	}
	return url, nil
}

// Interpret sends pasted free text to the interpreter and replaces the
// draft's item list with the result. Customer hints fill only fields
// the agent has not typed into; the payment amount is kept as a
// prefill hint, never recorded as a payment.
func (w *Workflow) Interpret(ctx context.Context, id uuid.UUID, text string) error {
	s, err := w.Get(id)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return ErrEmptyInterpretInput
	}

	s.mu.Lock()
	if s.interpreting {
		s.mu.Unlock()
		return ErrInterpretInFlight
	}
	s.interpreting = true
	s.mu.Unlock()

	if telemetry.Business != nil {
		telemetry.Business.Interpretations.Inc()
	}

	ctx, cancel := context.WithTimeout(ctx, interpretTimeout)
	defer cancel()
	res, callErr := w.interp.Interpret(ctx, text)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.interpreting = false

	if callErr != nil {
		if telemetry.Business != nil {
			telemetry.Business.InterpretationsFailed.Inc()
		}
		return callErr
	}
	if len(res.Items) == 0 {
		return ErrInterpreterNoItems
	}

	s.matcher.CancelAll()
	items := make([]domain.LineItem, 0, len(res.Items))
	for _, it := range res.Items {
		li := domain.LineItem{
			ID:                s.newLineID(),
			ProductName:       it.Name,
			Quantity:          it.Quantity,
			UnitPrice:         it.UnitPrice,
			RecognitionStatus: domain.RecognitionUnknown,
			Candidates:        it.Candidates,
		}
		if li.Quantity <= 0 {
			li.Quantity = 1
		}
		if len(li.Candidates) > 0 {
			li.RecognitionStatus = domain.RecognitionAmbiguous
		}
		items = append(items, li)
	}
	s.draft.Items = items

	if s.draft.Customer.Name == "" && res.CustomerName != "" {
		s.draft.Customer.Name = res.CustomerName
	}
	if s.draft.Customer.Phone == "" && res.CustomerPhone != "" {
		s.draft.Customer.Phone = phone.Normalize(res.CustomerPhone)
	}
	if s.draft.Delivery.Notes == "" && res.Notes != "" {
		s.draft.Delivery.Notes = res.Notes
	}
	if res.PaymentAmount > 0 {
		s.draft.PaymentHint = res.PaymentAmount
	}
	return nil
}

// DeliveryUpdate carries the editable delivery fields. Nil pointers
// leave the field unchanged.
type DeliveryUpdate struct {
	RawAddressText   *string
	DestinationLabel *string
	IsParcelShipment *bool
	DeliveryDate     *string
	WindowStart      *string
	WindowEnd        *string
	Notes            *string
}

// SetDelivery patches the delivery details. Editing the raw address
// text discards the previous geocoding result: normalized address and
// coordinates only ever describe the current text.
func (w *Workflow) SetDelivery(id uuid.UUID, upd DeliveryUpdate) error {
	s, err := w.Get(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	d := &s.draft.Delivery
	if upd.RawAddressText != nil && *upd.RawAddressText != d.RawAddressText {
		d.RawAddressText = *upd.RawAddressText
		d.NormalizedAddress = ""
		d.Coordinates = nil
	}
	if upd.DestinationLabel != nil {
		d.DestinationLabel = *upd.DestinationLabel
	}
	if upd.IsParcelShipment != nil {
		d.IsParcelShipment = *upd.IsParcelShipment
	}
	if upd.DeliveryDate != nil {
		d.DeliveryDate = *upd.DeliveryDate
	}
	if upd.WindowStart != nil {
		d.WindowStart = *upd.WindowStart
	}
	if upd.WindowEnd != nil {
		d.WindowEnd = *upd.WindowEnd
	}
	if upd.Notes != nil {
		d.Notes = *upd.Notes
	}
	return nil
}

// ResolveAddress geocodes the current raw address text. The result is
// merged only if the text has not changed while the lookup ran. A
// no-match answer clears nothing and is reported as not found; the raw
// text still satisfies the delivery gate on its own.
func (w *Workflow) ResolveAddress(ctx context.Context, id uuid.UUID) error {
	s, err := w.Get(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.geocoding {
		s.mu.Unlock()
		return ErrGeocodeInFlight
	}
	query := strings.TrimSpace(s.draft.Delivery.RawAddressText)
	if len(query) < MinAddressQueryLength {
		s.mu.Unlock()
		return ErrAddressTooShort
	}
	s.geocoding = true
	s.mu.Unlock()

	if telemetry.Business != nil {
		telemetry.Business.GeocodeAttempts.Inc()
	}

	ctx, cancel := context.WithTimeout(ctx, geocodeTimeout)
	defer cancel()
	res, callErr := w.geocoder.Resolve(ctx, query)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.geocoding = false

	if callErr != nil {
		if errors.Is(callErr, geocode.ErrNoMatch) {
			if telemetry.Business != nil {
				telemetry.Business.GeocodeMisses.Inc()
			}
			return ErrAddressNotFound
		}
		return callErr
	}
	if strings.TrimSpace(s.draft.Delivery.RawAddressText) != query {
		// The agent kept editing; this answer describes old text.
		return nil
	}
	s.draft.Delivery.NormalizedAddress = res.FormattedAddress
	s.draft.Delivery.Coordinates = &domain.Coordinates{Lat: res.Lat, Lng: res.Lng}
	return nil
}

// SetCustomer records the customer's identity. The phone is stored in
// normalized submission format; strict validation happens at the
// customer-stage gate, not here, so partial input is never rejected.
func (w *Workflow) SetCustomer(id uuid.UUID, name, nationalID, rawPhone string) error {
	s, err := w.Get(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.draft.Customer.Name = strings.TrimSpace(name)
	s.draft.Customer.NationalID = strings.TrimSpace(nationalID)
	s.draft.Customer.Phone = phone.Normalize(rawPhone)
	return nil
}

// AddPayment records a payment entry at the payment stage.
func (w *Workflow) AddPayment(id uuid.UUID, method domain.PaymentMethod, amount float64) error {
	s, err := w.Get(id)
	if err != nil {
		return err
	}
	if !method.Valid() || amount <= 0 {
		return ErrInvalidPayment
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.draft.Payments = append(s.draft.Payments, domain.PaymentEntry{Method: method, Amount: amount})
	return nil
}

// RemovePayment deletes the payment entry at index.
func (w *Workflow) RemovePayment(id uuid.UUID, index int) error {
	s, err := w.Get(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.draft.Payments) {
		return ErrPaymentNotFound
	}
	s.draft.Payments = append(s.draft.Payments[:index], s.draft.Payments[index+1:]...)
	return nil
}

// Submit sends the draft to the backend. All or nothing: the network
// call works on a deep snapshot, so on any failure the live draft is
// exactly what it was before the attempt and the agent may fix and
// retry. On success the session resets to a fresh intake-stage draft
// that keeps only the seller name.
func (w *Workflow) Submit(ctx context.Context, id uuid.UUID) (string, error) {
	s, err := w.Get(id)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	if s.submitting {
		s.mu.Unlock()
		return "", ErrSubmitInFlight
	}
	if s.draft.Stage != domain.StageMax {
		s.mu.Unlock()
		return "", ErrSubmitNotAtLastStep
	}
	if gateErr := SubmitCheck(s.draft); gateErr != nil {
		if telemetry.Business != nil && !Reconciled(s.draft) {
			telemetry.Business.ReconciliationFailures.Inc()
		}
		s.mu.Unlock()
		return "", gateErr
	}
	s.submitting = true
	snapshot := s.draft.Clone()
	s.mu.Unlock()

	if telemetry.Business != nil {
		telemetry.Business.SubmitAttempts.Inc()
	}
	orderNumber, callErr := w.backend.Submit(ctx, backend.FromDraft(snapshot))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false

	if callErr != nil {
		if telemetry.Business != nil {
			telemetry.Business.SubmitFailed.Inc()
		}
		w.logger.Warn("order submission failed",
			slog.String("session_id", id.String()),
			slog.String("error", callErr.Error()))
		return "", callErr
	}

	if telemetry.Business != nil {
		telemetry.Business.SubmitSucceeded.Inc()
		telemetry.Business.OrderValue.Observe(snapshot.ItemsTotal())
		telemetry.Business.OrderItemCount.Observe(float64(len(snapshot.Items)))
	}
	w.logger.Info("order submitted",
		slog.String("session_id", id.String()),
		slog.String("order_number", orderNumber))

	s.matcher.CancelAll()
	s.draft = domain.NewDraftOrder(s.draft.SellerName)
	return orderNumber, nil
}
