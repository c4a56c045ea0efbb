package service

import (
	"github.com/hhios1618-pixel/registroventas/internal/domain"
)

// Session / navigation errors
var (
	ErrSessionNotFound = domain.Errorf(domain.ENOTFOUND, "", "Session not found")
	ErrAlreadyAtFirst  = domain.Errorf(domain.EINVALID, "", "Already at the first step")
	ErrAlreadyAtLast   = domain.Errorf(domain.EINVALID, "", "Already at the last step")
)

// Line item errors
var (
	ErrItemNotFound         = domain.Errorf(domain.ENOTFOUND, "", "Line item not found")
	ErrInvalidQuantity      = domain.Errorf(domain.EINVALID, "", "Quantity must be greater than 0")
	ErrInvalidUnitPrice     = domain.Errorf(domain.EINVALID, "", "Unit price must be greater than 0")
	ErrInvalidSaleType      = domain.Errorf(domain.EINVALID, "", "Sale type must be RETAIL or WHOLESALE")
	ErrCandidateNotFound    = domain.Errorf(domain.ENOTFOUND, "", "Candidate is no longer available for this line")
	ErrImageUploadInFlight  = domain.Errorf(domain.ECONFLICT, "", "A photo is already being uploaded for this line")
	ErrInterpretInFlight    = domain.Errorf(domain.ECONFLICT, "", "An interpretation is already running")
	ErrEmptyInterpretInput  = domain.Errorf(domain.EINVALID, "", "Paste the order text before interpreting")
	ErrInterpreterNoItems   = domain.Errorf(domain.EINVALID, "", "No items could be read from the pasted text")
)

// Delivery errors
var (
	ErrGeocodeInFlight  = domain.Errorf(domain.ECONFLICT, "", "An address lookup is already running")
	ErrAddressTooShort  = domain.Errorf(domain.EINVALID, "", "Address text is too short to look up")
	ErrAddressNotFound  = domain.Errorf(domain.ENOTFOUND, "", "No match found for that address")
)

// Payment / submission errors
var (
	ErrPaymentNotFound     = domain.Errorf(domain.ENOTFOUND, "", "Payment entry not found")
	ErrInvalidPayment      = domain.Errorf(domain.EINVALID, "", "Payment needs a valid method and a positive amount")
	ErrSubmitInFlight      = domain.Errorf(domain.ECONFLICT, "", "A submission is already in flight")
	ErrSubmitNotAtLastStep = domain.Errorf(domain.EINVALID, "", "Submission is only available at the payment step")
)
