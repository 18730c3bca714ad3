package frontdesk

import (
	"errors"
	"fmt"

	"roster-desk/internal/dto/request"
	"roster-desk/internal/dto/response"
)

var (
	ErrNoBooking            = errors.New("no booking open")
	ErrBusy                 = errors.New("another action is in progress")
	ErrFinalizeInFlight     = errors.New("finalize already in progress")
	ErrPaymentRequired      = errors.New("payment required")
	ErrNotFound             = errors.New("not found")
	ErrSavedCardDisabled    = errors.New("saved card unavailable for this session")
	ErrNothingOwed          = errors.New("nothing outstanding")
	ErrConfirmationNeeded   = errors.New("explicit confirmation required")
	ErrTransitionNotOffered = errors.New("status change not offered")
)

// ValidationError is raised before any request leaves the desk.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// MemberMatchWarning is returned when a guest email belongs to a directory
// record. Staff must pick a MatchChoice; it is never resolved automatically.
type MemberMatchWarning struct {
	Member  response.MemberMatchResponse
	Request request.AddGuestRequest
}

func (w *MemberMatchWarning) Error() string {
	return fmt.Sprintf("%s is a member (%s)", w.Member.Email, w.Member.Name)
}

// PaymentRequiredError carries the gate the server reported with a 402.
type PaymentRequiredError struct {
	Message string
	Gate    response.PaymentGate
}

func (e *PaymentRequiredError) Error() string { return e.Message }

func (e *PaymentRequiredError) Is(target error) bool { return target == ErrPaymentRequired }

// ProviderError is a declined or unusable payment method. The message is
// meant for staff.
type ProviderError struct {
	Outcome response.ChargeOutcome
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s", e.Outcome, e.Message)
}

// APIError is any other non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}
