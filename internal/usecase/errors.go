package usecase

import (
	"errors"
	"fmt"

	"roster-desk/internal/dto/response"
	"roster-desk/pkg/utils"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrValidation           = errors.New("validation failed")
	ErrConflict             = errors.New("conflict")
	ErrPaymentRequired      = errors.New("payment required")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrGuestPassUnavailable = errors.New("guest pass unavailable")
	ErrPricingUnavailable   = errors.New("pricing unavailable")
	ErrProvider             = errors.New("payment provider error")
)

// ValidationError carries per-field messages for a 400 response.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) > 0 {
		return "validation failed: " + utils.FormatValidationErrors(e.Fields)
	}
	return "validation failed: " + e.Message
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func validate(req any) error {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return &ValidationError{Message: "invalid request", Fields: errs}
	}
	return nil
}

func notFound(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// MemberMatchError is returned by AddGuest when the guest email belongs to a
// directory record and the caller did not force a guest entry.
type MemberMatchError struct {
	Member response.MemberMatchResponse
}

func (e *MemberMatchError) Error() string {
	return fmt.Sprintf("guest email %s matches member %s", e.Member.Email, e.Member.Name)
}

func (e *MemberMatchError) Is(target error) bool { return target == ErrConflict }

// PaymentGateError blocks check-in while the roster is incomplete or fees are
// outstanding.
type PaymentGateError struct {
	Reason string
	Gate   response.PaymentGate
}

func (e *PaymentGateError) Error() string {
	return "payment required: " + e.Reason
}

func (e *PaymentGateError) Is(target error) bool { return target == ErrPaymentRequired }
