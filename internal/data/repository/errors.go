package repository

import "errors"

var (
	ErrRosterCommitted      = errors.New("roster already committed")
	ErrProvenanceResolved   = errors.New("import record already resolved")
	ErrGuestPassExhausted   = errors.New("no guest passes remaining")
	ErrGuestPassAlreadyUsed = errors.New("guest pass already applied")
)
