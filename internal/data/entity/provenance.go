package entity

import (
	"time"

	"github.com/google/uuid"
)

// LegacyReview is an imported booking that could not be matched to a member.
type LegacyReview struct {
	BaseSimple
	BookingID  uuid.UUID  `db:"booking_id"`
	SourceName string     `db:"source_name"`
	ResolvedAt *time.Time `db:"resolved_at"`
}

// ExternalImport links an external calendar booking id to a local booking.
type ExternalImport struct {
	ExternalID string     `db:"external_id"`
	BookingID  uuid.UUID  `db:"booking_id"`
	LinkedAt   *time.Time `db:"linked_at"`
	CreatedAt  time.Time  `db:"created_at"`
}

type ProvenanceKind string

const (
	ProvenanceLegacyReview ProvenanceKind = "legacy_review"
	ProvenancePending      ProvenanceKind = "pending_booking"
	ProvenanceExternal     ProvenanceKind = "external_import"
)

// Provenance records which import record a roster commit resolves.
type Provenance struct {
	Kind           ProvenanceKind
	LegacyReviewID uuid.UUID
	ExternalID     string
}
