package repository

import (
	"roster-desk/pkg/database"

	"go.uber.org/zap"
)

type Repository struct {
	Session     SessionRepository
	Booking     BookingRepository
	Participant ParticipantRepository
	Member      MemberRepository
	GuestPass   GuestPassRepository
	Payment     PaymentRepository
	Provenance  ProvenanceRepository
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		Session:     NewSessionRepository(db, log),
		Booking:     NewBookingRepository(db, log),
		Participant: NewParticipantRepository(db, log),
		Member:      NewMemberRepository(db, log),
		GuestPass:   NewGuestPassRepository(db, log),
		Payment:     NewPaymentRepository(db, log),
		Provenance:  NewProvenanceRepository(db, log),
	}
}
