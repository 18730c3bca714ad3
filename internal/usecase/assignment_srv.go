package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"roster-desk/internal/data/entity"
	"roster-desk/internal/data/repository"
	"roster-desk/internal/dto/request"
	"roster-desk/internal/dto/response"
	"roster-desk/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AssignmentService commits the first roster of a booking. Each method is
// one provenance: a legacy import awaiting review, a pending booking, or an
// external calendar import.
type AssignmentService interface {
	ResolveLegacyReview(ctx context.Context, reviewID string, req *request.FinalizeRosterRequest) (*response.FinalizeResponse, error)
	AssignPendingBooking(ctx context.Context, bookingID string, req *request.FinalizeRosterRequest) (*response.FinalizeResponse, error)
	LinkExternalImport(ctx context.Context, externalID string, req *request.FinalizeRosterRequest) (*response.FinalizeResponse, error)
}

type assignmentService struct {
	repo          *repository.Repository
	fees          *feeCalculator
	pub           Publisher
	minExternalID int
	log           *zap.Logger
}

func NewAssignmentService(repo *repository.Repository, deps Deps, config *utils.Config, log *zap.Logger) AssignmentService {
	log = log.With(zap.String("service", "assignment"))
	return &assignmentService{
		repo:          repo,
		fees:          newFeeCalculator(repo.Participant, deps.Pricing, log),
		pub:           deps.Publisher,
		minExternalID: config.Desk.ExternalIDMinLength,
		log:           log,
	}
}

func (s *assignmentService) ResolveLegacyReview(ctx context.Context, reviewID string, req *request.FinalizeRosterRequest) (*response.FinalizeResponse, error) {
	id, err := parseID("legacy review", reviewID)
	if err != nil {
		return nil, err
	}

	review, err := s.repo.Provenance.FindLegacyReview(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find legacy review %s: %w", reviewID, err)
	}
	if review == nil {
		return nil, notFound("legacy review %s", reviewID)
	}
	if review.ResolvedAt != nil {
		return nil, fmt.Errorf("legacy review %s: %w", reviewID, ErrConflict)
	}

	return s.commit(ctx, review.BookingID, req, entity.Provenance{
		Kind:           entity.ProvenanceLegacyReview,
		LegacyReviewID: review.ID,
	})
}

func (s *assignmentService) AssignPendingBooking(ctx context.Context, bookingID string, req *request.FinalizeRosterRequest) (*response.FinalizeResponse, error) {
	id, err := parseID("booking", bookingID)
	if err != nil {
		return nil, err
	}
	return s.commit(ctx, id, req, entity.Provenance{Kind: entity.ProvenancePending})
}

func (s *assignmentService) LinkExternalImport(ctx context.Context, externalID string, req *request.FinalizeRosterRequest) (*response.FinalizeResponse, error) {
	externalID = strings.TrimSpace(externalID)
	if !utils.ValidExternalID(externalID, s.minExternalID) {
		return nil, invalid("external booking ID must be numeric with at least %d digits", s.minExternalID)
	}

	imp, err := s.repo.Provenance.FindExternalImport(ctx, externalID)
	if err != nil {
		return nil, fmt.Errorf("find external import %s: %w", externalID, err)
	}
	if imp == nil {
		return nil, notFound("external booking %s", externalID)
	}
	if imp.LinkedAt != nil {
		return nil, fmt.Errorf("external booking %s: %w", externalID, ErrConflict)
	}

	return s.commit(ctx, imp.BookingID, req, entity.Provenance{
		Kind:       entity.ProvenanceExternal,
		ExternalID: externalID,
	})
}

func (s *assignmentService) commit(ctx context.Context, bookingID uuid.UUID, req *request.FinalizeRosterRequest, prov entity.Provenance) (*response.FinalizeResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("find booking %s: %w", bookingID.String(), err)
	}
	if booking == nil {
		return nil, notFound("booking %s", bookingID.String())
	}
	if booking.RosterCommitted {
		return nil, fmt.Errorf("booking %s roster: %w", bookingID.String(), ErrConflict)
	}
	if booking.Status != entity.BookingStatusPending {
		return nil, invalid("booking %s is %s", bookingID.String(), booking.Status)
	}
	if len(req.AdditionalPlayers) > 0 && !booking.Category.AllowsAdditionalPlayers() {
		return nil, invalid("%s bookings do not take additional players", booking.Category)
	}

	participants, err := s.buildParticipants(ctx, booking, req)
	if err != nil {
		return nil, err
	}

	expected := booking.ExpectedPlayerCount
	if expected < len(participants) {
		expected = len(participants)
	}
	if expected < 1 {
		expected = 1
	}
	now := time.Now()
	for slot := len(participants) + 1; slot <= expected; slot++ {
		participants = append(participants, &entity.Participant{
			BaseNoDelete:  entity.BaseNoDelete{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
			BookingID:     booking.ID,
			SlotNumber:    slot,
			Type:          entity.ParticipantTypeEmpty,
			PaymentStatus: entity.PaymentStatusPending,
		})
	}

	err = s.repo.Participant.CommitRoster(ctx, booking.ID, participants, expected, prov)
	switch {
	case errors.Is(err, repository.ErrRosterCommitted), errors.Is(err, repository.ErrProvenanceResolved):
		return nil, fmt.Errorf("commit roster for booking %s: %v: %w", booking.ID.String(), err, ErrConflict)
	case err != nil:
		s.log.Error("Failed to commit roster", zap.Error(err), zap.String("booking_id", booking.ID.String()))
		return nil, fmt.Errorf("commit roster for booking %s: %w", booking.ID.String(), err)
	}
	booking.RosterCommitted = true
	booking.ExpectedPlayerCount = expected
	booking.OwnerEmail = *participants[0].UserEmail
	booking.OwnerName = participants[0].DisplayName

	feesDue, err := s.fees.Recalculate(ctx, booking, participants)
	if err != nil {
		return nil, err
	}

	publish(ctx, s.pub, s.log, response.PushRosterUpdate, booking.ID.String(), response.ActionRosterAssigned)

	s.log.Info("Roster assigned",
		zap.String("booking_id", booking.ID.String()),
		zap.String("provenance", string(prov.Kind)),
		zap.Int("players", len(req.AdditionalPlayers)+1),
		zap.Bool("fees_due", feesDue),
	)

	return &response.FinalizeResponse{
		BookingID:        booking.ID.String(),
		FeesRecalculated: feesDue,
	}, nil
}

func (s *assignmentService) buildParticipants(ctx context.Context, booking *entity.Booking, req *request.FinalizeRosterRequest) ([]*entity.Participant, error) {
	if req.Owner.Type == request.PlayerTypeGuest {
		return nil, invalid("the owner must be a member or visitor")
	}

	seen := map[string]bool{}
	now := time.Now()
	var out []*entity.Participant

	players := append([]request.PlayerRequest{req.Owner}, req.AdditionalPlayers...)
	for i, pl := range players {
		p := &entity.Participant{
			BaseNoDelete:  entity.BaseNoDelete{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
			BookingID:     booking.ID,
			SlotNumber:    i + 1,
			IsPrimary:     i == 0,
			DisplayName:   strings.TrimSpace(pl.Name),
			PaymentStatus: entity.PaymentStatusPending,
		}

		if pl.Type == request.PlayerTypeGuest {
			p.Type = entity.ParticipantTypeGuest
			p.Guest = &entity.GuestInfo{Name: p.DisplayName}
			if pl.Email != nil && *pl.Email != "" {
				e := utils.NormalizeEmail(*pl.Email)
				p.Guest.Email = &e
			}
			out = append(out, p)
			continue
		}

		if pl.Email == nil || strings.TrimSpace(*pl.Email) == "" {
			return nil, invalid("player %d needs an email", i+1)
		}
		email := utils.NormalizeEmail(*pl.Email)
		if seen[email] {
			return nil, invalid("%s appears twice on the roster", email)
		}
		seen[email] = true

		member, err := s.repo.Member.FindByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("find member %s: %w", email, err)
		}
		if member == nil {
			return nil, notFound("member %s", email)
		}

		p.UserEmail = &member.Email
		p.DisplayName = member.Name
		p.Tier = member.Tier
		switch {
		case i == 0:
			p.Type = entity.ParticipantTypeOwner
		case member.Kind == entity.MemberKindVisitor:
			p.Type = entity.ParticipantTypeVisitor
		default:
			p.Type = entity.ParticipantTypeMember
		}
		out = append(out, p)
	}

	return out, nil
}
