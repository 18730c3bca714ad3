package usecase

import (
	"context"
	"fmt"
	"strings"

	"roster-desk/internal/data/entity"
	"roster-desk/internal/data/repository"
	"roster-desk/internal/dto/request"
	"roster-desk/internal/dto/response"
	"roster-desk/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type RosterService interface {
	GetRoster(ctx context.Context, bookingID string) (*response.RosterResponse, error)
	LinkMember(ctx context.Context, bookingID, slotID string, req *request.LinkMemberRequest) error
	UnlinkMember(ctx context.Context, bookingID, slotID string) error
	AddGuest(ctx context.Context, bookingID string, req *request.AddGuestRequest) error
	RemoveGuest(ctx context.Context, bookingID, guestID string) error
	UpdatePlayerCount(ctx context.Context, bookingID string, req *request.UpdatePlayerCountRequest) error
	SearchMembers(ctx context.Context, req *request.MemberSearchRequest) ([]response.MemberResponse, error)
}

type rosterService struct {
	repo *repository.Repository
	fees *feeCalculator
	pub  Publisher
	log  *zap.Logger
}

func NewRosterService(repo *repository.Repository, deps Deps, log *zap.Logger) RosterService {
	log = log.With(zap.String("service", "roster"))
	return &rosterService{
		repo: repo,
		fees: newFeeCalculator(repo.Participant, deps.Pricing, log),
		pub:  deps.Publisher,
		log:  log,
	}
}

func parseID(kind, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, invalid("invalid %s ID %q", kind, raw)
	}
	return id, nil
}

func loadBooking(ctx context.Context, repo *repository.Repository, rawID string) (*entity.Booking, error) {
	id, err := parseID("booking", rawID)
	if err != nil {
		return nil, err
	}

	booking, err := repo.Booking.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find booking %s: %w", rawID, err)
	}
	if booking == nil {
		return nil, notFound("booking %s", rawID)
	}
	return booking, nil
}

// loadEditable returns a booking whose committed roster may still change.
func loadEditable(ctx context.Context, repo *repository.Repository, rawID string) (*entity.Booking, []*entity.Participant, error) {
	booking, err := loadBooking(ctx, repo, rawID)
	if err != nil {
		return nil, nil, err
	}
	if !booking.RosterCommitted {
		return nil, nil, invalid("booking %s has no assigned roster yet", rawID)
	}
	if booking.Status == entity.BookingStatusCancelled {
		return nil, nil, invalid("booking %s is cancelled", rawID)
	}

	participants, err := repo.Participant.FindByBookingID(ctx, booking.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("load roster %s: %w", rawID, err)
	}
	return booking, participants, nil
}

func findParticipant(participants []*entity.Participant, rawID string) (*entity.Participant, error) {
	id, err := parseID("participant", rawID)
	if err != nil {
		return nil, err
	}
	for _, p := range participants {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, notFound("participant %s", rawID)
}

func emailOnRoster(participants []*entity.Participant, email string) *entity.Participant {
	for _, p := range participants {
		if p.UserEmail != nil && utils.NormalizeEmail(*p.UserEmail) == email {
			return p
		}
	}
	return nil
}

func guestEmailOnRoster(participants []*entity.Participant, email string) *entity.Participant {
	for _, p := range participants {
		if p.Guest != nil && p.Guest.Email != nil && utils.NormalizeEmail(*p.Guest.Email) == email {
			return p
		}
	}
	return nil
}

func (s *rosterService) GetRoster(ctx context.Context, bookingID string) (*response.RosterResponse, error) {
	booking, err := loadBooking(ctx, s.repo, bookingID)
	if err != nil {
		return nil, err
	}

	participants, err := s.repo.Participant.FindByBookingID(ctx, booking.ID)
	if err != nil {
		s.log.Error("Failed to load participants", zap.Error(err), zap.String("booking_id", bookingID))
		return nil, fmt.Errorf("load roster %s: %w", bookingID, err)
	}

	ledger, err := s.repo.GuestPass.FindByOwner(ctx, booking.OwnerEmail, booking.GuestPassMonth())
	if err != nil {
		return nil, fmt.Errorf("load guest passes for %s: %w", booking.OwnerEmail, err)
	}

	return buildRoster(booking, participants, ledger), nil
}

// persist writes one participant, reprices the roster and announces the change.
func (s *rosterService) persist(ctx context.Context, booking *entity.Booking, participants []*entity.Participant, p *entity.Participant, action string) error {
	if err := s.repo.Participant.Update(ctx, p); err != nil {
		return fmt.Errorf("save participant %s: %w", p.ID.String(), err)
	}

	if _, err := s.fees.Recalculate(ctx, booking, participants); err != nil {
		return err
	}

	publish(ctx, s.pub, s.log, response.PushRosterUpdate, booking.ID.String(), action)
	return nil
}

func (s *rosterService) LinkMember(ctx context.Context, bookingID, slotID string, req *request.LinkMemberRequest) error {
	if err := validate(req); err != nil {
		return err
	}

	booking, participants, err := loadEditable(ctx, s.repo, bookingID)
	if err != nil {
		return err
	}

	slot, err := findParticipant(participants, slotID)
	if err != nil {
		return err
	}
	if slot.IsFilled() {
		return invalid("slot %d is already filled", slot.SlotNumber)
	}
	if slot.SlotNumber > 1 && !booking.Category.AllowsAdditionalPlayers() {
		return invalid("%s bookings do not take additional players", booking.Category)
	}

	email := utils.NormalizeEmail(req.Email)
	if emailOnRoster(participants, email) != nil {
		return invalid("%s is already on this booking", email)
	}

	member, err := s.repo.Member.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("find member %s: %w", email, err)
	}
	if member == nil {
		return notFound("member %s", email)
	}

	slot.Clear()
	slot.Type = entity.ParticipantTypeMember
	if member.Kind == entity.MemberKindVisitor {
		slot.Type = entity.ParticipantTypeVisitor
	}
	slot.UserEmail = &member.Email
	slot.DisplayName = member.Name
	slot.Tier = member.Tier

	if err := s.persist(ctx, booking, participants, slot, response.ActionMemberLinked); err != nil {
		return err
	}

	s.log.Info("Member linked",
		zap.String("booking_id", bookingID),
		zap.Int("slot_number", slot.SlotNumber),
		zap.String("email", member.Email),
	)
	return nil
}

func (s *rosterService) UnlinkMember(ctx context.Context, bookingID, slotID string) error {
	booking, participants, err := loadEditable(ctx, s.repo, bookingID)
	if err != nil {
		return err
	}

	slot, err := findParticipant(participants, slotID)
	if err != nil {
		return err
	}
	if slot.IsPrimary {
		return invalid("the owner cannot be unlinked")
	}
	if slot.UserEmail == nil {
		return invalid("slot %d has no linked member", slot.SlotNumber)
	}

	email := *slot.UserEmail
	slot.Clear()

	if err := s.persist(ctx, booking, participants, slot, response.ActionMemberUnlinked); err != nil {
		return err
	}

	s.log.Info("Member unlinked",
		zap.String("booking_id", bookingID),
		zap.Int("slot_number", slot.SlotNumber),
		zap.String("email", email),
	)
	return nil
}

func (s *rosterService) AddGuest(ctx context.Context, bookingID string, req *request.AddGuestRequest) error {
	if err := validate(req); err != nil {
		return err
	}

	booking, participants, err := loadEditable(ctx, s.repo, bookingID)
	if err != nil {
		return err
	}
	if !booking.Category.AllowsAdditionalPlayers() {
		return invalid("%s bookings do not take guests", booking.Category)
	}

	var email *string
	if req.Email != nil && strings.TrimSpace(*req.Email) != "" {
		e := utils.NormalizeEmail(*req.Email)
		email = &e

		// a retried forced add must not create a second guest
		if existing := guestEmailOnRoster(participants, e); existing != nil {
			s.log.Info("Guest already on roster",
				zap.String("booking_id", bookingID),
				zap.String("participant_id", existing.ID.String()),
			)
			return nil
		}

		if !req.ForceAddAsGuest {
			member, err := s.repo.Member.FindByEmail(ctx, e)
			if err != nil {
				return fmt.Errorf("find member %s: %w", e, err)
			}
			if member != nil {
				return &MemberMatchError{Member: response.MemberMatchResponse{
					MemberID: member.ID.String(),
					Email:    member.Email,
					Name:     member.Name,
					Tier:     member.Tier,
				}}
			}
		}
	}

	var slot *entity.Participant
	if req.SlotID != nil {
		slot, err = findParticipant(participants, *req.SlotID)
		if err != nil {
			return err
		}
		if slot.IsFilled() {
			return invalid("slot %d is already filled", slot.SlotNumber)
		}
	} else {
		for _, p := range participants {
			if !p.IsFilled() && !p.IsPrimary {
				slot = p
				break
			}
		}
		if slot == nil {
			return invalid("no empty slot; raise the player count first")
		}
	}
	if slot.IsPrimary {
		return invalid("the owner slot cannot hold a guest")
	}

	slot.Clear()
	slot.Type = entity.ParticipantTypeGuest
	slot.DisplayName = strings.TrimSpace(req.Name)
	slot.Guest = &entity.GuestInfo{
		Name:  slot.DisplayName,
		Email: email,
		Phone: req.Phone,
	}

	if err := s.persist(ctx, booking, participants, slot, response.ActionGuestAdded); err != nil {
		return err
	}

	s.log.Info("Guest added",
		zap.String("booking_id", bookingID),
		zap.Int("slot_number", slot.SlotNumber),
		zap.Bool("forced", req.ForceAddAsGuest),
	)
	return nil
}

func (s *rosterService) RemoveGuest(ctx context.Context, bookingID, guestID string) error {
	booking, participants, err := loadEditable(ctx, s.repo, bookingID)
	if err != nil {
		return err
	}

	guest, err := findParticipant(participants, guestID)
	if err != nil {
		return err
	}
	if !guest.IsGuest() {
		return invalid("participant %s is not a guest", guestID)
	}

	// a consumed guest pass stays consumed
	guest.Clear()

	if err := s.persist(ctx, booking, participants, guest, response.ActionGuestRemoved); err != nil {
		return err
	}

	s.log.Info("Guest removed",
		zap.String("booking_id", bookingID),
		zap.String("participant_id", guestID),
	)
	return nil
}

// UpdatePlayerCount changes the expected count. Growing adds empty slots;
// shrinking keeps every participant row and only moves the validation target.
func (s *rosterService) UpdatePlayerCount(ctx context.Context, bookingID string, req *request.UpdatePlayerCountRequest) error {
	if err := validate(req); err != nil {
		return err
	}

	booking, participants, err := loadEditable(ctx, s.repo, bookingID)
	if err != nil {
		return err
	}
	if req.Count > 1 && !booking.Category.AllowsAdditionalPlayers() {
		return invalid("%s bookings are single-player", booking.Category)
	}

	if err := s.repo.Booking.UpdatePlayerCount(ctx, booking.ID, req.Count); err != nil {
		return fmt.Errorf("update player count for booking %s: %w", bookingID, err)
	}

	if req.Count > len(participants) {
		if err := s.repo.Participant.CreateEmptySlots(ctx, booking.ID, len(participants)+1, req.Count); err != nil {
			return err
		}
	}

	publish(ctx, s.pub, s.log, response.PushRosterUpdate, bookingID, response.ActionPlayerCountChanged)

	s.log.Info("Player count updated",
		zap.String("booking_id", bookingID),
		zap.Int("from", booking.ExpectedPlayerCount),
		zap.Int("to", req.Count),
	)
	return nil
}

func (s *rosterService) SearchMembers(ctx context.Context, req *request.MemberSearchRequest) ([]response.MemberResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit == 0 {
		limit = 10
	}

	members, err := s.repo.Member.Search(ctx, strings.TrimSpace(req.Query), limit)
	if err != nil {
		return nil, fmt.Errorf("search members: %w", err)
	}

	out := make([]response.MemberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, toMemberResponse(m))
	}
	return out, nil
}
