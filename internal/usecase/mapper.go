package usecase

import (
	"context"

	"roster-desk/internal/data/entity"
	"roster-desk/internal/dto/response"

	"go.uber.org/zap"
)

func toParticipantResponse(p *entity.Participant) response.ParticipantResponse {
	out := response.ParticipantResponse{
		ID:            p.ID.String(),
		SlotNumber:    p.SlotNumber,
		IsPrimary:     p.IsPrimary,
		Type:          string(p.Type),
		UserEmail:     p.UserEmail,
		DisplayName:   p.DisplayName,
		Tier:          p.Tier,
		FeeCents:      p.FeeCents,
		FeeNote:       p.FeeNote,
		PaymentStatus: string(p.PaymentStatus),
		UsedGuestPass: p.UsedGuestPass,
		WaiverReason:  p.WaiverReason,
	}
	if p.Guest != nil {
		out.GuestInfo = &response.GuestInfoResponse{
			Name:  p.Guest.Name,
			Email: p.Guest.Email,
			Phone: p.Guest.Phone,
		}
	}
	return out
}

func toBookingSummary(b *entity.Booking) response.BookingSummary {
	return response.BookingSummary{
		ID:                  b.ID.String(),
		OwnerEmail:          b.OwnerEmail,
		OwnerName:           b.OwnerName,
		ResourceName:        b.ResourceName,
		StartsAt:            b.StartsAt,
		DurationMinutes:     b.DurationMinutes,
		Category:            string(b.Category),
		Status:              string(b.Status),
		RosterCommitted:     b.RosterCommitted,
		ExpectedPlayerCount: b.ExpectedPlayerCount,
	}
}

func toMemberResponse(m *entity.Member) response.MemberResponse {
	return response.MemberResponse{
		ID:    m.ID.String(),
		Email: m.Email,
		Name:  m.Name,
		Tier:  m.Tier,
		Kind:  string(m.Kind),
	}
}

// buildRoster splits participants into members and guests and derives the
// validation and financial summaries.
func buildRoster(b *entity.Booking, participants []*entity.Participant, ledger *entity.GuestPassLedger) *response.RosterResponse {
	out := &response.RosterResponse{
		Booking: toBookingSummary(b),
		Members: []response.ParticipantResponse{},
		Guests:  []response.ParticipantResponse{},
	}

	all := make([]response.ParticipantResponse, 0, len(participants))
	for _, p := range participants {
		pr := toParticipantResponse(p)
		all = append(all, pr)
		if p.IsGuest() {
			out.Guests = append(out.Guests, pr)
		} else {
			out.Members = append(out.Members, pr)
		}
	}

	out.Validation = response.ComputeValidation(b.ExpectedPlayerCount, all)
	out.FinancialSummary = response.ComputeFinancialSummary(all)
	out.OwnerGuestPassesRemaining = ledger.Remaining()
	if ledger != nil {
		out.OwnerGuestPassesTotal = ledger.Total
	}
	return out
}

func publish(ctx context.Context, pub Publisher, log *zap.Logger, typ, bookingID, action string) {
	if pub == nil {
		return
	}
	err := pub.Publish(ctx, response.PushEvent{Type: typ, BookingID: bookingID, Action: action})
	if err != nil {
		log.Warn("Failed to publish booking event",
			zap.Error(err),
			zap.String("booking_id", bookingID),
			zap.String("type", typ),
			zap.String("action", action),
		)
	}
}
