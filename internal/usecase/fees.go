package usecase

import (
	"context"
	"fmt"

	"roster-desk/internal/data/entity"
	"roster-desk/internal/data/repository"
	"roster-desk/pkg/pricing"

	"go.uber.org/zap"
)

// feeCalculator reprices a committed roster. The owner row carries the
// overage; guest cents are split across billable guests and visitors, with
// any remainder on the first. Settled rows keep their fee.
type feeCalculator struct {
	participants repository.ParticipantRepository
	pricing      Pricing
	log          *zap.Logger
}

func newFeeCalculator(participants repository.ParticipantRepository, p Pricing, log *zap.Logger) *feeCalculator {
	return &feeCalculator{
		participants: participants,
		pricing:      p,
		log:          log.With(zap.String("component", "fees")),
	}
}

func billableGuest(p *entity.Participant) bool {
	if p.IsPrimary || !p.IsFilled() {
		return false
	}
	if p.IsGuest() {
		return !p.UsedGuestPass
	}
	return p.Type == entity.ParticipantTypeVisitor
}

// Recalculate reprices participants in place and persists the result. It
// reports whether any participant now carries a fee. A pricing outage keeps
// the stored fees.
func (f *feeCalculator) Recalculate(ctx context.Context, b *entity.Booking, participants []*entity.Participant) (bool, error) {
	var owner *entity.Participant
	var billable []*entity.Participant
	filled := 0

	for _, p := range participants {
		if p.IsPrimary {
			owner = p
		}
		if p.IsFilled() {
			filled++
		}
		if billableGuest(p) {
			billable = append(billable, p)
		}
	}

	if owner == nil {
		return hasFees(participants), nil
	}

	quote, err := f.pricing.Estimate(ctx, pricing.Query{
		Email:           b.OwnerEmail,
		DurationMinutes: b.DurationMinutes,
		PlayerCount:     filled,
		GuestCount:      len(billable),
		Date:            b.StartsAt.Format("2006-01-02"),
	})
	if err != nil {
		f.log.Warn("Pricing unavailable, keeping stored fees",
			zap.Error(err),
			zap.String("booking_id", b.ID.String()),
		)
		return hasFees(participants), nil
	}

	var changed []*entity.Participant
	set := func(p *entity.Participant, cents int64, note string) {
		if p.PaymentStatus != entity.PaymentStatusPending {
			return
		}
		if p.FeeCents != cents || p.FeeNote != note {
			p.FeeCents = cents
			p.FeeNote = note
			changed = append(changed, p)
		}
	}

	if quote.OverageCents > 0 {
		set(owner, quote.OverageCents, "Overage fee")
	} else {
		set(owner, 0, "")
	}

	shares := splitCents(quote.GuestCents, len(billable))
	for i, p := range billable {
		set(p, shares[i], "Guest fee")
	}

	for _, p := range participants {
		if p.IsPrimary || billableGuest(p) || p.UsedGuestPass {
			continue
		}
		set(p, 0, "")
	}

	if err := f.participants.UpdateFees(ctx, changed); err != nil {
		return false, fmt.Errorf("save recalculated fees for booking %s: %w", b.ID.String(), err)
	}

	f.log.Info("Fees recalculated",
		zap.String("booking_id", b.ID.String()),
		zap.Int64("overage_cents", quote.OverageCents),
		zap.Int64("guest_cents", quote.GuestCents),
		zap.Int("changed", len(changed)),
	)
	return hasFees(participants), nil
}

func hasFees(participants []*entity.Participant) bool {
	for _, p := range participants {
		if p.FeeCents > 0 {
			return true
		}
	}
	return false
}

// splitCents divides total into n shares; the first share takes the remainder.
func splitCents(total int64, n int) []int64 {
	shares := make([]int64, n)
	if n == 0 || total <= 0 {
		return shares
	}
	each := total / int64(n)
	for i := range shares {
		shares[i] = each
	}
	shares[0] += total - each*int64(n)
	return shares
}
