package response

// ComputeValidation derives slot completeness. Only slots numbered within the
// expected count are counted, so shrinking the count never prunes participants.
func ComputeValidation(expected int, participants []ParticipantResponse) ValidationInfo {
	actual := 0
	for _, p := range participants {
		if p.SlotNumber <= expected && p.IsFilled() {
			actual++
		}
	}

	empty := expected - actual
	if empty < 0 {
		empty = 0
	}

	return ValidationInfo{
		ExpectedPlayerCount: expected,
		ActualPlayerCount:   actual,
		EmptySlots:          empty,
	}
}

// ComputeFinancialSummary aggregates participant fees. The owner pays their
// overage plus every guest fee not covered by a guest pass.
func ComputeFinancialSummary(participants []ParticipantResponse) FinancialSummary {
	var s FinancialSummary
	allPaid := true

	for _, p := range participants {
		if p.IsPrimary {
			s.OwnerOverageCents = p.FeeCents
		}
		if p.IsGuest() && !p.UsedGuestPass {
			s.GuestFeesWithoutPassCents += p.FeeCents
		}
		s.GrandTotalCents += p.FeeCents
		if !p.Settled() {
			s.OutstandingCents += p.FeeCents
			allPaid = false
		}
	}

	s.TotalOwnerOwesCents = s.OwnerOverageCents + s.GuestFeesWithoutPassCents
	s.AllPaid = allPaid
	return s
}
