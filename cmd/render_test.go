package cmd

import (
	"bytes"
	"context"
	"testing"

	"roster-desk/internal/dto/response"
	"roster-desk/internal/frontdesk"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderRoster(t *testing.T) {
	email := "olive@club.test"
	r := &response.RosterResponse{
		Booking: response.BookingSummary{ID: "b1", ResourceName: "Bay 3", OwnerName: "Olive", DurationMinutes: 60, Status: "pending"},
		Members: []response.ParticipantResponse{
			{ID: "p1", SlotNumber: 1, IsPrimary: true, Type: "member", UserEmail: &email, DisplayName: "Olive", FeeCents: 1500, PaymentStatus: "pending"},
			{ID: "p2", SlotNumber: 2, Type: "empty", PaymentStatus: "pending"},
		},
		Validation:       response.ValidationInfo{ExpectedPlayerCount: 2, ActualPlayerCount: 1, EmptySlots: 1},
		FinancialSummary: response.FinancialSummary{GrandTotalCents: 1500, OutstandingCents: 1500},
	}

	var buf bytes.Buffer
	renderRoster(&buf, r)
	out := buf.String()

	assert.Contains(t, out, "Bay 3")
	assert.Contains(t, out, "Olive *")
	assert.Contains(t, out, "(empty)")
	assert.Contains(t, out, "$15.00")
	assert.Contains(t, out, "Players 1/2")
	assert.Contains(t, out, "Roster incomplete: 1 empty slot(s)")
	assert.Contains(t, out, "check-in is locked")
}

func TestParsePlayer(t *testing.T) {
	ctx := context.Background()

	s, err := parsePlayer(ctx, nil, "visitor: vic@club.test : Vic")
	require.NoError(t, err)
	assert.Equal(t, frontdesk.VisitorSlot{Email: "vic@club.test", Name: "Vic"}, s)

	s, err = parsePlayer(ctx, nil, "guest:Gus")
	require.NoError(t, err)
	assert.Equal(t, frontdesk.GuestPlaceholder{DisplayName: "Gus"}, s)

	_, err = parsePlayer(ctx, nil, "visitor:vic@club.test")
	assert.Error(t, err)

	_, err = parsePlayer(ctx, nil, "coach:Cal")
	assert.Error(t, err)
}

func TestDescribeEvent(t *testing.T) {
	assert.Equal(t, "payment recorded (push)", describeEvent(frontdesk.Event{Kind: frontdesk.EventReconciled, Source: "push"}))
	assert.Equal(t, "check-in unlocked", describeEvent(frontdesk.Event{Kind: frontdesk.EventCheckinUnlocked}))
	assert.Empty(t, describeEvent(frontdesk.Event{Kind: frontdesk.EventToast, Message: "hi"}))
}
