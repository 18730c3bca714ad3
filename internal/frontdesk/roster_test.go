package frontdesk

import (
	"context"
	"errors"
	"testing"

	"roster-desk/internal/dto/request"
	"roster-desk/internal/dto/response"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutationsRefetchRoster(t *testing.T) {
	api := newFakeAPI(openRoster(3))
	_, s, rec := openDesk(t, api)
	ctx := context.Background()

	require.NoError(t, s.Roster.LinkMember(ctx, "p2", "mia@club.test"))
	assert.Equal(t, 2, api.rosterFetches())

	r := s.Roster.Current()
	assert.Equal(t, 2, r.Validation.ActualPlayerCount)
	assert.Equal(t, 1, r.Validation.EmptySlots)
	assert.Positive(t, rec.count(EventRosterChanged))

	primaries := 0
	for _, p := range r.Participants() {
		if p.IsPrimary {
			primaries++
		}
	}
	assert.Equal(t, 1, primaries)
}

func TestLinkMemberValidatesLocally(t *testing.T) {
	api := newFakeAPI(openRoster(2))
	_, s, _ := openDesk(t, api)

	var verr *ValidationError
	require.ErrorAs(t, s.Roster.LinkMember(context.Background(), "p2", " "), &verr)
	assert.Equal(t, "email", verr.Field)
	assert.Empty(t, api.calls[1:])
}

func TestUnlinkRestoresExactRosterOnFailure(t *testing.T) {
	r := openRoster(2)
	r.Members[1].Type = "member"
	r.Members[1].UserEmail = strPtr("mia@club.test")
	r.Members[1].DisplayName = "Mia"
	r.Validation = response.ComputeValidation(2, r.Participants())

	api := newFakeAPI(r)
	api.unlinkErr = &APIError{Status: 500, Message: "Internal server error"}
	_, s, _ := openDesk(t, api)

	before := s.Roster.Current()
	err := s.Roster.UnlinkMember(context.Background(), "p2")

	var aerr *APIError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, before, s.Roster.Current())
	assert.Equal(t, 1, api.rosterFetches())
}

func TestUnlinkClearsSlotAndRefetches(t *testing.T) {
	r := openRoster(2)
	r.Members[1].Type = "member"
	r.Members[1].UserEmail = strPtr("mia@club.test")
	r.Validation = response.ComputeValidation(2, r.Participants())

	api := newFakeAPI(r)
	_, s, _ := openDesk(t, api)

	require.NoError(t, s.Roster.UnlinkMember(context.Background(), "p2"))

	after := s.Roster.Current()
	assert.Equal(t, 1, after.Validation.EmptySlots)
	assert.Equal(t, 2, api.rosterFetches())
}

func TestRemoveGuestRestoresOnFailure(t *testing.T) {
	api := newFakeAPI(owedRoster())
	api.removeErr = errors.New("connection refused")
	_, s, _ := openDesk(t, api)

	before := s.Roster.Current()
	require.Error(t, s.Roster.RemoveGuest(context.Background(), "p2"))
	assert.Equal(t, before, s.Roster.Current())
}

func TestMemberMatchNeedsStaffDecision(t *testing.T) {
	api := newFakeAPI(openRoster(3))
	api.members["mia@club.test"] = response.MemberMatchResponse{MemberID: "m1", Email: "mia@club.test", Name: "Mia"}
	_, s, rec := openDesk(t, api)
	ctx := context.Background()

	req := request.AddGuestRequest{Name: "Mia", Email: strPtr("mia@club.test")}
	err := s.Roster.AddGuest(ctx, req)

	var match *MemberMatchWarning
	require.ErrorAs(t, err, &match)
	assert.Equal(t, "m1", match.Member.MemberID)
	assert.Equal(t, req, match.Request)
	assert.Equal(t, 1, rec.count(EventMemberMatch))
	assert.Empty(t, s.Roster.Current().Guests)
}

func TestForcedGuestAddIsIdempotent(t *testing.T) {
	api := newFakeAPI(openRoster(3))
	api.members["mia@club.test"] = response.MemberMatchResponse{MemberID: "m1", Email: "mia@club.test", Name: "Mia"}
	_, s, _ := openDesk(t, api)
	ctx := context.Background()

	var match *MemberMatchWarning
	require.ErrorAs(t, s.Roster.AddGuest(ctx, request.AddGuestRequest{Name: "Mia", Email: strPtr("mia@club.test")}), &match)

	require.NoError(t, s.Roster.ResolveMemberMatch(ctx, match, MatchAddAsGuest))
	require.NoError(t, s.Roster.ResolveMemberMatch(ctx, match, MatchAddAsGuest))

	guests := s.Roster.Current().Guests
	require.Len(t, guests, 1)
	assert.Nil(t, guests[0].UserEmail)
	require.NotNil(t, guests[0].GuestInfo)
	assert.Equal(t, "mia@club.test", *guests[0].GuestInfo.Email)
}

func TestMemberMatchLinkAsMember(t *testing.T) {
	api := newFakeAPI(openRoster(3))
	api.members["mia@club.test"] = response.MemberMatchResponse{MemberID: "m1", Email: "mia@club.test", Name: "Mia"}
	_, s, _ := openDesk(t, api)
	ctx := context.Background()

	var match *MemberMatchWarning
	require.ErrorAs(t, s.Roster.AddGuest(ctx, request.AddGuestRequest{Name: "Mia", Email: strPtr("mia@club.test")}), &match)
	require.NoError(t, s.Roster.ResolveMemberMatch(ctx, match, MatchLinkAsMember))

	assert.Equal(t, 1, api.count("LinkMember:p2:mia@club.test"))
	assert.Empty(t, s.Roster.Current().Guests)
}

func TestShrinkingPlayerCountKeepsParticipants(t *testing.T) {
	r := openRoster(4)
	r.Members[2].Type = "member"
	r.Members[2].UserEmail = strPtr("mia@club.test")
	r.Validation = response.ComputeValidation(4, r.Participants())

	api := newFakeAPI(r)
	_, s, _ := openDesk(t, api)
	ctx := context.Background()

	require.NoError(t, s.Roster.UpdatePlayerCount(ctx, 2))

	after := s.Roster.Current()
	assert.Len(t, after.Participants(), 4)
	assert.Equal(t, 2, after.Validation.ExpectedPlayerCount)
	assert.Equal(t, 1, after.Validation.ActualPlayerCount)
	assert.Equal(t, 1, after.Validation.EmptySlots)

	var verr *ValidationError
	assert.ErrorAs(t, s.Roster.UpdatePlayerCount(ctx, 5), &verr)
	assert.ErrorAs(t, s.Roster.UpdatePlayerCount(ctx, 0), &verr)
	assert.Equal(t, 1, api.count("UpdatePlayerCount"))
}
