package usecase

import (
	"context"
	"testing"

	"roster-desk/internal/data/entity"
	"roster-desk/internal/dto/request"
	"roster-desk/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type assignmentFixture struct {
	store   *memStore
	pricing *fakePricing
	pub     *fakePublisher
	svc     AssignmentService
}

func newAssignmentFixture(overage int64) *assignmentFixture {
	store := newMemStore()
	store.addMember("owner@club.test", "Olive Owner", entity.MemberKindMember)
	store.addMember("mia@club.test", "Mia Member", entity.MemberKindMember)
	store.addMember("vic@club.test", "Vic Visitor", entity.MemberKindVisitor)

	pr := &fakePricing{overage: overage, perGuest: 1000}
	pub := &fakePublisher{}
	config := &utils.Config{Desk: utils.DeskConfig{ExternalIDMinLength: 6}}

	return &assignmentFixture{
		store:   store,
		pricing: pr,
		pub:     pub,
		svc:     NewAssignmentService(store.repository(), Deps{Pricing: pr, Publisher: pub}, config, zap.NewNop()),
	}
}

func ownerOnly() *request.FinalizeRosterRequest {
	return &request.FinalizeRosterRequest{
		Owner: request.PlayerRequest{Type: request.PlayerTypeMember, Email: strPtr("owner@club.test"), Name: "Olive Owner"},
	}
}

func TestAssignPendingBooking(t *testing.T) {
	f := newAssignmentFixture(1500)
	b := f.store.addBooking(&entity.Booking{ExpectedPlayerCount: 3})

	req := ownerOnly()
	req.AdditionalPlayers = []request.PlayerRequest{
		{Type: request.PlayerTypeMember, Email: strPtr("mia@club.test"), Name: "Mia"},
		{Type: request.PlayerTypeGuest, Name: "Gus Guest"},
	}

	out, err := f.svc.AssignPendingBooking(context.Background(), b.ID.String(), req)
	require.NoError(t, err)
	assert.Equal(t, b.ID.String(), out.BookingID)
	assert.True(t, out.FeesRecalculated)

	stored := f.store.bookings[b.ID]
	assert.True(t, stored.RosterCommitted)
	assert.Equal(t, "owner@club.test", stored.OwnerEmail)

	owner := f.store.participant(b.ID, 1)
	assert.True(t, owner.IsPrimary)
	assert.Equal(t, entity.ParticipantTypeOwner, owner.Type)
	assert.Equal(t, int64(1500), owner.FeeCents)

	guest := f.store.participant(b.ID, 3)
	assert.True(t, guest.IsGuest())
	assert.Equal(t, int64(1000), guest.FeeCents)

	assert.Equal(t, []string{"roster_assigned"}, f.pub.actions())

	_, err = f.svc.AssignPendingBooking(context.Background(), b.ID.String(), ownerOnly())
	assert.ErrorIs(t, err, ErrConflict, "a roster is committed once")
}

func TestAssignCreatesEmptySlotsUpToExpected(t *testing.T) {
	f := newAssignmentFixture(0)
	b := f.store.addBooking(&entity.Booking{ExpectedPlayerCount: 4})

	out, err := f.svc.AssignPendingBooking(context.Background(), b.ID.String(), ownerOnly())
	require.NoError(t, err)
	assert.False(t, out.FeesRecalculated, "no fee means no payment surface")

	assert.Len(t, f.store.participants[b.ID], 4)
	assert.False(t, f.store.participant(b.ID, 4).IsFilled())
}

func TestAssignRejectsGuestOwner(t *testing.T) {
	f := newAssignmentFixture(0)
	b := f.store.addBooking(&entity.Booking{ExpectedPlayerCount: 1})

	req := &request.FinalizeRosterRequest{Owner: request.PlayerRequest{Type: request.PlayerTypeGuest, Name: "Gus"}}
	_, err := f.svc.AssignPendingBooking(context.Background(), b.ID.String(), req)
	assert.ErrorIs(t, err, ErrValidation)
	assert.False(t, f.store.bookings[b.ID].RosterCommitted)
}

func TestAssignRejectsPlayersOnLesson(t *testing.T) {
	f := newAssignmentFixture(0)
	b := f.store.addBooking(&entity.Booking{ExpectedPlayerCount: 1, Category: entity.BookingCategoryLesson})

	req := ownerOnly()
	req.AdditionalPlayers = []request.PlayerRequest{{Type: request.PlayerTypeGuest, Name: "Gus"}}

	_, err := f.svc.AssignPendingBooking(context.Background(), b.ID.String(), req)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAssignRejectsDuplicateEmails(t *testing.T) {
	f := newAssignmentFixture(0)
	b := f.store.addBooking(&entity.Booking{ExpectedPlayerCount: 2})

	req := ownerOnly()
	req.AdditionalPlayers = []request.PlayerRequest{{Type: request.PlayerTypeMember, Email: strPtr("OWNER@club.test"), Name: "Olive"}}

	_, err := f.svc.AssignPendingBooking(context.Background(), b.ID.String(), req)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestResolveLegacyReview(t *testing.T) {
	f := newAssignmentFixture(0)
	b := f.store.addBooking(&entity.Booking{ExpectedPlayerCount: 1})
	review := &entity.LegacyReview{BookingID: b.ID, SourceName: "O. Owner"}
	review.ID = uuid.New()
	f.store.reviews[review.ID] = review

	_, err := f.svc.ResolveLegacyReview(context.Background(), review.ID.String(), ownerOnly())
	require.NoError(t, err)
	assert.NotNil(t, f.store.reviews[review.ID].ResolvedAt)

	_, err = f.svc.ResolveLegacyReview(context.Background(), review.ID.String(), ownerOnly())
	assert.ErrorIs(t, err, ErrConflict)

	_, err = f.svc.ResolveLegacyReview(context.Background(), uuid.NewString(), ownerOnly())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLinkExternalImport(t *testing.T) {
	f := newAssignmentFixture(0)
	b := f.store.addBooking(&entity.Booking{ExpectedPlayerCount: 1})
	f.store.imports["20260314"] = &entity.ExternalImport{ExternalID: "20260314", BookingID: b.ID}

	_, err := f.svc.LinkExternalImport(context.Background(), "12ab56", ownerOnly())
	assert.ErrorIs(t, err, ErrValidation, "non-numeric")

	_, err = f.svc.LinkExternalImport(context.Background(), "12345", ownerOnly())
	assert.ErrorIs(t, err, ErrValidation, "too short")

	_, err = f.svc.LinkExternalImport(context.Background(), "999999", ownerOnly())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.LinkExternalImport(context.Background(), "20260314", ownerOnly())
	require.NoError(t, err)
	assert.NotNil(t, f.store.imports["20260314"].LinkedAt)
}
