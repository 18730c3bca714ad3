package usecase

import (
	"context"
	"errors"
	"testing"

	"roster-desk/internal/data/entity"
	"roster-desk/internal/dto/request"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newCheckinService(store *memStore, pub *fakePublisher) CheckinService {
	return NewCheckinService(store.repository(), Deps{Publisher: pub}, zap.NewNop())
}

func TestCheckinOwnerOnlyNoFees(t *testing.T) {
	store := newMemStore()
	b := store.addBooking(&entity.Booking{OwnerEmail: "owner@club.test", ExpectedPlayerCount: 1, RosterCommitted: true})
	store.addParticipant(b.ID, &entity.Participant{
		SlotNumber: 1, IsPrimary: true, Type: entity.ParticipantTypeOwner, UserEmail: strPtr("owner@club.test"),
	})
	pub := &fakePublisher{}

	out, err := newCheckinService(store, pub).UpdateStatus(context.Background(), b.ID.String(), &request.CheckinRequest{Status: "attended"})
	require.NoError(t, err)
	assert.Equal(t, "attended", out.Status)
	assert.Equal(t, entity.BookingStatusAttended, store.bookings[b.ID].Status)
	assert.Equal(t, []string{"status_changed"}, pub.actions())
}

func TestCheckinBlockedByOutstandingFees(t *testing.T) {
	f := newPaymentFixture(t, nil)
	svc := newCheckinService(f.store, f.pub)
	ctx := context.Background()

	_, err := svc.UpdateStatus(ctx, f.booking.ID.String(), &request.CheckinRequest{Status: "attended"})
	require.ErrorIs(t, err, ErrPaymentRequired)

	var gateErr *PaymentGateError
	require.True(t, errors.As(err, &gateErr))
	assert.Equal(t, int64(2500), gateErr.Gate.FinancialSummary.OutstandingCents)
	assert.Equal(t, entity.BookingStatusPending, f.store.bookings[f.booking.ID].Status)

	out, err := svc.UpdateStatus(ctx, f.booking.ID.String(), &request.CheckinRequest{Status: "attended", ConfirmPayment: true})
	require.NoError(t, err)
	assert.Equal(t, "attended", out.Status)
	assert.True(t, f.summary(t).AllPaid)
	assert.Equal(t, []string{"confirm_all", "status_changed"}, f.pub.actions())
	require.Len(t, f.store.payments, 1)
	assert.Equal(t, entity.PaymentMethodCash, f.store.payments[0].Method)
}

func TestCheckinSettlementFailureLeavesFeesOutstanding(t *testing.T) {
	f := newPaymentFixture(t, nil)
	svc := newCheckinService(f.store, f.pub)
	f.store.attendErr = errors.New("connection reset")

	_, err := svc.UpdateStatus(context.Background(), f.booking.ID.String(), &request.CheckinRequest{Status: "attended", ConfirmPayment: true})
	require.Error(t, err)

	assert.Equal(t, entity.BookingStatusPending, f.store.bookings[f.booking.ID].Status)
	assert.Equal(t, entity.PaymentStatusPending, f.store.participant(f.booking.ID, 1).PaymentStatus)
	assert.Equal(t, entity.PaymentStatusPending, f.store.participant(f.booking.ID, 2).PaymentStatus)
	assert.Empty(t, f.store.payments)
	assert.Empty(t, f.pub.actions())
}

func TestCheckinBlockedByEmptySlot(t *testing.T) {
	store := newMemStore()
	b := store.addBooking(&entity.Booking{OwnerEmail: "owner@club.test", ExpectedPlayerCount: 2, RosterCommitted: true})
	store.addParticipant(b.ID, &entity.Participant{
		SlotNumber: 1, IsPrimary: true, Type: entity.ParticipantTypeOwner, UserEmail: strPtr("owner@club.test"),
	})
	store.addParticipant(b.ID, &entity.Participant{SlotNumber: 2})
	svc := newCheckinService(store, &fakePublisher{})

	_, err := svc.UpdateStatus(context.Background(), b.ID.String(), &request.CheckinRequest{Status: "attended", ConfirmPayment: true})
	var gateErr *PaymentGateError
	require.True(t, errors.As(err, &gateErr))
	assert.Equal(t, "roster incomplete", gateErr.Reason)

	// no-show does not need a complete roster
	_, err = svc.UpdateStatus(context.Background(), b.ID.String(), &request.CheckinRequest{Status: "no_show"})
	require.NoError(t, err)
}

func TestCheckinTransitions(t *testing.T) {
	store := newMemStore()
	b := store.addBooking(&entity.Booking{Status: entity.BookingStatusNoShow, RosterCommitted: true})
	svc := newCheckinService(store, &fakePublisher{})
	ctx := context.Background()

	_, err := svc.UpdateStatus(ctx, b.ID.String(), &request.CheckinRequest{Status: "cancelled"})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	out, err := svc.UpdateStatus(ctx, b.ID.String(), &request.CheckinRequest{Status: "no_show"})
	require.NoError(t, err, "same status is a no-op")
	assert.Equal(t, "no_show", out.Status)

	_, err = svc.UpdateStatus(ctx, b.ID.String(), &request.CheckinRequest{Status: "checked_out"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.UpdateStatus(ctx, "not-a-uuid", &request.CheckinRequest{Status: "attended"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAllowedTransition(t *testing.T) {
	tests := []struct {
		from, to entity.BookingStatus
		want     bool
	}{
		{entity.BookingStatusPending, entity.BookingStatusAttended, true},
		{entity.BookingStatusCancellationPending, entity.BookingStatusNoShow, true},
		{entity.BookingStatusNoShow, entity.BookingStatusAttended, true},
		{entity.BookingStatusAttended, entity.BookingStatusNoShow, true},
		{entity.BookingStatusPending, entity.BookingStatusCancelled, true},
		{entity.BookingStatusAttended, entity.BookingStatusCancelled, false},
		{entity.BookingStatusCancelled, entity.BookingStatusAttended, false},
		{entity.BookingStatusPending, entity.BookingStatusCancellationPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, AllowedTransition(tt.from, tt.to))
		})
	}
}
