package frontdesk

import (
	"context"
	"testing"
	"time"

	"roster-desk/internal/dto/response"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloseStopsPolling(t *testing.T) {
	api := newFakeAPI(owedRoster())
	rec := &recorder{}
	desk := NewDesk(api, testConfig(), rec, nil)

	s, err := desk.Open(context.Background(), "b1")
	require.NoError(t, err)
	require.NoError(t, s.Payment.ChargeCardOnFile(context.Background()))

	desk.Close()
	time.Sleep(10 * time.Millisecond)
	fetches := api.rosterFetches()
	events := rec.total()

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, fetches, api.rosterFetches())
	assert.Equal(t, events, rec.total())
	assert.Nil(t, desk.Current())

	select {
	case <-s.Done():
	default:
		t.Fatal("session not cancelled")
	}
	assert.ErrorIs(t, s.Payment.MarkPaid(context.Background()), ErrNoBooking)
}

func TestOpeningAnotherBookingResetsState(t *testing.T) {
	r2 := owedRoster()
	r2.Booking.ID = "b2"

	api := newFakeAPI(owedRoster())
	rec := &recorder{}
	desk := NewDesk(api, testConfig(), rec, nil)
	defer desk.Close()
	ctx := context.Background()

	first, err := desk.Open(ctx, "b1")
	require.NoError(t, err)
	require.NoError(t, first.Payment.ChargeCardOnFile(ctx))

	api.mu.Lock()
	api.roster = r2
	api.mu.Unlock()

	second, err := desk.Open(ctx, "b2")
	require.NoError(t, err)

	assert.Equal(t, StateIdle, second.Payment.State())
	assert.Nil(t, second.Payment.Action())
	assert.Same(t, second, desk.Current())

	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, rec.count(EventUnconfirmed))
}

func TestOpenFailsForUnknownBooking(t *testing.T) {
	api := newFakeAPI(owedRoster())
	desk := NewDesk(api, testConfig(), nil, nil)

	_, err := desk.Open(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, desk.Current())
}

func TestRosterPushRefreshes(t *testing.T) {
	api := newFakeAPI(owedRoster())
	_, _, _ = openDesk(t, api)

	api.events <- response.PushEvent{Type: response.PushRosterUpdate, BookingID: "b1", Action: response.ActionGuestAdded}

	require.Eventually(t, func() bool { return api.rosterFetches() == 2 }, time.Second, 2*time.Millisecond)
}
