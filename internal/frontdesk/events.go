package frontdesk

import (
	"context"

	"roster-desk/internal/dto/response"
)

type EventKind string

const (
	EventToast           EventKind = "toast"
	EventRosterChanged   EventKind = "roster_changed"
	EventEstimate        EventKind = "estimate"
	EventDuplicateName   EventKind = "duplicate_name"
	EventSearchResults   EventKind = "search_results"
	EventMemberMatch     EventKind = "member_match"
	EventFinalized       EventKind = "finalized"
	EventOpenPayment     EventKind = "open_payment"
	EventPaymentState    EventKind = "payment_state"
	EventReconciled      EventKind = "reconciled"
	EventUnconfirmed     EventKind = "unconfirmed"
	EventCheckinUnlocked EventKind = "checkin_unlocked"
)

// Event is delivered to the Listener. Only the fields relevant to Kind are set.
type Event struct {
	Kind      EventKind
	BookingID string
	Message   string

	Slot     int
	Estimate *response.FeeEstimateResponse
	Members  []response.MemberResponse
	Match    *MemberMatchWarning
	State    PaymentState
	Source   string
}

// Listener receives engine events. It may be called from engine goroutines
// and must not block.
type Listener interface {
	OnEvent(Event)
}

type ListenerFunc func(Event)

func (f ListenerFunc) OnEvent(e Event) { f(e) }

type nopListener struct{}

func (nopListener) OnEvent(Event) {}

// emitter drops events once the booking that produced them is closed.
type emitter struct {
	ctx       context.Context
	bookingID string
	listener  Listener
}

func (e emitter) emit(ev Event) {
	if e.ctx.Err() != nil {
		return
	}
	if ev.BookingID == "" {
		ev.BookingID = e.bookingID
	}
	e.listener.OnEvent(ev)
}

func (e emitter) toast(msg string) {
	e.emit(Event{Kind: EventToast, Message: msg})
}
