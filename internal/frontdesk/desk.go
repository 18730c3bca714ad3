package frontdesk

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Desk binds the engine to one booking at a time. Opening another booking,
// or closing, cancels every timer and poll of the previous one.
type Desk struct {
	api      API
	cfg      Config
	listener Listener
	log      *zap.Logger

	mu         sync.Mutex
	generation uint64
	session    *Session
	assignment *Assignment
}

// Session is the state of one open, assigned booking.
type Session struct {
	BookingID string
	Roster    *RosterStore
	Payment   *PaymentOrchestrator
	Checkin   *CheckinController

	ctx    context.Context
	cancel context.CancelFunc
	pump   sync.WaitGroup
}

// Assignment is the state of one booking being assigned for the first time.
type Assignment struct {
	Slots *SlotEngine

	cancel context.CancelFunc
}

func NewDesk(api API, cfg Config, listener Listener, log *zap.Logger) *Desk {
	if listener == nil {
		listener = nopListener{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Desk{
		api:      api,
		cfg:      cfg,
		listener: listener,
		log:      log.With(zap.String("component", "desk")),
	}
}

// Open fetches the roster of bookingID and makes it the current booking.
func (d *Desk) Open(ctx context.Context, bookingID string) (*Session, error) {
	if bookingID == "" {
		return nil, invalid("booking", "is required")
	}

	d.mu.Lock()
	d.closeLocked()
	d.generation++
	gen := d.generation

	sctx, cancel := context.WithCancel(context.Background())
	em := emitter{ctx: sctx, bookingID: bookingID, listener: d.listener}
	roster := newRosterStore(sctx, d.api, bookingID, em, d.log)
	s := &Session{
		BookingID: bookingID,
		Roster:    roster,
		Payment:   newPaymentOrchestrator(sctx, d.api, d.cfg, roster, bookingID, em, d.log),
		Checkin:   newCheckinController(sctx, d.api, roster, bookingID, em, d.log),
		ctx:       sctx,
		cancel:    cancel,
	}
	d.session = s
	d.mu.Unlock()

	if _, err := roster.Refresh(ctx); err != nil {
		d.closeIf(gen)
		return nil, fmt.Errorf("open booking %s: %w", bookingID, err)
	}

	events, err := d.api.Subscribe(sctx, bookingID)
	if err != nil {
		// polling still confirms payments without the push channel
		d.log.Warn("Push subscription failed", zap.Error(err), zap.String("booking_id", bookingID))
	} else {
		s.pump.Add(1)
		go func() {
			defer s.pump.Done()
			for ev := range events {
				s.Payment.HandlePush(sctx, ev)
			}
		}()
	}

	d.log.Info("Booking opened", zap.String("booking_id", bookingID), zap.Uint64("generation", gen))
	return s, nil
}

// Assign starts a first-time assignment for target.
func (d *Desk) Assign(target Target) (*Assignment, error) {
	prov, err := ResolveProvenance(target, d.cfg.ExternalIDMinLength)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.closeLocked()
	d.generation++

	actx, cancel := context.WithCancel(context.Background())
	key := provenanceKey(prov)
	em := emitter{ctx: actx, bookingID: key, listener: d.listener}
	a := &Assignment{
		Slots:  newSlotEngine(actx, d.api, d.cfg, target, prov, em, d.log),
		cancel: cancel,
	}
	d.assignment = a
	return a, nil
}

func provenanceKey(p Provenance) string {
	switch v := p.(type) {
	case LegacyReview:
		return "review:" + v.ReviewID
	case PendingBooking:
		return v.BookingID
	case ExternalImport:
		return "external:" + v.ExternalID
	}
	return ""
}

// Current returns the open session, or nil.
func (d *Desk) Current() *Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.session
}

// Close drops the current booking.
func (d *Desk) Close() {
	d.mu.Lock()
	s := d.closeLocked()
	d.mu.Unlock()

	if s != nil {
		s.pump.Wait()
	}
}

func (d *Desk) closeIf(gen uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.generation == gen {
		d.closeLocked()
	}
}

func (d *Desk) closeLocked() *Session {
	if a := d.assignment; a != nil {
		a.cancel()
		a.Slots.stop()
		d.assignment = nil
	}

	s := d.session
	if s == nil {
		return nil
	}
	s.cancel()
	s.Payment.stop()
	d.session = nil
	return s
}

// Done is closed when the session is dropped.
func (s *Session) Done() <-chan struct{} {
	return s.ctx.Done()
}
