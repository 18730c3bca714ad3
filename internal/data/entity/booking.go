package entity

import (
	"time"
)

type BookingStatus string

const (
	BookingStatusPending             BookingStatus = "pending"
	BookingStatusAttended            BookingStatus = "attended"
	BookingStatusNoShow              BookingStatus = "no_show"
	BookingStatusCancelled           BookingStatus = "cancelled"
	BookingStatusCancellationPending BookingStatus = "cancellation_pending"
)

type BookingCategory string

const (
	BookingCategoryRegular    BookingCategory = "regular"
	BookingCategoryLesson     BookingCategory = "lesson"
	BookingCategoryStaffBlock BookingCategory = "staff_block"
)

// AllowsAdditionalPlayers reports whether slots 2-4 may be filled.
func (c BookingCategory) AllowsAdditionalPlayers() bool {
	return c != BookingCategoryLesson && c != BookingCategoryStaffBlock
}

const MaxPlayers = 4

type Booking struct {
	BaseNoDelete
	OwnerEmail          string          `db:"owner_email"`
	OwnerName           string          `db:"owner_name"`
	ResourceName        string          `db:"resource_name"`
	StartsAt            time.Time       `db:"starts_at"`
	DurationMinutes     int             `db:"duration_minutes"`
	Category            BookingCategory `db:"category"`
	ExpectedPlayerCount int             `db:"expected_player_count"`
	Status              BookingStatus   `db:"status"`
	RosterCommitted     bool            `db:"roster_committed"`
}

// GuestPassMonth is the ledger period a booking draws guest passes from.
func (b *Booking) GuestPassMonth() string {
	return b.StartsAt.Format("2006-01")
}
