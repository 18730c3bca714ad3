package request

type PlayerType string

const (
	PlayerTypeMember  PlayerType = "member"
	PlayerTypeVisitor PlayerType = "visitor"
	PlayerTypeGuest   PlayerType = "guest"
)

type PlayerRequest struct {
	Type  PlayerType `json:"type" validate:"required,oneof=member visitor guest"`
	Email *string    `json:"email,omitempty" validate:"omitempty,email"`
	Name  string     `json:"name" validate:"required,notblank,max=120"`
}

// FinalizeRosterRequest commits the first roster of a booking.
type FinalizeRosterRequest struct {
	Owner             PlayerRequest   `json:"owner" validate:"required"`
	AdditionalPlayers []PlayerRequest `json:"additional_players" validate:"max=3,dive"`
}
