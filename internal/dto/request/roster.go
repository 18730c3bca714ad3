package request

type LinkMemberRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type AddGuestRequest struct {
	Name            string  `json:"name" validate:"required,notblank,max=120"`
	Email           *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone           *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	SlotID          *string `json:"slot_id,omitempty" validate:"omitempty,uuid"`
	ForceAddAsGuest bool    `json:"force_add_as_guest"`
}

type UpdatePlayerCountRequest struct {
	Count int `json:"count" validate:"gte=1,lte=4"`
}

type MemberSearchRequest struct {
	Query string `json:"query" validate:"required,min=2"`
	Limit int    `json:"limit" validate:"gte=0,lte=50"`
}
