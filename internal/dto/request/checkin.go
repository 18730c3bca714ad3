package request

type CheckinRequest struct {
	Status         string `json:"status" validate:"required,oneof=attended no_show cancelled"`
	ConfirmPayment bool   `json:"confirm_payment"`
}

type FeeEstimateRequest struct {
	Email           string `json:"email" validate:"required,email"`
	DurationMinutes int    `json:"duration_minutes" validate:"gte=1,lte=720"`
	PlayerCount     int    `json:"player_count" validate:"gte=1,lte=4"`
	GuestCount      int    `json:"guest_count" validate:"gte=0,lte=3"`
	Date            string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}
