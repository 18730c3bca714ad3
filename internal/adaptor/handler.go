package adaptor

import (
	"encoding/json"
	"errors"
	"net/http"

	"roster-desk/internal/push"
	"roster-desk/internal/usecase"
	"roster-desk/pkg/utils"

	"go.uber.org/zap"
)

type Handler struct {
	Roster     *RosterHandler
	Assignment *AssignmentHandler
	Payment    *PaymentHandler
	Checkin    *CheckinHandler
	Push       *PushHandler
}

func NewHandler(service *usecase.Service, hub *push.Hub, log *zap.Logger) *Handler {
	return &Handler{
		Roster:     NewRosterHandler(service.Roster, service.Fee, log),
		Assignment: NewAssignmentHandler(service.Assignment, log),
		Payment:    NewPaymentHandler(service.Payment, log),
		Checkin:    NewCheckinHandler(service.Checkin, log),
		Push:       NewPushHandler(hub, log),
	}
}

// decodeJSON reads a request body into dst, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return false
	}
	return true
}

// handleServiceError maps usecase errors onto the response envelope.
func handleServiceError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	var (
		validationErr *usecase.ValidationError
		matchErr      *usecase.MemberMatchError
		gateErr       *usecase.PaymentGateError
	)

	switch {
	case errors.As(err, &validationErr):
		log.Warn(operation+" validation failed", zap.Error(err))
		if len(validationErr.Fields) > 0 {
			utils.ResponseBadRequest(w, "Validation failed", validationErr.Fields)
			return
		}
		utils.ResponseBadRequest(w, validationErr.Message, nil)

	case errors.Is(err, usecase.ErrNotFound):
		log.Warn(operation+" failed - not found", zap.Error(err))
		utils.ResponseNotFound(w, err.Error())

	case errors.As(err, &matchErr):
		log.Info(operation+" needs a staff decision", zap.String("member_email", matchErr.Member.Email))
		utils.ResponseConflict(w, matchErr.Error(), map[string]any{"member_match": matchErr.Member})

	case errors.Is(err, usecase.ErrConflict):
		log.Warn(operation+" failed - conflict", zap.Error(err))
		utils.ResponseConflict(w, err.Error(), nil)

	case errors.As(err, &gateErr):
		log.Info(operation+" blocked", zap.String("reason", gateErr.Reason))
		utils.ResponsePaymentRequired(w, gateErr.Error(), gateErr.Gate)

	case errors.Is(err, usecase.ErrInvalidTransition), errors.Is(err, usecase.ErrGuestPassUnavailable):
		log.Warn(operation+" failed - invalid state", zap.Error(err))
		utils.ResponseUnprocessable(w, err.Error(), nil)

	case errors.Is(err, usecase.ErrProvider), errors.Is(err, usecase.ErrPricingUnavailable):
		log.Error(operation+" failed - upstream", zap.Error(err))
		utils.ResponseBadGateway(w, err.Error())

	default:
		log.Error(operation+" failed", zap.Error(err))
		utils.ResponseInternalError(w, "Internal server error")
	}
}
