package usecase

import (
	"roster-desk/internal/data/repository"
	"roster-desk/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	Roster     RosterService
	Assignment AssignmentService
	Payment    PaymentService
	Checkin    CheckinService
	Fee        FeeService
}

func NewService(repo *repository.Repository, deps Deps, config *utils.Config, log *zap.Logger) *Service {
	return &Service{
		Roster:     NewRosterService(repo, deps, log),
		Assignment: NewAssignmentService(repo, deps, config, log),
		Payment:    NewPaymentService(repo, deps, log),
		Checkin:    NewCheckinService(repo, deps, log),
		Fee:        NewFeeService(deps, log),
	}
}
