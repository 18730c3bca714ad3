package usecase

import (
	"context"
	"fmt"

	"roster-desk/internal/dto/request"
	"roster-desk/internal/dto/response"
	"roster-desk/pkg/pricing"
	"roster-desk/pkg/utils"

	"go.uber.org/zap"
)

// FeeService serves advisory estimates while a roster is being edited. The
// numbers are never stored.
type FeeService interface {
	Estimate(ctx context.Context, req *request.FeeEstimateRequest) (*response.FeeEstimateResponse, error)
}

type feeService struct {
	pricing Pricing
	log     *zap.Logger
}

func NewFeeService(deps Deps, log *zap.Logger) FeeService {
	return &feeService{
		pricing: deps.Pricing,
		log:     log.With(zap.String("service", "fee")),
	}
}

func (s *feeService) Estimate(ctx context.Context, req *request.FeeEstimateRequest) (*response.FeeEstimateResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	q, err := s.pricing.Estimate(ctx, pricing.Query{
		Email:           utils.NormalizeEmail(req.Email),
		DurationMinutes: req.DurationMinutes,
		PlayerCount:     req.PlayerCount,
		GuestCount:      req.GuestCount,
		Date:            req.Date,
	})
	if err != nil {
		return nil, fmt.Errorf("estimate fees: %v: %w", err, ErrPricingUnavailable)
	}

	return &response.FeeEstimateResponse{
		TotalCents:   q.TotalCents,
		OverageCents: q.OverageCents,
		GuestCents:   q.GuestCents,
	}, nil
}
