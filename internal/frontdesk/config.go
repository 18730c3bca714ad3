package frontdesk

import (
	"time"

	"roster-desk/pkg/utils"
)

// Config holds engine timings. Tests shrink them to milliseconds.
type Config struct {
	PollInterval          time.Duration
	PollAttempts          int
	ConfirmRetryBackoff   time.Duration
	PaymentSurfaceDelay   time.Duration
	EstimateDebounce      time.Duration
	DuplicateNameDebounce time.Duration
	SearchDebounce        time.Duration
	ExternalIDMinLength   int
}

func DefaultConfig() Config {
	return Config{
		PollInterval:          2 * time.Second,
		PollAttempts:          5,
		ConfirmRetryBackoff:   time.Second,
		PaymentSurfaceDelay:   300 * time.Millisecond,
		EstimateDebounce:      300 * time.Millisecond,
		DuplicateNameDebounce: 500 * time.Millisecond,
		SearchDebounce:        300 * time.Millisecond,
		ExternalIDMinLength:   6,
	}
}

// ConfigFromDesk fills zero values from DefaultConfig.
func ConfigFromDesk(c utils.DeskConfig) Config {
	cfg := DefaultConfig()
	if c.PollInterval > 0 {
		cfg.PollInterval = c.PollInterval
	}
	if c.PollAttempts > 0 {
		cfg.PollAttempts = c.PollAttempts
	}
	if c.ConfirmRetryBackoff > 0 {
		cfg.ConfirmRetryBackoff = c.ConfirmRetryBackoff
	}
	if c.PaymentSurfaceDelay > 0 {
		cfg.PaymentSurfaceDelay = c.PaymentSurfaceDelay
	}
	if c.EstimateDebounce > 0 {
		cfg.EstimateDebounce = c.EstimateDebounce
	}
	if c.DuplicateNameDebounce > 0 {
		cfg.DuplicateNameDebounce = c.DuplicateNameDebounce
	}
	if c.SearchDebounce > 0 {
		cfg.SearchDebounce = c.SearchDebounce
	}
	if c.ExternalIDMinLength > 0 {
		cfg.ExternalIDMinLength = c.ExternalIDMinLength
	}
	return cfg
}
