package repository

import (
	"context"
	"fmt"

	"roster-desk/internal/data/entity"
	"roster-desk/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type BookingRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	UpdatePlayerCount(ctx context.Context, id uuid.UUID, count int) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status entity.BookingStatus) error
}

type bookingRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewBookingRepository(db database.PgxIface, log *zap.Logger) BookingRepository {
	return &bookingRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking")),
	}
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	query := `
		SELECT id, owner_email, owner_name, resource_name, starts_at, duration_minutes,
		       category, expected_player_count, status, roster_committed, created_at, updated_at
		FROM bookings
		WHERE id = $1
	`

	var booking entity.Booking
	err := r.db.QueryRow(ctx, query, id).Scan(
		&booking.ID,
		&booking.OwnerEmail,
		&booking.OwnerName,
		&booking.ResourceName,
		&booking.StartsAt,
		&booking.DurationMinutes,
		&booking.Category,
		&booking.ExpectedPlayerCount,
		&booking.Status,
		&booking.RosterCommitted,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by ID",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return nil, fmt.Errorf("find booking by ID %s: %w", id.String(), err)
	}

	return &booking, nil
}

// UpdatePlayerCount only moves the validation target; participant rows are untouched.
func (r *bookingRepository) UpdatePlayerCount(ctx context.Context, id uuid.UUID, count int) error {
	query := `UPDATE bookings SET expected_player_count = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, count)
	if err != nil {
		r.log.Error("Failed to update player count",
			zap.Error(err),
			zap.String("booking_id", id.String()),
			zap.Int("count", count),
		)
		return fmt.Errorf("update booking %s player count: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("booking %s not found", id.String())
	}

	return nil
}

func (r *bookingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.BookingStatus) error {
	query := `UPDATE bookings SET status = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, status)
	if err != nil {
		r.log.Error("Failed to update booking status",
			zap.Error(err),
			zap.String("booking_id", id.String()),
			zap.String("status", string(status)),
		)
		return fmt.Errorf("update booking %s status to %s: %w", id.String(), string(status), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("booking %s not found", id.String())
	}

	return nil
}
