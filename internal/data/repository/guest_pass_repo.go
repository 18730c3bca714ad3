package repository

import (
	"context"
	"fmt"

	"roster-desk/internal/data/entity"
	"roster-desk/pkg/database"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type GuestPassRepository interface {
	FindByOwner(ctx context.Context, ownerEmail, month string) (*entity.GuestPassLedger, error)
}

type guestPassRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewGuestPassRepository(db database.PgxIface, log *zap.Logger) GuestPassRepository {
	return &guestPassRepository{
		db:  db,
		log: log.With(zap.String("repository", "guest_pass")),
	}
}

func (r *guestPassRepository) FindByOwner(ctx context.Context, ownerEmail, month string) (*entity.GuestPassLedger, error) {
	query := `
		SELECT owner_email, month, total, used
		FROM guest_pass_ledgers
		WHERE LOWER(owner_email) = LOWER($1) AND month = $2
	`

	var l entity.GuestPassLedger
	err := r.db.QueryRow(ctx, query, ownerEmail, month).Scan(&l.OwnerEmail, &l.Month, &l.Total, &l.Used)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find guest pass ledger",
			zap.Error(err),
			zap.String("owner_email", ownerEmail),
			zap.String("month", month),
		)
		return nil, fmt.Errorf("find guest pass ledger for %s: %w", ownerEmail, err)
	}

	return &l, nil
}
