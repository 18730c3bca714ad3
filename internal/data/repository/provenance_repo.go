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

// ProvenanceRepository reads the import records a first roster assignment resolves.
type ProvenanceRepository interface {
	FindLegacyReview(ctx context.Context, id uuid.UUID) (*entity.LegacyReview, error)
	FindExternalImport(ctx context.Context, externalID string) (*entity.ExternalImport, error)
}

type provenanceRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewProvenanceRepository(db database.PgxIface, log *zap.Logger) ProvenanceRepository {
	return &provenanceRepository{
		db:  db,
		log: log.With(zap.String("repository", "provenance")),
	}
}

func (r *provenanceRepository) FindLegacyReview(ctx context.Context, id uuid.UUID) (*entity.LegacyReview, error) {
	query := `
		SELECT id, booking_id, source_name, resolved_at, created_at
		FROM legacy_reviews
		WHERE id = $1
	`

	var lr entity.LegacyReview
	err := r.db.QueryRow(ctx, query, id).Scan(&lr.ID, &lr.BookingID, &lr.SourceName, &lr.ResolvedAt, &lr.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find legacy review",
			zap.Error(err),
			zap.String("legacy_review_id", id.String()),
		)
		return nil, fmt.Errorf("find legacy review %s: %w", id.String(), err)
	}

	return &lr, nil
}

func (r *provenanceRepository) FindExternalImport(ctx context.Context, externalID string) (*entity.ExternalImport, error) {
	query := `
		SELECT external_id, booking_id, linked_at, created_at
		FROM external_imports
		WHERE external_id = $1
	`

	var ei entity.ExternalImport
	err := r.db.QueryRow(ctx, query, externalID).Scan(&ei.ExternalID, &ei.BookingID, &ei.LinkedAt, &ei.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find external import",
			zap.Error(err),
			zap.String("external_id", externalID),
		)
		return nil, fmt.Errorf("find external import %s: %w", externalID, err)
	}

	return &ei, nil
}
