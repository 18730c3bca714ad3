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

type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.PaymentRecord) error
	FindByIntentID(ctx context.Context, intentID string) (*entity.PaymentRecord, error)
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*entity.PaymentRecord, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status entity.PaymentRecordStatus) error

	// MarkReconciled claims reconciliation of an intent. It returns false when the
	// intent was already reconciled, so callers apply side effects once.
	MarkReconciled(ctx context.Context, intentID string) (bool, error)
}

type paymentRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewPaymentRepository(db database.PgxIface, log *zap.Logger) PaymentRepository {
	return &paymentRepository{
		db:  db,
		log: log.With(zap.String("repository", "payment")),
	}
}

const paymentColumns = `id, booking_id, provider_intent_id, method, amount_cents, status,
		       participant_ids, note, reconciled_at, created_at, updated_at`

func scanPayment(row pgx.Row) (*entity.PaymentRecord, error) {
	var p entity.PaymentRecord
	err := row.Scan(
		&p.ID,
		&p.BookingID,
		&p.ProviderIntentID,
		&p.Method,
		&p.AmountCents,
		&p.Status,
		&p.ParticipantIDs,
		&p.Note,
		&p.ReconciledAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepository) Create(ctx context.Context, payment *entity.PaymentRecord) error {
	query := `
		INSERT INTO booking_payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.Exec(ctx, query,
		payment.ID,
		payment.BookingID,
		payment.ProviderIntentID,
		payment.Method,
		payment.AmountCents,
		payment.Status,
		payment.ParticipantIDs,
		payment.Note,
		payment.ReconciledAt,
		payment.CreatedAt,
		payment.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create payment",
			zap.Error(err),
			zap.String("booking_id", payment.BookingID.String()),
			zap.String("method", string(payment.Method)),
		)
		return fmt.Errorf("create payment for booking %s: %w", payment.BookingID.String(), err)
	}

	return nil
}

func (r *paymentRepository) FindByIntentID(ctx context.Context, intentID string) (*entity.PaymentRecord, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM booking_payments
		WHERE provider_intent_id = $1
	`

	p, err := scanPayment(r.db.QueryRow(ctx, query, intentID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payment by intent ID",
			zap.Error(err),
			zap.String("intent_id", intentID),
		)
		return nil, fmt.Errorf("find payment by intent ID %s: %w", intentID, err)
	}

	return p, nil
}

func (r *paymentRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*entity.PaymentRecord, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM booking_payments
		WHERE booking_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.Query(ctx, query, bookingID)
	if err != nil {
		r.log.Error("Failed to find payments by booking ID",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return nil, fmt.Errorf("find payments by booking ID %s: %w", bookingID.String(), err)
	}
	defer rows.Close()

	var payments []*entity.PaymentRecord
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			r.log.Error("Failed to scan payment row", zap.Error(err))
			return nil, fmt.Errorf("scan payment row: %w", err)
		}
		payments = append(payments, p)
	}

	return payments, nil
}

func (r *paymentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.PaymentRecordStatus) error {
	query := `UPDATE booking_payments SET status = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, status)
	if err != nil {
		r.log.Error("Failed to update payment status",
			zap.Error(err),
			zap.String("payment_id", id.String()),
			zap.String("status", string(status)),
		)
		return fmt.Errorf("update payment %s status to %s: %w", id.String(), string(status), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("payment %s not found", id.String())
	}

	return nil
}

func (r *paymentRepository) MarkReconciled(ctx context.Context, intentID string) (bool, error) {
	query := `
		UPDATE booking_payments
		SET status = 'confirmed', reconciled_at = NOW(), updated_at = NOW()
		WHERE provider_intent_id = $1 AND reconciled_at IS NULL
	`

	result, err := r.db.Exec(ctx, query, intentID)
	if err != nil {
		r.log.Error("Failed to mark payment reconciled",
			zap.Error(err),
			zap.String("intent_id", intentID),
		)
		return false, fmt.Errorf("mark intent %s reconciled: %w", intentID, err)
	}

	return result.RowsAffected() == 1, nil
}
