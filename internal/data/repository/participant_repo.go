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

type ParticipantRepository interface {
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*entity.Participant, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Participant, error)
	Update(ctx context.Context, p *entity.Participant) error
	UpdateFees(ctx context.Context, participants []*entity.Participant) error
	CreateEmptySlots(ctx context.Context, bookingID uuid.UUID, fromSlot, toSlot int) error

	// Roster commit, transactional with the provenance record it resolves
	CommitRoster(ctx context.Context, bookingID uuid.UUID, participants []*entity.Participant, expectedPlayers int, prov entity.Provenance) error

	// Payment status
	SettlePending(ctx context.Context, bookingID uuid.UUID, status entity.PaymentStatus, reason *string) (int64, error)
	SettleByIDs(ctx context.Context, bookingID uuid.UUID, ids []string, status entity.PaymentStatus) (int64, error)
	ResetPaid(ctx context.Context, bookingID uuid.UUID, keep []string) (int64, error)
	ApplyGuestPass(ctx context.Context, participantID uuid.UUID, ownerEmail, month string) error

	// Desk check-in, transactional: fees collected, settlement recorded, booking attended
	SettleAndAttend(ctx context.Context, settlement *entity.PaymentRecord) (int64, error)
}

type participantRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewParticipantRepository(db database.PgxIface, log *zap.Logger) ParticipantRepository {
	return &participantRepository{
		db:  db,
		log: log.With(zap.String("repository", "participant")),
	}
}

const participantColumns = `id, booking_id, slot_number, is_primary, participant_type, user_email, display_name,
		       guest_name, guest_email, guest_phone, tier, fee_cents, fee_note, payment_status,
		       used_guest_pass, waiver_reason, created_at, updated_at`

func scanParticipant(row pgx.Row) (*entity.Participant, error) {
	var p entity.Participant
	var guestName, guestEmail, guestPhone *string

	err := row.Scan(
		&p.ID,
		&p.BookingID,
		&p.SlotNumber,
		&p.IsPrimary,
		&p.Type,
		&p.UserEmail,
		&p.DisplayName,
		&guestName,
		&guestEmail,
		&guestPhone,
		&p.Tier,
		&p.FeeCents,
		&p.FeeNote,
		&p.PaymentStatus,
		&p.UsedGuestPass,
		&p.WaiverReason,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if guestName != nil {
		p.Guest = &entity.GuestInfo{Name: *guestName, Email: guestEmail, Phone: guestPhone}
	}

	return &p, nil
}

func guestColumns(p *entity.Participant) (name, email, phone *string) {
	if p.Guest == nil {
		return nil, nil, nil
	}
	n := p.Guest.Name
	return &n, p.Guest.Email, p.Guest.Phone
}

func (r *participantRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*entity.Participant, error) {
	query := `
		SELECT ` + participantColumns + `
		FROM booking_participants
		WHERE booking_id = $1
		ORDER BY slot_number
	`

	rows, err := r.db.Query(ctx, query, bookingID)
	if err != nil {
		r.log.Error("Failed to find participants by booking ID",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return nil, fmt.Errorf("find participants by booking ID %s: %w", bookingID.String(), err)
	}
	defer rows.Close()

	var participants []*entity.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			r.log.Error("Failed to scan participant row", zap.Error(err))
			return nil, fmt.Errorf("scan participant row: %w", err)
		}
		participants = append(participants, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participant rows: %w", err)
	}

	return participants, nil
}

func (r *participantRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Participant, error) {
	query := `
		SELECT ` + participantColumns + `
		FROM booking_participants
		WHERE id = $1
	`

	p, err := scanParticipant(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find participant by ID",
			zap.Error(err),
			zap.String("participant_id", id.String()),
		)
		return nil, fmt.Errorf("find participant by ID %s: %w", id.String(), err)
	}

	return p, nil
}

func (r *participantRepository) Update(ctx context.Context, p *entity.Participant) error {
	query := `
		UPDATE booking_participants
		SET participant_type = $2, user_email = $3, display_name = $4, guest_name = $5,
		    guest_email = $6, guest_phone = $7, tier = $8, fee_cents = $9, fee_note = $10,
		    payment_status = $11, used_guest_pass = $12, waiver_reason = $13, updated_at = NOW()
		WHERE id = $1
	`

	guestName, guestEmail, guestPhone := guestColumns(p)
	result, err := r.db.Exec(ctx, query,
		p.ID,
		p.Type,
		p.UserEmail,
		p.DisplayName,
		guestName,
		guestEmail,
		guestPhone,
		p.Tier,
		p.FeeCents,
		p.FeeNote,
		p.PaymentStatus,
		p.UsedGuestPass,
		p.WaiverReason,
	)

	if err != nil {
		r.log.Error("Failed to update participant",
			zap.Error(err),
			zap.String("participant_id", p.ID.String()),
		)
		return fmt.Errorf("update participant %s: %w", p.ID.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("participant %s not found", p.ID.String())
	}

	return nil
}

// UpdateFees writes recalculated fees for pending rows only.
func (r *participantRepository) UpdateFees(ctx context.Context, participants []*entity.Participant) error {
	if len(participants) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin fee update: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE booking_participants
		SET fee_cents = $2, fee_note = $3, updated_at = NOW()
		WHERE id = $1 AND payment_status = 'pending'
	`

	for _, p := range participants {
		if _, err := tx.Exec(ctx, query, p.ID, p.FeeCents, p.FeeNote); err != nil {
			r.log.Error("Failed to update participant fee",
				zap.Error(err),
				zap.String("participant_id", p.ID.String()),
			)
			return fmt.Errorf("update participant %s fee: %w", p.ID.String(), err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit fee update: %w", err)
	}

	return nil
}

// CreateEmptySlots inserts empty placeholder rows for slot numbers fromSlot..toSlot
// that do not exist yet.
func (r *participantRepository) CreateEmptySlots(ctx context.Context, bookingID uuid.UUID, fromSlot, toSlot int) error {
	query := `
		INSERT INTO booking_participants (id, booking_id, slot_number, is_primary, participant_type,
		                                  display_name, fee_cents, fee_note, payment_status,
		                                  used_guest_pass, created_at, updated_at)
		VALUES ($1, $2, $3, FALSE, 'empty', '', 0, '', 'pending', FALSE, NOW(), NOW())
		ON CONFLICT (booking_id, slot_number) DO NOTHING
	`

	for slot := fromSlot; slot <= toSlot; slot++ {
		if _, err := r.db.Exec(ctx, query, uuid.New(), bookingID, slot); err != nil {
			r.log.Error("Failed to create empty slot",
				zap.Error(err),
				zap.String("booking_id", bookingID.String()),
				zap.Int("slot_number", slot),
			)
			return fmt.Errorf("create empty slot %d for booking %s: %w", slot, bookingID.String(), err)
		}
	}

	return nil
}

func (r *participantRepository) CommitRoster(ctx context.Context, bookingID uuid.UUID, participants []*entity.Participant, expectedPlayers int, prov entity.Provenance) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin roster commit: %w", err)
	}
	defer tx.Rollback(ctx)

	var committed bool
	err = tx.QueryRow(ctx, `SELECT roster_committed FROM bookings WHERE id = $1 FOR UPDATE`, bookingID).Scan(&committed)
	if err == pgx.ErrNoRows {
		return fmt.Errorf("booking %s not found", bookingID.String())
	}
	if err != nil {
		return fmt.Errorf("lock booking %s: %w", bookingID.String(), err)
	}
	if committed {
		return ErrRosterCommitted
	}

	insert := `
		INSERT INTO booking_participants (` + participantColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	for _, p := range participants {
		guestName, guestEmail, guestPhone := guestColumns(p)
		_, err := tx.Exec(ctx, insert,
			p.ID,
			bookingID,
			p.SlotNumber,
			p.IsPrimary,
			p.Type,
			p.UserEmail,
			p.DisplayName,
			guestName,
			guestEmail,
			guestPhone,
			p.Tier,
			p.FeeCents,
			p.FeeNote,
			p.PaymentStatus,
			p.UsedGuestPass,
			p.WaiverReason,
			p.CreatedAt,
			p.UpdatedAt,
		)
		if err != nil {
			r.log.Error("Failed to insert participant",
				zap.Error(err),
				zap.String("booking_id", bookingID.String()),
				zap.Int("slot_number", p.SlotNumber),
			)
			return fmt.Errorf("insert participant slot %d: %w", p.SlotNumber, err)
		}
	}

	// the primary participant becomes the booking owner
	var ownerEmail *string
	var ownerName string
	for _, p := range participants {
		if p.IsPrimary {
			ownerEmail = p.UserEmail
			ownerName = p.DisplayName
		}
	}

	_, err = tx.Exec(ctx, `
		UPDATE bookings
		SET roster_committed = TRUE, expected_player_count = $2,
		    owner_email = COALESCE($3, owner_email), owner_name = COALESCE(NULLIF($4, ''), owner_name),
		    updated_at = NOW()
		WHERE id = $1
	`, bookingID, expectedPlayers, ownerEmail, ownerName)
	if err != nil {
		return fmt.Errorf("mark booking %s committed: %w", bookingID.String(), err)
	}

	switch prov.Kind {
	case entity.ProvenanceLegacyReview:
		tag, err := tx.Exec(ctx,
			`UPDATE legacy_reviews SET resolved_at = NOW() WHERE id = $1 AND resolved_at IS NULL`,
			prov.LegacyReviewID,
		)
		if err != nil {
			return fmt.Errorf("resolve legacy review %s: %w", prov.LegacyReviewID.String(), err)
		}
		if tag.RowsAffected() == 0 {
			return ErrProvenanceResolved
		}
	case entity.ProvenanceExternal:
		tag, err := tx.Exec(ctx,
			`UPDATE external_imports SET linked_at = NOW() WHERE external_id = $1 AND linked_at IS NULL`,
			prov.ExternalID,
		)
		if err != nil {
			return fmt.Errorf("link external import %s: %w", prov.ExternalID, err)
		}
		if tag.RowsAffected() == 0 {
			return ErrProvenanceResolved
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit roster for booking %s: %w", bookingID.String(), err)
	}

	r.log.Info("Roster committed",
		zap.String("booking_id", bookingID.String()),
		zap.Int("participants", len(participants)),
		zap.String("provenance", string(prov.Kind)),
	)
	return nil
}

// SettlePending flips every pending participant with a fee to status.
func (r *participantRepository) SettlePending(ctx context.Context, bookingID uuid.UUID, status entity.PaymentStatus, reason *string) (int64, error) {
	query := `
		UPDATE booking_participants
		SET payment_status = $2, waiver_reason = COALESCE($3, waiver_reason), updated_at = NOW()
		WHERE booking_id = $1 AND payment_status = 'pending' AND fee_cents > 0
	`

	result, err := r.db.Exec(ctx, query, bookingID, status, reason)
	if err != nil {
		r.log.Error("Failed to settle pending participants",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
			zap.String("status", string(status)),
		)
		return 0, fmt.Errorf("settle booking %s participants as %s: %w", bookingID.String(), string(status), err)
	}

	return result.RowsAffected(), nil
}

// SettleByIDs flips the listed participants from pending to status.
func (r *participantRepository) SettleByIDs(ctx context.Context, bookingID uuid.UUID, ids []string, status entity.PaymentStatus) (int64, error) {
	query := `
		UPDATE booking_participants
		SET payment_status = $3, updated_at = NOW()
		WHERE booking_id = $1 AND id = ANY($2::uuid[]) AND payment_status = 'pending'
	`

	result, err := r.db.Exec(ctx, query, bookingID, ids, status)
	if err != nil {
		r.log.Error("Failed to settle participants by ID",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
			zap.Strings("participant_ids", ids),
		)
		return 0, fmt.Errorf("settle participants for booking %s: %w", bookingID.String(), err)
	}

	return result.RowsAffected(), nil
}

// ResetPaid returns paid participants to pending after their payments are
// voided. Participants listed in keep stay paid.
func (r *participantRepository) ResetPaid(ctx context.Context, bookingID uuid.UUID, keep []string) (int64, error) {
	if keep == nil {
		keep = []string{}
	}

	query := `
		UPDATE booking_participants
		SET payment_status = 'pending', updated_at = NOW()
		WHERE booking_id = $1 AND payment_status = 'paid' AND NOT (id = ANY($2::uuid[]))
	`

	result, err := r.db.Exec(ctx, query, bookingID, keep)
	if err != nil {
		r.log.Error("Failed to reset paid participants",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return 0, fmt.Errorf("reset paid participants for booking %s: %w", bookingID.String(), err)
	}

	return result.RowsAffected(), nil
}

// SettleAndAttend marks every outstanding fee paid, records the desk
// settlement and moves the booking to attended in one transaction.
func (r *participantRepository) SettleAndAttend(ctx context.Context, settlement *entity.PaymentRecord) (int64, error) {
	bookingID := settlement.BookingID

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin check-in settlement: %w", err)
	}
	defer tx.Rollback(ctx)

	settled, err := tx.Exec(ctx, `
		UPDATE booking_participants
		SET payment_status = 'paid', updated_at = NOW()
		WHERE booking_id = $1 AND payment_status = 'pending' AND fee_cents > 0
	`, bookingID)
	if err != nil {
		return 0, fmt.Errorf("settle booking %s participants: %w", bookingID.String(), err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO booking_payments (`+paymentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		settlement.ID,
		bookingID,
		settlement.ProviderIntentID,
		settlement.Method,
		settlement.AmountCents,
		settlement.Status,
		settlement.ParticipantIDs,
		settlement.Note,
		settlement.ReconciledAt,
		settlement.CreatedAt,
		settlement.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("record settlement for booking %s: %w", bookingID.String(), err)
	}

	tag, err := tx.Exec(ctx, `UPDATE bookings SET status = $2, updated_at = NOW() WHERE id = $1`,
		bookingID, entity.BookingStatusAttended)
	if err != nil {
		return 0, fmt.Errorf("update booking %s status: %w", bookingID.String(), err)
	}
	if tag.RowsAffected() == 0 {
		return 0, fmt.Errorf("booking %s not found", bookingID.String())
	}

	if err := tx.Commit(ctx); err != nil {
		r.log.Error("Failed to commit check-in settlement",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return 0, fmt.Errorf("commit check-in settlement for booking %s: %w", bookingID.String(), err)
	}

	return settled.RowsAffected(), nil
}

// ApplyGuestPass consumes one pass from the owner's ledger and zeroes the guest fee.
func (r *participantRepository) ApplyGuestPass(ctx context.Context, participantID uuid.UUID, ownerEmail, month string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin guest pass: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE guest_pass_ledgers SET used = used + 1 WHERE owner_email = $1 AND month = $2 AND used < total`,
		ownerEmail, month,
	)
	if err != nil {
		return fmt.Errorf("consume guest pass for %s: %w", ownerEmail, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrGuestPassExhausted
	}

	tag, err = tx.Exec(ctx, `
		UPDATE booking_participants
		SET fee_cents = 0, used_guest_pass = TRUE, fee_note = 'Guest pass applied', updated_at = NOW()
		WHERE id = $1 AND used_guest_pass = FALSE AND payment_status = 'pending'
	`, participantID)
	if err != nil {
		return fmt.Errorf("apply guest pass to participant %s: %w", participantID.String(), err)
	}
	if tag.RowsAffected() == 0 {
		return ErrGuestPassAlreadyUsed
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit guest pass: %w", err)
	}

	r.log.Info("Guest pass applied",
		zap.String("participant_id", participantID.String()),
		zap.String("owner_email", ownerEmail),
		zap.String("month", month),
	)
	return nil
}
