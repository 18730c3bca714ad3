package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"roster-desk/internal/data/entity"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestBookingFindByID(t *testing.T) {
	mock := newMock(t)
	repo := NewBookingRepository(mock, zap.NewNop())
	ctx := context.Background()

	id := uuid.New()
	now := time.Now()
	rows := pgxmock.NewRows([]string{
		"id", "owner_email", "owner_name", "resource_name", "starts_at", "duration_minutes",
		"category", "expected_player_count", "status", "roster_committed", "created_at", "updated_at",
	}).AddRow(
		id, "olive@club.test", "Olive", "Bay 3", now, 60,
		entity.BookingCategoryRegular, 2, entity.BookingStatusPending, true, now, now,
	)
	mock.ExpectQuery(`SELECT (.+) FROM bookings`).WithArgs(id).WillReturnRows(rows)

	b, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "Bay 3", b.ResourceName)
	assert.Equal(t, entity.BookingStatusPending, b.Status)
	assert.Equal(t, 2, b.ExpectedPlayerCount)

	mock.ExpectQuery(`SELECT (.+) FROM bookings`).WithArgs(id).WillReturnError(pgx.ErrNoRows)
	b, err = repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, b)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingUpdatePlayerCountMissing(t *testing.T) {
	mock := newMock(t)
	repo := NewBookingRepository(mock, zap.NewNop())

	id := uuid.New()
	mock.ExpectExec(`UPDATE bookings SET expected_player_count`).
		WithArgs(id, 3).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.UpdatePlayerCount(context.Background(), id, 3)
	assert.ErrorContains(t, err, "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitRosterRejectsCommittedBooking(t *testing.T) {
	mock := newMock(t)
	repo := NewParticipantRepository(mock, zap.NewNop())

	id := uuid.New()
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT roster_committed FROM bookings`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"roster_committed"}).AddRow(true))
	mock.ExpectRollback()

	err := repo.CommitRoster(context.Background(), id, nil, 1, entity.Provenance{Kind: entity.ProvenancePending})
	assert.ErrorIs(t, err, ErrRosterCommitted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitRosterResolvesLegacyReview(t *testing.T) {
	mock := newMock(t)
	repo := NewParticipantRepository(mock, zap.NewNop())

	bookingID := uuid.New()
	reviewID := uuid.New()
	email := "olive@club.test"
	owner := &entity.Participant{
		BookingID:     bookingID,
		SlotNumber:    1,
		IsPrimary:     true,
		Type:          entity.ParticipantTypeOwner,
		UserEmail:     &email,
		DisplayName:   "Olive",
		PaymentStatus: entity.PaymentStatusPending,
	}
	owner.ID = uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT roster_committed FROM bookings`).
		WithArgs(bookingID).
		WillReturnRows(pgxmock.NewRows([]string{"roster_committed"}).AddRow(false))
	mock.ExpectExec(`INSERT INTO booking_participants`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`UPDATE bookings`).
		WithArgs(bookingID, 1, &email, "Olive").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE legacy_reviews SET resolved_at`).
		WithArgs(reviewID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	prov := entity.Provenance{Kind: entity.ProvenanceLegacyReview, LegacyReviewID: reviewID}
	err := repo.CommitRoster(context.Background(), bookingID, []*entity.Participant{owner}, 1, prov)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitRosterAlreadyLinkedImport(t *testing.T) {
	mock := newMock(t)
	repo := NewParticipantRepository(mock, zap.NewNop())

	bookingID := uuid.New()
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT roster_committed FROM bookings`).
		WithArgs(bookingID).
		WillReturnRows(pgxmock.NewRows([]string{"roster_committed"}).AddRow(false))
	mock.ExpectExec(`UPDATE bookings`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE external_imports SET linked_at`).
		WithArgs("1234567").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	prov := entity.Provenance{Kind: entity.ProvenanceExternal, ExternalID: "1234567"}
	err := repo.CommitRoster(context.Background(), bookingID, nil, 1, prov)
	assert.ErrorIs(t, err, ErrProvenanceResolved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettlePendingReportsRows(t *testing.T) {
	mock := newMock(t)
	repo := NewParticipantRepository(mock, zap.NewNop())

	id := uuid.New()
	reason := "comped"
	mock.ExpectExec(`UPDATE booking_participants`).
		WithArgs(id, entity.PaymentStatusWaived, &reason).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	n, err := repo.SettlePending(context.Background(), id, entity.PaymentStatusWaived, &reason)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyGuestPassExhausted(t *testing.T) {
	mock := newMock(t)
	repo := NewParticipantRepository(mock, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE guest_pass_ledgers`).
		WithArgs("olive@club.test", "2026-10").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := repo.ApplyGuestPass(context.Background(), uuid.New(), "olive@club.test", "2026-10")
	assert.ErrorIs(t, err, ErrGuestPassExhausted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyGuestPass(t *testing.T) {
	mock := newMock(t)
	repo := NewParticipantRepository(mock, zap.NewNop())

	pid := uuid.New()
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE guest_pass_ledgers`).
		WithArgs("olive@club.test", "2026-10").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE booking_participants`).
		WithArgs(pid).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	require.NoError(t, repo.ApplyGuestPass(context.Background(), pid, "olive@club.test", "2026-10"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkReconciledOnce(t *testing.T) {
	mock := newMock(t)
	repo := NewPaymentRepository(mock, zap.NewNop())
	ctx := context.Background()

	mock.ExpectExec(`UPDATE booking_payments`).
		WithArgs("pi_123").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE booking_payments`).
		WithArgs("pi_123").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	first, err := repo.MarkReconciled(ctx, "pi_123")
	require.NoError(t, err)
	assert.True(t, first)

	second, err := repo.MarkReconciled(ctx, "pi_123")
	require.NoError(t, err)
	assert.False(t, second)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemberSearchError(t *testing.T) {
	mock := newMock(t)
	repo := NewMemberRepository(mock, zap.NewNop())

	mock.ExpectQuery(`SELECT (.+) FROM members`).
		WithArgs("%mia%", 5).
		WillReturnError(errors.New("connection reset"))

	_, err := repo.Search(context.Background(), " mia ", 5)
	assert.ErrorContains(t, err, `search members " mia "`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuestPassLedgerMissing(t *testing.T) {
	mock := newMock(t)
	repo := NewGuestPassRepository(mock, zap.NewNop())

	mock.ExpectQuery(`FROM guest_pass_ledgers`).
		WithArgs("olive@club.test", "2026-10").
		WillReturnError(pgx.ErrNoRows)

	l, err := repo.FindByOwner(context.Background(), "olive@club.test", "2026-10")
	require.NoError(t, err)
	assert.Nil(t, l)
	assert.Zero(t, l.Remaining())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetPaidKeepsListedParticipants(t *testing.T) {
	mock := newMock(t)
	repo := NewParticipantRepository(mock, zap.NewNop())
	ctx := context.Background()

	id := uuid.New()
	mock.ExpectExec(`UPDATE booking_participants`).
		WithArgs(id, []string{}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))
	mock.ExpectExec(`UPDATE booking_participants`).
		WithArgs(id, []string{"p1"}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	n, err := repo.ResetPaid(ctx, id, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = repo.ResetPaid(ctx, id, []string{"p1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func newSettlement(bookingID uuid.UUID) *entity.PaymentRecord {
	now := time.Now()
	rec := &entity.PaymentRecord{
		BookingID:      bookingID,
		Method:         entity.PaymentMethodCash,
		AmountCents:    2500,
		Status:         entity.PaymentRecordConfirmed,
		ParticipantIDs: []string{"p1", "p2"},
	}
	rec.ID = uuid.New()
	rec.CreatedAt, rec.UpdatedAt = now, now
	return rec
}

func TestSettleAndAttend(t *testing.T) {
	mock := newMock(t)
	repo := NewParticipantRepository(mock, zap.NewNop())

	id := uuid.New()
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE booking_participants`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))
	mock.ExpectExec(`INSERT INTO booking_payments`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`UPDATE bookings SET status`).
		WithArgs(id, entity.BookingStatusAttended).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	n, err := repo.SettleAndAttend(context.Background(), newSettlement(id))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettleAndAttendRollsBackOnStatusFailure(t *testing.T) {
	mock := newMock(t)
	repo := NewParticipantRepository(mock, zap.NewNop())

	id := uuid.New()
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE booking_participants`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))
	mock.ExpectExec(`INSERT INTO booking_payments`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`UPDATE bookings SET status`).
		WithArgs(id, entity.BookingStatusAttended).
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	_, err := repo.SettleAndAttend(context.Background(), newSettlement(id))
	assert.ErrorContains(t, err, "deadlock detected")
	assert.NoError(t, mock.ExpectationsWereMet())
}
