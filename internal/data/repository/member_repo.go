package repository

import (
	"context"
	"fmt"
	"strings"

	"roster-desk/internal/data/entity"
	"roster-desk/pkg/database"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type MemberRepository interface {
	FindByEmail(ctx context.Context, email string) (*entity.Member, error)
	Search(ctx context.Context, query string, limit int) ([]*entity.Member, error)
}

type memberRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewMemberRepository(db database.PgxIface, log *zap.Logger) MemberRepository {
	return &memberRepository{
		db:  db,
		log: log.With(zap.String("repository", "member")),
	}
}

func (r *memberRepository) FindByEmail(ctx context.Context, email string) (*entity.Member, error) {
	query := `
		SELECT id, email, name, tier, kind, phone, created_at, updated_at
		FROM members
		WHERE LOWER(email) = LOWER($1)
	`

	var m entity.Member
	err := r.db.QueryRow(ctx, query, strings.TrimSpace(email)).Scan(
		&m.ID,
		&m.Email,
		&m.Name,
		&m.Tier,
		&m.Kind,
		&m.Phone,
		&m.CreatedAt,
		&m.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find member by email",
			zap.Error(err),
			zap.String("email", email),
		)
		return nil, fmt.Errorf("find member by email %s: %w", email, err)
	}

	return &m, nil
}

// Search matches name or email prefixes, members before visitors.
func (r *memberRepository) Search(ctx context.Context, query string, limit int) ([]*entity.Member, error) {
	sql := `
		SELECT id, email, name, tier, kind, phone, created_at, updated_at
		FROM members
		WHERE name ILIKE $1 OR email ILIKE $1
		ORDER BY kind, name
		LIMIT $2
	`

	pattern := "%" + strings.TrimSpace(query) + "%"
	rows, err := r.db.Query(ctx, sql, pattern, limit)
	if err != nil {
		r.log.Error("Failed to search members",
			zap.Error(err),
			zap.String("query", query),
		)
		return nil, fmt.Errorf("search members %q: %w", query, err)
	}
	defer rows.Close()

	var members []*entity.Member
	for rows.Next() {
		var m entity.Member
		if err := rows.Scan(&m.ID, &m.Email, &m.Name, &m.Tier, &m.Kind, &m.Phone, &m.CreatedAt, &m.UpdatedAt); err != nil {
			r.log.Error("Failed to scan member row", zap.Error(err))
			return nil, fmt.Errorf("scan member row: %w", err)
		}
		members = append(members, &m)
	}

	return members, nil
}
