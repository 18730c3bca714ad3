package entity

import (
	"time"

	"github.com/google/uuid"
)

// BaseNoDelete is embedded by mutable rows; nothing in the desk schema is
// soft-deleted, cleared slots are reused instead.
type BaseNoDelete struct {
	ID        uuid.UUID `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// BaseSimple is embedded by append-only rows.
type BaseSimple struct {
	ID        uuid.UUID `db:"id"`
	CreatedAt time.Time `db:"created_at"`
}
