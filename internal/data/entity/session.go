package entity

import (
	"time"

	"github.com/google/uuid"
)

// StaffSession is a desk login; sessions are issued elsewhere and only looked up here.
type StaffSession struct {
	BaseSimple
	StaffEmail string     `db:"staff_email"`
	Token      uuid.UUID  `db:"token"`
	ExpiresAt  time.Time  `db:"expires_at"`
	RevokedAt  *time.Time `db:"revoked_at"`
}
