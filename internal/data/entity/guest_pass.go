package entity

// GuestPassLedger is an owner's monthly guest pass allowance.
type GuestPassLedger struct {
	OwnerEmail string `db:"owner_email"`
	Month      string `db:"month"`
	Total      int    `db:"total"`
	Used       int    `db:"used"`
}

func (l *GuestPassLedger) Remaining() int {
	if l == nil || l.Used >= l.Total {
		return 0
	}
	return l.Total - l.Used
}
