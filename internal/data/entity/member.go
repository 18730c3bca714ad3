package entity

type MemberKind string

const (
	MemberKindMember  MemberKind = "member"
	MemberKindVisitor MemberKind = "visitor"
)

// Member is a directory record; visitors are temporary non-member records.
type Member struct {
	BaseNoDelete
	Email string     `db:"email"`
	Name  string     `db:"name"`
	Tier  *string    `db:"tier"`
	Kind  MemberKind `db:"kind"`
	Phone *string    `db:"phone"`
}
