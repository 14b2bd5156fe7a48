package model

type UserRole string

const (
	UserRoleAdmin    UserRole = "admin"
	UserRoleCouncil  UserRole = "council"
	UserRoleResident UserRole = "resident"
)

// Principal is an authenticated staff user.
type Principal struct {
	UserID int64
	Email  string
	Role   UserRole
}

func (p Principal) IsAdmin() bool {
	return p.Role == UserRoleAdmin
}

func (p Principal) IsCouncil() bool {
	return p.Role == UserRoleCouncil
}

// CanAdjudicate reports whether the principal may approve, reject or fine violations.
func (p Principal) CanAdjudicate() bool {
	return p.IsAdmin() || p.IsCouncil()
}

func (p Principal) IsStaff() bool {
	return p.IsAdmin() || p.IsCouncil() || p.Role == UserRoleResident
}

// OccupantSession is a unit occupant who proved control of their email
// through the public dispute flow. It is bound to a single violation.
type OccupantSession struct {
	PersonID    int64
	ViolationID int64
	LinkToken   string
}
