package user

import (
	"fmt"
	"strings"
)

// Privilege is a capability flag held by a user.
type Privilege string

// Known privileges.
const (
	PrivilegeCreate Privilege = "CREATE"
	PrivilegeRead   Privilege = "READ"
	PrivilegeUpdate Privilege = "UPDATE"
	PrivilegeDelete Privilege = "DELETE"
	PrivilegeWrite  Privilege = "WRITE"
)

// AllPrivileges lists every known privilege in declaration order.
var AllPrivileges = []Privilege{
	PrivilegeCreate,
	PrivilegeRead,
	PrivilegeUpdate,
	PrivilegeDelete,
	PrivilegeWrite,
}

// ParsePrivilege converts a case-insensitive name into a Privilege.
func ParsePrivilege(s string) (Privilege, error) {
	p := Privilege(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range AllPrivileges {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown privilege %q", s)
}

// String implements fmt.Stringer.
func (p Privilege) String() string {
	return string(p)
}

// User represents a user record in the roster.
// Privileges behave as a set: a value repeated in the slice counts once.
type User struct {
	FirstName  string      // FirstName is the given name of the user
	LastName   string      // LastName is the family name of the user
	Age        int         // Age is the age in years
	Privileges []Privilege // Privileges granted to the user
}

// HasPrivilege reports whether the user holds p.
func (u User) HasPrivilege(p Privilege) bool {
	for _, held := range u.Privileges {
		if held == p {
			return true
		}
	}
	return false
}

// DistinctPrivileges returns the user's privileges without repeats, in first-seen order.
func (u User) DistinctPrivileges() []Privilege {
	seen := make(map[Privilege]struct{}, len(u.Privileges))
	out := make([]Privilege, 0, len(u.Privileges))
	for _, p := range u.Privileges {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// PrivilegeCount returns the size of the user's privilege set.
func (u User) PrivilegeCount() int {
	return len(u.DistinctPrivileges())
}

// FullName joins first and last name with a single space.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Clone returns a copy that shares no memory with u.
func (u User) Clone() User {
	c := u
	if u.Privileges != nil {
		c.Privileges = make([]Privilege, len(u.Privileges))
		copy(c.Privileges, u.Privileges)
	}
	return c
}

// Record is a stored roster entry.
type Record struct {
	ID   int64 // ID is the storage identifier
	User User  // User is the stored value
}
