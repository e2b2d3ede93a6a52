package query

import (
	"fmt"
	"strings"

	domain "user-query-service/internal/domain/user"
)

// Predicate reports whether a user should be kept by FilterBy.
type Predicate func(domain.User) bool

// Mapper renders a user as a string for ConvertTo.
type Mapper func(domain.User) string

// OlderThan matches users strictly older than age.
func OlderThan(age int) Predicate {
	return func(u domain.User) bool { return u.Age > age }
}

// YoungerThan matches users strictly younger than age.
func YoungerThan(age int) Predicate {
	return func(u domain.User) bool { return u.Age < age }
}

// AtLeast matches users aged age or more.
func AtLeast(age int) Predicate {
	return func(u domain.User) bool { return u.Age >= age }
}

// AtMost matches users aged age or less.
func AtMost(age int) Predicate {
	return func(u domain.User) bool { return u.Age <= age }
}

// HasPrivilege matches users holding p.
func HasPrivilege(p domain.Privilege) Predicate {
	return func(u domain.User) bool { return u.HasPrivilege(p) }
}

// LastNameIs matches users whose last name equals name exactly.
func LastNameIs(name string) Predicate {
	return func(u domain.User) bool { return u.LastName == name }
}

// FirstNameHasPrefix matches users whose first name starts with prefix.
func FirstNameHasPrefix(prefix string) Predicate {
	return func(u domain.User) bool { return strings.HasPrefix(u.FirstName, prefix) }
}

// Built-in mappers.
var (
	FirstName Mapper = func(u domain.User) string { return u.FirstName }
	LastName  Mapper = func(u domain.User) string { return u.LastName }
	FullName  Mapper = func(u domain.User) string { return u.FullName() }
	Summary   Mapper = func(u domain.User) string {
		return fmt.Sprintf("%s (%d)", u.FullName(), u.Age)
	}
)

// MapperByName resolves one of the built-in mappers: first, last, full or summary.
func MapperByName(name string) (Mapper, bool) {
	switch strings.ToLower(name) {
	case "first":
		return FirstName, true
	case "last":
		return LastName, true
	case "full":
		return FullName, true
	case "summary":
		return Summary, true
	default:
		return nil, false
	}
}
