package query

import (
	"cmp"
	"slices"
	"strings"

	"go.uber.org/zap"

	domain "user-query-service/internal/domain/user"
	apperrors "user-query-service/pkg/errors"
)

// EmptyAverage is returned by AverageAge when there are no users.
const EmptyAverage = -1.0

var (
	// ErrNilUsers is returned when an operation that reports absence receives a nil roster.
	ErrNilUsers = apperrors.NewValidationError("users", "user list must not be nil")
	// ErrNilMapper is returned by ConvertTo when no mapping function is given.
	ErrNilMapper = apperrors.NewValidationError("mapFn", "mapping function must not be nil")
)

// Service implements Querier. It holds no roster state; every call works on
// the slice it is given and returns freshly allocated results.
type Service struct {
	log *zap.Logger
}

// New creates a new query Service.
func New(log *zap.Logger) *Service {
	return &Service{log: log}
}

var _ Querier = (*Service)(nil)

// FirstNamesReverseSorted returns every first name in descending lexicographic order.
func (s *Service) FirstNamesReverseSorted(users []domain.User) []string {
	names := make([]string, len(users))
	for i := range users {
		names[i] = users[i].FirstName
	}
	slices.SortFunc(names, func(a, b string) int {
		return strings.Compare(b, a)
	})
	return names
}

// SortByAgeDescThenNameAsc orders users by age descending, then first name ascending.
// Users equal on both keys keep their input order.
func (s *Service) SortByAgeDescThenNameAsc(users []domain.User) []domain.User {
	sorted := cloneAll(users)
	slices.SortStableFunc(sorted, compareAgeDescNameAsc)
	return sorted
}

func compareAgeDescNameAsc(a, b domain.User) int {
	if c := cmp.Compare(b.Age, a.Age); c != 0 {
		return c
	}
	return strings.Compare(a.FirstName, b.FirstName)
}

// DistinctPrivileges returns the union of all privileges, each once, in first-seen order.
func (s *Service) DistinctPrivileges(users []domain.User) []domain.Privilege {
	seen := make(map[domain.Privilege]struct{})
	out := make([]domain.Privilege, 0, len(domain.AllPrivileges))
	for i := range users {
		for _, p := range users[i].Privileges {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

// FirstUpdateUserOlderThan returns the first user, in input order, older than age
// who holds the UPDATE privilege. It returns nil when no user matches.
func (s *Service) FirstUpdateUserOlderThan(users []domain.User, age int) (*domain.User, error) {
	if users == nil {
		s.log.Warn("first update user lookup rejected", zap.Error(ErrNilUsers))
		return nil, ErrNilUsers
	}

	for i := range users {
		if users[i].Age > age && users[i].HasPrivilege(domain.PrivilegeUpdate) {
			found := users[i].Clone()
			return &found, nil
		}
	}

	s.log.Debug("no update user found", zap.Int("older_than", age), zap.Int("users", len(users)))
	return nil, nil
}

// GroupByPrivilegeCount partitions users by the size of their privilege set.
func (s *Service) GroupByPrivilegeCount(users []domain.User) map[int][]domain.User {
	groups := make(map[int][]domain.User)
	for i := range users {
		n := users[i].PrivilegeCount()
		groups[n] = append(groups[n], users[i].Clone())
	}
	return groups
}

// AverageAge returns the mean age, or EmptyAverage when users is empty.
func (s *Service) AverageAge(users []domain.User) float64 {
	avg, ok := s.AverageAgeOK(users)
	if !ok {
		return EmptyAverage
	}
	return avg
}

// AverageAgeOK returns the mean age and whether there was anything to average.
func (s *Service) AverageAgeOK(users []domain.User) (float64, bool) {
	if len(users) == 0 {
		return 0, false
	}
	var total int64
	for i := range users {
		total += int64(users[i].Age)
	}
	return float64(total) / float64(len(users)), true
}

// MostFrequentLastName returns the last name shared by the most users.
// Only names held by at least two users qualify, and a tie at the top count
// yields no result.
func (s *Service) MostFrequentLastName(users []domain.User) (string, bool, error) {
	if users == nil {
		s.log.Warn("most frequent last name rejected", zap.Error(ErrNilUsers))
		return "", false, ErrNilUsers
	}

	var (
		best      string
		bestCount int
		tied      bool
	)
	for name, n := range s.CountByLastName(users) {
		switch {
		case n < 2:
		case n > bestCount:
			best, bestCount, tied = name, n, false
		case n == bestCount:
			tied = true
		}
	}

	if bestCount == 0 || tied {
		s.log.Debug("no unique most frequent last name",
			zap.Int("top_count", bestCount),
			zap.Bool("tied", tied),
		)
		return "", false, nil
	}
	return best, true, nil
}

// FilterBy keeps the users that satisfy every predicate.
// With no predicates every user is kept. Nil predicates are skipped.
func (s *Service) FilterBy(users []domain.User, predicates []Predicate) []domain.User {
	out := make([]domain.User, 0, len(users))
	for i := range users {
		if matchesAll(users[i], predicates) {
			out = append(out, users[i].Clone())
		}
	}
	return out
}

func matchesAll(u domain.User, predicates []Predicate) bool {
	for _, p := range predicates {
		if p == nil {
			continue
		}
		if !p(u) {
			return false
		}
	}
	return true
}

// ConvertTo maps each user through mapFn and joins the results with delimiter.
func (s *Service) ConvertTo(users []domain.User, delimiter string, mapFn Mapper) (string, error) {
	if mapFn == nil {
		s.log.Warn("convert rejected", zap.Error(ErrNilMapper))
		return "", ErrNilMapper
	}

	var b strings.Builder
	for i := range users {
		if i > 0 {
			b.WriteString(delimiter)
		}
		b.WriteString(mapFn(users[i].Clone()))
	}
	return b.String(), nil
}

// GroupByPrivilege indexes users by each privilege they hold.
// A user with three privileges appears under three keys.
func (s *Service) GroupByPrivilege(users []domain.User) map[domain.Privilege][]domain.User {
	groups := make(map[domain.Privilege][]domain.User)
	for i := range users {
		for _, p := range users[i].DistinctPrivileges() {
			groups[p] = append(groups[p], users[i].Clone())
		}
	}
	return groups
}

// CountByLastName counts how many users carry each last name.
func (s *Service) CountByLastName(users []domain.User) map[string]int {
	counts := make(map[string]int)
	for i := range users {
		counts[users[i].LastName]++
	}
	return counts
}

func cloneAll(users []domain.User) []domain.User {
	out := make([]domain.User, len(users))
	for i := range users {
		out[i] = users[i].Clone()
	}
	return out
}
