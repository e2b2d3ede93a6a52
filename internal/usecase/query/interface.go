package query

import domain "user-query-service/internal/domain/user"

// Querier defines the read-only operations available over a user roster.
// Implementations must not mutate the input slice or its elements, and results
// must not share memory with the input.
type Querier interface {
	FirstNamesReverseSorted(users []domain.User) []string
	SortByAgeDescThenNameAsc(users []domain.User) []domain.User
	DistinctPrivileges(users []domain.User) []domain.Privilege
	FirstUpdateUserOlderThan(users []domain.User, age int) (*domain.User, error)
	GroupByPrivilegeCount(users []domain.User) map[int][]domain.User
	AverageAge(users []domain.User) float64
	AverageAgeOK(users []domain.User) (float64, bool)
	MostFrequentLastName(users []domain.User) (string, bool, error)
	FilterBy(users []domain.User, predicates []Predicate) []domain.User
	ConvertTo(users []domain.User, delimiter string, mapFn Mapper) (string, error)
	GroupByPrivilege(users []domain.User) map[domain.Privilege][]domain.User
	CountByLastName(users []domain.User) map[string]int
}
