package query

import (
	"math"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	domain "user-query-service/internal/domain/user"
)

var (
	ann = domain.User{FirstName: "Ann", LastName: "Lee", Age: 30, Privileges: []domain.Privilege{domain.PrivilegeRead}}
	bo  = domain.User{FirstName: "Bo", LastName: "Lee", Age: 40, Privileges: []domain.Privilege{domain.PrivilegeRead, domain.PrivilegeUpdate}}
	cy  = domain.User{FirstName: "Cy", LastName: "Ng", Age: 40, Privileges: []domain.Privilege{}}
)

func setupTestService(t *testing.T) *Service {
	return New(zaptest.NewLogger(t))
}

func scenario() []domain.User {
	return []domain.User{ann.Clone(), bo.Clone(), cy.Clone()}
}

func firstNames(users []domain.User) []string {
	names := make([]string, len(users))
	for i, u := range users {
		names[i] = u.FirstName
	}
	return names
}

// ==================== SCENARIO ====================

func TestScenario(t *testing.T) {
	s := setupTestService(t)
	users := scenario()

	assert.Equal(t, []string{"Bo", "Cy", "Ann"}, firstNames(s.SortByAgeDescThenNameAsc(users)))

	name, ok, err := s.MostFrequentLastName(users)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Lee", name)

	groups := s.GroupByPrivilegeCount(users)
	assert.Len(t, groups, 3)
	assert.Equal(t, []string{"Ann"}, firstNames(groups[1]))
	assert.Equal(t, []string{"Bo"}, firstNames(groups[2]))
	assert.Equal(t, []string{"Cy"}, firstNames(groups[0]))

	assert.InDelta(t, 36.6666, s.AverageAge(users), 0.001)
	assert.Equal(t, -1.0, s.AverageAge([]domain.User{}))

	u, err := s.FirstUpdateUserOlderThan(users, 35)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "Bo", u.FirstName)
}

// ==================== FIRST NAMES ====================

func TestFirstNamesReverseSorted(t *testing.T) {
	s := setupTestService(t)
	users := []domain.User{
		{FirstName: "Cy"}, {FirstName: "Ann"}, {FirstName: "Bo"}, {FirstName: "Ann"},
	}

	names := s.FirstNamesReverseSorted(users)

	assert.Equal(t, []string{"Cy", "Bo", "Ann", "Ann"}, names)
	assert.Len(t, names, len(users))
	assert.True(t, slices.IsSortedFunc(names, func(a, b string) int { return strings.Compare(b, a) }))
	assert.Equal(t, "Cy", users[0].FirstName, "input must not be reordered")
}

func TestFirstNamesReverseSorted_Empty(t *testing.T) {
	s := setupTestService(t)
	assert.Empty(t, s.FirstNamesReverseSorted(nil))
	assert.Empty(t, s.FirstNamesReverseSorted([]domain.User{}))
}

// ==================== SORT ====================

func TestSortByAgeDescThenNameAsc_LargeAgeGap(t *testing.T) {
	s := setupTestService(t)
	users := []domain.User{
		{FirstName: "Zed", Age: 1},
		{FirstName: "Al", Age: 2_000_000_000},
		{FirstName: "Bea", Age: -2_000_000_000},
		{FirstName: "Abe", Age: 1},
	}

	sorted := s.SortByAgeDescThenNameAsc(users)

	assert.Equal(t, []string{"Al", "Abe", "Zed", "Bea"}, firstNames(sorted))
}

func TestSortByAgeDescThenNameAsc_StableAndIdempotent(t *testing.T) {
	s := setupTestService(t)
	users := []domain.User{
		{FirstName: "Bo", LastName: "First", Age: 20},
		{FirstName: "Ann", LastName: "Only", Age: 20},
		{FirstName: "Bo", LastName: "Second", Age: 20},
	}

	once := s.SortByAgeDescThenNameAsc(users)
	twice := s.SortByAgeDescThenNameAsc(once)

	assert.Equal(t, once, twice)
	assert.Equal(t, "First", once[1].LastName)
	assert.Equal(t, "Second", once[2].LastName)
}

func TestSortByAgeDescThenNameAsc_DoesNotAliasInput(t *testing.T) {
	s := setupTestService(t)
	users := scenario()

	sorted := s.SortByAgeDescThenNameAsc(users)
	sorted[0].Privileges[0] = domain.PrivilegeDelete
	sorted[0].FirstName = "changed"

	assert.Equal(t, "Ann", users[0].FirstName)
	assert.Equal(t, domain.PrivilegeRead, users[1].Privileges[0])
}

// ==================== DISTINCT PRIVILEGES ====================

func TestDistinctPrivileges(t *testing.T) {
	s := setupTestService(t)
	users := []domain.User{
		{Privileges: []domain.Privilege{domain.PrivilegeUpdate, domain.PrivilegeRead}},
		{Privileges: []domain.Privilege{domain.PrivilegeRead, domain.PrivilegeDelete, domain.PrivilegeRead}},
		{},
	}

	privileges := s.DistinctPrivileges(users)

	assert.Equal(t, []domain.Privilege{domain.PrivilegeUpdate, domain.PrivilegeRead, domain.PrivilegeDelete}, privileges)
}

func TestDistinctPrivileges_Empty(t *testing.T) {
	s := setupTestService(t)
	assert.Empty(t, s.DistinctPrivileges(nil))
}

// ==================== FIRST UPDATE USER ====================

func TestFirstUpdateUserOlderThan_FirstMatchInInputOrder(t *testing.T) {
	s := setupTestService(t)
	users := []domain.User{
		{FirstName: "Young", Age: 20, Privileges: []domain.Privilege{domain.PrivilegeUpdate}},
		{FirstName: "Reader", Age: 60, Privileges: []domain.Privilege{domain.PrivilegeRead}},
		{FirstName: "First", Age: 50, Privileges: []domain.Privilege{domain.PrivilegeUpdate}},
		{FirstName: "Second", Age: 70, Privileges: []domain.Privilege{domain.PrivilegeUpdate}},
	}

	u, err := s.FirstUpdateUserOlderThan(users, 30)

	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "First", u.FirstName)
}

func TestFirstUpdateUserOlderThan_AgeIsExclusive(t *testing.T) {
	s := setupTestService(t)
	users := []domain.User{{FirstName: "Edge", Age: 35, Privileges: []domain.Privilege{domain.PrivilegeUpdate}}}

	u, err := s.FirstUpdateUserOlderThan(users, 35)

	assert.NoError(t, err)
	assert.Nil(t, u)
}

func TestFirstUpdateUserOlderThan_NilUsers(t *testing.T) {
	s := setupTestService(t)

	u, err := s.FirstUpdateUserOlderThan(nil, 10)

	assert.ErrorIs(t, err, ErrNilUsers)
	assert.Nil(t, u)
}

// ==================== GROUP BY PRIVILEGE COUNT ====================

func TestGroupByPrivilegeCount_PartitionsInput(t *testing.T) {
	s := setupTestService(t)
	users := []domain.User{
		{FirstName: "A", Privileges: []domain.Privilege{domain.PrivilegeRead, domain.PrivilegeRead}},
		{FirstName: "B", Privileges: []domain.Privilege{domain.PrivilegeRead, domain.PrivilegeWrite}},
		{FirstName: "C"},
		{FirstName: "D", Privileges: []domain.Privilege{domain.PrivilegeCreate}},
	}

	groups := s.GroupByPrivilegeCount(users)

	total := 0
	for count, bucket := range groups {
		for _, u := range bucket {
			assert.Equal(t, count, u.PrivilegeCount())
		}
		total += len(bucket)
	}
	assert.Equal(t, len(users), total)
	assert.Equal(t, []string{"A", "D"}, firstNames(groups[1]))
}

func TestGroupByPrivilegeCount_Empty(t *testing.T) {
	s := setupTestService(t)
	groups := s.GroupByPrivilegeCount(nil)
	assert.NotNil(t, groups)
	assert.Empty(t, groups)
}

// ==================== AVERAGE AGE ====================

func TestAverageAgeOK(t *testing.T) {
	s := setupTestService(t)

	avg, ok := s.AverageAgeOK([]domain.User{{Age: 10}, {Age: 21}})
	assert.True(t, ok)
	assert.Equal(t, 15.5, avg)

	_, ok = s.AverageAgeOK(nil)
	assert.False(t, ok)
	assert.Equal(t, EmptyAverage, s.AverageAge(nil))
}

// ==================== MOST FREQUENT LAST NAME ====================

func TestMostFrequentLastName(t *testing.T) {
	tests := []struct {
		name      string
		lastNames []string
		expected  string
		found     bool
	}{
		{name: "unique maximum", lastNames: []string{"Lee", "Ng", "Lee", "Kim", "Kim", "Lee"}, expected: "Lee", found: true},
		{name: "no repeats", lastNames: []string{"Lee", "Ng", "Kim"}},
		{name: "tie at maximum", lastNames: []string{"Lee", "Ng", "Lee", "Ng", "Kim"}},
		{name: "tie below maximum", lastNames: []string{"Kim", "Ng", "Kim", "Ng", "Lee", "Lee", "Lee"}, expected: "Lee", found: true},
		{name: "empty roster", lastNames: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupTestService(t)
			users := make([]domain.User, len(tt.lastNames))
			for i, ln := range tt.lastNames {
				users[i] = domain.User{LastName: ln}
			}

			name, ok, err := s.MostFrequentLastName(users)

			require.NoError(t, err)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.expected, name)
		})
	}
}

func TestMostFrequentLastName_NilUsers(t *testing.T) {
	s := setupTestService(t)

	_, ok, err := s.MostFrequentLastName(nil)

	assert.ErrorIs(t, err, ErrNilUsers)
	assert.False(t, ok)
}

// ==================== FILTER ====================

func TestFilterBy_NoPredicatesIsIdentity(t *testing.T) {
	s := setupTestService(t)
	users := scenario()

	assert.Equal(t, users, s.FilterBy(users, nil))
	assert.Equal(t, users, s.FilterBy(users, []Predicate{}))
}

func TestFilterBy_AllPredicatesMustHold(t *testing.T) {
	s := setupTestService(t)
	users := scenario()

	filtered := s.FilterBy(users, []Predicate{
		LastNameIs("Lee"),
		HasPrivilege(domain.PrivilegeRead),
		OlderThan(35),
	})

	assert.Equal(t, []string{"Bo"}, firstNames(filtered))
}

func TestFilterBy_SkipsNilPredicates(t *testing.T) {
	s := setupTestService(t)

	filtered := s.FilterBy(scenario(), []Predicate{nil, YoungerThan(35), nil})

	assert.Equal(t, []string{"Ann"}, firstNames(filtered))
}

func TestFilterBy_AgeBoundsAreInclusive(t *testing.T) {
	s := setupTestService(t)

	assert.Equal(t, []string{"Bo", "Cy"}, firstNames(s.FilterBy(scenario(), []Predicate{AtLeast(40)})))
	assert.Equal(t, []string{"Ann"}, firstNames(s.FilterBy(scenario(), []Predicate{AtMost(30)})))
	assert.Equal(t, []string{"Ann", "Bo", "Cy"}, firstNames(s.FilterBy(scenario(), []Predicate{AtMost(math.MaxInt)})))
	assert.Equal(t, []string{"Ann", "Bo", "Cy"}, firstNames(s.FilterBy(scenario(), []Predicate{AtLeast(math.MinInt)})))
}

func TestFilterBy_PreservesInputOrder(t *testing.T) {
	s := setupTestService(t)

	filtered := s.FilterBy(scenario(), []Predicate{FirstNameHasPrefix("")})

	assert.Equal(t, []string{"Ann", "Bo", "Cy"}, firstNames(filtered))
}

// ==================== CONVERT ====================

func TestConvertTo(t *testing.T) {
	s := setupTestService(t)

	out, err := s.ConvertTo(scenario(), ",", FirstName)
	require.NoError(t, err)
	assert.Equal(t, "Ann,Bo,Cy", out)

	out, err = s.ConvertTo(scenario()[:1], " | ", Summary)
	require.NoError(t, err)
	assert.Equal(t, "Ann Lee (30)", out)

	out, err = s.ConvertTo(nil, ",", FullName)
	require.NoError(t, err)
	assert.Equal(t, "", out)
}

func TestConvertTo_NilMapper(t *testing.T) {
	s := setupTestService(t)

	_, err := s.ConvertTo(scenario(), ",", nil)

	assert.ErrorIs(t, err, ErrNilMapper)
}

func TestMapperByName(t *testing.T) {
	m, ok := MapperByName("LAST")
	require.True(t, ok)
	assert.Equal(t, "Lee", m(ann))

	_, ok = MapperByName("nickname")
	assert.False(t, ok)
}

// ==================== GROUP BY PRIVILEGE ====================

func TestGroupByPrivilege(t *testing.T) {
	s := setupTestService(t)
	users := []domain.User{
		{FirstName: "All", Privileges: []domain.Privilege{domain.PrivilegeRead, domain.PrivilegeWrite, domain.PrivilegeDelete}},
		{FirstName: "Dup", Privileges: []domain.Privilege{domain.PrivilegeRead, domain.PrivilegeRead}},
		{FirstName: "None"},
	}

	groups := s.GroupByPrivilege(users)

	assert.Len(t, groups, 3)
	assert.Equal(t, []string{"All", "Dup"}, firstNames(groups[domain.PrivilegeRead]))
	assert.Equal(t, []string{"All"}, firstNames(groups[domain.PrivilegeWrite]))
	assert.Equal(t, []string{"All"}, firstNames(groups[domain.PrivilegeDelete]))
	assert.NotContains(t, groups, domain.PrivilegeUpdate)
}

// ==================== COUNT BY LAST NAME ====================

func TestCountByLastName(t *testing.T) {
	s := setupTestService(t)

	counts := s.CountByLastName(scenario())

	assert.Equal(t, map[string]int{"Lee": 2, "Ng": 1}, counts)
	assert.Empty(t, s.CountByLastName(nil))
	assert.NotNil(t, s.CountByLastName(nil))
}
