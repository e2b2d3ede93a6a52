package user

import "context"

// Usecase defines the interface for roster management and roster queries.
type Usecase interface {
	CreateUser(ctx context.Context, in CreateUserRequest) (*CreateUserResponse, error)
	DeleteUser(ctx context.Context, in DeleteUserRequest) (*DeleteUserResponse, error)
	GetUser(ctx context.Context, in GetUserRequest) (*GetUserResponse, error)
	ListUsers(ctx context.Context, in ListUsersRequest) (*ListUsersResponse, error)

	FirstNamesReverseSorted(ctx context.Context) ([]string, error)
	SortByAgeDescThenNameAsc(ctx context.Context) ([]User, error)
	DistinctPrivileges(ctx context.Context) ([]string, error)
	FirstUpdateUserOlderThan(ctx context.Context, age int) (*User, error)
	GroupByPrivilegeCount(ctx context.Context) (map[int][]User, error)
	AverageAge(ctx context.Context) (*AverageAgeResponse, error)
	MostFrequentLastName(ctx context.Context) (*MostFrequentLastNameResponse, error)
	FilterUsers(ctx context.Context, in FilterRequest) ([]User, error)
	ConvertUsers(ctx context.Context, in ConvertRequest) (string, error)
	GroupByPrivilege(ctx context.Context) (map[string][]User, error)
	CountByLastName(ctx context.Context) (map[string]int, error)
}
