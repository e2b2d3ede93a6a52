package user

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"user-query-service/internal/adapter/metrics"
	domain "user-query-service/internal/domain/user"
	"user-query-service/internal/usecase/query"
	apperrors "user-query-service/pkg/errors"
	"user-query-service/pkg/logger"
	"user-query-service/pkg/security"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// Repository defines the interface for roster data access operations.
type Repository interface {
	Create(ctx context.Context, u *domain.User) (int64, error)                   // Store a new user
	GetByID(ctx context.Context, id int64) (*domain.Record, error)               // Retrieve a stored user by ID
	Delete(ctx context.Context, id int64) (int64, error)                         // Delete a user by ID
	List(ctx context.Context, page, limit int64) ([]domain.Record, int64, error) // One page of the roster plus total count
	All(ctx context.Context) ([]domain.User, error)                              // Whole roster in insertion order
}

// Service implements Usecase on top of a Repository and the query core.
type Service struct {
	repo     Repository          // Repository for roster access
	queries  query.Querier       // Pure query operations over a roster
	log      *zap.Logger         // Logger for structured logging
	validate *validator.Validate // Validator for request validation
}

// New creates a new instance of Service.
func New(r Repository, q query.Querier, log *zap.Logger) *Service {
	return &Service{repo: r, queries: q, log: log, validate: validator.New()}
}

var _ Usecase = (*Service)(nil)

// formatValidationError converts validator.ValidationErrors into a human-readable error.
func formatValidationError(err error) error {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		var messages []string
		for _, e := range validationErrors {
			switch e.Tag() {
			case "required":
				messages = append(messages, fmt.Sprintf("%s is required", e.Field()))
			case "max":
				messages = append(messages, fmt.Sprintf("%s must be at most %s", e.Field(), e.Param()))
			case "gte":
				messages = append(messages, fmt.Sprintf("%s must be at least %s", e.Field(), e.Param()))
			case "lte":
				messages = append(messages, fmt.Sprintf("%s must be at most %s", e.Field(), e.Param()))
			case "oneof":
				messages = append(messages, fmt.Sprintf("%s must be one of [%s]", e.Field(), e.Param()))
			default:
				messages = append(messages, fmt.Sprintf("%s is invalid", e.Field()))
			}
		}
		return apperrors.NewValidationError("", "validation failed: "+strings.Join(messages, ", "))
	}
	return err
}

func parsePrivileges(names []string) ([]domain.Privilege, error) {
	privileges := make([]domain.Privilege, 0, len(names))
	for _, name := range names {
		p, err := domain.ParsePrivilege(name)
		if err != nil {
			return nil, apperrors.NewValidationError("privileges", err.Error())
		}
		privileges = append(privileges, p)
	}
	return privileges, nil
}

// ==================== ROSTER MANAGEMENT ====================

// CreateUser validates the request and adds the user to the roster.
func (uc *Service) CreateUser(ctx context.Context, in CreateUserRequest) (*CreateUserResponse, error) {
	uc.log.Info("creating user", zap.String("first_name", in.FirstName), zap.String("last_name", in.LastName), zap.Int("age", in.Age))

	if err := uc.validate.Struct(in); err != nil {
		uc.log.Warn("validate failed", zap.Error(err))
		return nil, formatValidationError(err)
	}

	firstName, err := security.ValidateName(in.FirstName)
	if err != nil {
		uc.log.Warn("invalid first name", zap.Error(err))
		return nil, apperrors.NewValidationError("first_name", err.Error())
	}
	lastName, err := security.ValidateName(in.LastName)
	if err != nil {
		uc.log.Warn("invalid last name", zap.Error(err))
		return nil, apperrors.NewValidationError("last_name", err.Error())
	}

	privileges, err := parsePrivileges(in.Privileges)
	if err != nil {
		uc.log.Warn("invalid privileges", zap.Strings("privileges", in.Privileges), zap.Error(err))
		return nil, err
	}

	id, err := uc.repo.Create(ctx, &domain.User{
		FirstName:  firstName,
		LastName:   lastName,
		Age:        in.Age,
		Privileges: privileges,
	})
	if err != nil {
		uc.log.Error("failed to create user", zap.Error(err))
		return nil, err
	}

	metrics.RosterChangesTotal.WithLabelValues("created").Inc()
	return &CreateUserResponse{ID: id}, nil
}

// DeleteUser removes a user from the roster after validating the ID.
func (uc *Service) DeleteUser(ctx context.Context, in DeleteUserRequest) (*DeleteUserResponse, error) {
	uc.log.Info("deleting user", zap.Int64("id", in.ID))

	if in.ID <= 0 {
		uc.log.Warn("delete user validation failed", zap.Int64("id", in.ID), zap.String("reason", "invalid id"))
		return nil, apperrors.NewValidationError("id", "invalid user id")
	}

	id, err := uc.repo.Delete(ctx, in.ID)
	if err != nil {
		uc.log.Error("failed to delete user", zap.Int64("id", in.ID), zap.Error(err))
		return nil, err
	}

	metrics.RosterChangesTotal.WithLabelValues("deleted").Inc()
	return &DeleteUserResponse{ID: id}, nil
}

// GetUser retrieves a stored user by ID.
func (uc *Service) GetUser(ctx context.Context, in GetUserRequest) (*GetUserResponse, error) {
	if in.ID <= 0 {
		uc.log.Warn("get user validation failed", zap.Int64("id", in.ID), zap.String("reason", "invalid id"))
		return nil, apperrors.NewValidationError("id", "invalid user id")
	}

	rec, err := uc.repo.GetByID(ctx, in.ID)
	if err != nil {
		uc.log.Error("failed to get user", zap.Int64("id", in.ID), zap.Error(err))
		return nil, err
	}

	return &GetUserResponse{ID: rec.ID, User: toDTO(rec.User)}, nil
}

// ListUsers retrieves one page of the roster.
func (uc *Service) ListUsers(ctx context.Context, in ListUsersRequest) (*ListUsersResponse, error) {
	if in.Page <= 0 {
		in.Page = defaultPage
	}
	if in.Limit <= 0 {
		in.Limit = defaultLimit
	}
	if in.Limit > maxLimit {
		in.Limit = maxLimit
	}

	uc.log.Info("listing users", zap.Int64("page", in.Page), zap.Int64("limit", in.Limit))

	records, total, err := uc.repo.List(ctx, in.Page, in.Limit)
	if err != nil {
		uc.log.Error("failed to list users", zap.Int64("page", in.Page), zap.Int64("limit", in.Limit), zap.Error(err))
		return nil, err
	}

	users := make([]StoredUser, len(records))
	for i, rec := range records {
		users[i] = StoredUser{ID: rec.ID, User: toDTO(rec.User)}
	}

	p := domain.NewPagination(total, in.Page, in.Limit)
	return &ListUsersResponse{
		Users: users,
		Pagination: &Pagination{
			Total:      p.Total,
			Page:       p.Page,
			Limit:      p.Limit,
			TotalPages: p.TotalPages,
		},
	}, nil
}

// ==================== ROSTER QUERIES ====================

// roster loads the current roster. The result is never nil.
func (uc *Service) roster(ctx context.Context) ([]domain.User, error) {
	users, err := uc.repo.All(ctx)
	if err != nil {
		uc.log.Error("failed to load roster", zap.Error(err))
		return nil, err
	}
	if users == nil {
		users = []domain.User{}
	}
	metrics.RosterSize.Set(float64(len(users)))
	return users, nil
}

// runQuery loads the roster, applies fn and records the outcome.
func runQuery[T any](ctx context.Context, uc *Service, operation string, fn func([]domain.User) (T, error)) (T, error) {
	start := time.Now()
	var zero T

	users, err := uc.roster(ctx)
	if err != nil {
		metrics.ObserveQuery(operation, start, err)
		return zero, err
	}

	out, err := fn(users)
	metrics.ObserveQuery(operation, start, err)
	log := logger.WithContext(ctx, uc.log)
	if err != nil {
		log.Warn("query failed", zap.String("operation", operation), zap.Error(err))
		return zero, err
	}

	log.Debug("query served", zap.String("operation", operation), zap.Int("users", len(users)))
	return out, nil
}

// FirstNamesReverseSorted returns all first names in descending order.
func (uc *Service) FirstNamesReverseSorted(ctx context.Context) ([]string, error) {
	return runQuery(ctx, uc, "first_names_reverse_sorted", func(users []domain.User) ([]string, error) {
		return uc.queries.FirstNamesReverseSorted(users), nil
	})
}

// SortByAgeDescThenNameAsc returns the roster ordered by age desc, then first name asc.
func (uc *Service) SortByAgeDescThenNameAsc(ctx context.Context) ([]User, error) {
	return runQuery(ctx, uc, "sort_by_age_desc_name_asc", func(users []domain.User) ([]User, error) {
		return toDTOs(uc.queries.SortByAgeDescThenNameAsc(users)), nil
	})
}

// DistinctPrivileges returns every privilege held by someone in the roster.
func (uc *Service) DistinctPrivileges(ctx context.Context) ([]string, error) {
	return runQuery(ctx, uc, "distinct_privileges", func(users []domain.User) ([]string, error) {
		return privilegeNames(uc.queries.DistinctPrivileges(users)), nil
	})
}

// FirstUpdateUserOlderThan returns the first UPDATE holder older than age, or nil.
func (uc *Service) FirstUpdateUserOlderThan(ctx context.Context, age int) (*User, error) {
	return runQuery(ctx, uc, "first_update_user_older_than", func(users []domain.User) (*User, error) {
		u, err := uc.queries.FirstUpdateUserOlderThan(users, age)
		if err != nil || u == nil {
			return nil, err
		}
		dto := toDTO(*u)
		return &dto, nil
	})
}

// GroupByPrivilegeCount partitions the roster by privilege set size.
func (uc *Service) GroupByPrivilegeCount(ctx context.Context) (map[int][]User, error) {
	return runQuery(ctx, uc, "group_by_privilege_count", func(users []domain.User) (map[int][]User, error) {
		groups := uc.queries.GroupByPrivilegeCount(users)
		out := make(map[int][]User, len(groups))
		for n, bucket := range groups {
			out[n] = toDTOs(bucket)
		}
		return out, nil
	})
}

// AverageAge returns the mean roster age; Found is false for an empty roster.
func (uc *Service) AverageAge(ctx context.Context) (*AverageAgeResponse, error) {
	return runQuery(ctx, uc, "average_age", func(users []domain.User) (*AverageAgeResponse, error) {
		avg, ok := uc.queries.AverageAgeOK(users)
		return &AverageAgeResponse{
			Average: avg,
			Count:   len(users),
			Found:   ok,
		}, nil
	})
}

// MostFrequentLastName returns the uniquely most frequent repeated last name.
func (uc *Service) MostFrequentLastName(ctx context.Context) (*MostFrequentLastNameResponse, error) {
	return runQuery(ctx, uc, "most_frequent_last_name", func(users []domain.User) (*MostFrequentLastNameResponse, error) {
		name, ok, err := uc.queries.MostFrequentLastName(users)
		if err != nil {
			return nil, err
		}
		return &MostFrequentLastNameResponse{LastName: name, Found: ok}, nil
	})
}

// FilterUsers returns the users matching every criterion of the request.
func (uc *Service) FilterUsers(ctx context.Context, in FilterRequest) ([]User, error) {
	predicates, err := uc.buildPredicates(in)
	if err != nil {
		return nil, err
	}

	return runQuery(ctx, uc, "filter_by", func(users []domain.User) ([]User, error) {
		return toDTOs(uc.queries.FilterBy(users, predicates)), nil
	})
}

func (uc *Service) buildPredicates(in FilterRequest) ([]query.Predicate, error) {
	if err := uc.validate.Struct(in); err != nil {
		uc.log.Warn("validate failed", zap.Error(err))
		return nil, formatValidationError(err)
	}
	if in.MinAge != nil && in.MaxAge != nil && *in.MinAge > *in.MaxAge {
		uc.log.Warn("filter validation failed", zap.Int("min_age", *in.MinAge), zap.Int("max_age", *in.MaxAge))
		return nil, apperrors.NewValidationError("min_age", "must not exceed max_age")
	}

	privileges, err := parsePrivileges(in.Privileges)
	if err != nil {
		uc.log.Warn("invalid filter privileges", zap.Strings("privileges", in.Privileges), zap.Error(err))
		return nil, err
	}

	var predicates []query.Predicate
	if in.MinAge != nil {
		predicates = append(predicates, query.AtLeast(*in.MinAge))
	}
	if in.MaxAge != nil {
		predicates = append(predicates, query.AtMost(*in.MaxAge))
	}
	for _, p := range privileges {
		predicates = append(predicates, query.HasPrivilege(p))
	}
	if in.LastName != "" {
		predicates = append(predicates, query.LastNameIs(in.LastName))
	}
	if in.FirstNamePrefix != "" {
		predicates = append(predicates, query.FirstNameHasPrefix(in.FirstNamePrefix))
	}
	return predicates, nil
}

// ConvertUsers renders every user with the requested format and joins them.
func (uc *Service) ConvertUsers(ctx context.Context, in ConvertRequest) (string, error) {
	if err := uc.validate.Struct(in); err != nil {
		uc.log.Warn("validate failed", zap.Error(err))
		return "", formatValidationError(err)
	}
	if err := security.ValidateDelimiter(in.Delimiter); err != nil {
		uc.log.Warn("invalid delimiter", zap.Error(err))
		return "", apperrors.NewValidationError("delimiter", err.Error())
	}
	mapFn, ok := query.MapperByName(in.Format)
	if !ok {
		return "", apperrors.NewValidationError("format", "unknown format "+in.Format)
	}

	return runQuery(ctx, uc, "convert_to", func(users []domain.User) (string, error) {
		return uc.queries.ConvertTo(users, in.Delimiter, mapFn)
	})
}

// GroupByPrivilege indexes the roster by privilege name.
func (uc *Service) GroupByPrivilege(ctx context.Context) (map[string][]User, error) {
	return runQuery(ctx, uc, "group_by_privilege", func(users []domain.User) (map[string][]User, error) {
		groups := uc.queries.GroupByPrivilege(users)
		out := make(map[string][]User, len(groups))
		for p, bucket := range groups {
			out[string(p)] = toDTOs(bucket)
		}
		return out, nil
	})
}

// CountByLastName counts roster users per last name.
func (uc *Service) CountByLastName(ctx context.Context) (map[string]int, error) {
	return runQuery(ctx, uc, "count_by_last_name", func(users []domain.User) (map[string]int, error) {
		return uc.queries.CountByLastName(users), nil
	})
}

func toDTO(u domain.User) User {
	return User{
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Age:        u.Age,
		Privileges: privilegeNames(u.Privileges),
	}
}

func toDTOs(users []domain.User) []User {
	out := make([]User, len(users))
	for i, u := range users {
		out[i] = toDTO(u)
	}
	return out
}

func privilegeNames(privileges []domain.Privilege) []string {
	names := make([]string, len(privileges))
	for i, p := range privileges {
		names[i] = string(p)
	}
	return names
}
