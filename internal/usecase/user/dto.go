package user

// CreateUserRequest represents the request payload for adding a user to the roster.
type CreateUserRequest struct {
	FirstName  string   `validate:"required,max=100"`
	LastName   string   `validate:"required,max=100"`
	Age        int      `validate:"gte=0,lte=150"`
	Privileges []string `validate:"max=5,dive,required"`
}

// CreateUserResponse represents the response payload after creating a user.
type CreateUserResponse struct {
	ID int64
}

// DeleteUserRequest represents the request payload for deleting a user.
type DeleteUserRequest struct {
	ID int64
}

// DeleteUserResponse represents the response payload after deleting a user.
type DeleteUserResponse struct {
	ID int64
}

// GetUserRequest represents the request payload for retrieving a user.
type GetUserRequest struct {
	ID int64
}

// GetUserResponse represents the response payload for user details.
type GetUserResponse struct {
	ID   int64
	User User
}

// ListUsersRequest represents the request payload for listing the roster page by page.
type ListUsersRequest struct {
	Page  int64
	Limit int64
}

// ListUsersResponse represents the response payload for roster listing.
type ListUsersResponse struct {
	Users      []StoredUser
	Pagination *Pagination
}

// Pagination represents pagination information for list responses.
type Pagination struct {
	Total      int64
	Page       int64
	Limit      int64
	TotalPages int64
}

// User represents a user DTO (Data Transfer Object) for API responses.
type User struct {
	FirstName  string
	LastName   string
	Age        int
	Privileges []string
}

// StoredUser is a User together with its storage ID.
type StoredUser struct {
	ID   int64
	User User
}

// AverageAgeResponse carries the mean age of the roster.
// Found is false for an empty roster, and Average is then zero.
type AverageAgeResponse struct {
	Average float64
	Count   int
	Found   bool
}

// MostFrequentLastNameResponse carries the most frequent last name, if any.
type MostFrequentLastNameResponse struct {
	LastName string
	Found    bool
}

// FilterRequest describes the predicates applied to the roster.
// Every set field must hold for a user to be kept; an empty request keeps everyone.
type FilterRequest struct {
	MinAge          *int     `validate:"omitempty,gte=0"`
	MaxAge          *int     `validate:"omitempty,gte=0"`
	Privileges      []string `validate:"max=5,dive,required"`
	LastName        string   `validate:"max=100"`
	FirstNamePrefix string   `validate:"max=100"`
}

// ConvertRequest describes how the roster is rendered into a single string.
type ConvertRequest struct {
	Delimiter string
	Format    string `validate:"required,oneof=first last full summary"`
}
