package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"user-query-service/internal/usecase/user"
)

// FilterRequest is the HTTP body of POST /v1/queries/filter.
// Age bounds are inclusive.
type FilterRequest struct {
	MinAge          *int     `json:"min_age"`
	MaxAge          *int     `json:"max_age"`
	Privileges      []string `json:"privileges"`
	LastName        string   `json:"last_name"`
	FirstNamePrefix string   `json:"first_name_prefix"`
}

// ConvertRequest is the HTTP body of POST /v1/queries/convert.
type ConvertRequest struct {
	Delimiter string `json:"delimiter"`
	Format    string `json:"format" binding:"required"`
}

// UsersResponse wraps a list of users
type UsersResponse struct {
	Users []UserResponse `json:"users"`
}

// AverageAgeResponse is the HTTP response of GET /v1/queries/average-age
type AverageAgeResponse struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// FirstNamesReverseSorted handles GET /v1/queries/first-names
func (h *UserHandler) FirstNamesReverseSorted(c *gin.Context) {
	names, err := h.uc.FirstNamesReverseSorted(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"first_names": names})
}

// SortByAgeDescThenNameAsc handles GET /v1/queries/sorted
func (h *UserHandler) SortByAgeDescThenNameAsc(c *gin.Context) {
	users, err := h.uc.SortByAgeDescThenNameAsc(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, UsersResponse{Users: toUserResponses(users)})
}

// DistinctPrivileges handles GET /v1/queries/privileges
func (h *UserHandler) DistinctPrivileges(c *gin.Context) {
	privileges, err := h.uc.DistinctPrivileges(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"privileges": privileges})
}

// FirstUpdateUserOlderThan handles GET /v1/queries/update-user?older_than=N
func (h *UserHandler) FirstUpdateUserOlderThan(c *gin.Context) {
	raw := c.Query("older_than")
	age, err := strconv.Atoi(raw)
	if err != nil {
		h.log.Warn("Invalid older_than", zap.String("older_than", raw), zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_input",
			Message: "older_than must be a valid integer",
		})
		return
	}

	u, err := h.uc.FirstUpdateUserOlderThan(c.Request.Context(), age)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if u == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "no user with UPDATE privilege older than " + raw,
		})
		return
	}
	c.JSON(http.StatusOK, toUserResponse(*u))
}

// GroupByPrivilegeCount handles GET /v1/queries/groups/privilege-count
func (h *UserHandler) GroupByPrivilegeCount(c *gin.Context) {
	groups, err := h.uc.GroupByPrivilegeCount(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	out := make(map[int][]UserResponse, len(groups))
	for n, users := range groups {
		out[n] = toUserResponses(users)
	}
	c.JSON(http.StatusOK, gin.H{"groups": out})
}

// GroupByPrivilege handles GET /v1/queries/groups/privilege
func (h *UserHandler) GroupByPrivilege(c *gin.Context) {
	groups, err := h.uc.GroupByPrivilege(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	out := make(map[string][]UserResponse, len(groups))
	for p, users := range groups {
		out[p] = toUserResponses(users)
	}
	c.JSON(http.StatusOK, gin.H{"groups": out})
}

// AverageAge handles GET /v1/queries/average-age
func (h *UserHandler) AverageAge(c *gin.Context) {
	resp, err := h.uc.AverageAge(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	if !resp.Found {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "roster is empty",
		})
		return
	}
	c.JSON(http.StatusOK, AverageAgeResponse{Average: resp.Average, Count: resp.Count})
}

// MostFrequentLastName handles GET /v1/queries/last-names/most-frequent
func (h *UserHandler) MostFrequentLastName(c *gin.Context) {
	resp, err := h.uc.MostFrequentLastName(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	if !resp.Found {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "no unique most frequent last name",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"last_name": resp.LastName})
}

// CountByLastName handles GET /v1/queries/last-names/counts
func (h *UserHandler) CountByLastName(c *gin.Context) {
	counts, err := h.uc.CountByLastName(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"counts": counts})
}

// FilterUsers handles POST /v1/queries/filter
func (h *UserHandler) FilterUsers(c *gin.Context) {
	var req FilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid filter request", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	users, err := h.uc.FilterUsers(c.Request.Context(), user.FilterRequest{
		MinAge:          req.MinAge,
		MaxAge:          req.MaxAge,
		Privileges:      req.Privileges,
		LastName:        req.LastName,
		FirstNamePrefix: req.FirstNamePrefix,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, UsersResponse{Users: toUserResponses(users)})
}

// ConvertUsers handles POST /v1/queries/convert
func (h *UserHandler) ConvertUsers(c *gin.Context) {
	var req ConvertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid convert request", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	out, err := h.uc.ConvertUsers(c.Request.Context(), user.ConvertRequest{
		Delimiter: req.Delimiter,
		Format:    req.Format,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": out})
}
