package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"user-query-service/internal/usecase/user"
	apperrors "user-query-service/pkg/errors"
)

// UserHandler handles HTTP requests for roster management and roster queries
type UserHandler struct {
	uc  user.Usecase
	log *zap.Logger
}

// NewUserHandler creates a new UserHandler instance
func NewUserHandler(uc user.Usecase, log *zap.Logger) *UserHandler {
	return &UserHandler{
		uc:  uc,
		log: log,
	}
}

// CreateUserRequest represents the HTTP request body for creating a user
type CreateUserRequest struct {
	FirstName  string   `json:"first_name" binding:"required,max=100"`
	LastName   string   `json:"last_name" binding:"required,max=100"`
	Age        int      `json:"age" binding:"gte=0,lte=150"`
	Privileges []string `json:"privileges"`
}

// UserResponse represents the HTTP response for user data
type UserResponse struct {
	FirstName  string   `json:"first_name"`
	LastName   string   `json:"last_name"`
	Age        int      `json:"age"`
	Privileges []string `json:"privileges"`
}

// StoredUserResponse is a user together with its ID
type StoredUserResponse struct {
	ID int64 `json:"id"`
	UserResponse
}

// ListUsersResponse represents the HTTP response for listing users
type ListUsersResponse struct {
	Users      []StoredUserResponse `json:"users"`
	Pagination *Pagination          `json:"pagination,omitempty"`
}

// Pagination represents pagination information
type Pagination struct {
	Total      int64 `json:"total"`
	Page       int64 `json:"page"`
	Limit      int64 `json:"limit"`
	TotalPages int64 `json:"total_pages"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// CreateUser handles POST /v1/users
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid create user request", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	h.log.Info("Gin CreateUser request", zap.String("first_name", req.FirstName), zap.String("last_name", req.LastName))

	resp, err := h.uc.CreateUser(c.Request.Context(), user.CreateUserRequest{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Age:        req.Age,
		Privileges: req.Privileges,
	})
	if err != nil {
		h.log.Error("Gin CreateUser failed", zap.Error(err))
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id": resp.ID,
	})
}

// GetUser handles GET /v1/users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	h.log.Info("Gin GetUser request", zap.Int64("id", id))

	resp, err := h.uc.GetUser(c.Request.Context(), user.GetUserRequest{ID: id})
	if err != nil {
		h.log.Error("Gin GetUser failed", zap.Error(err))
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, StoredUserResponse{
		ID:           resp.ID,
		UserResponse: toUserResponse(resp.User),
	})
}

// DeleteUser handles DELETE /v1/users/:id
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	h.log.Info("Gin DeleteUser request", zap.Int64("id", id))

	resp, err := h.uc.DeleteUser(c.Request.Context(), user.DeleteUserRequest{ID: id})
	if err != nil {
		h.log.Error("Gin DeleteUser failed", zap.Error(err))
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id": resp.ID,
	})
}

// ListUsers handles GET /v1/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	page, err := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	if err != nil || page < 1 {
		page = 1
	}

	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "10"), 10, 64)
	if err != nil || limit < 1 {
		limit = 10
	}

	h.log.Info("Gin ListUsers request", zap.Int64("page", page), zap.Int64("limit", limit))

	resp, err := h.uc.ListUsers(c.Request.Context(), user.ListUsersRequest{
		Page:  page,
		Limit: limit,
	})
	if err != nil {
		h.log.Error("Gin ListUsers failed", zap.Error(err))
		h.handleError(c, err)
		return
	}

	users := make([]StoredUserResponse, len(resp.Users))
	for i, u := range resp.Users {
		users[i] = StoredUserResponse{ID: u.ID, UserResponse: toUserResponse(u.User)}
	}

	var pagination *Pagination
	if resp.Pagination != nil {
		pagination = &Pagination{
			Total:      resp.Pagination.Total,
			Page:       resp.Pagination.Page,
			Limit:      resp.Pagination.Limit,
			TotalPages: resp.Pagination.TotalPages,
		}
	}

	c.JSON(http.StatusOK, ListUsersResponse{
		Users:      users,
		Pagination: pagination,
	})
}

func (h *UserHandler) parseID(c *gin.Context) (int64, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.log.Warn("Invalid user ID", zap.String("id", idStr), zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_id",
			Message: "User ID must be a valid number",
		})
		return 0, false
	}
	return id, true
}

// handleError converts usecase errors to appropriate HTTP responses
func (h *UserHandler) handleError(c *gin.Context, err error) {
	code, kind := apperrors.HTTPStatus(err)
	message := err.Error()
	if code == http.StatusInternalServerError {
		message = "An internal error occurred"
	}
	c.JSON(code, ErrorResponse{
		Error:   kind,
		Message: message,
	})
}

func toUserResponse(u user.User) UserResponse {
	privileges := u.Privileges
	if privileges == nil {
		privileges = []string{}
	}
	return UserResponse{
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Age:        u.Age,
		Privileges: privileges,
	}
}

func toUserResponses(users []user.User) []UserResponse {
	out := make([]UserResponse, len(users))
	for i, u := range users {
		out[i] = toUserResponse(u)
	}
	return out
}
