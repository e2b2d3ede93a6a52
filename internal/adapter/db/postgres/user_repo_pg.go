package postgres

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	domain "user-query-service/internal/domain/user"
	apperrors "user-query-service/pkg/errors"
)

// UserRepoPG stores the user roster using GORM.
// Roster order is insertion order (ascending ID).
type UserRepoPG struct {
	db  *gorm.DB    // GORM database connection
	log *zap.Logger // Structured logger for database operations
}

// NewUserRepoPG creates a new instance of UserRepoPG.
func NewUserRepoPG(db *gorm.DB, log *zap.Logger) *UserRepoPG {
	return &UserRepoPG{db: db, log: log}
}

// UserSchema represents the database schema for the users table.
type UserSchema struct {
	ID         int64             `gorm:"primaryKey;autoIncrement"`
	FirstName  string            `gorm:"not null;size:100"`
	LastName   string            `gorm:"not null;size:100;index"`
	Age        int               `gorm:"not null"`
	Privileges []PrivilegeSchema `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the UserSchema model.
func (UserSchema) TableName() string {
	return "users"
}

// PrivilegeSchema represents one privilege grant in the user_privileges table.
type PrivilegeSchema struct {
	ID     int64  `gorm:"primaryKey;autoIncrement"`
	UserID int64  `gorm:"not null;index"`
	Name   string `gorm:"not null;size:16"`
}

// TableName specifies the table name for the PrivilegeSchema model.
func (PrivilegeSchema) TableName() string {
	return "user_privileges"
}

// Migrate creates or updates the roster tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&UserSchema{}, &PrivilegeSchema{})
}

func toSchema(u *domain.User) UserSchema {
	model := UserSchema{
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Age:        u.Age,
		Privileges: make([]PrivilegeSchema, 0, len(u.Privileges)),
	}
	for _, p := range u.DistinctPrivileges() {
		model.Privileges = append(model.Privileges, PrivilegeSchema{Name: string(p)})
	}
	return model
}

func toDomain(model UserSchema) domain.User {
	u := domain.User{
		FirstName:  model.FirstName,
		LastName:   model.LastName,
		Age:        model.Age,
		Privileges: make([]domain.Privilege, len(model.Privileges)),
	}
	for i, p := range model.Privileges {
		u.Privileges[i] = domain.Privilege(p.Name)
	}
	return u
}

func orderedPrivileges(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}

// Create inserts a new user and its privileges.
func (r *UserRepoPG) Create(ctx context.Context, u *domain.User) (int64, error) {
	if u == nil {
		return 0, errors.New("user cannot be nil")
	}

	model := toSchema(u)

	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		r.log.Error("failed to create user in db", zap.Error(err), zap.String("last_name", u.LastName))
		return 0, apperrors.NewInternalError("failed to create user", err)
	}

	r.log.Info("user created in db", zap.Int64("id", model.ID))
	return model.ID, nil
}

// Delete removes a user and its privileges by ID.
func (r *UserRepoPG) Delete(ctx context.Context, id int64) (int64, error) {
	if id <= 0 {
		return 0, apperrors.NewValidationError("id", "invalid user id")
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&PrivilegeSchema{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&UserSchema{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		r.log.Warn("user not found for delete", zap.Int64("id", id))
		return 0, apperrors.NewNotFoundError("user", fmt.Sprintf("user not found: id=%d", id))
	}
	if err != nil {
		r.log.Error("failed to delete user in db", zap.Error(err), zap.Int64("id", id))
		return 0, apperrors.NewInternalError("failed to delete user", err)
	}

	r.log.Info("user deleted in db", zap.Int64("id", id))
	return id, nil
}

// GetByID retrieves a stored user by ID.
func (r *UserRepoPG) GetByID(ctx context.Context, id int64) (*domain.Record, error) {
	var model UserSchema
	err := r.db.WithContext(ctx).
		Preload("Privileges", orderedPrivileges).
		First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Warn("user not found", zap.Int64("id", id))
			return nil, apperrors.NewNotFoundError("user", fmt.Sprintf("user not found: id=%d", id))
		}
		r.log.Error("failed to get user from db", zap.Error(err), zap.Int64("id", id))
		return nil, apperrors.NewInternalError("failed to get user", err)
	}

	return &domain.Record{ID: model.ID, User: toDomain(model)}, nil
}

// List retrieves one page of the roster and the total number of stored users.
func (r *UserRepoPG) List(ctx context.Context, page, limit int64) ([]domain.Record, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&UserSchema{}).Count(&total).Error; err != nil {
		r.log.Error("failed to count users in db", zap.Error(err))
		return nil, 0, apperrors.NewInternalError("failed to list users", err)
	}

	var models []UserSchema
	err := r.db.WithContext(ctx).
		Preload("Privileges", orderedPrivileges).
		Order("id ASC").
		Offset(int(domain.Offset(page, limit))).
		Limit(int(limit)).
		Find(&models).Error
	if err != nil {
		r.log.Error("failed to list users from db", zap.Error(err), zap.Int64("page", page), zap.Int64("limit", limit))
		return nil, 0, apperrors.NewInternalError("failed to list users", err)
	}

	records := make([]domain.Record, len(models))
	for i, model := range models {
		records[i] = domain.Record{ID: model.ID, User: toDomain(model)}
	}

	return records, total, nil
}

// All loads the whole roster in insertion order.
// The result is never nil, so an empty table yields an empty roster.
func (r *UserRepoPG) All(ctx context.Context) ([]domain.User, error) {
	var models []UserSchema
	err := r.db.WithContext(ctx).
		Preload("Privileges", orderedPrivileges).
		Order("id ASC").
		Find(&models).Error
	if err != nil {
		r.log.Error("failed to load roster from db", zap.Error(err))
		return nil, apperrors.NewInternalError("failed to load roster", err)
	}

	users := make([]domain.User, len(models))
	for i, model := range models {
		users[i] = toDomain(model)
	}

	r.log.Debug("roster loaded from db", zap.Int("users", len(users)))
	return users, nil
}
