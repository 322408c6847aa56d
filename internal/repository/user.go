package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"campusfeed/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	UsernameTaken(ctx context.Context, username string, exceptID uint) (bool, error)
	UpdateProfile(ctx context.Context, id uint, update *models.ProfileUpdate) error
}

type userRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db, now: utcNow}
}

const userColumns = `id, username, password, nickname, avatar, email, phone, gender, school, major, grade, bio, created_at, updated_at`

// profileColumns is the closed set of columns UpdateProfile may write.
var profileColumns = map[string]struct{}{
	"username": {}, "nickname": {}, "email": {}, "phone": {}, "gender": {},
	"school": {}, "major": {}, "grade": {}, "bio": {}, "avatar": {},
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	now := r.now()
	row := r.db.WithContext(ctx).Raw(
		`INSERT INTO users (username, password, nickname, avatar, email, phone, gender, school, major, grade, bio, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`,
		user.Username, user.Password, user.Nickname, user.Avatar,
		user.Email, user.Phone, user.Gender, user.School, user.Major, user.Grade, user.Bio,
		now, now,
	).Row()

	if err := row.Scan(&user.ID); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

func (r *userRepository) getOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&users).Error; err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	if len(users) == 0 {
		return nil, ErrNotFound
	}
	return &users[0], nil
}

func (r *userRepository) UsernameTaken(ctx context.Context, username string, exceptID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM users WHERE username = ? AND id <> ?`, username, exceptID,
	).Scan(&count).Error
	if err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return count > 0, nil
}

// UpdateProfile writes only the fields set on update. Column names come from the
// fixed profile allow-list, values are always bound parameters.
func (r *userRepository) UpdateProfile(ctx context.Context, id uint, update *models.ProfileUpdate) error {
	cols, vals := update.Columns()
	if len(cols) == 0 {
		return nil
	}

	assignments := make([]string, 0, len(cols)+1)
	args := make([]any, 0, len(vals)+2)
	for i, col := range cols {
		if _, ok := profileColumns[col]; !ok {
			return fmt.Errorf("column %q is not updatable", col)
		}
		assignments = append(assignments, col+" = ?")
		args = append(args, vals[i])
	}
	assignments = append(assignments, "updated_at = ?")
	args = append(args, r.now(), id)

	res := r.db.WithContext(ctx).Exec(
		`UPDATE users SET `+strings.Join(assignments, ", ")+` WHERE id = ?`, args...,
	)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return ErrDuplicate
		}
		return fmt.Errorf("update user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
