// Package models contains data structures for the application's domain models.
package models

import "time"

// User represents a registered account.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Password  string    `gorm:"not null" json:"-"`
	Nickname  string    `gorm:"size:100;not null" json:"nickname"`
	Avatar    string    `gorm:"not null;default:''" json:"avatar"`
	Email     string    `gorm:"not null;default:''" json:"email"`
	Phone     string    `gorm:"not null;default:''" json:"phone"`
	Gender    string    `gorm:"not null;default:''" json:"gender"`
	School    string    `gorm:"not null;default:''" json:"school"`
	Major     string    `gorm:"not null;default:''" json:"major"`
	Grade     string    `gorm:"not null;default:''" json:"grade"`
	Bio       string    `gorm:"type:text;not null;default:''" json:"bio"`
	CreatedAt time.Time `json:"create_time"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PublicUser is the projection of a user that is safe to return to clients.
type PublicUser struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Nickname  string    `json:"nickname"`
	Avatar    string    `json:"avatar"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Gender    string    `json:"gender"`
	School    string    `json:"school"`
	Major     string    `json:"major"`
	Grade     string    `json:"grade"`
	Bio       string    `json:"bio"`
	CreatedAt time.Time `json:"create_time"`
}

// ProfileView is the caller's own profile with per-session extras.
type ProfileView struct {
	*PublicUser
	UnreadMessages int64           `json:"unread_messages"`
	Online         bool            `json:"online"`
	Features       map[string]bool `json:"features"`
}

// Public strips credentials from the user.
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:        u.ID,
		Username:  u.Username,
		Nickname:  u.Nickname,
		Avatar:    u.Avatar,
		Email:     u.Email,
		Phone:     u.Phone,
		Gender:    u.Gender,
		School:    u.School,
		Major:     u.Major,
		Grade:     u.Grade,
		Bio:       u.Bio,
		CreatedAt: u.CreatedAt,
	}
}

// ProfileUpdate carries the mutable profile fields. A nil field is left untouched.
type ProfileUpdate struct {
	Username *string `json:"username"`
	Nickname *string `json:"nickname"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	Gender   *string `json:"gender"`
	School   *string `json:"school"`
	Major    *string `json:"major"`
	Grade    *string `json:"grade"`
	Bio      *string `json:"bio"`
	Avatar   *string `json:"avatar"`
}

// Columns returns the column/value pairs for the fields that are set, in a fixed order.
func (p *ProfileUpdate) Columns() ([]string, []any) {
	fields := []struct {
		column string
		value  *string
	}{
		{"username", p.Username},
		{"nickname", p.Nickname},
		{"email", p.Email},
		{"phone", p.Phone},
		{"gender", p.Gender},
		{"school", p.School},
		{"major", p.Major},
		{"grade", p.Grade},
		{"bio", p.Bio},
		{"avatar", p.Avatar},
	}

	var cols []string
	var vals []any
	for _, f := range fields {
		if f.value == nil {
			continue
		}
		cols = append(cols, f.column)
		vals = append(vals, *f.value)
	}
	return cols, vals
}

// Empty reports whether no field is set.
func (p *ProfileUpdate) Empty() bool {
	cols, _ := p.Columns()
	return len(cols) == 0
}
