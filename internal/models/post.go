package models

import "time"

// Post visibility values.
const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

// Post represents a published post.
type Post struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	ImageURL   string    `gorm:"not null;default:''" json:"image_url"`
	Location   string    `gorm:"not null;default:''" json:"location"`
	Visibility string    `gorm:"size:16;not null;default:'public';index" json:"visibility"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PostView is a post joined with its author's display identity.
type PostView struct {
	ID         uint      `json:"id"`
	UserID     uint      `json:"user_id"`
	Content    string    `json:"content"`
	ImageURL   string    `json:"image_url"`
	Location   string    `json:"location"`
	Visibility string    `json:"visibility"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Username   string    `json:"username"`
	Nickname   string    `json:"nickname"`
	Avatar     string    `json:"avatar"`
}

// Like is a (post, user) pair. At most one row exists per pair.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_likes_post_user" json:"post_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_likes_post_user;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Like toggle outcomes.
const (
	LikeActionLiked   = "liked"
	LikeActionUnliked = "unliked"
)

// LikeInfo is the like state of a post as seen by one user.
type LikeInfo struct {
	LikeCount int64 `json:"like_count"`
	IsLiked   bool  `json:"isLiked"`
}

// LikeToggle is the result of flipping a like.
type LikeToggle struct {
	Action string `json:"action"`
	LikeInfo
}

// Comment is a comment on a post.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;index" json:"post_id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// CommentView is a comment joined with its author's display identity.
type CommentView struct {
	ID        uint      `json:"id"`
	PostID    uint      `json:"post_id"`
	UserID    uint      `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Username  string    `json:"username"`
	Nickname  string    `json:"nickname"`
	Avatar    string    `json:"avatar"`
}

// CommentList is the comments payload of a post.
type CommentList struct {
	Count int            `json:"count"`
	List  []*CommentView `json:"list"`
}
