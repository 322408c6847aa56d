package client

import "time"

// User is the public profile returned by the API.
type User struct {
	ID         uint      `json:"id"`
	Username   string    `json:"username"`
	Nickname   string    `json:"nickname"`
	Avatar     string    `json:"avatar"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Gender     string    `json:"gender"`
	School     string    `json:"school"`
	Major      string    `json:"major"`
	Grade      string    `json:"grade"`
	Bio        string    `json:"bio"`
	CreateTime time.Time `json:"create_time"`

	// Set only on the caller's own profile.
	UnreadMessages int64 `json:"unread_messages,omitempty"`
}

// ProfileUpdate lists the fields to change. Nil fields are left untouched.
type ProfileUpdate struct {
	Username *string `json:"username,omitempty"`
	Nickname *string `json:"nickname,omitempty"`
	Email    *string `json:"email,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Gender   *string `json:"gender,omitempty"`
	School   *string `json:"school,omitempty"`
	Major    *string `json:"major,omitempty"`
	Grade    *string `json:"grade,omitempty"`
	Bio      *string `json:"bio,omitempty"`
	Avatar   *string `json:"avatar,omitempty"`
}

type Post struct {
	ID         uint      `json:"id"`
	UserID     uint      `json:"user_id"`
	Content    string    `json:"content"`
	ImageURL   string    `json:"image_url"`
	Location   string    `json:"location"`
	Visibility string    `json:"visibility"`
	CreatedAt  time.Time `json:"created_at"`
	Username   string    `json:"username"`
	Nickname   string    `json:"nickname"`
	Avatar     string    `json:"avatar"`
}

type LikeState struct {
	Action    string `json:"action,omitempty"`
	LikeCount int64  `json:"like_count"`
	IsLiked   bool   `json:"isLiked"`
}

type Comment struct {
	ID        uint      `json:"id"`
	PostID    uint      `json:"post_id"`
	UserID    uint      `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Username  string    `json:"username"`
	Nickname  string    `json:"nickname"`
	Avatar    string    `json:"avatar"`
}

type CommentList struct {
	Count int        `json:"count"`
	List  []*Comment `json:"list"`
}

type Message struct {
	ID               uint      `json:"id"`
	SenderID         uint      `json:"sender_id"`
	ReceiverID       uint      `json:"receiver_id"`
	Content          string    `json:"content"`
	MessageType      string    `json:"message_type"`
	IsRead           bool      `json:"is_read"`
	CreatedAt        time.Time `json:"created_at"`
	SenderNickname   string    `json:"sender_nickname"`
	SenderAvatar     string    `json:"sender_avatar"`
	ReceiverNickname string    `json:"receiver_nickname"`
	ReceiverAvatar   string    `json:"receiver_avatar"`
}

type ChatSummary struct {
	ChatUserID      uint      `json:"chat_user_id"`
	Username        string    `json:"username"`
	Nickname        string    `json:"nickname"`
	Avatar          string    `json:"avatar"`
	LastMessage     string    `json:"last_message"`
	LastMessageType string    `json:"last_message_type"`
	LastMessageTime time.Time `json:"last_message_time"`
	LastSenderID    uint      `json:"last_sender_id"`
	UnreadCount     int64     `json:"unread_count"`
}
