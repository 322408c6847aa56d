package models

import "time"

// MessageTypeText is the default message type.
const MessageTypeText = "text"

// Message is a direct message between two users.
type Message struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	SenderID    uint      `gorm:"not null;index:idx_messages_pair,priority:1" json:"sender_id"`
	ReceiverID  uint      `gorm:"not null;index:idx_messages_pair,priority:2;index:idx_messages_unread,priority:1" json:"receiver_id"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	MessageType string    `gorm:"size:20;not null;default:'text'" json:"message_type"`
	IsRead      bool      `gorm:"not null;default:false;index:idx_messages_unread,priority:2" json:"is_read"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

// MessageView is a message joined with both parties' display identity.
type MessageView struct {
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

// ChatSummary is one row of a user's chat list: the latest message exchanged with a
// counterpart and how many of the counterpart's messages are still unread.
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
