package repository

import (
	"context"
	"fmt"
	"time"

	"campusfeed/internal/models"

	"gorm.io/gorm"
)

// MessageRepository defines persistence operations for direct messages.
type MessageRepository interface {
	ChatList(ctx context.Context, userID uint) ([]*models.ChatSummary, error)
	Conversation(ctx context.Context, userID, otherID uint) ([]*models.MessageView, error)
	Create(ctx context.Context, msg *models.Message) (*models.MessageView, error)
	MarkRead(ctx context.Context, receiverID, senderID uint) (int64, error)
	UnreadCount(ctx context.Context, receiverID uint) (int64, error)
}

type messageRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewMessageRepository returns a new MessageRepository implementation.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db, now: utcNow}
}

const messageViewSelect = `SELECT m.id, m.sender_id, m.receiver_id, m.content, m.message_type, m.is_read, m.created_at,
       s.nickname AS sender_nickname, s.avatar AS sender_avatar,
       r.nickname AS receiver_nickname, r.avatar AS receiver_avatar
FROM messages m
JOIN users s ON s.id = m.sender_id
JOIN users r ON r.id = m.receiver_id`

// chatListQuery ranks each counterpart's messages newest first, keeps the top row and
// joins the number of that counterpart's messages the user has not read yet.
const chatListQuery = `SELECT t.chat_user_id, u.username, u.nickname, u.avatar,
       t.content AS last_message, t.message_type AS last_message_type,
       t.created_at AS last_message_time, t.sender_id AS last_sender_id,
       COALESCE(uc.unread_count, 0) AS unread_count
FROM (
    SELECT m.id, m.sender_id, m.content, m.message_type, m.created_at,
           CASE WHEN m.sender_id = ? THEN m.receiver_id ELSE m.sender_id END AS chat_user_id,
           ROW_NUMBER() OVER (
               PARTITION BY CASE WHEN m.sender_id = ? THEN m.receiver_id ELSE m.sender_id END
               ORDER BY m.created_at DESC, m.id DESC
           ) AS rn
    FROM messages m
    WHERE m.sender_id = ? OR m.receiver_id = ?
) t
JOIN users u ON u.id = t.chat_user_id
LEFT JOIN (
    SELECT sender_id, COUNT(*) AS unread_count
    FROM messages
    WHERE receiver_id = ? AND is_read = ?
    GROUP BY sender_id
) uc ON uc.sender_id = t.chat_user_id
WHERE t.rn = 1
ORDER BY t.created_at DESC, t.id DESC`

func (r *messageRepository) ChatList(ctx context.Context, userID uint) ([]*models.ChatSummary, error) {
	chats := make([]*models.ChatSummary, 0)
	err := r.db.WithContext(ctx).Raw(chatListQuery,
		userID, userID, userID, userID, userID, false,
	).Scan(&chats).Error
	if err != nil {
		return nil, fmt.Errorf("query chat list: %w", err)
	}
	return chats, nil
}

func (r *messageRepository) Conversation(ctx context.Context, userID, otherID uint) ([]*models.MessageView, error) {
	msgs := make([]*models.MessageView, 0)
	err := r.db.WithContext(ctx).Raw(messageViewSelect+`
WHERE (m.sender_id = ? AND m.receiver_id = ?) OR (m.sender_id = ? AND m.receiver_id = ?)
ORDER BY m.created_at ASC, m.id ASC`,
		userID, otherID, otherID, userID,
	).Scan(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("query conversation: %w", err)
	}
	return msgs, nil
}

// Create inserts an unread message and reads it back with both parties in one transaction.
func (r *messageRepository) Create(ctx context.Context, msg *models.Message) (*models.MessageView, error) {
	if msg.MessageType == "" {
		msg.MessageType = models.MessageTypeText
	}
	var view models.MessageView

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := r.now()
		if err := tx.Raw(
			`INSERT INTO messages (sender_id, receiver_id, content, message_type, is_read, created_at)
			 VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
			msg.SenderID, msg.ReceiverID, msg.Content, msg.MessageType, false, now,
		).Row().Scan(&msg.ID); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		msg.IsRead = false
		msg.CreatedAt = now

		var rows []models.MessageView
		if err := tx.Raw(messageViewSelect+` WHERE m.id = ?`, msg.ID).Scan(&rows).Error; err != nil {
			return fmt.Errorf("reload message: %w", err)
		}
		if len(rows) == 0 {
			return ErrNotFound
		}
		view = rows[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// MarkRead flips is_read for every unread message senderID sent to receiverID.
func (r *messageRepository) MarkRead(ctx context.Context, receiverID, senderID uint) (int64, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE messages SET is_read = ? WHERE receiver_id = ? AND sender_id = ? AND is_read = ?`,
		true, receiverID, senderID, false,
	)
	if res.Error != nil {
		return 0, fmt.Errorf("mark read: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *messageRepository) UnreadCount(ctx context.Context, receiverID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM messages WHERE receiver_id = ? AND is_read = ?`, receiverID, false,
	).Scan(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}
