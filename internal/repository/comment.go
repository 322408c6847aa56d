package repository

import (
	"context"
	"fmt"
	"time"

	"campusfeed/internal/models"

	"gorm.io/gorm"
)

// CommentRepository defines persistence operations for comments.
type CommentRepository interface {
	ListByPost(ctx context.Context, postID uint) ([]*models.CommentView, error)
	Create(ctx context.Context, comment *models.Comment) (*models.CommentView, error)
}

type commentRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewCommentRepository returns a new CommentRepository implementation.
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db, now: utcNow}
}

const commentViewSelect = `SELECT c.id, c.post_id, c.user_id, c.content, c.created_at,
       u.username, u.nickname, u.avatar
FROM comments c
JOIN users u ON u.id = c.user_id`

func (r *commentRepository) ListByPost(ctx context.Context, postID uint) ([]*models.CommentView, error) {
	comments := make([]*models.CommentView, 0)
	err := r.db.WithContext(ctx).Raw(commentViewSelect+`
WHERE c.post_id = ?
ORDER BY c.created_at DESC, c.id DESC`, postID).Scan(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	return comments, nil
}

// Create inserts the comment and reads it back with its author in the same transaction.
func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) (*models.CommentView, error) {
	var view models.CommentView

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := r.now()
		if err := tx.Raw(
			`INSERT INTO comments (post_id, user_id, content, created_at) VALUES (?, ?, ?, ?) RETURNING id`,
			comment.PostID, comment.UserID, comment.Content, now,
		).Row().Scan(&comment.ID); err != nil {
			return fmt.Errorf("insert comment: %w", err)
		}
		comment.CreatedAt = now

		var rows []models.CommentView
		if err := tx.Raw(commentViewSelect+` WHERE c.id = ?`, comment.ID).Scan(&rows).Error; err != nil {
			return fmt.Errorf("reload comment: %w", err)
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
