package repository

import (
	"context"
	"fmt"
	"time"

	"campusfeed/internal/models"

	"gorm.io/gorm"
)

// PostRepository defines persistence operations for posts and likes.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	ListPublic(ctx context.Context) ([]*models.PostView, error)
	// GetVisible returns a post that is public or authored by viewerID.
	// A viewerID of 0 restricts the lookup to public posts.
	GetVisible(ctx context.Context, id, viewerID uint) (*models.PostView, error)
	ListByUser(ctx context.Context, userID uint, includePrivate bool) ([]*models.PostView, error)
	ListLikedBy(ctx context.Context, userID uint) ([]*models.PostView, error)
	LikeInfo(ctx context.Context, postID, userID uint) (*models.LikeInfo, error)
	ToggleLike(ctx context.Context, postID, userID uint) (*models.LikeToggle, error)
}

type postRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db, now: utcNow}
}

const postViewSelect = `SELECT p.id, p.user_id, p.content, p.image_url, p.location, p.visibility,
       p.created_at, p.updated_at, u.username, u.nickname, u.avatar
FROM posts p
JOIN users u ON u.id = p.user_id`

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if post.Visibility == "" {
		post.Visibility = models.VisibilityPublic
	}
	now := r.now()
	row := r.db.WithContext(ctx).Raw(
		`INSERT INTO posts (user_id, content, image_url, location, visibility, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`,
		post.UserID, post.Content, post.ImageURL, post.Location, post.Visibility, now, now,
	).Row()
	if err := row.Scan(&post.ID); err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	post.CreatedAt = now
	post.UpdatedAt = now
	return nil
}

func (r *postRepository) ListPublic(ctx context.Context) ([]*models.PostView, error) {
	return r.list(ctx, postViewSelect+`
WHERE p.visibility = ?
ORDER BY p.created_at DESC, p.id DESC`, models.VisibilityPublic)
}

func (r *postRepository) GetVisible(ctx context.Context, id, viewerID uint) (*models.PostView, error) {
	posts, err := r.list(ctx, postViewSelect+`
WHERE p.id = ? AND (p.visibility = ? OR p.user_id = ?)`, id, models.VisibilityPublic, viewerID)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, ErrNotFound
	}
	return posts[0], nil
}

func (r *postRepository) ListByUser(ctx context.Context, userID uint, includePrivate bool) ([]*models.PostView, error) {
	if includePrivate {
		return r.list(ctx, postViewSelect+`
WHERE p.user_id = ?
ORDER BY p.created_at DESC, p.id DESC`, userID)
	}
	return r.list(ctx, postViewSelect+`
WHERE p.user_id = ? AND p.visibility = ?
ORDER BY p.created_at DESC, p.id DESC`, userID, models.VisibilityPublic)
}

func (r *postRepository) ListLikedBy(ctx context.Context, userID uint) ([]*models.PostView, error) {
	return r.list(ctx, `SELECT p.id, p.user_id, p.content, p.image_url, p.location, p.visibility,
       p.created_at, p.updated_at, u.username, u.nickname, u.avatar
FROM likes l
JOIN posts p ON p.id = l.post_id
JOIN users u ON u.id = p.user_id
WHERE l.user_id = ? AND p.visibility = ?
ORDER BY l.created_at DESC, l.id DESC`, userID, models.VisibilityPublic)
}

func (r *postRepository) list(ctx context.Context, query string, args ...any) ([]*models.PostView, error) {
	posts := make([]*models.PostView, 0)
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&posts).Error; err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	return posts, nil
}

func (r *postRepository) LikeInfo(ctx context.Context, postID, userID uint) (*models.LikeInfo, error) {
	return likeInfo(r.db.WithContext(ctx), postID, userID)
}

func likeInfo(db *gorm.DB, postID, userID uint) (*models.LikeInfo, error) {
	var row struct {
		LikeCount int64
		Mine      int64
	}
	err := db.Raw(
		`SELECT COUNT(*) AS like_count,
		        COALESCE(SUM(CASE WHEN user_id = ? THEN 1 ELSE 0 END), 0) AS mine
		 FROM likes WHERE post_id = ?`,
		userID, postID,
	).Scan(&row).Error
	if err != nil {
		return nil, fmt.Errorf("count likes: %w", err)
	}
	return &models.LikeInfo{LikeCount: row.LikeCount, IsLiked: row.Mine > 0}, nil
}

// ToggleLike flips the caller's like in one transaction: delete the pair, and if no
// row was deleted insert it. The unique (post_id, user_id) index turns a concurrent
// double insert into a no-op.
func (r *postRepository) ToggleLike(ctx context.Context, postID, userID uint) (*models.LikeToggle, error) {
	var out models.LikeToggle

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(`DELETE FROM likes WHERE post_id = ? AND user_id = ?`, postID, userID)
		if res.Error != nil {
			return fmt.Errorf("delete like: %w", res.Error)
		}

		if res.RowsAffected > 0 {
			out.Action = models.LikeActionUnliked
		} else {
			res = tx.Exec(
				`INSERT INTO likes (post_id, user_id, created_at) VALUES (?, ?, ?)
				 ON CONFLICT (post_id, user_id) DO NOTHING`,
				postID, userID, r.now(),
			)
			if res.Error != nil {
				return fmt.Errorf("insert like: %w", res.Error)
			}
			out.Action = models.LikeActionLiked
		}

		info, err := likeInfo(tx, postID, userID)
		if err != nil {
			return err
		}
		out.LikeInfo = *info
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
