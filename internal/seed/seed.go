package seed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"campusfeed/internal/middleware"
	"campusfeed/internal/models"

	"gorm.io/gorm"
)

// Options configures a seeding run.
type Options struct {
	NumUsers    int
	NumPosts    int
	ShouldClean bool
	// MaxDays bounds how far back generated timestamps go.
	MaxDays int
	// PrivatePercent is the share of posts created private, 0..100.
	PrivatePercent int
	// LikesPerPost and CommentsPerPost are upper bounds; each post draws a random count.
	LikesPerPost    int
	CommentsPerPost int
	// Conversations is the number of user pairs that exchange messages.
	Conversations int
	// SkipBcrypt stores the plain password; only for tests and throwaway databases.
	SkipBcrypt bool
	RandomSeed int64
}

// DefaultOptions returns a small but lively dataset.
func DefaultOptions() Options {
	return Options{
		NumUsers:        20,
		NumPosts:        100,
		ShouldClean:     true,
		MaxDays:         30,
		PrivatePercent:  15,
		LikesPerPost:    8,
		CommentsPerPost: 4,
		Conversations:   15,
	}
}

// Summary counts the rows a run created.
type Summary struct {
	Users    int
	Posts    int
	Likes    int
	Comments int
	Messages int
}

// Seed populates the database with demo data.
func Seed(ctx context.Context, db *gorm.DB, opts Options) (*Summary, error) {
	db = db.WithContext(ctx)
	middleware.Logger.InfoContext(ctx, "seeding database",
		slog.Int("users", opts.NumUsers), slog.Int("posts", opts.NumPosts))

	if opts.ShouldClean {
		if err := ClearAll(db); err != nil {
			return nil, fmt.Errorf("clear existing data: %w", err)
		}
	}

	f, err := NewFactory(db, opts)
	if err != nil {
		return nil, err
	}
	// #nosec G404: acceptable for seeding
	r := rand.New(rand.NewSource(f.fake.Int64()))
	summary := &Summary{}

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		u, err := f.CreateUser()
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		users = append(users, u)
	}
	summary.Users = len(users)
	if len(users) == 0 {
		return summary, nil
	}

	posts := make([]*models.Post, 0, opts.NumPosts)
	for i := 0; i < opts.NumPosts; i++ {
		posts = append(posts, f.BuildPost(users[r.Intn(len(users))]))
	}
	if err := f.CreatePostsBatch(posts); err != nil {
		return nil, fmt.Errorf("create posts: %w", err)
	}
	summary.Posts = len(posts)

	for _, post := range posts {
		if post.Visibility != models.VisibilityPublic {
			continue
		}
		// A permutation keeps every (post, user) like unique.
		for _, idx := range r.Perm(len(users))[:r.Intn(min(opts.LikesPerPost, len(users))+1)] {
			if err := f.CreateLike(users[idx], post); err != nil {
				return nil, fmt.Errorf("create like: %w", err)
			}
			summary.Likes++
		}
		for n := r.Intn(opts.CommentsPerPost + 1); n > 0; n-- {
			if _, err := f.CreateComment(users[r.Intn(len(users))], post); err != nil {
				return nil, fmt.Errorf("create comment: %w", err)
			}
			summary.Comments++
		}
	}

	if len(users) > 1 {
		for i := 0; i < opts.Conversations; i++ {
			a := users[r.Intn(len(users))]
			b := users[r.Intn(len(users))]
			if a.ID == b.ID {
				continue
			}
			for n := 1 + r.Intn(5); n > 0; n-- {
				from, to := a, b
				if r.Intn(2) == 0 {
					from, to = b, a
				}
				if _, err := f.CreateMessage(from, to); err != nil {
					return nil, fmt.Errorf("create message: %w", err)
				}
				summary.Messages++
			}
		}
	}

	middleware.Logger.InfoContext(ctx, "seeding complete",
		slog.Int("users", summary.Users),
		slog.Int("posts", summary.Posts),
		slog.Int("likes", summary.Likes),
		slog.Int("comments", summary.Comments),
		slog.Int("messages", summary.Messages),
	)
	return summary, nil
}

// ClearAll deletes every row of the application tables, children first.
func ClearAll(db *gorm.DB) error {
	for _, table := range []string{"messages", "comments", "likes", "posts", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}
