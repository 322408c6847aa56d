package service

import (
	"context"
	"strconv"
	"strings"

	"campusfeed/internal/middleware"
	"campusfeed/internal/models"
	"campusfeed/internal/observability"
	"campusfeed/internal/repository"
	"campusfeed/internal/security"
	"campusfeed/internal/validation"
)

// ImageSaver persists uploaded post images.
type ImageSaver interface {
	Save(ctx context.Context, content []byte) (*StoredImage, error)
	Remove(img *StoredImage)
}

type PostService struct {
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	images      ImageSaver
}

type PublishInput struct {
	UserID     uint
	Content    string
	Location   string
	Visibility string
	// Image is the raw upload; nil when the post has no picture.
	Image []byte
}

type CreateCommentInput struct {
	UserID  uint
	PostID  uint
	Content string
}

func NewPostService(postRepo repository.PostRepository, commentRepo repository.CommentRepository, images ImageSaver) *PostService {
	return &PostService{
		postRepo:    postRepo,
		commentRepo: commentRepo,
		images:      images,
	}
}

// List returns every public post, newest first.
func (s *PostService) List(ctx context.Context) ([]*models.PostView, error) {
	posts, err := s.postRepo.ListPublic(ctx)
	if err != nil {
		return nil, models.NewDatabaseError(err)
	}
	return posts, nil
}

// Detail returns a public post.
func (s *PostService) Detail(ctx context.Context, postID uint) (*models.PostView, error) {
	post, err := s.postRepo.GetVisible(ctx, postID, 0)
	if err != nil {
		return nil, storeError(err, "post", postID)
	}
	return post, nil
}

func (s *PostService) LikesInfo(ctx context.Context, postID, userID uint) (*models.LikeInfo, error) {
	if _, err := s.postRepo.GetVisible(ctx, postID, userID); err != nil {
		return nil, storeError(err, "post", postID)
	}
	info, err := s.postRepo.LikeInfo(ctx, postID, userID)
	if err != nil {
		return nil, models.NewDatabaseError(err)
	}
	return info, nil
}

// ToggleLike likes the post for userID, or removes an existing like.
func (s *PostService) ToggleLike(ctx context.Context, postID, userID uint) (*models.LikeToggle, error) {
	if postID == 0 {
		return nil, models.NewValidationError("post_id is required")
	}
	if _, err := s.postRepo.GetVisible(ctx, postID, userID); err != nil {
		return nil, storeError(err, "post", postID)
	}

	res, err := s.postRepo.ToggleLike(ctx, postID, userID)
	if err != nil {
		return nil, models.NewDatabaseError(err)
	}
	observability.LikeToggles.WithLabelValues(res.Action).Inc()
	return res, nil
}

func (s *PostService) Comments(ctx context.Context, postID, viewerID uint) (*models.CommentList, error) {
	if _, err := s.postRepo.GetVisible(ctx, postID, viewerID); err != nil {
		return nil, storeError(err, "post", postID)
	}
	list, err := s.commentRepo.ListByPost(ctx, postID)
	if err != nil {
		return nil, models.NewDatabaseError(err)
	}
	return &models.CommentList{Count: len(list), List: list}, nil
}

func (s *PostService) AddComment(ctx context.Context, in CreateCommentInput) (*models.CommentView, error) {
	if in.PostID == 0 {
		return nil, models.NewValidationError("postId is required")
	}
	content := strings.TrimSpace(in.Content)
	if err := validation.ValidateLength("content", content, 1, validation.MaxCommentLength); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if _, err := s.postRepo.GetVisible(ctx, in.PostID, in.UserID); err != nil {
		return nil, storeError(err, "post", in.PostID)
	}

	view, err := s.commentRepo.Create(ctx, &models.Comment{
		PostID:  in.PostID,
		UserID:  in.UserID,
		Content: security.Escape(content),
	})
	if err != nil {
		return nil, models.NewDatabaseError(err)
	}
	return view, nil
}

// Publish validates and stores a new post. A stored image is removed again when the
// insert fails.
func (s *PostService) Publish(ctx context.Context, in PublishInput) (*models.PostView, error) {
	content := strings.TrimSpace(in.Content)
	if err := validation.ValidatePostContent(content); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	visibility := strings.ToLower(strings.TrimSpace(in.Visibility))
	switch visibility {
	case "":
		visibility = models.VisibilityPublic
	case models.VisibilityPublic, models.VisibilityPrivate:
	default:
		return nil, models.NewValidationError("visibility must be public or private")
	}

	location := strings.TrimSpace(in.Location)
	if err := validation.ValidateLength("location", location, 0, 100); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	var stored *StoredImage
	if len(in.Image) > 0 {
		if s.images == nil {
			return nil, models.NewValidationError("image uploads are disabled")
		}
		img, err := s.images.Save(ctx, in.Image)
		if err != nil {
			return nil, err
		}
		stored = img
	}

	post := &models.Post{
		UserID:     in.UserID,
		Content:    security.Escape(content),
		Location:   security.Escape(location),
		Visibility: visibility,
	}
	if stored != nil {
		post.ImageURL = stored.URL
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		if stored != nil {
			s.images.Remove(stored)
		}
		return nil, models.NewDatabaseError(err)
	}
	observability.PostsPublished.WithLabelValues(strconv.FormatBool(stored != nil)).Inc()
	middleware.Logger.InfoContext(ctx, "post published", "post_id", post.ID, "visibility", visibility)

	view, err := s.postRepo.GetVisible(ctx, post.ID, in.UserID)
	if err != nil {
		return nil, storeError(err, "post", post.ID)
	}
	return view, nil
}

// UserPosts lists a user's posts. Private posts are only included for their author.
func (s *PostService) UserPosts(ctx context.Context, userID, viewerID uint) ([]*models.PostView, error) {
	if userID == 0 {
		return nil, models.NewValidationError("invalid user id")
	}
	posts, err := s.postRepo.ListByUser(ctx, userID, userID == viewerID)
	if err != nil {
		return nil, models.NewDatabaseError(err)
	}
	return posts, nil
}

// Favorites lists the public posts userID liked, most recently liked first.
func (s *PostService) Favorites(ctx context.Context, userID uint) ([]*models.PostView, error) {
	posts, err := s.postRepo.ListLikedBy(ctx, userID)
	if err != nil {
		return nil, models.NewDatabaseError(err)
	}
	return posts, nil
}
