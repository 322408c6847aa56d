package server

import (
	"io"
	"strings"

	"campusfeed/internal/models"
	"campusfeed/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListPosts handles GET /post/list
// @Summary Public feed
// @Description Every public post with its author, newest first
// @Tags post
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Response{data=[]models.PostView}
// @Router /post/list [get]
func (s *Server) ListPosts(c *fiber.Ctx) error {
	posts, err := s.postService.List(c.UserContext())
	if err != nil {
		return s.respondError(c, err)
	}
	return models.RespondOK(c, "ok", posts)
}

// PostDetail handles GET /post/detail/:id
// @Summary Post detail
// @Tags post
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} models.Response{data=models.PostView}
// @Failure 404 {object} models.Response
// @Router /post/detail/{id} [get]
func (s *Server) PostDetail(c *fiber.Ctx) error {
	id, ok := s.parseID(c, "id")
	if !ok {
		return nil
	}

	post, err := s.postService.Detail(c.UserContext(), id)
	if err != nil {
		return s.respondError(c, err)
	}
	return models.RespondOK(c, "ok", post)
}

// LikesInfo handles GET /post/likes/:id
// @Summary Like state of a post
// @Tags post
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} models.Response{data=models.LikeInfo}
// @Router /post/likes/{id} [get]
func (s *Server) LikesInfo(c *fiber.Ctx) error {
	id, ok := s.parseID(c, "id")
	if !ok {
		return nil
	}

	info, err := s.postService.LikesInfo(c.UserContext(), id, currentUserID(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return models.RespondOK(c, "ok", info)
}

// ToggleLike handles POST /post/likes
// @Summary Like or unlike a post
// @Tags post
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{post_id=int} true "Post"
// @Success 200 {object} models.Response{data=models.LikeToggle}
// @Failure 404 {object} models.Response
// @Router /post/likes [post]
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	var req struct {
		PostID uint `json:"post_id"`
	}
	if !bindJSON(c, &req) {
		return nil
	}

	res, err := s.postService.ToggleLike(c.UserContext(), req.PostID, currentUserID(c))
	if err != nil {
		return s.respondError(c, err)
	}

	msg := "liked"
	if res.Action == models.LikeActionUnliked {
		msg = "unliked"
	}
	return models.RespondOK(c, msg, res)
}

// Comments handles GET /post/comments/:id
// @Summary Comments of a post
// @Tags post
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} models.Response{data=models.CommentList}
// @Router /post/comments/{id} [get]
func (s *Server) Comments(c *fiber.Ctx) error {
	id, ok := s.parseID(c, "id")
	if !ok {
		return nil
	}

	list, err := s.postService.Comments(c.UserContext(), id, currentUserID(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return models.RespondOK(c, "ok", list)
}

// AddComment handles POST /post/comments
// @Summary Comment on a post
// @Tags post
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{postId=int,content=string} true "Comment"
// @Success 200 {object} models.Response{data=models.CommentView}
// @Failure 400 {object} models.Response
// @Router /post/comments [post]
func (s *Server) AddComment(c *fiber.Ctx) error {
	var req struct {
		PostID  uint   `json:"postId"`
		Content string `json:"content"`
	}
	if !bindJSON(c, &req) {
		return nil
	}

	comment, err := s.postService.AddComment(c.UserContext(), service.CreateCommentInput{
		UserID:  currentUserID(c),
		PostID:  req.PostID,
		Content: req.Content,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return models.RespondOK(c, "comment added", comment)
}

// Publish handles POST /post/publish
// @Summary Publish a post
// @Description Multipart form with optional JPEG, PNG or GIF image
// @Tags post
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param content formData string true "Post text"
// @Param location formData string false "Location"
// @Param visibility formData string false "public or private"
// @Param image formData file false "Image"
// @Success 200 {object} models.Response{data=models.PostView}
// @Failure 400 {object} models.Response
// @Router /post/publish [post]
func (s *Server) Publish(c *fiber.Ctx) error {
	image, err := s.readUpload(c, "image")
	if err != nil {
		return s.respondError(c, err)
	}

	post, err := s.postService.Publish(c.UserContext(), service.PublishInput{
		UserID:     currentUserID(c),
		Content:    c.FormValue("content"),
		Location:   c.FormValue("location"),
		Visibility: c.FormValue("visibility"),
		Image:      image,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return models.RespondOK(c, "post published", post)
}

// readUpload returns the bytes of the named multipart file, or nil when the request has
// none. A body declared multipart that does not parse is rejected. Reads stop one byte
// past the upload limit so the size check can reject it.
func (s *Server) readUpload(c *fiber.Ctx, field string) ([]byte, error) {
	isMultipart := strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEMultipartForm)
	if !isMultipart {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, models.NewValidationError("malformed multipart body")
	}
	files := form.File[field]
	if len(files) == 0 {
		return nil, nil
	}
	if files[0].Size > s.config.MaxUploadBytes {
		return nil, models.NewValidationError("image is too large")
	}

	f, err := files[0].Open()
	if err != nil {
		return nil, models.NewValidationError("unreadable image upload")
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, s.config.MaxUploadBytes+1))
	if err != nil {
		return nil, models.NewValidationError("unreadable image upload")
	}
	return data, nil
}

// UserPosts handles GET /post/user/:userId
// @Summary Posts by a user
// @Description Private posts are included only for their author
// @Tags post
// @Produce json
// @Security BearerAuth
// @Param userId path int true "User ID"
// @Success 200 {object} models.Response{data=[]models.PostView}
// @Router /post/user/{userId} [get]
func (s *Server) UserPosts(c *fiber.Ctx) error {
	userID, ok := s.parseID(c, "userId")
	if !ok {
		return nil
	}

	posts, err := s.postService.UserPosts(c.UserContext(), userID, currentUserID(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return models.RespondOK(c, "ok", posts)
}

// Favorites handles GET /post/favorites
// @Summary Posts the caller liked
// @Tags post
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Response{data=[]models.PostView}
// @Router /post/favorites [get]
func (s *Server) Favorites(c *fiber.Ctx) error {
	posts, err := s.postService.Favorites(c.UserContext(), currentUserID(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return models.RespondOK(c, "ok", posts)
}
