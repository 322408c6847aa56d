package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, username, password, nickname string) (*User, error) {
	r, err := jsonRequest(http.MethodPost, "/user/register", map[string]string{
		"username": username,
		"password": password,
		"nickname": nickname,
	}, false)
	if err != nil {
		return nil, err
	}
	var u User
	if _, err := c.call(ctx, r, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Login authenticates and stores the returned token pair in the session.
func (c *Client) Login(ctx context.Context, username, password string) (*User, error) {
	r, err := jsonRequest(http.MethodPost, "/user/login", map[string]string{
		"username": username,
		"password": password,
	}, false)
	if err != nil {
		return nil, err
	}
	var u User
	env, err := c.call(ctx, r, &u)
	if err != nil {
		return nil, err
	}
	if err := c.session.SetTokens(Tokens{AccessToken: env.AccessToken, RefreshToken: env.RefreshToken}); err != nil {
		return nil, err
	}
	return &u, nil
}

// Logout forgets the stored tokens.
func (c *Client) Logout() error {
	return c.session.Clear()
}

func (c *Client) Profile(ctx context.Context) (*User, error) {
	var u User
	if err := c.get(ctx, "/user/profile", &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (*User, error) {
	var u User
	if err := c.sendJSON(ctx, http.MethodPut, "/user/update", update, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Feed lists public posts, newest first.
func (c *Client) Feed(ctx context.Context) ([]*Post, error) {
	var posts []*Post
	if err := c.get(ctx, "/post/list", &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (c *Client) Post(ctx context.Context, id uint) (*Post, error) {
	var p Post
	if err := c.get(ctx, fmt.Sprintf("/post/detail/%d", id), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) UserPosts(ctx context.Context, userID uint) ([]*Post, error) {
	var posts []*Post
	if err := c.get(ctx, fmt.Sprintf("/post/user/%d", userID), &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (c *Client) Favorites(ctx context.Context) ([]*Post, error) {
	var posts []*Post
	if err := c.get(ctx, "/post/favorites", &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (c *Client) Likes(ctx context.Context, postID uint) (*LikeState, error) {
	var s LikeState
	if err := c.get(ctx, fmt.Sprintf("/post/likes/%d", postID), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ToggleLike likes the post, or unlikes it when already liked.
func (c *Client) ToggleLike(ctx context.Context, postID uint) (*LikeState, error) {
	var s LikeState
	if err := c.sendJSON(ctx, http.MethodPost, "/post/likes", map[string]uint{"post_id": postID}, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) Comments(ctx context.Context, postID uint) (*CommentList, error) {
	var list CommentList
	if err := c.get(ctx, fmt.Sprintf("/post/comments/%d", postID), &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *Client) AddComment(ctx context.Context, postID uint, content string) (*Comment, error) {
	var cm Comment
	payload := map[string]any{"postId": postID, "content": content}
	if err := c.sendJSON(ctx, http.MethodPost, "/post/comments", payload, &cm); err != nil {
		return nil, err
	}
	return &cm, nil
}

// PublishInput is a new post. Image is optional.
type PublishInput struct {
	Content    string
	Location   string
	Visibility string
	Image      io.Reader
	ImageName  string
}

// Publish uploads a post as a multipart form.
func (c *Client) Publish(ctx context.Context, in PublishInput) (*Post, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	fields := map[string]string{
		"content":    in.Content,
		"location":   in.Location,
		"visibility": in.Visibility,
	}
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := w.WriteField(k, v); err != nil {
			return nil, err
		}
	}
	if in.Image != nil {
		name := in.ImageName
		if name == "" {
			name = "image"
		}
		part, err := w.CreateFormFile("image", name)
		if err != nil {
			return nil, err
		}
		if _, err := io.Copy(part, in.Image); err != nil {
			return nil, fmt.Errorf("read image: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	var p Post
	r := request{
		method:      http.MethodPost,
		path:        "/post/publish",
		body:        buf.Bytes(),
		contentType: w.FormDataContentType(),
		auth:        true,
	}
	if _, err := c.call(ctx, r, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) Chats(ctx context.Context) ([]*ChatSummary, error) {
	var chats []*ChatSummary
	if err := c.get(ctx, "/message/list", &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

// Conversation returns the messages exchanged with userID and marks them read.
func (c *Client) Conversation(ctx context.Context, userID uint) ([]*Message, error) {
	var msgs []*Message
	if err := c.get(ctx, fmt.Sprintf("/message/chat/%d", userID), &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (c *Client) Send(ctx context.Context, receiverID uint, content string) (*Message, error) {
	var m Message
	payload := map[string]any{"receiverId": receiverID, "content": content, "messageType": "text"}
	if err := c.sendJSON(ctx, http.MethodPost, "/message/send", payload, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// MarkRead marks the messages from chatUserID read and returns how many changed.
func (c *Client) MarkRead(ctx context.Context, chatUserID uint) (int64, error) {
	var out struct {
		Updated int64 `json:"updated"`
	}
	if err := c.sendJSON(ctx, http.MethodPost, "/message/read", map[string]uint{"chatUserId": chatUserID}, &out); err != nil {
		return 0, err
	}
	return out.Updated, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	_, err := c.call(ctx, request{method: http.MethodGet, path: path, auth: true}, out)
	return err
}

func (c *Client) sendJSON(ctx context.Context, method, path string, payload, out any) error {
	r, err := jsonRequest(method, path, payload, true)
	if err != nil {
		return err
	}
	_, err = c.call(ctx, r, out)
	return err
}
