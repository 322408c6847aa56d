package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI accepts exactly one valid access token at a time and rotates it on refresh.
type fakeAPI struct {
	mu           sync.Mutex
	access       string
	refresh      string
	generation   int
	refreshCalls atomic.Int32
	refreshDelay time.Duration
	rejectAll    bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{access: "access-1", refresh: "refresh-1", generation: 1}
}

func writeEnvelope(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func (f *fakeAPI) authorized(r *http.Request) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.rejectAll && r.Header.Get("Authorization") == "Bearer "+f.access
}

func (f *fakeAPI) expireAccess() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generation++
	f.access = "access-" + strconv.Itoa(f.generation)
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/user/login":
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "secret1" {
			writeEnvelope(w, http.StatusOK, Envelope{Code: CodeFailure, Msg: "wrong password", ErrorType: "WRONG_PASSWORD"})
			return
		}
		f.mu.Lock()
		env := Envelope{Code: CodeSuccess, Msg: "login successful", Data: json.RawMessage(`{"id":1,"username":"alice"}`),
			AccessToken: f.access, RefreshToken: f.refresh}
		f.mu.Unlock()
		writeEnvelope(w, http.StatusOK, env)

	case "/user/refresh":
		f.refreshCalls.Add(1)
		time.Sleep(f.refreshDelay)
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)

		f.mu.Lock()
		defer f.mu.Unlock()
		if body["refreshToken"] != f.refresh {
			writeEnvelope(w, http.StatusUnauthorized, Envelope{Code: CodeFailure, Msg: "invalid refresh token", ErrorType: "UNAUTHORIZED"})
			return
		}
		f.generation++
		f.access = "access-" + strconv.Itoa(f.generation)
		f.refresh = "refresh-" + strconv.Itoa(f.generation)
		writeEnvelope(w, http.StatusOK, Envelope{Code: CodeSuccess, Msg: "refresh successful", AccessToken: f.access, RefreshToken: f.refresh})

	case "/post/list":
		if !f.authorized(r) {
			writeEnvelope(w, http.StatusUnauthorized, Envelope{Code: CodeFailure, Msg: "token expired", ErrorType: "UNAUTHORIZED"})
			return
		}
		writeEnvelope(w, http.StatusOK, Envelope{Code: CodeSuccess, Msg: "ok", Data: json.RawMessage(`[{"id":7,"content":"hello campus"}]`)})

	case "/post/publish":
		if !f.authorized(r) {
			writeEnvelope(w, http.StatusUnauthorized, Envelope{Code: CodeFailure, Msg: "token expired"})
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			writeEnvelope(w, http.StatusBadRequest, Envelope{Code: CodeFailure, Msg: err.Error()})
			return
		}
		file, _, err := r.FormFile("image")
		if err != nil {
			writeEnvelope(w, http.StatusBadRequest, Envelope{Code: CodeFailure, Msg: "image missing"})
			return
		}
		raw, _ := io.ReadAll(file)
		data, _ := json.Marshal(Post{ID: 9, Content: r.FormValue("content"), ImageURL: "/uploads/" + string(raw)})
		writeEnvelope(w, http.StatusOK, Envelope{Code: CodeSuccess, Data: data})

	case "/message/read":
		if !f.authorized(r) {
			writeEnvelope(w, http.StatusUnauthorized, Envelope{Code: CodeFailure})
			return
		}
		writeEnvelope(w, http.StatusOK, Envelope{Code: CodeSuccess, Data: json.RawMessage(`{"updated":3}`)})

	case "/message/send":
		writeEnvelope(w, http.StatusInternalServerError, Envelope{Code: CodeSystem, Msg: "database error, please try again later", ErrorType: "DATABASE_QUERY_ERROR"})

	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return New(srv.URL)
}

func login(t *testing.T, c *Client) {
	t.Helper()
	_, err := c.Login(context.Background(), "alice", "secret1")
	require.NoError(t, err)
}

func TestLoginStoresTokens(t *testing.T) {
	api := newFakeAPI()
	c := newTestClient(t, api)

	u, err := c.Login(context.Background(), "alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, uint(1), u.ID)
	assert.Equal(t, Tokens{AccessToken: "access-1", RefreshToken: "refresh-1"}, c.Session().Tokens())

	posts, err := c.Feed(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "hello campus", posts[0].Content)
	assert.Zero(t, api.refreshCalls.Load())
}

func TestBusinessFailureIsAPIError(t *testing.T) {
	c := newTestClient(t, newFakeAPI())

	_, err := c.Login(context.Background(), "alice", "nope")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusOK, apiErr.StatusCode)
	assert.Equal(t, CodeFailure, apiErr.Code)
	assert.Equal(t, "WRONG_PASSWORD", apiErr.ErrorType)
	assert.Empty(t, c.Session().Tokens().AccessToken)
}

func TestSystemFailureIsAPIError(t *testing.T) {
	api := newFakeAPI()
	c := newTestClient(t, api)
	login(t, c)

	_, err := c.Send(context.Background(), 2, "hi")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, CodeSystem, apiErr.Code)
}

func TestUnauthenticatedCallNeedsLogin(t *testing.T) {
	c := newTestClient(t, newFakeAPI())
	_, err := c.Feed(context.Background())
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestRefreshOn401ThenRetry(t *testing.T) {
	api := newFakeAPI()
	c := newTestClient(t, api)
	login(t, c)
	api.expireAccess()

	n, err := c.MarkRead(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, int32(1), api.refreshCalls.Load())
	assert.Equal(t, "refresh-3", c.Session().Tokens().RefreshToken)
}

func TestConcurrent401sShareOneRefresh(t *testing.T) {
	api := newFakeAPI()
	api.refreshDelay = 50 * time.Millisecond
	c := newTestClient(t, api)
	login(t, c)
	api.expireAccess()

	const callers = 10
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Feed(context.Background())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), api.refreshCalls.Load())
}

func TestRefreshFailureClearsSession(t *testing.T) {
	api := newFakeAPI()
	c := newTestClient(t, api)
	login(t, c)

	api.mu.Lock()
	api.access = "rotated"
	api.refresh = "revoked"
	api.mu.Unlock()

	_, err := c.Feed(context.Background())
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, Tokens{}, c.Session().Tokens())
	assert.Equal(t, int32(1), api.refreshCalls.Load())
}

func TestRetryIsAttemptedOnce(t *testing.T) {
	api := newFakeAPI()
	c := newTestClient(t, api)
	login(t, c)

	api.mu.Lock()
	api.rejectAll = true
	api.mu.Unlock()

	_, err := c.Feed(context.Background())
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, int32(1), api.refreshCalls.Load())
}

func TestPublishSendsMultipart(t *testing.T) {
	api := newFakeAPI()
	c := newTestClient(t, api)
	login(t, c)
	api.expireAccess()

	post, err := c.Publish(context.Background(), PublishInput{
		Content:   "sunset over the quad",
		Image:     strings.NewReader("pixels"),
		ImageName: "sunset.png",
	})
	require.NoError(t, err)
	assert.Equal(t, "sunset over the quad", post.Content)
	assert.Equal(t, "/uploads/pixels", post.ImageURL, "body is replayed intact after refresh")
}

func TestWatchReceivesEvents(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws" || r.URL.Query().Get("token") != "access-1" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"message.new","payload":{"id":4,"content":"hey"}}`))
		// Hold the connection until the client closes it.
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	c := New(srv.URL)
	require.NoError(t, c.Session().SetTokens(Tokens{AccessToken: "access-1", RefreshToken: "refresh-1"}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got := make(chan Event, 1)
	err := c.Watch(ctx, func(ev Event) {
		got <- ev
		cancel()
	})
	require.NoError(t, err)

	ev := <-got
	assert.Equal(t, EventMessageNew, ev.Type)
	var msg Message
	require.NoError(t, json.Unmarshal(ev.Payload, &msg))
	assert.Equal(t, "hey", msg.Content)
}

func TestCancelledCallerDoesNotAbortSharedRefresh(t *testing.T) {
	api := newFakeAPI()
	api.refreshDelay = 200 * time.Millisecond
	c := newTestClient(t, api)
	login(t, c)
	api.expireAccess()

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := c.Feed(ctx)
		first <- err
	}()
	require.Eventually(t, func() bool { return api.refreshCalls.Load() == 1 }, time.Second, 5*time.Millisecond)

	second := make(chan error, 1)
	go func() {
		_, err := c.Feed(context.Background())
		second <- err
	}()
	cancel()

	assert.ErrorIs(t, <-first, context.Canceled)
	require.NoError(t, <-second)
	assert.Equal(t, int32(1), api.refreshCalls.Load())
	assert.Equal(t, "refresh-3", c.Session().Tokens().RefreshToken)
}
