package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"campusfeed/internal/auth"
	"campusfeed/internal/config"
	"campusfeed/internal/models"
	"campusfeed/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	server *Server
	app    *fiber.App
	db     *gorm.DB
	redis  *redis.Client
	cfg    *config.Config
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Port:            "0",
		Env:             "test",
		AllowedOrigins:  "http://localhost:5173",
		FeatureFlags:    "realtime_push=on",
		JWTSecret:       "server-test-secret-0123456789abcdef",
		JWTIssuer:       "campusfeed-api",
		JWTAudience:     "campusfeed-client",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		PublicDir:       t.TempDir(),
		UploadDir:       t.TempDir(),
		MaxUploadBytes:  1 << 20,
		ImageMaxWidth:   64,
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := testConfig(t)
	db := testutil.NewSQLiteDB(t)

	s, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)

	return &testEnv{server: s, app: s.NewApp(), db: db, redis: rdb, cfg: cfg}
}

// tokenFor issues an access token for an existing user without going through login.
func (e *testEnv) tokenFor(t *testing.T, u *models.User) string {
	t.Helper()
	pair, err := e.server.tokens.Issue(auth.Identity{
		UserID:   u.ID,
		Username: u.Username,
		Nickname: u.Nickname,
		Avatar:   u.Avatar,
	})
	require.NoError(t, err)
	return pair.AccessToken
}

type envelope struct {
	Code         string          `json:"code"`
	Msg          string          `json:"msg"`
	Data         json.RawMessage `json:"data"`
	ErrorType    string          `json:"errorType"`
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken"`
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return e.send(t, req)
}

func (e *testEnv) send(t *testing.T, req *http.Request) (int, envelope) {
	t.Helper()

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), "body: %s", raw)
	}
	return resp.StatusCode, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out), "data: %s", raw)
	return out
}

func multipartBody(t *testing.T, fields map[string]string, image []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if image != nil {
		part, err := w.CreateFormFile("image", "photo.png")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf, w.FormDataContentType()
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: uint8(y), B: uint8(x), A: 255})
		}
	}
	buf := &bytes.Buffer{}
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = env.app.Test(httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "healthy", body.Checks["database"])
	assert.Equal(t, "healthy", body.Checks["redis"])
}

func TestReadinessWithoutRedis(t *testing.T) {
	cfg := testConfig(t)
	s, err := NewServerWithDeps(cfg, testutil.NewSQLiteDB(t), nil)
	require.NoError(t, err)
	app := s.NewApp()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "disabled", body.Checks["redis"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)
	u := testutil.CreateUser(t, env.db, "alice")

	routes := []struct{ method, path string }{
		{http.MethodGet, "/post/list"},
		{http.MethodGet, "/post/favorites"},
		{http.MethodPost, "/post/likes"},
		{http.MethodGet, "/message/list"},
		{http.MethodPost, "/message/send"},
		{http.MethodGet, "/user/profile"},
		{http.MethodPut, "/user/update"},
	}
	for _, r := range routes {
		t.Run(r.method+" "+r.path, func(t *testing.T) {
			status, body := env.do(t, r.method, r.path, "", nil)
			assert.Equal(t, http.StatusUnauthorized, status)
			assert.Equal(t, models.EnvelopeFailure, body.Code)
			assert.Equal(t, models.CodeUnauthorized, body.ErrorType)
		})
	}

	t.Run("refresh token is not an access token", func(t *testing.T) {
		pair, err := env.server.tokens.Issue(auth.Identity{UserID: u.ID, Username: u.Username})
		require.NoError(t, err)
		status, _ := env.do(t, http.MethodGet, "/post/list", pair.RefreshToken, nil)
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("garbage token", func(t *testing.T) {
		status, _ := env.do(t, http.MethodGet, "/post/list", "not-a-jwt", nil)
		assert.Equal(t, http.StatusUnauthorized, status)
	})
}

func TestParseIDRejectsBadParams(t *testing.T) {
	env := newTestEnv(t)
	token := env.tokenFor(t, testutil.CreateUser(t, env.db, "alice"))

	for _, path := range []string{"/post/detail/abc", "/post/detail/0", "/post/user/-3", "/message/chat/x"} {
		status, body := env.do(t, http.MethodGet, path, token, nil)
		assert.Equal(t, http.StatusBadRequest, status, path)
		assert.Equal(t, models.CodeValidation, body.ErrorType, path)
	}
}

func TestHumanizeParam(t *testing.T) {
	assert.Equal(t, "id", humanizeParam("id"))
	assert.Equal(t, "user id", humanizeParam("userId"))
	assert.Equal(t, "chat user id", humanizeParam("chatUserId"))
	assert.Equal(t, "token", humanizeParam("token"))
}

func TestWebsocketRequiresUpgrade(t *testing.T) {
	env := newTestEnv(t)
	token := env.tokenFor(t, testutil.CreateUser(t, env.db, "alice"))

	status, _ := env.do(t, http.MethodGet, "/ws", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := env.do(t, http.MethodGet, "/ws?token="+token, "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, models.CodeValidation, body.ErrorType)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/post/list", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	resp, err := env.app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
}
