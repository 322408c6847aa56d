package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"campusfeed/internal/auth"
	"campusfeed/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "service-test-secret-0123456789abcdef"

func newTestTokens(now func() time.Time) *auth.TokenManager {
	return auth.NewTokenManager(auth.Options{
		Secret:     testSecret,
		Issuer:     "campusfeed-api",
		Audience:   "campusfeed-client",
		AccessTTL:  time.Hour,
		RefreshTTL: 7 * 24 * time.Hour,
		Now:        now,
	})
}

// assertAppError asserts that err is an AppError with the given code.
func assertAppError(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertAppError(t, err, models.CodeValidation)
}

func tinyPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}
	buf := bytes.NewBuffer(nil)
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

// eventRecorder captures published realtime events.
type eventRecorder struct {
	err    error
	events []recordedEvent
}

type recordedEvent struct {
	userID    uint
	eventType string
	payload   any
}

func (r *eventRecorder) PublishEvent(_ context.Context, userID uint, eventType string, payload any) error {
	r.events = append(r.events, recordedEvent{userID: userID, eventType: eventType, payload: payload})
	return r.err
}
