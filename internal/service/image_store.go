package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"math/rand/v2"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"time"

	"campusfeed/internal/config"
	"campusfeed/internal/models"
	"campusfeed/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	xdraw "golang.org/x/image/draw"
)

const (
	DefaultUploadDir      = "public/uploads"
	DefaultMaxUploadBytes = 5 * 1024 * 1024
	DefaultImageMaxWidth  = 1600
	UploadURLPrefix       = "/uploads"
	JPEGQuality           = 85
)

var imageExtensions = map[string]string{
	"jpeg": ".jpg",
	"png":  ".png",
	"gif":  ".gif",
}

// StoredImage is an uploaded file written to the upload directory.
type StoredImage struct {
	Name string
	Path string
	URL  string
}

// ImageStore validates post images and writes them under the upload directory.
type ImageStore struct {
	dir      string
	maxBytes int64
	maxWidth int
	now      func() time.Time
	suffix   func() int
}

func NewImageStore(cfg *config.Config) *ImageStore {
	s := &ImageStore{
		dir:      DefaultUploadDir,
		maxBytes: DefaultMaxUploadBytes,
		maxWidth: DefaultImageMaxWidth,
		now:      time.Now,
		suffix:   func() int { return 100000000 + rand.IntN(900000000) },
	}
	if cfg != nil {
		if cfg.UploadDir != "" {
			s.dir = cfg.UploadDir
		}
		if cfg.MaxUploadBytes > 0 {
			s.maxBytes = cfg.MaxUploadBytes
		}
		if cfg.ImageMaxWidth > 0 {
			s.maxWidth = cfg.ImageMaxWidth
		}
	}
	return s
}

// Save checks content is a JPEG, PNG or GIF within the size limit, downscales wide
// stills and writes the result as post-<unixms>-<9 digits><ext>.
func (s *ImageStore) Save(ctx context.Context, content []byte) (*StoredImage, error) {
	_, span := observability.StartSpan(ctx, "image.save", attribute.Int("image.bytes", len(content)))
	defer span.End()

	if len(content) == 0 {
		return nil, models.NewValidationError("image file is empty")
	}
	if int64(len(content)) > s.maxBytes {
		return nil, models.NewValidationError(fmt.Sprintf("image must not exceed %dMB", s.maxBytes/(1024*1024)))
	}

	switch http.DetectContentType(content) {
	case "image/jpeg", "image/png", "image/gif":
	default:
		return nil, models.NewValidationError("only JPEG, PNG and GIF images are allowed")
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		return nil, models.NewValidationError("invalid image file")
	}
	ext, ok := imageExtensions[format]
	if !ok {
		return nil, models.NewValidationError("only JPEG, PNG and GIF images are allowed")
	}

	// Headers alone are not enough: a truncated body must not reach the upload dir.
	var src image.Image
	if format == "gif" {
		if _, err := gif.DecodeAll(bytes.NewReader(content)); err != nil {
			return nil, models.NewValidationError("invalid image file")
		}
	} else if src, _, err = image.Decode(bytes.NewReader(content)); err != nil {
		return nil, models.NewValidationError("invalid image file")
	}

	// GIFs are kept as uploaded so animation survives.
	span.SetAttributes(attribute.String("image.format", format), attribute.Int("image.width", cfg.Width))
	if src != nil && cfg.Width > s.maxWidth {
		span.AddEvent("downscale")
		content, err = s.downscale(src, format)
		if err != nil {
			return nil, err
		}
	}

	name := fmt.Sprintf("post-%d-%d%s", s.now().UnixMilli(), s.suffix(), ext)
	full := filepath.Join(s.dir, name)
	if err := writeBytesToFile(full, content); err != nil {
		return nil, models.NewInternalError(err)
	}

	return &StoredImage{
		Name: name,
		Path: full,
		URL:  path.Join(UploadURLPrefix, name),
	}, nil
}

// Remove deletes a stored image. Missing files are ignored.
func (s *ImageStore) Remove(img *StoredImage) {
	if img == nil {
		return
	}
	_ = os.Remove(img.Path)
}

func (s *ImageStore) downscale(src image.Image, format string) ([]byte, error) {
	resized := resizeToWidth(src, s.maxWidth)

	var err error
	buf := bytes.NewBuffer(nil)
	switch format {
	case "jpeg":
		err = jpeg.Encode(buf, resized, &jpeg.Options{Quality: JPEGQuality})
	default:
		err = png.Encode(buf, resized)
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return buf.Bytes(), nil
}

func resizeToWidth(src image.Image, maxWidth int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxWidth || w <= 0 || h <= 0 {
		return src
	}

	newH := int(float64(h) * float64(maxWidth) / float64(w))
	if newH < 1 {
		newH = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func writeBytesToFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
