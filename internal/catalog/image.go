package catalog

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MaxImageBytes bounds uploaded product pictures.
const MaxImageBytes = 2 << 20

var (
	ErrNotAnImage    = errors.New("not_an_image")
	ErrImageTooLarge = errors.New("image_too_large")
)

// ImageDataURL reads an uploaded file and returns it as a data URL, suitable for
// Product.Image. Only image/* content is accepted, whatever the file name says.
func ImageDataURL(r io.Reader, limit int64) (string, error) {
	if limit <= 0 {
		limit = MaxImageBytes
	}
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if int64(len(b)) > limit {
		return "", ErrImageTooLarge
	}
	mt := mimetype.Detect(b)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", fmt.Errorf("%w: %s", ErrNotAnImage, mt.String())
	}
	return "data:" + mt.String() + ";base64," + base64.StdEncoding.EncodeToString(b), nil
}
