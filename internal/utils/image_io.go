// Package utils holds image loading and drawing helpers shared by the
// scanner, the CLI and the server.
package utils

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrUnsupportedFormat is returned for files whose extension no registered
// decoder handles.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// ImageProcessingError wraps a failure with the operation that hit it.
type ImageProcessingError struct {
	Operation string
	Path      string
	Err       error
}

func (e *ImageProcessingError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("image %s %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("image %s: %v", e.Operation, e.Err)
}

func (e *ImageProcessingError) Unwrap() error { return e.Err }

// SupportedImageExtensions lists the extensions LoadImage accepts.
var SupportedImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff", ".webp"}

// IsSupportedImage reports whether path has a supported image extension.
func IsSupportedImage(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range SupportedImageExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// ImageMetadata captures file and pixel information of a loaded image.
type ImageMetadata struct {
	Path      string `json:"path,omitempty"`
	Format    string `json:"format"`
	SizeBytes int64  `json:"size_bytes,omitempty"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// ImageConstraints bounds accepted image dimensions. Zero fields are not
// checked.
type ImageConstraints struct {
	MinWidth  int
	MinHeight int
	MaxPixels int
}

// Validate checks img against c.
func (c ImageConstraints) Validate(img image.Image) error {
	if img == nil {
		return &ImageProcessingError{Operation: "validate", Err: errors.New("nil image")}
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < c.MinWidth || h < c.MinHeight {
		return &ImageProcessingError{
			Operation: "validate",
			Err:       fmt.Errorf("image too small: %dx%d < %dx%d", w, h, c.MinWidth, c.MinHeight),
		}
	}
	if c.MaxPixels > 0 && w*h > c.MaxPixels {
		return &ImageProcessingError{
			Operation: "validate",
			Err:       fmt.Errorf("image too large: %dx%d exceeds %d pixels", w, h, c.MaxPixels),
		}
	}
	return nil
}

// LoadImage opens and decodes an image file from the OS filesystem.
func LoadImage(path string) (image.Image, ImageMetadata, error) {
	return LoadImageFS(afero.NewOsFs(), path)
}

// LoadImageFS opens and decodes an image file from fsys.
func LoadImageFS(fsys afero.Fs, path string) (image.Image, ImageMetadata, error) {
	if path == "" {
		return nil, ImageMetadata{}, &ImageProcessingError{Operation: "load", Err: errors.New("empty path")}
	}
	if !IsSupportedImage(path) {
		return nil, ImageMetadata{}, &ImageProcessingError{
			Operation: "load",
			Path:      path,
			Err:       fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path)),
		}
	}

	f, err := fsys.Open(path)
	if err != nil {
		return nil, ImageMetadata{}, &ImageProcessingError{Operation: "load", Path: path, Err: err}
	}
	defer func() { _ = f.Close() }()

	fi, err := f.Stat()
	if err != nil {
		return nil, ImageMetadata{}, &ImageProcessingError{Operation: "load", Path: path, Err: err}
	}

	img, meta, err := DecodeImage(f)
	if err != nil {
		var ipe *ImageProcessingError
		if errors.As(err, &ipe) {
			ipe.Path = path
		}
		return nil, ImageMetadata{}, err
	}
	meta.Path = path
	meta.SizeBytes = fi.Size()
	return img, meta, nil
}

// DecodeImage decodes any registered image format from r.
func DecodeImage(r io.Reader) (image.Image, ImageMetadata, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, ImageMetadata{}, &ImageProcessingError{Operation: "decode", Err: err}
	}
	b := img.Bounds()
	return img, ImageMetadata{Format: format, Width: b.Dx(), Height: b.Dy()}, nil
}
