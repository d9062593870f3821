// Package imagestore validates, shrinks and stores images inserted into the editor.
package imagestore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"slices"
	"strings"
)

// MaxFileSize is the upload ceiling.
const MaxFileSize = 5 << 20

var (
	AllowedTypes      = []string{"image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp"}
	AllowedExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp"}
)

var (
	ErrUnsupportedType = errors.New("unsupported image type, use JPG, PNG, GIF or WebP")
	ErrFileTooLarge    = errors.New("image must not exceed 5MB")
	ErrNoFile          = errors.New("no file selected")
)

// File is an image picked or dropped by the user.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

func (f File) Size() int { return len(f.Data) }

// DataURL encodes the file for a local preview.
func (f File) DataURL() string {
	return "data:" + f.ContentType + ";base64," + base64.StdEncoding.EncodeToString(f.Data)
}

// Validate checks the MIME type and the size ceiling. An empty content
// type is sniffed from the data.
func Validate(f File) error {
	ct := strings.ToLower(f.ContentType)
	if ct == "" {
		ct = http.DetectContentType(f.Data)
	}
	if !slices.Contains(AllowedTypes, ct) {
		return fmt.Errorf("%w: %q", ErrUnsupportedType, ct)
	}
	if f.Size() > MaxFileSize {
		return ErrFileTooLarge
	}
	return nil
}

// ValidateName checks the file extension the way the upload endpoint does.
func ValidateName(name string) error {
	if name == "" {
		return ErrNoFile
	}
	if !slices.Contains(AllowedExtensions, strings.ToLower(filepath.Ext(name))) {
		return ErrUnsupportedType
	}
	return nil
}

// Store uploads an image and returns its public URL.
type Store interface {
	Upload(ctx context.Context, f File) (string, error)
}

// UploadError is a failed upload. Message is safe to show to the user.
type UploadError struct {
	Message string
	Status  int
	Err     error
}

func (e *UploadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upload image: %s: %v", e.Message, e.Err)
	}
	return "upload image: " + e.Message
}

func (e *UploadError) Unwrap() error { return e.Err }

// Compressing shrinks files with Compress before handing them to s.
func Compressing(s Store) Store {
	return compressingStore{s}
}

type compressingStore struct {
	Store
}

func (s compressingStore) Upload(ctx context.Context, f File) (string, error) {
	compressed, err := Compress(f)
	if err != nil {
		return "", &UploadError{Message: "failed to compress image", Err: err}
	}
	return s.Store.Upload(ctx, compressed)
}
