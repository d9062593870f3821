package imagestore

import (
	"bytes"
	"context"
	"log/slog"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore keeps uploaded images in an S3 compatible bucket.
type MinioStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewMinioStore connects to the bucket and creates it when missing. Objects
// are served from publicURL; an empty value means the endpoint itself.
func NewMinioStore(ctx context.Context, endpoint, accessKeyID, secretAccessKey string, useSSL bool, bucket, publicURL string) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
	}

	if publicURL == "" {
		scheme := "http"
		if useSSL {
			scheme = "https"
		}
		publicURL = scheme + "://" + endpoint + "/" + bucket
	}

	return &MinioStore{client: client, bucket: bucket, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

func (s *MinioStore) Upload(ctx context.Context, f File) (string, error) {
	name := ObjectName(f.Name)

	_, err := s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(f.Data), int64(f.Size()),
		minio.PutObjectOptions{ContentType: f.ContentType})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		slog.Error("Upload image to minio", "object", name, "code", resp.StatusCode, "msg", resp.Message)
		return "", &UploadError{Message: "failed to store image", Status: resp.StatusCode, Err: err}
	}

	return s.URL(name), nil
}

// URL is the public address of an object.
func (s *MinioStore) URL(name string) string {
	return s.publicURL + "/" + url.PathEscape(name)
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ObjectName prefixes a cleaned file name with a random id so uploads never collide.
func ObjectName(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	base = unsafeNameChars.ReplaceAllString(strings.ReplaceAll(base, " ", "_"), "")
	base = strings.TrimLeft(base, "._")
	if base == "" {
		base = "image"
	}
	return strings.ReplaceAll(uuid.NewString(), "-", "") + "_" + base
}
