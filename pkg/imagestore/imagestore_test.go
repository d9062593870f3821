package imagestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngFile(t *testing.T, w, h int) File {
	t.Helper()
	rnd := rand.New(rand.NewSource(1))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(rnd.Intn(256)), G: uint8(rnd.Intn(256)), B: uint8(rnd.Intn(256)), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return File{Name: "photo.png", ContentType: "image/png", Data: buf.Bytes()}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		file File
		err  error
	}{
		{"jpeg", File{ContentType: "image/jpeg", Data: []byte("x")}, nil},
		{"jpg alias", File{ContentType: "image/jpg", Data: []byte("x")}, nil},
		{"webp", File{ContentType: "image/webp", Data: []byte("x")}, nil},
		{"upper case", File{ContentType: "IMAGE/PNG", Data: []byte("x")}, nil},
		{"svg", File{ContentType: "image/svg+xml", Data: []byte("<svg/>")}, ErrUnsupportedType},
		{"pdf", File{ContentType: "application/pdf", Data: []byte("%PDF")}, ErrUnsupportedType},
		{"too large", File{ContentType: "image/png", Data: make([]byte, MaxFileSize+1)}, ErrFileTooLarge},
		{"exactly the limit", File{ContentType: "image/png", Data: make([]byte, MaxFileSize)}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.file)
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestValidateSniffsMissingType(t *testing.T) {
	f := pngFile(t, 4, 4)
	f.ContentType = ""
	assert.NoError(t, Validate(f))

	assert.ErrorIs(t, Validate(File{Data: []byte("plain text")}), ErrUnsupportedType)
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("a.JPG"))
	assert.NoError(t, ValidateName("b.webp"))
	assert.ErrorIs(t, ValidateName("c.bmp"), ErrUnsupportedType)
	assert.ErrorIs(t, ValidateName("noext"), ErrUnsupportedType)
	assert.ErrorIs(t, ValidateName(""), ErrNoFile)
}

func TestQuality(t *testing.T) {
	assert.Equal(t, 80, Quality(500<<10))
	assert.Equal(t, 80, Quality(1<<20))
	assert.Equal(t, 70, Quality(1<<20+1))
	assert.Equal(t, 60, Quality(3<<20))
}

func TestCompress(t *testing.T) {
	t.Run("large image fits the box", func(t *testing.T) {
		out, err := Compress(pngFile(t, 1600, 900))
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", out.ContentType)
		assert.Equal(t, "photo.jpg", out.Name)

		cfg, err := jpeg.DecodeConfig(bytes.NewReader(out.Data))
		require.NoError(t, err)
		assert.LessOrEqual(t, cfg.Width, MaxWidth)
		assert.LessOrEqual(t, cfg.Height, MaxHeight)
	})

	t.Run("gif is untouched", func(t *testing.T) {
		in := File{Name: "a.gif", ContentType: "image/gif", Data: []byte("GIF89a")}
		out, err := Compress(in)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("undecodable data is untouched", func(t *testing.T) {
		in := File{Name: "a.png", ContentType: "image/png", Data: []byte("broken")}
		out, err := Compress(in)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})
}

func TestClientUpload(t *testing.T) {
	t.Run("url field", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			file, header, err := r.FormFile(FormField)
			if !assert.NoError(t, err) {
				return
			}
			defer file.Close()
			data, _ := io.ReadAll(file)
			assert.Equal(t, "cat.png", header.Filename)
			assert.Equal(t, []byte("img"), data)

			json.NewEncoder(w).Encode(Response{Success: true, URL: "https://cdn.example.com/cat.png"})
		}))
		defer srv.Close()

		url, err := NewClient(srv.URL).Upload(context.Background(), File{Name: "cat.png", ContentType: "image/png", Data: []byte("img")})
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/cat.png", url)
	})

	t.Run("image_url field", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"success": true, "image_url": "/static/uploads/images/x.png"}`))
		}))
		defer srv.Close()

		url, err := NewClient(srv.URL).Upload(context.Background(), File{Name: "x.png", ContentType: "image/png", Data: []byte("img")})
		require.NoError(t, err)
		assert.Equal(t, "/static/uploads/images/x.png", url)
	})

	t.Run("server message is surfaced", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"success": false, "message": "file too big"}`))
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL).Upload(context.Background(), File{Name: "x.png", ContentType: "image/png", Data: []byte("img")})
		var upErr *UploadError
		require.True(t, errors.As(err, &upErr))
		assert.Equal(t, "file too big", upErr.Message)
		assert.Equal(t, http.StatusBadRequest, upErr.Status)
	})

	t.Run("garbage response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>oops</html>`))
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL).Upload(context.Background(), File{Name: "x.png", ContentType: "image/png", Data: []byte("img")})
		var upErr *UploadError
		require.True(t, errors.As(err, &upErr))
		assert.Contains(t, upErr.Message, "unexpected response")
	})
}

type recordingStore struct {
	got File
}

func (s *recordingStore) Upload(_ context.Context, f File) (string, error) {
	s.got = f
	return "https://cdn.example.com/" + f.Name, nil
}

func TestCompressing(t *testing.T) {
	rec := &recordingStore{}
	url, err := Compressing(rec).Upload(context.Background(), pngFile(t, 1200, 1200))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/photo.jpg", url)
	assert.Equal(t, "image/jpeg", rec.got.ContentType)
}

func TestObjectName(t *testing.T) {
	name := ObjectName("../../etc/my photo!.png")
	prefix, base, ok := strings.Cut(name, "_")
	require.True(t, ok)
	assert.Len(t, prefix, 32)
	assert.Equal(t, "my_photo.png", base)

	assert.True(t, strings.HasSuffix(ObjectName("..."), "_image"))
	assert.NotEqual(t, ObjectName("a.png"), ObjectName("a.png"))
}
