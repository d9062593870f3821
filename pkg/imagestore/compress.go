package imagestore

import (
	"bytes"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/nfnt/resize"
)

// Compressed images fit into this box.
const (
	MaxWidth  = 800
	MaxHeight = 600
)

// Quality picks the JPEG quality for an original of the given size.
func Quality(size int) int {
	switch {
	case size > 2<<20:
		return 60
	case size > 1<<20:
		return 70
	}
	return 80
}

// Compress scales the image down to the MaxWidth x MaxHeight box and
// re-encodes it as JPEG. Animated GIFs, WebP and anything that fails to
// decode are returned unchanged, as is an image that would grow.
func Compress(f File) (File, error) {
	switch strings.ToLower(f.ContentType) {
	case "image/gif", "image/webp":
		return f, nil
	}

	img, format, err := image.Decode(bytes.NewReader(f.Data))
	if err != nil {
		slog.Debug("Skip image compression", "name", f.Name, "err", err)
		return f, nil
	}

	b := img.Bounds()
	if b.Dx() > MaxWidth || b.Dy() > MaxHeight {
		img = resize.Thumbnail(MaxWidth, MaxHeight, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: Quality(f.Size())}); err != nil {
		return f, err
	}
	if buf.Len() >= f.Size() {
		return f, nil
	}

	slog.Debug("Compressed image", "name", f.Name, "format", format, "from", f.Size(), "to", buf.Len())

	return File{
		Name:        strings.TrimSuffix(f.Name, filepath.Ext(f.Name)) + ".jpg",
		ContentType: "image/jpeg",
		Data:        buf.Bytes(),
	}, nil
}
