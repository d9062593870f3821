package editor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rich-edit/pkg/document"
	"rich-edit/pkg/imagestore"
)

func TestLink(t *testing.T) {
	e := newEditor(t, `<p>visit site now</p>`)
	e.Select(sel(At(6, 0), At(10, 0)))

	draft, err := e.BeginLink()
	require.NoError(t, err)
	assert.Equal(t, "site", draft.Text)
	assert.Empty(t, draft.URL)

	before := e.Content()
	err = e.ConfirmLink("site", "not a url")
	assert.ErrorIs(t, err, ErrInvalidURL)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "url", verr.Field)
	assert.Equal(t, before, e.Content())

	assert.ErrorIs(t, e.ConfirmLink("  ", "https://example.com"), ErrEmptyLinkText)
	assert.Equal(t, before, e.Content())

	require.NoError(t, e.ConfirmLink("site", "https://example.com"))
	assert.Equal(t, `<p>visit <a href="https://example.com">site</a> now</p>`, e.Content())
	got, _ := e.Selection()
	assert.Equal(t, Cursor(At(10, 0)), got)
	assert.Equal(t, "https://example.com", e.State().Link)

	_, ok := e.PendingLink()
	assert.False(t, ok)
	assert.ErrorIs(t, e.ConfirmLink("site", "https://example.com"), ErrNoLinkDraft)
}

func TestLinkNeedsSelection(t *testing.T) {
	e := newEditor(t, `<p>text</p>`)
	e.SetCursor(At(2, 0))

	_, err := e.BeginLink()
	assert.ErrorIs(t, err, ErrEmptySelection)

	e.Select(sel(At(0, 0), At(4, 0)))
	_, err = e.BeginLink()
	require.NoError(t, err)
	e.CancelLink()
	_, ok := e.PendingLink()
	assert.False(t, ok)
}

func TestLinkEditsExistingLink(t *testing.T) {
	e := newEditor(t, `<p><a href="https://old.example">old</a></p>`)
	e.SelectAll()

	draft, err := e.BeginLink()
	require.NoError(t, err)
	assert.Equal(t, "https://old.example", draft.URL)

	require.NoError(t, e.ConfirmLink("new", "https://new.example/path?q=1"))
	assert.Equal(t, `<p><a href="https://new.example/path?q=1">new</a></p>`, e.Content())
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		url string
		ok  bool
	}{
		{"https://example.com", true},
		{"http://localhost:8080/a", true},
		{"mailto:someone@example.com", true},
		{"not a url", false},
		{"example.com", false},
		{"/relative/path", false},
		{"https://", false},
		{"javascript:alert(1)", false},
		{"ftp://example.com/file", false},
		{"tel:+123456", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidURL)
			}
		})
	}
}

func TestValidURLsSurviveReload(t *testing.T) {
	urls := []string{
		"https://example.com/a.png",
		"http://localhost:8080/a?q=1",
		"mailto:someone@example.com",
		"ftp://example.com/file",
		"tel:+123456",
		"gopher://example.com/a",
	}
	for _, u := range urls {
		t.Run(u, func(t *testing.T) {
			if ValidateURL(u) != nil {
				return
			}

			e := newEditor(t, `<p>site</p>`)
			e.SelectAll()
			_, err := e.BeginLink()
			require.NoError(t, err)
			require.NoError(t, e.ConfirmLink("site", u))
			e.SetCursor(At(4, 0))
			require.NoError(t, e.InsertImageURL(u, ""))

			before := e.Content()
			require.NoError(t, e.SetContent(before))
			assert.Equal(t, before, e.Content())
			assert.Contains(t, e.Content(), "<a ")
			assert.Contains(t, e.Content(), "<img ")
		})
	}
}

func TestInsertImageURL(t *testing.T) {
	e := newEditor(t, `<p>ab</p>`)
	e.SetCursor(At(1, 0))

	require.NoError(t, e.InsertImageURL("https://example.com/a.png", "pic"))
	content := e.Document().Children[0].Content
	require.Len(t, content, 3)
	assert.Equal(t, document.InlineImage, content[1].Kind)
	assert.Equal(t, document.Image{Src: "https://example.com/a.png", Alt: "pic"}, *content[1].Image)
	got, _ := e.Selection()
	assert.Equal(t, Cursor(At(2, 0)), got)

	assert.ErrorIs(t, e.InsertImageURL("nope", ""), ErrInvalidURL)
}

func TestInsertImageIntoCodeBlock(t *testing.T) {
	e := newEditor(t, `<pre><code>x</code></pre>`)
	e.SetCursor(At(1, 0))

	require.NoError(t, e.InsertImageURL("https://example.com/a.png", ""))
	doc := e.Document()
	require.Len(t, doc.Children, 2)
	assert.Equal(t, "x", doc.Children[0].Code)
	assert.Equal(t, document.InlineImage, doc.Children[1].Content[0].Kind)
}

type fakeStore struct {
	url   string
	err   error
	files []imagestore.File
}

func (s *fakeStore) Upload(_ context.Context, f imagestore.File) (string, error) {
	s.files = append(s.files, f)
	return s.url, s.err
}

func pngFile(size int) imagestore.File {
	return imagestore.File{Name: "a.png", ContentType: "image/png", Data: make([]byte, size)}
}

func TestUploadImage(t *testing.T) {
	t.Run("inserts the returned url", func(t *testing.T) {
		store := &fakeStore{url: "https://cdn.example.com/a.png"}
		e, err := New(Options{Content: `<p>a</p>`, ImageStore: store})
		require.NoError(t, err)
		e.Focus()
		e.SetCursor(At(1, 0))

		require.NoError(t, e.UploadImage(context.Background(), pngFile(10)))
		require.Len(t, store.files, 1)
		content := e.Document().Children[0].Content
		require.Len(t, content, 2)
		assert.Equal(t, "https://cdn.example.com/a.png", content[1].Image.Src)
		assert.Zero(t, e.Pending())
	})

	t.Run("validation errors leave the document alone", func(t *testing.T) {
		store := &fakeStore{url: "https://cdn.example.com/a.png"}
		e, err := New(Options{Content: `<p>a</p>`, ImageStore: store})
		require.NoError(t, err)
		e.Focus()

		err = e.UploadImage(context.Background(), imagestore.File{Name: "a.txt", ContentType: "text/plain", Data: []byte("x")})
		assert.ErrorIs(t, err, ErrUnsupportedType)
		var verr *ValidationError
		assert.True(t, errors.As(err, &verr))

		err = e.UploadImage(context.Background(), pngFile(imagestore.MaxFileSize+1))
		assert.ErrorIs(t, err, ErrFileTooLarge)

		assert.Empty(t, store.files)
		assert.Equal(t, `<p>a</p>`, e.Content())
	})

	t.Run("upload failure leaves the document alone", func(t *testing.T) {
		store := &fakeStore{err: &imagestore.UploadError{Message: "quota exceeded", Status: 507}}
		e, err := New(Options{Content: `<p>a</p>`, ImageStore: store})
		require.NoError(t, err)
		e.Focus()

		err = e.UploadImage(context.Background(), pngFile(10))
		var uerr *imagestore.UploadError
		require.True(t, errors.As(err, &uerr))
		assert.Equal(t, "quota exceeded", uerr.Message)
		assert.Equal(t, `<p>a</p>`, e.Content())
	})

	t.Run("plain errors become upload errors", func(t *testing.T) {
		store := &fakeStore{err: errors.New("connection refused")}
		e, err := New(Options{Content: `<p>a</p>`, ImageStore: store})
		require.NoError(t, err)
		e.Focus()

		err = e.UploadImage(context.Background(), pngFile(10))
		var uerr *imagestore.UploadError
		require.True(t, errors.As(err, &uerr))
		assert.Equal(t, "upload failed", uerr.Message)
	})

	t.Run("preview fallback", func(t *testing.T) {
		store := &fakeStore{err: errors.New("offline")}
		e, err := New(Options{Content: `<p>a</p>`, ImageStore: store, PreviewFallback: true})
		require.NoError(t, err)
		e.Focus()
		e.SetCursor(At(1, 0))

		err = e.UploadImage(context.Background(), pngFile(10))
		assert.Error(t, err)
		content := e.Document().Children[0].Content
		require.Len(t, content, 2)
		assert.True(t, strings.HasPrefix(content[1].Image.Src, "data:image/png;base64,"))
	})

	t.Run("no store", func(t *testing.T) {
		e := newEditor(t, `<p>a</p>`)
		assert.ErrorIs(t, e.UploadImage(context.Background(), pngFile(10)), ErrNoImageStore)
	})
}

func TestOverlappingUploads(t *testing.T) {
	e := newEditor(t, `<p>a</p><p>b</p>`)

	e.SetCursor(At(1, 0))
	first, err := e.BeginImageUpload(pngFile(10))
	require.NoError(t, err)

	e.SetCursor(At(1, 1))
	second, err := e.BeginImageUpload(pngFile(20))
	require.NoError(t, err)
	assert.Equal(t, 2, e.Pending())

	e.SetCursor(At(0, 0))
	require.NoError(t, e.Exec(ToggleList{Kind: document.BulletList}))

	require.NoError(t, e.FinishImageUpload(second, "https://cdn.example.com/2.png", nil))
	require.NoError(t, e.FinishImageUpload(first, "https://cdn.example.com/1.png", nil))
	assert.Zero(t, e.Pending())

	doc := e.Document()
	assert.Equal(t, "https://cdn.example.com/1.png", doc.Children[0].Children[0].Content[1].Image.Src)
	assert.Equal(t, "https://cdn.example.com/2.png", doc.Children[1].Content[1].Image.Src)

	assert.ErrorIs(t, e.FinishImageUpload(first, "x", nil), ErrNoImage)
}

func TestResizeClamps(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		corner  Corner
		to      Point
		want    Size
		wantMax int
	}{
		{"grow se", Options{}, SouthEast, Point{X: 20, Y: 10}, Size{Width: 120, Height: 110}, 800},
		{"grow nw", Options{}, NorthWest, Point{X: -20, Y: -10}, Size{Width: 120, Height: 110}, 800},
		{"shrink below minimum", Options{}, SouthEast, Point{X: -500, Y: -500}, Size{Width: 50, Height: 50}, 800},
		{"grow past maximum", Options{}, NorthEast, Point{X: 5000, Y: -5000}, Size{Width: 800, Height: 800}, 800},
		{"content width", Options{MaxImageSize: 300}, SouthWest, Point{X: -5000, Y: 5000}, Size{Width: 300, Height: 300}, 300},
		{"compact", Options{Compact: true}, SouthEast, Point{X: 5000, Y: 5000}, Size{Width: 200, Height: 200}, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.Content = `<p><img src="https://example.com/a.png" style="width: 100px; height: 100px"/></p>`
			e, err := New(tt.opts)
			require.NoError(t, err)

			r, err := e.BeginResize(At(0, 0), tt.corner, Point{}, Size{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.Move(tt.to))
			assert.Equal(t, tt.wantMax, e.maxImageSize())

			r.End()
			img := e.Document().Children[0].Content[0].Image
			assert.Equal(t, tt.want, Size{Width: img.Width, Height: img.Height})
			assert.Contains(t, e.Content(), "object-fit: cover")
		})
	}
}

func TestResizeEndWithoutMoveClamps(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		current Size
		want    Size
	}{
		{"compact oversized box", Options{Compact: true, Content: `<p><img src="https://example.com/a.png"/></p>`}, Size{Width: 1000, Height: 1000}, Size{Width: 200, Height: 200}},
		{"stored size past maximum", Options{MaxImageSize: 600, Content: `<p><img src="https://example.com/a.png" style="width: 3000px; height: 3000px"/></p>`}, Size{}, Size{Width: 600, Height: 600}},
		{"below minimum", Options{Content: `<p><img src="https://example.com/a.png"/></p>`}, Size{Width: 10, Height: 20}, Size{Width: MinImageSize, Height: MinImageSize}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := New(tt.opts)
			require.NoError(t, err)

			r, err := e.BeginResize(At(0, 0), SouthEast, Point{}, tt.current)
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.End())
			img := e.Document().Children[0].Content[0].Image
			assert.Equal(t, tt.want, Size{Width: img.Width, Height: img.Height})
		})
	}
}

func TestResizeNeverLeavesBounds(t *testing.T) {
	e, err := New(Options{Content: `<p><img src="a.png"/></p>`, Compact: true})
	require.NoError(t, err)

	corners := []Corner{NorthWest, NorthEast, SouthWest, SouthEast}
	for i, corner := range corners {
		r, err := e.BeginResize(At(0, 0), corner, Point{X: 10, Y: 10}, Size{Width: 150, Height: 90})
		require.NoError(t, err)
		for step := -400; step <= 400; step += 37 {
			s := r.Move(Point{X: step * (i + 1), Y: -step})
			assert.GreaterOrEqual(t, s.Width, MinImageSize)
			assert.GreaterOrEqual(t, s.Height, MinImageSize)
			assert.LessOrEqual(t, s.Width, CompactMaxImageSize)
			assert.LessOrEqual(t, s.Height, CompactMaxImageSize)
		}
		r.End()
	}
}

func TestBeginResizeErrors(t *testing.T) {
	e, err := New(Options{Content: `<p>a<img src="a.png"/></p>`})
	require.NoError(t, err)

	_, err = e.BeginResize(At(0, 0), SouthEast, Point{}, Size{})
	assert.ErrorIs(t, err, ErrNoImage)
	_, err = e.BeginResize(At(0, 4), SouthEast, Point{}, Size{})
	assert.ErrorIs(t, err, ErrUnknownPosition)
	_, err = e.BeginResize(At(1, 0), Corner("n"), Point{}, Size{})
	assert.ErrorIs(t, err, ErrInvalidCommand)

	_, err = e.BeginResize(At(1, 0), SouthEast, Point{}, Size{})
	assert.NoError(t, err)
}
