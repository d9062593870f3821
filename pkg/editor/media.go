package editor

import (
	"context"
	"errors"
	"net/url"
	"slices"
	"strings"

	"github.com/google/uuid"

	"rich-edit/pkg/document"
	"rich-edit/pkg/imagestore"
)

// LinkDraft is a link being edited: the text and destination shown in the
// link dialog and the range it will replace.
type LinkDraft struct {
	Text string `json:"text"`
	URL  string `json:"url"`

	sel Selection
}

// BeginLink saves the selected range and pre-fills a link draft from it.
func (e *Editor) BeginLink() (LinkDraft, error) {
	if !e.hasSel || e.sel.Collapsed() || strings.TrimSpace(e.selectedText()) == "" {
		return LinkDraft{}, invalid("selection", ErrEmptySelection)
	}
	draft := LinkDraft{
		Text: e.selectedText(),
		URL:  e.linkAt(e.sel),
		sel:  e.sel,
	}
	e.link = &draft
	return draft, nil
}

// PendingLink returns the draft opened by BeginLink.
func (e *Editor) PendingLink() (LinkDraft, bool) {
	if e.link == nil {
		return LinkDraft{}, false
	}
	return *e.link, true
}

func (e *Editor) CancelLink() {
	e.link = nil
}

// allowedSchemes are the URL schemes the sanitizer keeps on links and images.
var allowedSchemes = []string{"http", "https", "mailto"}

// ValidateURL accepts absolute http(s) URLs with a host, or mailto addresses.
func ValidateURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ErrInvalidURL
	}
	if u.Scheme == "" || (u.Host == "" && u.Opaque == "") {
		return ErrInvalidURL
	}
	if !slices.Contains(allowedSchemes, strings.ToLower(u.Scheme)) {
		return ErrInvalidURL
	}
	return nil
}

// ConfirmLink replaces the saved range with a link and puts the cursor right
// after it. Validation failures keep the draft open.
func (e *Editor) ConfirmLink(text, href string) error {
	if e.link == nil {
		return ErrNoLinkDraft
	}
	text = strings.Join(strings.Fields(text), " ")
	href = strings.TrimSpace(href)
	if text == "" {
		return invalid("text", ErrEmptyLinkText)
	}
	if err := ValidateURL(href); err != nil {
		return invalid("url", err)
	}

	e.hasSel = true
	e.sel = clampSelection(e.doc, e.link.sel)
	e.link = nil
	e.enterCount = 0

	pos := e.collapse()
	n := e.doc.NodeAt(pos.Path)
	if n.Type == document.CodeBlock {
		e.sel = Cursor(e.insertText(pos, text))
	} else {
		_, marks, _ := e.formatAt(n, pos.Offset)
		e.sel = Cursor(e.insertInline(pos, document.NewLink(text, href, marks)))
	}
	e.stored = nil
	e.changed()
	return nil
}

// insertionPoint is where media goes: the selection, the selection at blur,
// or the end of the document.
func (e *Editor) insertionPoint() Position {
	switch {
	case e.hasSel:
		return e.collapse()
	case e.last != nil:
		return clampPosition(e.doc, e.last.To())
	}
	refs := e.doc.Textblocks()
	last := refs[len(refs)-1]
	return Position{Path: last.Path, Offset: last.Node.Len()}
}

// placeImage inserts an image at p. Code blocks get it in a new paragraph
// after them.
func (e *Editor) placeImage(p Position, img document.Image) Position {
	n := e.doc.NodeAt(p.Path)
	if n.Type != document.CodeBlock {
		return e.insertInline(p, document.NewImage(img))
	}
	parent, idx := parentOf(p.Path)
	insertNodes(e.doc, parent, idx+1, document.NewParagraph(document.NewImage(img)))
	return Position{Path: childPath(parent, idx+1), Offset: 1}
}

func (e *Editor) finishImage(p Position, img document.Image) {
	after := Cursor(e.placeImage(p, img))
	if e.hasSel {
		e.sel = after
	} else {
		e.last = &after
	}
	e.changed()
}

// InsertImageURL inserts a remote image at the selection.
func (e *Editor) InsertImageURL(src, alt string) error {
	src = strings.TrimSpace(src)
	if err := ValidateURL(src); err != nil {
		return invalid("src", err)
	}
	e.enterCount = 0
	e.finishImage(e.insertionPoint(), document.Image{Src: src, Alt: strings.TrimSpace(alt)})
	return nil
}

// PendingImage is an upload in flight, pinned to the position it will be
// inserted at.
type PendingImage struct {
	ID   string
	File imagestore.File

	at mark
}

// BeginImageUpload validates f and records where the image will go.
func (e *Editor) BeginImageUpload(f imagestore.File) (*PendingImage, error) {
	if err := imagestore.Validate(f); err != nil {
		return nil, invalid("image", err)
	}
	p := &PendingImage{
		ID:   uuid.NewString(),
		File: f,
		at:   markOf(e.doc, e.insertionPoint()),
	}
	e.pending[p.ID] = p
	return p, nil
}

// Pending lists the uploads not yet finished.
func (e *Editor) Pending() int { return len(e.pending) }

// FinishImageUpload inserts the uploaded image at the reconciled position,
// or returns an *imagestore.UploadError leaving the document unchanged. With
// PreviewFallback a local preview is inserted before the error is returned.
func (e *Editor) FinishImageUpload(p *PendingImage, src string, err error) error {
	if p == nil || e.pending[p.ID] == nil {
		return ErrNoImage
	}
	delete(e.pending, p.ID)

	if err == nil && src == "" {
		err = errors.New("empty image url")
	}
	if err != nil {
		var uploadErr *imagestore.UploadError
		if !errors.As(err, &uploadErr) {
			uploadErr = &imagestore.UploadError{Message: "upload failed", Err: err}
		}
		e.log.Warn("image upload failed", "file", p.File.Name, "error", err)
		if e.opts.PreviewFallback {
			e.finishImage(p.at.resolve(e.doc), document.Image{Src: p.File.DataURL(), Alt: p.File.Name})
		}
		return uploadErr
	}

	e.finishImage(p.at.resolve(e.doc), document.Image{Src: src, Alt: p.File.Name})
	return nil
}

// UploadImage validates, uploads and inserts f with the configured store.
func (e *Editor) UploadImage(ctx context.Context, f imagestore.File) error {
	if e.opts.ImageStore == nil {
		return ErrNoImageStore
	}
	p, err := e.BeginImageUpload(f)
	if err != nil {
		return err
	}
	src, err := e.opts.ImageStore.Upload(ctx, p.File)
	return e.FinishImageUpload(p, src, err)
}
