// Package editor implements the editing surface: an owned document tree, a
// typed command layer applied at an explicit selection, region tracking with
// exit handling for inline code and code blocks, link and image insertion,
// image resizing and table editing.
//
// An Editor is not safe for concurrent use. Hosts serialize events through a
// single goroutine, see package session.
package editor

import (
	"log/slog"

	"rich-edit/pkg/document"
	"rich-edit/pkg/imagestore"
)

// Image box limits in pixels.
const (
	MinImageSize        = 50
	DefaultMaxImageSize = 800
	CompactMaxImageSize = 200
)

type Options struct {
	// Content is the initial markup.
	Content string
	// Placeholder is shown by the host while the document is empty.
	Placeholder string

	// MaxImageSize caps resized images, usually the content area width.
	MaxImageSize int
	// Compact is the comment variant with a smaller image cap.
	Compact bool

	ImageStore imagestore.Store
	// PreviewFallback inserts a local data URL preview when an upload fails.
	PreviewFallback bool

	OnContentChange func(markup string)
	OnStateChange   func(State)

	Logger *slog.Logger
}

type Editor struct {
	opts Options
	log  *slog.Logger

	doc *document.Document

	sel    Selection
	hasSel bool
	// last is the selection at blur time, restored by Focus.
	last *Selection

	// stored marks apply to the next typed text at a collapsed cursor.
	stored *document.Marks
	// enterCount counts consecutive Enters on the last line of a code block.
	enterCount int

	link    *LinkDraft
	pending map[string]*PendingImage

	state State
}

// New builds an editor holding its initial content.
func New(opts Options) (*Editor, error) {
	e := &Editor{
		opts:    opts,
		log:     opts.Logger,
		pending: make(map[string]*PendingImage),
	}
	if e.log == nil {
		e.log = slog.Default()
	}

	doc, err := e.parse(opts.Content)
	if err != nil {
		return nil, err
	}
	e.doc = doc
	e.state = e.computeState()

	return e, nil
}

func (e *Editor) parse(markup string) (*document.Document, error) {
	doc, err := document.Parse(document.Sanitize(markup))
	if err != nil {
		return nil, err
	}
	ensureTextblock(doc)
	return doc, nil
}

// Content is the clean markup of the document.
func (e *Editor) Content() string {
	return document.Render(e.doc, document.RenderOptions{})
}

// EditableContent is the markup for a live editing surface, with image
// resize handles and caret placeholders.
func (e *Editor) EditableContent() string {
	return document.Render(e.doc, document.RenderOptions{Editable: true})
}

// SetContent replaces the document wholesale.
func (e *Editor) SetContent(markup string) error {
	doc, err := e.parse(markup)
	if err != nil {
		return err
	}
	e.doc = doc
	e.enterCount = 0
	e.stored = nil
	if e.hasSel {
		e.sel = clampSelection(e.doc, e.sel)
	}
	e.refresh()
	return nil
}

// TextContent is the plain-text projection.
func (e *Editor) TextContent() string {
	return document.Text(e.doc)
}

// Document returns a copy of the tree.
func (e *Editor) Document() *document.Document {
	return e.doc.Clone()
}

// Clear empties the document.
func (e *Editor) Clear() {
	e.doc = &document.Document{Children: []*document.Node{document.NewParagraph()}}
	e.enterCount = 0
	e.stored = nil
	e.last = nil
	if e.hasSel {
		e.sel = Cursor(At(0, 0))
	}
	e.refresh()
}

// Focus gives the editor a selection: the one it had at blur, or the start
// of the document.
func (e *Editor) Focus() {
	if e.hasSel {
		return
	}
	e.hasSel = true
	if e.last != nil {
		e.sel = clampSelection(e.doc, *e.last)
	} else {
		e.sel = Cursor(clampPosition(e.doc, Position{}))
	}
	e.refresh()
}

// Blur drops the selection. Commands are no-ops until the next Focus.
func (e *Editor) Blur() {
	if !e.hasSel {
		return
	}
	last := e.sel
	e.last = &last
	e.hasSel = false
	e.stored = nil
	e.enterCount = 0
	e.refresh()
}

func (e *Editor) Focused() bool { return e.hasSel }

// IsEmpty reports the placeholder state.
func (e *Editor) IsEmpty() bool {
	return e.doc.IsEmpty()
}

// Placeholder is the hint to show, empty when the document has content.
func (e *Editor) Placeholder() string {
	if !e.IsEmpty() {
		return ""
	}
	return e.opts.Placeholder
}

// Selection returns the current selection, if any.
func (e *Editor) Selection() (Selection, bool) {
	return e.sel, e.hasSel
}

// Select sets the selection. Positions that do not resolve are clamped.
func (e *Editor) Select(s Selection) {
	e.hasSel = true
	e.sel = clampSelection(e.doc, s)
	e.stored = nil
	e.enterCount = 0
	e.refresh()
}

func (e *Editor) SetCursor(p Position) {
	e.Select(Cursor(p))
}

// SelectAll selects the whole document.
func (e *Editor) SelectAll() {
	refs := e.doc.Textblocks()
	last := refs[len(refs)-1]
	e.Select(Selection{
		Anchor: Position{Path: refs[0].Path},
		Focus:  Position{Path: last.Path, Offset: last.Node.Len()},
	})
}

// State is the toolbar state at the current selection.
func (e *Editor) State() State {
	return e.state
}

// changed finishes a mutation: normalizes the tree, reconciles the
// selection and notifies the host.
func (e *Editor) changed() {
	pruneEmpty(e.doc)
	document.Normalize(e.doc)
	ensureTextblock(e.doc)
	if e.hasSel {
		e.sel = clampSelection(e.doc, e.sel)
	}

	if e.opts.OnContentChange != nil {
		e.opts.OnContentChange(e.Content())
	}
	e.refresh()
}

func (e *Editor) refresh() {
	e.state = e.computeState()
	if e.opts.OnStateChange != nil {
		e.opts.OnStateChange(e.state)
	}
}

func (e *Editor) maxImageSize() int {
	limit := e.opts.MaxImageSize
	if limit <= 0 {
		limit = DefaultMaxImageSize
	}
	if e.opts.Compact {
		limit = min(limit, CompactMaxImageSize)
	}
	return max(limit, MinImageSize)
}
