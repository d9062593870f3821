package editor

import (
	"slices"

	"rich-edit/pkg/document"
)

// Position addresses a cursor location: the child-index path of a textblock
// and a rune offset inside it.
type Position struct {
	Path   []int `json:"path"`
	Offset int   `json:"offset"`
}

// At builds a position.
func At(offset int, path ...int) Position {
	return Position{Path: path, Offset: offset}
}

func (p Position) clone() Position {
	return Position{Path: slices.Clone(p.Path), Offset: p.Offset}
}

// Compare orders positions in document order.
func (p Position) Compare(q Position) int {
	if c := comparePaths(p.Path, q.Path); c != 0 {
		return c
	}
	switch {
	case p.Offset < q.Offset:
		return -1
	case p.Offset > q.Offset:
		return 1
	}
	return 0
}

func (p Position) Equal(q Position) bool { return p.Compare(q) == 0 }

// Selection is an immutable anchor/focus snapshot.
type Selection struct {
	Anchor Position `json:"anchor"`
	Focus  Position `json:"focus"`
}

// Cursor is a collapsed selection.
func Cursor(p Position) Selection {
	return Selection{Anchor: p, Focus: p.clone()}
}

func (s Selection) Collapsed() bool { return s.Anchor.Equal(s.Focus) }

// From is the start of the selection in document order.
func (s Selection) From() Position {
	if s.Anchor.Compare(s.Focus) <= 0 {
		return s.Anchor
	}
	return s.Focus
}

// To is the end of the selection in document order.
func (s Selection) To() Position {
	if s.Anchor.Compare(s.Focus) <= 0 {
		return s.Focus
	}
	return s.Anchor
}

func comparePaths(a, b []int) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

// clampPosition resolves p against doc. A position whose textblock is gone
// moves to the end of the nearest preceding textblock, or to the start of
// the document.
func clampPosition(doc *document.Document, p Position) Position {
	refs := doc.Textblocks()
	if len(refs) == 0 {
		return Position{}
	}

	var prev *document.TextblockRef
	for i := range refs {
		ref := &refs[i]
		c := comparePaths(ref.Path, p.Path)
		if c == 0 {
			return Position{Path: ref.Path, Offset: min(max(p.Offset, 0), ref.Node.Len())}
		}
		if c > 0 {
			break
		}
		prev = ref
	}

	if prev == nil {
		return Position{Path: refs[0].Path}
	}
	return Position{Path: prev.Path, Offset: prev.Node.Len()}
}

func clampSelection(doc *document.Document, s Selection) Selection {
	return Selection{Anchor: clampPosition(doc, s.Anchor), Focus: clampPosition(doc, s.Focus)}
}

// mark pins a position to the textblock ordinal, which survives wrapping
// and unwrapping of blocks.
type mark struct {
	ordinal int
	offset  int
}

type bookmark struct {
	anchor, focus mark
}

func markOf(doc *document.Document, p Position) mark {
	p = clampPosition(doc, p)
	for i, ref := range doc.Textblocks() {
		if comparePaths(ref.Path, p.Path) == 0 {
			return mark{ordinal: i, offset: p.Offset}
		}
	}
	return mark{}
}

func (m mark) resolve(doc *document.Document) Position {
	refs := doc.Textblocks()
	if len(refs) == 0 {
		return Position{}
	}
	ref := refs[min(m.ordinal, len(refs)-1)]
	return Position{Path: ref.Path, Offset: min(m.offset, ref.Node.Len())}
}

func bookmarkOf(doc *document.Document, s Selection) bookmark {
	return bookmark{anchor: markOf(doc, s.Anchor), focus: markOf(doc, s.Focus)}
}

func (b bookmark) resolve(doc *document.Document) Selection {
	return Selection{Anchor: b.anchor.resolve(doc), Focus: b.focus.resolve(doc)}
}
