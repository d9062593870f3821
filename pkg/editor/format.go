package editor

import (
	"strings"

	"rich-edit/pkg/document"
)

// segment is the part of one textblock covered by a selection.
type segment struct {
	path     []int
	node     *document.Node
	from, to int
}

func (s segment) inline() bool { return s.node.Type != document.CodeBlock }

// segments splits s into per-textblock ranges. A collapsed selection yields
// the cursor's textblock with an empty range.
func (e *Editor) segments(s Selection) []segment {
	from, to := s.From(), s.To()
	var out []segment
	for _, ref := range e.doc.Textblocks() {
		if comparePaths(ref.Path, from.Path) < 0 {
			continue
		}
		if comparePaths(ref.Path, to.Path) > 0 {
			break
		}
		seg := segment{path: ref.Path, node: ref.Node, to: ref.Node.Len()}
		if comparePaths(ref.Path, from.Path) == 0 {
			seg.from = from.Offset
		}
		if comparePaths(ref.Path, to.Path) == 0 {
			seg.to = to.Offset
		}
		out = append(out, seg)
	}
	return out
}

// selectedText is the plain text of the selection, blocks joined by newlines.
func (e *Editor) selectedText() string {
	var parts []string
	for _, seg := range e.segments(e.sel) {
		parts = append(parts, textblockText(seg.node, seg.from, seg.to))
	}
	return strings.Join(parts, "\n")
}

// marksAt are the marks of the text on the left of p.
func (e *Editor) marksAt(p Position) document.Marks {
	n := e.doc.NodeAt(p.Path)
	if n == nil || n.Type == document.CodeBlock {
		return 0
	}
	_, marks, _ := e.formatAt(n, p.Offset)
	return marks
}

// selectionMarks are the marks shared by every text run of the selection.
func (e *Editor) selectionMarks() document.Marks {
	if e.sel.Collapsed() {
		return e.marksAt(e.sel.Focus)
	}
	marks := document.Marks(0)
	first := true
	for _, seg := range e.segments(e.sel) {
		if !seg.inline() {
			continue
		}
		for _, in := range document.SliceInlines(seg.node.Content, seg.from, seg.to) {
			if in.Kind != document.InlineText {
				continue
			}
			if first {
				marks, first = in.Marks, false
				continue
			}
			marks &= in.Marks
		}
	}
	return marks
}

// mapTextRuns rewrites the marks of the text runs between from and to.
func mapTextRuns(n *document.Node, from, to int, fn func(document.Marks) document.Marks) bool {
	left, rest := document.SplitInlines(n.Content, from)
	mid, right := document.SplitInlines(rest, to-from)
	changed := false
	for i := range mid {
		if mid[i].Kind != document.InlineText {
			continue
		}
		if m := fn(mid[i].Marks); m != mid[i].Marks {
			mid[i].Marks = m
			changed = true
		}
	}
	if changed {
		n.Content = document.NormalizeInlines(append(append(left, mid...), right...))
	}
	return changed
}

func (e *Editor) toggleMark(mark document.Marks) bool {
	if e.sel.Collapsed() {
		stored := e.marksAt(e.sel.Focus)
		if e.stored != nil {
			stored = *e.stored
		}
		stored ^= mark
		e.stored = &stored
		return false
	}

	active, found := true, false
	for _, seg := range e.segments(e.sel) {
		if !seg.inline() {
			continue
		}
		for _, in := range document.SliceInlines(seg.node.Content, seg.from, seg.to) {
			if in.Kind == document.InlineText {
				found = true
				active = active && in.Marks.Has(mark)
			}
		}
	}
	if !found {
		return false
	}

	changed := false
	for _, seg := range e.segments(e.sel) {
		if !seg.inline() {
			continue
		}
		changed = mapTextRuns(seg.node, seg.from, seg.to, func(m document.Marks) document.Marks {
			if active {
				return m.Without(mark)
			}
			return m.With(mark)
		}) || changed
	}
	return changed
}

func (e *Editor) removeFormat() bool {
	if e.sel.Collapsed() {
		none := document.Marks(0)
		e.stored = &none
		return false
	}
	changed := false
	for _, seg := range e.segments(e.sel) {
		if seg.inline() {
			changed = mapTextRuns(seg.node, seg.from, seg.to, func(document.Marks) document.Marks { return 0 }) || changed
		}
	}
	return changed
}

func (e *Editor) setAlign(align document.Align) bool {
	changed := false
	for _, seg := range e.segments(e.sel) {
		if seg.inline() && seg.node.Align != align {
			seg.node.Align = align
			changed = true
		}
	}
	return changed
}

// codePlaceholder is inserted by ToggleInlineCode at a collapsed cursor.
const codePlaceholder = "code"

// toggleInlineCode wraps the selected text of a single textblock in an
// inline code run, unwraps it when it is already all code, or inserts a
// placeholder run at a collapsed cursor. The cursor ends inside the code.
func (e *Editor) toggleInlineCode() bool {
	from, to := e.sel.From(), e.sel.To()
	if comparePaths(from.Path, to.Path) != 0 {
		return false
	}
	n := e.doc.NodeAt(from.Path)
	if n.Type == document.CodeBlock {
		return false
	}

	if e.sel.Collapsed() {
		if e.region(from) == InCode {
			return false
		}
		e.sel = Cursor(e.insertInline(from, document.NewCode(codePlaceholder)))
		return true
	}

	mid := document.SliceInlines(n.Content, from.Offset, to.Offset)
	allCode := true
	for _, in := range mid {
		if in.Kind != document.InlineCode {
			allCode = false
			break
		}
	}

	if allCode {
		for i := range mid {
			mid[i] = document.NewText(mid[i].Text)
		}
		n.Content = document.ReplaceInlines(n.Content, from.Offset, to.Offset, mid...)
		return true
	}

	text := strings.ReplaceAll(document.InlinesText(mid), "\n", " ")
	if text == "" {
		return false
	}
	n.Content = document.ReplaceInlines(n.Content, from.Offset, to.Offset, document.NewCode(text))
	e.sel = Cursor(Position{Path: from.Path, Offset: from.Offset + runeLen(text)})
	return true
}
