package editor

import (
	"slices"
	"strings"

	"rich-edit/pkg/document"
)

// deleteRange removes the content between from and to and returns the
// collapsed position. Table cells are cleared rather than removed so the
// grid stays rectangular.
func (e *Editor) deleteRange(from, to Position) Position {
	if from.Compare(to) >= 0 {
		return from
	}

	fromNode := e.doc.NodeAt(from.Path)
	if comparePaths(from.Path, to.Path) == 0 {
		cutTextblock(fromNode, from.Offset, to.Offset)
		return from
	}
	toNode := e.doc.NodeAt(to.Path)

	var removals [][]int
	for _, leaf := range leaves(e.doc) {
		if comparePaths(leaf.path, from.Path) <= 0 || comparePaths(leaf.path, to.Path) >= 0 {
			continue
		}
		if inTable(e.doc, leaf.path) {
			if leaf.node.IsTextblock() {
				cutTextblock(leaf.node, 0, leaf.node.Len())
			}
			continue
		}
		removals = append(removals, leaf.path)
	}

	cutTextblock(fromNode, from.Offset, fromNode.Len())
	cutTextblock(toNode, 0, to.Offset)

	if e.mergeable(from.Path, to.Path) {
		if fromNode.Type == document.CodeBlock {
			fromNode.Code += toNode.Code
		} else {
			fromNode.Content = document.NormalizeInlines(append(fromNode.Content, toNode.Content...))
		}
		removals = append(removals, to.Path)
	}

	slices.SortFunc(removals, func(a, b []int) int { return comparePaths(b, a) })
	for _, path := range removals {
		removeNode(e.doc, path)
	}
	pruneEmpty(e.doc)

	return from
}

// mergeable reports whether two textblocks can be joined into one.
func (e *Editor) mergeable(a, b []int) bool {
	if inTable(e.doc, a) || inTable(e.doc, b) {
		return false
	}
	na, nb := e.doc.NodeAt(a), e.doc.NodeAt(b)
	return (na.Type == document.CodeBlock) == (nb.Type == document.CodeBlock)
}

// collapse deletes a ranged selection and returns the cursor.
func (e *Editor) collapse() Position {
	if e.sel.Collapsed() {
		return e.sel.Focus
	}
	pos := e.deleteRange(e.sel.From(), e.sel.To())
	e.sel = Cursor(pos)
	return pos
}

// formatAt is the format typed text takes at offset: the run on the left
// of the cursor, inside a link only when strictly inside it, and inside
// inline code unless at its very start.
func (e *Editor) formatAt(n *document.Node, offset int) (code bool, marks document.Marks, href string) {
	idx, start := document.RunAt(n.Content, offset)
	if idx >= 0 {
		run := n.Content[idx]
		end := start + run.Len()
		switch run.Kind {
		case document.InlineCode:
			if offset > start {
				return true, 0, ""
			}
		case document.InlineText:
			marks = run.Marks
			if offset > start && offset < end {
				href = run.Href
			}
		}
	}
	if e.stored != nil {
		marks = *e.stored
	}
	return false, marks, href
}

// insertText inserts text at p and returns the position after it.
func (e *Editor) insertText(p Position, text string) Position {
	n := e.doc.NodeAt(p.Path)
	if text == "" {
		return p
	}

	if n.Type == document.CodeBlock {
		r := []rune(n.Code)
		n.Code = string(r[:p.Offset]) + text + string(r[p.Offset:])
		return Position{Path: p.Path, Offset: p.Offset + runeLen(text)}
	}

	code, marks, href := e.formatAt(n, p.Offset)
	var runs []document.Inline
	if code {
		runs = []document.Inline{document.NewCode(strings.ReplaceAll(text, "\n", " "))}
	} else {
		for i, line := range strings.Split(text, "\n") {
			if i > 0 {
				runs = append(runs, document.NewHardBreak())
			}
			if line != "" {
				run := document.NewText(line, marks)
				run.Href = href
				runs = append(runs, run)
			}
		}
	}

	n.Content = document.ReplaceInlines(n.Content, p.Offset, p.Offset, runs...)
	return Position{Path: p.Path, Offset: p.Offset + document.InlinesLen(runs)}
}

// insertInline places a single run at p.
func (e *Editor) insertInline(p Position, in document.Inline) Position {
	n := e.doc.NodeAt(p.Path)
	n.Content = document.ReplaceInlines(n.Content, p.Offset, p.Offset, in)
	return Position{Path: p.Path, Offset: p.Offset + in.Len()}
}

// splitTextblock breaks an inline textblock at p and returns the start of
// the new block. An empty list item is lifted out of its list instead when
// lift is set.
func (e *Editor) splitTextblock(p Position, lift bool) Position {
	n := e.doc.NodeAt(p.Path)
	parent, idx := parentOf(p.Path)

	if n.Type == document.ListItem && lift && n.Len() == 0 {
		m := markOf(e.doc, p)
		e.unwrapItems(parent, []int{idx})
		return m.resolve(e.doc)
	}

	left, right := document.SplitInlines(n.Content, p.Offset)
	next := &document.Node{Type: n.Type, Level: n.Level, Align: n.Align, Content: right}
	if n.Type == document.Heading && len(right) == 0 {
		next = document.NewParagraph()
	}
	n.Content = left

	insertNodes(e.doc, parent, idx+1, next)
	return Position{Path: childPath(parent, idx+1)}
}

// unwrapItems turns the given items of the list at listPath into paragraphs,
// splitting the list around them.
func (e *Editor) unwrapItems(listPath []int, items []int) {
	list := e.doc.NodeAt(listPath)
	var seq []*document.Node
	var segment *document.Node
	for i, item := range list.Children {
		if slices.Contains(items, i) {
			segment = nil
			seq = append(seq, &document.Node{Type: document.Paragraph, Align: item.Align, Content: item.Content})
			continue
		}
		if segment == nil {
			segment = &document.Node{Type: list.Type}
			seq = append(seq, segment)
		}
		segment.Children = append(segment.Children, item)
	}
	replaceNode(e.doc, listPath, seq...)
}

// textblockBefore returns the textblock preceding path in document order.
func (e *Editor) textblockBefore(path []int) (document.TextblockRef, bool) {
	var prev document.TextblockRef
	found := false
	for _, ref := range e.doc.Textblocks() {
		if comparePaths(ref.Path, path) >= 0 {
			break
		}
		prev, found = ref, true
	}
	return prev, found
}

func (e *Editor) textblockAfter(path []int) (document.TextblockRef, bool) {
	for _, ref := range e.doc.Textblocks() {
		if comparePaths(ref.Path, path) > 0 {
			return ref, true
		}
	}
	return document.TextblockRef{}, false
}

// backspace deletes backwards from a collapsed cursor.
func (e *Editor) backspace() bool {
	if !e.sel.Collapsed() {
		e.collapse()
		return true
	}
	p := e.sel.Focus
	n := e.doc.NodeAt(p.Path)

	if p.Offset > 0 {
		e.sel = Cursor(e.deleteRange(Position{Path: p.Path, Offset: p.Offset - 1}, p))
		return true
	}

	switch n.Type {
	case document.Heading:
		n.Type, n.Level = document.Paragraph, 0
		return true
	case document.ListItem:
		parent, idx := parentOf(p.Path)
		m := markOf(e.doc, p)
		e.unwrapItems(parent, []int{idx})
		e.sel = Cursor(m.resolve(e.doc))
		return true
	}

	prev, ok := e.textblockBefore(p.Path)
	if !ok {
		return false
	}
	end := Position{Path: prev.Path, Offset: prev.Node.Len()}

	if !e.mergeable(prev.Path, p.Path) && !inTable(e.doc, p.Path) && n.Len() == 0 {
		removeNode(e.doc, p.Path)
		pruneEmpty(e.doc)
		e.sel = Cursor(end)
		return true
	}

	before := len(leaves(e.doc))
	m := markOf(e.doc, end)
	e.deleteRange(end, p)
	if len(leaves(e.doc)) == before {
		return false
	}
	e.sel = Cursor(m.resolve(e.doc))
	return true
}

// deleteForward deletes after a collapsed cursor.
func (e *Editor) deleteForward() bool {
	if !e.sel.Collapsed() {
		e.collapse()
		return true
	}
	p := e.sel.Focus
	n := e.doc.NodeAt(p.Path)

	if p.Offset < n.Len() {
		e.deleteRange(p, Position{Path: p.Path, Offset: p.Offset + 1})
		return true
	}

	next, ok := e.textblockAfter(p.Path)
	if !ok {
		return false
	}
	before := len(leaves(e.doc))
	e.deleteRange(p, Position{Path: next.Path})
	return len(leaves(e.doc)) != before
}

// paste inserts plain text, one block per line outside code blocks and
// table cells.
func (e *Editor) paste(text string) {
	text = strings.ReplaceAll(strings.ReplaceAll(text, "\r\n", "\n"), "\r", "\n")
	pos := e.collapse()

	n := e.doc.NodeAt(pos.Path)
	if n.Type == document.CodeBlock || inTable(e.doc, pos.Path) {
		e.sel = Cursor(e.insertText(pos, text))
		return
	}

	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			pos = e.splitTextblock(pos, false)
		}
		pos = e.insertText(pos, line)
	}
	e.sel = Cursor(pos)
}
