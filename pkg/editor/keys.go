package editor

import (
	"strings"
	"unicode/utf8"

	"rich-edit/pkg/document"
)

// KeyEvent is a keydown as delivered by the host. Key follows the DOM
// KeyboardEvent.key naming ("Enter", "ArrowRight", " ", "a").
type KeyEvent struct {
	Key   string `json:"key"`
	Ctrl  bool   `json:"ctrl,omitempty"`
	Meta  bool   `json:"meta,omitempty"`
	Shift bool   `json:"shift,omitempty"`
	Alt   bool   `json:"alt,omitempty"`
}

// codeExitEnters is the number of consecutive Enters on the last line of a
// code block that leaves it.
const codeExitEnters = 3

// KeyDown handles a key press and reports whether it was consumed, in which
// case the host must not apply its default action.
func (e *Editor) KeyDown(ev KeyEvent) bool {
	if !e.hasSel {
		return false
	}
	if ev.Key != "Enter" {
		e.enterCount = 0
	}

	if ev.Ctrl || ev.Meta {
		return e.shortcut(ev)
	}

	switch e.region(e.sel.Focus) {
	case InCode:
		if (ev.Key == "ArrowRight" || ev.Key == " ") && !ev.Shift && e.atCodeEnd() {
			e.exitInlineCode()
			return true
		}
	case InCodeBlock:
		if handled, ok := e.codeBlockKey(ev); ok {
			return handled
		}
	}

	switch ev.Key {
	case "Enter":
		e.enter(ev.Shift)
		return true
	case "Backspace":
		if e.backspace() {
			e.stored = nil
			e.changed()
		}
		return true
	case "Delete":
		if e.deleteForward() {
			e.changed()
		}
		return true
	case "ArrowLeft", "ArrowRight", "ArrowUp", "ArrowDown", "Home", "End":
		e.navigate(ev.Key, ev.Shift)
		return true
	}

	if utf8.RuneCountInString(ev.Key) == 1 && !ev.Alt {
		e.InsertText(ev.Key)
		return true
	}
	return false
}

func (e *Editor) shortcut(ev KeyEvent) bool {
	switch strings.ToLower(ev.Key) {
	case "b":
		_ = e.Exec(ToggleMark{Mark: document.Bold})
	case "i":
		_ = e.Exec(ToggleMark{Mark: document.Italic})
	case "u":
		_ = e.Exec(ToggleMark{Mark: document.Underline})
	case "k":
		if _, err := e.BeginLink(); err != nil {
			e.log.Debug("link shortcut ignored", "error", err)
		}
	case "a":
		e.SelectAll()
	default:
		return false
	}
	return true
}

// atCodeEnd reports whether a collapsed cursor sits at the last offset of an
// inline code run.
func (e *Editor) atCodeEnd() bool {
	if !e.sel.Collapsed() {
		return false
	}
	p := e.sel.Focus
	n := e.doc.NodeAt(p.Path)
	idx, start := document.RunAt(n.Content, p.Offset)
	return idx >= 0 && n.Content[idx].Kind == document.InlineCode && p.Offset == start+n.Content[idx].Len()
}

// exitInlineCode steps out of an inline code run by placing a zero-width
// text run after it and moving the cursor past the marker.
func (e *Editor) exitInlineCode() {
	e.sel = Cursor(e.insertInline(e.sel.Focus, document.NewText(document.ZeroWidthSpace)))
	e.stored = nil
	e.changed()
}

// onLastLine reports whether p is after the last newline of a code block.
func onLastLine(n *document.Node, offset int) bool {
	r := []rune(n.Code)
	for i := offset; i < len(r); i++ {
		if r[i] == '\n' {
			return false
		}
	}
	return true
}

// codeBlockKey applies the code block bindings. ok is false when the key
// falls through to the generic handling.
func (e *Editor) codeBlockKey(ev KeyEvent) (handled, ok bool) {
	p := e.sel.Focus
	n := e.doc.NodeAt(p.Path)

	switch ev.Key {
	case "Enter":
		pos := e.collapse()
		if n = e.doc.NodeAt(pos.Path); n.Type != document.CodeBlock {
			e.enterCount = 0
			e.enter(ev.Shift)
			return true, true
		}
		if !onLastLine(n, pos.Offset) {
			e.enterCount = 0
			e.sel = Cursor(e.insertText(pos, "\n"))
			e.changed()
			return true, true
		}
		e.enterCount++
		if e.enterCount >= codeExitEnters {
			e.exitCodeBlock(pos, e.enterCount-1)
			return true, true
		}
		e.sel = Cursor(e.insertText(pos, "\n"))
		e.changed()
		return true, true
	case "ArrowDown":
		if e.sel.Collapsed() && !ev.Shift && onLastLine(n, p.Offset) {
			e.exitCodeBlock(p, 0)
			return true, true
		}
	case "Tab":
		e.sel = Cursor(e.insertText(e.collapse(), "\t"))
		e.changed()
		return true, true
	}
	return false, false
}

// exitCodeBlock drops up to trailing newlines typed right before p, then adds
// an empty paragraph after the code block and moves the cursor into it.
func (e *Editor) exitCodeBlock(p Position, trailing int) {
	n := e.doc.NodeAt(p.Path)
	r := []rune(n.Code)
	cut := p.Offset
	for cut > 0 && trailing > 0 && r[cut-1] == '\n' {
		cut--
		trailing--
	}
	n.Code = string(r[:cut]) + string(r[p.Offset:])
	e.enterCount = 0

	parent, idx := parentOf(p.Path)
	insertNodes(e.doc, parent, idx+1, document.NewParagraph())
	e.sel = Cursor(Position{Path: childPath(parent, idx+1)})
	e.changed()
}

// enter splits the textblock, or inserts a hard break with Shift or in a
// table cell.
func (e *Editor) enter(shift bool) {
	pos := e.collapse()
	if shift || inTable(e.doc, pos.Path) {
		e.sel = Cursor(e.insertText(pos, "\n"))
	} else {
		e.sel = Cursor(e.splitTextblock(pos, true))
	}
	e.changed()
}

// navigate moves the focus, extending the selection with shift.
func (e *Editor) navigate(key string, shift bool) {
	focus := e.sel.Focus
	switch {
	case !shift && !e.sel.Collapsed() && (key == "ArrowLeft" || key == "ArrowUp"):
		focus = e.sel.From()
	case !shift && !e.sel.Collapsed() && (key == "ArrowRight" || key == "ArrowDown"):
		focus = e.sel.To()
	default:
		focus = e.step(focus, key)
	}

	if shift {
		e.sel = Selection{Anchor: e.sel.Anchor, Focus: focus}
	} else {
		e.sel = Cursor(focus)
	}
	e.stored = nil
	e.refresh()
}

func (e *Editor) step(p Position, key string) Position {
	n := e.doc.NodeAt(p.Path)
	switch key {
	case "ArrowLeft":
		if p.Offset > 0 {
			return Position{Path: p.Path, Offset: p.Offset - 1}
		}
		if prev, ok := e.textblockBefore(p.Path); ok {
			return Position{Path: prev.Path, Offset: prev.Node.Len()}
		}
	case "ArrowRight":
		if p.Offset < n.Len() {
			return Position{Path: p.Path, Offset: p.Offset + 1}
		}
		if next, ok := e.textblockAfter(p.Path); ok {
			return Position{Path: next.Path}
		}
	case "Home":
		start, _ := lineBounds(n, p.Offset)
		return Position{Path: p.Path, Offset: start}
	case "End":
		_, end := lineBounds(n, p.Offset)
		return Position{Path: p.Path, Offset: end}
	case "ArrowUp":
		start, _ := lineBounds(n, p.Offset)
		if start > 0 {
			prevStart, _ := lineBounds(n, start-1)
			return Position{Path: p.Path, Offset: min(prevStart+p.Offset-start, start-1)}
		}
		if prev, ok := e.textblockBefore(p.Path); ok {
			return Position{Path: prev.Path, Offset: min(p.Offset, prev.Node.Len())}
		}
		return Position{Path: p.Path}
	case "ArrowDown":
		start, end := lineBounds(n, p.Offset)
		if end < n.Len() {
			_, nextEnd := lineBounds(n, end+1)
			return Position{Path: p.Path, Offset: min(end+1+p.Offset-start, nextEnd)}
		}
		if next, ok := e.textblockAfter(p.Path); ok {
			return Position{Path: next.Path, Offset: min(p.Offset-start, next.Node.Len())}
		}
		return Position{Path: p.Path, Offset: n.Len()}
	}
	return p
}

// lineBounds is the [start, end] range of the visual line holding offset,
// split at code newlines and hard breaks.
func lineBounds(n *document.Node, offset int) (start, end int) {
	var breaks []int
	if n.Type == document.CodeBlock {
		for i, r := range []rune(n.Code) {
			if r == '\n' {
				breaks = append(breaks, i)
			}
		}
	} else {
		pos := 0
		for _, in := range n.Content {
			if in.Kind == document.InlineHardBreak {
				breaks = append(breaks, pos)
			}
			pos += in.Len()
		}
	}

	start, end = 0, n.Len()
	for _, b := range breaks {
		if b < offset {
			start = b + 1
			continue
		}
		end = b
		break
	}
	return start, end
}
