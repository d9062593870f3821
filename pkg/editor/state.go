package editor

import (
	"rich-edit/pkg/document"
)

// Region classifies where the cursor sits for exit handling.
type Region int

const (
	Normal Region = iota
	InCode
	InCodeBlock
)

func (r Region) String() string {
	switch r {
	case InCode:
		return "code"
	case InCodeBlock:
		return "codeBlock"
	}
	return "normal"
}

func (r Region) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// region resolves p with left affinity: a cursor at the very start of an
// inline code run is outside it, one at its end is inside.
func (e *Editor) region(p Position) Region {
	n := e.doc.NodeAt(p.Path)
	if n == nil {
		return Normal
	}
	if n.Type == document.CodeBlock {
		return InCodeBlock
	}
	idx, start := document.RunAt(n.Content, p.Offset)
	if idx >= 0 && n.Content[idx].Kind == document.InlineCode && p.Offset > start {
		return InCode
	}
	return Normal
}

// State is the toolbar state derived from the selection.
type State struct {
	Focused bool `json:"focused"`
	Empty   bool `json:"empty"`

	Marks document.Marks `json:"marks"`
	// Block is the type of the focused textblock.
	Block        document.NodeType `json:"block"`
	HeadingLevel int               `json:"headingLevel,omitempty"`
	// List is the enclosing list kind when InList is set.
	List       document.NodeType `json:"list"`
	InList     bool              `json:"inList"`
	Checked    bool              `json:"checked,omitempty"`
	Blockquote bool              `json:"blockquote"`
	Align      document.Align    `json:"align"`
	Link       string            `json:"link,omitempty"`
	InTable    bool              `json:"inTable"`
	Region     Region            `json:"region"`
	Language   string            `json:"language,omitempty"`
}

func (e *Editor) computeState() State {
	st := State{Focused: e.hasSel, Empty: e.doc.IsEmpty()}
	if !e.hasSel {
		return st
	}

	p := e.sel.Focus
	n := e.doc.NodeAt(p.Path)
	if n == nil {
		return st
	}

	st.Marks = e.selectionMarks()
	if e.sel.Collapsed() && e.stored != nil {
		st.Marks = *e.stored
	}
	st.Block = n.Type
	st.Align = n.Align
	st.Region = e.region(p)
	switch n.Type {
	case document.Heading:
		st.HeadingLevel = n.Level
	case document.CodeBlock:
		st.Language = n.Language
	case document.ListItem:
		list := parentNode(e.doc, p.Path)
		st.List, st.InList, st.Checked = list.Type, true, n.Checked
	}
	if q, _ := ancestor(e.doc, p.Path, document.Blockquote); q != nil {
		st.Blockquote = true
	}
	st.InTable = inTable(e.doc, p.Path)
	st.Link = e.linkAt(e.sel)
	return st
}

// linkAt is the destination of the link holding the cursor, or of the link
// the selection starts in.
func (e *Editor) linkAt(s Selection) string {
	p := s.From()
	n := e.doc.NodeAt(p.Path)
	if n == nil || n.Type == document.CodeBlock {
		return ""
	}
	offset := p.Offset
	if !s.Collapsed() && offset < n.Len() {
		offset++
	}
	idx, start := document.RunAt(n.Content, offset)
	if idx < 0 || offset == start {
		return ""
	}
	run := n.Content[idx]
	if run.Kind != document.InlineText {
		return ""
	}
	return run.Href
}

// Active reports whether a toolbar action is lit in this state.
func (s State) Active(action string) bool {
	switch action {
	case "bold":
		return s.Marks.Has(document.Bold)
	case "italic":
		return s.Marks.Has(document.Italic)
	case "underline":
		return s.Marks.Has(document.Underline)
	case "strike", "strikeThrough":
		return s.Marks.Has(document.Strike)
	case "code":
		return s.Region == InCode
	case "codeBlock":
		return s.Region == InCodeBlock
	case "heading":
		return s.Block == document.Heading
	case "paragraph":
		return s.Block == document.Paragraph
	case "bulletList":
		return s.InList && s.List == document.BulletList
	case "orderedList":
		return s.InList && s.List == document.OrderedList
	case "taskList":
		return s.InList && s.List == document.TaskList
	case "toggleTask":
		return s.Checked
	case "blockquote":
		return s.Blockquote
	case "setLink", "link":
		return s.Link != ""
	case "alignLeft":
		return s.Align == document.AlignLeft
	case "alignCenter":
		return s.Align == document.AlignCenter
	case "alignRight":
		return s.Align == document.AlignRight
	case "alignJustify":
		return s.Align == document.AlignJustify
	case "addTableRow", "addTableColumn", "deleteTableRow", "deleteTableColumn":
		return s.InTable
	}
	return false
}
