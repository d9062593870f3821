// Package document holds the editable content tree and its markup codec.
//
// A Document is a tree of block nodes. Leaf blocks that can hold a cursor are
// called textblocks: paragraphs, headings, list items and table cells carry
// inline runs, code blocks carry verbatim text. Offsets inside a textblock are
// counted in runes; images and hard breaks take one position each.
package document

import "strings"

// NodeType identifies a block node.
type NodeType int

const (
	Paragraph NodeType = iota
	Heading
	BulletList
	OrderedList
	TaskList
	ListItem
	Blockquote
	CodeBlock
	HorizontalRule
	Table
	TableRow
	TableCell
)

var nodeTypeNames = map[NodeType]string{
	Paragraph:      "paragraph",
	Heading:        "heading",
	BulletList:     "bulletList",
	OrderedList:    "orderedList",
	TaskList:       "taskList",
	ListItem:       "listItem",
	Blockquote:     "blockquote",
	CodeBlock:      "codeBlock",
	HorizontalRule: "horizontalRule",
	Table:          "table",
	TableRow:       "tableRow",
	TableCell:      "tableCell",
}

func (t NodeType) String() string {
	if name, ok := nodeTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

func (t NodeType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// IsList reports whether t is one of the list container types.
func (t NodeType) IsList() bool {
	return t == BulletList || t == OrderedList || t == TaskList
}

// Align is the horizontal alignment of a textblock.
type Align int

const (
	AlignDefault Align = iota
	AlignLeft
	AlignCenter
	AlignRight
	AlignJustify
)

func (a Align) String() string {
	switch a {
	case AlignLeft:
		return "left"
	case AlignCenter:
		return "center"
	case AlignRight:
		return "right"
	case AlignJustify:
		return "justify"
	}
	return ""
}

func (a Align) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// ParseAlign converts a CSS text-align value.
func ParseAlign(raw string) Align {
	switch raw {
	case "left", "start":
		return AlignLeft
	case "center":
		return AlignCenter
	case "right", "end":
		return AlignRight
	case "justify":
		return AlignJustify
	}
	return AlignDefault
}

// Node is a block in the document tree.
type Node struct {
	Type NodeType

	// Level is the heading level (1..6).
	Level int
	Align Align
	// Language tags a code block.
	Language string
	// Header marks a table header cell.
	Header bool
	// Checked is the state of a task list item.
	Checked bool

	// Code is the verbatim text of a code block.
	Code string
	// Content is the inline content of a textblock.
	Content []Inline
	// Children of a container block.
	Children []*Node
}

// Document is the root of the tree.
type Document struct {
	Children []*Node
}

// IsTextblock reports whether the node can hold a cursor.
func (n *Node) IsTextblock() bool {
	switch n.Type {
	case Paragraph, Heading, ListItem, TableCell, CodeBlock:
		return true
	}
	return false
}

// Len is the number of cursor positions in a textblock.
func (n *Node) Len() int {
	if n.Type == CodeBlock {
		return len([]rune(n.Code))
	}
	return InlinesLen(n.Content)
}

// Clone returns a deep copy.
func (n *Node) Clone() *Node {
	c := *n
	c.Content = CloneInlines(n.Content)
	if n.Children != nil {
		c.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			c.Children[i] = child.Clone()
		}
	}
	return &c
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	c := &Document{Children: make([]*Node, len(d.Children))}
	for i, child := range d.Children {
		c.Children[i] = child.Clone()
	}
	return c
}

// NewParagraph builds a paragraph from inline runs.
func NewParagraph(content ...Inline) *Node {
	return &Node{Type: Paragraph, Content: content}
}

// NewHeading builds a heading of the given level.
func NewHeading(level int, content ...Inline) *Node {
	return &Node{Type: Heading, Level: level, Content: content}
}

// NewCodeBlock builds a code block.
func NewCodeBlock(language, code string) *Node {
	return &Node{Type: CodeBlock, Language: language, Code: code}
}

// NewList builds a list container of the given type with one item per content slice.
func NewList(t NodeType, items ...[]Inline) *Node {
	list := &Node{Type: t}
	for _, item := range items {
		list.Children = append(list.Children, &Node{Type: ListItem, Content: item})
	}
	return list
}

// NewTable builds a table from cell texts. The first row is a header row when header is set.
func NewTable(header bool, rows ...[]string) *Node {
	table := &Node{Type: Table}
	for r, cells := range rows {
		row := &Node{Type: TableRow}
		for _, text := range cells {
			cell := &Node{Type: TableCell, Header: header && r == 0}
			if text != "" {
				cell.Content = []Inline{NewText(text)}
			}
			row.Children = append(row.Children, cell)
		}
		table.Children = append(table.Children, row)
	}
	return table
}

// Columns is the cell count of the first row.
func (n *Node) Columns() int {
	if n.Type != Table || len(n.Children) == 0 {
		return 0
	}
	return len(n.Children[0].Children)
}

// HeaderRows is 1 when the first row holds header cells.
func (n *Node) HeaderRows() int {
	if n.Type != Table || len(n.Children) == 0 {
		return 0
	}
	for _, cell := range n.Children[0].Children {
		if !cell.Header {
			return 0
		}
	}
	if len(n.Children[0].Children) == 0 {
		return 0
	}
	return 1
}

// Rectangular reports whether every row of a table has the same cell count.
func (n *Node) Rectangular() bool {
	cols := n.Columns()
	for _, row := range n.Children {
		if len(row.Children) != cols {
			return false
		}
	}
	return true
}

// NodeAt resolves a child-index path. It returns nil when the path does not resolve.
func (d *Document) NodeAt(path []int) *Node {
	if len(path) == 0 {
		return nil
	}
	children := d.Children
	var n *Node
	for _, idx := range path {
		if idx < 0 || idx >= len(children) {
			return nil
		}
		n = children[idx]
		children = n.Children
	}
	return n
}

// ChildrenAt returns the child slice that contains the node at path, i.e. the
// children of the parent (or the document root).
func (d *Document) ChildrenAt(parent []int) []*Node {
	if len(parent) == 0 {
		return d.Children
	}
	n := d.NodeAt(parent)
	if n == nil {
		return nil
	}
	return n.Children
}

// SetChildrenAt replaces the children of the node at parent (or of the root).
func (d *Document) SetChildrenAt(parent []int, children []*Node) {
	if len(parent) == 0 {
		d.Children = children
		return
	}
	if n := d.NodeAt(parent); n != nil {
		n.Children = children
	}
}

// TextblockRef addresses a textblock by path.
type TextblockRef struct {
	Path []int
	Node *Node
}

// Textblocks lists every textblock in document order.
func (d *Document) Textblocks() []TextblockRef {
	var refs []TextblockRef
	var walk func(children []*Node, prefix []int)
	walk = func(children []*Node, prefix []int) {
		for i, n := range children {
			path := append(append([]int(nil), prefix...), i)
			if n.IsTextblock() {
				refs = append(refs, TextblockRef{Path: path, Node: n})
				continue
			}
			walk(n.Children, path)
		}
	}
	walk(d.Children, nil)
	return refs
}

// IsEmpty reports whether the document has no visible content.
func (d *Document) IsEmpty() bool {
	for _, n := range d.Children {
		if n.Type != Paragraph || hasAtoms(n.Content) {
			return false
		}
		if strings.TrimSpace(InlinesText(n.Content)) != "" {
			return false
		}
	}
	return true
}

func hasAtoms(content []Inline) bool {
	for _, in := range content {
		if in.Kind == InlineImage {
			return true
		}
	}
	return false
}
