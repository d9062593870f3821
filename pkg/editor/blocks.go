package editor

import (
	"slices"
	"strings"

	"rich-edit/pkg/document"
)

func (e *Editor) setHeading(level int) bool {
	var blocks []*document.Node
	for _, seg := range e.segments(e.sel) {
		if seg.node.Type == document.Paragraph || seg.node.Type == document.Heading {
			blocks = append(blocks, seg.node)
		}
	}
	if len(blocks) == 0 {
		return false
	}

	same := true
	for _, n := range blocks {
		same = same && n.Type == document.Heading && n.Level == level
	}
	for _, n := range blocks {
		if same {
			n.Type, n.Level = document.Paragraph, 0
		} else {
			n.Type, n.Level = document.Heading, level
		}
	}
	return true
}

func (e *Editor) setParagraph() bool {
	changed := false
	for _, seg := range e.segments(e.sel) {
		if seg.node.Type == document.Heading {
			seg.node.Type, seg.node.Level = document.Paragraph, 0
			changed = true
		}
	}
	return changed
}

// wrappable reports whether a textblock may be turned into a list item or
// quoted: paragraphs and headings outside lists and tables.
func (e *Editor) wrappable(seg segment) bool {
	if seg.node.Type != document.Paragraph && seg.node.Type != document.Heading {
		return false
	}
	parent := parentNode(e.doc, seg.path)
	return parent == nil || parent.Type == document.Blockquote
}

// toggleList wraps the selected blocks into a list of kind, switches lists of
// another kind over, or unwraps the items when all of them already are in a
// list of kind.
func (e *Editor) toggleList(kind document.NodeType) bool {
	var items, blocks []segment
	for _, seg := range e.segments(e.sel) {
		switch {
		case seg.node.Type == document.ListItem:
			items = append(items, seg)
		case e.wrappable(seg):
			blocks = append(blocks, seg)
		}
	}
	if len(items) == 0 && len(blocks) == 0 {
		return false
	}

	bm := bookmarkOf(e.doc, e.sel)
	defer func() { e.sel = bm.resolve(e.doc) }()

	unwrap := len(blocks) == 0
	for _, it := range items {
		unwrap = unwrap && parentNode(e.doc, it.path).Type == kind
	}

	if unwrap {
		lists := groupByParent(items)
		for i := len(lists) - 1; i >= 0; i-- {
			e.unwrapItems(lists[i].parent, lists[i].indices)
		}
		return true
	}

	for _, it := range items {
		list := parentNode(e.doc, it.path)
		if list.Type != kind {
			list.Type = kind
		}
	}

	runs := consecutiveRuns(blocks)
	for i := len(runs) - 1; i >= 0; i-- {
		run := runs[i]
		list := &document.Node{Type: kind}
		children := e.doc.ChildrenAt(run.parent)
		for _, idx := range run.indices {
			n := children[idx]
			list.Children = append(list.Children, &document.Node{Type: document.ListItem, Align: n.Align, Content: n.Content})
		}
		first, last := run.indices[0], run.indices[len(run.indices)-1]
		e.doc.SetChildrenAt(run.parent, slices.Replace(children, first, last+1, list))
	}
	return true
}

type siblingGroup struct {
	parent  []int
	indices []int
}

// groupByParent groups segments sharing a parent, in document order.
func groupByParent(segs []segment) []siblingGroup {
	var out []siblingGroup
	for _, seg := range segs {
		parent, idx := parentOf(seg.path)
		if n := len(out); n > 0 && comparePaths(out[n-1].parent, parent) == 0 {
			out[n-1].indices = append(out[n-1].indices, idx)
			continue
		}
		out = append(out, siblingGroup{parent: parent, indices: []int{idx}})
	}
	return out
}

// consecutiveRuns further splits sibling groups where indices are not adjacent.
func consecutiveRuns(segs []segment) []siblingGroup {
	var out []siblingGroup
	for _, g := range groupByParent(segs) {
		start := 0
		for i := 1; i <= len(g.indices); i++ {
			if i == len(g.indices) || g.indices[i] != g.indices[i-1]+1 {
				out = append(out, siblingGroup{parent: g.parent, indices: g.indices[start:i]})
				start = i
			}
		}
	}
	return out
}

// toggleBlockquote quotes the top-level blocks spanned by the selection, or
// lifts their content out when all of them are quoted.
func (e *Editor) toggleBlockquote() bool {
	segs := e.segments(e.sel)
	if len(segs) == 0 {
		return false
	}

	bm := bookmarkOf(e.doc, e.sel)
	defer func() { e.sel = bm.resolve(e.doc) }()

	var tops []int
	quoted := true
	for _, seg := range segs {
		top := seg.path[0]
		if !slices.Contains(tops, top) {
			tops = append(tops, top)
		}
		quoted = quoted && e.doc.Children[top].Type == document.Blockquote
	}

	if quoted {
		for i := len(tops) - 1; i >= 0; i-- {
			replaceNode(e.doc, []int{tops[i]}, e.doc.Children[tops[i]].Children...)
		}
		return true
	}

	first, last := tops[0], tops[len(tops)-1]
	quote := &document.Node{Type: document.Blockquote}
	for _, n := range e.doc.Children[first : last+1] {
		if n.Type == document.Blockquote {
			quote.Children = append(quote.Children, n.Children...)
			continue
		}
		quote.Children = append(quote.Children, n)
	}
	e.doc.Children = slices.Replace(e.doc.Children, first, last+1, quote)
	return true
}

// insertBlock deletes the selection and places block at the cursor. A
// paragraph or heading at the root or in a quote is split around it, an
// empty one is replaced. Inside lists and tables the block goes after the
// enclosing top-level block. It returns the path of the inserted block.
func (e *Editor) insertBlock(block *document.Node) []int {
	pos := e.collapse()
	n := e.doc.NodeAt(pos.Path)
	parent, idx := parentOf(pos.Path)

	if e.wrappable(segment{path: pos.Path, node: n}) {
		left, right := document.SplitInlines(n.Content, pos.Offset)
		var seq []*document.Node
		at := idx
		if document.InlinesLen(left) > 0 || hasImage(left) {
			n.Content = left
			seq = append(seq, n)
			at++
		}
		seq = append(seq, block)
		if document.InlinesLen(right) > 0 {
			seq = append(seq, &document.Node{Type: n.Type, Level: n.Level, Align: n.Align, Content: right})
		}
		replaceNode(e.doc, pos.Path, seq...)
		return childPath(parent, at)
	}

	if n.Type == document.CodeBlock {
		insertNodes(e.doc, parent, idx+1, block)
		return childPath(parent, idx+1)
	}

	top := pos.Path[0]
	insertNodes(e.doc, nil, top+1, block)
	return []int{top + 1}
}

func hasImage(content []document.Inline) bool {
	for _, in := range content {
		if in.Kind == document.InlineImage {
			return true
		}
	}
	return false
}

// cursorAfter moves the cursor to the start of the first textblock after
// the block at path, adding an empty paragraph when nothing follows.
func (e *Editor) cursorAfter(path []int) {
	parent, idx := parentOf(path)
	if idx+1 >= len(e.doc.ChildrenAt(parent)) {
		insertNodes(e.doc, parent, idx+1, document.NewParagraph())
	}
	next, _ := e.textblockAfter(lastDescendant(e.doc, path))
	e.sel = Cursor(Position{Path: next.Path})
}

// lastDescendant is the path of the deepest last node under path.
func lastDescendant(doc *document.Document, path []int) []int {
	p := slices.Clone(path)
	for n := doc.NodeAt(p); n != nil && len(n.Children) > 0; n = n.Children[len(n.Children)-1] {
		p = append(p, len(n.Children)-1)
	}
	return p
}

func (e *Editor) insertHorizontalRule() bool {
	path := e.insertBlock(&document.Node{Type: document.HorizontalRule})
	e.cursorAfter(path)
	return true
}

// DefaultCodeLanguage tags code blocks inserted without a language.
const DefaultCodeLanguage = "javascript"

var codeSamples = map[string]string{
	"javascript": "// JavaScript\nconsole.log(\"Hello, World!\");\n\nfunction greet(name) {\n    return `Hello, ${name}!`;\n}",
	"typescript": "// TypeScript\ninterface Person {\n    name: string;\n}\n\nfunction greet(person: Person): string {\n    return `Hello, ${person.name}!`;\n}",
	"python":     "# Python\nprint(\"Hello, World!\")\n\ndef greet(name):\n    return f\"Hello, {name}!\"",
	"go":         "package main\n\nimport \"fmt\"\n\nfunc main() {\n    fmt.Println(\"Hello, World!\")\n}",
	"java":       "// Java\npublic class HelloWorld {\n    public static void main(String[] args) {\n        System.out.println(\"Hello, World!\");\n    }\n}",
	"c":          "// C\n#include <stdio.h>\n\nint main() {\n    printf(\"Hello, World!\\n\");\n    return 0;\n}",
	"c++":        "// C++\n#include <iostream>\n\nint main() {\n    std::cout << \"Hello, World!\" << std::endl;\n    return 0;\n}",
	"rust":       "// Rust\nfn main() {\n    println!(\"Hello, World!\");\n}",
	"bash":       "# Bash\necho \"Hello, World!\"\nls -la",
	"sql":        "-- SQL\nSELECT * FROM users\nWHERE age > 18\nORDER BY name;",
	"json":       "{\n  \"name\": \"Hello World\",\n  \"version\": \"1.0.0\"\n}",
	"html":       "<!DOCTYPE html>\n<html>\n<body>\n    <h1>Hello, World!</h1>\n</body>\n</html>",
	"css":        "body {\n    font-family: Arial, sans-serif;\n    margin: 0;\n}",
}

// CodeSample is the starter snippet for a language.
func CodeSample(language string) string {
	if s, ok := codeSamples[language]; ok {
		return s
	}
	return "Plain text\n\nType anything here."
}

// insertCodeBlock turns the selected text into a code block, or inserts a
// sample for the language. The code is selected afterwards.
func (e *Editor) insertCodeBlock(language string) bool {
	lang := document.NormalizeLanguage(language)
	text := e.selectedText()
	if e.sel.Collapsed() || strings.TrimSpace(text) == "" {
		if lang == "" {
			lang = DefaultCodeLanguage
		}
		text = CodeSample(lang)
	} else if lang == "" {
		lang = document.DetectLanguage(text)
	}

	path := e.insertBlock(document.NewCodeBlock(lang, text))
	e.sel = Selection{
		Anchor: Position{Path: path},
		Focus:  Position{Path: path, Offset: runeLen(text)},
	}
	return true
}

// toggleTaskItem checks the selected task items, or unchecks them when all
// are checked.
func (e *Editor) toggleTaskItem() bool {
	var items []*document.Node
	for _, seg := range e.segments(e.sel) {
		if seg.node.Type == document.ListItem && parentNode(e.doc, seg.path).Type == document.TaskList {
			items = append(items, seg.node)
		}
	}
	if len(items) == 0 {
		return false
	}
	all := true
	for _, it := range items {
		all = all && it.Checked
	}
	for _, it := range items {
		it.Checked = !all
	}
	return true
}
