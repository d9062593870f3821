package editor

import (
	"slices"
	"strings"

	"rich-edit/pkg/document"
)

func parentOf(path []int) ([]int, int) {
	return slices.Clone(path[:len(path)-1]), path[len(path)-1]
}

func childPath(parent []int, idx int) []int {
	return append(slices.Clone(parent), idx)
}

func insertNodes(doc *document.Document, parent []int, at int, nodes ...*document.Node) {
	children := doc.ChildrenAt(parent)
	doc.SetChildrenAt(parent, slices.Insert(children, min(at, len(children)), nodes...))
}

func removeNode(doc *document.Document, path []int) {
	parent, idx := parentOf(path)
	doc.SetChildrenAt(parent, slices.Delete(doc.ChildrenAt(parent), idx, idx+1))
}

func replaceNode(doc *document.Document, path []int, nodes ...*document.Node) {
	parent, idx := parentOf(path)
	doc.SetChildrenAt(parent, slices.Replace(doc.ChildrenAt(parent), idx, idx+1, nodes...))
}

// ancestor finds the nearest enclosing node of type t.
func ancestor(doc *document.Document, path []int, t document.NodeType) ([]int, *document.Node) {
	for i := len(path) - 1; i >= 1; i-- {
		if n := doc.NodeAt(path[:i]); n != nil && n.Type == t {
			return slices.Clone(path[:i]), n
		}
	}
	return nil, nil
}

func inTable(doc *document.Document, path []int) bool {
	p, _ := ancestor(doc, path, document.Table)
	return p != nil
}

// parentNode returns the container of the node at path, nil for the root.
func parentNode(doc *document.Document, path []int) *document.Node {
	if len(path) < 2 {
		return nil
	}
	return doc.NodeAt(path[:len(path)-1])
}

type leafRef struct {
	path []int
	node *document.Node
}

// leaves lists textblocks and childless blocks such as rules in document order.
func leaves(doc *document.Document) []leafRef {
	var out []leafRef
	var walk func(children []*document.Node, prefix []int)
	walk = func(children []*document.Node, prefix []int) {
		for i, n := range children {
			path := childPath(prefix, i)
			if n.IsTextblock() || len(n.Children) == 0 {
				out = append(out, leafRef{path: path, node: n})
				continue
			}
			walk(n.Children, path)
		}
	}
	walk(doc.Children, nil)
	return out
}

func isContainer(t document.NodeType) bool {
	switch t {
	case document.Blockquote, document.Table, document.TableRow:
		return true
	}
	return t.IsList()
}

// pruneEmpty drops containers left without children.
func pruneEmpty(doc *document.Document) {
	var prune func(children []*document.Node) []*document.Node
	prune = func(children []*document.Node) []*document.Node {
		out := children[:0]
		for _, n := range children {
			if isContainer(n.Type) {
				n.Children = prune(n.Children)
				if len(n.Children) == 0 {
					continue
				}
			}
			out = append(out, n)
		}
		return out
	}
	doc.Children = prune(doc.Children)
}

// ensureTextblock keeps at least one place for the cursor.
func ensureTextblock(doc *document.Document) {
	if len(doc.Textblocks()) == 0 {
		doc.Children = append(doc.Children, document.NewParagraph())
	}
}

func cutTextblock(n *document.Node, from, to int) {
	if from >= to {
		return
	}
	if n.Type == document.CodeBlock {
		r := []rune(n.Code)
		n.Code = string(r[:from]) + string(r[to:])
		return
	}
	n.Content = document.ReplaceInlines(n.Content, from, to)
}

func textblockText(n *document.Node, from, to int) string {
	if n.Type == document.CodeBlock {
		r := []rune(n.Code)
		return strings.ReplaceAll(string(r[from:to]), document.ZeroWidthSpace, "")
	}
	return document.InlinesText(document.SliceInlines(n.Content, from, to))
}

func runeLen(s string) int { return len([]rune(s)) }
