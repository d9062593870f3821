package document

import "strings"

// Text is the plain-text projection of the document: one line per block,
// table cells separated by tabs.
func Text(doc *Document) string {
	var lines []string
	for _, n := range doc.Children {
		lines = append(lines, blockText(n)...)
	}
	return strings.Join(lines, "\n")
}

func blockText(n *Node) []string {
	switch n.Type {
	case HorizontalRule:
		return nil
	case CodeBlock:
		return []string{strings.ReplaceAll(n.Code, ZeroWidthSpace, "")}
	case Paragraph, Heading, ListItem, TableCell:
		return []string{InlinesText(n.Content)}
	case Table:
		var rows []string
		for _, row := range n.Children {
			cells := make([]string, 0, len(row.Children))
			for _, cell := range row.Children {
				cells = append(cells, InlinesText(cell.Content))
			}
			rows = append(rows, strings.Join(cells, "\t"))
		}
		return rows
	}

	var lines []string
	for _, child := range n.Children {
		lines = append(lines, blockText(child)...)
	}
	return lines
}
