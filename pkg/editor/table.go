package editor

import (
	"fmt"
	"slices"

	"rich-edit/pkg/document"
)

// Initial shape of an inserted table.
const (
	InitialTableColumns = 3
	InitialTableRows    = 2
)

func headerText(col int) string    { return fmt.Sprintf("Header %d", col+1) }
func cellText(row, col int) string { return fmt.Sprintf("Cell %d-%d", row, col+1) }

func newCell(header bool, text string) *document.Node {
	return &document.Node{Type: document.TableCell, Header: header, Content: []document.Inline{document.NewText(text)}}
}

// insertTable places a table of placeholder cells at the cursor and moves
// the cursor to the block following it.
func (e *Editor) insertTable() bool {
	table := &document.Node{Type: document.Table}
	header := &document.Node{Type: document.TableRow}
	for c := 0; c < InitialTableColumns; c++ {
		header.Children = append(header.Children, newCell(true, headerText(c)))
	}
	table.Children = append(table.Children, header)
	for r := 1; r <= InitialTableRows; r++ {
		row := &document.Node{Type: document.TableRow}
		for c := 0; c < InitialTableColumns; c++ {
			row.Children = append(row.Children, newCell(false, cellText(r, c)))
		}
		table.Children = append(table.Children, row)
	}

	path := e.insertBlock(table)
	e.cursorAfter(path)
	return true
}

// enclosingTable is the table holding the whole selection.
func (e *Editor) enclosingTable() *document.Node {
	from, _ := ancestor(e.doc, e.sel.From().Path, document.Table)
	to, table := ancestor(e.doc, e.sel.To().Path, document.Table)
	if from == nil || comparePaths(from, to) != 0 {
		return nil
	}
	return table
}

func (e *Editor) addTableRow() bool {
	table := e.enclosingTable()
	if table == nil {
		return false
	}
	r := len(table.Children) - table.HeaderRows() + 1
	row := &document.Node{Type: document.TableRow}
	for c, n := 0, table.Columns(); c < n; c++ {
		row.Children = append(row.Children, newCell(false, cellText(r, c)))
	}
	table.Children = append(table.Children, row)
	return true
}

func (e *Editor) addTableColumn() bool {
	table := e.enclosingTable()
	if table == nil {
		return false
	}
	header := table.HeaderRows() == 1
	c := table.Columns()
	for i, row := range table.Children {
		if header && i == 0 {
			row.Children = append(row.Children, newCell(true, headerText(c)))
			continue
		}
		r := i
		if !header {
			r = i + 1
		}
		row.Children = append(row.Children, newCell(false, cellText(r, c)))
	}
	return true
}

// deleteTableRow drops the last body row, keeping at least one.
func (e *Editor) deleteTableRow() bool {
	table := e.enclosingTable()
	if table == nil || len(table.Children) <= table.HeaderRows()+1 {
		return false
	}
	table.Children = slices.Delete(table.Children, len(table.Children)-1, len(table.Children))
	return true
}

// deleteTableColumn drops the last column, keeping at least one.
func (e *Editor) deleteTableColumn() bool {
	table := e.enclosingTable()
	if table == nil || table.Columns() <= 1 {
		return false
	}
	for _, row := range table.Children {
		row.Children = row.Children[:len(row.Children)-1]
	}
	return true
}
