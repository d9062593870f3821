package editor

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rich-edit/pkg/document"
)

func tableOf(t *testing.T, e *Editor, idx int) *document.Node {
	t.Helper()
	doc := e.Document()
	require.Greater(t, len(doc.Children), idx)
	table := doc.Children[idx]
	require.Equal(t, document.Table, table.Type)
	return table
}

func cellTexts(table *document.Node) [][]string {
	var out [][]string
	for _, row := range table.Children {
		var texts []string
		for _, cell := range row.Children {
			texts = append(texts, document.InlinesText(cell.Content))
		}
		out = append(out, texts)
	}
	return out
}

func TestInsertTable(t *testing.T) {
	e := newEditor(t, `<p>x</p>`)
	e.SetCursor(At(1, 0))

	require.NoError(t, e.Exec(InsertTable{}))

	doc := e.Document()
	require.Len(t, doc.Children, 3)
	table := doc.Children[1]
	assert.Equal(t, [][]string{
		{"Header 1", "Header 2", "Header 3"},
		{"Cell 1-1", "Cell 1-2", "Cell 1-3"},
		{"Cell 2-1", "Cell 2-2", "Cell 2-3"},
	}, cellTexts(table))
	assert.Equal(t, 1, table.HeaderRows())
	assert.Equal(t, document.Paragraph, doc.Children[2].Type)

	got, _ := e.Selection()
	assert.Equal(t, Cursor(At(0, 2)), got)
	assert.False(t, e.State().InTable)

	assert.Contains(t, e.Content(), `<thead><tr><th>Header 1</th><th>Header 2</th><th>Header 3</th></tr></thead>`)
}

func TestTableOperationsOutsideTableAreNoops(t *testing.T) {
	calls := 0
	e, err := New(Options{
		Content:         `<p>x</p><table><tr><td>a</td></tr></table>`,
		OnContentChange: func(string) { calls++ },
	})
	require.NoError(t, err)
	e.Focus()
	e.SetCursor(At(0, 0))
	before := e.Content()

	for _, cmd := range []Command{AddTableRow{}, AddTableColumn{}, DeleteTableRow{}, DeleteTableColumn{}} {
		require.NoError(t, e.Exec(cmd))
	}
	assert.Equal(t, before, e.Content())
	assert.Zero(t, calls)
}

func TestTableSelectionSpanningTwoTablesIsNoop(t *testing.T) {
	e := newEditor(t, `<table><tr><td>a</td></tr></table><table><tr><td>b</td></tr></table>`)
	e.Select(sel(At(0, 0, 0, 0), At(0, 1, 0, 0)))
	before := e.Content()

	require.NoError(t, e.Exec(AddTableColumn{}))
	assert.Equal(t, before, e.Content())
}

func TestAddRowAndColumn(t *testing.T) {
	e := newEditor(t, `<p></p>`)
	require.NoError(t, e.Exec(InsertTable{}))
	e.SetCursor(At(0, 0, 1, 0))

	require.NoError(t, e.Exec(AddTableRow{}))
	require.NoError(t, e.Exec(AddTableColumn{}))

	table := tableOf(t, e, 0)
	assert.Equal(t, [][]string{
		{"Header 1", "Header 2", "Header 3", "Header 4"},
		{"Cell 1-1", "Cell 1-2", "Cell 1-3", "Cell 1-4"},
		{"Cell 2-1", "Cell 2-2", "Cell 2-3", "Cell 2-4"},
		{"Cell 3-1", "Cell 3-2", "Cell 3-3", "Cell 3-4"},
	}, cellTexts(table))
	assert.True(t, table.Children[0].Children[3].Header)
	assert.False(t, table.Children[1].Children[3].Header)
	assert.True(t, table.Rectangular())
}

func TestAddColumnWithoutHeader(t *testing.T) {
	e := newEditor(t, `<table><tr><td>a</td></tr><tr><td>b</td></tr></table>`)
	e.SetCursor(At(0, 0, 1, 0))

	require.NoError(t, e.Exec(AddTableColumn{}))
	table := tableOf(t, e, 0)
	assert.Equal(t, [][]string{{"a", "Cell 1-2"}, {"b", "Cell 2-2"}}, cellTexts(table))
	assert.Zero(t, table.HeaderRows())
}

func TestDeleteFloors(t *testing.T) {
	t.Run("single cell table", func(t *testing.T) {
		e := newEditor(t, `<table><tr><td>a</td></tr></table>`)
		e.SetCursor(At(0, 0, 0, 0))
		before := e.Content()

		require.NoError(t, e.Exec(DeleteTableRow{}))
		require.NoError(t, e.Exec(DeleteTableColumn{}))
		assert.Equal(t, before, e.Content())
	})

	t.Run("header table keeps one body row", func(t *testing.T) {
		e := newEditor(t, `<p></p>`)
		require.NoError(t, e.Exec(InsertTable{}))
		e.SetCursor(At(0, 0, 0, 0))

		for k := 0; k < 5; k++ {
			require.NoError(t, e.Exec(DeleteTableRow{}))
		}
		for k := 0; k < 5; k++ {
			require.NoError(t, e.Exec(DeleteTableColumn{}))
		}
		table := tableOf(t, e, 0)
		assert.Equal(t, [][]string{{"Header 1"}, {"Cell 1-1"}}, cellTexts(table))
	})

	t.Run("cursor in a deleted column moves out", func(t *testing.T) {
		e := newEditor(t, `<p></p>`)
		require.NoError(t, e.Exec(InsertTable{}))
		e.SetCursor(At(3, 0, 1, 2))

		require.NoError(t, e.Exec(DeleteTableColumn{}))
		got, _ := e.Selection()
		assert.Equal(t, Cursor(At(8, 0, 1, 1)), got)
		assert.True(t, e.State().InTable)
	})
}

func TestTableStaysRectangular(t *testing.T) {
	e := newEditor(t, `<p></p>`)
	require.NoError(t, e.Exec(InsertTable{}))

	rng := rand.New(rand.NewSource(7))
	ops := []Command{AddTableRow{}, AddTableColumn{}, DeleteTableRow{}, DeleteTableColumn{}}
	for i := 0; i < 200; i++ {
		e.SetCursor(At(0, 0, 0, 0))
		require.NoError(t, e.Exec(ops[rng.Intn(len(ops))]))

		table := tableOf(t, e, 0)
		require.True(t, table.Rectangular(), "step %d", i)
		require.GreaterOrEqual(t, len(table.Children), 2)
		require.GreaterOrEqual(t, table.Columns(), 1)

		reparsed, err := document.Parse(e.Content())
		require.NoError(t, err)
		require.True(t, reparsed.Children[0].Rectangular(), "step %d", i)
	}
}
