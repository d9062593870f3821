package editor

import (
	"fmt"
	"strconv"

	"rich-edit/pkg/document"
)

// Command is a toolbar action applied at the current selection.
type Command interface {
	command()
}

type (
	ToggleMark struct{ Mark document.Marks }
	// SetHeading turns blocks into headings of Level 1..6, or back into
	// paragraphs when they already are.
	SetHeading           struct{ Level int }
	SetParagraph         struct{}
	ToggleList           struct{ Kind document.NodeType }
	ToggleBlockquote     struct{}
	InsertHorizontalRule struct{}
	SetAlign             struct{ Align document.Align }
	RemoveFormat         struct{}
	ToggleInlineCode     struct{}
	InsertCodeBlock      struct{ Language string }
	ToggleTaskItem       struct{}
	InsertTable          struct{}
	AddTableRow          struct{}
	AddTableColumn       struct{}
	DeleteTableRow       struct{}
	DeleteTableColumn    struct{}
)

func (ToggleMark) command()           {}
func (SetHeading) command()           {}
func (SetParagraph) command()         {}
func (ToggleList) command()           {}
func (ToggleBlockquote) command()     {}
func (InsertHorizontalRule) command() {}
func (SetAlign) command()             {}
func (RemoveFormat) command()         {}
func (ToggleInlineCode) command()     {}
func (InsertCodeBlock) command()      {}
func (ToggleTaskItem) command()       {}
func (InsertTable) command()          {}
func (AddTableRow) command()          {}
func (AddTableColumn) command()       {}
func (DeleteTableRow) command()       {}
func (DeleteTableColumn) command()    {}

// ParseCommand maps a toolbar action name and its value onto a command.
func ParseCommand(action, value string) (Command, error) {
	switch action {
	case "bold":
		return ToggleMark{Mark: document.Bold}, nil
	case "italic":
		return ToggleMark{Mark: document.Italic}, nil
	case "underline":
		return ToggleMark{Mark: document.Underline}, nil
	case "strike", "strikeThrough":
		return ToggleMark{Mark: document.Strike}, nil
	case "heading":
		if value == "" || value == "0" || value == "p" {
			return SetParagraph{}, nil
		}
		level, err := strconv.Atoi(value)
		if err != nil || level < 1 || level > 6 {
			return nil, fmt.Errorf("%w: heading level %q", ErrInvalidCommand, value)
		}
		return SetHeading{Level: level}, nil
	case "paragraph":
		return SetParagraph{}, nil
	case "bulletList":
		return ToggleList{Kind: document.BulletList}, nil
	case "orderedList":
		return ToggleList{Kind: document.OrderedList}, nil
	case "taskList":
		return ToggleList{Kind: document.TaskList}, nil
	case "toggleTask":
		return ToggleTaskItem{}, nil
	case "blockquote":
		return ToggleBlockquote{}, nil
	case "horizontalRule":
		return InsertHorizontalRule{}, nil
	case "alignLeft":
		return SetAlign{Align: document.AlignLeft}, nil
	case "alignCenter":
		return SetAlign{Align: document.AlignCenter}, nil
	case "alignRight":
		return SetAlign{Align: document.AlignRight}, nil
	case "alignJustify":
		return SetAlign{Align: document.AlignJustify}, nil
	case "align":
		align := document.ParseAlign(value)
		if align == document.AlignDefault {
			return nil, fmt.Errorf("%w: alignment %q", ErrInvalidCommand, value)
		}
		return SetAlign{Align: align}, nil
	case "removeFormat":
		return RemoveFormat{}, nil
	case "code":
		return ToggleInlineCode{}, nil
	case "codeBlock":
		return InsertCodeBlock{}, nil
	case "codeBlockLanguage":
		if value == "" {
			return nil, fmt.Errorf("%w: missing code block language", ErrInvalidCommand)
		}
		return InsertCodeBlock{Language: value}, nil
	case "insertTable":
		return InsertTable{}, nil
	case "addTableRow":
		return AddTableRow{}, nil
	case "addTableColumn":
		return AddTableColumn{}, nil
	case "deleteTableRow":
		return DeleteTableRow{}, nil
	case "deleteTableColumn":
		return DeleteTableColumn{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidCommand, action)
}

// Exec applies cmd at the current selection. Without a selection it does
// nothing. Commands that do not apply where the selection is, such as table
// operations outside a table, are silent no-ops too.
func (e *Editor) Exec(cmd Command) error {
	if !e.hasSel {
		return nil
	}
	e.enterCount = 0

	var changed bool
	switch c := cmd.(type) {
	case ToggleMark:
		changed = e.toggleMark(c.Mark)
	case SetHeading:
		changed = e.setHeading(min(max(c.Level, 1), 6))
	case SetParagraph:
		changed = e.setParagraph()
	case ToggleList:
		if !c.Kind.IsList() {
			return fmt.Errorf("%w: list kind %s", ErrInvalidCommand, c.Kind)
		}
		changed = e.toggleList(c.Kind)
	case ToggleBlockquote:
		changed = e.toggleBlockquote()
	case InsertHorizontalRule:
		changed = e.insertHorizontalRule()
	case SetAlign:
		changed = e.setAlign(c.Align)
	case RemoveFormat:
		changed = e.removeFormat()
	case ToggleInlineCode:
		changed = e.toggleInlineCode()
	case InsertCodeBlock:
		changed = e.insertCodeBlock(c.Language)
	case ToggleTaskItem:
		changed = e.toggleTaskItem()
	case InsertTable:
		changed = e.insertTable()
	case AddTableRow:
		changed = e.addTableRow()
	case AddTableColumn:
		changed = e.addTableColumn()
	case DeleteTableRow:
		changed = e.deleteTableRow()
	case DeleteTableColumn:
		changed = e.deleteTableColumn()
	default:
		return fmt.Errorf("%w: %T", ErrInvalidCommand, cmd)
	}

	if changed {
		e.changed()
	} else {
		e.refresh()
	}
	return nil
}

// InsertText types s at the selection, replacing selected content.
func (e *Editor) InsertText(s string) {
	if !e.hasSel || s == "" {
		return
	}
	e.enterCount = 0
	pos := e.collapse()
	e.sel = Cursor(e.insertText(pos, s))
	e.stored = nil
	e.changed()
}

// Paste inserts plain text at the selection.
func (e *Editor) Paste(text string) {
	if !e.hasSel || text == "" {
		return
	}
	e.enterCount = 0
	e.paste(text)
	e.stored = nil
	e.changed()
}

// DeleteSelection removes the selected content.
func (e *Editor) DeleteSelection() {
	if !e.hasSel || e.sel.Collapsed() {
		return
	}
	e.collapse()
	e.changed()
}
