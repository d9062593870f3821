package session

import (
	"fmt"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Operation types.
const (
	OpInsert = "insert"
	OpDelete = "delete"
	OpRetain = "retain"
)

// Operation is one step of a content change. Position and Length count
// runes of the markup.
type Operation struct {
	Type     string `json:"type"`
	Position int    `json:"position"`
	Content  string `json:"content,omitempty"`
	Length   int    `json:"length"`
}

// Diff turns the change from before to after into operations that walk the
// old markup from the start.
func Diff(before, after string) []Operation {
	if before == after {
		return nil
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(before, after, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	ops := make([]Operation, 0, len(diffs))
	pos := 0
	for _, d := range diffs {
		n := utf8.RuneCountInString(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			ops = append(ops, Operation{Type: OpRetain, Position: pos, Length: n})
			pos += n
		case diffmatchpatch.DiffInsert:
			ops = append(ops, Operation{Type: OpInsert, Position: pos, Content: d.Text, Length: n})
			pos += n
		case diffmatchpatch.DiffDelete:
			ops = append(ops, Operation{Type: OpDelete, Position: pos, Content: d.Text, Length: n})
		}
	}
	return ops
}

// Apply replays ops on content, the way a client keeps its copy current.
func Apply(content string, ops []Operation) (string, error) {
	runes := []rune(content)
	for _, op := range ops {
		if op.Position < 0 || op.Position > len(runes) {
			return "", fmt.Errorf("operation %s at %d out of range", op.Type, op.Position)
		}
		switch op.Type {
		case OpRetain:
		case OpInsert:
			ins := []rune(op.Content)
			runes = append(runes[:op.Position], append(ins, runes[op.Position:]...)...)
		case OpDelete:
			end := op.Position + op.Length
			if end > len(runes) {
				return "", fmt.Errorf("delete of %d at %d out of range", op.Length, op.Position)
			}
			runes = append(runes[:op.Position], runes[end:]...)
		default:
			return "", fmt.Errorf("unknown operation %q", op.Type)
		}
	}
	return string(runes), nil
}
