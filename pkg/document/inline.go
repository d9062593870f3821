package document

import "strings"

// InlineKind identifies an inline run.
type InlineKind int

const (
	InlineText InlineKind = iota
	InlineCode
	InlineImage
	InlineHardBreak
)

// Marks is a set of boolean text formats.
type Marks uint8

const (
	Bold Marks = 1 << iota
	Italic
	Underline
	Strike
)

// AllMarks lists the marks in rendering order (outermost first).
var AllMarks = []Marks{Bold, Italic, Underline, Strike}

func (m Marks) Has(mark Marks) bool     { return m&mark == mark }
func (m Marks) With(mark Marks) Marks    { return m | mark }
func (m Marks) Without(mark Marks) Marks { return m &^ mark }

func (m Marks) String() string {
	var names []string
	for _, mark := range AllMarks {
		if m.Has(mark) {
			names = append(names, markNames[mark])
		}
	}
	return strings.Join(names, ",")
}

func (m Marks) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

var markNames = map[Marks]string{
	Bold:      "bold",
	Italic:    "italic",
	Underline: "underline",
	Strike:    "strike",
}

// ZeroWidthSpace is the marker used to step the caret out of an inline code run.
const ZeroWidthSpace = "\u200b"

// Image is an inline picture with an optional resized box.
type Image struct {
	Src    string
	Alt    string
	Width  int
	Height int
}

// Inline is a run of inline content. Text runs carry marks and an optional
// link destination; code runs are verbatim and unformatted.
type Inline struct {
	Kind  InlineKind
	Text  string
	Marks Marks
	Href  string
	Image *Image
}

func NewText(text string, marks ...Marks) Inline {
	in := Inline{Kind: InlineText, Text: text}
	for _, m := range marks {
		in.Marks |= m
	}
	return in
}

func NewLink(text, href string, marks ...Marks) Inline {
	in := NewText(text, marks...)
	in.Href = href
	return in
}

func NewCode(text string) Inline {
	return Inline{Kind: InlineCode, Text: text}
}

func NewImage(img Image) Inline {
	return Inline{Kind: InlineImage, Image: &img}
}

func NewHardBreak() Inline {
	return Inline{Kind: InlineHardBreak}
}

// Len is the number of cursor positions the run occupies.
func (in Inline) Len() int {
	switch in.Kind {
	case InlineImage, InlineHardBreak:
		return 1
	}
	return len([]rune(in.Text))
}

// SameFormat reports whether two text runs can be merged.
func (in Inline) SameFormat(other Inline) bool {
	if in.Kind != other.Kind {
		return false
	}
	switch in.Kind {
	case InlineText:
		return in.Marks == other.Marks && in.Href == other.Href
	case InlineCode:
		return true
	}
	return false
}

func (in Inline) clone() Inline {
	if in.Image != nil {
		img := *in.Image
		in.Image = &img
	}
	return in
}

// InlinesLen sums the run lengths.
func InlinesLen(content []Inline) int {
	n := 0
	for _, in := range content {
		n += in.Len()
	}
	return n
}

// CloneInlines deep-copies a run slice.
func CloneInlines(content []Inline) []Inline {
	if content == nil {
		return nil
	}
	out := make([]Inline, len(content))
	for i, in := range content {
		out[i] = in.clone()
	}
	return out
}

// SplitInlines divides content at offset.
func SplitInlines(content []Inline, offset int) (left, right []Inline) {
	pos := 0
	for i, in := range content {
		l := in.Len()
		switch {
		case pos+l <= offset:
			left = append(left, in.clone())
		case pos >= offset:
			right = append(right, CloneInlines(content[i:])...)
			return left, right
		default:
			runes := []rune(in.Text)
			a, b := in.clone(), in.clone()
			a.Text = string(runes[:offset-pos])
			b.Text = string(runes[offset-pos:])
			left = append(left, a)
			right = append(right, b)
			right = append(right, CloneInlines(content[i+1:])...)
			return left, right
		}
		pos += l
	}
	return left, right
}

// SliceInlines returns a copy of the runs between from and to.
func SliceInlines(content []Inline, from, to int) []Inline {
	_, rest := SplitInlines(content, from)
	mid, _ := SplitInlines(rest, to-from)
	return mid
}

// ReplaceInlines replaces the runs between from and to with repl.
func ReplaceInlines(content []Inline, from, to int, repl ...Inline) []Inline {
	left, rest := SplitInlines(content, from)
	_, right := SplitInlines(rest, to-from)
	out := append(left, CloneInlines(repl)...)
	return NormalizeInlines(append(out, right...))
}

// RunAt finds the run holding offset with left affinity: the run whose range
// (start, end] contains offset, or the first run for offset 0.
func RunAt(content []Inline, offset int) (idx, start int) {
	if len(content) == 0 {
		return -1, 0
	}
	pos := 0
	for i, in := range content {
		end := pos + in.Len()
		if offset <= end && (offset > pos || i == 0) {
			return i, pos
		}
		pos = end
	}
	return len(content) - 1, pos - content[len(content)-1].Len()
}

// NormalizeInlines drops empty runs and merges neighbours with identical formatting.
func NormalizeInlines(content []Inline) []Inline {
	var out []Inline
	for _, in := range content {
		if (in.Kind == InlineText || in.Kind == InlineCode) && in.Text == "" {
			continue
		}
		if in.Kind == InlineImage && in.Image == nil {
			continue
		}
		if n := len(out); n > 0 && out[n-1].SameFormat(in) {
			out[n-1].Text += in.Text
			continue
		}
		out = append(out, in)
	}
	return out
}

// InlinesText is the plain text of a run slice.
func InlinesText(content []Inline) string {
	var b strings.Builder
	for _, in := range content {
		switch in.Kind {
		case InlineText, InlineCode:
			b.WriteString(strings.ReplaceAll(in.Text, ZeroWidthSpace, ""))
		case InlineHardBreak:
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// Normalize normalizes every textblock of the document in place.
func Normalize(d *Document) {
	for _, ref := range d.Textblocks() {
		if ref.Node.Type != CodeBlock {
			ref.Node.Content = NormalizeInlines(ref.Node.Content)
		}
	}
}
