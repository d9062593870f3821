package document

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ResizeCorners are the handle positions of an editable image.
var ResizeCorners = []string{"nw", "ne", "sw", "se"}

// RenderOptions controls markup generation.
type RenderOptions struct {
	// Editable wraps images with resize handles and keeps placeholder
	// breaks in empty blocks so a browser can place the caret.
	Editable bool
}

// Render serializes the document into markup.
func Render(doc *Document, opts RenderOptions) string {
	var b strings.Builder
	for _, n := range doc.Children {
		el := renderBlock(n, opts)
		if el == nil {
			continue
		}
		if err := html.Render(&b, el); err != nil {
			slog.Error("Render block", "type", n.Type, "err", err)
		}
	}
	return b.String()
}

func renderBlock(n *Node, opts RenderOptions) *html.Node {
	switch n.Type {
	case Paragraph:
		return textblockElement("p", n, opts)
	case Heading:
		level := min(max(n.Level, 1), 6)
		return textblockElement("h"+strconv.Itoa(level), n, opts)
	case BulletList, OrderedList, TaskList:
		tag := "ul"
		if n.Type == OrderedList {
			tag = "ol"
		}
		list := element(tag)
		if n.Type == TaskList {
			setAttr(list, "data-type", "taskList")
		}
		for _, item := range n.Children {
			li := textblockElement("li", item, opts)
			if n.Type == TaskList {
				setAttr(li, "data-checked", strconv.FormatBool(item.Checked))
			}
			list.AppendChild(li)
		}
		return list
	case ListItem:
		return textblockElement("p", n, opts)
	case Blockquote:
		quote := element("blockquote")
		for _, child := range n.Children {
			if el := renderBlock(child, opts); el != nil {
				quote.AppendChild(el)
			}
		}
		return quote
	case CodeBlock:
		pre := element("pre")
		code := element("code")
		if n.Language != "" {
			setAttr(pre, "data-language", n.Language)
			setAttr(code, "class", "language-"+n.Language)
		}
		if n.Code != "" {
			code.AppendChild(&html.Node{Type: html.TextNode, Data: n.Code})
		}
		pre.AppendChild(code)
		return pre
	case HorizontalRule:
		return element("hr")
	case Table:
		return renderTable(n, opts)
	}
	slog.Debug("Skip unrenderable block", "type", n.Type)
	return nil
}

func renderTable(n *Node, opts RenderOptions) *html.Node {
	table := element("table")
	rows := n.Children
	if n.HeaderRows() == 1 {
		thead := element("thead")
		thead.AppendChild(renderRow(rows[0], opts))
		table.AppendChild(thead)
		rows = rows[1:]
	}
	if len(rows) > 0 {
		tbody := element("tbody")
		for _, row := range rows {
			tbody.AppendChild(renderRow(row, opts))
		}
		table.AppendChild(tbody)
	}
	return table
}

func renderRow(row *Node, opts RenderOptions) *html.Node {
	tr := element("tr")
	for _, cell := range row.Children {
		tag := "td"
		if cell.Header {
			tag = "th"
		}
		tr.AppendChild(textblockElement(tag, cell, opts))
	}
	return tr
}

func textblockElement(tag string, n *Node, opts RenderOptions) *html.Node {
	el := element(tag)
	if align := n.Align.String(); align != "" {
		setAttr(el, "style", "text-align: "+align)
	}

	content := NormalizeInlines(n.Content)
	for _, in := range content {
		el.AppendChild(renderInline(in, opts))
	}

	switch {
	case len(content) > 0 && content[len(content)-1].Kind == InlineHardBreak:
		el.AppendChild(element("br"))
	case len(content) == 0 && opts.Editable:
		el.AppendChild(element("br"))
	}
	return el
}

func renderInline(in Inline, opts RenderOptions) *html.Node {
	switch in.Kind {
	case InlineHardBreak:
		return element("br")
	case InlineCode:
		code := element("code")
		code.AppendChild(&html.Node{Type: html.TextNode, Data: in.Text})
		return code
	case InlineImage:
		return renderImage(*in.Image, opts)
	}

	var outer, inner *html.Node
	wrap := func(el *html.Node) {
		if outer == nil {
			outer = el
		} else {
			inner.AppendChild(el)
		}
		inner = el
	}

	if in.Href != "" {
		wrap(element("a", html.Attribute{Key: "href", Val: in.Href}))
	}
	for _, mark := range AllMarks {
		if in.Marks.Has(mark) {
			wrap(element(markTags[mark]))
		}
	}

	text := &html.Node{Type: html.TextNode, Data: in.Text}
	if outer == nil {
		return text
	}
	inner.AppendChild(text)
	return outer
}

var markTags = map[Marks]string{
	Bold:      "strong",
	Italic:    "em",
	Underline: "u",
	Strike:    "s",
}

func renderImage(img Image, opts RenderOptions) *html.Node {
	el := element("img", html.Attribute{Key: "src", Val: img.Src})
	if img.Alt != "" {
		setAttr(el, "alt", img.Alt)
	}
	box := boxStyle(img)
	if box != "" {
		setAttr(el, "style", box+"; object-fit: cover")
	}
	if !opts.Editable {
		return el
	}

	wrapper := element("span",
		html.Attribute{Key: "class", Val: ImageWrapperClass},
		html.Attribute{Key: "contenteditable", Val: "false"},
	)
	if box != "" {
		setAttr(wrapper, "style", box)
	}
	wrapper.AppendChild(el)
	for _, corner := range ResizeCorners {
		wrapper.AppendChild(element("span",
			html.Attribute{Key: "class", Val: ResizeHandleClass + " " + corner},
			html.Attribute{Key: "data-corner", Val: corner},
		))
	}
	return wrapper
}

func boxStyle(img Image) string {
	var parts []string
	if img.Width > 0 {
		parts = append(parts, fmt.Sprintf("width: %dpx", img.Width))
	}
	if img.Height > 0 {
		parts = append(parts, fmt.Sprintf("height: %dpx", img.Height))
	}
	return strings.Join(parts, "; ")
}

func element(tag string, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
		Attr:     attrs,
	}
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
