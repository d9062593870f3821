package document

import (
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Class names of the editable image container and its handles.
const (
	ImageWrapperClass = "image-resize-wrapper"
	ResizeHandleClass = "resize-handle"
)

var blockTags = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "main": true,
	"header": true, "footer": true, "aside": true, "nav": true, "figure": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"ul": true, "ol": true, "li": true, "blockquote": true, "pre": true,
	"hr": true, "table": true, "thead": true, "tbody": true, "tfoot": true,
	"tr": true, "td": true, "th": true,
}

type format struct {
	marks Marks
	href  string
}

// Parse reads editor markup into a document tree.
func Parse(markup string) (*Document, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), body)
	if err != nil {
		return nil, err
	}

	doc := &Document{Children: parseBlocks(nodes)}
	Normalize(doc)
	return doc, nil
}

func parseBlocks(nodes []*html.Node) []*Node {
	var out []*Node
	var pending []Inline

	flush := func() {
		if len(pending) == 0 {
			return
		}
		content := trimPlaceholderBreak(pending)
		pending = nil
		if strings.TrimSpace(InlinesText(content)) == "" && !hasAtoms(content) {
			return
		}
		out = append(out, &Node{Type: Paragraph, Content: content})
	}

	for _, n := range nodes {
		switch n.Type {
		case html.TextNode:
			if len(pending) == 0 && strings.TrimSpace(n.Data) == "" {
				continue
			}
			pending = append(pending, parseInlines(n, format{})...)
			continue
		case html.ElementNode:
		default:
			continue
		}

		if !blockTags[n.Data] {
			pending = append(pending, parseInlines(n, format{})...)
			continue
		}

		flush()
		out = append(out, parseBlock(n)...)
	}
	flush()

	return out
}

func parseBlock(n *html.Node) []*Node {
	switch n.Data {
	case "p":
		return []*Node{{Type: Paragraph, Align: alignOf(n), Content: trimPlaceholderBreak(parseFlow(n, format{}))}}
	case "h1", "h2", "h3", "h4", "h5", "h6":
		level, _ := strconv.Atoi(n.Data[1:])
		return []*Node{{Type: Heading, Level: level, Align: alignOf(n), Content: trimPlaceholderBreak(parseFlow(n, format{}))}}
	case "ul", "ol":
		return []*Node{parseList(n)}
	case "blockquote":
		quote := &Node{Type: Blockquote, Children: parseBlocks(childNodes(n))}
		if len(quote.Children) == 0 {
			quote.Children = []*Node{{Type: Paragraph}}
		}
		return []*Node{quote}
	case "pre":
		return []*Node{parseCodeBlock(n)}
	case "hr":
		return []*Node{{Type: HorizontalRule}}
	case "table":
		if t := parseTable(n); t != nil {
			return []*Node{t}
		}
		return nil
	case "div", "section", "article", "main", "header", "footer", "aside", "nav", "figure":
		if hasBlockChild(n) {
			return parseBlocks(childNodes(n))
		}
		return []*Node{{Type: Paragraph, Align: alignOf(n), Content: trimPlaceholderBreak(parseFlow(n, format{}))}}
	case "li":
		return []*Node{{Type: Paragraph, Content: trimPlaceholderBreak(parseFlow(n, format{}))}}
	case "thead", "tbody", "tfoot", "tr", "td", "th":
		slog.Debug("Stray table element", "tag", n.Data)
		return parseBlocks(childNodes(n))
	}
	return nil
}

func parseList(n *html.Node) *Node {
	list := &Node{Type: BulletList}
	if n.Data == "ol" {
		list.Type = OrderedList
	}
	if getAttrValue("data-type", n.Attr) == "taskList" {
		list.Type = TaskList
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == html.ElementNode && c.Data == "li":
			list.Children = append(list.Children, &Node{
				Type:    ListItem,
				Align:   alignOf(c),
				Checked: getAttrValue("data-checked", c.Attr) == "true",
				Content: trimPlaceholderBreak(parseFlow(c, format{})),
			})
		case c.Type == html.TextNode && strings.TrimSpace(c.Data) == "":
		case c.Type == html.ElementNode || c.Type == html.TextNode:
			list.Children = append(list.Children, &Node{Type: ListItem, Content: parseInlines(c, format{})})
		}
	}

	if len(list.Children) == 0 {
		list.Children = []*Node{{Type: ListItem}}
	}
	return list
}

func parseCodeBlock(n *html.Node) *Node {
	code := &Node{Type: CodeBlock, Language: getAttrValue("data-language", n.Attr)}

	var text strings.Builder
	iterNodes(n, func(child *html.Node) bool {
		switch {
		case child.Type == html.TextNode:
			text.WriteString(child.Data)
		case child.Type == html.ElementNode && child.Data == "br":
			text.WriteByte('\n')
		case child.Type == html.ElementNode && child.Data == "code" && code.Language == "":
			for _, class := range strings.Fields(getAttrValue("class", child.Attr)) {
				if lang, ok := strings.CutPrefix(class, "language-"); ok {
					code.Language = lang
				}
			}
		}
		return false
	})
	code.Code = text.String()

	return code
}

func parseTable(n *html.Node) *Node {
	table := &Node{Type: Table}

	var rows []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.Data {
		case "tr":
			rows = append(rows, c)
		case "thead", "tbody", "tfoot":
			for tr := c.FirstChild; tr != nil; tr = tr.NextSibling {
				if tr.Type == html.ElementNode && tr.Data == "tr" {
					rows = append(rows, tr)
				}
			}
		}
	}

	cols := 0
	for _, tr := range rows {
		row := &Node{Type: TableRow}
		for td := tr.FirstChild; td != nil; td = td.NextSibling {
			if td.Type != html.ElementNode || (td.Data != "td" && td.Data != "th") {
				continue
			}
			row.Children = append(row.Children, &Node{
				Type:    TableCell,
				Header:  td.Data == "th",
				Align:   alignOf(td),
				Content: trimPlaceholderBreak(parseFlow(td, format{})),
			})
		}
		if len(row.Children) == 0 {
			continue
		}
		cols = max(cols, len(row.Children))
		table.Children = append(table.Children, row)
	}

	if len(table.Children) == 0 {
		return nil
	}

	for _, row := range table.Children {
		header := row.Children[0].Header
		for len(row.Children) < cols {
			row.Children = append(row.Children, &Node{Type: TableCell, Header: header})
		}
	}

	return table
}

// parseFlow collects the inline content of a block element, turning nested
// block boundaries into hard breaks.
func parseFlow(n *html.Node, f format) []Inline {
	var out []Inline
	prevBlock := false
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		block := c.Type == html.ElementNode && blockTags[c.Data]
		if c.Type == html.TextNode && strings.TrimSpace(c.Data) == "" &&
			(prevBlock || (c.NextSibling != nil && c.NextSibling.Type == html.ElementNode && blockTags[c.NextSibling.Data])) {
			continue
		}
		if (block || prevBlock) && len(out) > 0 && out[len(out)-1].Kind != InlineHardBreak {
			out = append(out, NewHardBreak())
		}
		if block {
			out = append(out, parseFlow(c, f)...)
		} else {
			out = append(out, parseInlines(c, f)...)
		}
		prevBlock = block
	}
	return out
}

func parseInlines(n *html.Node, f format) []Inline {
	switch n.Type {
	case html.TextNode:
		return []Inline{{Kind: InlineText, Text: n.Data, Marks: f.marks, Href: f.href}}
	case html.ElementNode:
	default:
		return nil
	}

	switch n.Data {
	case "b", "strong":
		f.marks |= Bold
	case "i", "em":
		f.marks |= Italic
	case "u", "ins":
		f.marks |= Underline
	case "s", "strike", "del":
		f.marks |= Strike
	case "a":
		if href := getAttrValue("href", n.Attr); href != "" {
			f.href = href
		}
	case "code", "kbd", "tt":
		return []Inline{NewCode(textOf(n))}
	case "img":
		if img := getImage(n); img != nil {
			return []Inline{NewImage(*img)}
		}
		return nil
	case "br":
		return []Inline{NewHardBreak()}
	case "span":
		if hasClass(n, ResizeHandleClass) {
			return nil
		}
		f.marks |= marksFromStyle(n)
	case "script", "style", "template":
		return nil
	default:
		if blockTags[n.Data] {
			return parseFlow(n, f)
		}
		if n.Data != "font" && n.Data != "mark" && n.Data != "sub" && n.Data != "sup" {
			slog.Debug("Unknown inline element", "tag", n.Data)
		}
	}

	var out []Inline
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, parseInlines(c, f)...)
	}
	return out
}

func getImage(n *html.Node) *Image {
	src := getAttrValue("src", n.Attr)
	if src == "" {
		return nil
	}
	img := &Image{
		Src:    src,
		Alt:    getAttrValue("alt", n.Attr),
		Width:  sizeToInt(getAttrValue("width", n.Attr)),
		Height: sizeToInt(getAttrValue("height", n.Attr)),
	}
	for _, style := range parseStyles(getAttrValue("style", n.Attr)) {
		switch style.Key {
		case "width":
			img.Width = sizeToInt(style.Val)
		case "height":
			img.Height = sizeToInt(style.Val)
		}
	}
	return img
}

func marksFromStyle(n *html.Node) Marks {
	var m Marks
	for _, style := range parseStyles(getAttrValue("style", n.Attr)) {
		switch style.Key {
		case "font-weight":
			if style.Val == "bold" || style.Val == "bolder" || style.Val == "700" || style.Val == "800" || style.Val == "900" {
				m |= Bold
			}
		case "font-style":
			if style.Val == "italic" || style.Val == "oblique" {
				m |= Italic
			}
		case "text-decoration", "text-decoration-line":
			if strings.Contains(style.Val, "underline") {
				m |= Underline
			}
			if strings.Contains(style.Val, "line-through") {
				m |= Strike
			}
		}
	}
	return m
}

func alignOf(n *html.Node) Align {
	for _, style := range parseStyles(getAttrValue("style", n.Attr)) {
		if style.Key == "text-align" {
			return ParseAlign(style.Val)
		}
	}
	return ParseAlign(getAttrValue("align", n.Attr))
}

// trimPlaceholderBreak drops the trailing <br> browsers keep in textblocks.
func trimPlaceholderBreak(content []Inline) []Inline {
	if n := len(content); n > 0 && content[n-1].Kind == InlineHardBreak {
		return content[:n-1]
	}
	return content
}

func hasBlockChild(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && blockTags[c.Data] {
			return true
		}
	}
	return false
}

func childNodes(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

func textOf(n *html.Node) string {
	var b strings.Builder
	iterNodes(n, func(child *html.Node) bool {
		if child.Type == html.TextNode {
			b.WriteString(child.Data)
		}
		return false
	})
	return b.String()
}

func iterNodes(node *html.Node, f func(child *html.Node) bool) {
	if f(node) {
		return
	}
	for p := node.FirstChild; p != nil; p = p.NextSibling {
		iterNodes(p, f)
	}
}

func getAttrValue(key string, attrs []html.Attribute) string {
	for _, attr := range attrs {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(getAttrValue("class", n.Attr)) {
		if c == class {
			return true
		}
	}
	return false
}

func parseStyles(raw string) []html.Attribute {
	var res []html.Attribute
	for _, part := range strings.Split(raw, ";") {
		key, val, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		res = append(res, html.Attribute{
			Key: strings.ToLower(strings.TrimSpace(key)),
			Val: strings.TrimSpace(val),
		})
	}
	return res
}

func sizeToInt(raw string) int {
	i, _ := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(raw), "px"))
	return i
}
