package document

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

var policy = newPolicy()

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()

	sizeRegexp := regexp.MustCompile(`^\d+(px)?$`)
	languageRegexp := regexp.MustCompile(`^[\w+#.-]{1,32}$`)

	p.AllowDataURIImages()

	p.AllowAttrs("data-language").Matching(languageRegexp).OnElements("pre")
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^language-[\w+#.-]{1,32}$`)).OnElements("code")
	p.AllowAttrs("data-type").Matching(regexp.MustCompile("^taskList$")).OnElements("ul")
	p.AllowAttrs("data-checked").Matching(regexp.MustCompile("^(true|false)$")).OnElements("li")

	p.AllowAttrs("class").Matching(regexp.MustCompile(`^(` + ImageWrapperClass + `|` + ResizeHandleClass + ` (nw|ne|sw|se))$`)).OnElements("span")
	p.AllowAttrs("data-corner").Matching(regexp.MustCompile("^(nw|ne|sw|se)$")).OnElements("span")

	p.AllowStyles("text-align").Matching(regexp.MustCompile("^(left|start|center|right|end|justify)$")).
		OnElements("p", "h1", "h2", "h3", "h4", "h5", "h6", "li", "td", "th", "div")
	p.AllowStyles("width", "height").Matching(sizeRegexp).OnElements("img", "span")
	p.AllowStyles("object-fit").Matching(regexp.MustCompile("^cover$")).OnElements("img")
	p.AllowStyles("font-weight", "font-style", "text-decoration", "text-decoration-line").OnElements("span")

	return p
}

// Sanitize strips markup the editor does not produce: scripts, event
// handlers, unsafe URLs and unknown attributes.
func Sanitize(markup string) string {
	return policy.Sanitize(markup)
}
