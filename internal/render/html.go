package render

import (
	"bytes"
	"fmt"
	"html"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// newHTMLRenderer supports the constructs expansion produces: definition
// lists for properties and raw anchors.
func newHTMLRenderer() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(extension.Table, extension.DefinitionList),
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
	)
}

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
</head>
<body>
%s</body>
</html>
`

func toHTML(md goldmark.Markdown, title string, body []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := md.Convert(body, &buf); err != nil {
		return nil, err
	}
	return fmt.Appendf(nil, pageTemplate, html.EscapeString(title), buf.String()), nil
}
