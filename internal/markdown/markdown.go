// Package markdown locates MyST-style directives and roles in Markdown
// documents and rewrites them with byte-range edits.
package markdown

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var (
	directiveInfo = regexp.MustCompile(`^\{([A-Za-z0-9_-]+):([A-Za-z0-9_-]+)\}\s*(.*)$`)
	rolePrefix    = regexp.MustCompile(`\{([A-Za-z0-9_-]+):([A-Za-z0-9_-]+)\}$`)
	explicitTitle = regexp.MustCompile(`^(.+?)\s*<([^<>]+)>$`)
	optionLine    = regexp.MustCompile(`^:([A-Za-z0-9_-]+):\s*(.*)$`)
)

// Directive is a fenced block of the form
//
//	```{domain:kind} argument
//	:option: value
//	content
//	```
type Directive struct {
	Domain   string
	Kind     string
	Argument string
	Options  map[string]string
	Body     string
	// Start and End delimit the whole block including both fences.
	Start int
	End   int
	Line  int
}

// Role is an inline reference of the form {domain:kind}`target` or
// {domain:kind}`title <target>`.
type Role struct {
	Domain string
	Kind   string
	Target string
	// Title is the explicit title, or empty.
	Title string
	// Short is set by a leading "~": only the last dotted component is shown.
	Short bool
	Start int
	End   int
}

// Display returns the text shown for the role.
func (r Role) Display() string {
	if r.Title != "" {
		return r.Title
	}
	if r.Short {
		if i := strings.LastIndex(r.Target, "."); i >= 0 {
			return r.Target[i+1:]
		}
	}
	return r.Target
}

func parse(source []byte) gmast.Node {
	return goldmark.New().Parser().Parse(text.NewReader(source))
}

// FindDirectives returns the directives of the given domain in document order.
func FindDirectives(source []byte, domain string) []Directive {
	var out []Directive
	_ = gmast.Walk(parse(source), func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		block, ok := n.(*gmast.FencedCodeBlock)
		if !ok || block.Info == nil {
			return gmast.WalkContinue, nil
		}
		m := directiveInfo.FindSubmatch(block.Info.Segment.Value(source))
		if m == nil || string(m[1]) != domain {
			return gmast.WalkSkipChildren, nil
		}
		d := Directive{
			Domain:   string(m[1]),
			Kind:     string(m[2]),
			Argument: strings.TrimSpace(string(m[3])),
		}
		d.Start = lineStart(source, block.Info.Segment.Start)
		d.Line = bytes.Count(source[:d.Start], []byte("\n")) + 1

		var body bytes.Buffer
		contentEnd := lineEnd(source, block.Info.Segment.Stop)
		lines := block.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			body.Write(seg.Value(source))
			contentEnd = seg.Stop
		}
		d.End = closingFenceEnd(source, d.Start, contentEnd)
		d.Options, d.Body = splitOptions(body.String())
		out = append(out, d)
		return gmast.WalkSkipChildren, nil
	})
	return out
}

// FindRoles returns the roles of the given domain in document order. Roles
// inside code blocks are ignored.
func FindRoles(source []byte, domain string) []Role {
	var out []Role
	_ = gmast.Walk(parse(source), func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		span, ok := n.(*gmast.CodeSpan)
		if !ok {
			return gmast.WalkContinue, nil
		}
		first, ok := span.FirstChild().(*gmast.Text)
		if !ok {
			return gmast.WalkSkipChildren, nil
		}
		last := span.LastChild().(*gmast.Text)

		open := first.Segment.Start
		for open > 0 && source[open-1] != '`' {
			open--
		}
		ticks := 0
		for open > 0 && source[open-1] == '`' {
			open--
			ticks++
		}
		m := rolePrefix.FindSubmatchIndex(source[max(0, open-128):open])
		if m == nil {
			return gmast.WalkSkipChildren, nil
		}
		base := max(0, open-128)
		if string(source[base+m[2]:base+m[3]]) != domain {
			return gmast.WalkSkipChildren, nil
		}

		end := last.Segment.Stop
		for end < len(source) && source[end] != '`' {
			end++
		}
		end = min(len(source), end+ticks)

		var raw strings.Builder
		for c := span.FirstChild(); c != nil; c = c.NextSibling() {
			if t, ok := c.(*gmast.Text); ok {
				raw.Write(t.Segment.Value(source))
			}
		}
		r := Role{
			Domain: domain,
			Kind:   string(source[base+m[4] : base+m[5]]),
			Start:  base + m[0],
			End:    end,
		}
		target := strings.Join(strings.Fields(raw.String()), " ")
		if tm := explicitTitle.FindStringSubmatch(target); tm != nil {
			r.Title, target = tm[1], strings.TrimSpace(tm[2])
		}
		if rest, ok := strings.CutPrefix(target, "~"); ok {
			r.Short, target = true, rest
		}
		r.Target = target
		out = append(out, r)
		return gmast.WalkSkipChildren, nil
	})
	return out
}

func splitOptions(body string) (map[string]string, string) {
	opts := map[string]string{}
	lines := strings.SplitAfter(body, "\n")
	i := 0
	for ; i < len(lines); i++ {
		m := optionLine.FindStringSubmatch(strings.TrimRight(lines[i], "\r\n"))
		if m == nil {
			break
		}
		opts[m[1]] = strings.TrimSpace(m[2])
	}
	if i > 0 && i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	return opts, strings.Join(lines[i:], "")
}

func lineStart(source []byte, pos int) int {
	return bytes.LastIndexByte(source[:pos], '\n') + 1
}

func lineEnd(source []byte, pos int) int {
	if i := bytes.IndexByte(source[pos:], '\n'); i >= 0 {
		return pos + i + 1
	}
	return len(source)
}

// closingFenceEnd returns the end of the closing fence line following
// contentEnd, or contentEnd when the block runs to the end of the document.
func closingFenceEnd(source []byte, start, contentEnd int) int {
	opening := bytes.TrimLeft(source[start:lineEnd(source, start)], " ")
	if len(opening) == 0 {
		return contentEnd
	}
	fence := opening[0]
	width := 0
	for width < len(opening) && opening[width] == fence {
		width++
	}
	if contentEnd >= len(source) {
		return len(source)
	}
	end := lineEnd(source, contentEnd)
	line := bytes.TrimSpace(source[contentEnd:end])
	if len(line) >= width && len(bytes.Trim(line, string(fence))) == 0 {
		return end
	}
	return contentEnd
}
