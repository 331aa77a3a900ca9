package render

import (
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/blueprintdocs/internal/foundation/errors"
	"git.home.luguber.info/inful/blueprintdocs/internal/logfields"
)

// BrokenLink is a relative link in the HTML output whose target file or
// fragment does not exist.
type BrokenLink struct {
	Page   string // page containing the link, relative to the output root
	Href   string
	Reason string
}

type htmlPage struct {
	ids   map[string]bool
	links []string
}

// VerifyLinks checks every relative href of the HTML pages under dir.
// External links (scheme or host set) and special schemes are ignored.
func VerifyLinks(dir string) ([]BrokenLink, error) {
	pages := map[string]*htmlPage{}
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.EqualFold(filepath.Ext(p), ".html") {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		hp, err := parseHTMLPage(p)
		if err != nil {
			return errors.WrapError(err, errors.CategoryRender, "parse HTML page").
				WithContext(logfields.KeyFile, filepath.ToSlash(rel)).Build()
		}
		pages[filepath.ToSlash(rel)] = hp
		return nil
	})
	if err != nil {
		if _, ok := errors.AsClassified(err); ok {
			return nil, err
		}
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "walk output directory").
			WithContext(logfields.KeyDir, dir).Build()
	}

	names := make([]string, 0, len(pages))
	for name := range pages {
		names = append(names, name)
	}
	sort.Strings(names)

	var broken []BrokenLink
	for _, name := range names {
		for _, href := range pages[name].links {
			if reason := checkLink(dir, pages, name, href); reason != "" {
				broken = append(broken, BrokenLink{Page: name, Href: href, Reason: reason})
			}
		}
	}
	return broken, nil
}

func checkLink(dir string, pages map[string]*htmlPage, from, href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return "malformed URL"
	}
	if u.Scheme != "" || u.Host != "" {
		return ""
	}
	target := from
	if u.Path != "" {
		target = path.Clean(path.Join(path.Dir(from), u.Path))
		if target == ".." || strings.HasPrefix(target, "../") {
			return "points outside the site"
		}
	}
	hp, ok := pages[target]
	if !ok {
		if u.Path == "" {
			return ""
		}
		if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(target))); err != nil {
			return "missing file " + target
		}
		return ""
	}
	if u.Fragment != "" && !hp.ids[u.Fragment] {
		return "missing anchor #" + u.Fragment
	}
	return ""
}

func parseHTMLPage(p string) (*htmlPage, error) {
	f, err := os.Open(filepath.Clean(p))
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	doc, err := html.Parse(f)
	if err != nil {
		return nil, err
	}
	hp := &htmlPage{ids: map[string]bool{}}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if id := attr(n, "id"); id != "" {
				hp.ids[id] = true
			}
			if n.Data == "a" {
				if name := attr(n, "name"); name != "" {
					hp.ids[name] = true
				}
				if href := attr(n, "href"); href != "" && !special(href) {
					hp.links = append(hp.links, href)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return hp, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func special(href string) bool {
	for _, prefix := range []string{"mailto:", "tel:", "javascript:"} {
		if strings.HasPrefix(href, prefix) {
			return true
		}
	}
	return false
}
