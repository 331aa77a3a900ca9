package render

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"git.home.luguber.info/inful/blueprintdocs/internal/blueprint"
	"git.home.luguber.info/inful/blueprintdocs/internal/domain"
	"git.home.luguber.info/inful/blueprintdocs/internal/foundation/errors"
	"git.home.luguber.info/inful/blueprintdocs/internal/frontmatter"
	"git.home.luguber.info/inful/blueprintdocs/internal/logfields"
	"git.home.luguber.info/inful/blueprintdocs/internal/metrics"
)

// InventoryFile is the name of the JSON object inventory.
const InventoryFile = "objects.json"

// Options configures one render.
type Options struct {
	SourceDir string
	OutputDir string
	// Blueprints are local paths (relative to SourceDir) or URLs.
	Blueprints  []string
	DomainName  string
	Strict      bool
	HTML        bool
	Fingerprint bool
}

func (o Options) suffix() string {
	if o.HTML {
		return ".html"
	}
	return domain.DefaultLinkSuffix
}

// Report summarizes a render.
type Report struct {
	Pages       int
	Unchanged   int
	Assets      int
	Objects     int
	BrokenLinks int // unresolved relative links, HTML output only
	Duration    time.Duration
}

// Renderer renders source trees.
type Renderer struct {
	Loader   *blueprint.Loader
	Recorder metrics.Recorder
	Logger   *slog.Logger
	Now      func() time.Time
}

// New returns a Renderer loading blueprints with an HTTP client suited to
// remote descriptor files.
func New(logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{
		Loader:   &blueprint.Loader{Client: blueprint.NewHTTPClient(), Logger: logger},
		Recorder: metrics.NoopRecorder{},
		Logger:   logger,
		Now:      time.Now,
	}
}

// NewDomain loads the blueprints of opts into a fresh domain.
func (r *Renderer) NewDomain(ctx context.Context, opts Options) (*domain.Domain, error) {
	loader := *r.Loader
	loader.BaseDir = opts.SourceDir
	reg, err := loader.LoadRegistry(ctx, opts.Blueprints)
	if err != nil {
		return nil, err
	}
	return domain.New(reg, domain.Options{Name: opts.DomainName, Strict: opts.Strict, Logger: r.Logger}), nil
}

// Render loads the blueprints and renders the tree.
func (r *Renderer) Render(ctx context.Context, opts Options) (*Report, error) {
	dom, err := r.NewDomain(ctx, opts)
	if err != nil {
		return nil, err
	}
	return r.RenderWith(ctx, dom, opts)
}

type page struct {
	docname string
	rel     string
	doc     *frontmatter.Document
}

// RenderWith renders the tree using an already loaded domain, which must
// be fresh or Reset.
func (r *Renderer) RenderWith(ctx context.Context, dom *domain.Domain, opts Options) (*Report, error) {
	start := time.Now()
	report, err := r.render(ctx, dom, opts)
	r.recorder().ObserveStageDuration(metrics.StageRender, time.Since(start))
	if err != nil {
		r.recorder().IncStageResult(metrics.StageRender, metrics.ResultFailed)
		return nil, err
	}
	r.recorder().IncStageResult(metrics.StageRender, metrics.ResultSuccess)
	report.Duration = time.Since(start)
	r.Logger.Info("Render complete",
		slog.Int("pages", report.Pages),
		slog.Int("unchanged", report.Unchanged),
		slog.Int("assets", report.Assets),
		slog.Int("objects", report.Objects),
		logfields.DurationMS(float64(report.Duration.Milliseconds())))
	return report, nil
}

func (r *Renderer) render(ctx context.Context, dom *domain.Domain, opts Options) (*Report, error) {
	src, err := filepath.Abs(opts.SourceDir)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "resolve source directory").Build()
	}
	out, err := filepath.Abs(opts.OutputDir)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "resolve output directory").Build()
	}
	if src == out {
		return nil, errors.ValidationError("output directory must differ from the source directory").
			WithContext(logfields.KeyDir, out).Build()
	}

	pages, assets, err := collect(src, out)
	if err != nil {
		return nil, err
	}
	report := &Report{}

	// pass 1: directives fill the inventory
	for i := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := &pages[i]
		body, err := dom.Expand(p.docname, p.doc.Body)
		if err != nil {
			return nil, wrapPage(err, p.rel)
		}
		p.doc.Body = body
	}

	// pass 2: roles resolve against the complete inventory
	var md goldmark.Markdown
	if opts.HTML {
		md = newHTMLRenderer()
	}
	for _, p := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		body, err := dom.Resolve(p.docname, p.doc.Body, opts.suffix())
		if err != nil {
			return nil, wrapPage(err, p.rel)
		}
		p.doc.Body = body
		written, err := r.writePage(md, out, p, opts)
		if err != nil {
			return nil, err
		}
		report.Pages++
		if !written {
			report.Unchanged++
		}
	}

	for _, rel := range assets {
		if err := copyFile(filepath.Join(src, rel), filepath.Join(out, rel)); err != nil {
			return nil, err
		}
		report.Assets++
	}

	index := page{docname: dom.IndexName(), rel: dom.IndexName() + ".md"}
	index.doc, _ = frontmatter.Parse(dom.IndexPage(opts.suffix()))
	if _, err := r.writePage(md, out, index, opts); err != nil {
		return nil, err
	}
	inv, err := dom.Inventory()
	if err != nil {
		return nil, errors.InternalError("encode inventory").WithCause(err).Build()
	}
	if err := writeFile(filepath.Join(out, InventoryFile), inv); err != nil {
		return nil, err
	}
	report.Objects = len(dom.Objects())

	if opts.HTML {
		if err := r.verifyLinks(out, opts, report); err != nil {
			return nil, err
		}
	}
	if err := dom.CheckDocumented(); err != nil {
		return nil, err
	}
	return report, nil
}

// writePage writes one page. It reports false when fingerprinting found
// the previous output identical and nothing was written.
func (r *Renderer) writePage(md goldmark.Markdown, out string, p page, opts Options) (bool, error) {
	target := filepath.Join(out, filepath.FromSlash(p.rel))
	if opts.HTML {
		target = strings.TrimSuffix(target, ".md") + ".html"
		title, ok := p.doc.Get("title")
		if !ok {
			title = p.docname
		}
		data, err := toHTML(md, title, p.doc.Body)
		if err != nil {
			return false, errors.WrapError(err, errors.CategoryRender, "convert page to HTML").
				WithContext(logfields.KeyDoc, p.docname).Build()
		}
		return true, writeFile(target, data)
	}

	if opts.Fingerprint {
		changed, err := stamp(p.doc, previousOutput(target), r.now())
		if err != nil {
			return false, errors.WrapError(err, errors.CategoryRender, "fingerprint page").
				WithContext(logfields.KeyDoc, p.docname).Build()
		}
		if !changed {
			r.Logger.Debug("Page unchanged", logfields.Doc(p.docname))
			return false, nil
		}
	}
	data, err := p.doc.Bytes()
	if err != nil {
		return false, errors.WrapError(err, errors.CategoryRender, "serialize page").
			WithContext(logfields.KeyDoc, p.docname).Build()
	}
	return true, writeFile(target, data)
}

// verifyLinks logs broken links of the HTML output; strict renders fail.
func (r *Renderer) verifyLinks(out string, opts Options, report *Report) error {
	broken, err := VerifyLinks(out)
	if err != nil {
		return err
	}
	for _, b := range broken {
		r.Logger.Warn("Broken link", logfields.File(b.Page), logfields.Target(b.Href), slog.String("reason", b.Reason))
	}
	report.BrokenLinks = len(broken)
	if opts.Strict && len(broken) > 0 {
		return errors.ValidationError(fmt.Sprintf("%d broken link(s) in HTML output", len(broken))).
			WithContext(logfields.KeyFile, broken[0].Page).
			WithContext(logfields.KeyTarget, broken[0].Href).Build()
	}
	return nil
}

func (r *Renderer) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

func (r *Renderer) recorder() metrics.Recorder {
	if r.Recorder == nil {
		return metrics.NoopRecorder{}
	}
	return r.Recorder
}

func previousOutput(path string) *frontmatter.Document {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	doc, err := frontmatter.Parse(data)
	if err != nil {
		return nil
	}
	return doc
}

// collect walks src in lexical order. Hidden entries and the output
// directory are skipped.
func collect(src, out string) (pages []page, assets []string, err error) {
	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != src && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path == out {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !strings.EqualFold(filepath.Ext(rel), ".md") {
			assets = append(assets, rel)
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		doc, err := frontmatter.Parse(data)
		if err != nil {
			return errors.WrapError(err, errors.CategoryRender, "parse frontmatter").
				WithContext(logfields.KeyFile, rel).Build()
		}
		pages = append(pages, page{docname: strings.TrimSuffix(rel, filepath.Ext(rel)), rel: rel, doc: doc})
		return nil
	})
	if err != nil {
		if _, ok := errors.AsClassified(err); ok {
			return nil, nil, err
		}
		return nil, nil, errors.WrapError(err, errors.CategoryFileSystem, "walk source directory").
			WithContext(logfields.KeyDir, src).Build()
	}
	return pages, assets, nil
}

func wrapPage(err error, rel string) error {
	if ce, ok := errors.AsClassified(err); ok {
		return ce.WithContext(logfields.KeyFile, rel)
	}
	return errors.WrapError(err, errors.CategoryRender, fmt.Sprintf("render %s", rel)).
		WithContext(logfields.KeyFile, rel).Build()
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "create output directory").
			WithContext(logfields.KeyPath, path).Build()
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "write output file").
			WithContext(logfields.KeyPath, path).Build()
	}
	return nil
}

func copyFile(from, to string) error {
	in, err := os.Open(from)
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "open asset").
			WithContext(logfields.KeyPath, from).Build()
	}
	defer func() { _ = in.Close() }()

	if err := os.MkdirAll(filepath.Dir(to), 0o750); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "create output directory").
			WithContext(logfields.KeyPath, to).Build()
	}
	dst, err := os.Create(to)
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "create asset").
			WithContext(logfields.KeyPath, to).Build()
	}
	if _, err := io.Copy(dst, in); err != nil {
		_ = dst.Close()
		return errors.WrapError(err, errors.CategoryFileSystem, "copy asset").
			WithContext(logfields.KeyPath, to).Build()
	}
	return dst.Close()
}
