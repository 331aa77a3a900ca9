package render

import (
	"context"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/blueprintdocs/internal/domain"
	"git.home.luguber.info/inful/blueprintdocs/internal/foundation/errors"
	"git.home.luguber.info/inful/blueprintdocs/internal/logfields"
)

// DefaultDebounce is how long the watcher waits for file events to settle.
const DefaultDebounce = 300 * time.Millisecond

// Watcher re-renders a tree whenever its pages or local blueprints change.
type Watcher struct {
	Renderer *Renderer
	Options  Options
	Debounce time.Duration
	// OnRender is called after every render attempt.
	OnRender func(*Report, error)

	watcher    *fsnotify.Watcher
	src, out   string
	blueprints []string
}

// Run renders once and then on every change until ctx is done. Render
// errors are logged and reported to OnRender; they do not stop the watch.
func (w *Watcher) Run(ctx context.Context) error {
	var err error
	if w.src, err = filepath.Abs(w.Options.SourceDir); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "resolve source directory").Build()
	}
	if w.out, err = filepath.Abs(w.Options.OutputDir); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "resolve output directory").Build()
	}
	loader := *w.Renderer.Loader
	loader.BaseDir = w.Options.SourceDir
	for _, p := range loader.LocalPaths(w.Options.Blueprints) {
		if abs, err := filepath.Abs(p); err == nil {
			w.blueprints = append(w.blueprints, abs)
		}
	}

	w.watcher, err = fsnotify.NewWatcher()
	if err != nil {
		return errors.WrapError(err, errors.CategoryRuntime, "create file watcher").Build()
	}
	defer func() { _ = w.watcher.Close() }()

	if err := w.addTree(w.src); err != nil {
		return err
	}
	for _, bp := range w.blueprints {
		dir := filepath.Dir(bp)
		if err := w.watcher.Add(dir); err != nil {
			w.Renderer.Logger.Warn("Cannot watch blueprint directory", logfields.Dir(dir), logfields.Error(err))
		}
	}

	dom := w.render(ctx, nil, true)

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	var timer *time.Timer
	var fire <-chan time.Time
	reload := false

	w.Renderer.Logger.Info("Watching for changes", logfields.Dir(w.src))
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			relevant, isBlueprint := w.classify(event)
			if !relevant {
				continue
			}
			w.Renderer.Logger.Debug("Change detected", logfields.File(event.Name), "op", event.Op.String())
			reload = reload || isBlueprint
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(debounce)
			fire = timer.C
		case <-fire:
			fire = nil
			dom = w.render(ctx, dom, reload)
			reload = false
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.Renderer.Logger.Error("File watcher error", logfields.Error(err))
		}
	}
}

// render re-renders, reloading the blueprints when reload is set or no
// domain exists yet. It returns the domain to reuse next time.
func (w *Watcher) render(ctx context.Context, dom *domain.Domain, reload bool) *domain.Domain {
	if reload || dom == nil {
		fresh, err := w.Renderer.NewDomain(ctx, w.Options)
		if err != nil {
			w.Renderer.Logger.Error("Failed to load blueprints", logfields.Error(err))
			w.report(nil, err)
			return dom
		}
		dom = fresh
	} else {
		dom.Reset()
	}
	report, err := w.Renderer.RenderWith(ctx, dom, w.Options)
	if err != nil {
		w.Renderer.Logger.Error("Render failed", logfields.Error(err))
	}
	w.report(report, err)
	return dom
}

func (w *Watcher) report(r *Report, err error) {
	if w.OnRender != nil {
		w.OnRender(r, err)
	}
}

// classify decides whether an event should trigger a render and whether it
// touched a blueprint. New directories are added to the watch.
func (w *Watcher) classify(event fsnotify.Event) (relevant, blueprint bool) {
	if event.Op == fsnotify.Chmod {
		return false, false
	}
	path := filepath.Clean(event.Name)
	if slices.Contains(w.blueprints, path) {
		return true, true
	}
	if !within(w.src, path) || within(w.out, path) || hidden(w.src, path) {
		return false, false
	}
	if event.Has(fsnotify.Create) {
		if err := w.addTree(path); err != nil {
			w.Renderer.Logger.Debug("Cannot watch new path", logfields.Path(path), logfields.Error(err))
		}
	}
	return true, false
}

// addTree watches root and every directory below it except hidden ones and
// the output directory. Non-directories are ignored.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path == w.out || (path != w.src && strings.HasPrefix(d.Name(), ".")) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return errors.WrapError(err, errors.CategoryRuntime, "watch directory").
				WithContext(logfields.KeyDir, path).Build()
		}
		return nil
	})
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func hidden(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") && part != "." {
			return true
		}
	}
	return false
}
