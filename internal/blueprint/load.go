package blueprint

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/blueprintdocs/internal/foundation/errors"
	"git.home.luguber.info/inful/blueprintdocs/internal/logfields"
)

const maxBlueprintBytes = 5 * 1024 * 1024

// NewHTTPClient creates the client used for remote blueprints. Redirects
// are followed only within the original host.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 15 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) == 0 {
				return nil
			}
			if req.URL.Host != via[0].URL.Host {
				return stderrors.New("redirect to different host blocked")
			}
			if len(via) >= 5 {
				return stderrors.New("too many redirects")
			}
			return nil
		},
	}
}

// Loader reads and merges blueprint sources.
type Loader struct {
	// BaseDir resolves relative local paths. Empty means the working directory.
	BaseDir string
	Client  *http.Client
	Logger  *slog.Logger
}

// Load reads every source in order and merges them into one document.
func (l *Loader) Load(ctx context.Context, sources []string) (*yaml.Node, error) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	merged := newMapping()
	for _, src := range sources {
		data, err := l.read(ctx, src)
		if err != nil {
			return nil, err
		}
		var doc yaml.Node
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, errors.WrapError(err, errors.CategoryBlueprint, "parse blueprint").
				Fatal().WithContext(logfields.KeyPath, src).Build()
		}
		root := documentRoot(&doc)
		if root.Kind != yaml.MappingNode {
			return nil, errors.BlueprintError("blueprint must be a mapping").
				WithContext(logfields.KeyPath, src).Build()
		}
		Merge(merged, root)
		logger.Debug("Loaded blueprint", logfields.Path(src))
	}
	return merged, nil
}

// LoadRegistry loads the sources and builds a registry from the result.
func (l *Loader) LoadRegistry(ctx context.Context, sources []string) (*Registry, error) {
	doc, err := l.Load(ctx, sources)
	if err != nil {
		return nil, err
	}
	return NewRegistry(doc)
}

// LocalPaths returns the sources that are files on disk, resolved against BaseDir.
func (l *Loader) LocalPaths(sources []string) []string {
	var out []string
	for _, src := range sources {
		if !isRemote(src) {
			out = append(out, l.resolve(src))
		}
	}
	return out
}

func (l *Loader) read(ctx context.Context, src string) ([]byte, error) {
	if isRemote(src) {
		return l.fetch(ctx, src)
	}
	path := l.resolve(src)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapError(err, errors.CategoryNotFound, "blueprint not found").
				Fatal().WithContext(logfields.KeyPath, path).Build()
		}
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "read blueprint").
			WithContext(logfields.KeyPath, path).Build()
	}
	return data, nil
}

func (l *Loader) resolve(src string) string {
	if filepath.IsAbs(src) || l.BaseDir == "" {
		return src
	}
	return filepath.Join(l.BaseDir, src)
}

func (l *Loader) fetch(ctx context.Context, src string) ([]byte, error) {
	if _, err := url.Parse(src); err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "invalid blueprint URL").
			Fatal().WithContext(logfields.KeyURL, src).Build()
	}
	client := l.Client
	if client == nil {
		client = NewHTTPClient()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, http.NoBody)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "build request").
			Fatal().WithContext(logfields.KeyURL, src).Build()
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryNetwork, "fetch blueprint").
			Retryable().WithContext(logfields.KeyURL, src).Build()
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.NetworkError(fmt.Sprintf("fetch blueprint: HTTP %d", resp.StatusCode)).
			WithContext(logfields.KeyURL, src).Build()
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBlueprintBytes+1))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryNetwork, "read blueprint response").
			WithContext(logfields.KeyURL, src).Build()
	}
	if len(data) > maxBlueprintBytes {
		return nil, errors.BlueprintError("blueprint response too large").
			WithContext(logfields.KeyURL, src).Build()
	}
	return bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")), nil
}

func isRemote(src string) bool {
	lower := strings.ToLower(src)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
