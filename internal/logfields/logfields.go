package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyComponent  = "component"
	KeyBranch     = "branch"
	KeyURL        = "url"
	KeyPath       = "path"
	KeyFile       = "file"
	KeyDir        = "dir"
	KeySection    = "section"
	KeyType       = "type"
	KeyProperty   = "property"
	KeyKind       = "kind"
	KeyTarget     = "target"
	KeyDoc        = "doc"
	KeyCommand    = "command"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyAttempt    = "attempt"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Component(n string) slog.Attr    { return slog.String(KeyComponent, n) }
func Branch(b string) slog.Attr       { return slog.String(KeyBranch, b) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func File(f string) slog.Attr         { return slog.String(KeyFile, f) }
func Dir(d string) slog.Attr          { return slog.String(KeyDir, d) }
func Section(s string) slog.Attr      { return slog.String(KeySection, s) }
func Type(t string) slog.Attr         { return slog.String(KeyType, t) }
func Property(p string) slog.Attr     { return slog.String(KeyProperty, p) }
func Kind(k string) slog.Attr         { return slog.String(KeyKind, k) }
func Target(t string) slog.Attr       { return slog.String(KeyTarget, t) }
func Doc(d string) slog.Attr          { return slog.String(KeyDoc, d) }
func Command(c string) slog.Attr      { return slog.String(KeyCommand, c) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Attempt(n int) slog.Attr         { return slog.Int(KeyAttempt, n) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
