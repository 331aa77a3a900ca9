package render

import (
	"time"

	"github.com/inful/mdfp"

	"git.home.luguber.info/inful/blueprintdocs/internal/frontmatter"
)

const (
	fieldLastmod = "lastmod"
	fieldUID     = "uid"
	fieldAliases = "aliases"
)

// fingerprint computes the content fingerprint of a page. Volatile fields
// are excluded so that stamping the result does not change it.
func fingerprint(doc *frontmatter.Document) (string, error) {
	fm, err := doc.Without(mdfp.FingerprintField, fieldLastmod, fieldUID, fieldAliases)
	if err != nil {
		return "", err
	}
	return mdfp.CalculateFingerprintFromParts(fm, string(doc.Body)), nil
}

// stamp upserts the fingerprint of doc. lastmod is carried over from the
// previous output when the fingerprint is unchanged and set to today (UTC)
// otherwise. changed reports whether the page differs from previous.
func stamp(doc, previous *frontmatter.Document, now time.Time) (changed bool, err error) {
	fp, err := fingerprint(doc)
	if err != nil {
		return false, err
	}
	doc.Set(mdfp.FingerprintField, fp)

	if previous != nil {
		if old, ok := previous.Get(mdfp.FingerprintField); ok && old == fp {
			if lastmod, ok := previous.Get(fieldLastmod); ok {
				doc.Set(fieldLastmod, lastmod)
			}
			return false, nil
		}
	}
	doc.Set(fieldLastmod, now.UTC().Format("2006-01-02"))
	return true, nil
}
