package mediafetch

import (
	"net/url"
	"regexp"
	"strings"
)

// The share service exposes the same resource under two URL shapes: a path
// form (/file/d/<ID>/view) and a query form (…/open?id=<ID> or /uc?id=<ID>).
// Downloads go through the uc endpoint with an export parameter, optionally
// carrying a confirmation token.

const (
	driveExportBase = "https://drive.google.com/uc"
	driveFileBase   = "https://drive.google.com/file/d/"

	// blindConfirmToken is the placeholder the service accepts when it
	// does not insist on a real per-file token.
	blindConfirmToken = "t"
)

var fileIDPath = regexp.MustCompile(`/file/d/([A-Za-z0-9_-]+)`)

// ExtractFileID pulls the service file identifier out of a share URL.
// Recognised shapes: a /file/d/<ID>/ path segment, or an id query parameter
// on an open/uc path. Returns false for anything else, including text that
// does not parse as a URL at all.
func ExtractFileID(raw string) (string, bool) {
	if m := fileIDPath.FindStringSubmatch(raw); m != nil {
		return m[1], true
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if strings.Contains(u.Path, "open") || strings.Contains(u.Path, "uc") {
		if id := u.Query().Get("id"); id != "" {
			return id, true
		}
	}
	return "", false
}

// downloadURL is the canonical export-download template. The base is a
// Fetcher field so tests can point it at a local server.
func (f *Fetcher) downloadURL(id string) string {
	return f.exportBase + "?export=download&id=" + url.QueryEscape(id)
}

// viewDownloadURL is the alternate export template the service recognises
// for the same resource.
func (f *Fetcher) viewDownloadURL(id string) string {
	return f.exportBase + "?export=view&id=" + url.QueryEscape(id)
}

// filePageURL is the interactive page for a file, used by the browser
// fallback.
func filePageURL(id string) string {
	return driveFileBase + id + "/view"
}

// withConfirm appends a confirmation token to a download URL.
func withConfirm(downloadURL, token string) string {
	return downloadURL + "&confirm=" + url.QueryEscape(token)
}
