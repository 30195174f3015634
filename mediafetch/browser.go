package mediafetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// confirmSelectors is the ordered list of controls tried on the service's
// confirmation page. Inherently brittle to upstream UI changes; a miss just
// advances the ladder.
var confirmSelectors = []string{
	"#uc-download-link",
	"form#download-form button[type=submit]",
	"form#downloadForm button",
	"button[aria-label='Download anyway']",
	"a[href*='confirm=']",
}

// browserFetch drives the headless browser to the resource's interactive
// page. The download listener is registered before navigation; if no
// download fires within the bounded wait and the page sits on a known
// confirmation state, download controls are clicked in order with the
// listener re-armed each time. As a last resort, a final URL that looks
// like direct content is fetched over HTTP with the browser's cookies.
//
// The page is closed on every exit path; the browser itself is shared
// across calls and never touched.
func (f *Fetcher) browserFetch(ctx context.Context, pageURL string, kind Kind, outputPath string, driveAware bool) error {
	mgr := f.cfg.Browser
	b := mgr.Browser()
	if b == nil {
		return errors.New("mediafetch: browser not started")
	}
	b = b.Context(ctx)

	dlDir, err := os.MkdirTemp("", "deckgen-dl-")
	if err != nil {
		return fmt.Errorf("mediafetch: temp dir: %w", err)
	}
	defer os.RemoveAll(dlDir)

	page, err := mgr.Page(ctx)
	if err != nil {
		return err
	}
	defer page.Close()

	// Arm before navigation: the service can start the download during
	// the initial redirect chain.
	wait, cancelWait := armDownload(ctx, b, dlDir)

	if err := mgr.Navigate(ctx, page, pageURL); err != nil {
		cancelWait()
		return err
	}

	// Let redirects settle before deciding what kind of page this is.
	select {
	case <-time.After(f.cfg.SettleDelay):
	case <-ctx.Done():
		cancelWait()
		return ctx.Err()
	}

	if info := awaitDownload(ctx, wait, cancelWait, f.cfg.DownloadWait); info != nil {
		return moveFile(filepath.Join(dlDir, info.GUID), outputPath)
	}

	finalURL := pageURLNow(page)

	if driveAware && onConfirmationPage(finalURL) {
		for _, sel := range confirmSelectors {
			// Re-arm before each attempt; a click can only be
			// credited to a listener registered ahead of it.
			wait, cancelWait = armDownload(ctx, b, dlDir)

			el, err := page.Timeout(2 * time.Second).Element(sel)
			if err != nil {
				cancelWait()
				continue
			}
			if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
				f.cfg.Logger.Debug("mediafetch: click failed", "selector", sel, "error", err)
				cancelWait()
				continue
			}
			if info := awaitDownload(ctx, wait, cancelWait, f.cfg.RetryWait); info != nil {
				return moveFile(filepath.Join(dlDir, info.GUID), outputPath)
			}
			finalURL = pageURLNow(page)
		}
	}

	// No download event, but the page may have ended up on the content
	// itself (export=view redirects do this for images).
	if looksLikeContentURL(finalURL) {
		cookies, err := b.GetCookies()
		if err != nil {
			f.cfg.Logger.Debug("mediafetch: get cookies failed", "error", err)
		}
		return f.fetchWithCookies(ctx, cookies, finalURL, outputPath)
	}

	return fmt.Errorf("mediafetch: browser fallback: no download event on %s", pageURL)
}

// armDownload registers a download listener on its own cancellable browser
// context. An abandoned wait would otherwise block its goroutine until the
// whole fetch ends; cancelling the waiter context releases it.
func armDownload(ctx context.Context, b *rod.Browser, dlDir string) (func() *proto.PageDownloadWillBegin, context.CancelFunc) {
	waitCtx, cancel := context.WithCancel(ctx)
	return b.Context(waitCtx).WaitDownload(dlDir), cancel
}

// awaitDownload bounds the blocking rod download wait. The waiter context is
// cancelled on every exit path so its goroutine terminates with the wait.
func awaitDownload(ctx context.Context, wait func() *proto.PageDownloadWillBegin, cancel context.CancelFunc, d time.Duration) *proto.PageDownloadWillBegin {
	defer cancel()
	done := make(chan *proto.PageDownloadWillBegin, 1)
	go func() { done <- wait() }()

	select {
	case info := <-done:
		return info
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return nil
	}
}

func pageURLNow(page *rod.Page) string {
	info, err := page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// onConfirmationPage recognises the service's interstitial by URL substring.
func onConfirmationPage(u string) bool {
	for _, marker := range []string{"confirm", "uc?export", "warning", "virus"} {
		if strings.Contains(u, marker) {
			return true
		}
	}
	return false
}

// looksLikeContentURL reports whether a final page URL plausibly serves the
// raw bytes rather than markup.
func looksLikeContentURL(raw string) bool {
	if raw == "" {
		return false
	}
	if strings.Contains(raw, "googleusercontent") || strings.Contains(raw, "export=download") {
		return true
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	switch strings.ToLower(filepath.Ext(u.Path)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".mp4", ".mov", ".m4v", ".webm":
		return true
	}
	return false
}

// fetchWithCookies re-fetches a URL over plain HTTP carrying the browser's
// session cookies, for content URLs that only resolve inside the browser's
// session.
func (f *Fetcher) fetchWithCookies(ctx context.Context, cookies []*proto.NetworkCookie, rawURL, outputPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("mediafetch: new request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	for _, c := range cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("mediafetch: get %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mediafetch: get %s: http %d", rawURL, resp.StatusCode)
	}

	fh, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("mediafetch: create %s: %w", outputPath, err)
	}
	defer fh.Close()

	if _, err := io.Copy(fh, resp.Body); err != nil {
		return fmt.Errorf("mediafetch: write %s: %w", outputPath, err)
	}
	return nil
}

// moveFile renames src to dst, falling back to a copy across filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("mediafetch: open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("mediafetch: create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("mediafetch: copy to %s: %w", dst, err)
	}
	return nil
}
