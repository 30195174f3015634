package mediafetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// errInterstitial marks a download attempt that got markup back instead of
// a binary payload. The drive ladder keys its token retry off it.
var errInterstitial = errors.New("mediafetch: interstitial page instead of payload")

// newHTTPClient builds the redirect-capped client used for all direct
// downloads. Five hops covers the service's export redirect chain; more
// than that is a loop.
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("too many redirects (%d)", len(via))
			}
			return nil
		},
	}
}

// driveState threads what the direct-download strategy observed to the
// token-retry strategy. Strategies are otherwise independent.
type driveState struct {
	interstitial []byte
}

// directDrive attempts the canonical export download. When the service
// answers with markup, the body is stashed for the token retry and the
// attempt reported as failed.
func (f *Fetcher) directDrive(ctx context.Context, id string, st *driveState, outputPath string) error {
	body, err := f.fetchToFile(ctx, f.downloadURL(id), outputPath)
	if err != nil {
		return err
	}
	if body != nil {
		st.interstitial = body
		return errInterstitial
	}
	return nil
}

// tokenRetry searches the interstitial markup captured by the direct
// download for an embedded confirmation token and retries with it.
func (f *Fetcher) tokenRetry(ctx context.Context, id string, st *driveState, outputPath string) error {
	if len(st.interstitial) == 0 {
		return errors.New("mediafetch: no interstitial page to extract token from")
	}
	token, ok := extractConfirmToken(st.interstitial)
	if !ok {
		return errors.New("mediafetch: no confirmation token in interstitial page")
	}

	body, err := f.fetchToFile(ctx, withConfirm(f.downloadURL(id), token), outputPath)
	if err != nil {
		return err
	}
	if body != nil {
		// Still an interstitial; keep the newer markup in case it
		// carries a fresher token for nothing; the blind confirm is
		// next anyway.
		st.interstitial = body
		return errInterstitial
	}
	return nil
}

// downloadBinary fetches a URL expecting a binary payload; any markup
// response counts as failure.
func (f *Fetcher) downloadBinary(ctx context.Context, rawURL, outputPath string) error {
	body, err := f.fetchToFile(ctx, rawURL, outputPath)
	if err != nil {
		return err
	}
	if body != nil {
		return errInterstitial
	}
	return nil
}

// fetchToFile GETs a URL. A binary payload is streamed to outputPath and
// (nil, nil) returned. A markup payload is never written to disk: the body
// (capped at MaxHTMLBytes) is returned instead for token hunting.
func (f *Fetcher) fetchToFile(ctx context.Context, rawURL, outputPath string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("mediafetch: new request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mediafetch: get %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("mediafetch: get %s: http %d", rawURL, resp.StatusCode)
	}

	// Classify by declared type and by the first bytes: the service has
	// been seen declaring octet-stream on warning pages and vice versa.
	peek := make([]byte, 512)
	n, err := io.ReadFull(resp.Body, peek)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("mediafetch: read %s: %w", rawURL, err)
	}
	peek = peek[:n]

	ct := resp.Header.Get("Content-Type")
	if strings.Contains(ct, "text/html") || looksLikeMarkup(peek) {
		rest, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxHTMLBytes))
		if err != nil {
			return nil, fmt.Errorf("mediafetch: read interstitial: %w", err)
		}
		return append(peek, rest...), nil
	}

	fh, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("mediafetch: create %s: %w", outputPath, err)
	}
	defer fh.Close()

	if _, err := fh.Write(peek); err != nil {
		return nil, fmt.Errorf("mediafetch: write %s: %w", outputPath, err)
	}
	if _, err := io.Copy(fh, resp.Body); err != nil {
		return nil, fmt.Errorf("mediafetch: write %s: %w", outputPath, err)
	}
	return nil, nil
}

var confirmParam = regexp.MustCompile(`confirm=([0-9A-Za-z_-]+)`)

// extractConfirmToken hunts the interstitial markup for the confirmation
// token the service wants appended to the download URL. It checks form
// inputs and link hrefs first, then falls back to a raw parameter scan.
func extractConfirmToken(markup []byte) (string, bool) {
	if tok, ok := tokenFromDOM(markup); ok {
		return tok, true
	}
	if m := confirmParam.FindSubmatch(markup); m != nil {
		return string(m[1]), true
	}
	return "", false
}

func tokenFromDOM(markup []byte) (string, bool) {
	doc, err := html.Parse(bytes.NewReader(markup))
	if err != nil {
		return "", false
	}

	var token string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if token != "" {
			return
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "input":
				var name, value string
				for _, a := range n.Attr {
					switch a.Key {
					case "name":
						name = a.Val
					case "value":
						value = a.Val
					}
				}
				if name == "confirm" && value != "" {
					token = value
					return
				}
			case "a", "form":
				for _, a := range n.Attr {
					if a.Key != "href" && a.Key != "action" {
						continue
					}
					if u, err := url.Parse(a.Val); err == nil {
						if tok := u.Query().Get("confirm"); tok != "" {
							token = tok
							return
						}
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return token, token != ""
}
