package mediafetch

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// Signature validation classifies a file's true type from its leading bytes,
// never trusting the URL, extension, or declared content type. The share
// service is known to serve placeholder PNGs and interstitial HTML where a
// video was requested, so the video rules reject those outright.

var (
	pngMagic  = []byte{0x89, 0x50, 0x4E, 0x47}
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
	gifMagic  = []byte("GIF8")
	ftypBox   = []byte("ftyp") // MP4/MOV container marker at offset 4
)

// Sniff reports whether the byte prefix matches the requested kind.
// Buffers under 4 bytes are always rejected: too small to carry a signature.
func Sniff(kind Kind, prefix []byte) bool {
	if len(prefix) < 4 {
		return false
	}
	switch kind {
	case KindImage:
		return sniffImage(prefix)
	case KindVideo:
		return sniffVideo(prefix)
	default:
		return false
	}
}

func sniffImage(b []byte) bool {
	return bytes.HasPrefix(b, pngMagic) ||
		bytes.HasPrefix(b, jpegMagic) ||
		bytes.HasPrefix(b, gifMagic)
}

func sniffVideo(b []byte) bool {
	// Common false-positives first: a placeholder image or an
	// interstitial page instead of the actual clip.
	if bytes.HasPrefix(b, pngMagic) {
		return false
	}
	if looksLikeMarkup(b) {
		return false
	}
	if len(b) < 8 {
		return false
	}
	return bytes.Equal(b[4:8], ftypBox)
}

// looksLikeMarkup reports whether the decoded prefix starts with a
// document-type declaration or an HTML tag.
func looksLikeMarkup(b []byte) bool {
	trimmed := bytes.TrimLeft(b, " \t\r\n")
	lower := bytes.ToLower(trimmed)
	for _, sig := range [][]byte{
		[]byte("<!doctype"),
		[]byte("<html"),
		[]byte("<head"),
		[]byte("<body"),
	} {
		if bytes.HasPrefix(lower, sig) {
			return true
		}
	}
	return false
}

// validateFile checks that the file at path is big enough to be a real
// payload and carries the right signature for kind.
func validateFile(path string, kind Kind, minSize int64) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("mediafetch: stat %s: %w", path, err)
	}
	if info.Size() < minSize {
		return fmt.Errorf("mediafetch: %s: %d bytes, below minimum %d", path, info.Size(), minSize)
	}

	fh, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("mediafetch: open %s: %w", path, err)
	}
	defer fh.Close()

	prefix := make([]byte, 64)
	n, err := fh.Read(prefix)
	if err != nil && err != io.EOF {
		return fmt.Errorf("mediafetch: read %s: %w", path, err)
	}
	if !Sniff(kind, prefix[:n]) {
		return fmt.Errorf("mediafetch: %s: signature does not match kind %q", path, kind)
	}
	return nil
}
