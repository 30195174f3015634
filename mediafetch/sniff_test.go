package mediafetch

import (
	"bytes"
	"testing"
)

func mp4Prefix() []byte {
	// Size box + "ftyp" at offset 4, as in any MP4/MOV-family file.
	return []byte{0x00, 0x00, 0x00, 0x20, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm'}
}

func TestSniff(t *testing.T) {
	png := append([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, make([]byte, 8)...)
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}
	gif := []byte("GIF89a\x00\x00")
	htmlPage := []byte("<!DOCTYPE html><html><body>almost there</body></html>")

	tests := []struct {
		name string
		kind Kind
		data []byte
		want bool
	}{
		{"png as image", KindImage, png, true},
		{"jpeg as image", KindImage, jpeg, true},
		{"gif as image", KindImage, gif, true},
		{"mp4 as image", KindImage, mp4Prefix(), false},
		{"html as image", KindImage, htmlPage, false},
		{"mp4 as video", KindVideo, mp4Prefix(), true},
		{"png placeholder as video", KindVideo, png, false},
		{"interstitial page as video", KindVideo, htmlPage, false},
		{"leading whitespace markup as video", KindVideo, []byte("\n  <html>"), false},
		{"short buffer image", KindImage, []byte{0x89, 0x50}, false},
		{"short buffer video", KindVideo, []byte{0x00, 0x00}, false},
		{"empty buffer", KindImage, nil, false},
		{"seven bytes no signature", KindVideo, []byte{0, 0, 0, 0, 'f', 't', 'y'}, false},
	}

	for _, tt := range tests {
		if got := Sniff(tt.kind, tt.data); got != tt.want {
			t.Errorf("%s: Sniff(%v, %d bytes) = %v, want %v", tt.name, tt.kind, len(tt.data), got, tt.want)
		}
	}
}

// Every buffer that passes image validation with a PNG prefix must fail
// video validation, and vice versa for ftyp buffers.
func TestSniffKindsDisjoint(t *testing.T) {
	png := append([]byte{0x89, 0x50, 0x4E, 0x47}, make([]byte, 12)...)
	if !Sniff(KindImage, png) || Sniff(KindVideo, png) {
		t.Error("PNG prefix must validate as image only")
	}
	if Sniff(KindImage, mp4Prefix()) || !Sniff(KindVideo, mp4Prefix()) {
		t.Error("ftyp prefix must validate as video only")
	}
}

func TestLooksLikeMarkup(t *testing.T) {
	if !looksLikeMarkup([]byte("  <!doctype HTML>")) {
		t.Error("doctype not detected")
	}
	if !looksLikeMarkup([]byte("<HTML lang=\"en\">")) {
		t.Error("html tag not detected")
	}
	if looksLikeMarkup(bytes.Repeat([]byte{0xFF}, 16)) {
		t.Error("binary misdetected as markup")
	}
}
