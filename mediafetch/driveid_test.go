package mediafetch

import "testing"

func TestExtractFileID(t *testing.T) {
	tests := []struct {
		url  string
		id   string
		ok   bool
	}{
		{"https://drive.google.com/file/d/1AbC-d_9/view?usp=sharing", "1AbC-d_9", true},
		{"https://drive.google.com/file/d/1AbC-d_9/", "1AbC-d_9", true},
		{"https://drive.google.com/open?id=1AbC-d_9", "1AbC-d_9", true},
		{"https://drive.google.com/uc?id=1AbC-d_9&export=download", "1AbC-d_9", true},
		{"https://other-host.example/clip.mp4", "", false},
		{"not a url at all", "", false},
		{"", "", false},
		{"https://drive.google.com/drive/folders/1AbC", "", false},
	}

	for _, tt := range tests {
		id, ok := ExtractFileID(tt.url)
		if ok != tt.ok || id != tt.id {
			t.Errorf("ExtractFileID(%q) = %q, %v; want %q, %v", tt.url, id, ok, tt.id, tt.ok)
		}
	}
}

// Both URL shapes of the same resource must resolve to the same identifier.
func TestExtractFileIDShapesAgree(t *testing.T) {
	pathForm, ok1 := ExtractFileID("https://drive.google.com/file/d/XYZ9/view")
	queryForm, ok2 := ExtractFileID("https://drive.google.com/open?id=XYZ9")
	if !ok1 || !ok2 {
		t.Fatal("expected both shapes to be recognised")
	}
	if pathForm != queryForm {
		t.Fatalf("shapes disagree: %q vs %q", pathForm, queryForm)
	}
}

func TestDerivedURLs(t *testing.T) {
	f := New(Config{})

	if got, want := f.downloadURL("XYZ9"), "https://drive.google.com/uc?export=download&id=XYZ9"; got != want {
		t.Errorf("downloadURL = %q, want %q", got, want)
	}
	if got, want := f.viewDownloadURL("XYZ9"), "https://drive.google.com/uc?export=view&id=XYZ9"; got != want {
		t.Errorf("viewDownloadURL = %q, want %q", got, want)
	}
	if got, want := withConfirm(f.downloadURL("XYZ9"), "abc123"), "https://drive.google.com/uc?export=download&id=XYZ9&confirm=abc123"; got != want {
		t.Errorf("withConfirm = %q, want %q", got, want)
	}
	if got, want := filePageURL("XYZ9"), "https://drive.google.com/file/d/XYZ9/view"; got != want {
		t.Errorf("filePageURL = %q, want %q", got, want)
	}
}
