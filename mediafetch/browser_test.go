package mediafetch

import (
	"context"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/proto"
)

// A timed-out wait must release its goroutine: rod's wait() returns once the
// waiter context is cancelled, which awaitDownload does on every exit path.
func TestAwaitDownloadTimeoutReleasesWaiter(t *testing.T) {
	waitCtx, cancel := context.WithCancel(context.Background())
	exited := make(chan struct{})
	wait := func() *proto.PageDownloadWillBegin {
		defer close(exited)
		<-waitCtx.Done()
		return nil
	}

	if info := awaitDownload(context.Background(), wait, cancel, 10*time.Millisecond); info != nil {
		t.Fatalf("info = %v, want nil on timeout", info)
	}
	select {
	case <-exited:
	case <-time.After(time.Second):
		t.Fatal("waiter goroutine still blocked after the timed-out wait")
	}
}

func TestAwaitDownloadDeliversEvent(t *testing.T) {
	_, cancel := context.WithCancel(context.Background())
	want := &proto.PageDownloadWillBegin{GUID: "dl-1"}
	wait := func() *proto.PageDownloadWillBegin { return want }

	got := awaitDownload(context.Background(), wait, cancel, time.Second)
	if got != want {
		t.Fatalf("got %v, want the download event", got)
	}
}

func TestOnConfirmationPage(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://drive.google.com/uc?export=download&id=X", true},
		{"https://drive.google.com/uc?export=download&confirm=t", true},
		{"https://example.com/scan-warning", true},
		{"https://lh3.googleusercontent.com/abc", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := onConfirmationPage(tt.url); got != tt.want {
			t.Errorf("onConfirmationPage(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestLooksLikeContentURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://lh3.googleusercontent.com/abc", true},
		{"https://cdn.example.com/clip.mp4", true},
		{"https://drive.google.com/uc?export=download&id=X", true},
		{"https://drive.google.com/file/d/X/view", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := looksLikeContentURL(tt.url); got != tt.want {
			t.Errorf("looksLikeContentURL(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}
