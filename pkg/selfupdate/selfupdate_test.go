package selfupdate

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"
)

func TestNeedsUpdate(t *testing.T) {
	tests := []struct {
		name    string
		current string
		latest  string
		want    bool
	}{
		{"same version", "1.2.3", "1.2.3", false},
		{"newer patch", "1.2.3", "1.2.4", true},
		{"newer minor", "1.2.3", "1.3.0", true},
		{"newer major", "1.2.3", "2.0.0", true},
		{"older latest", "1.2.3", "1.2.2", false},
		{"older major", "2.0.0", "1.9.9", false},
		{"hotfix suffix on same triple", "0.0.8", "0.0.8-1", true},
		{"suffix change on same triple", "0.0.8-1", "0.0.8-2", true},
		{"unparseable current", "dev", "1.0.0", true},
		{"unparseable latest", "1.0.0", "nightly", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := New(Options{CurrentVersion: tt.current})
			if got := u.NeedsUpdate(tt.latest); got != tt.want {
				t.Errorf("NeedsUpdate(%q -> %q) = %v, want %v", tt.current, tt.latest, got, tt.want)
			}
		})
	}
}

func TestLatestRelease(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/mamba-hq/mamba/releases/latest" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-token" {
			t.Errorf("Authorization = %q", auth)
		}
		fmt.Fprint(w, `{"tag_name":"v1.4.0","assets":[{"name":"mamba-linux-amd64","browser_download_url":"https://example.com/a"}]}`)
	}))
	defer server.Close()

	u := New(Options{
		RepoOwner:      "mamba-hq",
		RepoName:       "mamba",
		CurrentVersion: "1.0.0",
		Token:          "test-token",
		APIBaseURL:     server.URL,
	})

	release, err := u.LatestRelease(context.Background())
	if err != nil {
		t.Fatalf("LatestRelease: %v", err)
	}
	if release.Version() != "1.4.0" {
		t.Errorf("version = %q, want 1.4.0", release.Version())
	}
	if len(release.Assets) != 1 {
		t.Errorf("assets = %d, want 1", len(release.Assets))
	}
}

func TestLatestReleaseErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	u := New(Options{RepoOwner: "o", RepoName: "r", APIBaseURL: server.URL})
	if _, err := u.LatestRelease(context.Background()); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestSelectAsset(t *testing.T) {
	platformAsset := fmt.Sprintf("mamba-%s-%s.tar.gz", runtime.GOOS, runtime.GOARCH)
	assets := []Asset{
		{Name: "mamba-plan9-386"},
		{Name: platformAsset},
	}

	got, err := selectAsset(assets)
	if err != nil {
		t.Fatalf("selectAsset: %v", err)
	}
	if got.Name != platformAsset {
		t.Errorf("selected %q, want %q", got.Name, platformAsset)
	}
}

func TestSelectAssetNoMatch(t *testing.T) {
	if _, err := selectAsset([]Asset{{Name: "mamba-plan9-386"}}); err == nil {
		t.Fatal("expected error when no asset matches platform")
	}
}
