// Package selfupdate replaces the running binary with the latest GitHub
// release.
package selfupdate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Options configure an update check.
type Options struct {
	// RepoOwner and RepoName identify the GitHub repository.
	RepoOwner string
	RepoName  string

	// CurrentVersion is the running version, without a leading "v".
	CurrentVersion string

	// Token is an optional GitHub API token. Falls back to the
	// GITHUB_TOKEN environment variable.
	Token string

	// APIBaseURL overrides the GitHub API endpoint, for tests.
	// Default: "https://api.github.com"
	APIBaseURL string
}

// Release is the subset of the GitHub release payload the updater needs.
type Release struct {
	TagName string  `json:"tag_name"`
	Assets  []Asset `json:"assets"`
}

// Asset is one downloadable release artifact.
type Asset struct {
	Name        string `json:"name"`
	DownloadURL string `json:"browser_download_url"`
}

// Version returns the release version without the leading "v".
func (r *Release) Version() string {
	return strings.TrimPrefix(r.TagName, "v")
}

// Updater checks for and applies updates.
type Updater struct {
	opts   Options
	client *http.Client
	logger *slog.Logger
}

// New creates an updater.
func New(opts Options) *Updater {
	if opts.APIBaseURL == "" {
		opts.APIBaseURL = "https://api.github.com"
	}
	if opts.Token == "" {
		opts.Token = os.Getenv("GITHUB_TOKEN")
	}
	return &Updater{
		opts:   opts,
		client: &http.Client{Timeout: 5 * time.Minute},
		logger: slog.Default().With("component", "selfupdate"),
	}
}

// LatestRelease fetches the latest release metadata.
func (u *Updater) LatestRelease(ctx context.Context) (*Release, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases/latest",
		u.opts.APIBaseURL, u.opts.RepoOwner, u.opts.RepoName)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building release request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if u.opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+u.opts.Token)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching latest release: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("release lookup returned %d: %s", resp.StatusCode, body)
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("decoding release payload: %w", err)
	}
	return &release, nil
}

// NeedsUpdate reports whether latest should replace the current version.
// Identical major.minor.patch with differing full strings still updates, so
// hotfix tags like 0.0.8-1 are picked up. Unparseable versions also report
// true and leave the decision to the operator's confirmation.
func (u *Updater) NeedsUpdate(latest string) bool {
	current := u.opts.CurrentVersion
	if current == latest {
		return false
	}

	currentParts, currentOK := parseVersion(current)
	latestParts, latestOK := parseVersion(latest)
	if !currentOK || !latestOK {
		return true
	}

	for i := 0; i < 3; i++ {
		if latestParts[i] != currentParts[i] {
			return latestParts[i] > currentParts[i]
		}
	}
	// Same numeric triple but different strings: pre-release or build
	// metadata changed.
	return true
}

// Apply downloads the asset matching this platform and atomically replaces
// the running binary.
func (u *Updater) Apply(ctx context.Context, release *Release) error {
	asset, err := selectAsset(release.Assets)
	if err != nil {
		return err
	}

	binaryPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolving binary path: %w", err)
	}

	u.logger.Info("downloading update",
		"asset", asset.Name,
		"version", release.Version(),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, asset.DownloadURL, nil)
	if err != nil {
		return fmt.Errorf("building download request: %w", err)
	}
	if u.opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+u.opts.Token)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return fmt.Errorf("downloading update: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("asset download returned %d", resp.StatusCode)
	}

	// Stage next to the target so the rename stays on one filesystem.
	tmp, err := os.CreateTemp(filepath.Dir(binaryPath), ".mamba-update-*")
	if err != nil {
		return fmt.Errorf("staging update: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("writing update: %w", err)
	}
	if err := tmp.Chmod(0o755); err != nil {
		tmp.Close()
		return fmt.Errorf("marking update executable: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("finalizing update: %w", err)
	}

	if err := os.Rename(tmpPath, binaryPath); err != nil {
		return fmt.Errorf("replacing binary: %w", err)
	}

	u.logger.Info("binary replaced", "path", binaryPath, "version", release.Version())
	return nil
}

// selectAsset picks the artifact for the running platform by matching GOOS
// and GOARCH substrings in the asset name.
func selectAsset(assets []Asset) (*Asset, error) {
	for i := range assets {
		name := strings.ToLower(assets[i].Name)
		if strings.Contains(name, runtime.GOOS) && strings.Contains(name, runtime.GOARCH) {
			return &assets[i], nil
		}
	}
	return nil, fmt.Errorf("no release asset for %s/%s", runtime.GOOS, runtime.GOARCH)
}

// parseVersion extracts the numeric major.minor.patch triple. Pre-release
// and build suffixes after "-" or "+" are ignored.
func parseVersion(v string) ([3]int, bool) {
	v = strings.TrimPrefix(v, "v")
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		v = v[:i]
	}

	parts := strings.Split(v, ".")
	if len(parts) != 3 {
		return [3]int{}, false
	}

	var out [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return [3]int{}, false
		}
		out[i] = n
	}
	return out, true
}
