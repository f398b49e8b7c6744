package registry

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"macwatch/internal/domain"
)

// DefaultBaseURL is where the IEEE publishes the assignment lists
const DefaultBaseURL = "https://standards-oui.ieee.org"

// feedPaths are the per-class feed locations below the base URL
var feedPaths = map[domain.AssignmentClass]string{
	domain.ClassMAL: "oui/oui.csv",
	domain.ClassMAM: "oui28/mam.csv",
	domain.ClassMAS: "oui36/oui36.csv",
}

// FeedFileName returns the conventional local file name of a class feed
func FeedFileName(class domain.AssignmentClass) string {
	return filepath.Base(feedPaths[class])
}

// FetchResult describes one downloaded feed
type FetchResult struct {
	Class    domain.AssignmentClass `json:"class"`
	Path     string                 `json:"path"`
	Previous string                 `json:"previous,omitempty"`
	Bytes    int64                  `json:"bytes"`
	Digest   string                 `json:"digest"`
}

// Fetcher downloads registry feeds
type Fetcher struct {
	BaseURL    string
	UserAgent  string
	HTTPClient *http.Client
}

// NewFetcher creates a fetcher for baseURL, DefaultBaseURL when empty
func NewFetcher(baseURL string) *Fetcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Fetcher{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		UserAgent: "macwatch",
		HTTPClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

// URL returns the download location of a class feed
func (f *Fetcher) URL(class domain.AssignmentClass) (string, error) {
	p, ok := feedPaths[class]
	if !ok {
		return "", fmt.Errorf("%w: unknown assignment class %q", domain.ErrInvalidArgument, class)
	}
	return f.BaseURL + "/" + p, nil
}

// Fetch downloads the class feed to dest. An existing file at dest is
// kept as old_<name> next to it. The new file only replaces dest once the
// download completed.
func (f *Fetcher) Fetch(ctx context.Context, class domain.AssignmentClass, dest string) (*FetchResult, error) {
	url, err := f.URL(class)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s feed request: %w", class, err)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s feed: %w", class, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry returned %d for %s feed", resp.StatusCode, class)
	}

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create feed directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+"-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary feed file: %w", err)
	}
	defer os.Remove(tmp.Name())

	h, err := blake2b.New256(nil)
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to create hash: %w", err)
	}

	n, err := io.Copy(io.MultiWriter(tmp, h), resp.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, fmt.Errorf("failed to write %s feed: %w", class, err)
	}

	result := &FetchResult{
		Class:  class,
		Path:   dest,
		Bytes:  n,
		Digest: hex.EncodeToString(h.Sum(nil)),
	}

	if _, err := os.Stat(dest); err == nil {
		previous := filepath.Join(dir, "old_"+filepath.Base(dest))
		if err := os.Rename(dest, previous); err != nil {
			return nil, fmt.Errorf("failed to keep previous %s feed: %w", class, err)
		}
		result.Previous = previous
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		return nil, fmt.Errorf("failed to install %s feed: %w", class, err)
	}

	slog.Info("registry feed downloaded", "class", class, "url", url, "path", dest, "bytes", n)
	return result, nil
}

// FetchAll downloads every class feed to its path in paths, in class
// order. A class missing from paths goes to its conventional file name
// in the working directory.
func (f *Fetcher) FetchAll(ctx context.Context, paths map[domain.AssignmentClass]string) ([]*FetchResult, error) {
	var results []*FetchResult
	for _, class := range domain.AssignmentClasses {
		dest, ok := paths[class]
		if !ok {
			dest = FeedFileName(class)
		}
		result, err := f.Fetch(ctx, class, dest)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}
