package bank

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Download describes a bank file placed in the cache directory.
type Download struct {
	Path string
	// Stale is set when the server was unreachable and a previously cached
	// copy was returned instead.
	Stale bool
}

// DownloadBank fetches a bank file into cacheDir. When the server cannot be
// reached a cached copy from an earlier download is used; without one the
// error wraps ErrDataUnavailable.
func DownloadBank(ctx context.Context, rawURL, cacheDir string) (Download, error) {
	if cacheDir == "" {
		return Download{}, fmt.Errorf("cache directory is required")
	}
	name, err := cacheName(rawURL)
	if err != nil {
		return Download{}, err
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return Download{}, fmt.Errorf("failed to create cache dir: %w", err)
	}
	destPath := filepath.Join(cacheDir, name)

	fetchErr := fetchToFile(ctx, rawURL, cacheDir, destPath)
	if fetchErr == nil {
		return Download{Path: destPath}, nil
	}
	if _, err := os.Stat(destPath); err == nil {
		return Download{Path: destPath, Stale: true}, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return Download{}, fmt.Errorf("failed to stat cached bank: %w", err)
	}
	return Download{}, fmt.Errorf("%w: %w", ErrDataUnavailable, fetchErr)
}

// cacheName derives a cache file name unique to rawURL. The readable stem
// comes from the last path segment; the hash keeps banks that share a file
// name on different hosts or paths apart.
func cacheName(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("invalid bank url %q", rawURL)
	}
	base := path.Base(parsed.Path)
	ext := strings.ToLower(path.Ext(base))
	if _, err := FormatForPath(base); err != nil {
		ext = ".json"
	} else {
		base = strings.TrimSuffix(base, path.Ext(base))
	}
	stem := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return -1
	}, base)
	if stem == "" {
		stem = "bank"
	}
	sum := sha256.Sum256([]byte(parsed.String()))
	return fmt.Sprintf("%s-%s%s", stem, hex.EncodeToString(sum[:6]), ext), nil
}

func fetchToFile(ctx context.Context, rawURL, dir, destPath string) error {
	resp, err := httpRequest(ctx, rawURL)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected bank status: %s", resp.Status)
	}

	tmpFile, err := os.CreateTemp(dir, "bank-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp bank: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := io.Copy(tmpFile, resp.Body); err != nil {
		return fmt.Errorf("failed to download bank: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp bank: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to move bank into cache: %w", err)
	}
	return nil
}

func httpRequest(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}
