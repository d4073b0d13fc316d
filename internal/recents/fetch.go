package recents

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	appLog "recents/internal/log"
	"recents/internal/timeconv"
)

const recordPath = "/api/cdr/record/"

// Query selects the records one fetch asks for.
type Query struct {
	// Since is sent as call_date__gt in the API's timestamp format.
	Since time.Time
	Limit int
}

// FetchResult contains the outcome of one CDR request.
type FetchResult struct {
	URL       string
	Body      []byte // JSON payload (either freshly fetched or from cache)
	FromCache bool   // true if we reused the cached body
}

// cacheEntry holds HTTP cache metadata for a single request URL.
type cacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Fetcher retrieves call-detail records from the platform API with HTTP
// conditional requests (ETag / Last-Modified) and a disk-backed cache.
type Fetcher struct {
	client   *http.Client
	baseURL  string
	username string
	password string
	codec    timeconv.Codec
	cacheDir string
}

// FetcherConfig configures NewFetcher.
type FetcherConfig struct {
	BaseURL  string
	Username string
	Password string
	// Codec renders Query.Since in the API's reference timezone.
	Codec timeconv.Codec
	// CacheDir is the base directory for per-URL cache entries.
	CacheDir string
	// Client overrides the default HTTP client (15s timeout).
	Client *http.Client
}

// NewFetcher creates a new CDR Fetcher.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		// Fallback to a relative dir so development runs work without root.
		cacheDir = "./var/recents-cache"
	}
	return &Fetcher{
		client:   client,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		codec:    cfg.Codec,
		cacheDir: cacheDir,
	}
}

// RequestURL builds the record-list URL for q.
func (f *Fetcher) RequestURL(q Query) (string, error) {
	if f.baseURL == "" {
		return "", errors.New("recents: API base URL is empty")
	}
	u, err := url.Parse(f.baseURL + recordPath)
	if err != nil {
		return "", fmt.Errorf("recents: bad API base URL: %w", err)
	}
	v := url.Values{}
	if !q.Since.IsZero() {
		v.Set("call_date__gt", f.codec.Format(q.Since))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	v.Set("order_by", "-call_date")
	u.RawQuery = v.Encode()
	return u.String(), nil
}

// Fetch performs one record-list request, honoring ETag and Last-Modified.
// On network errors or non-OK responses it falls back to the cached body
// when one exists.
func (f *Fetcher) Fetch(ctx context.Context, q Query) (FetchResult, error) {
	reqURL, err := f.RequestURL(q)
	if err != nil {
		return FetchResult{}, err
	}

	cachePath := f.cachePathForURL(reqURL)
	if err := os.MkdirAll(cachePath, 0o700); err != nil {
		return FetchResult{}, err
	}

	meta, _ := f.loadCacheMeta(cachePath)
	cachedBody, _ := f.loadCacheBody(cachePath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return FetchResult{}, err
	}
	req.Header.Set("Accept", "application/json")
	if f.username != "" && f.password != "" {
		req.SetBasicAuth(f.username, f.password)
	}

	// Conditional headers from cache metadata, only when the body is there to reuse.
	if len(cachedBody) > 0 {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	appLog.Debug("cdr fetch start", "url", redactURL(reqURL))

	resp, err := f.client.Do(req)
	if err != nil {
		if len(cachedBody) > 0 {
			appLog.Error("cdr fetch network error, using cached body", err, "url", redactURL(reqURL))
			return FetchResult{URL: reqURL, Body: cachedBody, FromCache: true}, nil
		}
		return FetchResult{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return FetchResult{}, readErr
		}

		newMeta := cacheEntry{
			URL:          reqURL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}
		if err := f.saveCache(cachePath, newMeta, body); err != nil {
			// Log but still return the freshly fetched body.
			appLog.Error("cdr cache save failed", err, "url", redactURL(reqURL))
		}

		appLog.Info("cdr fetch success", "url", redactURL(reqURL), "status", resp.StatusCode, "bytes", len(body))
		return FetchResult{URL: reqURL, Body: body}, nil

	case http.StatusNotModified:
		if len(cachedBody) == 0 {
			return FetchResult{}, errors.New("recents: 304 Not Modified but no cached body available")
		}
		appLog.Info("cdr fetch not modified; using cache", "url", redactURL(reqURL))
		return FetchResult{URL: reqURL, Body: cachedBody, FromCache: true}, nil

	default:
		statusErr := fmt.Errorf("recents: API responded %s", resp.Status)
		if len(cachedBody) > 0 {
			appLog.Error("cdr fetch non-OK, using cached body", statusErr, "url", redactURL(reqURL), "status", resp.StatusCode)
			return FetchResult{URL: reqURL, Body: cachedBody, FromCache: true}, nil
		}
		return FetchResult{}, statusErr
	}
}

func (f *Fetcher) cachePathForURL(u string) string {
	sum := sha256.Sum256([]byte(u))
	// First 16 hex chars as directory name.
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func (f *Fetcher) loadCacheMeta(cachePath string) (cacheEntry, error) {
	var meta cacheEntry
	data, err := os.ReadFile(filepath.Join(cachePath, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheEntry{}, err
	}
	return meta, nil
}

func (f *Fetcher) loadCacheBody(cachePath string) ([]byte, error) {
	return os.ReadFile(filepath.Join(cachePath, "body.json"))
}

func (f *Fetcher) saveCache(cachePath string, meta cacheEntry, body []byte) error {
	// Write body first so meta never points at a missing body.
	if err := os.WriteFile(filepath.Join(cachePath, "body.json"), body, 0o600); err != nil {
		return err
	}

	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cachePath, "meta.json"), data, 0o600)
}

// redactURL keeps scheme and host only, so query filters and paths do not
// end up in logs.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "...(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
