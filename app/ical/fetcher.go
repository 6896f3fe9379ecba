package ical

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// fetchTimeout bounds a single conditional GET. Timeouts are not retried
// within a cycle; the next scheduled cycle is the implicit retry.
const fetchTimeout = 10 * time.Second

// Fetcher performs conditional HTTP GETs against feed URLs. It never
// mutates stored feed metadata; that is the Detector's job.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

func NewFetcher(client *http.Client, userAgent string) *Fetcher {
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				MaxIdleConnsPerHost: 5,
			},
		}
	}
	return &Fetcher{
		client:    client,
		userAgent: userAgent,
	}
}

// Run fetches the URL, sending If-None-Match / If-Modified-Since when
// validators are present. A 304 yields FetchUnchanged, a 2xx yields
// FetchOK with the body and any returned validator headers, and anything
// else (including transport errors and the fixed timeout) yields
// FetchFailed. Failure is non-fatal; the caller skips the feed this cycle.
func (f *Fetcher) Run(ctx context.Context, url string, validators Validators) FetchResult {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return FetchResult{Status: FetchFailed, Err: fmt.Errorf("unsupported URL scheme: %q", url)}
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, url, nil)
	if err != nil {
		return FetchResult{Status: FetchFailed, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/calendar, */*")
	if validators.ETag != "" {
		req.Header.Set("If-None-Match", validators.ETag)
	}
	if validators.LastModified != "" {
		req.Header.Set("If-Modified-Since", validators.LastModified)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return FetchResult{Status: FetchFailed, Err: fmt.Errorf("failed to fetch feed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return FetchResult{Status: FetchUnchanged}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return FetchResult{Status: FetchFailed, Err: fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return FetchResult{Status: FetchFailed, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	body, err := decodeBody(data, resp.Header.Get("Content-Type"))
	if err != nil {
		return FetchResult{Status: FetchFailed, Err: fmt.Errorf("failed to decode response body: %w", err)}
	}

	return FetchResult{
		Status:       FetchOK,
		Body:         body,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
	}
}

// decodeBody converts non-UTF-8 payloads to UTF-8 based on the charset
// parameter of the Content-Type header. Unknown or absent charsets pass
// the bytes through unchanged.
func decodeBody(data []byte, contentType string) (string, error) {
	var dec *encoding.Decoder

	if contentType != "" {
		if _, params, err := mime.ParseMediaType(contentType); err == nil {
			switch strings.ToLower(params["charset"]) {
			case "iso-8859-1", "latin1":
				dec = charmap.ISO8859_1.NewDecoder()
			case "windows-1252":
				dec = charmap.Windows1252.NewDecoder()
			}
		}
	}

	if dec == nil {
		return string(data), nil
	}

	decoded, _, err := transform.Bytes(dec, data)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
