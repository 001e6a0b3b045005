package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const maxDocumentSize = 10 << 20

type Fetcher struct {
	httpClient *http.Client
	parser     *Parser
	userAgent  string
	timeout    time.Duration
	maxSize    int64
}

func NewFetcher(httpClient *http.Client, parser *Parser, userAgent string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		httpClient: httpClient,
		parser:     parser,
		userAgent:  userAgent,
		timeout:    timeout,
		maxSize:    maxDocumentSize,
	}
}

// Fetch downloads and parses the feed at url. Failures are *FetchError or *ParseError.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Document, error) {
	data, err := f.download(ctx, url)
	if err != nil {
		return nil, err
	}

	doc, err := f.parser.Run(data)
	if err != nil {
		return nil, &ParseError{URL: url, Err: err}
	}

	slog.Debug("Feed fetched",
		"feed", url,
		"bytes", len(data),
		"items", len(doc.Items))

	return doc, nil
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/feed+json, application/xml;q=0.9, */*;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("HTTP error: %s", resp.Status)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("failed to read response body: %w", err)}
	}
	if int64(len(data)) > f.maxSize {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("document exceeds %d bytes", f.maxSize)}
	}

	return data, nil
}
