package intake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// contentTypePDF identifies PDF payloads for ceiling selection.
const contentTypePDF = "application/pdf"

// fetchResult is the outcome of a single bounded fetch.
type fetchResult struct {
	Body        []byte
	ContentType string
	StatusCode  int
}

// fetchClient performs timeout-bounded, size-ceilinged HTTP fetches.
type fetchClient struct {
	httpClient *http.Client
	userAgent  string
}

// fetch retrieves url within timeout, enforcing the payload ceiling chosen
// by the response content type. Oversized payloads are rejected whole: a
// truncated artifact must never be stored as if complete.
func (f *fetchClient) fetch(
	ctx context.Context,
	url string,
	htmlCeiling, pdfCeiling int64,
) (*fetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &FetchTimeoutError{URL: url}
		}
		return nil, fmt.Errorf("http fetch: %w", err)
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")

	ceiling := htmlCeiling
	if strings.HasPrefix(contentType, contentTypePDF) {
		ceiling = pdfCeiling
	}

	// Read one byte past the ceiling to distinguish at-limit from over.
	body, err := io.ReadAll(io.LimitReader(resp.Body, ceiling+1))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &FetchTimeoutError{URL: url}
		}
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if int64(len(body)) > ceiling {
		return nil, &PayloadTooLargeError{URL: url, Limit: ceiling}
	}

	return &fetchResult{
		Body:        body,
		ContentType: contentType,
		StatusCode:  resp.StatusCode,
	}, nil
}
