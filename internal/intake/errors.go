package intake

import "fmt"

// FetchTimeoutError is returned when a single fetch exceeds the configured
// fetch timeout. It is recorded as a per-item or per-feed failure and is not
// retried within the same run.
type FetchTimeoutError struct {
	URL string
}

func (e *FetchTimeoutError) Error() string {
	return fmt.Sprintf("fetch timed out: %s", e.URL)
}

// PayloadTooLargeError is returned when a fetched payload exceeds its
// configured byte ceiling. No partial artifact is persisted.
type PayloadTooLargeError struct {
	URL   string
	Limit int64
}

func (e *PayloadTooLargeError) Error() string {
	return fmt.Sprintf("payload exceeds %d bytes: %s", e.Limit, e.URL)
}
