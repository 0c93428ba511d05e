package intake

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch_TimeoutClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	f := &fetchClient{httpClient: srv.Client(), userAgent: "regintake-test/1.0"}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := f.fetch(ctx, srv.URL, 1024, 1024)

	var timeoutErr *FetchTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, srv.URL, timeoutErr.URL)
}

func TestFetch_PDFCeilingSelectedByContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte(strings.Repeat("x", 2048)))
	}))
	defer srv.Close()

	f := &fetchClient{httpClient: srv.Client(), userAgent: "regintake-test/1.0"}

	// The HTML ceiling would admit the payload; the PDF ceiling must not.
	_, err := f.fetch(context.Background(), srv.URL, 4096, 1024)

	var tooLarge *PayloadTooLargeError
	require.ErrorAs(t, err, &tooLarge)
	assert.Equal(t, int64(1024), tooLarge.Limit)
}

func TestFetch_AtCeilingPasses(t *testing.T) {
	body := strings.Repeat("x", 1024)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(body))
	}))
	defer srv.Close()

	f := &fetchClient{httpClient: srv.Client(), userAgent: "regintake-test/1.0"}

	result, err := f.fetch(context.Background(), srv.URL, 1024, 4096)
	require.NoError(t, err)
	assert.Len(t, result.Body, 1024)
}
