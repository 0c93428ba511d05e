package intake_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/regintake/internal/domain"
	"github.com/jonesrussell/regintake/internal/intake"
	"github.com/jonesrussell/regintake/internal/logger"
	"github.com/jonesrussell/regintake/internal/rails"
)

// fakeItemStore is an in-memory ItemStore keyed by dedupe key. A non-zero
// createDelay widens the window between cap check and insert so races
// against the run-level cap surface reliably.
type fakeItemStore struct {
	mu          sync.Mutex
	items       map[string]*domain.IntakeItem
	createErr   error
	createDelay time.Duration
}

func newFakeItemStore() *fakeItemStore {
	return &fakeItemStore{items: make(map[string]*domain.IntakeItem)}
}

func (s *fakeItemStore) CreateIfAbsent(_ context.Context, item *domain.IntakeItem) (bool, error) {
	if s.createDelay > 0 {
		time.Sleep(s.createDelay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.createErr != nil {
		return false, s.createErr
	}
	if _, exists := s.items[item.DedupeKey]; exists {
		return false, nil
	}

	clone := *item
	s.items[item.DedupeKey] = &clone
	return true, nil
}

func (s *fakeItemStore) SetRawContentRef(_ context.Context, dedupeKey, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[dedupeKey]
	if !ok {
		return fmt.Errorf("no item with key %s", dedupeKey)
	}
	item.RawContentRef = ref
	return nil
}

func (s *fakeItemStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *fakeItemStore) single() *domain.IntakeItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		return item
	}
	return nil
}

// fakeSnapshotStore records uploads without talking to object storage.
type fakeSnapshotStore struct {
	mu   sync.Mutex
	puts int
}

func (s *fakeSnapshotStore) Put(
	_ context.Context,
	feedID, dedupeKey string,
	_ []byte,
	_ string,
) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	return "snapshots/raw/" + feedID + "/" + dedupeKey + ".html", nil
}

func (s *fakeSnapshotStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}

// allowAllRobots permits every fetch.
type allowAllRobots struct{}

func (allowAllRobots) IsAllowed(context.Context, string) (bool, error) { return true, nil }

// testServer serves feed documents under /feed and article bodies under
// /articles/. Anything after /feed becomes part of the article paths so
// multiple feeds on one server produce distinct item URLs.
func testServer(t *testing.T, itemCount int, articleBody string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/feed"):
			w.Header().Set("Content-Type", "application/rss+xml")
			fmt.Fprint(w, feedXML(r.Host, strings.TrimPrefix(r.URL.Path, "/feed"), itemCount))
		case strings.HasPrefix(r.URL.Path, "/articles/"):
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, articleBody)
		case r.URL.Path == "/robots.txt":
			http.NotFound(w, r)
		default:
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	}))

	t.Cleanup(srv.Close)
	return srv
}

func feedXML(host, prefix string, itemCount int) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><rss version="2.0"><channel>`)
	for i := 0; i < itemCount; i++ {
		fmt.Fprintf(&b,
			`<item><title>Item %d</title><link>http://%s/articles%s/%d</link>`+
				`<pubDate>Tue, 02 Jan 2024 15:04:05 GMT</pubDate></item>`,
			i, host, prefix, i,
		)
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

// testRails returns rails loose enough that pacing does not slow tests.
func testRails(allowedDomains ...string) rails.CrawlRails {
	r := rails.Default(allowedDomains, nil)
	r.MaxRequestsPerHostPerMinute = 600000
	r.MinDelayMsBetweenRequests = 0
	r.FetchTimeoutMs = 5000
	return r
}

func newTestScheduler(
	r rails.CrawlRails,
	store *fakeItemStore,
	snaps *fakeSnapshotStore,
	client *http.Client,
) *intake.Scheduler {
	return intake.NewScheduler(
		r, store, snaps, allowAllRobots{}, logger.NewNoOp(), client, "regintake-test/1.0",
	)
}

func TestRun_CreatesItemsAndSnapshots(t *testing.T) {
	srv := testServer(t, 2, "<html><body>announcement</body></html>")
	store := newFakeItemStore()
	snaps := &fakeSnapshotStore{}

	s := newTestScheduler(testRails("127.0.0.1"), store, snaps, srv.Client())

	summary, err := s.Run(context.Background(), []intake.Feed{{ID: "ftc-press", URL: srv.URL + "/feed"}})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.ItemsCreated)
	assert.Equal(t, 0, summary.ItemsSkipped)
	assert.Equal(t, 0, summary.FeedsFailed)
	assert.Empty(t, summary.Failures)

	assert.Equal(t, 2, store.len())
	assert.Equal(t, 2, snaps.count())

	item := store.single()
	require.NotNil(t, item)
	assert.Len(t, item.DedupeKey, 64)
	assert.Equal(t, "ftc-press", item.FeedID)
	assert.Equal(t, domain.IntakeStatusNew, item.Status)
	assert.NotEmpty(t, item.RawContentRef)
	assert.NotNil(t, item.PublishedAt)
}

func TestRun_RerunSkipsExistingItems(t *testing.T) {
	srv := testServer(t, 2, "<html>body</html>")
	store := newFakeItemStore()
	snaps := &fakeSnapshotStore{}

	s := newTestScheduler(testRails("127.0.0.1"), store, snaps, srv.Client())
	feeds := []intake.Feed{{ID: "ftc-press", URL: srv.URL + "/feed"}}

	first, err := s.Run(context.Background(), feeds)
	require.NoError(t, err)
	require.Equal(t, 2, first.ItemsCreated)

	second, err := s.Run(context.Background(), feeds)
	require.NoError(t, err)

	assert.Equal(t, 0, second.ItemsCreated)
	assert.Equal(t, 2, second.ItemsSkipped)
	assert.Equal(t, 2, store.len())
	// No snapshot is re-fetched for a deduped item.
	assert.Equal(t, 2, snaps.count())
}

func TestRun_PerFeedCap(t *testing.T) {
	srv := testServer(t, 5, "<html>body</html>")
	store := newFakeItemStore()

	r := testRails("127.0.0.1")
	r.MaxPerFeedPerRun = 2

	s := newTestScheduler(r, store, &fakeSnapshotStore{}, srv.Client())

	summary, err := s.Run(context.Background(), []intake.Feed{{ID: "ftc-press", URL: srv.URL + "/feed"}})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.ItemsCreated)
	assert.Equal(t, 2, store.len())
}

func TestRun_GlobalRunCap(t *testing.T) {
	srv := testServer(t, 5, "<html>body</html>")
	store := newFakeItemStore()

	r := testRails("127.0.0.1")
	r.MaxItemsPerRun = 1

	s := newTestScheduler(r, store, &fakeSnapshotStore{}, srv.Client())

	summary, err := s.Run(context.Background(), []intake.Feed{{ID: "ftc-press", URL: srv.URL + "/feed"}})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.ItemsCreated)
	assert.Equal(t, 1, store.len())
}

func TestRun_GlobalCapHoldsAcrossConcurrentFeeds(t *testing.T) {
	srv := testServer(t, 3, "<html>body</html>")
	store := newFakeItemStore()
	store.createDelay = 20 * time.Millisecond

	r := testRails("127.0.0.1")
	r.MaxItemsPerRun = 2

	s := newTestScheduler(r, store, &fakeSnapshotStore{}, srv.Client())

	// Four feeds with disjoint item URLs race for two run-level slots.
	summary, err := s.Run(context.Background(), []intake.Feed{
		{ID: "feed-a", URL: srv.URL + "/feed/a"},
		{ID: "feed-b", URL: srv.URL + "/feed/b"},
		{ID: "feed-c", URL: srv.URL + "/feed/c"},
		{ID: "feed-d", URL: srv.URL + "/feed/d"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.ItemsCreated)
	assert.Equal(t, 2, store.len())
}

func TestRun_FeedFailureIsIsolated(t *testing.T) {
	srv := testServer(t, 1, "<html>body</html>")
	store := newFakeItemStore()

	s := newTestScheduler(testRails("127.0.0.1"), store, &fakeSnapshotStore{}, srv.Client())

	summary, err := s.Run(context.Background(), []intake.Feed{
		{ID: "good", URL: srv.URL + "/feed"},
		{ID: "broken", URL: srv.URL + "/missing"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.ItemsCreated)
	assert.Equal(t, 1, summary.FeedsFailed)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "broken", summary.Failures[0].FeedID)
}

func TestRun_OversizedSnapshotLeavesItemStanding(t *testing.T) {
	big := strings.Repeat("x", 8192)
	srv := testServer(t, 1, big)
	store := newFakeItemStore()
	snaps := &fakeSnapshotStore{}

	r := testRails("127.0.0.1")
	r.MaxHTMLSnapshotBytes = 4096 // feed fits, article does not

	s := newTestScheduler(r, store, snaps, srv.Client())

	summary, err := s.Run(context.Background(), []intake.Feed{{ID: "ftc-press", URL: srv.URL + "/feed"}})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.ItemsCreated)
	require.Len(t, summary.Failures, 1)

	item := store.single()
	require.NotNil(t, item)
	assert.Empty(t, item.RawContentRef)
	assert.Equal(t, 0, snaps.count())
}

func TestRun_CandidateOutsideAllowlistSkipped(t *testing.T) {
	srv := testServer(t, 1, "<html>body</html>")
	store := newFakeItemStore()

	// Allowlist covers nothing the feed links to; the feed document itself
	// is still fetched.
	s := newTestScheduler(testRails("ftc.gov"), store, &fakeSnapshotStore{}, srv.Client())

	summary, err := s.Run(context.Background(), []intake.Feed{{ID: "ftc-press", URL: srv.URL + "/feed"}})
	require.NoError(t, err)

	assert.Equal(t, 0, summary.ItemsCreated)
	assert.Equal(t, 1, summary.ItemsSkipped)
	assert.Equal(t, 0, store.len())
}

func TestRun_StorageFaultAbortsRun(t *testing.T) {
	srv := testServer(t, 2, "<html>body</html>")
	store := newFakeItemStore()
	store.createErr = fmt.Errorf("connection refused")

	s := newTestScheduler(testRails("127.0.0.1"), store, &fakeSnapshotStore{}, srv.Client())

	_, err := s.Run(context.Background(), []intake.Feed{{ID: "ftc-press", URL: srv.URL + "/feed"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create intake item")
}
