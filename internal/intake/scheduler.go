// Package intake implements the fetch scheduler: a single ingestion run over
// a configured set of feeds, governed by crawl rails, producing intake items
// guarded by dedupe-key conditional creates.
package intake

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonesrussell/regintake/internal/dedupe"
	"github.com/jonesrussell/regintake/internal/domain"
	"github.com/jonesrussell/regintake/internal/feed"
	"github.com/jonesrussell/regintake/internal/logger"
	"github.com/jonesrussell/regintake/internal/rails"
	"github.com/jonesrussell/regintake/internal/urlutil"
)

// effectiveDateLayout formats the fallback effective date when a candidate
// carries no publish date.
const effectiveDateLayout = "2006-01-02"

// Feed identifies one syndicated feed to ingest.
type Feed struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// FeedFailure records one isolated per-feed or per-item failure.
type FeedFailure struct {
	FeedID string `json:"feed_id"`
	URL    string `json:"url,omitempty"`
	Reason string `json:"reason"`
}

// Summary is the outcome of one ingestion run.
type Summary struct {
	ItemsCreated int           `json:"items_created"`
	ItemsSkipped int           `json:"items_skipped"`
	FeedsFailed  int           `json:"feeds_failed"`
	Failures     []FeedFailure `json:"failures,omitempty"`
}

// ItemStore persists intake items. CreateIfAbsent must be conditional on the
// dedupe key: under concurrent runs exactly one create succeeds and the
// loser sees created=false, not an error.
type ItemStore interface {
	CreateIfAbsent(ctx context.Context, item *domain.IntakeItem) (bool, error)
	SetRawContentRef(ctx context.Context, dedupeKey, ref string) error
}

// SnapshotStore persists raw fetched payloads and returns an opaque locator.
type SnapshotStore interface {
	Put(ctx context.Context, feedID, dedupeKey string, body []byte, contentType string) (string, error)
}

// RobotsPolicy checks crawl permission for a URL.
type RobotsPolicy interface {
	IsAllowed(ctx context.Context, rawURL string) (bool, error)
}

// Scheduler executes ingestion runs. It holds no state between runs; all
// coordination happens through conditional writes against the item store.
type Scheduler struct {
	rails     rails.CrawlRails
	items     ItemStore
	snapshots SnapshotStore
	robots    RobotsPolicy
	log       logger.Interface
	fetcher   *fetchClient
	now       func() time.Time
}

// NewScheduler creates a scheduler bound to the given rails and
// collaborators.
func NewScheduler(
	r rails.CrawlRails,
	items ItemStore,
	snapshots SnapshotStore,
	robotsPolicy RobotsPolicy,
	log logger.Interface,
	httpClient *http.Client,
	userAgent string,
) *Scheduler {
	return &Scheduler{
		rails:     r,
		items:     items,
		snapshots: snapshots,
		robots:    robotsPolicy,
		log:       log,
		fetcher:   &fetchClient{httpClient: httpClient, userAgent: userAgent},
		now:       time.Now,
	}
}

// feedOutcome aggregates one feed's counters back to the run.
type feedOutcome struct {
	created  int
	skipped  int
	failed   bool
	failures []FeedFailure
	fatal    error
}

// Run executes one ingestion pass over feeds. Feeds are fetched in parallel;
// requests to the same host are serialized through that host's rate gate.
// Per-feed and per-item failures are isolated into the summary; unexpected
// storage faults abort the run and propagate.
//
// Run is idempotent at the level of dedupe keys: re-running over unchanged
// feed content creates no new items.
func (s *Scheduler) Run(ctx context.Context, feeds []Feed) (*Summary, error) {
	gates := newHostGates(s.rails.MaxRequestsPerHostPerMinute, s.rails.MinDelay())

	var accepted atomic.Int64

	outcomes := make(chan feedOutcome, len(feeds))

	var wg sync.WaitGroup
	for _, f := range feeds {
		wg.Add(1)
		go func(f Feed) {
			defer wg.Done()
			outcomes <- s.processFeed(ctx, f, gates, &accepted)
		}(f)
	}

	wg.Wait()
	close(outcomes)

	summary := &Summary{}
	var fatal error

	for outcome := range outcomes {
		summary.ItemsCreated += outcome.created
		summary.ItemsSkipped += outcome.skipped
		summary.Failures = append(summary.Failures, outcome.failures...)
		if outcome.failed {
			summary.FeedsFailed++
		}
		if outcome.fatal != nil && fatal == nil {
			fatal = outcome.fatal
		}
	}

	if fatal != nil {
		return summary, fatal
	}

	s.log.Info("intake run complete",
		"items_created", summary.ItemsCreated,
		"items_skipped", summary.ItemsSkipped,
		"feeds_failed", summary.FeedsFailed,
	)

	return summary, nil
}

// processFeed ingests a single feed: fetch, parse, then pipeline each
// candidate in document order until a cap is hit or the run is cancelled.
func (s *Scheduler) processFeed(
	ctx context.Context,
	f Feed,
	gates *hostGates,
	accepted *atomic.Int64,
) feedOutcome {
	outcome := feedOutcome{}

	body, err := s.fetchWithGate(ctx, f.URL, gates)
	if err != nil {
		outcome.failed = true
		outcome.failures = append(outcome.failures, FeedFailure{
			FeedID: f.ID, URL: f.URL, Reason: err.Error(),
		})
		s.log.Warn("feed fetch failed", "feed_id", f.ID, "error", err.Error())
		return outcome
	}

	candidates, err := feed.Parse(ctx, string(body))
	if err != nil {
		outcome.failed = true
		outcome.failures = append(outcome.failures, FeedFailure{
			FeedID: f.ID, URL: f.URL, Reason: err.Error(),
		})
		s.log.Warn("feed parse failed", "feed_id", f.ID, "error", err.Error())
		return outcome
	}

	for _, cand := range candidates {
		if ctx.Err() != nil {
			return outcome
		}

		if outcome.created >= s.rails.MaxPerFeedPerRun {
			break
		}

		// Reserve a run-level slot before the create; a plain check
		// would let concurrent feeds race past the cap together. The
		// slot is released again when the candidate is skipped.
		if accepted.Add(1) > int64(s.rails.MaxItemsPerRun) {
			accepted.Add(-1)
			break
		}

		created, failure, candErr := s.processCandidate(ctx, f, cand, gates)
		if candErr != nil {
			accepted.Add(-1)
			outcome.fatal = candErr
			return outcome
		}

		if failure != nil {
			outcome.failures = append(outcome.failures, *failure)
		}

		if created {
			outcome.created++
		} else {
			accepted.Add(-1)
			outcome.skipped++
		}
	}

	return outcome
}

// processCandidate runs one candidate through the pipeline: allowlist filter,
// canonicalize, fingerprint, robots check, conditional create, snapshot.
// Returns created=false for every flavor of skip. A non-nil failure records
// an isolated per-item problem; a non-nil error is a storage fault that must
// abort the run.
func (s *Scheduler) processCandidate(
	ctx context.Context,
	f Feed,
	cand feed.Candidate,
	gates *hostGates,
) (bool, *FeedFailure, error) {
	if !urlutil.IsAllowed(cand.Link, s.rails.AllowedDomains) {
		s.log.Debug("candidate outside allowlist", "feed_id", f.ID, "url", cand.Link)
		return false, nil, nil
	}

	allowed, robotsErr := s.robots.IsAllowed(ctx, cand.Link)
	if robotsErr != nil || !allowed {
		s.log.Debug("candidate blocked by robots", "feed_id", f.ID, "url", cand.Link)
		return false, nil, nil
	}

	canonical := urlutil.Canonicalize(cand.Link, s.rails.StripQueryParams)
	discoveredAt := s.now().UTC()

	effectiveDate := cand.PubDate
	if effectiveDate == "" {
		effectiveDate = discoveredAt.Format(effectiveDateLayout)
	}

	item := &domain.IntakeItem{
		DedupeKey:    dedupe.Key(canonical, effectiveDate),
		FeedID:       f.ID,
		SourceURL:    cand.Link,
		CanonicalURL: canonical,
		Title:        cand.Title,
		Description:  cand.Description,
		Categories:   cand.Categories,
		PublishedAt:  cand.PublishedAt,
		DiscoveredAt: discoveredAt,
		Status:       domain.IntakeStatusNew,
	}

	created, err := s.items.CreateIfAbsent(ctx, item)
	if err != nil {
		return false, nil, fmt.Errorf("create intake item: %w", err)
	}

	if !created {
		return false, nil, nil
	}

	// The item stands even if the snapshot fails; dropping it would make
	// the dedupe key re-eligible and re-fetch the payload every run.
	if failure := s.snapshot(ctx, f, item, gates); failure != nil {
		return true, failure, nil
	}

	return true, nil, nil
}

// snapshot fetches the item's payload and stores it in the blob store,
// recording the locator on the item.
func (s *Scheduler) snapshot(
	ctx context.Context,
	f Feed,
	item *domain.IntakeItem,
	gates *hostGates,
) *FeedFailure {
	result, err := s.fetchItem(ctx, item.SourceURL, gates)
	if err != nil {
		s.log.Warn("snapshot fetch failed",
			"feed_id", f.ID,
			"url", item.SourceURL,
			"error", err.Error(),
		)
		return &FeedFailure{FeedID: f.ID, URL: item.SourceURL, Reason: err.Error()}
	}

	ref, err := s.snapshots.Put(ctx, f.ID, item.DedupeKey, result.Body, result.ContentType)
	if err != nil {
		s.log.Warn("snapshot store failed",
			"feed_id", f.ID,
			"url", item.SourceURL,
			"error", err.Error(),
		)
		return &FeedFailure{FeedID: f.ID, URL: item.SourceURL, Reason: err.Error()}
	}

	if err := s.items.SetRawContentRef(ctx, item.DedupeKey, ref); err != nil {
		s.log.Warn("snapshot ref update failed",
			"dedupe_key", item.DedupeKey,
			"error", err.Error(),
		)
		return &FeedFailure{FeedID: f.ID, URL: item.SourceURL, Reason: err.Error()}
	}

	item.RawContentRef = ref
	return nil
}

// fetchWithGate fetches a feed document under the host gate and the
// per-request timeout.
func (s *Scheduler) fetchWithGate(ctx context.Context, url string, gates *hostGates) ([]byte, error) {
	result, err := s.fetchItem(ctx, url, gates)
	if err != nil {
		return nil, err
	}
	return result.Body, nil
}

// fetchItem fetches a single payload under the host gate and per-request
// timeout.
func (s *Scheduler) fetchItem(ctx context.Context, url string, gates *hostGates) (*fetchResult, error) {
	if host := urlutil.Host(url); host != "" {
		if err := gates.wait(ctx, host); err != nil {
			return nil, err
		}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.rails.FetchTimeout())
	defer cancel()

	result, err := s.fetcher.fetch(fetchCtx, url, s.rails.MaxHTMLSnapshotBytes, s.rails.MaxPDFBytes)
	if err != nil {
		return nil, err
	}

	if result.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected http status %d", result.StatusCode)
	}

	return result, nil
}
