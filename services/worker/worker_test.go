package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"dealscout/internal/listing"
	"dealscout/internal/scraper"
	"dealscout/services/publisher"
)

// fakeSource serves canned listings keyed by URL.
type fakeSource struct {
	urls      []string
	listings  map[string]listing.Listing
	fetchErrs map[string]error
	scanErr   error
}

func (f *fakeSource) FindNewListings(seen *scraper.SeenSet) ([]string, error) {
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	var out []string
	for _, u := range f.urls {
		if !seen.Seen(u) {
			seen.Add(u)
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeSource) FetchListing(url string) (listing.Listing, error) {
	if err, ok := f.fetchErrs[url]; ok {
		return listing.Listing{}, err
	}
	return f.listings[url], nil
}

// fakeStore keeps evaluations in a map keyed by content hash.
type fakeStore struct {
	rows   map[string]listing.Evaluation
	putErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[string]listing.Evaluation)}
}

func (f *fakeStore) Exists(l listing.Listing) (bool, error) {
	_, ok := f.rows[l.Hash()]
	return ok, nil
}

func (f *fakeStore) Put(ev listing.Evaluation) (string, error) {
	if f.putErr != nil {
		return "", f.putErr
	}
	id := ev.Listing.Hash()
	f.rows[id] = ev
	return id, nil
}

// fakeEvaluator keeps everything with a fixed score.
type fakeEvaluator struct {
	score float64
	keep  bool
	err   error
	calls int
}

func (f *fakeEvaluator) Evaluate(_ context.Context, l listing.Listing) (listing.Evaluation, error) {
	f.calls++
	if f.err != nil {
		return listing.Evaluation{}, f.err
	}
	return listing.Evaluation{
		Listing:           l,
		ShouldKeep:        f.keep,
		PercentileScore:   f.score,
		Priced:            true,
		SearchTitle:       l.Title,
		ReferenceListings: []listing.ReferenceListing{},
	}, nil
}

type fakeNotifier struct {
	sent []string
	ok   bool
}

func (f *fakeNotifier) Notify(ev listing.Evaluation, recipient string) bool {
	f.sent = append(f.sent, ev.Listing.Title)
	return f.ok
}

type fakePublisher struct {
	published []string
	trims     int
}

func (f *fakePublisher) PublishEvaluation(ev listing.Evaluation) error {
	f.published = append(f.published, ev.Listing.Title)
	return nil
}
func (f *fakePublisher) Trim() error { f.trims++; return nil }
func (f *fakePublisher) Close() error { return nil }

func l(title string, price float64) listing.Listing {
	return listing.Listing{Title: title, Description: "desc " + title, Price: listing.KnownPrice(price)}
}

func newTestWorker(src *fakeSource, st *fakeStore, ev *fakeEvaluator, n *fakeNotifier, p publisher.Publisher) *Worker {
	return NewWorker(context.Background(), Options{
		Source:         src,
		Seen:           scraper.NewSeenSet(),
		Store:          st,
		Evaluator:      ev,
		Notifier:       n,
		Publisher:      p,
		Recipient:      "dev@example.com",
		ScoreThreshold: 80,
		PollInterval:   time.Minute,
	})
}

func TestRunOncePersistsAndNotifiesDeals(t *testing.T) {
	src := &fakeSource{
		urls: []string{"u1", "u2"},
		listings: map[string]listing.Listing{
			"u1": l("good deal", 100),
			"u2": l("another", 200),
		},
	}
	st := newFakeStore()
	ev := &fakeEvaluator{keep: true, score: 70}
	n := &fakeNotifier{ok: true}
	p := &fakePublisher{}

	w := newTestWorker(src, st, ev, n, p)
	w.RunOnce()

	assert.Len(t, st.rows, 2)
	assert.Equal(t, []string{"good deal", "another"}, n.sent)
	assert.Equal(t, []string{"good deal", "another"}, p.published)
	assert.Equal(t, 1, p.trims)
}

func TestRunOnceScoreThresholdGatesEmailOnly(t *testing.T) {
	src := &fakeSource{
		urls:     []string{"u1"},
		listings: map[string]listing.Listing{"u1": l("meh deal", 100)},
	}
	st := newFakeStore()
	ev := &fakeEvaluator{keep: true, score: 95}
	n := &fakeNotifier{ok: true}
	p := &fakePublisher{}

	w := newTestWorker(src, st, ev, n, p)
	w.RunOnce()

	// Kept evaluations always reach the stream; the email is gated
	assert.Len(t, st.rows, 1)
	assert.Empty(t, n.sent)
	assert.Equal(t, []string{"meh deal"}, p.published)
}

func TestRunOnceRejectedListingNotPublished(t *testing.T) {
	src := &fakeSource{
		urls:     []string{"u1"},
		listings: map[string]listing.Listing{"u1": l("junk", 100)},
	}
	st := newFakeStore()
	ev := &fakeEvaluator{keep: false, score: 100}
	n := &fakeNotifier{ok: true}
	p := &fakePublisher{}

	w := newTestWorker(src, st, ev, n, p)
	w.RunOnce()

	// Rejections are persisted for dedup but never announced anywhere
	assert.Len(t, st.rows, 1)
	assert.Empty(t, n.sent)
	assert.Empty(t, p.published)
}

func TestRunOnceSkipsExistingContent(t *testing.T) {
	first := l("repost", 100)
	src := &fakeSource{
		urls:     []string{"u1"},
		listings: map[string]listing.Listing{"u1": first},
	}
	st := newFakeStore()
	st.rows[first.Hash()] = listing.Evaluation{Listing: first}
	ev := &fakeEvaluator{keep: true, score: 50}

	w := newTestWorker(src, st, ev, &fakeNotifier{ok: true}, &fakePublisher{})
	w.RunOnce()

	assert.Equal(t, 0, ev.calls)
}

func TestRunOnceGatesOnFetchError(t *testing.T) {
	src := &fakeSource{
		urls:      []string{"bad", "good"},
		listings:  map[string]listing.Listing{"good": l("fine", 100)},
		fetchErrs: map[string]error{"bad": errors.New("connection reset")},
	}
	st := newFakeStore()
	ev := &fakeEvaluator{keep: true, score: 50}

	w := newTestWorker(src, st, ev, &fakeNotifier{ok: true}, &fakePublisher{})
	w.RunOnce()

	// The errored listing is skipped, not evaluated; the next one proceeds
	assert.Equal(t, 1, ev.calls)
	assert.Len(t, st.rows, 1)
}

func TestRunOnceAbortsCycleOnEvaluationError(t *testing.T) {
	src := &fakeSource{
		urls: []string{"u1", "u2"},
		listings: map[string]listing.Listing{
			"u1": l("first", 100),
			"u2": l("second", 200),
		},
	}
	st := newFakeStore()
	ev := &fakeEvaluator{err: errors.New("pricing API 500")}

	w := newTestWorker(src, st, ev, &fakeNotifier{ok: true}, &fakePublisher{})
	w.RunOnce()

	// First failure ends the cycle; nothing persisted
	assert.Equal(t, 1, ev.calls)
	assert.Empty(t, st.rows)
}

func TestRunOnceScanErrorEndsCycle(t *testing.T) {
	src := &fakeSource{scanErr: errors.New("rate limited")}
	ev := &fakeEvaluator{}
	p := &fakePublisher{}

	w := newTestWorker(src, newFakeStore(), ev, &fakeNotifier{ok: true}, p)
	w.RunOnce()

	assert.Equal(t, 0, ev.calls)
	assert.Equal(t, 0, p.trims)
}

func TestStartStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &fakeSource{}
	w := NewWorker(ctx, Options{
		Source:       src,
		Seen:         scraper.NewSeenSet(),
		Store:        newFakeStore(),
		Evaluator:    &fakeEvaluator{},
		Publisher:    &fakePublisher{},
		PollInterval: 10 * time.Millisecond,
	})

	done := make(chan error, 1)
	go func() { done <- w.Start() }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}
