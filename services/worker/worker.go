// Package worker drives the deal pipeline: scrape, dedup, evaluate,
// persist, notify, publish, sleep, repeat.
package worker

import (
	"context"
	"time"

	"dealscout/internal/listing"
	"dealscout/internal/scraper"
	"dealscout/logger"
	"dealscout/services/publisher"
)

// ListingSource discovers and fetches marketplace listings.
type ListingSource interface {
	FindNewListings(seen *scraper.SeenSet) ([]string, error)
	FetchListing(url string) (listing.Listing, error)
}

// Evaluator computes an evaluation for one listing.
type Evaluator interface {
	Evaluate(ctx context.Context, l listing.Listing) (listing.Evaluation, error)
}

// EvaluationStore is the slice of the store the worker needs.
type EvaluationStore interface {
	Exists(l listing.Listing) (bool, error)
	Put(ev listing.Evaluation) (string, error)
}

// Notifier delivers a kept evaluation. The boolean is advisory; the loop
// continues either way.
type Notifier interface {
	Notify(ev listing.Evaluation, recipient string) bool
}

// Options wires the worker's collaborators.
type Options struct {
	Source         ListingSource
	Seen           *scraper.SeenSet
	Store          EvaluationStore
	Evaluator      Evaluator
	Notifier       Notifier
	Publisher      publisher.Publisher
	Recipient      string
	ScoreThreshold float64
	PollInterval   time.Duration
}

// Worker handles the polling and evaluation process. Processing is
// strictly sequential: one listing at a time, one blocking call at a time.
type Worker struct {
	ctx  context.Context
	opts Options
	log  *logger.Logger
}

// NewWorker creates a new worker
func NewWorker(ctx context.Context, opts Options) *Worker {
	return &Worker{
		ctx:  ctx,
		opts: opts,
		log:  logger.ForWorker(),
	}
}

// Start runs the poll loop until the context is cancelled.
func (w *Worker) Start() error {
	for {
		start := time.Now()
		w.RunOnce()
		w.log.Debug().Dur("elapsed", time.Since(start)).Msg("Cycle finished")

		select {
		case <-w.ctx.Done():
			return w.ctx.Err()
		case <-time.After(w.opts.PollInterval):
		}
	}
}

// RunOnce performs a single polling cycle. A failure while evaluating or
// persisting aborts the rest of the cycle (crash-and-continue: the next
// cycle starts fresh after the sleep); a failed fetch only skips that
// listing.
func (w *Worker) RunOnce() {
	urls, err := w.opts.Source.FindNewListings(w.opts.Seen)
	if err != nil {
		w.log.Error().Err(err).Msg("Failed to scan search page")
		return
	}

	for _, adURL := range urls {
		l, err := w.opts.Source.FetchListing(adURL)
		if err != nil {
			// Error-tagged listings never reach the evaluator
			w.log.Error().Err(err).Str("url", adURL).Msg("Failed to fetch listing")
			continue
		}

		exists, err := w.opts.Store.Exists(l)
		if err != nil {
			w.log.Error().Err(err).Str("url", adURL).Msg("Existence check failed")
			continue
		}
		if exists {
			w.log.Debug().Str("title", l.Title).Msg("Listing content already evaluated")
			continue
		}

		ev, err := w.opts.Evaluator.Evaluate(w.ctx, l)
		if err != nil {
			w.log.Error().Err(err).Str("title", l.Title).Msg("Evaluation failed, aborting cycle")
			return
		}

		id, err := w.opts.Store.Put(ev)
		if err != nil {
			w.log.Error().Err(err).Str("title", l.Title).Msg("Failed to persist evaluation, aborting cycle")
			return
		}
		w.log.Info().
			Str("id", id).
			Str("title", l.Title).
			Bool("kept", ev.ShouldKeep).
			Float64("score", ev.PercentileScore).
			Msg("Persisted evaluation")

		w.fanOut(ev)
	}

	if err := w.opts.Publisher.Trim(); err != nil {
		w.log.Error().Err(err).Msg("Failed to trim stream")
	}
}

// isDeal reports whether a kept evaluation is good enough to email about.
func (w *Worker) isDeal(ev listing.Evaluation) bool {
	return ev.ShouldKeep && ev.Priced && ev.PercentileScore <= w.opts.ScoreThreshold
}

// fanOut publishes every kept evaluation to the stream and additionally
// emails the ones under the score threshold. Both failures are contained;
// persistence already succeeded.
func (w *Worker) fanOut(ev listing.Evaluation) {
	if !ev.ShouldKeep {
		return
	}

	if err := w.opts.Publisher.PublishEvaluation(ev); err != nil {
		w.log.Error().Err(err).Str("title", ev.Listing.Title).Msg("Failed to publish evaluation")
	}

	if w.isDeal(ev) && w.opts.Notifier != nil && w.opts.Recipient != "" {
		if !w.opts.Notifier.Notify(ev, w.opts.Recipient) {
			w.log.Warn().Str("title", ev.Listing.Title).Msg("Notification was not delivered")
		}
	}
}
