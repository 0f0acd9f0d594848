// Package evaluator orchestrates classification, title normalization,
// reference pricing and score computation into one evaluation per listing.
package evaluator

import (
	"context"

	"dealscout/internal/listing"
	"dealscout/internal/oracle"
	"dealscout/internal/pricing"
	"dealscout/logger"
)

// PriceSource finds comparable listings for a search query.
type PriceSource interface {
	SearchReferenceListings(ctx context.Context, query string) ([]listing.ReferenceListing, error)
}

// Evaluator computes deal evaluations. The pipeline is strictly
// sequential and retry-free: any failure past classification propagates to
// the caller, which is expected to drop the whole iteration.
type Evaluator struct {
	oracle oracle.Oracle
	prices PriceSource
	log    *logger.Logger
}

// New creates an evaluator.
func New(o oracle.Oracle, prices PriceSource) *Evaluator {
	return &Evaluator{
		oracle: o,
		prices: prices,
		log:    logger.ForComponent("evaluator"),
	}
}

// Evaluate runs the pipeline for one listing.
//
// A listing with no known price is rejected before the oracle is even
// consulted; a listing the classifier rejects terminates without touching
// the pricing service. Either way the terminal evaluation carries the
// sentinel score and an empty reference set.
func (e *Evaluator) Evaluate(ctx context.Context, l listing.Listing) (listing.Evaluation, error) {
	if !l.Price.Known {
		e.log.Debug().Str("title", l.Title).Msg("Rejecting listing with unknown price")
		return listing.Rejected(l), nil
	}

	keep, err := e.oracle.Classify(ctx, l)
	if err != nil {
		return listing.Evaluation{}, err
	}
	if !keep {
		e.log.Debug().Str("title", l.Title).Msg("Classifier rejected listing")
		return listing.Rejected(l), nil
	}

	searchTitle, err := e.oracle.NormalizeTitle(ctx, l)
	if err != nil {
		return listing.Evaluation{}, err
	}

	refs, err := e.prices.SearchReferenceListings(ctx, searchTitle)
	if err != nil {
		return listing.Evaluation{}, err
	}

	average := pricing.TrimmedAverage(refs)

	score := listing.SentinelScore
	priced := false
	if average > 0 {
		score = l.Price.Amount / average * 100
		priced = true
	}

	if refs == nil {
		refs = []listing.ReferenceListing{}
	}

	ev := listing.Evaluation{
		Listing:               l,
		ShouldKeep:            true,
		PercentileScore:       score,
		Priced:                priced,
		SearchTitle:           searchTitle,
		AverageReferencePrice: average,
		ReferenceListings:     refs,
	}

	e.log.Info().
		Str("title", l.Title).
		Str("search_title", searchTitle).
		Float64("score", score).
		Float64("average_reference_price", average).
		Bool("priced", priced).
		Msg("Evaluated listing")

	return ev, nil
}
