// Package oracle wraps the text-completion service used to classify
// listings and normalize their titles into search queries. The service is
// an opaque oracle: the only contract is prompt-in, text-out.
package oracle

import (
	"context"

	"dealscout/internal/listing"
)

// Oracle answers the two questions the evaluator needs. One method per
// capability so tests can substitute a deterministic stub.
type Oracle interface {
	// Classify reports whether the listing is a qualifying computer
	// component. Only the literal response "True" accepts; any other
	// output, malformed included, rejects.
	Classify(ctx context.Context, l listing.Listing) (bool, error)

	// NormalizeTitle reduces the raw listing title to a canonical short
	// product name, used verbatim as the price-lookup query.
	NormalizeTitle(ctx context.Context, l listing.Listing) (string, error)
}
