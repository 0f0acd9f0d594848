package listing

import (
	"crypto/sha256"
	"encoding/hex"
)

// FieldUnavailable marks a text field that could not be extracted from the
// listing page. Downstream code treats it as present-but-empty rather than
// an error.
const FieldUnavailable = "N/A"

// Price is the asking price of a listing. Known is false when the posting
// had no parseable price (e.g. "Please Contact" or "Swap/Trade"); an
// unknown price excludes the listing from price-based scoring.
type Price struct {
	Amount float64 `json:"amount"`
	Known  bool    `json:"known"`
}

// KnownPrice returns a price with a known amount.
func KnownPrice(amount float64) Price {
	return Price{Amount: amount, Known: true}
}

// UnknownPrice returns the unknown-price value.
func UnknownPrice() Price {
	return Price{}
}

// Listing represents a single scraped marketplace posting.
type Listing struct {
	Title       string `json:"title"`
	Price       Price  `json:"price"`
	Description string `json:"description"`
	Location    string `json:"location"`
	URL         string `json:"url"`
}

// Hash returns the hex SHA-256 digest of title+description. Identity is
// content-derived, not URL-derived: two postings with identical title and
// description collide on purpose so the store deduplicates reposts.
func (l Listing) Hash() string {
	sum := sha256.Sum256([]byte(l.Title + l.Description))
	return hex.EncodeToString(sum[:])
}

// ReferenceListing is one comparable item returned by the price reference
// service. Price includes the first shipping option's cost.
type ReferenceListing struct {
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	Condition string  `json:"condition"`
	URL       string  `json:"url"`
}

// SentinelScore is stored when no market price could be established: the
// listing gets the benefit of the doubt rather than a real ratio.
const SentinelScore = 100.0

// Evaluation is the computed verdict for one listing. It is created once
// per unique listing content and never re-computed for an existing hash.
//
// PercentileScore is the ad price as a percentage of the trimmed reference
// mean. Lower is better: 60 means the ad asks 60% of market, 150 means 50%
// over market. The scale is unbounded above. Priced distinguishes a real
// score of 100 from the sentinel.
type Evaluation struct {
	Listing               Listing            `json:"listing"`
	ShouldKeep            bool               `json:"should_keep"`
	PercentileScore       float64            `json:"percentile_score"`
	Priced                bool               `json:"priced"`
	SearchTitle           string             `json:"search_title"`
	AverageReferencePrice float64            `json:"average_reference_price"`
	ReferenceListings     []ReferenceListing `json:"reference_listings"`
}

// Rejected builds the terminal "not kept" evaluation used when a listing
// fails classification or has no known price.
func Rejected(l Listing) Evaluation {
	return Evaluation{
		Listing:           l,
		ShouldKeep:        false,
		PercentileScore:   SentinelScore,
		SearchTitle:       FieldUnavailable,
		ReferenceListings: []ReferenceListing{},
	}
}
