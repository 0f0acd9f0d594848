package pricing

import (
	"sort"

	"dealscout/internal/listing"
)

// Trim bounds for the reference mean. The low cut sits wider than a
// textbook IQR so legitimate budget listings survive while lowball and
// bundle/premium postings fall out.
const (
	lowerQuantile = 0.15
	upperQuantile = 0.75
)

// quantile computes the p-quantile of a sorted slice using linear
// interpolation between closest ranks.
func quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	pos := p * float64(len(sorted)-1)
	lo := int(pos)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// TrimmedAverage computes the reference price: prices strictly between the
// 15th and 75th percentile are averaged. Returns 0 when there are no
// listings or the trim leaves nothing.
func TrimmedAverage(refs []listing.ReferenceListing) float64 {
	if len(refs) == 0 {
		return 0
	}

	prices := make([]float64, len(refs))
	for i, r := range refs {
		prices[i] = r.Price
	}
	sort.Float64s(prices)

	q1 := quantile(prices, lowerQuantile)
	q3 := quantile(prices, upperQuantile)

	var sum float64
	var count int
	for _, p := range prices {
		if p > q1 && p < q3 {
			sum += p
			count++
		}
	}

	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
