package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"dealscout/internal/listing"
)

func refs(prices ...float64) []listing.ReferenceListing {
	out := make([]listing.ReferenceListing, len(prices))
	for i, p := range prices {
		out[i] = listing.ReferenceListing{Title: "item", Price: p, Condition: "Used", URL: "u"}
	}
	return out
}

func TestTrimmedAverageExcludesOutliers(t *testing.T) {
	// q(0.15) = 16, q(0.75) = 40: 1000 falls above the cut, 10 below,
	// 40 sits exactly on the upper bound and is excluded (strict).
	avg := TrimmedAverage(refs(10, 20, 30, 40, 1000))
	assert.InDelta(t, 25.0, avg, 1e-9)
}

func TestTrimmedAverageReferenceScenario(t *testing.T) {
	// Sorted [350, 360, 400, 410, 900]: 900 is trimmed, 350 and 410 sit
	// outside the strict bounds, leaving 360 and 400.
	avg := TrimmedAverage(refs(350, 360, 400, 410, 900))
	assert.InDelta(t, 380.0, avg, 1e-9)
}

func TestTrimmedAverageEmpty(t *testing.T) {
	assert.Equal(t, 0.0, TrimmedAverage(nil))
	assert.Equal(t, 0.0, TrimmedAverage(refs()))
}

func TestTrimmedAverageDegenerate(t *testing.T) {
	// A single price is its own quantiles; the strict trim leaves nothing.
	assert.Equal(t, 0.0, TrimmedAverage(refs(100)))

	// Identical prices likewise collapse the trim window.
	assert.Equal(t, 0.0, TrimmedAverage(refs(50, 50, 50)))
}

func TestTrimmedAverageUnsortedInput(t *testing.T) {
	a := TrimmedAverage(refs(1000, 40, 10, 30, 20))
	b := TrimmedAverage(refs(10, 20, 30, 40, 1000))
	assert.Equal(t, b, a)
}

func TestQuantile(t *testing.T) {
	sorted := []float64{10, 20, 30, 40, 1000}
	assert.InDelta(t, 16.0, quantile(sorted, 0.15), 1e-9)
	assert.InDelta(t, 40.0, quantile(sorted, 0.75), 1e-9)
	assert.InDelta(t, 10.0, quantile(sorted, 0), 1e-9)
	assert.InDelta(t, 1000.0, quantile(sorted, 1), 1e-9)
	assert.Equal(t, 0.0, quantile(nil, 0.5))
	assert.Equal(t, 7.0, quantile([]float64{7}, 0.5))
}
