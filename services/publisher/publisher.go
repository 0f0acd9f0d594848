package publisher

import (
	"dealscout/internal/listing"
)

// Publisher fans kept evaluations out to an event stream so other
// consumers (bots, dashboards) can react to deals without touching the
// store.
type Publisher interface {
	// PublishEvaluation publishes one kept evaluation
	PublishEvaluation(ev listing.Evaluation) error

	// Trim trims the stream to the configured maximum length
	Trim() error

	// Close closes the publisher connection
	Close() error
}

// Noop is used when no stream is configured.
type Noop struct{}

// PublishEvaluation implements Publisher.
func (Noop) PublishEvaluation(_ listing.Evaluation) error { return nil }

// Trim implements Publisher.
func (Noop) Trim() error { return nil }

// Close implements Publisher.
func (Noop) Close() error { return nil }
