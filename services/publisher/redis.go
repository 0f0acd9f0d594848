package publisher

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"dealscout/internal/listing"
	"dealscout/logger"
)

// RedisPublisher implements Publisher using a Redis stream
type RedisPublisher struct {
	client    *redis.Client
	ctx       context.Context
	stream    string
	maxLength int
	log       *logger.Logger
}

// NewRedisPublisher creates a new Redis publisher
func NewRedisPublisher(ctx context.Context, addr string, db int, stream string, maxLength int) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	return &RedisPublisher{
		client:    client,
		ctx:       ctx,
		stream:    stream,
		maxLength: maxLength,
		log:       logger.ForPublisher(),
	}
}

// encodeEvaluation serializes an evaluation and base64-encodes it for the
// stream payload.
func encodeEvaluation(ev listing.Evaluation) (string, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// PublishEvaluation publishes a kept evaluation to the stream, keyed by
// the listing's content hash.
func (p *RedisPublisher) PublishEvaluation(ev listing.Evaluation) error {
	encoded, err := encodeEvaluation(ev)
	if err != nil {
		return err
	}

	err = p.client.XAdd(p.ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			ev.Listing.Hash(): encoded,
		},
	}).Err()
	if err != nil {
		return err
	}

	p.log.Debug().
		Str("stream", p.stream).
		Str("title", ev.Listing.Title).
		Msg("Published evaluation")
	return nil
}

// Trim trims the stream to the configured maximum length
func (p *RedisPublisher) Trim() error {
	return p.client.XTrimMaxLen(p.ctx, p.stream, int64(p.maxLength)).Err()
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
