package sink

import (
	"context"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"

	audit "sarflow/pkg/platform/audit"
)

// StreamAdder is the subset of the redis client used by RedisStream.
type StreamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisStream appends entries to a Redis stream with XADD. The serialised
// entry is stored under the "entry" field; the stream is never trimmed.
type RedisStream struct {
	client StreamAdder
	stream string
}

func NewRedisStream(client StreamAdder, stream string) *RedisStream {
	return &RedisStream{client: client, stream: stream}
}

func (s *RedisStream) Name() string { return "redis" }

func (s *RedisStream) Append(ctx context.Context, entry audit.Entry, line []byte) error {
	err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"entry":   string(line),
			"case_id": entry.CaseID,
			"log_id":  entry.LogID,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}

// Close releases the client when it owns a connection pool.
func (s *RedisStream) Close() error {
	if c, ok := s.client.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
