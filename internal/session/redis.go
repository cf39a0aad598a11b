package session

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/aelexs/symptomcheck/internal/domain"
	redisclient "github.com/aelexs/symptomcheck/internal/redis"
)

// sessionKeyPrefix is the Redis key prefix; the origin completes the key.
// Key pattern: symptomcheck:session:{origin}
const sessionKeyPrefix = "symptomcheck:session:"

var tracer = otel.Tracer("session")

// Compile-time check: RedisStore satisfies Store.
var _ Store = (*RedisStore)(nil)

// RedisStore keeps the session slot in a Redis hash with one field per entry.
type RedisStore struct {
	cmd redisclient.Cmdable
	key string
}

// NewRedisStore creates a RedisStore for origin that uses cmd for Redis operations.
func NewRedisStore(cmd redisclient.Cmdable, origin string) *RedisStore {
	return &RedisStore{cmd: cmd, key: sessionKeyPrefix + origin}
}

// Save replaces the hash inside MULTI/EXEC so readers never see a mix of
// old and new fields.
func (s *RedisStore) Save(ctx context.Context, cred domain.Credential) error {
	ctx, span := tracer.Start(ctx, "redis.session.save")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "redis"),
		attribute.String("db.operation", "HSET"),
	)

	rec := toRecord(cred)
	_, err := s.cmd.TxPipelined(ctx, func(pipe redisclient.Pipeliner) error {
		pipe.Del(ctx, s.key)
		pipe.HSet(ctx, s.key,
			domain.KeyToken, rec[domain.KeyToken],
			domain.KeyRole, rec[domain.KeyRole],
			domain.KeyUsername, rec[domain.KeyUsername],
		)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("save session %q: %w", s.key, err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context) (domain.Credential, bool, error) {
	ctx, span := tracer.Start(ctx, "redis.session.load")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "redis"),
		attribute.String("db.operation", "HGETALL"),
	)

	fields, err := s.cmd.HGetAll(ctx, s.key).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.Credential{}, false, fmt.Errorf("load session %q: %w", s.key, err)
	}

	cred, ok := fromRecord(fields)
	return cred, ok, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "redis.session.clear")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "redis"),
		attribute.String("db.operation", "DEL"),
	)

	if err := s.cmd.Del(ctx, s.key).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("clear session %q: %w", s.key, err)
	}
	return nil
}
