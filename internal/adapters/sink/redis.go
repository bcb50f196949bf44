package sink

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/alejandrodnm/arbscan/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisConfig configura la publicación de snapshots en Redis.
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	TLSEnabled bool
	KeyPrefix  string        // clave = {prefix}:latest
	Channel    string        // canal pub/sub; vacío = no publica
	TTL        time.Duration // 0 = sin expiración
}

// redisWriter es el subconjunto de *redis.Client que usa el publisher.
type redisWriter interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisPublisher guarda el último snapshot en una clave y lo publica en un canal
// para que otros procesos reaccionen sin hacer polling.
type RedisPublisher struct {
	rdb     redisWriter
	closer  func() error
	key     string
	channel string
	ttl     time.Duration
}

// NewRedisPublisher conecta y verifica con PING.
func NewRedisPublisher(ctx context.Context, cfg RedisConfig) (*RedisPublisher, error) {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("sink.NewRedisPublisher: ping %s: %w", cfg.Addr, err)
	}

	p := newRedisPublisher(rdb, cfg)
	p.closer = rdb.Close
	return p, nil
}

func newRedisPublisher(rdb redisWriter, cfg RedisConfig) *RedisPublisher {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "arbscan"
	}
	return &RedisPublisher{
		rdb:     rdb,
		key:     prefix + ":latest",
		channel: cfg.Channel,
		ttl:     cfg.TTL,
	}
}

// PersistSnapshot implementa ports.SnapshotSink.
func (p *RedisPublisher) PersistSnapshot(ctx context.Context, snap domain.AnalysisSnapshot) error {
	data, err := encodeSnapshot(snap)
	if err != nil {
		return fmt.Errorf("sink.RedisPublisher: %w", err)
	}

	if err := p.rdb.Set(ctx, p.key, data, p.ttl).Err(); err != nil {
		return fmt.Errorf("sink.RedisPublisher: set %s: %w", p.key, err)
	}
	if p.channel == "" {
		return nil
	}
	if err := p.rdb.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("sink.RedisPublisher: publish %s: %w", p.channel, err)
	}
	return nil
}

// Close cierra la conexión.
func (p *RedisPublisher) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}
