package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/arbscan/config"
	"github.com/alejandrodnm/arbscan/internal/adapters/sink"
	"github.com/alejandrodnm/arbscan/internal/adapters/storage"
	"github.com/alejandrodnm/arbscan/internal/metrics"
	"github.com/alejandrodnm/arbscan/internal/ports"
)

// sinkSet agrupa los destinos de persistencia habilitados y lo que hay que cerrar al salir.
type sinkSet struct {
	multi   *sink.Multi
	closers []func() error
}

// buildSinks arma el fan-out: JSON siempre, SQLite si hay DSN, S3 y Redis si están habilitados.
func buildSinks(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*sinkSet, error) {
	set := &sinkSet{multi: sink.NewMulti(m)}
	set.multi.Add("json", sink.NewJSONFile(cfg.Storage.SnapshotPath))

	if cfg.Storage.DSN != "" {
		store, err := openHistory(cfg.Storage.DSN)
		if err != nil {
			return nil, err
		}
		set.multi.Add("sqlite", store)
		set.closers = append(set.closers, store.Close)
	}

	if cfg.S3.Enabled {
		mirror, err := sink.NewS3Mirror(ctx, sink.S3Config{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			Prefix:         cfg.S3.Prefix,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			ForcePathStyle: cfg.S3.ForcePathStyle,
			KeepHistory:    cfg.S3.KeepHistory,
		})
		if err != nil {
			set.Close()
			return nil, err
		}
		set.multi.Add("s3", mirror)
	}

	if cfg.Redis.Enabled {
		pub, err := sink.NewRedisPublisher(ctx, sink.RedisConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			TLSEnabled: cfg.Redis.TLS,
			KeyPrefix:  cfg.Redis.KeyPrefix,
			Channel:    cfg.Redis.Channel,
			TTL:        cfg.RedisTTL(),
		})
		if err != nil {
			set.Close()
			return nil, err
		}
		set.multi.Add("redis", pub)
		set.closers = append(set.closers, pub.Close)
	}

	slog.Info("sinks ready", "count", set.multi.Len(), "snapshot_path", cfg.Storage.SnapshotPath)
	return set, nil
}

// Sink devuelve nil cuando no hay sinks (dry-run); el scanner lo acepta.
func (s *sinkSet) Sink() ports.SnapshotSink {
	if s == nil {
		return nil
	}
	return s.multi
}

// Close cierra todos los sinks que tienen conexiones abiertas.
func (s *sinkSet) Close() {
	if s == nil {
		return
	}
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	if err := errors.Join(errs...); err != nil {
		slog.Warn("error closing sinks", "err", err)
	}
}

func openHistory(dsn string) (*storage.SQLiteHistory, error) {
	if dsn == "" {
		return nil, fmt.Errorf("openHistory: storage.dsn is empty")
	}
	store, err := storage.NewSQLiteHistory(dsn)
	if err != nil {
		return nil, fmt.Errorf("openHistory: %q: %w", dsn, err)
	}
	return store, nil
}
