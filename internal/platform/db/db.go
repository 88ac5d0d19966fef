// Package db opens the postgres pool and keeps its schema current.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hrops/internal/platform/logger"
)

const slowQueryThreshold = 500 * time.Millisecond

// Connect opens a pool on databaseURL and pings it. Pool limits given in the
// URL (pool_max_conns and friends) override the defaults set here.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if poolCfg.MaxConnLifetime == 0 {
		poolCfg.MaxConnLifetime = time.Hour
	}
	if poolCfg.MinConns == 0 {
		poolCfg.MinConns = 2
	}
	poolCfg.ConnConfig.Tracer = queryTracer{threshold: slowQueryThreshold}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

type queryStartKey struct{}

type queryStart struct {
	sql   string
	start time.Time
}

// queryTracer logs failed and slow statements through the context logger.
type queryTracer struct {
	threshold time.Duration
}

func (t queryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryStartKey{}, queryStart{sql: data.SQL, start: time.Now()})
}

func (t queryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	started, ok := ctx.Value(queryStartKey{}).(queryStart)
	if !ok {
		return
	}
	elapsed := time.Since(started.start)
	l := logger.FromContext(ctx)
	switch {
	case data.Err != nil:
		l.Debug().Err(data.Err).Dur("duration", elapsed).Str("sql", started.sql).Msg("query failed")
	case elapsed >= t.threshold:
		l.Warn().Dur("duration", elapsed).Str("sql", started.sql).Msg("slow query")
	}
}
