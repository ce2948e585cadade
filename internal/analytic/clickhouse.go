// Package analytic publishes result datasets to the downstream BI store.
package analytic

import (
	"context"
	"fmt"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/wonny/ship2profile/internal/table"
	"github.com/wonny/ship2profile/pkg/config"
	"github.com/wonny/ship2profile/pkg/logger"
)

// Publisher batch-inserts tables into ClickHouse
type Publisher struct {
	conn   driver.Conn
	logger *logger.Logger
}

// Open connects to the configured ClickHouse server
func Open(ctx context.Context, cfg config.AnalyticConfig, log *logger.Logger) (*Publisher, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Compression: &clickhouse.Compression{Method: clickhouse.CompressionLZ4},
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}
	return &Publisher{conn: conn, logger: log}, nil
}

// NewPublisher wraps an existing connection
func NewPublisher(conn driver.Conn, log *logger.Logger) *Publisher {
	return &Publisher{conn: conn, logger: log}
}

// Close releases the connection
func (p *Publisher) Close() error {
	return p.conn.Close()
}

// Publish inserts every row of t into target. Column names must match the target table.
func (p *Publisher) Publish(ctx context.Context, target string, t *table.Table) error {
	if t.Len() == 0 {
		p.logger.Warnf("nothing to publish to %s", target)
		return nil
	}

	batch, err := p.conn.PrepareBatch(ctx, InsertStatement(target, t.Names()))
	if err != nil {
		return fmt.Errorf("prepare batch %s: %w", target, err)
	}
	defer func(batch driver.Batch) {
		_ = batch.Abort()
	}(batch)

	for _, row := range t.Rows() {
		if err := batch.Append(row...); err != nil {
			return fmt.Errorf("append %s: %w", target, err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send %s: %w", target, err)
	}

	p.logger.WithFields(map[string]interface{}{
		"target": target,
		"rows":   t.Len(),
	}).Info("published to analytic store")
	return nil
}

// InsertStatement builds the batch insert header
func InsertStatement(target string, columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = "`" + strings.ReplaceAll(c, "`", "") + "`"
	}
	return fmt.Sprintf("INSERT INTO %s (%s)", target, strings.Join(quoted, ", "))
}
