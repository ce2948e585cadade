// Package warehouse runs extraction queries against the data warehouse
// and returns their result sets as tables.
package warehouse

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/time/rate"

	"github.com/wonny/ship2profile/internal/contracts"
	"github.com/wonny/ship2profile/internal/metrics"
	"github.com/wonny/ship2profile/internal/table"
	"github.com/wonny/ship2profile/pkg/logger"
)

// Querier is the subset of pgxpool.Pool the client needs
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Client paces queries and decodes result sets
// ⭐ SSOT: 웨어하우스 쿼리는 모두 이 클라이언트를 통과
type Client struct {
	db      Querier
	limiter *rate.Limiter
	logger  *logger.Logger
}

// New creates a warehouse client allowing qps queries per second
func New(db Querier, qps float64, burst int, log *logger.Logger) *Client {
	if burst < 1 {
		burst = 1
	}
	return &Client{
		db:      db,
		limiter: rate.NewLimiter(rate.Limit(qps), burst),
		logger:  log,
	}
}

// Query runs sql and materializes the result. Failures are *contracts.QueryExecutionError.
func (c *Client) Query(ctx context.Context, sql string) (*table.Table, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &contracts.QueryExecutionError{Query: sql, Err: err}
	}

	start := time.Now()
	defer func() { metrics.WarehouseQueryDuration.Observe(time.Since(start).Seconds()) }()

	rows, err := c.db.Query(ctx, sql)
	if err != nil {
		return nil, &contracts.QueryExecutionError{Query: sql, Err: err}
	}
	defer rows.Close()

	t := table.New(columns(rows.FieldDescriptions())...)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, &contracts.QueryExecutionError{Query: sql, Err: err}
		}
		cells := make([]any, len(values))
		for i, v := range values {
			cells[i] = cell(v)
		}
		if err := t.Append(cells...); err != nil {
			return nil, &contracts.QueryExecutionError{Query: sql, Err: err}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, &contracts.QueryExecutionError{Query: sql, Err: err}
	}

	c.logger.WithFields(map[string]interface{}{
		"rows":     t.Len(),
		"columns":  t.Width(),
		"duration": time.Since(start).String(),
	}).Debug("warehouse query finished")
	return t, nil
}

func columns(fields []pgconn.FieldDescription) []table.Column {
	cols := make([]table.Column, len(fields))
	for i, f := range fields {
		cols[i] = table.Column{Name: f.Name, Kind: kindOf(f.DataTypeOID)}
	}
	return cols
}

// kindOf maps a postgres type to a column kind. Dates and unknown types stay text.
func kindOf(oid uint32) table.Kind {
	switch oid {
	case pgtype.Int2OID, pgtype.Int4OID, pgtype.Int8OID:
		return table.KindInt
	case pgtype.Float4OID, pgtype.Float8OID, pgtype.NumericOID:
		return table.KindFloat
	default:
		return table.KindString
	}
}

func cell(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string, int64, float64:
		return x
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	case pgtype.Numeric:
		f, err := x.Float64Value()
		if err != nil || !f.Valid || math.IsNaN(f.Float64) {
			return nil
		}
		return f.Float64
	case time.Time:
		return x.Format("2006-01-02")
	case bool:
		if x {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(x)
	}
}
