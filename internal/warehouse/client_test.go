package warehouse

import (
	"context"
	"errors"
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/ship2profile/internal/contracts"
	"github.com/wonny/ship2profile/internal/table"
	"github.com/wonny/ship2profile/pkg/config"
	"github.com/wonny/ship2profile/pkg/database"
	"github.com/wonny/ship2profile/pkg/logger"
)

type failingQuerier struct{ err error }

func (f failingQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, f.err
}

func TestQuery_WrapsFailure(t *testing.T) {
	cause := errors.New("connection reset")
	c := New(failingQuerier{err: cause}, 100, 1, logger.NewNop())

	_, err := c.Query(context.Background(), "SELECT 1")
	var qe *contracts.QueryExecutionError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, "SELECT 1", qe.Query)
	assert.ErrorIs(t, err, cause)
}

func TestQuery_CancelledWhileWaiting(t *testing.T) {
	c := New(failingQuerier{}, 0.001, 1, logger.NewNop())
	c.limiter.Allow() // drain the single token

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := c.Query(ctx, "SELECT 1")
	var qe *contracts.QueryExecutionError
	assert.True(t, errors.As(err, &qe))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, table.KindInt, kindOf(pgtype.Int4OID))
	assert.Equal(t, table.KindFloat, kindOf(pgtype.NumericOID))
	assert.Equal(t, table.KindString, kindOf(pgtype.VarcharOID))
	assert.Equal(t, table.KindString, kindOf(pgtype.DateOID))
}

func TestCell(t *testing.T) {
	n := pgtype.Numeric{Int: big.NewInt(125), Exp: -2, Valid: true}
	assert.Equal(t, 1.25, cell(n))
	assert.Equal(t, int64(7), cell(int32(7)))
	assert.Equal(t, "2024-05-01", cell(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))
	assert.Nil(t, cell(nil))
	assert.Nil(t, cell(pgtype.Numeric{}))
}

// TestQuery_Live runs against a real warehouse when DATABASE_URL is set
func TestQuery_Live(t *testing.T) {
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	db, err := database.New(context.Background(), cfg)
	require.NoError(t, err)
	defer db.Close()

	c := New(db.Pool, 10, 1, logger.NewNop())
	got, err := c.Query(context.Background(), "SELECT '0000000001'::text AS ekpnr, 3::int AS n, 1.5::numeric AS v")
	require.NoError(t, err)
	require.Equal(t, 1, got.Len())
	assert.Equal(t, "0000000001", got.Str(0, "ekpnr"), "identifiers keep leading zeros")
	n, _ := got.Int(0, "n")
	assert.Equal(t, int64(3), n)
	v, _ := got.Float(0, "v")
	assert.Equal(t, 1.5, v)
}
