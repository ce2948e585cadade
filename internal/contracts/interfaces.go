package contracts

import (
	"context"

	"github.com/wonny/ship2profile/internal/table"
)

// Warehouse runs a query and materializes the full result (S0)
// ⭐ SSOT: 웨어하우스 접근은 이 인터페이스로만
type Warehouse interface {
	Query(ctx context.Context, sql string) (*table.Table, error)
}

// FileStore persists named datasets with overwrite semantics
// ⭐ SSOT: 데이터셋 읽기/쓰기는 이 인터페이스로만
type FileStore interface {
	Save(ctx context.Context, name string, t *table.Table) error
	Load(ctx context.Context, name string) (*table.Table, error)
}

// AnalyticWriter publishes a finished table to the downstream BI store.
// Callers treat failures as non-fatal.
type AnalyticWriter interface {
	Publish(ctx context.Context, target string, t *table.Table) error
}
