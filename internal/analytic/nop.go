package analytic

import (
	"context"

	"github.com/wonny/ship2profile/internal/table"
	"github.com/wonny/ship2profile/pkg/logger"
)

// Nop logs instead of publishing (ANALYTIC_ENABLED=false)
type Nop struct {
	logger *logger.Logger
}

// NewNop creates a disabled publisher
func NewNop(log *logger.Logger) *Nop {
	return &Nop{logger: log}
}

func (n *Nop) Publish(_ context.Context, target string, t *table.Table) error {
	n.logger.Debugf("analytic store disabled, skipping %s (%d rows)", target, t.Len())
	return nil
}
