package s1_mapping

import (
	"context"
	"fmt"
	"strings"

	"github.com/wonny/ship2profile/internal/contracts"
	"github.com/wonny/ship2profile/internal/table"
	"github.com/wonny/ship2profile/pkg/logger"
)

// RemapDatasets are the calculated datasets whose ekpnr is replaced by the
// framework-contract lead account
var RemapDatasets = []string{
	contracts.DatasetKprKosten,
	contracts.DatasetKprTreiber,
	contracts.DatasetKprZustellung,
	contracts.DatasetProdGewicht,
	contracts.DatasetVolume12M,
}

// BackupName is the pre-remap copy of a dataset
func BackupName(name string) string { return name + "_old" }

// ResetBackupName is the copy written when a remap is reset
func ResetBackupName(name string) string { return name + "_rv" }

// Remapper overwrites ekpnr with the framework-contract account
type Remapper struct {
	store  contracts.FileStore
	logger *logger.Logger
}

// NewRemapper creates a remapper
func NewRemapper(store contracts.FileStore, log *logger.Logger) *Remapper {
	return &Remapper{store: store, logger: log}
}

// Apply backs up and remaps each dataset
func (r *Remapper) Apply(ctx context.Context, datasets []string) error {
	kontrakt, err := r.store.Load(ctx, contracts.InputKontrakt)
	if err != nil {
		return fmt.Errorf("load kontrakt: %w", err)
	}
	lead, err := LeadAccounts(kontrakt)
	if err != nil {
		return err
	}

	r.logger.WithField("datasets", datasets).Info("overwriting ekpnr with rahmenvertrag mapping")

	for _, name := range datasets {
		src, err := r.store.Load(ctx, name)
		if err != nil {
			return fmt.Errorf("rahmenvertrag %s: %w", name, err)
		}
		if err := r.store.Save(ctx, BackupName(name), src); err != nil {
			return fmt.Errorf("backup %s: %w", name, err)
		}

		out, err := RemapEkpnr(src, lead)
		if err != nil {
			return fmt.Errorf("rahmenvertrag %s: %w", name, err)
		}
		if err := r.store.Save(ctx, name, out); err != nil {
			return fmt.Errorf("save %s: %w", name, err)
		}

		r.logger.WithFields(map[string]interface{}{
			"dataset": name,
			"rows":    out.Len(),
			"ekpnr":   out.Distinct(ColEkpnr),
		}).Info("rahmenvertrag applied")
	}
	return nil
}

// Reset restores every dataset from its backup and keeps a _rv copy
func (r *Remapper) Reset(ctx context.Context, datasets []string) error {
	for _, name := range datasets {
		old, err := r.store.Load(ctx, BackupName(name))
		if err != nil {
			return fmt.Errorf("reset %s: %w", name, err)
		}
		if err := r.store.Save(ctx, name, old); err != nil {
			return fmt.Errorf("reset %s: %w", name, err)
		}
		if err := r.store.Save(ctx, ResetBackupName(name), old); err != nil {
			return fmt.Errorf("reset %s: %w", name, err)
		}
		r.logger.Infof("reset %s from %s, backup %s", name, BackupName(name), ResetBackupName(name))
	}
	return nil
}

// LeadAccounts maps abrnr to its framework-contract account.
// The first non-blank rv_ekp per abrnr wins.
func LeadAccounts(kontrakt *table.Table) (map[contracts.Abrnr]contracts.Ekpnr, error) {
	if err := kontrakt.Require(ColAbrnr, ColRvEkp); err != nil {
		return nil, &contracts.MalformedInputError{Stage: "s1_rahmenvertrag", Reason: err.Error()}
	}

	lead := make(map[contracts.Abrnr]contracts.Ekpnr)
	for i := 0; i < kontrakt.Len(); i++ {
		abrnr := contracts.Abrnr(strings.TrimSpace(kontrakt.Str(i, ColAbrnr)))
		rv := contracts.NormalizeEkpnr(kontrakt.Str(i, ColRvEkp))
		if rv == "" {
			continue
		}
		if _, ok := lead[abrnr]; !ok {
			lead[abrnr] = rv
		}
	}
	return lead, nil
}

// RemapEkpnr sets ekpnr to the lead account, else to the first 10 characters of abrnr
func RemapEkpnr(src *table.Table, lead map[contracts.Abrnr]contracts.Ekpnr) (*table.Table, error) {
	if err := src.Require(ColAbrnr); err != nil {
		return nil, &contracts.MalformedInputError{Stage: "s1_rahmenvertrag", Reason: err.Error()}
	}
	return src.WithColumn(table.Str(ColEkpnr), func(i int) any {
		abrnr := contracts.Abrnr(src.Str(i, ColAbrnr))
		if rv, ok := lead[abrnr]; ok {
			return string(rv)
		}
		return string(abrnr.Ekpnr())
	})
}
