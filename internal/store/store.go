// Package store persists named datasets on disk.
//
// Calculated datasets ("df_" prefix) live as parquet files in the run's data
// directory. Externally supplied inputs are looked up by substring in the
// input directory and decoded by extension (.csv/.txt or .parquet).
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/wonny/ship2profile/internal/contracts"
	"github.com/wonny/ship2profile/internal/table"
	"github.com/wonny/ship2profile/pkg/logger"
)

// Store is the on-disk FileStore
// ⭐ SSOT: 데이터셋 파일 경로는 여기서만 결정
type Store struct {
	dataDir  string
	inputDir string
	logger   *logger.Logger
}

// DataDir builds <root>/<run>/<product>/data
func DataDir(root, runName, product string) string {
	return filepath.Join(root, runName, product, "data")
}

// New creates a store. dataDir is created on first save.
func New(dataDir, inputDir string, log *logger.Logger) *Store {
	return &Store{
		dataDir:  dataDir,
		inputDir: inputDir,
		logger:   log,
	}
}

// DataDir returns the directory of calculated datasets
func (s *Store) DataDir() string { return s.dataDir }

// Path resolves the file backing a dataset
func (s *Store) Path(name string) (string, error) {
	if contracts.IsCalculated(name) {
		return filepath.Join(s.dataDir, name+".parquet"), nil
	}

	matches, err := filepath.Glob(filepath.Join(s.inputDir, "*"+name+"*"))
	if err != nil {
		return "", fmt.Errorf("glob input %s: %w", name, err)
	}
	sort.Strings(matches)
	for _, m := range matches {
		switch strings.ToLower(filepath.Ext(m)) {
		case ".csv", ".txt", ".parquet":
			return m, nil
		}
	}
	return "", &contracts.DatasetNotFoundError{Name: name, Path: s.inputDir}
}

// Save writes a dataset as parquet, replacing any previous version
func (s *Store) Save(ctx context.Context, name string, t *table.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := filepath.Join(s.dataDir, name+".parquet")
	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmp := path + ".tmp"
	if err := writeParquet(tmp, t); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("save %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}

	s.logger.WithFields(map[string]interface{}{
		"dataset": name,
		"rows":    t.Len(),
		"cols":    t.Width(),
	}).Debug("dataset saved")
	return nil
}

// Load reads a dataset, decoding by file extension
func (s *Store) Load(ctx context.Context, name string) (*table.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := s.Path(name)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, &contracts.DatasetNotFoundError{Name: name, Path: path}
	}

	var t *table.Table
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		t, err = readCSV(path)
	case ".parquet":
		t, err = readParquet(path)
	default:
		return nil, fmt.Errorf("load %s: unsupported extension %q", name, filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}

	s.logger.WithFields(map[string]interface{}{
		"dataset": name,
		"path":    path,
		"rows":    t.Len(),
	}).Debug("dataset loaded")
	return t, nil
}

// Exists reports whether a calculated dataset has been written
func (s *Store) Exists(name string) bool {
	path, err := s.Path(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// DatasetInfo describes a calculated dataset on disk
type DatasetInfo struct {
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// List returns all calculated datasets sorted by name
func (s *Store) List() ([]DatasetInfo, error) {
	entries, err := os.ReadDir(s.dataDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.dataDir, err)
	}

	var out []DatasetInfo
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".parquet" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, DatasetInfo{
			Name:     strings.TrimSuffix(e.Name(), ".parquet"),
			Path:     filepath.Join(s.dataDir, e.Name()),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
