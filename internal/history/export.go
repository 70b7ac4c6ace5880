// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/textbridge/internal/fsutil"
	"github.com/pdiddy/textbridge/pkg/types"
)

const exportLimit = 100000

// Export writes the entries matching opts to path as JSON, or YAML when the
// extension is .yaml or .yml. It returns the number of entries written.
func (s *Store) Export(ctx context.Context, path string, opts QueryOptions) (int, error) {
	opts.Limit = exportLimit
	entries, err := s.List(ctx, opts)
	if err != nil {
		return 0, fmt.Errorf("querying for export: %w", err)
	}

	data, err := marshal(path, entries)
	if err != nil {
		return 0, err
	}
	if err := fsutil.WriteFileAtomic(path, data); err != nil {
		return 0, err
	}
	return len(entries), nil
}

// Import reads a file written by Export and records its entries. Entries
// whose ID is already stored are left untouched. It returns the number of
// entries read.
func (s *Store) Import(ctx context.Context, path string) (int, error) {
	data, _, err := fsutil.ReadFile(path)
	if err != nil {
		return 0, err
	}

	var entries []Entry
	if isYAML(path) {
		err = yaml.Unmarshal(data, &entries)
	} else {
		err = json.Unmarshal(data, &entries)
	}
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %v: %w", filepath.Base(path), err, types.ErrInvalidFormat)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, e := range entries {
		if e.ID == "" || e.CreatedAt.IsZero() {
			return 0, fmt.Errorf("entry without id or timestamp in %s: %w", filepath.Base(path), types.ErrInvalidFormat)
		}
		if err := s.insert(ctx, tx, e); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing import: %w", err)
	}
	return len(entries), nil
}

func marshal(path string, entries []Entry) ([]byte, error) {
	if isYAML(path) {
		data, err := yaml.Marshal(entries)
		if err != nil {
			return nil, fmt.Errorf("marshaling YAML: %w", err)
		}
		return data, nil
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling JSON: %w", err)
	}
	return append(data, '\n'), nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
