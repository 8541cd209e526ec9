// Package resultsutils is the results store utility package
package resultsutils

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rhoadesScholar/llm-experiments/pkg/dotdir"
	"github.com/rhoadesScholar/llm-experiments/pkg/results"
	"github.com/rhoadesScholar/llm-experiments/pkg/results/inmemory"
	"github.com/rhoadesScholar/llm-experiments/pkg/results/postgres"
	"github.com/rhoadesScholar/llm-experiments/pkg/results/sqlite"
)

// DefaultSQLiteFile is the database filename used inside the .telephone/ dir
// when no explicit sqlite path is configured.
const DefaultSQLiteFile = "telephone.db"

type NewStoreOpts struct {
	ProviderType string
	SQLitePath   string
	PostgresDSN  string

	// ConfigDir overrides the .telephone/ directory used to resolve the
	// default sqlite path. Empty means the usual dotdir resolution.
	ConfigDir string
}

// NewStore opens the results store named in the options. An empty SQLitePath
// resolves to DefaultSQLiteFile inside the .telephone/ dir so that every
// command opens the same database.
func NewStore(ctx context.Context, o *NewStoreOpts) (results.Store, error) {
	switch o.ProviderType {
	case "memory":
		return inmemory.NewStore(), nil
	case "sqlite":
		path := o.SQLitePath
		if path == "" {
			var err error
			path, err = DefaultSQLitePath(o.ConfigDir)
			if err != nil {
				return nil, fmt.Errorf("resolving sqlite path: %w", err)
			}
		}
		return sqlite.NewStore(path)
	case "postgres":
		return postgres.NewStore(ctx, o.PostgresDSN)
	default:
		return nil, fmt.Errorf("unsupported results provider: %s", o.ProviderType)
	}
}

// DefaultSQLitePath returns the sqlite database path inside the .telephone/
// dir, creating the dir if needed.
func DefaultSQLitePath(configDir string) (string, error) {
	dir, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultSQLiteFile), nil
}
