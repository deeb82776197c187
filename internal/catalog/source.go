package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"eatdecider/backend/internal/domain"
	"eatdecider/backend/internal/logging"
)

// Source prefixes used in derived item ids.
const (
	SourceBase     = "BASE"
	SourceManual   = "MANUAL"
	SourceImported = "SHARE"
	SourceSnapshot = "SNAPSHOT"
	SourceONDC     = "ONDC"
)

// Source yields a full item list. Implementations must honour ctx.
type Source interface {
	Name() string
	GetCatalog(ctx context.Context) ([]domain.MenuItem, error)
}

// Searcher yields items for a free-text query. It is only consulted when the
// request carries one.
type Searcher interface {
	Name() string
	Search(ctx context.Context, query string) ([]domain.MenuItem, error)
}

// StaticSource serves a list loaded once, typically the base catalog.
type StaticSource struct {
	name  string
	items []domain.MenuItem
}

func NewStaticSource(name string, items []domain.MenuItem) *StaticSource {
	return &StaticSource{name: name, items: append([]domain.MenuItem(nil), items...)}
}

func (s *StaticSource) Name() string { return s.name }

func (s *StaticSource) GetCatalog(_ context.Context) ([]domain.MenuItem, error) {
	return append([]domain.MenuItem(nil), s.items...), nil
}

// FileSource re-reads a JSON or YAML file on every call. A missing file is an
// empty catalog, not an error.
type FileSource struct {
	name   string
	path   string
	prefix string
}

func NewFileSource(name, path, prefix string) *FileSource {
	return &FileSource{name: name, path: path, prefix: prefix}
}

func (s *FileSource) Name() string { return s.name }

func (s *FileSource) GetCatalog(ctx context.Context) ([]domain.MenuItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	items, err := LoadFile(s.path, s.prefix)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.MenuItem{}, nil
	}
	return items, err
}

// ImportedItemLister is the part of the repository that holds imported items.
type ImportedItemLister interface {
	ListImportedItems(ctx context.Context) ([]domain.MenuItem, error)
}

type ImportedSource struct {
	repo ImportedItemLister
}

func NewImportedSource(repo ImportedItemLister) *ImportedSource {
	return &ImportedSource{repo: repo}
}

func (s *ImportedSource) Name() string { return "imported" }

func (s *ImportedSource) GetCatalog(ctx context.Context) ([]domain.MenuItem, error) {
	return s.repo.ListImportedItems(ctx)
}

// LoadFile reads a catalog file; .yaml and .yml are parsed as YAML, anything
// else as JSON.
func LoadFile(path string, prefix string) ([]domain.MenuItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	format := "json"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = "yaml"
	}
	items, err := DecodeItems(data, format, prefix)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return items, nil
}

type itemEnvelope struct {
	Items []domain.RawItem `json:"items" yaml:"items"`
}

// DecodeItems accepts either a bare list of records or {"items": [...]}.
// Records that fail normalization are skipped and logged.
func DecodeItems(data []byte, format string, prefix string) ([]domain.MenuItem, error) {
	var raws []domain.RawItem
	switch format {
	case "yaml":
		if err := yaml.Unmarshal(data, &raws); err != nil {
			var env itemEnvelope
			if envErr := yaml.Unmarshal(data, &env); envErr != nil {
				return nil, err
			}
			raws = env.Items
		}
	default:
		if err := json.Unmarshal(data, &raws); err != nil {
			var env itemEnvelope
			if envErr := json.Unmarshal(data, &env); envErr != nil {
				return nil, err
			}
			raws = env.Items
		}
	}

	items := make([]domain.MenuItem, 0, len(raws))
	for i, raw := range raws {
		item, err := Normalize(raw, prefix)
		if err != nil {
			logging.Warn().Str("component", "catalog").Str("source", prefix).Int("index", i).Err(err).Msg("skipping catalog record")
			continue
		}
		items = append(items, item)
	}
	return items, nil
}
