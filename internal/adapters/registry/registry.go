package registry

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sarbdeol/bi-market-intelligence/internal/adapters/feedfetcher"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/port"
	"github.com/sarbdeol/bi-market-intelligence/pkg/retry"
	"gopkg.in/yaml.v3"
)

// File - корень YAML-файла реестра источников
type File struct {
	Sources []SourceEntry `yaml:"sources"`
}

// SourceEntry - один конкурент в реестре
type SourceEntry struct {
	Name        string                   `yaml:"name"`
	Website     string                   `yaml:"website"`
	Type        string                   `yaml:"type"`
	Kind        string                   `yaml:"kind"`
	BaseURL     string                   `yaml:"base_url"`
	URLTemplate string                   `yaml:"url"`
	Areas       []string                 `yaml:"areas"`
	MaxPages    int                      `yaml:"max_pages"`
	RandomDelay time.Duration            `yaml:"random_delay"`
	Disabled    bool                     `yaml:"disabled"`
	Fields      feedfetcher.FieldMapping `yaml:"fields"`
}

// Options - общие для всех источников параметры сбора
type Options struct {
	RequestTimeout time.Duration
	Retry          retry.Policy
}

// Registry - неизменяемый реестр источников, собранный при старте
type Registry struct {
	sources []port.ListingSourcePort
	byName  map[string]port.ListingSourcePort
}

var _ port.SourceRegistryPort = (*Registry)(nil)

// New собирает реестр из готовых источников. Повтор имени - ошибка.
func New(sources ...port.ListingSourcePort) (*Registry, error) {
	r := &Registry{byName: make(map[string]port.ListingSourcePort, len(sources))}
	for _, s := range sources {
		if _, dup := r.byName[s.Name()]; dup {
			return nil, fmt.Errorf("registry: duplicate source name %q", s.Name())
		}
		r.byName[s.Name()] = s
		r.sources = append(r.sources, s)
	}
	return r, nil
}

// LoadFile читает реестр из файла
func LoadFile(path string, opts Options) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("registry: failed to open %s: %w", path, err)
	}
	defer f.Close()
	return Load(f, opts)
}

// Load разбирает YAML и оборачивает каждый источник политикой повторов
func Load(r io.Reader, opts Options) (*Registry, error) {
	var file File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && err != io.EOF {
		return nil, fmt.Errorf("registry: failed to decode yaml: %w", err)
	}

	sources := make([]port.ListingSourcePort, 0, len(file.Sources))
	for i, entry := range file.Sources {
		if entry.Disabled {
			continue
		}
		fetcher, err := feedfetcher.NewFeedFetcherAdapter(entry.toConfig(opts))
		if err != nil {
			return nil, fmt.Errorf("registry: source #%d: %w", i+1, err)
		}
		sources = append(sources, feedfetcher.NewRetryingSource(fetcher, opts.Retry))
	}
	return New(sources...)
}

func (e SourceEntry) toConfig(opts Options) feedfetcher.Config {
	areas := make([]string, 0, len(e.Areas))
	seen := make(map[string]bool, len(e.Areas))
	for _, a := range e.Areas {
		canonical := domain.NormalizeArea(a)
		if canonical == "" || seen[canonical] {
			continue
		}
		seen[canonical] = true
		areas = append(areas, canonical)
	}
	return feedfetcher.Config{
		Name:           strings.TrimSpace(e.Name),
		Website:        e.Website,
		SourceType:     parseSourceType(e.Type),
		Kind:           feedfetcher.FeedKind(strings.ToLower(e.Kind)),
		BaseURL:        e.BaseURL,
		URLTemplate:    e.URLTemplate,
		Areas:          areas,
		Fields:         e.Fields,
		MaxPages:       e.MaxPages,
		RequestTimeout: opts.RequestTimeout,
		RandomDelay:    e.RandomDelay,
	}
}

func parseSourceType(raw string) domain.SourceType {
	switch domain.SourceType(strings.ToUpper(strings.TrimSpace(raw))) {
	case domain.SourceAgency:
		return domain.SourceAgency
	case domain.SourceSocial:
		return domain.SourceSocial
	default:
		return domain.SourcePortal
	}
}

func (r *Registry) Sources() []port.ListingSourcePort {
	return r.sources
}

func (r *Registry) Lookup(name string) (port.ListingSourcePort, bool) {
	s, ok := r.byName[name]
	return s, ok
}
