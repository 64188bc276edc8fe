package port

import (
	"context"

	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
)

// ListingSourcePort - возможность получить текущие объявления района у одного конкурента
type ListingSourcePort interface {
	Name() string
	Website() string
	SourceType() domain.SourceType
	Areas() []string
	// AreaURL нужен только для аудита прогона
	AreaURL(area string) string
	Fetch(ctx context.Context, area string) ([]domain.ObservedListing, error)
}

// SourceRegistryPort - явный реестр источников, собранный при старте
type SourceRegistryPort interface {
	Sources() []ListingSourcePort
	Lookup(name string) (ListingSourcePort, bool)
}
