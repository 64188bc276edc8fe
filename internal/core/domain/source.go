package domain

import (
	"time"

	"github.com/google/uuid"
)

// SourceType - тип конкурента
type SourceType string

const (
	SourcePortal SourceType = "PORTAL"
	SourceAgency SourceType = "AGENCY"
	SourceSocial SourceType = "SOCIAL"
)

// Source - конкурент (площадка), с которой собираются объявления
type Source struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Website    string     `json:"website,omitempty"`
	SourceType SourceType `json:"source_type"`
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
}

// NewSource создает активный источник
func NewSource(name, website string, sourceType SourceType) *Source {
	if sourceType == "" {
		sourceType = SourcePortal
	}
	return &Source{
		ID:         uuid.New(),
		Name:       name,
		Website:    website,
		SourceType: sourceType,
		IsActive:   true,
		CreatedAt:  time.Now().UTC(),
	}
}
