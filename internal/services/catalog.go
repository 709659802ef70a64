package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/tbourn/go-leads-backend/internal/domain"
	"github.com/tbourn/go-leads-backend/internal/repo"
)

// Fallback display names for unresolved catalog references.
const (
	UnknownService = "Unknown Service"
	UnknownCity    = "Unknown City"
)

// Catalog resolves service and city references (id or slug) to display
// names. Rows are cached in memory and reloaded after TTL.
type Catalog struct {
	DB  *gorm.DB
	TTL time.Duration

	mu       sync.RWMutex
	services map[string]string
	cities   map[string]string
	loadedAt time.Time
	now      func() time.Time
}

// NewCatalog returns a Catalog. A non-positive ttl defaults to 5 minutes.
func NewCatalog(db *gorm.DB, ttl time.Duration) *Catalog {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Catalog{DB: db, TTL: ttl, now: time.Now}
}

// ServiceName returns the display name for ref or UnknownService.
func (c *Catalog) ServiceName(ctx context.Context, ref string) string {
	return c.lookup(ctx, ref, func() map[string]string { return c.services }, UnknownService)
}

// CityName returns the display name for ref or UnknownCity.
func (c *Catalog) CityName(ctx context.Context, ref string) string {
	return c.lookup(ctx, ref, func() map[string]string { return c.cities }, UnknownCity)
}

func (c *Catalog) lookup(ctx context.Context, ref string, table func() map[string]string, fallback string) string {
	key := strings.ToLower(strings.TrimSpace(ref))
	if key == "" {
		return fallback
	}
	if c.stale() {
		if err := c.Refresh(ctx); err != nil {
			log.Warn().Err(err).Msg("catalog refresh failed")
		}
	}
	c.mu.RLock()
	name, ok := table()[key]
	c.mu.RUnlock()
	if ok {
		return name
	}
	return fallback
}

func (c *Catalog) stale() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.services == nil || c.now().Sub(c.loadedAt) > c.TTL
}

// Refresh reloads every catalog row.
func (c *Catalog) Refresh(ctx context.Context) error {
	svcs, err := repo.ListServices(ctx, c.DB)
	if err != nil {
		return fmt.Errorf("load services: %w", err)
	}
	cities, err := repo.ListCities(ctx, c.DB)
	if err != nil {
		return fmt.Errorf("load cities: %w", err)
	}

	sm := make(map[string]string, 2*len(svcs))
	for _, s := range svcs {
		sm[strings.ToLower(s.ID)] = s.Name
		if s.Slug != "" {
			sm[strings.ToLower(s.Slug)] = s.Name
		}
	}
	cm := make(map[string]string, 2*len(cities))
	for _, ct := range cities {
		cm[strings.ToLower(ct.ID)] = ct.DisplayName()
		if ct.Slug != "" {
			cm[strings.ToLower(ct.Slug)] = ct.DisplayName()
		}
	}

	c.mu.Lock()
	c.services, c.cities, c.loadedAt = sm, cm, c.now()
	c.mu.Unlock()
	return nil
}

// CatalogFile is the seed document accepted by `leadsvc seed`.
type CatalogFile struct {
	Services []struct {
		ID   string `yaml:"id"`
		Slug string `yaml:"slug"`
		Name string `yaml:"name"`
	} `yaml:"services"`
	Cities []struct {
		ID    string `yaml:"id"`
		Slug  string `yaml:"slug"`
		Name  string `yaml:"name"`
		State string `yaml:"state"`
	} `yaml:"cities"`
}

// ParseCatalog decodes a YAML seed document. Missing slugs derive from the
// id and names are title-cased.
func ParseCatalog(data []byte) ([]domain.Service, []domain.City, error) {
	title := cases.Title(language.English)
	var f CatalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, nil, fmt.Errorf("parse catalog: %w", err)
	}
	svcs := make([]domain.Service, 0, len(f.Services))
	for i, s := range f.Services {
		if strings.TrimSpace(s.ID) == "" || strings.TrimSpace(s.Name) == "" {
			return nil, nil, fmt.Errorf("services[%d]: id and name are required", i)
		}
		svcs = append(svcs, domain.Service{ID: s.ID, Slug: slugOr(s.Slug, s.ID), Name: title.String(strings.TrimSpace(s.Name))})
	}
	cities := make([]domain.City, 0, len(f.Cities))
	for i, ct := range f.Cities {
		if strings.TrimSpace(ct.ID) == "" || strings.TrimSpace(ct.Name) == "" {
			return nil, nil, fmt.Errorf("cities[%d]: id and name are required", i)
		}
		cities = append(cities, domain.City{
			ID:    ct.ID,
			Slug:  slugOr(ct.Slug, ct.ID),
			Name:  title.String(strings.TrimSpace(ct.Name)),
			State: strings.ToUpper(strings.TrimSpace(ct.State)),
		})
	}
	return svcs, cities, nil
}

// SeedCatalog upserts services and cities in one transaction.
func SeedCatalog(ctx context.Context, db *gorm.DB, svcs []domain.Service, cities []domain.City) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.UpsertServices(ctx, tx, svcs); err != nil {
			return dbErr("upsert services", err)
		}
		if err := repo.UpsertCities(ctx, tx, cities); err != nil {
			return dbErr("upsert cities", err)
		}
		return nil
	})
}

func slugOr(slug, id string) string {
	s := strings.ToLower(strings.TrimSpace(slug))
	if s == "" {
		s = strings.ToLower(strings.TrimSpace(id))
	}
	return strings.ReplaceAll(s, " ", "-")
}
