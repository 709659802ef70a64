package services

import (
	"context"
	"testing"
	"time"

	"github.com/tbourn/go-leads-backend/internal/domain"
)

func TestCatalog_ResolvesAndRefreshes(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	c := NewCatalog(db, time.Minute)
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	if err := SeedCatalog(ctx, db, []domain.Service{{ID: "s1", Slug: "roofing", Name: "Roofing"}}, nil); err != nil {
		t.Fatalf("SeedCatalog: %v", err)
	}
	if got := c.ServiceName(ctx, " ROOFING "); got != "Roofing" {
		t.Fatalf("by slug = %q", got)
	}
	if got := c.ServiceName(ctx, "s1"); got != "Roofing" {
		t.Fatalf("by id = %q", got)
	}
	if got := c.CityName(ctx, ""); got != UnknownCity {
		t.Fatalf("blank city = %q", got)
	}

	// New rows become visible after the TTL.
	_ = SeedCatalog(ctx, db, nil, []domain.City{{ID: "c1", Slug: "provo", Name: "Provo", State: "UT"}})
	if got := c.CityName(ctx, "provo"); got != UnknownCity {
		t.Fatalf("cached miss = %q", got)
	}
	now = now.Add(2 * time.Minute)
	if got := c.CityName(ctx, "provo"); got != "Provo, UT" {
		t.Fatalf("after refresh = %q", got)
	}
}

func TestParseCatalog(t *testing.T) {
	doc := []byte(`
services:
  - id: svc-deck
    name: deck building
cities:
  - id: slc
    slug: Salt Lake City
    name: salt lake city
    state: ut
`)
	svcs, cities, err := ParseCatalog(doc)
	if err != nil {
		t.Fatalf("ParseCatalog: %v", err)
	}
	if svcs[0].Slug != "svc-deck" || svcs[0].Name != "Deck Building" {
		t.Fatalf("service = %+v", svcs[0])
	}
	if cities[0].Slug != "salt-lake-city" || cities[0].Name != "Salt Lake City" || cities[0].State != "UT" {
		t.Fatalf("city = %+v", cities[0])
	}

	if _, _, err := ParseCatalog([]byte("services:\n  - slug: x\n")); err == nil {
		t.Fatalf("missing id should fail")
	}
	if _, _, err := ParseCatalog([]byte("services: {")); err == nil {
		t.Fatalf("bad YAML should fail")
	}
}
