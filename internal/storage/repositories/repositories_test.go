package repositories_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"markethub_api/internal/models"
	"markethub_api/internal/storage/repositories"
)

func memdb(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
	CREATE TABLE products(
	  id TEXT PRIMARY KEY,
	  source TEXT NOT NULL,
	  external_id TEXT NOT NULL,
	  title TEXT NOT NULL,
	  description TEXT,
	  brand TEXT,
	  category TEXT,
	  base_price REAL,
	  base_shipping_cost REAL,
	  price REAL NOT NULL,
	  shipping_cost REAL NOT NULL DEFAULT 0,
	  currency TEXT NOT NULL,
	  availability BOOLEAN NOT NULL DEFAULT 1,
	  rating REAL NOT NULL DEFAULT 0,
	  review_count INTEGER NOT NULL DEFAULT 0,
	  image_url TEXT,
	  size TEXT,
	  color TEXT,
	  created_at TIMESTAMP NOT NULL,
	  updated_at TIMESTAMP NOT NULL
	);
	CREATE UNIQUE INDEX products_source_external_id_idx ON products(source, external_id);

	CREATE TABLE conversion_settings(
	  id TEXT PRIMARY KEY,
	  from_currency TEXT NOT NULL,
	  to_currency TEXT NOT NULL,
	  rate TEXT NOT NULL,
	  is_active BOOLEAN NOT NULL DEFAULT 0,
	  created_at TIMESTAMP NOT NULL,
	  updated_at TIMESTAMP NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatal(err)
	}
	return db
}

func fptr(v float64) *float64 { return &v }
func sptr(v string) *string   { return &v }

func sampleProduct() *models.Product {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.Product{
		ID:               uuid.NewString(),
		ExternalID:       "B0TEST1",
		Title:            "Test Phone",
		Description:      "A phone for testing",
		Brand:            "Samsung",
		Category:         "Electronics",
		BasePrice:        fptr(100),
		BaseShippingCost: fptr(10),
		Price:            100000,
		ShippingCost:     10000,
		Currency:         "MWK",
		Availability:     true,
		Rating:           4.5,
		ReviewCount:      321,
		ImageURL:         "https://img.example/p.jpg",
		Source:           models.SourceTechMart,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func TestProductRepository_InsertAndGet(t *testing.T) {
	repo := repositories.NewProductRepository(memdb(t))
	ctx := context.Background()

	want := sampleProduct()
	if err := repo.Insert(ctx, want); err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetByExternalID(ctx, models.SourceTechMart, "B0TEST1")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("want product, got nil")
	}
	if got.ID != want.ID || got.Title != want.Title || got.Brand != want.Brand {
		t.Fatalf("roundtrip mismatch: %+v", got)
	}
	if got.BasePrice == nil || *got.BasePrice != 100 {
		t.Fatalf("want base price 100, got %v", got.BasePrice)
	}
	if got.Size != nil || got.Color != nil {
		t.Fatalf("want nil size/color, got %v/%v", got.Size, got.Color)
	}

	// miss is (nil, nil)
	missing, err := repo.GetByExternalID(ctx, models.SourceTechMart, "NOPE")
	if err != nil || missing != nil {
		t.Fatalf("want nil/nil, got %v/%v", missing, err)
	}
}

func TestProductRepository_UpdateMutablePreservesIdentity(t *testing.T) {
	repo := repositories.NewProductRepository(memdb(t))
	ctx := context.Background()

	original := sampleProduct()
	if err := repo.Insert(ctx, original); err != nil {
		t.Fatal(err)
	}

	changed := *original
	changed.ID = "should-not-be-written"
	changed.Title = "Renamed Phone"
	changed.Price = 120000
	changed.Size = sptr("XL")
	changed.UpdatedAt = original.UpdatedAt.Add(time.Hour)
	if err := repo.UpdateMutable(ctx, &changed); err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetByExternalID(ctx, models.SourceTechMart, original.ExternalID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != original.ID {
		t.Fatalf("id must never be regenerated: want %s, got %s", original.ID, got.ID)
	}
	if !got.CreatedAt.Equal(original.CreatedAt) {
		t.Fatalf("created_at must be preserved: want %v, got %v", original.CreatedAt, got.CreatedAt)
	}
	if got.Title != "Renamed Phone" || got.Price != 120000 {
		t.Fatalf("mutable fields must change, got %+v", got)
	}
	if got.Size == nil || *got.Size != "XL" {
		t.Fatalf("want size XL, got %v", got.Size)
	}

	// updating a row that does not exist reports an error
	ghost := sampleProduct()
	ghost.ExternalID = "GHOST"
	if err := repo.UpdateMutable(ctx, ghost); err == nil {
		t.Fatal("want error for missing row")
	}
}

func TestProductRepository_PricingRoundtrip(t *testing.T) {
	repo := repositories.NewProductRepository(memdb(t))
	ctx := context.Background()

	withBase := sampleProduct()
	if err := repo.Insert(ctx, withBase); err != nil {
		t.Fatal(err)
	}
	legacy := sampleProduct()
	legacy.ID = uuid.NewString()
	legacy.ExternalID = "LEGACY1"
	legacy.BasePrice = nil
	legacy.BaseShippingCost = nil
	legacy.CreatedAt = withBase.CreatedAt.Add(time.Minute)
	if err := repo.Insert(ctx, legacy); err != nil {
		t.Fatal(err)
	}

	rows, err := repo.ListPricing(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("want 2 pricing rows, got %d", len(rows))
	}
	if rows[0].BasePrice == nil || rows[1].BasePrice != nil {
		t.Fatalf("base price nullability lost: %+v", rows)
	}

	next := rows[0]
	next.Price = 120000
	next.ShippingCost = 12000
	if err := repo.UpdatePricing(ctx, next); err != nil {
		t.Fatal(err)
	}
	got, err := repo.GetByExternalID(ctx, models.SourceTechMart, withBase.ExternalID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Price != 120000 || got.ShippingCost != 12000 {
		t.Fatalf("pricing update lost: %+v", got)
	}
}

func TestProductRepository_Delete(t *testing.T) {
	repo := repositories.NewProductRepository(memdb(t))
	ctx := context.Background()

	p := sampleProduct()
	if err := repo.Insert(ctx, p); err != nil {
		t.Fatal(err)
	}
	if err := repo.Delete(ctx, p.ID); err != nil {
		t.Fatal(err)
	}
	got, err := repo.GetByExternalID(ctx, models.SourceTechMart, p.ExternalID)
	if err != nil || got != nil {
		t.Fatalf("want row gone, got %v/%v", got, err)
	}
}

func sampleSetting(rate int64, active bool, at time.Time) *models.ConversionSetting {
	return &models.ConversionSetting{
		ID:           uuid.NewString(),
		FromCurrency: "USD",
		ToCurrency:   "MWK",
		Rate:         decimal.NewFromInt(rate),
		IsActive:     active,
		CreatedAt:    at,
		UpdatedAt:    at,
	}
}

func TestConversionSettingRepository_ActiveLifecycle(t *testing.T) {
	repo := repositories.NewConversionSettingRepository(memdb(t))
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	first := sampleSetting(1000, true, now.Add(-time.Hour))
	if err := repo.Insert(ctx, first); err != nil {
		t.Fatal(err)
	}

	active, err := repo.GetActive(ctx, "USD", "MWK")
	if err != nil {
		t.Fatal(err)
	}
	if active == nil || !active.Rate.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("want active rate 1000, got %+v", active)
	}

	if err := repo.Deactivate(ctx, first.ID); err != nil {
		t.Fatal(err)
	}
	second := sampleSetting(1200, true, now)
	if err := repo.Insert(ctx, second); err != nil {
		t.Fatal(err)
	}

	active, err = repo.GetActive(ctx, "USD", "MWK")
	if err != nil {
		t.Fatal(err)
	}
	if active == nil || !active.Rate.Equal(decimal.NewFromInt(1200)) {
		t.Fatalf("want active rate 1200, got %+v", active)
	}

	prior, err := repo.GetLatestInactive(ctx, "USD", "MWK")
	if err != nil {
		t.Fatal(err)
	}
	if prior == nil || !prior.Rate.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("want prior rate 1000 kept, got %+v", prior)
	}

	// unknown pair has no active row
	none, err := repo.GetActive(ctx, "EUR", "MWK")
	if err != nil || none != nil {
		t.Fatalf("want nil/nil for unknown pair, got %v/%v", none, err)
	}
}
