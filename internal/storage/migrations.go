package storage

import (
	"database/sql"
	"fmt"
	"log"

	"markethub_api/pkg/dbconnect/migration"
)

type MigrationsSchema struct{}

func (m *MigrationsSchema) UpMigration(db *sql.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS migrations (
			name VARCHAR(128) PRIMARY KEY,
			time TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
		);
	`
	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

type ProductsTable struct{}

func (m *ProductsTable) UpMigration(db *sql.DB) error {
	applied, err := migrationApplied(db, "products")
	if err != nil {
		return err
	}
	if applied {
		log.Println("Migration 'products' already completed. Skipping.")
		return nil
	}
	query := `
		CREATE TABLE IF NOT EXISTS products (
			id UUID PRIMARY KEY,
			source VARCHAR(16) NOT NULL,
			external_id VARCHAR(128) NOT NULL,
			title TEXT NOT NULL,
			description TEXT,
			brand VARCHAR(128),
			category VARCHAR(64),
			base_price DOUBLE PRECISION,
			base_shipping_cost DOUBLE PRECISION,
			price DOUBLE PRECISION NOT NULL,
			shipping_cost DOUBLE PRECISION NOT NULL DEFAULT 0,
			currency VARCHAR(8) NOT NULL,
			availability BOOLEAN NOT NULL DEFAULT true,
			rating DOUBLE PRECISION NOT NULL DEFAULT 0,
			review_count INT NOT NULL DEFAULT 0,
			image_url TEXT,
			size VARCHAR(32),
			color VARCHAR(32),
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);

		CREATE UNIQUE INDEX IF NOT EXISTS products_source_external_id_idx
		ON products(source, external_id);
	`
	if _, err = db.Exec(query); err != nil {
		return fmt.Errorf("failed to create products table: %w", err)
	}
	if err = markMigration(db, "products"); err != nil {
		return err
	}
	log.Println("Migration 'products' completed successfully.")
	return nil
}

type ConversionSettingsTable struct{}

func (m *ConversionSettingsTable) UpMigration(db *sql.DB) error {
	applied, err := migrationApplied(db, "conversion_settings")
	if err != nil {
		return err
	}
	if applied {
		log.Println("Migration 'conversion_settings' already completed. Skipping.")
		return nil
	}
	query := `
		CREATE TABLE IF NOT EXISTS conversion_settings (
			id UUID PRIMARY KEY,
			from_currency VARCHAR(8) NOT NULL,
			to_currency VARCHAR(8) NOT NULL,
			rate NUMERIC(20, 6) NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);

		CREATE UNIQUE INDEX IF NOT EXISTS conversion_settings_active_pair_idx
		ON conversion_settings(from_currency, to_currency)
		WHERE is_active;
	`
	if _, err = db.Exec(query); err != nil {
		return fmt.Errorf("failed to create conversion_settings table: %w", err)
	}
	if err = markMigration(db, "conversion_settings"); err != nil {
		return err
	}
	log.Println("Migration 'conversion_settings' completed successfully.")
	return nil
}

func migrationApplied(db *sql.DB, name string) (bool, error) {
	var exists bool
	err := db.QueryRow("SELECT EXISTS (SELECT 1 FROM migrations WHERE name = $1)", name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check migration status: %w", err)
	}
	return exists, nil
}

func markMigration(db *sql.DB, name string) error {
	if _, err := db.Exec("INSERT INTO migrations (name) VALUES ($1)", name); err != nil {
		return fmt.Errorf("failed to mark %s migration as complete: %w", name, err)
	}
	return nil
}

// Migrations returns the ordered migration list the server applies on boot.
func Migrations() []migration.MigrationInterface {
	return []migration.MigrationInterface{
		&MigrationsSchema{},
		&ProductsTable{},
		&ConversionSettingsTable{},
	}
}
