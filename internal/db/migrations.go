// Package db mirrors Manager Repair/Rollback audit entries into
// Postgres for historical querying. The UTSF file's own updates[] array
// remains the single source of truth for a vendor's history; this
// mirror exists only so operators can query across vendors without
// reading every file (spec.md 2, 4.4).
package db

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// RunMigrations executes all pending .up.sql migrations, tracked in
// schema_migrations.
func RunMigrations(conn *sql.DB, migrationsPath string) error {
	if err := createMigrationsTable(conn); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := getAppliedMigrations(conn)
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	files, err := getMigrationFiles(migrationsPath)
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}

	for _, file := range files {
		if !strings.HasSuffix(file, ".up.sql") {
			continue
		}
		if applied[file] {
			log.Printf("Migration %s already applied, skipping", file)
			continue
		}

		sqlContent, err := os.ReadFile(filepath.Join(migrationsPath, file))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", file, err)
		}

		log.Printf("Applying migration: %s", file)
		if err := applyMigration(conn, file, string(sqlContent)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file, err)
		}
		log.Printf("Successfully applied migration: %s", file)
	}

	log.Println("All migrations completed successfully")
	return nil
}

func createMigrationsTable(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id SERIAL PRIMARY KEY,
			version VARCHAR(255) NOT NULL UNIQUE,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW()
		);
	`)
	return err
}

func getAppliedMigrations(conn *sql.DB) (map[string]bool, error) {
	rows, err := conn.Query("SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func getMigrationFiles(migrationsPath string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(migrationsPath, "*.sql"))
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(files))
	for _, file := range files {
		names = append(names, filepath.Base(file))
	}
	sort.Strings(names)
	return names, nil
}

func applyMigration(conn *sql.DB, version, sqlContent string) error {
	tx, err := conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(sqlContent); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}
	return tx.Commit()
}
