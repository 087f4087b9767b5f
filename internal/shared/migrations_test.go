package shared

import (
	"path/filepath"
	"testing"
)

func TestMigrationRunner(t *testing.T) {
	t.Run("loadMigrations", func(t *testing.T) {
		migrations, err := loadMigrations()
		if err != nil {
			t.Fatalf("failed to load migrations: %v", err)
		}

		if len(migrations) == 0 {
			t.Fatal("expected at least one migration")
		}

		for i := 1; i < len(migrations); i++ {
			if migrations[i].Version <= migrations[i-1].Version {
				t.Errorf("migrations not sorted: version %d comes after %d", migrations[i].Version, migrations[i-1].Version)
			}
		}

		for _, m := range migrations {
			if m.Up == "" {
				t.Errorf("migration version %d missing up SQL", m.Version)
			}
			if m.Down == "" {
				t.Errorf("migration version %d missing down SQL", m.Version)
			}
		}
	})

	t.Run("RunMigrations And Rollback", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()
		ConfigureDatabase(db, 1, 1)

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}

		var count int
		err = db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
		if err != nil {
			t.Fatalf("failed to query schema_migrations: %v", err)
		}
		if count == 0 {
			t.Error("expected at least one migration to be applied")
		}

		if _, err = db.Exec("SELECT warnings FROM sync_runs LIMIT 1"); err != nil {
			t.Errorf("sync_runs.warnings should exist after migrations: %v", err)
		}

		if err := RollbackMigration(db); err != nil {
			t.Fatalf("failed to rollback migration: %v", err)
		}

		var newCount int
		err = db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&newCount)
		if err != nil {
			t.Fatalf("failed to query schema_migrations after rollback: %v", err)
		}
		if newCount != count-1 {
			t.Errorf("expected migration count %d after rollback, got %d", count-1, newCount)
		}

		if _, err = db.Exec("SELECT warnings FROM sync_runs LIMIT 1"); err == nil {
			t.Error("sync_runs.warnings should be dropped by rollback")
		}
		if _, err = db.Exec("SELECT kind FROM sync_runs LIMIT 1"); err != nil {
			t.Errorf("sync_runs should survive a single rollback: %v", err)
		}
	})

	t.Run("Idempotent Migrations", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()
		ConfigureDatabase(db, 1, 1)

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations first time: %v", err)
		}

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations second time: %v", err)
		}

		var count int
		err = db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
		if err != nil {
			t.Fatalf("failed to query schema_migrations: %v", err)
		}

		migrations, _ := loadMigrations()
		if count != len(migrations) {
			t.Errorf("expected %d migrations to be applied, got %d", len(migrations), count)
		}
	})

	t.Run("splitStatements", func(t *testing.T) {
		script := "-- header\nCREATE TABLE a (id INTEGER); -- trailing\n\nINSERT INTO a VALUES (1);\n;"
		stmts := splitStatements(script)
		if len(stmts) != 2 {
			t.Fatalf("expected 2 statements, got %d: %q", len(stmts), stmts)
		}
		if stmts[1] != "INSERT INTO a VALUES (1)" {
			t.Errorf("unexpected statement %q", stmts[1])
		}
	})

	t.Run("OpenJournal", func(t *testing.T) {
		db, err := OpenJournal(DatabaseConfig{})
		if err != nil || db != nil {
			t.Fatalf("expected disabled journal, got db=%v err=%v", db, err)
		}

		db, err = OpenJournal(DatabaseConfig{Path: filepath.Join(t.TempDir(), "runs.db"), MaxOpenConns: 1})
		if err != nil {
			t.Fatalf("failed to open journal: %v", err)
		}
		defer db.Close()

		var seq int64
		if err := db.QueryRow("SELECT value FROM sync_runs_sequence").Scan(&seq); err != nil {
			t.Fatalf("expected seeded sequence table: %v", err)
		}
	})
}
