package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/evanschultz/ucm/internal/adapters/storage/storagetest"
	"github.com/evanschultz/ucm/internal/app"
	"github.com/evanschultz/ucm/internal/domain"
)

func openAt(t *testing.T, dir string) app.Store {
	t.Helper()
	store, err := Open(filepath.Join(dir, "ucm.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return store
}

func TestStoreContract(t *testing.T) {
	storagetest.Run(t, openAt)
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("expected error for blank path")
	}
}

func TestOpenInMemoryIsPrivate(t *testing.T) {
	ctx := context.Background()
	first, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = first.Close() })
	second, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = second.Close() })

	err = first.Update(ctx, func(tx app.Tx) error {
		return tx.CreateUseCase(ctx, storagetest.UseCase(t, "UC-SEC-001", "Security"))
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	err = second.View(ctx, func(tx app.Tx) error {
		list, err := tx.ListUseCases(ctx, app.UseCaseFilter{})
		if err != nil {
			return err
		}
		if len(list) != 0 {
			t.Fatalf("expected empty second store, got %d use cases", len(list))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
}

func TestViewRejectsWrites(t *testing.T) {
	store, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()
	err = store.View(ctx, func(tx app.Tx) error {
		return tx.CreateActor(ctx, storagetest.Persona(t, "admin"))
	})
	if !errors.Is(err, errReadOnly) {
		t.Fatalf("expected errReadOnly, got %v", err)
	}
}

func TestReopenKeepsSchemaVersion(t *testing.T) {
	dir := t.TempDir()
	store := openAt(t, dir)
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	reopened, err := Open(filepath.Join(dir, "ucm.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = reopened.Close() })

	var raw string
	if err := reopened.db.QueryRow(`SELECT value FROM _metadata WHERE key = 'schema_version'`).Scan(&raw); err != nil {
		t.Fatalf("QueryRow() error = %v", err)
	}
	if raw != strconv.Itoa(schemaVersion) {
		t.Fatalf("expected schema version %d, got %q", schemaVersion, raw)
	}
}

func TestOpenUpgradesVersionOneCategoryKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ucm.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	ctx := context.Background()
	err = store.Update(ctx, func(tx app.Tx) error {
		return tx.CreateUseCase(ctx, storagetest.UseCase(t, "UC-UBE-001", "Übersicht"))
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	// Rewind the file to the version 1 layout, which had no category_key column.
	for _, stmt := range []string{
		`DROP INDEX idx_use_cases_category_key`,
		`ALTER TABLE use_cases DROP COLUMN category_key`,
		`CREATE INDEX idx_use_cases_category ON use_cases(category COLLATE NOCASE)`,
		`UPDATE _metadata SET value = '1' WHERE key = 'schema_version'`,
	} {
		if _, err := store.db.Exec(stmt); err != nil {
			t.Fatalf("Exec(%q) error = %v", stmt, err)
		}
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	upgraded, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = upgraded.Close() })
	var raw string
	if err := upgraded.db.QueryRow(`SELECT value FROM _metadata WHERE key = 'schema_version'`).Scan(&raw); err != nil {
		t.Fatalf("QueryRow() error = %v", err)
	}
	if raw != strconv.Itoa(schemaVersion) {
		t.Fatalf("expected schema version %d after upgrade, got %q", schemaVersion, raw)
	}
	err = upgraded.View(ctx, func(tx app.Tx) error {
		list, err := tx.ListUseCases(ctx, app.UseCaseFilter{Category: "ÜBERSICHT"})
		if err != nil {
			return err
		}
		if len(list) != 1 || list[0].ID != "UC-UBE-001" {
			t.Fatalf("expected upgraded category key to match, got %#v", list)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
}

func TestOpenFailuresAreStorageErrors(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := Open(filepath.Join(blocker, "ucm.db")); !errors.Is(err, app.ErrStorageIO) {
		t.Fatalf("Open() under a file error = %v, want ErrStorageIO", err)
	}

	garbage := filepath.Join(dir, "garbage.db")
	if err := os.WriteFile(garbage, []byte(strings.Repeat("not a database ", 512)), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := Open(garbage); !errors.Is(err, app.ErrStorageIO) {
		t.Fatalf("Open() of a non-database file error = %v, want ErrStorageIO", err)
	}
}

func TestStepActorFilterUsesJoin(t *testing.T) {
	store, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()

	sc := storagetest.Scenario(t, "UC-SEC-001-S01", "UC-SEC-001", "")
	sc.Steps[0].ActorID = "vault"
	err = store.Update(ctx, func(tx app.Tx) error {
		if err := tx.CreateActor(ctx, storagetest.SystemActor(t, "vault")); err != nil {
			return err
		}
		if err := tx.CreateUseCase(ctx, storagetest.UseCase(t, "UC-SEC-001", "Security")); err != nil {
			return err
		}
		return tx.CreateScenario(ctx, sc)
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	var found []domain.Scenario
	err = store.View(ctx, func(tx app.Tx) error {
		var err error
		found, err = tx.ListScenarios(ctx, app.ScenarioFilter{ActorID: "vault"})
		return err
	})
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
	if len(found) != 1 || found[0].ID != sc.ID {
		t.Fatalf("expected step actor match on %s, got %#v", sc.ID, found)
	}
}

func TestTranslateErrWrapsUnknownFailures(t *testing.T) {
	err := translateErr("insert", "use case", "UC-X-001", errors.New("disk full"))
	if !errors.Is(err, app.ErrStorageIO) {
		t.Fatalf("expected ErrStorageIO, got %v", err)
	}
}
