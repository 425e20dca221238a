package ident

import (
	"errors"
	"fmt"
	"testing"
)

func newAllocator(t *testing.T, cfg Config) *Allocator {
	t.Helper()
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return a
}

func TestUseCaseIDSmallestUnused(t *testing.T) {
	a := newAllocator(t, Config{})
	var existing []UseCaseKey

	for _, want := range []string{"UC-SEC-001", "UC-SEC-002"} {
		id, err := a.UseCaseID("Security", existing)
		if err != nil {
			t.Fatalf("UseCaseID() error = %v", err)
		}
		if id != want {
			t.Fatalf("UseCaseID() = %q, want %q", id, want)
		}
		existing = append(existing, UseCaseKey{ID: id, Category: "Security"})
	}

	// Deleting the first slot makes it the smallest free one again.
	existing = existing[1:]
	id, err := a.UseCaseID("Security", existing)
	if err != nil {
		t.Fatalf("UseCaseID() error = %v", err)
	}
	if id != "UC-SEC-001" {
		t.Fatalf("UseCaseID() after delete = %q, want UC-SEC-001", id)
	}
}

func TestUseCaseIDsPairwiseDistinct(t *testing.T) {
	a := newAllocator(t, Config{})
	var existing []UseCaseKey
	seen := map[string]bool{}
	for i := 0; i < 120; i++ {
		id, err := a.UseCaseID("Reporting", existing)
		if err != nil {
			t.Fatalf("UseCaseID() error = %v", err)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
		existing = append(existing, UseCaseKey{ID: id, Category: "Reporting"})
		if i%7 == 3 {
			// Free an earlier slot; the next allocation must reuse it.
			freed := existing[0]
			existing = existing[1:]
			delete(seen, freed.ID)
			next, err := a.UseCaseID("Reporting", existing)
			if err != nil {
				t.Fatalf("UseCaseID() error = %v", err)
			}
			if next != freed.ID {
				t.Fatalf("UseCaseID() = %q, want reused %q", next, freed.ID)
			}
		}
	}
}

func TestUseCaseIDCapacityExceeded(t *testing.T) {
	a := newAllocator(t, Config{})
	existing := make([]UseCaseKey, 0, 999)
	for n := 1; n <= 999; n++ {
		existing = append(existing, UseCaseKey{ID: fmt.Sprintf("UC-OPS-%03d", n), Category: "Operations"})
	}
	if _, err := a.UseCaseID("Operations", existing); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("UseCaseID() error = %v, want ErrCapacityExceeded", err)
	}
}

func TestScenarioID(t *testing.T) {
	a := newAllocator(t, Config{})
	id, err := a.ScenarioID("UC-SEC-001", nil)
	if err != nil || id != "UC-SEC-001-S01" {
		t.Fatalf("ScenarioID() = %q, %v", id, err)
	}
	existing := []string{"UC-SEC-001-S01", "UC-SEC-001-S03", "UC-SEC-002-S02"}
	id, err = a.ScenarioID("UC-SEC-001", existing)
	if err != nil || id != "UC-SEC-001-S02" {
		t.Fatalf("ScenarioID() = %q, %v", id, err)
	}

	full := make([]string, 0, 99)
	for n := 1; n <= 99; n++ {
		full = append(full, fmt.Sprintf("UC-SEC-001-S%02d", n))
	}
	if _, err := a.ScenarioID("UC-SEC-001", full); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("ScenarioID() error = %v, want ErrCapacityExceeded", err)
	}
}

func TestTokenCollisionExtend(t *testing.T) {
	a := newAllocator(t, Config{})
	existing := []UseCaseKey{{ID: "UC-SEC-001", Category: "Security"}}

	id, err := a.UseCaseID("Secrets", existing)
	if err != nil {
		t.Fatalf("UseCaseID() error = %v", err)
	}
	if id != "UC-SECR-001" {
		t.Fatalf("UseCaseID(Secrets) = %q, want UC-SECR-001", id)
	}
	existing = append(existing, UseCaseKey{ID: id, Category: "Secrets"})

	// The token sticks to the category once it is in use.
	id, err = a.UseCaseID("secrets", existing)
	if err != nil || id != "UC-SECR-002" {
		t.Fatalf("UseCaseID(secrets) = %q, %v", id, err)
	}
	id, err = a.UseCaseID("Security", existing)
	if err != nil || id != "UC-SEC-002" {
		t.Fatalf("UseCaseID(Security) = %q, %v", id, err)
	}

	// Short categories run out of letters and fall back to a digit suffix.
	short := []UseCaseKey{{ID: "UC-SEC-001", Category: "Security"}}
	id, err = a.UseCaseID("Sec", short)
	if err != nil || id != "UC-SEC2-001" {
		t.Fatalf("UseCaseID(Sec) = %q, %v", id, err)
	}
}

func TestTokenCollisionStrictAndRegistry(t *testing.T) {
	strict := newAllocator(t, Config{Strategy: StrategyStrict})
	existing := []UseCaseKey{{ID: "UC-SEC-001", Category: "Security"}}
	if _, err := strict.UseCaseID("Secrets", existing); !errors.Is(err, ErrTokenCollision) {
		t.Fatalf("UseCaseID() error = %v, want ErrTokenCollision", err)
	}

	registered := newAllocator(t, Config{
		Strategy: StrategyStrict,
		Prefix:   "req",
		Tokens:   map[string]string{"Secrets": "vault", "Security": "sec"},
	})
	id, err := registered.UseCaseID("secrets", nil)
	if err != nil || id != "REQ-VAULT-001" {
		t.Fatalf("UseCaseID(secrets) = %q, %v", id, err)
	}
	// A derived token may not steal a registered one.
	id, err = registered.UseCaseID("Secure Storage", nil)
	if !errors.Is(err, ErrTokenCollision) {
		t.Fatalf("UseCaseID(Secure Storage) = %q, %v, want ErrTokenCollision", id, err)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	if _, err := New(Config{Strategy: "guess"}); err == nil {
		t.Fatal("expected unknown strategy error")
	}
	if _, err := New(Config{Tokens: map[string]string{"A": "X", "B": "x"}}); !errors.Is(err, ErrTokenCollision) {
		t.Fatalf("New() duplicate token error = %v", err)
	}
	if _, err := New(Config{Prefix: "U-C"}); err == nil {
		t.Fatal("expected invalid prefix error")
	}
}

func TestSplitUseCaseID(t *testing.T) {
	if uc, ok := SplitUseCaseID("UC-SEC-001-S07"); !ok || uc != "UC-SEC-001" {
		t.Fatalf("SplitUseCaseID() = %q, %t", uc, ok)
	}
	if _, ok := SplitUseCaseID("UC-SEC-001"); ok {
		t.Fatal("expected use case id not to split")
	}
}
