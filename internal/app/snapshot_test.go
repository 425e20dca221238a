package app

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/evanschultz/ucm/internal/domain"
)

func seedSnapshotService(t *testing.T) *Service {
	t.Helper()
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.CreateSystemActor(ctx, CreateSystemActorInput{ID: "vault", Name: "Vault"}); err != nil {
		t.Fatalf("CreateSystemActor() error = %v", err)
	}
	a := mustCreateUseCase(t, svc, "Store secret", "Security")
	b := mustCreateUseCase(t, svc, "Rotate secret", "Security")
	main := mustAddScenario(t, svc, AddScenarioInput{
		UseCaseID: a.ID,
		Title:     "Main",
		Status:    domain.StatusTested,
		Steps:     []domain.StepInput{{Description: "Persist", ActorID: "vault"}},
	})
	if _, err := svc.AddReference(ctx, AddReferenceInput{SourceID: b.ID, TargetID: a.ID, Kind: "dependency"}); err != nil {
		t.Fatalf("AddReference() error = %v", err)
	}
	if _, err := svc.AddReference(ctx, AddReferenceInput{SourceID: main.ID, TargetID: b.ID, Kind: "alternative_to"}); err != nil {
		t.Fatalf("AddReference() error = %v", err)
	}
	return svc
}

func TestExportImportSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := seedSnapshotService(t)
	snap, err := src.ExportSnapshot(ctx)
	if err != nil {
		t.Fatalf("ExportSnapshot() error = %v", err)
	}
	if snap.Version != SnapshotVersion || len(snap.UseCases) != 2 || len(snap.Scenarios) != 1 || len(snap.Actors) != 1 {
		t.Fatalf("unexpected snapshot %#v", snap)
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	var decoded Snapshot
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}

	dst, _ := newTestService(t)
	if err := dst.ImportSnapshot(ctx, decoded); err != nil {
		t.Fatalf("ImportSnapshot() error = %v", err)
	}
	again, err := dst.ExportSnapshot(ctx)
	if err != nil {
		t.Fatalf("ExportSnapshot() error = %v", err)
	}
	again.ExportedAt = snap.ExportedAt
	left, _ := json.Marshal(snap)
	right, _ := json.Marshal(again)
	if string(left) != string(right) {
		t.Fatalf("snapshot changed across import\nwant %s\ngot  %s", left, right)
	}

	uc, err := dst.GetUseCase(ctx, snap.UseCases[0].ID)
	if err != nil {
		t.Fatalf("GetUseCase() error = %v", err)
	}
	if uc.Status != domain.StatusTested || len(uc.ScenarioIDs) != 1 {
		t.Fatalf("unexpected imported use case %#v", uc)
	}

	if err := dst.ImportSnapshot(ctx, decoded); !errors.Is(err, ErrStoreNotEmpty) {
		t.Fatalf("expected ErrStoreNotEmpty, got %v", err)
	}
}

func TestImportSnapshotRederivesStatus(t *testing.T) {
	ts := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Version: SnapshotVersion,
		UseCases: []SnapshotUseCase{{
			ID: "UC-OPS-001", Title: "Deploy", Category: "Ops", Status: domain.StatusDeployed,
			CreatedAt: ts, UpdatedAt: ts, Version: 3,
		}},
		Scenarios: []SnapshotScenario{{
			ID: "UC-OPS-001-S01", UseCaseID: "UC-OPS-001", Title: "Main", Type: "happy_path",
			Status: domain.StatusImplemented, CreatedAt: ts, UpdatedAt: ts,
		}},
	}
	svc, _ := newTestService(t)
	if err := svc.ImportSnapshot(context.Background(), snap); err != nil {
		t.Fatalf("ImportSnapshot() error = %v", err)
	}
	uc, err := svc.GetUseCase(context.Background(), "UC-OPS-001")
	if err != nil {
		t.Fatalf("GetUseCase() error = %v", err)
	}
	if uc.Status != domain.StatusImplemented || uc.Version != 3 || uc.Priority != domain.PriorityMedium {
		t.Fatalf("unexpected imported use case %#v", uc)
	}
	sc, err := svc.GetScenario(context.Background(), "UC-OPS-001-S01")
	if err != nil {
		t.Fatalf("GetScenario() error = %v", err)
	}
	if sc.Type != domain.ScenarioMain || sc.Version != 1 {
		t.Fatalf("unexpected imported scenario %#v", sc)
	}
}

func TestImportSnapshotValidateErrors(t *testing.T) {
	ts := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	base := func() Snapshot {
		return Snapshot{
			Version: SnapshotVersion,
			UseCases: []SnapshotUseCase{
				{ID: "UC-OPS-001", Title: "A", Category: "Ops", CreatedAt: ts, UpdatedAt: ts},
				{ID: "UC-OPS-002", Title: "B", Category: "Ops", CreatedAt: ts, UpdatedAt: ts},
			},
		}
	}
	cases := []struct {
		name   string
		mutate func(*Snapshot)
		want   error
	}{
		{"version", func(s *Snapshot) { s.Version = "kan.snapshot.v1" }, ErrUnsupportedSnapshot},
		{"duplicate use case", func(s *Snapshot) { s.UseCases[1].ID = "UC-OPS-001" }, ErrDuplicateIdentifier},
		{"missing owner", func(s *Snapshot) {
			s.Scenarios = []SnapshotScenario{{ID: "UC-OPS-009-S01", UseCaseID: "UC-OPS-009", Title: "x", CreatedAt: ts, UpdatedAt: ts}}
		}, ErrNotFound},
		{"missing actor", func(s *Snapshot) {
			s.Scenarios = []SnapshotScenario{{ID: "UC-OPS-001-S01", UseCaseID: "UC-OPS-001", Title: "x", ActorID: "ghost", CreatedAt: ts, UpdatedAt: ts}}
		}, ErrNotFound},
		{"gapped steps", func(s *Snapshot) {
			s.Scenarios = []SnapshotScenario{{
				ID: "UC-OPS-001-S01", UseCaseID: "UC-OPS-001", Title: "x", CreatedAt: ts, UpdatedAt: ts,
				Steps: []SnapshotStep{{Order: 1, Description: "a"}, {Order: 3, Description: "b"}},
			}}
		}, domain.ErrInvalidStepOrder},
		{"dangling reference", func(s *Snapshot) {
			s.UseCases[0].References = []SnapshotReference{{TargetID: "UC-OPS-404", Kind: domain.RelationDependency}}
		}, ErrDanglingTarget},
		{"cycle", func(s *Snapshot) {
			s.UseCases[0].References = []SnapshotReference{{TargetID: "UC-OPS-002", Kind: domain.RelationDependency}}
			s.UseCases[1].References = []SnapshotReference{{TargetID: "UC-OPS-001", Kind: domain.RelationExtension}}
		}, ErrCycleDetected},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			snap := base()
			tc.mutate(&snap)
			svc, _ := newTestService(t)
			err := svc.ImportSnapshot(context.Background(), snap)
			if !errors.Is(err, tc.want) {
				t.Fatalf("ImportSnapshot() error = %v, want %v", err, tc.want)
			}
			list, listErr := svc.ListUseCases(context.Background(), UseCaseFilter{})
			if listErr != nil {
				t.Fatalf("ListUseCases() error = %v", listErr)
			}
			if len(list) != 0 {
				t.Fatalf("rejected snapshot must not write, got %d use cases", len(list))
			}
		})
	}
}
