package domain

import (
	"errors"
	"testing"
)

func newTestScenario(t *testing.T, steps ...string) Scenario {
	t.Helper()
	inputs := make([]StepInput, 0, len(steps))
	for _, s := range steps {
		inputs = append(inputs, StepInput{Description: s})
	}
	sc, err := NewScenario(ScenarioInput{
		ID:        "UC-SEC-001-S01",
		UseCaseID: "UC-SEC-001",
		Title:     "Happy login",
		Steps:     inputs,
	}, fixedNow)
	if err != nil {
		t.Fatalf("NewScenario() error = %v", err)
	}
	return sc
}

func stepDescriptions(steps []Step) []string {
	out := make([]string, 0, len(steps))
	for _, s := range steps {
		out = append(out, s.Description)
	}
	return out
}

func TestNewScenario(t *testing.T) {
	sc := newTestScenario(t, "open page", "enter credentials", "submit")
	if sc.Type != ScenarioMain || sc.Status != StatusPlanned {
		t.Fatalf("unexpected defaults type=%q status=%q", sc.Type, sc.Status)
	}
	if !DenseSteps(sc.Steps) || len(sc.Steps) != 3 {
		t.Fatalf("expected dense steps, got %#v", sc.Steps)
	}

	cases := []struct {
		name string
		in   ScenarioInput
		want error
	}{
		{name: "foreign id", in: ScenarioInput{ID: "UC-OPS-001-S01", UseCaseID: "UC-SEC-001", Title: "x"}, want: ErrInvalidID},
		{name: "bad type", in: ScenarioInput{ID: "UC-SEC-001-S01", UseCaseID: "UC-SEC-001", Title: "x", Type: "sad"}, want: ErrInvalidScenarioType},
		{name: "bad actor", in: ScenarioInput{ID: "UC-SEC-001-S01", UseCaseID: "UC-SEC-001", Title: "x", ActorID: "Not Kebab"}, want: ErrInvalidID},
		{name: "empty step", in: ScenarioInput{ID: "UC-SEC-001-S01", UseCaseID: "UC-SEC-001", Title: "x", Steps: []StepInput{{Description: " "}}}, want: ErrInvalidStep},
		{name: "bad status", in: ScenarioInput{ID: "UC-SEC-001-S01", UseCaseID: "UC-SEC-001", Title: "x", Status: "done"}, want: ErrInvalidStatus},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewScenario(tc.in, fixedNow); !errors.Is(err, tc.want) {
				t.Fatalf("NewScenario() error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestScenarioStepMutationsStayDense(t *testing.T) {
	sc := newTestScenario(t, "a", "b", "c")

	if _, err := sc.AddStep(StepInput{Description: "first"}, 1, fixedNow); err != nil {
		t.Fatalf("AddStep(1) error = %v", err)
	}
	if _, err := sc.AddStep(StepInput{Description: "last"}, 0, fixedNow); err != nil {
		t.Fatalf("AddStep(0) error = %v", err)
	}
	assertSteps(t, sc.Steps, "first", "a", "b", "c", "last")

	if err := sc.RemoveStep(3, fixedNow); err != nil {
		t.Fatalf("RemoveStep() error = %v", err)
	}
	assertSteps(t, sc.Steps, "first", "a", "c", "last")

	if err := sc.MoveStep(4, 1, fixedNow); err != nil {
		t.Fatalf("MoveStep() error = %v", err)
	}
	assertSteps(t, sc.Steps, "last", "first", "a", "c")

	if err := sc.RemoveStep(9, fixedNow); !errors.Is(err, ErrInvalidStepOrder) {
		t.Fatalf("RemoveStep(9) error = %v", err)
	}
	if err := sc.MoveStep(0, 2, fixedNow); !errors.Is(err, ErrInvalidStepOrder) {
		t.Fatalf("MoveStep(0, 2) error = %v", err)
	}

	for sc.Steps != nil {
		if err := sc.RemoveStep(1, fixedNow); err != nil {
			t.Fatalf("RemoveStep(1) error = %v", err)
		}
	}
}

func assertSteps(t *testing.T, steps []Step, want ...string) {
	t.Helper()
	if !DenseSteps(steps) {
		t.Fatalf("steps are not dense: %#v", steps)
	}
	got := stepDescriptions(steps)
	if len(got) != len(want) {
		t.Fatalf("steps = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("steps = %v, want %v", got, want)
		}
	}
}

func TestScenarioClearActor(t *testing.T) {
	sc, err := NewScenario(ScenarioInput{
		ID:        "UC-SEC-001-S02",
		UseCaseID: "UC-SEC-001",
		Title:     "Locked account",
		Type:      ScenarioException,
		ActorID:   "end-user",
		Steps: []StepInput{
			{Description: "enters wrong password", ActorID: "end-user"},
			{Description: "locks account", ActorID: "auth-service"},
		},
	}, fixedNow)
	if err != nil {
		t.Fatalf("NewScenario() error = %v", err)
	}
	if !sc.UsesActor("auth-service") {
		t.Fatal("expected step actor to count as usage")
	}
	if !sc.ClearActor("end-user", fixedNow) {
		t.Fatal("expected ClearActor to report a change")
	}
	if sc.ActorID != "" || sc.Steps[0].ActorID != "" || sc.Steps[1].ActorID != "auth-service" {
		t.Fatalf("unexpected actor refs after clear: %#v", sc)
	}
	if sc.ClearActor("end-user", fixedNow) {
		t.Fatal("expected second ClearActor to be a no-op")
	}
}

func TestScenarioSetStatus(t *testing.T) {
	sc := newTestScenario(t)
	changed, err := sc.SetStatus(StatusTested, fixedNow)
	if err != nil || !changed {
		t.Fatalf("SetStatus() = %t, %v", changed, err)
	}
	if changed, _ := sc.SetStatus(StatusTested, fixedNow); changed {
		t.Fatal("expected unchanged status to report false")
	}
	if _, err := sc.SetStatus("shipped", fixedNow); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("SetStatus(shipped) error = %v", err)
	}
}
