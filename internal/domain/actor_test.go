package domain

import (
	"errors"
	"testing"
	"time"
)

func TestNewPersona(t *testing.T) {
	actor, err := NewPersona(ActorInput{ID: "power-user", Name: " Priya "}, Persona{Role: " analyst ", Motivation: "ship faster"}, fixedNow)
	if err != nil {
		t.Fatalf("NewPersona() error = %v", err)
	}
	if actor.Kind != ActorPersona || actor.Name != "Priya" || actor.Persona.Role != "analyst" {
		t.Fatalf("unexpected persona %#v", actor)
	}
	if actor.Emoji == "" {
		t.Fatal("expected default emoji")
	}

	for _, id := range []string{"", "Power User", "-lead", "trailing-", "a--b"} {
		if _, err := NewPersona(ActorInput{ID: id, Name: "x"}, Persona{}, fixedNow); !errors.Is(err, ErrInvalidID) {
			t.Fatalf("NewPersona(id=%q) error = %v, want ErrInvalidID", id, err)
		}
	}
	if _, err := NewPersona(ActorInput{ID: "ok_id-2"}, Persona{}, fixedNow); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("NewPersona(no name) error = %v", err)
	}
}

func TestNewSystemActor(t *testing.T) {
	actor, err := NewSystemActor(ActorInput{ID: "billing-db", Name: "Billing DB", Emoji: "🗄️"}, SystemProfile{Type: "Database", Description: "ledger"}, fixedNow)
	if err != nil {
		t.Fatalf("NewSystemActor() error = %v", err)
	}
	if actor.Kind != ActorSystem || actor.System.Type != SystemTypeDatabase || actor.Emoji != "🗄️" {
		t.Fatalf("unexpected system actor %#v", actor)
	}
	if _, err := NewSystemActor(ActorInput{ID: "x", Name: "x"}, SystemProfile{Type: "robot"}, fixedNow); !errors.Is(err, ErrInvalidSystemType) {
		t.Fatalf("NewSystemActor(robot) error = %v", err)
	}

	later := fixedNow.Add(time.Hour)
	if err := actor.UpdateDetails("Billing Ledger", "", Persona{}, SystemProfile{Type: SystemTypeExternalService}, later); err != nil {
		t.Fatalf("UpdateDetails() error = %v", err)
	}
	if actor.Name != "Billing Ledger" || actor.System.Type != SystemTypeExternalService || actor.Emoji != "🗄️" {
		t.Fatalf("unexpected updated actor %#v", actor)
	}
	if !actor.UpdatedAt.Equal(later) || !actor.CreatedAt.Equal(fixedNow) {
		t.Fatalf("unexpected timestamps %v %v", actor.CreatedAt, actor.UpdatedAt)
	}
}
