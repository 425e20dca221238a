package domain

import (
	"strings"
	"time"
)

// ActorKind distinguishes human personas from system actors.
type ActorKind string

const (
	ActorPersona ActorKind = "persona"
	ActorSystem  ActorKind = "system"
)

// Valid reports whether the kind is known.
func (k ActorKind) Valid() bool {
	return k == ActorPersona || k == ActorSystem
}

// SystemType tags what sort of non-human participant a system actor is.
type SystemType string

const (
	SystemTypeSystem          SystemType = "system"
	SystemTypeDatabase        SystemType = "database"
	SystemTypeExternalService SystemType = "external_service"
)

// ParseSystemType normalizes input into a SystemType. Empty input yields system.
func ParseSystemType(raw string) (SystemType, error) {
	t := SystemType(strings.NewReplacer("-", "_", " ", "_").Replace(strings.ToLower(strings.TrimSpace(raw))))
	switch t {
	case "":
		return SystemTypeSystem, nil
	case SystemTypeSystem, SystemTypeDatabase, SystemTypeExternalService:
		return t, nil
	case "externalservice", "service":
		return SystemTypeExternalService, nil
	}
	return "", ErrInvalidSystemType
}

// Persona holds the profile fields of a human actor.
type Persona struct {
	Background          string `json:"background,omitempty"`
	Role                string `json:"role,omitempty"`
	Education           string `json:"education,omitempty"`
	TechnicalExperience string `json:"technical_experience,omitempty"`
	Motivation          string `json:"motivation,omitempty"`
}

// SystemProfile holds the fields of a non-human actor.
type SystemProfile struct {
	Type        SystemType `json:"type"`
	Description string     `json:"description,omitempty"`
}

// Actor is a participant in scenarios. Exactly one of Persona or System is meaningful, selected by Kind.
type Actor struct {
	ID        string
	Name      string
	Emoji     string
	Kind      ActorKind
	Persona   Persona
	System    SystemProfile
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ActorInput holds the shared actor fields.
type ActorInput struct {
	ID    string `validate:"required,kebab,max=64"`
	Name  string `validate:"required,max=200"`
	Emoji string `validate:"max=16"`
}

var actorFieldErrors = map[string]error{
	"ID":    ErrInvalidID,
	"Name":  ErrInvalidName,
	"Emoji": ErrInvalidName,
}

func normalizeActorInput(in ActorInput) (ActorInput, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Name = strings.TrimSpace(in.Name)
	in.Emoji = strings.TrimSpace(in.Emoji)
	if err := checkInput(in, actorFieldErrors); err != nil {
		return ActorInput{}, err
	}
	return in, nil
}

// NewPersona constructs a persona actor.
func NewPersona(in ActorInput, persona Persona, now time.Time) (Actor, error) {
	in, err := normalizeActorInput(in)
	if err != nil {
		return Actor{}, err
	}
	if in.Emoji == "" {
		in.Emoji = "🙂"
	}
	ts := now.UTC()
	return Actor{
		ID:        in.ID,
		Name:      in.Name,
		Emoji:     in.Emoji,
		Kind:      ActorPersona,
		Persona:   trimPersona(persona),
		CreatedAt: ts,
		UpdatedAt: ts,
	}, nil
}

// NewSystemActor constructs a system actor.
func NewSystemActor(in ActorInput, profile SystemProfile, now time.Time) (Actor, error) {
	in, err := normalizeActorInput(in)
	if err != nil {
		return Actor{}, err
	}
	profile, err = normalizeSystemProfile(profile)
	if err != nil {
		return Actor{}, err
	}
	if in.Emoji == "" {
		in.Emoji = "⚙️"
	}
	ts := now.UTC()
	return Actor{
		ID:        in.ID,
		Name:      in.Name,
		Emoji:     in.Emoji,
		Kind:      ActorSystem,
		System:    profile,
		CreatedAt: ts,
		UpdatedAt: ts,
	}, nil
}

// UpdateDetails replaces the mutable fields of an actor. The id and kind never change.
func (a *Actor) UpdateDetails(name, emoji string, persona Persona, profile SystemProfile, now time.Time) error {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 200 {
		return ErrInvalidName
	}
	if emoji = strings.TrimSpace(emoji); emoji != "" {
		a.Emoji = emoji
	}
	switch a.Kind {
	case ActorPersona:
		a.Persona = trimPersona(persona)
	case ActorSystem:
		normalized, err := normalizeSystemProfile(profile)
		if err != nil {
			return err
		}
		a.System = normalized
	default:
		return ErrInvalidActorKind
	}
	a.Name = name
	a.UpdatedAt = now.UTC()
	return nil
}

func trimPersona(p Persona) Persona {
	return Persona{
		Background:          strings.TrimSpace(p.Background),
		Role:                strings.TrimSpace(p.Role),
		Education:           strings.TrimSpace(p.Education),
		TechnicalExperience: strings.TrimSpace(p.TechnicalExperience),
		Motivation:          strings.TrimSpace(p.Motivation),
	}
}

func normalizeSystemProfile(p SystemProfile) (SystemProfile, error) {
	t, err := ParseSystemType(string(p.Type))
	if err != nil {
		return SystemProfile{}, err
	}
	return SystemProfile{Type: t, Description: strings.TrimSpace(p.Description)}, nil
}
