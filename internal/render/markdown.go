// Package render turns use cases, scenarios and actors into markdown documents and terminal output.
package render

import (
	"fmt"
	"strings"

	"github.com/evanschultz/ucm/internal/domain"
)

// Document collects everything needed to render one use case page.
type Document struct {
	UseCase   domain.UseCase
	Scenarios []domain.Scenario
	// Actors resolves actor ids used by scenarios and steps. Missing ids render as the raw id.
	Actors map[string]domain.Actor
}

// UseCaseMarkdown renders a full use case page with its scenarios.
func UseCaseMarkdown(doc Document) string {
	uc := doc.UseCase
	var b strings.Builder
	fmt.Fprintf(&b, "# %s: %s\n\n", uc.ID, uc.Title)
	b.WriteString("| Category | Priority | Status |\n|---|---|---|\n")
	fmt.Fprintf(&b, "| %s | %s | %s |\n\n", escapeCell(uc.Category), uc.Priority, uc.Status)
	if uc.Description != "" {
		b.WriteString(uc.Description)
		b.WriteString("\n\n")
	}
	writeList(&b, "## Preconditions", uc.Preconditions)
	writeList(&b, "## Postconditions", uc.Postconditions)
	writeReferences(&b, "## Related", uc.References)

	if len(doc.Scenarios) > 0 {
		b.WriteString("## Scenarios\n\n")
		for _, sc := range doc.Scenarios {
			writeScenario(&b, sc, doc.Actors)
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// ScenarioMarkdown renders a single scenario section.
func ScenarioMarkdown(sc domain.Scenario, actors map[string]domain.Actor) string {
	var b strings.Builder
	writeScenario(&b, sc, actors)
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// ActorMarkdown renders an actor profile.
func ActorMarkdown(a domain.Actor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", actorLabel(a))
	fmt.Fprintf(&b, "- **ID:** `%s`\n- **Kind:** %s\n", a.ID, a.Kind)
	switch a.Kind {
	case domain.ActorPersona:
		for _, field := range []struct{ name, value string }{
			{"Role", a.Persona.Role},
			{"Background", a.Persona.Background},
			{"Education", a.Persona.Education},
			{"Technical experience", a.Persona.TechnicalExperience},
			{"Motivation", a.Persona.Motivation},
		} {
			if field.value != "" {
				fmt.Fprintf(&b, "- **%s:** %s\n", field.name, field.value)
			}
		}
	case domain.ActorSystem:
		fmt.Fprintf(&b, "- **System type:** %s\n", a.System.Type)
		if a.System.Description != "" {
			fmt.Fprintf(&b, "\n%s\n", a.System.Description)
		}
	}
	return b.String()
}

func writeScenario(b *strings.Builder, sc domain.Scenario, actors map[string]domain.Actor) {
	fmt.Fprintf(b, "### %s: %s\n\n", sc.ID, sc.Title)
	fmt.Fprintf(b, "*%s* · **%s**", sc.Type, sc.Status)
	if sc.ActorID != "" {
		fmt.Fprintf(b, " · %s", actorName(sc.ActorID, actors))
	}
	b.WriteString("\n\n")
	if sc.Description != "" {
		b.WriteString(sc.Description)
		b.WriteString("\n\n")
	}
	writeList(b, "#### Preconditions", sc.Preconditions)
	if len(sc.Steps) > 0 {
		b.WriteString("#### Steps\n\n")
		for _, step := range sc.Steps {
			fmt.Fprintf(b, "%d. ", step.Order)
			if step.ActorID != "" {
				fmt.Fprintf(b, "%s: ", actorName(step.ActorID, actors))
			}
			if step.Action != "" {
				fmt.Fprintf(b, "**%s** ", step.Action)
			}
			b.WriteString(step.Description)
			if step.Notes != "" {
				fmt.Fprintf(b, " _(%s)_", step.Notes)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	writeList(b, "#### Postconditions", sc.Postconditions)
	writeReferences(b, "#### Related", sc.References)
}

func writeList(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString(heading)
	b.WriteString("\n\n")
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}

func writeReferences(b *strings.Builder, heading string, refs []domain.Reference) {
	if len(refs) == 0 {
		return
	}
	b.WriteString(heading)
	b.WriteString("\n\n")
	for _, ref := range refs {
		fmt.Fprintf(b, "- %s → `%s`", ref.Kind, ref.TargetID)
		if ref.Note != "" {
			fmt.Fprintf(b, " (%s)", ref.Note)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func actorName(id string, actors map[string]domain.Actor) string {
	if a, ok := actors[id]; ok {
		return actorLabel(a)
	}
	return id
}

func actorLabel(a domain.Actor) string {
	if a.Emoji != "" {
		return a.Emoji + " " + a.Name
	}
	return a.Name
}

func escapeCell(v string) string {
	return strings.ReplaceAll(v, "|", `\|`)
}
