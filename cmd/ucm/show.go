package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/evanschultz/ucm/internal/app"
	"github.com/evanschultz/ucm/internal/domain"
	"github.com/evanschultz/ucm/internal/render"
)

// scenarioViewOutput is the JSON form of a scenario shown with its inherited conditions.
type scenarioViewOutput struct {
	app.SnapshotScenario
	EffectivePreconditions  []string `json:"effective_preconditions,omitempty"`
	EffectivePostconditions []string `json:"effective_postconditions,omitempty"`
}

func (c *cli) showCommand() *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Render a use case, scenario or actor",
		Long: `show renders the entity with the given id as markdown. A use case includes its scenarios; a scenario
lists the use case conditions before its own. Output is styled with glamour unless --raw is given.`,
		Args: exactArgs(1),
		RunE: c.sessionRun(func(ctx context.Context, s *session, args []string) error {
			markdown, err := c.showMarkdown(ctx, s, args[0])
			if err != nil {
				return err
			}
			if c.jsonOutput() {
				return nil
			}
			if raw {
				_, err := c.stdout.Write([]byte(markdown))
				return err
			}
			term := render.NewTerminal(c.v.GetString("style"))
			c.println(term.Render(markdown, c.v.GetInt("width")))
			return nil
		}),
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print markdown without terminal styling")
	return cmd
}

// showMarkdown resolves id as a use case, then a scenario, then an actor. With --json the entity is written
// directly and the returned markdown is empty.
func (c *cli) showMarkdown(ctx context.Context, s *session, id string) (string, error) {
	uc, err := s.svc.GetUseCase(ctx, id)
	switch {
	case err == nil:
		return c.showUseCase(ctx, s, uc)
	case !errors.Is(err, app.ErrNotFound):
		return "", err
	}

	details, err := s.svc.ScenarioView(ctx, id)
	switch {
	case err == nil:
		return c.showScenario(details)
	case !errors.Is(err, app.ErrNotFound):
		return "", err
	}

	actor, err := s.svc.GetActor(ctx, id)
	if err != nil {
		return "", err
	}
	if c.jsonOutput() {
		return "", c.writeJSON(app.SnapshotActorFrom(actor))
	}
	return render.ActorMarkdown(actor), nil
}

func (c *cli) showUseCase(ctx context.Context, s *session, uc domain.UseCase) (string, error) {
	if c.jsonOutput() {
		return "", c.writeJSON(app.SnapshotUseCaseFrom(uc))
	}
	scenarios, err := s.svc.ListScenarios(ctx, app.ScenarioFilter{UseCaseID: uc.ID})
	if err != nil {
		return "", err
	}
	actors, err := s.svc.ListActors(ctx, app.ActorFilter{})
	if err != nil {
		return "", err
	}
	byID := make(map[string]domain.Actor, len(actors))
	for _, actor := range actors {
		byID[actor.ID] = actor
	}
	return render.UseCaseMarkdown(render.Document{UseCase: uc, Scenarios: scenarios, Actors: byID}), nil
}

func (c *cli) showScenario(details app.ScenarioDetails) (string, error) {
	if c.jsonOutput() {
		return "", c.writeJSON(scenarioViewOutput{
			SnapshotScenario:        app.SnapshotScenarioFrom(details.Scenario),
			EffectivePreconditions:  details.Preconditions,
			EffectivePostconditions: details.Postconditions,
		})
	}
	actors := make(map[string]domain.Actor, len(details.StepActors)+1)
	for id, actor := range details.StepActors {
		actors[id] = actor
	}
	if details.Actor != nil {
		actors[details.Actor.ID] = *details.Actor
	}
	sc := details.Scenario
	sc.Preconditions = details.Preconditions
	sc.Postconditions = details.Postconditions
	return "# " + details.UseCase.ID + ": " + details.UseCase.Title + "\n\n" + render.ScenarioMarkdown(sc, actors), nil
}
