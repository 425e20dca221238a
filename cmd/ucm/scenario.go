package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evanschultz/ucm/internal/app"
	"github.com/evanschultz/ucm/internal/domain"
	"github.com/evanschultz/ucm/internal/render"
)

func (c *cli) scenarioCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "scenario",
		Aliases: []string{"sc"},
		Short:   "Add and change the scenarios of a use case",
	}
	cmd.AddCommand(
		c.scenarioAddCommand(),
		c.scenarioUpdateCommand(),
		c.scenarioStatusCommand(),
		c.scenarioAssignCommand(),
		c.scenarioConditionsCommand(),
		c.scenarioStepCommand(),
		c.scenarioDeleteCommand(),
		c.scenarioListCommand(),
	)
	return cmd
}

func (c *cli) scenarioAddCommand() *cobra.Command {
	var (
		in           app.AddScenarioInput
		scenarioType string
		status       string
		steps        []string
	)
	cmd := &cobra.Command{
		Use:   "add <use-case-id>",
		Short: "Add a scenario; its identifier is the next free <use-case-id>-SNN",
		Args:  exactArgs(1),
		RunE: c.sessionRun(func(ctx context.Context, s *session, args []string) error {
			in.UseCaseID = args[0]
			var err error
			if strings.TrimSpace(scenarioType) != "" {
				if in.Type, err = domain.ParseScenarioType(scenarioType); err != nil {
					return err
				}
			}
			if strings.TrimSpace(status) != "" {
				if in.Status, err = domain.ParseStatus(status); err != nil {
					return err
				}
			}
			in.Steps = nil
			for _, description := range steps {
				in.Steps = append(in.Steps, domain.StepInput{Description: description, ActorID: in.ActorID})
			}
			sc, err := s.svc.AddScenario(ctx, in)
			if err != nil {
				return err
			}
			s.log.Info("scenario added", "id", sc.ID, "use_case", sc.UseCaseID)
			return c.printScenario("created", sc)
		}),
	}
	flags := cmd.Flags()
	flags.StringVarP(&in.Title, "title", "t", "", "scenario title")
	flags.StringVarP(&in.Description, "description", "d", "", "free-form description")
	flags.StringVar(&scenarioType, "type", "", "main, alternative or exception (default main)")
	flags.StringVarP(&status, "status", "s", "", "initial status (default planned)")
	flags.StringVarP(&in.ActorID, "actor", "a", "", "primary actor id; also the actor of --step steps")
	flags.StringArrayVar(&steps, "step", nil, "step description, in order (repeatable)")
	flags.StringArrayVar(&in.Preconditions, "pre", nil, "scenario precondition (repeatable)")
	flags.StringArrayVar(&in.Postconditions, "post", nil, "scenario postcondition (repeatable)")
	return cmd
}

func (c *cli) scenarioUpdateCommand() *cobra.Command {
	var (
		cmd                              *cobra.Command
		title, description, scenarioType string
	)
	cmd = &cobra.Command{
		Use:   "update <id>",
		Short: "Change the title, description or type of a scenario",
		Args:  exactArgs(1),
		RunE: c.sessionRun(func(ctx context.Context, s *session, args []string) error {
			current, err := s.svc.GetScenario(ctx, args[0])
			if err != nil {
				return err
			}
			in := app.UpdateScenarioInput{ID: current.ID, Title: current.Title, Description: current.Description}
			flags := cmd.Flags()
			if flags.Changed("title") {
				in.Title = title
			}
			if flags.Changed("description") {
				in.Description = description
			}
			if flags.Changed("type") {
				if in.Type, err = domain.ParseScenarioType(scenarioType); err != nil {
					return err
				}
			}
			sc, err := s.svc.UpdateScenario(ctx, in)
			if err != nil {
				return err
			}
			return c.printScenario("updated", sc)
		}),
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "new title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	cmd.Flags().StringVar(&scenarioType, "type", "", "new type")
	return cmd
}

func (c *cli) scenarioStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Set a scenario status; the use case status is re-derived",
		Args:  exactArgs(2),
		RunE: c.sessionRun(func(ctx context.Context, s *session, args []string) error {
			status, err := domain.ParseStatus(args[1])
			if err != nil {
				return err
			}
			sc, err := s.svc.UpdateScenarioStatus(ctx, args[0], status)
			if err != nil {
				return err
			}
			return c.printScenario("updated", sc)
		}),
	}
}

func (c *cli) scenarioAssignCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "assign <id> [actor-id]",
		Short: "Set the scenario actor; without an actor id it is cleared",
		Args:  rangeArgs(1, 2),
		RunE: c.sessionRun(func(ctx context.Context, s *session, args []string) error {
			actorID := ""
			if len(args) == 2 {
				actorID = args[1]
			}
			sc, err := s.svc.AssignScenarioActor(ctx, args[0], actorID)
			if err != nil {
				return err
			}
			return c.printScenario("updated", sc)
		}),
	}
}

func (c *cli) scenarioConditionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "conditions <id> <pre|post> [text...]",
		Short: "Replace the scenario-specific preconditions or postconditions",
		Long: `conditions replaces the scenario's own preconditions or postconditions with the given texts. The use
case conditions are inherited separately and are shown first by show. Give no texts to clear the list.`,
		Args: minimumArgs(2),
		RunE: c.sessionRun(func(ctx context.Context, s *session, args []string) error {
			kind, err := parseConditionKind(args[1])
			if err != nil {
				return err
			}
			sc, err := s.svc.SetScenarioConditions(ctx, args[0], kind, args[2:])
			if err != nil {
				return err
			}
			return c.printScenario("updated", sc)
		}),
	}
}

func (c *cli) scenarioStepCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "step",
		Short: "Add, remove, reorder and replace scenario steps",
	}

	var (
		in       domain.StepInput
		position int
	)
	add := &cobra.Command{
		Use:   "add <scenario-id>",
		Short: "Insert a step; steps after it are renumbered",
		Args:  exactArgs(1),
		RunE: c.sessionRun(func(ctx context.Context, s *session, args []string) error {
			sc, err := s.svc.AddStep(ctx, args[0], in, position)
			if err != nil {
				return err
			}
			return c.printScenario("updated", sc)
		}),
	}
	add.Flags().StringVarP(&in.Description, "description", "d", "", "what happens in this step (required)")
	add.Flags().StringVar(&in.Action, "action", "", "short verb phrase")
	add.Flags().StringVarP(&in.ActorID, "actor", "a", "", "actor performing the step")
	add.Flags().StringVar(&in.Notes, "notes", "", "free-form notes")
	add.Flags().IntVar(&position, "at", 0, "1-based position (default append)")

	remove := &cobra.Command{
		Use:   "remove <scenario-id> <order>",
		Short: "Remove a step; later steps move up",
		Args:  exactArgs(2),
		RunE: c.sessionRun(func(ctx context.Context, s *session, args []string) error {
			order, err := positionArg("order", args[1])
			if err != nil {
				return err
			}
			sc, err := s.svc.RemoveStep(ctx, args[0], order)
			if err != nil {
				return err
			}
			return c.printScenario("updated", sc)
		}),
	}

	move := &cobra.Command{
		Use:   "move <scenario-id> <from> <to>",
		Short: "Move a step to another position",
		Args:  exactArgs(3),
		RunE: c.sessionRun(func(ctx context.Context, s *session, args []string) error {
			from, err := positionArg("from", args[1])
			if err != nil {
				return err
			}
			to, err := positionArg("to", args[2])
			if err != nil {
				return err
			}
			sc, err := s.svc.MoveStep(ctx, args[0], from, to)
			if err != nil {
				return err
			}
			return c.printScenario("updated", sc)
		}),
	}

	var setActor string
	set := &cobra.Command{
		Use:   "set <scenario-id> [description...]",
		Short: "Replace every step; each argument becomes one step",
		Long: `set replaces the step list of a scenario in one change. Every description argument becomes a step in
order, performed by --actor when given. Without descriptions the scenario is left with no steps.`,
		Args: minimumArgs(1),
		RunE: c.sessionRun(func(ctx context.Context, s *session, args []string) error {
			steps := make([]domain.StepInput, 0, len(args)-1)
			for _, description := range args[1:] {
				steps = append(steps, domain.StepInput{Description: description, ActorID: setActor})
			}
			sc, err := s.svc.SetSteps(ctx, args[0], steps)
			if err != nil {
				return err
			}
			return c.printScenario("updated", sc)
		}),
	}
	set.Flags().StringVarP(&setActor, "actor", "a", "", "actor performing every step")

	cmd.AddCommand(add, remove, move, set)
	return cmd
}

func (c *cli) scenarioDeleteCommand() *cobra.Command {
	var cascade bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a scenario; the use case status is re-derived",
		Args:  exactArgs(1),
		RunE: c.sessionRun(func(ctx context.Context, s *session, args []string) error {
			if err := s.svc.DeleteScenario(ctx, args[0], app.DeleteOptions{Cascade: cascade}); err != nil {
				return err
			}
			s.log.Info("scenario deleted", "id", args[0], "cascade", cascade)
			return c.printDeleted(args[0])
		}),
	}
	cmd.Flags().BoolVar(&cascade, "cascade", false, "also remove references pointing at the scenario")
	return cmd
}

func (c *cli) scenarioListCommand() *cobra.Command {
	var (
		filter app.ScenarioFilter
		status string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List scenarios, optionally by use case, actor or status",
		Args:  noArgs,
		RunE: c.sessionRun(func(ctx context.Context, s *session, _ []string) error {
			if strings.TrimSpace(status) != "" {
				var err error
				if filter.Status, err = domain.ParseStatus(status); err != nil {
					return err
				}
			}
			scenarios, err := s.svc.ListScenarios(ctx, filter)
			if err != nil {
				return err
			}
			if c.jsonOutput() {
				out := make([]app.SnapshotScenario, 0, len(scenarios))
				for _, sc := range scenarios {
					out = append(out, app.SnapshotScenarioFrom(sc))
				}
				return c.writeJSON(out)
			}
			if len(scenarios) == 0 {
				c.println("no scenarios")
				return nil
			}
			c.println(render.ScenarioTable(scenarios))
			return nil
		}),
	}
	cmd.Flags().StringVarP(&filter.UseCaseID, "use-case", "u", "", "only scenarios of this use case")
	cmd.Flags().StringVarP(&filter.ActorID, "actor", "a", "", "only scenarios where this actor is the primary or a step actor")
	cmd.Flags().StringVarP(&status, "status", "s", "", "only this status")
	return cmd
}

func (c *cli) printScenario(verb string, sc domain.Scenario) error {
	if c.jsonOutput() {
		return c.writeJSON(app.SnapshotScenarioFrom(sc))
	}
	c.printf("%s %s: %s [%s, %d steps]\n", verb, sc.ID, sc.Title, sc.Status, len(sc.Steps))
	return nil
}
