package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evanschultz/ucm/internal/app"
	"github.com/evanschultz/ucm/internal/domain"
	"github.com/evanschultz/ucm/internal/render"
)

func (c *cli) useCaseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "usecase",
		Aliases: []string{"uc"},
		Short:   "Create, change, list and delete use cases",
	}
	cmd.AddCommand(
		c.useCaseCreateCommand(),
		c.useCaseUpdateCommand(),
		c.useCaseDeleteCommand(),
		c.useCaseListCommand(),
		c.useCaseConditionCommand(),
	)
	return cmd
}

func (c *cli) useCaseCreateCommand() *cobra.Command {
	var (
		in       app.CreateUseCaseInput
		priority string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a use case; its identifier is allocated from the category",
		Args:  noArgs,
		RunE: c.sessionRun(func(ctx context.Context, s *session, _ []string) error {
			if strings.TrimSpace(priority) != "" {
				p, err := domain.ParsePriority(priority)
				if err != nil {
					return err
				}
				in.Priority = p
			}
			uc, err := s.svc.CreateUseCase(ctx, in)
			if err != nil {
				return err
			}
			s.log.Info("use case created", "id", uc.ID, "category", uc.Category)
			return c.printUseCase("created", uc)
		}),
	}
	flags := cmd.Flags()
	flags.StringVarP(&in.Title, "title", "t", "", "use case title")
	flags.StringVarP(&in.Category, "category", "c", "", "category; the identifier token derives from it")
	flags.StringVarP(&priority, "priority", "p", "", "low, medium, high or critical (default medium)")
	flags.StringVarP(&in.Description, "description", "d", "", "free-form description")
	flags.StringArrayVar(&in.Preconditions, "pre", nil, "precondition (repeatable)")
	flags.StringArrayVar(&in.Postconditions, "post", nil, "postcondition (repeatable)")
	return cmd
}

func (c *cli) useCaseUpdateCommand() *cobra.Command {
	var (
		cmd                          *cobra.Command
		title, description, priority string
	)
	cmd = &cobra.Command{
		Use:   "update <id>",
		Short: "Change the title, description or priority of a use case",
		Args:  exactArgs(1),
		RunE: c.sessionRun(func(ctx context.Context, s *session, args []string) error {
			current, err := s.svc.GetUseCase(ctx, args[0])
			if err != nil {
				return err
			}
			in := app.UpdateUseCaseInput{ID: current.ID, Title: current.Title, Description: current.Description}
			flags := cmd.Flags()
			if flags.Changed("title") {
				in.Title = title
			}
			if flags.Changed("description") {
				in.Description = description
			}
			if flags.Changed("priority") {
				p, err := domain.ParsePriority(priority)
				if err != nil {
					return err
				}
				in.Priority = p
			}
			uc, err := s.svc.UpdateUseCase(ctx, in)
			if err != nil {
				return err
			}
			return c.printUseCase("updated", uc)
		}),
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "new title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "new priority")
	return cmd
}

func (c *cli) useCaseDeleteCommand() *cobra.Command {
	var cascade bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a use case and its scenarios",
		Long: `delete removes a use case together with every scenario it owns. References from other use cases or
scenarios block the delete unless --cascade is given, which removes those references too.`,
		Args: exactArgs(1),
		RunE: c.sessionRun(func(ctx context.Context, s *session, args []string) error {
			if err := s.svc.DeleteUseCase(ctx, args[0], app.DeleteOptions{Cascade: cascade}); err != nil {
				return err
			}
			s.log.Info("use case deleted", "id", args[0], "cascade", cascade)
			return c.printDeleted(args[0])
		}),
	}
	cmd.Flags().BoolVar(&cascade, "cascade", false, "also remove references pointing at the deleted entities")
	return cmd
}

func (c *cli) useCaseListCommand() *cobra.Command {
	var category, status, actor string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List use cases, optionally by category, status or actor",
		Args:  noArgs,
		RunE: c.sessionRun(func(ctx context.Context, s *session, _ []string) error {
			var (
				useCases []domain.UseCase
				err      error
			)
			if strings.TrimSpace(actor) != "" {
				useCases, err = s.svc.FindUseCasesReferencingActor(ctx, actor)
			} else {
				filter := app.UseCaseFilter{Category: category}
				if strings.TrimSpace(status) != "" {
					if filter.Status, err = domain.ParseStatus(status); err != nil {
						return err
					}
				}
				useCases, err = s.svc.ListUseCases(ctx, filter)
			}
			if err != nil {
				return err
			}

			if c.jsonOutput() {
				out := make([]app.SnapshotUseCase, 0, len(useCases))
				for _, uc := range useCases {
					out = append(out, app.SnapshotUseCaseFrom(uc))
				}
				return c.writeJSON(out)
			}
			if len(useCases) == 0 {
				c.println("no use cases")
				return nil
			}
			c.println(render.UseCaseTable(useCases))
			return nil
		}),
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "only this category (case-insensitive)")
	cmd.Flags().StringVarP(&status, "status", "s", "", "only this derived status")
	cmd.Flags().StringVarP(&actor, "actor", "a", "", "only use cases with a scenario or step naming this actor")
	return cmd
}

func (c *cli) useCaseConditionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "condition",
		Short: "Add or remove use case preconditions and postconditions",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "add <id> <pre|post> <text>",
		Short: "Append a condition",
		Args:  exactArgs(3),
		RunE: c.sessionRun(func(ctx context.Context, s *session, args []string) error {
			kind, err := parseConditionKind(args[1])
			if err != nil {
				return err
			}
			uc, err := s.svc.AddCondition(ctx, args[0], kind, args[2])
			if err != nil {
				return err
			}
			return c.printUseCase("updated", uc)
		}),
	}, &cobra.Command{
		Use:   "remove <id> <pre|post> <position>",
		Short: "Remove the condition at a 1-based position",
		Args:  exactArgs(3),
		RunE: c.sessionRun(func(ctx context.Context, s *session, args []string) error {
			kind, err := parseConditionKind(args[1])
			if err != nil {
				return err
			}
			position, err := positionArg("position", args[2])
			if err != nil {
				return err
			}
			uc, err := s.svc.RemoveCondition(ctx, args[0], kind, position)
			if err != nil {
				return err
			}
			return c.printUseCase("updated", uc)
		}),
	})
	return cmd
}

// parseConditionKind accepts pre/post and their long forms.
func parseConditionKind(raw string) (domain.ConditionKind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pre", "precondition", "preconditions":
		return domain.ConditionPre, nil
	case "post", "postcondition", "postconditions":
		return domain.ConditionPost, nil
	}
	return "", fmt.Errorf("%w: condition kind must be pre or post, got %q", domain.ErrInvalidCondition, raw)
}

func (c *cli) printUseCase(verb string, uc domain.UseCase) error {
	if c.jsonOutput() {
		return c.writeJSON(app.SnapshotUseCaseFrom(uc))
	}
	c.printf("%s %s: %s [%s]\n", verb, uc.ID, uc.Title, uc.Status)
	return nil
}

// deleteResult is the JSON form of a successful delete.
type deleteResult struct {
	Deleted string   `json:"deleted"`
	Cleared []string `json:"cleared_scenarios,omitempty"`
}

func (c *cli) printDeleted(id string, cleared ...string) error {
	if c.jsonOutput() {
		return c.writeJSON(deleteResult{Deleted: id, Cleared: cleared})
	}
	c.printf("deleted %s\n", id)
	for _, scID := range cleared {
		c.printf("cleared actor from %s\n", scID)
	}
	return nil
}
