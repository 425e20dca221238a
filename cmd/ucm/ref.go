package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/evanschultz/ucm/internal/app"
	"github.com/evanschultz/ucm/internal/domain"
)

func (c *cli) refCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ref",
		Short: "Add and remove references between use cases and scenarios",
		Long: `References are directed edges from a use case or scenario to another use case or scenario.

Use case kinds: dependency, extension, inclusion, alternative (depends_on, extends, includes and
alternative_to are accepted as aliases). Scenario kinds: includes, extends, depends_on, alternative_to,
precedes. Dependency, extension and precedence edges may not form cycles.`,
	}
	cmd.AddCommand(c.refAddCommand(), c.refRemoveCommand())
	return cmd
}

// referenceOutput is the JSON form of one stored reference.
type referenceOutput struct {
	Source     string            `json:"source"`
	TargetType domain.TargetType `json:"target_type"`
	Target     string            `json:"target"`
	Kind       string            `json:"kind"`
	Note       string            `json:"note,omitempty"`
}

func (c *cli) refAddCommand() *cobra.Command {
	var in app.AddReferenceInput
	cmd := &cobra.Command{
		Use:   "add <source-id> <target-id>",
		Short: "Add a reference; dangling targets, self references and cycles are rejected",
		Args:  exactArgs(2),
		RunE: c.sessionRun(func(ctx context.Context, s *session, args []string) error {
			in.SourceID, in.TargetID = args[0], args[1]
			ref, err := s.svc.AddReference(ctx, in)
			if err != nil {
				return err
			}
			s.log.Info("reference added", "source", in.SourceID, "target", ref.TargetID, "kind", ref.Kind)
			if c.jsonOutput() {
				return c.writeJSON(referenceOutput{
					Source:     in.SourceID,
					TargetType: ref.TargetType,
					Target:     ref.TargetID,
					Kind:       string(ref.Kind),
					Note:       ref.Note,
				})
			}
			c.printf("added %s -[%s]-> %s\n", in.SourceID, ref.Kind, ref.TargetID)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&in.Kind, "kind", "k", "", "relationship kind (required)")
	cmd.Flags().StringVar(&in.Note, "note", "", "optional note")
	_ = cmd.MarkFlagRequired("kind")
	return cmd
}

func (c *cli) refRemoveCommand() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "remove <source-id> <target-id>",
		Short: "Remove a reference",
		Args:  exactArgs(2),
		RunE: c.sessionRun(func(ctx context.Context, s *session, args []string) error {
			if err := s.svc.RemoveReference(ctx, args[0], args[1], kind); err != nil {
				return err
			}
			s.log.Info("reference removed", "source", args[0], "target", args[1], "kind", kind)
			if c.jsonOutput() {
				return c.writeJSON(referenceOutput{Source: args[0], Target: args[1], Kind: kind})
			}
			c.printf("removed %s -[%s]-> %s\n", args[0], kind, args[1])
			return nil
		}),
	}
	cmd.Flags().StringVarP(&kind, "kind", "k", "", "relationship kind (required)")
	_ = cmd.MarkFlagRequired("kind")
	return cmd
}
