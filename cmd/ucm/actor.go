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

func (c *cli) actorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "actor",
		Short: "Manage personas and system actors",
	}
	cmd.AddCommand(
		c.actorAddCommand(),
		c.actorUpdateCommand(),
		c.actorDeleteCommand(),
		c.actorListCommand(),
	)
	return cmd
}

// actorFlags binds the profile flags shared by add and update.
type actorFlags struct {
	name, emoji           string
	role, background      string
	education, experience string
	motivation            string
	systemType            string
	description           string
}

func (f *actorFlags) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.name, "name", "n", "", "display name")
	flags.StringVar(&f.emoji, "emoji", "", "emoji shown next to the name")
	flags.StringVar(&f.role, "role", "", "persona role")
	flags.StringVar(&f.background, "background", "", "persona background")
	flags.StringVar(&f.education, "education", "", "persona education")
	flags.StringVar(&f.experience, "experience", "", "persona technical experience")
	flags.StringVar(&f.motivation, "motivation", "", "persona motivation")
	flags.StringVar(&f.systemType, "system-type", "", "system actor type: system, database or external_service")
	flags.StringVarP(&f.description, "description", "d", "", "system actor description")
}

// apply overlays the flags the user set onto an actor's current values.
func (f *actorFlags) apply(cmd *cobra.Command, in *app.UpdateActorInput) error {
	flags := cmd.Flags()
	set := func(name string, dst *string, value string) {
		if flags.Changed(name) {
			*dst = value
		}
	}
	set("name", &in.Name, f.name)
	set("emoji", &in.Emoji, f.emoji)
	set("role", &in.Persona.Role, f.role)
	set("background", &in.Persona.Background, f.background)
	set("education", &in.Persona.Education, f.education)
	set("experience", &in.Persona.TechnicalExperience, f.experience)
	set("motivation", &in.Persona.Motivation, f.motivation)
	set("description", &in.Profile.Description, f.description)
	if flags.Changed("system-type") {
		systemType, err := domain.ParseSystemType(f.systemType)
		if err != nil {
			return err
		}
		in.Profile.Type = systemType
	}
	return nil
}

func (c *cli) actorAddCommand() *cobra.Command {
	var (
		cmd   *cobra.Command
		kind  string
		flags actorFlags
	)
	cmd = &cobra.Command{
		Use:   "add <id>",
		Short: "Add a persona or system actor with a lowercase kebab-case id",
		Args:  exactArgs(1),
		RunE: c.sessionRun(func(ctx context.Context, s *session, args []string) error {
			actorKind, err := parseActorKind(kind)
			if err != nil {
				return err
			}
			in := app.UpdateActorInput{ID: args[0], Name: args[0]}
			if actorKind == domain.ActorSystem {
				in.Profile.Type = domain.SystemTypeSystem
			}
			if err := flags.apply(cmd, &in); err != nil {
				return err
			}

			var actor domain.Actor
			switch actorKind {
			case domain.ActorSystem:
				actor, err = s.svc.CreateSystemActor(ctx, app.CreateSystemActorInput{
					ID: in.ID, Name: in.Name, Emoji: in.Emoji, Profile: in.Profile,
				})
			default:
				actor, err = s.svc.CreatePersona(ctx, app.CreatePersonaInput{
					ID: in.ID, Name: in.Name, Emoji: in.Emoji, Persona: in.Persona,
				})
			}
			if err != nil {
				return err
			}
			s.log.Info("actor created", "id", actor.ID, "kind", actor.Kind)
			return c.printActor("created", actor)
		}),
	}
	cmd.Flags().StringVarP(&kind, "kind", "k", string(domain.ActorPersona), "persona or system")
	flags.bind(cmd)
	return cmd
}

func (c *cli) actorUpdateCommand() *cobra.Command {
	var (
		cmd   *cobra.Command
		flags actorFlags
	)
	cmd = &cobra.Command{
		Use:   "update <id>",
		Short: "Change an actor's name, emoji or profile; the kind is fixed",
		Args:  exactArgs(1),
		RunE: c.sessionRun(func(ctx context.Context, s *session, args []string) error {
			current, err := s.svc.GetActor(ctx, args[0])
			if err != nil {
				return err
			}
			in := app.UpdateActorInput{
				ID:      current.ID,
				Name:    current.Name,
				Emoji:   current.Emoji,
				Persona: current.Persona,
				Profile: current.System,
			}
			if err := flags.apply(cmd, &in); err != nil {
				return err
			}
			actor, err := s.svc.UpdateActor(ctx, in)
			if err != nil {
				return err
			}
			return c.printActor("updated", actor)
		}),
	}
	flags.bind(cmd)
	return cmd
}

func (c *cli) actorDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an actor and clear it from every scenario and step",
		Args:  exactArgs(1),
		RunE: c.sessionRun(func(ctx context.Context, s *session, args []string) error {
			cleared, err := s.svc.DeleteActor(ctx, args[0])
			if err != nil {
				return err
			}
			s.log.Info("actor deleted", "id", args[0], "cleared_scenarios", len(cleared))
			return c.printDeleted(args[0], cleared...)
		}),
	}
}

func (c *cli) actorListCommand() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List actors, optionally by kind",
		Args:  noArgs,
		RunE: c.sessionRun(func(ctx context.Context, s *session, _ []string) error {
			var filter app.ActorFilter
			if strings.TrimSpace(kind) != "" {
				actorKind, err := parseActorKind(kind)
				if err != nil {
					return err
				}
				filter.Kind = actorKind
			}
			actors, err := s.svc.ListActors(ctx, filter)
			if err != nil {
				return err
			}
			if c.jsonOutput() {
				out := make([]app.SnapshotActor, 0, len(actors))
				for _, actor := range actors {
					out = append(out, app.SnapshotActorFrom(actor))
				}
				return c.writeJSON(out)
			}
			if len(actors) == 0 {
				c.println("no actors")
				return nil
			}
			c.println(render.ActorTable(actors))
			return nil
		}),
	}
	cmd.Flags().StringVarP(&kind, "kind", "k", "", "only persona or system actors")
	return cmd
}

func parseActorKind(raw string) (domain.ActorKind, error) {
	switch kind := domain.ActorKind(strings.ToLower(strings.TrimSpace(raw))); kind {
	case domain.ActorPersona, domain.ActorSystem:
		return kind, nil
	}
	return "", fmt.Errorf("%w: %q", domain.ErrInvalidActorKind, raw)
}

func (c *cli) printActor(verb string, actor domain.Actor) error {
	if c.jsonOutput() {
		return c.writeJSON(app.SnapshotActorFrom(actor))
	}
	c.printf("%s %s %s (%s)\n", verb, actor.Kind, actor.ID, actor.Name)
	return nil
}
