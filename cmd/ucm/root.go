package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// appName names the binary in log prefixes, dev log files and user paths.
const appName = "ucm"

// errUsage marks malformed command lines.
var errUsage = errors.New("invalid usage")

// persistentFlags lists the root flags mirrored into viper, and so into UCM_* environment variables.
var persistentFlags = []string{"project", "json", "dev", "log-level", "style", "width"}

func (c *cli) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Keep use cases, scenarios and actors consistent across TOML files or SQLite",
		Long: `ucm manages use cases, their scenarios and the actors that take part in them.

Identifiers are allocated from the use case category, use case status is derived from its scenarios,
and references between entities are checked for dangling targets and cycles on every change.`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringP("project", "C", "", "project root (defaults to the nearest directory holding .ucm/config.toml)")
	flags.Bool("json", false, "print JSON instead of text")
	flags.Bool("dev", version == "dev", "dev mode: <app>-dev user paths and the dev log file")
	flags.String("log-level", "", "override the configured log level (debug, info, warn, error)")
	flags.String("style", "auto", "glamour style for rendered markdown (auto, dark, light, notty)")
	flags.Int("width", 100, "wrap width for rendered markdown")
	for _, name := range persistentFlags {
		_ = c.v.BindPFlag(name, flags.Lookup(name))
	}

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", errUsage, err)
	})

	root.AddGroup(
		&cobra.Group{ID: "project", Title: "Project"},
		&cobra.Group{ID: "entities", Title: "Entities"},
	)
	for _, cmd := range []*cobra.Command{c.initCommand(), c.checkCommand(), c.exportCommand(), c.importCommand(), c.pathsCommand()} {
		cmd.GroupID = "project"
		root.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{c.useCaseCommand(), c.scenarioCommand(), c.actorCommand(), c.refCommand(), c.showCommand()} {
		cmd.GroupID = "entities"
		root.AddCommand(cmd)
	}
	return root
}

// sessionRun adapts a session-backed handler into a cobra RunE.
func (c *cli) sessionRun(fn func(ctx context.Context, s *session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := c.openSession()
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := s.Close(); closeErr != nil {
				s.log.Warn("close session failed", "err", closeErr)
			}
		}()

		name := cmd.CommandPath()
		s.log.Debug("command flow start", "command", name)
		if err := fn(cmd.Context(), s, args); err != nil {
			s.log.Error("command flow failed", "command", name, "err", err)
			return err
		}
		s.log.Debug("command flow complete", "command", name)
		return nil
	}
}

func (c *cli) jsonOutput() bool {
	return c.v.GetBool("json")
}

// writeJSON prints v as indented JSON followed by a newline.
func (c *cli) writeJSON(v any) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json output: %w", err)
	}
	return nil
}

func (c *cli) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.stdout, format, args...)
}

func (c *cli) println(text string) {
	_, _ = fmt.Fprintln(c.stdout, text)
}

// exactArgs is cobra.ExactArgs reporting errUsage.
func exactArgs(n int) cobra.PositionalArgs {
	return usageArgs(cobra.ExactArgs(n))
}

// rangeArgs is cobra.RangeArgs reporting errUsage.
func rangeArgs(lo, hi int) cobra.PositionalArgs {
	return usageArgs(cobra.RangeArgs(lo, hi))
}

// minimumArgs is cobra.MinimumNArgs reporting errUsage.
func minimumArgs(n int) cobra.PositionalArgs {
	return usageArgs(cobra.MinimumNArgs(n))
}

func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		return nil
	}
}

// noArgs is cobra.NoArgs reporting errUsage.
func noArgs(cmd *cobra.Command, args []string) error {
	return usageArgs(cobra.NoArgs)(cmd, args)
}

// positionArg parses a 1-based position argument.
func positionArg(name, raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %s must be a positive integer, got %q", errUsage, name, raw)
	}
	return n, nil
}
