package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evanschultz/ucm/internal/app"
	"github.com/evanschultz/ucm/internal/config"
	"github.com/evanschultz/ucm/internal/refgraph"
)

// initResult is the JSON form of a successful init.
type initResult struct {
	Root     string         `json:"root"`
	Config   string         `json:"config"`
	Backend  config.Backend `json:"backend"`
	BasePath string         `json:"base_path"`
}

func (c *cli) initCommand() *cobra.Command {
	var (
		backend  string
		basePath string
		prefix   string
		strategy string
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create .ucm/config.toml and the storage layout in the project directory",
		Long: `init writes .ucm/config.toml into the project directory (--project or the working directory)
and creates the empty store. The backend cannot be changed afterwards; use export and import to move
a project to the other backend.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			root, err := c.projectFlag()
			if err != nil {
				return err
			}
			if root == "" {
				if root, err = os.Getwd(); err != nil {
					return fmt.Errorf("resolve working dir: %w", err)
				}
			}
			path := config.PathIn(root)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("project already initialized: %s", path)
			}

			cfg := config.Default(config.Backend(strings.ToLower(strings.TrimSpace(backend))))
			if v := strings.TrimSpace(basePath); v != "" {
				cfg.Storage.BasePath = v
			}
			if v := strings.TrimSpace(prefix); v != "" {
				cfg.Identifiers.Prefix = v
			}
			if v := strings.TrimSpace(strategy); v != "" {
				cfg.Identifiers.TokenStrategy = v
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("%w: %w", errUsage, err)
			}
			if err := config.Write(path, cfg); err != nil {
				return err
			}

			location := cfg.ResolveBasePath(root)
			store, err := openStore(cfg.Storage.Backend, location)
			if err != nil {
				return err
			}
			if err := store.Close(); err != nil {
				return err
			}

			if c.jsonOutput() {
				return c.writeJSON(initResult{Root: root, Config: path, Backend: cfg.Storage.Backend, BasePath: location})
			}
			c.printf("initialized %s project in %s\n", cfg.Storage.Backend, root)
			c.printf("config: %s\nstorage: %s\n", path, location)
			return nil
		},
	}
	cmd.Flags().StringVar(&backend, "backend", string(config.BackendTOML), "storage backend: toml or sqlite")
	cmd.Flags().StringVar(&basePath, "base-path", "", "storage location relative to the project root (default docs/use-cases or .ucm/ucm.db)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "use case identifier prefix (default UC)")
	cmd.Flags().StringVar(&strategy, "token-strategy", "", "category token collision strategy: extend or strict")
	return cmd
}

// pathsResult is the JSON form of the paths command.
type pathsResult struct {
	App           string `json:"app"`
	DevMode       bool   `json:"dev_mode"`
	UserConfig    string `json:"user_config"`
	UserLogDir    string `json:"user_log_dir"`
	ProjectRoot   string `json:"project_root,omitempty"`
	ProjectConfig string `json:"project_config,omitempty"`
	Storage       string `json:"storage,omitempty"`
}

func (c *cli) pathsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print the resolved config, log and storage locations",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths, err := c.userPaths()
			if err != nil {
				return err
			}
			out := pathsResult{
				App:        appName,
				DevMode:    c.devMode(),
				UserConfig: paths.ConfigPath,
				UserLogDir: paths.LogDir,
			}
			start, err := c.projectFlag()
			if err != nil {
				return err
			}
			if root, ok := config.FindProjectRoot(start); ok {
				cfg, err := c.loadConfig(root)
				if err != nil {
					return err
				}
				out.ProjectRoot = root
				out.ProjectConfig = config.PathIn(root)
				out.Storage = cfg.ResolveBasePath(root)
			}

			if c.jsonOutput() {
				return c.writeJSON(out)
			}
			c.printf("app: %s\n", out.App)
			c.printf("dev_mode: %t\n", out.DevMode)
			c.printf("user_config: %s\n", out.UserConfig)
			c.printf("user_log_dir: %s\n", out.UserLogDir)
			if out.ProjectRoot != "" {
				c.printf("project_root: %s\n", out.ProjectRoot)
				c.printf("project_config: %s\n", out.ProjectConfig)
				c.printf("storage: %s\n", out.Storage)
			}
			return nil
		},
	}
}

func (c *cli) exportCommand() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a JSON snapshot of the whole project",
		Args:  noArgs,
		RunE: c.sessionRun(func(ctx context.Context, s *session, _ []string) error {
			snap, err := s.svc.ExportSnapshot(ctx)
			if err != nil {
				return err
			}
			encoded, err := json.MarshalIndent(snap, "", "  ")
			if err != nil {
				return fmt.Errorf("encode snapshot: %w", err)
			}
			encoded = append(encoded, '\n')

			outPath = strings.TrimSpace(outPath)
			if outPath == "" || outPath == "-" {
				_, err = c.stdout.Write(encoded)
				return err
			}
			if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
				return fmt.Errorf("create export dir: %w", err)
			}
			if err := os.WriteFile(outPath, encoded, 0o644); err != nil {
				return fmt.Errorf("write export file: %w", err)
			}
			s.log.Info("snapshot exported", "path", outPath, "use_cases", len(snap.UseCases), "scenarios", len(snap.Scenarios), "actors", len(snap.Actors))
			return nil
		}),
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	return cmd
}

// importResult is the JSON form of a successful import.
type importResult struct {
	UseCases  int `json:"use_cases"`
	Scenarios int `json:"scenarios"`
	Actors    int `json:"actors"`
}

func (c *cli) importCommand() *cobra.Command {
	var inPath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load a JSON snapshot into an empty project",
		Args:  noArgs,
		RunE: c.sessionRun(func(ctx context.Context, s *session, _ []string) error {
			content, err := c.readInput(inPath)
			if err != nil {
				return err
			}
			var snap app.Snapshot
			if err := json.Unmarshal(content, &snap); err != nil {
				return fmt.Errorf("%w: decode snapshot: %v", errUsage, err)
			}
			if err := s.svc.ImportSnapshot(ctx, snap); err != nil {
				return err
			}
			out := importResult{UseCases: len(snap.UseCases), Scenarios: len(snap.Scenarios), Actors: len(snap.Actors)}
			s.log.Info("snapshot imported", "use_cases", out.UseCases, "scenarios", out.Scenarios, "actors", out.Actors)
			if c.jsonOutput() {
				return c.writeJSON(out)
			}
			c.printf("imported %d use cases, %d scenarios, %d actors\n", out.UseCases, out.Scenarios, out.Actors)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&inPath, "in", "i", "", "snapshot file (required; - reads stdin)")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}

// readInput reads path, or stdin for "-".
func (c *cli) readInput(path string) ([]byte, error) {
	path = strings.TrimSpace(path)
	if path == "-" {
		content, err := io.ReadAll(c.stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return content, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read import file: %w", err)
	}
	return content, nil
}

// problemOutput is the JSON form of one reference problem.
type problemOutput struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Kind   string `json:"kind"`
	Error  string `json:"error"`
}

// watcher is implemented by backends that can follow external edits.
type watcher interface {
	Watch(ctx context.Context, onChange func(error)) error
}

func (c *cli) checkCommand() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Scan every reference for dangling targets, self references and cycles",
		Long: `check validates the whole reference graph. With --watch on the toml backend it re-runs after every
external edit to the files until interrupted.`,
		Args: noArgs,
		RunE: c.sessionRun(func(ctx context.Context, s *session, _ []string) error {
			problems, err := c.reportProblems(ctx, s)
			if err != nil {
				return err
			}
			if !watch {
				if len(problems) > 0 {
					return fmt.Errorf("%d reference problem(s): %w", len(problems), problems[0].Err)
				}
				return nil
			}

			w, ok := s.store.(watcher)
			if !ok {
				return fmt.Errorf("%w: --watch needs the toml backend, project uses %s", errUsage, s.cfg.Storage.Backend)
			}
			s.log.Info("watching for changes", "path", s.cfg.ResolveBasePath(s.root))
			return w.Watch(ctx, func(reloadErr error) {
				if reloadErr != nil {
					s.log.Error("reload failed", "err", reloadErr)
					return
				}
				if _, err := c.reportProblems(ctx, s); err != nil {
					s.log.Error("check failed", "err", err)
				}
			})
		}),
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "re-check after external edits (toml backend)")
	return cmd
}

// reportProblems runs one integrity pass and prints the result.
func (c *cli) reportProblems(ctx context.Context, s *session) ([]refgraph.Problem, error) {
	problems, err := s.svc.CheckReferences(ctx)
	if err != nil {
		return nil, err
	}
	if c.jsonOutput() {
		out := make([]problemOutput, 0, len(problems))
		for _, p := range problems {
			out = append(out, problemOutput{
				Source: p.Edge.Source,
				Target: p.Edge.Target,
				Kind:   string(p.Edge.Kind),
				Error:  problemText(p.Err),
			})
		}
		return problems, c.writeJSON(out)
	}
	if len(problems) == 0 {
		c.println("references ok")
		return problems, nil
	}
	for _, p := range problems {
		c.printf("%s -[%s]-> %s: %s\n", p.Edge.Source, p.Edge.Kind, p.Edge.Target, problemText(p.Err))
	}
	return problems, nil
}

// problemText names the problem kind without repeating the edge.
func problemText(err error) string {
	for _, known := range []error{app.ErrDanglingTarget, app.ErrSelfReference, app.ErrCycleDetected} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return err.Error()
}
