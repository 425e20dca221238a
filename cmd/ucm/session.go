package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/evanschultz/ucm/internal/adapters/storage/filestore"
	"github.com/evanschultz/ucm/internal/adapters/storage/sqlite"
	"github.com/evanschultz/ucm/internal/app"
	"github.com/evanschultz/ucm/internal/config"
	"github.com/evanschultz/ucm/internal/platform"
)

// errNoProject reports a command run outside any initialized project.
var errNoProject = errors.New("no ucm project found (run `ucm init` first)")

// session is one opened project: resolved config, store, service and logger.
type session struct {
	root  string
	cfg   config.Config
	store app.Store
	svc   *app.Service
	log   *runtimeLogger
}

// Close closes the requested operation.
func (s *session) Close() error {
	var errs []error
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	errs = append(errs, s.log.Close())
	return errors.Join(errs...)
}

func (c *cli) devMode() bool {
	return c.v.GetBool("dev")
}

// projectFlag returns the --project value made absolute, or "" for the working directory.
func (c *cli) projectFlag() (string, error) {
	raw := strings.TrimSpace(c.v.GetString("project"))
	if raw == "" {
		return "", nil
	}
	abs, err := filepath.Abs(raw)
	if err != nil {
		return "", fmt.Errorf("resolve project path %q: %w", raw, err)
	}
	return abs, nil
}

// userPaths resolves the per-user config and log locations.
func (c *cli) userPaths() (platform.Paths, error) {
	return platform.Resolve(platform.Options{AppName: appName, DevMode: c.devMode()})
}

// loadConfig layers the user config, then the project config, then the --log-level override.
func (c *cli) loadConfig(root string) (config.Config, error) {
	paths, err := c.userPaths()
	if err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(paths.ConfigPath, config.Default(config.BackendTOML))
	if err != nil {
		return config.Config{}, fmt.Errorf("load user config %s: %w", paths.ConfigPath, err)
	}
	cfg, err = config.Load(config.PathIn(root), cfg)
	if err != nil {
		return config.Config{}, fmt.Errorf("load project config %s: %w", config.PathIn(root), err)
	}
	if level := strings.TrimSpace(c.v.GetString("log-level")); level != "" {
		cfg.Logging.Level = level
		if err := cfg.Validate(); err != nil {
			return config.Config{}, fmt.Errorf("%w: %v", errUsage, err)
		}
	}
	return cfg, nil
}

// openSession finds the project, loads its config and opens the configured backend.
func (c *cli) openSession() (*session, error) {
	start, err := c.projectFlag()
	if err != nil {
		return nil, err
	}
	root, ok := config.FindProjectRoot(start)
	if !ok {
		return nil, errNoProject
	}
	cfg, err := c.loadConfig(root)
	if err != nil {
		return nil, err
	}

	logger, err := newRuntimeLogger(c.stderr, appName, root, c.devMode(), cfg.Logging, c.now)
	if err != nil {
		return nil, err
	}
	location := cfg.ResolveBasePath(root)
	logger.Debug(
		"startup configuration resolved",
		"root", root,
		"backend", cfg.Storage.Backend,
		"base_path", location,
		"dev_mode", c.devMode(),
		"dev_log", logger.DevLogPath(),
	)

	logger.Debug("opening store", "backend", cfg.Storage.Backend, "path", location)
	store, err := openStore(cfg.Storage.Backend, location)
	if err != nil {
		logger.Error("open store failed", "backend", cfg.Storage.Backend, "path", location, "err", err)
		_ = logger.Close()
		return nil, err
	}
	svc, err := app.NewService(store, c.now, app.ServiceConfig{Identifiers: cfg.IdentConfig()})
	if err != nil {
		_ = store.Close()
		_ = logger.Close()
		return nil, err
	}
	return &session{root: root, cfg: cfg, store: store, svc: svc, log: logger}, nil
}

// openStore opens the backend named in the project config.
func openStore(backend config.Backend, location string) (app.Store, error) {
	switch backend {
	case config.BackendSQLite:
		store, err := sqlite.Open(location)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendTOML, "":
		store, err := filestore.Open(location)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", backend)
	}
}
