// Package platform resolves the per-user locations ucm uses outside a project.
package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Paths are the user-level locations. ConfigPath is layered under a project's .ucm/config.toml; LogDir is where
// user-scoped logs belong.
type Paths struct {
	ConfigPath string
	LogDir     string
}

// Options selects the app directory name. DevMode appends "-dev" so development builds keep separate files.
type Options struct {
	AppName string
	DevMode bool
}

// Resolve returns the paths for the running platform and user.
func Resolve(opts Options) (Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Paths{}, fmt.Errorf("user home dir: %w", err)
	}
	return For(runtime.GOOS, os.Getenv, home, opts)
}

// For computes the paths for goos from a home directory and an environment lookup.
//
// Linux and other unix systems follow the XDG base directories (config in XDG_CONFIG_HOME, logs in
// XDG_STATE_HOME); Windows uses APPDATA and LOCALAPPDATA; macOS uses Application Support and Library/Logs.
func For(goos string, getenv func(string) string, home string, opts Options) (Paths, error) {
	home = strings.TrimSpace(home)
	if home == "" {
		return Paths{}, errors.New("empty home dir")
	}
	if getenv == nil {
		getenv = func(string) string { return "" }
	}
	name := strings.TrimSpace(opts.AppName)
	if name == "" {
		name = "ucm"
	}
	if opts.DevMode {
		name += "-dev"
	}

	switch goos {
	case "windows":
		roaming := envDir(getenv, "APPDATA", filepath.Join(home, "AppData", "Roaming"))
		local := envDir(getenv, "LOCALAPPDATA", filepath.Join(home, "AppData", "Local"))
		return Paths{
			ConfigPath: filepath.Join(roaming, name, "config.toml"),
			LogDir:     filepath.Join(local, name, "log"),
		}, nil
	case "darwin":
		return Paths{
			ConfigPath: filepath.Join(home, "Library", "Application Support", name, "config.toml"),
			LogDir:     filepath.Join(home, "Library", "Logs", name),
		}, nil
	default:
		config := envDir(getenv, "XDG_CONFIG_HOME", filepath.Join(home, ".config"))
		state := envDir(getenv, "XDG_STATE_HOME", filepath.Join(home, ".local", "state"))
		return Paths{
			ConfigPath: filepath.Join(config, name, "config.toml"),
			LogDir:     filepath.Join(state, name, "log"),
		}, nil
	}
}

// envDir returns the directory named by key, or fallback when it is unset or relative.
func envDir(getenv func(string) string, key, fallback string) string {
	v := strings.TrimSpace(getenv(key))
	if v == "" || !isAbs(v) {
		return fallback
	}
	return v
}

// isAbs accepts both unix and drive-letter paths so Windows layouts resolve on any host.
func isAbs(p string) bool {
	if filepath.IsAbs(p) || strings.HasPrefix(p, "/") {
		return true
	}
	return len(p) >= 3 && p[1] == ':' && (p[2] == '\\' || p[2] == '/')
}
