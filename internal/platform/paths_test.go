package platform

import (
	"path/filepath"
	"testing"
)

func envOf(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestFor(t *testing.T) {
	cases := []struct {
		name       string
		goos       string
		env        map[string]string
		home       string
		opts       Options
		wantConfig string
		wantLog    string
	}{
		{
			name:       "linux xdg",
			goos:       "linux",
			env:        map[string]string{"XDG_CONFIG_HOME": "/xdg/config", "XDG_STATE_HOME": "/xdg/state"},
			home:       "/home/me",
			opts:       Options{AppName: "ucm"},
			wantConfig: filepath.Join("/xdg/config", "ucm", "config.toml"),
			wantLog:    filepath.Join("/xdg/state", "ucm", "log"),
		},
		{
			name:       "linux defaults",
			goos:       "linux",
			home:       "/home/me",
			opts:       Options{AppName: "ucm"},
			wantConfig: filepath.Join("/home/me", ".config", "ucm", "config.toml"),
			wantLog:    filepath.Join("/home/me", ".local", "state", "ucm", "log"),
		},
		{
			name:       "relative xdg ignored",
			goos:       "freebsd",
			env:        map[string]string{"XDG_CONFIG_HOME": "rel/config"},
			home:       "/home/me",
			opts:       Options{AppName: "ucm"},
			wantConfig: filepath.Join("/home/me", ".config", "ucm", "config.toml"),
			wantLog:    filepath.Join("/home/me", ".local", "state", "ucm", "log"),
		},
		{
			name: "windows app data",
			goos: "windows",
			env: map[string]string{
				"APPDATA":      `C:\Users\me\AppData\Roaming`,
				"LOCALAPPDATA": `C:\Users\me\AppData\Local`,
			},
			home:       `C:\Users\me`,
			opts:       Options{AppName: "ucm"},
			wantConfig: filepath.Join(`C:\Users\me\AppData\Roaming`, "ucm", "config.toml"),
			wantLog:    filepath.Join(`C:\Users\me\AppData\Local`, "ucm", "log"),
		},
		{
			name:       "darwin ignores xdg",
			goos:       "darwin",
			env:        map[string]string{"XDG_CONFIG_HOME": "/ignored"},
			home:       "/Users/me",
			opts:       Options{AppName: "ucm"},
			wantConfig: filepath.Join("/Users/me", "Library", "Application Support", "ucm", "config.toml"),
			wantLog:    filepath.Join("/Users/me", "Library", "Logs", "ucm"),
		},
		{
			name:       "dev mode suffix",
			goos:       "linux",
			home:       "/home/me",
			opts:       Options{AppName: "ucm", DevMode: true},
			wantConfig: filepath.Join("/home/me", ".config", "ucm-dev", "config.toml"),
			wantLog:    filepath.Join("/home/me", ".local", "state", "ucm-dev", "log"),
		},
		{
			name:       "blank app name",
			goos:       "linux",
			home:       "/home/me",
			wantConfig: filepath.Join("/home/me", ".config", "ucm", "config.toml"),
			wantLog:    filepath.Join("/home/me", ".local", "state", "ucm", "log"),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := For(tc.goos, envOf(tc.env), tc.home, tc.opts)
			if err != nil {
				t.Fatalf("For() error = %v", err)
			}
			if p.ConfigPath != tc.wantConfig {
				t.Fatalf("config path = %q, want %q", p.ConfigPath, tc.wantConfig)
			}
			if p.LogDir != tc.wantLog {
				t.Fatalf("log dir = %q, want %q", p.LogDir, tc.wantLog)
			}
		})
	}
}

func TestForRequiresHome(t *testing.T) {
	if _, err := For("linux", nil, " ", Options{}); err == nil {
		t.Fatal("expected error for empty home")
	}
}
