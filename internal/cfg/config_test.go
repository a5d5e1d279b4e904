package cfg

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("lists and log", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, `
[[lists]]
name = "ads"
path = "ads.txt"
enabled = true

[[lists]]
name = "off"
path = "/abs/off.txt"
enabled = false

[[lists]]
path = "/abs/unnamed.txt"
enabled = true

[log]
file = "/tmp/zenfilter.log"
max_size_mb = 5
compress = true
`)
		c, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if c.File() != path {
			t.Errorf("File() = %q, want %q", c.File(), path)
		}
		if len(c.Lists) != 3 {
			t.Fatalf("len(Lists) = %d, want 3", len(c.Lists))
		}

		enabled := c.EnabledLists()
		want := []FilterList{
			{Name: "ads", Path: filepath.Join(filepath.Dir(path), "ads.txt"), Enabled: true},
			{Name: "/abs/unnamed.txt", Path: "/abs/unnamed.txt", Enabled: true},
		}
		if len(enabled) != len(want) {
			t.Fatalf("EnabledLists() = %v, want %v", enabled, want)
		}
		for i := range want {
			if enabled[i] != want[i] {
				t.Errorf("EnabledLists()[%d] = %v, want %v", i, enabled[i], want[i])
			}
		}

		lc := c.Logger()
		if lc.File != "/tmp/zenfilter.log" || lc.MaxSizeMB != 5 || !lc.Compress {
			t.Errorf("Logger() = %+v", lc)
		}
		if lc.MaxBackups != 3 || lc.MaxAgeDays != 28 {
			t.Errorf("Logger() = %+v, want default backups and age", lc)
		}
	})

	t.Run("default config", func(t *testing.T) {
		t.Parallel()

		c, err := Load(writeConfig(t, DefaultConfig))
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got := len(c.EnabledLists()); got != 1 {
			t.Errorf("len(EnabledLists()) = %d, want 1", got)
		}
		if c.Log.MaxSizeMB != 10 {
			t.Errorf("Log.MaxSizeMB = %d, want 10", c.Log.MaxSizeMB)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name    string
			content string
		}{
			{"syntax", "[[lists]\n"},
			{"empty path", "[[lists]]\nname = \"a\"\n"},
			{"duplicate name", "[[lists]]\nname = \"a\"\npath = \"a\"\n[[lists]]\nname = \"a\"\npath = \"b\"\n"},
			{"negative limit", "[log]\nmax_backups = -1\n"},
		}

		for _, tt := range tests {
			tt := tt
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				if _, err := Load(writeConfig(t, tt.content)); err == nil {
					t.Errorf("Load() error = nil, want error")
				}
			})
		}
	})

	t.Run("missing explicit file", func(t *testing.T) {
		t.Parallel()

		if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
			t.Error("Load() error = nil, want error")
		}
	})
}

func TestLoadWithoutConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("LOCALAPPDATA", t.TempDir())

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.File() != "" {
		t.Errorf("File() = %q, want empty", c.File())
	}
	if len(c.EnabledLists()) != 0 {
		t.Errorf("EnabledLists() = %v, want none", c.EnabledLists())
	}
	if c.Log.MaxSizeMB != 10 {
		t.Errorf("Log.MaxSizeMB = %d, want 10", c.Log.MaxSizeMB)
	}
}

func TestWriteDefault(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if string(data) != DefaultConfig {
		t.Error("written config differs from DefaultConfig")
	}

	if err := WriteDefault(path); !errors.Is(err, ErrConfigExists) {
		t.Errorf("second WriteDefault() error = %v, want %v", err, ErrConfigExists)
	}
}
