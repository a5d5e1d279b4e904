// Package cfg loads the command-line configuration.
package cfg

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/anfragment/zenfilter/internal/logger"
)

const configFileName = "config.toml"

// DefaultConfig is written by WriteDefault.
const DefaultConfig = `# zenfilter configuration

# Filter lists are read from local files. Relative paths are resolved
# against the directory of this file.
[[lists]]
name = "EasyList"
path = "lists/easylist.txt"
enabled = true

[[lists]]
name = "EasyPrivacy"
path = "lists/easyprivacy.txt"
enabled = false

[log]
# An empty file selects the default logs directory.
file = ""
max_size_mb = 10
max_backups = 3
max_age_days = 28
compress = false
`

// ErrConfigExists is returned by WriteDefault when the target file already exists.
var ErrConfigExists = errors.New("config file already exists")

// FilterList is a filter list file.
type FilterList struct {
	Name    string `mapstructure:"name"`
	Path    string `mapstructure:"path"`
	Enabled bool   `mapstructure:"enabled"`
}

// LogConfig configures the rotating log file.
type LogConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// Config is the command-line configuration.
type Config struct {
	Lists []FilterList `mapstructure:"lists"`
	Log   LogConfig    `mapstructure:"log"`

	// file is the path of the file the config was read from, if any.
	file string
}

// Load reads the config from path. With an empty path, config.toml is looked up in the
// user config directory and then in the working directory, and a missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("stat config: %w", err)
		}
		v.SetConfigFile(path)
		v.SetConfigType("toml")
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		if dir, err := getConfigDir(); err == nil {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath(".")
	}
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	c.file = v.ConfigFileUsed()

	if err := c.validate(); err != nil {
		return nil, err
	}
	c.resolvePaths()

	return &c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.compress", false)
}

func (c *Config) validate() error {
	seen := make(map[string]struct{}, len(c.Lists))
	for i, list := range c.Lists {
		if list.Path == "" {
			return fmt.Errorf("list %d (%q): path is empty", i, list.Name)
		}
		if list.Name == "" {
			continue
		}
		if _, ok := seen[list.Name]; ok {
			return fmt.Errorf("list %q is defined more than once", list.Name)
		}
		seen[list.Name] = struct{}{}
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		return errors.New("log limits must not be negative")
	}
	return nil
}

func (c *Config) resolvePaths() {
	if c.file == "" {
		return
	}
	dir := filepath.Dir(c.file)
	for i, list := range c.Lists {
		if !filepath.IsAbs(list.Path) {
			c.Lists[i].Path = filepath.Join(dir, list.Path)
		}
	}
}

// File returns the path of the file the config was read from, or an empty string if
// the defaults are in use.
func (c *Config) File() string {
	return c.file
}

// EnabledLists returns the enabled lists in file order. Lists without a name are named
// after their path.
func (c *Config) EnabledLists() []FilterList {
	var lists []FilterList
	for _, list := range c.Lists {
		if !list.Enabled {
			continue
		}
		if list.Name == "" {
			list.Name = list.Path
		}
		lists = append(lists, list)
	}
	return lists
}

// Logger converts the log section into a logger config.
func (c *Config) Logger() logger.Config {
	return logger.Config{
		File:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
		Compress:   c.Log.Compress,
	}
}

// DefaultPath returns the config file path in the user config directory.
func DefaultPath() (string, error) {
	dir, err := getConfigDir()
	if err != nil {
		return "", fmt.Errorf("get config dir: %w", err)
	}
	return filepath.Join(dir, configFileName), nil
}

// WriteDefault writes DefaultConfig to path, creating its directory.
// It returns ErrConfigExists if the file is already there.
func WriteDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return ErrConfigExists
		}
		return fmt.Errorf("create config file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(DefaultConfig); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
