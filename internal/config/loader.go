package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"qpcr/internal/diag"
)

const (
	// ProjectConfigFile is looked for in the working directory and its parents.
	ProjectConfigFile = "qpcr.yaml"
	// UserConfigDir is relative to the home directory.
	UserConfigDir  = ".config/qpcr"
	UserConfigFile = "config.yaml"
)

// Loader resolves the configuration layers.
type Loader struct {
	logger *zap.Logger

	// Overridable for tests.
	Home string
	Dir  string
}

// NewLoader returns a loader rooted at the user's home and working
// directories.
func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Loader{logger: logger}
	l.Home, _ = os.UserHomeDir()
	l.Dir, _ = os.Getwd()
	return l
}

// Load merges, in increasing precedence: built-in defaults, the user config
// (~/.config/qpcr/config.yaml), the nearest project qpcr.yaml, and explicit,
// which must exist when given.
func (l *Loader) Load(explicit string) (*Config, error) {
	cfg := DefaultConfig()

	if p := l.userConfigPath(); p != "" {
		if err := l.layer(cfg, p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	if p := l.findProjectConfig(); p != "" {
		if err := l.layer(cfg, p); err != nil {
			return nil, err
		}
	} else {
		l.logger.Debug("no project config found", zap.String("dir", l.Dir))
	}
	if explicit != "" {
		if err := l.layer(cfg, explicit); err != nil {
			return nil, diag.Wrap(diag.KindConfig, explicit, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) layer(cfg *Config, path string) error {
	c, err := LoadFromFile(path)
	if err != nil {
		return err
	}
	l.logger.Debug("loaded config", zap.String("path", path),
		zap.Int("assays", len(c.Assays)), zap.Int("instruments", len(c.Instruments)))
	cfg.Merge(c)
	return nil
}

// EnsureUserConfig writes the defaults to the user config path unless a file
// is already there. It returns the path.
func (l *Loader) EnsureUserConfig() (string, error) {
	p := l.userConfigPath()
	if p == "" {
		return "", diag.New(diag.KindConfig, "", "no home directory")
	}
	if _, err := os.Stat(p); err == nil {
		return p, nil
	}
	if err := DefaultConfig().SaveToFile(p); err != nil {
		return "", err
	}
	l.logger.Info("created default user config", zap.String("path", p))
	return p, nil
}

func (l *Loader) userConfigPath() string {
	if l.Home == "" {
		return ""
	}
	return filepath.Join(l.Home, UserConfigDir, UserConfigFile)
}

func (l *Loader) findProjectConfig() string {
	if l.Dir == "" {
		return ""
	}
	dir := l.Dir
	for {
		p := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
