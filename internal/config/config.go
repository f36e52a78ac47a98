// Package config holds the assay and instrument catalogue plus run defaults,
// read from YAML and layered over the embedded built-ins.
package config

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"qpcr/internal/assay"
	"qpcr/internal/diag"
	"qpcr/internal/instrument"
)

//go:embed defaults.yaml
var builtin []byte

// Config is the merged configuration.
type Config struct {
	Defaults    Defaults                       `yaml:"defaults"`
	Watch       Watch                          `yaml:"watch"`
	Assays      map[string]*assay.Assay        `yaml:"assays"`
	Instruments map[string]*instrument.Profile `yaml:"instruments"`
}

// Defaults fill in flags left unset on the command line.
type Defaults struct {
	Instrument string `yaml:"instrument,omitempty"`
	Assay      string `yaml:"assay,omitempty"`
	Output     string `yaml:"output,omitempty"`
	Jobs       int    `yaml:"jobs,omitempty"`
	Archive    string `yaml:"archive,omitempty"`
}

// Watch configures the drop-folder watcher.
type Watch struct {
	Settle      time.Duration `yaml:"settle,omitempty"`
	Retries     int           `yaml:"retries,omitempty"`
	Backoff     time.Duration `yaml:"backoff,omitempty"`
	Output      string        `yaml:"output,omitempty"`
	MetricsAddr string        `yaml:"metrics_addr,omitempty"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	c, err := parse(builtin)
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return c
}

func parse(data []byte) (*Config, error) {
	c := &Config{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, err
	}
	c.name()
	return c, nil
}

// name copies map keys into the entries, which do not repeat them in YAML.
func (c *Config) name() {
	for k, a := range c.Assays {
		if a != nil {
			a.Name = k
		}
	}
	for k, p := range c.Instruments {
		if p != nil {
			p.Name = k
		}
	}
}

// LoadFromFile reads one layer. Only what the file sets is populated, so the
// result is meant to be merged over the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	c, err := parse(data)
	if err != nil {
		return nil, diag.Wrap(diag.KindConfig, path, fmt.Errorf("failed to parse config file: %w", err))
	}
	return c, nil
}

// SaveToFile writes the configuration as YAML.
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Encode writes c as YAML.
func (c *Config) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	return enc.Close()
}

// Merge overlays other: named entries replace whole entries, scalar settings
// override when non-zero.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}
	if c.Assays == nil {
		c.Assays = map[string]*assay.Assay{}
	}
	for k, a := range other.Assays {
		c.Assays[k] = a
	}
	if c.Instruments == nil {
		c.Instruments = map[string]*instrument.Profile{}
	}
	for k, p := range other.Instruments {
		c.Instruments[k] = p
	}

	d := other.Defaults
	if d.Instrument != "" {
		c.Defaults.Instrument = d.Instrument
	}
	if d.Assay != "" {
		c.Defaults.Assay = d.Assay
	}
	if d.Output != "" {
		c.Defaults.Output = d.Output
	}
	if d.Jobs != 0 {
		c.Defaults.Jobs = d.Jobs
	}
	if d.Archive != "" {
		c.Defaults.Archive = d.Archive
	}

	w := other.Watch
	if w.Settle != 0 {
		c.Watch.Settle = w.Settle
	}
	if w.Retries != 0 {
		c.Watch.Retries = w.Retries
	}
	if w.Backoff != 0 {
		c.Watch.Backoff = w.Backoff
	}
	if w.Output != "" {
		c.Watch.Output = w.Output
	}
	if w.MetricsAddr != "" {
		c.Watch.MetricsAddr = w.MetricsAddr
	}
}

// Validate checks every entry and the cross references.
func (c *Config) Validate() error {
	for _, k := range sortedKeys(c.Assays) {
		a := c.Assays[k]
		if a == nil {
			return diag.New(diag.KindConfig, k, "assay has no settings")
		}
		if err := a.Validate(); err != nil {
			return diag.Wrap(diag.KindConfig, k, err)
		}
	}
	for _, k := range sortedKeys(c.Instruments) {
		p := c.Instruments[k]
		if p == nil {
			return diag.New(diag.KindConfig, k, "instrument has no settings")
		}
		if err := p.Validate(); err != nil {
			return diag.Wrap(diag.KindConfig, k, err)
		}
	}
	if n := c.Defaults.Assay; n != "" {
		if _, err := c.Assay(n); err != nil {
			return err
		}
	}
	if n := c.Defaults.Instrument; n != "" {
		if _, err := c.Instrument(n); err != nil {
			return err
		}
	}
	if c.Defaults.Jobs < 0 {
		return diag.New(diag.KindConfig, "defaults.jobs", "must be >= 0")
	}
	if c.Watch.Retries < 0 {
		return diag.New(diag.KindConfig, "watch.retries", "must be >= 0")
	}
	return nil
}

// Assay looks an assay up by name, ignoring case.
func (c *Config) Assay(name string) (*assay.Assay, error) {
	if a, ok := lookup(c.Assays, name); ok {
		return a, nil
	}
	return nil, diag.New(diag.KindConfig, name, "unknown assay; known: %s", strings.Join(sortedKeys(c.Assays), ", "))
}

// Instrument looks a profile up by name, ignoring case.
func (c *Config) Instrument(name string) (*instrument.Profile, error) {
	if p, ok := lookup(c.Instruments, name); ok {
		return p, nil
	}
	return nil, diag.New(diag.KindConfig, name, "unknown instrument; known: %s", strings.Join(sortedKeys(c.Instruments), ", "))
}

// AssayNames and InstrumentNames list entries in sorted order.
func (c *Config) AssayNames() []string      { return sortedKeys(c.Assays) }
func (c *Config) InstrumentNames() []string { return sortedKeys(c.Instruments) }

func lookup[T any](m map[string]*T, name string) (*T, bool) {
	if v, ok := m[name]; ok && v != nil {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, name) && v != nil {
			return v, true
		}
	}
	return nil, false
}

func sortedKeys[T any](m map[string]T) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
