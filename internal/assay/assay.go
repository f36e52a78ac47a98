// Package assay describes what a run is testing for: which reporter dye maps
// to which target, which channel is the internal control, and the cutoffs the
// classifier applies.
package assay

import (
	"fmt"
	"sort"
	"strings"
)

// Kind selects the decision tree.
type Kind string

const (
	KindViral      Kind = "viral"      // qualitative detection / viral load
	KindResistance Kind = "resistance" // drug-resistance mutation percentage
)

// ICTarget is the display name conventionally given to the internal control.
const ICTarget = "Internal Control"

// Channel is one reporter dye and the target it reports.
type Channel struct {
	Code   string `yaml:"code"`
	Target string `yaml:"target"`
}

// Assay is read-only once loaded.
type Assay struct {
	Name     string    `yaml:"-"`
	Kind     Kind      `yaml:"kind"`
	Channels []Channel `yaml:"channels"`
	IC       string    `yaml:"ic"`
	CtCutoff float64   `yaml:"ct_cutoff"`

	// Minimum amplitude (ΔRn) for a positive target call. MinSignal gives
	// absolute values per code; otherwise MinSignalFraction × MaxDRn[code].
	MinSignal         map[string]float64 `yaml:"min_signal,omitempty"`
	MaxDRn            map[string]float64 `yaml:"max_drn,omitempty"`
	MinSignalFraction float64            `yaml:"min_signal_fraction,omitempty"`

	// Resistance assays.
	DRMLow        float64 `yaml:"drm_low,omitempty"`
	DRMHigh       float64 `yaml:"drm_high,omitempty"`
	MinICQuantity float64 `yaml:"min_ic_quantity,omitempty"`
}

// Codes returns channel codes in configured order.
func (a *Assay) Codes() []string {
	out := make([]string, len(a.Channels))
	for i, c := range a.Channels {
		out[i] = c.Code
	}
	return out
}

// Targets returns the non-IC channels in configured order.
func (a *Assay) Targets() []Channel {
	var out []Channel
	for _, c := range a.Channels {
		if c.Code != a.IC {
			out = append(out, c)
		}
	}
	return out
}

// Target returns the target name for code.
func (a *Assay) Target(code string) (string, bool) {
	for _, c := range a.Channels {
		if c.Code == code {
			return c.Target, true
		}
	}
	return "", false
}

// SignalThreshold is the minimum amplitude for a positive call on code. ok is
// false when no threshold is configured.
func (a *Assay) SignalThreshold(code string) (float64, bool) {
	if v, ok := a.MinSignal[code]; ok {
		return v, true
	}
	if a.MinSignalFraction > 0 {
		if m, ok := a.MaxDRn[code]; ok {
			return a.MinSignalFraction * m, true
		}
	}
	return 0, false
}

// SameChannels reports whether observed equals the configured code set,
// ignoring order and surrounding whitespace.
func (a *Assay) SameChannels(observed []string) bool {
	want := a.Codes()
	got := make([]string, 0, len(observed))
	for _, o := range observed {
		got = append(got, strings.TrimSpace(o))
	}
	if len(got) != len(want) {
		return false
	}
	sort.Strings(want)
	sort.Strings(got)
	for i := range want {
		if want[i] != got[i] {
			return false
		}
	}
	return true
}

// Validate checks internal consistency.
func (a *Assay) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("assay name is required")
	}
	switch a.Kind {
	case KindViral, KindResistance:
	default:
		return fmt.Errorf("assay %s: kind must be %q or %q, got %q", a.Name, KindViral, KindResistance, a.Kind)
	}
	if len(a.Channels) < 2 {
		return fmt.Errorf("assay %s: needs an internal control and at least one target channel", a.Name)
	}
	seen := map[string]bool{}
	icFound := false
	for _, c := range a.Channels {
		if c.Code == "" || c.Target == "" {
			return fmt.Errorf("assay %s: channel code and target are required", a.Name)
		}
		if seen[c.Code] {
			return fmt.Errorf("assay %s: channel %s listed twice", a.Name, c.Code)
		}
		seen[c.Code] = true
		if c.Code == a.IC {
			icFound = true
		}
	}
	if !icFound {
		return fmt.Errorf("assay %s: ic %q is not one of its channels", a.Name, a.IC)
	}
	if a.CtCutoff <= 0 {
		return fmt.Errorf("assay %s: ct_cutoff must be > 0", a.Name)
	}
	if a.MinSignalFraction < 0 || a.MinSignalFraction > 1 {
		return fmt.Errorf("assay %s: min_signal_fraction must be between 0 and 1", a.Name)
	}
	if a.Kind == KindResistance {
		if a.DRMLow < 0 || a.DRMHigh <= a.DRMLow {
			return fmt.Errorf("assay %s: need 0 <= drm_low < drm_high", a.Name)
		}
		if a.MinICQuantity < 0 {
			return fmt.Errorf("assay %s: min_ic_quantity must be >= 0", a.Name)
		}
	}
	return nil
}
