// Package classify applies the assay decision trees to normalized wells.
//
// Viral assays call each target channel against the internal control, which
// is always checked first. Resistance assays call the ratio of target to
// internal-control quantity against a low and a high cutoff. Both trees are
// pure functions of one well and the assay.
package classify

import (
	"strings"

	"qpcr/internal/assay"
	"qpcr/internal/diag"
	"qpcr/internal/instrument"
	"qpcr/internal/normalize"
	"qpcr/internal/table"
)

// Call is a per-target outcome.
type Call string

const (
	Positive      Call = "Positive"
	Negative      Call = "Negative"
	Invalid       Call = "Invalid Result"
	Indeterminate Call = "Indeterminate"
)

// ResultColumn is appended to the wide table by AddResult.
const ResultColumn = "Result"

// TargetCall is one target channel's call.
type TargetCall struct {
	Code   string
	Target string
	Call   Call
}

// WellCall is the outcome for one well.
type WellCall struct {
	Position string
	Sample   string
	Targets  []TargetCall
	Result   string
}

// Viral runs the detection tree for target channel code.
func Viral(w normalize.Well, code string, a *assay.Assay) (Call, error) {
	cutoff := a.CtCutoff
	ic := w.Channels[a.IC].CT
	ct := w.Channels[code].CT

	if ic >= cutoff && ct >= cutoff {
		return Invalid, nil
	}
	if ct < cutoff {
		ok, err := enoughSignal(w, code, a)
		if err != nil {
			return "", err
		}
		if ok {
			return Positive, nil
		}
	}
	if ct >= cutoff && ic < cutoff {
		return Negative, nil
	}
	return Invalid, nil
}

func enoughSignal(w normalize.Well, code string, a *assay.Assay) (bool, error) {
	threshold, ok := a.SignalThreshold(code)
	if !ok {
		return true, nil
	}
	amp := w.Channels[code].Amplitude
	if !amp.Present() {
		return false, missing(w, normalize.ChannelColumn(code, instrument.ColAmplitude))
	}
	return amp.Value >= threshold, nil
}

// Resistance runs the DRM percentage tree for target channel code.
//
// An unamplified internal control has no quantity and counts as zero; an
// unamplified target likewise has a DRM percentage of zero.
func Resistance(w normalize.Well, code string, a *assay.Assay) (Call, error) {
	if a.MinICQuantity > 0 {
		icv := w.Channels[a.IC]
		q := icv.Quantity
		if !q.Present() {
			if icv.CT < a.CtCutoff {
				return "", missing(w, normalize.ChannelColumn(a.IC, instrument.ColQuantity))
			}
			q = normalize.Some(0)
		}
		if q.Value < a.MinICQuantity {
			return Invalid, nil
		}
	}

	target, _ := a.Target(code)
	cv := w.Channels[code]
	drm := cv.DRM
	if !drm.Present() {
		if cv.CT < a.CtCutoff {
			return "", missing(w, normalize.DRMColumn(target))
		}
		drm = normalize.Some(0)
	}
	switch {
	case drm.Value < a.DRMLow:
		return Negative, nil
	case drm.Value >= a.DRMHigh:
		return Positive, nil
	default:
		return Indeterminate, nil
	}
}

func missing(w normalize.Well, field string) error {
	return diag.New(diag.KindMissingField, field, "well %s", w.Position)
}

// Well classifies every target of one well and combines the calls.
func Well(w normalize.Well, a *assay.Assay) (WellCall, error) {
	out := WellCall{Position: w.Position, Sample: w.Sample}
	tree := Viral
	if a.Kind == assay.KindResistance {
		tree = Resistance
	}
	for _, c := range a.Targets() {
		call, err := tree(w, c.Code, a)
		if err != nil {
			return WellCall{}, err
		}
		out.Targets = append(out.Targets, TargetCall{Code: c.Code, Target: c.Target, Call: call})
	}
	if a.Kind == assay.KindResistance {
		out.Result = combineResistance(out.Targets)
	} else {
		out.Result = combineViral(out.Targets)
	}
	return out, nil
}

// Label is the per-target text used in long outputs.
func (t TargetCall) Label(k assay.Kind) string {
	if k == assay.KindViral && t.Call == Positive {
		return t.Target + " " + string(Positive)
	}
	return string(t.Call)
}

// combineViral lists every positive target; otherwise any invalid target
// makes the well invalid.
func combineViral(ts []TargetCall) string {
	var pos []string
	invalid := false
	for _, t := range ts {
		switch t.Call {
		case Positive:
			pos = append(pos, t.Target+" "+string(Positive))
		case Invalid:
			invalid = true
		}
	}
	switch {
	case len(pos) > 0:
		return strings.Join(pos, ", ")
	case invalid:
		return string(Invalid)
	default:
		return string(Negative)
	}
}

func combineResistance(ts []TargetCall) string {
	if len(ts) == 1 {
		return string(ts[0].Call)
	}
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.Target + " " + string(t.Call)
	}
	return strings.Join(parts, ", ")
}

// Table classifies all wells in order and stops at the first error.
func Table(wells []normalize.Well, a *assay.Assay) ([]WellCall, error) {
	out := make([]WellCall, 0, len(wells))
	for _, w := range wells {
		c, err := Well(w, a)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// AddResult appends the well-level calls to the normalized table. calls must
// be in table order.
func AddResult(t *table.Table, calls []WellCall) (*table.Table, error) {
	if len(calls) != t.Len() {
		return nil, diag.New(diag.KindIncompleteJoin, ResultColumn, "%d calls for %d wells", len(calls), t.Len())
	}
	return t.AddColumn(ResultColumn, func(i int) string { return calls[i].Result })
}
