// internal/output/json.go
package output

import (
	"io"
	"time"

	"qpcr/internal/jsonutil"
	"qpcr/internal/normalize"
	"qpcr/internal/result"
	"qpcr/pkg/api"
)

func ptr(n normalize.Number) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}

// ToAPIWell converts well i of a run to the stable wire schema (v1).
func ToAPIWell(r *result.Run, i int) api.WellV1 {
	w, c := r.Wells[i], r.Calls[i]
	v := api.WellV1{
		WellPosition: w.Position,
		SampleName:   w.Sample,
		Copies:       ptr(w.Copies),
		Comments:     w.Comments,
		Channels:     make([]api.ChannelV1, 0, len(r.Assay.Channels)),
		Calls:        make([]api.TargetCallV1, 0, len(c.Targets)),
		Result:       c.Result,
	}
	for _, ch := range r.Assay.Channels {
		cv := w.Channels[ch.Code]
		v.Channels = append(v.Channels, api.ChannelV1{
			Code:       ch.Code,
			Target:     ch.Target,
			CT:         cv.CT,
			CqConf:     ptr(cv.Conf),
			DRn:        ptr(cv.Amplitude),
			Quantity:   ptr(cv.Quantity),
			DRMPercent: ptr(cv.DRM),
		})
	}
	for _, tc := range c.Targets {
		v.Calls = append(v.Calls, api.TargetCallV1{Code: tc.Code, Target: tc.Target, Call: string(tc.Call)})
	}
	return v
}

// ToAPIRun converts a run to the stable wire schema (v1).
func ToAPIRun(r *result.Run) api.RunV1 {
	v := api.RunV1{
		RunID:       r.ID,
		Experiment:  r.ExperimentName(),
		Instrument:  r.Instrument,
		Assay:       r.Assay.Name,
		AssayKind:   string(r.Assay.Kind),
		SourceFiles: append([]string{}, r.Sources...),
		Created:     r.Created.UTC().Format(time.RFC3339),
		Metadata:    make([]api.MetadataV1, 0, len(r.Metadata)),
		Wells:       make([]api.WellV1, 0, len(r.Wells)),
	}
	for _, p := range r.Metadata {
		v.Metadata = append(v.Metadata, api.MetadataV1{Key: p.Key, Value: p.Value})
	}
	for i := range r.Wells {
		v.Wells = append(v.Wells, ToAPIWell(r, i))
	}
	return v
}

// WriteJSON writes a single JSON array of v1 runs (pretty-indented).
func WriteJSON(w io.Writer, runs []*result.Run) error {
	out := make([]api.RunV1, 0, len(runs))
	for _, r := range runs {
		out = append(out, ToAPIRun(r))
	}
	return jsonutil.EncodePretty(w, out)
}
