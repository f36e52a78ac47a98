// pkg/api/results_v1.go
package api

// RunV1 is the stable JSON schema for one classified run.
// Keep fields, names, and types stable. Add new fields only with ",omitempty".
type RunV1 struct {
	RunID       string       `json:"run_id"`
	Experiment  string       `json:"experiment"`
	Instrument  string       `json:"instrument"`
	Assay       string       `json:"assay"`
	AssayKind   string       `json:"assay_kind"` // "viral" | "resistance"
	SourceFiles []string     `json:"source_files"`
	Created     string       `json:"created"` // RFC 3339, UTC
	Metadata    []MetadataV1 `json:"metadata"`
	Wells       []WellV1     `json:"wells"`
}

// MetadataV1 is one header pair; keys may repeat and order is significant.
type MetadataV1 struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// WellV1 is one well. In JSONL output every line is a WellV1 carrying its
// run id and source file.
type WellV1 struct {
	RunID      string `json:"run_id,omitempty"`
	SourceFile string `json:"source_file,omitempty"`

	WellPosition string         `json:"well_position"`
	SampleName   string         `json:"sample_name"`
	Copies       *float64       `json:"copies,omitempty"`
	Comments     string         `json:"comments,omitempty"`
	Channels     []ChannelV1    `json:"channels"`
	Calls        []TargetCallV1 `json:"calls"`
	Result       string         `json:"result"`
}

// ChannelV1 holds one channel's measurements. CT is always present;
// undetermined values carry the assay cutoff.
type ChannelV1 struct {
	Code       string   `json:"code"`
	Target     string   `json:"target"`
	CT         float64  `json:"ct"`
	CqConf     *float64 `json:"cq_conf,omitempty"`
	DRn        *float64 `json:"drn,omitempty"`
	Quantity   *float64 `json:"quantity,omitempty"`
	DRMPercent *float64 `json:"drm_percentage,omitempty"`
}

// TargetCallV1 is the call for one target channel.
type TargetCallV1 struct {
	Code   string `json:"code"`
	Target string `json:"target"`
	Call   string `json:"call"` // "Positive" | "Negative" | "Invalid Result" | "Indeterminate"
}
