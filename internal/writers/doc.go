// Package writers turns classified runs into serialized outputs.
//
// Design:
//   - Writers own all presentation knowledge (wide tables, calls, JSON/JSONL, PDF).
//   - The core packages stay domain-only; pipeline stays orchestration-only.
//   - JSON/JSONL go through pkg/api (v1) for a stable wire format.
package writers
