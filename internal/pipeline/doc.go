// Package pipeline drives one run from its export files to classified wells
// (read, split, normalize, classify) and runs independent runs concurrently.
//
// A run is a Group of sources: one export for long layouts, one export per
// channel for per-file layouts. Groups never share state, so Batch can
// process them in any order; results come back in input order.
package pipeline
