// internal/writers/registry.go
package writers

import (
	"fmt"
	"io"
	"sort"
	"time"

	"qpcr/internal/result"
)

// Options carry the presentation switches shared by every format.
type Options struct {
	Header  bool      // header row for tabular formats
	Version string    // stamped into the PDF footer
	Now     time.Time // PDF generation time; zero means now
}

// WriteFunc renders a complete batch of runs.
type WriteFunc func(w io.Writer, runs []*result.Run, opt Options) error

// Writers maps an output format to its handler. Formats register themselves
// in init blocks; last registration wins.
var Writers = map[string]WriteFunc{}

// Register adds or replaces the handler for format.
func Register(format string, fn WriteFunc) { Writers[format] = fn }

// Known lists the registered formats, sorted.
func Known() []string {
	out := make([]string, 0, len(Writers))
	for f := range Writers {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Write dispatches to the handler for format.
func Write(format string, w io.Writer, runs []*result.Run, opt Options) error {
	fn, ok := Writers[format]
	if !ok {
		return fmt.Errorf("unknown output format %q (no writer registered)", format)
	}
	return fn(w, runs, opt)
}
