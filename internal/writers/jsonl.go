// internal/writers/jsonl.go
package writers

import (
	"bufio"
	"encoding/json"
	"io"
	"sync"

	"qpcr/internal/output"
	"qpcr/internal/result"
)

// One 64 KiB buffer per concurrent JSONL stream, reused across streams.
var bwPool = sync.Pool{
	New: func() any {
		return bufio.NewWriterSize(io.Discard, 64<<10)
	},
}

// StartJSONL streams every well of each received run as one v1 JSON line,
// tagged with its run id and source file. Close the channel, then read the
// single result from the error channel. A broken pipe on flush is not an
// error.
func StartJSONL(out io.Writer, bufSize int) (chan<- *result.Run, <-chan error) {
	if bufSize <= 0 {
		bufSize = 16
	}
	in := make(chan *result.Run, bufSize)
	done := make(chan error, 1)

	go func() {
		bw := bwPool.Get().(*bufio.Writer)
		bw.Reset(out)
		defer func() {
			bw.Reset(io.Discard)
			bwPool.Put(bw)
		}()

		enc := json.NewEncoder(bw)
		enc.SetEscapeHTML(false)
		var err error
		for r := range in {
			if err != nil {
				continue // drain so senders never block
			}
			err = encodeRun(enc, r)
		}
		if err == nil {
			if ferr := bw.Flush(); ferr != nil && !IsBrokenPipe(ferr) {
				err = ferr
			}
		}
		done <- err
	}()

	return in, done
}

func encodeRun(enc *json.Encoder, r *result.Run) error {
	for i := range r.Wells {
		w := output.ToAPIWell(r, i)
		w.RunID = r.ID
		w.SourceFile = r.Source()
		if err := enc.Encode(w); err != nil {
			return err
		}
	}
	return nil
}

// WriteJSONL is the batch form of StartJSONL.
func WriteJSONL(w io.Writer, runs []*result.Run) error {
	in, done := StartJSONL(w, len(runs))
	for _, r := range runs {
		in <- r
	}
	close(in)
	return <-done
}
