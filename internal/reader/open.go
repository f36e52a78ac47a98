// internal/reader/open.go
package reader

import (
	"compress/gzip"
	"errors"
	"io"
	"io/fs"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"qpcr/internal/diag"
)

// multiReadCloser closes multiple io.Closers when Close() is called.
type multiReadCloser struct {
	io.Reader
	closers []io.Closer
}

func (m *multiReadCloser) Close() error {
	var err error
	for _, c := range m.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// openFile maps "file in use" conditions onto diag.ErrFileLocked so the
// watcher can retry them.
func openFile(path string) (*os.File, error) {
	fh, err := os.Open(path)
	if err == nil {
		return fh, nil
	}
	if errors.Is(err, fs.ErrPermission) {
		return nil, diag.Wrap(diag.KindFileLocked, path, err)
	}
	return nil, err
}

// openText returns the decoded text of a delimited export. gzip is detected
// by magic number (1F 8B) or .gz suffix; a UTF-8 or UTF-16 byte order mark
// selects the encoding, UTF-8 otherwise.
func openText(path string) (io.ReadCloser, error) {
	var (
		src     io.Reader
		closers []io.Closer
	)
	if path == "-" {
		src = os.Stdin
	} else {
		fh, err := openFile(path)
		if err != nil {
			return nil, err
		}
		var sig [2]byte
		n, _ := fh.Read(sig[:])
		_, _ = fh.Seek(0, io.SeekStart)
		src, closers = fh, []io.Closer{fh}
		if (n == 2 && sig[0] == 0x1f && sig[1] == 0x8b) || strings.HasSuffix(path, ".gz") {
			gr, err := gzip.NewReader(fh)
			if err != nil {
				_ = fh.Close()
				return nil, diag.Wrap(diag.KindMalformedFile, path, err)
			}
			src, closers = gr, []io.Closer{gr, fh}
		}
	}
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	return &multiReadCloser{Reader: transform.NewReader(src, dec), closers: closers}, nil
}
