// internal/cliutil/cliutil.go
package cliutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

func hasGlobMeta(s string) bool { return strings.ContainsAny(s, "*?[{") }

// ExpandPositionals expands any globs among path-like positionals, including
// "**" and "{a,b}" patterns. A glob that matches nothing is an error; "-"
// passes through.
func ExpandPositionals(posArgs []string) ([]string, error) {
	var out []string
	for _, a := range posArgs {
		if a == "-" {
			out = append(out, a)
			continue
		}
		if hasGlobMeta(a) {
			m, err := doublestar.FilepathGlob(a, doublestar.WithFilesOnly())
			if err != nil {
				return nil, fmt.Errorf("bad glob %q: %v", a, err)
			}
			if len(m) == 0 {
				return nil, fmt.Errorf("no input matched %q", a)
			}
			sort.Strings(m)
			out = append(out, m...)
		} else {
			out = append(out, a)
		}
	}
	return out, nil
}

// ExpandInputs expands globs, then replaces each directory with the files
// directly inside it that keep accepts, in name order. Explicitly named
// files are kept whatever their extension so the reader can reject them
// with a proper error.
func ExpandInputs(posArgs []string, keep func(path string) bool) ([]string, error) {
	paths, err := ExpandPositionals(posArgs)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, p := range paths {
		fi, err := os.Stat(p)
		if err != nil || !fi.IsDir() {
			out = append(out, p)
			continue
		}
		ents, err := os.ReadDir(p)
		if err != nil {
			return nil, err
		}
		var found []string
		for _, e := range ents {
			full := filepath.Join(p, e.Name())
			if !e.IsDir() && keep(full) {
				found = append(found, full)
			}
		}
		if len(found) == 0 {
			return nil, fmt.Errorf("no supported exports in directory %q", p)
		}
		sort.Strings(found)
		out = append(out, found...)
	}
	return out, nil
}
