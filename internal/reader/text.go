package reader

import (
	"bufio"
	"context"
	"encoding/csv"
	"io"
	"path/filepath"
	"strings"

	"qpcr/internal/diag"
	"qpcr/internal/split"
)

// sniffLines is how many non-blank lines vote on the delimiter.
const sniffLines = 64

// readDelimited reads every line of a text export into rows. The delimiter
// is sniffed unless the extension settles it.
func readDelimited(ctx context.Context, path string) ([]split.Row, error) {
	rc, err := openText(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var lines []string
	sc := bufio.NewScanner(rc)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, diag.Wrap(diag.KindMalformedFile, path, err)
	}

	delim := delimiterFor(path, lines)
	rows := make([]split.Row, 0, len(lines))
	for i := 0; i < len(lines); i++ {
		start, line := i, lines[i]
		for openQuote(line, delim) && i+1 < len(lines) {
			i++
			line += "\n" + lines[i]
		}
		rec, err := parseLine(line, delim)
		if err != nil {
			return nil, diag.New(diag.KindMalformedFile, path, "line %d: %v", start+1, err)
		}
		rows = append(rows, split.Row(rec))
	}
	return rows, nil
}

// openQuote reports whether line ends inside a quoted field. Only a quote
// at the start of a field opens one; stray quotes elsewhere are literal.
func openQuote(line string, delim rune) bool {
	in, fieldStart := false, true
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case in && c == '"':
			if i+1 < len(line) && line[i+1] == '"' {
				i++
				continue
			}
			in = false
		case in:
		case c == '"' && fieldStart:
			in = true
		}
		fieldStart = !in && rune(c) == delim
	}
	return in
}

// parseLine splits one logical line, which may span physical lines inside a
// quoted field. Lines are parsed independently because instrument exports
// mix blocks of different widths.
func parseLine(line string, delim rune) ([]string, error) {
	if strings.TrimSpace(line) == "" {
		return nil, nil
	}
	r := csv.NewReader(strings.NewReader(line))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	rec, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	return rec, err
}

func delimiterFor(path string, lines []string) rune {
	switch strings.ToLower(filepath.Ext(strings.TrimSuffix(path, ".gz"))) {
	case ".tsv":
		return '\t'
	}
	return sniff(lines)
}

// sniff picks the candidate that appears on the most lines, preferring tab,
// then comma, then semicolon on ties.
func sniff(lines []string) rune {
	candidates := []rune{'\t', ',', ';'}
	best, bestN := ',', 0
	seen := 0
	counts := make([]int, len(candidates))
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		for i, c := range candidates {
			if strings.ContainsRune(l, c) {
				counts[i]++
			}
		}
		if seen++; seen >= sniffLines {
			break
		}
	}
	for i, c := range candidates {
		if counts[i] > bestN {
			best, bestN = c, counts[i]
		}
	}
	return best
}
