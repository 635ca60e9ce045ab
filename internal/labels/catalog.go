// Package labels loads the ordered class names that map model output
// positions to human-readable labels.
package labels

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

// Catalog is immutable after Load.
type Catalog struct {
	entries []string
}

// Load reads a newline-delimited label file. A missing file yields a nil
// catalog and no error; callers fall back to synthesized labels.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open label file: %w", err)
	}
	defer f.Close()

	c, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("read label file %s: %w", path, err)
	}
	return c, nil
}

// Parse reads one entry per line. Trailing blank lines are dropped; blank
// lines in the middle keep their position so indices stay aligned.
func Parse(r io.Reader) (*Catalog, error) {
	var entries []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		entries = append(entries, strings.TrimSpace(sc.Text()))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	for len(entries) > 0 && entries[len(entries)-1] == "" {
		entries = entries[:len(entries)-1]
	}
	return &Catalog{entries: entries}, nil
}

// New builds a catalog from raw entries, as they would appear in a label file.
func New(entries ...string) *Catalog {
	return &Catalog{entries: append([]string(nil), entries...)}
}

// Len is 0 for a nil catalog.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// Raw returns the entry at i without prefix stripping.
func (c *Catalog) Raw(i int) (string, bool) {
	if c == nil || i < 0 || i >= len(c.entries) {
		return "", false
	}
	return c.entries[i], true
}

// Label returns the display label for class i. Without a catalog, past its
// end, or for a blank entry, it synthesizes "Class {i}".
func (c *Catalog) Label(i int) string {
	raw, ok := c.Raw(i)
	if !ok {
		return fmt.Sprintf("Class %d", i)
	}
	if label := StripIndex(raw); label != "" {
		return label
	}
	return fmt.Sprintf("Class %d", i)
}

// Labels returns all display labels in order.
func (c *Catalog) Labels() []string {
	out := make([]string, c.Len())
	for i := range out {
		out[i] = c.Label(i)
	}
	return out
}

// StripIndex removes a leading enumeration marker: a run of ASCII digits
// followed by exactly one space or tab. "0 Cup" and "10 Umbrella" lose
// their index; "7Up" and "Cup" are returned unchanged.
func StripIndex(entry string) string {
	i := 0
	for i < len(entry) && entry[i] >= '0' && entry[i] <= '9' {
		i++
	}
	if i == 0 || i >= len(entry) {
		return entry
	}
	if entry[i] != ' ' && entry[i] != '\t' {
		return entry
	}
	return entry[i+1:]
}
