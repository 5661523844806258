// Package labels holds the class-label table that maps a detector class id
// to a display name.
package labels

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// ErrMissingLabel is returned by Name when the class id has no entry.
var ErrMissingLabel = errors.New("missing label")

// Table is an ordered list of class names; the index is the class id.
// A Table is read-only after construction and safe for concurrent use.
type Table struct {
	names []string
}

// New builds a table from names. The slice is copied.
func New(names []string) *Table {
	return &Table{names: append([]string(nil), names...)}
}

// Parse reads one label per line. Leading and trailing blank lines are
// dropped, inner blank lines are kept so ids stay aligned.
func Parse(r io.Reader) (*Table, error) {
	var names []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		names = append(names, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "scan labels")
	}

	start, end := 0, len(names)
	for start < end && strings.TrimSpace(names[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(names[end-1]) == "" {
		end--
	}
	return &Table{names: names[start:end]}, nil
}

// Load reads a label file from disk.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open labels")
	}
	defer f.Close()

	t, err := Parse(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return t, nil
}

// Len returns the number of classes.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.names)
}

// Name returns the label for classID. Unknown ids resolve to
// "unknown(<id>)" together with ErrMissingLabel, so callers can always draw
// something.
func (t *Table) Name(classID int) (string, error) {
	if t == nil || classID < 0 || classID >= len(t.names) {
		return Unknown(classID), errors.WithMessagef(ErrMissingLabel, "class %d", classID)
	}
	return t.names[classID], nil
}

// Unknown is the substitute name for a class id with no label.
func Unknown(classID int) string {
	return fmt.Sprintf("unknown(%d)", classID)
}
