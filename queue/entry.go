package queue

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	// Separator splits the index, name and status of an entry file name.
	// Descriptor names must not contain it.
	Separator = "."

	// DescriptorExt is the extension of pipeline definition files.
	DescriptorExt = ".xml"

	indexWidth = 3
)

// Entry is one staged pipeline job inside a queue directory.
type Entry struct {
	Dir    string
	Index  int
	Name   string
	Status Status
}

// NewEntry returns the entry for the descriptor name at the given position.
func NewEntry(dir string, index int, name string, status Status) Entry {
	return Entry{Dir: dir, Index: index, Name: name, Status: status}
}

// FileName renders the entry as {index:03d}.{name}.{status}.
func (e Entry) FileName() string {
	return fmt.Sprintf("%0*d%s%s%s%s", indexWidth, e.Index, Separator, e.Name, Separator, e.Status)
}

// Path joins the entry's file name with its directory.
func (e Entry) Path() string {
	return filepath.Join(e.Dir, e.FileName())
}

// WithStatus returns the sibling entry carrying a different status marker.
func (e Entry) WithStatus(s Status) Entry {
	e.Status = s
	return e
}

// Exists reports whether the entry's file is present on disk.
func (e Entry) Exists() (bool, error) {
	_, err := os.Stat(e.Path())
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Key identifies the job independently of its status.
func (e Entry) Key() string {
	return fmt.Sprintf("%0*d%s%s", indexWidth, e.Index, Separator, e.Name)
}

func (e Entry) String() string {
	return e.FileName()
}

// ParseEntry parses a file name of the form {index}.{name}.{status}. The
// directory of the returned entry is left empty.
func ParseEntry(fileName string) (Entry, error) {
	parts := strings.Split(fileName, Separator)
	if len(parts) != 3 {
		return Entry{}, fmt.Errorf("queue entry %q: want 3 %q separated fields, got %d", fileName, Separator, len(parts))
	}
	if len(parts[0]) < indexWidth {
		return Entry{}, fmt.Errorf("queue entry %q: index %q is narrower than %d digits", fileName, parts[0], indexWidth)
	}
	index, err := strconv.Atoi(parts[0])
	if err != nil || index < 1 || strings.ContainsAny(parts[0], "+-") {
		return Entry{}, fmt.Errorf("queue entry %q: invalid index %q", fileName, parts[0])
	}
	if parts[1] == "" {
		return Entry{}, fmt.Errorf("queue entry %q: empty name", fileName)
	}
	if parts[2] == "" {
		return Entry{}, fmt.Errorf("queue entry %q: empty status", fileName)
	}
	return Entry{Index: index, Name: parts[1], Status: Status(parts[2])}, nil
}
