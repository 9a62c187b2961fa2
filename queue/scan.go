package queue

import (
	"fmt"
	"os"
	"sort"
)

// Scan lists the queue entries present in dir, ordered by index, name and
// status. Files that do not follow the entry naming convention, including
// the descriptors themselves, are skipped.
func Scan(dir string) ([]Entry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read queue directory %s: %w", dir, err)
	}

	var entries []Entry
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		entry, err := ParseEntry(de.Name())
		if err != nil {
			continue
		}
		entry.Dir = dir
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Index != b.Index {
			return a.Index < b.Index
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Status < b.Status
	})
	return entries, nil
}

// Waiting filters entries down to those still waiting to be processed.
func Waiting(entries []Entry) []Entry {
	return WithStatus(entries, StatusWaiting)
}

// WithStatus filters entries down to those carrying status s.
func WithStatus(entries []Entry, s Status) []Entry {
	var out []Entry
	for _, e := range entries {
		if e.Status == s {
			out = append(out, e)
		}
	}
	return out
}
