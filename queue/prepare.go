package queue

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/log"

	"github.com/Keck-DataReductionPipelines/OsirisDRP/drptestbones/metrics"
)

// Descriptors returns the pipeline definition files in dir, in the order
// they are assigned queue indices.
func Descriptors(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+DescriptorExt))
	if err != nil {
		return nil, fmt.Errorf("failed to list descriptors in %s: %w", dir, err)
	}
	return matches, nil
}

// Prepare stages every descriptor in dir as a waiting queue entry and
// removes status markers left behind by previous runs.
//
// All descriptor names are validated before anything is written, so an
// invalid name leaves the directory untouched.
func Prepare(logger log.Logger, dir string) ([]Entry, error) {
	if logger == nil {
		logger = log.Root()
	}

	descriptors, err := Descriptors(dir)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(descriptors))
	for i, path := range descriptors {
		name := strings.TrimSuffix(filepath.Base(path), DescriptorExt)
		if strings.Contains(name, Separator) {
			return nil, &ValidationError{
				File:   path,
				Reason: fmt.Sprintf("name contains %q which is illegal", Separator),
			}
		}
		entries = append(entries, NewEntry(filepath.Dir(path), i+1, name, StatusWaiting))
	}

	for i, entry := range entries {
		if err := copyFile(descriptors[i], entry.Path()); err != nil {
			return nil, fmt.Errorf("failed to stage %s: %w", descriptors[i], err)
		}
		removed, err := removeStale(entry)
		if err != nil {
			return nil, err
		}
		logger.Debug("Staged queue entry", "entry", entry.FileName(), "removed", removed)
	}

	metrics.RecordPrepared(len(entries))
	logger.Info("Prepared queue directory", "dir", dir, "entries", len(entries))
	return entries, nil
}

// removeStale deletes siblings of a waiting entry whose status is anything
// other than waiting.
func removeStale(entry Entry) ([]string, error) {
	siblings, err := filepath.Glob(filepath.Join(entry.Dir, entry.Key()+Separator+"*"))
	if err != nil {
		return nil, fmt.Errorf("failed to list status markers for %s: %w", entry.Key(), err)
	}

	var removed []string
	for _, path := range siblings {
		if filepath.Ext(path) == Separator+string(StatusWaiting) {
			continue
		}
		if err := os.Remove(path); err != nil {
			return removed, fmt.Errorf("failed to remove stale marker %s: %w", path, err)
		}
		removed = append(removed, filepath.Base(path))
	}
	return removed, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chmod(dst, info.Mode().Perm())
}
