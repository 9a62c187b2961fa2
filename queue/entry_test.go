package queue

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryFileName(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
		want  string
	}{
		{
			name:  "padded index",
			entry: NewEntry("", 1, "arp_spec", StatusWaiting),
			want:  "001.arp_spec.waiting",
		},
		{
			name:  "three digit index",
			entry: NewEntry("", 123, "sky", StatusDone),
			want:  "123.sky.done",
		},
		{
			name:  "index wider than padding",
			entry: NewEntry("", 1000, "cal", StatusFailed),
			want:  "1000.cal.failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.entry.FileName())

			parsed, err := ParseEntry(tt.want)
			require.NoError(t, err)
			require.Equal(t, tt.entry, parsed)
		})
	}
}

func TestParseEntryRejects(t *testing.T) {
	for _, name := range []string{
		"arp_spec.xml",
		"001.arp_spec",
		"001.arp.spec.waiting",
		"01.arp_spec.waiting",
		"abc.arp_spec.waiting",
		"000.arp_spec.waiting",
		"+01.arp_spec.waiting",
		"001..waiting",
		"001.arp_spec.",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseEntry(name)
			require.Error(t, err)
		})
	}
}

func TestEntrySiblings(t *testing.T) {
	dir := t.TempDir()
	waiting := NewEntry(dir, 2, "sky", StatusWaiting)
	done := waiting.WithStatus(StatusDone)

	assert.Equal(t, StatusWaiting, waiting.Status, "WithStatus must not mutate the receiver")
	assert.Equal(t, filepath.Join(dir, "002.sky.done"), done.Path())
	assert.Equal(t, waiting.Key(), done.Key())

	ok, err := done.Exists()
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, os.WriteFile(done.Path(), nil, 0o644))
	ok, err = done.Exists()
	require.NoError(t, err)
	require.True(t, ok)
}

func TestStatus(t *testing.T) {
	assert.True(t, StatusWaiting.IsKnown())
	assert.True(t, StatusRunning.IsKnown())
	assert.False(t, Status("stale").IsKnown())

	assert.True(t, StatusDone.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.False(t, StatusWaiting.IsTerminal())
	assert.False(t, StatusRunning.IsTerminal())
}
