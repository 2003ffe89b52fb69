package journal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xlttj/portpanel/pkg/activity"
)

func openMemory(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestRecordAndRecent(t *testing.T) {
	j := openMemory(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, msg := range []string{"one", "two", "three"} {
		j.Record(activity.Entry{
			Time:    base.Add(time.Duration(i) * time.Minute),
			Level:   activity.LevelWarn,
			Source:  "relay",
			RuleID:  "abc",
			Message: msg,
		})
	}

	got, err := j.Recent(2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "two", got[0].Message)
	assert.Equal(t, "three", got[1].Message)
	assert.Equal(t, activity.LevelWarn, got[1].Level)
	assert.Equal(t, "relay", got[1].Source)
	assert.Equal(t, "abc", got[1].RuleID)
	assert.True(t, got[1].Time.Equal(base.Add(2*time.Minute)))

	n, err := j.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRecentDefaultsLevel(t *testing.T) {
	j := openMemory(t)
	require.NoError(t, j.Append(activity.Entry{Source: "panel", Message: "hi"}))

	got, err := j.Recent(10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, activity.LevelInfo, got[0].Level)
	assert.False(t, got[0].Time.IsZero())

	none, err := j.Recent(0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPrune(t *testing.T) {
	j := openMemory(t)
	now := time.Now()
	require.NoError(t, j.Append(activity.Entry{Time: now.Add(-48 * time.Hour), Source: "relay", Message: "old"}))
	require.NoError(t, j.Append(activity.Entry{Time: now, Source: "relay", Message: "new"}))

	removed, err := j.Prune(now.Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	got, err := j.Recent(10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].Message)
}

func TestOpenFileCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "journal.db")
	j, err := Open(path)
	require.NoError(t, err)
	j.Record(activity.Entry{Source: "panel", Message: "persisted"})
	require.NoError(t, j.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	j, err = Open(path)
	require.NoError(t, err)
	defer j.Close()
	got, err := j.Recent(5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "persisted", got[0].Message)
}

func TestJournalIsARecorder(t *testing.T) {
	var _ activity.Recorder = (*Journal)(nil)
}
