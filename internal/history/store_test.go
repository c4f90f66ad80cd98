package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleRun(name string, started time.Time) Run {
	return Run{
		ScenarioName: name,
		ScenarioPath: name + ".yaml",
		EntryPoint:   "demoapp",
		Status:       "pass",
		DurationMS:   510,
		StartedAt:    started,
	}
}

func TestStore_AppendAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	started := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	run := sampleRun("submit-flow", started)
	run.Status = "fail"
	run.Failures = 2
	run.VideoPath = "/tmp/run.mp4"

	id, err := s.Append(ctx, run)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "submit-flow", got.ScenarioName)
	assert.Equal(t, "submit-flow.yaml", got.ScenarioPath)
	assert.Equal(t, "demoapp", got.EntryPoint)
	assert.Equal(t, "fail", got.Status)
	assert.Equal(t, 2, got.Failures)
	assert.Equal(t, int64(510), got.DurationMS)
	assert.Equal(t, "/tmp/run.mp4", got.VideoPath)
	assert.True(t, got.StartedAt.Equal(started))
}

func TestStore_AppendGeneratesID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a, err := s.Append(ctx, sampleRun("one", time.Time{}))
	require.NoError(t, err)
	b, err := s.Append(ctx, sampleRun("two", time.Time{}))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestStore_AppendRejectsBadStatus(t *testing.T) {
	s := openTestStore(t)
	run := sampleRun("one", time.Time{})
	run.Status = "maybe"
	_, err := s.Append(context.Background(), run)
	assert.Error(t, err)
}

func TestStore_RecentNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	for i, name := range []string{"oldest", "middle", "newest"} {
		_, err := s.Append(ctx, sampleRun(name, base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}

	runs, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "newest", runs[0].ScenarioName)
	assert.Equal(t, "oldest", runs[2].ScenarioName)
}

func TestStore_RecentHonorsLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := s.Append(ctx, sampleRun("run", base.Add(time.Duration(i)*time.Second)))
		require.NoError(t, err)
	}

	runs, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestStore_GetMissing(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get(context.Background(), "no-such-run")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.db")
	ctx := context.Background()

	s, err := Open(ctx, path)
	require.NoError(t, err)
	id, err := s.Append(ctx, sampleRun("persisted", time.Time{}))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, err := Open(ctx, path)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "persisted", got.ScenarioName)
}
