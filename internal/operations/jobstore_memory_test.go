package operations

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryJobStore_CRUD(t *testing.T) {
	store := NewMemoryJobStore()
	job := &Job{ID: "job-1", Status: JobStatusPending, CreatedAt: time.Now()}

	require.NoError(t, store.CreateJob(job))
	assert.ErrorIs(t, store.CreateJob(job), ErrJobExists)

	// stored values are copies
	job.Status = JobStatusRunning
	got, err := store.GetJob("job-1")
	require.NoError(t, err)
	assert.Equal(t, JobStatusPending, got.Status)

	got.Progress = 40
	require.NoError(t, store.UpdateJob(got))
	got.Progress = 80
	again, err := store.GetJob("job-1")
	require.NoError(t, err)
	assert.Equal(t, 40, again.Progress)

	require.NoError(t, store.DeleteJob("job-1"))
	_, err = store.GetJob("job-1")
	assert.ErrorIs(t, err, ErrJobNotFound)
	assert.ErrorIs(t, store.DeleteJob("job-1"), ErrJobNotFound)
	assert.ErrorIs(t, store.UpdateJob(&Job{ID: "job-1"}), ErrJobNotFound)
}

func TestMemoryJobStore_ListJobs(t *testing.T) {
	store := NewMemoryJobStore()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i, st := range []JobStatus{JobStatusCompleted, JobStatusPending, JobStatusCompleted, JobStatusFailed} {
		require.NoError(t, store.CreateJob(&Job{
			ID:        string(rune('a' + i)),
			Status:    st,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	tests := []struct {
		name    string
		filter  JobFilter
		wantIDs []string
	}{
		{name: "all newest first", filter: JobFilter{}, wantIDs: []string{"d", "c", "b", "a"}},
		{name: "by status", filter: JobFilter{Status: JobStatusCompleted}, wantIDs: []string{"c", "a"}},
		{name: "since", filter: JobFilter{Since: base.Add(2 * time.Minute)}, wantIDs: []string{"d", "c"}},
		{name: "limit", filter: JobFilter{Limit: 1}, wantIDs: []string{"d"}},
		{name: "no match", filter: JobFilter{Status: JobStatusRunning}, wantIDs: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs, err := store.ListJobs(tt.filter)
			require.NoError(t, err)
			ids := make([]string, len(jobs))
			for i, j := range jobs {
				ids[i] = j.ID
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestMemoryJobStore_CleanupOldJobs(t *testing.T) {
	store := NewMemoryJobStore()
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, store.CreateJob(&Job{ID: "old-done", Status: JobStatusCompleted, CreatedAt: old}))
	require.NoError(t, store.CreateJob(&Job{ID: "old-running", Status: JobStatusRunning, CreatedAt: old}))
	require.NoError(t, store.CreateJob(&Job{ID: "new-done", Status: JobStatusFailed, CreatedAt: time.Now()}))

	n, err := store.CleanupOldJobs(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stats := store.GetStats()
	assert.Equal(t, 2, stats["total_jobs"])
	assert.Equal(t, 1, stats["running"])
	assert.Equal(t, 1, stats["failed"])
	assert.Equal(t, 0, stats["completed"])
}

func TestParseJobStatus(t *testing.T) {
	for _, s := range []string{"", "pending", "running", "completed", "failed", "cancelled"} {
		st, err := ParseJobStatus(s)
		require.NoError(t, err)
		assert.Equal(t, JobStatus(s), st)
	}
	_, err := ParseJobStatus("done")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	assert.True(t, JobStatusCancelled.Terminal())
	assert.False(t, JobStatusRunning.Terminal())
}
