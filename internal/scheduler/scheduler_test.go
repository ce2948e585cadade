package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/ship2profile/pkg/logger"
)

type countingJob struct {
	name     string
	schedule string
	failures int32
	calls    atomic.Int32
	block    chan struct{}
}

func (j *countingJob) Name() string     { return j.name }
func (j *countingJob) Schedule() string { return j.schedule }

func (j *countingJob) Run(ctx context.Context) error {
	n := j.calls.Add(1)
	if j.block != nil {
		<-j.block
	}
	if n <= j.failures {
		return errors.New("transient")
	}
	return nil
}

func newJob(name string) *countingJob {
	return &countingJob{name: name, schedule: "0 0 6 2 * *"}
}

func TestScheduler_AddJob(t *testing.T) {
	s := New(logger.NewNop(), Options{})

	require.NoError(t, s.AddJob(newJob("b")))
	require.NoError(t, s.AddJob(newJob("a")))
	assert.Error(t, s.AddJob(newJob("a")), "duplicate")

	bad := newJob("bad")
	bad.schedule = "not a cron"
	assert.Error(t, s.AddJob(bad))

	assert.Equal(t, []string{"a", "b"}, s.GetAllJobs())

	require.NoError(t, s.RemoveJob("a"))
	assert.Error(t, s.RemoveJob("a"))
	assert.Equal(t, []string{"b"}, s.GetAllJobs())
}

func TestScheduler_RunJobRetries(t *testing.T) {
	s := New(logger.NewNop(), Options{MaxRetries: 2, RetryDelay: time.Millisecond})
	job := newJob("monthly")
	job.failures = 2
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJob(context.Background(), "monthly")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Attempts)

	stats := s.GetJobStats()["monthly"]
	assert.Equal(t, 1, stats.TotalRuns)
	assert.Equal(t, 1, stats.SuccessCount)
	assert.Equal(t, 1.0, stats.SuccessRate)
	assert.NotNil(t, stats.LastSuccess)
	assert.Nil(t, stats.LastFailure)
}

func TestScheduler_RunJobGivesUp(t *testing.T) {
	s := New(logger.NewNop(), Options{MaxRetries: 1, RetryDelay: time.Millisecond})
	job := newJob("monthly")
	job.failures = 5
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJob(context.Background(), "monthly")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, "transient", result.Error)

	history, err := s.GetJobHistory("monthly")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 0.0, s.GetJobStats()["monthly"].SuccessRate)
}

func TestScheduler_CancelStopsRetrying(t *testing.T) {
	s := New(logger.NewNop(), Options{MaxRetries: 3, RetryDelay: time.Hour})
	job := newJob("monthly")
	job.failures = 5
	require.NoError(t, s.AddJob(job))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := s.RunJob(ctx, "monthly")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, context.Canceled.Error(), result.Error)
}

func TestScheduler_SkipsOverlap(t *testing.T) {
	s := New(logger.NewNop(), Options{})
	job := newJob("monthly")
	job.block = make(chan struct{})
	require.NoError(t, s.AddJob(job))

	done := make(chan JobResult)
	go func() {
		r, _ := s.RunJob(context.Background(), "monthly")
		done <- r
	}()

	require.Eventually(t, func() bool { return job.calls.Load() == 1 }, time.Second, time.Millisecond)

	second, err := s.RunJob(context.Background(), "monthly")
	require.NoError(t, err)
	assert.True(t, second.Skipped)

	close(job.block)
	first := <-done
	assert.True(t, first.Success)
	assert.Equal(t, int32(1), job.calls.Load())
}

func TestScheduler_UnknownJob(t *testing.T) {
	s := New(logger.NewNop(), Options{})
	_, err := s.RunJob(context.Background(), "nope")
	assert.Error(t, err)
	_, err = s.GetJobHistory("nope")
	assert.Error(t, err)
	_, err = s.NextRun("nope")
	assert.Error(t, err)
}

func TestScheduler_StartStop(t *testing.T) {
	s := New(logger.NewNop(), Options{})
	require.NoError(t, s.AddJob(newJob("monthly")))

	s.Start()
	next, err := s.NextRun("monthly")
	require.NoError(t, err)
	assert.Equal(t, 2, next.Day())
	s.Stop()
}

func TestJobHistory(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < maxHistory+5; i++ {
		h.AddResult(JobResult{Success: i%2 == 0})
	}
	h.AddResult(JobResult{Skipped: true})

	assert.Len(t, h.Results, maxHistory)
	assert.Len(t, h.Latest(3), 3)
	assert.Len(t, h.Latest(1000), maxHistory)
	assert.InDelta(t, 0.5, h.SuccessRate(), 0.01)
	assert.Empty(t, (&JobHistory{}).Latest(5))
}
