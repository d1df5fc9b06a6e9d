package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Abraxas-365/relay-match/recruitment/matching"
	"github.com/Abraxas-365/relay-match/recruitment/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubMatcher struct {
	full, incremental int
	err               error
}

func (m *stubMatcher) RunFullBatch(context.Context) (*matching.BatchReport, error) {
	m.full++
	if m.err != nil {
		return nil, m.err
	}
	return &matching.BatchReport{}, nil
}

func (m *stubMatcher) RunIncremental(context.Context) (*matching.IncrementalReport, error) {
	m.incremental++
	return &matching.IncrementalReport{}, m.err
}

type stubDigests struct {
	frequencies []notification.Frequency
}

func (d *stubDigests) EnqueueDigest(_ context.Context, f notification.Frequency) (*notification.Task, error) {
	d.frequencies = append(d.frequencies, f)
	return notification.NewDigestTask(f), nil
}

func (s *Scheduler) runNow(t *testing.T, name string) {
	t.Helper()
	id, ok := s.entries[name]
	require.True(t, ok, name)
	s.cron.Entry(id).Job.Run()
}

func TestRegister_DefaultJobs(t *testing.T) {
	m, d := &stubMatcher{}, &stubDigests{}
	s, err := New(DefaultConfig(), m, d)
	require.NoError(t, err)
	require.NoError(t, s.Register(context.Background()))
	assert.Len(t, s.entries, 4)

	s.runNow(t, JobFullBatch)
	s.runNow(t, JobIncremental)
	s.runNow(t, JobDailyDigest)
	s.runNow(t, JobWeeklyDigest)

	assert.Equal(t, 1, m.full)
	assert.Equal(t, 1, m.incremental)
	assert.Equal(t, []notification.Frequency{notification.FrequencyDaily, notification.FrequencyWeekly}, d.frequencies)
}

func TestRegister_NextActivations(t *testing.T) {
	s, err := New(DefaultConfig(), &stubMatcher{}, &stubDigests{})
	require.NoError(t, err)
	require.NoError(t, s.Register(context.Background()))

	next, ok := s.Next(JobWeeklyDigest)
	require.True(t, ok)
	assert.Equal(t, time.Monday, next.Weekday())
	assert.Equal(t, 8, next.Hour())

	next, ok = s.Next(JobFullBatch)
	require.True(t, ok)
	assert.Equal(t, 2, next.Hour())
	assert.Zero(t, next.Minute())

	_, ok = s.Next("unknown")
	assert.False(t, ok)
}

func TestRegister_EmptySpecDisablesJob(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Incremental = ""
	s, err := New(cfg, &stubMatcher{}, &stubDigests{})
	require.NoError(t, err)
	require.NoError(t, s.Register(context.Background()))

	assert.Len(t, s.entries, 3)
	_, ok := s.entries[JobIncremental]
	assert.False(t, ok)
}

func TestRegister_InvalidSpec(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DailyDigest = "every morning"
	s, err := New(cfg, &stubMatcher{}, &stubDigests{})
	require.NoError(t, err)
	assert.ErrorContains(t, s.Register(context.Background()), JobDailyDigest)
}

func TestNew_InvalidTimezone(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timezone = "Mars/Olympus"
	_, err := New(cfg, &stubMatcher{}, &stubDigests{})
	assert.Error(t, err)
}

func TestJobFailureDoesNotPanic(t *testing.T) {
	m := &stubMatcher{err: errors.New("database unavailable")}
	s, err := New(DefaultConfig(), m, &stubDigests{})
	require.NoError(t, err)
	require.NoError(t, s.Register(context.Background()))

	assert.NotPanics(t, func() { s.runNow(t, JobFullBatch) })
	assert.Equal(t, 1, m.full)
}

func TestStartStop(t *testing.T) {
	s, err := New(DefaultConfig(), &stubMatcher{}, &stubDigests{})
	require.NoError(t, err)
	require.NoError(t, s.Register(context.Background()))

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
