// Package scheduler runs the periodic matching and digest jobs on cron specs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/Abraxas-365/relay-match/pkg/logx"
	"github.com/Abraxas-365/relay-match/recruitment/matching"
	"github.com/Abraxas-365/relay-match/recruitment/notification"
	"github.com/robfig/cron/v3"
)

const (
	JobFullBatch    = "full_batch"
	JobIncremental  = "incremental"
	JobDailyDigest  = "daily_digest"
	JobWeeklyDigest = "weekly_digest"
)

// Config holds one cron spec per job. An empty spec disables the job.
type Config struct {
	Enabled      bool   `mapstructure:"enabled"`
	Timezone     string `mapstructure:"timezone"`
	FullBatch    string `mapstructure:"full_batch"`
	Incremental  string `mapstructure:"incremental"`
	DailyDigest  string `mapstructure:"daily_digest"`
	WeeklyDigest string `mapstructure:"weekly_digest"`
}

func DefaultConfig() Config {
	return Config{
		Enabled:      true,
		Timezone:     "UTC",
		FullBatch:    "0 2 * * *",
		Incremental:  "@hourly",
		DailyDigest:  "0 8 * * *",
		WeeklyDigest: "0 8 * * 1",
	}
}

type Matcher interface {
	RunFullBatch(ctx context.Context) (*matching.BatchReport, error)
	RunIncremental(ctx context.Context) (*matching.IncrementalReport, error)
}

type Digests interface {
	EnqueueDigest(ctx context.Context, frequency notification.Frequency) (*notification.Task, error)
}

// Scheduler wraps robfig/cron. A job still running when its next tick fires
// is skipped for that tick.
type Scheduler struct {
	cron    *cron.Cron
	loc     *time.Location
	cfg     Config
	matcher Matcher
	digests Digests
	entries map[string]cron.EntryID
}

func New(cfg Config, matcher Matcher, digests Digests) (*Scheduler, error) {
	loc := time.UTC
	if cfg.Timezone != "" {
		var err error
		if loc, err = time.LoadLocation(cfg.Timezone); err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
		}
	}

	logger := cronLogger{}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		loc:     loc,
		cfg:     cfg,
		matcher: matcher,
		digests: digests,
		entries: make(map[string]cron.EntryID),
	}, nil
}

// Register adds every configured job. ctx is handed to each run.
func (s *Scheduler) Register(ctx context.Context) error {
	jobs := []struct {
		name string
		spec string
		run  func(context.Context) error
	}{
		{JobFullBatch, s.cfg.FullBatch, s.fullBatch},
		{JobIncremental, s.cfg.Incremental, s.incremental},
		{JobDailyDigest, s.cfg.DailyDigest, s.digest(notification.FrequencyDaily)},
		{JobWeeklyDigest, s.cfg.WeeklyDigest, s.digest(notification.FrequencyWeekly)},
	}

	for _, j := range jobs {
		if j.spec == "" {
			logx.Infof("[scheduler] %s disabled", j.name)
			continue
		}
		name, run := j.name, j.run
		id, err := s.cron.AddFunc(j.spec, func() {
			started := time.Now()
			if err := run(ctx); err != nil {
				logx.Errorw("scheduled job failed", "job", name, "error", err)
				return
			}
			logx.Infow("scheduled job finished", "job", name, "elapsed", time.Since(started))
		})
		if err != nil {
			return fmt.Errorf("schedule %s (%q): %w", j.name, j.spec, err)
		}
		s.entries[j.name] = id
		logx.Infof("[scheduler] %s scheduled: %s", j.name, j.spec)
	}

	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	logx.Infof("[scheduler] Cron started with %d jobs", len(s.entries))
}

// Stop stops the scheduler and waits for running jobs until ctx is done
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		logx.Warn("[scheduler] Stopped before running jobs finished")
	}
	logx.Info("[scheduler] Cron stopped")
}

// Next returns the next activation of a registered job
func (s *Scheduler) Next(name string) (time.Time, bool) {
	id, ok := s.entries[name]
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(id).Schedule.Next(time.Now().In(s.loc)), true
}

func (s *Scheduler) fullBatch(ctx context.Context) error {
	report, err := s.matcher.RunFullBatch(ctx)
	if err != nil {
		return err
	}
	logx.Infof("[scheduler] Full batch scored %d pairs across %d jobs", report.Stats.Scored, report.Stats.Jobs)
	return nil
}

func (s *Scheduler) incremental(ctx context.Context) error {
	_, err := s.matcher.RunIncremental(ctx)
	return err
}

func (s *Scheduler) digest(f notification.Frequency) func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := s.digests.EnqueueDigest(ctx, f)
		return err
	}
}

// cronLogger routes cron's own messages through logx
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	logx.Debugw("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	logx.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
