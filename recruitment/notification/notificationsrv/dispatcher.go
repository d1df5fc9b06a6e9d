package notificationsrv

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Abraxas-365/relay-match/pkg/kernel"
	"github.com/Abraxas-365/relay-match/pkg/logx"
	"github.com/Abraxas-365/relay-match/pkg/telemetry"
	"github.com/Abraxas-365/relay-match/recruitment/candidate"
	"github.com/Abraxas-365/relay-match/recruitment/job"
	"github.com/Abraxas-365/relay-match/recruitment/matching"
	"github.com/Abraxas-365/relay-match/recruitment/matching/matchsrv"
	"github.com/Abraxas-365/relay-match/recruitment/notification"
	"github.com/google/uuid"
)

// Matcher is the part of the matching service the dispatcher scores with
type Matcher interface {
	Orchestrator() *matchsrv.Orchestrator
	ActiveCandidates() matchsrv.CandidateSource
	AllEligibleJobs(ctx context.Context) ([]*job.Job, error)
}

type Config struct {
	AppURL               string `mapstructure:"app_url"`
	NewJobLimit          int    `mapstructure:"new_job_limit"`          // new notifications sent per pass, 0 for no cap
	EmployerSummaryLimit int    `mapstructure:"employer_summary_limit"` // jobs listed per employer summary
	Concurrency          int    `mapstructure:"concurrency"`
}

func DefaultConfig() Config {
	return Config{
		AppURL:               "http://localhost:3000",
		NewJobLimit:          0,
		EmployerSummaryLimit: 5,
		Concurrency:          matchsrv.DefaultConcurrency,
	}
}

const (
	maxMatchedSkills = 5
	maxGrowthItems   = 3
)

// Dispatcher turns match results into candidate notifications, employer
// summaries and digests
type Dispatcher struct {
	matcher    Matcher
	candidates candidate.Repository
	jobs       job.Repository
	repo       notification.Repository
	employers  notification.EmployerDirectory
	feed       notification.MatchFeed
	sender     notification.EmailSender
	queue      notification.TaskQueue
	tracker    *Tracker
	telemetry  telemetry.Sink
	cfg        Config
	now        func() time.Time
}

// NewDispatcher creates the dispatcher. queue may be nil, tasks then run in
// a detached goroutine.
func NewDispatcher(
	matcher Matcher,
	candidates candidate.Repository,
	jobs job.Repository,
	repo notification.Repository,
	employers notification.EmployerDirectory,
	feed notification.MatchFeed,
	sender notification.EmailSender,
	queue notification.TaskQueue,
	tracker *Tracker,
	sink telemetry.Sink,
	cfg Config,
) *Dispatcher {
	return &Dispatcher{
		matcher:    matcher,
		candidates: candidates,
		jobs:       jobs,
		repo:       repo,
		employers:  employers,
		feed:       feed,
		sender:     sender,
		queue:      queue,
		tracker:    tracker,
		telemetry:  telemetry.OrNop(sink),
		cfg:        cfg,
		now:        time.Now,
	}
}

// ============================================================================
// New job
// ============================================================================

// DispatchForNewJob notifies every active candidate scoring at least
// NewJobMinScore on the job, once per candidate
func (d *Dispatcher) DispatchForNewJob(ctx context.Context, jobID kernel.JobID) (*notification.DispatchReport, error) {
	started := d.now()
	report := &notification.DispatchReport{Kind: notification.KindNewJob}

	j, err := d.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := j.EnsureEligible(); err != nil {
		return nil, err
	}

	opts := matchsrv.DefaultBatchOptions()
	opts.MinScore = notification.NewJobMinScore
	opts.KeepAll = true
	opts.Concurrency = d.cfg.Concurrency
	opts.GroupBy = matching.GroupByJob

	batch, err := d.matcher.Orchestrator().Run(ctx, []*job.Job{j}, d.matcher.ActiveCandidates(), opts)
	if err != nil {
		if batch == nil {
			return nil, err
		}
		logx.Warnw("new job matching ended early, dispatching partial results", "job_id", j.ID, "error", err)
	}
	report.Scored = batch.Stats.Scored

	var entries []matching.MatchEntry
	if len(batch.Results) > 0 {
		entries = batch.Results[0].Matches
	}
	report.Qualified = len(entries)
	if len(entries) == 0 {
		d.finish(report, started, jobID.String())
		return report, nil
	}

	ids := make([]kernel.CandidateID, len(entries))
	for i, e := range entries {
		ids[i] = e.CandidateID
	}

	notified, err := d.repo.NotifiedPairs(ctx, []kernel.JobID{j.ID}, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load notified pairs: %w", err)
	}

	found, err := d.candidates.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load matched candidates: %w", err)
	}
	byID := make(map[kernel.CandidateID]*candidate.Candidate, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}

	for _, e := range entries {
		if notified.Has(j.ID, e.CandidateID) {
			report.AlreadyNotified++
			continue
		}
		if d.cfg.NewJobLimit > 0 && report.Sent+report.Failed >= d.cfg.NewJobLimit {
			report.Deferred++
			continue
		}
		c, ok := byID[e.CandidateID]
		if !ok {
			report.Failed++
			logx.Warnw("matched candidate disappeared before dispatch", "job_id", j.ID, "candidate_id", e.CandidateID)
			continue
		}
		d.notifyCandidate(ctx, report, j, c, e.Score)
	}

	d.finish(report, started, jobID.String())
	return report, nil
}

func (d *Dispatcher) notifyCandidate(ctx context.Context, report *notification.DispatchReport, j *job.Job, c *candidate.Candidate, score matching.MatchScore) {
	trackingID := d.tracker.NewTrackingID()
	record := &notification.NotificationRecord{
		ID:          kernel.NewNotificationID(uuid.NewString()),
		Kind:        notification.KindNewJob,
		CandidateID: c.ID,
		JobID:       j.ID,
		RecipientID: c.ID.String(),
		Recipient:   c.Email,
		Score:       score.Overall,
		TrackingID:  trackingID,
		Status:      notification.RecordClaimed,
		CreatedAt:   d.now(),
	}

	claimed, err := d.repo.Claim(ctx, record)
	if err != nil {
		report.Failed++
		logx.Errorw("failed to claim notification", "job_id", j.ID, "candidate_id", c.ID, "error", err)
		return
	}
	if !claimed {
		report.AlreadyNotified++
		return
	}

	matched, _ := matching.MatchSkills(c.Skills, j.RequiredSkills)
	view := newJobView{
		CandidateName: c.GetFullName(),
		JobTitle:      string(j.Title),
		Company:       string(j.Company),
		Score:         score.Overall,
		MatchedSkills: limit(matching.SkillNames(matched), maxMatchedSkills),
		Growth:        growthOpportunities(c, j, score),
		JobURL:        d.clickURL(trackingID, d.appURL("/jobs/%s", j.ID)),
		PixelURL:      d.pixelURL(trackingID),
	}

	subject := fmt.Sprintf("New match: %s (%d/100)", j.Title, score.Overall)
	d.deliver(ctx, report, "new_job", view, c.Email, subject, []kernel.NotificationID{record.ID}, "candidate_id", c.ID)
}

// growthOpportunities lists preferred skills the candidate does not have yet
func growthOpportunities(c *candidate.Candidate, j *job.Job, score matching.MatchScore) []string {
	_, missing := matching.MatchSkills(c.Skills, j.PreferredSkills)
	growth := make([]string, 0, maxGrowthItems)
	for _, s := range limit(matching.SkillNames(missing), maxGrowthItems) {
		growth = append(growth, "Build experience with "+s)
	}
	if len(growth) == 0 && score.CareerGrowth >= 70 {
		growth = append(growth, fmt.Sprintf("Strong career growth potential (%d/100)", score.CareerGrowth))
	}
	return growth
}

// ============================================================================
// New candidate
// ============================================================================

// DispatchForNewCandidate scores a new candidate against open jobs and sends
// one summary per owning employer with its best matching jobs
func (d *Dispatcher) DispatchForNewCandidate(ctx context.Context, candidateID kernel.CandidateID) (*notification.DispatchReport, error) {
	started := d.now()
	report := &notification.DispatchReport{Kind: notification.KindNewCandidate}

	c, err := d.candidates.GetByID(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	if !c.IsEligibleForMatching() {
		return nil, candidate.ErrCandidateInactive().WithDetail("candidate_id", c.ID.String())
	}

	jobs, err := d.matcher.AllEligibleJobs(ctx)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		d.finish(report, started, candidateID.String())
		return report, nil
	}

	opts := matchsrv.DefaultBatchOptions()
	opts.MinScore = notification.NewCandidateMinScore
	opts.KeepAll = true
	opts.Concurrency = d.cfg.Concurrency
	opts.GroupBy = matching.GroupByCandidate

	result, stats, err := d.matcher.Orchestrator().MatchCandidateToJobs(ctx, c, jobs, opts)
	if err != nil && result == nil {
		return nil, err
	}
	if err != nil {
		logx.Warnw("new candidate matching ended early, dispatching partial results", "candidate_id", c.ID, "error", err)
	}
	report.Scored = stats.Scored
	report.Qualified = len(result.Matches)
	if len(result.Matches) == 0 {
		d.finish(report, started, candidateID.String())
		return report, nil
	}

	jobByID := make(map[kernel.JobID]*job.Job, len(jobs))
	jobIDs := make([]kernel.JobID, 0, len(result.Matches))
	for _, j := range jobs {
		jobByID[j.ID] = j
	}
	for _, e := range result.Matches {
		jobIDs = append(jobIDs, e.JobID)
	}

	notified, err := d.repo.NotifiedPairs(ctx, jobIDs, []kernel.CandidateID{c.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to load notified pairs: %w", err)
	}

	// matches are ranked, grouping keeps each employer's best first
	byEmployer := make(map[kernel.UserID][]matching.MatchEntry)
	for _, e := range result.Matches {
		if notified.Has(e.JobID, c.ID) {
			report.AlreadyNotified++
			continue
		}
		owner := jobByID[e.JobID].EmployerID()
		if len(byEmployer[owner]) < d.summaryLimit() {
			byEmployer[owner] = append(byEmployer[owner], e)
		}
	}

	owners := make([]kernel.UserID, 0, len(byEmployer))
	for owner := range byEmployer {
		owners = append(owners, owner)
	}
	sort.Slice(owners, func(i, k int) bool { return owners[i] < owners[k] })

	for _, owner := range owners {
		d.notifyEmployer(ctx, report, owner, c, byEmployer[owner], jobByID)
	}

	d.finish(report, started, candidateID.String())
	return report, nil
}

func (d *Dispatcher) notifyEmployer(ctx context.Context, report *notification.DispatchReport, owner kernel.UserID, c *candidate.Candidate, entries []matching.MatchEntry, jobByID map[kernel.JobID]*job.Job) {
	employer, err := d.employers.GetEmployer(ctx, owner)
	if err != nil {
		report.Failed++
		logx.Errorw("failed to load employer for summary", "employer_id", owner, "candidate_id", c.ID, "error", err)
		return
	}

	trackingID := d.tracker.NewTrackingID()
	var ids []kernel.NotificationID
	var lines []summaryLine
	for _, e := range entries {
		record := &notification.NotificationRecord{
			ID:          kernel.NewNotificationID(uuid.NewString()),
			Kind:        notification.KindNewCandidate,
			CandidateID: c.ID,
			JobID:       e.JobID,
			RecipientID: owner.String(),
			Recipient:   employer.Email,
			Score:       e.Score.Overall,
			TrackingID:  trackingID,
			Status:      notification.RecordClaimed,
			CreatedAt:   d.now(),
		}
		claimed, err := d.repo.Claim(ctx, record)
		if err != nil {
			logx.Errorw("failed to claim notification", "job_id", e.JobID, "candidate_id", c.ID, "error", err)
			continue
		}
		if !claimed {
			report.AlreadyNotified++
			continue
		}
		ids = append(ids, record.ID)
		lines = append(lines, summaryLine{
			JobTitle: string(jobByID[e.JobID].Title),
			Score:    e.Score.Overall,
			URL:      d.clickURL(trackingID, d.appURL("/jobs/%s/candidates/%s", e.JobID, c.ID)),
		})
	}
	if len(ids) == 0 {
		return
	}

	view := newCandidateView{
		EmployerName:  employer.Name,
		CandidateName: c.GetFullName(),
		Headline:      c.Headline,
		Matches:       lines,
		PixelURL:      d.pixelURL(trackingID),
	}
	subject := fmt.Sprintf("%s matches %d of your open roles", c.GetFullName(), len(lines))
	d.deliver(ctx, report, "new_candidate", view, employer.Email, subject, ids, "employer_id", owner)
}

func (d *Dispatcher) summaryLimit() int {
	if d.cfg.EmployerSummaryLimit <= 0 {
		return DefaultConfig().EmployerSummaryLimit
	}
	return d.cfg.EmployerSummaryLimit
}

// ============================================================================
// Digest
// ============================================================================

// RunDigest sends the periodic digest to every employer subscribed at
// frequency. Every checked employer gets a recorded run, including empty ones.
func (d *Dispatcher) RunDigest(ctx context.Context, frequency notification.Frequency) (*notification.DigestReport, error) {
	if !frequency.IsValid() {
		return nil, notification.ErrInvalidFrequency().WithDetail("frequency", frequency)
	}

	started := d.now()
	report := &notification.DigestReport{Frequency: frequency, Runs: []notification.DigestRun{}}

	employers, err := d.employers.ListEmployers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list employers: %w", err)
	}
	report.Employers = len(employers)

	periodEnd := d.now()
	periodStart := periodEnd.Add(-frequency.Period())

	for _, e := range employers {
		if !e.Wants(frequency) {
			report.Skipped++
			continue
		}

		run := d.digestFor(ctx, e, frequency, periodStart, periodEnd)
		if err := d.repo.RecordDigestRun(ctx, run); err != nil {
			logx.Errorw("failed to record digest run", "employer_id", e.ID, "status", run.Status, "error", err)
		}

		switch run.Status {
		case notification.DigestSent:
			report.Sent++
		case notification.DigestNothingToSend:
			report.NothingToSend++
		default:
			report.Failed++
		}
		report.Runs = append(report.Runs, run)

		d.telemetry.Record(telemetry.Event{
			Name:   notification.EventDigestRun,
			At:     d.now(),
			Labels: map[string]string{"status": string(run.Status), "frequency": string(frequency)},
			Counts: map[string]int{"matches": run.MatchCount},
		})
	}

	report.Elapsed = d.now().Sub(started)
	logx.Infof("%s digest: %d employers, %d sent, %d nothing to send, %d skipped, %d failed",
		frequency, report.Employers, report.Sent, report.NothingToSend, report.Skipped, report.Failed)
	d.telemetry.Record(telemetry.Event{
		Name:     notification.EventDigestPass,
		At:       d.now(),
		Duration: report.Elapsed,
		Labels:   map[string]string{"frequency": string(frequency)},
		Counts: map[string]int{
			"sent":            report.Sent,
			"nothing_to_send": report.NothingToSend,
			"skipped":         report.Skipped,
			"failed":          report.Failed,
		},
	})

	return report, nil
}

func (d *Dispatcher) digestFor(ctx context.Context, e *notification.Employer, frequency notification.Frequency, from, to time.Time) notification.DigestRun {
	run := notification.DigestRun{
		ID:          uuid.NewString(),
		EmployerID:  e.ID,
		Frequency:   frequency,
		PeriodStart: from,
		PeriodEnd:   to,
		CheckedAt:   d.now(),
	}

	matches, err := d.feed.RecentMatches(ctx, e.ID, from, e.MinScore(), frequency.Cap())
	if err != nil {
		run.Status = notification.DigestFailed
		run.Error = err.Error()
		logx.Errorw("failed to load digest matches", "employer_id", e.ID, "error", err)
		return run
	}

	run.MatchCount = len(matches)
	if len(matches) == 0 {
		run.Status = notification.DigestNothingToSend
		return run
	}

	run.TrackingID = d.tracker.NewTrackingID()
	lines := make([]digestLine, len(matches))
	for i, m := range matches {
		lines[i] = digestLine{
			CandidateName: m.CandidateName,
			JobTitle:      m.JobTitle,
			Score:         m.Score,
			URL:           d.clickURL(run.TrackingID, d.appURL("/jobs/%s/candidates/%s", m.JobID, m.CandidateID)),
		}
	}

	view := digestView{
		EmployerName: e.Name,
		Frequency:    frequency,
		MinScore:     e.MinScore(),
		Matches:      lines,
		PixelURL:     d.pixelURL(run.TrackingID),
	}
	html, text, err := render("digest", view)
	if err != nil {
		run.Status = notification.DigestFailed
		run.Error = err.Error()
		return run
	}

	subject := fmt.Sprintf("Your %s candidate digest: %d matches", frequency, len(matches))
	result, err := d.sender.Send(ctx, notification.EmailMessage{To: e.Email, Subject: subject, HTML: html, Text: text})
	if err != nil {
		run.Status = notification.DigestFailed
		run.Error = err.Error()
		logx.Errorw("failed to send digest", "employer_id", e.ID, "error", err)
		return run
	}

	run.Status = notification.DigestSent
	run.MessageID = result.MessageID
	return run
}

// ============================================================================
// Delivery helpers
// ============================================================================

// deliver renders and sends one email for already claimed records. Failures
// are logged per recipient and never abort the pass.
func (d *Dispatcher) deliver(ctx context.Context, report *notification.DispatchReport, tmpl string, view any, to kernel.Email, subject string, ids []kernel.NotificationID, key string, recipient any) {
	html, text, err := render(tmpl, view)
	if err == nil {
		var result notification.SendResult
		result, err = d.sender.Send(ctx, notification.EmailMessage{To: to, Subject: subject, HTML: html, Text: text})
		if err == nil {
			report.Sent++
			if err := d.repo.MarkSent(ctx, ids, result.MessageID, d.now()); err != nil {
				logx.Errorw("failed to mark notification sent", key, recipient, "error", err)
			}
			return
		}
	}

	report.Failed++
	logx.Errorw("failed to send notification", key, recipient, "kind", report.Kind, "error", err)
	d.telemetry.Record(telemetry.Event{
		Name:   notification.EventSendFailed,
		At:     d.now(),
		Labels: map[string]string{"type": string(report.Kind)},
	})
	if err := d.repo.MarkFailed(ctx, ids, err.Error()); err != nil {
		logx.Errorw("failed to mark notification failed", key, recipient, "error", err)
	}
}

func (d *Dispatcher) finish(report *notification.DispatchReport, started time.Time, subject string) {
	report.Elapsed = d.now().Sub(started)
	logx.Infof("%s dispatch for %s: %d qualified, %d sent, %d already notified, %d failed, %d deferred",
		report.Kind, subject, report.Qualified, report.Sent, report.AlreadyNotified, report.Failed, report.Deferred)
	d.telemetry.Record(telemetry.Event{
		Name:     notification.EventDispatched,
		At:       d.now(),
		Duration: report.Elapsed,
		Labels:   map[string]string{"type": string(report.Kind)},
		Counts: map[string]int{
			"qualified":        report.Qualified,
			"sent":             report.Sent,
			"already_notified": report.AlreadyNotified,
			"failed":           report.Failed,
			"deferred":         report.Deferred,
		},
	})
}

func (d *Dispatcher) appURL(format string, args ...any) string {
	return strings.TrimRight(d.cfg.AppURL, "/") + fmt.Sprintf(format, args...)
}

// clickURL falls back to the plain target when the link cannot be signed
func (d *Dispatcher) clickURL(id kernel.TrackingID, target string) string {
	u, err := d.tracker.ClickURL(id, target)
	if err != nil {
		logx.Warnw("failed to sign click link", "tracking_id", id, "error", err)
		return target
	}
	return u
}

func (d *Dispatcher) pixelURL(id kernel.TrackingID) string {
	u, err := d.tracker.OpenURL(id)
	if err != nil {
		logx.Warnw("failed to sign open pixel", "tracking_id", id, "error", err)
		return ""
	}
	return u
}

func limit(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
