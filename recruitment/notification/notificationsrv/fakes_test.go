package notificationsrv

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Abraxas-365/relay-match/pkg/kernel"
	"github.com/Abraxas-365/relay-match/pkg/telemetry"
	"github.com/Abraxas-365/relay-match/recruitment/application"
	"github.com/Abraxas-365/relay-match/recruitment/candidate"
	"github.com/Abraxas-365/relay-match/recruitment/job"
	"github.com/Abraxas-365/relay-match/recruitment/matching"
	"github.com/Abraxas-365/relay-match/recruitment/matching/matchsrv"
	"github.com/Abraxas-365/relay-match/recruitment/notification"
)

var testNow = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

// ============================================================================
// Scoring
// ============================================================================

type scorerFunc func(ctx context.Context, c *candidate.Candidate, j *job.Job) (matching.MatchScore, error)

func (f scorerFunc) Score(ctx context.Context, c *candidate.Candidate, j *job.Job) (matching.MatchScore, error) {
	return f(ctx, c, j)
}

// pairScores maps "job|candidate" to an overall score, 50 when absent
func pairScores(scores map[string]int) scorerFunc {
	return func(_ context.Context, c *candidate.Candidate, j *job.Job) (matching.MatchScore, error) {
		v, ok := scores[j.ID.String()+"|"+c.ID.String()]
		if !ok {
			v = 50
		}
		return matching.MatchScore{Overall: v, Skill: v, CareerGrowth: v, Source: matching.SourceOracle}, nil
	}
}

type fakeMatcher struct {
	orch       *matchsrv.Orchestrator
	candidates []*candidate.Candidate
	jobs       []*job.Job
}

func (m *fakeMatcher) Orchestrator() *matchsrv.Orchestrator { return m.orch }

func (m *fakeMatcher) ActiveCandidates() matchsrv.CandidateSource {
	var active []*candidate.Candidate
	for _, c := range m.candidates {
		if c.IsActive() {
			active = append(active, c)
		}
	}
	return matchsrv.SliceSource(active)
}

func (m *fakeMatcher) AllEligibleJobs(context.Context) ([]*job.Job, error) {
	var out []*job.Job
	for _, j := range m.jobs {
		if j.IsEligibleForMatching() {
			out = append(out, j)
		}
	}
	return out, nil
}

// ============================================================================
// Fixtures
// ============================================================================

func newCandidate(id string, skills ...kernel.Skill) *candidate.Candidate {
	return &candidate.Candidate{
		ID:        kernel.CandidateID(id),
		Email:     kernel.Email(id + "@example.com"),
		FirstName: "Ada",
		LastName:  kernel.LastName(id),
		Skills:    skills,
		Status:    candidate.CandidateStatusActive,
	}
}

func newJob(id string, owner kernel.UserID, required ...kernel.Skill) *job.Job {
	return &job.Job{
		ID:             kernel.JobID(id),
		Title:          kernel.JobTitle("Engineer " + id),
		RequiredSkills: required,
		PostedBy:       owner,
		Status:         job.JobStatusOpen,
	}
}

// ============================================================================
// Repositories
// ============================================================================

type noApplications struct{}

func (noApplications) ExistsByJobAndCandidate(context.Context, kernel.JobID, kernel.CandidateID) (bool, error) {
	return false, nil
}

func (noApplications) AppliedPairs(context.Context, []kernel.JobID, []kernel.CandidateID) (application.PairSet, error) {
	return make(application.PairSet), nil
}

func (noApplications) UpdateMatchScore(context.Context, kernel.JobID, kernel.CandidateID, application.ScoreUpdate) (bool, error) {
	return false, nil
}

type memCandidates struct {
	items []*candidate.Candidate
}

func (m *memCandidates) GetByID(_ context.Context, id kernel.CandidateID) (*candidate.Candidate, error) {
	for _, c := range m.items {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, candidate.ErrCandidateNotFound().WithDetail("candidate_id", id.String())
}

func (m *memCandidates) GetByIDs(_ context.Context, ids []kernel.CandidateID) ([]*candidate.Candidate, error) {
	var out []*candidate.Candidate
	for _, id := range ids {
		for _, c := range m.items {
			if c.ID == id {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

func (m *memCandidates) ListActive(context.Context, kernel.PaginationOptions) (*kernel.Paginated[candidate.Candidate], error) {
	return nil, errors.New("not used")
}

func (m *memCandidates) ListCreatedSince(context.Context, time.Time) ([]*candidate.Candidate, error) {
	return nil, errors.New("not used")
}

func (m *memCandidates) NearestToEmbedding(context.Context, []float32, int) ([]*candidate.Candidate, error) {
	return nil, errors.New("not indexed")
}

func (m *memCandidates) UpdateEmbedding(context.Context, kernel.CandidateID, []float32) error {
	return nil
}

type memJobs struct {
	items []*job.Job
}

func (m *memJobs) GetByID(_ context.Context, id kernel.JobID) (*job.Job, error) {
	for _, j := range m.items {
		if j.ID == id {
			return j, nil
		}
	}
	return nil, job.ErrJobNotFound().WithDetail("job_id", id.String())
}

func (m *memJobs) GetByIDs(context.Context, []kernel.JobID) ([]*job.Job, error) {
	return nil, errors.New("not used")
}

func (m *memJobs) ListEligible(context.Context, kernel.PaginationOptions) (*kernel.Paginated[job.Job], error) {
	return nil, errors.New("not used")
}

func (m *memJobs) ListCreatedSince(context.Context, time.Time) ([]*job.Job, error) {
	return nil, errors.New("not used")
}

func (m *memJobs) ListByUserID(_ context.Context, userID kernel.UserID) ([]*job.Job, error) {
	var out []*job.Job
	for _, j := range m.items {
		if j.PostedBy == userID {
			out = append(out, j)
		}
	}
	return out, nil
}

func (m *memJobs) UpdateEmbedding(context.Context, kernel.JobID, []float32) error {
	return nil
}

// memNotifications keeps one record per (kind, candidate, job) like the
// unique index of the SQL table
type memNotifications struct {
	mu          sync.Mutex
	records     map[string]*notification.NotificationRecord
	runs        []notification.DigestRun
	engagements []kernel.TrackingID
	pairsErr    error
}

func newMemNotifications() *memNotifications {
	return &memNotifications{records: make(map[string]*notification.NotificationRecord)}
}

func recordKey(kind notification.Kind, c kernel.CandidateID, j kernel.JobID) string {
	return fmt.Sprintf("%s|%s|%s", kind, c, j)
}

func (m *memNotifications) NotifiedPairs(_ context.Context, jobIDs []kernel.JobID, candidateIDs []kernel.CandidateID) (application.PairSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pairsErr != nil {
		return nil, m.pairsErr
	}
	jobs := make(map[kernel.JobID]bool)
	for _, id := range jobIDs {
		jobs[id] = true
	}
	cands := make(map[kernel.CandidateID]bool)
	for _, id := range candidateIDs {
		cands[id] = true
	}
	out := make(application.PairSet)
	for _, r := range m.records {
		if r.Status != notification.RecordFailed && jobs[r.JobID] && cands[r.CandidateID] {
			out.Add(r.JobID, r.CandidateID)
		}
	}
	return out, nil
}

func (m *memNotifications) Claim(_ context.Context, record *notification.NotificationRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := recordKey(record.Kind, record.CandidateID, record.JobID)
	if cur, ok := m.records[key]; ok && cur.Status != notification.RecordFailed {
		return false, nil
	}
	cp := *record
	m.records[key] = &cp
	return true, nil
}

func (m *memNotifications) update(ids []kernel.NotificationID, fn func(*notification.NotificationRecord)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[kernel.NotificationID]bool)
	for _, id := range ids {
		want[id] = true
	}
	for _, r := range m.records {
		if want[r.ID] {
			fn(r)
		}
	}
}

func (m *memNotifications) MarkSent(_ context.Context, ids []kernel.NotificationID, messageID string, at time.Time) error {
	m.update(ids, func(r *notification.NotificationRecord) {
		r.Status = notification.RecordSent
		r.MessageID = messageID
		r.SentAt = &at
	})
	return nil
}

func (m *memNotifications) MarkFailed(_ context.Context, ids []kernel.NotificationID, reason string) error {
	m.update(ids, func(r *notification.NotificationRecord) {
		r.Status = notification.RecordFailed
		r.Error = reason
	})
	return nil
}

func (m *memNotifications) RecordDigestRun(_ context.Context, run notification.DigestRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

func (m *memNotifications) RecordEngagement(_ context.Context, id kernel.TrackingID, _ notification.EngagementType, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.engagements = append(m.engagements, id)
	return nil
}

func (m *memNotifications) withStatus(status notification.RecordStatus) []*notification.NotificationRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*notification.NotificationRecord
	for _, r := range m.records {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out
}

type memEmployers struct {
	items []*notification.Employer
	err   error
}

func (m *memEmployers) GetEmployer(_ context.Context, id kernel.UserID) (*notification.Employer, error) {
	for _, e := range m.items {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, notification.ErrEmployerNotFound().WithDetail("employer_id", id.String())
}

func (m *memEmployers) ListEmployers(context.Context) ([]*notification.Employer, error) {
	return m.items, m.err
}

type stubFeed struct {
	matches map[kernel.UserID][]notification.DigestMatch
	errFor  kernel.UserID
	calls   []feedCall
}

type feedCall struct {
	employer kernel.UserID
	since    time.Time
	minScore int
	limit    int
}

func (f *stubFeed) RecentMatches(_ context.Context, employerID kernel.UserID, since time.Time, minScore, limit int) ([]notification.DigestMatch, error) {
	f.calls = append(f.calls, feedCall{employerID, since, minScore, limit})
	if employerID == f.errFor {
		return nil, errors.New("history unavailable")
	}
	out := f.matches[employerID]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// recordingSender records messages and fails for the configured recipients
type recordingSender struct {
	mu      sync.Mutex
	sent    []notification.EmailMessage
	failFor map[kernel.Email]bool
}

func (s *recordingSender) Send(_ context.Context, msg notification.EmailMessage) (notification.SendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFor[msg.To] {
		return notification.SendResult{}, errors.New("smtp: mailbox unavailable")
	}
	s.sent = append(s.sent, msg)
	return notification.SendResult{MessageID: fmt.Sprintf("msg-%d", len(s.sent))}, nil
}

func (s *recordingSender) to(addr kernel.Email) []notification.EmailMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []notification.EmailMessage
	for _, m := range s.sent {
		if m.To == addr {
			out = append(out, m)
		}
	}
	return out
}

type memQueue struct {
	mu      sync.Mutex
	ready   []*notification.Task
	delayed []*notification.Task
	delays  []time.Duration
	err     error
}

func (q *memQueue) Enqueue(_ context.Context, task *notification.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.ready = append(q.ready, task)
	return nil
}

func (q *memQueue) EnqueueDelayed(_ context.Context, task *notification.Task, delay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.delayed = append(q.delayed, task)
	q.delays = append(q.delays, delay)
	return nil
}

func (q *memQueue) Dequeue(context.Context, time.Duration) (*notification.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.ready) == 0 {
		return nil, nil
	}
	t := q.ready[0]
	q.ready = q.ready[1:]
	return t, nil
}

func (q *memQueue) MoveDelayedToReady(context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.delayed)
	q.ready = append(q.ready, q.delayed...)
	q.delayed = nil
	return n, nil
}

// ============================================================================
// Harness
// ============================================================================

type harness struct {
	candidates *memCandidates
	jobs       *memJobs
	repo       *memNotifications
	employers  *memEmployers
	feed       *stubFeed
	sender     *recordingSender
	queue      *memQueue
	sink       *telemetry.Memory
	tracker    *Tracker
	dispatcher *Dispatcher
}

func newHarness(scorer matchsrv.PairScorer, cands []*candidate.Candidate, jobs []*job.Job, employers ...*notification.Employer) *harness {
	h := &harness{
		candidates: &memCandidates{items: cands},
		jobs:       &memJobs{items: jobs},
		repo:       newMemNotifications(),
		employers:  &memEmployers{items: employers},
		feed:       &stubFeed{matches: make(map[kernel.UserID][]notification.DigestMatch)},
		sender:     &recordingSender{failFor: make(map[kernel.Email]bool)},
		queue:      &memQueue{},
		sink:       telemetry.NewMemory(),
		tracker:    NewTracker("test-secret", "https://match.example.com", 0),
	}
	orch := matchsrv.NewOrchestrator(scorer, noApplications{}, nil, nil)
	matcher := &fakeMatcher{orch: orch, candidates: cands, jobs: jobs}

	cfg := DefaultConfig()
	cfg.AppURL = "https://app.example.com"
	h.dispatcher = NewDispatcher(matcher, h.candidates, h.jobs, h.repo, h.employers, h.feed, h.sender, h.queue, h.tracker, h.sink, cfg)
	h.dispatcher.now = func() time.Time { return testNow }
	h.tracker.now = func() time.Time { return testNow }
	return h
}
