package matchsrv

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Abraxas-365/relay-match/pkg/kernel"
	"github.com/Abraxas-365/relay-match/recruitment/application"
	"github.com/Abraxas-365/relay-match/recruitment/candidate"
	"github.com/Abraxas-365/relay-match/recruitment/job"
	"github.com/Abraxas-365/relay-match/recruitment/matching"
)

// ============================================================================
// Oracle & scorer stubs
// ============================================================================

type stubOracle struct {
	mu       sync.Mutex
	respond  func(ctx context.Context, prompt matching.Prompt) (string, error)
	prompts  []matching.Prompt
	response string
	err      error
}

func (s *stubOracle) Generate(ctx context.Context, prompt matching.Prompt) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()
	if s.respond != nil {
		return s.respond(ctx, prompt)
	}
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubOracle) Model() string {
	return "stub-model"
}

type scorerFunc func(ctx context.Context, c *candidate.Candidate, j *job.Job) (matching.MatchScore, error)

func (f scorerFunc) Score(ctx context.Context, c *candidate.Candidate, j *job.Job) (matching.MatchScore, error) {
	return f(ctx, c, j)
}

// fixedScorer returns the overall value configured for a candidate, 50 by default
func fixedScorer(overall map[kernel.CandidateID]int) scorerFunc {
	return func(_ context.Context, c *candidate.Candidate, _ *job.Job) (matching.MatchScore, error) {
		v, ok := overall[c.ID]
		if !ok {
			v = 50
		}
		return matching.MatchScore{Overall: v, Skill: v, CultureFit: v, Wellbeing: v, Experience: v, Source: matching.SourceOracle}, nil
	}
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
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func newJob(id string, required ...kernel.Skill) *job.Job {
	return &job.Job{
		ID:             kernel.JobID(id),
		Title:          kernel.JobTitle("Engineer " + id),
		Description:    "Build things",
		RequiredSkills: required,
		PostedBy:       "employer-1",
		Status:         job.JobStatusOpen,
		CreatedAt:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func candidates(n int) []*candidate.Candidate {
	out := make([]*candidate.Candidate, n)
	for i := range out {
		out[i] = newCandidate(fmt.Sprintf("cand-%02d", i))
	}
	return out
}

// ============================================================================
// Repositories
// ============================================================================

type memApplications struct {
	mu          sync.Mutex
	applied     application.PairSet
	prefetchErr error
	lookupErr   error
	lookups     int
	updates     map[application.Pair]application.ScoreUpdate
}

func newMemApplications() *memApplications {
	return &memApplications{
		applied: make(application.PairSet),
		updates: make(map[application.Pair]application.ScoreUpdate),
	}
}

func (m *memApplications) ExistsByJobAndCandidate(_ context.Context, jobID kernel.JobID, candidateID kernel.CandidateID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	if m.lookupErr != nil {
		return false, m.lookupErr
	}
	return m.applied.Has(jobID, candidateID), nil
}

func (m *memApplications) AppliedPairs(_ context.Context, jobIDs []kernel.JobID, candidateIDs []kernel.CandidateID) (application.PairSet, error) {
	if m.prefetchErr != nil {
		return nil, m.prefetchErr
	}
	out := make(application.PairSet)
	for _, j := range jobIDs {
		for _, c := range candidateIDs {
			if m.applied.Has(j, c) {
				out.Add(j, c)
			}
		}
	}
	return out, nil
}

func (m *memApplications) UpdateMatchScore(_ context.Context, jobID kernel.JobID, candidateID kernel.CandidateID, update application.ScoreUpdate) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.applied.Has(jobID, candidateID) {
		return false, nil
	}
	m.updates[application.Pair{JobID: jobID, CandidateID: candidateID}] = update
	return true, nil
}

type memHistory struct {
	mu        sync.Mutex
	records   []matching.MatchHistoryRecord
	err       error
	appendErr error
	since     time.Time
}

func (m *memHistory) ListByUserSince(_ context.Context, userID kernel.UserID, since time.Time) ([]matching.MatchHistoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.since = since
	if m.err != nil {
		return nil, m.err
	}
	var out []matching.MatchHistoryRecord
	for _, r := range m.records {
		if r.UserID == userID && !r.ScoredAt.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memHistory) ListByUserAndCandidates(_ context.Context, userID kernel.UserID, ids []kernel.CandidateID) ([]matching.MatchHistoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	want := make(map[kernel.CandidateID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []matching.MatchHistoryRecord
	for _, r := range m.records {
		if r.UserID == userID && want[r.CandidateID] {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memHistory) ListByJobsSince(_ context.Context, jobIDs []kernel.JobID, since time.Time, minOverall int) ([]matching.MatchHistoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[kernel.JobID]bool, len(jobIDs))
	for _, id := range jobIDs {
		want[id] = true
	}
	var out []matching.MatchHistoryRecord
	for _, r := range m.records {
		if want[r.JobID] && !r.ScoredAt.Before(since) && r.Score.Overall >= minOverall {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memHistory) Append(_ context.Context, record matching.MatchHistoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.records = append(m.records, record)
	return nil
}

type memCandidates struct {
	items   []*candidate.Candidate
	indexed []kernel.CandidateID
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

func (m *memCandidates) ListActive(_ context.Context, p kernel.PaginationOptions) (*kernel.Paginated[candidate.Candidate], error) {
	p = p.Normalize()
	var active []candidate.Candidate
	for _, c := range m.items {
		if c.IsActive() {
			active = append(active, *c)
		}
	}
	start := min(p.Offset(), len(active))
	end := min(start+p.PageSize, len(active))
	return kernel.NewPaginated(active[start:end], p, len(active)), nil
}

func (m *memCandidates) ListCreatedSince(_ context.Context, since time.Time) ([]*candidate.Candidate, error) {
	var out []*candidate.Candidate
	for _, c := range m.items {
		if c.IsActive() && c.CreatedAt.After(since) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memCandidates) NearestToEmbedding(context.Context, []float32, int) ([]*candidate.Candidate, error) {
	return nil, errors.New("not indexed")
}

func (m *memCandidates) UpdateEmbedding(_ context.Context, id kernel.CandidateID, _ []float32) error {
	m.indexed = append(m.indexed, id)
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

func (m *memJobs) GetByIDs(_ context.Context, ids []kernel.JobID) ([]*job.Job, error) {
	var out []*job.Job
	for _, id := range ids {
		for _, j := range m.items {
			if j.ID == id {
				out = append(out, j)
			}
		}
	}
	return out, nil
}

func (m *memJobs) eligible() []job.Job {
	var out []job.Job
	for _, j := range m.items {
		if j.IsEligibleForMatching() {
			out = append(out, *j)
		}
	}
	return out
}

func (m *memJobs) ListEligible(_ context.Context, p kernel.PaginationOptions) (*kernel.Paginated[job.Job], error) {
	p = p.Normalize()
	all := m.eligible()
	start := min(p.Offset(), len(all))
	end := min(start+p.PageSize, len(all))
	return kernel.NewPaginated(all[start:end], p, len(all)), nil
}

func (m *memJobs) ListCreatedSince(_ context.Context, since time.Time) ([]*job.Job, error) {
	var out []*job.Job
	for _, j := range m.items {
		if j.IsEligibleForMatching() && j.CreatedAt.After(since) {
			out = append(out, j)
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].CreatedAt.Before(out[b].CreatedAt) })
	return out, nil
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

type memWatermark struct {
	last time.Time
	set  []time.Time
}

func (m *memWatermark) LastRun(context.Context) (time.Time, error) {
	return m.last, nil
}

func (m *memWatermark) SetLastRun(_ context.Context, at time.Time) error {
	m.set = append(m.set, at)
	m.last = at
	return nil
}
