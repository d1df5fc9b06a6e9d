package notificationsrv

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Abraxas-365/relay-match/pkg/errx"
	"github.com/Abraxas-365/relay-match/pkg/kernel"
	"github.com/Abraxas-365/relay-match/recruitment/candidate"
	"github.com/Abraxas-365/relay-match/recruitment/job"
	"github.com/Abraxas-365/relay-match/recruitment/matching"
	"github.com/Abraxas-365/relay-match/recruitment/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func employer(id string, pref notification.DigestPreference) *notification.Employer {
	return &notification.Employer{
		ID:         kernel.UserID(id),
		Email:      kernel.Email(id + "@corp.example.com"),
		Name:       "Hiring " + id,
		Company:    "Corp " + id,
		Preference: pref,
	}
}

// ============================================================================
// New job
// ============================================================================

func TestDispatchForNewJob_NotifiesEachQualifiedCandidateOnce(t *testing.T) {
	cands := []*candidate.Candidate{newCandidate("c1"), newCandidate("c2"), newCandidate("c3")}
	jobs := []*job.Job{newJob("j1", "emp-1", "go")}
	h := newHarness(pairScores(map[string]int{"j1|c1": 88, "j1|c2": 70, "j1|c3": 69}), cands, jobs)
	ctx := context.Background()

	first, err := h.dispatcher.DispatchForNewJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, 3, first.Scored)
	assert.Equal(t, 2, first.Qualified)
	assert.Equal(t, 2, first.Sent)
	assert.Zero(t, first.Failed)

	second, err := h.dispatcher.DispatchForNewJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, 2, second.Qualified)
	assert.Zero(t, second.Sent)
	assert.Equal(t, 2, second.AlreadyNotified)

	assert.Len(t, h.sender.to("c1@example.com"), 1)
	assert.Len(t, h.sender.to("c2@example.com"), 1)
	assert.Empty(t, h.sender.to("c3@example.com"))

	sent := h.repo.withStatus(notification.RecordSent)
	require.Len(t, sent, 2)
	for _, r := range sent {
		assert.NotEmpty(t, r.MessageID)
		assert.False(t, r.TrackingID.IsEmpty())
	}
	assert.Len(t, h.sink.Named(notification.EventDispatched), 2)
}

func constantScore(v int) scorerFunc {
	return func(context.Context, *candidate.Candidate, *job.Job) (matching.MatchScore, error) {
		return matching.MatchScore{Overall: v, Skill: v, Source: matching.SourceOracle}, nil
	}
}

func manyCandidates(n int) []*candidate.Candidate {
	out := make([]*candidate.Candidate, n)
	for i := range out {
		out[i] = newCandidate(fmt.Sprintf("c%03d", i))
	}
	return out
}

func TestDispatchForNewJob_NotifiesEveryQualifiedCandidateInLargePools(t *testing.T) {
	h := newHarness(constantScore(90), manyCandidates(600), []*job.Job{newJob("j1", "emp-1")})
	ctx := context.Background()

	first, err := h.dispatcher.DispatchForNewJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, 600, first.Scored)
	assert.Equal(t, 600, first.Qualified)
	assert.Equal(t, 600, first.Sent)
	assert.Zero(t, first.Deferred)

	second, err := h.dispatcher.DispatchForNewJob(ctx, "j1")
	require.NoError(t, err)
	assert.Zero(t, second.Sent)
	assert.Equal(t, 600, second.AlreadyNotified)
	assert.Len(t, h.sender.sent, 600)
}

func TestDispatchForNewJob_CapDefersTheRestToLaterPasses(t *testing.T) {
	h := newHarness(constantScore(90), manyCandidates(600), []*job.Job{newJob("j1", "emp-1")})
	h.dispatcher.cfg.NewJobLimit = 250
	ctx := context.Background()

	first, err := h.dispatcher.DispatchForNewJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, 250, first.Sent)
	assert.Equal(t, 350, first.Deferred)

	second, err := h.dispatcher.DispatchForNewJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, 250, second.AlreadyNotified)
	assert.Equal(t, 250, second.Sent)
	assert.Equal(t, 100, second.Deferred)

	third, err := h.dispatcher.DispatchForNewJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, 100, third.Sent)
	assert.Zero(t, third.Deferred)

	recipients := make(map[kernel.Email]bool)
	for _, m := range h.sender.sent {
		recipients[m.To] = true
	}
	assert.Len(t, recipients, 600)
}

func TestDispatchForNewJob_EmailContent(t *testing.T) {
	c := newCandidate("c1", "go")
	j := newJob("j1", "emp-1", "go")
	j.PreferredSkills = []kernel.Skill{"kubernetes"}
	j.Company = "Acme"
	h := newHarness(pairScores(map[string]int{"j1|c1": 91}), []*candidate.Candidate{c}, []*job.Job{j})

	_, err := h.dispatcher.DispatchForNewJob(context.Background(), "j1")
	require.NoError(t, err)

	msgs := h.sender.to("c1@example.com")
	require.Len(t, msgs, 1)
	assert.Equal(t, "New match: Engineer j1 (91/100)", msgs[0].Subject)
	assert.Contains(t, msgs[0].HTML, "https://match.example.com/t/click/")
	assert.Contains(t, msgs[0].HTML, "https://match.example.com/t/open/")
	assert.Contains(t, msgs[0].Text, "Build experience with kubernetes")
}

func TestDispatchForNewJob_SendFailureDoesNotAbortPass(t *testing.T) {
	cands := []*candidate.Candidate{newCandidate("c1"), newCandidate("c2"), newCandidate("c3")}
	jobs := []*job.Job{newJob("j1", "emp-1")}
	h := newHarness(pairScores(map[string]int{"j1|c1": 90, "j1|c2": 85, "j1|c3": 80}), cands, jobs)
	h.sender.failFor["c2@example.com"] = true
	ctx := context.Background()

	report, err := h.dispatcher.DispatchForNewJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, 2, report.Sent)
	assert.Equal(t, 1, report.Failed)

	failed := h.repo.withStatus(notification.RecordFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, kernel.CandidateID("c2"), failed[0].CandidateID)
	assert.Contains(t, failed[0].Error, "mailbox unavailable")
	assert.Len(t, h.sink.Named(notification.EventSendFailed), 1)

	// a failed record can be claimed again by a later pass
	delete(h.sender.failFor, "c2@example.com")
	retry, err := h.dispatcher.DispatchForNewJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, 1, retry.Sent)
	assert.Equal(t, 2, retry.AlreadyNotified)
	assert.Len(t, h.sender.to("c2@example.com"), 1)
}

func TestDispatchForNewJob_RejectsIneligibleJob(t *testing.T) {
	j := newJob("j1", "emp-1")
	j.Status = job.JobStatusClosed
	h := newHarness(pairScores(nil), []*candidate.Candidate{newCandidate("c1")}, []*job.Job{j})

	_, err := h.dispatcher.DispatchForNewJob(context.Background(), "j1")
	require.Error(t, err)
	assert.True(t, errx.IsCode(err, job.CodeJobNotEligible))

	_, err = h.dispatcher.DispatchForNewJob(context.Background(), "missing")
	assert.True(t, errx.IsCode(err, job.CodeJobNotFound))
}

func TestDispatchForNewJob_NotifiedPairsError(t *testing.T) {
	h := newHarness(pairScores(map[string]int{"j1|c1": 90}), []*candidate.Candidate{newCandidate("c1")}, []*job.Job{newJob("j1", "emp-1")})
	h.repo.pairsErr = errors.New("connection reset")

	_, err := h.dispatcher.DispatchForNewJob(context.Background(), "j1")
	require.Error(t, err)
	assert.Empty(t, h.sender.sent)
}

// ============================================================================
// New candidate
// ============================================================================

func TestDispatchForNewCandidate_SummarisesPerEmployer(t *testing.T) {
	closed := newJob("j5", "emp-1")
	closed.Status = job.JobStatusClosed
	jobs := []*job.Job{
		newJob("j1", "emp-1"),
		newJob("j2", "emp-1"),
		newJob("j3", "emp-1"),
		newJob("j4", "emp-2"),
		closed,
	}
	scores := map[string]int{"j1|c1": 90, "j2|c1": 60, "j3|c1": 59, "j4|c1": 75, "j5|c1": 99}
	h := newHarness(pairScores(scores), []*candidate.Candidate{newCandidate("c1")}, jobs,
		employer("emp-1", notification.DigestPreference{}),
		employer("emp-2", notification.DigestPreference{}),
	)

	report, err := h.dispatcher.DispatchForNewCandidate(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 4, report.Scored)
	assert.Equal(t, 3, report.Qualified)
	assert.Equal(t, 2, report.Sent)

	emp1 := h.sender.to("emp-1@corp.example.com")
	require.Len(t, emp1, 1)
	assert.Contains(t, emp1[0].Subject, "matches 2 of your open roles")
	assert.Contains(t, emp1[0].Text, "Engineer j1")
	assert.Contains(t, emp1[0].Text, "Engineer j2")
	assert.NotContains(t, emp1[0].Text, "Engineer j3")

	emp2 := h.sender.to("emp-2@corp.example.com")
	require.Len(t, emp2, 1)
	assert.Contains(t, emp2[0].Subject, "matches 1 of your open roles")

	assert.Len(t, h.repo.withStatus(notification.RecordSent), 3)

	again, err := h.dispatcher.DispatchForNewCandidate(context.Background(), "c1")
	require.NoError(t, err)
	assert.Zero(t, again.Sent)
	assert.Equal(t, 3, again.AlreadyNotified)
}

func TestDispatchForNewCandidate_ReachesEveryEmployerWithManyOpenJobs(t *testing.T) {
	scores := make(map[string]int)
	jobs := make([]*job.Job, 0, 1101)
	for i := range 1100 {
		id := fmt.Sprintf("j%04d", i)
		jobs = append(jobs, newJob(id, "emp-1"))
		scores[id+"|c1"] = 90
	}
	jobs = append(jobs, newJob("j-last", "emp-2"))
	scores["j-last|c1"] = 61

	h := newHarness(pairScores(scores), []*candidate.Candidate{newCandidate("c1")}, jobs,
		employer("emp-1", notification.DigestPreference{}),
		employer("emp-2", notification.DigestPreference{}),
	)

	report, err := h.dispatcher.DispatchForNewCandidate(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 1101, report.Qualified)
	assert.Equal(t, 2, report.Sent)

	emp2 := h.sender.to("emp-2@corp.example.com")
	require.Len(t, emp2, 1)
	assert.Contains(t, emp2[0].Text, "Engineer j-last")
}

func TestDispatchForNewCandidate_SummaryLimitAndMissingEmployer(t *testing.T) {
	jobs := []*job.Job{newJob("j1", "emp-1"), newJob("j2", "emp-1"), newJob("j3", "emp-9")}
	scores := map[string]int{"j1|c1": 90, "j2|c1": 80, "j3|c1": 85}
	h := newHarness(pairScores(scores), []*candidate.Candidate{newCandidate("c1")}, jobs,
		employer("emp-1", notification.DigestPreference{}),
	)
	h.dispatcher.cfg.EmployerSummaryLimit = 1

	report, err := h.dispatcher.DispatchForNewCandidate(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, 1, report.Failed)

	msgs := h.sender.to("emp-1@corp.example.com")
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "Engineer j1")
	assert.NotContains(t, msgs[0].Text, "Engineer j2")
}

func TestDispatchForNewCandidate_InactiveCandidate(t *testing.T) {
	c := newCandidate("c1")
	c.Status = candidate.CandidateStatusInactive
	h := newHarness(pairScores(nil), []*candidate.Candidate{c}, []*job.Job{newJob("j1", "emp-1")})

	_, err := h.dispatcher.DispatchForNewCandidate(context.Background(), "c1")
	assert.True(t, errx.IsCode(err, candidate.CodeCandidateInactive))
}

func TestDispatchForNewCandidate_NoOpenJobs(t *testing.T) {
	h := newHarness(pairScores(nil), []*candidate.Candidate{newCandidate("c1")}, nil)

	report, err := h.dispatcher.DispatchForNewCandidate(context.Background(), "c1")
	require.NoError(t, err)
	assert.Zero(t, report.Qualified)
	assert.Empty(t, h.sender.sent)
}

// ============================================================================
// Digest
// ============================================================================

func TestRunDigest_RecordsEveryCheckedEmployer(t *testing.T) {
	weekly := notification.DigestPreference{Enabled: true, Frequency: notification.FrequencyWeekly}
	h := newHarness(pairScores(nil), nil, nil,
		employer("emp-1", weekly),
		employer("emp-2", weekly),
		employer("emp-3", notification.DigestPreference{Enabled: true, Frequency: notification.FrequencyDaily}),
		employer("emp-4", notification.DigestPreference{Enabled: false, Frequency: notification.FrequencyWeekly}),
	)
	h.feed.matches["emp-1"] = []notification.DigestMatch{
		{CandidateID: "c1", CandidateName: "Ada Lovelace", JobID: "j1", JobTitle: "Backend Engineer", Score: 92},
		{CandidateID: "c2", CandidateName: "Grace Hopper", JobID: "j1", JobTitle: "Backend Engineer", Score: 81},
	}

	report, err := h.dispatcher.RunDigest(context.Background(), notification.FrequencyWeekly)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Employers)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, 1, report.NothingToSend)
	assert.Zero(t, report.Failed)

	require.Len(t, h.repo.runs, 2)
	byEmployer := map[kernel.UserID]notification.DigestRun{}
	for _, r := range h.repo.runs {
		byEmployer[r.EmployerID] = r
	}
	assert.Equal(t, notification.DigestSent, byEmployer["emp-1"].Status)
	assert.Equal(t, 2, byEmployer["emp-1"].MatchCount)
	assert.NotEmpty(t, byEmployer["emp-1"].MessageID)
	assert.Equal(t, notification.DigestNothingToSend, byEmployer["emp-2"].Status)
	assert.Equal(t, testNow.Add(-7*24*time.Hour), byEmployer["emp-2"].PeriodStart)

	require.Len(t, h.feed.calls, 2)
	assert.Equal(t, notification.DefaultDigestMinScore, h.feed.calls[0].minScore)
	assert.Equal(t, 20, h.feed.calls[0].limit)

	msgs := h.sender.to("emp-1@corp.example.com")
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "Ada Lovelace")
	assert.Empty(t, h.sender.to("emp-2@corp.example.com"))
	assert.Len(t, h.sink.Named(notification.EventDigestRun), 2)
	assert.Len(t, h.sink.Named(notification.EventDigestPass), 1)
}

func TestRunDigest_EmptyRunStillRecorded(t *testing.T) {
	h := newHarness(pairScores(nil), nil, nil,
		employer("emp-1", notification.DigestPreference{Enabled: true, MinScore: 85, Frequency: notification.FrequencyDaily}),
	)

	report, err := h.dispatcher.RunDigest(context.Background(), notification.FrequencyDaily)
	require.NoError(t, err)
	assert.Equal(t, 1, report.NothingToSend)
	require.Len(t, h.repo.runs, 1)
	assert.Equal(t, notification.DigestNothingToSend, h.repo.runs[0].Status)
	assert.Zero(t, h.repo.runs[0].MatchCount)
	assert.Equal(t, 85, h.feed.calls[0].minScore)
	assert.Equal(t, 10, h.feed.calls[0].limit)
	assert.Empty(t, h.sender.sent)
}

func TestRunDigest_FailuresAreRecordedPerEmployer(t *testing.T) {
	daily := notification.DigestPreference{Enabled: true, Frequency: notification.FrequencyDaily}
	h := newHarness(pairScores(nil), nil, nil, employer("emp-1", daily), employer("emp-2", daily))
	h.feed.errFor = "emp-1"
	h.feed.matches["emp-2"] = []notification.DigestMatch{{CandidateID: "c1", JobID: "j1", Score: 90}}
	h.sender.failFor["emp-2@corp.example.com"] = true

	report, err := h.dispatcher.RunDigest(context.Background(), notification.FrequencyDaily)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Failed)
	require.Len(t, h.repo.runs, 2)
	for _, r := range h.repo.runs {
		assert.Equal(t, notification.DigestFailed, r.Status)
		assert.NotEmpty(t, r.Error)
	}
}

func TestRunDigest_InvalidFrequency(t *testing.T) {
	h := newHarness(pairScores(nil), nil, nil)

	_, err := h.dispatcher.RunDigest(context.Background(), "monthly")
	assert.True(t, errx.IsCode(err, notification.CodeInvalidFrequency))
}

// ============================================================================
// Tasks
// ============================================================================

func TestEnqueue_UsesQueue(t *testing.T) {
	h := newHarness(pairScores(nil), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	task, err := h.dispatcher.EnqueueJobCreated(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, notification.TaskJobCreated, task.Type)
	require.Len(t, h.queue.ready, 1)
	assert.Equal(t, kernel.JobID("j1"), h.queue.ready[0].JobID)

	_, err = h.dispatcher.EnqueueCandidateCreated(ctx, "")
	assert.True(t, errx.IsCode(err, notification.CodeInvalidTask))

	_, err = h.dispatcher.EnqueueDigest(ctx, "hourly")
	assert.True(t, errx.IsCode(err, notification.CodeInvalidFrequency))

	h.queue.err = errors.New("redis down")
	_, err = h.dispatcher.EnqueueDigest(ctx, notification.FrequencyDaily)
	assert.True(t, errx.IsCode(err, notification.CodeQueueFailed))
}

func TestEnqueue_WithoutQueueRunsDetached(t *testing.T) {
	h := newHarness(pairScores(map[string]int{"j1|c1": 95}), []*candidate.Candidate{newCandidate("c1")}, []*job.Job{newJob("j1", "emp-1")})
	h.dispatcher.queue = nil

	ctx, cancel := context.WithCancel(context.Background())
	_, err := h.dispatcher.EnqueueJobCreated(ctx, "j1")
	cancel()
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return len(h.sender.to("c1@example.com")) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestProcessTask(t *testing.T) {
	h := newHarness(pairScores(nil), nil, nil)

	err := h.dispatcher.ProcessTask(context.Background(), &notification.Task{ID: "t1", Type: notification.TaskDigest, Frequency: "yearly"})
	assert.True(t, errx.IsCode(err, notification.CodeInvalidFrequency))

	err = h.dispatcher.ProcessTask(context.Background(), &notification.Task{ID: "t2", Type: "resend"})
	assert.True(t, errx.IsCode(err, notification.CodeInvalidTask))

	err = h.dispatcher.ProcessTask(context.Background(), notification.NewDigestTask(notification.FrequencyWeekly))
	assert.NoError(t, err)

	err = h.dispatcher.ProcessTask(context.Background(), notification.NewJobCreatedTask("missing"))
	assert.True(t, errx.IsCode(err, job.CodeJobNotFound))
}

func TestRecordEngagement(t *testing.T) {
	h := newHarness(pairScores(nil), nil, nil)
	id := h.tracker.NewTrackingID()
	openURL, err := h.tracker.OpenURL(id)
	require.NoError(t, err)
	token := openURL[len("https://match.example.com/t/open/"):]

	claims, err := h.dispatcher.RecordEngagement(context.Background(), token, notification.EngagementOpen)
	require.NoError(t, err)
	assert.Equal(t, id, claims.TrackingID)
	assert.Equal(t, []kernel.TrackingID{id}, h.repo.engagements)
	assert.Len(t, h.sink.Named(notification.EventEngagement), 1)

	_, err = h.dispatcher.RecordEngagement(context.Background(), token, notification.EngagementClick)
	assert.True(t, errx.IsCode(err, notification.CodeInvalidToken))
	assert.Len(t, h.repo.engagements, 1)
}
