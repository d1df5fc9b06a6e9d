package notificationsrv

import (
	"context"
	"sort"
	"time"

	"github.com/Abraxas-365/relay-match/pkg/kernel"
	"github.com/Abraxas-365/relay-match/recruitment/application"
	"github.com/Abraxas-365/relay-match/recruitment/candidate"
	"github.com/Abraxas-365/relay-match/recruitment/job"
	"github.com/Abraxas-365/relay-match/recruitment/matching"
	"github.com/Abraxas-365/relay-match/recruitment/notification"
)

// HistoryFeed reads digest matches from the match history of an employer's jobs
type HistoryFeed struct {
	jobs       job.Repository
	candidates candidate.Repository
	history    matching.HistoryRepository
}

func NewHistoryFeed(jobs job.Repository, candidates candidate.Repository, history matching.HistoryRepository) *HistoryFeed {
	return &HistoryFeed{jobs: jobs, candidates: candidates, history: history}
}

var _ notification.MatchFeed = (*HistoryFeed)(nil)

// RecentMatches keeps the best score per pair, highest first, newest on ties
func (f *HistoryFeed) RecentMatches(ctx context.Context, employerID kernel.UserID, since time.Time, minScore, limit int) ([]notification.DigestMatch, error) {
	jobs, err := f.jobs.ListByUserID(ctx, employerID)
	if err != nil {
		return nil, err
	}

	titles := make(map[kernel.JobID]string, len(jobs))
	ids := make([]kernel.JobID, 0, len(jobs))
	for _, j := range jobs {
		if !j.IsEligibleForMatching() {
			continue
		}
		titles[j.ID] = string(j.Title)
		ids = append(ids, j.ID)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	records, err := f.history.ListByJobsSince(ctx, ids, since, minScore)
	if err != nil {
		return nil, matching.ErrHistoryFailed().WithCause(err)
	}

	best := make(map[application.Pair]matching.MatchHistoryRecord)
	for _, r := range records {
		if r.Score.Overall < minScore {
			continue
		}
		key := application.Pair{JobID: r.JobID, CandidateID: r.CandidateID}
		cur, ok := best[key]
		if !ok || r.Score.Overall > cur.Score.Overall ||
			(r.Score.Overall == cur.Score.Overall && r.ScoredAt.After(cur.ScoredAt)) {
			best[key] = r
		}
	}

	matches := make([]notification.DigestMatch, 0, len(best))
	for _, r := range best {
		matches = append(matches, notification.DigestMatch{
			CandidateID: r.CandidateID,
			JobID:       r.JobID,
			JobTitle:    titles[r.JobID],
			Score:       r.Score.Overall,
			ScoredAt:    r.ScoredAt,
		})
	}
	sort.Slice(matches, func(i, k int) bool {
		a, b := matches[i], matches[k]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.ScoredAt.Equal(b.ScoredAt) {
			return a.ScoredAt.After(b.ScoredAt)
		}
		if a.JobID != b.JobID {
			return a.JobID < b.JobID
		}
		return a.CandidateID < b.CandidateID
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	return f.withNames(ctx, matches)
}

func (f *HistoryFeed) withNames(ctx context.Context, matches []notification.DigestMatch) ([]notification.DigestMatch, error) {
	if len(matches) == 0 {
		return matches, nil
	}
	ids := make([]kernel.CandidateID, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.CandidateID)
	}
	found, err := f.candidates.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[kernel.CandidateID]string, len(found))
	for _, c := range found {
		names[c.ID] = c.GetFullName()
	}
	for i := range matches {
		if name := names[matches[i].CandidateID]; name != "" {
			matches[i].CandidateName = name
		} else {
			matches[i].CandidateName = matches[i].CandidateID.String()
		}
	}
	return matches, nil
}
