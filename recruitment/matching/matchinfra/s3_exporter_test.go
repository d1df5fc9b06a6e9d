package matchinfra

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/Abraxas-365/relay-match/pkg/errx"
	"github.com/Abraxas-365/relay-match/pkg/kernel"
	"github.com/Abraxas-365/relay-match/recruitment/matching"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPutter struct {
	input *s3.PutObjectInput
	body  string
	err   error
}

func (p *recordingPutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.input = in
	raw, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	p.body = string(raw)
	return &s3.PutObjectOutput{}, nil
}

func sampleResults() []matching.BatchMatchResult {
	return []matching.BatchMatchResult{{
		GroupBy: matching.GroupByJob,
		JobID:   kernel.JobID("job-1"),
		Matches: []matching.MatchEntry{{
			Rank:        1,
			CandidateID: kernel.CandidateID("cand-1"),
			JobID:       kernel.JobID("job-1"),
			Score:       matching.MatchScore{Overall: 81, Source: matching.SourceOracle},
		}},
	}}
}

func TestS3ExporterUploadsCSV(t *testing.T) {
	putter := &recordingPutter{}
	exporter := NewS3Exporter(putter, "exports", "/matching/")

	location, err := exporter.Export(context.Background(), "full-20260101", sampleResults())
	require.NoError(t, err)

	assert.Equal(t, "s3://exports/matching/full-20260101.csv", location)
	assert.Equal(t, "exports", aws.ToString(putter.input.Bucket))
	assert.Equal(t, "matching/full-20260101.csv", aws.ToString(putter.input.Key))
	assert.Equal(t, "text/csv", aws.ToString(putter.input.ContentType))

	lines := strings.Split(strings.TrimSpace(putter.body), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "group_by,job_id,candidate_id,rank"))
	assert.Contains(t, lines[1], "cand-1")
}

func TestS3ExporterKeyWithoutPrefix(t *testing.T) {
	exporter := NewS3Exporter(&recordingPutter{}, "exports", "")
	assert.Equal(t, "nightly.csv", exporter.objectKey("nightly.csv"))
	assert.Equal(t, "nightly.csv", exporter.objectKey("nightly"))
}

func TestS3ExporterFailure(t *testing.T) {
	exporter := NewS3Exporter(&recordingPutter{err: errors.New("access denied")}, "exports", "")

	_, err := exporter.Export(context.Background(), "full", sampleResults())
	require.Error(t, err)
	assert.True(t, errx.IsCode(err, matching.CodeExportFailed))

	_, err = exporter.Export(context.Background(), " ", sampleResults())
	assert.True(t, errx.IsCode(err, matching.CodeInvalidInput))
}
