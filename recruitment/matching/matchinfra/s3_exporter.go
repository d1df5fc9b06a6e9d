package matchinfra

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/Abraxas-365/relay-match/pkg/logx"
	"github.com/Abraxas-365/relay-match/recruitment/matching"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectPutter is the part of the S3 client used by the exporter
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Exporter writes batch results as CSV objects to a bucket
type S3Exporter struct {
	client ObjectPutter
	bucket string
	prefix string
}

// NewS3Exporter creates an exporter. prefix may be empty.
func NewS3Exporter(client ObjectPutter, bucket, prefix string) *S3Exporter {
	return &S3Exporter{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// Export uploads the CSV rendering of results and returns its s3:// location
func (e *S3Exporter) Export(ctx context.Context, name string, results []matching.BatchMatchResult) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", matching.ErrInvalidInput().WithDetail("field", "name")
	}

	var buf bytes.Buffer
	if err := matching.WriteCSV(&buf, results); err != nil {
		return "", matching.ErrExportFailed().WithCause(err)
	}

	key := e.objectKey(name)
	_, err := e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return "", matching.ErrExportFailed().
			WithDetail("bucket", e.bucket).
			WithDetail("key", key).
			WithCause(err)
	}

	location := fmt.Sprintf("s3://%s/%s", e.bucket, key)
	logx.Infof("Exported %d batch results to %s", len(results), location)
	return location, nil
}

func (e *S3Exporter) objectKey(name string) string {
	name = strings.TrimSuffix(name, ".csv") + ".csv"
	if e.prefix == "" {
		return name
	}
	return path.Join(e.prefix, name)
}
