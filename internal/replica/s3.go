package replica

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/movingbox/movingbox-migrator/internal/domain"
	"github.com/movingbox/movingbox-migrator/internal/logger"
)

// S3Config holds the construction parameters of an S3 backed zone store.
// Empty credentials fall back to the default AWS credential chain.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PathStyle       bool
	// MaxAttempts bounds SDK level retries, 0 keeps the SDK default
	MaxAttempts int
	// HTTPClient overrides the transport, used by tests
	HTTPClient *http.Client
}

// S3 stores each zone under a key prefix of one bucket:
//
//	<zone>/<recordType>/<recordName>.json
//	<zone>/assets/<key>
type S3 struct {
	client *s3.Client
	bucket string
}

// NewS3 creates an S3 backed Database
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("replica bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.MaxAttempts > 0 {
			o.RetryMaxAttempts = cfg.MaxAttempts
		}
		if cfg.HTTPClient != nil {
			o.HTTPClient = cfg.HTTPClient
		}
	})
	return &S3{client: client, bucket: cfg.Bucket}, nil
}

func recordPrefix(zone, recordType string) string {
	return path.Join(zone, recordType) + "/"
}

func assetKey(zone, key string) string {
	return path.Join(zone, "assets", key)
}

func isNotFound(err error) bool {
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}

// zoneExists reports whether any object lives under the zone prefix
func (s *S3) zoneExists(ctx context.Context, zone string) (bool, error) {
	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  &s.bucket,
		Prefix:  aws.String(zone + "/"),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, err
	}
	return len(out.Contents) > 0, nil
}

// FetchPage lists one page of record keys and fetches each body. A body that
// cannot be fetched or parsed is reported in Page.Failures.
func (s *S3) FetchPage(ctx context.Context, zone, recordType, cursor string, limit int) (*Page, error) {
	if limit <= 0 {
		limit = domain.DEFAULT_PAGE_SIZE
	}
	input := &s3.ListObjectsV2Input{
		Bucket:  &s.bucket,
		Prefix:  aws.String(recordPrefix(zone, recordType)),
		MaxKeys: aws.Int32(int32(limit)), //nolint:gosec,G115
	}
	if cursor != "" {
		input.ContinuationToken = aws.String(cursor)
	}
	out, err := s.client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s records: %w", recordType, err)
	}

	if cursor == "" && len(out.Contents) == 0 {
		exists, err := s.zoneExists(ctx, zone)
		if err != nil {
			return nil, fmt.Errorf("failed to check zone %s: %w", zone, err)
		}
		if !exists {
			return nil, domain.ErrZoneNotFound
		}
	}

	page := &Page{}
	for _, obj := range out.Contents {
		key := aws.ToString(obj.Key)
		name := strings.TrimSuffix(path.Base(key), ".json")
		rec, err := s.getRecord(ctx, key)
		if err != nil {
			logger.WarnCtx(ctx, "Failed to fetch remote record",
				zap.String("record_type", recordType), zap.String("record_name", name), zap.Error(err))
			page.Failures = append(page.Failures, RecordError{RecordName: name, Err: err})
			continue
		}
		page.Records = append(page.Records, rec)
	}
	if aws.ToBool(out.IsTruncated) && out.NextContinuationToken != nil {
		page.Cursor = *out.NextContinuationToken
	}
	return page, nil
}

func (s *S3) getRecord(ctx context.Context, key string) (Record, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		return Record{}, err
	}
	defer out.Body.Close()

	var rec Record
	if err := json.NewDecoder(out.Body).Decode(&rec); err != nil {
		return Record{}, fmt.Errorf("failed to decode record: %w", err)
	}
	if rec.RecordName == "" {
		return Record{}, fmt.Errorf("record %s has no name", key)
	}
	return rec, nil
}

// FetchAsset downloads an asset body
func (s *S3) FetchAsset(ctx context.Context, zone, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: aws.String(assetKey(zone, key))})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("asset %s: %w", key, domain.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("failed to fetch asset %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read asset %s: %w", key, err)
	}
	return data, nil
}

// DeleteZone removes every object under the zone prefix
func (s *S3) DeleteZone(ctx context.Context, zone string) error {
	prefix := zone + "/"
	var keys []string
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{Bucket: &s.bucket, Prefix: &prefix, ContinuationToken: token})
		if err != nil {
			return fmt.Errorf("failed to list zone %s: %w", zone, err)
		}
		for _, obj := range out.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
		if aws.ToBool(out.IsTruncated) && out.NextContinuationToken != nil {
			token = out.NextContinuationToken
			continue
		}
		break
	}
	if len(keys) == 0 {
		return domain.ErrZoneNotFound
	}

	for _, key := range keys {
		if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: aws.String(key)}); err != nil {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
	}
	logger.InfoCtx(ctx, "Deleted remote zone", zap.String("zone", zone), zap.Int("objects", len(keys)))
	return nil
}
