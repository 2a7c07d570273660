package drafts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

const (
	defaultS3Region = "us-east-1"
	defaultS3Prefix = "wizardkit/drafts"

	// wizardIDMetaKey holds the draft's wizard ID as object metadata so List
	// can filter without downloading bodies.
	wizardIDMetaKey = "wizard-id"

	draftObjectExt = ".json"
)

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3ClientOptions configures NewS3Client.
type S3ClientOptions struct {
	Region string

	// Endpoint overrides the service endpoint (MinIO, LocalStack). Setting it
	// switches the client to path-style addressing.
	Endpoint string

	// AccessKeyID and SecretAccessKey select static credentials instead of
	// the default chain.
	AccessKeyID     string
	SecretAccessKey string

	// RoleARN, when set, is assumed through STS on top of the base credentials.
	RoleARN string
}

// NewS3Client builds an S3 client from the default AWS credential chain
// (environment, shared config, IRSA, instance profile).
func NewS3Client(ctx context.Context, opts S3ClientOptions) (*s3.Client, error) {
	region := opts.Region
	if region == "" {
		region = defaultS3Region
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if opts.RoleARN != "" {
		cfg.Credentials = aws.NewCredentialsCache(
			stscreds.NewAssumeRoleProvider(sts.NewFromConfig(cfg), opts.RoleARN),
		)
	}

	var s3Opts []func(*s3.Options)
	if opts.Endpoint != "" {
		endpoint := opts.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
			o.UsePathStyle = true
		})
	}
	return s3.NewFromConfig(cfg, s3Opts...), nil
}

// S3Store keeps each draft as one JSON object under a key prefix.
type S3Store struct {
	client S3API
	bucket string
	prefix string
}

// S3Option configures an S3Store.
type S3Option func(*S3Store)

// WithKeyPrefix sets the object key prefix. Default is "wizardkit/drafts".
func WithKeyPrefix(prefix string) S3Option {
	return func(s *S3Store) {
		s.prefix = strings.Trim(prefix, "/")
	}
}

// NewS3Store creates an S3-backed draft store.
//
// Example:
//
//	client, err := NewS3Client(ctx, S3ClientOptions{Region: "eu-west-1"})
//	store := NewS3Store(client, "my-bucket", WithKeyPrefix("listings"))
func NewS3Store(client S3API, bucket string, opts ...S3Option) *S3Store {
	store := &S3Store{
		client: client,
		bucket: bucket,
		prefix: defaultS3Prefix,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *S3Store) key(id string) string {
	if s.prefix == "" {
		return id + draftObjectExt
	}
	return s.prefix + "/" + id + draftObjectExt
}

func (s *S3Store) listPrefix() string {
	if s.prefix == "" {
		return ""
	}
	return s.prefix + "/"
}

// Load retrieves a draft.
func (s *S3Store) Load(ctx context.Context, id string) (*Draft, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("s3 get failed: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read draft object: %w", err)
	}

	var d Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft: %w", err)
	}
	return &d, nil
}

// Save writes the draft object, tagging it with the wizard ID.
func (s *S3Store) Save(ctx context.Context, draft *Draft) error {
	if err := validateDraft(draft); err != nil {
		return err
	}

	if draft.CreatedAt.IsZero() {
		if prev, err := s.Load(ctx, draft.ID); err == nil {
			draft.CreatedAt = prev.CreatedAt
		}
	}
	stamp(draft, time.Now())

	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}

	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(draft.ID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	}
	if draft.WizardID != "" {
		in.Metadata = map[string]string{wizardIDMetaKey: draft.WizardID}
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return fmt.Errorf("s3 put failed: %w", err)
	}
	return nil
}

// Delete removes the draft object. S3 deletes are idempotent, so existence
// is checked first.
func (s *S3Store) Delete(ctx context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}

	key := aws.String(s.key(id))
	if _, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: key}); err != nil {
		if isS3NotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("s3 head failed: %w", err)
	}

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: key}); err != nil {
		return fmt.Errorf("s3 delete failed: %w", err)
	}
	return nil
}

// List pages through the prefix, most recently modified first. Filtering by
// wizard reads each object's metadata.
func (s *S3Store) List(ctx context.Context, opts ListOptions) ([]string, error) {
	type item struct {
		id       string
		modified time.Time
	}
	var items []item

	prefix := s.listPrefix()
	pager := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list failed: %w", err)
		}
		for _, obj := range page.Contents {
			id, ok := s.idFromKey(aws.ToString(obj.Key), prefix)
			if !ok {
				continue
			}
			if opts.WizardID != "" {
				match, err := s.belongsTo(ctx, aws.ToString(obj.Key), opts.WizardID)
				if err != nil {
					return nil, err
				}
				if !match {
					continue
				}
			}
			items = append(items, item{id: id, modified: aws.ToTime(obj.LastModified)})
		}
	}

	sort.Slice(items, func(i, j int) bool {
		if !items[i].modified.Equal(items[j].modified) {
			return items[i].modified.After(items[j].modified)
		}
		return items[i].id < items[j].id
	})

	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.id
	}
	return paginate(ids, opts.Offset, opts.Limit), nil
}

// idFromKey accepts only direct children of the prefix that look like draft objects.
func (s *S3Store) idFromKey(key, prefix string) (string, bool) {
	name := strings.TrimPrefix(key, prefix)
	if strings.Contains(name, "/") || !strings.HasSuffix(name, draftObjectExt) {
		return "", false
	}
	id := strings.TrimSuffix(name, draftObjectExt)
	return id, ValidateID(id) == nil
}

func (s *S3Store) belongsTo(ctx context.Context, key, wizardID string) (bool, error) {
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("s3 head failed: %w", err)
	}
	return head.Metadata[wizardIDMetaKey] == wizardID, nil
}

func isS3NotFound(err error) bool {
	var noKey *s3types.NoSuchKey
	var notFound *s3types.NotFound
	return errors.As(err, &noKey) || errors.As(err, &notFound)
}
