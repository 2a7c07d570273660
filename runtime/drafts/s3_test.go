package drafts_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AltairaLabs/WizardKit/runtime/drafts"
)

type fakeObject struct {
	body     []byte
	meta     map[string]string
	modified time.Time
}

// fakeS3 is an in-memory bucket. pageSize forces ListObjectsV2 pagination.
type fakeS3 struct {
	mu       sync.Mutex
	objects  map[string]fakeObject
	pageSize int
	clock    time.Time
	failWith error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{
		objects:  map[string]fakeObject{},
		pageSize: 2,
		clock:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(obj.body)), Metadata: obj.meta}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.clock = f.clock.Add(time.Second)
	f.objects[aws.ToString(in.Key)] = fakeObject{body: body, meta: in.Metadata, modified: f.clock}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NotFound{}
	}
	return &s3.HeadObjectOutput{Metadata: obj.meta}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}

	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) && k > aws.ToString(in.ContinuationToken) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	if len(keys) > f.pageSize {
		keys = keys[:f.pageSize]
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(keys[len(keys)-1])
	}
	for _, k := range keys {
		out.Contents = append(out.Contents, s3types.Object{
			Key:          aws.String(k),
			LastModified: aws.Time(f.objects[k].modified),
		})
	}
	return out, nil
}

func TestS3Store_KeyLayout(t *testing.T) {
	ctx := context.Background()
	client := newFakeS3()
	store := drafts.NewS3Store(client, "bucket", drafts.WithKeyPrefix("/listings/"))

	require.NoError(t, store.Save(ctx, sampleDraft("draft-1", "listing")))

	obj, ok := client.objects["listings/draft-1.json"]
	require.True(t, ok, "expected object under the trimmed prefix")
	assert.Equal(t, "listing", obj.meta["wizard-id"])
	assert.Contains(t, string(obj.body), `"wizard_id":"listing"`)
}

func TestS3Store_ListSkipsForeignKeys(t *testing.T) {
	ctx := context.Background()
	client := newFakeS3()
	store := drafts.NewS3Store(client, "bucket")

	require.NoError(t, store.Save(ctx, sampleDraft("draft-1", "listing")))
	client.objects["wizardkit/drafts/nested/draft-2.json"] = fakeObject{}
	client.objects["wizardkit/drafts/readme.txt"] = fakeObject{}

	ids, err := store.List(ctx, drafts.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"draft-1"}, ids)
}

func TestS3Store_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := drafts.NewS3Store(newFakeS3(), "bucket")

	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, store.Save(ctx, sampleDraft(id, "listing")))
	}

	ids, err := store.List(ctx, drafts.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, ids)
}

func TestS3Store_BackendErrors(t *testing.T) {
	ctx := context.Background()
	client := newFakeS3()
	store := drafts.NewS3Store(client, "bucket")
	client.failWith = errors.New("access denied")

	_, err := store.Load(ctx, "draft-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, drafts.ErrNotFound)

	err = store.Save(ctx, sampleDraft("draft-1", "listing"))
	assert.ErrorContains(t, err, "s3 put failed")

	_, err = store.List(ctx, drafts.ListOptions{})
	assert.ErrorContains(t, err, "s3 list failed")
}

func TestNewS3Client(t *testing.T) {
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")

	client, err := drafts.NewS3Client(context.Background(), drafts.S3ClientOptions{
		Region:          "eu-west-1",
		Endpoint:        "http://127.0.0.1:9000",
		AccessKeyID:     "minio",
		SecretAccessKey: "minio123",
		RoleARN:         "arn:aws:iam::123456789012:role/drafts",
	})
	require.NoError(t, err)

	opts := client.Options()
	assert.Equal(t, "eu-west-1", opts.Region)
	assert.True(t, opts.UsePathStyle)
	assert.Equal(t, "http://127.0.0.1:9000", aws.ToString(opts.BaseEndpoint))
}
