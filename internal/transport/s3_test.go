package transport

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 keeps objects in a map and implements the calls S3 uses.
type fakeS3 struct {
	s3iface.S3API

	mu      sync.Mutex
	objects map[string][]byte
	denied  bool
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) HeadObjectWithContext(_ aws.Context, in *s3.HeadObjectInput, _ ...request.Option) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.denied {
		return nil, awserr.New("AccessDenied", "Access Denied", nil)
	}
	data, ok := f.objects[aws.StringValue(in.Key)]
	if !ok {
		return nil, awserr.New("NotFound", "Not Found", nil)
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(data)))}, nil
}

func (f *fakeS3) ListObjectsV2WithContext(ctx aws.Context, in *s3.ListObjectsV2Input, _ ...request.Option) (*s3.ListObjectsV2Output, error) {
	var out *s3.ListObjectsV2Output
	err := f.ListObjectsV2PagesWithContext(ctx, in, func(page *s3.ListObjectsV2Output, _ bool) bool {
		out = page
		return false
	})
	return out, err
}

func (f *fakeS3) ListObjectsV2PagesWithContext(_ aws.Context, in *s3.ListObjectsV2Input, fn func(*s3.ListObjectsV2Output, bool) bool, _ ...request.Option) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.denied {
		return awserr.New("AccessDenied", "Access Denied", nil)
	}
	prefix := aws.StringValue(in.Prefix)
	delim := aws.StringValue(in.Delimiter)

	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	page := &s3.ListObjectsV2Output{}
	seen := map[string]bool{}
	for _, k := range keys {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		rest := strings.TrimPrefix(k, prefix)
		if delim != "" {
			if i := strings.Index(rest, delim); i >= 0 {
				cp := prefix + rest[:i+1]
				if !seen[cp] {
					seen[cp] = true
					page.CommonPrefixes = append(page.CommonPrefixes, &s3.CommonPrefix{Prefix: aws.String(cp)})
				}
				continue
			}
		}
		page.Contents = append(page.Contents, &s3.Object{
			Key:          aws.String(k),
			Size:         aws.Int64(int64(len(f.objects[k]))),
			LastModified: aws.Time(time.Unix(1700000000, 0)),
		})
	}
	fn(page, true)
	return nil
}

func (f *fakeS3) PutObjectWithContext(_ aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.StringValue(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObjectWithContext(_ aws.Context, in *s3.GetObjectInput, _ ...request.Option) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.StringValue(in.Key)]
	if !ok {
		return nil, awserr.New(s3.ErrCodeNoSuchKey, "The specified key does not exist.", nil)
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObjectWithContext(_ aws.Context, in *s3.DeleteObjectInput, _ ...request.Option) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.StringValue(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3_RoundTrip(t *testing.T) {
	api := newFakeS3()
	store := newS3WithAPI(api, "bucket", "/devices/phone/")
	ctx := context.Background()

	ok, err := store.Exists(ctx, "Lockbox_Backups")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Mkdir(ctx, "Lockbox_Backups"))
	payload := []byte("PK\x03\x04 zip")
	require.NoError(t, store.Put(ctx, "Lockbox_Backups/backup_20260101_120000.zip", bytes.NewReader(payload), int64(len(payload))))
	require.NoError(t, store.Put(ctx, "Lockbox_Backups/old/nested.zip", strings.NewReader("x"), 1))

	assert.Contains(t, api.objects, "devices/phone/Lockbox_Backups/backup_20260101_120000.zip")

	ok, err = store.Exists(ctx, "Lockbox_Backups")
	require.NoError(t, err)
	assert.True(t, ok, "prefix with objects exists")

	entries, err := store.List(ctx, "Lockbox_Backups")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, Entry{
		Name:    "backup_20260101_120000.zip",
		Path:    "Lockbox_Backups/backup_20260101_120000.zip",
		Size:    int64(len(payload)),
		ModTime: time.Unix(1700000000, 0),
	}, entries[0])
	assert.Equal(t, "old", entries[1].Name)
	assert.True(t, entries[1].IsDir)

	rc, err := store.Get(ctx, "Lockbox_Backups/backup_20260101_120000.zip")
	require.NoError(t, err)
	got, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, payload, got)

	_, err = store.Get(ctx, "Lockbox_Backups/missing.zip")
	assert.True(t, IsNotFound(err))

	require.NoError(t, store.Delete(ctx, "Lockbox_Backups/backup_20260101_120000.zip"))
	err = store.Delete(ctx, "Lockbox_Backups/backup_20260101_120000.zip")
	assert.True(t, IsNotFound(err))
}

func TestS3_AccessDenied(t *testing.T) {
	api := newFakeS3()
	api.denied = true
	store := newS3WithAPI(api, "bucket", "")

	_, err := store.List(context.Background(), "Lockbox_Backups")
	require.Error(t, err)
	assert.Equal(t, KindPermissionDenied, Classify(err))
}
