package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// S3Config addresses a bucket on AWS or an S3-compatible endpoint.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	// Prefix is prepended to every key.
	Prefix string
}

// S3 stores archives as objects. Directories are key prefixes, so Mkdir is
// a no-op.
type S3 struct {
	api    s3iface.S3API
	bucket string
	prefix string
}

// NewS3 builds a session from cfg. It does not contact the endpoint.
func NewS3(cfg S3Config) (*S3, error) {
	awsCfg := &aws.Config{Region: aws.String(cfg.Region)}
	if cfg.AccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}
	return newS3WithAPI(s3.New(sess), cfg.Bucket, cfg.Prefix), nil
}

func newS3WithAPI(api s3iface.S3API, bucket, prefix string) *S3 {
	return &S3{api: api, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (s *S3) key(p string) (string, error) {
	clean, err := cleanPath(p)
	if err != nil {
		return "", err
	}
	return Join(s.prefix, clean), nil
}

// s3Error classifies SDK errors; request failures carry their HTTP status.
func s3Error(op, p string, err error) error {
	if err == nil {
		return nil
	}
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound", s3.ErrCodeNoSuchBucket:
			return withKind(op, p, KindNotFound, err)
		case "AccessDenied":
			return withKind(op, p, KindPermissionDenied, err)
		case "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return withKind(op, p, KindAuthRejected, err)
		case request.CanceledErrorCode:
			return withKind(op, p, KindTimeout, err)
		}
	}
	return wrap(op, p, err)
}

// Exists reports whether p is an object or a non-empty prefix.
func (s *S3) Exists(ctx context.Context, p string) (bool, error) {
	key, err := s.key(p)
	if err != nil {
		return false, err
	}
	_, err = s.api.HeadObjectWithContext(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err == nil {
		return true, nil
	}
	if err = s3Error("stat", p, err); !IsNotFound(err) {
		return false, err
	}
	out, err := s.api.ListObjectsV2WithContext(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(dirPrefix(key)),
		MaxKeys: aws.Int64(1),
	})
	if err != nil {
		return false, s3Error("stat", p, err)
	}
	return len(out.Contents) > 0, nil
}

// Mkdir does nothing; prefixes exist as soon as an object is written.
func (s *S3) Mkdir(ctx context.Context, _ string) error {
	return ctx.Err()
}

// List returns objects and sub-prefixes directly under dir.
func (s *S3) List(ctx context.Context, dir string) ([]Entry, error) {
	key, err := s.key(dir)
	if err != nil {
		return nil, err
	}
	prefix := dirPrefix(key)
	var entries []Entry
	err = s.api.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	}, func(page *s3.ListObjectsV2Output, _ bool) bool {
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.StringValue(obj.Key), prefix)
			if name == "" {
				continue
			}
			entries = append(entries, Entry{
				Name:    name,
				Path:    Join(dir, name),
				Size:    aws.Int64Value(obj.Size),
				ModTime: aws.TimeValue(obj.LastModified),
			})
		}
		for _, cp := range page.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.StringValue(cp.Prefix), prefix), "/")
			entries = append(entries, Entry{Name: name, Path: Join(dir, name), IsDir: true})
		}
		return true
	})
	if err != nil {
		return nil, s3Error("list", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Put uploads r as one object. Readers that cannot seek are buffered.
func (s *S3) Put(ctx context.Context, p string, r io.Reader, size int64) error {
	key, err := s.key(p)
	if err != nil {
		return err
	}
	body, ok := r.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return wrap("put", p, err)
		}
		body, size = bytes.NewReader(data), int64(len(data))
	}
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String("application/zip"),
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}
	_, err = s.api.PutObjectWithContext(ctx, input)
	return s3Error("put", p, err)
}

// Get downloads p.
func (s *S3) Get(ctx context.Context, p string) (io.ReadCloser, error) {
	key, err := s.key(p)
	if err != nil {
		return nil, err
	}
	out, err := s.api.GetObjectWithContext(ctx, &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err != nil {
		return nil, s3Error("get", p, err)
	}
	return out.Body, nil
}

// Delete removes p. S3 deletes are idempotent, so existence is checked first
// to report a missing object.
func (s *S3) Delete(ctx context.Context, p string) error {
	key, err := s.key(p)
	if err != nil {
		return err
	}
	if _, err := s.api.HeadObjectWithContext(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)}); err != nil {
		return s3Error("delete", p, err)
	}
	_, err = s.api.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	return s3Error("delete", p, err)
}

func dirPrefix(key string) string {
	if key == "" {
		return ""
	}
	return key + "/"
}
