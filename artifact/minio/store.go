// Package minio implements artifact.Store on MinIO or any other
// S3-compatible object storage.
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	store := minioartifact.NewStore(client, "models", "matprop/")
package minio

import (
	"bytes"
	"context"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/YuminosukeSato/matprop/artifact"
	"github.com/YuminosukeSato/matprop/pkg/errors"
)

// Store implements artifact.Store for a single bucket.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
}

var _ artifact.Store = (*Store)(nil)

// Options configures Dial.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	Secure    bool
}

// NewStore wraps an existing client. prefix is prepended to every name.
func NewStore(client *minio.Client, bucket, prefix string) *Store {
	return &Store{client: client, bucket: bucket, prefix: prefix}
}

// Dial creates a client from opts and makes sure the bucket exists.
func Dial(ctx context.Context, opts Options) (*Store, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.Secure,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create minio client")
	}
	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, errors.Wrapf(err, "check bucket %s", opts.Bucket)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, errors.Wrapf(err, "create bucket %s", opts.Bucket)
		}
	}
	return NewStore(client, opts.Bucket, opts.Prefix), nil
}

func (s *Store) key(name string) string {
	return path.Join(s.prefix, name)
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

func (s *Store) Get(ctx context.Context, name string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.key(name), minio.GetObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, artifact.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get %s", name)
	}
	defer obj.Close()

	// GetObject is lazy; a missing key surfaces on the first read.
	data, err := io.ReadAll(obj)
	if err != nil {
		if isNotFound(err) {
			return nil, artifact.ErrNotFound
		}
		return nil, errors.Wrapf(err, "read %s", name)
	}
	return data, nil
}

// Put uploads the object in a single request, so it replaces any previous
// version as a whole.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.key(name), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return errors.Wrapf(err, "put %s", name)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	err := s.client.RemoveObject(ctx, s.bucket, s.key(name), minio.RemoveObjectOptions{})
	if err != nil && !isNotFound(err) {
		return errors.Wrapf(err, "delete %s", name)
	}
	return nil
}

func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, s.key(name), minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "stat %s", name)
	}
	return true, nil
}

// Rename is a server-side copy followed by removal of the source. Readers of
// to see either the old or the new object, never a partial one.
func (s *Store) Rename(ctx context.Context, from, to string) error {
	_, err := s.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: s.bucket, Object: s.key(to)},
		minio.CopySrcOptions{Bucket: s.bucket, Object: s.key(from)},
	)
	if err != nil {
		if isNotFound(err) {
			return artifact.ErrNotFound
		}
		return errors.Wrapf(err, "copy %s to %s", from, to)
	}
	return s.Delete(ctx, from)
}
