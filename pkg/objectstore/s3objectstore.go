// Package objectstore stores image snapshots in S3, optionally gzipped.
package objectstore

import (
	"fmt"
	"io"
	"sort"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/client"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/weberc2/snfs/pkg/types"
)

var (
	_ types.ObjectStore = (*S3ObjectStore)(nil)
	_ types.ObjectStore = (*GzipObjectStore)(nil)
)

type S3ObjectStore struct {
	Client *s3.S3
}

func NewS3ObjectStore(provider client.ConfigProvider) *S3ObjectStore {
	return &S3ObjectStore{Client: s3.New(provider)}
}

func (os *S3ObjectStore) PutObject(
	bucket string,
	key string,
	data io.ReadSeeker,
) error {
	if _, err := os.Client.PutObject(&s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
		Body:   data,
	}); err != nil {
		return fmt.Errorf("putting object `%s/%s`: %w", bucket, key, err)
	}
	return nil
}

func (os *S3ObjectStore) GetObject(
	bucket string,
	key string,
) (io.ReadCloser, error) {
	rsp, err := os.Client.GetObject(&s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, &types.ObjectNotFoundErr{Bucket: bucket, Key: key}
		}
		return nil, fmt.Errorf("getting object `%s/%s`: %w", bucket, key, err)
	}
	return rsp.Body, nil
}

// ListObjects returns the keys under `prefix` in lexical order.
func (os *S3ObjectStore) ListObjects(bucket, prefix string) ([]string, error) {
	keys := []string{}
	if err := os.Client.ListObjectsPages(
		&s3.ListObjectsInput{Bucket: &bucket, Prefix: &prefix},
		func(page *s3.ListObjectsOutput, lastPage bool) bool {
			for _, object := range page.Contents {
				keys = append(keys, *object.Key)
			}
			return true
		},
	); err != nil {
		return nil, fmt.Errorf(
			"listing objects in bucket `%s` with prefix `%s`: %w",
			bucket,
			prefix,
			err,
		)
	}
	sort.Strings(keys)
	return keys, nil
}

func (os *S3ObjectStore) DeleteObject(bucket, key string) error {
	if _, err := os.Client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}); err != nil {
		return fmt.Errorf("deleting object `%s/%s`: %w", bucket, key, err)
	}
	return nil
}

func isNoSuchKey(err error) bool {
	if err, ok := err.(awserr.Error); ok {
		return err.Code() == s3.ErrCodeNoSuchKey
	}
	return false
}
