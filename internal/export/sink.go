// Package export delivers exported layer documents.
package export

import (
	"bytes"
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/juju/errors"
	"github.com/juju/loggo"
)

var logger = loggo.GetLogger("compass.export")

// Sink stores a named document and reports where it went.
type Sink interface {
	Deliver(ctx context.Context, name string, data []byte) (string, error)
}

// FileSink writes into a directory, replacing any previous file of the same name.
type FileSink struct {
	Dir string
}

// Deliver writes data to Dir/name through a temp file, so readers never see a
// partial layer. It returns the file path.
func (s FileSink) Deliver(_ context.Context, name string, data []byte) (string, error) {
	dir := strings.TrimSpace(s.Dir)
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Annotatef(err, "mkdir %s", dir)
	}
	dst := filepath.Join(dir, filepath.Base(name))
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(name)+".*.tmp")
	if err != nil {
		return "", errors.Annotate(err, "create temp file")
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", errors.Annotatef(err, "write %s", tmp.Name())
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", errors.Annotatef(err, "close %s", tmp.Name())
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		_ = os.Remove(tmp.Name())
		return "", errors.Annotatef(err, "chmod %s", tmp.Name())
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		_ = os.Remove(tmp.Name())
		return "", errors.Annotatef(err, "rename to %s", dst)
	}
	logger.Debugf("wrote %d bytes to %s", len(data), dst)
	return dst, nil
}

// PutObjectAPI is the slice of the S3 client S3Sink needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink archives documents under Bucket/Prefix.
type S3Sink struct {
	Client PutObjectAPI
	Bucket string
	Prefix string
}

// Deliver puts data at Prefix/name in Bucket and returns its s3:// location.
func (s S3Sink) Deliver(ctx context.Context, name string, data []byte) (string, error) {
	if s.Client == nil || strings.TrimSpace(s.Bucket) == "" {
		return "", errors.NotValidf("s3 sink without client or bucket")
	}
	key := path.Join(strings.Trim(s.Prefix, "/"), path.Base(name))
	_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", errors.Annotatef(err, "put s3://%s/%s", s.Bucket, key)
	}
	loc := "s3://" + s.Bucket + "/" + key
	logger.Debugf("archived %d bytes to %s", len(data), loc)
	return loc, nil
}

// Multi delivers to every sink in order and stops at the first failure.
type Multi []Sink

// Deliver returns the locations delivered so far, comma separated.
func (m Multi) Deliver(ctx context.Context, name string, data []byte) (string, error) {
	if len(m) == 0 {
		return "", errors.NotValidf("no export sinks configured")
	}
	locations := make([]string, 0, len(m))
	for _, s := range m {
		loc, err := s.Deliver(ctx, name, data)
		if err != nil {
			return strings.Join(locations, ", "), err
		}
		locations = append(locations, loc)
	}
	return strings.Join(locations, ", "), nil
}
