package export

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/juju/errors"
	"github.com/stretchr/testify/require"
)

func TestFileSinkReplacesPreviousExport(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "downloads")

	sink := FileSink{Dir: dir}
	loc, err := sink.Deliver(context.Background(), "layer.json", []byte(`{"a": 1}`))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "layer.json"), loc)

	_, err = sink.Deliver(context.Background(), "layer.json", []byte(`{"a": 2}`))
	require.NoError(t, err)

	data, err := os.ReadFile(loc)
	require.NoError(t, err)
	require.Equal(t, `{"a": 2}`, string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not linger")
}

func TestFileSinkStripsDirectories(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	loc, err := FileSink{Dir: dir}.Deliver(context.Background(), "../../layer.json", []byte("{}"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "layer.json"), loc)
}

type fakeS3 struct {
	puts []*s3.PutObjectInput
	body []byte
	err  error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.puts = append(f.puts, in)
	b, _ := io.ReadAll(in.Body)
	f.body = b
	return &s3.PutObjectOutput{}, nil
}

func TestS3SinkPutsUnderPrefix(t *testing.T) {
	t.Parallel()
	fake := &fakeS3{}

	loc, err := S3Sink{Client: fake, Bucket: "layers-bucket", Prefix: "/compass/"}.Deliver(context.Background(), "layer.json", []byte("{}"))
	require.NoError(t, err)
	require.Equal(t, "s3://layers-bucket/compass/layer.json", loc)
	require.Len(t, fake.puts, 1)
	require.Equal(t, "compass/layer.json", aws.ToString(fake.puts[0].Key))
	require.Equal(t, "application/json", aws.ToString(fake.puts[0].ContentType))
	require.Equal(t, "{}", string(fake.body))
}

func TestS3SinkRequiresBucket(t *testing.T) {
	t.Parallel()
	_, err := S3Sink{Client: &fakeS3{}}.Deliver(context.Background(), "layer.json", nil)
	require.True(t, errors.Is(err, errors.NotValid))
}

func TestMultiStopsAtFirstFailure(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	failing := &fakeS3{err: errors.New("boom")}

	m := Multi{FileSink{Dir: dir}, S3Sink{Client: failing, Bucket: "b"}, FileSink{Dir: filepath.Join(dir, "never")}}
	loc, err := m.Deliver(context.Background(), "layer.json", []byte("{}"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom")
	require.Equal(t, filepath.Join(dir, "layer.json"), loc)
	_, statErr := os.Stat(filepath.Join(dir, "never"))
	require.True(t, os.IsNotExist(statErr))

	_, err = Multi{}.Deliver(context.Background(), "layer.json", nil)
	require.True(t, errors.Is(err, errors.NotValid))
}
