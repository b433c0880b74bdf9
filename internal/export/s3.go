package export

import (
	"context"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/juju/errors"
)

// NewS3Sink loads the default AWS credential chain. An empty region leaves the
// SDK to resolve one from the environment.
func NewS3Sink(ctx context.Context, bucket, prefix, region string) (S3Sink, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if r := strings.TrimSpace(region); r != "" {
		opts = append(opts, awsconfig.WithRegion(r))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return S3Sink{}, errors.Annotate(err, "load aws config")
	}
	return S3Sink{Client: s3.NewFromConfig(cfg), Bucket: bucket, Prefix: prefix}, nil
}
