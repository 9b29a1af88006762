//go:build integration

package s3

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/cephtool/pkg/remotefs"
	remotefstesting "github.com/marmos91/cephtool/pkg/remotefs/testing"
)

// setupTestBucket connects to Localstack (or another S3-compatible endpoint
// given by LOCALSTACK_ENDPOINT) and creates a bucket that is emptied and
// deleted when the test ends.
func setupTestBucket(t *testing.T, bucket string) *s3.Client {
	t.Helper()
	ctx := context.Background()

	endpoint := os.Getenv("LOCALSTACK_ENDPOINT")
	if endpoint == "" {
		endpoint = "http://localhost:4566"
	}

	cfg, err := awsConfig.LoadDefaultConfig(ctx,
		awsConfig.WithRegion("us-east-1"),
		awsConfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "")),
	)
	require.NoError(t, err)

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)})
	require.NoError(t, err)

	t.Cleanup(func() {
		paginator := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{Bucket: aws.String(bucket)})
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				break
			}
			for _, obj := range page.Contents {
				_, _ = client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(bucket), Key: obj.Key})
			}
		}
		_, _ = client.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(bucket)})
	})

	return client
}

// Prerequisites:
//   - Localstack running on localhost:4566
//   - Run with: go test -tags=integration ./pkg/remotefs/s3/...
func TestS3Driver_Integration(t *testing.T) {
	suite := &remotefstesting.DriverTestSuite{
		NewDriver: func(t *testing.T) remotefs.Driver {
			bucket := fmt.Sprintf("cephtool-test-%d", time.Now().UnixNano())
			client := setupTestBucket(t, bucket)

			driver, err := New(context.Background(), StoreConfig{
				Client:    client,
				Bucket:    bucket,
				KeyPrefix: "fs/",
			})
			require.NoError(t, err)
			return driver
		},
	}
	suite.Run(t)
}
