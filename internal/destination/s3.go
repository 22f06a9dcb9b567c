package destination

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/feedline/feedline/internal/model"
	"github.com/feedline/feedline/internal/pipeline"
)

// S3 uploads to an S3-compatible object store. Public config: bucket,
// region, access_key_id, optional endpoint and prefix; the secret access key
// travels in the encrypted client-secret slot.
type S3 struct {
	logger zerolog.Logger
}

func NewS3(logger zerolog.Logger) *S3 {
	return &S3{logger: logger.With().Str("component", "s3-client").Logger()}
}

// client builds an S3 client for the destination's bucket endpoint.
func (c *S3) client(creds *model.Credentials) *awss3.Client {
	region := creds.Public["region"]
	if region == "" {
		region = "us-east-1"
	}
	opts := awss3.Options{
		Region:      region,
		Credentials: credentials.NewStaticCredentialsProvider(creds.Public["access_key_id"], creds.ClientSecret, ""),
	}
	if endpoint := creds.Public["endpoint"]; endpoint != "" {
		opts.BaseEndpoint = aws.String(endpoint)
		opts.UsePathStyle = true
	}
	return awss3.New(opts)
}

func (c *S3) Upload(ctx context.Context, out *pipeline.Output, dst *model.Destination, creds *model.Credentials) error {
	bucket := creds.Public["bucket"]
	if bucket == "" {
		return &Error{Op: "s3 upload", Err: fmt.Errorf("destination is missing bucket")}
	}
	if creds.Public["access_key_id"] == "" || creds.ClientSecret == "" {
		return &Error{Op: "s3 upload", Err: fmt.Errorf("destination is missing access keys")}
	}

	key := path.Join(creds.Public["prefix"], out.Path)
	_, err := c.client(creds).PutObject(ctx, &awss3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(out.Content),
		ContentLength: aws.Int64(out.Size),
		ContentType:   aws.String(contentType(out.Format)),
	})
	if err != nil {
		return &Error{Op: "s3 put object", Err: err, Transient: true}
	}

	c.logger.Info().
		Str("bucket", bucket).
		Str("key", key).
		Int64("size", out.Size).
		Msg("s3 upload complete")
	return nil
}

func contentType(format string) string {
	switch format {
	case model.FormatCSV:
		return "text/csv"
	case model.FormatJSON:
		return "application/json"
	case model.FormatXML:
		return "application/xml"
	default:
		return "application/octet-stream"
	}
}
