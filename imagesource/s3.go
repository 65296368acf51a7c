package imagesource

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source loads photos from a bucket by object key.
type S3Source struct {
	bucket string
	s3     s3API
}

func NewS3Source(s3Client s3API, bucket string) *S3Source {
	return &S3Source{bucket: bucket, s3: s3Client}
}

func (s *S3Source) Load(ctx context.Context, key string) (Image, error) {
	resp, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return Image{}, fmt.Errorf("failed to get image object from S3: %w", err)
	}
	defer resp.Body.Close()

	data, err := readLimited(resp.Body, key)
	if err != nil {
		return Image{}, err
	}

	mime := aws.ToString(resp.ContentType)
	if !strings.HasPrefix(mime, "image/") {
		mime = MimeFromPath(key)
	}
	return Image{Name: path.Base(key), Data: data, MimeType: mime}, nil
}
