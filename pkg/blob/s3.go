package blob

import (
	"bytes"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	log "github.com/sirupsen/logrus"

	"github.com/openaerialmap/oam-mirror/pkg/errors"
)

// S3 is a Store backed by AWS S3 or any S3-compatible service.
type S3 struct {
	bucket string
	client *s3.S3
}

// NewS3 creates a Store for the bucket described by the given config.
func NewS3(config Config) (*S3, error) {
	awsConfig := &aws.Config{
		Region: aws.String(config.Region),
		Credentials: credentials.NewStaticCredentials(
			config.AccessKey, config.SecretKey, ""),
	}
	if config.Endpoint != "" {
		// Path-style addressing is required by most S3-compatible services,
		// e.g. MinIO and localstack.
		awsConfig.Endpoint = aws.String(config.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
		log.WithField("endpoint", config.Endpoint).
			Debug("Using custom S3 endpoint")
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, errors.WithContext(err, "create aws session")
	}
	return &S3{bucket: config.Bucket, client: s3.New(sess)}, nil
}

// Get fetches the object at the given key. A missing key isn't an error.
func (s *S3) Get(key string) ([]byte, bool, error) {
	resp, err := s.client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if awsErr, ok := err.(awserr.Error); ok {
			// Some S3-compatible services report missing keys as NotFound
			// rather than NoSuchKey.
			if awsErr.Code() == s3.ErrCodeNoSuchKey || awsErr.Code() == "NotFound" {
				return nil, false, nil
			}
		}
		return nil, false, errors.WithContext(err, "get object")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, errors.WithContext(err, "read object body")
	}
	return data, true, nil
}

// Put writes the object at the given key with the given content type.
func (s *S3) Put(key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(&s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return errors.WithContext(err, "put object")
	}

	log.WithFields(log.Fields{
		"key":   key,
		"bytes": len(data),
	}).Debug("Uploaded object")
	return nil
}

// List returns all keys under the given prefix.
func (s *S3) List(prefix string) ([]string, error) {
	var keys []string
	err := s.client.ListObjectsV2Pages(&s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	}, func(page *s3.ListObjectsV2Output, _ bool) bool {
		for _, object := range page.Contents {
			keys = append(keys, aws.StringValue(object.Key))
		}
		return true
	})
	if err != nil {
		return nil, errors.WithContext(err, "list objects")
	}
	return keys, nil
}
