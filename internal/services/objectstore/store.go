// Package objectstore stages workspace audio in an S3-compatible bucket so
// the recognition service can fetch it by presigned URL.
package objectstore

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"dubbin/internal/services"
)

// Config carries the bucket settings. Credentials come from the standard
// AWS environment variables.
type Config struct {
	Bucket   string
	Region   string
	Endpoint string
	Prefix   string
	// PresignHours is how long the recognition service may fetch the
	// object.
	PresignHours int
}

// API is the subset of the S3 client the store uses.
type API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store uploads files and hands out presigned GET URLs for them.
type Store struct {
	cfg       Config
	client    API
	presigner *s3.PresignClient
}

// New builds a store over the default AWS credential chain. A custom
// endpoint switches to path-style addressing for S3-compatible services.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "", "objectstore", "bucket not configured", nil)
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "objectstore", "load aws config", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &Store{
		cfg:       cfg,
		client:    client,
		presigner: s3.NewPresignClient(client),
	}, nil
}

// key joins the configured prefix with the object name.
func (s *Store) key(name string) string {
	if s.cfg.Prefix == "" {
		return name
	}
	return path.Join(s.cfg.Prefix, name)
}

func (s *Store) presignExpiry() time.Duration {
	hours := s.cfg.PresignHours
	if hours <= 0 {
		hours = 6
	}
	return time.Duration(hours) * time.Hour
}

// Stage uploads a local file under the given object name and returns a
// presigned GET URL valid for the configured window.
func (s *Store) Stage(ctx context.Context, localPath, name string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "", "objectstore upload", "open local file", err)
	}
	defer f.Close()

	key := s.key(name)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "", "objectstore upload",
			fmt.Sprintf("put %s", key), err)
	}

	presigned, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.presignExpiry()))
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "", "objectstore presign",
			fmt.Sprintf("presign %s", key), err)
	}
	return presigned.URL, nil
}
