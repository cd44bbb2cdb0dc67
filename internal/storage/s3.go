package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"blog-backend/internal/config"
)

// S3Backend stores uploads as objects under an optional key prefix.
type S3Backend struct {
	config *config.S3Config
	client *s3.Client
}

func NewS3Backend(cfg *config.S3Config) *S3Backend {
	awsCfg := aws.Config{
		Region: cfg.Region,
		Credentials: credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		),
	}

	if cfg.Endpoint != "" {
		awsCfg.BaseEndpoint = aws.String(cfg.Endpoint)
	}

	return &S3Backend{
		config: cfg,
		client: s3.NewFromConfig(awsCfg),
	}
}

func (b *S3Backend) GetName() string {
	return "s3"
}

func (b *S3Backend) Save(filename string, data []byte) error {
	_, err := b.client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String(b.config.Bucket),
		Key:    aws.String(b.objectKey(filename)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	return nil
}

func (b *S3Backend) Read(filename string) ([]byte, error) {
	result, err := b.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(b.config.Bucket),
		Key:    aws.String(b.objectKey(filename)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read S3 object: %w", err)
	}
	return data, nil
}

func (b *S3Backend) List() ([]FileInfo, error) {
	prefix := b.prefix()

	result, err := b.client.ListObjectsV2(context.Background(), &s3.ListObjectsV2Input{
		Bucket: aws.String(b.config.Bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list S3 objects: %w", err)
	}

	files := []FileInfo{}
	for _, obj := range result.Contents {
		filename := (*obj.Key)[len(prefix):]
		if filename != "" {
			files = append(files, FileInfo{
				Name:    filename,
				Size:    *obj.Size,
				ModTime: *obj.LastModified,
			})
		}
	}
	return files, nil
}

func (b *S3Backend) Delete(filename string) error {
	_, err := b.client.DeleteObject(context.Background(), &s3.DeleteObjectInput{
		Bucket: aws.String(b.config.Bucket),
		Key:    aws.String(b.objectKey(filename)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}

// Rename is copy-then-delete; S3 has no native rename.
func (b *S3Backend) Rename(oldName, newName string) error {
	_, err := b.client.CopyObject(context.Background(), &s3.CopyObjectInput{
		Bucket:     aws.String(b.config.Bucket),
		CopySource: aws.String(b.config.Bucket + "/" + b.objectKey(oldName)),
		Key:        aws.String(b.objectKey(newName)),
	})
	if err != nil {
		return fmt.Errorf("failed to copy S3 object: %w", err)
	}
	return b.Delete(oldName)
}

func (b *S3Backend) Exists(filename string) (bool, error) {
	_, err := b.client.HeadObject(context.Background(), &s3.HeadObjectInput{
		Bucket: aws.String(b.config.Bucket),
		Key:    aws.String(b.objectKey(filename)),
	})
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (b *S3Backend) prefix() string {
	if b.config.PathPrefix != "" {
		return b.config.PathPrefix + "/"
	}
	return ""
}

func (b *S3Backend) objectKey(filename string) string {
	return b.prefix() + filename
}
