package object

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"doc-repository/pkg/metrics"
)

// S3Options S3 客户端参数；Endpoint 非空时用于 MinIO 等兼容存储
type S3Options struct {
	Region    string
	Endpoint  string
	PathStyle bool
	PageSize  int
}

// S3Store 基于 aws-sdk-go-v2 的对象存储实现；凭证取自运行环境（环境变量、共享配置、实例角色）
type S3Store struct {
	client   *s3.Client
	pageSize int32
}

// NewS3Store 使用默认凭证链创建 S3Store
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.PathStyle
	})
	return NewS3StoreWithClient(client, opts.PageSize), nil
}

// NewS3StoreWithClient 使用已构造的 client
func NewS3StoreWithClient(client *s3.Client, pageSize int) *S3Store {
	if pageSize <= 0 || pageSize > DefaultPageSize {
		pageSize = DefaultPageSize
	}
	return &S3Store{client: client, pageSize: int32(pageSize)}
}

func (s *S3Store) Put(ctx context.Context, bucket, key string, body []byte, metadata Metadata) error {
	metrics.BlobRequestTotal.WithLabelValues("s3", "put").Inc()
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		Metadata:    metadata,
	})
	return err
}

func (s *S3Store) Get(ctx context.Context, bucket, key string) (*Object, error) {
	metrics.BlobRequestTotal.WithLabelValues("s3", "get").Inc()
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, mapS3Error(err, bucket, key)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object %s/%s: %w", bucket, key, err)
	}
	return &Object{Key: key, Body: body, Metadata: Metadata(out.Metadata)}, nil
}

func (s *S3Store) Head(ctx context.Context, bucket, key string) (Metadata, error) {
	metrics.BlobRequestTotal.WithLabelValues("s3", "head").Inc()
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, mapS3Error(err, bucket, key)
	}
	return Metadata(out.Metadata), nil
}

// Delete S3 删除本身幂等，不会返回 ErrNotFound
func (s *S3Store) Delete(ctx context.Context, bucket, key string) error {
	metrics.BlobRequestTotal.WithLabelValues("s3", "delete").Inc()
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return mapS3Error(err, bucket, key)
	}
	return nil
}

func (s *S3Store) ListPage(ctx context.Context, bucket, prefix, token string) (*ListPage, error) {
	metrics.BlobRequestTotal.WithLabelValues("s3", "list").Inc()
	in := &s3.ListObjectsV2Input{
		Bucket:  aws.String(bucket),
		MaxKeys: aws.Int32(s.pageSize),
	}
	if prefix != "" {
		in.Prefix = aws.String(prefix)
	}
	if token != "" {
		in.ContinuationToken = aws.String(token)
	}
	out, err := s.client.ListObjectsV2(ctx, in)
	if err != nil {
		return nil, err
	}

	page := &ListPage{Keys: make([]string, 0, len(out.Contents))}
	for _, obj := range out.Contents {
		page.Keys = append(page.Keys, aws.ToString(obj.Key))
	}
	if aws.ToBool(out.IsTruncated) {
		page.NextToken = aws.ToString(out.NextContinuationToken)
	}
	return page, nil
}

func (s *S3Store) Close() error {
	return nil
}

// mapS3Error GetObject 返回 NoSuchKey，HeadObject 无响应体只能通过 NotFound 识别
func mapS3Error(err error, bucket, key string) error {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return fmt.Errorf("object %s/%s: %w", bucket, key, ErrNotFound)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return fmt.Errorf("object %s/%s: %w", bucket, key, ErrNotFound)
		}
	}
	return err
}
