package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Scheme prefixes source references that live in object storage.
const Scheme = "s3://"

var (
	ErrInvalidReference = errors.New("invalid object reference")
	ErrObjectTooLarge   = errors.New("object exceeds the size limit")
)

type Options struct {
	Endpoint        string
	AccessKeyId     string
	SecretAccessKey string
	UseSsl          bool
}

type StorageService interface {
	// ReadObject returns the content of an object, refusing objects larger than maxBytes.
	ReadObject(ctx context.Context, bucketName string, objectName string, maxBytes int64) ([]byte, error)
	// UploadObject stores the content under the given name.
	UploadObject(ctx context.Context, bucketName string, objectName string, content io.Reader, size int64) (*minio.UploadInfo, error)
}

type storageService struct {
	minioClient *minio.Client
}

// NewStorageService creates a new storage service.
func NewStorageService(opts Options) (StorageService, error) {
	minioClient, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKeyId, opts.SecretAccessKey, ""),
		Secure: opts.UseSsl,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %v", err)
	}

	return &storageService{
		minioClient: minioClient,
	}, nil
}

// ReadObject downloads an object into memory.
func (s *storageService) ReadObject(ctx context.Context, bucketName string, objectName string, maxBytes int64) ([]byte, error) {
	object, err := s.minioClient.GetObject(ctx, bucketName, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s/%s: %w", bucketName, objectName, err)
	}
	defer object.Close()

	info, err := object.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat object %s/%s: %w", bucketName, objectName, err)
	}
	if maxBytes > 0 && info.Size > maxBytes {
		return nil, fmt.Errorf("%w: %s/%s has %d bytes", ErrObjectTooLarge, bucketName, objectName, info.Size)
	}

	content, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s/%s: %w", bucketName, objectName, err)
	}
	return content, nil
}

// UploadObject uploads an object to the storage.
func (s *storageService) UploadObject(ctx context.Context, bucketName string, objectName string, content io.Reader, size int64) (*minio.UploadInfo, error) {
	info, err := s.minioClient.PutObject(ctx, bucketName, objectName, content, size, minio.PutObjectOptions{
		ContentType: "text/plain",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload object %s/%s: %w", bucketName, objectName, err)
	}
	return &info, nil
}

// IsReference reports whether a source path points into object storage.
func IsReference(path string) bool {
	return strings.HasPrefix(path, Scheme)
}

// ParseReference splits "s3://bucket/object" into bucket and object name.
func ParseReference(ref string) (string, string, error) {
	if !IsReference(ref) {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidReference, ref)
	}
	bucket, object, ok := strings.Cut(strings.TrimPrefix(ref, Scheme), "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidReference, ref)
	}
	return bucket, object, nil
}
