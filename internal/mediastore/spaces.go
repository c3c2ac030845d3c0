package mediastore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	imageContentTypePrefix = "image/"
	publicReadACLHeader    = "x-amz-acl"
	publicReadACLValue     = "public-read"

	errorMessageMissingCredentials = "mediastore: missing object storage credentials"
	errorMessageMissingBucket      = "mediastore: missing object storage bucket"
	errorMessageMissingCDNEndpoint = "mediastore: missing CDN endpoint"
)

var (
	// ErrMissingCredentials indicates the object storage key pair was not configured.
	ErrMissingCredentials = errors.New(errorMessageMissingCredentials)
	// ErrMissingBucket indicates the object storage bucket was not configured.
	ErrMissingBucket = errors.New(errorMessageMissingBucket)
	// ErrMissingCDNEndpoint indicates the public CDN endpoint was not configured.
	ErrMissingCDNEndpoint = errors.New(errorMessageMissingCDNEndpoint)
)

// Uploader writes image bytes to object storage and returns the public CDN URL.
// Remove deletes a previously uploaded object, used to compensate when the
// database write that follows an upload fails.
type Uploader interface {
	Upload(ctx context.Context, objectKey string, data []byte, contentType string) (string, error)
	Remove(ctx context.Context, objectKey string) error
}

// SpacesConfig captures DigitalOcean Spaces connection settings.
type SpacesConfig struct {
	AccessKey      string
	SecretKey      string
	Bucket         string
	Region         string
	OriginEndpoint string
	CDNEndpoint    string
}

// SpacesStorage implements Uploader against an S3-compatible Spaces bucket.
type SpacesStorage struct {
	client      *minio.Client
	bucketName  string
	cdnEndpoint string
}

// NewSpacesStorage creates an Uploader backed by the configured Spaces bucket.
func NewSpacesStorage(configuration SpacesConfig) (*SpacesStorage, error) {
	if configuration.AccessKey == "" || configuration.SecretKey == "" {
		return nil, ErrMissingCredentials
	}
	if configuration.Bucket == "" {
		return nil, ErrMissingBucket
	}
	trimmedCDNEndpoint := strings.TrimSuffix(strings.TrimSpace(configuration.CDNEndpoint), "/")
	if trimmedCDNEndpoint == "" {
		return nil, ErrMissingCDNEndpoint
	}

	endpoint := strings.TrimPrefix(configuration.OriginEndpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")
	endpoint = strings.TrimSuffix(endpoint, "/")

	minioClient, clientErr := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(configuration.AccessKey, configuration.SecretKey, ""),
		Secure: true,
		Region: configuration.Region,
	})
	if clientErr != nil {
		return nil, fmt.Errorf("mediastore: create client: %w", clientErr)
	}

	return &SpacesStorage{
		client:      minioClient,
		bucketName:  configuration.Bucket,
		cdnEndpoint: trimmedCDNEndpoint,
	}, nil
}

// Upload writes the object with public-read access and returns its CDN URL.
func (storage *SpacesStorage) Upload(ctx context.Context, objectKey string, data []byte, contentType string) (string, error) {
	reader := bytes.NewReader(data)
	_, putErr := storage.client.PutObject(ctx, storage.bucketName, objectKey, reader, int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: map[string]string{publicReadACLHeader: publicReadACLValue},
	})
	if putErr != nil {
		return "", putErr
	}
	return fmt.Sprintf("%s/%s", storage.cdnEndpoint, objectKey), nil
}

// Remove deletes the object from the bucket.
func (storage *SpacesStorage) Remove(ctx context.Context, objectKey string) error {
	return storage.client.RemoveObject(ctx, storage.bucketName, objectKey, minio.RemoveObjectOptions{})
}

// NewObjectKey generates a collision-resistant object key preserving the
// original file extension, nested under the optional upload prefix.
func NewObjectKey(fileName string, uploadPrefix string) string {
	objectName := strings.ReplaceAll(uuid.NewString(), "-", "") + path.Ext(fileName)
	trimmedPrefix := strings.Trim(uploadPrefix, "/")
	if trimmedPrefix == "" {
		return objectName
	}
	return trimmedPrefix + "/" + objectName
}

// ResolveContentType returns the declared content type, falling back to the
// type implied by the file extension when the multipart header omits one.
func ResolveContentType(declaredContentType string, fileName string) string {
	trimmed := strings.TrimSpace(declaredContentType)
	if trimmed != "" {
		return trimmed
	}
	return mime.TypeByExtension(path.Ext(fileName))
}

// IsImageContentType reports whether the content type denotes an image.
func IsImageContentType(contentType string) bool {
	return strings.HasPrefix(contentType, imageContentTypePrefix)
}
