package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/samber/oops"

	"github.com/ayush/blog/internal/models"
)

const avatarPrefix = "avatars/"

// MinioStore keeps avatar pictures in a MinIO bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
}

func NewMinioStore(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	// Ensure bucket exists
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio make bucket: %w", err)
		}
	}

	return &MinioStore{client: client, bucket: bucket}, nil
}

// ContentType returns the MIME type for an avatar file name.
func ContentType(name string) string {
	switch path.Ext(name) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// PutAvatar stores the picture under name, replacing any previous object.
func (s *MinioStore) PutAvatar(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, avatarPrefix+name, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: ContentType(name)})
	if err != nil {
		return oops.Code("AVATAR_PUT_FAILED").With("name", name).Wrap(fmt.Errorf("%w: %w", models.ErrStoreUnavailable, err))
	}
	return nil
}

// GetAvatar retrieves the picture bytes and content type.
func (s *MinioStore) GetAvatar(ctx context.Context, name string) ([]byte, string, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, avatarPrefix+name, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", s.readErr(name, err)
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		return nil, "", s.readErr(name, err)
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, "", s.readErr(name, err)
	}
	return data, info.ContentType, nil
}

// RemoveAvatar deletes the picture. Missing objects are not an error.
func (s *MinioStore) RemoveAvatar(ctx context.Context, name string) error {
	err := s.client.RemoveObject(ctx, s.bucket, avatarPrefix+name, minio.RemoveObjectOptions{})
	if err != nil {
		return oops.Code("AVATAR_REMOVE_FAILED").With("name", name).Wrap(fmt.Errorf("%w: %w", models.ErrStoreUnavailable, err))
	}
	return nil
}

func (s *MinioStore) readErr(name string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return oops.Code("AVATAR_NOT_FOUND").With("name", name).Wrap(models.ErrNotFound)
	}
	return oops.Code("AVATAR_GET_FAILED").With("name", name).Wrap(fmt.Errorf("%w: %w", models.ErrStoreUnavailable, err))
}
