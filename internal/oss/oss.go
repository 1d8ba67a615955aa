package oss

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"adeptly/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrObjectNotFound is returned by Stat for a missing key.
var ErrObjectNotFound = errors.New("object not found")

// DiagramStore reads problem and solution diagrams from one bucket.
type DiagramStore struct {
	cli        *minio.Client
	presignCli *minio.Client
	bucket     string
	ttl        time.Duration
}

// parseEndpoint accepts "host:port" or a scheme-qualified url without a path.
func parseEndpoint(address string) (endpoint string, secure bool, err error) {
	if !strings.HasPrefix(address, "http://") && !strings.HasPrefix(address, "https://") {
		return address, false, nil
	}
	u, err := url.Parse(address)
	if err != nil {
		return "", false, err
	}
	if u.Path != "" && u.Path != "/" {
		return "", false, errors.New("endpoint url cannot have fully qualified paths")
	}
	return u.Host, u.Scheme == "https", nil
}

func newMinioClient(address, accessKey, secretKey string) (*minio.Client, error) {
	endpoint, secure, err := parseEndpoint(address)
	if err != nil {
		return nil, err
	}
	return minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: secure,
		Region: "us-east-1",
	})
}

// NewDiagramStore builds the clients. Presigned urls use PublicAddress when set.
func NewDiagramStore(cfg config.OSSConfig) (*DiagramStore, error) {
	if strings.TrimSpace(cfg.BucketName) == "" {
		return nil, errors.New("oss bucket name is empty")
	}
	cli, err := newMinioClient(cfg.Address, cfg.AccessKey, cfg.SecretKey)
	if err != nil {
		return nil, err
	}

	presignCli := cli
	if strings.TrimSpace(cfg.PublicAddress) != "" {
		presignCli, err = newMinioClient(cfg.PublicAddress, cfg.AccessKey, cfg.SecretKey)
		if err != nil {
			return nil, err
		}
	}

	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &DiagramStore{cli: cli, presignCli: presignCli, bucket: cfg.BucketName, ttl: ttl}, nil
}

// Bucket returns the configured bucket name.
func (o *DiagramStore) Bucket() string {
	return o.bucket
}

// EnsureBucket creates the bucket if it does not exist.
func (o *DiagramStore) EnsureBucket(ctx context.Context) error {
	exists, err := o.cli.BucketExists(ctx, o.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return o.cli.MakeBucket(ctx, o.bucket, minio.MakeBucketOptions{})
	}
	return nil
}

// Stat returns object metadata, ErrObjectNotFound when the key is absent.
func (o *DiagramStore) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	info, err := o.cli.StatObject(ctx, o.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return ObjectInfo{}, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return ObjectInfo{}, err
	}
	return ObjectInfo{
		Key:          info.Key,
		Size:         info.Size,
		LastModified: info.LastModified,
		ContentType:  info.ContentType,
	}, nil
}

// PresignGet returns a time-limited download url for key.
func (o *DiagramStore) PresignGet(ctx context.Context, key string) (string, error) {
	u, err := o.presignCli.PresignedGetObject(ctx, o.bucket, key, o.ttl, make(url.Values))
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// ObjectInfo object metadata
type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
	ContentType  string    `json:"content_type"`
	IsDir        bool      `json:"is_dir"`
}

// List lists objects under prefix.
// recursive=false also returns "directories" (keys ending in /).
func (o *DiagramStore) List(ctx context.Context, prefix string, recursive bool) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	opts := minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: recursive,
	}

	for object := range o.cli.ListObjects(ctx, o.bucket, opts) {
		if object.Err != nil {
			return nil, object.Err
		}
		objects = append(objects, ObjectInfo{
			Key:          object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
			ContentType:  object.ContentType,
			IsDir:        strings.HasSuffix(object.Key, "/"),
		})
	}
	return objects, nil
}
