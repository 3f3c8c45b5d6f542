package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gcsapi "google.golang.org/api/storage/v1"
)

// GCSStore keeps entries as objects named <prefix>/<namespace>/<key><ext>.
type GCSStore struct {
	bucketName string
	prefix     string
	service    *gcsapi.Service
}

func NewGCSStore(ctx context.Context, bucketName, prefix string, opts ...option.ClientOption) (*GCSStore, error) {
	trimmedBucket := strings.TrimSpace(bucketName)
	if trimmedBucket == "" {
		return nil, errors.New("gcs bucket is required")
	}

	service, err := gcsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs service: %w", err)
	}

	if _, err := service.Buckets.Get(trimmedBucket).Context(ctx).Do(); err != nil {
		return nil, fmt.Errorf("read gcs bucket attrs: %w", err)
	}

	return &GCSStore{
		bucketName: trimmedBucket,
		prefix:     strings.Trim(strings.TrimSpace(prefix), "/"),
		service:    service,
	}, nil
}

func (s *GCSStore) objectName(ns Namespace, key string) (string, error) {
	if err := ns.validate(); err != nil {
		return "", err
	}
	if err := validateKey(key); err != nil {
		return "", err
	}
	name := path.Join(string(ns), key+ns.extension())
	if s.prefix != "" {
		name = path.Join(s.prefix, name)
	}
	return name, nil
}

func (s *GCSStore) Exists(ctx context.Context, ns Namespace, key string) (bool, error) {
	name, err := s.objectName(ns, key)
	if err != nil {
		return false, err
	}
	_, err = s.service.Objects.Get(s.bucketName, name).Context(ctx).Do()
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat gcs object %q: %w", name, err)
}

func (s *GCSStore) Read(ctx context.Context, ns Namespace, key string) ([]byte, error) {
	name, err := s.objectName(ns, key)
	if err != nil {
		return nil, err
	}
	resp, err := s.service.Objects.Get(s.bucketName, name).Context(ctx).Download()
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("download gcs object %q: %w", name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read gcs object %q: %w", name, err)
	}
	return data, nil
}

func (s *GCSStore) Write(ctx context.Context, ns Namespace, key string, data []byte) error {
	name, err := s.objectName(ns, key)
	if err != nil {
		return err
	}

	object := &gcsapi.Object{
		Name:        name,
		ContentType: contentTypeFor(ns),
	}

	if _, err := s.service.Objects.Insert(s.bucketName, object).Media(bytes.NewReader(data)).Context(ctx).Do(); err != nil {
		return fmt.Errorf("write gcs object %q: %w", name, err)
	}
	return nil
}

func contentTypeFor(ns Namespace) string {
	switch ns {
	case NamespaceHTML:
		return "text/html; charset=utf-8"
	case NamespaceText:
		return "text/plain; charset=utf-8"
	case NamespaceResults:
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
