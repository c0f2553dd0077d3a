// Package gcs stores the polygon table as a Google Cloud Storage object.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/AlviRownok/NAPOLI-GIS/internal/config"
	"github.com/AlviRownok/NAPOLI-GIS/internal/logger"
	"github.com/AlviRownok/NAPOLI-GIS/internal/store"
)

type Backend struct {
	log    *logger.Logger
	client *storage.Client
	bucket string
}

func init() {
	store.RegisterBackend(config.BackendGCS, func(ctx context.Context, cfg config.Store, log *logger.Logger) (store.Backend, error) {
		return New(ctx, cfg, log)
	})
}

// New opens a storage client. Credentials come from cfg.CredentialsFile
// (a path or inline JSON) or the application default chain.
func New(ctx context.Context, cfg config.Store, log *logger.Logger) (*Backend, error) {
	if cfg.Bucket == "" {
		return nil, config.ErrMissingBucket
	}
	opts := []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
	if creds := strings.TrimSpace(cfg.CredentialsFile); creds != "" {
		if strings.HasPrefix(creds, "{") {
			opts = append(opts, option.WithCredentialsJSON([]byte(creds)))
		} else {
			opts = append(opts, option.WithCredentialsFile(creds))
		}
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: creating storage client: %w", store.ErrCredentials, err)
	}
	return &Backend{
		log:    log.With("backend", "gcs", "bucket", cfg.Bucket),
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	r, err := b.client.Bucket(b.bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, classify("get", key, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, classify("get", key, err)
	}
	return data, nil
}

func (b *Backend) Put(ctx context.Context, key string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	w := b.client.Bucket(b.bucket).Object(key).NewWriter(ctx)
	w.ContentType = "text/csv"
	if _, err := w.Write(body); err != nil {
		_ = w.Close()
		return classify("put", key, err)
	}
	if err := w.Close(); err != nil {
		return classify("put", key, err)
	}
	return nil
}

func (b *Backend) Close() error {
	return b.client.Close()
}

func classify(op, key string, err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return store.ErrNotFound
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && (gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden) {
		return fmt.Errorf("%w: gcs %s %q: %w", store.ErrCredentials, op, key, err)
	}
	if strings.Contains(err.Error(), "could not find default credentials") {
		return fmt.Errorf("%w: gcs %s %q: %w", store.ErrCredentials, op, key, err)
	}
	return fmt.Errorf("%w: gcs %s %q: %w", store.ErrTransient, op, key, err)
}
