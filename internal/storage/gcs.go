package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/sitevoice/fieldreport/internal/common"
)

// GCSConfig configures the audio object store.
type GCSConfig struct {
	Bucket          string
	CredentialsJSON string // optional; ADC is preferred in deployed environments
	UploadURLTTL    time.Duration
}

// GCSStore holds the shared Google Cloud Storage client. One client per
// process; the entry point owns Close.
type GCSStore struct {
	client *gcs.Client
	cfg    GCSConfig
	log    *slog.Logger
}

// NewGCSStore builds the store client. Prefers ADC (service account /
// GOOGLE_APPLICATION_CREDENTIALS); explicit JSON creds are for local runs.
func NewGCSStore(ctx context.Context, cfg GCSConfig, log *slog.Logger) (*GCSStore, error) {
	if log == nil {
		log = slog.Default()
	}
	if cfg.UploadURLTTL <= 0 {
		cfg.UploadURLTTL = 15 * time.Minute
	}

	var (
		client *gcs.Client
		err    error
	)
	if strings.TrimSpace(cfg.CredentialsJSON) != "" {
		client, err = gcs.NewClient(ctx, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	} else {
		client, err = gcs.NewClient(ctx)
	}
	if err != nil {
		return nil, common.WrapError(err, "create gcs client")
	}
	return &GCSStore{client: client, cfg: cfg, log: log}, nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}

// Fetch implements AudioFetcher. A missing object is a retrieval failure like
// any other: the caller cannot distinguish a never-uploaded recording from a
// deleted one, and both fail the attempt.
func (s *GCSStore) Fetch(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	rc, err := s.client.Bucket(s.cfg.Bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			s.log.Error("storage.fetch.not_found", "key", key)
			return nil, common.Tagf(common.ErrRetrieval, "object %q not found", key)
		}
		s.log.Error("storage.fetch.open_error", "key", key, "error", err)
		return nil, common.Tag(common.ErrRetrieval, err)
	}
	defer func() {
		if cerr := rc.Close(); cerr != nil {
			s.log.Warn("storage.fetch.close_error", "key", key, "error", cerr)
		}
	}()

	data, err := io.ReadAll(rc)
	if err != nil {
		s.log.Error("storage.fetch.read_error", "key", key, "error", err)
		return nil, common.Tag(common.ErrRetrieval, err)
	}
	s.log.Info("storage.fetch.ok", "key", key, "bytes", len(data), "elapsed_ms", time.Since(start).Milliseconds())
	return data, nil
}

// SignUpload implements UploadSigner with a V4 signed PUT URL. Signing uses
// the client's credentials (ADC iam signing or the explicit key).
func (s *GCSStore) SignUpload(ctx context.Context, key, contentType string) (*SignedUpload, error) {
	expires := time.Now().Add(s.cfg.UploadURLTTL)
	opts := &gcs.SignedURLOptions{
		Scheme:      gcs.SigningSchemeV4,
		Method:      "PUT",
		Expires:     expires,
		ContentType: contentType,
	}
	url, err := s.client.Bucket(s.cfg.Bucket).SignedURL(key, opts)
	if err != nil {
		s.log.Error("storage.sign.error", "key", key, "error", err)
		return nil, common.WrapError(err, "sign upload URL")
	}
	s.log.Info("storage.sign.ok", "key", key, "content_type", contentType, "expires_at", expires.UTC().Format(time.RFC3339))
	return &SignedUpload{
		UploadURL: url,
		Method:    "PUT",
		Headers:   map[string]string{"Content-Type": contentType},
		ObjectKey: key,
		ExpiresAt: expires,
	}, nil
}
