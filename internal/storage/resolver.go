package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"meeting-insights-go/internal/logger"
)

// ErrNotFound is returned when the object store has no entry for the
// requested bucket/identifier pair.
var ErrNotFound = errors.New("object not found")

// Resolver turns an opaque file identifier into a fetchable media URL.
type Resolver interface {
	Resolve(ctx context.Context, bucket, fileID string) (string, error)
}

// HTTPResolver resolves identifiers against an object-storage HTTP API:
// GET {base}/buckets/{bucket}/objects/{id}/url -> {"url": "..."}.
type HTTPResolver struct {
	baseURL string
	client  *http.Client
	log     *logger.Logger
}

type resolveResponse struct {
	URL string `json:"url"`
}

// NewHTTPResolver builds a resolver against the given storage endpoint.
func NewHTTPResolver(baseURL string, log *logger.Logger) *HTTPResolver {
	return &HTTPResolver{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 12 * time.Second},
		log:     log,
	}
}

// Resolve implements Resolver. Missing objects map to ErrNotFound; transient
// server errors are retried with exponential backoff.
func (r *HTTPResolver) Resolve(ctx context.Context, bucket, fileID string) (string, error) {
	endpoint := fmt.Sprintf("%s/buckets/%s/objects/%s/url",
		r.baseURL, url.PathEscape(bucket), url.PathEscape(fileID))

	log := r.log.WithComponent("storage").WithField("bucket", bucket).WithField("file_id", fileID)

	var out resolveResponse
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := r.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(ErrNotFound)
		case resp.StatusCode >= 500:
			return fmt.Errorf("storage server error: %s", string(body))
		case resp.StatusCode >= 400:
			return backoff.Permanent(fmt.Errorf("storage request rejected: %s", string(body)))
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return backoff.Permanent(fmt.Errorf("storage response decode: %w", err))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 12 * time.Second
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		log.WithError(err).Warn("resolve failed")
		return "", err
	}
	if out.URL == "" {
		return "", fmt.Errorf("storage returned empty url for %s/%s", bucket, fileID)
	}
	log.WithField("url", out.URL).Debug("resolved media url")
	return out.URL, nil
}
