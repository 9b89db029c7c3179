// Package media resolves image references into gateway-hosted public URLs
// ahead of a bulk-media send. Resolution is all-or-nothing per call, unlike
// the per-recipient sends it feeds.
package media

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/lamisoft/wadispatch/internal/domain"
	"github.com/lamisoft/wadispatch/internal/gateway"
)

// MaxRefs is the provider cap on media references per call.
const MaxRefs = 2

const defaultFetchTimeout = 20 * time.Second

// Step-named sentinels so the HTTP boundary can tell the caller which stage
// failed.
var (
	ErrFetchFailed  = errors.New("failed to fetch media")
	ErrUploadFailed = errors.New("failed to upload media")
)

// Resolver turns raw media references (gateway-hosted URLs, remote URLs, or
// inline base64) into gateway-hosted public URLs. A per-request cache
// deduplicates identical references so each distinct input is fetched and
// uploaded at most once per call.
type Resolver struct {
	uploader     gateway.Uploader
	fetcher      *resty.Client
	hostedPrefix string
}

func NewResolver(uploader gateway.Uploader, hostedPrefix string) (*Resolver, error) {
	fetcher := resty.New()
	fetcher.SetTimeout(defaultFetchTimeout)
	fetcher.SetRetryCount(0)

	return NewResolverWithFetcher(uploader, hostedPrefix, fetcher)
}

func NewResolverWithFetcher(uploader gateway.Uploader, hostedPrefix string, fetcher *resty.Client) (*Resolver, error) {
	if uploader == nil {
		return nil, fmt.Errorf("uploader is required")
	}
	trimmedPrefix := strings.TrimSpace(hostedPrefix)
	if trimmedPrefix == "" {
		return nil, fmt.Errorf("hosted url prefix is required")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("fetch client is required")
	}

	return &Resolver{
		uploader:     uploader,
		fetcher:      fetcher,
		hostedPrefix: trimmedPrefix,
	}, nil
}

// Resolve returns one public URL per reference, same order, same length.
// Any failure aborts the whole call.
func (r *Resolver) Resolve(ctx context.Context, apiKey string, refs []string) ([]string, error) {
	if len(refs) == 0 {
		return nil, fmt.Errorf("%w: mediaUrls is required", domain.ErrValidation)
	}
	if len(refs) > MaxRefs {
		return nil, fmt.Errorf("%w: at most %d media references per call", domain.ErrValidation, MaxRefs)
	}

	cache := make(map[string]string, len(refs))
	resolved := make([]string, 0, len(refs))

	for _, ref := range refs {
		trimmed := strings.TrimSpace(ref)
		if trimmed == "" {
			return nil, fmt.Errorf("%w: media reference must not be empty", domain.ErrValidation)
		}

		if cached, ok := cache[trimmed]; ok {
			resolved = append(resolved, cached)
			continue
		}

		publicURL, err := r.resolveOne(ctx, apiKey, trimmed)
		if err != nil {
			return nil, err
		}

		cache[trimmed] = publicURL
		resolved = append(resolved, publicURL)
	}

	return resolved, nil
}

func (r *Resolver) resolveOne(ctx context.Context, apiKey, ref string) (string, error) {
	// Already hosted by the gateway; re-uploading would duplicate the asset.
	if strings.HasPrefix(ref, r.hostedPrefix) {
		return ref, nil
	}

	payload := ref
	if isRemoteURL(ref) {
		fetched, err := r.fetchAsBase64(ctx, ref)
		if err != nil {
			return "", err
		}
		payload = fetched
	}

	publicURL, err := r.uploader.UploadMedia(ctx, apiKey, payload)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	return publicURL, nil
}

func (r *Resolver) fetchAsBase64(ctx context.Context, rawURL string) (string, error) {
	response, err := r.fetcher.R().SetContext(ctx).Get(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrFetchFailed, rawURL, err)
	}

	statusCode := response.StatusCode()
	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("%w: %s returned status %d", ErrFetchFailed, rawURL, statusCode)
	}

	contentType := strings.TrimSpace(response.Header().Get("Content-Type"))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	encoded := base64.StdEncoding.EncodeToString(response.Body())
	return "data:" + contentType + ";base64," + encoded, nil
}

func isRemoteURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}
