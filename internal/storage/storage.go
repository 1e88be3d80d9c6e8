package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
)

// ErrUnsupportedScheme is returned for references no fetcher handles
var ErrUnsupportedScheme = errors.New("unsupported image reference scheme")

// ImageFetcher downloads the raw bytes of an image reference
type ImageFetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// Router dispatches references to a fetcher by URL scheme
type Router struct {
	fetchers map[string]ImageFetcher
}

// NewRouter builds a router; http and https share the HTTP fetcher. A nil
// blob fetcher leaves azblob references unsupported.
func NewRouter(httpFetcher ImageFetcher, blobFetcher ImageFetcher) *Router {
	r := &Router{fetchers: map[string]ImageFetcher{}}
	if httpFetcher != nil {
		r.fetchers["http"] = httpFetcher
		r.fetchers["https"] = httpFetcher
	}
	if blobFetcher != nil {
		r.fetchers["azblob"] = blobFetcher
	}
	return r
}

func (r *Router) Fetch(ctx context.Context, ref string) ([]byte, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("invalid reference: %w", err)
	}
	f, ok := r.fetchers[u.Scheme]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	return f.Fetch(ctx, ref)
}

// readLimited reads at most limit bytes and fails if the body is larger
func readLimited(body io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("image larger than %d bytes", limit)
	}
	return data, nil
}
