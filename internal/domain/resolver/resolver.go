// Package resolver fetches component artifacts from file/http(s)/oci
// sources into a content-addressed on-disk cache. Grounded on the
// teacher's internal/application/services/cached_resolver.go
// (cache-first chain-of-responsibility) and plugin_service.go's
// resolve→verify-digest contract, generalized from a single plugin
// repository lookup to the spec's three URI schemes.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wassette-dev/wassette/internal/domain/wassetteerr"
)

// Result is the outcome of a successful fetch.
type Result struct {
	LocalPath string
	Digest    string // hex-encoded SHA-256
}

// Fetcher resolves one URI scheme to local bytes.
type Fetcher interface {
	Scheme() string
	Fetch(ctx context.Context, canonical string) (Result, error)
}

// Resolver dispatches fetch(uri) by scheme through a content-addressed
// Cache, collapsing concurrent fetches of the same canonical URI with
// singleflight the way the teacher's worker pool avoids duplicate work.
type Resolver struct {
	cache    *Cache
	fetchers map[string]Fetcher
	group    singleflight.Group
	backoff  Backoff
}

// Backoff configures transport-error retry, grounded on the teacher's
// internal/infrastructure/engine/backoff.go exponential strategy.
type Backoff struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxAttempts  int
}

func DefaultBackoff() Backoff {
	return Backoff{InitialDelay: 200 * time.Millisecond, MaxDelay: 5 * time.Second, MaxAttempts: 4}
}

// New constructs a Resolver backed by cache, registering one Fetcher
// per scheme.
func New(cache *Cache, backoff Backoff, fetchers ...Fetcher) *Resolver {
	r := &Resolver{cache: cache, fetchers: map[string]Fetcher{}, backoff: backoff}
	for _, f := range fetchers {
		r.fetchers[f.Scheme()] = f
	}
	return r
}

const opFetch = "resolver.Fetch"

// Fetch resolves uri to local bytes, consulting the cache first.
func (r *Resolver) Fetch(ctx context.Context, uri string) (Result, error) {
	canonical, scheme, err := Canonicalize(uri)
	if err != nil {
		return Result{}, wassetteerr.New(wassetteerr.Resolve, opFetch, "Unsupported", "canonicalizing uri", err)
	}

	if entry, ok := r.cache.Lookup(canonical); ok {
		return Result{LocalPath: entry.Path, Digest: entry.Digest}, nil
	}

	fetcher, ok := r.fetchers[scheme]
	if !ok {
		return Result{}, wassetteerr.New(wassetteerr.Resolve, opFetch, "Unsupported", "no fetcher registered for scheme "+scheme, nil)
	}

	v, err, _ := r.group.Do(canonical, func() (any, error) {
		return r.fetchWithRetry(ctx, fetcher, canonical)
	})
	if err != nil {
		return Result{}, err
	}
	res := v.(Result)

	if err := r.cache.Store(canonical, res.LocalPath, res.Digest); err != nil {
		return Result{}, wassetteerr.Internalf(opFetch, err, "storing cache entry")
	}
	return res, nil
}

// Invalidate removes uri's cache entry so the next fetch re-downloads.
func (r *Resolver) Invalidate(uri string) error {
	canonical, _, err := Canonicalize(uri)
	if err != nil {
		return wassetteerr.New(wassetteerr.Resolve, "resolver.Invalidate", "Unsupported", "canonicalizing uri", err)
	}
	return r.cache.Invalidate(canonical)
}

func (r *Resolver) fetchWithRetry(ctx context.Context, f Fetcher, canonical string) (Result, error) {
	var lastErr error
	for attempt := 0; attempt < r.backoff.MaxAttempts; attempt++ {
		res, err := f.Fetch(ctx, canonical)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !isTransient(err) {
			return Result{}, err
		}
		delay := r.backoff.InitialDelay * (1 << attempt)
		if delay > r.backoff.MaxDelay {
			delay = r.backoff.MaxDelay
		}
		select {
		case <-ctx.Done():
			return Result{}, wassetteerr.New(wassetteerr.Resolve, opFetch, "Transport", "context done during retry", ctx.Err())
		case <-time.After(delay):
		}
	}
	return Result{}, lastErr
}

// isTransient mirrors the teacher's backoff.go isTransientError: context
// errors are terminal, network timeouts and common connection syscall
// errors are retried.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	var we *wassetteerr.Error
	if errors.As(err, &we) && we.Kind != wassetteerr.Resolve {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ETIMEDOUT) || errors.Is(err, syscall.ECONNABORTED) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsTemporary {
		return true
	}
	return false
}

// Canonicalize normalizes uri per §4.3: scheme lowercased, default
// ports elided, OCI references normalized (defaulting to :latest).
func Canonicalize(raw string) (canonical string, scheme string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("invalid uri: %w", err)
	}
	if u.Scheme == "" {
		return "", "", fmt.Errorf("uri %q has no scheme", raw)
	}
	scheme = strings.ToLower(u.Scheme)
	u.Scheme = scheme

	switch scheme {
	case "http", "https":
		if (scheme == "http" && u.Port() == "80") || (scheme == "https" && u.Port() == "443") {
			u.Host = u.Hostname()
		}
		return u.String(), scheme, nil
	case "file":
		return u.String(), scheme, nil
	case "oci":
		ref := strings.TrimPrefix(raw, "oci://")
		if !strings.Contains(lastSegment(ref), ":") {
			ref += ":latest"
		}
		return "oci://" + ref, scheme, nil
	default:
		return "", "", fmt.Errorf("unsupported uri scheme %q", scheme)
	}
}

func lastSegment(ref string) string {
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		return ref[i+1:]
	}
	return ref
}
