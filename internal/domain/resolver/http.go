package resolver

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/wassette-dev/wassette/internal/domain/wassetteerr"
)

// maxArtifactSize bounds a single fetched artifact, mirroring the
// teacher's hostfuncs http.go response-body cap.
const maxArtifactSize = 64 * 1024 * 1024

// HTTPFetcher resolves http:// and https:// URIs. Every connection is
// DNS-pinned: the hostname is resolved once, validated against the
// private/reserved ranges the teacher's netfilter.go blocks, and the
// TCP dial targets that validated IP directly so a second DNS answer
// (rebinding) can never redirect the connection mid-request.
type HTTPFetcher struct {
	scheme         string
	stagingDir     string
	allowPrivate   bool
	maxRedirects   int
	requestTimeout time.Duration
}

// NewHTTPFetchers returns the pair of Fetchers serving http and https,
// sharing staging configuration. Register both under their own scheme
// key: the Resolver's fetcher table is keyed by scheme, not by type.
func NewHTTPFetchers(stagingDir string) (httpFetcher, httpsFetcher *HTTPFetcher) {
	return &HTTPFetcher{scheme: "http", stagingDir: stagingDir, maxRedirects: 10, requestTimeout: 30 * time.Second},
		&HTTPFetcher{scheme: "https", stagingDir: stagingDir, maxRedirects: 10, requestTimeout: 30 * time.Second}
}

func (f *HTTPFetcher) Scheme() string { return f.scheme }

const opHTTPFetch = "resolver.HTTPFetcher.Fetch"

func (f *HTTPFetcher) Fetch(ctx context.Context, canonical string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, f.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, canonical, nil)
	if err != nil {
		return Result{}, wassetteerr.New(wassetteerr.Resolve, opHTTPFetch, "Unsupported", "building request", err)
	}
	req.Header.Set("User-Agent", "wassette-resolver")

	client := &http.Client{
		Transport: &dnsPinningTransport{
			base: &http.Transport{
				ForceAttemptHTTP2:     true,
				MaxIdleConns:          10,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: time.Second,
			},
			allowPrivate: f.allowPrivate,
		},
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= f.maxRedirects {
				return fmt.Errorf("stopped after %d redirects", f.maxRedirects)
			}
			return nil
		},
	}

	resp, err := client.Do(req)
	if err != nil {
		return Result{}, wassetteerr.New(wassetteerr.Resolve, opHTTPFetch, "Transport", "performing request", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Result{}, wassetteerr.New(wassetteerr.Resolve, opHTTPFetch, "Unauthorized", fmt.Sprintf("status %d", resp.StatusCode), nil)
	case resp.StatusCode == http.StatusNotFound:
		return Result{}, wassetteerr.New(wassetteerr.Resolve, opHTTPFetch, "NotFound", "artifact not found", nil)
	case resp.StatusCode >= 400:
		return Result{}, wassetteerr.New(wassetteerr.Resolve, opHTTPFetch, "Transport", fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	limited := io.LimitReader(resp.Body, maxArtifactSize+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return Result{}, wassetteerr.New(wassetteerr.Resolve, opHTTPFetch, "Transport", "reading response body", err)
	}
	if len(data) > maxArtifactSize {
		return Result{}, wassetteerr.New(wassetteerr.Resolve, opHTTPFetch, "Transport", "artifact exceeds maximum size", nil)
	}

	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])

	tmp, err := os.CreateTemp(f.stagingDir, "wassette-fetch-*")
	if err != nil {
		return Result{}, wassetteerr.Internalf(opHTTPFetch, err, "creating staging file")
	}
	defer tmp.Close()
	if _, err := tmp.Write(data); err != nil {
		return Result{}, wassetteerr.Internalf(opHTTPFetch, err, "writing staging file")
	}
	return Result{LocalPath: tmp.Name(), Digest: digest}, nil
}

// dnsPinningTransport is an http.RoundTripper that resolves the target
// hostname once per request, rejects private/reserved destinations
// unless allowPrivate is set, and dials the validated IP directly.
// Adapted from the teacher's hostfuncs dnsPinningTransport and
// netfilter.go IsPrivateOrReservedIP, generalized from a guest-facing
// capability check to the resolver's own outbound fetch path.
type dnsPinningTransport struct {
	base         *http.Transport
	allowPrivate bool
}

func (t *dnsPinningTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	hostname := req.URL.Hostname()

	ips, err := net.DefaultResolver.LookupIP(req.Context(), "ip", hostname)
	if err != nil {
		return nil, fmt.Errorf("resolving host %q: %w", hostname, err)
	}
	validatedIP := ips[0]
	if !t.allowPrivate && isPrivateOrReservedIP(validatedIP) {
		return nil, fmt.Errorf("destination %s resolves to private/reserved IP %s", hostname, validatedIP)
	}

	port := req.URL.Port()
	if port == "" {
		if req.URL.Scheme == "https" {
			port = "443"
		} else {
			port = "80"
		}
	}

	pinned := t.base.Clone()
	pinned.DialContext = func(dialCtx context.Context, network, _ string) (net.Conn, error) {
		targetAddr := net.JoinHostPort(validatedIP.String(), port)
		dialer := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}
		return dialer.DialContext(dialCtx, network, targetAddr)
	}
	if req.URL.Scheme == "https" {
		if pinned.TLSClientConfig == nil {
			pinned.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		pinned.TLSClientConfig.ServerName = hostname
	}
	return pinned.RoundTrip(req)
}

var privateRanges = []string{
	"127.0.0.0/8",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"169.254.0.0/16",
	"::1/128",
	"fc00::/7",
	"fe80::/10",
	"224.0.0.0/4",
	"ff00::/8",
}

func isPrivateOrReservedIP(ip net.IP) bool {
	for _, cidr := range privateRanges {
		_, block, err := net.ParseCIDR(cidr)
		if err != nil {
			continue
		}
		if block.Contains(ip) {
			return true
		}
	}
	return false
}
