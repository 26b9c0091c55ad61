package hostfuncs

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/tetratelabs/wazero/api"

	"github.com/wassette-dev/wassette/internal/domain/sandbox"
)

const maxResponseBodyBytes = 10 * 1024 * 1024

// recipeDialingTransport resolves the target hostname once, checks the
// resolved IP against the recipe's network allow-list (CIDR entries),
// and pins the connection to that IP, preventing a DNS-rebinding
// attacker from redirecting the already-authorized request elsewhere.
type recipeDialingTransport struct {
	base   *http.Transport
	recipe *sandbox.Recipe
}

func (t *recipeDialingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	hostname := req.URL.Hostname()

	ips, err := net.DefaultResolver.LookupIP(req.Context(), "ip", hostname)
	if err != nil || len(ips) == 0 {
		return nil, fmt.Errorf("resolving %s: %w", hostname, err)
	}
	ip := ips[0]

	if err := t.recipe.NetworkAllowedIP(hostname, ip); err != nil {
		return nil, err
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
		dialer := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}
		return dialer.DialContext(dialCtx, network, net.JoinHostPort(ip.String(), port))
	}
	if req.URL.Scheme == "https" {
		if pinned.TLSClientConfig == nil {
			pinned.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		pinned.TLSClientConfig.ServerName = hostname
	}

	return pinned.RoundTrip(req)
}

// HTTPFetch is the http_fetch host import. It reads an HTTPRequestWire
// from guest memory, enforces recipe.NetworkAllowed before touching
// the network, performs the request through a DNS-pinned transport,
// and writes an HTTPResponseWire back.
func HTTPFetch(ctx context.Context, mod api.Module, stack []uint64, recipe *sandbox.Recipe) {
	ptr, length := unpackPtrLen(stack[0])

	requestBytes, ok := mod.Memory().Read(ptr, length)
	if !ok {
		stack[0] = hostWriteResponse(ctx, mod, HTTPResponseWire{
			Error: &ErrorDetail{Message: "hostfuncs: failed to read request from guest memory", Type: "internal"},
		})
		return
	}

	var request HTTPRequestWire
	if err := json.Unmarshal(requestBytes, &request); err != nil {
		stack[0] = hostWriteResponse(ctx, mod, HTTPResponseWire{
			Error: &ErrorDetail{Message: "hostfuncs: invalid request: " + err.Error(), Type: "internal"},
		})
		return
	}

	parsedURL, err := url.Parse(request.URL)
	if err != nil {
		stack[0] = hostWriteResponse(ctx, mod, HTTPResponseWire{
			Error: &ErrorDetail{Message: "invalid URL: " + err.Error(), Type: "config"},
		})
		return
	}

	if err := recipe.NetworkAllowed(parsedURL.Hostname()); err != nil {
		slog.WarnContext(ctx, "network permission denied", "host", parsedURL.Hostname(), "method", request.Method)
		stack[0] = hostWriteResponse(ctx, mod, HTTPResponseWire{
			Error: &ErrorDetail{Message: err.Error(), Type: "capability"},
		})
		return
	}

	var reqBody io.Reader
	if request.Body != "" {
		decoded, err := base64.StdEncoding.DecodeString(request.Body)
		if err != nil {
			stack[0] = hostWriteResponse(ctx, mod, HTTPResponseWire{
				Error: &ErrorDetail{Message: "failed to decode request body: " + err.Error(), Type: "config"},
			})
			return
		}
		reqBody = bytes.NewReader(decoded)
	}

	req, err := http.NewRequestWithContext(ctx, request.Method, request.URL, reqBody)
	if err != nil {
		stack[0] = hostWriteResponse(ctx, mod, HTTPResponseWire{
			Error: &ErrorDetail{Message: "failed to build request: " + err.Error(), Type: "internal"},
		})
		return
	}
	req.Header.Set("User-Agent", "wassette-component/1.0")
	for key, values := range request.Headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	client := &http.Client{
		Transport: &recipeDialingTransport{
			base: &http.Transport{
				ForceAttemptHTTP2:     true,
				MaxIdleConns:          10,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: time.Second,
			},
			recipe: recipe,
		},
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("stopped after 10 redirects")
			}
			return nil
		},
	}

	resp, err := client.Do(req)
	if err != nil {
		stack[0] = hostWriteResponse(ctx, mod, HTTPResponseWire{
			Error: &ErrorDetail{Message: err.Error(), Type: "network"},
		})
		return
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, maxResponseBodyBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		stack[0] = hostWriteResponse(ctx, mod, HTTPResponseWire{
			Error: &ErrorDetail{Message: "reading response body: " + err.Error(), Type: "internal"},
		})
		return
	}
	truncated := len(body) > maxResponseBodyBytes
	if truncated {
		body = body[:maxResponseBodyBytes]
	}

	var encodedBody string
	if len(body) > 0 {
		encodedBody = base64.StdEncoding.EncodeToString(body)
	}

	stack[0] = hostWriteResponse(ctx, mod, HTTPResponseWire{
		StatusCode:    resp.StatusCode,
		Headers:       map[string][]string(resp.Header),
		Body:          encodedBody,
		BodyTruncated: truncated,
	})
}
