package resolver

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/justapithecus/hostside/iox"
	"github.com/justapithecus/hostside/metrics"
	"github.com/justapithecus/hostside/types"
	"github.com/justapithecus/hostside/unpack"
)

// Doer executes HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPConfig configures an HTTPResolver.
type HTTPConfig struct {
	// Scheme is the served scheme and the URL scheme (default "http").
	Scheme string
	// Client performs requests (default: an http.Client without timeout;
	// cancellation comes from the caller's context).
	Client Doer
	// Headers are static headers added to each request.
	Headers map[string]string
	// TempDir is where downloads are written (default os.TempDir()).
	TempDir string
	// Metrics receives byte counts (optional).
	Metrics *metrics.Collector
}

// HTTPResolver downloads artifacts with GET requests.
type HTTPResolver struct {
	scheme  string
	client  Doer
	headers map[string]string
	tempDir string
	metrics *metrics.Collector
}

// reservedOptions are consumed by post-processing and never forwarded.
var reservedOptions = map[string]bool{
	unpack.OptionUnzip: true,
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// NewHTTPResolver creates an HTTP resolver.
func NewHTTPResolver(cfg HTTPConfig) *HTTPResolver {
	if cfg.Scheme == "" {
		cfg.Scheme = types.SchemeHTTP
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}
	return &HTTPResolver{
		scheme:  cfg.Scheme,
		client:  cfg.Client,
		headers: cfg.Headers,
		tempDir: cfg.TempDir,
		metrics: cfg.Metrics,
	}
}

// Scheme implements Resolver.
func (h *HTTPResolver) Scheme() string { return h.scheme }

// URL rebuilds the request URL: scheme:/host/path becomes
// scheme://host/path. The identifier's query is forwarded as written,
// minus reserved options, so repeated keys and their order survive.
func (h *HTTPResolver) URL(ref *types.ArtifactReference) string {
	u := ref.Scheme() + "://" + strings.TrimLeft(ref.Path(), "/")
	if q := forwardedQuery(ref.Query()); q != "" {
		u += "?" + q
	}
	return u
}

func forwardedQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	var kept []string
	for pair := range strings.SplitSeq(rawQuery, "&") {
		rawKey, _, _ := strings.Cut(pair, "=")
		if key, err := url.QueryUnescape(rawKey); err == nil && reservedOptions[key] {
			continue
		}
		kept = append(kept, pair)
	}
	return strings.Join(kept, "&")
}

// Resolve downloads the body into a temp file.
func (h *HTTPResolver) Resolve(ctx context.Context, ref *types.ArtifactReference) (*types.ResolvedArtifact, error) {
	target := h.URL(ref)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &Error{Kind: ErrInvalidIdentifier, Scheme: ref.Scheme(), Path: ref.Raw(), Err: err}
	}
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, downloadError(ref.Scheme(), ref.Raw(), err)
	}
	defer iox.DiscardClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, downloadError(ref.Scheme(), ref.Raw(), &StatusError{StatusCode: resp.StatusCode})
	}

	tmp, n, err := downloadToTemp(h.tempDir, path.Base(req.URL.Path), resp.Body)
	h.metrics.AddBytesDownloaded(n)
	if err != nil {
		return nil, downloadError(ref.Scheme(), ref.Raw(), err)
	}
	return &types.ResolvedArtifact{Path: tmp, Temporary: true}, nil
}
