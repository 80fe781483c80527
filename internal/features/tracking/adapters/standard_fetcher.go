package adapter

import (
	"compress/gzip"
	"compress/zlib"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"icarry-tracker/internal/core/httpclient"

	"github.com/andybalholm/brotli"
	"go.uber.org/multierr"
)

// maxBodyBytes caps how much of a response is read.
const maxBodyBytes = 10 << 20

// StandardFetcher is the net/http fallback of the direct strategy. It sends
// the same headers but cannot imitate a browser TLS handshake.
type StandardFetcher struct {
	client *http.Client
}

// NewStandardFetcher creates a fetcher on the logging client. proxyURL may be empty.
func NewStandardFetcher(timeout time.Duration, proxyURL string) (*StandardFetcher, error) {
	client, err := httpclient.NewClient(timeout, httpclient.WithProxy(proxyURL), httpclient.WithoutCompression())
	if err != nil {
		return nil, err
	}
	return &StandardFetcher{client: client}, nil
}

// Fetch issues a GET and decodes gzip, deflate or brotli bodies.
func (f *StandardFetcher) Fetch(ctx context.Context, url string, headers map[string]string, _ []string) (resp *FetchResponse, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	res, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Append(err, res.Body.Close())
	}()

	body, err := decodeBody(res.Body, res.Header.Get("Content-Encoding"))
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return &FetchResponse{StatusCode: res.StatusCode, Body: string(data)}, nil
}

// decodeBody wraps r according to the Content-Encoding header.
func decodeBody(r io.Reader, encoding string) (io.ReadCloser, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return io.NopCloser(r), nil
	case "gzip":
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to decode gzip body: %w", err)
		}
		return zr, nil
	case "deflate":
		zr, err := zlib.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to decode deflate body: %w", err)
		}
		return zr, nil
	case "br":
		return io.NopCloser(brotli.NewReader(r)), nil
	default:
		return nil, fmt.Errorf("unsupported content encoding: %q", encoding)
	}
}
