package adapter

import (
	"context"
	"time"

	"github.com/Danny-Dasilva/CycleTLS/cycletls"
)

// ChromeJA3 is the TLS ClientHello fingerprint of desktop Chrome.
const ChromeJA3 = "771,4865-4866-4867-49195-49199-49196-49200-52393-52392-49171-49172-156-157-47-53,0-23-65281-10-11-35-16-5-13-18-51-45-43-27-17513,29-23-24,0"

// CycleTLSFetcher sends requests with a browser TLS fingerprint, which is what
// challenge middleware inspects before any header.
type CycleTLSFetcher struct {
	client   cycletls.CycleTLS
	ja3      string
	proxyURL string
	timeout  time.Duration
}

// NewCycleTLSFetcher creates a fetcher. proxyURL may be empty.
func NewCycleTLSFetcher(timeout time.Duration, proxyURL string) *CycleTLSFetcher {
	return &CycleTLSFetcher{
		client:   cycletls.Init(),
		ja3:      ChromeJA3,
		proxyURL: proxyURL,
		timeout:  timeout,
	}
}

type cycleResult struct {
	resp cycletls.Response
	err  error
}

// Fetch issues a GET. The underlying client is not context-aware, so a
// cancelled ctx returns immediately and the request is left to its own timeout.
func (f *CycleTLSFetcher) Fetch(ctx context.Context, url string, headers map[string]string, headerOrder []string) (*FetchResponse, error) {
	options := cycletls.Options{
		Headers:     headers,
		Ja3:         f.ja3,
		UserAgent:   headers["User-Agent"],
		Proxy:       f.proxyURL,
		Timeout:     int(f.timeout / time.Second),
		HeaderOrder: headerOrder,
	}

	done := make(chan cycleResult, 1)
	go func() {
		resp, err := f.client.Do(url, options, "GET")
		done <- cycleResult{resp: resp, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		return &FetchResponse{StatusCode: r.resp.Status, Body: r.resp.Body}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
