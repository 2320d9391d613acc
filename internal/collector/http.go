package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxBodySize bounds how much of a response is read.
const maxBodySize = 16 << 20

// HTTPFetcher implements Fetcher against the Polygon REST API.
type HTTPFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// ParseProxy parses a proxy address. An empty value means no proxy.
func ParseProxy(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse proxy: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("parse proxy %q: scheme and host are required", raw)
	}
	return u, nil
}

// NewHTTPFetcher creates a fetcher with optional proxy support.
func NewHTTPFetcher(baseURL, apiKey, proxyURL string, timeout time.Duration) (*HTTPFetcher, error) {
	proxy, err := ParseProxy(proxyURL)
	if err != nil {
		return nil, err
	}
	transport := &http.Transport{}
	if proxy != nil {
		transport.Proxy = http.ProxyURL(proxy)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}, nil
}

func (f *HTTPFetcher) Name() string { return "polygon" }

func (f *HTTPFetcher) Fetch(ctx context.Context, endpoint string, params url.Values) (int, []byte, error) {
	q := url.Values{}
	for k, vs := range params {
		q[k] = append([]string(nil), vs...)
	}
	q.Set("apiKey", f.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.BaseURL+endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return 0, nil, fmt.Errorf("build request %s: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.Client.Do(req)
	if err != nil {
		// url.Error carries the full URL, key included
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return 0, nil, fmt.Errorf("fetch %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read %s: %w", endpoint, err)
	}
	return resp.StatusCode, body, nil
}
