// Package httpx builds the HTTP clients shared by the outbound adapters.
package httpx

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"TrendingDigest/internal/config"
)

// NewClient returns a client whose proxy comes only from cfg. The process
// environment is never consulted, so an empty cfg means direct connections.
func NewClient(cfg config.ProxyConfig, timeout time.Duration) (*http.Client, error) {
	proxy, err := proxyFunc(cfg)
	if err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = proxy

	return &http.Client{Transport: transport, Timeout: timeout}, nil
}

func proxyFunc(cfg config.ProxyConfig) (func(*http.Request) (*url.URL, error), error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	httpProxy, err := parseProxy(cfg.HTTP)
	if err != nil {
		return nil, err
	}
	httpsProxy, err := parseProxy(cfg.HTTPS)
	if err != nil {
		return nil, err
	}
	if httpsProxy == nil {
		httpsProxy = httpProxy
	}

	return func(req *http.Request) (*url.URL, error) {
		if req.URL.Scheme == "https" {
			return httpsProxy, nil
		}
		return httpProxy, nil
	}, nil
}

func parseProxy(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid proxy url %q", raw)
	}
	return u, nil
}
