package service

import (
	"errors"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sync"
	"time"
)

// ProxyConfig tunes the shared upstream transport.
type ProxyConfig struct {
	MaxIdleConns          int           `yaml:"maxIdleConns"`
	MaxIdleConnsPerHost   int           `yaml:"maxIdleConnsPerHost"`
	IdleConnTimeout       time.Duration `yaml:"idleConnTimeout"`
	ResponseHeaderTimeout time.Duration `yaml:"responseHeaderTimeout"`
	TLSHandshakeTimeout   time.Duration `yaml:"tlsHandshakeTimeout"`
	DialTimeout           time.Duration `yaml:"dialTimeout"`
}

// ProxyFactory builds and caches one reverse proxy per upstream service.
type ProxyFactory struct {
	config    ProxyConfig
	upstreams map[string]*url.URL

	mu      sync.RWMutex
	proxies map[string]*httputil.ReverseProxy
}

// NewProxyFactory creates a proxy factory over the named upstreams.
func NewProxyFactory(config ProxyConfig, upstreams map[string]*url.URL) *ProxyFactory {
	return &ProxyFactory{
		config:    config,
		upstreams: upstreams,
		proxies:   make(map[string]*httputil.ReverseProxy),
	}
}

// Get returns the cached proxy for an upstream, building it on first use.
func (f *ProxyFactory) Get(name string) (*httputil.ReverseProxy, error) {
	f.mu.RLock()
	proxy, ok := f.proxies[name]
	f.mu.RUnlock()
	if ok {
		return proxy, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if proxy, ok := f.proxies[name]; ok {
		return proxy, nil
	}
	upstream, ok := f.upstreams[name]
	if !ok || upstream == nil {
		return nil, errors.New("upstream not found: " + name)
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: f.config.DialTimeout, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          f.config.MaxIdleConns,
		MaxIdleConnsPerHost:   f.config.MaxIdleConnsPerHost,
		IdleConnTimeout:       f.config.IdleConnTimeout,
		TLSHandshakeTimeout:   f.config.TLSHandshakeTimeout,
		ResponseHeaderTimeout: f.config.ResponseHeaderTimeout,
	}
	proxy = &httputil.ReverseProxy{
		Director: func(req *http.Request) {
			req.URL.Scheme = upstream.Scheme
			req.URL.Host = upstream.Host
			req.Host = upstream.Host
		},
		Transport: transport,
	}
	f.proxies[name] = proxy
	return proxy, nil
}
