package lis

import (
	"net/http"
	"net/url"
)

// proxyFunc picks the proxy for an upstream request. Explicit proxy URLs are
// parsed once; an unparseable one fails every request it would have served.
// With neither set, HTTP_PROXY/HTTPS_PROXY from the environment apply.
func proxyFunc(httpProxy, httpsProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	plain, plainErr := parseProxy(httpProxy)
	secure, secureErr := parseProxy(httpsProxy)

	return func(req *http.Request) (*url.URL, error) {
		if req.URL.Scheme == "https" && httpsProxy != "" {
			return secure, secureErr
		}
		if httpProxy != "" {
			return plain, plainErr
		}
		return http.ProxyFromEnvironment(req)
	}
}

func parseProxy(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, nil
	}
	return url.Parse(raw)
}
