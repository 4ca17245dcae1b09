package lis

import (
	"net/http"
	"testing"
)

func TestProxyFunc(t *testing.T) {
	tests := []struct {
		name       string
		httpProxy  string
		httpsProxy string
		target     string
		want       string
	}{
		{"https uses https proxy", "http://plain:3128", "http://secure:3129", "https://lis.virginia.gov/x", "http://secure:3129"},
		{"http uses http proxy", "http://plain:3128", "http://secure:3129", "http://lis.virginia.gov/x", "http://plain:3128"},
		{"https falls back to http proxy", "http://plain:3128", "", "https://lis.virginia.gov/x", "http://plain:3128"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, tt.target, nil)
			if err != nil {
				t.Fatal(err)
			}
			got, err := proxyFunc(tt.httpProxy, tt.httpsProxy)(req)
			if err != nil {
				t.Fatalf("proxy: %v", err)
			}
			if got == nil || got.String() != tt.want {
				t.Errorf("got %v, want %s", got, tt.want)
			}
		})
	}
}

func TestProxyFunc_BadURL(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "https://lis.virginia.gov/x", nil)
	if _, err := proxyFunc("", "http://bad host:1")(req); err == nil {
		t.Error("expected parse error for malformed proxy")
	}
}
