package app

import (
	"net/http"
	"reflect"
	"testing"
)

func TestNewHighThroughputHTTPClient_Config(t *testing.T) {
	c := newHighThroughputHTTPClient(true)
	if c.Timeout == 0 {
		t.Fatalf("expected non-zero timeout")
	}
	tr, ok := c.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("expected http.Transport")
	}
	if tr.MaxIdleConnsPerHost < 100 {
		t.Fatalf("expected large MaxIdleConnsPerHost, got %d", tr.MaxIdleConnsPerHost)
	}
	// Ensure we didn't return the default client's transport
	if reflect.ValueOf(http.DefaultTransport).Pointer() == reflect.ValueOf(tr).Pointer() {
		t.Fatalf("transport should not be default")
	}
}

func TestNewHighThroughputHTTPClient_SSLVerify(t *testing.T) {
	tests := []struct {
		name      string
		sslVerify bool
		wantSkip  bool
	}{
		{"verification enabled", true, false},
		{"verification disabled", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newHighThroughputHTTPClient(tt.sslVerify)
			transport, ok := client.Transport.(*http.Transport)
			if !ok {
				t.Fatalf("expected *http.Transport, got %T", client.Transport)
			}
			var skip bool
			if transport.TLSClientConfig != nil {
				skip = transport.TLSClientConfig.InsecureSkipVerify
			}
			if skip != tt.wantSkip {
				t.Errorf("sslVerify=%v: InsecureSkipVerify=%v, want %v", tt.sslVerify, skip, tt.wantSkip)
			}
		})
	}
}

func TestDefaultConfig_VerifiesSSL(t *testing.T) {
	if !DefaultConfig().SSLVerify {
		t.Fatalf("SSL verification must be on by default")
	}
}
