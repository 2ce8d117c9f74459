package config

import (
	"net/http"
	"time"
)

// newHTTPClient builds the transport used by configured clients. Pooling
// knobs track the defaults the standard transport ships with, tightened for
// a single-host API client.
func newHTTPClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport
	if t, ok := transport.(*http.Transport); ok {
		t = t.Clone()
		t.MaxIdleConnsPerHost = 8
		transport = t
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
