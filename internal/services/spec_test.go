package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	vxerrors "vulx/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSpec(t *testing.T) {
	tests := []struct {
		name    string
		content string
		valid   bool
	}{
		{"json document", `{"openapi":"3.0.0","paths":{}}`, true},
		{"yaml openapi", "openapi: 3.1.0\ninfo:\n  title: x\n", true},
		{"yaml swagger", "swagger: \"2.0\"\ninfo:\n  title: x\n", true},
		{"leading whitespace", "\n\n  {\"swagger\":\"2.0\"}", true},
		{"empty", "   ", false},
		{"html page", "<html><body>not found</body></html>", false},
		{"plain text", "hello world", false},
		{"broken json", `{"openapi": `, false},
		{"json duplicate keys", `{"openapi":"3.0.0","paths":{},"paths":{}}`, true},
		{"tab indented json", "{\n\t\"openapi\": \"3.0.0\"\n}", true},
		{"yaml flow mapping", `{openapi: 3.0.0, paths: {}}`, true},
		{"unbalanced json", `{"openapi":"3.0.0"]`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSpec(tt.content)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, vxerrors.ErrInvalidSpec)
			}
		})
	}
}

func TestHTTPSpecFetcherRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("openapi: 3.0.0\n"))
	}))
	defer srv.Close()

	fetcher := &httpSpecFetcher{client: srv.Client(), attempts: 3, baseDelay: time.Millisecond}
	body, err := fetcher.FetchSpec(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "openapi: 3.0.0\n", body)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestHTTPSpecFetcherGivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	fetcher := &httpSpecFetcher{client: srv.Client(), attempts: 2, baseDelay: time.Millisecond}
	_, err := fetcher.FetchSpec(context.Background(), srv.URL)
	assert.ErrorContains(t, err, "unexpected status 404")
}
