package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	vxerrors "vulx/pkg/errors"

	"gopkg.in/yaml.v3"
)

const maxSpecBytes = 10 << 20

// SpecFetcher downloads an OpenAPI document from a project's specUrl.
type SpecFetcher interface {
	FetchSpec(ctx context.Context, url string) (string, error)
}

type httpSpecFetcher struct {
	client    *http.Client
	attempts  int
	baseDelay time.Duration
}

func NewHTTPSpecFetcher(timeout time.Duration) SpecFetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &httpSpecFetcher{
		client:    &http.Client{Timeout: timeout},
		attempts:  3,
		baseDelay: 200 * time.Millisecond,
	}
}

func (f *httpSpecFetcher) FetchSpec(ctx context.Context, url string) (string, error) {
	var body string
	err := retry(ctx, f.attempts, f.baseDelay, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json, application/yaml, text/yaml, */*")

		resp, err := f.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxSpecBytes))
		if err != nil {
			return err
		}
		body = string(data)
		return nil
	})
	if err != nil {
		return "", err
	}
	return body, nil
}

// ValidateSpec performs the minimal shape check on an OpenAPI document: it
// must start with "{" or mention "openapi:"/"swagger:", and decode as a
// JSON or YAML mapping.
func ValidateSpec(content string) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return fmt.Errorf("%w: specification is empty", vxerrors.ErrInvalidSpec)
	}

	if !strings.HasPrefix(trimmed, "{") &&
		!strings.Contains(trimmed, "openapi:") &&
		!strings.Contains(trimmed, "swagger:") {
		return fmt.Errorf("%w: content does not look like an OpenAPI document", vxerrors.ErrInvalidSpec)
	}

	// JSON is tried first for "{" documents: yaml.v3 rejects duplicate keys,
	// which JSON parsers accept with the last value winning.
	var doc map[string]interface{}
	if strings.HasPrefix(trimmed, "{") && json.Unmarshal([]byte(trimmed), &doc) == nil {
		return nil
	}
	if err := yaml.Unmarshal([]byte(trimmed), &doc); err != nil {
		return fmt.Errorf("%w: %v", vxerrors.ErrInvalidSpec, err)
	}
	return nil
}
