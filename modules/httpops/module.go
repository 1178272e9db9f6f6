// Package httpops provides HTTP callables for workflows.
package httpops

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vk/stagerun/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the HTTP callables.
func (Module) Register(r *registry.Registry) {
	r.Register("http.get", Get)
}

// Get performs a GET request against args[0] and returns a map with
// "status_code" and "body". The optional "timeout_ms" keyword argument
// bounds the request.
func Get(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("http.get wants 1 argument, got %d", len(args))
	}
	url, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("http.get wants a URL string, got %T", args[0])
	}

	if v, ok := kwargs["timeout_ms"]; ok {
		ms, ok := v.(int64)
		if !ok {
			return nil, fmt.Errorf("http.get timeout_ms wants a number, got %T", v)
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(ms)*time.Millisecond)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return map[string]any{
		"status_code": int64(resp.StatusCode),
		"body":        string(body),
	}, nil
}
