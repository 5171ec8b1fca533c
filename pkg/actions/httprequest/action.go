// Package httprequest provides an action that imports data from an external
// source over HTTP and stores the response into a pub field.
package httprequest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pubflow/pubflow/pkg/models"
)

const defaultTimeout = 30 * time.Second

var ErrURLRequired = errors.New("httprequest action requires a url")

type Action struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    string
	Field   string
	Timeout time.Duration
}

func NewAction(config map[string]any) (*Action, error) {
	url, _ := config["url"].(string)
	if url == "" {
		return nil, ErrURLRequired
	}

	method, _ := config["method"].(string)
	if method == "" {
		method = http.MethodGet
	}

	body, _ := config["body"].(string)
	field, _ := config["field"].(string)

	headers := make(map[string]string)
	if headersConfig, ok := config["headers"].(map[string]any); ok {
		for k, v := range headersConfig {
			if str, ok := v.(string); ok {
				headers[k] = str
			}
		}
	}

	timeout := defaultTimeout
	if seconds, ok := config["timeout"].(float64); ok && seconds > 0 {
		timeout = time.Duration(seconds) * time.Second
	}

	return &Action{
		Method:  strings.ToUpper(method),
		URL:     url,
		Headers: headers,
		Body:    body,
		Field:   field,
		Timeout: timeout,
	}, nil
}

// Execute performs the request with a bounded timeout. The engine has no
// cancellation primitive of its own, so an unbounded request here would block
// the triggering transaction.
func (a *Action) Execute(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (models.ActionRunResult, error) {
	logger = logger.With("action_type", "httprequest", "url", a.URL, "method", a.Method)
	logger.InfoContext(ctx, "Importing from external source")

	reqCtx, cancel := context.WithTimeout(ctx, a.Timeout)
	defer cancel()

	var bodyReader io.Reader
	if a.Body != "" {
		bodyReader = strings.NewReader(a.Body)
	}

	req, err := http.NewRequestWithContext(reqCtx, a.Method, a.URL, bodyReader)
	if err != nil {
		return models.ActionRunResult{}, fmt.Errorf("failed to create http request: %w", err)
	}

	for key, value := range a.Headers {
		req.Header.Set(key, value)
	}

	client := &http.Client{}

	resp, err := client.Do(req)
	if err != nil {
		return models.ActionRunResult{}, fmt.Errorf("http request failed: %w", err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close response body", "error", err)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.ActionRunResult{}, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return models.ActionRunResult{}, fmt.Errorf("external source returned status %d", resp.StatusCode)
	}

	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		// Non-JSON responses are stored verbatim.
		payload = string(raw)
	}

	if a.Field != "" {
		execCtx.SetValue(a.Field, payload)
	}

	return models.Succeeded(
		fmt.Sprintf("imported %d bytes from %s", len(raw), a.URL),
		map[string]any{"status_code": resp.StatusCode, "field": a.Field},
	), nil
}
