package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/talksphere/server/internal/assistant/model"
	logx "github.com/talksphere/server/pkg/logger"
	"github.com/talksphere/server/pkg/metrics"
)

const (
	OutcomeOK        = "ok"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
	maxResponseBytes = 64 << 10
)

var ErrToolNotAllowed = errors.New("tool url is not allowed")

// Dispatcher executes tool calls requested by the model by calling the
// server's own tool endpoints. Only registered paths are reachable.
type Dispatcher struct {
	registry *Registry
	baseURL  string
	client   *http.Client
}

// NewDispatcher builds a dispatcher for the registry. An empty cfg.BaseURL
// falls back to fallbackBaseURL (usually the server's loopback address).
func NewDispatcher(registry *Registry, cfg model.ToolsConfig, fallbackBaseURL string) *Dispatcher {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = fallbackBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{
		registry: registry,
		baseURL:  strings.TrimSuffix(base, "/"),
		client:   &http.Client{Timeout: timeout},
	}
}

type toolResponse struct {
	Success  bool   `json:"success"`
	Response string `json:"response"`
	Message  string `json:"message"`
}

// Dispatch resolves url against the registry and returns the endpoint's
// response text.
func (d *Dispatcher) Dispatch(ctx context.Context, url string) (string, error) {
	tool, ok := d.registry.Lookup(url)
	if !ok {
		metrics.ToolCalls.WithLabelValues("unknown", OutcomeRejected).Inc()
		logx.Warn().Str("url", url).Msg("model requested an unregistered tool")
		return "", fmt.Errorf("%w: %q", ErrToolNotAllowed, url)
	}

	text, err := d.call(ctx, tool)
	if err != nil {
		metrics.ToolCalls.WithLabelValues(tool.Name, OutcomeFailed).Inc()
		logx.Error().Err(err).Str("tool", tool.Name).Msg("tool call failed")
		return "", err
	}
	metrics.ToolCalls.WithLabelValues(tool.Name, OutcomeOK).Inc()
	logx.Debug().Str("tool", tool.Name).Str("response", text).Msg("tool call succeeded")
	return text, nil
}

func (d *Dispatcher) call(ctx context.Context, tool Tool) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+tool.Path, nil)
	if err != nil {
		return "", fmt.Errorf("build %s request: %w", tool.Name, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call %s: %w", tool.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("call %s: unexpected status %d", tool.Name, resp.StatusCode)
	}

	var body toolResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return "", fmt.Errorf("decode %s response: %w", tool.Name, err)
	}
	if !body.Success || strings.TrimSpace(body.Response) == "" {
		return "", fmt.Errorf("call %s: unsuccessful response %q", tool.Name, body.Message)
	}
	return body.Response, nil
}
