package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ticketops/triage-service/internal/config"
)

// ErrEngineUnavailable signals that no credential is configured. It is
// detected before any outbound call.
var ErrEngineUnavailable = errors.New("analysis engine not configured")

// ErrEngine signals that the engine call itself failed or timed out.
// The orchestrator treats it identically to ErrEngineUnavailable.
var ErrEngine = errors.New("analysis engine call failed")

// Client produces a raw text analysis for a ticket. Implementations
// may return arbitrarily malformed text; structure is recovered by the
// extractor, never assumed here.
type Client interface {
	Analyze(ctx context.Context, title, description string) (string, error)
}

// EngineClient calls a hosted text-generation API over HTTP.
type EngineClient struct {
	cfg    config.EngineConfig
	http   *http.Client
	logger *zap.Logger
}

// NewEngineClient constructs the client. The credential lives in the
// config value; nothing here reads the environment.
func NewEngineClient(cfg config.EngineConfig, logger *zap.Logger) *EngineClient {
	return &EngineClient{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout()},
		logger: logger,
	}
}

// Configured reports whether a call could be attempted at all.
func (c *EngineClient) Configured() bool {
	return c.cfg.Configured()
}

type generateRequest struct {
	SystemInstruction *content  `json:"systemInstruction,omitempty"`
	Contents          []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Analyze sends the ticket to the engine and returns the raw response
// text. The response is unstructured by contract even when the prompt
// demands strict JSON.
func (c *EngineClient) Analyze(ctx context.Context, title, description string) (string, error) {
	if !c.cfg.Configured() {
		return "", ErrEngineUnavailable
	}

	body, err := json.Marshal(generateRequest{
		SystemInstruction: &content{Parts: []part{{Text: systemPrompt}}},
		Contents:          []content{{Parts: []part{{Text: triagePrompt(title, description)}}}},
	})
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %v", ErrEngine, err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", ErrEngine, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEngine, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrEngine, err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("engine returned non-200", zap.Int("status", resp.StatusCode))
		return "", fmt.Errorf("%w: status %d", ErrEngine, resp.StatusCode)
	}

	var decoded generateResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrEngine, err)
	}
	if len(decoded.Candidates) == 0 {
		return "", fmt.Errorf("%w: empty candidate list", ErrEngine)
	}

	var sb strings.Builder
	for _, p := range decoded.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	raw := sb.String()
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("%w: empty response text", ErrEngine)
	}
	return raw, nil
}
