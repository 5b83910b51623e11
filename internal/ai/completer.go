package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Completer produces a reply for a prompt. The backend is an external
// collaborator; only this surface matters to the core.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type HTTPCompleter struct {
	http   *http.Client
	apiKey string
	base   string
}

func NewHTTPCompleter(baseURL, apiKey string) *HTTPCompleter {
	return &HTTPCompleter{
		http:   &http.Client{Timeout: 30 * time.Second},
		apiKey: apiKey,
		base:   baseURL,
	}
}

func (c *HTTPCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	body := map[string]any{"prompt": prompt}
	var out bytes.Buffer
	if err := json.NewEncoder(&out).Encode(body); err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", c.base+"/complete", &out)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return "", fmt.Errorf("ai Complete: %s: %s", resp.Status, string(b))
	}
	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if parsed.Text == "" {
		return "", fmt.Errorf("ai Complete: empty reply")
	}
	return parsed.Text, nil
}
