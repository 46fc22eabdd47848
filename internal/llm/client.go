package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/warelinehq/wareline/internal/config"
)

const systemPrompt = `You are a helpful warehouse inventory assistant. You help users manage sectors, warehouses, and inventory logs.

You can:
1. Show the user's sectors list
2. Show warehouses in a sector
3. Add inventory logs to a warehouse

Answer general questions about warehouse inventory management concisely. If the question is unrelated to warehouse inventory, politely redirect the user to inventory topics. Never invent sectors, warehouses, or stored values the user has not mentioned.`

// Client calls an OpenAI-compatible chat completion endpoint. It serves only
// the unclassified-intent fallback; every routed intent is answered without
// it.
type Client struct {
	apiKey      string
	baseURL     string
	model       string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		apiKey:      cfg.Provider.APIKey,
		baseURL:     cfg.Provider.BaseURL,
		model:       cfg.Provider.Model,
		maxTokens:   cfg.Provider.MaxTokens,
		temperature: cfg.Provider.Temperature,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Enabled reports whether the provider is configured well enough to call.
func (c *Client) Enabled() bool {
	return strings.TrimSpace(c.apiKey) != "" && strings.TrimSpace(c.baseURL) != ""
}

// Generate produces a free-form reply to an unclassified message. Recent
// questions are passed as prior user turns so the model sees the same bounded
// window the recall intent exposes.
func (c *Client) Generate(ctx context.Context, history []string, message string) (string, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return "", fmt.Errorf("missing provider api key")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(c.baseURL), "/")
	if baseURL == "" {
		return "", fmt.Errorf("missing provider base url")
	}
	if c.model == "" {
		return "", fmt.Errorf("missing provider model")
	}

	messages := make([]map[string]string, 0, len(history)+2)
	messages = append(messages, map[string]string{
		"role":    "system",
		"content": systemPrompt,
	})
	for _, q := range history {
		messages = append(messages, map[string]string{
			"role":    "user",
			"content": q,
		})
	}
	messages = append(messages, map[string]string{
		"role":    "user",
		"content": message,
	})

	body := map[string]any{
		"model":       c.model,
		"messages":    messages,
		"max_tokens":  c.maxTokens,
		"temperature": c.temperature,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("provider http %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var decoded struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("empty choices in response")
	}
	content := strings.TrimSpace(decoded.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("empty content in response")
	}
	return content, nil
}
