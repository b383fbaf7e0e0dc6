// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const httpTimeout = 120 * time.Second

// ChatMessage is one message in a chat completion request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a provider-neutral chat completion request.
type ChatRequest struct {
	Model       string
	Messages    []ChatMessage
	MaxTokens   int
	Temperature float64
}

// ChatResponse is the provider's reply.
type ChatResponse struct {
	Content     string
	TotalTokens int
	Model       string
}

// ChatProvider performs a chat completion against an AI provider.
type ChatProvider interface {
	ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// openAIClient implements ChatProvider against the OpenAI-compatible
// chat completions API.
type openAIClient struct {
	baseURL string
	apiKey  string
}

// NewOpenAIClient creates a ChatProvider for the OpenAI API. An empty
// baseURL targets api.openai.com; any OpenAI-compatible endpoint works.
func NewOpenAIClient(apiKey, baseURL string) ChatProvider {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &openAIClient{baseURL: baseURL, apiKey: apiKey}
}

func (c *openAIClient) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	body := map[string]any{
		"model":    req.Model,
		"messages": req.Messages,
	}
	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}
	if req.Temperature > 0 {
		body["temperature"] = req.Temperature
	}

	respBody, err := doJSONRequest(ctx, c.baseURL+"/chat/completions", c.apiKey, body)
	if err != nil {
		return nil, fmt.Errorf("openai chat: %w", err)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			TotalTokens int `json:"total_tokens"`
		} `json:"usage"`
		Model string `json:"model"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("openai decode: %w", err)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("openai: no choices returned")
	}

	return &ChatResponse{
		Content:     result.Choices[0].Message.Content,
		TotalTokens: result.Usage.TotalTokens,
		Model:       result.Model,
	}, nil
}

// doJSONRequest performs a JSON HTTP request with Bearer token auth.
func doJSONRequest(ctx context.Context, url, apiKey string, body any) ([]byte, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	client := &http.Client{Timeout: httpTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http call: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("api error (status %d): %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
