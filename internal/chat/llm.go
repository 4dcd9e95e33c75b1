package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"kinderwise/internal/config"
)

var ErrMisconfigured = errors.New("llm client misconfigured")

// Completer answers a question given the articles retrieved for it.
type Completer interface {
	Complete(ctx context.Context, question string, snippets []Snippet) (string, error)
}

// Snippet is the slice of an article handed to the model as context.
type Snippet struct {
	Title    string
	OneLiner string
	KeyFacts []string
}

// OpenAIClient calls an OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
}

var _ Completer = (*OpenAIClient)(nil)

func NewOpenAIClient(cfg config.ChatConfig) *OpenAIClient {
	return &OpenAIClient{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *OpenAIClient) Complete(ctx context.Context, question string, snippets []Snippet) (string, error) {
	if c == nil || c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return "", ErrMisconfigured
	}

	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []chatMessage{
			{Role: "system", Content: safePrompt(c.systemPrompt)},
			{Role: "user", Content: userPrompt(question, snippets)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal completion payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send completion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("llm error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode completion: %w", err)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", errors.New("llm returned no answer")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

func userPrompt(question string, snippets []Snippet) string {
	var sb strings.Builder
	sb.WriteString("Articles:\n")
	if len(snippets) == 0 {
		sb.WriteString("(none matched)\n")
	}
	for i, s := range snippets {
		fmt.Fprintf(&sb, "%d. %s: %s\n", i+1, s.Title, s.OneLiner)
		for _, f := range s.KeyFacts {
			fmt.Fprintf(&sb, "   - %s\n", f)
		}
	}
	fmt.Fprintf(&sb, "\nQuestion: %s", question)
	return sb.String()
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "You answer parenting questions using the articles provided."
	}
	return prompt
}
