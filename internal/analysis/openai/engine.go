// Package openai implements the analysis engine on top of an OpenAI-compatible
// chat completions API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/finsight/finsight/internal/config"
	"github.com/finsight/finsight/pkg/models"
)

const systemPrompt = "You are a senior financial analyst. Analyze the provided " +
	"document and answer the user's query with a concise, factual report in " +
	"markdown. Consider both opportunities and risks, and base every claim on " +
	"the document content."

// Content larger than this is truncated before being sent upstream.
const maxPromptBytes = 48 * 1024

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Engine calls an OpenAI-compatible endpoint for document analysis.
type Engine struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

func NewEngine(cfg config.OpenAIConfig) (*Engine, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &Engine{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: baseURL,
		model:   cfg.Model,
		// Timeout comes from the caller's context; the analysis deadline is
		// owned by the worker, not the transport.
		client: &http.Client{},
	}, nil
}

func (e *Engine) Name() string { return "openai" }

func (e *Engine) Analyze(ctx context.Context, content []byte, query string) (*models.Report, error) {
	doc := string(content)
	if len(doc) > maxPromptBytes {
		doc = doc[:maxPromptBytes] + "\n\n[Document truncated for processing...]"
	}

	payload := chatRequest{
		Model:       e.model,
		Temperature: 0.1,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("Query: %s\n\nDocument:\n%s", query, doc)},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read openai response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode openai response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(raw))
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return nil, fmt.Errorf("openai returned status %d: %s", resp.StatusCode, msg)
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return nil, errors.New("openai returned an empty completion")
	}

	return &models.Report{
		Text:   parsed.Choices[0].Message.Content,
		Engine: "openai",
		Model:  e.model,
	}, nil
}

var _ models.AnalysisEngine = (*Engine)(nil)
