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

	"github.com/Sayrikey1/Code-and-Clause/internal/core"
	"github.com/Sayrikey1/Code-and-Clause/internal/logger"
)

const defaultBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterService implements core.Generator against the OpenRouter
// chat-completions API.
type OpenRouterService struct {
	apiKey      string
	model       string
	baseURL     string
	maxTokens   int
	temperature float32
	httpClient  *http.Client
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents a request to the chat completion API.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float32   `json:"temperature,omitempty"`
}

// ChatResponse represents a successful completion response.
type ChatResponse struct {
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
}

// APIError represents an error response from the OpenRouter API.
type APIError struct {
	ErrorInfo struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
		Metadata struct {
			Raw          string `json:"raw"`
			ProviderName string `json:"provider_name"`
		} `json:"metadata"`
	} `json:"error"`
}

// NewOpenRouterService creates a generator for the given model.
func NewOpenRouterService(apiKey, model string, timeout time.Duration) *OpenRouterService {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OpenRouterService{
		apiKey:      apiKey,
		model:       model,
		baseURL:     defaultBaseURL,
		maxTokens:   1024,
		temperature: 0.3,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// WithBaseURL points the client at a different endpoint. Used by tests.
func (s *OpenRouterService) WithBaseURL(baseURL string) *OpenRouterService {
	s.baseURL = strings.TrimRight(baseURL, "/")
	return s
}

// Generate sends one system+user exchange and returns the completion text.
// Failures come back as GenerationFailed, classified transient when a retry
// could plausibly succeed. No retries happen here.
func (s *OpenRouterService) Generate(ctx context.Context, system, user string) (string, error) {
	reqBody := ChatRequest{
		Model: s.model,
		Messages: []Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", core.NewPipelineError(core.KindGenerationFailed, core.StageGenerate,
			fmt.Errorf("failed to marshal chat request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", core.NewPipelineError(core.KindGenerationFailed, core.StageGenerate, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	logger.Debug("Sending chat completion request to %s (model %s)", s.baseURL, s.model)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		// Network failures and timeouts are worth one retry.
		return "", core.NewTransientError(core.KindGenerationFailed, core.StageGenerate,
			fmt.Errorf("chat completion request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", core.NewTransientError(core.KindGenerationFailed, core.StageGenerate,
			fmt.Errorf("failed to read completion response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{}
		msg := strings.TrimSpace(string(body))
		if jsonErr := json.Unmarshal(body, apiErr); jsonErr == nil && apiErr.ErrorInfo.Message != "" {
			msg = apiErr.ErrorInfo.Message
		}
		err := fmt.Errorf("openrouter API error (status %d): %s", resp.StatusCode, msg)
		if isTransientStatus(resp.StatusCode) {
			return "", core.NewTransientError(core.KindGenerationFailed, core.StageGenerate, err)
		}
		return "", core.NewPipelineError(core.KindGenerationFailed, core.StageGenerate, err)
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", core.NewPipelineError(core.KindGenerationFailed, core.StageGenerate,
			fmt.Errorf("malformed completion response: %w", err))
	}
	if len(chatResp.Choices) == 0 {
		return "", core.NewPipelineError(core.KindGenerationFailed, core.StageGenerate,
			fmt.Errorf("completion response contained no choices"))
	}

	text := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	if text == "" {
		return "", core.NewPipelineError(core.KindGenerationFailed, core.StageGenerate,
			fmt.Errorf("completion response contained empty text"))
	}

	return text, nil
}

// isTransientStatus reports whether a retry could clear the failure:
// timeouts, rate limits, and provider-side errors.
func isTransientStatus(status int) bool {
	return status == http.StatusRequestTimeout ||
		status == http.StatusTooManyRequests ||
		status >= http.StatusInternalServerError
}
