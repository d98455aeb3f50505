package genai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrModelTimeout represents a language-model call that timed out or
// was transiently unavailable. It is retryable with bounded attempts
// before degrading to a per-check failure.
type ErrModelTimeout struct {
	Msg string
	Err error
}

func (e *ErrModelTimeout) Error() string {
	return fmt.Sprintf("model timeout: %s: %v", e.Msg, e.Err)
}

func (e *ErrModelTimeout) Unwrap() error { return e.Err }

// LLMClient is the language-model capability boundary: a single
// completion operation, swappable without changing pipeline logic.
type LLMClient interface {
	// Complete sends a prompt and returns the model's text response.
	Complete(ctx context.Context, prompt string) (string, error)

	// Close cleans up any resources used by the client.
	Close() error
}

// Config holds configuration for the GenAI client.
type Config struct {
	APIKey          string
	Model           string
	Temperature     float32
	MaxOutputTokens int32
	RequestTimeout  time.Duration
}

// geminiClient implements LLMClient using the Google Gemini API.
type geminiClient struct {
	client *genai.Client
	cfg    Config
}

// NewClient creates a new Gemini-backed client.
func NewClient(ctx context.Context, cfg Config) (LLMClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("cannot create Gemini client: API key is missing")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash-latest"
	}
	if cfg.MaxOutputTokens == 0 {
		cfg.MaxOutputTokens = 1024
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	return &geminiClient{client: client, cfg: cfg}, nil
}

func (c *geminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Complete sends a prompt to the configured model. Deadline and
// transient-availability failures surface as *ErrModelTimeout so the
// caller can retry.
func (c *geminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	if c.client == nil {
		return "", fmt.Errorf("gemini client not initialized")
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	model := c.client.GenerativeModel(c.cfg.Model)
	model.SetTemperature(c.cfg.Temperature)
	model.SetMaxOutputTokens(c.cfg.MaxOutputTokens)
	model.SetTopP(0.9)
	model.SetTopK(40)

	resp, err := model.GenerateContent(callCtx, genai.Text(prompt))
	if err != nil {
		if isTimeout(err) {
			return "", &ErrModelTimeout{Msg: fmt.Sprintf("model %s", c.cfg.Model), Err: err}
		}
		return "", fmt.Errorf("Gemini API call failed: %w", err)
	}

	return firstTextPart(resp)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.DeadlineExceeded, codes.Unavailable, codes.ResourceExhausted:
			return true
		}
	}
	return false
}

// firstTextPart extracts the first text part from a Gemini response.
func firstTextPart(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		finishReason := "unknown"
		if resp != nil && len(resp.Candidates) > 0 {
			finishReason = resp.Candidates[0].FinishReason.String()
		}
		return "", fmt.Errorf("empty or incomplete response from Gemini API. FinishReason: %s", finishReason)
	}
	part := resp.Candidates[0].Content.Parts[0]
	text, ok := part.(genai.Text)
	if !ok {
		return "", fmt.Errorf("unexpected response part type: %T", part)
	}
	return string(text), nil
}
