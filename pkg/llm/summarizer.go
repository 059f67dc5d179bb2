// Package llm summarizes changed documents with an OpenAI-compatible chat completion API.
// Failures never reach the caller: every error path returns a fixed notice pointing the
// reader to the source document.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/repeater/v2"
	"github.com/sashabaranov/go-openai"

	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/config"
	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/domain"
)

// default system prompt for summaries
const defaultSystemPrompt = "You are a precise UK immigration law analyst."

const promptTemplate = `You are a UK immigration legal intelligence analyst.

Summarise the following %s clearly and concisely.

Title: %s
Source: %s

Content:
%s

Provide:

1. 3-5 bullet key points
2. 2 bullet practical impact points
%s
Be precise and professional. Do not speculate beyond the content.`

var errPermanent = errors.New("permanent llm failure")

// Summarizer produces practitioner summaries of documents
type Summarizer struct {
	client     *openai.Client
	config     config.LLMConfig
	systemMsg  string
	attempts   int
	retryDelay time.Duration
}

// NewSummarizer creates a new summarizer. Without an API key it is disabled and
// returns the fallback notice for every request.
func NewSummarizer(cfg config.LLMConfig) *Summarizer {
	res := &Summarizer{config: cfg, attempts: 3, retryDelay: time.Second}
	if cfg.MaxInputChars <= 0 {
		res.config.MaxInputChars = 12000
	}
	if cfg.Timeout <= 0 {
		res.config.Timeout = 60 * time.Second
	}

	// use custom system prompt if provided, otherwise use default
	res.systemMsg = cfg.SystemPrompt
	if res.systemMsg == "" {
		res.systemMsg = defaultSystemPrompt
	}

	if cfg.APIKey == "" {
		log.Printf("[WARN] no llm api key, summaries disabled")
		return res
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientConfig.BaseURL = cfg.Endpoint
	}
	res.client = openai.NewClientWithConfig(clientConfig)
	return res
}

// Enabled reports whether summaries are requested from the model
func (s *Summarizer) Enabled() bool { return s.client != nil }

// Summarize returns the model's summary, or the fallback notice on any failure
func (s *Summarizer) Summarize(ctx context.Context, req domain.SummaryRequest) domain.Summary {
	if s.client == nil {
		return Fallback(req)
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       s.config.Model,
		Temperature: float32(s.config.Temperature),
		MaxTokens:   s.config.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: s.systemMsg},
			{Role: openai.ChatMessageRoleUser, Content: s.buildPrompt(req)},
		},
	}

	var text string
	retrier := repeater.NewBackoff(s.attempts, s.retryDelay, repeater.WithMaxDelay(10*time.Second))
	err := retrier.Do(ctx, func() error {
		var err error
		text, err = s.complete(ctx, chatReq)
		return err
	}, errPermanent)
	if err != nil {
		log.Printf("[WARN] summary failed for %s, using fallback: %v", req.URL, err)
		return Fallback(req)
	}
	return domain.Summary{Text: text}
}

func (s *Summarizer) complete(ctx context.Context, chatReq openai.ChatCompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode < http.StatusInternalServerError &&
			apiErr.HTTPStatusCode != http.StatusTooManyRequests {
			return "", fmt.Errorf("%w: llm request failed: %w", errPermanent, err)
		}
		return "", fmt.Errorf("llm request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response from llm")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("empty response from llm")
	}
	return text, nil
}

func (s *Summarizer) buildPrompt(req domain.SummaryRequest) string {
	kind, changed := "document", ""
	if req.IsUpdate {
		kind = "updated document"
		changed = "3. Explain briefly what appears to have changed since the previous version.\n"
	}
	return fmt.Sprintf(promptTemplate, kind, req.Title, req.Source, truncateRunes(req.Text, s.config.MaxInputChars), changed)
}

// Fallback is the fixed notice used when no summary could be produced
func Fallback(req domain.SummaryRequest) domain.Summary {
	title := req.Title
	if title == "" {
		title = "Untitled document"
	}
	text := fmt.Sprintf("Summary unavailable for %q (%s). Please review the source directly: %s", title, req.Source, req.URL)
	return domain.Summary{Text: text, Fallback: true}
}

func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
