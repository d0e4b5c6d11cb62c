// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cloud

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/model"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// chatCompleter is the subset of *openai.Client the chat generator uses.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ChatGenerator answers prompts through an OpenAI-compatible chat
// completion endpoint such as Groq.
type ChatGenerator struct {
	client   chatCompleter
	config   ChatModel
	limiter  *rate.Limiter
	counters generationCounters
	Backoff  time.Duration
}

// NewChatGenerator creates a generator for the configured endpoint. The API
// key is read from the environment variable named by the config.
func NewChatGenerator(name string, cfg ChatModel) *ChatGenerator {
	clientConfig := openai.DefaultConfig(cfg.APIKey())
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return newChatGenerator(name, cfg, openai.NewClientWithConfig(clientConfig))
}

func newChatGenerator(name string, cfg ChatModel, client chatCompleter) *ChatGenerator {
	limit, burst := rate.Inf, 1
	if cfg.RateLimit > 0 {
		limit, burst = rate.Limit(cfg.RateLimit), cfg.RateLimit
	}
	return &ChatGenerator{
		client:   client,
		config:   cfg,
		limiter:  rate.NewLimiter(limit, burst),
		counters: newGenerationCounters(name),
		Backoff:  DefaultBackoff,
	}
}

// Generate sends the prompt as a user message, with frames attached as
// image parts when present.
func (c *ChatGenerator) Generate(ctx context.Context, prompt string, images []model.Frame) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.config.Model,
		Messages:    chatMessages(c.config.SystemInstructions, prompt, images),
		MaxTokens:   c.config.MaxTokens,
		Temperature: c.config.Temperature,
	}

	resp, err := withRetries(ctx, c.counters.retries, c.Backoff, retryableChatError,
		func(ctx context.Context) (openai.ChatCompletionResponse, error) {
			if err := c.limiter.Wait(ctx); err != nil {
				return openai.ChatCompletionResponse{}, err
			}
			return c.client.CreateChatCompletion(ctx, req)
		})
	if err != nil {
		return "", err
	}
	if c.counters.inputTokens != nil {
		c.counters.inputTokens.Add(ctx, int64(resp.Usage.PromptTokens))
	}
	if c.counters.outputTokens != nil {
		c.counters.outputTokens.Add(ctx, int64(resp.Usage.CompletionTokens))
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", ErrEmptyResponse
	}
	return answer, nil
}

func chatMessages(system, prompt string, images []model.Frame) []openai.ChatCompletionMessage {
	var messages []openai.ChatCompletionMessage
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}

	parts := []openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: prompt}}
	n := 0
	for _, f := range images {
		if len(f.ImageData) == 0 {
			continue
		}
		n++
		parts = append(parts,
			openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: frameCaption(n, f)},
			openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    "data:" + f.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(f.ImageData),
					Detail: openai.ImageURLDetailAuto,
				},
			})
	}
	if n == 0 {
		return append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})
	}
	return append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, MultiContent: parts})
}

// retryableChatError treats client errors other than rate limiting as permanent.
func retryableChatError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return true
}
