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

// This file holds ServiceClients, the dependency container for every
// external connection the service makes: the Gemini and chat generation
// backends, BigQuery, Pub/Sub and the transcript cache store.
//
// Logic Flow:
//  1. NewCloudServiceClients is called once at start-up with the loaded Config.
//  2. Google clients are created only when a project id is configured, so the
//     service also runs locally with nothing but a chat API key.
//  3. Every [agent_models] entry becomes a rate-limited GeminiGenerator and
//     every [text_models] entry a ChatGenerator.
//  4. Pub/Sub listeners are created for each [topic_subscriptions] entry; their
//     commands are attached later, once the workflows exist.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/pubsub"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/cache"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/strategy"
	"google.golang.org/genai"
)

// ErrUnknownModel is returned when routing names a model that is not configured.
var ErrUnknownModel = errors.New("unknown model")

// ServiceClients bundles the initialised clients and generators.
type ServiceClients struct {
	PubsubClient    *pubsub.Client             // nil without a Google project.
	GenAIClient     *genai.Client              // nil when neither Vertex AI nor a Gemini key is configured.
	BiqQueryClient  *bigquery.Client           // nil without a Google project.
	PubSubListeners map[string]*PubSubListener // Keyed by the logical name from the config.
	AgentModels     map[string]*GeminiGenerator
	TextModels      map[string]*ChatGenerator
	TranscriptCache cache.Cache // nil when caching is disabled.
	closers         []io.Closer
}

// Generator resolves a logical model name, looking in TextModels first and
// then AgentModels.
func (c *ServiceClients) Generator(name string) (strategy.Generator, error) {
	if g, ok := c.TextModels[name]; ok {
		return g, nil
	}
	if g, ok := c.AgentModels[name]; ok {
		return g, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownModel, name)
}

// Close releases every connection that was opened.
func (c *ServiceClients) Close() {
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			slog.Warn("failed to close client", "error", err)
		}
	}
}

// NewCloudServiceClients creates the clients and generators described by config.
func NewCloudServiceClients(ctx context.Context, config *Config) (*ServiceClients, error) {
	clients := &ServiceClients{
		PubSubListeners: make(map[string]*PubSubListener),
		AgentModels:     make(map[string]*GeminiGenerator),
		TextModels:      make(map[string]*ChatGenerator),
	}
	projectID := config.Application.GoogleProjectId

	if projectID != "" {
		pc, err := pubsub.NewClient(ctx, projectID)
		if err != nil {
			return nil, fmt.Errorf("failed to create pubsub client: %w", err)
		}
		clients.PubsubClient = pc
		clients.closers = append(clients.closers, pc)

		bc, err := bigquery.NewClient(ctx, projectID)
		if err != nil {
			clients.Close()
			return nil, fmt.Errorf("failed to create bigquery client: %w", err)
		}
		clients.BiqQueryClient = bc
		clients.closers = append(clients.closers, bc)

		for key, sub := range config.TopicSubscriptions {
			clients.PubSubListeners[key] = NewPubSubListener(pc, sub.Name, sub.Timeout(), nil)
		}
	} else if len(config.TopicSubscriptions) > 0 {
		slog.Warn("topic subscriptions configured without a google project; listeners disabled")
	}

	gc, err := newGenAIClient(ctx, config)
	if err != nil {
		clients.Close()
		return nil, err
	}
	clients.GenAIClient = gc
	for _, key := range sortedKeys(config.AgentModels) {
		if gc == nil {
			slog.Warn("gemini model configured without credentials; skipping", "model", key)
			continue
		}
		values := config.AgentModels[key]
		clients.AgentModels[key] = NewGeminiGenerator(key, NewQuotaAwareModel(GenerateContentConfig(values), values.Model, gc.Models, values.RateLimit))
	}

	for _, key := range sortedKeys(config.TextModels) {
		values := config.TextModels[key]
		if values.APIKey() == "" {
			slog.Warn("chat model has no api key in the environment", "model", key, "env", values.APIKeyEnv)
		}
		clients.TextModels[key] = NewChatGenerator(key, values)
	}

	tc, err := NewTranscriptCache(ctx, config.Cache)
	if err != nil {
		clients.Close()
		return nil, err
	}
	clients.TranscriptCache = tc
	if closer, ok := tc.(io.Closer); ok {
		clients.closers = append(clients.closers, closer)
	}

	return clients, nil
}

// GenerateContentConfig turns a model's TOML settings into a genai config.
func GenerateContentConfig(values VertexAiLLMModel) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](values.Temperature),
		MaxOutputTokens:  values.MaxTokens,
		SafetySettings:   DefaultSafetySettings,
		ResponseMIMEType: values.OutputFormat,
	}
	if values.TopP > 0 {
		cfg.TopP = genai.Ptr[float32](values.TopP)
	}
	if values.TopK > 0 {
		cfg.TopK = genai.Ptr[float32](values.TopK)
	}
	if values.SystemInstructions != "" {
		cfg.SystemInstruction = genai.NewContentFromText(values.SystemInstructions, genai.RoleUser)
	}
	return cfg
}

// newGenAIClient uses Vertex AI when a project is configured and the Gemini
// API with a key otherwise. It returns nil, nil when neither is available.
func newGenAIClient(ctx context.Context, config *Config) (*genai.Client, error) {
	if len(config.AgentModels) == 0 {
		return nil, nil
	}
	var cc *genai.ClientConfig
	switch {
	case config.Application.GoogleProjectId != "":
		cc = &genai.ClientConfig{
			Project:  config.Application.GoogleProjectId,
			Location: config.Application.GoogleLocation,
			Backend:  genai.BackendVertexAI,
		}
	case config.Application.GeminiAPIKeyEnv != "" && os.Getenv(config.Application.GeminiAPIKeyEnv) != "":
		cc = &genai.ClientConfig{
			APIKey:  os.Getenv(config.Application.GeminiAPIKeyEnv),
			Backend: genai.BackendGeminiAPI,
		}
	default:
		return nil, nil
	}
	gc, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return gc, nil
}

// NewTranscriptCache builds the configured cache backend. "none" yields nil.
func NewTranscriptCache(ctx context.Context, settings CacheSettings) (cache.Cache, error) {
	switch settings.Backend {
	case "", "memory":
		return cache.NewMemoryCache(settings.TTL(), settings.MaxEntries), nil
	case "redis":
		password := ""
		if settings.RedisPasswordEnv != "" {
			password = os.Getenv(settings.RedisPasswordEnv)
		}
		client, err := cache.ConnectRedis(ctx, settings.RedisAddr, password, settings.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect transcript cache: %w", err)
		}
		return cache.NewRedisCache(client, settings.KeyPrefix, settings.TTL()), nil
	case "none":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown cache backend %q", settings.Backend)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
