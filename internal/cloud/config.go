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

// Package cloud defines the data structures for application configuration,
// loaded from TOML files, and the clients for the external services the
// answering engine depends on: the generative backends, BigQuery, Pub/Sub
// and the transcript cache store.
//
// Structs:
//   - Server: HTTP listener settings.
//   - Routing: Which models answer which strategy, and the combined opt-in.
//   - TranscriptSettings: Windowing bounds and caption-fetch settings.
//   - CacheSettings: Transcript cache backend selection.
//   - ClassifierSettings: Keyword overrides for question classification.
//   - PromptTemplates: Optional overrides of the built-in prompt templates.
//   - VertexAiLLMModel: Configuration for a Gemini model.
//   - ChatModel: Configuration for an OpenAI-compatible chat model.
//   - BigQueryDataSource: Where answered questions are logged.
//   - TopicSubscription: Configuration for a single Pub/Sub subscription.
//   - Config: The top-level struct that aggregates all of the above.
package cloud

import (
	"os"
	"time"

	"google.golang.org/genai"
)

// DefaultSafetySettings relax the Gemini content filters. Lecture material
// (medicine, history, chemistry) trips the default thresholds too often.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
}

// Server holds the HTTP listener settings.
type Server struct {
	Port           int      `toml:"port"`            // The port the HTTP server listens on.
	MaxBodyBytes   int64    `toml:"max_body_bytes"`  // Request body limit; frames make bodies large.
	AllowedOrigins []string `toml:"allowed_origins"` // CORS origins; empty allows all.
}

// Routing selects the models behind each strategy.
type Routing struct {
	TextModel      string `toml:"text_model"`      // Key into TextModels or AgentModels for transcript and general answers.
	VisionModel    string `toml:"vision_model"`    // Key into AgentModels or TextModels for vision and combined answers.
	PreferCombined bool   `toml:"prefer_combined"` // Try the combined strategy first for every request.
	HistoryTurns   int    `toml:"history_turns"`   // Conversation turns included in prompts.
}

// TranscriptSettings bounds the evidence windows and configures caption fetching.
type TranscriptSettings struct {
	WindowBeforeSeconds float64 `toml:"window_before_seconds"`
	WindowAfterSeconds  float64 `toml:"window_after_seconds"`
	OriginLeadChunks    int     `toml:"origin_lead_chunks"`
	RawFallbackChars    int     `toml:"raw_fallback_chars"`
	ChunkGapSeconds     float64 `toml:"chunk_gap_seconds"`
	MaxFrames           int     `toml:"max_frames"`
	WatchURL            string  `toml:"watch_url"`             // Base URL of the video watch page.
	FetchTimeoutSeconds int     `toml:"fetch_timeout_seconds"` // Timeout for each caption HTTP call.
	PreferredLanguage   string  `toml:"preferred_language"`    // Caption track language to prefer, e.g. "en".
}

// CacheSettings selects and sizes the transcript cache.
type CacheSettings struct {
	Backend          string `toml:"backend"` // "memory" (default), "redis" or "none".
	TTLSeconds       int    `toml:"ttl_seconds"`
	MaxEntries       int    `toml:"max_entries"`
	RedisAddr        string `toml:"redis_addr"`
	RedisPasswordEnv string `toml:"redis_password_env"`
	RedisDB          int    `toml:"redis_db"`
	KeyPrefix        string `toml:"key_prefix"`
}

// TTL returns the configured time-to-live.
func (c CacheSettings) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// ClassifierSettings overrides the default keyword sets. Empty lists keep the defaults.
type ClassifierSettings struct {
	OriginKeywords      []string `toml:"origin_keywords"`
	ExplanationKeywords []string `toml:"explanation_keywords"`
}

// PromptTemplates holds optional text/template overrides, one per strategy.
type PromptTemplates struct {
	TranscriptOrigin  string `toml:"transcript_origin"`
	TranscriptExplain string `toml:"transcript_explain"`
	Vision            string `toml:"vision"`
	Combined          string `toml:"combined"`
	General           string `toml:"general"`
}

// VertexAiLLMModel represents the configuration for a Gemini model.
type VertexAiLLMModel struct {
	Model              string  `toml:"model"`               // The name of the model, e.g. "gemini-2.5-flash".
	SystemInstructions string  `toml:"system_instructions"` // The system instructions for the model.
	Temperature        float32 `toml:"temperature"`
	TopP               float32 `toml:"top_p"`
	TopK               float32 `toml:"top_k"`
	MaxTokens          int32   `toml:"max_tokens"`
	OutputFormat       string  `toml:"output_format"` // Response MIME type; empty for free text.
	RateLimit          int     `toml:"rate_limit"`    // Requests per second.
}

// ChatModel represents an OpenAI-compatible chat completion endpoint (Groq, OpenAI, vLLM).
type ChatModel struct {
	Model              string  `toml:"model"`
	BaseURL            string  `toml:"base_url"`
	APIKeyEnv          string  `toml:"api_key_env"` // Environment variable holding the key.
	SystemInstructions string  `toml:"system_instructions"`
	Temperature        float32 `toml:"temperature"`
	MaxTokens          int     `toml:"max_tokens"`
	RateLimit          int     `toml:"rate_limit"` // Requests per second.
}

// APIKey reads the key from the configured environment variable.
func (c ChatModel) APIKey() string {
	if c.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.APIKeyEnv)
}

// BigQueryDataSource configures the interaction log.
type BigQueryDataSource struct {
	DatasetName      string `toml:"dataset"`
	InteractionTable string `toml:"interaction_table"`
}

// Enabled reports whether interaction logging is configured.
func (b BigQueryDataSource) Enabled() bool {
	return b.DatasetName != "" && b.InteractionTable != ""
}

// TopicSubscription represents the configuration for a Pub/Sub topic subscription.
type TopicSubscription struct {
	Name             string `toml:"name"`               // The name of the Pub/Sub subscription.
	DeadLetterTopic  string `toml:"dead_letter_topic"`  // The name of the dead-letter topic for the subscription.
	TimeoutInSeconds int    `toml:"timeout_in_seconds"` // The processing timeout for one message.
}

// Config represents the overall configuration for the application, loaded from TOML files.
type Config struct {
	Application struct {
		Name                  string `toml:"name"`
		Version               string `toml:"version"`
		GoogleProjectId       string `toml:"google_project_id"` // Empty disables BigQuery, Pub/Sub and Vertex AI.
		GoogleLocation        string `toml:"location"`
		GeminiAPIKeyEnv       string `toml:"gemini_api_key_env"` // Used for Gemini when no project is set.
		RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
		LogFile               string `toml:"log_file"`
	} `toml:"application"`
	Server             Server                      `toml:"server"`
	Routing            Routing                     `toml:"routing"`
	Transcript         TranscriptSettings          `toml:"transcript"`
	Cache              CacheSettings               `toml:"cache"`
	Classifier         ClassifierSettings          `toml:"classifier"`
	PromptTemplates    PromptTemplates             `toml:"prompt_templates"`
	BigQueryDataSource BigQueryDataSource          `toml:"big_query_data_source"`
	TopicSubscriptions map[string]TopicSubscription `toml:"topic_subscriptions"` // Keyed by a logical name, e.g. "TranscriptWarmup".
	AgentModels        map[string]VertexAiLLMModel  `toml:"agent_models"`        // Gemini models keyed by a logical name.
	TextModels         map[string]ChatModel         `toml:"text_models"`         // Chat models keyed by a logical name.
}

// NewConfig creates a Config with initialised maps and the built-in defaults.
// Values from TOML files override these.
func NewConfig() *Config {
	c := &Config{
		TopicSubscriptions: make(map[string]TopicSubscription),
		AgentModels:        make(map[string]VertexAiLLMModel),
		TextModels:         make(map[string]ChatModel),
	}
	c.Application.Name = "lecture-lens"
	c.Application.Version = "2.1.0"
	c.Application.RequestTimeoutSeconds = 90
	c.Server.Port = 5001
	c.Server.MaxBodyBytes = 50 << 20
	c.Routing.HistoryTurns = 6
	c.Transcript = TranscriptSettings{
		WindowBeforeSeconds: 180,
		WindowAfterSeconds:  30,
		OriginLeadChunks:    4,
		RawFallbackChars:    3000,
		ChunkGapSeconds:     30,
		MaxFrames:           6,
		WatchURL:            "https://www.youtube.com/watch",
		FetchTimeoutSeconds: 15,
	}
	c.Cache = CacheSettings{Backend: "memory", TTLSeconds: 6 * 3600, MaxEntries: 500, KeyPrefix: "transcript:"}
	return c
}

// RequestTimeout returns the per-request deadline.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Application.RequestTimeoutSeconds) * time.Second
}

// Timeout returns the per-message processing deadline, zero when unset.
func (t TopicSubscription) Timeout() time.Duration {
	return time.Duration(t.TimeoutInSeconds) * time.Second
}

// FetchTimeout returns the per-call caption download timeout.
func (t TranscriptSettings) FetchTimeout() time.Duration {
	return time.Duration(t.FetchTimeoutSeconds) * time.Second
}
