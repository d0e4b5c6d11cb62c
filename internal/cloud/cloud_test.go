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
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/alicebob/miniredis/v2"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/cache"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/cor"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/genai"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func TestLoadConfigOverlaysRuntimeFile(t *testing.T) {
	dir := t.TempDir()
	base := `
[application]
name = "lecture-lens"
request_timeout_seconds = 30

[routing]
text_model = "groq"

[text_models.groq]
model = "llama-3.3-70b-versatile"
api_key_env = "GROQ_API_KEY"
temperature = 0.7
max_tokens = 1500
`
	override := `
[application]
request_timeout_seconds = 5

[cache]
backend = "none"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.toml"), []byte(base), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.unit.toml"), []byte(override), 0o600))
	t.Setenv(EnvConfigFilePrefix, dir)
	t.Setenv(EnvConfigRuntime, "unit")

	config := NewConfig()
	require.NoError(t, LoadConfig(config))

	assert.Equal(t, "lecture-lens", config.Application.Name)
	assert.Equal(t, 5*time.Second, config.RequestTimeout())
	assert.Equal(t, "none", config.Cache.Backend)
	assert.Equal(t, 5001, config.Server.Port)
	assert.Equal(t, 180.0, config.Transcript.WindowBeforeSeconds)
	require.Contains(t, config.TextModels, "groq")
	assert.Equal(t, 1500, config.TextModels["groq"].MaxTokens)
	assert.InDelta(t, 0.7, config.TextModels["groq"].Temperature, 1e-6)
}

func TestLoadConfigRejectsInvalidToml(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.toml"), []byte("[application\nname="), 0o600))
	t.Setenv(EnvConfigFilePrefix, dir)
	t.Setenv(EnvConfigRuntime, "unit")

	assert.Error(t, LoadConfig(NewConfig()))
}

type fakeModels struct {
	mu       sync.Mutex
	failures int
	calls    int
	contents []*genai.Content
	text     string
}

func (f *fakeModels) GenerateContent(_ context.Context, _ string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.contents = contents
	if f.calls <= f.failures {
		return nil, errors.New("unavailable")
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: f.text}}},
		}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{PromptTokenCount: 10, CandidatesTokenCount: 2},
	}, nil
}

func TestGeminiGeneratorSendsFramesInline(t *testing.T) {
	fake := &fakeModels{text: " The slide shows a graph. "}
	gen := NewGeminiGenerator("vision", NewQuotaAwareModel(&genai.GenerateContentConfig{}, "gemini-2.5-flash", fake, 0))

	frames := []model.Frame{
		{TimestampLabel: "1:00", Label: "10s ago", ImageData: []byte{0xff, 0xd8, 0xff}, MIMEType: "image/jpeg"},
		{TimestampLabel: "1:10", Label: "now"},
	}
	answer, err := gen.Generate(context.Background(), "what is on screen?", frames)
	require.NoError(t, err)
	assert.Equal(t, "The slide shows a graph.", answer)

	require.Len(t, fake.contents, 1)
	parts := fake.contents[0].Parts
	require.Len(t, parts, 3)
	assert.Equal(t, "what is on screen?", parts[0].Text)
	assert.Equal(t, "Frame 1 at 1:00 (10s ago):", parts[1].Text)
	require.NotNil(t, parts[2].InlineData)
	assert.Equal(t, "image/jpeg", parts[2].InlineData.MIMEType)
}

func TestGeminiGeneratorRetries(t *testing.T) {
	fake := &fakeModels{failures: 2, text: "ok"}
	gen := NewGeminiGenerator("retry", NewQuotaAwareModel(&genai.GenerateContentConfig{}, "m", fake, 0))
	gen.Backoff = time.Millisecond

	answer, err := gen.Generate(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", answer)
	assert.Equal(t, 3, fake.calls)
}

func TestGeminiGeneratorGivesUp(t *testing.T) {
	fake := &fakeModels{failures: 100}
	gen := NewGeminiGenerator("giveup", NewQuotaAwareModel(&genai.GenerateContentConfig{}, "m", fake, 0))
	gen.Backoff = time.Millisecond

	_, err := gen.Generate(context.Background(), "q", nil)
	assert.EqualError(t, err, "unavailable")
	assert.Equal(t, MaxRetries+1, fake.calls)
}

func TestGeminiGeneratorEmptyAnswer(t *testing.T) {
	gen := NewGeminiGenerator("empty", NewQuotaAwareModel(&genai.GenerateContentConfig{}, "m", &fakeModels{}, 0))
	_, err := gen.Generate(context.Background(), "q", nil)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func newChatServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestChatGeneratorCompletes(t *testing.T) {
	var got map[string]interface{}
	srv := newChatServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"At 2:30 the rule appears."},"finish_reason":"stop"}],"usage":{"prompt_tokens":12,"completion_tokens":6,"total_tokens":18}}`)
	})
	t.Setenv("TEST_CHAT_KEY", "secret")

	gen := NewChatGenerator("groq", ChatModel{
		Model:              "llama-3.3-70b-versatile",
		BaseURL:            srv.URL + "/v1",
		APIKeyEnv:          "TEST_CHAT_KEY",
		SystemInstructions: "be brief",
		MaxTokens:          1500,
	})
	answer, err := gen.Generate(context.Background(), "where did this come from?", nil)
	require.NoError(t, err)
	assert.Equal(t, "At 2:30 the rule appears.", answer)

	assert.Equal(t, "llama-3.3-70b-versatile", got["model"])
	messages := got["messages"].([]interface{})
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]interface{})["role"])
	assert.Equal(t, "where did this come from?", messages[1].(map[string]interface{})["content"])
}

func TestChatGeneratorDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := newChatServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"message":"bad request","type":"invalid_request_error"}}`)
	})

	gen := NewChatGenerator("groq", ChatModel{Model: "m", BaseURL: srv.URL + "/v1"})
	gen.Backoff = time.Millisecond
	_, err := gen.Generate(context.Background(), "q", nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestChatGeneratorRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := newChatServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, `{"error":{"message":"overloaded","type":"server_error"}}`)
			return
		}
		_, _ = io.WriteString(w, `{"choices":[{"index":0,"message":{"role":"assistant","content":"fine"}}]}`)
	})

	gen := NewChatGenerator("groq", ChatModel{Model: "m", BaseURL: srv.URL + "/v1"})
	gen.Backoff = time.Millisecond
	answer, err := gen.Generate(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Equal(t, "fine", answer)
	assert.Equal(t, int32(2), calls.Load())
}

func TestChatMessagesAttachImages(t *testing.T) {
	messages := chatMessages("", "describe", []model.Frame{{Label: "now", ImageData: []byte{1, 2}, MIMEType: "image/png"}})
	require.Len(t, messages, 1)
	parts := messages[0].MultiContent
	require.Len(t, parts, 3)
	assert.Equal(t, "Frame 1 (now):", parts[1].Text)
	assert.Equal(t, "data:image/png;base64,AQI=", parts[2].ImageURL.URL)
}

func TestNewTranscriptCache(t *testing.T) {
	ctx := context.Background()

	c, err := NewTranscriptCache(ctx, CacheSettings{Backend: "memory", TTLSeconds: 60, MaxEntries: 2})
	require.NoError(t, err)
	assert.IsType(t, &cache.MemoryCache{}, c)

	c, err = NewTranscriptCache(ctx, CacheSettings{Backend: "none"})
	require.NoError(t, err)
	assert.Nil(t, c)

	_, err = NewTranscriptCache(ctx, CacheSettings{Backend: "memcached"})
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	c, err = NewTranscriptCache(ctx, CacheSettings{Backend: "redis", RedisAddr: mr.Addr(), KeyPrefix: "t:", TTLSeconds: 60})
	require.NoError(t, err)
	require.NoError(t, c.Put(ctx, "abc", "<transcript/>"))
	assert.True(t, mr.Exists("t:abc"))
}

func TestServiceClientsGeneratorLookup(t *testing.T) {
	t.Setenv("GEMINI_KEY_UNSET", "")
	config := NewConfig()
	config.Cache.Backend = "none"
	config.TextModels["groq"] = ChatModel{Model: "llama"}
	config.AgentModels["vision"] = VertexAiLLMModel{Model: "gemini-2.5-flash"}
	config.Application.GeminiAPIKeyEnv = "GEMINI_KEY_UNSET"

	clients, err := NewCloudServiceClients(context.Background(), config)
	require.NoError(t, err)
	defer clients.Close()

	g, err := clients.Generator("groq")
	require.NoError(t, err)
	assert.NotNil(t, g)

	_, err = clients.Generator("vision")
	assert.ErrorIs(t, err, ErrUnknownModel)
	assert.Nil(t, clients.PubsubClient)
	assert.Nil(t, clients.BiqQueryClient)
}

type recordingCommand struct {
	cor.BaseCommand
	mu   sync.Mutex
	seen []string
}

func (r *recordingCommand) Execute(chCtx cor.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, chCtx.Get(cor.CtxIn).(string))
}

func (r *recordingCommand) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seen...)
}

func TestPubSubListenerExecutesAndAcks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := pstest.NewServer()
	defer srv.Close()
	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	client, err := pubsub.NewClient(ctx, "test-project", option.WithGRPCConn(conn))
	require.NoError(t, err)
	defer client.Close()

	topic, err := client.CreateTopic(ctx, "warmup")
	require.NoError(t, err)
	_, err = client.CreateSubscription(ctx, "warmup-sub", pubsub.SubscriptionConfig{Topic: topic})
	require.NoError(t, err)

	cmd := &recordingCommand{BaseCommand: *cor.NewBaseCommand("record")}
	listener := NewPubSubListener(client, "warmup-sub", time.Second, nil)
	listener.SetCommand(cmd)
	listener.Listen(ctx)

	msgID := srv.Publish("projects/test-project/topics/warmup", []byte(`{"videoId":"abc"}`), nil)

	assert.Eventually(t, func() bool { return len(cmd.messages()) == 1 }, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, `{"videoId":"abc"}`, cmd.messages()[0])
	assert.Eventually(t, func() bool { return srv.Message(msgID).Acks == 1 }, 5*time.Second, 20*time.Millisecond)
}
