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
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/cor"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"google.golang.org/genai"
)

// ErrEmptyResponse is returned when a backend answers without any text.
var ErrEmptyResponse = errors.New("model returned an empty response")

// generationCounters are the token and retry instruments shared by the generators.
type generationCounters struct {
	inputTokens  metric.Int64Counter
	outputTokens metric.Int64Counter
	retries      metric.Int64Counter
}

func newGenerationCounters(name string) generationCounters {
	meter := otel.Meter(cor.MeterName)
	counter := func(suffix string) metric.Int64Counter {
		c, err := meter.Int64Counter(fmt.Sprintf("generator.%s.%s", name, suffix))
		if err != nil {
			slog.Error("failed to create generation counter", "generator", name, "error", err)
		}
		return c
	}
	return generationCounters{
		inputTokens:  counter("tokens.input"),
		outputTokens: counter("tokens.output"),
		retries:      counter("retries"),
	}
}

// GeminiGenerator answers prompts with a Gemini model. Frames are sent
// inline, each preceded by a short text part naming it.
type GeminiGenerator struct {
	model    *QuotaAwareGenerativeAIModel
	counters generationCounters
	Backoff  time.Duration
}

// NewGeminiGenerator creates a generator over a rate-limited model.
func NewGeminiGenerator(name string, m *QuotaAwareGenerativeAIModel) *GeminiGenerator {
	return &GeminiGenerator{model: m, counters: newGenerationCounters(name), Backoff: DefaultBackoff}
}

// Generate sends prompt and images as one user turn and returns the
// concatenated candidate text.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string, images []model.Frame) (string, error) {
	contents := []*genai.Content{genai.NewContentFromParts(geminiParts(prompt, images), genai.RoleUser)}

	resp, err := withRetries(ctx, g.counters.retries, g.Backoff, nil,
		func(ctx context.Context) (*genai.GenerateContentResponse, error) {
			return g.model.GenerateContent(ctx, contents)
		})
	if err != nil {
		return "", err
	}
	if resp.UsageMetadata != nil {
		if g.counters.inputTokens != nil {
			g.counters.inputTokens.Add(ctx, int64(resp.UsageMetadata.PromptTokenCount))
		}
		if g.counters.outputTokens != nil {
			g.counters.outputTokens.Add(ctx, int64(resp.UsageMetadata.CandidatesTokenCount))
		}
	}

	var sb strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			sb.WriteString(part.Text)
		}
	}
	value := strings.TrimSpace(sb.String())
	if value == "" {
		return "", ErrEmptyResponse
	}
	return value, nil
}

func geminiParts(prompt string, images []model.Frame) []*genai.Part {
	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	n := 0
	for _, f := range images {
		if len(f.ImageData) == 0 {
			continue
		}
		n++
		parts = append(parts,
			genai.NewPartFromText(frameCaption(n, f)),
			genai.NewPartFromBytes(f.ImageData, f.MIMEType))
	}
	return parts
}

// frameCaption names a frame the way prompts and the renderer refer to it.
func frameCaption(n int, f model.Frame) string {
	caption := fmt.Sprintf("Frame %d", n)
	if f.TimestampLabel != "" {
		caption += " at " + f.TimestampLabel
	}
	if f.Label != "" {
		caption += " (" + f.Label + ")"
	}
	return caption + ":"
}
