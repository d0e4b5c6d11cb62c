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

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// contentGenerator is the subset of *genai.Models the answering engine uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// QuotaAwareGenerativeAIModel pairs a Gemini model and its generation config
// with a request rate limiter, so concurrent questions cannot exceed the
// project's quota.
type QuotaAwareGenerativeAIModel struct {
	GenerativeContentConfig *genai.GenerateContentConfig
	ModelName               string
	ModelHandle             contentGenerator
	RateLimit               *rate.Limiter
}

// NewQuotaAwareModel wraps a model allowing requestsPerSecond calls per
// second with an equal burst. A non-positive rate disables limiting.
func NewQuotaAwareModel(config *genai.GenerateContentConfig, name string, handle contentGenerator, requestsPerSecond int) *QuotaAwareGenerativeAIModel {
	limit := rate.Inf
	burst := 1
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
		burst = requestsPerSecond
	}
	return &QuotaAwareGenerativeAIModel{
		GenerativeContentConfig: config,
		ModelName:               name,
		ModelHandle:             handle,
		RateLimit:               rate.NewLimiter(limit, burst),
	}
}

// GenerateContent blocks until the limiter admits the call, then forwards
// it. Waiting honours ctx.
func (q *QuotaAwareGenerativeAIModel) GenerateContent(ctx context.Context, content []*genai.Content) (*genai.GenerateContentResponse, error) {
	if err := q.RateLimit.Wait(ctx); err != nil {
		return nil, err
	}
	return q.ModelHandle.GenerateContent(ctx, q.ModelName, content, q.GenerativeContentConfig)
}
