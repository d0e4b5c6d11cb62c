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

package strategy

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/model"
)

// Result is the outcome of routing.
type Result struct {
	Answer   string
	Strategy model.StrategyName
	// Attempted lists, in order, every strategy that was tried.
	Attempted []model.StrategyName
}

// Router selects strategies from an ordered policy.
//
// The default policy is transcript, vision, general. The combined strategy
// is only consulted when the caller asks for it or PreferCombined is set; it
// is then tried first.
type Router struct {
	defaults       []Strategy
	combined       Strategy
	PreferCombined bool
}

// NewRouter creates a router over the default policy. combined may be nil.
func NewRouter(defaults []Strategy, combined Strategy) *Router {
	return &Router{defaults: defaults, combined: combined}
}

// NewDefaultRouter wires the four strategies into the default policy.
func NewDefaultRouter(transcript, vision, combined, general Strategy) *Router {
	return NewRouter([]Strategy{transcript, vision, general}, combined)
}

// Policy returns the ordered strategy list for a request.
func (r *Router) Policy(combinedRequested bool) []Strategy {
	if r.combined == nil || !(combinedRequested || r.PreferCombined) {
		return r.defaults
	}
	out := make([]Strategy, 0, len(r.defaults)+1)
	out = append(out, r.combined)
	return append(out, r.defaults...)
}

// Select returns the first strategy able to handle the evidence, without
// calling it.
func (r *Router) Select(evidence Evidence, combinedRequested bool) (Strategy, bool) {
	for _, s := range r.Policy(combinedRequested) {
		if s.CanHandle(evidence) {
			return s, true
		}
	}
	return nil, false
}

// Route tries each capable strategy in policy order until one answers. A
// generation failure hands over to the next capable strategy; when all of
// them fail the last failure is returned. Cancellation and non-generation
// errors stop routing immediately.
func (r *Router) Route(ctx context.Context, req Request, combinedRequested bool) (Result, error) {
	result := Result{Attempted: make([]model.StrategyName, 0, 4)}
	var lastErr error
	for _, s := range r.Policy(combinedRequested) {
		if !s.CanHandle(req.Evidence) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Attempted = append(result.Attempted, s.Name())
		answer, err := s.Attempt(ctx, req)
		if err == nil {
			result.Answer = answer
			result.Strategy = s.Name()
			return result, nil
		}
		if errors.Is(err, model.ErrEvidenceUnavailable) {
			continue
		}
		if !model.IsGenerationFailure(err) || ctx.Err() != nil {
			return result, err
		}
		slog.WarnContext(ctx, "strategy failed, falling back", "strategy", s.Name(), "error", err)
		lastErr = err
	}
	if lastErr == nil {
		lastErr = model.ErrEvidenceUnavailable
	}
	return result, lastErr
}
