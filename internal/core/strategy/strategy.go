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

// Package strategy holds the answering strategies and the router that picks
// between them.
//
// A strategy owns one evidence class (transcript, frames, both, or none),
// builds the matching prompt and makes exactly one blocking call to its
// Generator. The Router walks an ordered list of strategies and returns the
// first answer produced.
package strategy

import (
	"context"
	"errors"
	"strings"

	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/model"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/prompt"
)

// Generator is the generation boundary: a prompt, optional images, one answer.
type Generator interface {
	Generate(ctx context.Context, prompt string, images []model.Frame) (string, error)
}

// Evidence is the windowed material a strategy may draw on.
type Evidence struct {
	Transcript string        // Windowed transcript lines, or the raw fallback.
	Frames     []model.Frame // Chronological, decoded frames.
}

// HasTranscript reports whether non-blank transcript evidence exists.
func (e Evidence) HasTranscript() bool {
	return strings.TrimSpace(e.Transcript) != ""
}

// HasFrames reports whether at least one frame exists.
func (e Evidence) HasFrames() bool {
	return len(e.Frames) > 0
}

// Request is what every strategy receives.
type Request struct {
	Question string
	Intent   model.QuestionIntent
	Metadata prompt.Metadata
	Evidence Evidence
	History  []model.ConversationTurn
}

// Strategy is one answer-generation policy.
type Strategy interface {
	Name() model.StrategyName
	CanHandle(evidence Evidence) bool
	// Attempt returns the raw answer. Backend errors are reported as
	// *model.GenerationFailure.
	Attempt(ctx context.Context, req Request) (string, error)
}

// promptStrategy is the shared implementation: a capability test, a prompt
// and a generator.
type promptStrategy struct {
	name      model.StrategyName
	canHandle func(Evidence) bool
	builder   *prompt.Builder
	generator Generator
}

func (s *promptStrategy) Name() model.StrategyName {
	return s.name
}

func (s *promptStrategy) CanHandle(evidence Evidence) bool {
	return s.canHandle(evidence)
}

func (s *promptStrategy) Attempt(ctx context.Context, req Request) (string, error) {
	if !s.CanHandle(req.Evidence) {
		return "", model.ErrEvidenceUnavailable
	}
	p, err := s.builder.Build(prompt.Input{
		Strategy:   s.name,
		Intent:     req.Intent,
		Question:   req.Question,
		Metadata:   req.Metadata,
		Transcript: req.Evidence.Transcript,
		Frames:     req.Evidence.Frames,
		History:    req.History,
	})
	if err != nil {
		return "", err
	}
	answer, err := s.generator.Generate(ctx, p.Text, p.Images)
	if err != nil {
		return "", model.NewGenerationFailure(s.name, err)
	}
	if strings.TrimSpace(answer) == "" {
		return "", model.NewGenerationFailure(s.name, errors.New("empty answer"))
	}
	return answer, nil
}

// NewTranscriptStrategy answers from the windowed transcript.
func NewTranscriptStrategy(builder *prompt.Builder, generator Generator) Strategy {
	return &promptStrategy{
		name:      model.StrategyTranscript,
		canHandle: Evidence.HasTranscript,
		builder:   builder,
		generator: generator,
	}
}

// NewVisionStrategy answers from the captured frames.
func NewVisionStrategy(builder *prompt.Builder, generator Generator) Strategy {
	return &promptStrategy{
		name:      model.StrategyVision,
		canHandle: Evidence.HasFrames,
		builder:   builder,
		generator: generator,
	}
}

// NewCombinedStrategy answers from transcript and frames together. It only
// handles requests carrying both.
func NewCombinedStrategy(builder *prompt.Builder, generator Generator) Strategy {
	return &promptStrategy{
		name:      model.StrategyCombined,
		canHandle: func(e Evidence) bool { return e.HasTranscript() && e.HasFrames() },
		builder:   builder,
		generator: generator,
	}
}

// NewGeneralStrategy answers from the title and question alone. It handles
// any evidence.
func NewGeneralStrategy(builder *prompt.Builder, generator Generator) Strategy {
	return &promptStrategy{
		name:      model.StrategyGeneral,
		canHandle: func(Evidence) bool { return true },
		builder:   builder,
		generator: generator,
	}
}
