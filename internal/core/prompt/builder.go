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

// Package prompt builds the text (and image list) sent to the generation
// backend for each answering strategy.
//
// Prompts are Go text/templates. The defaults live in templates.go and may be
// replaced per strategy from configuration; replacements can use the shared
// "header", "history", "frames", "style" and "timeline" blocks.
package prompt

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/model"
)

// DefaultHistoryTurns is how many trailing conversation turns reach a prompt.
const DefaultHistoryTurns = 6

// Templates holds optional template overrides. Empty fields use the defaults.
type Templates struct {
	TranscriptOrigin  string
	TranscriptExplain string
	Vision            string
	Combined          string
	General           string
}

// Metadata describes the video being watched.
type Metadata struct {
	VideoID   string
	Title     string
	Timestamp string // Formatted current position, embedded verbatim.
}

// Input is everything a strategy hands to the builder.
type Input struct {
	Strategy   model.StrategyName
	Intent     model.QuestionIntent
	Question   string
	Metadata   Metadata
	Transcript string        // Windowed transcript evidence, may be empty.
	Frames     []model.Frame // Chronological frames, may be empty.
	History    []model.ConversationTurn
}

// Prompt is the generation request. Images are only set for the vision and
// combined strategies.
type Prompt struct {
	Text   string
	Images []model.Frame
}

// templateData is the value templates are executed against.
type templateData struct {
	Title      string
	Timestamp  string
	Question   string
	Transcript string
	Frames     []model.Frame
	History    []model.ConversationTurn
	Intent     model.QuestionIntent
	Origin     bool
}

const (
	keyTranscriptOrigin  = "transcript-origin"
	keyTranscriptExplain = "transcript-explain"
	keyVision            = "vision"
	keyCombined          = "combined"
	keyGeneral           = "general"
)

// Builder renders prompts. It is immutable after construction and safe for
// concurrent use.
type Builder struct {
	templates    map[string]*template.Template
	historyTurns int
}

// NewBuilder parses the templates, substituting defaults for empty overrides.
// A non-positive historyTurns selects DefaultHistoryTurns.
func NewBuilder(overrides Templates, historyTurns int) (*Builder, error) {
	if historyTurns <= 0 {
		historyTurns = DefaultHistoryTurns
	}
	sources := map[string]string{
		keyTranscriptOrigin:  pick(overrides.TranscriptOrigin, DefaultTranscriptOrigin),
		keyTranscriptExplain: pick(overrides.TranscriptExplain, DefaultTranscriptExplain),
		keyVision:            pick(overrides.Vision, DefaultVision),
		keyCombined:          pick(overrides.Combined, DefaultCombined),
		keyGeneral:           pick(overrides.General, DefaultGeneral),
	}
	funcs := template.FuncMap{"inc": func(i int) int { return i + 1 }}

	out := &Builder{templates: make(map[string]*template.Template), historyTurns: historyTurns}
	for key, src := range sources {
		t, err := template.New(key).Funcs(funcs).Parse(src)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s prompt template: %w", key, err)
		}
		if t, err = t.Parse(sharedBlocks); err != nil {
			return nil, fmt.Errorf("failed to parse shared prompt blocks: %w", err)
		}
		out.templates[key] = t
	}
	return out, nil
}

// MustNewBuilder is NewBuilder with the default templates.
func MustNewBuilder() *Builder {
	b, err := NewBuilder(Templates{}, DefaultHistoryTurns)
	if err != nil {
		panic(err)
	}
	return b
}

func pick(override string, fallback string) string {
	if strings.TrimSpace(override) == "" {
		return fallback
	}
	return override
}

// Build renders the prompt for the input's strategy and intent. Missing
// evidence never fails the build; the templates degrade to title and question.
func (b *Builder) Build(in Input) (Prompt, error) {
	key, withImages := b.templateFor(in.Strategy, in.Intent)

	data := templateData{
		Title:      in.Metadata.Title,
		Timestamp:  in.Metadata.Timestamp,
		Question:   strings.TrimSpace(in.Question),
		Transcript: strings.TrimSpace(in.Transcript),
		History:    model.RecentTurns(in.History, b.historyTurns),
		Intent:     in.Intent,
		Origin:     in.Intent == model.IntentOrigin,
	}
	if withImages {
		data.Frames = in.Frames
	}

	var buffer bytes.Buffer
	if err := b.templates[key].Execute(&buffer, data); err != nil {
		return Prompt{}, fmt.Errorf("failed to execute %s prompt template: %w", key, err)
	}
	out := Prompt{Text: strings.TrimSpace(buffer.String())}
	if withImages && len(in.Frames) > 0 {
		out.Images = in.Frames
	}
	return out, nil
}

func (b *Builder) templateFor(strategy model.StrategyName, intent model.QuestionIntent) (string, bool) {
	switch strategy {
	case model.StrategyTranscript:
		if intent == model.IntentOrigin {
			return keyTranscriptOrigin, false
		}
		return keyTranscriptExplain, false
	case model.StrategyVision:
		return keyVision, true
	case model.StrategyCombined:
		return keyCombined, true
	}
	return keyGeneral, false
}
