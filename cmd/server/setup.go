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
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/jaycherian/gcp-go-lecture-lens/internal/cloud"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/commands"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/intent"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/prompt"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/services"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/strategy"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/transcript"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/workflow"
)

// StateManager holds the shared components of the server.
type StateManager struct {
	config      *cloud.Config
	cloud       *cloud.ServiceClients
	answers     *services.AnswerService
	transcripts *services.TranscriptService
}

var state = &StateManager{}

// SetupOS points the config loader at ./configs unless the environment
// already names a location and runtime.
func SetupOS() error {
	if os.Getenv(cloud.EnvConfigFilePrefix) == "" {
		if err := os.Setenv(cloud.EnvConfigFilePrefix, "configs"); err != nil {
			return err
		}
	}
	if os.Getenv(cloud.EnvConfigRuntime) == "" {
		return os.Setenv(cloud.EnvConfigRuntime, "local")
	}
	return nil
}

// GetConfig loads the configuration once.
func GetConfig() (*cloud.Config, error) {
	if state.config == nil {
		if err := SetupOS(); err != nil {
			return nil, fmt.Errorf("failed to setup os: %w", err)
		}
		config := cloud.NewConfig()
		if err := cloud.LoadConfig(config); err != nil {
			return nil, err
		}
		state.config = config
	}
	return state.config, nil
}

// InitState creates the clients, the answer pipeline and the listeners.
func InitState(ctx context.Context, config *cloud.Config) error {
	cloudClients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		return err
	}
	state.cloud = cloudClients

	state.transcripts = services.NewTranscriptService(
		services.NewHTTPClient(config.Transcript.FetchTimeout()),
		cloudClients.TranscriptCache,
		config.Transcript.WatchURL,
		config.Transcript.PreferredLanguage)

	router, err := NewRouter(config, cloudClients)
	if err != nil {
		return err
	}

	opts := []workflow.AnswerOption{
		workflow.WithTranscriptSource(state.transcripts),
		workflow.WithWindower(NewWindower(config.Transcript), config.Transcript.ChunkGapSeconds),
	}
	if inserter := interactionInserter(config, cloudClients); inserter != nil {
		opts = append(opts, workflow.WithInteractionLog(inserter))
	}
	classifier := intent.NewKeywordClassifier(config.Classifier.OriginKeywords, config.Classifier.ExplanationKeywords)
	answerWorkflow := workflow.NewAnswerWorkflow(classifier, router, opts...)
	state.answers = services.NewAnswerService(answerWorkflow, config.RequestTimeout())

	SetupListeners(ctx, cloudClients, state.transcripts)
	return nil
}

// NewWindower builds the evidence windows from the transcript settings.
func NewWindower(settings cloud.TranscriptSettings) *transcript.Windower {
	w := transcript.NewWindower()
	if settings.WindowBeforeSeconds > 0 {
		w.BeforeSeconds = settings.WindowBeforeSeconds
	}
	if settings.WindowAfterSeconds > 0 {
		w.AfterSeconds = settings.WindowAfterSeconds
	}
	if settings.OriginLeadChunks > 0 {
		w.OriginLead = settings.OriginLeadChunks
	}
	if settings.RawFallbackChars > 0 {
		w.RawLimit = settings.RawFallbackChars
	}
	if settings.MaxFrames > 0 {
		w.MaxFrames = settings.MaxFrames
	}
	return w
}

// NewRouter wires the four strategies. Transcript and general answers use the
// text model, vision and combined answers the vision model; either stands in
// for the other when only one is configured.
func NewRouter(config *cloud.Config, clients *cloud.ServiceClients) (*strategy.Router, error) {
	builder, err := prompt.NewBuilder(prompt.Templates{
		TranscriptOrigin:  config.PromptTemplates.TranscriptOrigin,
		TranscriptExplain: config.PromptTemplates.TranscriptExplain,
		Vision:            config.PromptTemplates.Vision,
		Combined:          config.PromptTemplates.Combined,
		General:           config.PromptTemplates.General,
	}, config.Routing.HistoryTurns)
	if err != nil {
		return nil, err
	}

	text, textErr := clients.Generator(config.Routing.TextModel)
	vision, visionErr := clients.Generator(config.Routing.VisionModel)
	switch {
	case textErr != nil && visionErr != nil:
		return nil, fmt.Errorf("no generator available: %w", errors.Join(textErr, visionErr))
	case textErr != nil:
		slog.Warn("text model unavailable, using the vision model", "model", config.Routing.TextModel, "error", textErr)
		text = vision
	case visionErr != nil:
		slog.Warn("vision model unavailable, using the text model", "model", config.Routing.VisionModel, "error", visionErr)
		vision = text
	}

	router := strategy.NewDefaultRouter(
		strategy.NewTranscriptStrategy(builder, text),
		strategy.NewVisionStrategy(builder, vision),
		strategy.NewCombinedStrategy(builder, vision),
		strategy.NewGeneralStrategy(builder, text))
	router.PreferCombined = config.Routing.PreferCombined
	return router, nil
}

func interactionInserter(config *cloud.Config, clients *cloud.ServiceClients) commands.RowInserter {
	ds := config.BigQueryDataSource
	if !ds.Enabled() || clients.BiqQueryClient == nil {
		return nil
	}
	return clients.BiqQueryClient.Dataset(ds.DatasetName).Table(ds.InteractionTable).Inserter()
}
