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

// Package workflow assembles commands into the service's two pipelines: the
// answer workflow, run once per question, and the transcript warm-up
// workflow, run once per Pub/Sub trigger.
package workflow

import (
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/commands"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/cor"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/intent"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/strategy"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/transcript"
)

// AnswerWorkflow turns an *model.AskRequest placed under cor.CtxIn into a
// rendered answer under commands.ParamAnswer.
//
// Chain: classify-question -> assemble-evidence -> route-answer -> render-answer.
// The interaction recorder, when configured, runs after the chain whether or
// not it succeeded.
type AnswerWorkflow struct {
	cor.BaseCommand
	classifier *intent.Classifier
	source     commands.TranscriptSource
	windower   *transcript.Windower
	chunkGap   float64
	router     *strategy.Router
	recorder   commands.RowInserter
	chain      cor.Chain
	finally    []cor.Command
}

// AnswerOption customises an AnswerWorkflow.
type AnswerOption func(*AnswerWorkflow)

// WithTranscriptSource lets the workflow fetch transcripts the request lacks.
func WithTranscriptSource(source commands.TranscriptSource) AnswerOption {
	return func(w *AnswerWorkflow) { w.source = source }
}

// WithWindower replaces the default evidence windows.
func WithWindower(windower *transcript.Windower, chunkGap float64) AnswerOption {
	return func(w *AnswerWorkflow) {
		w.windower = windower
		w.chunkGap = chunkGap
	}
}

// WithInteractionLog streams one row per question to inserter.
func WithInteractionLog(inserter commands.RowInserter) AnswerOption {
	return func(w *AnswerWorkflow) { w.recorder = inserter }
}

// NewAnswerWorkflow builds the answer pipeline.
func NewAnswerWorkflow(classifier *intent.Classifier, router *strategy.Router, opts ...AnswerOption) *AnswerWorkflow {
	w := &AnswerWorkflow{
		BaseCommand: *cor.NewBaseCommand("answer-workflow"),
		classifier:  classifier,
		router:      router,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.initializeChain()
	return w
}

func (w *AnswerWorkflow) initializeChain() {
	out := cor.NewBaseChain(w.GetName())
	out.AddCommand(commands.NewQuestionClassifier("classify-question", w.classifier))
	out.AddCommand(commands.NewEvidenceAssembler("assemble-evidence", w.source, w.windower, w.chunkGap))
	out.AddCommand(commands.NewAnswerRouter("route-answer", w.router))
	out.AddCommand(commands.NewAnswerRenderer("render-answer"))
	w.chain = out

	if w.recorder != nil {
		w.finally = append(w.finally, commands.NewInteractionRecorder("record-interaction", w.recorder))
	}
}

// IsExecutable only needs a Go context; the chain validates its input.
func (w *AnswerWorkflow) IsExecutable(context cor.Context) bool {
	return w.chain.IsExecutable(context)
}

func (w *AnswerWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
	for _, cmd := range w.finally {
		if cmd.IsExecutable(context) {
			cmd.Execute(context)
		}
	}
}
