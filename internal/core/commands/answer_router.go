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

package commands

import (
	"fmt"

	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/cor"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/model"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/prompt"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/strategy"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/transcript"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// AnswerRouter hands the assembled evidence to the strategy router and
// stores the raw answer under ParamResult.
type AnswerRouter struct {
	cor.BaseCommand
	router *strategy.Router
}

func NewAnswerRouter(name string, router *strategy.Router) *AnswerRouter {
	return &AnswerRouter{BaseCommand: *cor.NewBaseCommand(name), router: router}
}

func (r *AnswerRouter) IsExecutable(context cor.Context) bool {
	return r.BaseCommand.IsExecutable(context) && context.Get(ParamEvidence) != nil
}

func (r *AnswerRouter) Execute(context cor.Context) {
	req := context.Get(r.GetInputParam()).(*model.AskRequest)
	evidence := context.Get(ParamEvidence).(strategy.Evidence)
	label, _ := context.Get(ParamIntent).(model.QuestionIntent)

	timestamp := req.VideoInfo.Timestamp
	if timestamp == "" {
		timestamp = transcript.FormatTimestamp(CurrentTime(req.VideoInfo))
	}
	sreq := strategy.Request{
		Question: req.Question,
		Intent:   label,
		Metadata: prompt.Metadata{
			VideoID:   req.VideoInfo.VideoID,
			Title:     req.VideoInfo.Title,
			Timestamp: timestamp,
		},
		Evidence: evidence,
		History:  req.ConversationHistory,
	}

	combined := req.Mode == model.ModeCombined
	if planned, ok := r.router.Select(sreq.Evidence, combined); ok {
		trace.SpanFromContext(context.GetContext()).SetAttributes(
			attribute.String("planned_strategy", string(planned.Name())))
	}
	result, err := r.router.Route(context.GetContext(), sreq, combined)
	context.Add(ParamResult, result)
	if err != nil {
		r.Fail(context, fmt.Errorf("no strategy produced an answer: %w", err))
		return
	}
	trace.SpanFromContext(context.GetContext()).SetAttributes(
		attribute.String("strategy", string(result.Strategy)),
		attribute.String("intent", string(label)))
	r.Succeed(context)
	context.Add(r.GetOutputParam(), result)
}
