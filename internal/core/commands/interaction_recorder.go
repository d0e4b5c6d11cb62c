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
	"context"
	"log/slog"

	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/cor"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/model"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/strategy"
)

// RowInserter streams rows into a table. *bigquery.Inserter satisfies it.
type RowInserter interface {
	Put(ctx context.Context, src interface{}) error
}

// InteractionRecorder writes one row per answered question. It runs after
// the answer chain whatever its outcome and never records an error of its
// own: a logging failure must not fail the question.
type InteractionRecorder struct {
	cor.BaseCommand
	inserter RowInserter
}

func NewInteractionRecorder(name string, inserter RowInserter) *InteractionRecorder {
	return &InteractionRecorder{BaseCommand: *cor.NewBaseCommand(name), inserter: inserter}
}

func (r *InteractionRecorder) IsExecutable(chCtx cor.Context) bool {
	return r.inserter != nil && chCtx != nil && chCtx.GetContext() != nil && chCtx.Get(ParamInteraction) != nil
}

func (r *InteractionRecorder) Execute(chCtx cor.Context) {
	interaction := chCtx.Get(ParamInteraction).(*model.Interaction)
	label, _ := chCtx.Get(ParamIntent).(model.QuestionIntent)
	result, _ := chCtx.Get(ParamResult).(strategy.Result)
	interaction.Finish(label, result.Strategy, !chCtx.HasErrors())

	// The request context may already be done; the row should still land.
	ctx := context.WithoutCancel(chCtx.GetContext())
	if err := r.inserter.Put(ctx, interaction); err != nil {
		if r.ErrorCounter != nil {
			r.ErrorCounter.Add(ctx, 1)
		}
		slog.WarnContext(ctx, "failed to record interaction", "video_id", interaction.VideoId, "id", interaction.Id, "error", err)
		return
	}
	r.Succeed(chCtx)
}
