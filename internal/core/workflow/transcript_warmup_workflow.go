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

package workflow

import (
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/commands"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/cor"
)

// TranscriptWarmupWorkflow fetches and caches the transcript named by a
// `{"videoId": "..."}` message so the first question on a video does not pay
// for the caption download.
type TranscriptWarmupWorkflow struct {
	cor.BaseCommand
	chain cor.Chain
}

// NewTranscriptWarmupWorkflow builds the warm-up pipeline over source.
func NewTranscriptWarmupWorkflow(source commands.TranscriptSource) *TranscriptWarmupWorkflow {
	w := &TranscriptWarmupWorkflow{BaseCommand: *cor.NewBaseCommand("transcript-warmup-workflow")}
	out := cor.NewBaseChain(w.GetName())
	out.AddCommand(commands.NewVideoTriggerToID("video-trigger-to-id"))
	out.AddCommand(commands.NewTranscriptPrefetch("prefetch-transcript", source))
	w.chain = out
	return w
}

func (w *TranscriptWarmupWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}
