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

// Package commands contains the individual steps the answer and transcript
// warm-up workflows are built from. Each step is a cor.Command; steps share
// state through the context keys declared here.
package commands

import (
	"context"
)

// Context keys shared between the answer workflow's commands.
const (
	ParamRequest      = "__request__"      // *model.AskRequest
	ParamIntent       = "__intent__"       // model.QuestionIntent
	ParamVideoContext = "__video_context__" // *model.VideoContext
	ParamEvidence     = "__evidence__"     // strategy.Evidence
	ParamResult       = "__result__"       // strategy.Result
	ParamAnswer       = "__answer__"       // string, rendered HTML
	ParamInteraction  = "__interaction__"  // *model.Interaction
	ParamVideoID      = "__video_id__"     // string
)

// TranscriptSource looks up the raw caption document of a video. An empty
// string with a nil error means the video has no captions.
type TranscriptSource interface {
	Fetch(ctx context.Context, videoID string) (string, error)
}
