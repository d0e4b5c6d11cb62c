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
	"log/slog"

	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/cor"
)

// TranscriptPrefetch fetches, and so caches, the transcript of a video id.
// Fetch errors fail the command so the triggering message is redelivered.
type TranscriptPrefetch struct {
	cor.BaseCommand
	source TranscriptSource
}

func NewTranscriptPrefetch(name string, source TranscriptSource) *TranscriptPrefetch {
	return &TranscriptPrefetch{BaseCommand: *cor.NewBaseCommand(name), source: source}
}

func (c *TranscriptPrefetch) Execute(context cor.Context) {
	id := context.Get(c.GetInputParam()).(string)
	raw, err := c.source.Fetch(context.GetContext(), id)
	if err != nil {
		c.Fail(context, fmt.Errorf("failed to prefetch transcript for %s: %w", id, err))
		return
	}
	slog.InfoContext(context.GetContext(), "transcript warmed", "video_id", id, "bytes", len(raw))
	c.Succeed(context)
	context.Add(c.GetOutputParam(), len(raw) > 0)
}
