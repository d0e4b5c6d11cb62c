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

	"github.com/jaycherian/gcp-go-lecture-lens/internal/cloud"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/commands"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/workflow"
)

// TranscriptWarmupListener is the topic subscription key that pre-fetches
// transcripts for videos a client is about to open.
const TranscriptWarmupListener = "TranscriptWarmup"

// SetupListeners attaches the workflows to their Pub/Sub listeners and starts
// them. Listeners only exist when a Google project is configured.
func SetupListeners(ctx context.Context, cloudClients *cloud.ServiceClients, source commands.TranscriptSource) {
	listener, ok := cloudClients.PubSubListeners[TranscriptWarmupListener]
	if !ok {
		return
	}
	listener.SetCommand(workflow.NewTranscriptWarmupWorkflow(source))
	listener.Listen(ctx)
}
