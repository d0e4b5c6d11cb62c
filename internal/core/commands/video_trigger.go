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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/cor"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/model"
)

// VideoTrigger is the Pub/Sub message asking for a transcript warm-up.
type VideoTrigger struct {
	VideoID string `json:"videoId"`
}

// VideoTriggerToID parses a warm-up message and outputs its video id.
type VideoTriggerToID struct {
	cor.BaseCommand
}

func NewVideoTriggerToID(name string) *VideoTriggerToID {
	return &VideoTriggerToID{BaseCommand: *cor.NewBaseCommand(name)}
}

func (c *VideoTriggerToID) Execute(context cor.Context) {
	in, ok := context.Get(c.GetInputParam()).(string)
	if !ok {
		c.Fail(context, fmt.Errorf("%s: message is not text", c.GetName()))
		return
	}
	var msg VideoTrigger
	if err := json.Unmarshal([]byte(in), &msg); err != nil {
		c.Fail(context, fmt.Errorf("failed to unmarshal video trigger: %w", err))
		return
	}
	id := strings.TrimSpace(msg.VideoID)
	if id == "" {
		c.Fail(context, fmt.Errorf("video trigger: %w", model.ErrNoVideoContext))
		return
	}
	context.Add(ParamVideoID, id)
	c.Succeed(context)
	context.Add(c.GetOutputParam(), id)
}
