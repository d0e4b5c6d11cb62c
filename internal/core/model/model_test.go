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

// Package model_test contains unit tests for the request decoding and the
// persistent interaction record.
package model_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInteraction(t *testing.T) {
	in := model.NewInteraction("abc123", "what is this?")

	_, err := uuid.Parse(in.Id)
	assert.Nil(t, err)
	assert.Equal(t, "abc123", in.VideoId)
	assert.WithinDuration(t, time.Now(), in.CreatedAt, time.Second)

	in.Finish(model.IntentExplanation, model.StrategyTranscript, true)
	assert.Equal(t, "EXPLANATION", in.Intent)
	assert.Equal(t, "transcript", in.Strategy)
	assert.True(t, in.Success)
	assert.GreaterOrEqual(t, in.LatencyMs, int64(0))
}

func TestAskRequestTranscriptString(t *testing.T) {
	var req model.AskRequest
	err := json.Unmarshal([]byte(`{"question":"q","videoInfo":{"videoId":"v","timestamp":"1:05"},"transcript":"hello world"}`), &req)
	require.NoError(t, err)
	require.NotNil(t, req.Transcript)
	assert.Equal(t, "hello world", req.Transcript.Raw)
	assert.Empty(t, req.Transcript.Chunks)
	assert.Nil(t, req.VideoInfo.CurrentTime)
}

func TestAskRequestTranscriptChunks(t *testing.T) {
	var req model.AskRequest
	body := `{"question":"q","videoInfo":{"videoId":"v","currentTime":42.5},
		"transcript":[{"label":"0:00","text":"intro"},{"label":"0:31","text":"next","startTimeSeconds":31}],
		"mode":"combined"}`
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	require.NotNil(t, req.Transcript)
	assert.Len(t, req.Transcript.Chunks, 2)
	assert.Equal(t, "intro", req.Transcript.Chunks[0].Text)
	assert.Equal(t, 31.0, req.Transcript.Chunks[1].StartSeconds)
	assert.Equal(t, 42.5, *req.VideoInfo.CurrentTime)
	assert.Equal(t, model.ModeCombined, req.Mode)
}

func TestAskRequestTranscriptNullAndInvalid(t *testing.T) {
	var req model.AskRequest
	require.NoError(t, json.Unmarshal([]byte(`{"question":"q","transcript":null}`), &req))
	assert.True(t, req.Transcript.IsEmpty())

	err := json.Unmarshal([]byte(`{"question":"q","transcript":12}`), &req)
	assert.Error(t, err)
}

func TestAskRequestAcceptsStringFrames(t *testing.T) {
	var req model.AskRequest
	body := `{"question":"q","videoInfo":{"videoId":"v"},
		"visualFrames":["data:image/png;base64,iVBORw0KGgo=","iVBORw0KGgo=",{"timestamp":"1:00","label":"now","image":"abc"}]}`
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	require.Len(t, req.VisualFrames, 3)
	assert.Equal(t, "data:image/png;base64,iVBORw0KGgo=", req.VisualFrames[0].Image)
	assert.Equal(t, "iVBORw0KGgo=", req.VisualFrames[1].Image)
	assert.Empty(t, req.VisualFrames[1].TimestampLabel)
	assert.Equal(t, "1:00", req.VisualFrames[2].TimestampLabel)
	assert.Equal(t, "now", req.VisualFrames[2].Label)
	assert.Equal(t, "abc", req.VisualFrames[2].Image)

	assert.Error(t, json.Unmarshal([]byte(`{"visualFrames":[12]}`), &req))
}

func TestGenerationFailureUnwrap(t *testing.T) {
	cause := errors.New("quota exceeded")
	var err error = model.NewGenerationFailure(model.StrategyVision, cause)

	assert.True(t, errors.Is(err, cause))
	assert.True(t, model.IsGenerationFailure(err))
	assert.Contains(t, err.Error(), "vision")

	var failure *model.GenerationFailure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, model.StrategyVision, failure.Strategy)
}

func TestRecentTurns(t *testing.T) {
	history := make([]model.ConversationTurn, 0)
	for i := 0; i < 9; i++ {
		history = append(history, model.ConversationTurn{Role: model.RoleUser, Content: string(rune('a' + i))})
	}
	recent := model.RecentTurns(history, 6)
	assert.Len(t, recent, 6)
	assert.Equal(t, "d", recent[0].Content)
	assert.Equal(t, "i", recent[5].Content)
	assert.Nil(t, model.RecentTurns(nil, 6))
	assert.Len(t, model.RecentTurns(history[:2], 6), 2)
}
