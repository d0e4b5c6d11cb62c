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

package model

import (
	"bytes"
	"encoding/json"
	"errors"
)

// ModeCombined asks the router to analyse transcript and frames together.
const ModeCombined = "combined"

// VideoInfo describes the video the viewer is watching.
type VideoInfo struct {
	Title       string   `json:"title"`
	Timestamp   string   `json:"timestamp"`             // Current position as M:SS or H:MM:SS.
	VideoID     string   `json:"videoId"`               //
	CurrentTime *float64 `json:"currentTime,omitempty"` // Current position in seconds; wins over Timestamp when set.
}

// TranscriptInput holds the polymorphic `transcript` request field, which is
// either a string (raw timed text or flattened plain text) or an array of
// pre-chunked transcript entries.
type TranscriptInput struct {
	Raw    string
	Chunks []TranscriptChunk
}

// UnmarshalJSON accepts a JSON string or a JSON array of chunks.
func (t *TranscriptInput) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	switch trimmed[0] {
	case '"':
		return json.Unmarshal(trimmed, &t.Raw)
	case '[':
		return json.Unmarshal(trimmed, &t.Chunks)
	}
	return errors.New("transcript must be a string, an array of chunks or null")
}

// MarshalJSON writes the chunk form when chunks are present, the raw string otherwise.
func (t TranscriptInput) MarshalJSON() ([]byte, error) {
	if len(t.Chunks) > 0 {
		return json.Marshal(t.Chunks)
	}
	return json.Marshal(t.Raw)
}

// IsEmpty reports whether the input carries no transcript at all.
func (t *TranscriptInput) IsEmpty() bool {
	return t == nil || (len(t.Chunks) == 0 && len(bytes.TrimSpace([]byte(t.Raw))) == 0)
}

// AskRequest is the body of a question sent by the client.
type AskRequest struct {
	Question            string             `json:"question"`
	VideoInfo           VideoInfo          `json:"videoInfo"`
	Transcript          *TranscriptInput   `json:"transcript"`
	VisualFrames        []Frame            `json:"visualFrames"`
	ConversationHistory []ConversationTurn `json:"conversationHistory"`
	Mode                string             `json:"mode,omitempty"`
}

// AskResponse is returned for every question, successful or not.
type AskResponse struct {
	Success  bool   `json:"success"`
	Answer   string `json:"answer,omitempty"`
	Error    string `json:"error,omitempty"`
	Intent   string `json:"intent,omitempty"`
	Strategy string `json:"strategy,omitempty"`
}

// TranscriptResponse is returned by the transcript lookup endpoint.
type TranscriptResponse struct {
	Success    bool    `json:"success"`
	Transcript *string `json:"transcript"`
	Message    string  `json:"message,omitempty"`
	Error      string  `json:"error,omitempty"`
}
