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

// Package model defines the core data structures for the application.
// This file, `transient.go`, contains the structures that live only for the
// duration of a single question: caption events, transcript segments and
// chunks, captured frames and the assembled video context. None of them are
// persisted; the only thing that outlives a request is the raw transcript
// text held by the transcript cache.
package model

import (
	"bytes"
	"encoding/json"
)

// CaptionEvent is one time-coded entry of a raw caption stream. A single
// event may carry several text fragments (the json3 caption format splits a
// caption line into word-level segments).
type CaptionEvent struct {
	StartMs   int64    // Start of the event, in milliseconds from the beginning of the video.
	Fragments []string // Text fragments, in display order.
}

// TranscriptSegment is a cleaned caption event. Segments produced by the
// segmenter are ordered by StartSeconds and never carry empty text.
type TranscriptSegment struct {
	StartSeconds float64 `json:"startTimeSeconds"`
	Label        string  `json:"label"` // M:SS or H:MM:SS form of StartSeconds.
	Text         string  `json:"text"`
}

// TranscriptChunk groups consecutive segments whose start lies within the
// chunking gap of the chunk's anchor (its first segment). Chunks partition the
// segment sequence.
type TranscriptChunk struct {
	StartSeconds float64             `json:"startTimeSeconds"`
	Label        string              `json:"label"`
	Text         string              `json:"text"`
	Segments     []TranscriptSegment `json:"segments,omitempty"`
}

// Frame is a captured still from the video. Frames may arrive in any order
// ("now" first, then progressively older); use TimeSeconds to rebuild the
// chronology.
type Frame struct {
	TimestampLabel string  `json:"timestamp"`   // M:SS label of the capture time.
	TimeSeconds    float64 `json:"timeSeconds"` // Absolute capture time, when known.
	Label          string  `json:"label"`       // Relative label, e.g. "now", "10s ago".
	Image          string  `json:"image"`       // Base64 payload or data URL as sent by the client.
	ImageData      []byte  `json:"-"`           // Decoded image bytes.
	MIMEType       string  `json:"-"`           // Sniffed MIME type of ImageData.
}

// UnmarshalJSON accepts the frame object or, from older clients, a bare
// base64 payload or data URL string. A string frame has no capture time and
// is treated as captured now.
func (f *Frame) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		*f = Frame{}
		return json.Unmarshal(trimmed, &f.Image)
	}
	type plain Frame
	return json.Unmarshal(trimmed, (*plain)(f))
}

// VideoContext is the evidence assembled for one question.
type VideoContext struct {
	VideoID            string
	Title              string
	CurrentTimeSeconds float64
	Transcript         []TranscriptChunk // nil when no usable timed transcript exists.
	RawTranscript      string            // Unparsed transcript text, used for the degraded window.
	Frames             []Frame           // nil when no frames were captured.
}

// HasTranscript reports whether any transcript evidence, timed or raw, exists.
func (v *VideoContext) HasTranscript() bool {
	return len(v.Transcript) > 0 || len(v.RawTranscript) > 0
}

// HasFrames reports whether at least one decoded frame exists.
func (v *VideoContext) HasFrames() bool {
	return len(v.Frames) > 0
}
