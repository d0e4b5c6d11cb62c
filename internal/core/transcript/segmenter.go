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

package transcript

import (
	"sort"
	"strings"

	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/model"
)

// DefaultChunkGapSeconds is the maximum distance between a chunk's anchor and
// any segment that joins it.
const DefaultChunkGapSeconds = 30.0

// Segment cleans caption events into transcript segments. The fragments of an
// event are concatenated, newlines become spaces, runs of whitespace collapse
// and events left with no text are dropped. The result is ordered by start
// time; events with equal starts keep their input order.
func Segment(events []model.CaptionEvent) []model.TranscriptSegment {
	out := make([]model.TranscriptSegment, 0, len(events))
	for _, e := range events {
		text := strings.Join(strings.Fields(strings.Join(e.Fragments, "")), " ")
		if text == "" {
			continue
		}
		start := float64(e.StartMs) / 1000
		out = append(out, model.TranscriptSegment{
			StartSeconds: start,
			Label:        FormatTimestamp(start),
			Text:         text,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartSeconds < out[j].StartSeconds
	})
	return out
}

// Chunk groups segments with the default 30 second gap.
func Chunk(segments []model.TranscriptSegment) []model.TranscriptChunk {
	return ChunkWithGap(segments, DefaultChunkGapSeconds)
}

// ChunkWithGap groups ordered segments into chunks. A segment opens a new
// chunk when it starts more than gap seconds after the current chunk's anchor.
func ChunkWithGap(segments []model.TranscriptSegment, gap float64) []model.TranscriptChunk {
	out := make([]model.TranscriptChunk, 0)
	if len(segments) == 0 {
		return out
	}

	var current *model.TranscriptChunk
	texts := make([]string, 0)
	flush := func() {
		if current != nil {
			current.Text = strings.Join(texts, " ")
			out = append(out, *current)
		}
	}
	for _, seg := range segments {
		if current == nil || seg.StartSeconds-current.StartSeconds > gap {
			flush()
			current = &model.TranscriptChunk{
				StartSeconds: seg.StartSeconds,
				Label:        FormatTimestamp(seg.StartSeconds),
			}
			texts = texts[:0]
		}
		current.Segments = append(current.Segments, seg)
		texts = append(texts, seg.Text)
	}
	flush()
	return out
}

// Build parses a raw caption document and chunks it. The error is
// model.ErrMalformedTranscript (possibly wrapped) when the document is not
// timed text.
func Build(raw string, gap float64) ([]model.TranscriptChunk, error) {
	events, err := ParseTimedText(raw)
	if err != nil {
		return nil, err
	}
	if gap <= 0 {
		gap = DefaultChunkGapSeconds
	}
	return ChunkWithGap(Segment(events), gap), nil
}

// Normalize repairs chunks supplied by a client: a missing start offset is
// recovered from the label, a missing label from the offset, empty chunks are
// dropped and the rest ordered by start.
func Normalize(chunks []model.TranscriptChunk) []model.TranscriptChunk {
	out := make([]model.TranscriptChunk, 0, len(chunks))
	for _, c := range chunks {
		c.Text = strings.TrimSpace(c.Text)
		if c.Text == "" {
			continue
		}
		if c.StartSeconds <= 0 && c.Label != "" {
			if v, err := ParseTimestamp(c.Label); err == nil {
				c.StartSeconds = v
			}
		}
		if c.Label == "" {
			c.Label = FormatTimestamp(c.StartSeconds)
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartSeconds < out[j].StartSeconds
	})
	return out
}
