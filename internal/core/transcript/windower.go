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
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/model"
)

// GapSeparator is the line placed between the opening chunks and the recent
// window when the two ranges are not contiguous.
const GapSeparator = "..."

// Windower selects the evidence that is relevant to a playback position.
type Windower struct {
	BeforeSeconds float64 // Look-back from the current time.
	AfterSeconds  float64 // Look-ahead from the current time.
	OriginLead    int     // Opening chunks always included for ORIGIN questions.
	RawLimit      int     // Characters kept from an unparseable transcript.
	MaxFrames     int     // Upper bound on frames handed to a vision prompt.
}

// NewWindower returns a Windower with the default bounds: [T-180s, T+30s], four
// opening chunks, 3000 raw characters and six frames.
func NewWindower() *Windower {
	return &Windower{
		BeforeSeconds: 180,
		AfterSeconds:  30,
		OriginLead:    4,
		RawLimit:      3000,
		MaxFrames:     6,
	}
}

// Window renders the chunks relevant to currentTime as "[label] text" lines.
//
// Every chunk starting inside the window is included. ORIGIN questions also get
// the opening chunks, separated from the window by GapSeparator when chunks lie
// between the two ranges. A chunk is never emitted twice. If the window is empty
// the chunk nearest before currentTime is used instead, so a non-empty
// transcript always yields non-empty evidence.
func (w *Windower) Window(chunks []model.TranscriptChunk, currentTime float64, intent model.QuestionIntent) string {
	if len(chunks) == 0 {
		return ""
	}
	ordered := make([]model.TranscriptChunk, len(chunks))
	copy(ordered, chunks)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].StartSeconds < ordered[j].StartSeconds
	})

	lo, hi := currentTime-w.BeforeSeconds, currentTime+w.AfterSeconds
	window := make([]int, 0)
	for i, c := range ordered {
		if c.StartSeconds >= lo && c.StartSeconds <= hi {
			window = append(window, i)
		}
	}
	if len(window) == 0 {
		window = append(window, nearestBefore(ordered, currentTime))
	}

	selected := make([]int, 0, len(window)+w.OriginLead)
	seen := make(map[int]bool)
	gapAfter := -1
	if intent == model.IntentOrigin {
		for i := 0; i < w.OriginLead && i < len(ordered); i++ {
			selected = append(selected, i)
			seen[i] = true
		}
		if len(selected) > 0 && window[0] > selected[len(selected)-1]+1 {
			gapAfter = len(selected) - 1
		}
	}
	for _, i := range window {
		if !seen[i] {
			selected = append(selected, i)
			seen[i] = true
		}
	}

	var sb strings.Builder
	for n, i := range selected {
		if n > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "[%s] %s", ordered[i].Label, ordered[i].Text)
		if n == gapAfter {
			sb.WriteByte('\n')
			sb.WriteString(GapSeparator)
		}
	}
	return sb.String()
}

// nearestBefore returns the index of the last chunk starting at or before t,
// or of the first chunk when t precedes them all.
func nearestBefore(ordered []model.TranscriptChunk, t float64) int {
	idx := 0
	for i, c := range ordered {
		if c.StartSeconds <= t {
			idx = i
		}
	}
	return idx
}

// RawWindow is the degraded evidence used when a transcript could not be
// chunked: the leading RawLimit characters, whitespace collapsed, unlabelled.
func (w *Windower) RawWindow(raw string) string {
	text := strings.Join(strings.Fields(raw), " ")
	runes := []rune(text)
	if w.RawLimit > 0 && len(runes) > w.RawLimit {
		return string(runes[:w.RawLimit])
	}
	return text
}

var relativeLabel = regexp.MustCompile(`(?i)^(\d+)\s*(?:s|sec|secs|seconds?)\s+ago$`)

// frameTime works out the absolute capture time of a frame, trying the
// explicit offset, the relative label and the timestamp label in that order.
func frameTime(f model.Frame, currentTime float64) (float64, bool) {
	if f.TimeSeconds > 0 {
		return f.TimeSeconds, true
	}
	label := strings.TrimSpace(f.Label)
	if strings.EqualFold(label, "now") {
		return currentTime, true
	}
	if m := relativeLabel.FindStringSubmatch(label); m != nil {
		ago, _ := strconv.Atoi(m[1])
		return currentTime - float64(ago), true
	}
	if f.TimestampLabel != "" {
		if v, err := ParseTimestamp(f.TimestampLabel); err == nil {
			return v, true
		}
	}
	return 0, false
}

// Frames orders frames oldest first, drops frames whose known capture time is
// outside the window and keeps at most MaxFrames of the newest. Frames with no
// recoverable time are treated as captured now. When every frame lies outside
// the window the one nearest to currentTime is kept, so non-empty input always
// yields at least one frame.
func (w *Windower) Frames(frames []model.Frame, currentTime float64) []model.Frame {
	type timed struct {
		frame model.Frame
		at    float64
	}
	lo, hi := currentTime-w.BeforeSeconds, currentTime+w.AfterSeconds
	kept := make([]timed, 0, len(frames))
	var nearest *timed
	for _, f := range frames {
		at, ok := frameTime(f, currentTime)
		if !ok {
			at = currentTime
		}
		if f.TimeSeconds <= 0 {
			f.TimeSeconds = at
		}
		if f.TimestampLabel == "" {
			f.TimestampLabel = FormatTimestamp(at)
		}
		if at < lo || at > hi {
			if nearest == nil || math.Abs(at-currentTime) < math.Abs(nearest.at-currentTime) {
				nearest = &timed{frame: f, at: at}
			}
			continue
		}
		kept = append(kept, timed{frame: f, at: at})
	}
	// Frames were supplied but none is inside the window: keep the closest
	// one so the request still carries visual evidence.
	if len(kept) == 0 && nearest != nil {
		kept = append(kept, *nearest)
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].at < kept[j].at })
	if w.MaxFrames > 0 && len(kept) > w.MaxFrames {
		kept = kept[len(kept)-w.MaxFrames:]
	}
	out := make([]model.Frame, 0, len(kept))
	for _, k := range kept {
		out = append(out, k.frame)
	}
	return out
}
