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
	"encoding/xml"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/model"
	"github.com/tidwall/gjson"
)

// xmlTranscript is the legacy timed-text document:
//
//	<transcript><text start="1.2" dur="3.4">caption</text>...</transcript>
type xmlTranscript struct {
	XMLName xml.Name  `xml:"transcript"`
	Texts   []xmlText `xml:"text"`
}

type xmlText struct {
	Start string `xml:"start,attr"`
	Dur   string `xml:"dur,attr"`
	Body  string `xml:",chardata"`
}

// ParseTimedText decodes a raw caption document into caption events. Both the
// XML transcript format and the json3 format are understood. Anything else,
// including flattened plain text, yields model.ErrMalformedTranscript.
func ParseTimedText(raw string) ([]model.CaptionEvent, error) {
	trimmed := strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(trimmed, "<"):
		return parseXML(trimmed)
	case strings.HasPrefix(trimmed, "{"):
		return parseJSON3(trimmed)
	}
	return nil, model.ErrMalformedTranscript
}

func parseXML(raw string) ([]model.CaptionEvent, error) {
	var doc xmlTranscript
	if err := xml.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMalformedTranscript, err)
	}
	out := make([]model.CaptionEvent, 0, len(doc.Texts))
	for _, t := range doc.Texts {
		start, err := strconv.ParseFloat(strings.TrimSpace(t.Start), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad start %q", model.ErrMalformedTranscript, t.Start)
		}
		// Caption bodies are commonly double escaped (&amp;#39;); the XML decoder
		// removes one level, html.UnescapeString the other.
		out = append(out, model.CaptionEvent{
			StartMs:   int64(start * 1000),
			Fragments: []string{html.UnescapeString(t.Body)},
		})
	}
	return out, nil
}

func parseJSON3(raw string) ([]model.CaptionEvent, error) {
	if !gjson.Valid(raw) {
		return nil, fmt.Errorf("%w: invalid json", model.ErrMalformedTranscript)
	}
	events := gjson.Get(raw, "events")
	if !events.IsArray() {
		return nil, fmt.Errorf("%w: no events", model.ErrMalformedTranscript)
	}
	out := make([]model.CaptionEvent, 0)
	events.ForEach(func(_, event gjson.Result) bool {
		segs := event.Get("segs")
		// Events without segments only position the caption window.
		if !segs.IsArray() {
			return true
		}
		fragments := make([]string, 0)
		segs.ForEach(func(_, seg gjson.Result) bool {
			fragments = append(fragments, html.UnescapeString(seg.Get("utf8").String()))
			return true
		})
		out = append(out, model.CaptionEvent{
			StartMs:   event.Get("tStartMs").Int(),
			Fragments: fragments,
		})
		return true
	})
	return out, nil
}
