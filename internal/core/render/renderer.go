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

// Package render converts a generated answer into display HTML.
//
// The answer is escaped first, then a small markdown subset is applied:
// headings, bold, bullet lists, inline code and paragraphs. Time references
// ("At 2:30", "earlier at 1:02:05", "[2:30]") become seekable links and frame
// references ("Frame 3 (20 seconds ago)") become styled spans. Render is a
// single pass over plain text; feeding its output back in is not supported.
package render

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/transcript"
)

var (
	escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

	headingPattern = regexp.MustCompile(`^(#{1,3})\s+(.+)$`)
	bulletPattern  = regexp.MustCompile(`^\s*[-*]\s+(.+)$`)
	boldPattern    = regexp.MustCompile(`\*\*(.+?)\*\*`)
	// "at" also covers "earlier at" and "later at"; only the time is linked.
	timePattern    = regexp.MustCompile(`(?i)\b(at\s+)(\d{1,2}:\d{2}(?::\d{2})?)\b`)
	bracketPattern = regexp.MustCompile(`\[(\d{1,2}:\d{2}(?::\d{2})?)\]`)
	framePattern   = regexp.MustCompile(`(?i)\bframe\s+\d+(?:\s+\(\d+\s+seconds?\s+ago\))?`)
)

// TimestampLink renders the seek link for a M:SS or H:MM:SS label. Labels
// that do not parse are returned unchanged.
func TimestampLink(label string) string {
	seconds, err := transcript.ParseTimestamp(label)
	if err != nil {
		return label
	}
	return fmt.Sprintf(`<a href="#" class="timestamp-link" data-time="%d">%s</a>`, int64(seconds), label)
}

// Render converts answer text to HTML.
func Render(answer string) string {
	lines := strings.Split(escaper.Replace(strings.ReplaceAll(answer, "\r\n", "\n")), "\n")

	var out strings.Builder
	paragraph := make([]string, 0)
	items := make([]string, 0)

	flushParagraph := func() {
		if len(paragraph) > 0 {
			out.WriteString("<p>")
			out.WriteString(strings.Join(paragraph, "\n"))
			out.WriteString("</p>")
			paragraph = paragraph[:0]
		}
	}
	flushList := func() {
		if len(items) > 0 {
			out.WriteString("<ul>")
			for _, it := range items {
				out.WriteString("<li>")
				out.WriteString(it)
				out.WriteString("</li>")
			}
			out.WriteString("</ul>")
			items = items[:0]
		}
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			flushParagraph()
			flushList()
		case headingPattern.MatchString(trimmed):
			flushParagraph()
			flushList()
			m := headingPattern.FindStringSubmatch(trimmed)
			level := len(m[1])
			fmt.Fprintf(&out, "<h%d>%s</h%d>", level, inline(m[2]), level)
		case bulletPattern.MatchString(line):
			flushParagraph()
			items = append(items, inline(bulletPattern.FindStringSubmatch(line)[1]))
		default:
			flushList()
			paragraph = append(paragraph, inline(trimmed))
		}
	}
	flushParagraph()
	flushList()
	return out.String()
}

// inline applies the span-level rules. Text between a balanced pair of
// backticks is emitted as code and left otherwise untouched.
func inline(text string) string {
	parts := strings.Split(text, "`")
	if len(parts)%2 == 0 {
		// Unbalanced: keep the last backtick literal.
		parts[len(parts)-2] = parts[len(parts)-2] + "`" + parts[len(parts)-1]
		parts = parts[:len(parts)-1]
	}
	var sb strings.Builder
	for i, p := range parts {
		if i%2 == 1 {
			sb.WriteString("<code>")
			sb.WriteString(p)
			sb.WriteString("</code>")
			continue
		}
		sb.WriteString(spans(p))
	}
	return sb.String()
}

func spans(text string) string {
	text = boldPattern.ReplaceAllString(text, "<strong>$1</strong>")
	text = timePattern.ReplaceAllStringFunc(text, func(m string) string {
		sub := timePattern.FindStringSubmatch(m)
		return sub[1] + TimestampLink(sub[2])
	})
	text = bracketPattern.ReplaceAllStringFunc(text, func(m string) string {
		return TimestampLink(bracketPattern.FindStringSubmatch(m)[1])
	})
	return framePattern.ReplaceAllString(text, `<span class="frame-ref">$0</span>`)
}
