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

package render_test

import (
	"strings"
	"testing"

	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/render"
	"github.com/stretchr/testify/assert"
)

func TestTimeReferenceBecomesLink(t *testing.T) {
	out := render.Render("At 2:30 we see the chain rule.")
	assert.Equal(t,
		`<p>At <a href="#" class="timestamp-link" data-time="150">2:30</a> we see the chain rule.</p>`,
		out)
}

func TestTimeReferenceVariants(t *testing.T) {
	out := render.Render("This was set up earlier at 0:45 and revisited later at 1:02:05.")
	assert.Contains(t, out, `earlier at <a href="#" class="timestamp-link" data-time="45">0:45</a>`)
	assert.Contains(t, out, `later at <a href="#" class="timestamp-link" data-time="3725">1:02:05</a>`)

	// "that" must not be read as "at".
	out = render.Render("that 2:30 mark")
	assert.NotContains(t, out, "timestamp-link")
}

func TestBracketLabelsBecomeLinks(t *testing.T) {
	out := render.Render("The definition appears in [3:10] and again [12:00].")
	assert.Contains(t, out, `data-time="190">3:10</a>`)
	assert.Contains(t, out, `data-time="720">12:00</a>`)
	assert.NotContains(t, out, "[")
	assert.NotContains(t, out, "]")
}

func TestEscaping(t *testing.T) {
	out := render.Render(`<script>alert("x")</script> & more`)
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.Contains(t, out, "&amp; more")
}

func TestMarkdownSubset(t *testing.T) {
	answer := strings.Join([]string{
		"## Timeline",
		"- At 0:10 the **limit** is introduced",
		"- At 1:20 it is used",
		"",
		"Use `f(x) = x*x` here.",
		"### Summary",
		"Plain closing line.",
	}, "\n")
	out := render.Render(answer)

	assert.Contains(t, out, "<h2>Timeline</h2>")
	assert.Contains(t, out, "<ul><li>At <a href=")
	assert.Contains(t, out, "<strong>limit</strong>")
	assert.Equal(t, 1, strings.Count(out, "<ul>"))
	assert.Equal(t, 2, strings.Count(out, "<li>"))
	assert.Contains(t, out, "<code>f(x) = x*x</code>")
	assert.Contains(t, out, "<h3>Summary</h3>")
	assert.True(t, strings.HasSuffix(out, "<p>Plain closing line.</p>"))
}

func TestParagraphs(t *testing.T) {
	out := render.Render("first\nstill first\n\nsecond")
	assert.Equal(t, "<p>first\nstill first</p><p>second</p>", out)
}

func TestFrameReferences(t *testing.T) {
	out := render.Render("Frame 3 (20 seconds ago) shows the graph, Frame 4 the table.")
	assert.Contains(t, out, `<span class="frame-ref">Frame 3 (20 seconds ago)</span>`)
	assert.Contains(t, out, `<span class="frame-ref">Frame 4</span>`)
	assert.NotContains(t, out, "data-time")
}

func TestCodeIsLeftAlone(t *testing.T) {
	out := render.Render("Run `at 2:30` literally, but `unbalanced")
	assert.Contains(t, out, "<code>at 2:30</code>")
	assert.NotContains(t, out, "timestamp-link")
	assert.Contains(t, out, "`unbalanced")
}

func TestInvalidLabelIsKept(t *testing.T) {
	assert.Equal(t, "1:75", render.TimestampLink("1:75"))
}
