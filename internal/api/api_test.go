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

package api_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/api"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/intent"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/model"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/prompt"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/services"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/strategy"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type echoGenerator struct {
	answer string
	err    error
}

func (g echoGenerator) Generate(context.Context, string, []model.Frame) (string, error) {
	return g.answer, g.err
}

type fetcher map[string]string

func (f fetcher) Fetch(_ context.Context, id string) (string, error) {
	switch id {
	case "broken":
		return "", errors.New("upstream failed")
	case "bad-id!":
		return "", fmt.Errorf("invalid: %w", model.ErrNoVideoContext)
	}
	return f[id], nil
}

func newServer(gen strategy.Generator, maxBody int64) *gin.Engine {
	b := prompt.MustNewBuilder()
	router := strategy.NewDefaultRouter(
		strategy.NewTranscriptStrategy(b, gen),
		strategy.NewVisionStrategy(b, gen),
		strategy.NewCombinedStrategy(b, gen),
		strategy.NewGeneralStrategy(b, gen))
	answers := services.NewAnswerService(workflow.NewAnswerWorkflow(intent.NewDefaultClassifier(), router), time.Second)
	h := &api.Handlers{Answers: answers, Transcripts: fetcher{"abc": "<transcript/>"}}
	return api.NewRouter(h, api.Options{Version: "2.1.0", MaxBodyBytes: maxBody})
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := do(newServer(echoGenerator{}, 0), http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status   string   `json:"status"`
		Version  string   `json:"version"`
		Features []string `json:"features"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, api.HealthStatus, body.Status)
	assert.Equal(t, "2.1.0", body.Version)
	assert.Equal(t, []string{"transcript", "vision", "combined-analysis"}, body.Features)
}

func TestAskEndToEnd(t *testing.T) {
	r := newServer(echoGenerator{answer: "It is the **intro**, see [0:00]."}, 0)
	payload := `{"question":"what is this","videoInfo":{"title":"L1","timestamp":"0:02","videoId":"abc"},` +
		`"transcript":[{"startTimeSeconds":0,"label":"0:00","text":"intro"}],"visualFrames":null,"conversationHistory":[]}`

	for _, path := range []string{"/ask", "/api/v1/ask"} {
		w := do(r, http.MethodPost, path, payload)
		require.Equal(t, http.StatusOK, w.Code, path)

		var resp model.AskResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.NotEmpty(t, resp.Answer)
		assert.NotContains(t, resp.Answer, "[")
		assert.NotContains(t, resp.Answer, "]")
		assert.Contains(t, resp.Answer, `class="timestamp-link" data-time="0"`)
	}

	w := do(r, http.MethodGet, "/api/v1/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	var stats services.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(2), stats.Answered)
	assert.Equal(t, int64(2), stats.ByStrategy["transcript"])
}

func TestAskAcceptsStringFrames(t *testing.T) {
	png := base64.StdEncoding.EncodeToString([]byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a})
	payload := `{"question":"what is on the slide","videoInfo":{"title":"L1","timestamp":"0:30","videoId":"abc"},` +
		`"visualFrames":["data:image/png;base64,` + png + `","` + png + `"]}`

	w := do(newServer(echoGenerator{answer: "Frame 1 shows a graph."}, 0), http.MethodPost, "/api/v1/ask", payload)
	require.Equal(t, http.StatusOK, w.Code)
	var resp model.AskResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "vision", resp.Strategy)
}

func TestAskWithoutVideoIsBadRequest(t *testing.T) {
	w := do(newServer(echoGenerator{answer: "x"}, 0), http.MethodPost, "/api/v1/ask", `{"question":"what is this","videoInfo":{}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)
}

func TestAskMalformedJSON(t *testing.T) {
	w := do(newServer(echoGenerator{answer: "x"}, 0), http.MethodPost, "/api/v1/ask", `{"question":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(newServer(echoGenerator{answer: "x"}, 0), http.MethodPost, "/api/v1/ask", `{"question":"q","transcript":42}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAskBodyLimit(t *testing.T) {
	big := `{"question":"` + strings.Repeat("a", 4096) + `","videoInfo":{"videoId":"abc"}}`
	w := do(newServer(echoGenerator{answer: "x"}, 1024), http.MethodPost, "/api/v1/ask", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestAskGenerationFailure(t *testing.T) {
	w := do(newServer(echoGenerator{err: errors.New("down")}, 0), http.MethodPost, "/api/v1/ask",
		`{"question":"explain","videoInfo":{"videoId":"abc"}}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp model.AskResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, services.AnswerFailedMessage, resp.Error)
}

func TestTranscriptRoute(t *testing.T) {
	r := newServer(echoGenerator{}, 0)

	w := do(r, http.MethodGet, "/api/v1/transcript/abc", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"transcript":"<transcript/>"}`, w.Body.String())

	w = do(r, http.MethodGet, "/api/v1/transcript/nocaptions", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":false,"transcript":null,"message":"`+api.NoCaptionsMessage+`"}`, w.Body.String())

	w = do(r, http.MethodGet, "/api/v1/transcript/broken", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = do(r, http.MethodGet, "/api/v1/transcript/bad-id!", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
