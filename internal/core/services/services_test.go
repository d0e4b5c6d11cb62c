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

package services_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jaycherian/gcp-go-lecture-lens/internal/cache"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/intent"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/model"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/prompt"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/services"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/strategy"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const timedText = `<transcript><text start="0" dur="2">hello &amp;amp; welcome</text></transcript>`

type platform struct {
	server       *httptest.Server
	watchCalls   atomic.Int32
	captionCalls atomic.Int32
	captions     bool
}

func newPlatform(t *testing.T, captions bool) *platform {
	t.Helper()
	p := &platform{captions: captions}
	mux := http.NewServeMux()
	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		p.watchCalls.Add(1)
		if !p.captions {
			_, _ = io.WriteString(w, `<html><script>var ytInitialPlayerResponse = {"videoDetails":{}};</script></html>`)
			return
		}
		id := r.URL.Query().Get("v")
		_, _ = fmt.Fprintf(w, `<html><script>var x = {"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[`+
			`{"baseUrl":"/api/timedtext?v=%s&lang=de","languageCode":"de"},`+
			`{"baseUrl":"/api/timedtext?v=%s&lang=en","languageCode":"en"}]}}};</script></html>`, id, id)
	})
	mux.HandleFunc("/api/timedtext", func(w http.ResponseWriter, r *http.Request) {
		p.captionCalls.Add(1)
		if r.URL.Query().Get("lang") != "en" {
			http.Error(w, "wrong track", http.StatusNotFound)
			return
		}
		_, _ = io.WriteString(w, timedText)
	})
	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

func TestTranscriptServiceFetchesAndCaches(t *testing.T) {
	p := newPlatform(t, true)
	c := cache.NewMemoryCache(time.Minute, 10)
	svc := services.NewTranscriptService(p.server.Client(), c, p.server.URL+"/watch", "en")

	doc, err := svc.Fetch(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, timedText, doc)

	doc, err = svc.Fetch(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, timedText, doc)
	assert.Equal(t, int32(1), p.watchCalls.Load())
	assert.Equal(t, int32(1), p.captionCalls.Load())

	cached, ok, err := c.Get(context.Background(), "abc123")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, timedText, cached)
}

func TestTranscriptServiceUsesFirstTrackWithoutPreference(t *testing.T) {
	p := newPlatform(t, true)
	svc := services.NewTranscriptService(p.server.Client(), nil, p.server.URL+"/watch", "")

	_, err := svc.Fetch(context.Background(), "abc123")
	assert.Error(t, err, "the first track is German and the fake serves only English")
}

func TestTranscriptServiceNoCaptions(t *testing.T) {
	p := newPlatform(t, false)
	c := cache.NewMemoryCache(time.Minute, 10)
	svc := services.NewTranscriptService(p.server.Client(), c, p.server.URL+"/watch", "en")

	doc, err := svc.Fetch(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Empty(t, doc)
	assert.Equal(t, 0, c.Len())
}

func TestTranscriptServiceRejectsBadIDs(t *testing.T) {
	svc := services.NewTranscriptService(nil, nil, "http://127.0.0.1:1/watch", "")
	for _, id := range []string{"", "../etc/passwd", "a b"} {
		_, err := svc.Fetch(context.Background(), id)
		assert.ErrorIs(t, err, model.ErrNoVideoContext, id)
	}
}

func TestTranscriptServiceWatchPageError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	svc := services.NewTranscriptService(srv.Client(), nil, srv.URL+"/watch", "")
	_, err := svc.Fetch(context.Background(), "abc123")
	assert.ErrorContains(t, err, "watch page")
}

type fakeGenerator struct {
	mu     sync.Mutex
	answer string
	err    error
	calls  int
}

func (f *fakeGenerator) Generate(context.Context, string, []model.Frame) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.answer, f.err
}

func newAnswerService(gen strategy.Generator) *services.AnswerService {
	b := prompt.MustNewBuilder()
	router := strategy.NewDefaultRouter(
		strategy.NewTranscriptStrategy(b, gen),
		strategy.NewVisionStrategy(b, gen),
		strategy.NewCombinedStrategy(b, gen),
		strategy.NewGeneralStrategy(b, gen))
	return services.NewAnswerService(workflow.NewAnswerWorkflow(intent.NewDefaultClassifier(), router), 5*time.Second)
}

func TestAskOneChunkTranscript(t *testing.T) {
	gen := &fakeGenerator{answer: "This is the **intro** of the lecture.\n\n[0:00] intro"}
	svc := newAnswerService(gen)

	resp, err := svc.Ask(context.Background(), &model.AskRequest{
		Question:  "what is this",
		VideoInfo: model.VideoInfo{VideoID: "abc", Title: "Lecture 1", Timestamp: "0:03"},
		Transcript: &model.TranscriptInput{Chunks: []model.TranscriptChunk{
			{StartSeconds: 0, Label: "0:00", Text: "intro"},
		}},
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Answer)
	assert.False(t, strings.ContainsAny(resp.Answer, "[]"), resp.Answer)
	assert.Equal(t, "EXPLANATION", resp.Intent)
	assert.Equal(t, "transcript", resp.Strategy)

	stats := svc.Stats()
	assert.Equal(t, int64(1), stats.Answered)
	assert.Equal(t, int64(1), stats.ByStrategy["transcript"])
	assert.Equal(t, int64(1), stats.ByIntent["EXPLANATION"])
}

func TestAskValidatesRequest(t *testing.T) {
	gen := &fakeGenerator{answer: "unused"}
	svc := newAnswerService(gen)

	resp, err := svc.Ask(context.Background(), &model.AskRequest{Question: "why?"})
	assert.True(t, services.IsCallerError(err))
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)

	_, err = svc.Ask(context.Background(), &model.AskRequest{Question: "  ", VideoInfo: model.VideoInfo{VideoID: "abc"}})
	assert.ErrorIs(t, err, model.ErrNoVideoContext)
	assert.Equal(t, 0, gen.calls)
	assert.Equal(t, int64(0), svc.Stats().Questions)
}

func TestAskReportsExhaustedFallbacks(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("rate limited")}
	svc := newAnswerService(gen)

	resp, err := svc.Ask(context.Background(), &model.AskRequest{
		Question:   "explain the proof",
		VideoInfo:  model.VideoInfo{VideoID: "abc"},
		Transcript: &model.TranscriptInput{Raw: "some flattened words"},
	})
	require.Error(t, err)
	assert.False(t, services.IsCallerError(err))
	assert.True(t, model.IsGenerationFailure(err))
	assert.False(t, resp.Success)
	assert.Equal(t, services.AnswerFailedMessage, resp.Error)
	assert.Equal(t, 2, gen.calls, "transcript then general")
	assert.Equal(t, int64(1), svc.Stats().Failed)
}
