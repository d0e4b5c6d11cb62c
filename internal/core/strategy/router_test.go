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

package strategy_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/model"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/prompt"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGenerator answers with a fixed string or fails, and records its calls.
type fakeGenerator struct {
	mu      sync.Mutex
	answer  string
	err     error
	prompts []string
	images  [][]model.Frame
}

func (f *fakeGenerator) Generate(_ context.Context, p string, images []model.Frame) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, p)
	f.images = append(f.images, images)
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func (f *fakeGenerator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type fixture struct {
	text   *fakeGenerator
	vision *fakeGenerator
	router *strategy.Router
}

func newFixture() *fixture {
	b := prompt.MustNewBuilder()
	text := &fakeGenerator{answer: "text answer"}
	vision := &fakeGenerator{answer: "vision answer"}
	return &fixture{
		text:   text,
		vision: vision,
		router: strategy.NewDefaultRouter(
			strategy.NewTranscriptStrategy(b, text),
			strategy.NewVisionStrategy(b, vision),
			strategy.NewCombinedStrategy(b, vision),
			strategy.NewGeneralStrategy(b, text),
		),
	}
}

func request(transcript string, frames []model.Frame) strategy.Request {
	return strategy.Request{
		Question: "what is this",
		Intent:   model.IntentExplanation,
		Metadata: prompt.Metadata{Title: "Lecture", Timestamp: "1:00"},
		Evidence: strategy.Evidence{Transcript: transcript, Frames: frames},
	}
}

var oneFrame = []model.Frame{{TimestampLabel: "1:00", Label: "now", ImageData: []byte{0xff}, MIMEType: "image/jpeg"}}

func TestTranscriptWinsOverFrames(t *testing.T) {
	f := newFixture()
	res, err := f.router.Route(context.Background(), request("[0:50] words", oneFrame), false)
	require.NoError(t, err)
	assert.Equal(t, model.StrategyTranscript, res.Strategy)
	assert.Equal(t, "text answer", res.Answer)
	assert.Equal(t, 0, f.vision.calls())
	assert.Nil(t, f.text.images[0])
}

func TestVisionWhenNoTranscript(t *testing.T) {
	f := newFixture()
	res, err := f.router.Route(context.Background(), request("", oneFrame), false)
	require.NoError(t, err)
	assert.Equal(t, model.StrategyVision, res.Strategy)
	assert.Equal(t, oneFrame, f.vision.images[0])
}

func TestGeneralWhenNoEvidence(t *testing.T) {
	f := newFixture()
	res, err := f.router.Route(context.Background(), request("  ", nil), false)
	require.NoError(t, err)
	assert.Equal(t, model.StrategyGeneral, res.Strategy)
	assert.Equal(t, []model.StrategyName{model.StrategyGeneral}, res.Attempted)
}

func TestCombinedOnlyWhenRequested(t *testing.T) {
	f := newFixture()
	res, err := f.router.Route(context.Background(), request("[0:50] words", oneFrame), true)
	require.NoError(t, err)
	assert.Equal(t, model.StrategyCombined, res.Strategy)

	// Combined needs both kinds of evidence.
	res, err = f.router.Route(context.Background(), request("[0:50] words", nil), true)
	require.NoError(t, err)
	assert.Equal(t, model.StrategyTranscript, res.Strategy)

	f.router.PreferCombined = true
	res, err = f.router.Route(context.Background(), request("[0:50] words", oneFrame), false)
	require.NoError(t, err)
	assert.Equal(t, model.StrategyCombined, res.Strategy)
}

func TestCombinedFailureFallsBackToTranscript(t *testing.T) {
	f := newFixture()
	f.vision.err = errors.New("vision backend down")
	res, err := f.router.Route(context.Background(), request("[0:50] words", oneFrame), true)
	require.NoError(t, err)
	assert.Equal(t, model.StrategyTranscript, res.Strategy)
	assert.Equal(t, []model.StrategyName{model.StrategyCombined, model.StrategyTranscript}, res.Attempted)
}

func TestVisionFailureFallsBackToGeneral(t *testing.T) {
	f := newFixture()
	f.vision.err = errors.New("quota")
	res, err := f.router.Route(context.Background(), request("", oneFrame), false)
	require.NoError(t, err)
	assert.Equal(t, model.StrategyGeneral, res.Strategy)
}

func TestTranscriptFailureFallsThroughVisionToGeneral(t *testing.T) {
	f := newFixture()
	f.text.err = errors.New("text backend down")
	res, err := f.router.Route(context.Background(), request("[0:50] words", oneFrame), false)
	require.NoError(t, err)
	assert.Equal(t, model.StrategyVision, res.Strategy)
}

func TestAllFailuresSurfaceLastFailure(t *testing.T) {
	f := newFixture()
	f.text.err = errors.New("text down")
	f.vision.err = errors.New("vision down")
	res, err := f.router.Route(context.Background(), request("[0:50] words", oneFrame), false)
	require.Error(t, err)

	var failure *model.GenerationFailure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, model.StrategyGeneral, failure.Strategy)
	assert.Equal(t, []model.StrategyName{model.StrategyTranscript, model.StrategyVision, model.StrategyGeneral}, res.Attempted)
}

func TestEmptyAnswerIsAFailure(t *testing.T) {
	f := newFixture()
	f.vision.answer = "   "
	res, err := f.router.Route(context.Background(), request("", oneFrame), false)
	require.NoError(t, err)
	assert.Equal(t, model.StrategyGeneral, res.Strategy)
}

func TestCancelledContextStopsRouting(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.router.Route(ctx, request("[0:50] words", nil), false)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, f.text.calls())
}

func TestAttemptWithoutEvidence(t *testing.T) {
	s := strategy.NewTranscriptStrategy(prompt.MustNewBuilder(), &fakeGenerator{answer: "x"})
	_, err := s.Attempt(context.Background(), request("", nil))
	assert.ErrorIs(t, err, model.ErrEvidenceUnavailable)
}

func TestSelect(t *testing.T) {
	f := newFixture()
	s, ok := f.router.Select(strategy.Evidence{Frames: oneFrame}, false)
	require.True(t, ok)
	assert.Equal(t, model.StrategyVision, s.Name())
}
