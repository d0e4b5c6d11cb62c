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

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/commands"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/cor"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/model"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/strategy"
)

// AnswerFailedMessage is shown to the viewer when every strategy failed.
const AnswerFailedMessage = "Sorry, I couldn't generate an answer right now. Please try again in a moment."

// AnswerService runs the answer workflow for one question at a time and
// keeps per-intent and per-strategy counters.
type AnswerService struct {
	workflow cor.Command
	timeout  time.Duration

	mu    sync.Mutex
	stats Stats
}

// Stats is a snapshot of the service counters.
type Stats struct {
	Questions  int64            `json:"questions"`
	Answered   int64            `json:"answered"`
	Failed     int64            `json:"failed"`
	ByIntent   map[string]int64 `json:"byIntent"`
	ByStrategy map[string]int64 `json:"byStrategy"`
}

// NewAnswerService creates the service. A non-positive timeout leaves
// requests bounded only by the caller's context.
func NewAnswerService(workflow cor.Command, timeout time.Duration) *AnswerService {
	return &AnswerService{
		workflow: workflow,
		timeout:  timeout,
		stats:    Stats{ByIntent: map[string]int64{}, ByStrategy: map[string]int64{}},
	}
}

// Ask answers req. Caller mistakes are returned as errors wrapping
// model.ErrNoVideoContext; answering failures are returned with a response
// carrying the viewer-facing message.
func (s *AnswerService) Ask(ctx context.Context, req *model.AskRequest) (*model.AskResponse, error) {
	if strings.TrimSpace(req.Question) == "" {
		return &model.AskResponse{Error: "question is required"}, fmt.Errorf("empty question: %w", model.ErrNoVideoContext)
	}
	if strings.TrimSpace(req.VideoInfo.VideoID) == "" {
		return &model.AskResponse{Error: "no video context: open a video before asking"}, fmt.Errorf("missing video id: %w", model.ErrNoVideoContext)
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	requestID := uuid.NewString()
	logger := slog.With("request_id", requestID, "video_id", req.VideoInfo.VideoID)

	chCtx := cor.NewBaseContext(ctx)
	chCtx.Add(cor.CtxIn, req)
	chCtx.Add(commands.ParamRequest, req)
	chCtx.Add(commands.ParamInteraction, model.NewInteraction(req.VideoInfo.VideoID, req.Question))
	s.workflow.Execute(chCtx)

	label, _ := chCtx.Get(commands.ParamIntent).(model.QuestionIntent)
	result, _ := chCtx.Get(commands.ParamResult).(strategy.Result)
	s.record(label, result.Strategy, chCtx.HasErrors())

	if err := chCtx.Err(); err != nil {
		logger.ErrorContext(ctx, "failed to answer question", "intent", label, "attempted", result.Attempted, "error", err)
		return &model.AskResponse{Error: AnswerFailedMessage, Intent: string(label)}, err
	}

	answer, _ := chCtx.Get(commands.ParamAnswer).(string)
	logger.InfoContext(ctx, "question answered", "intent", label, "strategy", result.Strategy)
	return &model.AskResponse{
		Success:  true,
		Answer:   answer,
		Intent:   string(label),
		Strategy: string(result.Strategy),
	}, nil
}

func (s *AnswerService) record(label model.QuestionIntent, name model.StrategyName, failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Questions++
	if label != "" {
		s.stats.ByIntent[string(label)]++
	}
	if failed {
		s.stats.Failed++
		return
	}
	s.stats.Answered++
	s.stats.ByStrategy[string(name)]++
}

// Stats returns a copy of the counters.
func (s *AnswerService) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.stats
	out.ByIntent = make(map[string]int64, len(s.stats.ByIntent))
	for k, v := range s.stats.ByIntent {
		out.ByIntent[k] = v
	}
	out.ByStrategy = make(map[string]int64, len(s.stats.ByStrategy))
	for k, v := range s.stats.ByStrategy {
		out.ByStrategy[k] = v
	}
	return out
}

// IsCallerError reports whether err was caused by the request itself.
func IsCallerError(err error) bool {
	return errors.Is(err, model.ErrNoVideoContext)
}
