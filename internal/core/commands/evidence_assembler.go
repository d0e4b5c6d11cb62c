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

package commands

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/h2non/filetype"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/cor"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/model"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/strategy"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/transcript"
	"golang.org/x/sync/errgroup"
)

// DefaultImageMIMEType is assumed for frames whose bytes cannot be sniffed.
const DefaultImageMIMEType = "image/jpeg"

// ErrUndecodableFrame is returned by DecodeFrame for frames without a usable image.
var ErrUndecodableFrame = errors.New("undecodable frame")

// EvidenceAssembler gathers everything a question can be answered from.
//
// Logic Flow:
//  1. The transcript is resolved (inline chunks, inline raw text, or the
//     TranscriptSource when the request carries none) while frames are
//     decoded; both run concurrently.
//  2. Raw timed text is parsed and chunked. Text that is not timed text is
//     kept for the raw fallback window.
//  3. The transcript and frames are windowed around the playback position.
//
// Acquisition problems are logged and degrade to missing evidence; only a
// done context fails the command.
type EvidenceAssembler struct {
	cor.BaseCommand
	source   TranscriptSource
	windower *transcript.Windower
	chunkGap float64
}

// NewEvidenceAssembler creates the command. source may be nil, in which case
// only inline transcripts are used.
func NewEvidenceAssembler(name string, source TranscriptSource, windower *transcript.Windower, chunkGap float64) *EvidenceAssembler {
	if windower == nil {
		windower = transcript.NewWindower()
	}
	return &EvidenceAssembler{
		BaseCommand: *cor.NewBaseCommand(name),
		source:      source,
		windower:    windower,
		chunkGap:    chunkGap,
	}
}

func (e *EvidenceAssembler) Execute(chCtx cor.Context) {
	req, ok := chCtx.Get(e.GetInputParam()).(*model.AskRequest)
	if !ok {
		e.Fail(chCtx, fmt.Errorf("%s: input is not an ask request", e.GetName()))
		return
	}
	label, _ := chCtx.Get(ParamIntent).(model.QuestionIntent)
	if label == "" {
		label = model.IntentAdaptive
	}

	vc := &model.VideoContext{
		VideoID:            req.VideoInfo.VideoID,
		Title:              req.VideoInfo.Title,
		CurrentTimeSeconds: CurrentTime(req.VideoInfo),
	}

	g, ctx := errgroup.WithContext(chCtx.GetContext())
	g.Go(func() error {
		vc.Transcript, vc.RawTranscript = e.resolveTranscript(ctx, req)
		return ctx.Err()
	})
	decoded := make([]*model.Frame, len(req.VisualFrames))
	for i := range req.VisualFrames {
		g.Go(func() error {
			f, err := DecodeFrame(req.VisualFrames[i])
			if err != nil {
				slog.WarnContext(ctx, "dropping frame", "video_id", vc.VideoID, "frame", i, "error", err)
				return nil
			}
			decoded[i] = &f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		e.Fail(chCtx, fmt.Errorf("evidence gathering interrupted: %w", err))
		return
	}

	var frames []model.Frame
	for _, f := range decoded {
		if f != nil {
			frames = append(frames, *f)
		}
	}
	if frames = e.windower.Frames(frames, vc.CurrentTimeSeconds); len(frames) > 0 {
		vc.Frames = frames
	}

	evidence := strategy.Evidence{Frames: vc.Frames}
	switch {
	case len(vc.Transcript) > 0:
		evidence.Transcript = e.windower.Window(vc.Transcript, vc.CurrentTimeSeconds, label)
	case vc.RawTranscript != "":
		evidence.Transcript = e.windower.RawWindow(vc.RawTranscript)
	}

	slog.DebugContext(chCtx.GetContext(), "evidence assembled",
		"video_id", vc.VideoID,
		"has_transcript", vc.HasTranscript(),
		"chunks", len(vc.Transcript),
		"raw_fallback", len(vc.Transcript) == 0 && vc.RawTranscript != "",
		"has_frames", vc.HasFrames(),
		"frames_requested", len(req.VisualFrames),
		"frames", len(vc.Frames))

	chCtx.Add(ParamVideoContext, vc)
	chCtx.Add(ParamEvidence, evidence)
	e.Succeed(chCtx)
	chCtx.Add(e.GetOutputParam(), req)
}

// resolveTranscript returns chunks when a timed transcript is available, or
// the raw text when only an unparseable one is.
func (e *EvidenceAssembler) resolveTranscript(ctx context.Context, req *model.AskRequest) ([]model.TranscriptChunk, string) {
	if req.Transcript != nil && len(req.Transcript.Chunks) > 0 {
		return transcript.Normalize(req.Transcript.Chunks), ""
	}

	var raw string
	if !req.Transcript.IsEmpty() {
		raw = req.Transcript.Raw
	} else if e.source != nil && req.VideoInfo.VideoID != "" {
		fetched, err := e.source.Fetch(ctx, req.VideoInfo.VideoID)
		if err != nil {
			slog.WarnContext(ctx, "transcript unavailable", "video_id", req.VideoInfo.VideoID, "error", err)
			return nil, ""
		}
		raw = fetched
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ""
	}

	chunks, err := transcript.Build(raw, e.chunkGap)
	if err != nil {
		if errors.Is(err, model.ErrMalformedTranscript) {
			slog.InfoContext(ctx, "transcript is not timed text, using raw fallback", "video_id", req.VideoInfo.VideoID, "error", err)
			return nil, raw
		}
		slog.WarnContext(ctx, "failed to chunk transcript", "video_id", req.VideoInfo.VideoID, "error", err)
		return nil, ""
	}
	return chunks, ""
}

// CurrentTime returns the playback position in seconds, preferring the
// numeric field over the formatted label.
func CurrentTime(info model.VideoInfo) float64 {
	if info.CurrentTime != nil && *info.CurrentTime >= 0 {
		return *info.CurrentTime
	}
	if t, err := transcript.ParseTimestamp(info.Timestamp); err == nil {
		return t
	}
	return 0
}

// DecodeFrame decodes the frame's base64 payload, which may be a data URL,
// and sniffs its MIME type.
func DecodeFrame(f model.Frame) (model.Frame, error) {
	payload := strings.TrimSpace(f.Image)
	if payload == "" && len(f.ImageData) > 0 {
		if f.MIMEType == "" {
			f.MIMEType = sniffImage(f.ImageData, "")
		}
		return f, nil
	}
	declared := ""
	if strings.HasPrefix(payload, "data:") {
		header, body, found := strings.Cut(payload, ",")
		if !found {
			return f, fmt.Errorf("%w: data url without payload", ErrUndecodableFrame)
		}
		declared, _, _ = strings.Cut(strings.TrimPrefix(header, "data:"), ";")
		payload = body
	}
	if payload == "" {
		return f, fmt.Errorf("%w: empty image", ErrUndecodableFrame)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		if data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "=")); err != nil {
			return f, fmt.Errorf("%w: %v", ErrUndecodableFrame, err)
		}
	}

	kind, err := filetype.Match(data)
	if err == nil && kind != filetype.Unknown && !filetype.IsImage(data) {
		return f, fmt.Errorf("%w: not an image (%s)", ErrUndecodableFrame, kind.MIME.Value)
	}
	f.MIMEType = sniffImage(data, declared)
	f.ImageData = data
	f.Image = ""
	return f, nil
}

func sniffImage(data []byte, declared string) string {
	if kind, err := filetype.Image(data); err == nil && kind != filetype.Unknown {
		return kind.MIME.Value
	}
	if strings.HasPrefix(declared, "image/") {
		return declared
	}
	return DefaultImageMIMEType
}
