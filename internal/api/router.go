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

// Package api contains the HTTP surface of the service, built on gin.
//
// Routes:
//   - GET  /                             health and feature list
//   - POST /ask                          answer a question (extension route)
//   - POST /api/v1/ask                   answer a question
//   - GET  /api/v1/transcript/:videoId   raw caption document of a video
//   - GET  /api/v1/stats                 answer counters
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/model"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/services"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// HealthStatus is reported by the health endpoint.
const HealthStatus = "LectureLens backend running"

// DefaultFeatures lists the capabilities reported by the health endpoint.
var DefaultFeatures = []string{"transcript", "vision", "combined-analysis"}

// Asker answers questions. *services.AnswerService satisfies it.
type Asker interface {
	Ask(ctx context.Context, req *model.AskRequest) (*model.AskResponse, error)
	Stats() services.Stats
}

// TranscriptFetcher looks up caption documents. *services.TranscriptService satisfies it.
type TranscriptFetcher interface {
	Fetch(ctx context.Context, videoID string) (string, error)
}

// Options configure the router.
type Options struct {
	ServiceName    string
	Version        string
	MaxBodyBytes   int64
	AllowedOrigins []string
}

// Handlers holds the services the routes call into.
type Handlers struct {
	Answers     Asker
	Transcripts TranscriptFetcher // nil disables the transcript route.
	Version     string
}

// NewRouter builds the gin engine with tracing, CORS and the body limit.
func NewRouter(h *Handlers, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if opts.ServiceName != "" {
		r.Use(otelgin.Middleware(opts.ServiceName))
	}
	r.Use(corsMiddleware(opts.AllowedOrigins))
	if opts.MaxBodyBytes > 0 {
		r.Use(bodyLimit(opts.MaxBodyBytes))
	}
	if h.Version == "" {
		h.Version = opts.Version
	}

	r.GET("/", h.Health)
	r.POST("/ask", h.Ask)

	apiV1 := r.Group("/api/v1")
	{
		apiV1.POST("/ask", h.Ask)
		TranscriptRouter(apiV1, h)
		Dashboard(apiV1, h)
	}
	return r
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	if len(origins) == 0 {
		return cors.Default()
	}
	cfg := cors.DefaultConfig()
	cfg.AllowOrigins = origins
	cfg.AllowWildcard = true
	cfg.AllowBrowserExtensions = true
	return cors.New(cfg)
}

func bodyLimit(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}

// Health reports that the service is up.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   HealthStatus,
		"version":  h.Version,
		"features": DefaultFeatures,
	})
}

// Ask answers one question.
func (h *Handlers) Ask(c *gin.Context) {
	var req model.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		c.JSON(status, model.AskResponse{Error: "invalid request: " + err.Error()})
		return
	}

	resp, err := h.Answers.Ask(c.Request.Context(), &req)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, resp)
	case services.IsCallerError(err):
		c.JSON(http.StatusBadRequest, resp)
	default:
		slog.ErrorContext(c.Request.Context(), "ask failed", "video_id", req.VideoInfo.VideoID, "error", err)
		c.JSON(http.StatusInternalServerError, resp)
	}
}
