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

package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/model"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/services"
)

// NoCaptionsMessage is returned, with success false, when a video has no
// caption track.
const NoCaptionsMessage = "No captions available"

// TranscriptRouter registers GET /transcript/:videoId.
func TranscriptRouter(r *gin.RouterGroup, h *Handlers) {
	r.GET("/transcript/:videoId", func(c *gin.Context) {
		if h.Transcripts == nil {
			c.JSON(http.StatusNotImplemented, model.TranscriptResponse{Error: "transcript lookup is disabled"})
			return
		}
		id := c.Param("videoId")
		doc, err := h.Transcripts.Fetch(c.Request.Context(), id)
		if err != nil {
			if services.IsCallerError(err) {
				c.JSON(http.StatusBadRequest, model.TranscriptResponse{Error: err.Error()})
				return
			}
			slog.ErrorContext(c.Request.Context(), "transcript fetch failed", "video_id", id, "error", err)
			c.JSON(http.StatusInternalServerError, model.TranscriptResponse{Error: "failed to fetch transcript"})
			return
		}
		if doc == "" {
			c.JSON(http.StatusOK, model.TranscriptResponse{Success: false, Message: NoCaptionsMessage})
			return
		}
		c.JSON(http.StatusOK, model.TranscriptResponse{Success: true, Transcript: &doc})
	})
}
