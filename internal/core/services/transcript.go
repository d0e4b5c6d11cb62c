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

// Package services holds the request-level entry points the HTTP layer and
// listeners call into.
//
// TranscriptService acquires caption documents from the video platform:
//  1. The cache is consulted first.
//  2. The watch page is downloaded and its `captionTracks` list located.
//  3. The preferred (or first) track's timed text is downloaded.
//  4. Non-empty documents are cached; a video without captions yields "".
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/jaycherian/gcp-go-lecture-lens/internal/cache"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/model"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	DefaultWatchURL = "https://www.youtube.com/watch"
	maxDocumentSize = 16 << 20
	userAgent       = "Mozilla/5.0 (compatible; lecture-lens/2.1)"
)

var (
	captionTracksPattern = regexp.MustCompile(`"captionTracks":\[([^\]]+)\]`)
	videoIDPattern       = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
)

// NewHTTPClient returns a traced HTTP client with the given timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// TranscriptService downloads and caches caption documents.
type TranscriptService struct {
	client            *http.Client
	cache             cache.Cache
	watchURL          string
	preferredLanguage string
}

// NewTranscriptService creates the service. c may be nil to disable caching;
// an empty watchURL uses DefaultWatchURL.
func NewTranscriptService(client *http.Client, c cache.Cache, watchURL string, preferredLanguage string) *TranscriptService {
	if client == nil {
		client = NewHTTPClient(15 * time.Second)
	}
	if watchURL == "" {
		watchURL = DefaultWatchURL
	}
	return &TranscriptService{client: client, cache: c, watchURL: watchURL, preferredLanguage: preferredLanguage}
}

// Fetch returns the raw timed-text document of videoID.
func (s *TranscriptService) Fetch(ctx context.Context, videoID string) (string, error) {
	if !videoIDPattern.MatchString(videoID) {
		return "", fmt.Errorf("invalid video id %q: %w", videoID, model.ErrNoVideoContext)
	}

	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, videoID)
		if err != nil {
			slog.WarnContext(ctx, "transcript cache read failed", "video_id", videoID, "error", err)
		} else if ok {
			return cached, nil
		}
	}

	watch, err := url.Parse(s.watchURL)
	if err != nil {
		return "", fmt.Errorf("invalid watch url: %w", err)
	}
	q := watch.Query()
	q.Set("v", videoID)
	watch.RawQuery = q.Encode()

	page, err := s.get(ctx, watch.String())
	if err != nil {
		return "", fmt.Errorf("failed to load watch page: %w", err)
	}
	trackURL, ok := s.captionTrackURL(page)
	if !ok {
		slog.InfoContext(ctx, "video has no captions", "video_id", videoID)
		return "", nil
	}
	resolved, err := watch.Parse(trackURL)
	if err != nil {
		return "", fmt.Errorf("invalid caption track url: %w", err)
	}

	doc, err := s.get(ctx, resolved.String())
	if err != nil {
		return "", fmt.Errorf("failed to download captions: %w", err)
	}
	doc = strings.TrimSpace(doc)
	if doc == "" {
		return "", nil
	}

	if s.cache != nil {
		if err := s.cache.Put(ctx, videoID, doc); err != nil {
			slog.WarnContext(ctx, "transcript cache write failed", "video_id", videoID, "error", err)
		}
	}
	return doc, nil
}

// captionTrackURL picks the preferred-language track, or the first one.
func (s *TranscriptService) captionTrackURL(page string) (string, bool) {
	m := captionTracksPattern.FindStringSubmatch(page)
	if m == nil {
		return "", false
	}
	tracks := gjson.Parse("[" + m[1] + "]").Array()
	if len(tracks) == 0 {
		return "", false
	}
	chosen := tracks[0]
	if s.preferredLanguage != "" {
		for _, t := range tracks {
			if strings.EqualFold(t.Get("languageCode").String(), s.preferredLanguage) {
				chosen = t
				break
			}
		}
	}
	base := chosen.Get("baseUrl").String()
	return base, base != ""
}

var errUnexpectedStatus = errors.New("unexpected status")

func (s *TranscriptService) get(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s", errUnexpectedStatus, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return "", err
	}
	return string(body), nil
}
