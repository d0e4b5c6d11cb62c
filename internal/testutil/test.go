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

// Package test holds fixtures and set-up helpers shared by the package test
// suites: the test configuration, a caption document and a fake video
// platform serving it.
package test

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"testing"

	"github.com/jaycherian/gcp-go-lecture-lens/internal/cloud"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

// Logger returns an OpenTelemetry-bridged logger for a test suite.
func Logger(name string) *slog.Logger {
	return otelslog.NewLogger(name)
}

// HandleErr fails the test on a set-up error.
func HandleErr(err error, t *testing.T) {
	t.Helper()
	if err != nil {
		t.Fatalf("test setup failed: %v", err)
	}
}

// ConfigDir returns the absolute path of the repository's configs directory.
func ConfigDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "configs")
}

// SetupOS points the config loader at the repository configs with the
// "test" runtime.
func SetupOS(t *testing.T) {
	t.Setenv(cloud.EnvConfigFilePrefix, ConfigDir())
	t.Setenv(cloud.EnvConfigRuntime, "test")
}

// GetConfig loads the test configuration.
func GetConfig(t *testing.T) *cloud.Config {
	t.Helper()
	SetupOS(t)
	config := cloud.NewConfig()
	HandleErr(cloud.LoadConfig(config), t)
	return config
}

// LectureXML is a three-minute caption document in the XML timed-text format.
const LectureXML = `<?xml version="1.0" encoding="utf-8" ?><transcript>` +
	`<text start="0.5" dur="3.2">Welcome back to calculus.</text>` +
	`<text start="4.1" dur="2.9">Today: the chain rule.</text>` +
	`<text start="62" dur="4">We defined f of g of x earlier.</text>` +
	`<text start="125.3" dur="3">Differentiate the outer function &amp;amp; multiply.</text>` +
	`<text start="181" dur="2">Example time.</text>` +
	`</transcript>`

// WarmupMessage is a transcript warm-up Pub/Sub payload.
func WarmupMessage(videoID string) string {
	return fmt.Sprintf(`{"videoId":%q}`, videoID)
}

// Platform is a fake video platform serving a watch page and captions.
type Platform struct {
	Server       *httptest.Server
	WatchCalls   atomic.Int32
	CaptionCalls atomic.Int32
}

// WatchURL is the watch page base URL to configure the transcript service with.
func (p *Platform) WatchURL() string {
	return p.Server.URL + "/watch"
}

// NewPlatform serves captions (doc) for every video id except "nocaptions".
func NewPlatform(t *testing.T, doc string) *Platform {
	t.Helper()
	p := &Platform{}
	mux := http.NewServeMux()
	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		p.WatchCalls.Add(1)
		id := r.URL.Query().Get("v")
		if id == "nocaptions" {
			_, _ = fmt.Fprint(w, `<html>{"playabilityStatus":{"status":"OK"}}</html>`)
			return
		}
		_, _ = fmt.Fprintf(w, `<html>{"captionTracks":[{"baseUrl":"/api/timedtext?v=%s&lang=en","languageCode":"en"}]}</html>`, id)
	})
	mux.HandleFunc("/api/timedtext", func(w http.ResponseWriter, r *http.Request) {
		p.CaptionCalls.Add(1)
		_, _ = fmt.Fprint(w, doc)
	})
	p.Server = httptest.NewServer(mux)
	t.Cleanup(p.Server.Close)
	return p
}
