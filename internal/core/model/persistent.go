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

// Package model defines the core data structures for the application.
// This file holds the structures that are written to durable storage.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Interaction is one answered (or failed) question, streamed to BigQuery for
// usage analysis. The question text is stored, the evidence is not.
type Interaction struct {
	Id        string    `json:"id" bigquery:"id"`
	VideoId   string    `json:"video_id" bigquery:"video_id"`
	Question  string    `json:"question" bigquery:"question"`
	Intent    string    `json:"intent" bigquery:"intent"`
	Strategy  string    `json:"strategy" bigquery:"strategy"`
	Success   bool      `json:"success" bigquery:"success"`
	LatencyMs int64     `json:"latency_ms" bigquery:"latency_ms"`
	CreatedAt time.Time `json:"created_at" bigquery:"created_at"`
}

// NewInteraction creates an Interaction with a random id and the current time.
func NewInteraction(videoID string, question string) *Interaction {
	return &Interaction{
		Id:        uuid.New().String(),
		VideoId:   videoID,
		Question:  question,
		CreatedAt: time.Now(),
	}
}

// Finish records the outcome of the request on the interaction.
func (i *Interaction) Finish(intent QuestionIntent, strategy StrategyName, success bool) {
	i.Intent = string(intent)
	i.Strategy = string(strategy)
	i.Success = success
	i.LatencyMs = time.Since(i.CreatedAt).Milliseconds()
}
