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

package model

import (
	"errors"
	"fmt"
)

var (
	// ErrEvidenceUnavailable signals that a strategy's evidence class is missing.
	// It drives routing and is never returned to the caller.
	ErrEvidenceUnavailable = errors.New("evidence unavailable")

	// ErrMalformedTranscript is returned when a transcript cannot be parsed into
	// timed caption events. Consumers fall back to the raw text.
	ErrMalformedTranscript = errors.New("malformed transcript")

	// ErrNoVideoContext is a caller precondition failure (no video id, no question).
	ErrNoVideoContext = errors.New("no video context")
)

// GenerationFailure wraps an error returned by the generation backend for a
// given strategy.
type GenerationFailure struct {
	Strategy StrategyName
	Reason   error
}

// NewGenerationFailure builds a GenerationFailure for the strategy.
func NewGenerationFailure(strategy StrategyName, reason error) *GenerationFailure {
	return &GenerationFailure{Strategy: strategy, Reason: reason}
}

func (g *GenerationFailure) Error() string {
	return fmt.Sprintf("%s generation failed: %v", g.Strategy, g.Reason)
}

func (g *GenerationFailure) Unwrap() error {
	return g.Reason
}

// IsGenerationFailure reports whether err is, or wraps, a GenerationFailure.
func IsGenerationFailure(err error) bool {
	var g *GenerationFailure
	return errors.As(err, &g)
}
