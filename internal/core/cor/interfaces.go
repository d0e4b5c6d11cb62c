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

// Package cor (Chain of Responsibility) provides the building blocks the
// answer and warm-up workflows are assembled from. A workflow is a Chain of
// Commands sharing one Context: each command reads its input from the
// context, writes its output back and records any error it hits.
package cor

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// CtxIn and CtxOut are the keys a BaseChain uses to pipe the output of one
// command into the input of the next.
const (
	CtxIn  = "__IN__"
	CtxOut = "__OUT__"
)

// Context is the shared state of a single workflow execution.
type Context interface {
	// SetContext replaces the Go context carried through the chain.
	SetContext(ctx context.Context)
	// GetContext returns the Go context carried through the chain.
	GetContext() context.Context

	Add(key string, value interface{}) Context
	Get(key string) interface{}
	Remove(key string)

	// AddError records err under key, usually the failing command's name.
	AddError(key string, err error)
	GetErrors() map[string]error
	HasErrors() bool
	// Err joins every recorded error, nil when there are none.
	Err() error
}

// Executable is anything that can run against a Context.
type Executable interface {
	Execute(context Context)
}

// Command is a single instrumented step of a workflow.
type Command interface {
	Executable

	GetName() string
	GetInputParam() string
	GetOutputParam() string

	// IsExecutable reports whether the command's preconditions hold.
	IsExecutable(context Context) bool

	GetTracer() trace.Tracer
	GetMeter() metric.Meter
	GetSuccessCounter() metric.Int64Counter
	GetErrorCounter() metric.Int64Counter
}

// Chain is a Command that runs other commands in order.
type Chain interface {
	Command

	ContinueOnFailure(bool) Chain
	AddCommand(command Command) Chain
}
