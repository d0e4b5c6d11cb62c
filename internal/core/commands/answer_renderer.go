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
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/cor"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/render"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/strategy"
)

// AnswerRenderer converts the raw answer into HTML with timestamp links.
type AnswerRenderer struct {
	cor.BaseCommand
}

func NewAnswerRenderer(name string) *AnswerRenderer {
	return &AnswerRenderer{BaseCommand: *cor.NewBaseCommand(name)}
}

func (r *AnswerRenderer) Execute(context cor.Context) {
	result := context.Get(r.GetInputParam()).(strategy.Result)
	html := render.Render(result.Answer)
	context.Add(ParamAnswer, html)
	r.Succeed(context)
	context.Add(r.GetOutputParam(), html)
}
