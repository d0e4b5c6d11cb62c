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
	"fmt"

	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/cor"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/intent"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/model"
)

// QuestionClassifier labels the request's question with an intent.
type QuestionClassifier struct {
	cor.BaseCommand
	classifier *intent.Classifier
}

func NewQuestionClassifier(name string, classifier *intent.Classifier) *QuestionClassifier {
	return &QuestionClassifier{BaseCommand: *cor.NewBaseCommand(name), classifier: classifier}
}

func (c *QuestionClassifier) Execute(context cor.Context) {
	req, ok := context.Get(c.GetInputParam()).(*model.AskRequest)
	if !ok {
		c.Fail(context, fmt.Errorf("%s: input is not an ask request", c.GetName()))
		return
	}
	label := c.classifier.Classify(req.Question)
	context.Add(ParamIntent, label)
	c.Succeed(context)
	context.Add(c.GetOutputParam(), req)
}
