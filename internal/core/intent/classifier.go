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

// Package intent classifies a viewer's question into a model.QuestionIntent.
//
// A Classifier is an ordered list of rules. Each rule pairs an intent with a
// Matcher; the first rule whose matcher accepts the question decides the
// intent, and a question no rule accepts is ADAPTIVE. Rule order therefore
// encodes precedence: ORIGIN rules are evaluated before EXPLANATION rules.
package intent

import (
	"strings"

	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/model"
)

// DefaultOriginKeywords signal a request to trace where something came from.
var DefaultOriginKeywords = []string{
	"how did",
	"where did",
	"where does",
	"where do",
	"came from",
	"come from",
	"comes from",
	"derived",
	"derive",
	"earlier",
	"before this",
	"mentioned before",
	"previously",
	"go back",
	"get this from",
	"get that from",
	"how do we get",
	"origin of",
}

// DefaultExplanationKeywords signal a request for a definition or description.
var DefaultExplanationKeywords = []string{
	"what is",
	"what's",
	"what are",
	"what does",
	"define",
	"definition",
	"explain",
	"meaning of",
	"mean by",
	"difference between",
	"describe",
	"why is",
	"how does",
}

// Matcher decides whether a question belongs to a rule.
type Matcher interface {
	Match(question string) bool
}

// MatcherFunc adapts a plain function to the Matcher interface.
type MatcherFunc func(question string) bool

// Match calls f(question).
func (f MatcherFunc) Match(question string) bool {
	return f(question)
}

// KeywordMatcher accepts questions containing any of its keywords,
// case-insensitively.
type KeywordMatcher struct {
	keywords []string
}

// NewKeywordMatcher builds a KeywordMatcher. Blank keywords are ignored.
func NewKeywordMatcher(keywords ...string) *KeywordMatcher {
	out := &KeywordMatcher{keywords: make([]string, 0, len(keywords))}
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			out.keywords = append(out.keywords, k)
		}
	}
	return out
}

// Match reports whether question contains one of the keywords.
func (k *KeywordMatcher) Match(question string) bool {
	q := strings.ToLower(question)
	for _, kw := range k.keywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

// Rule tags a matcher with the intent it selects.
type Rule struct {
	Intent  model.QuestionIntent
	Matcher Matcher
}

// Classifier evaluates rules in order.
type Classifier struct {
	rules []Rule
}

// NewClassifier creates a classifier over the given rules.
func NewClassifier(rules ...Rule) *Classifier {
	return &Classifier{rules: rules}
}

// NewKeywordClassifier creates the two-rule ORIGIN then EXPLANATION classifier.
// An empty keyword list selects the corresponding default set.
func NewKeywordClassifier(origin []string, explanation []string) *Classifier {
	if len(origin) == 0 {
		origin = DefaultOriginKeywords
	}
	if len(explanation) == 0 {
		explanation = DefaultExplanationKeywords
	}
	return NewClassifier(
		Rule{Intent: model.IntentOrigin, Matcher: NewKeywordMatcher(origin...)},
		Rule{Intent: model.IntentExplanation, Matcher: NewKeywordMatcher(explanation...)},
	)
}

// NewDefaultClassifier creates a keyword classifier with the default sets.
func NewDefaultClassifier() *Classifier {
	return NewKeywordClassifier(nil, nil)
}

// Classify returns the intent of the first matching rule, or ADAPTIVE.
func (c *Classifier) Classify(question string) model.QuestionIntent {
	for _, r := range c.rules {
		if r.Matcher != nil && r.Matcher.Match(question) {
			return r.Intent
		}
	}
	return model.IntentAdaptive
}
