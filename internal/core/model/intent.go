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

// QuestionIntent labels what kind of answer a question is after.
type QuestionIntent string

const (
	// IntentOrigin asks where or how something was introduced earlier in the video.
	IntentOrigin QuestionIntent = "ORIGIN"
	// IntentExplanation asks for a definition or description at the current point.
	IntentExplanation QuestionIntent = "EXPLANATION"
	// IntentAdaptive is used when neither of the above could be recognised.
	IntentAdaptive QuestionIntent = "ADAPTIVE"
)

// StrategyName identifies one of the answer-generation policies.
type StrategyName string

const (
	StrategyTranscript StrategyName = "transcript"
	StrategyVision     StrategyName = "vision"
	StrategyCombined   StrategyName = "combined"
	StrategyGeneral    StrategyName = "general"
)

// Conversation roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationTurn is one message of the client-held conversation.
type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// RecentTurns returns at most the last n turns of history. The returned slice
// shares its backing array with history.
func RecentTurns(history []ConversationTurn, n int) []ConversationTurn {
	if n <= 0 || len(history) == 0 {
		return nil
	}
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
