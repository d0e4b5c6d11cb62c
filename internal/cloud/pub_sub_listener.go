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

package cloud

import (
	"context"
	"log/slog"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/jaycherian/gcp-go-lecture-lens/internal/core/cor"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// PubSubListener connects a Pub/Sub subscription to a workflow command. Each
// message body is placed under cor.CtxIn and the message is acknowledged
// only when the command finishes without errors; failed messages are left
// to redeliver under the subscription's retry policy.
type PubSubListener struct {
	client       *pubsub.Client
	subscription *pubsub.Subscription
	timeout      time.Duration
	command      cor.Command
}

// NewPubSubListener creates a listener for subscriptionID. A zero timeout
// lets each message run as long as the receive context.
func NewPubSubListener(pubsubClient *pubsub.Client, subscriptionID string, timeout time.Duration, command cor.Command) *PubSubListener {
	return &PubSubListener{
		client:       pubsubClient,
		subscription: pubsubClient.Subscription(subscriptionID),
		timeout:      timeout,
		command:      command,
	}
}

// SetCommand attaches the command once; later calls are ignored.
func (m *PubSubListener) SetCommand(command cor.Command) {
	if m.command == nil {
		m.command = command
	}
}

// Listen receives messages in a background goroutine until ctx is done.
func (m *PubSubListener) Listen(ctx context.Context) {
	slog.InfoContext(ctx, "listening", "subscription", m.subscription.ID())

	go func() {
		tracer := otel.Tracer("message-listener")
		err := m.subscription.Receive(ctx, func(msgCtx context.Context, msg *pubsub.Message) {
			m.handle(msgCtx, tracer, msg)
		})
		if err != nil {
			slog.ErrorContext(ctx, "error receiving data", "subscription", m.subscription.ID(), "error", err)
		}
	}()
}

func (m *PubSubListener) handle(ctx context.Context, tracer trace.Tracer, msg *pubsub.Message) {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	spanCtx, span := tracer.Start(ctx, "receive-message")
	defer span.End()
	span.SetAttributes(attribute.String("msg", string(msg.Data)), attribute.String("msg_id", msg.ID))

	if m.command == nil {
		span.SetStatus(codes.Error, "no command attached")
		slog.ErrorContext(spanCtx, "message received before a command was attached", "subscription", m.subscription.ID())
		return
	}

	chainCtx := cor.NewBaseContext(spanCtx)
	chainCtx.Add(cor.CtxIn, string(msg.Data))
	m.command.Execute(chainCtx)

	if err := chainCtx.Err(); err != nil {
		span.SetStatus(codes.Error, "failed")
		slog.ErrorContext(spanCtx, "error executing chain", "subscription", m.subscription.ID(), "error", err)
		return
	}
	span.SetStatus(codes.Ok, "success")
	msg.Ack()
}
