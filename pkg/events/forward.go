// Copyright 2024 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/chainguard-dev/clog"
	cloudevents "github.com/cloudevents/sdk-go/v2"
	"k8s.io/apimachinery/pkg/util/sets"
)

const (
	eventTypePrefix = "dev.keymap."
	maxRetry        = 3
	retryDelay      = 10 * time.Millisecond
)

// Notification is the CloudEvent data for a forwarded notification.
type Notification struct {
	Kind    Kind `json:"kind"`
	Payload any  `json:"payload,omitempty"`
}

// Forward relays every notification published on bus to ceclient. Delivery
// is retried with exponential backoff; failures are logged and never
// reach the publisher. The returned function stops forwarding.
func Forward(bus *Bus, ceclient cloudevents.Client, source string) (func(), error) {
	var stops []func()
	stop := func() {
		for _, s := range stops {
			s()
		}
	}
	for _, kind := range sets.List(Kinds) {
		s, err := bus.Subscribe(kind, func(ctx context.Context, payload any) {
			send(ctx, ceclient, source, kind, payload)
		})
		if err != nil {
			stop()
			return nil, err
		}
		stops = append(stops, s)
	}
	return stop, nil
}

func send(ctx context.Context, ceclient cloudevents.Client, source string, kind Kind, payload any) {
	event := cloudevents.NewEvent()
	event.SetType(eventTypePrefix + string(kind))
	event.SetSource(source)
	event.SetSubject(string(kind))
	if err := event.SetData(cloudevents.ApplicationJSON, Notification{Kind: kind, Payload: payload}); err != nil {
		clog.FromContext(ctx).Infof("Failed to encode event payload: %v", err)
		return
	}

	// Notifications fire from request paths that may be cancelled; the
	// event should still go out.
	rctx := context.WithoutCancel(ctx)
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = retryDelay
	_, err := backoff.Retry(rctx, func() (struct{}, error) {
		if res := ceclient.Send(rctx, event); cloudevents.IsUndelivered(res) || cloudevents.IsNACK(res) {
			return struct{}{}, fmt.Errorf("sending %s: %w", event.Type(), res)
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(b), backoff.WithMaxTries(maxRetry))
	if err != nil {
		clog.FromContext(ctx).Errorf("Failed to deliver event: %v", err)
	}
}
