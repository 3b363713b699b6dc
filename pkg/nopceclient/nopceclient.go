// Copyright 2024 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package nopceclient provides a CloudEvents client that never touches the
// network. It is used when no event ingress is configured and in tests,
// where the recorded events can be inspected.
package nopceclient

import (
	"context"
	"errors"
	"sync"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/cloudevents/sdk-go/v2/protocol"
)

type Client struct {
	mu   sync.Mutex
	sent []event.Event

	// Result, when set, is returned from Send instead of an ACK.
	Result protocol.Result
}

var _ cloudevents.Client = (*Client)(nil)

// Send records e and returns c.Result.
func (c *Client) Send(_ context.Context, e event.Event) protocol.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, e.Clone())
	return c.Result
}

// Sent returns a copy of every event passed to Send.
func (c *Client) Sent() []event.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]event.Event, len(c.sent))
	copy(out, c.sent)
	return out
}

func (c *Client) Request(_ context.Context, _ event.Event) (*event.Event, protocol.Result) {
	return nil, errors.New("nopceclient: request/response is not supported")
}

func (c *Client) StartReceiver(_ context.Context, _ interface{}) error {
	return errors.New("nopceclient: receiving is not supported")
}
