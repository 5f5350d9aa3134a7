// Package gochan is an in-process transport that hands each delivery
// operation to a channel. It is meant for tests and local pipelines.
package gochan

import (
	"context"
	"errors"

	"github.com/quarks-tech/fluentforward-go/pkg/delivery"
)

const (
	defaultChanDepth = 20
)

var ErrNilContext = errors.New("nil Context")

type SendReceiver struct {
	sender   sender
	receiver receiver
}

func New() *SendReceiver {
	return NewWithDepth(defaultChanDepth)
}

func NewWithDepth(depth int) *SendReceiver {
	ch := make(chan delivery.Operation, depth)

	return &SendReceiver{
		sender:   ch,
		receiver: ch,
	}
}

func (sr *SendReceiver) Send(ctx context.Context, op delivery.Operation) error {
	return sr.sender.Send(ctx, op)
}

func (sr *SendReceiver) Receive(ctx context.Context, processor Processor) error {
	return sr.receiver.Receive(ctx, processor)
}

// Close stops Receive once buffered operations are drained. Send must not be
// called after Close.
func (sr *SendReceiver) Close(_ context.Context) {
	close(sr.sender)
}
