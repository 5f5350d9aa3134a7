package gochan

import (
	"context"

	"github.com/quarks-tech/fluentforward-go/pkg/delivery"
)

// sender implements delivery.Transport by sending operations on a channel.
type sender chan<- delivery.Operation

func (s sender) Send(ctx context.Context, op delivery.Operation) error {
	if ctx == nil {
		return ErrNilContext
	}

	payload := make([]byte, len(op.Payload))
	copy(payload, op.Payload)
	op.Payload = payload

	select {
	case <-ctx.Done():
		return delivery.NewError(delivery.WriteFailure, op.Address, ctx.Err())
	case s <- op:
		return nil
	}
}
