package gochan

import (
	"context"

	"github.com/quarks-tech/fluentforward-go/pkg/delivery"
)

// Processor handles one received operation. A non-nil error stops Receive.
type Processor func(op delivery.Operation) error

type receiver <-chan delivery.Operation

func (r receiver) Receive(ctx context.Context, processor Processor) error {
	if ctx == nil {
		return ErrNilContext
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case op, ok := <-r:
			if !ok {
				return nil
			}

			if err := processor(op); err != nil {
				return err
			}
		}
	}
}
