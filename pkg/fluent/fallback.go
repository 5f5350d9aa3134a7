package fluent

import (
	"context"
	"fmt"

	"github.com/quarks-tech/fluentforward-go/pkg/delivery"
	"github.com/quarks-tech/fluentforward-go/pkg/record"
	"github.com/quarks-tech/fluentforward-go/pkg/wire"
)

// onExhausted is called once every delivery attempt failed. Without a buffer
// file deliveryErr is returned unchanged. Otherwise shape is appended to the
// buffer in its binary encoding and the post counts as a success.
func (c *Client) onExhausted(ctx context.Context, shape record.Shape, deliveryErr error) error {
	if c.buffer == nil {
		return deliveryErr
	}

	mode := wire.BinarySingle
	if _, ok := shape.(record.Forward); ok {
		mode = wire.BinaryBatch
	}

	payload, err := wire.Encode(shape, mode)
	if err != nil {
		return delivery.NewError(delivery.BufferFailure, c.address, fmt.Errorf("%w (delivery: %w)", err, deliveryErr))
	}

	// The record is appended even when ctx is what ended delivery.
	if err = c.buffer.Append(context.WithoutCancel(ctx), payload); err != nil {
		return delivery.NewError(delivery.BufferFailure, c.address, fmt.Errorf("%w (delivery: %w)", err, deliveryErr))
	}

	c.options.logger.
		WithField("tag", shape.ShapeTag()).
		WithField("address", c.address).
		WithField("buffer", c.buffer.Path()).
		WithError(deliveryErr).
		Warn("delivery failed, record buffered")

	return nil
}
