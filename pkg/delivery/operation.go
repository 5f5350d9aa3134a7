package delivery

import "context"

// Operation is one encoded payload bound for one collector address. It is
// handed unchanged to every attempt.
type Operation struct {
	Address string
	Payload []byte
}

func NewOperation(address string, payload []byte) Operation {
	return Operation{Address: address, Payload: payload}
}

// Transport performs a single delivery attempt.
type Transport interface {
	Send(ctx context.Context, op Operation) error
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, op Operation) error

func (f TransportFunc) Send(ctx context.Context, op Operation) error {
	return f(ctx, op)
}
