package delivery

import (
	"errors"
	"strconv"
)

// Kind classifies a delivery failure.
type Kind int

const (
	AddressResolutionFailure Kind = iota + 1
	ConnectFailure
	WriteFailure
	EncodeFailure
	// BufferFailure means the fallback append failed after delivery gave up.
	BufferFailure
)

func (k Kind) String() string {
	switch k {
	case AddressResolutionFailure:
		return "address resolution failure"
	case ConnectFailure:
		return "connect failure"
	case WriteFailure:
		return "write failure"
	case EncodeFailure:
		return "encode failure"
	case BufferFailure:
		return "buffer failure"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Error is the error every delivery stage returns. Err holds the underlying
// transport, codec or filesystem cause.
type Error struct {
	Kind    Kind
	Address string
	Err     error
}

func NewError(kind Kind, address string, err error) *Error {
	return &Error{Kind: kind, Address: address, Err: err}
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Address != "" {
		msg += " (" + e.Address + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var deliveryErr *Error
	if errors.As(err, &deliveryErr) {
		return deliveryErr.Kind
	}

	return 0
}

func IsAddressResolutionFailure(err error) bool { return KindOf(err) == AddressResolutionFailure }

func IsConnectFailure(err error) bool { return KindOf(err) == ConnectFailure }

func IsWriteFailure(err error) bool { return KindOf(err) == WriteFailure }

func IsEncodeFailure(err error) bool { return KindOf(err) == EncodeFailure }

func IsBufferFailure(err error) bool { return KindOf(err) == BufferFailure }
