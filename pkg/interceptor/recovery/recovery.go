package recovery

import (
	"context"
	"fmt"
	"runtime"

	"github.com/quarks-tech/fluentforward-go/pkg/fluent"
)

const maxStackSize = 64 << 10

// Option configures PostInterceptor.
type Option func(*options)

type options struct {
	handler func(ctx context.Context, p any) error
}

// WithHandler turns a recovered panic into the error returned by f instead
// of a *PanicError.
func WithHandler(f func(p any) error) Option {
	return func(o *options) {
		o.handler = func(_ context.Context, p any) error {
			return f(p)
		}
	}
}

// WithHandlerContext is WithHandler with the post's context.
func WithHandlerContext(f func(ctx context.Context, p any) error) Option {
	return func(o *options) {
		o.handler = f
	}
}

// PostInterceptor recovers panics raised further down the chain, typically
// by a payload's MarshalJSON or EncodeMsgpack, and returns them as errors.
func PostInterceptor(opts ...Option) fluent.Interceptor {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	return func(ctx context.Context, p *fluent.Post, invoker fluent.Invoker) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = o.recoverFrom(ctx, r)
			}
		}()

		return invoker(ctx, p)
	}
}

func (o options) recoverFrom(ctx context.Context, p any) error {
	if o.handler != nil {
		return o.handler(ctx, p)
	}

	stack := make([]byte, maxStackSize)
	stack = stack[:runtime.Stack(stack, false)]

	return &PanicError{Panic: p, Stack: stack}
}

// PanicError carries the recovered value and the stack of the panicking
// goroutine.
type PanicError struct {
	Panic any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic caught: %v\n\n%s", e.Panic, e.Stack)
}
