package fluent

import (
	"context"

	"github.com/quarks-tech/fluentforward-go/pkg/record"
	"github.com/quarks-tech/fluentforward-go/pkg/wire"
)

// Post is one post call as seen by interceptors.
type Post struct {
	Shape record.Shape
	Mode  wire.Mode
}

func (p *Post) Tag() string {
	return p.Shape.ShapeTag()
}

// Len is the number of records in the post.
func (p *Post) Len() int {
	if f, ok := p.Shape.(record.Forward); ok {
		return len(f.Entries)
	}

	return 1
}

type Invoker func(ctx context.Context, p *Post) error

type Interceptor func(ctx context.Context, p *Post, invoker Invoker) error

func chainInterceptors(c *Client) {
	interceptors := c.options.chainInterceptors
	// Prepend options.interceptor to the chaining interceptors if it exists, since interceptor will
	// be executed before any other chained interceptors.
	if c.options.interceptor != nil {
		interceptors = append([]Interceptor{c.options.interceptor}, interceptors...)
	}
	var chainedInt Interceptor
	if len(interceptors) == 0 {
		chainedInt = nil
	} else if len(interceptors) == 1 {
		chainedInt = interceptors[0]
	} else {
		chainedInt = func(ctx context.Context, p *Post, invoker Invoker) error {
			return interceptors[0](ctx, p, getChainInvoker(interceptors, 0, invoker))
		}
	}
	c.options.interceptor = chainedInt
}

func getChainInvoker(interceptors []Interceptor, curr int, finalInvoker Invoker) Invoker {
	if curr == len(interceptors)-1 {
		return finalInvoker
	}
	return func(ctx context.Context, p *Post) error {
		return interceptors[curr+1](ctx, p, getChainInvoker(interceptors, curr+1, finalInvoker))
	}
}
