package timeout

import (
	"context"
	"time"

	"github.com/quarks-tech/fluentforward-go/pkg/fluent"
)

// PostInterceptor bounds every post, retries included, by timeout. A post
// whose deadline passes mid-retry still falls back to the buffer file.
func PostInterceptor(timeout time.Duration) fluent.Interceptor {
	return func(ctx context.Context, p *fluent.Post, invoker fluent.Invoker) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		return invoker(ctx, p)
	}
}
