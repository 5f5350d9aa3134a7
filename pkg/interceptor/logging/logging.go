package logging

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/quarks-tech/fluentforward-go/pkg/fluent"
)

// PostInterceptor logs posts that end in an error. The error is returned
// unchanged.
func PostInterceptor(logger logrus.FieldLogger) fluent.Interceptor {
	return func(ctx context.Context, p *fluent.Post, invoker fluent.Invoker) error {
		err := invoker(ctx, p)
		if err == nil {
			return nil
		}

		logger.
			WithField("tag", p.Tag()).
			WithField("mode", p.Mode.String()).
			WithField("entries", p.Len()).
			Errorf("posting record (%s): %s", p.Tag(), err)

		return err
	}
}
