package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/quarks-tech/fluentforward-go/pkg/delivery"
	"github.com/quarks-tech/fluentforward-go/pkg/fluent"
	"github.com/quarks-tech/fluentforward-go/pkg/interceptor/logging"
	"github.com/quarks-tech/fluentforward-go/pkg/interceptor/recovery"
	"github.com/quarks-tech/fluentforward-go/pkg/interceptor/timeout"
	"github.com/quarks-tech/fluentforward-go/pkg/record"
	"github.com/quarks-tech/fluentforward-go/pkg/transport/gochan"
	"github.com/quarks-tech/fluentforward-go/pkg/wire"
)

func main() {
	ctx := context.Background()
	sr := gochan.New()

	client := fluent.New("in-process", "example.batch",
		fluent.WithTransport(sr),
		fluent.WithCompression(),
		fluent.WithChunkID(),
		fluent.WithChainInterceptor(
			logging.PostInterceptor(logrus.StandardLogger()),
			recovery.PostInterceptor(),
			timeout.PostInterceptor(time.Second),
		),
	)

	var eg errgroup.Group

	eg.Go(func() error {
		return sr.Receive(ctx, func(op delivery.Operation) error {
			f, err := wire.DecodeForward(op.Payload)
			if err != nil {
				return err
			}

			fmt.Printf("batch %s: %d entries, %d bytes\n", f.Options.Chunk, len(f.Entries), len(op.Payload))

			return nil
		})
	})

	for i := int64(1); i <= 4; i++ {
		entries := make([]record.Entry, 0, 100)
		for c := int64(1); c <= 100; c++ {
			entries = append(entries, client.NewEntry(time.Now(), map[string]any{"batch": i, "seq": c}))
		}

		if err := client.PostForward(ctx, entries); err != nil {
			log.Fatal(err)
		}
	}

	sr.Close(ctx)

	if err := eg.Wait(); err != nil {
		log.Fatal(err)
	}
}
