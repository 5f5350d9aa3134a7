// fluent-cat reads newline-delimited JSON objects from stdin and posts each
// one to a Fluentd-compatible collector.
//
//	tail -F app.log.json | fluent-cat --tag app.access --buffer /var/spool/app.buf
//
// Records that cannot be delivered after all retries go to the --buffer
// file when one is configured.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/quarks-tech/fluentforward-go/pkg/fluent"
	"github.com/quarks-tech/fluentforward-go/pkg/interceptor/logging"
	"github.com/quarks-tech/fluentforward-go/pkg/interceptor/recovery"
	"github.com/quarks-tech/fluentforward-go/pkg/record"
)

const maxLineSize = 1 << 20

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := parseArgs(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	logger := newLogger(cfg, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := append(cfg.clientOptions(logger),
		fluent.WithChainInterceptor(
			logging.PostInterceptor(logger),
			recovery.PostInterceptor(),
		),
	)

	client := fluent.NewWithConfig(cfg.Address, cfg.Tag, cfg.retryConfig(), opts...)

	logger.
		WithField("address", cfg.Address).
		WithField("tag", cfg.Tag).
		WithField("mode", cfg.Mode).
		Debug("fluent-cat started")

	return cat(ctx, client, os.Stdin, cfg)
}

func newLogger(cfg Config, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.JSONFormatter{})

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	return logger
}

type line struct {
	time    time.Time
	payload any
}

// cat posts every line of r. Lines are grouped into batches of cfg.Batch
// in forward modes and posted one by one otherwise. The first failed post
// stops the run.
func cat(ctx context.Context, client *fluent.Client, r io.Reader, cfg Config) error {
	batchSize := 1
	if cfg.wireMode().Batch() {
		batchSize = cfg.Batch
	}

	eg, ctx := errgroup.WithContext(ctx)
	batches := make(chan []line, cfg.Workers)

	eg.Go(func() error {
		defer close(batches)
		return readLines(ctx, r, batchSize, batches)
	})

	for i := 0; i < cfg.Workers; i++ {
		eg.Go(func() error {
			for batch := range batches {
				if err := post(ctx, client, cfg, batch); err != nil {
					return err
				}
			}

			return nil
		})
	}

	return eg.Wait()
}

func readLines(ctx context.Context, r io.Reader, batchSize int, out chan<- []line) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	batch := make([]line, 0, batchSize)
	n := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}

		select {
		case out <- batch:
		case <-ctx.Done():
			return ctx.Err()
		}

		batch = make([]line, 0, batchSize)

		return nil
	}

	for scanner.Scan() {
		n++

		b := scanner.Bytes()
		if len(b) == 0 {
			continue
		}

		var payload any
		if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(b, &payload); err != nil {
			return fmt.Errorf("line %d: %w", n, err)
		}

		batch = append(batch, line{time: time.Now(), payload: payload})

		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	return flush()
}

func post(ctx context.Context, client *fluent.Client, cfg Config, batch []line) error {
	if cfg.wireMode().Batch() {
		entries := make([]record.Entry, len(batch))
		for i, l := range batch {
			entries[i] = client.NewEntry(l.time, l.payload)
		}

		return client.PostForward(ctx, entries)
	}

	for _, l := range batch {
		if err := client.PostWithTime(ctx, l.payload, l.time); err != nil {
			return err
		}
	}

	return nil
}
