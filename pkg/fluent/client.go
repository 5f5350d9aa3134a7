// Package fluent is a client for Fluentd-compatible collectors.
//
// A Client encodes each post, delivers it over a fresh connection with
// exponential backoff between attempts and, once the attempt budget is
// spent, appends the record to the configured buffer file. A post that ends
// up in the buffer file is reported as a success.
//
//	client := fluent.New("127.0.0.1:24224", "app.access")
//	err := client.Post(ctx, map[string]any{"path": "/", "status": 200})
package fluent

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/google/uuid"

	"github.com/quarks-tech/fluentforward-go/pkg/delivery"
	"github.com/quarks-tech/fluentforward-go/pkg/eventtime"
	"github.com/quarks-tech/fluentforward-go/pkg/record"
	"github.com/quarks-tech/fluentforward-go/pkg/transport/filebuffer"
	"github.com/quarks-tech/fluentforward-go/pkg/wire"
)

// Client is immutable after construction and safe for concurrent use.
type Client struct {
	address    string
	tag        string
	controller *delivery.Controller
	buffer     *filebuffer.Store
	options    clientOptions
}

// New returns a client using delivery.DefaultRetryConfig.
func New(address, tag string, opts ...Option) *Client {
	return NewWithConfig(address, tag, delivery.RetryConfig{}, opts...)
}

// NewWithConfig returns a client using config. Zero fields of config take
// their defaults; no I/O is performed.
func NewWithConfig(address, tag string, config delivery.RetryConfig, opts ...Option) *Client {
	options := defaultClientOptions()

	for _, opt := range opts {
		opt(&options)
	}

	c := &Client{
		address: address,
		tag:     tag,
		options: options,
		controller: delivery.NewController(config,
			delivery.WithSleeper(options.sleeper),
			delivery.WithLogger(options.logger),
		),
	}

	if config.BufferPath != "" {
		c.buffer = filebuffer.New(config.BufferPath)
	}

	chainInterceptors(c)

	return c
}

func (c *Client) Address() string { return c.address }

func (c *Client) Tag() string { return c.tag }

func (c *Client) Config() delivery.RetryConfig { return c.controller.Config() }

// Post sends payload stamped with the current time.
func (c *Client) Post(ctx context.Context, payload any) error {
	return c.PostWithTime(ctx, payload, time.Now())
}

// PostWithTime sends payload stamped with t.
func (c *Client) PostWithTime(ctx context.Context, payload any, t time.Time) error {
	r := record.New(c.tag, eventtime.From(t, c.options.timeMode), payload)

	return c.post(ctx, &Post{Shape: r, Mode: c.options.mode})
}

// NewEntry builds a forward entry with the client's time representation.
func (c *Client) NewEntry(t time.Time, payload any) record.Entry {
	return record.NewEntry(eventtime.From(t, c.options.timeMode), payload)
}

// PostForward sends entries as one batch in caller order.
func (c *Client) PostForward(ctx context.Context, entries []record.Entry) error {
	f := record.NewForward(c.tag, entries)
	mode := wire.BinaryBatch

	if c.options.compress {
		mode = wire.BinaryBatchCompressed
	}

	if c.options.chunkID {
		f.Options = &record.ForwardOptions{
			Size:  len(entries),
			Chunk: newChunkID(),
		}
	}

	return c.post(ctx, &Post{Shape: f, Mode: mode})
}

func (c *Client) post(ctx context.Context, p *Post) error {
	if c.options.interceptor != nil {
		return c.options.interceptor(ctx, p, c.deliver)
	}

	return c.deliver(ctx, p)
}

// deliver encodes p, runs the retry controller and falls back to the buffer
// file. Encode failures are returned as is.
func (c *Client) deliver(ctx context.Context, p *Post) error {
	payload, err := wire.Encode(p.Shape, p.Mode)
	if err != nil {
		return err
	}

	err = c.controller.Deliver(ctx, delivery.NewOperation(c.address, payload), c.options.transport)
	if err == nil {
		return nil
	}

	return c.onExhausted(ctx, p.Shape, err)
}

func newChunkID() string {
	id := uuid.New()

	return base64.StdEncoding.EncodeToString(id[:])
}
