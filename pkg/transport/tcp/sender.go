// Package tcp delivers encoded payloads over a fresh TCP connection per
// attempt. Connections are never reused.
package tcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/quarks-tech/fluentforward-go/pkg/delivery"
)

const (
	DefaultConnectTimeout = time.Second
	DefaultWriteTimeout   = time.Second
)

var errNoAddresses = errors.New("no addresses found")

// Resolver is the subset of *net.Resolver the sender needs.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

type senderOptions struct {
	connectTimeout time.Duration
	writeTimeout   time.Duration
	resolver       Resolver
}

func defaultSenderOptions() senderOptions {
	return senderOptions{
		connectTimeout: DefaultConnectTimeout,
		writeTimeout:   DefaultWriteTimeout,
		resolver:       net.DefaultResolver,
	}
}

type SenderOption func(opts *senderOptions)

// WithConnectTimeout bounds address resolution and dialing together.
func WithConnectTimeout(d time.Duration) SenderOption {
	return func(opts *senderOptions) {
		opts.connectTimeout = d
	}
}

func WithWriteTimeout(d time.Duration) SenderOption {
	return func(opts *senderOptions) {
		opts.writeTimeout = d
	}
}

func WithResolver(r Resolver) SenderOption {
	return func(opts *senderOptions) {
		opts.resolver = r
	}
}

// Sender implements delivery.Transport.
type Sender struct {
	options senderOptions
}

func NewSender(opts ...SenderOption) *Sender {
	options := defaultSenderOptions()

	for _, opt := range opts {
		opt(&options)
	}

	return &Sender{
		options: options,
	}
}

// Send resolves op.Address, connects to the first resolved endpoint and
// writes the whole payload. The connection is closed before Send returns.
func (s *Sender) Send(ctx context.Context, op delivery.Operation) error {
	endpoint, err := s.resolve(ctx, op.Address)
	if err != nil {
		return delivery.NewError(delivery.AddressResolutionFailure, op.Address, err)
	}

	conn, err := s.dial(ctx, endpoint)
	if err != nil {
		return delivery.NewError(delivery.ConnectFailure, op.Address, err)
	}

	defer conn.Close()

	if err = write(conn, op.Payload, s.options.writeTimeout); err != nil {
		return delivery.NewError(delivery.WriteFailure, op.Address, err)
	}

	return nil
}

func (s *Sender) resolve(ctx context.Context, address string) (string, error) {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, s.options.connectTimeout)
	defer cancel()

	addrs, err := s.options.resolver.LookupHost(ctx, host)
	if err != nil {
		return "", err
	}

	if len(addrs) == 0 {
		return "", fmt.Errorf("%s: %w", host, errNoAddresses)
	}

	return net.JoinHostPort(addrs[0], port), nil
}

func (s *Sender) dial(ctx context.Context, endpoint string) (net.Conn, error) {
	dialer := net.Dialer{Timeout: s.options.connectTimeout}

	return dialer.DialContext(ctx, "tcp", endpoint)
}

func write(conn net.Conn, payload []byte, timeout time.Duration) error {
	if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}

	n, err := conn.Write(payload)
	if err != nil {
		return err
	}

	if n < len(payload) {
		return io.ErrShortWrite
	}

	return nil
}
