// Package transport moves framed messages between producers and consumers.
//
// The scheme of the address picks the backend:
//
//	tcp://, ipc://, inproc://   ZeroMQ PUB/SUB
//	nats://host:port[/subject]  NATS core publish/subscribe
//
// Publishers bind (Listen) and subscribers connect (Dial), as in the
// classic ZeroMQ pattern. Subscribers only deliver messages that start with
// their prefix.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

var (
	ErrBind    = errors.New("cannot bind publisher")
	ErrConnect = errors.New("cannot connect subscriber")
	ErrScheme  = errors.New("unsupported address scheme")
	ErrClosed  = errors.New("transport closed")
)

// Publisher sends whole messages to every matching subscriber.
type Publisher interface {
	Send(msg []byte) error
	// Addr is the endpoint subscribers should dial.
	Addr() string
	Close() error
}

// Subscriber receives messages starting with its prefix.
type Subscriber interface {
	// Recv blocks until a message arrives or the transport's context ends.
	Recv() ([]byte, error)
	Close() error
}

type options struct {
	logger *slog.Logger
	name   string
}

type Option func(*options)

// WithLogger sets the logger for connection events.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithName labels the connection, e.g. for NATS server monitoring.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default(), name: "zmqls"}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Listen binds a publisher on address. The publisher lives until Close or
// until ctx ends.
func Listen(ctx context.Context, address string, opts ...Option) (Publisher, error) {
	o := buildOptions(opts)
	switch scheme(address) {
	case "tcp", "ipc", "inproc":
		return listenZMQ(ctx, address, o)
	case "nats":
		return listenNATS(ctx, address, o)
	default:
		return nil, fmt.Errorf("%w: %w %q", ErrBind, ErrScheme, address)
	}
}

// Dial connects a subscriber for prefix to address.
func Dial(ctx context.Context, address string, prefix []byte, opts ...Option) (Subscriber, error) {
	o := buildOptions(opts)
	switch scheme(address) {
	case "tcp", "ipc", "inproc":
		return dialZMQ(ctx, address, prefix, o)
	case "nats":
		return dialNATS(ctx, address, prefix, o)
	default:
		return nil, fmt.Errorf("%w: %w %q", ErrConnect, ErrScheme, address)
	}
}

func scheme(address string) string {
	s, _, ok := strings.Cut(address, "://")
	if !ok {
		return ""
	}
	return strings.ToLower(s)
}
