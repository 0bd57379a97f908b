package transport

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"strings"
	"time"

	"github.com/go-zeromq/zmq4"
	"github.com/smazurov/zmqls/internal/framing"
)

const dialRetry = 250 * time.Millisecond

// stdLogger routes zmq4's internal log.Logger output to the module logger.
func stdLogger(o options) *log.Logger {
	return slog.NewLogLogger(o.logger.Handler(), slog.LevelDebug)
}

type zmqPublisher struct {
	sock     zmq4.Socket
	endpoint string
}

// bindEndpoint turns the libzmq wildcard host into one net.Listen accepts.
func bindEndpoint(address string) string {
	for _, wildcard := range []string{"tcp://*:", "tcp://0.0.0.0:"} {
		if rest, ok := strings.CutPrefix(address, wildcard); ok {
			return "tcp://:" + rest
		}
	}
	return address
}

func listenZMQ(ctx context.Context, address string, o options) (*zmqPublisher, error) {
	sock := zmq4.NewPub(ctx, zmq4.WithLogger(stdLogger(o)))
	if err := sock.Listen(bindEndpoint(address)); err != nil {
		sock.Close()
		return nil, fmt.Errorf("%w %s: %w", ErrBind, address, err)
	}

	p := &zmqPublisher{sock: sock, endpoint: address}
	if a := sock.Addr(); a != nil && a.Network() == "tcp" {
		p.endpoint = "tcp://" + a.String()
	}
	o.logger.Debug("ZeroMQ publisher bound", "address", address, "endpoint", p.endpoint)
	return p, nil
}

func (p *zmqPublisher) Send(msg []byte) error {
	return p.sock.Send(zmq4.NewMsg(msg))
}

func (p *zmqPublisher) Addr() string { return p.endpoint }

func (p *zmqPublisher) Close() error { return p.sock.Close() }

type zmqSubscriber struct {
	ctx    context.Context
	sock   zmq4.Socket
	prefix []byte
}

// dialZMQ retries refused connections until ctx ends, like libzmq's
// asynchronous connect. Malformed endpoints fail at once.
func dialZMQ(ctx context.Context, address string, prefix []byte, o options) (*zmqSubscriber, error) {
	sock := zmq4.NewSub(ctx,
		zmq4.WithLogger(stdLogger(o)),
		zmq4.WithDialerRetry(dialRetry),
		zmq4.WithDialerMaxRetries(-1),
	)
	if err := sock.Dial(address); err != nil {
		sock.Close()
		return nil, fmt.Errorf("%w %s: %w", ErrConnect, address, err)
	}
	if err := sock.SetOption(zmq4.OptionSubscribe, string(prefix)); err != nil {
		sock.Close()
		return nil, fmt.Errorf("%w: subscribe %q: %w", ErrConnect, prefix, err)
	}
	o.logger.Debug("ZeroMQ subscriber connected", "address", address, "prefix", string(prefix))
	return &zmqSubscriber{ctx: ctx, sock: sock, prefix: prefix}, nil
}

func (s *zmqSubscriber) Recv() ([]byte, error) {
	for {
		msg, err := s.sock.Recv()
		if err != nil {
			if ctxErr := s.ctx.Err(); ctxErr != nil {
				return nil, errors.Join(ErrClosed, ctxErr)
			}
			return nil, err
		}
		data := msg.Bytes()
		if framing.HasPrefix(data, s.prefix) {
			return data, nil
		}
	}
}

func (s *zmqSubscriber) Close() error { return s.sock.Close() }
