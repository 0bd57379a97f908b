package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/smazurov/zmqls/internal/framing"
)

const (
	// DefaultSubject is used when a nats:// address has no path.
	DefaultSubject = "zmqls"

	natsMaxPayload   = 8 << 20
	natsReadyTimeout = 5 * time.Second
	natsPending      = 64
)

type natsAddress struct {
	host    string
	port    int
	subject string
}

// wildcard hosts ask the publisher to run its own server.
func (a natsAddress) wildcard() bool {
	return a.host == "*" || a.host == "" || a.host == "0.0.0.0"
}

func (a natsAddress) url() string {
	return "nats://" + net.JoinHostPort(a.host, strconv.Itoa(a.port))
}

// parseNATSAddress splits nats://host:port[/subject].
func parseNATSAddress(address string) (natsAddress, error) {
	rest, ok := strings.CutPrefix(address, "nats://")
	if !ok {
		return natsAddress{}, fmt.Errorf("%w %q", ErrScheme, address)
	}
	hostport, subject, _ := strings.Cut(rest, "/")
	subject = strings.ReplaceAll(strings.Trim(subject, "/"), "/", ".")
	if subject == "" {
		subject = DefaultSubject
	}
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return natsAddress{}, fmt.Errorf("address %q: %w", address, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		return natsAddress{}, fmt.Errorf("address %q: invalid port %q", address, portStr)
	}
	return natsAddress{host: host, port: port, subject: subject}, nil
}

func connectNATS(url string, o options) (*nats.Conn, error) {
	logger := o.logger
	return nats.Connect(url,
		nats.Name(o.name),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
}

type natsPublisher struct {
	ns      *server.Server
	conn    *nats.Conn
	subject string
	addr    string
	stop    func() bool
	once    sync.Once
	err     error
}

// listenNATS starts an embedded server for wildcard hosts, then publishes
// through a client connection to it. Explicit hosts use an existing server.
func listenNATS(ctx context.Context, address string, o options) (*natsPublisher, error) {
	a, err := parseNATSAddress(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBind, err)
	}

	p := &natsPublisher{subject: a.subject}
	url := a.url()
	if a.wildcard() {
		port := a.port
		if port == 0 {
			port = server.RANDOM_PORT
		}
		ns, err := server.NewServer(&server.Options{
			Host:           "0.0.0.0",
			Port:           port,
			ServerName:     o.name,
			NoLog:          true,
			NoSigs:         true,
			MaxControlLine: 4096,
			MaxPayload:     natsMaxPayload,
		})
		if err != nil {
			return nil, fmt.Errorf("%w %s: %w", ErrBind, address, err)
		}
		go ns.Start()
		if !ns.ReadyForConnections(natsReadyTimeout) {
			ns.Shutdown()
			return nil, fmt.Errorf("%w %s: server not ready within %s", ErrBind, address, natsReadyTimeout)
		}
		p.ns = ns
		url = ns.ClientURL()
		o.logger.Info("Embedded NATS server started", "url", url)
	}

	conn, err := connectNATS(url, o)
	if err != nil {
		p.shutdown()
		return nil, fmt.Errorf("%w %s: %w", ErrBind, address, err)
	}
	p.conn = conn
	p.addr = url + "/" + a.subject
	p.stop = context.AfterFunc(ctx, func() { p.Close() })
	return p, nil
}

func (p *natsPublisher) Send(msg []byte) error {
	return p.conn.Publish(p.subject, msg)
}

func (p *natsPublisher) Addr() string { return p.addr }

func (p *natsPublisher) Close() error {
	p.once.Do(func() {
		if p.stop != nil {
			p.stop()
		}
		if p.conn != nil {
			p.err = p.conn.Flush()
			p.conn.Close()
		}
		p.shutdown()
	})
	return p.err
}

func (p *natsPublisher) shutdown() {
	if p.ns != nil {
		p.ns.Shutdown()
		p.ns.WaitForShutdown()
	}
}

type natsSubscriber struct {
	ctx    context.Context
	conn   *nats.Conn
	sub    *nats.Subscription
	msgs   chan *nats.Msg
	prefix []byte
	done   chan struct{}
	once   sync.Once
}

func dialNATS(ctx context.Context, address string, prefix []byte, o options) (*natsSubscriber, error) {
	a, err := parseNATSAddress(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}
	if a.wildcard() {
		a.host = "127.0.0.1"
	}

	conn, err := connectNATS(a.url(), o)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrConnect, address, err)
	}
	msgs := make(chan *nats.Msg, natsPending)
	sub, err := conn.ChanSubscribe(a.subject, msgs)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: subscribe %s: %w", ErrConnect, a.subject, err)
	}
	if err := conn.Flush(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}
	o.logger.Debug("NATS subscriber connected", "url", conn.ConnectedUrl(), "subject", a.subject)
	return &natsSubscriber{ctx: ctx, conn: conn, sub: sub, msgs: msgs, prefix: prefix, done: make(chan struct{})}, nil
}

func (s *natsSubscriber) Recv() ([]byte, error) {
	for {
		select {
		case <-s.done:
			return nil, ErrClosed
		default:
		}
		select {
		case <-s.ctx.Done():
			return nil, errors.Join(ErrClosed, s.ctx.Err())
		case <-s.done:
			return nil, ErrClosed
		case msg := <-s.msgs:
			if framing.HasPrefix(msg.Data, s.prefix) {
				return msg.Data, nil
			}
		}
	}
}

func (s *natsSubscriber) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.sub.Unsubscribe()
		s.conn.Close()
	})
	return err
}
