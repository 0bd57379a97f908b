package transport

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recvOne keeps publishing until the subscriber sees a message, since PUB
// drops everything sent before the subscription reaches it.
func recvOne(t *testing.T, pub Publisher, sub Subscriber, send ...[]byte) []byte {
	t.Helper()

	got := make(chan []byte, 1)
	errs := make(chan error, 1)
	go func() {
		msg, err := sub.Recv()
		if err != nil {
			errs <- err
			return
		}
		got <- msg
	}()

	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case msg := <-got:
			return msg
		case err := <-errs:
			t.Fatalf("recv: %v", err)
		case <-deadline:
			t.Fatal("no message received")
		case <-tick.C:
			for _, m := range send {
				require.NoError(t, pub.Send(m))
			}
		}
	}
}

func TestZMQPrefixFilter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pub, err := Listen(ctx, "inproc://transport-prefix")
	require.NoError(t, err)
	defer pub.Close()

	sub, err := Dial(ctx, "inproc://transport-prefix", []byte("cam1"))
	require.NoError(t, err)
	defer sub.Close()

	msg := recvOne(t, pub, sub, []byte("cam2:other"), []byte("cam1:frame"))
	assert.Equal(t, "cam1:frame", string(msg))
}

func TestZMQRecvUnblocksOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	pub, err := Listen(ctx, "inproc://transport-cancel")
	require.NoError(t, err)
	defer pub.Close()
	sub, err := Dial(ctx, "inproc://transport-cancel", []byte("x"))
	require.NoError(t, err)
	defer sub.Close()

	errs := make(chan error, 1)
	go func() {
		_, err := sub.Recv()
		errs <- err
	}()
	cancel()

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("Recv did not return after cancel")
	}
}

func TestZMQTCPRandomPort(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pub, err := Listen(ctx, "tcp://127.0.0.1:0")
	require.NoError(t, err)
	defer pub.Close()

	assert.True(t, strings.HasPrefix(pub.Addr(), "tcp://127.0.0.1:"), pub.Addr())
	assert.NotEqual(t, "tcp://127.0.0.1:0", pub.Addr())

	sub, err := Dial(ctx, pub.Addr(), []byte("p"))
	require.NoError(t, err)
	defer sub.Close()
	assert.Equal(t, "p1", string(recvOne(t, pub, sub, []byte("p1"))))
}

func TestBindEndpoint(t *testing.T) {
	assert.Equal(t, "tcp://:5555", bindEndpoint("tcp://*:5555"))
	assert.Equal(t, "tcp://:5555", bindEndpoint("tcp://0.0.0.0:5555"))
	assert.Equal(t, "tcp://127.0.0.1:5555", bindEndpoint("tcp://127.0.0.1:5555"))
	assert.Equal(t, "ipc:///tmp/x", bindEndpoint("ipc:///tmp/x"))
}

func TestUnsupportedScheme(t *testing.T) {
	ctx := context.Background()

	_, err := Listen(ctx, "udp://127.0.0.1:5000")
	assert.ErrorIs(t, err, ErrBind)
	assert.ErrorIs(t, err, ErrScheme)

	_, err = Dial(ctx, "localhost:5000", []byte("a"))
	assert.ErrorIs(t, err, ErrConnect)
	assert.ErrorIs(t, err, ErrScheme)
}

func TestParseNATSAddress(t *testing.T) {
	tests := []struct {
		in       string
		host     string
		port     int
		subject  string
		wildcard bool
		wantErr  bool
	}{
		{in: "nats://*:4222", host: "*", port: 4222, subject: DefaultSubject, wildcard: true},
		{in: "nats://10.0.0.2:4222/cams/front", host: "10.0.0.2", port: 4222, subject: "cams.front"},
		{in: "nats://localhost:0/frames/", host: "localhost", port: 0, subject: "frames"},
		{in: "nats://localhost", wantErr: true},
		{in: "nats://localhost:http", wantErr: true},
		{in: "tcp://localhost:1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			a, err := parseNATSAddress(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.host, a.host)
			assert.Equal(t, tt.port, a.port)
			assert.Equal(t, tt.subject, a.subject)
			assert.Equal(t, tt.wildcard, a.wildcard())
		})
	}
}

func TestNATSEmbeddedRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pub, err := Listen(ctx, "nats://*:0/frames")
	require.NoError(t, err)
	defer pub.Close()
	require.True(t, strings.HasSuffix(pub.Addr(), "/frames"), pub.Addr())

	sub, err := Dial(ctx, pub.Addr(), []byte("cam1"))
	require.NoError(t, err)
	defer sub.Close()

	msg := recvOne(t, pub, sub, []byte("cam2:skip"), []byte("cam1:keep"))
	assert.Equal(t, "cam1:keep", string(msg))

	require.NoError(t, sub.Close())
	_, err = sub.Recv()
	assert.True(t, errors.Is(err, ErrClosed))
}
