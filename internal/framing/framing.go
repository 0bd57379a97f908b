// Package framing builds and parses wire messages: the topic prefix followed
// immediately by the compressed frame, with no delimiter or length field.
//
// The prefix length is never carried on the wire. Both ends know it from
// their stream configuration, and the subscriber relies on the transport's
// subscription filter to only deliver messages that start with the prefix.
package framing

import (
	"bytes"
	"errors"
	"fmt"
)

// ErrUnderflow is returned by Strip when the message is shorter than the prefix.
var ErrUnderflow = errors.New("message shorter than prefix")

// Frame returns prefix ++ payload in a freshly allocated slice.
func Frame(prefix, payload []byte) []byte {
	msg := make([]byte, len(prefix)+len(payload))
	n := copy(msg, prefix)
	copy(msg[n:], payload)
	return msg
}

// Strip skips exactly prefixLen bytes and returns the rest of msg. The skipped
// bytes are not compared against anything. The result aliases msg.
func Strip(msg []byte, prefixLen int) ([]byte, error) {
	if prefixLen < 0 || prefixLen > len(msg) {
		return nil, fmt.Errorf("strip %d bytes from %d byte message: %w", prefixLen, len(msg), ErrUnderflow)
	}
	return msg[prefixLen:], nil
}

// HasPrefix reports whether msg belongs to the topic. Transports whose native
// filter is not a byte prefix use it to drop foreign messages.
func HasPrefix(msg, prefix []byte) bool {
	return bytes.HasPrefix(msg, prefix)
}
