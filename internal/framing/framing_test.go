package framing

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameStripRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		prefix  []byte
		payload []byte
	}{
		{"typical", []byte("cam1"), []byte{0xff, 0xd8, 0x00, 0xff, 0xd9}},
		{"empty payload", []byte("cam1"), nil},
		{"binary prefix", []byte{0x00, 0x01, 0xff}, []byte("data")},
		{"prefix looks like payload", []byte("abc"), []byte("abcabc")},
		{"large payload", []byte("p"), bytes.Repeat([]byte{7}, 1<<16)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := Frame(tt.prefix, tt.payload)
			assert.Len(t, msg, len(tt.prefix)+len(tt.payload))
			assert.True(t, HasPrefix(msg, tt.prefix))

			got, err := Strip(msg, len(tt.prefix))
			require.NoError(t, err)
			assert.Equal(t, len(tt.payload), len(got))
			assert.True(t, bytes.Equal(tt.payload, got))
		})
	}
}

func TestFrameDoesNotAliasInputs(t *testing.T) {
	prefix := []byte("cam1")
	payload := []byte("jpeg")
	msg := Frame(prefix, payload)

	prefix[0] = 'X'
	payload[0] = 'X'
	assert.Equal(t, "cam1jpeg", string(msg))
}

func TestStripDoesNotValidatePrefix(t *testing.T) {
	got, err := Strip([]byte("cam2payload"), len("cam1"))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))
}

func TestStripUnderflow(t *testing.T) {
	for _, n := range []int{5, 100, -1} {
		_, err := Strip([]byte("cam1"), n)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnderflow), "prefixLen=%d", n)
	}

	got, err := Strip([]byte("cam1"), 4)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestHasPrefix(t *testing.T) {
	assert.True(t, HasPrefix([]byte("cam1frame"), []byte("cam1")))
	assert.False(t, HasPrefix([]byte("cam2frame"), []byte("cam1")))
	assert.False(t, HasPrefix([]byte("ca"), []byte("cam1")))
}
