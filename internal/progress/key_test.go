package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeKey(t *testing.T) {
	key, err := EncodeKey("alice", "build", "current")
	require.NoError(t, err)
	assert.Equal(t, "pcafe:alice:build:current", key)

	key, err = EncodeKey("alice", "build:stage-2", "state")
	require.NoError(t, err)
	assert.Equal(t, "pcafe:alice:build:stage-2:state", key)
}

func TestEncodeKeyRejectsBadSegments(t *testing.T) {
	_, err := EncodeKey("al ice", "build", "current")
	assert.ErrorIs(t, err, ErrInvalidCharset)

	_, err = EncodeKey("alice", "bu*ld", "current")
	assert.ErrorIs(t, err, ErrInvalidCharset)

	_, err = EncodeKey("alice", "build:sta/ge", "current")
	assert.ErrorIs(t, err, ErrInvalidCharset)

	_, err = EncodeKey("alice", "build", "cur:rent")
	assert.ErrorIs(t, err, ErrInvalidField)
}

func TestEncodePattern(t *testing.T) {
	pattern, err := EncodePattern("alice", "")
	require.NoError(t, err)
	assert.Equal(t, "pcafe:alice:*", pattern)

	pattern, err = EncodePattern("alice", "build")
	require.NoError(t, err)
	assert.Equal(t, "pcafe:alice:build*", pattern)

	_, err = EncodePattern("al?ce", "")
	assert.ErrorIs(t, err, ErrInvalidCharset)
}

func TestDecodeKeyRoundTrip(t *testing.T) {
	cases := []struct {
		namespace, task, field string
	}{
		{"alice", "build", "state"},
		{"alice", "build", "current"},
		{"bob-2", "deploy:eu-west:db", "max"},
		{"u_1.2", "a", "state"},
		{"alice", "", "current"},
	}
	for _, tc := range cases {
		raw, err := EncodeKey(tc.namespace, tc.task, tc.field)
		require.NoError(t, err)

		key, field, err := DecodeKey(raw)
		require.NoError(t, err, "decoding %q", raw)
		assert.Equal(t, tc.namespace, key.Namespace)
		assert.Equal(t, tc.task, key.Task)
		assert.Equal(t, tc.field, field)
	}
}

func TestDecodeKeyRejectsForeignKeys(t *testing.T) {
	_, _, err := DecodeKey("session:abc123")
	assert.ErrorIs(t, err, ErrBadStructure)

	_, _, err = DecodeKey("pcafe:alice")
	assert.ErrorIs(t, err, ErrBadStructure)

	_, _, err = DecodeKey("pcafe:alice:bu ild:state")
	assert.ErrorIs(t, err, ErrInvalidCharset)
}
