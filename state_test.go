package connect

import (
	"encoding/base64"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateCodec_RoundTrip(t *testing.T) {
	codec := NewStateCodec()
	userID := uuid.New()

	state, err := codec.Encode(userID)
	require.NoError(t, err)
	require.NotEmpty(t, state)

	decoded, ok := codec.Decode(state)
	require.True(t, ok)
	assert.Equal(t, userID, decoded)
}

func TestStateCodec_UniquePerRequest(t *testing.T) {
	codec := NewStateCodec()
	userID := uuid.New()

	first, err := codec.Encode(userID)
	require.NoError(t, err)
	second, err := codec.Encode(userID)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestStateCodec_DecodeRejectsGarbage(t *testing.T) {
	codec := NewStateCodec()

	tests := []struct {
		name  string
		state string
	}{
		{"empty", ""},
		{"not base64", "not-base64!!"},
		{"pipes only", base64.StdEncoding.EncodeToString([]byte("|||"))},
		{"no delimiter", base64.StdEncoding.EncodeToString([]byte("abcdef"))},
		{"bad user id", base64.StdEncoding.EncodeToString([]byte("not-a-uuid|nonce"))},
		{"nil user id", base64.StdEncoding.EncodeToString([]byte(uuid.Nil.String() + "|nonce"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := codec.Decode(tt.state)
			assert.False(t, ok)
			assert.Equal(t, uuid.Nil, id)
		})
	}
}
