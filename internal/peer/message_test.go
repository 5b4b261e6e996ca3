package peer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHelloFrame(t *testing.T) {
	frame, err := EncodeMessage(MessageTypeHello, Hello{DeviceName: "studio", DeviceVersion: "1.2.0"})
	require.NoError(t, err)

	m, err := DecodeMessage(frame)
	require.NoError(t, err)
	assert.Equal(t, MessageTypeHello, m.Type)

	var h Hello
	require.NoError(t, m.DecodePayload(&h))
	assert.Equal(t, Hello{DeviceName: "studio", DeviceVersion: "1.2.0"}, h)
}

func TestDecodeMessageRejectsGarbage(t *testing.T) {
	_, err := DecodeMessage([]byte{0xc1})
	assert.Error(t, err)
}
