package peer

import "github.com/vmihailenco/msgpack/v5"

// DataChannelLabel names the side channel opened next to the media.
const DataChannelLabel = "mira"

const MessageTypeHello = "hello"

// Message is one msgpack frame on the data channel.
type Message struct {
	Type    string             `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}

// Hello introduces the sending device once the data channel opens.
type Hello struct {
	DeviceName    string `msgpack:"deviceName"`
	DeviceVersion string `msgpack:"deviceVersion"`
}

func (m Message) DecodePayload(v any) error {
	return msgpack.Unmarshal(m.Payload, v)
}

// EncodeMessage wraps payload in a typed frame.
func EncodeMessage(t string, payload any) ([]byte, error) {
	b, err := msgpack.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(Message{Type: t, Payload: b})
}

func DecodeMessage(data []byte) (Message, error) {
	var m Message
	err := msgpack.Unmarshal(data, &m)
	return m, err
}
