package payload

import (
	"github.com/hashicorp/go-msgpack/codec"
)

// Msgpack is the default payload codec. MessagePack keeps payloads compact,
// self-describing enough for loosely coupled peers, and handles the int/str/
// struct shapes handlers actually exchange.
type Msgpack struct {
	handle *codec.MsgpackHandle
}

// NewMsgpack creates a msgpack payload codec.
func NewMsgpack() *Msgpack {
	return &Msgpack{
		handle: &codec.MsgpackHandle{
			RawToString: true,
			WriteExt:    true,
		},
	}
}

// Marshal encodes v as msgpack.
func (m *Msgpack) Marshal(v any) ([]byte, error) {
	var buf []byte
	enc := codec.NewEncoderBytes(&buf, m.handle)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf, nil
}

// Unmarshal decodes msgpack data into v.
func (m *Msgpack) Unmarshal(data []byte, v any) error {
	dec := codec.NewDecoderBytes(data, m.handle)
	return dec.Decode(v)
}
