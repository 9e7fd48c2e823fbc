package ws

import (
	"bytes"
	"encoding/json"

	"github.com/coder/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

// codec frames messages for one connection. JSON goes out as text frames,
// msgpack as binary frames; both reuse the json field names.
type codec struct {
	msgType websocket.MessageType
	binary  bool
}

func codecFor(format string) (codec, bool) {
	switch format {
	case "", "json":
		return codec{msgType: websocket.MessageText}, true
	case "msgpack":
		return codec{msgType: websocket.MessageBinary, binary: true}, true
	default:
		return codec{}, false
	}
}

func (c codec) encode(v any) ([]byte, error) {
	if !c.binary {
		return json.Marshal(v)
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c codec) decode(data []byte, v any) error {
	if !c.binary {
		return json.Unmarshal(data, v)
	}
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}
