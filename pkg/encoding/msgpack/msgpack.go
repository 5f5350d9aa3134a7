package msgpack

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/quarks-tech/fluentforward-go/pkg/encoding"
)

const Name = "msgpack"

func init() {
	encoding.RegisterCodec(codec{})
}

type codec struct{}

func (codec) Name() string {
	return Name
}

// Marshal encodes with compact integers and sorted map keys so the same value
// always yields the same bytes. Structs without msgpack tags fall back to
// their json tags.
func (codec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer

	enc := msgpack.NewEncoder(&buf)
	enc.UseCompactInts(true)
	enc.SetSortMapKeys(true)
	enc.SetCustomStructTag("json")

	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Unmarshal decodes into v. Untyped values decode loosely: integers as
// int64/uint64, floats as float64, maps as map[string]any.
func (codec) Unmarshal(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)
	dec.SetCustomStructTag("json")

	return dec.Decode(v)
}
