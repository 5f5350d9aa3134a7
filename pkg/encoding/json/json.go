package json

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/quarks-tech/fluentforward-go/pkg/encoding"
)

const Name = "json"

func init() {
	encoding.RegisterCodec(codec{})
}

// api rejects NaN and infinities the same way encoding/json does.
var api = jsoniter.ConfigCompatibleWithStandardLibrary

type codec struct{}

func (codec) Name() string {
	return Name
}

func (codec) Marshal(v any) ([]byte, error) {
	return api.Marshal(v)
}

func (codec) Unmarshal(data []byte, v any) error {
	return api.Unmarshal(data, v)
}
