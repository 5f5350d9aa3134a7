// Package encoding holds the codecs the wire encoder looks up by name. The
// json and msgpack subpackages register themselves on import.
package encoding

import (
	"errors"
	"strings"
)

var ErrUnknownCodec = errors.New("fluentforward: unknown codec")

// Codec must be safe for concurrent use.
type Codec interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

var registeredCodecs = make(map[string]Codec)

// RegisterCodec is meant for init functions; it is not safe for concurrent
// use. A later codec with the same name replaces the earlier one.
func RegisterCodec(codec Codec) {
	registeredCodecs[strings.ToLower(codec.Name())] = codec
}

func GetCodec(name string) (Codec, error) {
	if codec, ok := registeredCodecs[strings.ToLower(name)]; ok {
		return codec, nil
	}

	return nil, ErrUnknownCodec
}
