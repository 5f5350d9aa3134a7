package wire

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// normalize renders protobuf messages through protojson so they encode with
// their JSON field names in every mode. Other payloads pass through.
func normalize(data any) (any, error) {
	m, ok := data.(proto.Message)
	if !ok {
		return data, nil
	}

	b, err := protojson.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("protojson: marshal %T: %w", data, err)
	}

	var out any
	if err = jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("protojson: reparse %T: %w", data, err)
	}

	return out, nil
}
