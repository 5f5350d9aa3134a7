// Package wire turns record shapes into the bytes written to a collector.
//
// Text renders a Record as a JSON object with named fields. BinarySingle
// renders it as the msgpack array [tag, time, data]. BinaryBatch renders a
// Forward as [tag, [[time, data], ...]] with an optional options map, and
// BinaryBatchCompressed packs the entries into a gzip'ed msgpack stream as
// in the CompressedPackedForward mode of the forward protocol.
//
// Encoding is pure: no network, no retries.
package wire

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"

	"github.com/quarks-tech/fluentforward-go/pkg/delivery"
	"github.com/quarks-tech/fluentforward-go/pkg/encoding"
	jsoncodec "github.com/quarks-tech/fluentforward-go/pkg/encoding/json"
	msgpackcodec "github.com/quarks-tech/fluentforward-go/pkg/encoding/msgpack"
	"github.com/quarks-tech/fluentforward-go/pkg/record"
)

const compressionGzip = "gzip"

var ErrShapeMismatch = errors.New("wire: shape not supported by mode")

type Mode int

const (
	BinarySingle Mode = iota
	Text
	BinaryBatch
	BinaryBatchCompressed
)

func (m Mode) String() string {
	switch m {
	case Text:
		return "text"
	case BinarySingle:
		return "msgpack"
	case BinaryBatch:
		return "forward"
	case BinaryBatchCompressed:
		return "compressed-forward"
	default:
		return "Mode(" + strconv.Itoa(int(m)) + ")"
	}
}

// Batch reports whether the mode encodes Forward shapes.
func (m Mode) Batch() bool {
	return m == BinaryBatch || m == BinaryBatchCompressed
}

// ParseMode parses the names returned by Mode.String.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "text", "json":
		return Text, nil
	case "msgpack", "binary", "":
		return BinarySingle, nil
	case "forward", "batch":
		return BinaryBatch, nil
	case "compressed-forward", "compressed":
		return BinaryBatchCompressed, nil
	default:
		return 0, fmt.Errorf("wire: unknown mode %q", s)
	}
}

func (m Mode) codecName() string {
	if m == Text {
		return jsoncodec.Name
	}

	return msgpackcodec.Name
}

// Encode serializes shape in the given mode. Every failure is a
// delivery.Error of kind EncodeFailure.
func Encode(shape record.Shape, mode Mode) ([]byte, error) {
	b, err := encode(shape, mode)
	if err != nil {
		return nil, delivery.NewError(delivery.EncodeFailure, "", err)
	}

	return b, nil
}

func encode(shape record.Shape, mode Mode) ([]byte, error) {
	codec, err := encoding.GetCodec(mode.codecName())
	if err != nil {
		return nil, err
	}

	switch s := shape.(type) {
	case record.Record:
		if mode.Batch() {
			return nil, fmt.Errorf("%w: record in %s mode", ErrShapeMismatch, mode)
		}

		if s.Data, err = normalize(s.Data); err != nil {
			return nil, err
		}

		return codec.Marshal(&s)
	case record.Forward:
		if !mode.Batch() {
			return nil, fmt.Errorf("%w: forward in %s mode", ErrShapeMismatch, mode)
		}

		entries := make([]record.Entry, len(s.Entries))
		for i, e := range s.Entries {
			if e.Data, err = normalize(e.Data); err != nil {
				return nil, fmt.Errorf("entry %d: %w", i, err)
			}
			entries[i] = e
		}
		s.Entries = entries

		if mode == BinaryBatchCompressed {
			return encodeCompressed(codec, s)
		}

		return codec.Marshal(s)
	default:
		return nil, fmt.Errorf("%w: %T", ErrShapeMismatch, shape)
	}
}

// packedForward is [tag, bin(entries), options].
type packedForward struct {
	_msgpack struct{} `msgpack:",as_array"`

	Tag     string
	Entries []byte
	Options record.ForwardOptions
}

func encodeCompressed(codec encoding.Codec, f record.Forward) ([]byte, error) {
	var buf bytes.Buffer

	zw := gzip.NewWriter(&buf)

	for i := range f.Entries {
		b, err := codec.Marshal(&f.Entries[i])
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}

		if _, err = zw.Write(b); err != nil {
			return nil, fmt.Errorf("compress: %w", err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}

	pf := packedForward{
		Tag:     f.Tag,
		Entries: buf.Bytes(),
	}

	if f.Options != nil {
		pf.Options = *f.Options
	}

	pf.Options.Compressed = compressionGzip
	pf.Options.Size = len(f.Entries)

	return codec.Marshal(&pf)
}

// DecodeRecord parses a BinarySingle payload.
func DecodeRecord(b []byte) (record.Record, error) {
	var r record.Record

	codec, err := encoding.GetCodec(msgpackcodec.Name)
	if err != nil {
		return r, err
	}

	if err = codec.Unmarshal(b, &r); err != nil {
		return r, fmt.Errorf("wire: decode record: %w", err)
	}

	return r, nil
}

// DecodeForward parses a BinaryBatch or BinaryBatchCompressed payload.
func DecodeForward(b []byte) (record.Forward, error) {
	codec, err := encoding.GetCodec(msgpackcodec.Name)
	if err != nil {
		return record.Forward{}, err
	}

	var elems []msgpack.RawMessage
	if err = codec.Unmarshal(b, &elems); err != nil {
		return record.Forward{}, fmt.Errorf("wire: decode forward: %w", err)
	}

	if len(elems) < 2 || len(elems) > 3 {
		return record.Forward{}, fmt.Errorf("wire: decode forward: %d elements", len(elems))
	}

	if len(elems[1]) > 0 && isArrayCode(elems[1][0]) {
		var f record.Forward
		if err = codec.Unmarshal(b, &f); err != nil {
			return record.Forward{}, fmt.Errorf("wire: decode forward: %w", err)
		}

		return f, nil
	}

	var packed []byte
	if err = codec.Unmarshal(elems[1], &packed); err != nil {
		return record.Forward{}, fmt.Errorf("wire: decode packed entries: %w", err)
	}

	return decodePacked(codec, elems, packed)
}

func isArrayCode(c byte) bool {
	return (c >= msgpcode.FixedArrayLow && c <= msgpcode.FixedArrayHigh) ||
		c == msgpcode.Array16 || c == msgpcode.Array32
}

func decodePacked(codec encoding.Codec, elems []msgpack.RawMessage, packed []byte) (record.Forward, error) {
	var f record.Forward

	if err := codec.Unmarshal(elems[0], &f.Tag); err != nil {
		return f, fmt.Errorf("wire: decode forward tag: %w", err)
	}

	if len(elems) == 3 {
		f.Options = new(record.ForwardOptions)
		if err := codec.Unmarshal(elems[2], f.Options); err != nil {
			return f, fmt.Errorf("wire: decode forward options: %w", err)
		}
	}

	stream := packed

	if f.Options != nil && f.Options.Compressed == compressionGzip {
		zr, err := gzip.NewReader(bytes.NewReader(packed))
		if err != nil {
			return f, fmt.Errorf("wire: decompress: %w", err)
		}
		defer zr.Close()

		var out bytes.Buffer
		if _, err = out.ReadFrom(zr); err != nil {
			return f, fmt.Errorf("wire: decompress: %w", err)
		}

		stream = out.Bytes()
	}

	r := bytes.NewReader(stream)
	dec := msgpack.NewDecoder(r)
	dec.UseLooseInterfaceDecoding(true)

	f.Entries = []record.Entry{}
	for r.Len() > 0 {
		var e record.Entry
		if err := dec.Decode(&e); err != nil {
			return f, fmt.Errorf("wire: decode packed entry %d: %w", len(f.Entries), err)
		}
		f.Entries = append(f.Entries, e)
	}

	return f, nil
}
