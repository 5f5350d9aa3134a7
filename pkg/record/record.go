// Package record holds the shapes a post call hands to the wire encoder: a
// single Record, or a Forward batch of entries sharing one tag.
package record

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/quarks-tech/fluentforward-go/pkg/eventtime"
)

// Shape is implemented by Record and Forward only.
type Shape interface {
	ShapeTag() string
	isShape()
}

// Record is a single tagged, timestamped payload. It encodes as the msgpack
// array [tag, time, data] and as the JSON object {"tag","time","data"}.
type Record struct {
	_msgpack struct{} `msgpack:",as_array"`

	Tag  string          `msgpack:"tag" json:"tag"`
	Time eventtime.Value `msgpack:"time" json:"time"`
	Data any             `msgpack:"data" json:"data"`
}

func New(tag string, t eventtime.Value, data any) Record {
	return Record{Tag: tag, Time: t, Data: data}
}

func (r Record) ShapeTag() string { return r.Tag }

func (Record) isShape() {}

// Entry is one [time, data] element of a Forward batch.
type Entry struct {
	_msgpack struct{} `msgpack:",as_array"`

	Time eventtime.Value `msgpack:"time" json:"time"`
	Data any             `msgpack:"data" json:"data"`
}

func NewEntry(t eventtime.Value, data any) Entry {
	return Entry{Time: t, Data: data}
}

// ForwardOptions is the optional trailing map of the forward protocol.
type ForwardOptions struct {
	Size       int    `msgpack:"size,omitempty" json:"size,omitempty"`
	Chunk      string `msgpack:"chunk,omitempty" json:"chunk,omitempty"`
	Compressed string `msgpack:"compressed,omitempty" json:"compressed,omitempty"`
}

// Forward is a batch of entries under one tag. Entries keep caller order.
type Forward struct {
	Tag     string
	Entries []Entry
	Options *ForwardOptions
}

func NewForward(tag string, entries []Entry) Forward {
	return Forward{Tag: tag, Entries: entries}
}

func (f Forward) ShapeTag() string { return f.Tag }

func (Forward) isShape() {}

// EncodeMsgpack writes [tag, [[time, data], ...]] followed by the options
// map when Options is set. A nil Entries slice encodes as an empty array.
func (f Forward) EncodeMsgpack(enc *msgpack.Encoder) error {
	n := 2
	if f.Options != nil {
		n = 3
	}

	if err := enc.EncodeArrayLen(n); err != nil {
		return err
	}

	if err := enc.EncodeString(f.Tag); err != nil {
		return err
	}

	if err := enc.EncodeArrayLen(len(f.Entries)); err != nil {
		return err
	}

	for i := range f.Entries {
		if err := enc.Encode(&f.Entries[i]); err != nil {
			return err
		}
	}

	if f.Options != nil {
		return enc.Encode(f.Options)
	}

	return nil
}

func (f *Forward) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}

	if n != 2 && n != 3 {
		return fmt.Errorf("record: forward array has %d elements", n)
	}

	if f.Tag, err = dec.DecodeString(); err != nil {
		return err
	}

	count, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}

	f.Entries = make([]Entry, 0, max(count, 0))
	for i := 0; i < count; i++ {
		var e Entry
		if err = dec.Decode(&e); err != nil {
			return fmt.Errorf("record: forward entry %d: %w", i, err)
		}
		f.Entries = append(f.Entries, e)
	}

	f.Options = nil
	if n == 3 {
		f.Options = new(ForwardOptions)
		return dec.Decode(f.Options)
	}

	return nil
}
