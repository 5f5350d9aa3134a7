package eventtime

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// ExtType is the msgpack extension type code Fluentd reserves for EventTime.
const ExtType int8 = 0

const (
	extPayloadLen = 8
	nanosPerSec   = 1_000_000_000

	codeFixExt8 = 0xd7
	codeExt8    = 0xc7
)

var ErrInvalidEventTime = errors.New("eventtime: invalid event time")

// Mode selects the representation used for every timestamp a client produces.
type Mode int

const (
	// ModeStructured encodes seconds and nanoseconds as an EventTime extension.
	ModeStructured Mode = iota
	// ModeInteger encodes whole seconds since the epoch as an integer.
	ModeInteger
)

func (m Mode) String() string {
	switch m {
	case ModeStructured:
		return "structured"
	case ModeInteger:
		return "integer"
	default:
		return "Mode(" + strconv.Itoa(int(m)) + ")"
	}
}

// ParseMode parses the names returned by Mode.String.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "structured", "eventtime", "":
		return ModeStructured, nil
	case "integer", "int":
		return ModeInteger, nil
	default:
		return 0, fmt.Errorf("eventtime: unknown mode %q", s)
	}
}

// Value is a timestamp in one of the two wire representations.
// The zero Value is the integer timestamp 0.
type Value struct {
	structured bool
	seconds    int64
	nanos      uint32
}

// Integer returns an integer timestamp.
func Integer(seconds int64) Value {
	return Value{seconds: seconds}
}

// Structured returns a structured timestamp. Nanoseconds past one second are
// carried into seconds; a carry past math.MaxUint32 saturates at the last
// representable instant.
func Structured(seconds, nanoseconds uint32) Value {
	secs := int64(seconds) + int64(nanoseconds/nanosPerSec)
	nanoseconds %= nanosPerSec

	if secs > math.MaxUint32 {
		return Value{structured: true, seconds: math.MaxUint32, nanos: nanosPerSec - 1}
	}

	return Value{structured: true, seconds: secs, nanos: nanoseconds}
}

// From converts t using the given mode.
func From(t time.Time, mode Mode) Value {
	if mode == ModeInteger {
		return Integer(t.Unix())
	}

	return Structured(uint32(t.Unix()), uint32(t.Nanosecond()))
}

// Now is From(time.Now(), mode).
func Now(mode Mode) Value {
	return From(time.Now(), mode)
}

func (v Value) IsStructured() bool { return v.structured }

func (v Value) Seconds() int64 { return v.seconds }

// Nanoseconds is always 0 for integer timestamps.
func (v Value) Nanoseconds() uint32 { return v.nanos }

func (v Value) Mode() Mode {
	if v.structured {
		return ModeStructured
	}

	return ModeInteger
}

func (v Value) Time() time.Time {
	return time.Unix(v.seconds, int64(v.nanos))
}

func (v Value) String() string {
	if v.structured {
		return fmt.Sprintf("%d.%09d", v.seconds, v.nanos)
	}

	return strconv.FormatInt(v.seconds, 10)
}

// AppendExt appends the fixext8 encoding of a structured timestamp.
func (v Value) AppendExt(b []byte) []byte {
	var payload [extPayloadLen]byte
	binary.BigEndian.PutUint32(payload[0:4], uint32(v.seconds))
	binary.BigEndian.PutUint32(payload[4:8], v.nanos)

	b = append(b, codeFixExt8, byte(ExtType))

	return append(b, payload[:]...)
}

func (v Value) EncodeMsgpack(enc *msgpack.Encoder) error {
	if !v.structured {
		return enc.EncodeInt(v.seconds)
	}

	return enc.Encode(msgpack.RawMessage(v.AppendExt(nil)))
}

func (v *Value) DecodeMsgpack(dec *msgpack.Decoder) error {
	raw, err := dec.DecodeRaw()
	if err != nil {
		return err
	}

	if len(raw) == 0 {
		return ErrInvalidEventTime
	}

	switch raw[0] {
	case codeFixExt8:
		return v.decodeExt(raw[1], raw[2:])
	case codeExt8:
		if len(raw) < 3 || raw[1] != extPayloadLen {
			return fmt.Errorf("%w: ext8 length", ErrInvalidEventTime)
		}
		return v.decodeExt(raw[2], raw[3:])
	}

	var seconds int64
	if err = msgpack.Unmarshal(raw, &seconds); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEventTime, err)
	}

	*v = Integer(seconds)

	return nil
}

func (v *Value) decodeExt(extType byte, payload []byte) error {
	if int8(extType) != ExtType {
		return fmt.Errorf("%w: ext type %d", ErrInvalidEventTime, int8(extType))
	}

	if len(payload) != extPayloadLen {
		return fmt.Errorf("%w: payload length %d", ErrInvalidEventTime, len(payload))
	}

	nanos := binary.BigEndian.Uint32(payload[4:8])
	if nanos >= nanosPerSec {
		return fmt.Errorf("%w: nanoseconds %d out of range", ErrInvalidEventTime, nanos)
	}

	*v = Value{structured: true, seconds: int64(binary.BigEndian.Uint32(payload[0:4])), nanos: nanos}

	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	s := string(data)

	if !strings.ContainsAny(s, ".eE") {
		seconds, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidEventTime, err)
		}

		*v = Integer(seconds)

		return nil
	}

	secPart, fracPart, found := strings.Cut(s, ".")
	if !found || strings.ContainsAny(s, "eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidEventTime, err)
		}

		sec, frac := math.Modf(f)
		*v = Structured(uint32(sec), uint32(math.Round(frac*nanosPerSec)))

		return nil
	}

	seconds, err := strconv.ParseUint(secPart, 10, 32)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEventTime, err)
	}

	if len(fracPart) > 9 {
		fracPart = fracPart[:9]
	}

	fracPart += strings.Repeat("0", 9-len(fracPart))

	nanos, err := strconv.ParseUint(fracPart, 10, 32)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEventTime, err)
	}

	*v = Structured(uint32(seconds), uint32(nanos))

	return nil
}
