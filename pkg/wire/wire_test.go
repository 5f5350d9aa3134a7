package wire

import (
	"math"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/quarks-tech/fluentforward-go/pkg/delivery"
	"github.com/quarks-tech/fluentforward-go/pkg/eventtime"
	"github.com/quarks-tech/fluentforward-go/pkg/record"
)

func TestEncodeBinarySingleStructuredBytes(t *testing.T) {
	b, err := Encode(record.New("t", eventtime.Structured(1, 2), nil), BinarySingle)
	require.NoError(t, err)

	assert.Equal(t, []byte{
		0x93,
		0xa1, 't',
		0xd7, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x02,
		0xc0,
	}, b)
}

func TestEncodeDecodeRecord(t *testing.T) {
	in := record.New("app.log", eventtime.Structured(1700000000, 123456789), map[string]any{
		"msg":   "hi",
		"count": int64(3),
		"tags":  []any{"a", "b"},
	})

	b, err := Encode(in, BinarySingle)
	require.NoError(t, err)

	out, err := DecodeRecord(b)
	require.NoError(t, err)
	assert.Equal(t, in.Tag, out.Tag)
	assert.Equal(t, in.Time, out.Time)
	assert.Equal(t, in.Data, out.Data)
}

func TestEncodeText(t *testing.T) {
	b, err := Encode(record.New("app.log", eventtime.Integer(1700000000), map[string]any{"msg": "hi"}), Text)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tag":"app.log","time":1700000000,"data":{"msg":"hi"}}`, string(b))

	b, err = Encode(record.New("app.log", eventtime.Structured(1700000000, 42), "x"), Text)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"time":1700000000.000000042`)

	var r record.Record
	require.NoError(t, jsoniter.Unmarshal(b, &r))
	assert.Equal(t, eventtime.Structured(1700000000, 42), r.Time)
	assert.Equal(t, "x", r.Data)
}

func TestEncodeTextRejectsNonFiniteFloats(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := Encode(record.New("t", eventtime.Integer(0), map[string]any{"v": v}), Text)
		assert.True(t, delivery.IsEncodeFailure(err), "value %v", v)
	}
}

func TestEncodeShapeMismatch(t *testing.T) {
	r := record.New("t", eventtime.Integer(0), nil)
	f := record.NewForward("t", nil)

	cases := []struct {
		name  string
		shape record.Shape
		mode  Mode
	}{
		{"record as batch", r, BinaryBatch},
		{"record as compressed batch", r, BinaryBatchCompressed},
		{"forward as single", f, BinarySingle},
		{"forward as text", f, Text},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Encode(tc.shape, tc.mode)
			assert.True(t, delivery.IsEncodeFailure(err))
			assert.ErrorIs(t, err, ErrShapeMismatch)
		})
	}
}

func TestEncodeEmptyBatch(t *testing.T) {
	b, err := Encode(record.NewForward("app", nil), BinaryBatch)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x92, 0xa3, 'a', 'p', 'p', 0x90}, b)

	f, err := DecodeForward(b)
	require.NoError(t, err)
	assert.Equal(t, "app", f.Tag)
	assert.Empty(t, f.Entries)
	assert.Nil(t, f.Options)
}

func TestEncodeBatchPreservesOrder(t *testing.T) {
	var entries []record.Entry
	for i := 0; i < 100; i++ {
		entries = append(entries, record.NewEntry(eventtime.Integer(int64(1000-i)), int64(i)))
	}

	b, err := Encode(record.NewForward("app", entries), BinaryBatch)
	require.NoError(t, err)

	f, err := DecodeForward(b)
	require.NoError(t, err)
	require.Len(t, f.Entries, 100)

	for i, e := range f.Entries {
		assert.Equal(t, int64(i), e.Data)
		assert.Equal(t, eventtime.Integer(int64(1000-i)), e.Time)
	}
}

func TestEncodeBatchWithOptions(t *testing.T) {
	f := record.NewForward("app", []record.Entry{record.NewEntry(eventtime.Structured(5, 6), "x")})
	f.Options = &record.ForwardOptions{Size: 1, Chunk: "abc"}

	b, err := Encode(f, BinaryBatch)
	require.NoError(t, err)

	out, err := DecodeForward(b)
	require.NoError(t, err)
	require.NotNil(t, out.Options)
	assert.Equal(t, record.ForwardOptions{Size: 1, Chunk: "abc"}, *out.Options)
	assert.Equal(t, eventtime.Structured(5, 6), out.Entries[0].Time)
}

func TestEncodeCompressed(t *testing.T) {
	entries := []record.Entry{
		record.NewEntry(eventtime.Structured(1, 0), map[string]any{"msg": "one"}),
		record.NewEntry(eventtime.Structured(2, 0), map[string]any{"msg": "two"}),
		record.NewEntry(eventtime.Integer(3), map[string]any{"msg": "three"}),
	}
	f := record.NewForward("app", entries)
	f.Options = &record.ForwardOptions{Chunk: "abc"}

	b, err := Encode(f, BinaryBatchCompressed)
	require.NoError(t, err)

	// [tag, bin, options]
	assert.Equal(t, byte(0x93), b[0])
	assert.Equal(t, byte(0xc4), b[5])

	out, err := DecodeForward(b)
	require.NoError(t, err)
	assert.Equal(t, "app", out.Tag)
	require.Len(t, out.Entries, 3)
	for i, e := range out.Entries {
		assert.Equal(t, entries[i].Time, e.Time)
		assert.Equal(t, entries[i].Data, e.Data)
	}

	require.NotNil(t, out.Options)
	assert.Equal(t, record.ForwardOptions{Size: 3, Chunk: "abc", Compressed: "gzip"}, *out.Options)

	// the caller's options are left untouched
	assert.Equal(t, record.ForwardOptions{Chunk: "abc"}, *f.Options)
}

func TestEncodeProtoPayload(t *testing.T) {
	msg, err := structpb.NewStruct(map[string]any{"msg": "hi", "n": 3})
	require.NoError(t, err)

	b, err := Encode(record.New("app", eventtime.Integer(1), msg), BinarySingle)
	require.NoError(t, err)

	r, err := DecodeRecord(b)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"msg": "hi", "n": float64(3)}, r.Data)

	b, err = Encode(record.New("app", eventtime.Integer(1), msg), Text)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tag":"app","time":1,"data":{"msg":"hi","n":3}}`, string(b))
}

func TestDecodeForwardRejectsMalformed(t *testing.T) {
	_, err := DecodeForward([]byte{0x91, 0xa1, 'x'})
	assert.Error(t, err)

	_, err = DecodeForward([]byte{0xc0})
	assert.Error(t, err)
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{Text, BinarySingle, BinaryBatch, BinaryBatchCompressed} {
		got, err := ParseMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}

	_, err := ParseMode("xml")
	assert.Error(t, err)

	assert.True(t, BinaryBatch.Batch())
	assert.False(t, Text.Batch())
}
