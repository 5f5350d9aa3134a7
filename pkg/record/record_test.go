package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/quarks-tech/fluentforward-go/pkg/eventtime"
)

func TestShapeTag(t *testing.T) {
	var s Shape = New("a.b", eventtime.Integer(1), nil)
	assert.Equal(t, "a.b", s.ShapeTag())

	s = NewForward("c.d", nil)
	assert.Equal(t, "c.d", s.ShapeTag())
}

func TestRecordIsArray(t *testing.T) {
	b, err := msgpack.Marshal(New("t", eventtime.Integer(7), "x"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x93, 0xa1, 't', 0x07, 0xa1, 'x'}, b)
}

func TestForwardRoundTrip(t *testing.T) {
	in := NewForward("app", []Entry{
		NewEntry(eventtime.Structured(10, 20), "first"),
		NewEntry(eventtime.Integer(11), "second"),
	})
	in.Options = &ForwardOptions{Size: 2, Chunk: "c"}

	b, err := msgpack.Marshal(in)
	require.NoError(t, err)

	var out Forward
	require.NoError(t, msgpack.Unmarshal(b, &out))
	assert.Equal(t, in, out)
}

func TestForwardWithoutOptionsHasTwoElements(t *testing.T) {
	b, err := msgpack.Marshal(NewForward("x", []Entry{NewEntry(eventtime.Integer(1), nil)}))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x92, 0xa1, 'x', 0x91, 0x92, 0x01, 0xc0}, b)
}

func TestForwardDecodeRejectsBadArity(t *testing.T) {
	b, err := msgpack.Marshal([]any{"x", []any{}, map[string]any{}, "extra"})
	require.NoError(t, err)

	var f Forward
	assert.Error(t, msgpack.Unmarshal(b, &f))
}
