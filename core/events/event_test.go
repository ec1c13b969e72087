package events

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type namedEvent string

func (e namedEvent) EventType() string { return string(e) }

type recorder struct {
	seen []string
}

func (r *recorder) Emit(evt Event) { r.seen = append(r.seen, evt.EventType()) }

func TestBufferFlushPreservesOrder(t *testing.T) {
	var buf Buffer
	buf.Emit(namedEvent("a"))
	buf.Emit(nil)
	buf.Emit(namedEvent("b"))
	require.Equal(t, 2, buf.Len())

	rec := &recorder{}
	buf.Flush(rec)
	require.Equal(t, []string{"a", "b"}, rec.seen)
	require.Zero(t, buf.Len())
}

func TestBufferDiscardDropsEvents(t *testing.T) {
	var buf Buffer
	buf.Emit(namedEvent("a"))
	buf.Discard()

	rec := &recorder{}
	buf.Flush(rec)
	require.Empty(t, rec.seen)
}

func TestFanoutDeliversToAllSubscribers(t *testing.T) {
	first, second := &recorder{}, &recorder{}
	fan := NewFanout(first, nil)
	fan.Subscribe(second)

	fan.Emit(namedEvent("x"))
	require.Equal(t, []string{"x"}, first.seen)
	require.Equal(t, []string{"x"}, second.seen)
}

func TestFanoutUnsubscribe(t *testing.T) {
	first, second := &recorder{}, &recorder{}
	fan := NewFanout()
	cancel := fan.Subscribe(first)
	fan.Subscribe(second)

	fan.Emit(namedEvent("x"))
	cancel()
	cancel()
	fan.Emit(namedEvent("y"))

	require.Equal(t, []string{"x"}, first.seen)
	require.Equal(t, []string{"x", "y"}, second.seen)
}
