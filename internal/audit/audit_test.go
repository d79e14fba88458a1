package audit

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	lines []string
}

func (r *recordingSink) Emit(_ Level, line string) {
	r.lines = append(r.lines, line)
}

type name string

func (n name) String() string { return string(n) }

func TestLog_DefaultPolicy(t *testing.T) {
	sink := &recordingSink{}
	log := New(DefaultPolicy, sink)

	log.Event("ticket bought")
	log.StateChange("sold_tickets", "1", name("alice"))
	log.Warning("balance low")
	log.Error(errors.New("out of tickets"))

	require.Equal(t, []string{
		"[WARNING]: balance low",
		"[ERROR]: ERROR: out of tickets",
	}, sink.lines)
}

func TestLog_InfoEnabled(t *testing.T) {
	sink := &recordingSink{}
	log := New(Policy{Info: true, Warning: true, Error: true}, sink)

	log.Event("draw executed")
	log.StateChange("draw_time", "100", name("admin"))

	require.Equal(t, []string{
		"[INFO]: Event: draw executed",
		"[INFO]: State change: draw_time changed to 100 by admin",
	}, sink.lines)
}

func TestLog_NilAndDiscard(t *testing.T) {
	var log *Log
	log.Event("ignored")
	Discard().Error(errors.New("ignored"))

	require.False(t, Policy{}.Allows(ERROR))
	require.False(t, DefaultPolicy.Allows(Level(42)))
}
