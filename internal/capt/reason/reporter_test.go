package reason

import (
	"strings"
	"testing"

	"github.com/darkvision77/captppd/internal/capt/status"
)

func TestUpdateIdempotent(t *testing.T) {
	t.Parallel()

	var buf strings.Builder
	r := New(&buf)

	w := status.Parse([10]byte{})
	w.Engine = 1 << 2 // jam bit

	r.Update(w)
	first := buf.String()
	if first == "" {
		t.Fatal("expected at least one STATE: line on first update")
	}

	buf.Reset()
	r.Update(w)
	if buf.String() != "" {
		t.Errorf("expected zero lines on repeated identical update, got %q", buf.String())
	}
}

func TestUpdateConservation(t *testing.T) {
	t.Parallel()

	var buf strings.Builder
	r := New(&buf)

	w := status.Parse([10]byte{})
	w.Engine = 1<<4 | 1<<2 // no-print-paper + jam

	r.Update(w)
	r.Clear()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	plus, minus := 0, 0
	for _, l := range lines {
		if strings.Contains(l, "+") {
			plus++
		} else if strings.Contains(l, "-") {
			minus++
		}
	}
	if plus != minus {
		t.Errorf("expected equal +/- counts, got +%d -%d in %v", plus, minus, lines)
	}
}

func TestNoPaperAndJamSimultaneously(t *testing.T) {
	t.Parallel()

	var buf strings.Builder
	r := New(&buf)

	w := status.Parse([10]byte{})
	w.Engine = 1<<4 | 1<<2

	r.Update(w)
	active := r.Active()
	for _, want := range []Name{MediaEmpty, MediaNeeded, MediaJam} {
		if _, ok := active[want]; !ok {
			t.Errorf("expected %s active, got %v", want, active)
		}
	}
}

func TestServiceCallDominates(t *testing.T) {
	t.Parallel()

	var buf strings.Builder
	r := New(&buf)

	w := status.Parse([10]byte{})
	w.Engine = 1<<7 | 1<<4 // service call + no-print-paper

	r.Update(w)
	active := r.Active()
	if len(active) != 1 {
		t.Fatalf("expected exactly one active reason, got %v", active)
	}
	if _, ok := active[OtherError]; !ok {
		t.Errorf("expected other-error exactly, got %v", active)
	}
}

func TestServiceCallRepeatedIsSilent(t *testing.T) {
	t.Parallel()

	var buf strings.Builder
	r := New(&buf)

	w := status.Parse([10]byte{})
	w.Engine = 1 << 7 // service call

	r.Update(w)
	buf.Reset()

	r.Update(w)
	if got := buf.String(); got != "" {
		t.Errorf("expected zero lines on a repeated identical service-call update, got %q", got)
	}
}

func TestPageEmitsProgressLine(t *testing.T) {
	t.Parallel()

	var buf strings.Builder
	r := New(&buf)
	r.Page(3)

	if got := strings.TrimRight(buf.String(), "\n"); got != "PAGE: page-number 3" {
		t.Errorf("got %q", got)
	}
}

func TestCloseClearsRemaining(t *testing.T) {
	t.Parallel()

	var buf strings.Builder
	r := New(&buf)

	w := status.Parse([10]byte{})
	w.Engine = 1 << 1 // door open
	r.Update(w)
	buf.Reset()

	if err := r.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if got := strings.TrimRight(buf.String(), "\n"); got != "STATE: -door-open-error" {
		t.Errorf("got %q", got)
	}
	if len(r.Active()) != 0 {
		t.Errorf("expected empty reason set after Close")
	}
}
