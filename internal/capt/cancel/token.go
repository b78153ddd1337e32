// Package cancel provides the process-wide cancellation token shared
// between the print session state machine and the OS signal handler
// (spec.md §5, §9). The signal handler is the token's only other writer;
// it flips the token and never calls back into core operations.
package cancel

import (
	"context"
	"time"
)

// Token is a thin wrapper around a context.Context, the idiomatic Go
// equivalent of spec.md's atomic stop_source/stop_token design note.
type Token struct {
	ctx context.Context
}

// New wraps ctx as a Token.
func New(ctx context.Context) Token {
	return Token{ctx: ctx}
}

// Requested reports whether cancellation has been observed.
func (t Token) Requested() bool {
	select {
	case <-t.ctx.Done():
		return true
	default:
		return false
	}
}

// Done returns the underlying channel so blocking operations can select on
// it alongside transport I/O and sleeps (spec.md §5 "every suspension point").
func (t Token) Done() <-chan struct{} {
	return t.ctx.Done()
}

// Context exposes the underlying context.Context for APIs that want to
// propagate it directly (e.g. net-level deadlines).
func (t Token) Context() context.Context {
	return t.ctx
}

// Sleep waits up to d, returning early (with ok=false) if cancellation is
// observed first. Every sleep in the controller (spec.md §4.4, §4.5) is a
// suspension point that must interrupt on cancellation rather than block
// the full duration.
func (t Token) Sleep(d time.Duration) (ok bool) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-t.ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

