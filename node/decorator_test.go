package node

import (
	"testing"

	"github.com/xiongwc/abtree/core"
)

func TestRepeaterLoopsWithinOneTick(t *testing.T) {
	calls := 0
	child := NewAction("child", func(tc *core.TickContext) (core.Status, error) {
		calls++
		return core.SUCCESS, nil
	})
	r := NewRepeater("rep", 3, child)
	if got := r.Tick(newTestTickContext()); got != core.SUCCESS {
		t.Fatalf("Repeater.Tick = %v, want SUCCESS", got)
	}
	if calls != 3 {
		t.Fatalf("child ticked %d times, want 3", calls)
	}
}

func TestRepeaterFailsImmediately(t *testing.T) {
	child := constAction(core.FAILURE)
	r := NewRepeater("rep", 3, child)
	if got := r.Tick(newTestTickContext()); got != core.FAILURE {
		t.Fatalf("Repeater.Tick = %v, want FAILURE", got)
	}
}

func TestUntilSuccessRetriesAcrossTicks(t *testing.T) {
	attempt := 0
	child := NewAction("child", func(tc *core.TickContext) (core.Status, error) {
		attempt++
		if attempt < 3 {
			return core.FAILURE, nil
		}
		return core.SUCCESS, nil
	})
	u := NewUntilSuccess("until", 0, child)
	tc := newTestTickContext()
	for i := 0; i < 2; i++ {
		if got := u.Tick(tc); got != core.RUNNING {
			t.Fatalf("Tick %d = %v, want RUNNING", i, got)
		}
	}
	if got := u.Tick(tc); got != core.SUCCESS {
		t.Fatalf("final Tick = %v, want SUCCESS", got)
	}
}

func TestUntilSuccessGivesUpAfterMaxAttempts(t *testing.T) {
	child := constAction(core.FAILURE)
	u := NewUntilSuccess("until", 2, child)
	tc := newTestTickContext()
	if got := u.Tick(tc); got != core.RUNNING {
		t.Fatalf("first Tick = %v, want RUNNING", got)
	}
	if got := u.Tick(tc); got != core.FAILURE {
		t.Fatalf("second Tick = %v, want FAILURE (max attempts exhausted)", got)
	}
}

func TestUntilFailureRetriesOnSuccess(t *testing.T) {
	attempt := 0
	child := NewAction("child", func(tc *core.TickContext) (core.Status, error) {
		attempt++
		if attempt < 2 {
			return core.SUCCESS, nil
		}
		return core.FAILURE, nil
	})
	u := NewUntilFailure("until", 0, child)
	tc := newTestTickContext()
	if got := u.Tick(tc); got != core.RUNNING {
		t.Fatalf("first Tick = %v, want RUNNING", got)
	}
	if got := u.Tick(tc); got != core.SUCCESS {
		t.Fatalf("second Tick = %v, want SUCCESS", got)
	}
}
