package node

import (
	"fmt"
	"strings"
	"time"

	"github.com/xiongwc/abtree/core"
)

// Log is a leaf that writes a message to the tree's logger at a given
// level and always returns SUCCESS. If MessageKey/LevelKey are set, the
// message/level are read from the blackboard instead of the static
// Message/Level fields, mirroring original_source/abtree's Log node, which
// looks both up dynamically so a tree can compose its log output from
// upstream nodes.
type Log struct {
	Base
	Message    string
	Level      string // "debug", "info", "warn", "error"
	MessageKey string
	LevelKey   string
}

// NewLog constructs a Log node with a fixed message and level.
func NewLog(name, message, level string) *Log {
	l := &Log{Message: message, Level: level}
	l.Base = NewBase(name)
	return l
}

// Tick implements Node.
func (l *Log) Tick(tc *core.TickContext) core.Status {
	message := l.Message
	if l.MessageKey != "" {
		if v, ok := tc.Blackboard.Get(l.MessageKey); ok {
			message = fmt.Sprintf("%v", v)
		}
	}
	level := l.Level
	if l.LevelKey != "" {
		if v, ok := tc.Blackboard.Get(l.LevelKey); ok {
			level = fmt.Sprintf("%v", v)
		}
	}
	switch strings.ToLower(level) {
	case "debug":
		tc.Logger.Debug(message)
	case "warn", "warning":
		tc.Logger.Warn(message)
	case "error":
		tc.Logger.Error(message)
	default:
		tc.Logger.Info(message)
	}
	return l.RecordStatus(tc, core.SUCCESS)
}

// Reset clears the node's last-observed status.
func (l *Log) Reset() { l.ResetStatus() }

// Wait is a leaf that returns RUNNING until Duration has elapsed since the
// first Tick of the current attempt, then returns SUCCESS. The deadline is
// computed once, on the first tick, as an absolute time.Time rather than
// re-derived from a per-frame elapsed-time accumulator, since this engine
// has no fixed tick rate to accumulate against.
type Wait struct {
	Base
	Duration time.Duration

	deadline time.Time
	waiting  bool
}

// NewWait constructs a Wait node for the given duration.
func NewWait(name string, duration time.Duration) *Wait {
	w := &Wait{Duration: duration}
	w.Base = NewBase(name)
	return w
}

// Tick implements Node.
func (w *Wait) Tick(tc *core.TickContext) core.Status {
	w.Lock()
	if !w.waiting {
		w.deadline = time.Now().Add(w.Duration)
		w.waiting = true
	}
	status := core.RUNNING
	if !time.Now().Before(w.deadline) {
		w.waiting = false
		status = core.SUCCESS
	}
	w.Unlock()
	return w.RecordStatus(tc, status)
}

// Reset clears the in-progress wait so the next Tick starts a fresh
// deadline.
func (w *Wait) Reset() {
	w.Lock()
	w.waiting = false
	w.Unlock()
	w.ResetStatus()
}

// SetBlackboard is a leaf that writes Value to Blackboard[Key] and returns
// SUCCESS.
type SetBlackboard struct {
	Base
	Key   string
	Value any
}

// NewSetBlackboard constructs a SetBlackboard node.
func NewSetBlackboard(name, key string, value any) *SetBlackboard {
	s := &SetBlackboard{Key: key, Value: value}
	s.Base = NewBase(name)
	return s
}

// Tick implements Node.
func (s *SetBlackboard) Tick(tc *core.TickContext) core.Status {
	tc.Blackboard.Set(s.Key, s.Value)
	return s.RecordStatus(tc, core.SUCCESS)
}

// Reset clears the node's last-observed status.
func (s *SetBlackboard) Reset() { s.ResetStatus() }

// CheckBlackboard is a leaf that reads Blackboard[Key] and returns SUCCESS
// if it is present and equal (per fmt.Sprintf("%v", ...) comparison, the
// same loose equality Compare's OpEqual uses) to Expected, FAILURE
// otherwise — per spec §4.2: "CheckBlackboard(key, expected) compares by
// value equality."
type CheckBlackboard struct {
	Base
	Key      string
	Expected any
}

// NewCheckBlackboard constructs a CheckBlackboard node comparing
// Blackboard[key] against expected.
func NewCheckBlackboard(name, key string, expected any) *CheckBlackboard {
	c := &CheckBlackboard{Key: key, Expected: expected}
	c.Base = NewBase(name)
	return c
}

// Tick implements Node.
func (c *CheckBlackboard) Tick(tc *core.TickContext) core.Status {
	actual, ok := tc.Blackboard.Get(c.Key)
	if !ok {
		return c.RecordStatus(tc, core.FAILURE)
	}
	if fmt.Sprintf("%v", actual) == fmt.Sprintf("%v", c.Expected) {
		return c.RecordStatus(tc, core.SUCCESS)
	}
	return c.RecordStatus(tc, core.FAILURE)
}

// Reset clears the node's last-observed status.
func (c *CheckBlackboard) Reset() { c.ResetStatus() }

// CompareOp is the closed set of comparison operators Compare supports,
// carried from original_source/abtree's comparison helpers since spec only
// says a Compare node "evaluates the named comparison".
type CompareOp string

const (
	OpEqual        CompareOp = "=="
	OpNotEqual     CompareOp = "!="
	OpLessThan     CompareOp = "<"
	OpLessEqual    CompareOp = "<="
	OpGreaterThan  CompareOp = ">"
	OpGreaterEqual CompareOp = ">="
	OpContains     CompareOp = "contains"
)

// Compare is a leaf that reads Blackboard[Key] and compares it against
// Value using Op, returning SUCCESS if the comparison holds and FAILURE
// otherwise (including when Key is absent).
type Compare struct {
	Base
	Key   string
	Op    CompareOp
	Value any
}

// NewCompare constructs a Compare node.
func NewCompare(name, key string, op CompareOp, value any) *Compare {
	c := &Compare{Key: key, Op: op, Value: value}
	c.Base = NewBase(name)
	return c
}

// Tick implements Node.
func (c *Compare) Tick(tc *core.TickContext) core.Status {
	actual, ok := tc.Blackboard.Get(c.Key)
	if !ok {
		return c.RecordStatus(tc, core.FAILURE)
	}
	if evaluateCompare(actual, c.Op, c.Value) {
		return c.RecordStatus(tc, core.SUCCESS)
	}
	return c.RecordStatus(tc, core.FAILURE)
}

// Reset clears the node's last-observed status.
func (c *Compare) Reset() { c.ResetStatus() }

func evaluateCompare(actual any, op CompareOp, expected any) bool {
	switch op {
	case OpEqual:
		return fmt.Sprintf("%v", actual) == fmt.Sprintf("%v", expected)
	case OpNotEqual:
		return fmt.Sprintf("%v", actual) != fmt.Sprintf("%v", expected)
	case OpContains:
		return strings.Contains(fmt.Sprintf("%v", actual), fmt.Sprintf("%v", expected))
	}

	af, aok := toFloat(actual)
	ef, eok := toFloat(expected)
	if !aok || !eok {
		return false
	}
	switch op {
	case OpLessThan:
		return af < ef
	case OpLessEqual:
		return af <= ef
	case OpGreaterThan:
		return af > ef
	case OpGreaterEqual:
		return af >= ef
	default:
		return false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
