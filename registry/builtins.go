package registry

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xiongwc/abtree/core"
	"github.com/xiongwc/abtree/node"
)

// RegisterBuiltins registers a factory for every composite, decorator, and
// parameter-driven leaf node type this module defines. Action and
// Condition are deliberately not registered here: they wrap a Go closure
// supplied by the caller, which a declarative document has no way to name,
// so callers that need them available to the XML loader must register
// their own factories under application-specific type names.
func RegisterBuiltins(r *Registry) {
	r.Register("sequence", func(name string, params map[string]string, children []node.Node) (node.Node, error) {
		return node.NewSequence(name, children...), nil
	})
	r.Register("selector", func(name string, params map[string]string, children []node.Node) (node.Node, error) {
		return node.NewSelector(name, children...), nil
	})
	r.Register("parallel", func(name string, params map[string]string, children []node.Node) (node.Node, error) {
		policy, err := parsePolicy(params["policy"])
		if err != nil {
			return nil, err
		}
		return node.NewParallel(name, policy, children...), nil
	})
	r.Register("inverter", func(name string, params map[string]string, children []node.Node) (node.Node, error) {
		if err := requireArity(name, children, 1); err != nil {
			return nil, err
		}
		return node.NewInverter(name, children[0]), nil
	})
	r.Register("repeater", func(name string, params map[string]string, children []node.Node) (node.Node, error) {
		if err := requireArity(name, children, 1); err != nil {
			return nil, err
		}
		count := -1
		if raw, ok := params["count"]; ok {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return nil, fmt.Errorf("repeater node %q: invalid count %q: %w", name, raw, err)
			}
			count = n
		}
		return node.NewRepeater(name, count, children[0]), nil
	})
	r.Register("until_success", func(name string, params map[string]string, children []node.Node) (node.Node, error) {
		if err := requireArity(name, children, 1); err != nil {
			return nil, err
		}
		maxAttempts, _ := strconv.Atoi(params["max_attempts"])
		return node.NewUntilSuccess(name, maxAttempts, children[0]), nil
	})
	r.Register("until_failure", func(name string, params map[string]string, children []node.Node) (node.Node, error) {
		if err := requireArity(name, children, 1); err != nil {
			return nil, err
		}
		maxAttempts, _ := strconv.Atoi(params["max_attempts"])
		return node.NewUntilFailure(name, maxAttempts, children[0]), nil
	})
	r.Register("log", func(name string, params map[string]string, children []node.Node) (node.Node, error) {
		l := node.NewLog(name, params["message"], params["level"])
		l.MessageKey = params["message_key"]
		l.LevelKey = params["level_key"]
		return l, nil
	})
	r.Register("wait", func(name string, params map[string]string, children []node.Node) (node.Node, error) {
		d, err := parseWaitDuration(params["duration"])
		if err != nil {
			return nil, fmt.Errorf("wait node %q: invalid duration %q: %w", name, params["duration"], err)
		}
		return node.NewWait(name, d), nil
	})
	r.Register("set_blackboard", func(name string, params map[string]string, children []node.Node) (node.Node, error) {
		return node.NewSetBlackboard(name, params["key"], params["value"]), nil
	})
	r.Register("check_blackboard", func(name string, params map[string]string, children []node.Node) (node.Node, error) {
		return node.NewCheckBlackboard(name, params["key"], params["expected_value"]), nil
	})
	r.Register("compare", func(name string, params map[string]string, children []node.Node) (node.Node, error) {
		return node.NewCompare(name, params["key"], node.CompareOp(params["op"]), params["value"]), nil
	})
}

func requireArity(name string, children []node.Node, want int) error {
	if len(children) != want {
		return fmt.Errorf("node %q: expected %d child(ren), got %d", name, want, len(children))
	}
	return nil
}

// parseWaitDuration accepts either a Go duration string ("1.5s") or a bare
// number of seconds ("1.0"), matching spec §6's XML example (duration="1.0").
func parseWaitDuration(raw string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(raw)
}

func parsePolicy(raw string) (core.Policy, error) {
	switch strings.ToUpper(raw) {
	case "", "REQUIRE_ONE":
		return core.RequireOne, nil
	case "REQUIRE_ALL":
		return core.RequireAll, nil
	default:
		return 0, fmt.Errorf("unknown parallel policy %q", raw)
	}
}
