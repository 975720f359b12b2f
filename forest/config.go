package forest

import (
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/xiongwc/abtree/abterr"
	"github.com/xiongwc/abtree/core"
	"github.com/xiongwc/abtree/logging"
	"github.com/xiongwc/abtree/middleware"
	"github.com/xiongwc/abtree/registry"
	"github.com/xiongwc/abtree/tree"
	"github.com/xiongwc/abtree/xmlloader"
)

// Config is the declarative YAML shape a Forest can be built from, grounded
// on original_source/abtree/forest/forest_config.py's ForestConfig/NodeConfig
// pair, adapted from Python dataclasses into yaml.v3 struct tags (the
// pack's only YAML-capable dependency; see SPEC_FULL.md DOMAIN STACK).
type Config struct {
	Name         string           `yaml:"name"`
	TickInterval string           `yaml:"tick_interval"`
	Nodes        []NodeConfig     `yaml:"nodes"`
	Middleware   []MiddlewareSpec `yaml:"middleware"`
}

// NodeConfig describes one forest node: its declared type, capability set,
// dependency names, and the XML document for the tree it wraps.
type NodeConfig struct {
	Name         string   `yaml:"name"`
	Type         string   `yaml:"type"`
	Capabilities []string `yaml:"capabilities"`
	Dependencies []string `yaml:"dependencies"`
	Tree         string   `yaml:"tree"`
}

// MiddlewareSpec describes one middleware to attach, by kind name, plus
// loosely typed params (e.g. queue_size, max_depth) interpreted per kind.
type MiddlewareSpec struct {
	Kind   string            `yaml:"kind"`
	Name   string            `yaml:"name"`
	Params map[string]string `yaml:"params"`
}

// ParseConfig unmarshals a YAML forest topology document.
func ParseConfig(doc string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(doc), &cfg); err != nil {
		return nil, abterr.Wrap(abterr.ParseError, "", "malformed forest configuration document", err)
	}
	return &cfg, nil
}

func parseNodeType(s string) NodeType {
	switch s {
	case "MASTER":
		return Master
	case "MONITOR":
		return Monitor
	case "COORDINATOR":
		return Coordinator
	default:
		return Worker
	}
}

// BuildMiddleware instantiates the middleware named by spec.Kind. Supported
// kinds: pubsub, reqresp, sharedblackboard, statewatch, taskboard,
// behaviorcall. An unrecognized kind is reported as UnknownNodeType (the
// same taxonomy entry the XML loader uses for an unresolved element name —
// both describe "a declared type name with no matching factory").
func BuildMiddleware(spec MiddlewareSpec, bus *core.EventBus) (middleware.Middleware, error) {
	switch spec.Kind {
	case "pubsub":
		queueSize := 0
		if raw, ok := spec.Params["queue_size"]; ok {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return nil, abterr.Wrap(abterr.ParseError, spec.Name, "invalid queue_size", err)
			}
			queueSize = n
		}
		return middleware.NewPubSub(spec.Name, queueSize), nil
	case "reqresp":
		return middleware.NewReqResp(spec.Name), nil
	case "sharedblackboard":
		return middleware.NewSharedBlackboard(spec.Name, bus), nil
	case "statewatch":
		return middleware.NewStateWatch(spec.Name), nil
	case "taskboard":
		return middleware.NewTaskBoard(spec.Name, bus), nil
	case "behaviorcall":
		maxDepth := 0
		if raw, ok := spec.Params["max_depth"]; ok {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return nil, abterr.Wrap(abterr.ParseError, spec.Name, "invalid max_depth", err)
			}
			maxDepth = n
		}
		return middleware.NewBehaviorCall(spec.Name, maxDepth), nil
	default:
		return nil, abterr.New(abterr.UnknownNodeType, spec.Kind, "unrecognized middleware kind")
	}
}

// Build constructs a Forest from cfg: each NodeConfig's Tree XML is parsed
// with reg and wrapped in its own *tree.BehaviorTree, and each
// MiddlewareSpec is instantiated and attached, all while the forest is
// still Idle. logger, when non-nil, is shared by every constructed tree.
func Build(cfg *Config, reg *registry.Registry, logger logging.Logger) (*Forest, error) {
	bus := core.NewEventBus()
	f := New(cfg.Name, bus, logger)

	for _, nc := range cfg.Nodes {
		root, name, err := xmlloader.Load(nc.Tree, reg)
		if err != nil {
			return nil, err
		}
		if name == "" {
			name = nc.Name
		}
		t, err := tree.NewFromNode(root, tree.WithName(name), tree.WithRegistry(reg), tree.WithLogger(logger))
		if err != nil {
			return nil, err
		}

		caps := make(map[string]bool, len(nc.Capabilities))
		for _, c := range nc.Capabilities {
			caps[c] = true
		}
		if err := f.AddNode(&ForestNode{
			Name:         nc.Name,
			Tree:         t,
			Type:         parseNodeType(nc.Type),
			Capabilities: caps,
			Dependencies: nc.Dependencies,
		}); err != nil {
			return nil, err
		}
	}

	for _, ms := range cfg.Middleware {
		mw, err := BuildMiddleware(ms, bus)
		if err != nil {
			return nil, err
		}
		if err := f.AddMiddleware(mw); err != nil {
			return nil, err
		}
	}

	return f, nil
}
