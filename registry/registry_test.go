package registry

import (
	"testing"

	"github.com/xiongwc/abtree/node"
)

func TestRegisterAndCreate(t *testing.T) {
	r := New(nil)
	RegisterBuiltins(r)

	n, err := r.Create("sequence", "root", nil, nil)
	if err != nil {
		t.Fatalf("Create(sequence): %v", err)
	}
	if n.Name() != "root" {
		t.Fatalf("Name() = %q, want root", n.Name())
	}
}

func TestCreateUnknownType(t *testing.T) {
	r := New(nil)
	if _, err := r.Create("nope", "n", nil, nil); err == nil {
		t.Fatalf("expected an error for unknown node type")
	}
}

func TestRegisterReplacesExisting(t *testing.T) {
	r := New(nil)
	r.Register("log", func(name string, params map[string]string, children []node.Node) (node.Node, error) {
		return node.NewLog(name, "first", "info"), nil
	})
	r.Register("log", func(name string, params map[string]string, children []node.Node) (node.Node, error) {
		return node.NewLog(name, "second", "info"), nil
	})
	if !r.Has("log") {
		t.Fatalf("expected log type to be registered")
	}
	n, err := r.Create("log", "l", nil, nil)
	if err != nil {
		t.Fatalf("Create(log): %v", err)
	}
	if msg := n.(*node.Log).Message; msg != "second" {
		t.Fatalf("Create(log) used factory producing %q, want second", msg)
	}
}
