// Package xmlloader implements spec §4.7's declarative tree construction
// path: an XML document whose outermost element is BehaviorTree (a single
// tree) is parsed with github.com/beevik/etree and walked to build a
// node.Node tree, consulting a *registry.Registry for every element name
// that isn't a reserved control structure. Grounded structurally on
// original_source/abtree/parser/xml_parser.py's two-pass parse/build split
// (no Go file in the retrieved pack parses behavior-tree XML; etree itself
// is adopted from xkilldash9x-scalpel-cli's go.mod, the only pack repo with
// an XML dependency at all). The loader is pure: building a tree here never
// ticks it.
package xmlloader

import (
	"encoding/xml"
	"fmt"

	"github.com/beevik/etree"

	"github.com/xiongwc/abtree/abterr"
	"github.com/xiongwc/abtree/node"
	"github.com/xiongwc/abtree/registry"
)

// reservedElements names the control-structure elements that do not go
// through the registry.
var reservedElements = map[string]bool{
	"BehaviorTree":   true,
	"BehaviorForest": true,
	"Middleware":     true,
}

// Load parses doc (an XML document whose root element is BehaviorTree) and
// builds the corresponding node.Node tree, resolving every non-reserved
// element name through reg. It returns the root node, the tree's declared
// name (the BehaviorTree element's "name" attribute), and an error.
//
// Malformed XML is reported as abterr.ParseError; etree surfaces no
// line/column for well-formedness errors of its own (it wraps Go's
// encoding/xml tokenizer, which does report a line via its SyntaxError), so
// Load extracts that line number when the underlying error provides one.
func Load(doc string, reg *registry.Registry) (node.Node, string, error) {
	d := etree.NewDocument()
	if err := d.ReadFromString(doc); err != nil {
		return nil, "", parseErrorFrom(err)
	}
	root := d.Root()
	if root == nil {
		return nil, "", abterr.New(abterr.ParseError, "", "document has no root element")
	}
	if root.Tag != "BehaviorTree" {
		return nil, "", abterr.New(abterr.ParseError, root.Tag, "root element must be <BehaviorTree>, use LoadForest for <BehaviorForest>")
	}

	children := root.ChildElements()
	if len(children) != 1 {
		return nil, "", abterr.New(abterr.InvalidTree, attr(root, "name"), "<BehaviorTree> must have exactly one child element (its root node)")
	}
	n, err := buildNode(children[0], reg)
	if err != nil {
		return nil, "", err
	}
	return n, attr(root, "name"), nil
}

// ForestDocument is the parsed shape of a <BehaviorForest> document: each
// <BehaviorTree> child yields one root node plus its declared name, and
// each <Middleware> child yields a kind/name pair for the caller to
// instantiate the concrete middleware (xmlloader has no knowledge of the
// middleware package's types, to avoid an import cycle between xmlloader
// and forest/middleware).
type ForestDocument struct {
	Trees       []ForestTree
	Middlewares []MiddlewareDecl
}

// ForestTree is one <BehaviorTree> entry inside a <BehaviorForest> document.
type ForestTree struct {
	Name string
	Root node.Node
}

// MiddlewareDecl is one <Middleware kind="..." name="..."/> entry.
type MiddlewareDecl struct {
	Kind   string
	Name   string
	Params map[string]string
}

// LoadForest parses doc (an XML document whose root element is
// BehaviorForest) into a ForestDocument, resolving every tree's node
// elements through reg.
func LoadForest(doc string, reg *registry.Registry) (*ForestDocument, error) {
	d := etree.NewDocument()
	if err := d.ReadFromString(doc); err != nil {
		return nil, parseErrorFrom(err)
	}
	root := d.Root()
	if root == nil {
		return nil, abterr.New(abterr.ParseError, "", "document has no root element")
	}
	if root.Tag != "BehaviorForest" {
		return nil, abterr.New(abterr.ParseError, root.Tag, "root element must be <BehaviorForest>, use Load for <BehaviorTree>")
	}

	out := &ForestDocument{}
	for _, child := range root.ChildElements() {
		switch child.Tag {
		case "BehaviorTree":
			treeChildren := child.ChildElements()
			if len(treeChildren) != 1 {
				return nil, abterr.New(abterr.InvalidTree, attr(child, "name"), "<BehaviorTree> must have exactly one child element (its root node)")
			}
			n, err := buildNode(treeChildren[0], reg)
			if err != nil {
				return nil, err
			}
			out.Trees = append(out.Trees, ForestTree{Name: attr(child, "name"), Root: n})
		case "Middleware":
			out.Middlewares = append(out.Middlewares, MiddlewareDecl{
				Kind:   attr(child, "kind"),
				Name:   attr(child, "name"),
				Params: elementAttrs(child),
			})
		default:
			return nil, abterr.New(abterr.UnknownNodeType, child.Tag, "<BehaviorForest> children must be <BehaviorTree> or <Middleware>")
		}
	}
	return out, nil
}

// buildNode recursively constructs a node.Node from el, building el's
// children first (composites and decorators need their children to
// construct themselves, since node.Node has no mutable child-append API —
// children are frozen at construction per spec §3's "config is frozen
// after construction").
func buildNode(el *etree.Element, reg *registry.Registry) (node.Node, error) {
	name := attr(el, "name")
	if name == "" {
		name = el.Tag
	}
	if reservedElements[el.Tag] {
		return nil, abterr.New(abterr.ParseError, el.Tag, fmt.Sprintf("<%s> is a reserved control element and cannot appear as a node", el.Tag))
	}

	childElements := el.ChildElements()
	children := make([]node.Node, 0, len(childElements))
	for _, ce := range childElements {
		c, err := buildNode(ce, reg)
		if err != nil {
			return nil, err
		}
		children = append(children, c)
	}

	params := elementAttrs(el)
	typeName := registryTypeName(el.Tag)
	n, err := reg.Create(typeName, name, params, children)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// registryTypeName maps an XML element tag to the registry type name the
// builtins register under (lower_snake_case), so documents can use either
// PascalCase ("CheckBlackboard") matching the examples in spec §6 or the
// registry's own names directly.
func registryTypeName(tag string) string {
	if builtin, ok := builtinAliases[tag]; ok {
		return builtin
	}
	return tag
}

var builtinAliases = map[string]string{
	"Sequence":        "sequence",
	"Selector":        "selector",
	"Parallel":        "parallel",
	"Inverter":        "inverter",
	"Repeater":        "repeater",
	"UntilSuccess":    "until_success",
	"UntilFailure":    "until_failure",
	"Log":             "log",
	"Wait":            "wait",
	"SetBlackboard":   "set_blackboard",
	"CheckBlackboard": "check_blackboard",
	"Compare":         "compare",
}

func attr(el *etree.Element, key string) string {
	a := el.SelectAttr(key)
	if a == nil {
		return ""
	}
	return a.Value
}

func elementAttrs(el *etree.Element) map[string]string {
	out := make(map[string]string, len(el.Attr))
	for _, a := range el.Attr {
		out[a.Key] = a.Value
	}
	return out
}

// parseErrorFrom converts an etree read error into an abterr.Error, keeping
// the line number encoding/xml's tokenizer reports for well-formedness
// errors (etree parses on top of encoding/xml and wraps its *xml.SyntaxError
// unchanged).
func parseErrorFrom(err error) error {
	if se, ok := err.(*xml.SyntaxError); ok {
		return abterr.AtPos("", se.Msg, se.Line, 0)
	}
	return abterr.Wrap(abterr.ParseError, "", "malformed XML document", err)
}
