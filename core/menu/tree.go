package menu

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tree is the static menu definition, constructed once at process start.
type Tree struct {
	root  string
	nodes map[string]*Node
}

type treeDoc struct {
	Root  string  `yaml:"root"`
	Nodes []*Node `yaml:"nodes"`
}

// Parse builds a Tree from a YAML document and validates its integrity.
func Parse(data []byte) (*Tree, error) {
	var doc treeDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("menu: parse tree: %w", err)
	}
	t := &Tree{
		root:  doc.Root,
		nodes: make(map[string]*Node, len(doc.Nodes)),
	}
	for _, n := range doc.Nodes {
		if n == nil || n.ID == "" {
			return nil, fmt.Errorf("menu: node without id")
		}
		if _, dup := t.nodes[n.ID]; dup {
			return nil, fmt.Errorf("menu: duplicate node id %q", n.ID)
		}
		t.nodes[n.ID] = n
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Load reads a tree definition from a YAML file.
func Load(path string) (*Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("menu: read tree file: %w", err)
	}
	return Parse(data)
}

// Root returns the entry node id.
func (t *Tree) Root() string {
	return t.root
}

// Get returns the node with the given id.
func (t *Tree) Get(id string) (*Node, error) {
	n, ok := t.nodes[id]
	if !ok {
		return nil, fmt.Errorf("menu: unknown node %q", id)
	}
	return n, nil
}

// Has reports whether id names a node in the tree.
func (t *Tree) Has(id string) bool {
	_, ok := t.nodes[id]
	return ok
}

// Len returns the number of nodes.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Validate checks the structural integrity of the tree. Any violation is a
// configuration error: the process must refuse to serve rather than run
// with a broken tree.
func (t *Tree) Validate() error {
	if t.root == "" {
		return fmt.Errorf("menu: root node not declared")
	}
	if _, ok := t.nodes[t.root]; !ok {
		return fmt.Errorf("menu: root node %q not defined", t.root)
	}
	for id, n := range t.nodes {
		switch n.Kind {
		case KindMenu:
			if len(n.Choices) == 0 {
				return fmt.Errorf("menu: node %q has no choices", id)
			}
			for _, c := range n.Choices {
				if c.Input == "" {
					return fmt.Errorf("menu: node %q has a choice without input", id)
				}
				if _, ok := t.nodes[c.Next]; !ok {
					return fmt.Errorf("menu: node %q references unknown node %q", id, c.Next)
				}
			}
		case KindCapture:
			if n.Capture == "" {
				return fmt.Errorf("menu: capture node %q missing capture field", id)
			}
			if _, ok := t.nodes[n.Next]; !ok {
				return fmt.Errorf("menu: capture node %q references unknown node %q", id, n.Next)
			}
			switch n.Validate {
			case "", ValidateText, ValidateName, ValidatePhone:
			default:
				return fmt.Errorf("menu: capture node %q uses unknown validator %q", id, n.Validate)
			}
		case KindPaged:
			if n.Next == "" {
				return fmt.Errorf("menu: paged node %q missing item target", id)
			}
			if _, ok := t.nodes[n.Next]; !ok {
				return fmt.Errorf("menu: paged node %q references unknown node %q", id, n.Next)
			}
			for _, c := range n.Choices {
				if _, ok := t.nodes[c.Next]; !ok {
					return fmt.Errorf("menu: paged node %q references unknown node %q", id, c.Next)
				}
			}
		case KindTerminal:
			if len(n.Choices) > 0 {
				return fmt.Errorf("menu: terminal node %q declares choices", id)
			}
			switch n.Effect {
			case "", EffectNone, EffectPublishListing, EffectRevealContact:
			default:
				return fmt.Errorf("menu: terminal node %q uses unknown effect %q", id, n.Effect)
			}
		default:
			return fmt.Errorf("menu: node %q has unknown kind %q", id, n.Kind)
		}
	}
	return nil
}
