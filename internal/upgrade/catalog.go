// Package upgrade defines the tech tree: the immutable catalog of upgrade
// nodes, the effects they apply and the prerequisite graph that decides which
// nodes can be bought.
//
// Catalogs are expected to be acyclic. Construction validates ids, costs,
// effects and prerequisite references but does not search for cycles; a
// node on a cycle simply never becomes available.
package upgrade

import (
	"errors"
	"fmt"

	"github.com/tomz197/asteroid-idle/internal/economy"
)

// ID uniquely identifies an upgrade node.
type ID string

// Position places a node in the tree view. Presentation only.
type Position struct {
	X int `yaml:"x" json:"x"`
	Y int `yaml:"y" json:"y"`
}

// Node is one purchasable entry in the catalog.
type Node struct {
	ID          ID              `yaml:"id" json:"id"`
	Name        string          `yaml:"name" json:"name"`
	Description string          `yaml:"description" json:"description"`
	Cost        economy.Amounts `yaml:"cost" json:"cost"`
	Requires    []ID            `yaml:"requires,omitempty" json:"requires,omitempty"`
	Effect      Effect          `yaml:"effect" json:"effect"`
	Position    *Position       `yaml:"position,omitempty" json:"position,omitempty"`
}

var (
	// ErrUnknownUpgrade is returned for an id that is not in the catalog.
	ErrUnknownUpgrade = errors.New("unknown upgrade")
	// ErrInvalidCatalog is returned when catalog definitions are inconsistent.
	ErrInvalidCatalog = errors.New("invalid catalog")
)

// Catalog is the immutable set of upgrade definitions.
type Catalog struct {
	nodes    []Node
	index    map[ID]int
	children map[ID][]ID
	roots    []ID
}

// NewCatalog validates nodes and builds the catalog. Node order is kept and
// defines the catalog order used for listings and effect replay.
func NewCatalog(nodes []Node) (*Catalog, error) {
	c := &Catalog{
		nodes:    make([]Node, len(nodes)),
		index:    make(map[ID]int, len(nodes)),
		children: make(map[ID][]ID),
	}

	for i, n := range nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("%w: node %d has no id", ErrInvalidCatalog, i)
		}
		if _, dup := c.index[n.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidCatalog, n.ID)
		}
		if err := n.Cost.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %s cost: %v", ErrInvalidCatalog, n.ID, err)
		}
		if err := n.Effect.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidCatalog, n.ID, err)
		}
		c.index[n.ID] = i
		c.nodes[i] = cloneNode(n)
	}

	for _, n := range c.nodes {
		if len(n.Requires) == 0 {
			c.roots = append(c.roots, n.ID)
		}
		for _, req := range n.Requires {
			if req == n.ID {
				return nil, fmt.Errorf("%w: %s requires itself", ErrInvalidCatalog, n.ID)
			}
			if _, ok := c.index[req]; !ok {
				return nil, fmt.Errorf("%w: %s requires unknown %q", ErrInvalidCatalog, n.ID, req)
			}
			c.children[req] = append(c.children[req], n.ID)
		}
	}

	return c, nil
}

// MustCatalog is like NewCatalog but panics on error. For tests and
// compiled-in catalogs.
func MustCatalog(nodes []Node) *Catalog {
	c, err := NewCatalog(nodes)
	if err != nil {
		panic(err)
	}
	return c
}

// Len returns the number of nodes.
func (c *Catalog) Len() int {
	return len(c.nodes)
}

// Node returns the definition for id. The returned node is a copy.
func (c *Catalog) Node(id ID) (Node, bool) {
	i, ok := c.index[id]
	if !ok {
		return Node{}, false
	}
	return cloneNode(c.nodes[i]), true
}

// Nodes returns every definition in catalog order.
func (c *Catalog) Nodes() []Node {
	out := make([]Node, len(c.nodes))
	for i, n := range c.nodes {
		out[i] = cloneNode(n)
	}
	return out
}

// IDs returns every node id in catalog order.
func (c *Catalog) IDs() []ID {
	out := make([]ID, len(c.nodes))
	for i, n := range c.nodes {
		out[i] = n.ID
	}
	return out
}

// Roots returns the nodes with no prerequisites.
func (c *Catalog) Roots() []ID {
	return append([]ID(nil), c.roots...)
}

// Children returns the nodes that list id as a prerequisite.
func (c *Catalog) Children(id ID) []ID {
	return append([]ID(nil), c.children[id]...)
}

func cloneNode(n Node) Node {
	n.Cost = n.Cost.Clone()
	n.Requires = append([]ID(nil), n.Requires...)
	if n.Position != nil {
		p := *n.Position
		n.Position = &p
	}
	return n
}
