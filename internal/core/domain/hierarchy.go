package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/rotisserie/eris"
)

// EarthID is the GeoNames id of the synthetic root node.
const EarthID int64 = 6295630

const (
	RelationContains   = "contains"
	RelationUnparented = "unparented"
)

// Child is a labelled edge from a node to one of its children.
type Child struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Node is a container in the hierarchy: Earth, a country or a state.
type Node struct {
	Name     string  `json:"name"`
	Children []Child `json:"children"`
}

func (n *Node) AddChild(id int64, name string) {
	n.Children = append(n.Children, Child{ID: id, Name: name})
}

// HierarchyRelation is a flattened parent -> child edge.
type HierarchyRelation struct {
	ParentID     int64
	ChildID      int64
	ChildName    string
	RelationType string
}

// String returns a string representation of the relation
func (hr *HierarchyRelation) String() string {
	return fmt.Sprintf("%d -> %d [%s]", hr.ParentID, hr.ChildID, hr.RelationType)
}

// Tree maps geoname ids to nodes and remembers the order nodes were created in,
// so that serialization is reproducible.
type Tree struct {
	nodes map[int64]*Node
	order []int64
}

func NewTree() *Tree {
	return &Tree{nodes: make(map[int64]*Node)}
}

// GetOrCreate returns the node for id, creating it with name() if absent.
// name is only called on creation.
func (t *Tree) GetOrCreate(id int64, name func() string) *Node {
	if n, ok := t.nodes[id]; ok {
		return n
	}
	n := &Node{Name: name(), Children: []Child{}}
	t.nodes[id] = n
	t.order = append(t.order, id)
	return n
}

func (t *Tree) Get(id int64) (*Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

func (t *Tree) Len() int {
	return len(t.order)
}

// IDs returns node ids in creation order.
func (t *Tree) IDs() []int64 {
	ids := make([]int64, len(t.order))
	copy(ids, t.order)
	return ids
}

// Edges flattens the tree into relations of the given type, in creation order.
func (t *Tree) Edges(relationType string) []HierarchyRelation {
	var edges []HierarchyRelation
	for _, id := range t.order {
		for _, c := range t.nodes[id].Children {
			edges = append(edges, HierarchyRelation{
				ParentID:     id,
				ChildID:      c.ID,
				ChildName:    c.Name,
				RelationType: relationType,
			})
		}
	}
	return edges
}

// MarshalJSON writes the tree as an object keyed by stringified id, in node
// creation order. Names are not HTML-escaped.
func (t *Tree) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	buf.WriteByte('{')
	for i, id := range t.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(strconv.FormatInt(id, 10)))
		buf.WriteByte(':')
		if err := enc.Encode(t.nodes[id]); err != nil {
			return nil, eris.Wrapf(err, "marshal node %d", id)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
