// Package snapshot reads and writes the saved form of a patch: the edge style
// together with every node, edge and the editor viewport.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-patchbay/patch"
)

// ErrMalformed is returned for a snapshot that cannot be loaded.
var ErrMalformed = errors.New("snapshot: malformed")

// EdgeType selects how the editor draws edges.
type EdgeType string

const (
	// EdgeDefault draws bezier curves.
	EdgeDefault EdgeType = "default"
	// EdgeStep draws right-angled steps.
	EdgeStep EdgeType = "step"
)

// Document is a saved patch.
type Document struct {
	EdgeType EdgeType `json:"edgeType" yaml:"edgeType" validate:"required,oneof=default step"`
	Flow     *Flow    `json:"flow"     yaml:"flow"     validate:"required"`
}

// Flow is the editor graph: nodes, edges and the view transform.
type Flow struct {
	Nodes    []Node   `json:"nodes"    yaml:"nodes"    validate:"dive"`
	Edges    []Edge   `json:"edges"    yaml:"edges"    validate:"dive"`
	Viewport Viewport `json:"viewport" yaml:"viewport"`
}

// Node is one node widget instance.
type Node struct {
	ID       string         `json:"id"             yaml:"id"             validate:"required"`
	Type     string         `json:"type"           yaml:"type"           validate:"required"`
	Position Position       `json:"position"       yaml:"position"`
	Data     map[string]any `json:"data,omitempty" yaml:"data,omitempty"`
}

// Position is a node's location on the canvas.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Edge is a wire between two node handles. Handles are socket ids and may be
// missing on edges that were saved half drawn.
type Edge struct {
	ID           string  `json:"id"           yaml:"id"`
	Source       string  `json:"source"       yaml:"source"`
	Target       string  `json:"target"       yaml:"target"`
	SourceHandle *string `json:"sourceHandle" yaml:"sourceHandle"`
	TargetHandle *string `json:"targetHandle" yaml:"targetHandle"`
}

// Viewport is the canvas pan and zoom.
type Viewport struct {
	X    float64 `json:"x"    yaml:"x"`
	Y    float64 `json:"y"    yaml:"y"`
	Zoom float64 `json:"zoom" yaml:"zoom"`
}

// New returns an empty document with the default edge style.
func New() *Document {
	return &Document{
		EdgeType: EdgeDefault,
		Flow: &Flow{
			Nodes:    []Node{},
			Edges:    []Edge{},
			Viewport: Viewport{Zoom: 1},
		},
	}
}

// NewNodeID returns a fresh node id.
func NewNodeID() string {
	return uuid.NewString()
}

// Decode reads and validates a JSON document.
func Decode(r io.Reader) (*Document, error) {
	var doc Document

	dec := json.NewDecoder(r)

	err := dec.Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	err = Validate(&doc)
	if err != nil {
		return nil, err
	}

	return &doc, nil
}

// Encode writes doc as indented JSON.
func Encode(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(doc)
}

// EncodeYAML writes doc as YAML for reading by people.
func EncodeYAML(w io.Writer, doc *Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	err := enc.Encode(doc)
	if err != nil {
		return fmt.Errorf("snapshot: encode yaml: %w", err)
	}

	return enc.Close()
}

// Node returns the node with the given id.
func (d *Document) Node(id string) (Node, bool) {
	if d.Flow == nil {
		return Node{}, false
	}

	for _, n := range d.Flow.Nodes {
		if n.ID == id {
			return n, true
		}
	}

	return Node{}, false
}

// Edges returns the edges as the patch package sees them.
func (d *Document) Edges() []patch.Edge {
	if d.Flow == nil {
		return nil
	}

	return PatchEdges(d.Flow.Edges)
}

// Connections derives the connection list from the document's edges.
func (d *Document) Connections() []patch.Connection {
	return patch.Connections(d.Edges())
}

// PatchEdges converts saved edges to the handles the patch package wires.
func PatchEdges(edges []Edge) []patch.Edge {
	out := make([]patch.Edge, 0, len(edges))
	for _, e := range edges {
		out = append(out, patch.Edge{SourceHandle: e.SourceHandle, TargetHandle: e.TargetHandle})
	}

	return out
}
