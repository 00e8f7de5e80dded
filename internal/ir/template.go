package ir

import (
	"encoding/json"
	"fmt"
)

// Node is a single resource in a stack template. Properties is a dynamic
// bag rendered verbatim into the template document.
type Node struct {
	LogicalID  string         `json:"logicalId"`
	Type       string         `json:"type"` // e.g., "aws.lambda.Function"
	Properties map[string]any `json:"properties"`
}

// Template is the arena of nodes for one stack, keyed by logical ID.
// Nodes are created during the synchronous declaration pass and may be
// patched in place afterwards; they are looked up by ID rather than held
// by pointer across the asynchronous boundary.
type Template struct {
	resources []*Node
	index     map[string]int
}

func NewTemplate() *Template {
	return &Template{index: make(map[string]int)}
}

// Add registers a node. Logical IDs are unique within a template.
func (t *Template) Add(n *Node) error {
	if _, exists := t.index[n.LogicalID]; exists {
		return fmt.Errorf("duplicate logical ID %q in template", n.LogicalID)
	}
	if n.Properties == nil {
		n.Properties = make(map[string]any)
	}
	t.index[n.LogicalID] = len(t.resources)
	t.resources = append(t.resources, n)
	return nil
}

// Get returns the node with the given logical ID, or nil.
func (t *Template) Get(logicalID string) *Node {
	if i, ok := t.index[logicalID]; ok {
		return t.resources[i]
	}
	return nil
}

// Has reports whether a node with the given logical ID exists.
func (t *Template) Has(logicalID string) bool {
	_, ok := t.index[logicalID]
	return ok
}

// Resources returns all nodes in declaration order.
func (t *Template) Resources() []*Node {
	return t.resources
}

type renderedTemplate struct {
	Resources []*Node  `json:"resources"`
	DependsOn []string `json:"dependsOn,omitempty"`
}

// RenderJSON serializes the template for one stack, including its
// inter-stack dependency edges.
func (t *Template) RenderJSON(dependsOn []string) ([]byte, error) {
	doc := renderedTemplate{Resources: t.resources, DependsOn: dependsOn}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to render template: %w", err)
	}
	return out, nil
}
